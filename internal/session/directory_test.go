package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumen-os/lumen/server/internal/domain/desktop"
	"github.com/lumen-os/lumen/server/internal/domain/theme"
	"github.com/lumen-os/lumen/server/internal/gfx"
	"github.com/lumen-os/lumen/server/internal/protocol"
	"github.com/lumen-os/lumen/server/internal/shm"
)

func TestAllocateClientIDsNeverRepeat(t *testing.T) {
	d := NewDirectory(NewLoop(nil), nil, nil)

	seen := make(map[int]bool)
	for i := 0; i < 100; i++ {
		id := d.AllocateClientID()
		assert.False(t, seen[id])
		seen[id] = true
	}
}

func TestRegisterLookupUnregister(t *testing.T) {
	loop := NewLoop(nil)
	d := NewDirectory(loop, nil, nil)
	s := New(d.AllocateClientID(), Deps{Directory: d})

	d.Register(s)
	got, ok := d.Lookup(s.ClientID())
	require.True(t, ok)
	assert.Equal(t, s, got)
	assert.Equal(t, 1, d.Len())

	d.Unregister(s.ClientID())
	_, ok = d.Lookup(s.ClientID())
	assert.False(t, ok)

	// Unknown ids are ignored.
	d.Unregister(999)
}

func TestScheduleRemovalDefersPastCurrentTurn(t *testing.T) {
	loop := NewLoop(nil)
	loop.Start()
	defer loop.Stop()

	broker := shm.NewBroker(time.Minute)
	directory := NewDirectory(loop, nil, nil)
	desk := desktop.New(gfx.MakeRect(0, 0, 640, 480), broker, desktop.NopCompositor{}, nil)

	var s *Session
	loop.Call(func() {
		s = New(directory.AllocateClientID(), Deps{
			Directory: directory,
			Desktop:   desk,
			Broker:    broker,
			Themes:    theme.NewRegistry(),
			Messenger: &recordingMessenger{},
		})
		directory.Register(s)
	})

	stillRegisteredMidTurn := false
	loop.Call(func() {
		resp := s.Dispatch(&protocol.CreateWindow{
			Rect: gfx.MakeRect(0, 0, 100, 100), Type: "normal",
		})
		require.NotNil(t, resp)

		// A disconnect discovered mid-request must not free the
		// session out from under the handler.
		s.Die()
		_, stillRegisteredMidTurn = directory.Lookup(s.ClientID())
	})
	assert.True(t, stillRegisteredMidTurn)

	loop.Call(func() {
		_, ok := directory.Lookup(s.ClientID())
		assert.False(t, ok, "removal ran at the idle point")
		assert.Zero(t, desk.Stats().Windows)
		assert.Zero(t, s.WindowCount())
	})
}
