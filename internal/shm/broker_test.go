package shm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumen-os/lumen/server/internal/gfx"
)

func TestCreateAndResolve(t *testing.T) {
	b := NewBroker(time.Minute)

	buf, err := b.Create(1, 4096)
	require.NoError(t, err)
	assert.Equal(t, 4096, buf.Size())

	resolved, ok := b.Resolve(buf.ID())
	require.True(t, ok)
	assert.Same(t, buf, resolved)

	_, ok = b.Resolve(InvalidBuffer)
	assert.False(t, ok)

	_, ok = b.Resolve(BufferID(9999))
	assert.False(t, ok)
}

func TestCreateRejectsBadSize(t *testing.T) {
	b := NewBroker(time.Minute)
	_, err := b.Create(1, 0)
	assert.Error(t, err)
	_, err = b.Create(1, -5)
	assert.Error(t, err)
}

func TestCanFit(t *testing.T) {
	b := NewBroker(time.Minute)
	buf, err := b.Create(1, 16*16*BytesPerPixel)
	require.NoError(t, err)

	assert.True(t, buf.CanFit(gfx.Size{Width: 16, Height: 16}))
	assert.False(t, buf.CanFit(gfx.Size{Width: 17, Height: 16}))
	assert.False(t, buf.CanFit(gfx.Size{}))
}

func TestIDsNeverReused(t *testing.T) {
	b := NewBroker(time.Minute)
	first, err := b.Create(1, 16)
	require.NoError(t, err)
	b.Release(first.ID())

	second, err := b.Create(1, 16)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID(), second.ID())
}

func TestReleaseReclaims(t *testing.T) {
	b := NewBroker(time.Minute)
	buf, err := b.Create(1, 64)
	require.NoError(t, err)

	require.True(t, b.Retain(buf.ID()))
	b.Release(buf.ID())
	_, ok := b.Resolve(buf.ID())
	assert.True(t, ok, "one reference still held")

	b.Release(buf.ID())
	_, ok = b.Resolve(buf.ID())
	assert.False(t, ok, "last reference dropped")
}

func TestLeaseKeepsBufferAliveUntilAck(t *testing.T) {
	b := NewBroker(time.Minute)
	buf, err := b.Create(1, 64)
	require.NoError(t, err)

	require.True(t, b.Lease(buf.ID(), 2))
	b.Release(buf.ID()) // creator drops its reference

	_, ok := b.Resolve(buf.ID())
	assert.True(t, ok, "lease keeps the buffer alive")

	require.True(t, b.Ack(buf.ID(), 2))
	_, ok = b.Resolve(buf.ID())
	assert.False(t, ok, "ack released the last interested party")
}

func TestAckWithoutLeaseFails(t *testing.T) {
	b := NewBroker(time.Minute)
	buf, err := b.Create(1, 64)
	require.NoError(t, err)

	assert.False(t, b.Ack(buf.ID(), 2))
	assert.False(t, b.Ack(BufferID(404), 2))
}

func TestExpireLeases(t *testing.T) {
	b := NewBroker(time.Millisecond)
	buf, err := b.Create(1, 64)
	require.NoError(t, err)

	require.True(t, b.Lease(buf.ID(), 2))
	b.Release(buf.ID())

	dropped := b.ExpireLeases(time.Now().Add(time.Second))
	assert.Equal(t, 1, dropped)

	_, ok := b.Resolve(buf.ID())
	assert.False(t, ok)
}

func TestReleaseClientDropsLeases(t *testing.T) {
	b := NewBroker(time.Minute)
	buf, err := b.Create(1, 64)
	require.NoError(t, err)

	require.True(t, b.Lease(buf.ID(), 2))
	b.Release(buf.ID())

	b.ReleaseClient(2)
	_, ok := b.Resolve(buf.ID())
	assert.False(t, ok)
}

func TestDisownLeavesLeaseHolding(t *testing.T) {
	b := NewBroker(time.Minute)
	buf, err := b.Create(1, 64)
	require.NoError(t, err)

	require.True(t, b.Lease(buf.ID(), 2))
	b.Disown(buf.ID())
	b.Disown(buf.ID()) // idempotent

	_, ok := b.Resolve(buf.ID())
	assert.True(t, ok, "lease keeps the buffer alive")

	require.True(t, b.Ack(buf.ID(), 2))
	_, ok = b.Resolve(buf.ID())
	assert.False(t, ok)
}

func TestReleaseClientDropsOwnedBuffers(t *testing.T) {
	b := NewBroker(time.Minute)
	owned, err := b.Create(1, 64)
	require.NoError(t, err)
	retained, err := b.Create(1, 64)
	require.NoError(t, err)
	require.True(t, b.Retain(retained.ID()))

	b.ReleaseClient(1)

	_, ok := b.Resolve(owned.ID())
	assert.False(t, ok)
	_, ok = b.Resolve(retained.ID())
	assert.True(t, ok, "outside references survive the owner")
}

func TestShareWith(t *testing.T) {
	b := NewBroker(time.Minute)
	buf, err := b.Create(7, 64)
	require.NoError(t, err)

	assert.True(t, buf.SharedWith(7), "owner always has access")
	assert.False(t, buf.SharedWith(8))

	require.True(t, b.ShareWith(buf.ID(), 8))
	assert.True(t, buf.SharedWith(8))
}

func TestStats(t *testing.T) {
	b := NewBroker(time.Minute)
	buf, err := b.Create(1, 64)
	require.NoError(t, err)
	require.True(t, b.Lease(buf.ID(), 2))

	stats := b.Stats()
	assert.Equal(t, 1, stats.Buffers)
	assert.Equal(t, 1, stats.Leases)
}
