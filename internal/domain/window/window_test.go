package window

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumen-os/lumen/server/internal/gfx"
	"github.com/lumen-os/lumen/server/internal/shm"
)

func TestParseType(t *testing.T) {
	typ, ok := ParseType("menu_applet")
	require.True(t, ok)
	assert.Equal(t, TypeMenuApplet, typ)

	_, ok = ParseType("popover")
	assert.False(t, ok)

	assert.Equal(t, "menu_applet", TypeMenuApplet.String())
}

func TestRequestUpdateClampsToBounds(t *testing.T) {
	w := New(1, 1, Options{Rect: gfx.MakeRect(10, 10, 100, 100)})

	w.RequestUpdate(gfx.MakeRect(50, 50, 500, 500))
	rects := w.TakePendingPaintRects()
	require.Len(t, rects, 1)
	assert.Equal(t, gfx.MakeRect(50, 50, 50, 50), rects[0])

	// Fully out-of-bounds rects are dropped
	w.RequestUpdate(gfx.MakeRect(200, 200, 10, 10))
	assert.False(t, w.HasPendingPaint())
}

func TestInvalidateMarksWholeSurface(t *testing.T) {
	w := New(1, 1, Options{Rect: gfx.MakeRect(10, 10, 100, 80)})
	w.Invalidate()

	rects := w.TakePendingPaintRects()
	require.Len(t, rects, 1)
	assert.Equal(t, gfx.MakeRect(0, 0, 100, 80), rects[0])
	assert.False(t, w.HasPendingPaint())
}

func TestSetFullscreenSavesAndRestoresRect(t *testing.T) {
	screen := gfx.MakeRect(0, 0, 1024, 768)
	windowed := gfx.MakeRect(100, 100, 400, 300)
	w := New(1, 1, Options{Rect: windowed})

	w.SetFullscreen(true, screen)
	assert.Equal(t, screen, w.Rect())

	// Toggling to the same state is a no-op
	w.SetFullscreen(true, screen)
	assert.Equal(t, screen, w.Rect())

	w.SetFullscreen(false, screen)
	assert.Equal(t, windowed, w.Rect())
}

func TestBackingStoreSwap(t *testing.T) {
	broker := shm.NewBroker(time.Minute)
	bufA, err := broker.Create(1, 64*64*shm.BytesPerPixel)
	require.NoError(t, err)
	bufB, err := broker.Create(1, 64*64*shm.BytesPerPixel)
	require.NoError(t, err)

	w := New(1, 1, Options{Rect: gfx.MakeRect(0, 0, 64, 64)})
	size := gfx.Size{Width: 64, Height: 64}

	w.SetBackingStore(&BackingStore{Buffer: bufA, Size: size})
	w.SetBackingStore(&BackingStore{Buffer: bufB, Size: size})
	assert.Equal(t, bufB.ID(), w.BackingStore().Buffer.ID())
	assert.Equal(t, bufA.ID(), w.LastBackingStore().Buffer.ID())

	w.SwapBackingStores()
	assert.Equal(t, bufA.ID(), w.BackingStore().Buffer.ID())
	assert.Equal(t, bufB.ID(), w.LastBackingStore().Buffer.ID())
}

func TestOpacityDefaultsToOne(t *testing.T) {
	w := New(1, 1, Options{})
	assert.Equal(t, 1.0, w.Opacity())
	assert.True(t, w.IsOpaque())

	w.SetOpacity(0.5)
	assert.False(t, w.IsOpaque())

	w.SetOpacity(1)
	w.SetHasAlphaChannel(true)
	assert.False(t, w.IsOpaque())
}

func TestVisibility(t *testing.T) {
	w := New(1, 1, Options{})
	assert.True(t, w.IsVisible())

	w.SetMinimized(true)
	assert.False(t, w.IsVisible())
}

func TestIcon(t *testing.T) {
	broker := shm.NewBroker(time.Minute)
	buf, err := broker.Create(1, 16*16*shm.BytesPerPixel)
	require.NoError(t, err)

	w := New(1, 1, Options{})
	w.SetIcon(buf, gfx.Size{Width: 16, Height: 16})
	icon, size := w.Icon()
	assert.Same(t, buf, icon)
	assert.Equal(t, gfx.Size{Width: 16, Height: 16}, size)

	w.SetDefaultIcon()
	icon, _ = w.Icon()
	assert.Nil(t, icon)
}
