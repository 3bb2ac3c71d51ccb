package desktop

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumen-os/lumen/server/internal/domain/window"
	"github.com/lumen-os/lumen/server/internal/gfx"
	"github.com/lumen-os/lumen/server/internal/shm"
)

type recordingCompositor struct {
	invalidated []gfx.Rect
}

func (c *recordingCompositor) Invalidate(rect gfx.Rect) {
	c.invalidated = append(c.invalidated, rect)
}

func newTestDesktop() (*Desktop, *shm.Broker, *recordingCompositor) {
	broker := shm.NewBroker(time.Minute)
	comp := &recordingCompositor{}
	d := New(gfx.MakeRect(0, 0, 1024, 768), broker, comp, nil)
	return d, broker, comp
}

func TestStackingOrder(t *testing.T) {
	d, _, _ := newTestDesktop()
	a := window.New(1, 1, window.Options{Rect: gfx.MakeRect(0, 0, 100, 100)})
	b := window.New(1, 2, window.Options{Rect: gfx.MakeRect(50, 50, 100, 100)})

	d.AddWindow(a)
	d.AddWindow(b)
	require.Len(t, d.StackingOrder(), 2)

	d.MoveToFrontAndMakeActive(a)
	order := d.StackingOrder()
	assert.Same(t, a, order[1], "raised window is frontmost")
	assert.Same(t, a, d.ActiveWindow())
}

func TestRemoveWindowDetachesEverywhere(t *testing.T) {
	d, _, comp := newTestDesktop()
	applet := window.New(1, 1, window.Options{Type: window.TypeMenuApplet, Rect: gfx.MakeRect(0, 0, 16, 16)})

	d.AddWindow(applet)
	d.AddApplet(applet)
	d.MoveToFrontAndMakeActive(applet)

	d.RemoveWindow(applet)
	assert.Empty(t, d.StackingOrder())
	assert.Empty(t, d.Applets())
	assert.Nil(t, d.ActiveWindow())
	assert.NotEmpty(t, comp.invalidated, "removed window's area repainted")

	// Idempotent
	d.RemoveWindow(applet)
	assert.Empty(t, d.StackingOrder())
}

func TestOcclusion(t *testing.T) {
	d, _, _ := newTestDesktop()
	behind := window.New(1, 1, window.Options{Rect: gfx.MakeRect(100, 100, 50, 50)})
	front := window.New(1, 2, window.Options{Rect: gfx.MakeRect(0, 0, 500, 500)})

	d.AddWindow(behind)
	d.AddWindow(front)
	assert.True(t, behind.IsOccluded())
	assert.False(t, front.IsOccluded())

	// A translucent window does not occlude
	front.SetOpacity(0.5)
	d.RecomputeOcclusions()
	assert.False(t, behind.IsOccluded())

	// A minimized window does not occlude
	front.SetOpacity(1)
	front.SetMinimized(true)
	d.RecomputeOcclusions()
	assert.False(t, behind.IsOccluded())
}

func TestClipboardRetainsBuffer(t *testing.T) {
	d, broker, _ := newTestDesktop()
	buf, err := broker.Create(1, 64)
	require.NoError(t, err)

	d.SetClipboard(buf, 5, "text/plain")
	assert.Equal(t, "text/plain", d.Clipboard().ContentType)

	// The writer dropping its reference must not reclaim the payload
	broker.Release(buf.ID())
	_, ok := broker.Resolve(buf.ID())
	assert.True(t, ok)

	// Replacing the payload releases the old buffer
	next, err := broker.Create(2, 64)
	require.NoError(t, err)
	d.SetClipboard(next, 3, "text/html")
	_, ok = broker.Resolve(buf.ID())
	assert.False(t, ok)
}

func TestSingleDragSystemWide(t *testing.T) {
	d, _, _ := newTestDesktop()

	ok := d.StartDrag(DragSession{ClientID: 1, Text: "file.txt", DataType: "text/uri-list"})
	require.True(t, ok)

	// A second drag is rejected and the original payload survives
	rejected := d.StartDrag(DragSession{ClientID: 2, Text: "other"})
	assert.False(t, rejected)
	require.NotNil(t, d.Drag())
	assert.Equal(t, "file.txt", d.Drag().Text)
	assert.Equal(t, 1, d.Drag().ClientID)

	// Only the owner may end the drag
	d.EndDrag(2)
	assert.True(t, d.DragInProgress())
	d.EndDrag(1)
	assert.False(t, d.DragInProgress())
}

func TestDragRetainsPreviewBitmap(t *testing.T) {
	d, broker, _ := newTestDesktop()
	bitmap, err := broker.Create(1, 32*32*shm.BytesPerPixel)
	require.NoError(t, err)

	require.True(t, d.StartDrag(DragSession{ClientID: 1, Bitmap: bitmap, BitmapSize: gfx.Size{Width: 32, Height: 32}}))
	broker.Release(bitmap.ID())
	_, ok := broker.Resolve(bitmap.ID())
	assert.True(t, ok, "desktop holds the preview bitmap")

	d.EndDrag(1)
	_, ok = broker.Resolve(bitmap.ID())
	assert.False(t, ok)
}

func TestSetResolutionInvalidates(t *testing.T) {
	d, _, comp := newTestDesktop()
	rect := d.SetResolution(gfx.Size{Width: 1920, Height: 1080})
	assert.Equal(t, gfx.MakeRect(0, 0, 1920, 1080), rect)
	assert.Equal(t, rect, comp.invalidated[len(comp.invalidated)-1])
}

func TestSwitcherRefreshOnlyWhenVisible(t *testing.T) {
	d, _, comp := newTestDesktop()

	assert.False(t, d.RefreshSwitcherIfNeeded())
	assert.Empty(t, comp.invalidated)

	d.SwitcherShown(gfx.MakeRect(300, 200, 400, 300))
	assert.True(t, d.RefreshSwitcherIfNeeded())
	assert.Equal(t, gfx.MakeRect(300, 200, 400, 300), comp.invalidated[len(comp.invalidated)-1])

	d.SwitcherHidden()
	assert.False(t, d.RefreshSwitcherIfNeeded())
}

func TestWallpaperLoader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wall.png")
	require.NoError(t, os.WriteFile(path, []byte("not-a-real-png"), 0o644))

	posted := make(chan func(), 1)
	loader := NewWallpaperLoader(func(task func()) { posted <- task }, nil)

	var result *bool
	loader.Load(path, func(success bool) { result = &success })
	select {
	case task := <-posted:
		task()
	case <-time.After(2 * time.Second):
		t.Fatal("loader never posted completion")
	}
	require.NotNil(t, result)
	assert.True(t, *result)

	result = nil
	loader.Load(filepath.Join(t.TempDir(), "missing.png"), func(success bool) { result = &success })
	select {
	case task := <-posted:
		task()
	case <-time.After(2 * time.Second):
		t.Fatal("loader never posted completion")
	}
	require.NotNil(t, result)
	assert.False(t, *result)
}

func TestStats(t *testing.T) {
	d, _, _ := newTestDesktop()
	w := window.New(1, 3, window.Options{Rect: gfx.MakeRect(0, 0, 10, 10)})
	d.AddWindow(w)
	d.MoveToFrontAndMakeActive(w)

	s := d.Stats()
	assert.Equal(t, 1, s.Windows)
	require.NotNil(t, s.ActiveWindowID)
	assert.Equal(t, 3, *s.ActiveWindowID)
}
