// Package desktop holds the global, single-writer desktop state shared
// by every session: stacking order, active window, clipboard, the
// in-progress drag session, screen geometry, and the menu applet area.
//
// All mutation happens on the server's control loop; the package has no
// internal locking by design.
package desktop

import (
	"go.uber.org/zap"

	"github.com/lumen-os/lumen/server/internal/domain/window"
	"github.com/lumen-os/lumen/server/internal/gfx"
	"github.com/lumen-os/lumen/server/internal/shm"
)

// Compositor is the external rasterizer the core schedules repaints
// through. The core never draws; it only says what became dirty.
type Compositor interface {
	Invalidate(rect gfx.Rect)
}

// NopCompositor discards invalidations. Used in tests and headless runs.
type NopCompositor struct{}

// Invalidate implements Compositor.
func (NopCompositor) Invalidate(gfx.Rect) {}

// Clipboard is the global clipboard payload.
type Clipboard struct {
	Buffer      *shm.Buffer
	Size        int
	ContentType string
}

// DragSession is the single system-wide drag-and-drop negotiation.
type DragSession struct {
	Token      string
	ClientID   int
	Text       string
	DataType   string
	Data       []byte
	Bitmap     *shm.Buffer
	BitmapSize gfx.Size
}

// Switcher is the window-switcher overlay's visibility state.
type Switcher struct {
	Visible bool
	Rect    gfx.Rect
}

// Desktop is the global desktop state. Single-owner: only the control
// loop mutates it, and reads happen within the same turn.
type Desktop struct {
	screen     gfx.Rect
	stacking   []*window.Window // back to front
	active     *window.Window
	applets    []*window.Window
	resizing   *window.Window
	clipboard  Clipboard
	drag       *DragSession
	wallpaper  string
	switcher   Switcher
	broker     *shm.Broker
	compositor Compositor
	logger     *zap.Logger
}

// New constructs the desktop with the given screen geometry.
func New(screen gfx.Rect, broker *shm.Broker, compositor Compositor, logger *zap.Logger) *Desktop {
	if compositor == nil {
		compositor = NopCompositor{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Desktop{
		screen:     screen,
		broker:     broker,
		compositor: compositor,
		logger:     logger,
	}
}

// ScreenRect returns the current screen geometry.
func (d *Desktop) ScreenRect() gfx.Rect { return d.screen }

// SetResolution changes the screen geometry and repaints everything.
// The caller pairs this with a screen-rect-changed broadcast.
func (d *Desktop) SetResolution(size gfx.Size) gfx.Rect {
	d.screen = gfx.Rect{Width: size.Width, Height: size.Height}
	d.compositor.Invalidate(d.screen)
	d.logger.Info("screen resolution changed",
		zap.Int("width", size.Width),
		zap.Int("height", size.Height),
	)
	return d.screen
}

// AddWindow attaches a window to the top of the stacking order.
func (d *Desktop) AddWindow(w *window.Window) {
	d.stacking = append(d.stacking, w)
	d.recomputeOcclusions()
}

// RemoveWindow detaches a window from every global structure: stacking
// order, applet area, active reference. Its screen area is invalidated.
// Idempotent.
func (d *Desktop) RemoveWindow(w *window.Window) {
	for i, stacked := range d.stacking {
		if stacked == w {
			d.stacking = append(d.stacking[:i], d.stacking[i+1:]...)
			break
		}
	}
	d.RemoveApplet(w)
	if d.active == w {
		d.active = nil
	}
	if d.resizing == w {
		d.resizing = nil
	}
	d.compositor.Invalidate(w.Rect())
	d.recomputeOcclusions()
}

// StackingOrder returns the windows back to front.
func (d *Desktop) StackingOrder() []*window.Window { return d.stacking }

// ActiveWindow returns the focused window, or nil.
func (d *Desktop) ActiveWindow() *window.Window { return d.active }

// MoveToFrontAndMakeActive raises a window to the top of the stacking
// order and focuses it.
func (d *Desktop) MoveToFrontAndMakeActive(w *window.Window) {
	for i, stacked := range d.stacking {
		if stacked == w {
			d.stacking = append(d.stacking[:i], d.stacking[i+1:]...)
			d.stacking = append(d.stacking, w)
			break
		}
	}
	d.active = w
	d.compositor.Invalidate(w.Rect())
	d.recomputeOcclusions()
}

// recomputeOcclusions marks windows fully covered by one opaque visible
// window above them. Suppressing paints to occluded windows is an
// explicit performance invariant of the paint protocol.
func (d *Desktop) recomputeOcclusions() {
	for i, w := range d.stacking {
		occluded := false
		if w.IsVisible() {
			for _, above := range d.stacking[i+1:] {
				if above.IsVisible() && above.IsOpaque() && above.Rect().ContainsRect(w.Rect()) {
					occluded = true
					break
				}
			}
		}
		w.SetOccluded(occluded)
	}
}

// RecomputeOcclusions re-derives occlusion from the stacking order.
// Callers invoke it after geometry or visibility mutations.
func (d *Desktop) RecomputeOcclusions() { d.recomputeOcclusions() }

// Invalidate forwards a dirty screen rect to the compositor.
func (d *Desktop) Invalidate(rect gfx.Rect) {
	d.compositor.Invalidate(rect.Intersected(d.screen))
}

// InvalidateWindow forwards a window-local dirty rect to the
// compositor in screen coordinates.
func (d *Desktop) InvalidateWindow(w *window.Window, rect gfx.Rect) {
	screenRect := rect.Translated(w.Rect().X, w.Rect().Y).Intersected(w.Rect())
	d.compositor.Invalidate(screenRect)
}

// AddApplet registers a menu applet window with the global applet area.
func (d *Desktop) AddApplet(w *window.Window) {
	d.applets = append(d.applets, w)
}

// RemoveApplet unregisters a menu applet window. Idempotent.
func (d *Desktop) RemoveApplet(w *window.Window) {
	for i, applet := range d.applets {
		if applet == w {
			d.applets = append(d.applets[:i], d.applets[i+1:]...)
			return
		}
	}
}

// Applets returns the applet area's windows in registration order.
func (d *Desktop) Applets() []*window.Window { return d.applets }

// StartWindowResize records the window under interactive resize.
func (d *Desktop) StartWindowResize(w *window.Window) { d.resizing = w }

// ResizingWindow returns the window under interactive resize, or nil.
func (d *Desktop) ResizingWindow() *window.Window { return d.resizing }

// Clipboard returns the current clipboard payload.
func (d *Desktop) Clipboard() Clipboard { return d.clipboard }

// SetClipboard replaces the clipboard payload. The desktop retains the
// new buffer and releases the old one; the caller pairs this with a
// clipboard-contents-changed broadcast.
func (d *Desktop) SetClipboard(buf *shm.Buffer, size int, contentType string) {
	if prev := d.clipboard.Buffer; prev != nil {
		d.broker.Release(prev.ID())
	}
	d.broker.Retain(buf.ID())
	d.clipboard = Clipboard{Buffer: buf, Size: size, ContentType: contentType}
}

// DragInProgress reports whether a drag session is active anywhere in
// the desktop.
func (d *Desktop) DragInProgress() bool { return d.drag != nil }

// Drag returns the active drag session, or nil.
func (d *Desktop) Drag() *DragSession { return d.drag }

// StartDrag begins a drag session. Fails, leaving any existing session
// untouched, when a drag is already in progress; at most one drag may
// exist system-wide.
func (d *Desktop) StartDrag(session DragSession) bool {
	if d.drag != nil {
		return false
	}
	copied := session
	d.drag = &copied
	if copied.Bitmap != nil {
		d.broker.Retain(copied.Bitmap.ID())
	}
	d.logger.Debug("drag started", zap.Int("client_id", copied.ClientID))
	return true
}

// EndDrag finishes the active drag session if owned by clientID.
func (d *Desktop) EndDrag(clientID int) {
	if d.drag == nil || d.drag.ClientID != clientID {
		return
	}
	if d.drag.Bitmap != nil {
		d.broker.Release(d.drag.Bitmap.ID())
	}
	d.drag = nil
}

// WallpaperPath returns the current wallpaper path.
func (d *Desktop) WallpaperPath() string { return d.wallpaper }

// SetWallpaperPath records a successfully loaded wallpaper and
// repaints the screen.
func (d *Desktop) SetWallpaperPath(path string) {
	d.wallpaper = path
	d.compositor.Invalidate(d.screen)
}

// SwitcherShown positions and shows the window-switcher overlay.
func (d *Desktop) SwitcherShown(rect gfx.Rect) {
	d.switcher = Switcher{Visible: true, Rect: rect}
}

// SwitcherHidden hides the window-switcher overlay.
func (d *Desktop) SwitcherHidden() {
	d.switcher = Switcher{}
}

// RefreshSwitcherIfNeeded invalidates the switcher overlay only while
// it is visible; a hidden switcher costs nothing.
func (d *Desktop) RefreshSwitcherIfNeeded() bool {
	if !d.switcher.Visible {
		return false
	}
	d.compositor.Invalidate(d.switcher.Rect)
	return true
}

// Stats summarizes the desktop for the observability surface.
type Stats struct {
	Windows        int    `json:"windows"`
	Applets        int    `json:"applets"`
	ActiveWindowID *int   `json:"active_window_id,omitempty"`
	DragInProgress bool   `json:"drag_in_progress"`
	ClipboardType  string `json:"clipboard_type,omitempty"`
	Wallpaper      string `json:"wallpaper,omitempty"`
}

// Stats returns a snapshot for the HTTP surface.
func (d *Desktop) Stats() Stats {
	s := Stats{
		Windows:        len(d.stacking),
		Applets:        len(d.applets),
		DragInProgress: d.drag != nil,
		ClipboardType:  d.clipboard.ContentType,
		Wallpaper:      d.wallpaper,
	}
	if d.active != nil {
		id := d.active.ID()
		s.ActiveWindowID = &id
	}
	return s
}
