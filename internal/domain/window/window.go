// Package window implements the addressable surface a client draws
// into: geometry, visibility flags, backing stores, and the pending
// invalidation set the paint protocol coalesces into.
package window

import (
	"github.com/lumen-os/lumen/server/internal/domain/menu"
	"github.com/lumen-os/lumen/server/internal/gfx"
	"github.com/lumen-os/lumen/server/internal/shm"
)

// Type classifies a window for stacking and shell integration.
type Type int

const (
	TypeNormal Type = iota
	TypeModal
	TypeMenu
	TypeMenubar
	TypeMenuApplet
	TypeTaskbar
	TypeTooltip
	TypeWindowSwitcher
)

var typeNames = map[string]Type{
	"normal":          TypeNormal,
	"modal":           TypeModal,
	"menu":            TypeMenu,
	"menubar":         TypeMenubar,
	"menu_applet":     TypeMenuApplet,
	"taskbar":         TypeTaskbar,
	"tooltip":         TypeTooltip,
	"window_switcher": TypeWindowSwitcher,
}

// ParseType maps a wire type name to its Type.
func ParseType(name string) (Type, bool) {
	t, ok := typeNames[name]
	return t, ok
}

// String returns the wire name of the type.
func (t Type) String() string {
	for name, typ := range typeNames {
		if typ == t {
			return name
		}
	}
	return "normal"
}

// BackingStore is a client-supplied shared pixel buffer holding the
// current contents of the window's surface.
type BackingStore struct {
	Buffer   *shm.Buffer
	Size     gfx.Size
	HasAlpha bool
}

// Options configures a new window.
type Options struct {
	Type          Type
	Title         string
	Rect          gfx.Rect
	Modal         bool
	Minimizable   bool
	Resizable     bool
	Fullscreen    bool
	ShowTitlebar  bool
	HasAlpha      bool
	Opacity       float64
	SizeIncrement gfx.Size
	BaseSize      gfx.Size
}

// Window is one client surface. Identity is (client id, window id);
// both are immutable for the window's lifetime.
type Window struct {
	clientID int
	id       int

	typ          Type
	title        string
	rect         gfx.Rect
	modal        bool
	minimizable  bool
	resizable    bool
	fullscreen   bool
	minimized    bool
	occluded     bool
	showTitlebar bool
	hasAlpha     bool
	opacity      float64

	savedRect gfx.Rect // pre-fullscreen geometry

	icon     *shm.Buffer
	iconSize gfx.Size

	pending gfx.RectSet

	backing     *BackingStore
	lastBacking *BackingStore

	sizeIncrement gfx.Size
	baseSize      gfx.Size
	taskbarRect   gfx.Rect

	overrideCursor       string
	globalCursorTracking bool

	windowMenu *menu.Menu
}

// New constructs a window owned by clientID with the given local id.
func New(clientID, id int, opts Options) *Window {
	w := &Window{
		clientID:      clientID,
		id:            id,
		typ:           opts.Type,
		title:         opts.Title,
		rect:          opts.Rect,
		modal:         opts.Modal,
		minimizable:   opts.Minimizable,
		resizable:     opts.Resizable,
		fullscreen:    opts.Fullscreen,
		showTitlebar:  opts.ShowTitlebar,
		hasAlpha:      opts.HasAlpha,
		opacity:       opts.Opacity,
		sizeIncrement: opts.SizeIncrement,
		baseSize:      opts.BaseSize,
	}
	if w.opacity <= 0 {
		w.opacity = 1
	}
	return w
}

// ClientID returns the owning session's client id.
func (w *Window) ClientID() int { return w.clientID }

// ID returns the locally-scoped window id.
func (w *Window) ID() int { return w.id }

// Type returns the window's kind.
func (w *Window) Type() Type { return w.typ }

// Title returns the window title.
func (w *Window) Title() string { return w.title }

// SetTitle sets the window title.
func (w *Window) SetTitle(title string) { w.title = title }

// Rect returns the window geometry.
func (w *Window) Rect() gfx.Rect { return w.rect }

// Size returns the window dimensions.
func (w *Window) Size() gfx.Size { return w.rect.Size() }

// SetRect moves/resizes the window.
func (w *Window) SetRect(rect gfx.Rect) { w.rect = rect }

// IsModal reports whether the window is modal.
func (w *Window) IsModal() bool { return w.modal }

// IsResizable reports whether interactive resizing is allowed.
func (w *Window) IsResizable() bool { return w.resizable }

// IsFullscreen reports whether the window is fullscreen.
func (w *Window) IsFullscreen() bool { return w.fullscreen }

// SetFullscreen toggles fullscreen, saving and restoring the windowed
// geometry around the transition. screen is the current screen rect.
func (w *Window) SetFullscreen(fullscreen bool, screen gfx.Rect) {
	if w.fullscreen == fullscreen {
		return
	}
	w.fullscreen = fullscreen
	if fullscreen {
		w.savedRect = w.rect
		w.rect = screen
	} else if !w.savedRect.IsEmpty() {
		w.rect = w.savedRect
	}
}

// IsMinimized reports whether the window is minimized.
func (w *Window) IsMinimized() bool { return w.minimized }

// SetMinimized minimizes or restores the window.
func (w *Window) SetMinimized(minimized bool) { w.minimized = minimized }

// IsOccluded reports whether the window is fully covered on screen.
func (w *Window) IsOccluded() bool { return w.occluded }

// SetOccluded records the occlusion state computed from the stacking
// order.
func (w *Window) SetOccluded(occluded bool) { w.occluded = occluded }

// IsVisible reports whether the window participates in compositing.
func (w *Window) IsVisible() bool { return !w.minimized }

// IsOpaque reports whether the window covers everything beneath it.
func (w *Window) IsOpaque() bool {
	return !w.hasAlpha && w.opacity >= 1
}

// Opacity returns the window opacity in [0,1].
func (w *Window) Opacity() float64 { return w.opacity }

// SetOpacity sets the window opacity.
func (w *Window) SetOpacity(opacity float64) { w.opacity = opacity }

// HasAlphaChannel reports whether the surface carries per-pixel alpha.
func (w *Window) HasAlphaChannel() bool { return w.hasAlpha }

// SetHasAlphaChannel toggles per-pixel alpha.
func (w *Window) SetHasAlphaChannel(hasAlpha bool) { w.hasAlpha = hasAlpha }

// Icon returns the icon buffer, or nil for the default icon.
func (w *Window) Icon() (*shm.Buffer, gfx.Size) { return w.icon, w.iconSize }

// SetIcon installs an icon bitmap.
func (w *Window) SetIcon(buf *shm.Buffer, size gfx.Size) {
	w.icon = buf
	w.iconSize = size
}

// SetDefaultIcon clears any client-supplied icon.
func (w *Window) SetDefaultIcon() {
	w.icon = nil
	w.iconSize = gfx.Size{}
}

// RequestUpdate adds a window-local rect to the pending invalidation
// set, clamped to the window bounds.
func (w *Window) RequestUpdate(rect gfx.Rect) {
	local := gfx.Rect{Width: w.rect.Width, Height: w.rect.Height}
	w.pending.Add(rect.Intersected(local))
}

// Invalidate marks the whole surface dirty.
func (w *Window) Invalidate() {
	w.RequestUpdate(gfx.Rect{Width: w.rect.Width, Height: w.rect.Height})
}

// HasPendingPaint reports whether any invalidation is pending.
func (w *Window) HasPendingPaint() bool { return !w.pending.IsEmpty() }

// TakePendingPaintRects drains the pending invalidation set.
func (w *Window) TakePendingPaintRects() []gfx.Rect {
	return w.pending.Take()
}

// BackingStore returns the current backing store, or nil.
func (w *Window) BackingStore() *BackingStore { return w.backing }

// LastBackingStore returns the previous backing store, or nil.
func (w *Window) LastBackingStore() *BackingStore { return w.lastBacking }

// SetBackingStore installs a fresh backing store, demoting the current
// one to "last" for the swap fast path.
func (w *Window) SetBackingStore(store *BackingStore) {
	w.lastBacking = w.backing
	w.backing = store
}

// SwapBackingStores exchanges current and previous backing stores.
// This is the flicker-free double-buffer path: when a client repaints
// into the buffer the server saw last time, no remap is needed.
func (w *Window) SwapBackingStores() {
	w.backing, w.lastBacking = w.lastBacking, w.backing
}

// SizeIncrement returns the resize snapping step.
func (w *Window) SizeIncrement() gfx.Size { return w.sizeIncrement }

// BaseSize returns the base size for resize snapping.
func (w *Window) BaseSize() gfx.Size { return w.baseSize }

// TaskbarRect returns where the taskbar represents this window.
func (w *Window) TaskbarRect() gfx.Rect { return w.taskbarRect }

// SetTaskbarRect records the taskbar thumbnail geometry.
func (w *Window) SetTaskbarRect(rect gfx.Rect) { w.taskbarRect = rect }

// OverrideCursor returns the cursor shown over the window, or "".
func (w *Window) OverrideCursor() string { return w.overrideCursor }

// SetOverrideCursor sets the cursor shown over the window.
func (w *Window) SetOverrideCursor(cursor string) { w.overrideCursor = cursor }

// GlobalCursorTracking reports whether the window receives all cursor
// events regardless of hit testing.
func (w *Window) GlobalCursorTracking() bool { return w.globalCursorTracking }

// SetGlobalCursorTracking toggles global cursor tracking.
func (w *Window) SetGlobalCursorTracking(enabled bool) { w.globalCursorTracking = enabled }

// WindowMenu returns the server-built window menu, or nil before the
// first popup.
func (w *Window) WindowMenu() *menu.Menu { return w.windowMenu }

// SetWindowMenu installs the server-built window menu.
func (w *Window) SetWindowMenu(m *menu.Menu) { w.windowMenu = m }
