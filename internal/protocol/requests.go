package protocol

import (
	"github.com/lumen-os/lumen/server/internal/gfx"
	"github.com/lumen-os/lumen/server/internal/shm"
)

// Kind tags a request, response, or notification on the wire.
type Kind string

// Request kinds. WM_-prefixed kinds are window-manager-class: they name
// another session's resource by client id.
const (
	KindGreet                    Kind = "greet"
	KindCreateMenubar            Kind = "create_menubar"
	KindDestroyMenubar           Kind = "destroy_menubar"
	KindCreateMenu               Kind = "create_menu"
	KindDestroyMenu              Kind = "destroy_menu"
	KindSetApplicationMenubar    Kind = "set_application_menubar"
	KindAddMenuToMenubar         Kind = "add_menu_to_menubar"
	KindAddMenuItem              Kind = "add_menu_item"
	KindAddMenuSeparator         Kind = "add_menu_separator"
	KindUpdateMenuItem           Kind = "update_menu_item"
	KindPopupMenu                Kind = "popup_menu"
	KindDismissMenu              Kind = "dismiss_menu"
	KindCreateWindow             Kind = "create_window"
	KindDestroyWindow            Kind = "destroy_window"
	KindSetWindowTitle           Kind = "set_window_title"
	KindGetWindowTitle           Kind = "get_window_title"
	KindSetWindowRect            Kind = "set_window_rect"
	KindGetWindowRect            Kind = "get_window_rect"
	KindSetWindowIconBitmap      Kind = "set_window_icon_bitmap"
	KindSetFullscreen            Kind = "set_fullscreen"
	KindSetWindowOpacity         Kind = "set_window_opacity"
	KindSetWindowHasAlphaChannel Kind = "set_window_has_alpha_channel"
	KindSetWindowBackingStore    Kind = "set_window_backing_store"
	KindSetGlobalCursorTracking  Kind = "set_global_cursor_tracking"
	KindSetWindowOverrideCursor  Kind = "set_window_override_cursor"
	KindMoveWindowToFront        Kind = "move_window_to_front"
	KindInvalidateRect           Kind = "invalidate_rect"
	KindDidFinishPainting        Kind = "did_finish_painting"
	KindSetClipboardContents     Kind = "set_clipboard_contents"
	KindGetClipboardContents     Kind = "get_clipboard_contents"
	KindAcknowledgeBuffer        Kind = "acknowledge_buffer"
	KindStartDrag                Kind = "start_drag"
	KindSetResolution            Kind = "set_resolution"
	KindGetWallpaper             Kind = "get_wallpaper"
	KindAsyncSetWallpaper        Kind = "async_set_wallpaper"
	KindWMSetActiveWindow        Kind = "WM_set_active_window"
	KindWMPopupWindowMenu        Kind = "WM_popup_window_menu"
	KindWMStartWindowResize      Kind = "WM_start_window_resize"
	KindWMSetWindowMinimized     Kind = "WM_set_window_minimized"
	KindWMSetWindowTaskbarRect   Kind = "WM_set_window_taskbar_rect"
)

// Request is one decoded client message.
type Request interface {
	RequestKind() Kind
}

// OneWay reports whether a request kind produces no response.
func OneWay(k Kind) bool {
	switch k {
	case KindInvalidateRect, KindDidFinishPainting, KindAcknowledgeBuffer,
		KindAsyncSetWallpaper,
		KindWMSetActiveWindow, KindWMPopupWindowMenu, KindWMStartWindowResize,
		KindWMSetWindowMinimized, KindWMSetWindowTaskbarRect:
		return true
	}
	return false
}

// IsWindowManagerClass reports whether a request kind targets another
// session's resources by client id.
func IsWindowManagerClass(k Kind) bool {
	switch k {
	case KindWMSetActiveWindow, KindWMPopupWindowMenu, KindWMStartWindowResize,
		KindWMSetWindowMinimized, KindWMSetWindowTaskbarRect:
		return true
	}
	return false
}

// Greet is the initial handshake.
type Greet struct{}

// CreateMenubar allocates a menu bar id.
type CreateMenubar struct{}

// DestroyMenubar releases a menu bar.
type DestroyMenubar struct {
	MenubarID int `json:"menubar_id"`
}

// CreateMenu allocates a menu id.
type CreateMenu struct {
	Title string `json:"title"`
}

// DestroyMenu closes and releases a menu.
type DestroyMenu struct {
	MenuID int `json:"menu_id"`
}

// SetApplicationMenubar designates the session's menubar shown in the
// global shell.
type SetApplicationMenubar struct {
	MenubarID int `json:"menubar_id"`
}

// AddMenuToMenubar appends a menu to a menubar slot.
type AddMenuToMenubar struct {
	MenubarID int `json:"menubar_id"`
	MenuID    int `json:"menu_id"`
}

// AddMenuItem appends an item to a menu.
type AddMenuItem struct {
	MenuID       int          `json:"menu_id"`
	Identifier   uint         `json:"identifier"`
	Text         string       `json:"text"`
	Shortcut     string       `json:"shortcut"`
	Enabled      bool         `json:"enabled"`
	Checkable    bool         `json:"checkable"`
	Checked      bool         `json:"checked"`
	IconBufferID shm.BufferID `json:"icon_buffer_id"`
	SubmenuID    int          `json:"submenu_id"`
	Exclusive    bool         `json:"exclusive"`
}

// AddMenuSeparator appends a separator item.
type AddMenuSeparator struct {
	MenuID int `json:"menu_id"`
}

// UpdateMenuItem mutates an existing item by identifier.
type UpdateMenuItem struct {
	MenuID     int    `json:"menu_id"`
	Identifier uint   `json:"identifier"`
	Text       string `json:"text"`
	Shortcut   string `json:"shortcut"`
	Enabled    bool   `json:"enabled"`
	Checkable  bool   `json:"checkable"`
	Checked    bool   `json:"checked"`
}

// PopupMenu shows a standalone menu at a screen position.
type PopupMenu struct {
	MenuID         int       `json:"menu_id"`
	ScreenPosition gfx.Point `json:"screen_position"`
}

// DismissMenu closes an open menu.
type DismissMenu struct {
	MenuID int `json:"menu_id"`
}

// CreateWindow allocates a window id and installs the window.
type CreateWindow struct {
	Rect            gfx.Rect `json:"rect"`
	Type            string   `json:"type"`
	Title           string   `json:"title"`
	Modal           bool     `json:"modal"`
	Minimizable     bool     `json:"minimizable"`
	Resizable       bool     `json:"resizable"`
	Fullscreen      bool     `json:"fullscreen"`
	ShowTitlebar    bool     `json:"show_titlebar"`
	HasAlphaChannel bool     `json:"has_alpha_channel"`
	Opacity         float64  `json:"opacity"`
	SizeIncrement   gfx.Size `json:"size_increment"`
	BaseSize        gfx.Size `json:"base_size"`
}

// DestroyWindow releases a window.
type DestroyWindow struct {
	WindowID int `json:"window_id"`
}

// SetWindowTitle sets the window title.
type SetWindowTitle struct {
	WindowID int    `json:"window_id"`
	Title    string `json:"title"`
}

// GetWindowTitle queries the window title.
type GetWindowTitle struct {
	WindowID int `json:"window_id"`
}

// SetWindowRect moves/resizes a window. Rejected while fullscreen.
type SetWindowRect struct {
	WindowID int      `json:"window_id"`
	Rect     gfx.Rect `json:"rect"`
}

// GetWindowRect queries the window geometry.
type GetWindowRect struct {
	WindowID int `json:"window_id"`
}

// SetWindowIconBitmap installs a window icon from a shared buffer. An
// unresolvable buffer id restores the default icon.
type SetWindowIconBitmap struct {
	WindowID     int          `json:"window_id"`
	IconBufferID shm.BufferID `json:"icon_buffer_id"`
	IconSize     gfx.Size     `json:"icon_size"`
}

// SetFullscreen toggles fullscreen.
type SetFullscreen struct {
	WindowID   int  `json:"window_id"`
	Fullscreen bool `json:"fullscreen"`
}

// SetWindowOpacity sets the window opacity in [0,1].
type SetWindowOpacity struct {
	WindowID int     `json:"window_id"`
	Opacity  float64 `json:"opacity"`
}

// SetWindowHasAlphaChannel toggles per-pixel alpha.
type SetWindowHasAlphaChannel struct {
	WindowID        int  `json:"window_id"`
	HasAlphaChannel bool `json:"has_alpha_channel"`
}

// SetWindowBackingStore installs the window's pixel buffer. When the
// buffer id matches the window's previous backing store the server
// swaps buffers instead of resolving the handle again.
type SetWindowBackingStore struct {
	WindowID         int          `json:"window_id"`
	BufferID         shm.BufferID `json:"buffer_id"`
	Size             gfx.Size     `json:"size"`
	HasAlphaChannel  bool         `json:"has_alpha_channel"`
	FlushImmediately bool         `json:"flush_immediately"`
}

// SetGlobalCursorTracking opts a window into global cursor events.
type SetGlobalCursorTracking struct {
	WindowID int  `json:"window_id"`
	Enabled  bool `json:"enabled"`
}

// SetWindowOverrideCursor sets the cursor shown over the window.
type SetWindowOverrideCursor struct {
	WindowID   int    `json:"window_id"`
	CursorType string `json:"cursor_type"`
}

// MoveWindowToFront raises the window and makes it active.
type MoveWindowToFront struct {
	WindowID int `json:"window_id"`
}

// InvalidateRect requests repaint of window-local rectangles. One-way.
type InvalidateRect struct {
	WindowID int        `json:"window_id"`
	Rects    []gfx.Rect `json:"rects"`
}

// DidFinishPainting reports completion of a paint. One-way.
type DidFinishPainting struct {
	WindowID int        `json:"window_id"`
	Rects    []gfx.Rect `json:"rects"`
}

// SetClipboardContents replaces the global clipboard payload.
type SetClipboardContents struct {
	BufferID    shm.BufferID `json:"buffer_id"`
	ContentSize int          `json:"content_size"`
	ContentType string       `json:"content_type"`
}

// GetClipboardContents reads the global clipboard. The response buffer
// is freshly sealed and leased to the requesting client.
type GetClipboardContents struct{}

// AcknowledgeBuffer confirms the client has taken its own reference to
// a buffer the server leased to it. One-way.
type AcknowledgeBuffer struct {
	BufferID shm.BufferID `json:"buffer_id"`
}

// StartDrag begins a drag-and-drop session. At most one drag may be in
// progress system-wide; the response reports acceptance.
type StartDrag struct {
	Text       string       `json:"text"`
	DataType   string       `json:"data_type"`
	Data       []byte       `json:"data"`
	BitmapID   shm.BufferID `json:"bitmap_id"`
	BitmapSize gfx.Size     `json:"bitmap_size"`
}

// SetResolution changes the screen geometry.
type SetResolution struct {
	Size gfx.Size `json:"size"`
}

// GetWallpaper queries the current wallpaper path.
type GetWallpaper struct{}

// AsyncSetWallpaper loads a wallpaper off the control loop and later
// delivers AsyncSetWallpaperFinished. One-way.
type AsyncSetWallpaper struct {
	Path string `json:"path"`
}

// WMSetActiveWindow unminimizes and activates a target window.
type WMSetActiveWindow struct {
	ClientID int `json:"client_id"`
	WindowID int `json:"window_id"`
}

// WMPopupWindowMenu opens the target window's window menu.
type WMPopupWindowMenu struct {
	ClientID       int       `json:"client_id"`
	WindowID       int       `json:"window_id"`
	ScreenPosition gfx.Point `json:"screen_position"`
}

// WMStartWindowResize begins an interactive resize of a target window.
type WMStartWindowResize struct {
	ClientID int `json:"client_id"`
	WindowID int `json:"window_id"`
}

// WMSetWindowMinimized minimizes or restores a target window.
type WMSetWindowMinimized struct {
	ClientID  int  `json:"client_id"`
	WindowID  int  `json:"window_id"`
	Minimized bool `json:"minimized"`
}

// WMSetWindowTaskbarRect records where the taskbar shows a target
// window, for minimize animations.
type WMSetWindowTaskbarRect struct {
	ClientID int      `json:"client_id"`
	WindowID int      `json:"window_id"`
	Rect     gfx.Rect `json:"rect"`
}

func (Greet) RequestKind() Kind                    { return KindGreet }
func (CreateMenubar) RequestKind() Kind            { return KindCreateMenubar }
func (DestroyMenubar) RequestKind() Kind           { return KindDestroyMenubar }
func (CreateMenu) RequestKind() Kind               { return KindCreateMenu }
func (DestroyMenu) RequestKind() Kind              { return KindDestroyMenu }
func (SetApplicationMenubar) RequestKind() Kind    { return KindSetApplicationMenubar }
func (AddMenuToMenubar) RequestKind() Kind         { return KindAddMenuToMenubar }
func (AddMenuItem) RequestKind() Kind              { return KindAddMenuItem }
func (AddMenuSeparator) RequestKind() Kind         { return KindAddMenuSeparator }
func (UpdateMenuItem) RequestKind() Kind           { return KindUpdateMenuItem }
func (PopupMenu) RequestKind() Kind                { return KindPopupMenu }
func (DismissMenu) RequestKind() Kind              { return KindDismissMenu }
func (CreateWindow) RequestKind() Kind             { return KindCreateWindow }
func (DestroyWindow) RequestKind() Kind            { return KindDestroyWindow }
func (SetWindowTitle) RequestKind() Kind           { return KindSetWindowTitle }
func (GetWindowTitle) RequestKind() Kind           { return KindGetWindowTitle }
func (SetWindowRect) RequestKind() Kind            { return KindSetWindowRect }
func (GetWindowRect) RequestKind() Kind            { return KindGetWindowRect }
func (SetWindowIconBitmap) RequestKind() Kind      { return KindSetWindowIconBitmap }
func (SetFullscreen) RequestKind() Kind            { return KindSetFullscreen }
func (SetWindowOpacity) RequestKind() Kind         { return KindSetWindowOpacity }
func (SetWindowHasAlphaChannel) RequestKind() Kind { return KindSetWindowHasAlphaChannel }
func (SetWindowBackingStore) RequestKind() Kind    { return KindSetWindowBackingStore }
func (SetGlobalCursorTracking) RequestKind() Kind  { return KindSetGlobalCursorTracking }
func (SetWindowOverrideCursor) RequestKind() Kind  { return KindSetWindowOverrideCursor }
func (MoveWindowToFront) RequestKind() Kind        { return KindMoveWindowToFront }
func (InvalidateRect) RequestKind() Kind           { return KindInvalidateRect }
func (DidFinishPainting) RequestKind() Kind        { return KindDidFinishPainting }
func (SetClipboardContents) RequestKind() Kind     { return KindSetClipboardContents }
func (GetClipboardContents) RequestKind() Kind     { return KindGetClipboardContents }
func (AcknowledgeBuffer) RequestKind() Kind        { return KindAcknowledgeBuffer }
func (StartDrag) RequestKind() Kind                { return KindStartDrag }
func (SetResolution) RequestKind() Kind            { return KindSetResolution }
func (GetWallpaper) RequestKind() Kind             { return KindGetWallpaper }
func (AsyncSetWallpaper) RequestKind() Kind        { return KindAsyncSetWallpaper }
func (WMSetActiveWindow) RequestKind() Kind        { return KindWMSetActiveWindow }
func (WMPopupWindowMenu) RequestKind() Kind        { return KindWMPopupWindowMenu }
func (WMStartWindowResize) RequestKind() Kind      { return KindWMStartWindowResize }
func (WMSetWindowMinimized) RequestKind() Kind     { return KindWMSetWindowMinimized }
func (WMSetWindowTaskbarRect) RequestKind() Kind   { return KindWMSetWindowTaskbarRect }
