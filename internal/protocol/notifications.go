package protocol

import (
	"github.com/lumen-os/lumen/server/internal/gfx"
)

// Notification kinds delivered server → client with no reply.
const (
	KindPaint                     Kind = "paint"
	KindScreenRectChanged         Kind = "screen_rect_changed"
	KindClipboardContentsChanged  Kind = "clipboard_contents_changed"
	KindAsyncSetWallpaperFinished Kind = "async_set_wallpaper_finished"
)

// Notification is a one-way server-to-client message.
type Notification interface {
	NotificationKind() Kind
}

// Paint tells a client to repaint the given dirty rects of a window.
type Paint struct {
	WindowID   int        `json:"window_id"`
	WindowSize gfx.Size   `json:"window_size"`
	Rects      []gfx.Rect `json:"rects"`
}

// ScreenRectChanged reports a resolution change.
type ScreenRectChanged struct {
	Rect gfx.Rect `json:"rect"`
}

// ClipboardContentsChanged reports that another session replaced the
// clipboard payload.
type ClipboardContentsChanged struct {
	ContentType string `json:"content_type"`
}

// AsyncSetWallpaperFinished completes an AsyncSetWallpaper request.
type AsyncSetWallpaperFinished struct {
	Success bool `json:"success"`
}

func (Paint) NotificationKind() Kind                     { return KindPaint }
func (ScreenRectChanged) NotificationKind() Kind         { return KindScreenRectChanged }
func (ClipboardContentsChanged) NotificationKind() Kind  { return KindClipboardContentsChanged }
func (AsyncSetWallpaperFinished) NotificationKind() Kind { return KindAsyncSetWallpaperFinished }
