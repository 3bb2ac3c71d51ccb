package protocol

import (
	"github.com/lumen-os/lumen/server/internal/gfx"
	"github.com/lumen-os/lumen/server/internal/shm"
)

// Response is the payload of a positive reply. A nil Response from
// dispatch means the server could not satisfy the call; the transport
// maps that to a client-visible error.
type Response interface {
	ResponseKind() Kind
}

// GreetResponse carries the assigned client id, the screen geometry,
// and the active system theme.
type GreetResponse struct {
	ClientID   int      `json:"client_id"`
	ScreenRect gfx.Rect `json:"screen_rect"`
	Theme      string   `json:"theme"`
}

// CreateMenubarResponse carries the new menubar id.
type CreateMenubarResponse struct {
	MenubarID int `json:"menubar_id"`
}

// CreateMenuResponse carries the new menu id.
type CreateMenuResponse struct {
	MenuID int `json:"menu_id"`
}

// CreateWindowResponse carries the new window id.
type CreateWindowResponse struct {
	WindowID int `json:"window_id"`
}

// GetWindowTitleResponse carries the window title.
type GetWindowTitleResponse struct {
	Title string `json:"title"`
}

// GetWindowRectResponse carries the window geometry.
type GetWindowRectResponse struct {
	Rect gfx.Rect `json:"rect"`
}

// GetClipboardContentsResponse carries a freshly sealed buffer leased
// to the requester. BufferID is InvalidBuffer when the clipboard is
// empty.
type GetClipboardContentsResponse struct {
	BufferID    shm.BufferID `json:"buffer_id"`
	ContentSize int          `json:"content_size"`
	ContentType string       `json:"content_type"`
}

// StartDragResponse reports whether the drag was accepted.
type StartDragResponse struct {
	Accepted bool `json:"accepted"`
}

// GetWallpaperResponse carries the current wallpaper path.
type GetWallpaperResponse struct {
	Path string `json:"path"`
}

// Ack is the positive reply for requests with no payload.
type Ack struct {
	Of Kind `json:"of"`
}

func (r GreetResponse) ResponseKind() Kind                { return KindGreet }
func (r CreateMenubarResponse) ResponseKind() Kind        { return KindCreateMenubar }
func (r CreateMenuResponse) ResponseKind() Kind           { return KindCreateMenu }
func (r CreateWindowResponse) ResponseKind() Kind         { return KindCreateWindow }
func (r GetWindowTitleResponse) ResponseKind() Kind       { return KindGetWindowTitle }
func (r GetWindowRectResponse) ResponseKind() Kind        { return KindGetWindowRect }
func (r GetClipboardContentsResponse) ResponseKind() Kind { return KindGetClipboardContents }
func (r StartDragResponse) ResponseKind() Kind            { return KindStartDrag }
func (r GetWallpaperResponse) ResponseKind() Kind         { return KindGetWallpaper }
func (r Ack) ResponseKind() Kind                          { return r.Of }
