package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/lumen-os/lumen/server/internal/shm"
)

// Envelope frames every message on the wire.
type Envelope struct {
	Kind    Kind            `json:"kind"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

var decoders = map[Kind]func() Request{
	KindGreet:                    func() Request { return &Greet{} },
	KindCreateMenubar:            func() Request { return &CreateMenubar{} },
	KindDestroyMenubar:           func() Request { return &DestroyMenubar{} },
	KindCreateMenu:               func() Request { return &CreateMenu{} },
	KindDestroyMenu:              func() Request { return &DestroyMenu{} },
	KindSetApplicationMenubar:    func() Request { return &SetApplicationMenubar{} },
	KindAddMenuToMenubar:         func() Request { return &AddMenuToMenubar{} },
	KindAddMenuItem:              func() Request { return &AddMenuItem{IconBufferID: shm.InvalidBuffer} },
	KindAddMenuSeparator:         func() Request { return &AddMenuSeparator{} },
	KindUpdateMenuItem:           func() Request { return &UpdateMenuItem{} },
	KindPopupMenu:                func() Request { return &PopupMenu{} },
	KindDismissMenu:              func() Request { return &DismissMenu{} },
	KindCreateWindow:             func() Request { return &CreateWindow{} },
	KindDestroyWindow:            func() Request { return &DestroyWindow{} },
	KindSetWindowTitle:           func() Request { return &SetWindowTitle{} },
	KindGetWindowTitle:           func() Request { return &GetWindowTitle{} },
	KindSetWindowRect:            func() Request { return &SetWindowRect{} },
	KindGetWindowRect:            func() Request { return &GetWindowRect{} },
	KindSetWindowIconBitmap:      func() Request { return &SetWindowIconBitmap{IconBufferID: shm.InvalidBuffer} },
	KindSetFullscreen:            func() Request { return &SetFullscreen{} },
	KindSetWindowOpacity:         func() Request { return &SetWindowOpacity{} },
	KindSetWindowHasAlphaChannel: func() Request { return &SetWindowHasAlphaChannel{} },
	KindSetWindowBackingStore:    func() Request { return &SetWindowBackingStore{} },
	KindSetGlobalCursorTracking:  func() Request { return &SetGlobalCursorTracking{} },
	KindSetWindowOverrideCursor:  func() Request { return &SetWindowOverrideCursor{} },
	KindMoveWindowToFront:        func() Request { return &MoveWindowToFront{} },
	KindInvalidateRect:           func() Request { return &InvalidateRect{} },
	KindDidFinishPainting:        func() Request { return &DidFinishPainting{} },
	KindSetClipboardContents:     func() Request { return &SetClipboardContents{} },
	KindGetClipboardContents:     func() Request { return &GetClipboardContents{} },
	KindAcknowledgeBuffer:        func() Request { return &AcknowledgeBuffer{} },
	KindStartDrag:                func() Request { return &StartDrag{BitmapID: shm.InvalidBuffer} },
	KindSetResolution:            func() Request { return &SetResolution{} },
	KindGetWallpaper:             func() Request { return &GetWallpaper{} },
	KindAsyncSetWallpaper:        func() Request { return &AsyncSetWallpaper{} },
	KindWMSetActiveWindow:        func() Request { return &WMSetActiveWindow{} },
	KindWMPopupWindowMenu:        func() Request { return &WMPopupWindowMenu{} },
	KindWMStartWindowResize:      func() Request { return &WMStartWindowResize{} },
	KindWMSetWindowMinimized:     func() Request { return &WMSetWindowMinimized{} },
	KindWMSetWindowTaskbarRect:   func() Request { return &WMSetWindowTaskbarRect{} },
}

// DecodeRequest parses one wire frame into its concrete request type.
func DecodeRequest(data []byte) (Request, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	make, ok := decoders[env.Kind]
	if !ok {
		return nil, fmt.Errorf("unknown request kind %q", env.Kind)
	}
	req := make()
	if len(env.Payload) > 0 {
		if err := json.Unmarshal(env.Payload, req); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", env.Kind, err)
		}
	}
	return req, nil
}

// EncodeResponse frames a positive reply.
func EncodeResponse(resp Response) ([]byte, error) {
	payload, err := json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("encode %s response: %w", resp.ResponseKind(), err)
	}
	return json.Marshal(struct {
		Kind    Kind            `json:"kind"`
		OK      bool            `json:"ok"`
		Payload json.RawMessage `json:"payload"`
	}{resp.ResponseKind(), true, payload})
}

// EncodeError frames a failure reply for a response-bearing request.
func EncodeError(kind Kind, reason string) ([]byte, error) {
	return json.Marshal(struct {
		Kind  Kind   `json:"kind"`
		OK    bool   `json:"ok"`
		Error string `json:"error"`
	}{kind, false, reason})
}

// EncodeNotification frames a one-way server-to-client message.
func EncodeNotification(n Notification) ([]byte, error) {
	payload, err := json.Marshal(n)
	if err != nil {
		return nil, fmt.Errorf("encode %s notification: %w", n.NotificationKind(), err)
	}
	return json.Marshal(Envelope{Kind: n.NotificationKind(), Payload: payload})
}
