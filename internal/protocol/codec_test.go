package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumen-os/lumen/server/internal/gfx"
	"github.com/lumen-os/lumen/server/internal/shm"
)

func TestDecodeRequest(t *testing.T) {
	frame := []byte(`{"kind":"set_window_rect","payload":{"window_id":3,"rect":{"x":10,"y":10,"width":100,"height":100}}}`)

	req, err := DecodeRequest(frame)
	require.NoError(t, err)

	setRect, ok := req.(*SetWindowRect)
	require.True(t, ok)
	assert.Equal(t, 3, setRect.WindowID)
	assert.Equal(t, gfx.MakeRect(10, 10, 100, 100), setRect.Rect)
}

func TestDecodeRequestNoPayload(t *testing.T) {
	req, err := DecodeRequest([]byte(`{"kind":"greet"}`))
	require.NoError(t, err)
	assert.Equal(t, KindGreet, req.RequestKind())
}

func TestDecodeRequestOmittedBufferIDsStayInvalid(t *testing.T) {
	cases := []struct {
		name  string
		frame string
		id    func(Request) shm.BufferID
	}{
		{
			"add menu item", `{"kind":"add_menu_item","payload":{"menu_id":1,"identifier":1,"text":"Open"}}`,
			func(r Request) shm.BufferID { return r.(*AddMenuItem).IconBufferID },
		},
		{
			"set window icon bitmap", `{"kind":"set_window_icon_bitmap","payload":{"window_id":1}}`,
			func(r Request) shm.BufferID { return r.(*SetWindowIconBitmap).IconBufferID },
		},
		{
			"start drag", `{"kind":"start_drag","payload":{"text":"file.txt"}}`,
			func(r Request) shm.BufferID { return r.(*StartDrag).BitmapID },
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req, err := DecodeRequest([]byte(tc.frame))
			require.NoError(t, err)
			assert.Equal(t, shm.InvalidBuffer, tc.id(req))
		})
	}
}

func TestDecodeRequestUnknownKind(t *testing.T) {
	_, err := DecodeRequest([]byte(`{"kind":"steal_focus"}`))
	assert.Error(t, err)
}

func TestDecodeRequestMalformed(t *testing.T) {
	_, err := DecodeRequest([]byte(`{`))
	assert.Error(t, err)

	_, err = DecodeRequest([]byte(`{"kind":"create_menu","payload":"not-an-object"}`))
	assert.Error(t, err)
}

func TestEveryKindHasDecoder(t *testing.T) {
	kinds := []Kind{
		KindGreet, KindCreateMenubar, KindDestroyMenubar, KindCreateMenu,
		KindDestroyMenu, KindSetApplicationMenubar, KindAddMenuToMenubar,
		KindAddMenuItem, KindAddMenuSeparator, KindUpdateMenuItem,
		KindPopupMenu, KindDismissMenu, KindCreateWindow, KindDestroyWindow,
		KindSetWindowTitle, KindGetWindowTitle, KindSetWindowRect,
		KindGetWindowRect, KindSetWindowIconBitmap, KindSetFullscreen,
		KindSetWindowOpacity, KindSetWindowHasAlphaChannel,
		KindSetWindowBackingStore, KindSetGlobalCursorTracking,
		KindSetWindowOverrideCursor, KindMoveWindowToFront,
		KindInvalidateRect, KindDidFinishPainting, KindSetClipboardContents,
		KindGetClipboardContents, KindAcknowledgeBuffer, KindStartDrag,
		KindSetResolution, KindGetWallpaper, KindAsyncSetWallpaper,
		KindWMSetActiveWindow, KindWMPopupWindowMenu, KindWMStartWindowResize,
		KindWMSetWindowMinimized, KindWMSetWindowTaskbarRect,
	}
	for _, k := range kinds {
		makeReq, ok := decoders[k]
		require.True(t, ok, "no decoder for %s", k)
		assert.Equal(t, k, makeReq().RequestKind())
	}
	assert.Len(t, decoders, len(kinds))
}

func TestOneWayClassification(t *testing.T) {
	assert.True(t, OneWay(KindInvalidateRect))
	assert.True(t, OneWay(KindDidFinishPainting))
	assert.True(t, OneWay(KindAsyncSetWallpaper))
	assert.True(t, OneWay(KindWMSetActiveWindow))
	assert.False(t, OneWay(KindGreet))
	assert.False(t, OneWay(KindStartDrag))
}

func TestWindowManagerClassification(t *testing.T) {
	assert.True(t, IsWindowManagerClass(KindWMSetWindowMinimized))
	assert.False(t, IsWindowManagerClass(KindSetWindowRect))
}

func TestEncodeResponse(t *testing.T) {
	data, err := EncodeResponse(CreateWindowResponse{WindowID: 7})
	require.NoError(t, err)

	var frame struct {
		Kind    Kind            `json:"kind"`
		OK      bool            `json:"ok"`
		Payload json.RawMessage `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(data, &frame))
	assert.Equal(t, KindCreateWindow, frame.Kind)
	assert.True(t, frame.OK)

	var resp CreateWindowResponse
	require.NoError(t, json.Unmarshal(frame.Payload, &resp))
	assert.Equal(t, 7, resp.WindowID)
}

func TestEncodeError(t *testing.T) {
	data, err := EncodeError(KindSetWindowRect, "SetWindowRect: Bad window ID")
	require.NoError(t, err)

	var frame struct {
		Kind  Kind   `json:"kind"`
		OK    bool   `json:"ok"`
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(data, &frame))
	assert.False(t, frame.OK)
	assert.Contains(t, frame.Error, "Bad window ID")
}

func TestEncodeNotification(t *testing.T) {
	data, err := EncodeNotification(Paint{
		WindowID:   1,
		WindowSize: gfx.Size{Width: 100, Height: 100},
		Rects:      []gfx.Rect{gfx.MakeRect(0, 0, 10, 10)},
	})
	require.NoError(t, err)

	req, err := DecodeRequest(data)
	assert.Error(t, err, "notifications are not requests")
	assert.Nil(t, req)

	var env Envelope
	require.NoError(t, json.Unmarshal(data, &env))
	assert.Equal(t, KindPaint, env.Kind)
}
