package session

import (
	"fmt"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lumen-os/lumen/server/internal/domain/desktop"
	"github.com/lumen-os/lumen/server/internal/domain/menu"
	"github.com/lumen-os/lumen/server/internal/domain/theme"
	"github.com/lumen-os/lumen/server/internal/domain/window"
	"github.com/lumen-os/lumen/server/internal/gfx"
	"github.com/lumen-os/lumen/server/internal/protocol"
	"github.com/lumen-os/lumen/server/internal/shm"
)

// Messenger delivers one-way notifications to the session's client.
// Implementations must not block the control loop.
type Messenger interface {
	PostNotification(n protocol.Notification)
}

// Metrics is the subset of the monitoring surface the control plane
// reports into. A nil Metrics disables reporting.
type Metrics interface {
	SessionOpened()
	SessionClosed()
	RecordRequest(kind string)
	RecordMisbehavior(reason string)
	RecordPaint()
}

// Window menu item identifiers, shared with the shell.
const (
	windowMenuMinimize uint = iota + 1
	windowMenuMaximize
	windowMenuClose
)

// Deps carries the injected collaborators of a session.
type Deps struct {
	Directory  *Directory
	Desktop    *desktop.Desktop
	Broker     *shm.Broker
	Themes     *theme.Registry
	Wallpapers *desktop.WallpaperLoader
	Messenger  Messenger
	Logger     *zap.Logger
	Metrics    Metrics
}

// Session is the server-side state for one connected client. It owns
// the client's window/menu/menubar registries, validates every inbound
// request against them, and mutates desktop state through the narrow
// entry points the dispatch handlers expose.
//
// A session is confined to the control loop: every method except
// ClientID must be called from a loop turn.
type Session struct {
	clientID int

	directory  *Directory
	desktop    *desktop.Desktop
	broker     *shm.Broker
	themes     *theme.Registry
	wallpapers *desktop.WallpaperLoader
	messenger  Messenger
	logger     *zap.Logger
	metrics    Metrics

	windows  map[int]*window.Window
	menus    map[int]*menu.Menu
	menubars map[int]*menu.Bar

	// ids come from independent monotonic counters and are never
	// reused within the session's lifetime
	nextWindowID  int
	nextMenuID    int
	nextMenubarID int

	appMenubar *menu.Bar

	// clipboard buffer most recently leased to this client; kept so
	// teardown can drop the lease early
	lastSentClipboard shm.BufferID

	misbehaved    bool
	lastViolation string
	tornDown      bool
}

// New constructs a session for an accepted connection. The caller
// registers it with the directory.
func New(clientID int, deps Deps) *Session {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		clientID:          clientID,
		directory:         deps.Directory,
		desktop:           deps.Desktop,
		broker:            deps.Broker,
		themes:            deps.Themes,
		wallpapers:        deps.Wallpapers,
		messenger:         deps.Messenger,
		logger:            logger.With(zap.Int("client_id", clientID)),
		metrics:           deps.Metrics,
		windows:           make(map[int]*window.Window),
		menus:             make(map[int]*menu.Menu),
		menubars:          make(map[int]*menu.Bar),
		nextWindowID:      1,
		nextMenuID:        1,
		nextMenubarID:     1,
		lastSentClipboard: shm.InvalidBuffer,
	}
}

// ClientID returns the session's process-unique client id.
func (s *Session) ClientID() int { return s.clientID }

// Misbehaved reports whether the client has violated the protocol, and
// the most recent recorded reason.
func (s *Session) Misbehaved() (bool, string) {
	return s.misbehaved, s.lastViolation
}

// WindowCount returns the number of live windows the session owns.
func (s *Session) WindowCount() int { return len(s.windows) }

// IsShowingModalWindow reports whether any visible window of the
// session is modal.
func (s *Session) IsShowingModalWindow() bool {
	for _, w := range s.windows {
		if w.IsVisible() && w.IsModal() {
			return true
		}
	}
	return false
}

// Misbehave records a client protocol violation. The violation yields
// a failure response but never crashes the server; disconnect policy
// for repeat offenders belongs to the transport.
func (s *Session) Misbehave(reason string) {
	s.misbehaved = true
	s.lastViolation = reason
	s.logger.Warn("client misbehaved", zap.String("reason", reason))
	if s.metrics != nil {
		s.metrics.RecordMisbehavior(reason)
	}
}

// Die schedules teardown and directory removal for after the current
// turn. Safe to call while request handling still holds the session.
func (s *Session) Die() {
	s.directory.ScheduleRemoval(s.clientID)
}

// Teardown detaches every owned resource from the global structures.
// Idempotent and total: windows leave the stacking order and applet
// area, menus close, buffer leases drop.
func (s *Session) Teardown() {
	if s.tornDown {
		return
	}
	s.tornDown = true

	for _, m := range s.menus {
		m.Close()
		m.Detach()
		s.releaseMenuResources(m)
	}
	s.menus = make(map[int]*menu.Menu)
	s.menubars = make(map[int]*menu.Bar)
	s.appMenubar = nil

	for _, w := range s.windows {
		s.releaseWindowResources(w)
		s.desktop.RemoveWindow(w)
	}
	s.windows = make(map[int]*window.Window)

	s.desktop.EndDrag(s.clientID)
	s.broker.ReleaseClient(s.clientID)
	s.lastSentClipboard = shm.InvalidBuffer

	s.logger.Info("session torn down")
}

// NotifyScreenRectChanged posts the screen geometry to the client.
func (s *Session) NotifyScreenRectChanged(rect gfx.Rect) {
	s.messenger.PostNotification(protocol.ScreenRectChanged{Rect: rect})
}

// NotifyClipboardContentsChanged tells the client the clipboard was
// replaced by another session.
func (s *Session) NotifyClipboardContentsChanged(contentType string) {
	s.messenger.PostNotification(protocol.ClipboardContentsChanged{ContentType: contentType})
}

// Dispatch validates and executes one decoded request. A nil response
// for a response-bearing request means the server could not satisfy the
// call; the transport maps that to a client-visible error. One-way
// requests always return nil.
func (s *Session) Dispatch(req protocol.Request) protocol.Response {
	if s.metrics != nil {
		s.metrics.RecordRequest(string(req.RequestKind()))
	}
	switch r := req.(type) {
	case *protocol.Greet:
		return s.handleGreet()
	case *protocol.CreateMenubar:
		return s.handleCreateMenubar()
	case *protocol.DestroyMenubar:
		return s.handleDestroyMenubar(r)
	case *protocol.CreateMenu:
		return s.handleCreateMenu(r)
	case *protocol.DestroyMenu:
		return s.handleDestroyMenu(r)
	case *protocol.SetApplicationMenubar:
		return s.handleSetApplicationMenubar(r)
	case *protocol.AddMenuToMenubar:
		return s.handleAddMenuToMenubar(r)
	case *protocol.AddMenuItem:
		return s.handleAddMenuItem(r)
	case *protocol.AddMenuSeparator:
		return s.handleAddMenuSeparator(r)
	case *protocol.UpdateMenuItem:
		return s.handleUpdateMenuItem(r)
	case *protocol.PopupMenu:
		return s.handlePopupMenu(r)
	case *protocol.DismissMenu:
		return s.handleDismissMenu(r)
	case *protocol.CreateWindow:
		return s.handleCreateWindow(r)
	case *protocol.DestroyWindow:
		return s.handleDestroyWindow(r)
	case *protocol.SetWindowTitle:
		return s.handleSetWindowTitle(r)
	case *protocol.GetWindowTitle:
		return s.handleGetWindowTitle(r)
	case *protocol.SetWindowRect:
		return s.handleSetWindowRect(r)
	case *protocol.GetWindowRect:
		return s.handleGetWindowRect(r)
	case *protocol.SetWindowIconBitmap:
		return s.handleSetWindowIconBitmap(r)
	case *protocol.SetFullscreen:
		return s.handleSetFullscreen(r)
	case *protocol.SetWindowOpacity:
		return s.handleSetWindowOpacity(r)
	case *protocol.SetWindowHasAlphaChannel:
		return s.handleSetWindowHasAlphaChannel(r)
	case *protocol.SetWindowBackingStore:
		return s.handleSetWindowBackingStore(r)
	case *protocol.SetGlobalCursorTracking:
		return s.handleSetGlobalCursorTracking(r)
	case *protocol.SetWindowOverrideCursor:
		return s.handleSetWindowOverrideCursor(r)
	case *protocol.MoveWindowToFront:
		return s.handleMoveWindowToFront(r)
	case *protocol.InvalidateRect:
		s.handleInvalidateRect(r)
		return nil
	case *protocol.DidFinishPainting:
		s.handleDidFinishPainting(r)
		return nil
	case *protocol.SetClipboardContents:
		return s.handleSetClipboardContents(r)
	case *protocol.GetClipboardContents:
		return s.handleGetClipboardContents()
	case *protocol.AcknowledgeBuffer:
		s.handleAcknowledgeBuffer(r)
		return nil
	case *protocol.StartDrag:
		return s.handleStartDrag(r)
	case *protocol.SetResolution:
		return s.handleSetResolution(r)
	case *protocol.GetWallpaper:
		return s.handleGetWallpaper()
	case *protocol.AsyncSetWallpaper:
		s.handleAsyncSetWallpaper(r)
		return nil
	case *protocol.WMSetActiveWindow:
		s.handleWMSetActiveWindow(r)
		return nil
	case *protocol.WMPopupWindowMenu:
		s.handleWMPopupWindowMenu(r)
		return nil
	case *protocol.WMStartWindowResize:
		s.handleWMStartWindowResize(r)
		return nil
	case *protocol.WMSetWindowMinimized:
		s.handleWMSetWindowMinimized(r)
		return nil
	case *protocol.WMSetWindowTaskbarRect:
		s.handleWMSetWindowTaskbarRect(r)
		return nil
	default:
		// The request set is closed; reaching here is a server bug.
		panic(fmt.Sprintf("session: unhandled request type %T", req))
	}
}

func (s *Session) handleGreet() protocol.Response {
	return protocol.GreetResponse{
		ClientID:   s.clientID,
		ScreenRect: s.desktop.ScreenRect(),
		Theme:      s.themes.Active(),
	}
}

func (s *Session) handleCreateMenubar() protocol.Response {
	id := s.nextMenubarID
	s.nextMenubarID++
	s.menubars[id] = menu.NewBar(s.clientID, id)
	return protocol.CreateMenubarResponse{MenubarID: id}
}

func (s *Session) handleDestroyMenubar(r *protocol.DestroyMenubar) protocol.Response {
	bar, ok := s.menubars[r.MenubarID]
	if !ok {
		s.Misbehave("DestroyMenubar: Bad menubar ID")
		return nil
	}
	if s.appMenubar == bar {
		s.appMenubar = nil
	}
	for _, m := range append([]*menu.Menu(nil), bar.Menus()...) {
		m.Detach()
	}
	delete(s.menubars, r.MenubarID)
	return protocol.Ack{Of: protocol.KindDestroyMenubar}
}

func (s *Session) handleCreateMenu(r *protocol.CreateMenu) protocol.Response {
	id := s.nextMenuID
	s.nextMenuID++
	s.menus[id] = menu.NewMenu(s.clientID, id, r.Title)
	return protocol.CreateMenuResponse{MenuID: id}
}

func (s *Session) handleDestroyMenu(r *protocol.DestroyMenu) protocol.Response {
	m, ok := s.menus[r.MenuID]
	if !ok {
		s.Misbehave("DestroyMenu: Bad menu ID")
		return nil
	}
	m.Close()
	m.Detach()
	s.releaseMenuResources(m)
	delete(s.menus, r.MenuID)
	return protocol.Ack{Of: protocol.KindDestroyMenu}
}

func (s *Session) handleSetApplicationMenubar(r *protocol.SetApplicationMenubar) protocol.Response {
	bar, ok := s.menubars[r.MenubarID]
	if !ok {
		s.Misbehave("SetApplicationMenubar: Bad menubar ID")
		return nil
	}
	s.appMenubar = bar
	s.logger.Debug("application menubar changed", zap.Int("menubar_id", r.MenubarID))
	return protocol.Ack{Of: protocol.KindSetApplicationMenubar}
}

// ApplicationMenubar returns the menubar designated for the global
// shell, or nil.
func (s *Session) ApplicationMenubar() *menu.Bar { return s.appMenubar }

func (s *Session) handleAddMenuToMenubar(r *protocol.AddMenuToMenubar) protocol.Response {
	bar, ok := s.menubars[r.MenubarID]
	if !ok {
		s.Misbehave("AddMenuToMenubar: Bad menubar ID")
		return nil
	}
	m, ok := s.menus[r.MenuID]
	if !ok {
		s.Misbehave("AddMenuToMenubar: Bad menu ID")
		return nil
	}
	bar.AddMenu(m)
	return protocol.Ack{Of: protocol.KindAddMenuToMenubar}
}

func (s *Session) handleAddMenuItem(r *protocol.AddMenuItem) protocol.Response {
	m, ok := s.menus[r.MenuID]
	if !ok {
		s.Misbehave("AddMenuItem: Bad menu ID")
		return nil
	}
	item := &menu.Item{
		Identifier:   r.Identifier,
		Text:         r.Text,
		ShortcutText: r.Shortcut,
		Enabled:      r.Enabled,
		Checkable:    r.Checkable,
		Checked:      r.Checked,
		Exclusive:    r.Exclusive,
		SubmenuID:    r.SubmenuID,
	}
	if r.IconBufferID != shm.InvalidBuffer {
		iconSize := gfx.Size{Width: 16, Height: 16}
		buf, ok := s.broker.Resolve(r.IconBufferID)
		if !ok {
			s.Misbehave("AddMenuItem: Bad icon buffer ID")
			return nil
		}
		if !buf.CanFit(iconSize) {
			s.Misbehave("AddMenuItem: Shared buffer is too small for icon size")
			return nil
		}
		s.broker.Retain(buf.ID())
		item.Icon = buf
		item.IconSize = iconSize
	}
	m.AddItem(item)
	return protocol.Ack{Of: protocol.KindAddMenuItem}
}

func (s *Session) handleAddMenuSeparator(r *protocol.AddMenuSeparator) protocol.Response {
	m, ok := s.menus[r.MenuID]
	if !ok {
		s.Misbehave("AddMenuSeparator: Bad menu ID")
		return nil
	}
	m.AddItem(menu.Separator())
	return protocol.Ack{Of: protocol.KindAddMenuSeparator}
}

func (s *Session) handleUpdateMenuItem(r *protocol.UpdateMenuItem) protocol.Response {
	m, ok := s.menus[r.MenuID]
	if !ok {
		s.Misbehave("UpdateMenuItem: Bad menu ID")
		return nil
	}
	item := m.ItemWithIdentifier(r.Identifier)
	if item == nil {
		s.Misbehave("UpdateMenuItem: Bad menu item identifier")
		return nil
	}
	item.Text = r.Text
	item.ShortcutText = r.Shortcut
	item.Enabled = r.Enabled
	item.Checkable = r.Checkable
	if r.Checkable {
		item.Checked = r.Checked
	}
	return protocol.Ack{Of: protocol.KindUpdateMenuItem}
}

func (s *Session) handlePopupMenu(r *protocol.PopupMenu) protocol.Response {
	m, ok := s.menus[r.MenuID]
	if !ok {
		s.Misbehave("PopupMenu: Bad menu ID")
		return nil
	}
	m.Popup(r.ScreenPosition)
	return protocol.Ack{Of: protocol.KindPopupMenu}
}

func (s *Session) handleDismissMenu(r *protocol.DismissMenu) protocol.Response {
	m, ok := s.menus[r.MenuID]
	if !ok {
		s.Misbehave("DismissMenu: Bad menu ID")
		return nil
	}
	m.Close()
	return protocol.Ack{Of: protocol.KindDismissMenu}
}

func (s *Session) handleCreateWindow(r *protocol.CreateWindow) protocol.Response {
	typ, ok := window.ParseType(r.Type)
	if !ok {
		s.Misbehave("CreateWindow: Bad window type")
		return nil
	}
	id := s.nextWindowID
	s.nextWindowID++

	rect := r.Rect
	if r.Fullscreen {
		rect = s.desktop.ScreenRect()
	}
	w := window.New(s.clientID, id, window.Options{
		Type:          typ,
		Title:         r.Title,
		Rect:          rect,
		Modal:         r.Modal,
		Minimizable:   r.Minimizable,
		Resizable:     r.Resizable,
		Fullscreen:    r.Fullscreen,
		ShowTitlebar:  r.ShowTitlebar,
		HasAlpha:      r.HasAlphaChannel,
		Opacity:       r.Opacity,
		SizeIncrement: r.SizeIncrement,
		BaseSize:      r.BaseSize,
	})
	w.Invalidate()
	if w.Type() == window.TypeMenuApplet {
		s.desktop.AddApplet(w)
	}
	s.desktop.AddWindow(w)
	s.windows[id] = w
	return protocol.CreateWindowResponse{WindowID: id}
}

func (s *Session) handleDestroyWindow(r *protocol.DestroyWindow) protocol.Response {
	w, ok := s.windows[r.WindowID]
	if !ok {
		s.Misbehave("DestroyWindow: Bad window ID")
		return nil
	}
	if w.ID() != r.WindowID || w.ClientID() != s.clientID {
		// Registry corruption is a server bug, not a client error.
		panic(fmt.Sprintf("session %d: window registry entry %d does not match entity (%d,%d)",
			s.clientID, r.WindowID, w.ClientID(), w.ID()))
	}
	if w.Type() == window.TypeMenuApplet {
		s.desktop.RemoveApplet(w)
	}
	s.releaseWindowResources(w)
	s.desktop.RemoveWindow(w)
	delete(s.windows, r.WindowID)
	return protocol.Ack{Of: protocol.KindDestroyWindow}
}

func (s *Session) handleSetWindowTitle(r *protocol.SetWindowTitle) protocol.Response {
	w, ok := s.windows[r.WindowID]
	if !ok {
		s.Misbehave("SetWindowTitle: Bad window ID")
		return nil
	}
	w.SetTitle(r.Title)
	s.desktop.RefreshSwitcherIfNeeded()
	return protocol.Ack{Of: protocol.KindSetWindowTitle}
}

func (s *Session) handleGetWindowTitle(r *protocol.GetWindowTitle) protocol.Response {
	w, ok := s.windows[r.WindowID]
	if !ok {
		s.Misbehave("GetWindowTitle: Bad window ID")
		return nil
	}
	return protocol.GetWindowTitleResponse{Title: w.Title()}
}

func (s *Session) handleSetWindowRect(r *protocol.SetWindowRect) protocol.Response {
	w, ok := s.windows[r.WindowID]
	if !ok {
		s.Misbehave("SetWindowRect: Bad window ID")
		return nil
	}
	if w.IsFullscreen() {
		s.Misbehave("SetWindowRect: Window is fullscreen")
		return nil
	}
	old := w.Rect()
	w.SetRect(r.Rect)
	w.Invalidate()
	s.desktop.Invalidate(old.United(r.Rect))
	s.desktop.RecomputeOcclusions()
	s.PostPaintMessage(w)
	return protocol.Ack{Of: protocol.KindSetWindowRect}
}

func (s *Session) handleGetWindowRect(r *protocol.GetWindowRect) protocol.Response {
	w, ok := s.windows[r.WindowID]
	if !ok {
		s.Misbehave("GetWindowRect: Bad window ID")
		return nil
	}
	return protocol.GetWindowRectResponse{Rect: w.Rect()}
}

func (s *Session) handleSetWindowIconBitmap(r *protocol.SetWindowIconBitmap) protocol.Response {
	w, ok := s.windows[r.WindowID]
	if !ok {
		s.Misbehave("SetWindowIconBitmap: Bad window ID")
		return nil
	}
	prev, _ := w.Icon()
	buf, resolved := s.broker.Resolve(r.IconBufferID)
	if !resolved {
		w.SetDefaultIcon()
	} else {
		if !buf.CanFit(r.IconSize) {
			s.Misbehave("SetWindowIconBitmap: Shared buffer is too small for icon size")
			return nil
		}
		s.broker.Retain(buf.ID())
		w.SetIcon(buf, r.IconSize)
	}
	if prev != nil {
		s.broker.Release(prev.ID())
	}
	// Icon changes are window-manager visible: repaint the frame area
	// and let the switcher overlay pick up the new icon.
	s.desktop.Invalidate(w.Rect())
	s.desktop.RefreshSwitcherIfNeeded()
	return protocol.Ack{Of: protocol.KindSetWindowIconBitmap}
}

func (s *Session) handleSetFullscreen(r *protocol.SetFullscreen) protocol.Response {
	w, ok := s.windows[r.WindowID]
	if !ok {
		s.Misbehave("SetFullscreen: Bad window ID")
		return nil
	}
	old := w.Rect()
	w.SetFullscreen(r.Fullscreen, s.desktop.ScreenRect())
	w.Invalidate()
	s.desktop.Invalidate(old.United(w.Rect()))
	s.desktop.RecomputeOcclusions()
	s.PostPaintMessage(w)
	return protocol.Ack{Of: protocol.KindSetFullscreen}
}

func (s *Session) handleSetWindowOpacity(r *protocol.SetWindowOpacity) protocol.Response {
	w, ok := s.windows[r.WindowID]
	if !ok {
		s.Misbehave("SetWindowOpacity: Bad window ID")
		return nil
	}
	w.SetOpacity(r.Opacity)
	s.desktop.Invalidate(w.Rect())
	s.desktop.RecomputeOcclusions()
	return protocol.Ack{Of: protocol.KindSetWindowOpacity}
}

func (s *Session) handleSetWindowHasAlphaChannel(r *protocol.SetWindowHasAlphaChannel) protocol.Response {
	w, ok := s.windows[r.WindowID]
	if !ok {
		s.Misbehave("SetWindowHasAlphaChannel: Bad window ID")
		return nil
	}
	w.SetHasAlphaChannel(r.HasAlphaChannel)
	s.desktop.Invalidate(w.Rect())
	s.desktop.RecomputeOcclusions()
	return protocol.Ack{Of: protocol.KindSetWindowHasAlphaChannel}
}

func (s *Session) handleSetWindowBackingStore(r *protocol.SetWindowBackingStore) protocol.Response {
	w, ok := s.windows[r.WindowID]
	if !ok {
		s.Misbehave("SetWindowBackingStore: Bad window ID")
		return nil
	}
	last := w.LastBackingStore()
	if last != nil && last.Buffer.ID() == r.BufferID {
		// Common double-buffered redraw: the client painted into the
		// buffer we already hold, so a pointer swap replaces a remap.
		w.SwapBackingStores()
	} else {
		buf, resolved := s.broker.Resolve(r.BufferID)
		if !resolved {
			// Unresolvable handle leaves the backing store unchanged.
			return protocol.Ack{Of: protocol.KindSetWindowBackingStore}
		}
		if !buf.CanFit(r.Size) {
			s.Misbehave("SetWindowBackingStore: Shared buffer is too small for window size")
			return nil
		}
		s.broker.Retain(buf.ID())
		displaced := w.LastBackingStore()
		w.SetBackingStore(&window.BackingStore{
			Buffer:   buf,
			Size:     r.Size,
			HasAlpha: r.HasAlphaChannel,
		})
		if displaced != nil {
			s.broker.Release(displaced.Buffer.ID())
		}
	}
	if r.FlushImmediately {
		w.Invalidate()
		s.PostPaintMessage(w)
	}
	return protocol.Ack{Of: protocol.KindSetWindowBackingStore}
}

func (s *Session) handleSetGlobalCursorTracking(r *protocol.SetGlobalCursorTracking) protocol.Response {
	w, ok := s.windows[r.WindowID]
	if !ok {
		s.Misbehave("SetGlobalCursorTracking: Bad window ID")
		return nil
	}
	w.SetGlobalCursorTracking(r.Enabled)
	return protocol.Ack{Of: protocol.KindSetGlobalCursorTracking}
}

func (s *Session) handleSetWindowOverrideCursor(r *protocol.SetWindowOverrideCursor) protocol.Response {
	w, ok := s.windows[r.WindowID]
	if !ok {
		s.Misbehave("SetWindowOverrideCursor: Bad window ID")
		return nil
	}
	w.SetOverrideCursor(r.CursorType)
	return protocol.Ack{Of: protocol.KindSetWindowOverrideCursor}
}

func (s *Session) handleMoveWindowToFront(r *protocol.MoveWindowToFront) protocol.Response {
	w, ok := s.windows[r.WindowID]
	if !ok {
		s.Misbehave("MoveWindowToFront: Bad window ID")
		return nil
	}
	s.desktop.MoveToFrontAndMakeActive(w)
	return protocol.Ack{Of: protocol.KindMoveWindowToFront}
}

func (s *Session) handleInvalidateRect(r *protocol.InvalidateRect) {
	w, ok := s.windows[r.WindowID]
	if !ok {
		s.Misbehave("InvalidateRect: Bad window ID")
		return
	}
	for _, rect := range r.Rects {
		w.RequestUpdate(rect)
	}
	s.PostPaintMessage(w)
}

func (s *Session) handleDidFinishPainting(r *protocol.DidFinishPainting) {
	w, ok := s.windows[r.WindowID]
	if !ok {
		s.Misbehave("DidFinishPainting: Bad window ID")
		return
	}
	for _, rect := range r.Rects {
		s.desktop.InvalidateWindow(w, rect)
	}
	s.desktop.RefreshSwitcherIfNeeded()
}

// PostPaintMessage flushes the window's pending invalidations into a
// paint notification. Minimized and fully occluded windows produce no
// notification: there is nothing useful the client could paint into
// the screen, and suppressing the round trip is an explicit
// performance invariant.
func (s *Session) PostPaintMessage(w *window.Window) {
	rects := w.TakePendingPaintRects()
	if len(rects) == 0 {
		return
	}
	if w.IsMinimized() || w.IsOccluded() {
		return
	}
	s.messenger.PostNotification(protocol.Paint{
		WindowID:   w.ID(),
		WindowSize: w.Size(),
		Rects:      rects,
	})
	if s.metrics != nil {
		s.metrics.RecordPaint()
	}
}

func (s *Session) handleSetClipboardContents(r *protocol.SetClipboardContents) protocol.Response {
	buf, ok := s.broker.Resolve(r.BufferID)
	if !ok {
		s.Misbehave("SetClipboardContents: Bad shared buffer ID")
		return nil
	}
	if r.ContentSize < 0 || r.ContentSize > buf.Size() {
		s.Misbehave("SetClipboardContents: Content size exceeds shared buffer")
		return nil
	}
	contentType := r.ContentType
	if contentType == "" && r.ContentSize > 0 {
		contentType = mimetype.Detect(buf.Data()[:r.ContentSize]).String()
	}
	s.desktop.SetClipboard(buf, r.ContentSize, contentType)
	s.directory.ForEach(func(other *Session) {
		if other != s {
			other.NotifyClipboardContentsChanged(contentType)
		}
	})
	return protocol.Ack{Of: protocol.KindSetClipboardContents}
}

func (s *Session) handleGetClipboardContents() protocol.Response {
	clipboard := s.desktop.Clipboard()
	resp := protocol.GetClipboardContentsResponse{
		BufferID:    shm.InvalidBuffer,
		ContentType: clipboard.ContentType,
	}
	if clipboard.Buffer == nil || clipboard.Size == 0 {
		return resp
	}

	// Copy-on-read: the reader gets an independently owned, size-exact
	// sealed buffer. Mutating the writer's buffer afterwards must not
	// change what the reader sees.
	copied, err := s.broker.Create(s.clientID, clipboard.Size)
	if err != nil {
		s.logger.Error("clipboard copy failed", zap.Error(err))
		return nil
	}
	copy(copied.Data(), clipboard.Buffer.Data()[:clipboard.Size])
	s.broker.Seal(copied.ID())
	s.broker.ShareWith(copied.ID(), s.clientID)

	// The buffer must outlive this response until the client maps it,
	// but must not leak forever: the lease holds it until the client
	// acknowledges receipt or the lease TTL elapses.
	s.broker.Lease(copied.ID(), s.clientID)
	s.broker.Disown(copied.ID())
	s.lastSentClipboard = copied.ID()

	resp.BufferID = copied.ID()
	resp.ContentSize = clipboard.Size
	return resp
}

func (s *Session) handleAcknowledgeBuffer(r *protocol.AcknowledgeBuffer) {
	if !s.broker.Ack(r.BufferID, s.clientID) {
		s.Misbehave("AcknowledgeBuffer: No lease for buffer")
		return
	}
	if s.lastSentClipboard == r.BufferID {
		s.lastSentClipboard = shm.InvalidBuffer
	}
}

func (s *Session) handleStartDrag(r *protocol.StartDrag) protocol.Response {
	if s.desktop.DragInProgress() {
		return protocol.StartDragResponse{Accepted: false}
	}
	var bitmap *shm.Buffer
	if r.BitmapID != shm.InvalidBuffer {
		buf, ok := s.broker.Resolve(r.BitmapID)
		if !ok {
			s.Misbehave("StartDrag: Bad bitmap buffer ID")
			return nil
		}
		if !buf.CanFit(r.BitmapSize) {
			s.Misbehave("StartDrag: Shared buffer is too small for bitmap size")
			return nil
		}
		bitmap = buf
	}
	accepted := s.desktop.StartDrag(desktop.DragSession{
		Token:      uuid.NewString(),
		ClientID:   s.clientID,
		Text:       r.Text,
		DataType:   r.DataType,
		Data:       r.Data,
		Bitmap:     bitmap,
		BitmapSize: r.BitmapSize,
	})
	return protocol.StartDragResponse{Accepted: accepted}
}

func (s *Session) handleSetResolution(r *protocol.SetResolution) protocol.Response {
	if r.Size.IsEmpty() {
		s.Misbehave("SetResolution: Bad resolution")
		return nil
	}
	rect := s.desktop.SetResolution(r.Size)
	s.desktop.RecomputeOcclusions()
	s.directory.ForEach(func(other *Session) {
		other.NotifyScreenRectChanged(rect)
	})
	return protocol.Ack{Of: protocol.KindSetResolution}
}

func (s *Session) handleGetWallpaper() protocol.Response {
	return protocol.GetWallpaperResponse{Path: s.desktop.WallpaperPath()}
}

func (s *Session) handleAsyncSetWallpaper(r *protocol.AsyncSetWallpaper) {
	path := r.Path
	s.wallpapers.Load(path, func(success bool) {
		if success {
			s.desktop.SetWallpaperPath(path)
		}
		s.messenger.PostNotification(protocol.AsyncSetWallpaperFinished{Success: success})
	})
}

// resolveTarget maps a WM-class request's (client id, window id) pair
// to the target window. A missing target session or window is a
// misbehavior of the requester, never of the target.
func (s *Session) resolveTarget(op string, clientID, windowID int) (*window.Window, bool) {
	target, ok := s.directory.Lookup(clientID)
	if !ok {
		s.Misbehave(op + ": Bad client ID")
		return nil, false
	}
	w, ok := target.windows[windowID]
	if !ok {
		s.Misbehave(op + ": Bad window ID")
		return nil, false
	}
	return w, true
}

func (s *Session) handleWMSetActiveWindow(r *protocol.WMSetActiveWindow) {
	w, ok := s.resolveTarget("WM_SetActiveWindow", r.ClientID, r.WindowID)
	if !ok {
		return
	}
	w.SetMinimized(false)
	s.desktop.MoveToFrontAndMakeActive(w)
}

func (s *Session) handleWMPopupWindowMenu(r *protocol.WMPopupWindowMenu) {
	w, ok := s.resolveTarget("WM_PopupWindowMenu", r.ClientID, r.WindowID)
	if !ok {
		return
	}
	m := w.WindowMenu()
	if m == nil {
		m = menu.NewMenu(w.ClientID(), -1, w.Title())
		m.AddItem(&menu.Item{Identifier: windowMenuMinimize, Text: "Minimize", Enabled: true})
		m.AddItem(&menu.Item{Identifier: windowMenuMaximize, Text: "Maximize", Enabled: true})
		m.AddItem(menu.Separator())
		m.AddItem(&menu.Item{Identifier: windowMenuClose, Text: "Close", Enabled: true})
		w.SetWindowMenu(m)
	}
	m.Popup(r.ScreenPosition)
}

func (s *Session) handleWMStartWindowResize(r *protocol.WMStartWindowResize) {
	w, ok := s.resolveTarget("WM_StartWindowResize", r.ClientID, r.WindowID)
	if !ok {
		return
	}
	if !w.IsResizable() {
		s.logger.Debug("ignoring resize request for non-resizable window",
			zap.Int("window_id", r.WindowID))
		return
	}
	s.desktop.StartWindowResize(w)
}

func (s *Session) handleWMSetWindowMinimized(r *protocol.WMSetWindowMinimized) {
	w, ok := s.resolveTarget("WM_SetWindowMinimized", r.ClientID, r.WindowID)
	if !ok {
		return
	}
	w.SetMinimized(r.Minimized)
	s.desktop.Invalidate(w.Rect())
	s.desktop.RecomputeOcclusions()
}

func (s *Session) handleWMSetWindowTaskbarRect(r *protocol.WMSetWindowTaskbarRect) {
	w, ok := s.resolveTarget("WM_SetWindowTaskbarRect", r.ClientID, r.WindowID)
	if !ok {
		return
	}
	w.SetTaskbarRect(r.Rect)
}

// releaseWindowResources drops the buffer references a window holds:
// both backing stores and the icon.
func (s *Session) releaseWindowResources(w *window.Window) {
	if store := w.BackingStore(); store != nil {
		s.broker.Release(store.Buffer.ID())
	}
	if store := w.LastBackingStore(); store != nil {
		s.broker.Release(store.Buffer.ID())
	}
	if icon, _ := w.Icon(); icon != nil {
		s.broker.Release(icon.ID())
	}
}

// releaseMenuResources drops the icon buffer references held by a
// menu's items.
func (s *Session) releaseMenuResources(m *menu.Menu) {
	for _, item := range m.Items() {
		if item.Icon != nil {
			s.broker.Release(item.Icon.ID())
		}
	}
}
