package session

import (
	"go.uber.org/zap"
)

// Directory is the process-wide registry of live sessions, used to
// locate the target session of window-manager-class requests and to
// broadcast notifications. It is explicitly constructed and injected;
// all access happens on the control loop.
type Directory struct {
	loop     *Loop
	sessions map[int]*Session
	nextID   int
	logger   *zap.Logger
	metrics  Metrics
}

// NewDirectory creates an empty directory bound to the control loop.
func NewDirectory(loop *Loop, logger *zap.Logger, metrics Metrics) *Directory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Directory{
		loop:     loop,
		sessions: make(map[int]*Session),
		nextID:   1,
		logger:   logger,
		metrics:  metrics,
	}
}

// AllocateClientID hands out the next process-unique client id.
func (d *Directory) AllocateClientID() int {
	id := d.nextID
	d.nextID++
	return id
}

// Register adds a session on connection accept.
func (d *Directory) Register(s *Session) {
	d.sessions[s.ClientID()] = s
	if d.metrics != nil {
		d.metrics.SessionOpened()
	}
	d.logger.Info("session registered", zap.Int("client_id", s.ClientID()))
}

// Unregister removes a session by id. Unknown ids are ignored.
func (d *Directory) Unregister(clientID int) {
	if _, ok := d.sessions[clientID]; !ok {
		return
	}
	delete(d.sessions, clientID)
	if d.metrics != nil {
		d.metrics.SessionClosed()
	}
	d.logger.Info("session unregistered", zap.Int("client_id", clientID))
}

// Lookup resolves a client id to its live session.
func (d *Directory) Lookup(clientID int) (*Session, bool) {
	s, ok := d.sessions[clientID]
	return s, ok
}

// ForEach visits every live session. The callback must not register or
// unregister sessions; defer that to the next turn instead.
func (d *Directory) ForEach(fn func(*Session)) {
	for _, s := range d.sessions {
		fn(s)
	}
}

// Len returns the number of live sessions.
func (d *Directory) Len() int { return len(d.sessions) }

// ScheduleRemoval tears the session down and removes it from the
// directory after the current turn. Called when a disconnect is
// discovered while request handling may still hold the session; the
// deferred removal prevents self-destruction mid-call.
func (d *Directory) ScheduleRemoval(clientID int) {
	d.loop.PostDeferred(func() {
		if s, ok := d.sessions[clientID]; ok {
			s.Teardown()
			d.Unregister(clientID)
		}
	})
}
