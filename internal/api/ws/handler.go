// Package ws is the WebSocket transport for the display protocol. Each
// connection becomes one session on the control loop; the read side
// decodes frames and posts them as loop tasks, the write side drains a
// per-connection outbound queue so notifications never block the loop.
package ws

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/lumen-os/lumen/server/internal/infrastructure/monitoring"
	"github.com/lumen-os/lumen/server/internal/protocol"
	"github.com/lumen-os/lumen/server/internal/session"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true // origins are filtered by the CORS layer
	},
}

// outboundQueueSize bounds how far a slow client may fall behind
// before the server drops the connection.
const outboundQueueSize = 256

// Handler accepts display protocol connections.
type Handler struct {
	loop      *session.Loop
	directory *session.Directory
	deps      session.Deps
	metrics   *monitoring.Metrics
	logger    *zap.Logger
}

// NewHandler creates a WebSocket handler. deps is the session
// dependency template; Directory and Messenger are filled per
// connection.
func NewHandler(loop *session.Loop, directory *session.Directory, deps session.Deps, metrics *monitoring.Metrics, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		loop:      loop,
		directory: directory,
		deps:      deps,
		metrics:   metrics,
		logger:    logger,
	}
}

// connection pairs one WebSocket with its session. The writer
// goroutine owns all writes to the socket.
type connection struct {
	conn     *websocket.Conn
	outbound chan []byte
	closed   chan struct{}
	logger   *zap.Logger
	metrics  *monitoring.Metrics
}

// enqueue hands a frame to the writer goroutine. A client that cannot
// keep up with its outbound queue is disconnected rather than allowed
// to stall the control loop.
func (c *connection) enqueue(frame []byte) {
	select {
	case c.outbound <- frame:
	case <-c.closed:
	default:
		c.logger.Warn("outbound queue full, dropping connection")
		c.close()
	}
}

func (c *connection) close() {
	select {
	case <-c.closed:
	default:
		close(c.closed)
	}
}

func (c *connection) writeLoop() {
	for {
		select {
		case frame := <-c.outbound:
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.close()
				return
			}
		case <-c.closed:
			c.conn.Close()
			return
		}
	}
}

// PostNotification implements session.Messenger.
func (c *connection) PostNotification(n protocol.Notification) {
	frame, err := protocol.EncodeNotification(n)
	if err != nil {
		c.logger.Error("notification encode failed", zap.Error(err))
		return
	}
	if c.metrics != nil {
		c.metrics.RecordWSMessage("out", string(n.NotificationKind()))
	}
	c.enqueue(frame)
}

// HandleConnection upgrades the request and runs the session until
// disconnect.
func (h *Handler) HandleConnection(c *gin.Context) {
	socket, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	conn := &connection{
		conn:     socket,
		outbound: make(chan []byte, outboundQueueSize),
		closed:   make(chan struct{}),
		logger:   h.logger,
		metrics:  h.metrics,
	}
	go conn.writeLoop()

	if h.metrics != nil {
		h.metrics.WSConnections.Inc()
		defer h.metrics.WSConnections.Dec()
	}

	var sess *session.Session
	h.loop.Call(func() {
		deps := h.deps
		deps.Directory = h.directory
		deps.Messenger = conn
		clientID := h.directory.AllocateClientID()
		// The per-client logger must exist before Register: once the
		// session is registered, broadcasts may reach the connection.
		conn.logger = h.logger.With(zap.Int("client_id", clientID))
		sess = session.New(clientID, deps)
		h.directory.Register(sess)
	})
	clientID := sess.ClientID()

	defer func() {
		// Teardown happens at the loop's next idle point, never while
		// a handler may still hold the session.
		h.loop.Post(func() { h.directory.ScheduleRemoval(clientID) })
		conn.close()
	}()

	for {
		_, data, err := socket.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				conn.logger.Warn("websocket read failed", zap.Error(err))
			}
			return
		}
		select {
		case <-conn.closed:
			return
		default:
		}
		h.handleFrame(sess, conn, data)
	}
}

func (h *Handler) handleFrame(sess *session.Session, conn *connection, data []byte) {
	req, err := protocol.DecodeRequest(data)
	if err != nil {
		conn.logger.Warn("malformed request", zap.Error(err))
		h.loop.Post(func() { sess.Misbehave("Malformed message") })
		if frame, encErr := protocol.EncodeError("", err.Error()); encErr == nil {
			conn.enqueue(frame)
		}
		return
	}

	kind := req.RequestKind()
	if h.metrics != nil {
		h.metrics.RecordWSMessage("in", string(kind))
	}

	if protocol.OneWay(kind) {
		h.loop.Post(func() { sess.Dispatch(req) })
		return
	}

	var resp protocol.Response
	var violation string
	h.loop.Call(func() {
		resp = sess.Dispatch(req)
		if resp == nil {
			_, violation = sess.Misbehaved()
		}
	})

	var frame []byte
	var err2 error
	if resp != nil {
		frame, err2 = protocol.EncodeResponse(resp)
	} else {
		if violation == "" {
			violation = "request failed"
		}
		frame, err2 = protocol.EncodeError(kind, violation)
	}
	if err2 != nil {
		conn.logger.Error("response encode failed", zap.Error(err2))
		return
	}
	if h.metrics != nil {
		h.metrics.RecordWSMessage("out", string(kind))
	}
	conn.enqueue(frame)
}
