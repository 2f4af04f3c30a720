package ws

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/aedmark/OopisOS-sub001/internal/domain/session"
	"github.com/aedmark/OopisOS-sub001/internal/domain/vfs"
	"github.com/aedmark/OopisOS-sub001/internal/infrastructure/tracing"
	"github.com/aedmark/OopisOS-sub001/internal/shared/id"
	"github.com/aedmark/OopisOS-sub001/internal/shared/types"
	"github.com/aedmark/OopisOS-sub001/internal/shared/utils"
)

const writeTimeout = 10 * time.Second

// Recorder receives connection metrics. *monitoring.Metrics satisfies it.
type Recorder interface {
	RecordWSMessage(direction, msgType string)
	IncWSConnections()
	DecWSConnections()
}

type nopRecorder struct{}

func (nopRecorder) RecordWSMessage(string, string) {}
func (nopRecorder) IncWSConnections()              {}
func (nopRecorder) DecWSConnections()              {}

// Message is a client message.
type Message struct {
	Type string `json:"type"`
	Line string `json:"line,omitempty"`
}

// Handler attaches websocket clients to shell sessions. Every connection
// for a user sees everything that user's session presents, including
// background job notices.
type Handler struct {
	sessions *session.Manager
	metrics  Recorder
	tracer   *tracing.Tracer
	log      *zap.Logger
	upgrader websocket.Upgrader
}

// NewHandler creates a websocket handler. An origin list containing "*"
// accepts any origin.
func NewHandler(sessions *session.Manager, metrics Recorder, tracer *tracing.Tracer, logger *zap.Logger, allowedOrigins []string) *Handler {
	if metrics == nil {
		metrics = nopRecorder{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if tracer == nil {
		tracer = tracing.New("ws", logger)
	}
	return &Handler{
		sessions: sessions,
		metrics:  metrics,
		tracer:   tracer,
		log:      logger,
		upgrader: websocket.Upgrader{CheckOrigin: originChecker(allowedOrigins)},
	}
}

func originChecker(allowed []string) func(*http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

// conn serializes writes; gorilla allows one concurrent writer.
type conn struct {
	ws      *websocket.Conn
	mu      sync.Mutex
	metrics Recorder
	log     *zap.Logger
}

func (c *conn) send(payload map[string]interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := c.ws.WriteJSON(payload); err != nil {
		c.log.Debug("write failed", zap.Error(err))
		return err
	}
	if t, ok := payload["type"].(string); ok {
		c.metrics.RecordWSMessage("out", t)
	}
	return nil
}

func (c *conn) sendError(message string) error {
	return c.send(map[string]interface{}{
		"type":    "error",
		"message": message,
	})
}

// Present implements executor.Sink.
func (c *conn) Present(text string, hint types.PresentationHint) {
	c.send(map[string]interface{}{
		"type": "output",
		"text": text,
		"hint": hint,
	})
}

// HandleConnection serves GET /stream?user=NAME.
func (h *Handler) HandleConnection(c *gin.Context) {
	user := c.Query("user")
	if err := utils.ValidateUsername(user); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	reqCtx := c.Request.Context()
	s, err := h.sessions.Open(reqCtx, user)
	if err != nil {
		h.log.Error("failed to open session", zap.String("user", user), zap.Error(err))
		c.JSON(openStatus(err), gin.H{"error": "failed to open session"})
		return
	}

	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer ws.Close()

	connID := id.NewConnID()
	log := h.log.With(zap.String("conn", connID.String()), zap.String("user", user))
	cn := &conn{ws: ws, metrics: h.metrics, log: log}

	h.metrics.IncWSConnections()
	defer h.metrics.DecWSConnections()
	unsubscribe := s.Subscribe(cn)
	defer unsubscribe()

	log.Info("client connected")
	defer log.Info("client disconnected")

	cn.send(map[string]interface{}{
		"type":       "system",
		"message":    "Connected to OopisOS",
		"session_id": s.ID.String(),
		"conn_id":    connID.String(),
		"pending":    s.Pending(),
	})

	for {
		var msg Message
		if err := ws.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug("read ended", zap.Error(err))
			}
			return
		}
		h.metrics.RecordWSMessage("in", messageLabel(msg.Type))

		switch msg.Type {
		case "exec":
			h.handleExec(reqCtx, cn, s, msg)
		case "ping":
			cn.send(map[string]interface{}{"type": "pong"})
		default:
			cn.sendError("unknown message type")
		}
	}
}

func (h *Handler) handleExec(ctx context.Context, cn *conn, s *session.Session, msg Message) {
	span, ctx := h.tracer.StartSpan(ctx, "ws.exec")
	defer func() {
		span.Finish()
		h.tracer.Submit(span)
	}()

	out := s.Submit(ctx, msg.Line)
	span.SetTag("success", boolTag(out.Result.Success))

	cn.send(map[string]interface{}{
		"type":    "result",
		"result":  out.Result,
		"pending": out.Pending,
		"prompt":  out.Prompt,
	})
}

// messageLabel keeps client-chosen message types out of metric labels.
func messageLabel(kind string) string {
	switch kind {
	case "exec", "ping":
		return kind
	default:
		return "unknown"
	}
}

func boolTag(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func openStatus(err error) int {
	if errors.Is(err, vfs.ErrStoreUnavailable) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
