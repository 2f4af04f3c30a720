package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aedmark/OopisOS-sub001/internal/domain/executor"
	"github.com/aedmark/OopisOS-sub001/internal/domain/session"
	"github.com/aedmark/OopisOS-sub001/internal/domain/vfs"
	"github.com/aedmark/OopisOS-sub001/internal/infrastructure/tracing"
	"github.com/aedmark/OopisOS-sub001/internal/shared/utils"
)

// Version is reported by the root endpoint.
const Version = "0.4.0"

// Handlers contains the HTTP handlers for the shell API.
type Handlers struct {
	sessions *session.Manager
	log      *zap.Logger
}

// NewHandlers creates a handler set.
func NewHandlers(sessions *session.Manager, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{sessions: sessions, log: logger}
}

// ExecRequest is the body of POST /sessions/:user/exec.
type ExecRequest struct {
	Line string `json:"line"`
}

// ExecResponse reports one submitted line and everything the session
// presented while it ran.
type ExecResponse struct {
	SessionID string `json:"session_id"`
	session.Outcome
	Output []executor.Entry `json:"output"`
}

// Root reports the service identity.
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "OopisOS shell",
		"version": Version,
	})
}

// Health reports session statistics.
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"sessions": h.sessions.Stats(),
	})
}

// Exec submits one line to the user's session. If the session is parked
// at a confirmation the line answers it.
func (h *Handlers) Exec(c *gin.Context) {
	user := c.Param("user")
	if err := utils.ValidateUsername(user); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var req ExecRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := utils.ValidateCommandLine(req.Line); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	s, err := h.sessions.Open(ctx, user)
	if err != nil {
		h.log.Error("failed to open session", zap.String("user", user), zap.Error(err))
		c.JSON(openStatus(err), gin.H{"error": "failed to open session"})
		return
	}

	rec := &executor.RecorderSink{}
	unsubscribe := s.Subscribe(rec)
	out := s.Submit(ctx, req.Line)
	unsubscribe()

	h.log.Debug("line executed",
		zap.String("user", user),
		zap.String("trace_id", string(tracing.GetTraceID(ctx))),
		zap.Bool("success", out.Result.Success),
		zap.Bool("pending", out.Pending),
	)

	c.JSON(http.StatusOK, ExecResponse{
		SessionID: s.ID.String(),
		Outcome:   out,
		Output:    rec.Drain(),
	})
}

// Save persists the user's tree now.
func (h *Handlers) Save(c *gin.Context) {
	user := c.Param("user")
	s, ok := h.sessions.Get(user)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no open session for " + user})
		return
	}

	if err := s.Save(c.Request.Context()); err != nil {
		h.log.Warn("save failed", zap.String("user", user), zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "user": user})
}

// Remove closes the user's session and deletes the stored tree.
func (h *Handlers) Remove(c *gin.Context) {
	user := c.Param("user")
	if err := utils.ValidateUsername(user); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.sessions.Remove(c.Request.Context(), user); err != nil {
		h.log.Error("remove failed", zap.String("user", user), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "user": user})
}

// Jobs lists the user's background jobs.
func (h *Handlers) Jobs(c *gin.Context) {
	user := c.Param("user")
	s, ok := h.sessions.Get(user)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no open session for " + user})
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobs": s.Jobs()})
}

// openStatus maps a session open failure to a status code. An unreadable
// store is temporary, so clients are told to retry.
func openStatus(err error) int {
	if errors.Is(err, vfs.ErrStoreUnavailable) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
