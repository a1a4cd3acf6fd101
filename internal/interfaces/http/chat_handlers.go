package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/factura-chat/internal/application/conversation"
	"github.com/garyjia/factura-chat/pkg/utils"
)

// SendMessageRequest is the body of POST /api/chat/sessions/:id/messages
type SendMessageRequest struct {
	Text string `json:"text"`
}

// ChatHandlers serve the conversation sessions
type ChatHandlers struct {
	sessions *conversation.Manager
	activity StatsProvider
	logger   Logger
}

// NewChatHandlers creates the chat handlers
func NewChatHandlers(sessions *conversation.Manager, activity StatsProvider, logger Logger) *ChatHandlers {
	return &ChatHandlers{
		sessions: sessions,
		activity: activity,
		logger:   logger,
	}
}

// CreateSession handles POST /api/chat/sessions
func (h *ChatHandlers) CreateSession(c *gin.Context) {
	ctrl := h.sessions.Create(c.Request.Context())
	c.JSON(http.StatusCreated, Response{Success: true, Data: ctrl.State()})
}

// GetSession handles GET /api/chat/sessions/:id
func (h *ChatHandlers) GetSession(c *gin.Context) {
	ctrl, err := h.sessions.Get(c.Param("id"))
	if err != nil {
		h.respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: ctrl.State()})
}

// SendMessage handles POST /api/chat/sessions/:id/messages
func (h *ChatHandlers) SendMessage(c *gin.Context) {
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	st, err := h.sessions.Send(c.Request.Context(), c.Param("id"), utils.SanitizeString(req.Text))
	if err != nil {
		h.respondError(c, err, &st)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: st})
}

// ClearSession handles POST /api/chat/sessions/:id/clear
func (h *ChatHandlers) ClearSession(c *gin.Context) {
	st, err := h.sessions.Clear(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err, &st)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: st})
}

// DeleteSession handles DELETE /api/chat/sessions/:id
func (h *ChatHandlers) DeleteSession(c *gin.Context) {
	if err := h.sessions.Delete(c.Param("id")); err != nil {
		h.respondError(c, err, nil)
		return
	}
	c.Status(http.StatusNoContent)
}

// Stats handles GET /api/chat/stats
func (h *ChatHandlers) Stats(c *gin.Context) {
	if h.activity == nil {
		c.JSON(http.StatusNotImplemented, Response{Success: false, Error: "stats not configured"})
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: h.activity.Stats()})
}

// respondError maps conversation errors to status codes. The session state, when
// known, is returned alongside so clients can resync.
func (h *ChatHandlers) respondError(c *gin.Context, err error, st *conversation.State) {
	var status int
	switch {
	case errors.Is(err, conversation.ErrSessionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, conversation.ErrBusy):
		status = http.StatusConflict
	case errors.Is(err, conversation.ErrEmptyMessage):
		status = http.StatusBadRequest
	default:
		status = http.StatusInternalServerError
		h.logger.Error("Chat request failed", "path", c.Request.URL.Path, "error", err)
	}

	resp := Response{Success: false, Error: err.Error()}
	if st != nil && st.ID != "" {
		resp.Data = st
	}
	c.JSON(status, resp)
}
