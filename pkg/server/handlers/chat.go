package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sjvalley/go-airchat/pkg/agent"
	"github.com/sjvalley/go-airchat/pkg/server/dto"
)

// ChatHandler handles chat requests
type ChatHandler struct {
	workflow *agent.Workflow
}

// NewChatHandler creates a new chat handler
func NewChatHandler(workflow *agent.Workflow) *ChatHandler {
	return &ChatHandler{workflow: workflow}
}

// Chat handles POST /chat
func (h *ChatHandler) Chat(c *gin.Context) {
	var req dto.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "invalid_request",
			Message: err.Error(),
		})
		return
	}

	state, err := h.workflow.Run(c.Request.Context(), req.Message, req.Location)
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "workflow_failed",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, dto.ChatResponse{
		Answer:        state.Answer,
		Sources:       toSourceRefs(state.Sources),
		QueryType:     string(state.QueryType),
		NeedsLocation: state.NeedsLocation,
	})
}

// ChatStream handles POST /chat/stream, emitting workflow events as
// server-sent events named by the event type.
func (h *ChatHandler) ChatStream(c *gin.Context) {
	var req dto.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "invalid_request",
			Message: err.Error(),
		})
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	events := h.workflow.RunStream(c.Request.Context(), req.Message, req.Location)
	c.Stream(func(w io.Writer) bool {
		event, ok := <-events
		if !ok {
			return false
		}
		c.SSEvent(string(event.Type), event)
		return true
	})
}

func toSourceRefs(sources []agent.Source) []dto.SourceRef {
	refs := make([]dto.SourceRef, len(sources))
	for i, s := range sources {
		refs[i] = dto.SourceRef{URL: s.URL, Title: s.Title}
	}
	return refs
}
