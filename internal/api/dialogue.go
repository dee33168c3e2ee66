package api

import (
	stderrors "errors"
	"io"
	"net/http"

	"voice-dialogue-demo/backend/internal/models"
	"voice-dialogue-demo/backend/internal/service"

	"github.com/gin-gonic/gin"
)

// DialogueHandler serves the speak, replay and analyze endpoints
type DialogueHandler struct {
	reply    *service.ReplyService
	turns    *service.TurnService
	analysis *service.AnalysisService
}

// NewDialogueHandler creates a DialogueHandler
func NewDialogueHandler(reply *service.ReplyService, turns *service.TurnService, analysis *service.AnalysisService) *DialogueHandler {
	return &DialogueHandler{reply: reply, turns: turns, analysis: analysis}
}

// Speak records one exchange and returns the reply with its audio references
func (h *DialogueHandler) Speak(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	var req models.SpeakRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	resp, err := h.reply.Speak(c.Request.Context(), actor, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Replay returns the ordered transcript of a conversation. The id may come
// from a JSON body, a form field or the query string.
func (h *DialogueHandler) Replay(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	var req models.ReplayRequest
	if err := c.ShouldBind(&req); err != nil && !stderrors.Is(err, io.EOF) {
		bindError(c, err)
		return
	}
	if req.ConversationID == "" {
		req.ConversationID = c.Query("conversation_id")
	}

	transcript, err := h.turns.Replay(c.Request.Context(), req.ConversationID, actor.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, transcript)
}

// Analyze summarizes the emotional tone of a text
func (h *DialogueHandler) Analyze(c *gin.Context) {
	var req models.AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil && !stderrors.Is(err, io.EOF) {
		bindError(c, err)
		return
	}

	summary, err := h.analysis.Analyze(c.Request.Context(), req.Text)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"summary": summary})
}
