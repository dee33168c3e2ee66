package ws

import (
	"context"
	stderrors "errors"
	"net/http"
	"time"

	"voice-dialogue-demo/backend/internal/models"
	"voice-dialogue-demo/backend/internal/service"
	"voice-dialogue-demo/backend/pkg/errors"
	"voice-dialogue-demo/backend/pkg/logger"
	"voice-dialogue-demo/backend/pkg/middleware"
	frames "voice-dialogue-demo/backend/pkg/ws"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the close acknowledgement from the peer
	closeWait = 5 * time.Second
)

// TranscriptSource rebuilds the transcript of a conversation.
type TranscriptSource interface {
	Replay(ctx context.Context, conversationID string, ownerID uint) (*models.Transcript, error)
}

// ReplayStreamer plays a stored conversation back over a WebSocket, one
// turn per frame, so clients can start audio playback before the whole
// transcript has arrived.
type ReplayStreamer struct {
	source   TranscriptSource
	upgrader websocket.Upgrader
	log      *logger.Logger
}

// NewReplayStreamer creates a streamer. An empty allowedOrigins or "*" accepts any origin.
func NewReplayStreamer(source TranscriptSource, allowedOrigins []string, log *logger.Logger) *ReplayStreamer {
	return &ReplayStreamer{
		source: source,
		upgrader: websocket.Upgrader{
			CheckOrigin:      originChecker(allowedOrigins),
			HandshakeTimeout: 10 * time.Second,
			ReadBufferSize:   1024,
			WriteBufferSize:  1024,
		},
		log: log,
	}
}

// Serve handles GET /replay-dialogue/ws?conversation_id=...
// Lookup failures are reported as HTTP errors before the upgrade.
func (s *ReplayStreamer) Serve(c *gin.Context) {
	claims, ok := middleware.ClaimsFrom(c)
	if !ok {
		_ = c.Error(errors.NewUnauthorizedError("AUTH_REQUIRED", "Authentication required"))
		c.Abort()
		return
	}

	conversationID := c.Query("conversation_id")
	transcript, err := s.source.Replay(c.Request.Context(), conversationID, claims.UserID)
	if err != nil {
		switch {
		case stderrors.Is(err, service.ErrConversationIDRequired):
			_ = c.Error(errors.NewBadRequestError("CONVERSATION_ID_REQUIRED", "conversation_id is required."))
		case stderrors.Is(err, service.ErrConversationNotFound):
			_ = c.Error(errors.NewNotFoundError("CONVERSATION_NOT_FOUND", "No data found for this conversation_id."))
		default:
			_ = c.Error(err)
		}
		c.Abort()
		return
	}

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Warn("WebSocket upgrade failed", "error", err.Error())
		return
	}
	defer conn.Close()

	log := s.log.With("conversation_id", conversationID, "user_id", claims.UserID)
	if err := stream(conn, transcript); err != nil {
		log.Warn("Replay stream interrupted", "error", err.Error())
		return
	}
	log.Debug("Replay stream completed", "turns", transcript.Len())
}

func stream(conn *websocket.Conn, t *models.Transcript) error {
	total := t.Len()
	for i := range t.ChatList {
		for side, text := range t.ChatList[i] {
			frame := frames.Frame{
				Type: frames.FrameTurn,
				Content: frames.TurnContent{
					Index:  i,
					Side:   side,
					Text:   text,
					Audio:  t.AudioList[i][side],
					Total:  total,
					ConvID: t.ConversationID,
				},
			}
			if err := writeJSON(conn, frame); err != nil {
				return err
			}
		}
	}

	if err := writeJSON(conn, frames.Frame{Type: frames.FrameEnd}); err != nil {
		return err
	}

	deadline := time.Now().Add(closeWait)
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "replay complete")
	if err := conn.WriteControl(websocket.CloseMessage, msg, deadline); err != nil {
		return err
	}
	_ = conn.SetReadDeadline(deadline)
	for {
		if _, _, err := conn.NextReader(); err != nil {
			return nil
		}
	}
}

func writeJSON(conn *websocket.Conn, v any) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteJSON(v)
}

func originChecker(allowed []string) func(*http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = true
	}
	if len(set) == 0 {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || set[origin]
	}
}

