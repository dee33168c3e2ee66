// Package ws holds the frames exchanged on the replay stream.
package ws

// Frame types sent by the server.
const (
	FrameTurn = "turn"
	FrameEnd  = "end"
)

// Frame is one JSON message on the stream.
type Frame struct {
	Type    string `json:"type"`
	Content any    `json:"content,omitempty"`
}

// TurnContent describes one turn of a replayed conversation.
type TurnContent struct {
	Index  int    `json:"index"`
	Side   string `json:"side"`
	Text   string `json:"text"`
	Audio  string `json:"audio"`
	Total  int    `json:"total"`
	ConvID string `json:"conversation_id"`
}
