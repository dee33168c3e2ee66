package models

import "fmt"

// GeneratedAudio is one turn of a conversation: a side, its text and the
// synthesized audio. Turns of a conversation share ConversationID and are
// ordered by creation time.
type GeneratedAudio struct {
	Base
	Lifecycle
	Owned
	ConversationID string `gorm:"type:varchar(255);index" json:"conversation_id"`
	Text           string `gorm:"type:text" json:"text"`
	Audio          string `gorm:"type:varchar(512)" json:"audio"`
	SenderType     Side   `gorm:"type:varchar(10);not null" json:"sender_type"`
}

// TableName keeps the historical table name.
func (GeneratedAudio) TableName() string {
	return "generated_audios"
}

// AudioKey is the blob key for one side of a request's audio.
func AudioKey(side Side, audioID string) string {
	return fmt.Sprintf("audio/%s_%s.mp3", side.Key(), audioID)
}

// SpeakRequest drives the reply orchestrator.
type SpeakRequest struct {
	Text           string `json:"text"`
	Mode           string `json:"mode"`
	ConversationID string `json:"conversation_id"`
	UserVoiceName  string `json:"user_voice_name"`
	AIVoiceName    string `json:"ai_voice_name"`
	ReplyAs        string `json:"reply_as"`
	ReplyText      string `json:"reply_text"`
	SenderType     string `json:"sender_type"`
}

// SpeakResponse is returned by a successful speak call. Audio fields are
// omitted for a side that was not recorded.
type SpeakResponse struct {
	Reply          string `json:"reply,omitempty"`
	UserAudio      string `json:"user_audio,omitempty"`
	AIAudio        string `json:"ai_audio,omitempty"`
	ConversationID string `json:"conversation_id"`
}

// ReplayRequest names the conversation to reconstruct.
type ReplayRequest struct {
	ConversationID string `json:"conversation_id" form:"conversation_id"`
}

// Transcript is the ordered reconstruction of a conversation. Entry n of
// ChatList and AudioList describe the same turn.
type Transcript struct {
	ConversationID string              `json:"conversation_id"`
	ChatList       []map[string]string `json:"chat_list"`
	AudioList      []map[string]string `json:"audio_list"`
}

// Len returns the number of turns.
func (t *Transcript) Len() int {
	return len(t.ChatList)
}

// TranscriptFrom projects ordered turns into a Transcript.
func TranscriptFrom(conversationID string, turns []GeneratedAudio) *Transcript {
	t := &Transcript{
		ConversationID: conversationID,
		ChatList:       make([]map[string]string, 0, len(turns)),
		AudioList:      make([]map[string]string, 0, len(turns)),
	}
	for _, turn := range turns {
		key := turn.SenderType.Key()
		t.ChatList = append(t.ChatList, map[string]string{key: turn.Text})
		t.AudioList = append(t.AudioList, map[string]string{key: turn.Audio})
	}
	return t
}
