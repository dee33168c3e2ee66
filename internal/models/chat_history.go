package models

import (
	"encoding/json"

	"gorm.io/datatypes"
)

// ChatHistory is a titled snapshot of a conversation's transcript taken at
// save time. Later turns do not change Chat.
type ChatHistory struct {
	Base
	Lifecycle
	Owned
	ConversationID string         `gorm:"type:varchar(255);index" json:"conversation_id"`
	Title          string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"title"`
	Chat           datatypes.JSON `json:"chat"`
}

// TableName keeps the historical table name.
func (ChatHistory) TableName() string {
	return "chat_histories"
}

// SnapshotChat serializes the chat list of a transcript as
// [{"user": "..."}, {"ai": "..."}].
func SnapshotChat(t *Transcript) (datatypes.JSON, error) {
	chat := t.ChatList
	if chat == nil {
		chat = []map[string]string{}
	}
	raw, err := json.Marshal(chat)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

// CreateChatHistoryRequest saves a conversation under a title.
type CreateChatHistoryRequest struct {
	Title          string `json:"title" binding:"required,max=255"`
	ConversationID string `json:"conversation_id" binding:"required"`
}

// UpdateChatHistoryRequest renames or deactivates a saved chat.
type UpdateChatHistoryRequest struct {
	Title  *string `json:"title" binding:"omitempty,max=255"`
	Status *string `json:"status"`
}

// ChatHistoryDetail pairs the frozen snapshot with the live projection of
// the same conversation. Snapshot is what was saved; ChatDict and AudioDict
// reflect current ACTIVE turns and may diverge from it.
type ChatHistoryDetail struct {
	ChatHistory    *ChatHistory        `json:"chat_history"`
	Title          string              `json:"title"`
	ConversationID string              `json:"conversation_id"`
	Snapshot       datatypes.JSON      `json:"snapshot"`
	ChatDict       []map[string]string `json:"chat_dict"`
	AudioDict      []map[string]string `json:"audio_dict"`
}

// AnalyzeRequest is the input of the tone analysis endpoint.
type AnalyzeRequest struct {
	Text string `json:"text"`
}

// AllModels lists every table for AutoMigrate.
func AllModels() []any {
	return []any{
		&User{},
		&Avatar{},
		&Mood{},
		&GeneratedAudio{},
		&ChatHistory{},
	}
}
