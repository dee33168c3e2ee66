package models

import (
	"path"
	"strings"
)

// Avatar is a voice profile: a named voice on one side of the dialogue,
// mapped to a provider voice id and optionally a demo video.
type Avatar struct {
	Base
	Lifecycle
	Owned
	Side              Side   `gorm:"type:varchar(10);not null;index:idx_avatar_lookup,priority:2" json:"side"`
	AvatarName        string `gorm:"type:varchar(255)" json:"avatar_name"`
	VoiceName         string `gorm:"type:varchar(255);index:idx_avatar_lookup,priority:1" json:"voice_name"`
	ElevenLabsVoiceID string `gorm:"column:elevenlabs_voice_id;type:varchar(100)" json:"elevenlabs_voice_id"`
	Video             string `gorm:"type:varchar(512)" json:"video"`
}

// VideoKey is the blob key for an uploaded demo video, scoped to the avatar
// so uploads with the same file name never share a blob. It reports false
// when filename has no usable base name.
func (a *Avatar) VideoKey(filename string) (string, bool) {
	base := path.Base(strings.TrimSpace(filename))
	switch base {
	case "", ".", "..", "/":
		return "", false
	}
	return path.Join("video", a.Side.Key(), a.UID, base), true
}

// CreateAvatarRequest creates a voice profile. Only Side is mandatory.
type CreateAvatarRequest struct {
	Side              string `json:"side" binding:"required"`
	AvatarName        string `json:"avatar_name"`
	VoiceName         string `json:"voice_name"`
	ElevenLabsVoiceID string `json:"elevenlabs_voice_id"`
	Global            bool   `json:"global"`
}

// UpdateAvatarRequest is a partial update; nil fields are left untouched.
type UpdateAvatarRequest struct {
	Side              *string `json:"side"`
	AvatarName        *string `json:"avatar_name"`
	VoiceName         *string `json:"voice_name"`
	ElevenLabsVoiceID *string `json:"elevenlabs_voice_id"`
	Status            *string `json:"status"`
}
