package service

import (
	"errors"
	"fmt"
)

var (
	ErrUserAlreadyExists  = errors.New("user with this email already exists")
	ErrUsernameTaken      = errors.New("username is already taken")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserNotFound       = errors.New("user not found")
	ErrInactiveUser       = errors.New("user account is inactive")
	ErrWrongPassword      = errors.New("current password is incorrect")
	ErrInvalidToken       = errors.New("invalid or expired token")

	ErrForbidden     = errors.New("not allowed to modify this resource")
	ErrInvalidSide   = errors.New("side must be USER or AI")
	ErrInvalidStatus = errors.New("status must be ACTIVE or INACTIVE")

	ErrAvatarNotFound = errors.New("avatar not found")
	ErrMoodNotFound   = errors.New("mood not found")
	ErrVoiceNotFound  = errors.New("unknown voice selection")
	ErrUnknownMode    = errors.New("unknown mode")

	ErrConversationIDRequired = errors.New("conversation_id is required")
	ErrConversationNotFound   = errors.New("no turns found for conversation")

	ErrChatHistoryNotFound = errors.New("chat history not found")
	ErrTitleTaken          = errors.New("a chat history with this title already exists")
)

// ValidationError reports a malformed request field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// ErrReplyTextRequired is returned when a reply is scripted but empty.
var ErrReplyTextRequired = invalid("reply_text", "User must provide a reply text")
