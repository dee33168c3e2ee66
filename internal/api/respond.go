package api

import (
	stderrors "errors"
	"strconv"

	"voice-dialogue-demo/backend/ai"
	"voice-dialogue-demo/backend/internal/service"
	"voice-dialogue-demo/backend/pkg/errors"
	"voice-dialogue-demo/backend/pkg/middleware"

	"github.com/gin-gonic/gin"
)

type sentinel struct {
	err   error
	build func(code, message string) *errors.AppError
	code  string
	msg   string
}

// sentinels maps service errors to client-facing errors. Order matters only
// for errors that wrap one another.
var sentinels = []sentinel{
	{service.ErrConversationIDRequired, errors.NewBadRequestError, "CONVERSATION_ID_REQUIRED", "conversation_id is required."},
	{service.ErrConversationNotFound, errors.NewNotFoundError, "CONVERSATION_NOT_FOUND", "No data found for this conversation_id."},
	{service.ErrVoiceNotFound, errors.NewBadRequestError, "UNKNOWN_VOICE", "Unknown voice selection"},
	{service.ErrUnknownMode, errors.NewBadRequestError, "UNKNOWN_MODE", "Unknown mode"},
	{service.ErrInvalidSide, errors.NewBadRequestError, "INVALID_SIDE", "Side must be USER or AI"},
	{service.ErrInvalidStatus, errors.NewBadRequestError, "INVALID_STATUS", "Status must be ACTIVE or INACTIVE"},
	{service.ErrWrongPassword, errors.NewBadRequestError, "WRONG_PASSWORD", "Current password is incorrect"},
	{service.ErrInvalidCredentials, errors.NewUnauthorizedError, "INVALID_CREDENTIALS", "Invalid email or password"},
	{service.ErrInvalidToken, errors.NewUnauthorizedError, "INVALID_TOKEN", "Invalid or expired token"},
	{service.ErrInactiveUser, errors.NewForbiddenError, "ACCOUNT_INACTIVE", "This account is inactive"},
	{service.ErrForbidden, errors.NewForbiddenError, "FORBIDDEN", "You are not allowed to modify this resource"},
	{service.ErrUserNotFound, errors.NewNotFoundError, "USER_NOT_FOUND", "User not found"},
	{service.ErrAvatarNotFound, errors.NewNotFoundError, "AVATAR_NOT_FOUND", "Avatar not found"},
	{service.ErrMoodNotFound, errors.NewNotFoundError, "MOOD_NOT_FOUND", "Mood not found"},
	{service.ErrChatHistoryNotFound, errors.NewNotFoundError, "CHAT_HISTORY_NOT_FOUND", "Chat history not found"},
	{service.ErrUserAlreadyExists, errors.NewConflictError, "USER_EXISTS", "A user with this email already exists"},
	{service.ErrUsernameTaken, errors.NewConflictError, "USERNAME_TAKEN", "This username is already taken"},
	{service.ErrTitleTaken, errors.NewConflictError, "TITLE_TAKEN", "A chat history with this title already exists"},
}

// toAppError converts a service error into the error rendered to the client.
func toAppError(err error) *errors.AppError {
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}

	if pe, ok := ai.AsProviderError(err); ok {
		details := gin.H{"provider": pe.Provider}
		if pe.Timeout() {
			details["timeout"] = true
		}
		return errors.NewBadGatewayError("PROVIDER_ERROR", "An upstream provider failed").
			WithDetails(details).
			WithCause(err)
	}

	var verr *service.ValidationError
	if stderrors.As(err, &verr) {
		appErr := errors.NewBadRequestError("VALIDATION_ERROR", verr.Message).WithCause(err)
		if verr.Field != "" {
			appErr.WithDetails(gin.H{"field": verr.Field})
		}
		return appErr
	}

	for _, s := range sentinels {
		if stderrors.Is(err, s.err) {
			return s.build(s.code, s.msg).WithCause(err)
		}
	}
	return errors.FromError(err)
}

// respondError hands err to the error middleware and stops the chain.
func respondError(c *gin.Context, err error) {
	_ = c.Error(toAppError(err))
	c.Abort()
}

func bindError(c *gin.Context, err error) {
	respondError(c, errors.BadRequestWithDetails("INVALID_REQUEST", "Invalid request format", err.Error()))
}

// actorFrom returns the authenticated caller, rendering 401 when there is none.
func actorFrom(c *gin.Context) (service.Actor, bool) {
	claims, ok := middleware.ClaimsFrom(c)
	if !ok {
		respondError(c, errors.NewUnauthorizedError("AUTH_REQUIRED", "Authentication required"))
		return service.Actor{}, false
	}
	return service.ActorFromClaims(claims), true
}

func idParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		respondError(c, errors.NewBadRequestError("INVALID_ID", name+" must be a positive number"))
		return 0, false
	}
	return uint(id), true
}
