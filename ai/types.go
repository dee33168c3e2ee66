// Package ai holds the text generation and speech synthesis providers.
package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// System prompts passed to TextGenerator.Generate.
const (
	ReplySystemPrompt    = "You are an AI character replying in a conversation."
	AnalysisSystemPrompt = "You analyze the emotional tone of text. Answer in plain prose."
)

var (
	ErrNotConfigured = errors.New("provider not configured")
	ErrEmptyResponse = errors.New("provider returned an empty response")
	ErrNoVoice       = errors.New("no voice id supplied")
)

// TextGenerator produces a completion for prompt under the system
// instruction system. An empty system sends prompt alone.
type TextGenerator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}

// Synthesizer turns text into MP3 bytes spoken with voiceID.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voiceID string) ([]byte, error)
}

// ProviderError is returned for any upstream failure: transport errors,
// non-success statuses, timeouts and empty payloads. Callers branch on it
// with errors.As to decide on fallbacks.
type ProviderError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the failure was a deadline.
func (e *ProviderError) Timeout() bool {
	return errors.Is(e.Err, context.DeadlineExceeded)
}

// NewProviderError builds a ProviderError for provider.
func NewProviderError(provider string, status int, err error) *ProviderError {
	return &ProviderError{Provider: provider, StatusCode: status, Err: err}
}

// AsProviderError unwraps err into a *ProviderError.
func AsProviderError(err error) (*ProviderError, bool) {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// IsProviderFault reports whether err means the provider itself is unhealthy
// rather than rejecting a single request. Circuit breakers count only these:
// a missing voice id or a 4xx for one caller's bad input must not trip the
// provider for everyone.
func IsProviderFault(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, ErrNoVoice) || errors.Is(err, ErrNotConfigured) {
		return false
	}
	pe, ok := AsProviderError(err)
	if !ok || pe.StatusCode < 400 || pe.StatusCode >= 500 {
		return true
	}
	switch pe.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusRequestTimeout, http.StatusTooManyRequests:
		return true
	}
	return false
}
