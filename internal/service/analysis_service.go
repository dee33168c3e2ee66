package service

import (
	"context"
	"fmt"
	"strings"

	"voice-dialogue-demo/backend/ai"
	"voice-dialogue-demo/backend/pkg/logger"
)

const tonePrompt = "Analyze the emotional tone and mood of the following text or conversation. " +
	"Describe how the speaker(s) might be feeling, and provide a short summary of the overall emotional context " +
	"in 2-3 sentences:\n\nText: %s"

// AnalysisService summarizes the emotional tone of a text.
type AnalysisService struct {
	generator ai.TextGenerator
	log       *logger.Logger
}

// NewAnalysisService creates an AnalysisService.
func NewAnalysisService(generator ai.TextGenerator, log *logger.Logger) *AnalysisService {
	return &AnalysisService{generator: generator, log: log.With("service", "AnalysisService")}
}

// Analyze returns a cleaned two or three sentence summary. Nothing is stored.
func (s *AnalysisService) Analyze(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", invalid("text", "text is required.")
	}

	out, err := s.generator.Generate(ctx, ai.AnalysisSystemPrompt, fmt.Sprintf(tonePrompt, text))
	if err != nil {
		s.log.Warn("tone analysis failed", "error", err.Error())
		if _, ok := ai.AsProviderError(err); ok {
			return "", err
		}
		return "", ai.NewProviderError("generator", 0, err)
	}

	summary := strings.TrimSpace(ai.CleanText(out))
	if summary == "" {
		return "", ai.NewProviderError("generator", 0, ai.ErrEmptyResponse)
	}
	return summary, nil
}
