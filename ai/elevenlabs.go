package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const elevenLabsProvider = "elevenlabs"

// ElevenLabsConfig configures the primary speech provider.
type ElevenLabsConfig struct {
	APIKey          string
	BaseURL         string
	ModelID         string
	Stability       float64
	SimilarityBoost float64
	Timeout         time.Duration
}

// ElevenLabsSynthesizer calls the ElevenLabs text-to-speech endpoint.
type ElevenLabsSynthesizer struct {
	cfg        ElevenLabsConfig
	httpClient *http.Client
}

// NewElevenLabsSynthesizer creates the primary synthesizer.
func NewElevenLabsSynthesizer(cfg ElevenLabsConfig, httpClient *http.Client) *ElevenLabsSynthesizer {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.elevenlabs.io/v1"
	}
	if cfg.ModelID == "" {
		cfg.ModelID = "eleven_multilingual_v2"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	return &ElevenLabsSynthesizer{cfg: cfg, httpClient: httpClient}
}

type elevenLabsRequest struct {
	Text          string `json:"text"`
	ModelID       string `json:"model_id"`
	VoiceSettings struct {
		Stability       float64 `json:"stability"`
		SimilarityBoost float64 `json:"similarity_boost"`
	} `json:"voice_settings"`
}

// Synthesize returns MP3 audio of text spoken by voiceID.
func (s *ElevenLabsSynthesizer) Synthesize(ctx context.Context, text, voiceID string) ([]byte, error) {
	if s.cfg.APIKey == "" {
		return nil, NewProviderError(elevenLabsProvider, 0, ErrNotConfigured)
	}
	if strings.TrimSpace(voiceID) == "" {
		return nil, NewProviderError(elevenLabsProvider, 0, ErrNoVoice)
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	body := elevenLabsRequest{Text: text, ModelID: s.cfg.ModelID}
	body.VoiceSettings.Stability = s.cfg.Stability
	body.VoiceSettings.SimilarityBoost = s.cfg.SimilarityBoost

	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal tts request: %w", err)
	}

	endpoint := strings.TrimRight(s.cfg.BaseURL, "/") + "/text-to-speech/" + url.PathEscape(voiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("create tts request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")
	req.Header.Set("xi-api-key", s.cfg.APIKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, NewProviderError(elevenLabsProvider, 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, NewProviderError(elevenLabsProvider, resp.StatusCode, fmt.Errorf("unexpected response: %s", strings.TrimSpace(string(msg))))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewProviderError(elevenLabsProvider, resp.StatusCode, err)
	}
	if len(audio) == 0 {
		return nil, NewProviderError(elevenLabsProvider, resp.StatusCode, ErrEmptyResponse)
	}

	return audio, nil
}
