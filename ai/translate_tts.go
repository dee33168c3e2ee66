package ai

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	translateProvider = "translate-tts"
	// the endpoint rejects longer fragments
	maxFragmentLen = 100
)

// TranslateTTSConfig configures the fallback synthesizer.
type TranslateTTSConfig struct {
	BaseURL  string
	Language string
	Timeout  time.Duration
}

// TranslateSynthesizer speaks text with the public Google Translate voice.
// It has a single voice per language, so the voice id is ignored.
type TranslateSynthesizer struct {
	cfg        TranslateTTSConfig
	httpClient *http.Client
}

// NewTranslateSynthesizer creates the fallback synthesizer.
func NewTranslateSynthesizer(cfg TranslateTTSConfig, httpClient *http.Client) *TranslateSynthesizer {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://translate.google.com/translate_tts"
	}
	if cfg.Language == "" {
		cfg.Language = "en"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 20 * time.Second
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &TranslateSynthesizer{cfg: cfg, httpClient: httpClient}
}

// Synthesize fetches one MP3 per fragment and concatenates the frames.
func (s *TranslateSynthesizer) Synthesize(ctx context.Context, text, _ string) ([]byte, error) {
	fragments := splitFragments(text, maxFragmentLen)
	if len(fragments) == 0 {
		return nil, NewProviderError(translateProvider, 0, fmt.Errorf("no speakable text"))
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	var audio bytes.Buffer
	for i, fragment := range fragments {
		if err := s.fetch(ctx, &audio, fragment, i, len(fragments)); err != nil {
			return nil, err
		}
	}

	return audio.Bytes(), nil
}

func (s *TranslateSynthesizer) fetch(ctx context.Context, dst *bytes.Buffer, fragment string, idx, total int) error {
	q := url.Values{}
	q.Set("ie", "UTF-8")
	q.Set("client", "tw-ob")
	q.Set("tl", s.cfg.Language)
	q.Set("q", fragment)
	q.Set("total", strconv.Itoa(total))
	q.Set("idx", strconv.Itoa(idx))
	q.Set("textlen", strconv.Itoa(len(fragment)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.BaseURL+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("create fallback tts request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")
	req.Header.Set("Referer", "http://translate.google.com/")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return NewProviderError(translateProvider, 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return NewProviderError(translateProvider, resp.StatusCode, fmt.Errorf("fragment %d of %d rejected", idx+1, total))
	}

	n, err := io.Copy(dst, resp.Body)
	if err != nil {
		return NewProviderError(translateProvider, resp.StatusCode, err)
	}
	if n == 0 {
		return NewProviderError(translateProvider, resp.StatusCode, ErrEmptyResponse)
	}
	return nil
}

// splitFragments breaks text on whitespace into pieces of at most limit
// bytes. Words longer than limit are cut.
func splitFragments(text string, limit int) []string {
	var (
		out     []string
		current strings.Builder
	)
	flush := func() {
		if current.Len() > 0 {
			out = append(out, current.String())
			current.Reset()
		}
	}

	for _, word := range strings.Fields(text) {
		for len(word) > limit {
			flush()
			out = append(out, word[:limit])
			word = word[limit:]
		}
		if current.Len() > 0 && current.Len()+1+len(word) > limit {
			flush()
		}
		if current.Len() > 0 {
			current.WriteByte(' ')
		}
		current.WriteString(word)
	}
	flush()

	return out
}
