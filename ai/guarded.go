package ai

import (
	"context"
	"errors"

	"voice-dialogue-demo/backend/pkg/resilience"
)

// GuardedSynthesizer routes calls through a circuit breaker so a failing
// provider is skipped quickly. An open circuit surfaces as a ProviderError.
type GuardedSynthesizer struct {
	inner   Synthesizer
	breaker *resilience.CircuitBreaker
	name    string
}

// NewGuardedSynthesizer wraps inner with breaker.
func NewGuardedSynthesizer(name string, inner Synthesizer, breaker *resilience.CircuitBreaker) *GuardedSynthesizer {
	return &GuardedSynthesizer{inner: inner, breaker: breaker, name: name}
}

// Synthesize implements Synthesizer.
func (g *GuardedSynthesizer) Synthesize(ctx context.Context, text, voiceID string) ([]byte, error) {
	var audio []byte
	err := g.breaker.Execute(ctx, func(ctx context.Context) error {
		var err error
		audio, err = g.inner.Synthesize(ctx, text, voiceID)
		return err
	})
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return nil, NewProviderError(g.name, 0, err)
	}
	return audio, err
}

// GuardedGenerator is the TextGenerator counterpart of GuardedSynthesizer.
type GuardedGenerator struct {
	inner   TextGenerator
	breaker *resilience.CircuitBreaker
	name    string
}

// NewGuardedGenerator wraps inner with breaker.
func NewGuardedGenerator(name string, inner TextGenerator, breaker *resilience.CircuitBreaker) *GuardedGenerator {
	return &GuardedGenerator{inner: inner, breaker: breaker, name: name}
}

// Generate implements TextGenerator.
func (g *GuardedGenerator) Generate(ctx context.Context, system, prompt string) (string, error) {
	var out string
	err := g.breaker.Execute(ctx, func(ctx context.Context) error {
		var err error
		out, err = g.inner.Generate(ctx, system, prompt)
		return err
	})
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return "", NewProviderError(g.name, 0, err)
	}
	return out, err
}
