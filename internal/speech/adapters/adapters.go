// Package adapters constructs speech.Adapter instances by provider name.
// It lives outside package speech so the interface package stays free of
// provider dependencies.
package adapters

import (
	"context"
	"fmt"
	"strings"

	"ai-voice-intake-service/internal/speech"
	"ai-voice-intake-service/internal/speech/gcp"
	"ai-voice-intake-service/internal/speech/gemini"
	"ai-voice-intake-service/internal/speech/mock"
)

// Factory creates one adapter per session for a fixed provider.
type Factory struct {
	provider string
	cfg      speech.Config
}

// NewFactory validates the provider name and returns a Factory. Supported
// providers are "gemini", "gcp" and "mock".
func NewFactory(provider string, cfg speech.Config) (*Factory, error) {
	p := strings.ToLower(strings.TrimSpace(provider))
	switch p {
	case "gemini", "gcp", "mock":
		return &Factory{provider: p, cfg: cfg}, nil
	default:
		return nil, fmt.Errorf("unknown speech provider %q", provider)
	}
}

// Provider returns the validated provider name.
func (f *Factory) Provider() string { return f.provider }

// New creates a fresh adapter for one session. The system instruction
// varies per session, so it is passed separately from the shared config.
func (f *Factory) New(ctx context.Context, systemInstruction string) (speech.Adapter, error) {
	cfg := f.cfg
	cfg.SystemInstruction = systemInstruction

	switch f.provider {
	case "gemini":
		return gemini.New(ctx, cfg)
	case "gcp":
		return gcp.New(ctx, cfg)
	default:
		return mock.New(cfg), nil
	}
}
