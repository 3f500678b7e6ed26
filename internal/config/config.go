// Package config loads service configuration from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Configuration holds all settings for the intake service.
type Configuration struct {
	Service ServiceConfig
	Firm    FirmConfig
	Speech  SpeechConfig
	Session SessionConfig
	Webhook WebhookConfig
	Kafka   KafkaConfig
}

// ServiceConfig holds the HTTP listener settings.
type ServiceConfig struct {
	HTTPAddr string
	ObsAddr  string
}

// FirmConfig identifies the firm the intake agent represents.
type FirmConfig struct {
	ClientID      string
	FirmName      string
	AssistantName string
	PracticeAreas []string
	Tone          string
	Instructions  string
}

// SpeechConfig selects and configures the speech provider.
type SpeechConfig struct {
	Provider           string // gemini, gcp, mock
	Model              string
	APIKey             string
	Voice              string
	LanguageCode       string
	InputSampleRateHz  int
	OutputSampleRateHz int
	FrameSamples       int
}

// SessionConfig holds per-session guardrails.
type SessionConfig struct {
	MaxDuration          time.Duration
	MaxAudioBytes        int64
	MinConversationChars int
}

// WebhookConfig holds lead delivery settings.
type WebhookConfig struct {
	URL     string
	Source  string
	Timeout time.Duration
}

// KafkaConfig holds event publishing settings.
type KafkaConfig struct {
	Enabled         bool
	Brokers         []string
	TopicTranscript string
	TopicLead       string
	Principal       string
}

// Load reads the configuration from the environment, applying defaults
// for everything not set. The mock speech provider is the default so the
// service runs without any cloud credentials.
func Load() *Configuration {
	return &Configuration{
		Service: ServiceConfig{
			HTTPAddr: envOrDefault("HTTP_ADDR", ":8080"),
			ObsAddr:  envOrDefault("OBS_ADDR", ":9090"),
		},
		Firm: FirmConfig{
			ClientID:      envOrDefault("FIRM_CLIENT_ID", "firm-demo"),
			FirmName:      envOrDefault("FIRM_NAME", "Demo Legal Group"),
			AssistantName: envOrDefault("FIRM_ASSISTANT_NAME", "Sarah"),
			PracticeAreas: envList("FIRM_PRACTICE_AREAS", []string{"Criminal Defense", "DUI/DWI", "Personal Injury", "Family Law"}),
			Tone:          envOrDefault("FIRM_TONE", "professional"),
			Instructions:  os.Getenv("FIRM_INSTRUCTIONS"),
		},
		Speech: SpeechConfig{
			Provider:           envOrDefault("SPEECH_PROVIDER", "mock"),
			Model:              envOrDefault("SPEECH_MODEL", "gemini-2.5-flash-native-audio-preview-09-2025"),
			APIKey:             os.Getenv("GEMINI_API_KEY"),
			Voice:              envOrDefault("SPEECH_VOICE", "Kore"),
			LanguageCode:       envOrDefault("SPEECH_LANGUAGE", "en-US"),
			InputSampleRateHz:  envInt("SPEECH_INPUT_SAMPLE_RATE", 16000),
			OutputSampleRateHz: envInt("SPEECH_OUTPUT_SAMPLE_RATE", 24000),
			FrameSamples:       envInt("SPEECH_FRAME_SAMPLES", 4096),
		},
		Session: SessionConfig{
			MaxDuration:          envDuration("SESSION_MAX_DURATION", 10*time.Minute),
			MaxAudioBytes:        int64(envInt("SESSION_MAX_AUDIO_BYTES", 32*1024*1024)),
			MinConversationChars: envInt("SESSION_MIN_CONVERSATION_CHARS", 20),
		},
		Webhook: WebhookConfig{
			URL:     os.Getenv("LEAD_WEBHOOK_URL"),
			Source:  envOrDefault("LEAD_WEBHOOK_SOURCE", "legal-ai-web-widget"),
			Timeout: envDuration("LEAD_WEBHOOK_TIMEOUT", 15*time.Second),
		},
		Kafka: KafkaConfig{
			Enabled:         envBool("KAFKA_ENABLED", false),
			Brokers:         envList("KAFKA_BROKERS", nil),
			TopicTranscript: envOrDefault("KAFKA_TOPIC_TRANSCRIPT", "intake.transcript.final"),
			TopicLead:       envOrDefault("KAFKA_TOPIC_LEAD", "intake.lead.created"),
			Principal:       envOrDefault("KAFKA_PRINCIPAL", "ai-voice-intake-service"),
		},
	}
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func envList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
