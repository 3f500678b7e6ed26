package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	if cfg.Service.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %s", cfg.Service.HTTPAddr)
	}
	if cfg.Speech.Provider != "mock" {
		t.Errorf("expected default provider 'mock', got %s", cfg.Speech.Provider)
	}
	if cfg.Speech.InputSampleRateHz != 16000 {
		t.Errorf("input sample rate = %d", cfg.Speech.InputSampleRateHz)
	}
	if cfg.Speech.OutputSampleRateHz != 24000 {
		t.Errorf("output sample rate = %d", cfg.Speech.OutputSampleRateHz)
	}
	if cfg.Speech.FrameSamples != 4096 {
		t.Errorf("frame samples = %d", cfg.Speech.FrameSamples)
	}
	if cfg.Session.MinConversationChars != 20 {
		t.Errorf("min conversation chars = %d", cfg.Session.MinConversationChars)
	}
	if cfg.Kafka.Enabled {
		t.Error("kafka must be disabled by default")
	}
	if cfg.Kafka.TopicTranscript != "intake.transcript.final" {
		t.Errorf("transcript topic = %s", cfg.Kafka.TopicTranscript)
	}
	if cfg.Kafka.TopicLead != "intake.lead.created" {
		t.Errorf("lead topic = %s", cfg.Kafka.TopicLead)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("SPEECH_PROVIDER", "gemini")
	t.Setenv("SPEECH_INPUT_SAMPLE_RATE", "8000")
	t.Setenv("SESSION_MAX_DURATION", "2m")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "broker-1:9092, broker-2:9092")
	t.Setenv("FIRM_PRACTICE_AREAS", "Immigration,Family Law")

	cfg := Load()

	if cfg.Speech.Provider != "gemini" {
		t.Errorf("provider = %s", cfg.Speech.Provider)
	}
	if cfg.Speech.InputSampleRateHz != 8000 {
		t.Errorf("input sample rate = %d", cfg.Speech.InputSampleRateHz)
	}
	if cfg.Session.MaxDuration != 2*time.Minute {
		t.Errorf("max duration = %v", cfg.Session.MaxDuration)
	}
	if !cfg.Kafka.Enabled {
		t.Error("kafka should be enabled")
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "broker-2:9092" {
		t.Errorf("brokers = %v", cfg.Kafka.Brokers)
	}
	if len(cfg.Firm.PracticeAreas) != 2 || cfg.Firm.PracticeAreas[0] != "Immigration" {
		t.Errorf("practice areas = %v", cfg.Firm.PracticeAreas)
	}
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("SPEECH_INPUT_SAMPLE_RATE", "not-a-number")
	t.Setenv("SESSION_MAX_DURATION", "forever")
	t.Setenv("KAFKA_ENABLED", "maybe")

	cfg := Load()

	if cfg.Speech.InputSampleRateHz != 16000 {
		t.Errorf("expected fallback sample rate, got %d", cfg.Speech.InputSampleRateHz)
	}
	if cfg.Session.MaxDuration != 10*time.Minute {
		t.Errorf("expected fallback duration, got %v", cfg.Session.MaxDuration)
	}
	if cfg.Kafka.Enabled {
		t.Error("expected fallback to disabled kafka")
	}
}
