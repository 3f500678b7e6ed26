// Package models defines the data structures shared across the intake pipeline.
package models

import "time"

// Speaker identifies which side of the conversation produced a transcript.
type Speaker string

const (
	// SpeakerCaller is the website visitor speaking into the widget.
	SpeakerCaller Speaker = "caller"
	// SpeakerAgent is the AI intake agent.
	SpeakerAgent Speaker = "agent"
)

// Role returns the downstream payload role for the speaker
// ("user" for the caller, "agent" for the agent).
func (s Speaker) Role() string {
	if s == SpeakerCaller {
		return "user"
	}
	return string(s)
}

// TranscriptEntry is one completed turn in the conversation log.
// Entries are immutable once created and are only produced at
// turn-completion boundaries, never from partial deltas.
type TranscriptEntry struct {
	Speaker    Speaker   `json:"speaker"`
	Text       string    `json:"text"`
	OccurredAt time.Time `json:"occurredAt"`
}

// TranscriptFinal is the event published when a completed turn is
// flushed to the conversation log.
type TranscriptFinal struct {
	EventType string `json:"eventType"`
	SessionID string `json:"sessionId"`
	ClientID  string `json:"clientId"`
	Speaker   string `json:"speaker"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}
