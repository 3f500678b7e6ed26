// Package speech defines the interface for bidirectional voice agent
// adapters. An adapter streams caller audio to a provider and surfaces the
// provider's transcription deltas, synthesized audio and turn signals as
// events.
package speech

import "context"

// Event is a single message from the provider. At most one transcription
// delta is set per event; Audio carries raw little-endian 16-bit PCM at the
// configured output rate.
type Event struct {
	// CallerDelta is an incremental transcription of caller audio.
	CallerDelta string

	// AgentDelta is an incremental transcription of the agent's reply.
	AgentDelta string

	// Audio is a chunk of synthesized agent speech, raw PCM.
	Audio []byte

	// TurnComplete signals that the agent finished its reply.
	TurnComplete bool

	// Interrupted signals that the caller barged in and any queued agent
	// audio must be discarded.
	Interrupted bool
}

// Callback receives events from the speech provider.
type Callback interface {
	// OnEvent is called for every provider message. Implementations must
	// tolerate events where no field is set.
	OnEvent(ev Event)

	// OnError is called when the provider stream fails. The adapter is
	// unusable afterwards.
	OnError(err error)
}

// Config carries the per-session provider settings.
type Config struct {
	Model              string
	APIKey             string
	Voice              string
	LanguageCode       string
	SystemInstruction  string
	InputSampleRateHz  int
	OutputSampleRateHz int
}

// Adapter defines the interface for voice agent providers (Gemini Live,
// Google Cloud STT, mock).
type Adapter interface {
	// Start opens the provider stream and registers the callback.
	Start(ctx context.Context, cb Callback) error

	// SendAudio sends one frame of raw caller PCM to the provider.
	SendAudio(ctx context.Context, audio []byte) error

	// Close ends the session and releases resources.
	Close() error
}
