package ws

// ClientMessage is a message from the widget to the service.
type ClientMessage struct {
	// Type is "audio_frame" or "end_session".
	Type string `json:"type"`
	// Audio carries base64 little-endian PCM16 at the input sample rate
	// for audio_frame messages.
	Audio string `json:"audio,omitempty"`
}

// ServerMessage is a message from the service to the widget.
type ServerMessage struct {
	// Type is one of "ready", "audio", "transcript", "interrupted",
	// "lead_sent", "error" or "closed".
	Type      string `json:"type"`
	SessionID string `json:"session_id,omitempty"`

	// Ready fields.
	InputSampleRateHz  int `json:"input_sample_rate_hz,omitempty"`
	OutputSampleRateHz int `json:"output_sample_rate_hz,omitempty"`
	FrameSamples       int `json:"frame_samples,omitempty"`

	// Audio fields: base64 PCM16 at the output rate, plus the position on
	// the output clock (seconds) where the chunk belongs. Chunks are
	// scheduled back to back; the widget plays each at max(start_at, now)
	// on its own audio clock.
	Audio   string  `json:"audio,omitempty"`
	StartAt float64 `json:"start_at,omitempty"`

	// Transcript fields.
	Speaker string `json:"speaker,omitempty"`
	Text    string `json:"text,omitempty"`

	// Error detail.
	Message string `json:"message,omitempty"`
}
