// Package gemini provides a speech.Adapter backed by the Gemini Live API.
// It streams caller PCM up over the bidirectional session and maps server
// messages to speech events: input/output transcription deltas, synthesized
// audio chunks, turn completion and barge-in interruptions.
package gemini

import (
	"context"
	"fmt"
	"sync"

	"google.golang.org/genai"

	"ai-voice-intake-service/internal/speech"
)

// Adapter implements speech.Adapter using the Gemini Live API.
type Adapter struct {
	cfg     speech.Config
	client  *genai.Client
	session *genai.Session

	mu     sync.Mutex
	cb     speech.Callback
	closed bool
}

// New creates a Gemini Live adapter. The API key comes from cfg; the
// connection is not opened until Start.
func New(ctx context.Context, cfg speech.Config) (*Adapter, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &Adapter{cfg: cfg, client: client}, nil
}

// Start connects the live session and launches the receive loop.
func (a *Adapter) Start(ctx context.Context, cb speech.Callback) error {
	connectCfg := &genai.LiveConnectConfig{
		ResponseModalities: []genai.Modality{genai.ModalityAudio},
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: a.cfg.SystemInstruction}},
		},
		InputAudioTranscription:  &genai.AudioTranscriptionConfig{},
		OutputAudioTranscription: &genai.AudioTranscriptionConfig{},
	}
	if a.cfg.Voice != "" {
		connectCfg.SpeechConfig = &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: a.cfg.Voice},
			},
		}
		if a.cfg.LanguageCode != "" {
			connectCfg.SpeechConfig.LanguageCode = a.cfg.LanguageCode
		}
	}

	session, err := a.client.Live.Connect(ctx, a.cfg.Model, connectCfg)
	if err != nil {
		return fmt.Errorf("connect live session: %w", err)
	}

	a.mu.Lock()
	a.session = session
	a.cb = cb
	a.mu.Unlock()

	go a.receive()
	return nil
}

// SendAudio sends one frame of raw caller PCM to the live session.
func (a *Adapter) SendAudio(ctx context.Context, audio []byte) error {
	a.mu.Lock()
	session, closed := a.session, a.closed
	a.mu.Unlock()
	if closed || session == nil {
		return nil
	}
	return session.SendRealtimeInput(genai.LiveRealtimeInput{
		Media: &genai.Blob{
			Data:     audio,
			MIMEType: fmt.Sprintf("audio/pcm;rate=%d", a.cfg.InputSampleRateHz),
		},
	})
}

// Close ends the live session. Safe to call more than once.
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true
	if a.session != nil {
		return a.session.Close()
	}
	return nil
}

// receive pumps server messages until the stream ends, translating each
// into speech events in server order.
func (a *Adapter) receive() {
	for {
		msg, err := a.session.Receive()
		if err != nil {
			a.mu.Lock()
			cb, closed := a.cb, a.closed
			a.mu.Unlock()
			if !closed && cb != nil {
				cb.OnError(err)
			}
			return
		}
		a.dispatch(msg)
	}
}

func (a *Adapter) dispatch(msg *genai.LiveServerMessage) {
	a.mu.Lock()
	cb, closed := a.cb, a.closed
	a.mu.Unlock()
	if closed || cb == nil || msg.ServerContent == nil {
		return
	}

	sc := msg.ServerContent
	if sc.InputTranscription != nil && sc.InputTranscription.Text != "" {
		cb.OnEvent(speech.Event{CallerDelta: sc.InputTranscription.Text})
	}
	if sc.OutputTranscription != nil && sc.OutputTranscription.Text != "" {
		cb.OnEvent(speech.Event{AgentDelta: sc.OutputTranscription.Text})
	}
	if sc.ModelTurn != nil {
		for _, part := range sc.ModelTurn.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				cb.OnEvent(speech.Event{Audio: part.InlineData.Data})
			}
		}
	}
	// Interruption wins over turn completion when both are set: the
	// session must drop queued audio before acting on the turn boundary.
	if sc.Interrupted {
		cb.OnEvent(speech.Event{Interrupted: true})
	}
	if sc.TurnComplete {
		cb.OnEvent(speech.Event{TurnComplete: true})
	}
}
