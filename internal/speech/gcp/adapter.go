// Package gcp provides a transcribe-only speech.Adapter backed by Google
// Cloud Speech-to-Text streaming recognition. It produces caller
// transcription deltas but no agent audio, so sessions running on it
// capture the conversation without a synthesized voice. Useful as a
// fallback when no live voice provider is configured.
package gcp

import (
	"context"
	"sync"

	speechapi "cloud.google.com/go/speech/apiv1"
	speechpb "google.golang.org/genproto/googleapis/cloud/speech/v1"

	"ai-voice-intake-service/internal/speech"
)

// Adapter implements speech.Adapter using Google Cloud Speech-to-Text.
// Requires GOOGLE_APPLICATION_CREDENTIALS to be set.
type Adapter struct {
	cfg    speech.Config
	client *speechapi.Client

	mu     sync.Mutex
	stream speechpb.Speech_StreamingRecognizeClient
	cb     speech.Callback
	closed bool
}

// New creates a Cloud Speech adapter. The streaming session is opened by
// Start.
func New(ctx context.Context, cfg speech.Config) (*Adapter, error) {
	c, err := speechapi.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	return &Adapter{cfg: cfg, client: c}, nil
}

// Start opens the recognize stream, sends the streaming config as the
// first message and launches the receive loop.
func (a *Adapter) Start(ctx context.Context, cb speech.Callback) error {
	stream, err := a.client.StreamingRecognize(ctx)
	if err != nil {
		return err
	}

	lang := a.cfg.LanguageCode
	if lang == "" {
		lang = "en-US"
	}
	if err := stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_StreamingConfig{
			StreamingConfig: &speechpb.StreamingRecognitionConfig{
				Config: &speechpb.RecognitionConfig{
					Encoding:        speechpb.RecognitionConfig_LINEAR16,
					SampleRateHertz: int32(a.cfg.InputSampleRateHz),
					LanguageCode:    lang,
				},
				InterimResults: false,
			},
		},
	}); err != nil {
		return err
	}

	a.mu.Lock()
	a.stream = stream
	a.cb = cb
	a.mu.Unlock()

	go a.receive()
	return nil
}

// SendAudio sends raw caller PCM to the recognize stream.
func (a *Adapter) SendAudio(ctx context.Context, audio []byte) error {
	a.mu.Lock()
	stream, closed := a.stream, a.closed
	a.mu.Unlock()
	if closed || stream == nil {
		return nil
	}
	return stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_AudioContent{
			AudioContent: audio,
		},
	})
}

// Close half-closes the recognize stream. Safe to call more than once.
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true
	if a.stream != nil {
		return a.stream.CloseSend()
	}
	return nil
}

// receive turns each final recognition result into a caller delta followed
// by a turn-complete signal, so downstream turn handling behaves the same
// as with a conversational provider.
func (a *Adapter) receive() {
	for {
		resp, err := a.stream.Recv()
		if err != nil {
			a.mu.Lock()
			cb, closed := a.cb, a.closed
			a.mu.Unlock()
			if !closed && cb != nil {
				cb.OnError(err)
			}
			return
		}

		a.mu.Lock()
		cb, closed := a.cb, a.closed
		a.mu.Unlock()
		if closed || cb == nil {
			continue
		}

		for _, r := range resp.Results {
			if !r.IsFinal || len(r.Alternatives) == 0 {
				continue
			}
			cb.OnEvent(speech.Event{CallerDelta: r.Alternatives[0].Transcript})
			cb.OnEvent(speech.Event{TurnComplete: true})
		}
	}
}
