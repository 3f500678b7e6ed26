package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"ai-voice-intake-service/internal/audio"
	"ai-voice-intake-service/internal/capture"
	"ai-voice-intake-service/internal/lead"
	"ai-voice-intake-service/internal/models"
	"ai-voice-intake-service/internal/playback"
	"ai-voice-intake-service/internal/speech"
)

// stubAdapter implements speech.Adapter and lets tests inject events.
type stubAdapter struct {
	mu       sync.Mutex
	cb       speech.Callback
	frames   [][]byte
	startErr error
	sendErr  error
	closed   bool
}

func (a *stubAdapter) Start(ctx context.Context, cb speech.Callback) error {
	if a.startErr != nil {
		return a.startErr
	}
	a.mu.Lock()
	a.cb = cb
	a.mu.Unlock()
	return nil
}

func (a *stubAdapter) SendAudio(ctx context.Context, b []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.sendErr != nil {
		return a.sendErr
	}
	a.frames = append(a.frames, append([]byte{}, b...))
	return nil
}

func (a *stubAdapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	return nil
}

func (a *stubAdapter) emit(ev speech.Event) {
	a.mu.Lock()
	cb := a.cb
	a.mu.Unlock()
	cb.OnEvent(ev)
}

func (a *stubAdapter) frameCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.frames)
}

func (a *stubAdapter) isClosed() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.closed
}

// holdSink never completes buffers on its own, so interruption behavior
// is observable through the handles it returns.
type holdSink struct {
	mu      sync.Mutex
	started int
	stopped int
}

type holdHandle struct{ sink *holdSink }

func (h *holdHandle) Stop() {
	h.sink.mu.Lock()
	h.sink.stopped++
	h.sink.mu.Unlock()
}

func (s *holdSink) Start(samples []float32, at float64, done func()) (playback.Handle, error) {
	s.mu.Lock()
	s.started++
	s.mu.Unlock()
	return &holdHandle{sink: s}, nil
}

func (s *holdSink) counts() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started, s.stopped
}

type fixedClock struct{}

func (fixedClock) Now() float64 { return 0 }

// captureGateway records deliveries.
type captureGateway struct {
	mu       sync.Mutex
	payloads []*models.LeadPayload
	err      error
}

func (g *captureGateway) Deliver(ctx context.Context, sessionID string, payload *models.LeadPayload) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return g.err
	}
	g.payloads = append(g.payloads, payload)
	return nil
}

func (g *captureGateway) count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.payloads)
}

type capturePublisher struct {
	mu     sync.Mutex
	events []models.TranscriptFinal
}

func (p *capturePublisher) PublishTranscript(ctx context.Context, key string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if tf, ok := event.(models.TranscriptFinal); ok {
		p.events = append(p.events, tf)
	}
	return nil
}

type testEnv struct {
	adapter *stubAdapter
	source  *capture.ChannelSource
	sink    *holdSink
	gateway *captureGateway
	pub     *capturePublisher
	sess    *Session
}

func newTestEnv(t *testing.T, mutate func(*Deps)) *testEnv {
	t.Helper()
	env := &testEnv{
		adapter: &stubAdapter{},
		source:  capture.NewChannelSource(),
		sink:    &holdSink{},
		gateway: &captureGateway{},
		pub:     &capturePublisher{},
	}
	deps := Deps{
		Adapter:            env.adapter,
		Source:             env.source,
		Sink:               env.sink,
		Clock:              fixedClock{},
		Gateway:            env.gateway,
		Publisher:          env.pub,
		ClientID:           "firm-demo",
		FrameSamples:       8,
		OutputSampleRateHz: 24000,
		Limits:             DefaultLimits(),
	}
	if mutate != nil {
		mutate(&deps)
	}
	sess, err := New("sess-test", deps, zerolog.Nop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	env.sess = sess
	return env
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestSession_StartTwiceRejected(t *testing.T) {
	env := newTestEnv(t, nil)
	if err := env.sess.Start(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer env.sess.Stop(context.Background())

	if err := env.sess.Start(context.Background()); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("expected ErrAlreadyStarted, got %v", err)
	}
}

func TestSession_StartAfterCloseRejected(t *testing.T) {
	env := newTestEnv(t, nil)
	env.sess.Start(context.Background())
	env.sess.Stop(context.Background())

	if err := env.sess.Start(context.Background()); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("expected ErrSessionClosed, got %v", err)
	}
}

func TestSession_StopFromIdleIsNoop(t *testing.T) {
	env := newTestEnv(t, nil)
	if err := env.sess.Stop(context.Background()); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if env.sess.State() != StateIdle {
		t.Errorf("state = %s, want IDLE", env.sess.State())
	}
	if env.adapter.isClosed() {
		t.Error("adapter must not be closed by a no-op stop")
	}
}

func TestSession_FramesForwardedToAdapter(t *testing.T) {
	env := newTestEnv(t, nil)
	env.sess.Start(context.Background())
	defer env.sess.Stop(context.Background())

	// Two exact frames of 8 samples each.
	env.source.Push(make([]byte, 16))
	env.source.Push(make([]byte, 16))

	waitFor(t, func() bool { return env.adapter.frameCount() == 2 }, "frames not forwarded")
}

func TestSession_AudioScheduledAndInterruptFlushes(t *testing.T) {
	env := newTestEnv(t, nil)
	env.sess.Start(context.Background())
	defer env.sess.Stop(context.Background())

	pcm := audio.SamplesToPCM(make([]float32, 2400))
	env.adapter.emit(speech.Event{Audio: pcm})
	env.adapter.emit(speech.Event{Audio: pcm})

	started, stopped := env.sink.counts()
	if started != 2 || stopped != 0 {
		t.Fatalf("started=%d stopped=%d, want 2/0", started, stopped)
	}

	interrupted := false
	env.sess.deps.Hooks.OnInterrupted = func() { interrupted = true }
	env.adapter.emit(speech.Event{Interrupted: true})

	_, stopped = env.sink.counts()
	if stopped != 2 {
		t.Errorf("stopped=%d, want 2 after interruption", stopped)
	}
	if !interrupted {
		t.Error("OnInterrupted hook not fired")
	}
}

func TestSession_MalformedAudioDropped(t *testing.T) {
	env := newTestEnv(t, nil)
	env.sess.Start(context.Background())
	defer env.sess.Stop(context.Background())

	env.adapter.emit(speech.Event{Audio: []byte{0x01}}) // odd length
	env.adapter.emit(speech.Event{Audio: audio.SamplesToPCM(make([]float32, 100))})

	started, _ := env.sink.counts()
	if started != 1 {
		t.Errorf("started=%d, want 1 (malformed chunk dropped)", started)
	}
	if env.sess.Err() != nil {
		t.Errorf("malformed audio must not fail the session: %v", env.sess.Err())
	}
}

func TestSession_TurnCompletePublishesEntries(t *testing.T) {
	env := newTestEnv(t, nil)
	var entries []models.TranscriptEntry
	env.sess.deps.Hooks.OnEntry = func(e models.TranscriptEntry) { entries = append(entries, e) }
	env.sess.Start(context.Background())
	defer env.sess.Stop(context.Background())

	env.adapter.emit(speech.Event{CallerDelta: "I need "})
	env.adapter.emit(speech.Event{CallerDelta: "help"})
	env.adapter.emit(speech.Event{AgentDelta: "Of course."})
	env.adapter.emit(speech.Event{TurnComplete: true})

	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Speaker != models.SpeakerCaller || entries[0].Text != "I need help" {
		t.Errorf("caller entry = %+v", entries[0])
	}
	if entries[1].Speaker != models.SpeakerAgent {
		t.Errorf("agent entry = %+v", entries[1])
	}

	env.pub.mu.Lock()
	defer env.pub.mu.Unlock()
	if len(env.pub.events) != 2 {
		t.Fatalf("expected 2 published events, got %d", len(env.pub.events))
	}
	if env.pub.events[0].EventType != "intake.transcript.final" || env.pub.events[0].SessionID != "sess-test" {
		t.Errorf("event = %+v", env.pub.events[0])
	}
}

func TestSession_LeadDeliveredOnceOnStop(t *testing.T) {
	env := newTestEnv(t, func(d *Deps) {
		d.Builder = lead.NewBuilder(nil, "firm-demo", "Demo Legal Group")
	})
	var leadSent bool
	env.sess.deps.Hooks.OnLeadSent = func(*models.LeadRecord) { leadSent = true }
	env.sess.Start(context.Background())

	env.adapter.emit(speech.Event{CallerDelta: "My name is John Smith and I got a DUI in Texas"})
	env.adapter.emit(speech.Event{TurnComplete: true})

	env.sess.Stop(context.Background())
	env.sess.Stop(context.Background())

	if env.gateway.count() != 1 {
		t.Fatalf("expected exactly 1 delivery, got %d", env.gateway.count())
	}
	if !leadSent {
		t.Error("OnLeadSent hook not fired")
	}

	p := env.gateway.payloads[0]
	if len(p.ToolCalls) != 1 || p.ToolCalls[0].Parameters.FirstName != "John Smith" {
		t.Errorf("payload fields = %+v", p.ToolCalls)
	}
	if !strings.Contains(p.Transcript, "Caller: My name is John Smith") {
		t.Errorf("transcript = %q", p.Transcript)
	}
}

func TestSession_ShortConversationProducesNoLead(t *testing.T) {
	env := newTestEnv(t, func(d *Deps) {
		d.Builder = lead.NewBuilder(nil, "firm-demo", "Demo Legal Group")
	})
	env.sess.Start(context.Background())

	env.adapter.emit(speech.Event{CallerDelta: "hi"})
	env.adapter.emit(speech.Event{TurnComplete: true})

	env.sess.Stop(context.Background())

	if env.gateway.count() != 0 {
		t.Errorf("expected no delivery for a trivial conversation, got %d", env.gateway.count())
	}
}

func TestSession_DeliveryFailureDoesNotPanicStop(t *testing.T) {
	env := newTestEnv(t, func(d *Deps) {
		d.Builder = lead.NewBuilder(nil, "firm-demo", "Demo Legal Group")
	})
	env.gateway.err = errors.New("webhook down")
	env.sess.Start(context.Background())

	env.adapter.emit(speech.Event{CallerDelta: "My name is John Smith and I got a DUI"})
	env.adapter.emit(speech.Event{TurnComplete: true})

	if err := env.sess.Stop(context.Background()); err != nil {
		t.Errorf("stop must not fail on delivery error: %v", err)
	}
	if env.sess.State() != StateClosed {
		t.Errorf("state = %s, want CLOSED", env.sess.State())
	}
}

func TestSession_ProviderErrorClosesSession(t *testing.T) {
	env := newTestEnv(t, nil)
	var hookErr error
	env.sess.deps.Hooks.OnError = func(err error) { hookErr = err }
	env.sess.Start(context.Background())

	env.adapter.mu.Lock()
	cb := env.adapter.cb
	env.adapter.mu.Unlock()
	cb.OnError(errors.New("stream reset"))

	waitFor(t, func() bool { return env.sess.State() == StateClosed }, "session did not close on provider error")
	if env.sess.Err() == nil {
		t.Error("Err() must report the provider error")
	}
	if hookErr == nil {
		t.Error("OnError hook not fired")
	}
	if !env.adapter.isClosed() {
		t.Error("adapter not closed")
	}
}

func TestSession_AudioLimitClosesSession(t *testing.T) {
	env := newTestEnv(t, func(d *Deps) {
		d.Limits = Limits{MaxAudioBytes: 20, MinConversationChars: 20}
	})
	env.sess.Start(context.Background())

	// 16 bytes per frame: the second frame crosses the 20-byte limit.
	env.source.Push(make([]byte, 16))
	waitFor(t, func() bool { return env.adapter.frameCount() == 1 }, "first frame not forwarded")
	env.source.Push(make([]byte, 16))

	waitFor(t, func() bool { return env.sess.State() == StateClosed }, "session did not close at audio limit")
	if env.adapter.frameCount() != 1 {
		t.Errorf("frames forwarded = %d, want 1", env.adapter.frameCount())
	}
}

// eagerAdapter emits a caller delta from inside Start, before the session
// has activated, the way a live provider's receive loop can.
type eagerAdapter struct {
	stubAdapter
	delta string
}

func (a *eagerAdapter) Start(ctx context.Context, cb speech.Callback) error {
	if err := a.stubAdapter.Start(ctx, cb); err != nil {
		return err
	}
	cb.OnEvent(speech.Event{CallerDelta: a.delta})
	return nil
}

func TestSession_EventsDuringConnectAreKept(t *testing.T) {
	eager := &eagerAdapter{delta: "Hi, "}
	env := newTestEnv(t, func(d *Deps) { d.Adapter = eager })
	if err := env.sess.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer env.sess.Stop(context.Background())

	eager.emit(speech.Event{CallerDelta: "I was arrested"})
	eager.emit(speech.Event{TurnComplete: true})

	env.pub.mu.Lock()
	defer env.pub.mu.Unlock()
	if len(env.pub.events) != 1 {
		t.Fatalf("expected 1 published entry, got %d", len(env.pub.events))
	}
	if env.pub.events[0].Text != "Hi, I was arrested" {
		t.Errorf("text = %q, want the pre-activation delta included", env.pub.events[0].Text)
	}
}

func TestSession_EventsIgnoredBeforeStart(t *testing.T) {
	env := newTestEnv(t, nil)
	// Deliver directly; the session is still IDLE.
	env.sess.OnEvent(speech.Event{CallerDelta: "early"})
	env.sess.OnEvent(speech.Event{TurnComplete: true})

	env.pub.mu.Lock()
	defer env.pub.mu.Unlock()
	if len(env.pub.events) != 0 {
		t.Errorf("expected no events before start, got %d", len(env.pub.events))
	}
}
