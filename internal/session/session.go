// Package session coordinates one live intake conversation: it pumps
// caller audio frames to the speech provider, schedules agent audio for
// gapless playback, folds transcription deltas into the conversation log,
// and on teardown mines the conversation into a lead and delivers it.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"ai-voice-intake-service/internal/audio"
	"ai-voice-intake-service/internal/capture"
	"ai-voice-intake-service/internal/delivery"
	"ai-voice-intake-service/internal/lead"
	"ai-voice-intake-service/internal/models"
	"ai-voice-intake-service/internal/observability/metrics"
	"ai-voice-intake-service/internal/playback"
	"ai-voice-intake-service/internal/speech"
	"ai-voice-intake-service/internal/transcript"
)

// Limits defines safety guardrails for a session. They prevent a stuck or
// abusive client from holding a provider stream open forever.
type Limits struct {
	MaxDuration   time.Duration // Max session wall time
	MaxAudioBytes int64         // Max caller audio forwarded upstream
	// MinConversationChars is the flattened-conversation length below
	// which no lead is delivered on teardown.
	MinConversationChars int
}

// DefaultLimits returns sensible default limits.
func DefaultLimits() Limits {
	return Limits{
		MaxDuration:          10 * time.Minute,
		MaxAudioBytes:        32 * 1024 * 1024, // ~17 minutes at 16kHz 16-bit mono
		MinConversationChars: 20,
	}
}

// TranscriptPublisher is the slice of the event publisher sessions need.
type TranscriptPublisher interface {
	PublishTranscript(ctx context.Context, key string, event any) error
}

// Hooks let the transport layer observe session activity. All fields are
// optional; hooks are invoked from provider callback goroutines and must
// not block.
type Hooks struct {
	// OnEntry fires for each completed transcript entry.
	OnEntry func(entry models.TranscriptEntry)
	// OnInterrupted fires when a caller barge-in flushed queued agent
	// audio, so the transport can tell its peer to do the same.
	OnInterrupted func()
	// OnError fires when the provider stream or the capture source fails.
	OnError func(err error)
	// OnLeadSent fires after the lead for this session has been handed to
	// the delivery gateway.
	OnLeadSent func(record *models.LeadRecord)
}

// Deps carries everything a session needs beyond its identity.
type Deps struct {
	Adapter   speech.Adapter
	Source    capture.Source
	Sink      playback.Sink
	Clock     playback.Clock
	Builder   *lead.Builder
	Gateway   delivery.Gateway
	Publisher TranscriptPublisher
	Hooks     Hooks
	Limits    Limits

	ClientID           string
	FrameSamples       int
	OutputSampleRateHz int
}

// Session is one live intake conversation. It implements speech.Callback.
//
// A session instance runs at most once: Start transitions it out of IDLE
// and Stop parks it in CLOSED for good.
type Session struct {
	id        string
	deps      Deps
	lifecycle *Lifecycle
	scheduler *playback.Scheduler
	pipeline  *capture.Pipeline
	rec       *transcript.Reconciler
	logger    zerolog.Logger
	metrics   *metrics.Metrics

	mu         sync.Mutex
	startedAt  time.Time
	audioBytes int64
	leadSent   bool
	firstErr   error
}

// New creates a session. The capture pipeline and playback scheduler are
// owned by the session and torn down with it.
func New(id string, deps Deps, logger zerolog.Logger) (*Session, error) {
	if deps.Adapter == nil {
		return nil, errors.New("session requires a speech adapter")
	}
	if deps.Source == nil {
		return nil, errors.New("session requires a capture source")
	}
	if deps.Sink == nil {
		return nil, errors.New("session requires a playback sink")
	}
	if deps.Clock == nil {
		deps.Clock = playback.NewClock()
	}
	if deps.FrameSamples <= 0 {
		deps.FrameSamples = 4096
	}
	if deps.OutputSampleRateHz <= 0 {
		deps.OutputSampleRateHz = 24000
	}
	if deps.Limits == (Limits{}) {
		deps.Limits = DefaultLimits()
	}

	s := &Session{
		id:        id,
		deps:      deps,
		lifecycle: NewLifecycle(),
		scheduler: playback.NewScheduler(deps.Clock, deps.Sink, deps.OutputSampleRateHz),
		rec:       transcript.NewReconciler(),
		logger:    logger.With().Str("sessionId", id).Logger(),
		metrics:   metrics.DefaultMetrics,
	}
	s.pipeline = capture.NewPipeline(deps.Source, deps.FrameSamples, s.sendFrame, s.onFatalError)
	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// State returns the current lifecycle state.
func (s *Session) State() State { return s.lifecycle.State() }

// Err returns the first provider or capture error seen, if any.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.firstErr
}

// Start opens the provider stream and begins forwarding caller audio.
// Valid only from IDLE.
func (s *Session) Start(ctx context.Context) error {
	if err := s.lifecycle.BeginConnect(); err != nil {
		return err
	}

	if err := s.deps.Adapter.Start(ctx, s); err != nil {
		s.lifecycle.BeginClose()
		s.lifecycle.FinishClose()
		return fmt.Errorf("start speech adapter: %w", err)
	}

	if err := s.pipeline.Start(ctx); err != nil {
		_ = s.deps.Adapter.Close()
		s.lifecycle.BeginClose()
		s.lifecycle.FinishClose()
		return err
	}

	s.mu.Lock()
	s.startedAt = time.Now()
	s.mu.Unlock()

	if err := s.lifecycle.Activate(); err != nil {
		return err
	}

	s.metrics.RecordSessionStart()
	s.logger.Info().Msg("Session started")
	return nil
}

// sendFrame forwards one caller frame to the provider, fire-and-forget.
// A frame the provider rejects is dropped, never retried; stale agent
// audio is worse than a missing frame of caller audio.
func (s *Session) sendFrame(frame []byte) {
	if !s.lifecycle.IsActive() {
		return
	}

	s.mu.Lock()
	s.audioBytes += int64(len(frame))
	bytes := s.audioBytes
	started := s.startedAt
	s.mu.Unlock()

	if s.deps.Limits.MaxAudioBytes > 0 && bytes > s.deps.Limits.MaxAudioBytes {
		s.logger.Warn().Int64("audioBytes", bytes).Msg("Session audio limit exceeded, closing")
		go s.Stop(context.Background())
		return
	}
	if s.deps.Limits.MaxDuration > 0 && time.Since(started) > s.deps.Limits.MaxDuration {
		s.logger.Warn().Dur("elapsed", time.Since(started)).Msg("Session duration limit exceeded, closing")
		go s.Stop(context.Background())
		return
	}

	if err := s.deps.Adapter.SendAudio(context.Background(), frame); err != nil {
		s.metrics.RecordFrameDropped()
		s.logger.Debug().Err(err).Msg("Dropped caller frame")
		return
	}
	s.metrics.RecordFrameSent(len(frame))
}

// onFatalError handles a capture source failure: the session cannot
// continue without caller audio.
func (s *Session) onFatalError(err error) {
	s.recordError(fmt.Errorf("capture source: %w", err))
	go s.Stop(context.Background())
}

// OnEvent implements speech.Callback. Events are applied in arrival
// order; an interruption discards all queued agent audio before anything
// else happens. The provider stream opens before the session activates,
// so events in the CONNECTING window are applied too; only a session
// that never started or is already closed drops them.
func (s *Session) OnEvent(ev speech.Event) {
	state := s.lifecycle.State()
	if state == StateIdle || state == StateClosed {
		return
	}

	if ev.CallerDelta != "" {
		s.rec.AppendCaller(ev.CallerDelta)
	}
	if ev.AgentDelta != "" {
		s.rec.AppendAgent(ev.AgentDelta)
	}
	if len(ev.Audio) > 0 {
		s.enqueueAudio(ev.Audio)
	}
	if ev.Interrupted {
		s.scheduler.Interrupt()
		s.metrics.RecordInterruption()
		s.logger.Debug().Msg("Caller interrupted agent, playback flushed")
		if s.deps.Hooks.OnInterrupted != nil {
			s.deps.Hooks.OnInterrupted()
		}
	}
	if ev.TurnComplete {
		s.completeTurn()
	}
}

// enqueueAudio decodes one agent audio chunk and schedules it. A
// malformed chunk is dropped; playback continues with the next one.
func (s *Session) enqueueAudio(pcm []byte) {
	samples, err := audio.PCMToSamples(pcm)
	if err != nil {
		var ferr *audio.FormatError
		if errors.As(err, &ferr) {
			s.metrics.RecordChunkDropped()
			s.logger.Warn().Err(err).Int("bytes", len(pcm)).Msg("Dropped malformed agent audio chunk")
			return
		}
		s.recordError(err)
		return
	}
	if _, err := s.scheduler.Enqueue(samples); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to schedule agent audio")
	}
}

// completeTurn flushes buffered deltas into the conversation log and
// publishes each new entry.
func (s *Session) completeTurn() {
	entries := s.rec.CompleteTurn()
	if len(entries) == 0 {
		return
	}
	s.metrics.RecordTurnComplete()

	for _, entry := range entries {
		ev := models.TranscriptFinal{
			EventType: "intake.transcript.final",
			SessionID: s.id,
			ClientID:  s.deps.ClientID,
			Speaker:   string(entry.Speaker),
			Text:      entry.Text,
			Timestamp: entry.OccurredAt.UnixMilli(),
		}
		if s.deps.Publisher != nil {
			if err := s.deps.Publisher.PublishTranscript(context.Background(), s.id, ev); err != nil {
				s.logger.Error().Err(err).Msg("Failed to publish transcript event")
			}
		}
		if s.deps.Hooks.OnEntry != nil {
			s.deps.Hooks.OnEntry(entry)
		}
	}
}

// OnError implements speech.Callback. The provider stream is unusable
// after an error, so the session closes.
func (s *Session) OnError(err error) {
	s.recordError(fmt.Errorf("speech provider: %w", err))
	go s.Stop(context.Background())
}

func (s *Session) recordError(err error) {
	s.mu.Lock()
	if s.firstErr == nil {
		s.firstErr = err
	}
	s.mu.Unlock()

	s.logger.Error().Err(err).Msg("Session error")
	if s.deps.Hooks.OnError != nil {
		s.deps.Hooks.OnError(err)
	}
}

// Stop tears the session down: it delivers the lead if the conversation
// is substantial enough, closes the provider stream, releases the capture
// source and flushes playback. No-op from IDLE and CLOSED; concurrent
// callers race for the CLOSING transition and the losers return
// immediately.
func (s *Session) Stop(ctx context.Context) error {
	if !s.lifecycle.BeginClose() {
		return nil
	}

	s.deliverLead(ctx)

	if err := s.deps.Adapter.Close(); err != nil {
		s.logger.Warn().Err(err).Msg("Error closing speech adapter")
	}
	if err := s.pipeline.Stop(); err != nil {
		s.logger.Warn().Err(err).Msg("Error stopping capture pipeline")
	}
	s.scheduler.Interrupt()

	s.lifecycle.FinishClose()
	s.metrics.RecordSessionClose()
	s.logger.Info().Msg("Session closed")
	return nil
}

// deliverLead builds and delivers the lead exactly once per session.
// Conversations below the minimum length produce nothing: a visitor who
// said two words is noise, not a lead.
func (s *Session) deliverLead(ctx context.Context) {
	if s.deps.Gateway == nil || s.deps.Builder == nil {
		return
	}

	conversation := s.rec.Conversation()
	minChars := s.deps.Limits.MinConversationChars
	if len(strings.TrimSpace(conversation)) <= minChars {
		return
	}

	s.mu.Lock()
	if s.leadSent {
		s.mu.Unlock()
		return
	}
	s.leadSent = true
	s.mu.Unlock()

	record := s.deps.Builder.Build(conversation, s.rec.Entries())
	if err := s.deps.Gateway.Deliver(ctx, s.id, record.Payload()); err != nil {
		s.logger.Error().Err(err).Msg("Failed to deliver lead")
		return
	}

	s.metrics.RecordLeadCreated(record.Fields.CaseType, record.Fields.Urgency)
	s.logger.Info().
		Str("caseType", record.Fields.CaseType).
		Str("urgency", record.Fields.Urgency).
		Msg("Lead delivered")
	if s.deps.Hooks.OnLeadSent != nil {
		s.deps.Hooks.OnLeadSent(record)
	}
}
