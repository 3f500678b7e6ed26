// Package ws is the WebSocket ingress for the browser intake widget. Each
// connection owns one session: caller audio frames come in as JSON
// messages, agent audio and transcript entries go back out the same way.
package ws

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"ai-voice-intake-service/internal/audio"
	"ai-voice-intake-service/internal/capture"
	"ai-voice-intake-service/internal/config"
	"ai-voice-intake-service/internal/delivery"
	"ai-voice-intake-service/internal/lead"
	"ai-voice-intake-service/internal/models"
	"ai-voice-intake-service/internal/observability/logging"
	"ai-voice-intake-service/internal/playback"
	"ai-voice-intake-service/internal/session"
	"ai-voice-intake-service/internal/speech/adapters"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  16 * 1024,
	WriteBufferSize: 16 * 1024,
	// The widget is embedded on customer sites, so any origin may connect.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handler upgrades widget connections and runs a session per connection.
type Handler struct {
	cfg       *config.Configuration
	factory   *adapters.Factory
	gateway   delivery.Gateway
	publisher session.TranscriptPublisher
	logger    zerolog.Logger

	sessionSeq atomic.Uint64
}

// NewHandler creates the WebSocket ingress handler.
func NewHandler(cfg *config.Configuration, factory *adapters.Factory, gateway delivery.Gateway, publisher session.TranscriptPublisher) *Handler {
	return &Handler{
		cfg:       cfg,
		factory:   factory,
		gateway:   gateway,
		publisher: publisher,
		logger:    logging.WithComponent("ws"),
	}
}

func (h *Handler) nextSessionID() string {
	return fmt.Sprintf("sess-%d-%d", time.Now().Unix(), h.sessionSeq.Add(1))
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	sessionID := h.nextSessionID()
	logger := logging.WithSession(sessionID, h.cfg.Firm.ClientID)

	var writeMu sync.Mutex
	writeJSON := func(v any) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		return conn.WriteJSON(v)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sess, source, err := h.newSession(ctx, sessionID, writeJSON)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to create session")
		_ = writeJSON(ServerMessage{Type: "error", SessionID: sessionID, Message: "session unavailable"})
		return
	}

	if err := sess.Start(ctx); err != nil {
		logger.Error().Err(err).Msg("Failed to start session")
		_ = writeJSON(ServerMessage{Type: "error", SessionID: sessionID, Message: "session unavailable"})
		return
	}

	_ = writeJSON(ServerMessage{
		Type:               "ready",
		SessionID:          sessionID,
		InputSampleRateHz:  h.cfg.Speech.InputSampleRateHz,
		OutputSampleRateHz: h.cfg.Speech.OutputSampleRateHz,
		FrameSamples:       h.cfg.Speech.FrameSamples,
	})

	h.readLoop(conn, sess, source, writeJSON, logger)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer stopCancel()
	if err := sess.Stop(stopCtx); err != nil {
		logger.Warn().Err(err).Msg("Error stopping session")
	}
	_ = writeJSON(ServerMessage{Type: "closed", SessionID: sessionID})
}

// newSession wires one session's capture source, playback sink, adapter
// and hooks to the connection.
func (h *Handler) newSession(ctx context.Context, sessionID string, writeJSON func(any) error) (*session.Session, *capture.ChannelSource, error) {
	prompt := session.BuildSystemPrompt(session.FirmProfile{
		FirmName:      h.cfg.Firm.FirmName,
		AssistantName: h.cfg.Firm.AssistantName,
		PracticeAreas: h.cfg.Firm.PracticeAreas,
		Tone:          h.cfg.Firm.Tone,
		Instructions:  h.cfg.Firm.Instructions,
	})

	adapter, err := h.factory.New(ctx, prompt)
	if err != nil {
		return nil, nil, err
	}
	source := capture.NewChannelSource()

	hooks := session.Hooks{
		OnEntry: func(entry models.TranscriptEntry) {
			_ = writeJSON(ServerMessage{
				Type:      "transcript",
				SessionID: sessionID,
				Speaker:   string(entry.Speaker),
				Text:      entry.Text,
			})
		},
		OnInterrupted: func() {
			_ = writeJSON(ServerMessage{Type: "interrupted", SessionID: sessionID})
		},
		OnError: func(err error) {
			_ = writeJSON(ServerMessage{Type: "error", SessionID: sessionID, Message: err.Error()})
		},
		OnLeadSent: func(*models.LeadRecord) {
			_ = writeJSON(ServerMessage{Type: "lead_sent", SessionID: sessionID})
		},
	}

	sess, err := session.New(sessionID, session.Deps{
		Adapter:   adapter,
		Source:    source,
		Sink:      &connSink{sessionID: sessionID, writeJSON: writeJSON},
		Builder:   lead.NewBuilder(nil, h.cfg.Firm.ClientID, h.cfg.Firm.FirmName),
		Gateway:   h.gateway,
		Publisher: h.publisher,
		Hooks:     hooks,
		Limits: session.Limits{
			MaxDuration:          h.cfg.Session.MaxDuration,
			MaxAudioBytes:        h.cfg.Session.MaxAudioBytes,
			MinConversationChars: h.cfg.Session.MinConversationChars,
		},
		ClientID:           h.cfg.Firm.ClientID,
		FrameSamples:       h.cfg.Speech.FrameSamples,
		OutputSampleRateHz: h.cfg.Speech.OutputSampleRateHz,
	}, h.logger)
	if err != nil {
		return nil, nil, err
	}
	return sess, source, nil
}

// readLoop consumes widget messages until the client ends the session or
// the connection drops.
func (h *Handler) readLoop(conn *websocket.Conn, sess *session.Session, source *capture.ChannelSource, writeJSON func(any) error, logger zerolog.Logger) {
	for {
		var msg ClientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Warn().Err(err).Msg("WebSocket read failed")
			}
			return
		}

		switch msg.Type {
		case "audio_frame":
			pcm, err := audio.DecodeBytes(msg.Audio)
			if err != nil {
				// A garbled frame is dropped; the stream continues.
				logger.Debug().Err(err).Msg("Dropped undecodable audio frame")
				_ = writeJSON(ServerMessage{Type: "error", SessionID: sess.ID(), Message: "invalid audio frame"})
				continue
			}
			source.Push(pcm)
		case "end_session":
			return
		default:
			logger.Debug().Str("type", msg.Type).Msg("Ignoring unknown message type")
		}
	}
}

// connSink forwards scheduled agent audio chunks to the widget. Playback
// pacing happens client-side against the widget's own audio clock, so the
// sink completes each chunk as soon as it is written.
type connSink struct {
	sessionID string
	writeJSON func(any) error
}

func (s *connSink) Start(samples []float32, at float64, done func()) (playback.Handle, error) {
	err := s.writeJSON(ServerMessage{
		Type:      "audio",
		SessionID: s.sessionID,
		Audio:     audio.EncodeBytes(audio.SamplesToPCM(samples)),
		StartAt:   at,
	})
	done()
	if err != nil {
		return nil, err
	}
	return noopHandle{}, nil
}

type noopHandle struct{}

func (noopHandle) Stop() {}
