// Command intakeclient is an interactive test client for the intake
// service. It captures microphone audio (or streams a WAV file) and plays
// agent audio through ffplay.
//
// With -server it speaks the widget WebSocket protocol against a running
// service; without it, it runs a full session in-process, which is the
// quickest way to exercise a speech provider end to end.
package main

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"ai-voice-intake-service/internal/api/ws"
	"ai-voice-intake-service/internal/capture"
	"ai-voice-intake-service/internal/config"
	"ai-voice-intake-service/internal/delivery"
	"ai-voice-intake-service/internal/lead"
	"ai-voice-intake-service/internal/models"
	"ai-voice-intake-service/internal/playback"
	"ai-voice-intake-service/internal/session"
	"ai-voice-intake-service/internal/speech"
	"ai-voice-intake-service/internal/speech/adapters"
)

const wavHeaderSize = 44

func main() {
	serverURL := flag.String("server", "", "WebSocket URL of a running service (e.g. ws://localhost:8080/v1/intake); empty runs in-process")
	provider := flag.String("provider", "", "Speech provider for in-process mode (mock, gemini, gcp); defaults to SPEECH_PROVIDER")
	audioFile := flag.String("audio", "", "WAV file to stream instead of the microphone (16kHz 16-bit mono)")
	webhookURL := flag.String("webhook", "", "Lead webhook URL for in-process mode; empty prints the lead")
	flag.Parse()

	cfg := config.Load()
	if *provider != "" {
		cfg.Speech.Provider = *provider
	}

	if *serverURL != "" {
		runAgainstServer(*serverURL, *audioFile, cfg.Speech.InputSampleRateHz)
		return
	}
	runInProcess(cfg, *audioFile, *webhookURL)
}

// runInProcess wires a complete session locally: provider adapter,
// capture source, ffplay playback and lead delivery.
func runInProcess(cfg *config.Configuration, audioFile, webhookURL string) {
	factory, err := adapters.NewFactory(cfg.Speech.Provider, speech.Config{
		Model:              cfg.Speech.Model,
		APIKey:             cfg.Speech.APIKey,
		Voice:              cfg.Speech.Voice,
		LanguageCode:       cfg.Speech.LanguageCode,
		InputSampleRateHz:  cfg.Speech.InputSampleRateHz,
		OutputSampleRateHz: cfg.Speech.OutputSampleRateHz,
	})
	if err != nil {
		log.Fatalf("Invalid provider: %v", err)
	}

	prompt := session.BuildSystemPrompt(session.FirmProfile{
		FirmName:      cfg.Firm.FirmName,
		AssistantName: cfg.Firm.AssistantName,
		PracticeAreas: cfg.Firm.PracticeAreas,
		Tone:          cfg.Firm.Tone,
		Instructions:  cfg.Firm.Instructions,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	adapter, err := factory.New(ctx, prompt)
	if err != nil {
		log.Fatalf("Failed to create %s adapter: %v", factory.Provider(), err)
	}

	var source capture.Source
	streamed := make(chan struct{})
	if audioFile != "" {
		ch := capture.NewChannelSource()
		go streamWAV(audioFile, cfg.Speech.InputSampleRateHz, ch, streamed)
		source = ch
	} else {
		close(streamed)
		source = capture.NewMicSource(cfg.Speech.InputSampleRateHz)
	}

	speaker, err := newFFplaySpeaker(cfg.Speech.OutputSampleRateHz)
	if err != nil {
		log.Fatalf("Failed to start speaker: %v", err)
	}
	defer speaker.Close()

	var gateway delivery.Gateway = printGateway{}
	if webhookURL != "" {
		gateway = delivery.NewWebhook(webhookURL, cfg.Webhook.Source, nil)
	}

	clock := playback.NewClock()
	sess, err := session.New(fmt.Sprintf("local-%s", time.Now().Format("150405")), session.Deps{
		Adapter: adapter,
		Source:  source,
		Sink:    playback.NewWriterSink(clock, speaker, cfg.Speech.OutputSampleRateHz),
		Clock:   clock,
		Builder: lead.NewBuilder(nil, cfg.Firm.ClientID, cfg.Firm.FirmName),
		Gateway: gateway,
		Hooks: session.Hooks{
			OnEntry: func(e models.TranscriptEntry) {
				fmt.Printf("[%s] %s\n", e.Speaker, e.Text)
			},
			OnInterrupted: func() { fmt.Println("-- interrupted --") },
			OnLeadSent:    func(r *models.LeadRecord) { fmt.Println("-- lead delivered --") },
		},
		ClientID:           cfg.Firm.ClientID,
		FrameSamples:       cfg.Speech.FrameSamples,
		OutputSampleRateHz: cfg.Speech.OutputSampleRateHz,
	}, zerolog.New(os.Stderr).With().Timestamp().Logger())
	if err != nil {
		log.Fatalf("Failed to create session: %v", err)
	}

	if err := sess.Start(ctx); err != nil {
		log.Fatalf("Failed to start session: %v", err)
	}
	log.Printf("Session %s started (provider=%s), Ctrl-C to end", sess.ID(), factory.Provider())

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-streamed:
		if audioFile != "" {
			// Let trailing provider events drain before teardown.
			time.Sleep(2 * time.Second)
		} else {
			<-sig
		}
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer stopCancel()
	if err := sess.Stop(stopCtx); err != nil {
		log.Printf("Stop error: %v", err)
	}
}

// runAgainstServer speaks the widget protocol: caller frames out, agent
// audio and transcripts in.
func runAgainstServer(url, audioFile string, inputRateHz int) {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		log.Fatalf("Failed to connect to %s: %v", url, err)
	}
	defer conn.Close()

	var ready ws.ServerMessage
	if err := conn.ReadJSON(&ready); err != nil || ready.Type != "ready" {
		log.Fatalf("Handshake failed: type=%q err=%v", ready.Type, err)
	}
	log.Printf("Session %s ready: in=%dHz out=%dHz frame=%d samples",
		ready.SessionID, ready.InputSampleRateHz, ready.OutputSampleRateHz, ready.FrameSamples)

	speaker, err := newFFplaySpeaker(ready.OutputSampleRateHz)
	if err != nil {
		log.Fatalf("Failed to start speaker: %v", err)
	}
	defer speaker.Close()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			var msg ws.ServerMessage
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			switch msg.Type {
			case "audio":
				if pcm, err := base64.StdEncoding.DecodeString(msg.Audio); err == nil {
					_, _ = speaker.Write(pcm)
				}
			case "transcript":
				fmt.Printf("[%s] %s\n", msg.Speaker, msg.Text)
			case "interrupted":
				fmt.Println("-- interrupted --")
			case "lead_sent":
				fmt.Println("-- lead delivered --")
			case "error":
				log.Printf("Server error: %s", msg.Message)
			case "closed":
				return
			}
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var source capture.Source
	if audioFile != "" {
		ch := capture.NewChannelSource()
		go streamWAV(audioFile, ready.InputSampleRateHz, ch, make(chan struct{}))
		source = ch
	} else {
		source = capture.NewMicSource(inputRateHz)
	}
	if err := source.Start(ctx); err != nil {
		log.Fatalf("Failed to start capture: %v", err)
	}
	defer source.Stop()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	// Accumulate capture chunks into exact protocol frames.
	frameBytes := ready.FrameSamples * 2
	var buf []byte
send:
	for {
		select {
		case <-sig:
			break send
		case <-closed:
			break send
		case chunk, ok := <-source.Chunks():
			if !ok {
				break send
			}
			buf = append(buf, chunk...)
			for len(buf) >= frameBytes {
				frame := ws.ClientMessage{
					Type:  "audio_frame",
					Audio: base64.StdEncoding.EncodeToString(buf[:frameBytes]),
				}
				buf = buf[frameBytes:]
				if err := conn.WriteJSON(frame); err != nil {
					break send
				}
			}
		}
	}

	_ = conn.WriteJSON(ws.ClientMessage{Type: "end_session"})
	select {
	case <-closed:
	case <-time.After(10 * time.Second):
		log.Println("Timed out waiting for session close")
	}
}

// streamWAV pushes a WAV file's PCM payload into the source in paced
// 100ms chunks, simulating a live microphone.
func streamWAV(path string, expectRateHz int, source *capture.ChannelSource, done chan struct{}) {
	defer close(done)

	f, err := os.Open(path)
	if err != nil {
		log.Fatalf("Failed to open audio file: %v", err)
	}
	defer f.Close()

	header := make([]byte, wavHeaderSize)
	if _, err := io.ReadFull(f, header); err != nil {
		log.Fatalf("Failed to read WAV header: %v", err)
	}
	if string(header[0:4]) != "RIFF" || string(header[8:12]) != "WAVE" {
		log.Fatal("Not a valid WAV file")
	}

	audioFormat := binary.LittleEndian.Uint16(header[20:22])
	numChannels := binary.LittleEndian.Uint16(header[22:24])
	sampleRate := binary.LittleEndian.Uint32(header[24:28])
	bitsPerSample := binary.LittleEndian.Uint16(header[34:36])
	if audioFormat != 1 || numChannels != 1 || bitsPerSample != 16 {
		log.Fatalf("Need PCM16 mono, got format=%d channels=%d bits=%d", audioFormat, numChannels, bitsPerSample)
	}
	if int(sampleRate) != expectRateHz {
		log.Printf("Warning: sample rate is %d Hz, expected %d Hz", sampleRate, expectRateHz)
	}

	// 100ms of PCM16 per push.
	chunkSize := expectRateHz / 10 * 2
	chunk := make([]byte, chunkSize)
	for {
		n, err := f.Read(chunk)
		if n > 0 {
			pcm := make([]byte, n)
			copy(pcm, chunk[:n])
			source.Push(pcm)
			time.Sleep(100 * time.Millisecond)
		}
		if err != nil {
			return
		}
	}
}

// printGateway dumps the lead to stdout instead of delivering it.
type printGateway struct{}

func (printGateway) Deliver(_ context.Context, sessionID string, payload *models.LeadPayload) error {
	fields := payload.ToolCalls[0].Parameters
	fmt.Printf("\n=== Lead for session %s ===\n", sessionID)
	fmt.Printf("Name:      %s\n", fields.FirstName)
	fmt.Printf("Phone:     %s\n", fields.Phone)
	fmt.Printf("Email:     %s\n", fields.Email)
	fmt.Printf("Case type: %s\n", fields.CaseType)
	fmt.Printf("Urgency:   %s\n", fields.Urgency)
	fmt.Printf("Summary:   %s\n", fields.CaseSummary)
	return nil
}
