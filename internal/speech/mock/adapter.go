// Package mock provides a speech.Adapter for testing without provider
// credentials. It plays back scripted intake conversations with
// progressive transcription deltas, synthesized sine-tone audio chunks,
// turn completion and a scripted barge-in, advancing one step per audio
// frame received.
package mock

import (
	"context"
	"math"
	"sync"
	"time"

	"ai-voice-intake-service/internal/audio"
	"ai-voice-intake-service/internal/speech"
)

// chunkSamples is the size of each synthesized audio chunk (50ms at 24kHz).
const chunkSamples = 1200

// ScriptedTurn is one caller/agent exchange in a simulated conversation.
type ScriptedTurn struct {
	CallerDeltas []string // progressive caller transcription deltas
	AgentDeltas  []string // progressive agent transcription deltas
	AudioChunks  int      // synthesized audio chunks for the agent reply
	Interrupt    bool     // caller barges in instead of letting the turn finish
}

// Script is a full simulated intake conversation.
type Script struct {
	Turns []ScriptedTurn
}

// DefaultScripts provides sample intake conversations for simulation.
var DefaultScripts = []Script{
	{Turns: []ScriptedTurn{
		{
			CallerDeltas: []string{"Hi, my name is ", "John Smith and I was ", "arrested last night"},
			AgentDeltas:  []string{"I'm sorry to hear that. ", "Can you tell me what happened?"},
			AudioChunks:  3,
		},
		{
			CallerDeltas: []string{"They said it was a DUI, ", "I'm in Austin, Texas"},
			AgentDeltas:  []string{"Thank you. What's the best ", "number to reach you at?"},
			AudioChunks:  3,
		},
		{
			CallerDeltas: []string{"It's 555-123-4567"},
			AgentDeltas:  []string{"Got it. Someone from the firm ", "will call you shortly."},
			AudioChunks:  2,
		},
	}},
	{Turns: []ScriptedTurn{
		{
			CallerDeltas: []string{"Hello, I need help ", "with a divorce"},
			AgentDeltas:  []string{"Of course. Are there any ", "children involved?"},
			AudioChunks:  3,
		},
		{
			CallerDeltas: []string{"Yes, two kids, and ", "actually wait, let me explain"},
			AgentDeltas:  []string{"Custody arrangements are"},
			AudioChunks:  2,
			Interrupt:    true,
		},
		{
			CallerDeltas: []string{"My email is jane@example.com"},
			AgentDeltas:  []string{"Thanks, we'll be in touch."},
			AudioChunks:  1,
		},
	}},
}

// scriptCounter cycles new adapters through the default scripts.
var (
	scriptCounter int
	counterMu     sync.Mutex
)

// Adapter implements speech.Adapter with scripted responses. Each frame of
// caller audio advances the script by one event, delivered asynchronously
// like a real provider stream.
type Adapter struct {
	cfg    speech.Config
	script Script

	mu        sync.Mutex
	cb        speech.Callback
	steps     []speech.Event
	stepIndex int
	closed    bool
}

// New creates a mock adapter playing the next default script.
func New(cfg speech.Config) *Adapter {
	counterMu.Lock()
	idx := scriptCounter % len(DefaultScripts)
	scriptCounter++
	counterMu.Unlock()

	return NewWithScript(cfg, DefaultScripts[idx])
}

// NewWithScript creates a mock adapter playing the given script.
func NewWithScript(cfg speech.Config, script Script) *Adapter {
	if cfg.OutputSampleRateHz == 0 {
		cfg.OutputSampleRateHz = 24000
	}
	return &Adapter{cfg: cfg, script: script}
}

// Start registers the callback and flattens the script into a step list.
func (a *Adapter) Start(ctx context.Context, cb speech.Callback) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cb = cb
	a.steps = flatten(a.script, a.cfg.OutputSampleRateHz)
	a.stepIndex = 0
	return nil
}

// SendAudio consumes one caller frame and emits the next scripted event.
func (a *Adapter) SendAudio(ctx context.Context, _ []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed || a.cb == nil || a.stepIndex >= len(a.steps) {
		return nil
	}

	ev := a.steps[a.stepIndex]
	a.stepIndex++

	go func() {
		time.Sleep(10 * time.Millisecond)
		a.mu.Lock()
		cb, closed := a.cb, a.closed
		a.mu.Unlock()
		if !closed && cb != nil {
			cb.OnEvent(ev)
		}
	}()
	return nil
}

// Close ends the mock session.
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	return nil
}

// Remaining reports how many scripted events have not been emitted yet.
func (a *Adapter) Remaining() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.steps) - a.stepIndex
}

// flatten expands a script into the ordered event sequence a provider
// would send: caller deltas, agent deltas, audio chunks, then either an
// interruption or a turn-complete signal.
func flatten(script Script, sampleRateHz int) []speech.Event {
	var steps []speech.Event
	for _, turn := range script.Turns {
		for _, d := range turn.CallerDeltas {
			steps = append(steps, speech.Event{CallerDelta: d})
		}
		for _, d := range turn.AgentDeltas {
			steps = append(steps, speech.Event{AgentDelta: d})
		}
		for i := 0; i < turn.AudioChunks; i++ {
			steps = append(steps, speech.Event{Audio: toneChunk(sampleRateHz, i)})
		}
		if turn.Interrupt {
			steps = append(steps, speech.Event{Interrupted: true})
		}
		steps = append(steps, speech.Event{TurnComplete: true})
	}
	return steps
}

// toneChunk synthesizes one chunk of quiet 440Hz sine PCM.
func toneChunk(sampleRateHz, phase int) []byte {
	samples := make([]float32, chunkSamples)
	for i := range samples {
		t := float64(phase*chunkSamples+i) / float64(sampleRateHz)
		samples[i] = float32(0.1 * math.Sin(2*math.Pi*440*t))
	}
	return audio.SamplesToPCM(samples)
}
