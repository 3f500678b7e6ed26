// Package capture turns a live audio input into a sequence of fixed-size
// outbound frames. Frames are emitted unconditionally once capture starts;
// there is no outbound queue and a frame the transport cannot take is
// dropped, never retried.
package capture

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"ai-voice-intake-service/internal/audio"
)

// Source provides raw little-endian PCM16 mono audio from a live input.
// Chunks may arrive in arbitrary sizes; the pipeline re-frames them.
type Source interface {
	Start(ctx context.Context) error
	// Chunks delivers captured audio. The channel closes when the source
	// stops.
	Chunks() <-chan []byte
	// Errors delivers device failures. Any error here is fatal to the
	// session that owns the source.
	Errors() <-chan error
	Stop() error
}

// SendFunc forwards one frame to the transport. Implementations own the
// drop policy; the pipeline never retries.
type SendFunc func(frame []byte)

// Pipeline chunks a Source into frames of exactly FrameSamples samples.
type Pipeline struct {
	source       Source
	frameBytes   int
	send         SendFunc
	onFatalError func(error)

	mu      sync.Mutex
	running bool
	stop    context.CancelFunc
	wg      sync.WaitGroup

	framesEmitted atomic.Uint64
}

// NewPipeline creates a pipeline emitting frames of frameSamples mono
// samples each. onFatalError is invoked once if the source fails (for
// example the input device is revoked); it may be nil.
func NewPipeline(source Source, frameSamples int, send SendFunc, onFatalError func(error)) *Pipeline {
	return &Pipeline{
		source:       source,
		frameBytes:   frameSamples * audio.BytesPerSample,
		send:         send,
		onFatalError: onFatalError,
	}
}

// Start acquires the source and begins emitting frames.
func (p *Pipeline) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("capture pipeline already running")
	}
	p.running = true
	ctx, p.stop = context.WithCancel(ctx)
	p.mu.Unlock()

	if err := p.source.Start(ctx); err != nil {
		p.mu.Lock()
		p.running = false
		p.mu.Unlock()
		return fmt.Errorf("start capture source: %w", err)
	}

	p.wg.Add(1)
	go p.run(ctx)
	return nil
}

func (p *Pipeline) run(ctx context.Context) {
	defer p.wg.Done()

	buf := make([]byte, 0, p.frameBytes*2)
	chunks := p.source.Chunks()
	errs := p.source.Errors()

	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			if p.onFatalError != nil {
				p.onFatalError(err)
			}
			return
		case chunk, ok := <-chunks:
			if !ok {
				return
			}
			buf = append(buf, chunk...)
			for len(buf) >= p.frameBytes {
				frame := make([]byte, p.frameBytes)
				copy(frame, buf[:p.frameBytes])
				buf = buf[p.frameBytes:]
				p.framesEmitted.Add(1)
				p.send(frame)
			}
		}
	}
}

// Stop releases the source. A trailing partial frame is discarded.
// Idempotent and safe to call before Start.
func (p *Pipeline) Stop() error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = false
	stop := p.stop
	p.mu.Unlock()

	stop()
	err := p.source.Stop()
	p.wg.Wait()
	return err
}

// FramesEmitted reports how many full frames have been sent so far.
func (p *Pipeline) FramesEmitted() uint64 {
	return p.framesEmitted.Load()
}
