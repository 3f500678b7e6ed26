package playback

import (
	"context"
	"io"
	"sync"
	"time"

	"ai-voice-intake-service/internal/audio"
)

// WriterSink plays scheduled buffers by writing little-endian PCM16 to an
// io.Writer (a speaker process stdin, or a websocket audio writer). The
// write happens when the buffer's scheduled start arrives; done fires after
// the buffer's duration has elapsed, matching when a real output device
// would finish it.
type WriterSink struct {
	clock        Clock
	w            io.Writer
	sampleRateHz int

	writeMu sync.Mutex
}

// NewWriterSink creates a sink writing PCM frames to w.
func NewWriterSink(clock Clock, w io.Writer, sampleRateHz int) *WriterSink {
	return &WriterSink{clock: clock, w: w, sampleRateHz: sampleRateHz}
}

type writerHandle struct {
	cancel context.CancelFunc
}

func (h *writerHandle) Stop() { h.cancel() }

// Start implements Sink.
func (s *WriterSink) Start(samples []float32, at float64, done func()) (Handle, error) {
	ctx, cancel := context.WithCancel(context.Background())
	duration := time.Duration(audio.Duration(len(samples), s.sampleRateHz) * float64(time.Second))

	go func() {
		defer done()

		if wait := at - s.clock.Now(); wait > 0 {
			t := time.NewTimer(time.Duration(wait * float64(time.Second)))
			defer t.Stop()
			select {
			case <-ctx.Done():
				return
			case <-t.C:
			}
		}
		if ctx.Err() != nil {
			return
		}

		pcm := audio.SamplesToPCM(samples)
		s.writeMu.Lock()
		_, err := s.w.Write(pcm)
		s.writeMu.Unlock()
		if err != nil {
			return
		}

		t := time.NewTimer(duration)
		defer t.Stop()
		select {
		case <-ctx.Done():
		case <-t.C:
		}
	}()

	return &writerHandle{cancel: cancel}, nil
}
