// Package playback schedules decoded agent audio onto an output clock so
// that consecutive buffers play back to back with no gap and no overlap,
// and supports immediate cancellation when the caller interrupts.
package playback

import (
	"sync"
	"time"
)

// Clock reports the current position of the output audio clock in seconds.
type Clock interface {
	Now() float64
}

// Handle controls one buffer that has been handed to a Sink.
type Handle interface {
	// Stop cancels the buffer immediately. Safe to call more than once.
	Stop()
}

// Sink plays decoded sample buffers. Start must begin playback of samples
// at the given clock time and invoke done exactly once when playback ends
// or is stopped.
type Sink interface {
	Start(samples []float32, at float64, done func()) (Handle, error)
}

// Scheduler owns the gapless playback schedule for one session.
//
// Each buffer is scheduled at max(nextStart, clock.Now()); nextStart then
// advances by the buffer duration. If delivery falls behind real time the
// schedule snaps forward to the clock instead of drifting backward.
type Scheduler struct {
	clock        Clock
	sink         Sink
	sampleRateHz int

	mu        sync.Mutex
	nextStart float64
	tracked   map[*trackedItem]struct{}
}

type trackedItem struct {
	handle      Handle
	done        bool
	interrupted bool
}

// NewScheduler creates a scheduler playing mono buffers at sampleRateHz
// through sink, timed against clock.
func NewScheduler(clock Clock, sink Sink, sampleRateHz int) *Scheduler {
	return &Scheduler{
		clock:        clock,
		sink:         sink,
		sampleRateHz: sampleRateHz,
		tracked:      make(map[*trackedItem]struct{}),
	}
}

// Enqueue schedules samples for gapless playback and returns the scheduled
// start time on the output clock.
func (s *Scheduler) Enqueue(samples []float32) (float64, error) {
	item := &trackedItem{}

	s.mu.Lock()
	start := s.nextStart
	if now := s.clock.Now(); now > start {
		start = now
	}
	s.nextStart = start + float64(len(samples))/float64(s.sampleRateHz)
	s.tracked[item] = struct{}{}
	s.mu.Unlock()

	handle, err := s.sink.Start(samples, start, func() { s.complete(item) })
	if err != nil {
		s.complete(item)
		return 0, err
	}

	s.mu.Lock()
	interrupted := item.interrupted
	if !item.done {
		item.handle = handle
	}
	s.mu.Unlock()

	// An interrupt that fired while the sink was starting this buffer
	// removed the item before its handle existed; stop it now so nothing
	// keeps playing past the interruption.
	if interrupted {
		handle.Stop()
	}
	return start, nil
}

// complete removes a finished buffer from the tracked set so long sessions
// do not accumulate dead entries.
func (s *Scheduler) complete(item *trackedItem) {
	s.mu.Lock()
	item.done = true
	delete(s.tracked, item)
	s.mu.Unlock()
}

// Interrupt stops every tracked buffer, clears the tracked set, and resets
// the schedule clock to zero so the next buffer starts at the current clock
// time. Idempotent and safe to call at any moment.
func (s *Scheduler) Interrupt() {
	s.mu.Lock()
	handles := make([]Handle, 0, len(s.tracked))
	for item := range s.tracked {
		if item.handle != nil {
			handles = append(handles, item.handle)
		}
		item.done = true
		item.interrupted = true
		delete(s.tracked, item)
	}
	s.nextStart = 0
	s.mu.Unlock()

	for _, h := range handles {
		h.Stop()
	}
}

// Pending reports how many buffers are currently scheduled or playing.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tracked)
}

// NextStart returns the clock time the next buffer would be scheduled
// no earlier than.
func (s *Scheduler) NextStart() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextStart
}

// realClock measures seconds elapsed since it was created, which is the
// session's output audio clock.
type realClock struct {
	epoch time.Time
}

// NewClock returns a monotonic output clock starting at zero.
func NewClock() Clock {
	return &realClock{epoch: time.Now()}
}

func (c *realClock) Now() float64 {
	return time.Since(c.epoch).Seconds()
}
