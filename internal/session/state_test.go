package session

import (
	"errors"
	"sync"
	"testing"
)

func TestLifecycle_HappyPath(t *testing.T) {
	l := NewLifecycle()
	if l.State() != StateIdle {
		t.Fatalf("initial state = %s, want IDLE", l.State())
	}
	if err := l.BeginConnect(); err != nil {
		t.Fatalf("BeginConnect: %v", err)
	}
	if l.State() != StateConnecting {
		t.Errorf("state = %s, want CONNECTING", l.State())
	}
	if err := l.Activate(); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	if !l.IsActive() {
		t.Error("IsActive() = false after Activate")
	}
	if !l.BeginClose() {
		t.Error("BeginClose from ACTIVE must win")
	}
	if l.State() != StateClosing {
		t.Errorf("state = %s, want CLOSING", l.State())
	}
	l.FinishClose()
	if l.State() != StateClosed {
		t.Errorf("state = %s, want CLOSED", l.State())
	}
	if !l.State().IsTerminal() {
		t.Error("CLOSED must be terminal")
	}
}

func TestLifecycle_DoubleConnectRejected(t *testing.T) {
	l := NewLifecycle()
	l.BeginConnect()
	if err := l.BeginConnect(); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("expected ErrAlreadyStarted, got %v", err)
	}
}

func TestLifecycle_ConnectAfterCloseRejected(t *testing.T) {
	l := NewLifecycle()
	l.BeginConnect()
	l.BeginClose()
	l.FinishClose()
	if err := l.BeginConnect(); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("expected ErrSessionClosed, got %v", err)
	}
}

func TestLifecycle_BeginCloseFromIdleLoses(t *testing.T) {
	l := NewLifecycle()
	if l.BeginClose() {
		t.Error("BeginClose from IDLE must not win")
	}
	if l.State() != StateIdle {
		t.Errorf("state = %s, want IDLE", l.State())
	}
}

func TestLifecycle_ConcurrentCloseSingleWinner(t *testing.T) {
	l := NewLifecycle()
	l.BeginConnect()
	l.Activate()

	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.BeginClose() {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if winners != 1 {
		t.Errorf("winners = %d, want exactly 1", winners)
	}
}

func TestLifecycle_FinishCloseIdempotent(t *testing.T) {
	l := NewLifecycle()
	l.BeginConnect()
	l.BeginClose()
	l.FinishClose()
	l.FinishClose()
	if l.State() != StateClosed {
		t.Errorf("state = %s, want CLOSED", l.State())
	}
}

func TestState_String(t *testing.T) {
	cases := map[State]string{
		StateIdle:       "IDLE",
		StateConnecting: "CONNECTING",
		StateActive:     "ACTIVE",
		StateClosing:    "CLOSING",
		StateClosed:     "CLOSED",
	}
	for state, want := range cases {
		if got := state.String(); got != want {
			t.Errorf("String() = %q, want %q", got, want)
		}
	}
}
