package session

import (
	"errors"
	"fmt"
	"sync"
)

// State represents the lifecycle state of an intake session.
type State int

const (
	// StateIdle - Session created, not yet started.
	StateIdle State = iota
	// StateConnecting - Provider stream is being established.
	StateConnecting
	// StateActive - Audio is flowing in both directions.
	StateActive
	// StateClosing - Teardown in progress (lead delivery, stream close).
	StateClosing
	// StateClosed - Session is fully torn down. Terminal.
	StateClosed
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateConnecting:
		return "CONNECTING"
	case StateActive:
		return "ACTIVE"
	case StateClosing:
		return "CLOSING"
	case StateClosed:
		return "CLOSED"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", s)
	}
}

// IsTerminal returns true if the state is terminal.
func (s State) IsTerminal() bool {
	return s == StateClosed
}

// Errors for invalid state transitions.
var (
	ErrAlreadyStarted = errors.New("session already started")
	ErrSessionClosed  = errors.New("session is closed")
)

// Lifecycle manages the state machine for a single session.
// Thread-safe for concurrent access.
//
// State transitions:
//
//	IDLE → CONNECTING → ACTIVE → CLOSING → CLOSED
//	                ╰──────────────╯
//
// Rules:
//   - Start is only valid from IDLE.
//   - Stop is a no-op from IDLE and CLOSED, and only one caller wins the
//     transition into CLOSING; everyone else sees the guard and returns.
//   - CLOSED is terminal: a session instance is never restarted.
type Lifecycle struct {
	mu    sync.RWMutex
	state State
}

// NewLifecycle creates a session lifecycle in IDLE state.
func NewLifecycle() *Lifecycle {
	return &Lifecycle{state: StateIdle}
}

// State returns the current state.
func (l *Lifecycle) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// IsActive returns true when audio should be flowing.
func (l *Lifecycle) IsActive() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state == StateActive
}

// BeginConnect transitions IDLE → CONNECTING.
func (l *Lifecycle) BeginConnect() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch l.state {
	case StateIdle:
		l.state = StateConnecting
		return nil
	case StateClosed:
		return ErrSessionClosed
	default:
		return ErrAlreadyStarted
	}
}

// Activate transitions CONNECTING → ACTIVE.
func (l *Lifecycle) Activate() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state != StateConnecting {
		return fmt.Errorf("cannot activate from state %s", l.state)
	}
	l.state = StateActive
	return nil
}

// BeginClose attempts the transition into CLOSING. It returns true for
// exactly one caller per session; false means teardown is already done,
// underway, or the session never started.
func (l *Lifecycle) BeginClose() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch l.state {
	case StateConnecting, StateActive:
		l.state = StateClosing
		return true
	default:
		return false
	}
}

// FinishClose transitions to CLOSED. Idempotent.
func (l *Lifecycle) FinishClose() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state = StateClosed
}
