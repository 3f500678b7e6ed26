// Package transcript reconciles the two partial transcript streams of a
// live session (caller and agent) into a single ordered conversation log.
package transcript

import (
	"strings"
	"sync"
	"time"

	"ai-voice-intake-service/internal/models"
)

// Reconciler accumulates per-turn partial text for each speaker and
// flushes completed turns into an ordered log. The flattened conversation
// string is append-only for the lifetime of one session and is the exact
// text handed to lead extraction at session end.
type Reconciler struct {
	mu        sync.Mutex
	callerBuf strings.Builder
	agentBuf  strings.Builder
	entries   []models.TranscriptEntry
	flat      strings.Builder

	now func() time.Time
}

// NewReconciler creates an empty reconciler.
func NewReconciler() *Reconciler {
	return &Reconciler{now: time.Now}
}

// AppendCaller appends a caller-speech fragment to the in-progress turn.
func (r *Reconciler) AppendCaller(fragment string) {
	r.mu.Lock()
	r.callerBuf.WriteString(fragment)
	r.mu.Unlock()
}

// AppendAgent appends an agent-speech fragment to the in-progress turn.
func (r *Reconciler) AppendAgent(fragment string) {
	r.mu.Lock()
	r.agentBuf.WriteString(fragment)
	r.mu.Unlock()
}

// CompleteTurn flushes both accumulation buffers. Each non-empty buffer
// (after trimming) becomes one immutable entry, caller before agent, and
// one "Speaker: text" line in the flattened conversation. Both buffers are
// empty afterwards. Returns the entries created by this turn boundary.
func (r *Reconciler) CompleteTurn() []models.TranscriptEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	var created []models.TranscriptEntry
	ts := r.now()

	if text := strings.TrimSpace(r.callerBuf.String()); text != "" {
		created = append(created, r.appendLocked(models.SpeakerCaller, "Caller", text, ts))
	}
	if text := strings.TrimSpace(r.agentBuf.String()); text != "" {
		created = append(created, r.appendLocked(models.SpeakerAgent, "Agent", text, ts))
	}

	r.callerBuf.Reset()
	r.agentBuf.Reset()
	return created
}

func (r *Reconciler) appendLocked(speaker models.Speaker, label, text string, ts time.Time) models.TranscriptEntry {
	entry := models.TranscriptEntry{Speaker: speaker, Text: text, OccurredAt: ts}
	r.entries = append(r.entries, entry)
	r.flat.WriteString(label)
	r.flat.WriteString(": ")
	r.flat.WriteString(text)
	r.flat.WriteString("\n")
	return entry
}

// Entries returns a copy of the ordered conversation log.
func (r *Reconciler) Entries() []models.TranscriptEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.TranscriptEntry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Conversation returns the flattened conversation string.
func (r *Reconciler) Conversation() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.flat.String()
}

// Reset clears all session-scoped state for a fresh session.
func (r *Reconciler) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.callerBuf.Reset()
	r.agentBuf.Reset()
	r.entries = nil
	r.flat.Reset()
}
