package transcript

import (
	"sync"
	"testing"
	"time"

	"ai-voice-intake-service/internal/models"
)

func TestCompleteTurn_CallerOnly(t *testing.T) {
	r := NewReconciler()
	r.AppendCaller("My name is ")
	r.AppendCaller("John Smith")

	created := r.CompleteTurn()

	if len(created) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(created))
	}
	if created[0].Speaker != models.SpeakerCaller {
		t.Errorf("speaker = %s, want caller", created[0].Speaker)
	}
	if created[0].Text != "My name is John Smith" {
		t.Errorf("text = %q", created[0].Text)
	}

	// Both accumulation buffers must be empty: a second completion with no
	// new deltas creates nothing.
	if more := r.CompleteTurn(); len(more) != 0 {
		t.Errorf("expected empty second completion, got %d entries", len(more))
	}
	if got := r.Entries(); len(got) != 1 {
		t.Errorf("log has %d entries, want 1", len(got))
	}
}

func TestCompleteTurn_CallerBeforeAgent(t *testing.T) {
	r := NewReconciler()
	r.AppendAgent("How can I help?")
	r.AppendCaller("I got arrested")

	created := r.CompleteTurn()
	if len(created) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(created))
	}
	if created[0].Speaker != models.SpeakerCaller || created[1].Speaker != models.SpeakerAgent {
		t.Errorf("order = %s, %s; want caller, agent", created[0].Speaker, created[1].Speaker)
	}
}

func TestCompleteTurn_TrimsAndSkipsWhitespaceOnly(t *testing.T) {
	r := NewReconciler()
	r.AppendCaller("  hello there  ")
	r.AppendAgent("   ")

	created := r.CompleteTurn()
	if len(created) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(created))
	}
	if created[0].Text != "hello there" {
		t.Errorf("text = %q, want trimmed", created[0].Text)
	}
}

func TestConversation_Flattened(t *testing.T) {
	r := NewReconciler()
	r.AppendCaller("I need a lawyer")
	r.CompleteTurn()
	r.AppendAgent("Tell me what happened")
	r.CompleteTurn()
	r.AppendCaller("I was in a car crash")
	r.CompleteTurn()

	want := "Caller: I need a lawyer\nAgent: Tell me what happened\nCaller: I was in a car crash\n"
	if got := r.Conversation(); got != want {
		t.Errorf("conversation = %q, want %q", got, want)
	}
}

func TestReset_ClearsEverything(t *testing.T) {
	r := NewReconciler()
	r.AppendCaller("something")
	r.CompleteTurn()
	r.AppendAgent("in progress")

	r.Reset()

	if r.Conversation() != "" {
		t.Error("conversation not cleared")
	}
	if len(r.Entries()) != 0 {
		t.Error("entries not cleared")
	}
	if created := r.CompleteTurn(); len(created) != 0 {
		t.Error("in-progress buffers not cleared")
	}
}

func TestEntries_ReturnsCopy(t *testing.T) {
	r := NewReconciler()
	r.AppendCaller("original")
	r.CompleteTurn()

	got := r.Entries()
	got[0].Text = "mutated"

	if r.Entries()[0].Text != "original" {
		t.Error("log entry mutated through returned slice")
	}
}

func TestTimestamps_Monotonic(t *testing.T) {
	r := NewReconciler()
	base := time.Unix(1700000000, 0)
	step := 0
	r.now = func() time.Time {
		step++
		return base.Add(time.Duration(step) * time.Second)
	}

	r.AppendCaller("first")
	r.CompleteTurn()
	r.AppendCaller("second")
	r.CompleteTurn()

	entries := r.Entries()
	if !entries[1].OccurredAt.After(entries[0].OccurredAt) {
		t.Error("entries not in arrival order by timestamp")
	}
}

func TestConcurrentAppends(t *testing.T) {
	r := NewReconciler()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() { defer wg.Done(); r.AppendCaller("a") }()
		go func() { defer wg.Done(); r.AppendAgent("b") }()
	}
	wg.Wait()

	created := r.CompleteTurn()
	if len(created) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(created))
	}
	if len(created[0].Text) != 50 || len(created[1].Text) != 50 {
		t.Errorf("lost fragments: %d/%d", len(created[0].Text), len(created[1].Text))
	}
}
