package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"ai-voice-intake-service/internal/models"
)

func samplePayload() *models.LeadPayload {
	rec := &models.LeadRecord{
		ClientID: "firm-demo",
		FirmName: "Demo Legal",
		Fields: models.LeadFields{
			FirstName: "Jane Doe",
			CaseType:  "DUI/DWI",
			Urgency:   "high",
			Source:    "web_chat",
		},
		Transcript: "Caller: hello\n",
		CreatedAt:  time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	return rec.Payload()
}

func TestWebhook_Deliver(t *testing.T) {
	var (
		mu      sync.Mutex
		headers http.Header
		body    []byte
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		headers = r.Header.Clone()
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	gw := NewWebhook(srv.URL, "legal-ai-web-widget", srv.Client())
	if err := gw.Deliver(context.Background(), "sess-1", samplePayload()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if got := headers.Get("x-source"); got != "legal-ai-web-widget" {
		t.Errorf("x-source = %q", got)
	}
	if got := headers.Get("x-client-id"); got != "firm-demo" {
		t.Errorf("x-client-id = %q", got)
	}
	if got := headers.Get("Content-Type"); got != "application/json" {
		t.Errorf("content-type = %q", got)
	}

	var decoded models.LeadPayload
	if err := json.Unmarshal(body, &decoded); err != nil {
		t.Fatalf("body is not valid JSON: %v", err)
	}
	if decoded.ClientID != "firm-demo" || decoded.FirmName != "Demo Legal" {
		t.Errorf("identity wrong: %s / %s", decoded.ClientID, decoded.FirmName)
	}
	if len(decoded.ToolCalls) != 1 || decoded.ToolCalls[0].FunctionName != "create_lead" {
		t.Error("expected a single create_lead tool call")
	}
}

func TestWebhook_Deliver_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	gw := NewWebhook(srv.URL, "legal-ai-web-widget", srv.Client())
	if err := gw.Deliver(context.Background(), "sess-1", samplePayload()); err == nil {
		t.Error("expected error for 502 response")
	}
}

func TestWebhook_Deliver_Unreachable(t *testing.T) {
	gw := NewWebhook("http://127.0.0.1:1", "legal-ai-web-widget", &http.Client{Timeout: time.Second})
	if err := gw.Deliver(context.Background(), "sess-1", samplePayload()); err == nil {
		t.Error("expected error for unreachable endpoint")
	}
}

type stubGateway struct {
	mu       sync.Mutex
	sessions []string
	err      error
}

func (s *stubGateway) Deliver(ctx context.Context, sessionID string, payload *models.LeadPayload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = append(s.sessions, sessionID)
	return s.err
}

type stubPublisher struct {
	mu     sync.Mutex
	events []models.LeadCreated
	err    error
}

func (s *stubPublisher) PublishLead(ctx context.Context, key string, event any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if lc, ok := event.(models.LeadCreated); ok {
		s.events = append(s.events, lc)
	}
	return s.err
}

func TestFanout_PublishesAfterDelivery(t *testing.T) {
	primary := &stubGateway{}
	pub := &stubPublisher{}
	f := NewFanout(primary, pub)

	if err := f.Deliver(context.Background(), "sess-42", samplePayload()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(primary.sessions) != 1 || primary.sessions[0] != "sess-42" {
		t.Error("primary gateway not invoked with session ID")
	}
	if len(pub.events) != 1 {
		t.Fatalf("expected 1 lead event, got %d", len(pub.events))
	}
	ev := pub.events[0]
	if ev.EventType != "intake.lead.created" || ev.SessionID != "sess-42" {
		t.Errorf("event wrong: %+v", ev)
	}
	if ev.CaseType != "DUI/DWI" || ev.Urgency != "high" {
		t.Errorf("lead facts not carried: %s / %s", ev.CaseType, ev.Urgency)
	}
}

func TestFanout_PrimaryFailureSkipsPublish(t *testing.T) {
	primary := &stubGateway{err: errors.New("boom")}
	pub := &stubPublisher{}
	f := NewFanout(primary, pub)

	if err := f.Deliver(context.Background(), "sess-42", samplePayload()); err == nil {
		t.Fatal("expected delivery error")
	}
	if len(pub.events) != 0 {
		t.Error("lead event must not be published when delivery fails")
	}
}

func TestFanout_PublishFailureDoesNotFailDelivery(t *testing.T) {
	primary := &stubGateway{}
	pub := &stubPublisher{err: errors.New("kafka down")}
	f := NewFanout(primary, pub)

	if err := f.Deliver(context.Background(), "sess-42", samplePayload()); err != nil {
		t.Errorf("publish failure must not fail delivery, got %v", err)
	}
}
