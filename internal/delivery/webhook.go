// Package delivery hands finished leads to downstream systems. The primary
// gateway posts the lead payload to an automation webhook; a fanout gateway
// additionally publishes a lead-created event to Kafka.
package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"ai-voice-intake-service/internal/models"
	"ai-voice-intake-service/internal/observability/metrics"
)

// Gateway delivers a completed lead payload downstream.
type Gateway interface {
	// Deliver sends the payload for the given session. An error means the
	// lead did not reach the downstream system; callers decide whether to
	// retry.
	Deliver(ctx context.Context, sessionID string, payload *models.LeadPayload) error
}

// Webhook posts lead payloads to an automation webhook endpoint.
type Webhook struct {
	url     string
	source  string
	client  *http.Client
	metrics *metrics.Metrics
}

// NewWebhook creates a webhook gateway. A nil client falls back to a
// client with a 15s timeout.
func NewWebhook(url, source string, client *http.Client) *Webhook {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Webhook{
		url:     url,
		source:  source,
		client:  client,
		metrics: metrics.DefaultMetrics,
	}
}

// Deliver posts the payload as JSON with the routing headers the
// automation pipeline keys on.
func (w *Webhook) Deliver(ctx context.Context, sessionID string, payload *models.LeadPayload) error {
	start := time.Now()

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal lead payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-source", w.source)
	req.Header.Set("x-client-id", payload.ClientID)

	resp, err := w.client.Do(req)
	if err != nil {
		w.metrics.RecordLeadDelivery("webhook", err, time.Since(start).Seconds())
		return fmt.Errorf("post lead webhook: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err := fmt.Errorf("lead webhook returned status %d", resp.StatusCode)
		w.metrics.RecordLeadDelivery("webhook", err, time.Since(start).Seconds())
		return err
	}

	log.Info().
		Str("sessionId", sessionID).
		Str("clientId", payload.ClientID).
		Str("url", w.url).
		Int("status", resp.StatusCode).
		Msg("Lead delivered to webhook")
	w.metrics.RecordLeadDelivery("webhook", nil, time.Since(start).Seconds())
	return nil
}

// LeadPublisher is the slice of the event publisher the fanout needs.
type LeadPublisher interface {
	PublishLead(ctx context.Context, key string, event any) error
}

// Fanout delivers through the primary gateway and then publishes a
// lead-created event. A publish failure is logged but does not fail the
// delivery: the webhook is the system of record.
type Fanout struct {
	primary   Gateway
	publisher LeadPublisher
}

// NewFanout wraps primary with Kafka lead-event publication.
func NewFanout(primary Gateway, publisher LeadPublisher) *Fanout {
	return &Fanout{primary: primary, publisher: publisher}
}

// Deliver implements Gateway.
func (f *Fanout) Deliver(ctx context.Context, sessionID string, payload *models.LeadPayload) error {
	if err := f.primary.Deliver(ctx, sessionID, payload); err != nil {
		return err
	}

	event := models.LeadCreated{
		EventType: "intake.lead.created",
		SessionID: sessionID,
		ClientID:  payload.ClientID,
		Timestamp: time.Now().Unix(),
	}
	if len(payload.ToolCalls) > 0 {
		event.CaseType = payload.ToolCalls[0].Parameters.CaseType
		event.Urgency = payload.ToolCalls[0].Parameters.Urgency
	}
	if err := f.publisher.PublishLead(ctx, sessionID, event); err != nil {
		log.Error().Err(err).Str("sessionId", sessionID).Msg("Failed to publish lead event")
	}
	return nil
}
