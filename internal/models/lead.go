package models

import "time"

// LeadFields holds the structured fields mined from the conversation.
// Field names follow the CRM pipeline contract (snake_case on the wire).
type LeadFields struct {
	FirstName         string `json:"first_name"`
	LastName          string `json:"last_name"`
	Phone             string `json:"phone"`
	Email             string `json:"email"`
	CaseType          string `json:"case_type"`
	Urgency           string `json:"urgency"`
	JurisdictionState string `json:"jurisdiction_state"`
	JurisdictionCity  string `json:"jurisdiction_city"`
	CaseSummary       string `json:"case_summary"`
	CourtDate         string `json:"court_date"`
	Source            string `json:"source"`
}

// LeadRecord is the structured output of one completed intake session.
// Built once per session, immediately before delivery, and never mutated
// afterwards. At most one record is produced and delivered per session
// instance; the sent flag guarding that lives in the session, not here,
// and is not crash-safe across process restarts.
type LeadRecord struct {
	ClientID   string
	FirmName   string
	Fields     LeadFields
	Transcript string
	Entries    []TranscriptEntry
	CreatedAt  time.Time
}

// ToolCall mirrors the downstream pipeline's function-call envelope.
type ToolCall struct {
	FunctionName string     `json:"function_name"`
	Parameters   LeadFields `json:"parameters"`
}

// EntryPayload is a transcript entry as serialized for delivery.
type EntryPayload struct {
	Role      string `json:"role"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}

// LeadPayload is the JSON body posted to the delivery webhook.
// The shape is the downstream CRM pipeline's contract.
type LeadPayload struct {
	Source               string         `json:"source"`
	ClientID             string         `json:"client_id"`
	FirmName             string         `json:"firm_name"`
	Transcript           string         `json:"transcript"`
	CallDurationSeconds  int            `json:"call_duration_seconds"`
	RecordingURL         *string        `json:"recording_url"`
	Timestamp            string         `json:"timestamp"`
	ToolCalls            []ToolCall     `json:"tool_calls"`
	TranscriptionEntries []EntryPayload `json:"transcription_entries"`
}

// LeadCreated is the event published when a lead has been delivered.
type LeadCreated struct {
	EventType string `json:"eventType"`
	SessionID string `json:"sessionId"`
	ClientID  string `json:"clientId"`
	CaseType  string `json:"caseType"`
	Urgency   string `json:"urgency"`
	Timestamp int64  `json:"timestamp"`
}

// Payload builds the webhook payload for the record.
func (r *LeadRecord) Payload() *LeadPayload {
	entries := make([]EntryPayload, 0, len(r.Entries))
	for _, e := range r.Entries {
		entries = append(entries, EntryPayload{
			Role:      e.Speaker.Role(),
			Text:      e.Text,
			Timestamp: e.OccurredAt.UTC().Format(time.RFC3339),
		})
	}
	return &LeadPayload{
		Source:               r.Fields.Source,
		ClientID:             r.ClientID,
		FirmName:             r.FirmName,
		Transcript:           r.Transcript,
		Timestamp:            r.CreatedAt.UTC().Format(time.RFC3339),
		ToolCalls:            []ToolCall{{FunctionName: "create_lead", Parameters: r.Fields}},
		TranscriptionEntries: entries,
	}
}
