// Package lead mines the flattened conversation of a completed intake
// session for structured fields and builds the lead record handed to the
// delivery gateway.
package lead

import (
	"regexp"
	"strings"
	"time"

	"ai-voice-intake-service/internal/models"
)

// summaryLimit caps the case summary length, truncation marker included.
const summaryLimit = 500

// ClassifyUrgency returns the highest-priority urgency tier with any
// keyword present in text, or UrgencyLow when none match. Matching is
// case-insensitive substring containment; the first matching tier wins,
// not the one with the most matches.
func ClassifyUrgency(text string) Urgency {
	lower := strings.ToLower(text)
	for _, tier := range urgencyTiers {
		for _, kw := range tier.keywords {
			if strings.Contains(lower, kw) {
				return tier.level
			}
		}
	}
	return UrgencyLow
}

// ClassifyCaseType returns the category whose keyword table scores the
// strictly highest case-insensitive hit count, CaseTypeUnknown when every
// category scores zero. Ties keep the earlier-declared category.
func ClassifyCaseType(text string) string {
	lower := strings.ToLower(text)
	best := CaseTypeUnknown
	bestScore := 0
	for _, ct := range caseTypes {
		score := 0
		for _, kw := range ct.keywords {
			if strings.Contains(lower, kw) {
				score++
			}
		}
		if score > bestScore {
			bestScore = score
			best = ct.name
		}
	}
	return best
}

// FieldExtractor extracts one named field from conversation text. Keeping
// this behind an interface lets the matching strategy be swapped without
// touching the session machinery.
type FieldExtractor interface {
	// ExtractField returns the first match for the field, or "" when the
	// text contains no usable value. Must never panic on no-match.
	ExtractField(text, field string) string
}

var (
	phoneRe     = regexp.MustCompile(`\+?1?\s?\(?\d{3}\)?[\s.-]?\d{3}[\s.-]?\d{4}`)
	emailRe     = regexp.MustCompile(`[\w.-]+@[\w.-]+\.\w+`)
	nameRe      = regexp.MustCompile(`(?i)(?:my name is|i'm|i am|this is)\s+([A-Z][a-z]+(?:\s+[A-Z][a-z]+)?)`)
	stateAbbrRe = regexp.MustCompile(`\b(AL|AK|AZ|AR|CA|CO|CT|DE|FL|GA|HI|ID|IL|IN|IA|KS|KY|LA|ME|MD|MA|MI|MN|MS|MO|MT|NE|NV|NH|NJ|NM|NY|NC|ND|OH|OK|OR|PA|RI|SC|SD|TN|TX|UT|VT|VA|WA|WV|WI|WY)\b`)
	cityRe      = regexp.MustCompile(`(?:in|from|near|at)\s+([A-Z][a-z]+(?:\s+[A-Z][a-z]+)*)`)
	courtDateRe = regexp.MustCompile(`(?i)(?:court|hearing|trial)[\s\w]*(?:on|is|date)\s+([\w\s,]+\d{1,4})`)
)

// RegexExtractor is the default pattern-based FieldExtractor.
type RegexExtractor struct{}

// ExtractField implements FieldExtractor for the fields phone, email,
// name, state, city and court_date.
func (RegexExtractor) ExtractField(text, field string) string {
	switch field {
	case "phone":
		return phoneRe.FindString(text)
	case "email":
		return emailRe.FindString(text)
	case "name":
		if m := nameRe.FindStringSubmatch(text); m != nil {
			return m[1]
		}
	case "state":
		lower := strings.ToLower(text)
		for _, state := range stateNames {
			if strings.Contains(lower, state) {
				return titleCase(state)
			}
		}
		if m := stateAbbrRe.FindStringSubmatch(text); m != nil {
			return m[1]
		}
	case "city":
		if m := cityRe.FindStringSubmatch(text); m != nil {
			return m[1]
		}
	case "court_date":
		if m := courtDateRe.FindStringSubmatch(text); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	return ""
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// Summarize joins the caller-authored entries' text, space-separated,
// truncated to summaryLimit characters with a trailing marker if longer.
func Summarize(entries []models.TranscriptEntry) string {
	var parts []string
	for _, e := range entries {
		if e.Speaker == models.SpeakerCaller {
			parts = append(parts, e.Text)
		}
	}
	joined := strings.Join(parts, " ")
	if len(joined) > summaryLimit {
		return joined[:summaryLimit-3] + "..."
	}
	return joined
}

// Builder assembles LeadRecords from a finished conversation.
type Builder struct {
	extractor FieldExtractor
	clientID  string
	firmName  string
	now       func() time.Time
}

// NewBuilder creates a Builder for the given firm identity. A nil
// extractor falls back to RegexExtractor.
func NewBuilder(extractor FieldExtractor, clientID, firmName string) *Builder {
	if extractor == nil {
		extractor = RegexExtractor{}
	}
	return &Builder{extractor: extractor, clientID: clientID, firmName: firmName, now: time.Now}
}

// Build classifies and extracts over the flattened conversation and
// returns the immutable lead record for delivery.
func (b *Builder) Build(conversation string, entries []models.TranscriptEntry) *models.LeadRecord {
	firstName := b.extractor.ExtractField(conversation, "name")
	if firstName == "" {
		firstName = "Web Visitor"
	}
	return &models.LeadRecord{
		ClientID: b.clientID,
		FirmName: b.firmName,
		Fields: models.LeadFields{
			FirstName:         firstName,
			Phone:             b.extractor.ExtractField(conversation, "phone"),
			Email:             b.extractor.ExtractField(conversation, "email"),
			CaseType:          ClassifyCaseType(conversation),
			Urgency:           string(ClassifyUrgency(conversation)),
			JurisdictionState: b.extractor.ExtractField(conversation, "state"),
			JurisdictionCity:  b.extractor.ExtractField(conversation, "city"),
			CaseSummary:       Summarize(entries),
			CourtDate:         b.extractor.ExtractField(conversation, "court_date"),
			Source:            "web_chat",
		},
		Transcript: conversation,
		Entries:    entries,
		CreatedAt:  b.now(),
	}
}
