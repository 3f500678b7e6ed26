// Intake Viewer - tails the intake Kafka topics and prints transcript
// lines and delivered leads to the terminal. Useful for watching live
// sessions during development.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/segmentio/kafka-go"
)

// TranscriptEvent mirrors the service's intake.transcript.final payload.
type TranscriptEvent struct {
	EventType string `json:"eventType"`
	SessionID string `json:"sessionId"`
	ClientID  string `json:"clientId"`
	Speaker   string `json:"speaker"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}

// LeadEvent mirrors the service's intake.lead.created payload.
type LeadEvent struct {
	EventType string `json:"eventType"`
	SessionID string `json:"sessionId"`
	ClientID  string `json:"clientId"`
	CaseType  string `json:"caseType"`
	Urgency   string `json:"urgency"`
	Timestamp int64  `json:"timestamp"`
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

func consume(ctx context.Context, brokers, topic string, handle func(key, value []byte)) {
	// Partition reader without a consumer group; works through a
	// port-forward and needs no group coordination for a dev tool.
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:   strings.Split(brokers, ","),
		Topic:     topic,
		Partition: 0,
		MinBytes:  1,
		MaxBytes:  10e6,
	})
	defer reader.Close()

	// Only show recent messages.
	reader.SetOffsetAt(ctx, time.Now().Add(-1*time.Hour))

	log.Printf("Consuming from topic %s partition 0 (last hour)", topic)

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("Kafka read error on %s: %v", topic, err)
			time.Sleep(time.Second)
			continue
		}
		handle(msg.Key, msg.Value)
	}
}

func main() {
	brokers := flag.String("brokers", "localhost:9092", "Kafka brokers (comma-separated)")
	topicTranscript := flag.String("topic-transcript", "intake.transcript.final", "Transcript topic")
	topicLead := flag.String("topic-lead", "intake.lead.created", "Lead topic")
	session := flag.String("session", "", "Only show events for this session ID")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go consume(ctx, *brokers, *topicTranscript, func(key, value []byte) {
		var event TranscriptEvent
		if err := json.Unmarshal(value, &event); err != nil {
			log.Printf("JSON unmarshal error: %v", err)
			return
		}
		if *session != "" && event.SessionID != *session {
			return
		}
		log.Printf("[%s] %-6s %s", event.SessionID, event.Speaker, truncate(event.Text, 80))
	})

	go consume(ctx, *brokers, *topicLead, func(key, value []byte) {
		var event LeadEvent
		if err := json.Unmarshal(value, &event); err != nil {
			log.Printf("JSON unmarshal error: %v", err)
			return
		}
		if *session != "" && event.SessionID != *session {
			return
		}
		log.Printf("[%s] LEAD   caseType=%s urgency=%s client=%s",
			event.SessionID, event.CaseType, event.Urgency, event.ClientID)
	})

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
}
