package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ai-voice-intake-service/internal/api/ws"
	"ai-voice-intake-service/internal/app"
	"ai-voice-intake-service/internal/config"
	"ai-voice-intake-service/internal/delivery"
	"ai-voice-intake-service/internal/events"
	httpapi "ai-voice-intake-service/internal/http"
	"ai-voice-intake-service/internal/observability"
	"ai-voice-intake-service/internal/observability/logging"
	"ai-voice-intake-service/internal/speech"
	"ai-voice-intake-service/internal/speech/adapters"
)

func main() {
	cfg := config.Load()

	logging.Init(logging.DefaultConfig())
	application := app.New(cfg)
	if err := application.Start(); err != nil {
		application.Logger.Fatal().Err(err).Msg("Failed to start application")
	}

	// Kafka publisher with separate topics for transcript and lead events
	publisher := events.New(&events.Config{
		Enabled:         cfg.Kafka.Enabled,
		Brokers:         cfg.Kafka.Brokers,
		TopicTranscript: cfg.Kafka.TopicTranscript,
		TopicLead:       cfg.Kafka.TopicLead,
		Principal:       cfg.Kafka.Principal,
	})
	defer publisher.Close()

	// Leads go to the firm's webhook; delivered leads also produce a Kafka
	// event. Without a webhook URL lead delivery is disabled entirely.
	var gateway delivery.Gateway
	if cfg.Webhook.URL != "" {
		gateway = delivery.NewFanout(
			delivery.NewWebhook(cfg.Webhook.URL, cfg.Webhook.Source, &http.Client{Timeout: cfg.Webhook.Timeout}),
			publisher,
		)
	} else {
		application.Logger.Warn().Msg("LEAD_WEBHOOK_URL not set, lead delivery disabled")
	}

	factory, err := adapters.NewFactory(cfg.Speech.Provider, speech.Config{
		Model:              cfg.Speech.Model,
		APIKey:             cfg.Speech.APIKey,
		Voice:              cfg.Speech.Voice,
		LanguageCode:       cfg.Speech.LanguageCode,
		InputSampleRateHz:  cfg.Speech.InputSampleRateHz,
		OutputSampleRateHz: cfg.Speech.OutputSampleRateHz,
	})
	if err != nil {
		application.Logger.Fatal().Err(err).Msg("Invalid speech provider configuration")
	}

	intake := ws.NewHandler(cfg, factory, gateway, publisher)
	router := httpapi.NewRouter(application, intake)

	obsServer := observability.NewServer(cfg.Service.ObsAddr)
	obsServer.Start()

	server := &http.Server{
		Addr:    cfg.Service.HTTPAddr,
		Handler: router,
	}

	go func() {
		application.Logger.Info().
			Str("addr", cfg.Service.HTTPAddr).
			Str("provider", factory.Provider()).
			Msg("AI Voice Intake service listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			application.Logger.Fatal().Err(err).Msg("HTTP serve failed")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	application.Logger.Info().Msg("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		application.Logger.Warn().Err(err).Msg("HTTP shutdown error")
	}
	if err := obsServer.Shutdown(ctx); err != nil {
		application.Logger.Warn().Err(err).Msg("Observability shutdown error")
	}
	application.Shutdown()
}
