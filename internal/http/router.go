package http

import (
	"encoding/json"
	"net/http"

	"ai-voice-intake-service/internal/app"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter constructs the HTTP router for the service. The intake
// WebSocket handler is passed in so the router stays free of session
// wiring.
func NewRouter(application *app.Application, intake http.Handler) http.Handler {
	r := chi.NewRouter()

	// Basic middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	// Health endpoints
	r.Get("/v1/liveness", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/v1/readiness", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	// API routes
	r.Route("/v1", func(r chi.Router) {
		// Widget bootstrap: firm identity and audio parameters.
		r.Get("/config", func(w http.ResponseWriter, _ *http.Request) {
			cfg := application.Cfg
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"client_id":             cfg.Firm.ClientID,
				"firm_name":             cfg.Firm.FirmName,
				"assistant_name":        cfg.Firm.AssistantName,
				"practice_areas":        cfg.Firm.PracticeAreas,
				"input_sample_rate_hz":  cfg.Speech.InputSampleRateHz,
				"output_sample_rate_hz": cfg.Speech.OutputSampleRateHz,
				"frame_samples":         cfg.Speech.FrameSamples,
			})
		})

		r.Handle("/intake", intake)
	})

	return r
}
