package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"bookline/internal/config"
	"bookline/internal/domain"
	"bookline/internal/payment"
	"bookline/internal/service"
)

// HTTPServer exposes the booking engine's HTTP API.
type HTTPServer struct {
	cfg           config.APIConfig
	activities    *service.ActivityService
	schedules     *service.ScheduleService
	bookings      *service.BookingService
	packs         *service.PackService
	subscriptions *service.SubscriptionService
	settlement    *service.SettlementService
	payfast       *payment.Client
	processed     domain.ProcessedStore
	server        *http.Server
	auth          *HTTPAuth
}

func NewHTTPServer(
	cfg config.APIConfig,
	activities *service.ActivityService,
	schedules *service.ScheduleService,
	bookings *service.BookingService,
	packs *service.PackService,
	subscriptions *service.SubscriptionService,
	settlement *service.SettlementService,
	payfast *payment.Client,
	processed domain.ProcessedStore,
) *HTTPServer {
	srv := &HTTPServer{
		cfg:           cfg,
		activities:    activities,
		schedules:     schedules,
		bookings:      bookings,
		packs:         packs,
		subscriptions: subscriptions,
		settlement:    settlement,
		payfast:       payfast,
		processed:     processed,
	}
	srv.auth = NewHTTPAuth(cfg)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/activities", srv.handleCreateActivity)
	mux.HandleFunc("GET /api/v1/activities/{id}", srv.handleGetActivity)
	mux.HandleFunc("DELETE /api/v1/activities/{id}", srv.handleDeleteActivity)
	mux.HandleFunc("GET /api/v1/activities/{id}/availability", srv.handleGetAvailability)
	mux.HandleFunc("PUT /api/v1/activities/{id}/availability", srv.handleUpdateAvailability)
	mux.HandleFunc("GET /api/v1/activities/{id}/schedules", srv.handleListSchedules)
	mux.HandleFunc("POST /api/v1/activities/{id}/schedules", srv.handleCreateSchedule)
	mux.HandleFunc("POST /api/v1/activities/{id}/schedules/generate", srv.handleGenerateSchedules)
	mux.HandleFunc("GET /api/v1/activities/{id}/packs", srv.handleGetActivityPacks)
	mux.HandleFunc("POST /api/v1/activities/{id}/packs", srv.handleCreatePack)
	mux.HandleFunc("GET /api/v1/schedules/{id}/availability", srv.handleScheduleAvailability)
	mux.HandleFunc("DELETE /api/v1/schedules/{id}", srv.handleDeleteSchedule)
	mux.HandleFunc("GET /api/v1/packs/{id}/status", srv.handlePackStatus)
	mux.HandleFunc("POST /api/v1/bookings", srv.handleCreateBooking)
	mux.HandleFunc("GET /api/v1/bookings/{id}", srv.handleGetBooking)
	mux.HandleFunc("POST /api/v1/bookings/{id}/cancel", srv.handleCancelBooking)
	mux.HandleFunc("POST /api/v1/providers", srv.handleCreateProvider)
	mux.HandleFunc("GET /api/v1/providers/{id}/usage", srv.handleProviderUsage)
	mux.HandleFunc("POST /api/v1/providers/{id}/processor", srv.handleLinkProcessor)

	// The processor posts here; it cannot carry API keys.
	webhookMux := http.NewServeMux()
	webhookMux.HandleFunc("POST /api/v1/webhooks/payfast", srv.handlePayfastWebhook)

	root := http.NewServeMux()
	root.Handle("/api/v1/webhooks/", webhookMux)
	root.Handle("/", srv.auth.Wrap(mux))

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           loggingMiddleware(root),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
	}
	return srv
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	log.Printf("HTTP API listening on %s", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler returns the configured root handler, mainly for tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)
		dur := time.Since(start)
		log.Printf("http method=%s path=%s status=%d dur=%s", r.Method, r.URL.Path, recorder.status, dur)
	})
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
