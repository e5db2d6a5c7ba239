package api

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/hochfrequenz/loadspike/internal/domain"
	"github.com/hochfrequenz/loadspike/internal/runstore"
	"github.com/hochfrequenz/loadspike/internal/telemetry"
)

//go:embed static/dashboard.html
var staticFiles embed.FS

// Store interface for run history
type Store interface {
	ListRuns(opts runstore.ListOptions) ([]*domain.RunReport, error)
	GetRun(id string) (*domain.RunReport, error)
	Stats() (runstore.Stats, error)
}

// Collector produces host telemetry snapshots
type Collector interface {
	Collect(ctx context.Context) (*telemetry.SystemInfo, error)
}

// Server is the read-only dashboard and API server
type Server struct {
	store             Store
	collector         Collector
	addr              string
	telemetryInterval time.Duration
	mux               *http.ServeMux
	sseHub            *SSEHub
}

// NewServer creates a new API server
func NewServer(store Store, collector Collector, addr string, telemetryInterval time.Duration) *Server {
	if telemetryInterval <= 0 {
		telemetryInterval = 2 * time.Second
	}
	s := &Server{
		store:             store,
		collector:         collector,
		addr:              addr,
		telemetryInterval: telemetryInterval,
		mux:               http.NewServeMux(),
		sseHub:            NewSSEHub(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/system-info/", s.systemInfoHandler())
	s.mux.HandleFunc("/api/runs", s.listRunsHandler())
	s.mux.HandleFunc("/api/runs/", s.getRunHandler())
	s.mux.HandleFunc("/api/stats", s.statsHandler())
	s.mux.HandleFunc("/api/events", s.sseHandler())
	s.mux.HandleFunc("/api/ws", s.telemetryStreamHandler())
	s.mux.Handle("/metrics", promhttp.Handler())
	s.mux.HandleFunc("/", s.dashboardHandler())
}

// Handler returns the server's routes
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start serves until ctx is cancelled
func (s *Server) Start(ctx context.Context) error {
	go s.sseHub.Run(ctx)

	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", s.addr).Info("Dashboard listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// Broadcast sends an event to all SSE clients
func (s *Server) Broadcast(event SSEEvent) {
	s.sseHub.Broadcast(event)
}

// PublishState broadcasts a run state change
func (s *Server) PublishState(state domain.RunState) {
	s.Broadcast(SSEEvent{
		Type: "run_state",
		Data: RunStateEvent{State: string(state), Time: time.Now()},
	})
}

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
