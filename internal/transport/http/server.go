package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/milad/smartmeter/internal/domain"
)

// Dashboard is what the HTTP API serves. *service.DashboardService implements it.
type Dashboard interface {
	BillingJSON(ctx context.Context) (json.RawMessage, error)
	Contact(ctx context.Context, req domain.ContactRequest) (json.RawMessage, error)
	Payment(ctx context.Context, req domain.PaymentRequest) (json.RawMessage, error)
	LiveUsageJSON(ctx context.Context) (json.RawMessage, error)
	PowerUsage(p domain.Period) domain.PowerUsage
	Analytics(ctx context.Context, g domain.Granularity) ([]domain.AnalyticsPoint, error)
	LiveOverlay(ctx context.Context, g domain.Granularity, tick int, progress float64) ([]domain.Overlay, error)
	Suggestions(category string, limit int) ([]domain.Recommendation, error)
	Telemetry(ctx context.Context) (domain.TelemetrySnapshot, error)
	Readings(ctx context.Context, start, end *time.Time) ([]domain.Reading, error)
}

// DefaultCallTimeout bounds each request's call into the dashboard.
const DefaultCallTimeout = 15 * time.Second

type Server struct {
	svc     Dashboard
	log     *zap.Logger
	timeout time.Duration
	mux     *http.ServeMux
}

// New returns the API handler. A nil logger discards logs.
func New(svc Dashboard, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		svc:     svc,
		log:     log,
		timeout: DefaultCallTimeout,
		mux:     http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	reqID := uuid.NewString()

	w.Header().Set("X-Request-Id", reqID)
	rr := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	defer func() {
		if rec := recover(); rec != nil {
			rr.status = http.StatusInternalServerError

			// If headers were already written we can only log.
			if !rr.wroteHeader {
				if strings.HasPrefix(r.URL.Path, "/api") {
					writeError(rr, http.StatusInternalServerError, "internal error")
				} else {
					http.Error(rr, "internal error", http.StatusInternalServerError)
				}
			}

			s.log.Error("panic handling request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("req_id", reqID),
				zap.Any("panic", rec),
				zap.ByteString("stack", debug.Stack()),
			)
		}

		dur := time.Since(start)
		observeHTTPRequest(r, rr.status, dur)

		// Keep health checks + metrics endpoint quiet.
		if r.URL.Path != "/healthz" && r.URL.Path != "/metrics" {
			s.log.Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", rr.status),
				zap.Duration("duration", dur.Truncate(time.Millisecond)),
				zap.String("req_id", reqID),
			)
		}
	}()

	s.mux.ServeHTTP(rr, r)
}

func (s *Server) routes() {
	s.mux.HandleFunc("/api/billing", s.handleBilling)
	s.mux.HandleFunc("/api/contact", s.handleContact)
	s.mux.HandleFunc("/api/payments", s.handlePayments)
	s.mux.HandleFunc("/api/usage", s.handleUsage)
	s.mux.HandleFunc("/api/power-usage", s.handlePowerUsage)
	s.mux.HandleFunc("/api/analytics", s.handleAnalytics)
	s.mux.HandleFunc("/api/analytics/live", s.handleAnalyticsLive)
	s.mux.HandleFunc("/api/suggestions", s.handleSuggestions)
	s.mux.HandleFunc("/api/telemetry", s.handleTelemetry)
	s.mux.HandleFunc("/api/readings", s.handleListReadings)
	s.mux.HandleFunc("/healthz", s.handleHealthz)
	s.mux.Handle("/metrics", promhttp.Handler())
	s.mux.HandleFunc("/", s.handleIndex)
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.wroteHeader = true
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(p []byte) (int, error) {
	if !r.wroteHeader {
		r.WriteHeader(http.StatusOK)
	}
	return r.ResponseWriter.Write(p)
}
