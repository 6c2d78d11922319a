package httpserver

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/milad/smartmeter/internal/domain"
	"github.com/milad/smartmeter/internal/service"
)

func (s *Server) handleBilling(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	ctx, cancel := s.callContext(r)
	defer cancel()

	b, err := s.svc.BillingJSON(ctx)
	if err != nil {
		s.fail(w, r, "Failed to fetch billing", err)
		return
	}
	writeRaw(w, http.StatusOK, b)
}

func (s *Server) handleContact(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	var req domain.ContactRequest
	raw, err := decodeJSON(w, r, &req)
	if err != nil {
		writeInvalid(w, err.Error())
		return
	}
	req.Raw = raw
	ctx, cancel := s.callContext(r)
	defer cancel()

	out, err := s.svc.Contact(ctx, req)
	if err != nil {
		s.fail(w, r, "Failed to send", err)
		return
	}
	writeRaw(w, http.StatusOK, out)
}

func (s *Server) handlePayments(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	var req domain.PaymentRequest
	raw, err := decodeJSON(w, r, &req)
	if err != nil {
		writeInvalid(w, err.Error())
		return
	}
	req.Raw = raw
	ctx, cancel := s.callContext(r)
	defer cancel()

	out, err := s.svc.Payment(ctx, req)
	if err != nil {
		s.fail(w, r, "Payment failed", err)
		return
	}
	writeRaw(w, http.StatusOK, out)
}

func (s *Server) handleUsage(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	ctx, cancel := s.callContext(r)
	defer cancel()

	u, err := s.svc.LiveUsageJSON(ctx)
	if err != nil {
		s.fail(w, r, "Failed to fetch usage", err)
		return
	}
	writeRaw(w, http.StatusOK, u)
}

// handlePowerUsage never fails: unknown periods fall back to day.
func (s *Server) handlePowerUsage(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	p := domain.ParsePeriod(r.URL.Query().Get("period"))
	_ = writeJSON(w, http.StatusOK, s.svc.PowerUsage(p))
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	g, err := domain.ParseGranularity(r.URL.Query().Get("granularity"))
	if err != nil {
		writeInvalid(w, err.Error())
		return
	}
	ctx, cancel := s.callContext(r)
	defer cancel()

	pts, err := s.svc.Analytics(ctx, g)
	if err != nil {
		s.fail(w, r, "Failed to fetch analytics", err)
		return
	}
	if pts == nil {
		pts = []domain.AnalyticsPoint{}
	}
	_ = writeJSON(w, http.StatusOK, analyticsResponseJSON{Points: pts})
}

func (s *Server) handleAnalyticsLive(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	q := r.URL.Query()
	g, err := domain.ParseGranularity(q.Get("granularity"))
	if err != nil {
		writeInvalid(w, err.Error())
		return
	}
	tick, err := parseOptionalInt(q.Get("tick"))
	if err != nil {
		writeInvalid(w, "invalid tick")
		return
	}
	progress, err := parseOptionalFloat(q.Get("progress"))
	if err != nil {
		writeInvalid(w, "invalid progress")
		return
	}
	ctx, cancel := s.callContext(r)
	defer cancel()

	pts, err := s.svc.LiveOverlay(ctx, g, tick, progress)
	if err != nil {
		s.fail(w, r, "Failed to fetch analytics", err)
		return
	}
	_ = writeJSON(w, http.StatusOK, overlayResponseJSON{Points: pts})
}

func (s *Server) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	q := r.URL.Query()
	limit, err := parseOptionalInt(q.Get("limit"))
	if err != nil {
		writeInvalid(w, "invalid limit")
		return
	}
	recs, err := s.svc.Suggestions(q.Get("category"), limit)
	if err != nil {
		s.fail(w, r, "Failed to fetch suggestions", err)
		return
	}
	_ = writeJSON(w, http.StatusOK, suggestionsResponseJSON{Recommendations: recs})
}

func (s *Server) handleTelemetry(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	ctx, cancel := s.callContext(r)
	defer cancel()

	snap, err := s.svc.Telemetry(ctx)
	if err != nil {
		s.fail(w, r, "Failed to fetch telemetry", err)
		return
	}
	_ = writeJSON(w, http.StatusOK, snap)
}

// handleListReadings returns raw readings filtered by [start, end) if provided.
// Query params `start` and `end` must be RFC3339.
func (s *Server) handleListReadings(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	start, err := parseOptionalRFC3339(r.URL.Query().Get("start"))
	if err != nil {
		writeInvalid(w, "invalid start")
		return
	}
	end, err := parseOptionalRFC3339(r.URL.Query().Get("end"))
	if err != nil {
		writeInvalid(w, "invalid end")
		return
	}
	ctx, cancel := s.callContext(r)
	defer cancel()

	readings, err := s.svc.Readings(ctx, start, end)
	if err != nil {
		s.fail(w, r, "Failed to fetch readings", err)
		return
	}
	out := make([]readingJSON, 0, len(readings))
	for _, rd := range readings {
		out = append(out, readingJSON{Time: formatTime(rd.Time), KWh: rd.KWh})
	}
	_ = writeJSON(w, http.StatusOK, listReadingsResponseJSON{Readings: out})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		// Keep API errors JSON.
		if strings.HasPrefix(r.URL.Path, "/api") {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		http.NotFound(w, r)
		return
	}
	if !allow(w, r, http.MethodGet) {
		return
	}
	_ = writeJSON(w, http.StatusOK, indexJSON{Service: "smartmeter", Routes: apiRoutes})
}

func (s *Server) callContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), s.timeout)
}

// fail maps a dashboard error to a response. Validation errors are reported
// to the caller; anything else is logged and replaced by msg.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	if errors.Is(err, service.ErrInvalidArgument) {
		writeInvalid(w, reason(err))
		return
	}
	s.log.Error(msg,
		zap.String("path", r.URL.Path),
		zap.String("req_id", w.Header().Get("X-Request-Id")),
		zap.Error(err),
	)
	writeError(w, http.StatusInternalServerError, msg)
}

func reason(err error) string {
	msg := strings.TrimPrefix(err.Error(), service.ErrInvalidArgument.Error()+": ")
	return strings.ReplaceAll(msg, "\n", "; ")
}

func allow(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method {
		return true
	}
	w.Header().Set("Allow", method)
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	return false
}
