package httpserver

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/milad/smartmeter/internal/domain"
)

const maxBodyBytes = 1 << 20

var apiRoutes = []string{
	"GET /api/billing",
	"POST /api/contact",
	"POST /api/payments",
	"GET /api/usage",
	"GET /api/power-usage?period=day|month|year",
	"GET /api/analytics?granularity=daily|monthly|yearly",
	"GET /api/analytics/live?granularity&tick&progress",
	"GET /api/suggestions?category&limit",
	"GET /api/telemetry",
	"GET /api/readings?start&end",
}

type indexJSON struct {
	Service string   `json:"service"`
	Routes  []string `json:"routes"`
}

type readingJSON struct {
	Time string  `json:"time"`
	KWh  float64 `json:"kwh"`
}

type listReadingsResponseJSON struct {
	Readings []readingJSON `json:"readings"`
}

type analyticsResponseJSON struct {
	Points []domain.AnalyticsPoint `json:"points"`
}

type overlayResponseJSON struct {
	Points []domain.Overlay `json:"points"`
}

type suggestionsResponseJSON struct {
	Recommendations []domain.Recommendation `json:"recommendations"`
}

// apiErrorJSON is the error body. Server-side failures carry only Error;
// the request id is in the X-Request-Id header.
type apiErrorJSON struct {
	Error     string `json:"error"`
	Reason    string `json:"reason,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

// writeRaw writes a JSON body produced elsewhere, such as a backend echo.
func writeRaw(w http.ResponseWriter, status int, body json.RawMessage) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	_ = writeJSON(w, status, apiErrorJSON{Error: msg})
}

func writeInvalid(w http.ResponseWriter, reason string) {
	_ = writeJSON(w, http.StatusBadRequest, apiErrorJSON{
		Error:     "invalid request",
		Reason:    reason,
		RequestID: w.Header().Get("X-Request-Id"),
	})
}

// decodeJSON decodes the request body into v and returns the body as sent.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) (json.RawMessage, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return nil, fmt.Errorf("request body exceeds %d bytes", tooBig.Limit)
		}
		return nil, fmt.Errorf("read body: %v", err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, errors.New("request body is empty")
	}
	if err := json.Unmarshal(body, v); err != nil {
		return nil, fmt.Errorf("malformed JSON: %v", err)
	}
	return body, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseOptionalRFC3339(v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	// RFC3339 parsing accepts fractional seconds too.
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil, err
	}
	tt := t.UTC()
	return &tt, nil
}

func parseOptionalInt(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}

func parseOptionalFloat(v string) (float64, error) {
	if v == "" {
		return 0, nil
	}
	return strconv.ParseFloat(v, 64)
}
