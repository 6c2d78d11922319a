package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/milad/smartmeter/internal/domain"
	"github.com/milad/smartmeter/internal/mock"
	"github.com/milad/smartmeter/internal/service"
	"github.com/milad/smartmeter/internal/tariff"
	"github.com/milad/smartmeter/internal/telemetry"
)

var fixedNow = time.Date(2025, 9, 28, 14, 30, 0, 0, time.UTC)

func newMockServer() *Server {
	t := tariff.MustNew(tariff.DefaultRate)
	return New(service.New(service.Options{
		Mock:            mock.NewSeeded(1, func() time.Time { return fixedNow }, t),
		Tariff:          t,
		TelemetryTariff: tariff.MustNew(telemetry.DefaultRate),
	}), nil)
}

func do(srv http.Handler, method, target, body string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, httptest.NewRequest(method, target, strings.NewReader(body)))
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) apiErrorJSON {
	t.Helper()
	var e apiErrorJSON
	if err := json.Unmarshal(rr.Body.Bytes(), &e); err != nil {
		t.Fatalf("unmarshal error body %q: %v", rr.Body.String(), err)
	}
	return e
}

func TestHTTP_Billing_Mock(t *testing.T) {
	t.Parallel()

	rr := do(newMockServer(), http.MethodGet, "/api/billing", "")
	if got, want := rr.Code, http.StatusOK; got != want {
		t.Fatalf("status=%d want %d, body=%s", got, want, rr.Body.String())
	}
	if rr.Header().Get("X-Request-Id") == "" {
		t.Fatalf("expected X-Request-Id")
	}

	var got domain.BillingRecord
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.CustomerID != "demo-1" {
		t.Fatalf("customer_id=%q want demo-1", got.CustomerID)
	}
	due, err := time.Parse(time.RFC3339, got.DueDate)
	if err != nil {
		t.Fatalf("due_date %q: %v", got.DueDate, err)
	}
	if d := due.Sub(fixedNow); d < 7*24*time.Hour-time.Minute || d > 7*24*time.Hour+time.Minute {
		t.Fatalf("due_date %s not about a week after %s", due, fixedNow)
	}
}

func TestHTTP_Payments_MockID(t *testing.T) {
	t.Parallel()

	rr := do(newMockServer(), http.MethodPost, "/api/payments", `{"amount":42.35}`)
	if got, want := rr.Code, http.StatusOK; got != want {
		t.Fatalf("status=%d want %d, body=%s", got, want, rr.Body.String())
	}
	var body struct {
		Status string `json:"status"`
		ID     string `json:"id"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body.Status != "ok" || !regexp.MustCompile(`^mock_\d+$`).MatchString(body.ID) {
		t.Fatalf("unexpected payment response: %+v", body)
	}
}

func TestHTTP_Payments_InvalidInput(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"malformed": `{"amount":`,
		"empty":     ``,
		"zero":      `{"amount":0}`,
		"negative":  `{"amount":-5}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			rr := do(newMockServer(), http.MethodPost, "/api/payments", body)
			if got, want := rr.Code, http.StatusBadRequest; got != want {
				t.Fatalf("status=%d want %d, body=%s", got, want, rr.Body.String())
			}
			e := decodeError(t, rr)
			if e.Error != "invalid request" || e.Reason == "" {
				t.Fatalf("unexpected error body: %+v", e)
			}
		})
	}
}

func TestHTTP_Contact(t *testing.T) {
	t.Parallel()

	srv := newMockServer()
	rr := do(srv, http.MethodPost, "/api/contact", `{"name":"Ada","email":"ada@example.com","message":"hello"}`)
	if got, want := rr.Code, http.StatusOK; got != want {
		t.Fatalf("status=%d want %d, body=%s", got, want, rr.Body.String())
	}
	if got, want := strings.TrimSpace(rr.Body.String()), `{"status":"received"}`; got != want {
		t.Fatalf("body=%s want %s", got, want)
	}

	rr = do(srv, http.MethodPost, "/api/contact", `{"name":"Ada","email":"not-an-address","message":"hello"}`)
	if got, want := rr.Code, http.StatusBadRequest; got != want {
		t.Fatalf("status=%d want %d", got, want)
	}
	if e := decodeError(t, rr); !strings.Contains(e.Reason, "email") {
		t.Fatalf("reason=%q should mention email", e.Reason)
	}
}

func TestHTTP_MethodNotAllowed(t *testing.T) {
	t.Parallel()

	srv := newMockServer()
	rr := do(srv, http.MethodGet, "/api/payments", "")
	if got, want := rr.Code, http.StatusMethodNotAllowed; got != want {
		t.Fatalf("status=%d want %d", got, want)
	}
	if got, want := rr.Header().Get("Allow"), http.MethodPost; got != want {
		t.Fatalf("Allow=%q want %q", got, want)
	}

	rr = do(srv, http.MethodDelete, "/api/billing", "")
	if got, want := rr.Header().Get("Allow"), http.MethodGet; got != want {
		t.Fatalf("Allow=%q want %q", got, want)
	}
}

func TestHTTP_PowerUsage_Periods(t *testing.T) {
	t.Parallel()

	srv := newMockServer()
	cases := []struct {
		query string
		want  int
	}{
		{"", mock.HourlyPoints},
		{"?period=day", mock.HourlyPoints},
		{"?period=month", mock.DailyPoints},
		{"?period=year", mock.MonthlyPoints},
		{"?period=fortnight", mock.HourlyPoints},
	}
	for _, tc := range cases {
		rr := do(srv, http.MethodGet, "/api/power-usage"+tc.query, "")
		if got, want := rr.Code, http.StatusOK; got != want {
			t.Fatalf("%s: status=%d want %d", tc.query, got, want)
		}
		var got domain.PowerUsage
		if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if len(got.Historical) != tc.want {
			t.Fatalf("%s: len=%d want %d", tc.query, len(got.Historical), tc.want)
		}
		if !got.Current.Timestamp.Equal(got.Historical[len(got.Historical)-1].Timestamp) {
			t.Fatalf("%s: current is not the last historical point", tc.query)
		}
	}
}

func TestHTTP_Analytics(t *testing.T) {
	t.Parallel()

	srv := newMockServer()
	rr := do(srv, http.MethodGet, "/api/analytics?granularity=monthly", "")
	if got, want := rr.Code, http.StatusOK; got != want {
		t.Fatalf("status=%d want %d, body=%s", got, want, rr.Body.String())
	}
	var got analyticsResponseJSON
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(got.Points) != mock.MonthlyPoints {
		t.Fatalf("len=%d want %d", len(got.Points), mock.MonthlyPoints)
	}

	rr = do(srv, http.MethodGet, "/api/analytics?granularity=hourly", "")
	if got, want := rr.Code, http.StatusBadRequest; got != want {
		t.Fatalf("status=%d want %d", got, want)
	}
}

func TestHTTP_AnalyticsLive(t *testing.T) {
	t.Parallel()

	srv := newMockServer()
	rr := do(srv, http.MethodGet, "/api/analytics/live?granularity=daily&tick=3&progress=4.5", "")
	if got, want := rr.Code, http.StatusOK; got != want {
		t.Fatalf("status=%d want %d, body=%s", got, want, rr.Body.String())
	}
	var got overlayResponseJSON
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(got.Points) != mock.DailyPoints {
		t.Fatalf("len=%d want %d", len(got.Points), mock.DailyPoints)
	}
	if got.Points[4].KWhLiveProgress == nil || got.Points[5].KWhLiveProgress != nil {
		t.Fatalf("progress should reveal exactly the first five buckets")
	}
	if got.Points[3].KWhLive <= got.Points[3].KWh {
		t.Fatalf("cursor bucket should be bumped: %+v", got.Points[3])
	}

	for _, q := range []string{"tick=x", "progress=abc", "tick=-1", "progress=-2"} {
		rr := do(srv, http.MethodGet, "/api/analytics/live?"+q, "")
		if got, want := rr.Code, http.StatusBadRequest; got != want {
			t.Fatalf("%s: status=%d want %d", q, got, want)
		}
	}
}

func TestHTTP_Suggestions(t *testing.T) {
	t.Parallel()

	srv := newMockServer()
	rr := do(srv, http.MethodGet, "/api/suggestions?category=all&limit=3", "")
	if got, want := rr.Code, http.StatusOK; got != want {
		t.Fatalf("status=%d want %d, body=%s", got, want, rr.Body.String())
	}
	var got suggestionsResponseJSON
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(got.Recommendations) != 3 {
		t.Fatalf("len=%d want 3", len(got.Recommendations))
	}

	rr = do(srv, http.MethodGet, "/api/suggestions?limit=-1", "")
	if got, want := rr.Code, http.StatusBadRequest; got != want {
		t.Fatalf("status=%d want %d", got, want)
	}
}

func TestHTTP_Telemetry_DerivedFromMock(t *testing.T) {
	t.Parallel()

	rr := do(newMockServer(), http.MethodGet, "/api/telemetry", "")
	if got, want := rr.Code, http.StatusOK; got != want {
		t.Fatalf("status=%d want %d, body=%s", got, want, rr.Body.String())
	}
	var got domain.TelemetrySnapshot
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	// Mock voltage and current stay near 230 V and 5-6 A.
	if got.TotalPower < 1100 || got.TotalPower > 1500 || got.SystemStatus != telemetry.StatusNormal {
		t.Fatalf("unexpected snapshot: %+v", got)
	}
}

func TestHTTP_Readings_InvalidRange(t *testing.T) {
	t.Parallel()

	srv := newMockServer()
	for _, q := range []string{"start=not-a-time", "start=2025-09-28T10:00:00Z&end=2025-09-28T10:00:00Z"} {
		rr := do(srv, http.MethodGet, "/api/readings?"+q, "")
		if got, want := rr.Code, http.StatusBadRequest; got != want {
			t.Fatalf("%s: status=%d want %d", q, got, want)
		}
	}

	rr := do(srv, http.MethodGet, "/api/readings?start=2025-09-28T10:00:00Z&end=2025-09-28T12:00:00Z", "")
	var got listReadingsResponseJSON
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(got.Readings) != 2 || got.Readings[0].Time != "2025-09-28T10:00:00Z" {
		t.Fatalf("unexpected readings: %+v", got.Readings)
	}
}

func TestHTTP_UnknownAPIRouteIsJSON404(t *testing.T) {
	t.Parallel()

	rr := do(newMockServer(), http.MethodGet, "/api/nope", "")
	if got, want := rr.Code, http.StatusNotFound; got != want {
		t.Fatalf("status=%d want %d", got, want)
	}
	if e := decodeError(t, rr); e.Error != "not found" {
		t.Fatalf("unexpected error: %+v", e)
	}
}

func TestHTTP_Index(t *testing.T) {
	t.Parallel()

	rr := do(newMockServer(), http.MethodGet, "/", "")
	if got, want := rr.Code, http.StatusOK; got != want {
		t.Fatalf("status=%d want %d", got, want)
	}
	if ct := rr.Header().Get("Content-Type"); ct == "" {
		t.Fatalf("expected content-type")
	}
}

func TestHTTP_Healthz(t *testing.T) {
	t.Parallel()

	rr := do(newMockServer(), http.MethodGet, "/healthz", "")
	if got, want := rr.Code, http.StatusOK; got != want {
		t.Fatalf("status=%d want %d", got, want)
	}
}

type panickingDashboard struct{ Dashboard }

func (panickingDashboard) BillingJSON(context.Context) (json.RawMessage, error) {
	panic("boom")
}

func TestHTTP_RecoversFromPanics(t *testing.T) {
	t.Parallel()

	rr := do(New(panickingDashboard{}, nil), http.MethodGet, "/api/billing", "")
	if got, want := rr.Code, http.StatusInternalServerError; got != want {
		t.Fatalf("status=%d want %d", got, want)
	}
	if got, want := rr.Body.String(), `{"error":"internal error"}`+"\n"; got != want {
		t.Fatalf("body=%q want %q", got, want)
	}
	if rr.Header().Get("X-Request-Id") == "" {
		t.Fatalf("expected X-Request-Id")
	}
}

type failingDashboard struct{ Dashboard }

func (failingDashboard) LiveUsageJSON(context.Context) (json.RawMessage, error) {
	return nil, errors.New("dial tcp 10.0.0.1:8000: connection refused")
}

func TestHTTP_InternalCauseIsNotLeaked(t *testing.T) {
	t.Parallel()

	rr := do(New(failingDashboard{}, nil), http.MethodGet, "/api/usage", "")
	if got, want := rr.Code, http.StatusInternalServerError; got != want {
		t.Fatalf("status=%d want %d", got, want)
	}
	if bytes.Contains(rr.Body.Bytes(), []byte("10.0.0.1")) {
		t.Fatalf("response leaks cause: %s", rr.Body.String())
	}
	if e := decodeError(t, rr); e.Error != "Failed to fetch usage" {
		t.Fatalf("error=%q", e.Error)
	}
}
