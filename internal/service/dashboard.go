// Package service decides, per call, whether dashboard data comes from the
// billing backend or from local sources (CSV readings and the mock generator).
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/milad/smartmeter/internal/advisor"
	"github.com/milad/smartmeter/internal/aggregate"
	"github.com/milad/smartmeter/internal/domain"
	"github.com/milad/smartmeter/internal/mock"
	"github.com/milad/smartmeter/internal/publisher"
	"github.com/milad/smartmeter/internal/repo"
	"github.com/milad/smartmeter/internal/tariff"
	"github.com/milad/smartmeter/internal/telemetry"
)

var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrUpstream        = errors.New("upstream unavailable")
)

// Backend is the billing backend. *backend.Client implements it.
type Backend interface {
	Billing(ctx context.Context) (json.RawMessage, error)
	LatestUsage(ctx context.Context) (json.RawMessage, error)
	Analytics(ctx context.Context, g domain.Granularity) ([]domain.AnalyticsPoint, error)
	Contact(ctx context.Context, body []byte) (json.RawMessage, error)
	Payment(ctx context.Context, body []byte) (json.RawMessage, error)
}

// TelemetrySource returns the most recent meter channel sample.
// *telemetry.Client implements it.
type TelemetrySource interface {
	Latest(ctx context.Context) (telemetry.Sample, error)
}

// Options wires a DashboardService. Only Mock is required; every other
// source is used when set.
type Options struct {
	Backend         Backend
	Mock            *mock.Generator
	Readings        repo.ReadingRepository
	Tariff          tariff.Tariff
	Telemetry       TelemetrySource
	TelemetryTariff tariff.Tariff
	Publisher       publisher.Publisher
	Logger          *zap.Logger
}

type DashboardService struct {
	backend   Backend
	mock      *mock.Generator
	readings  repo.ReadingRepository
	tariff    tariff.Tariff
	telemetry TelemetrySource
	telTariff tariff.Tariff
	pub       publisher.Publisher
	log       *zap.Logger
}

func New(opts Options) *DashboardService {
	if opts.Mock == nil {
		opts.Mock = mock.New(nil, nil, opts.Tariff)
	}
	if opts.Publisher == nil {
		opts.Publisher = publisher.Nop{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &DashboardService{
		backend:   opts.Backend,
		mock:      opts.Mock,
		readings:  opts.Readings,
		tariff:    opts.Tariff,
		telemetry: opts.Telemetry,
		telTariff: opts.TelemetryTariff,
		pub:       opts.Publisher,
		log:       opts.Logger,
	}
}

// Mode reports where proxied data comes from, for startup logs.
func (s *DashboardService) Mode() string {
	if s.backend != nil {
		return "backend"
	}
	return "mock"
}

// BillingJSON is the current billing record as the backend sent it, or the
// mock record in mock mode.
func (s *DashboardService) BillingJSON(ctx context.Context) (json.RawMessage, error) {
	if s.backend == nil {
		return json.Marshal(s.mock.Billing())
	}
	raw, err := s.backend.Billing(ctx)
	if err != nil {
		return nil, upstream("billing", err)
	}
	return raw, nil
}

func (s *DashboardService) Billing(ctx context.Context) (domain.BillingRecord, error) {
	raw, err := s.BillingJSON(ctx)
	if err != nil {
		return domain.BillingRecord{}, err
	}
	var b domain.BillingRecord
	if err := json.Unmarshal(raw, &b); err != nil {
		return domain.BillingRecord{}, upstream("billing", err)
	}
	return b, nil
}

// Contact validates req and forwards it, or acknowledges it in mock mode.
func (s *DashboardService) Contact(ctx context.Context, req domain.ContactRequest) (json.RawMessage, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	if s.backend == nil {
		return json.RawMessage(`{"status":"received"}`), nil
	}
	body, err := forwardBody(req.Raw, req)
	if err != nil {
		return nil, err
	}
	out, err := s.backend.Contact(ctx, body)
	if err != nil {
		return nil, upstream("contact", err)
	}
	return out, nil
}

// Payment validates req and forwards it. In mock mode it is accepted with a
// synthetic id.
func (s *DashboardService) Payment(ctx context.Context, req domain.PaymentRequest) (json.RawMessage, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	if s.backend == nil {
		return json.Marshal(map[string]string{
			"status": "ok",
			"id":     fmt.Sprintf("mock_%d", s.mock.Now().UnixMilli()),
		})
	}
	body, err := forwardBody(req.Raw, req)
	if err != nil {
		return nil, err
	}
	out, err := s.backend.Payment(ctx, body)
	if err != nil {
		return nil, upstream("payment", err)
	}
	return out, nil
}

// forwardBody is the client's body when it was kept, else req re-encoded.
func forwardBody(raw json.RawMessage, req any) ([]byte, error) {
	if len(raw) > 0 {
		return raw, nil
	}
	return json.Marshal(req)
}

// LiveUsageJSON returns the latest reading as the backend sent it, with notes
// added when it looks like a spike, and mirrors it to the publisher.
func (s *DashboardService) LiveUsageJSON(ctx context.Context) (json.RawMessage, error) {
	r, raw, err := s.latest(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.pub.Publish(ctx, r); err != nil {
		s.log.Warn("mirror live reading", zap.Error(err))
	}
	return raw, nil
}

func (s *DashboardService) LiveUsage(ctx context.Context) (domain.LiveUsageReading, error) {
	raw, err := s.LiveUsageJSON(ctx)
	if err != nil {
		return domain.LiveUsageReading{}, err
	}
	var r domain.LiveUsageReading
	if err := json.Unmarshal(raw, &r); err != nil {
		return domain.LiveUsageReading{}, upstream("usage", err)
	}
	return r, nil
}

// latest returns the annotated reading both decoded and as JSON. Backend
// replies are only touched when notes have to be added.
func (s *DashboardService) latest(ctx context.Context) (domain.LiveUsageReading, json.RawMessage, error) {
	if s.backend == nil {
		r := annotate(s.mock.LiveReading())
		raw, err := json.Marshal(r)
		return r, raw, err
	}
	raw, err := s.backend.LatestUsage(ctx)
	if err != nil {
		return domain.LiveUsageReading{}, nil, upstream("usage", err)
	}
	var r domain.LiveUsageReading
	if err := json.Unmarshal(raw, &r); err != nil {
		return domain.LiveUsageReading{}, nil, upstream("usage", err)
	}
	a := annotate(r)
	if a.Notes == r.Notes {
		return r, raw, nil
	}
	if raw, err = withNotes(raw, *a.Notes); err != nil {
		return domain.LiveUsageReading{}, nil, upstream("usage", err)
	}
	return a, raw, nil
}

// withNotes sets the notes key of a JSON object, leaving the other members
// as they were.
func withNotes(raw json.RawMessage, note string) (json.RawMessage, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, err
	}
	n, err := json.Marshal(note)
	if err != nil {
		return nil, err
	}
	obj["notes"] = n
	return json.Marshal(obj)
}

// annotate sets notes on spikes unless the source already supplied some.
func annotate(r domain.LiveUsageReading) domain.LiveUsageReading {
	if r.Notes != nil && *r.Notes != "" {
		return r
	}
	if spike, note := tariff.DetectAnomaly(r.KWh); spike {
		r.Notes = &note
	}
	return r
}

// PowerUsage is always generated locally and never fails.
func (s *DashboardService) PowerUsage(p domain.Period) domain.PowerUsage {
	return s.mock.Series(p)
}

// Analytics comes from the backend when configured, else from the CSV
// readings rolled up by g, else from the mock generator.
func (s *DashboardService) Analytics(ctx context.Context, g domain.Granularity) ([]domain.AnalyticsPoint, error) {
	switch {
	case s.backend != nil:
		pts, err := s.backend.Analytics(ctx, g)
		if err != nil {
			return nil, upstream("analytics", err)
		}
		return pts, nil
	case s.readings != nil:
		rs, err := s.readings.List(ctx, nil, nil)
		if err != nil {
			return nil, fmt.Errorf("list readings: %w", err)
		}
		return aggregate.Rollup(g, rs, s.tariff), nil
	default:
		return s.mock.Analytics(g), nil
	}
}

// LiveOverlay decorates the analytics series for g with the live bump at
// tick and the cumulative line revealed up to progress.
func (s *DashboardService) LiveOverlay(ctx context.Context, g domain.Granularity, tick int, progress float64) ([]domain.Overlay, error) {
	if tick < 0 {
		return nil, fmt.Errorf("%w: tick must be >= 0", ErrInvalidArgument)
	}
	if math.IsNaN(progress) || math.IsInf(progress, 0) || progress < 0 {
		return nil, fmt.Errorf("%w: progress must be a finite number >= 0", ErrInvalidArgument)
	}
	pts, err := s.Analytics(ctx, g)
	if err != nil {
		return nil, err
	}
	return aggregate.Merge(pts, aggregate.BumpCursor(tick, len(pts)), progress), nil
}

// Suggestions analyses today's hourly series. limit 0 means no limit.
func (s *DashboardService) Suggestions(category string, limit int) ([]domain.Recommendation, error) {
	pts := s.mock.Hourly()
	findings := advisor.Analyze(pts, s.mock.Now().Location())
	recs, err := advisor.Filter(advisor.Recommend(findings), category, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	return recs, nil
}

// Telemetry summarises the meter channel, or the live reading when no
// channel is configured.
func (s *DashboardService) Telemetry(ctx context.Context) (domain.TelemetrySnapshot, error) {
	now := s.mock.Now()
	if s.telemetry != nil {
		sample, err := s.telemetry.Latest(ctx)
		if err != nil {
			return domain.TelemetrySnapshot{}, upstream("telemetry", err)
		}
		return telemetry.Summarise(sample, s.telTariff, now), nil
	}
	r, _, err := s.latest(ctx)
	if err != nil {
		return domain.TelemetrySnapshot{}, err
	}
	return telemetry.Summarise(telemetry.FromLiveReading(r), s.telTariff, now), nil
}

// Readings lists raw readings in [start, end). Without a CSV source the
// hourly mock series is converted to readings.
func (s *DashboardService) Readings(ctx context.Context, start, end *time.Time) ([]domain.Reading, error) {
	if start != nil && end != nil && !start.Before(*end) {
		return nil, fmt.Errorf("%w: start must be before end", ErrInvalidArgument)
	}
	if s.readings != nil {
		return s.readings.List(ctx, start, end)
	}
	var out []domain.Reading
	for _, p := range s.mock.Hourly() {
		if (start != nil && p.Timestamp.Before(*start)) || (end != nil && !p.Timestamp.Before(*end)) {
			continue
		}
		out = append(out, domain.Reading{Time: p.Timestamp, KWh: p.Power / 1000})
	}
	return out, nil
}

func upstream(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrUpstream, op, err)
}
