// Package app wires a DashboardService from configuration.
package app

import (
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/milad/smartmeter/internal/backend"
	"github.com/milad/smartmeter/internal/config"
	"github.com/milad/smartmeter/internal/mock"
	"github.com/milad/smartmeter/internal/publisher"
	"github.com/milad/smartmeter/internal/repo/csvrepo"
	"github.com/milad/smartmeter/internal/service"
	"github.com/milad/smartmeter/internal/tariff"
	"github.com/milad/smartmeter/internal/telemetry"
)

// NewService builds the dashboard from cfg. The returned close func releases
// the MQTT connection and must be called on shutdown.
func NewService(cfg config.Config, log *zap.Logger) (*service.DashboardService, func(), error) {
	t, err := tariff.New(cfg.TariffRate)
	if err != nil {
		return nil, nil, err
	}
	telTariff, err := tariff.New(cfg.Telemetry.Rate)
	if err != nil {
		return nil, nil, fmt.Errorf("telemetry rate: %w", err)
	}

	opts := service.Options{
		Mock:            NewGenerator(cfg.MockSeed, t),
		Tariff:          t,
		TelemetryTariff: telTariff,
		Logger:          log,
	}
	hc := &http.Client{Timeout: cfg.BackendTimeout}

	if cfg.BackendURL != "" {
		c, err := backend.New(cfg.BackendURL, hc)
		if err != nil {
			return nil, nil, err
		}
		opts.Backend = c
		log.Info("proxying to backend", zap.String("backend_url", c.BaseURL()))
	} else {
		log.Info("no backend configured; serving mock data")
	}

	if cfg.AnalyticsCSV != "" {
		r, err := csvrepo.NewFromFile(cfg.AnalyticsCSV)
		if err != nil {
			// A few bad rows are tolerated as long as something loaded.
			if r == nil || r.Len() == 0 {
				return nil, nil, fmt.Errorf("load %s: %w", cfg.AnalyticsCSV, err)
			}
			log.Warn("skipped bad csv rows", zap.String("path", cfg.AnalyticsCSV), zap.Error(err))
		}
		opts.Readings = r
		log.Info("loaded analytics csv", zap.String("path", cfg.AnalyticsCSV), zap.Int("readings", r.Len()))
	}

	if cfg.ThingSpeak.Enabled() {
		c, err := telemetry.NewClient(cfg.ThingSpeak.URL, cfg.ThingSpeak.ChannelID, cfg.ThingSpeak.ReadAPIKey, hc)
		if err != nil {
			return nil, nil, err
		}
		opts.Telemetry = c
	}

	pub, err := publisher.New(publisher.Config{
		Broker:      cfg.MQTT.Broker,
		TopicPrefix: cfg.MQTT.TopicPrefix,
		Username:    cfg.MQTT.Username,
		Password:    cfg.MQTT.Password,
	})
	if err != nil {
		log.Warn("mqtt mirror disabled", zap.Error(err))
		pub = publisher.Nop{}
	}
	opts.Publisher = pub

	return service.New(opts), pub.Close, nil
}

// NewGenerator returns a mock generator. A zero seed draws from the clock.
func NewGenerator(seed int64, t tariff.Tariff) *mock.Generator {
	if seed == 0 {
		return mock.New(rand.New(rand.NewSource(time.Now().UnixNano())), nil, t)
	}
	return mock.NewSeeded(seed, nil, t)
}
