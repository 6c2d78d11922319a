// Package config loads runtime settings from .env, an optional YAML file and
// the environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/milad/smartmeter/internal/tariff"
	"github.com/milad/smartmeter/internal/telemetry"
)

// Config holds every runtime setting. Keys map to env vars by upper-casing
// and replacing "." with "_", so mqtt.broker is MQTT_BROKER.
type Config struct {
	BackendURL     string        `mapstructure:"backend_url"`
	BackendTimeout time.Duration `mapstructure:"backend_timeout"`
	HTTPAddr       string        `mapstructure:"http_addr"`
	GRPCAddr       string        `mapstructure:"grpc_addr"`
	LogLevel       string        `mapstructure:"log_level"`
	TariffRate     float64       `mapstructure:"tariff_rate"`
	AnalyticsCSV   string        `mapstructure:"analytics_csv"`
	MockSeed       int64         `mapstructure:"mock_seed"`

	ThingSpeak ThingSpeakConfig `mapstructure:"thingspeak"`
	Telemetry  TelemetryConfig  `mapstructure:"telemetry"`
	MQTT       MQTTConfig       `mapstructure:"mqtt"`
}

type ThingSpeakConfig struct {
	URL        string `mapstructure:"url"`
	ChannelID  string `mapstructure:"channel_id"`
	ReadAPIKey string `mapstructure:"read_api_key"`
}

// Enabled reports whether a channel is configured.
func (c ThingSpeakConfig) Enabled() bool {
	return c.ChannelID != ""
}

type TelemetryConfig struct {
	Rate float64 `mapstructure:"rate"`
}

type MQTTConfig struct {
	Broker      string `mapstructure:"broker"`
	TopicPrefix string `mapstructure:"topic_prefix"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
}

var defaults = map[string]any{
	"backend_url":             "",
	"backend_timeout":         10 * time.Second,
	"http_addr":               ":8080",
	"grpc_addr":               ":9090",
	"log_level":               "info",
	"tariff_rate":             tariff.DefaultRate,
	"analytics_csv":           "",
	"mock_seed":               0,
	"thingspeak.url":          telemetry.DefaultBaseURL,
	"thingspeak.channel_id":   "",
	"thingspeak.read_api_key": "",
	"telemetry.rate":          telemetry.DefaultRate,
	"mqtt.broker":             "",
	"mqtt.topic_prefix":       "smartmeter",
	"mqtt.username":           "",
	"mqtt.password":           "",
}

// Load reads .env (if present), then file (if non-empty), then the
// environment.
func Load(file string) (Config, error) {
	_ = godotenv.Load()
	return load(viper.New(), file)
}

func load(v *viper.Viper, file string) (Config, error) {
	for k, d := range defaults {
		v.SetDefault(k, d)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", file, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.BackendURL = strings.TrimRight(strings.TrimSpace(cfg.BackendURL), "/")
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the services cannot start with.
func (c Config) Validate() error {
	var errs []error
	if c.BackendURL != "" {
		u, err := url.Parse(c.BackendURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, fmt.Errorf("backend_url %q must be an absolute http(s) URL", c.BackendURL))
		}
	}
	if c.BackendTimeout <= 0 {
		errs = append(errs, errors.New("backend_timeout must be positive"))
	}
	if c.TariffRate < 0 {
		errs = append(errs, errors.New("tariff_rate must not be negative"))
	}
	if c.Telemetry.Rate < 0 {
		errs = append(errs, errors.New("telemetry.rate must not be negative"))
	}
	return errors.Join(errs...)
}
