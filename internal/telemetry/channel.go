// Package telemetry reads the meter's telemetry channel and summarises the
// latest sample for the dashboard.
package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultBaseURL is the public ThingSpeak API.
const DefaultBaseURL = "https://api.thingspeak.com"

// ErrChannel marks any failure to read a usable sample from the channel.
var ErrChannel = errors.New("telemetry channel error")

// Sample is one channel entry. Field mapping: field1 power (W), field2
// current (A), field3 voltage (V), field4 energy (kWh).
type Sample struct {
	CreatedAt string     `json:"created_at"`
	Power     fieldValue `json:"field1"`
	Current   fieldValue `json:"field2"`
	Voltage   fieldValue `json:"field3"`
	Energy    fieldValue `json:"field4"`
}

// fieldValue decodes channel fields, which arrive as strings, numbers or null.
type fieldValue float64

func (f *fieldValue) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*f = 0
		return nil
	}
	s = strings.TrimSpace(strings.Trim(s, `"`))
	if s == "" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("field value %q: %w", s, err)
	}
	*f = fieldValue(v)
	return nil
}

// Client reads the last entry of one channel.
type Client struct {
	base    *url.URL
	channel string
	apiKey  string
	http    *http.Client
}

func NewClient(baseURL, channelID, readAPIKey string, hc *http.Client) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid telemetry base url %q", baseURL)
	}
	if strings.TrimSpace(channelID) == "" {
		return nil, errors.New("telemetry channel id is required")
	}
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{base: u, channel: channelID, apiKey: readAPIKey, http: hc}, nil
}

// Latest fetches the most recent channel entry.
func (c *Client) Latest(ctx context.Context) (Sample, error) {
	u := c.base.JoinPath("channels", c.channel, "feeds", "last.json")
	if c.apiKey != "" {
		u.RawQuery = url.Values{"api_key": []string{c.apiKey}}.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return Sample{}, fmt.Errorf("%w: build request: %v", ErrChannel, err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return Sample{}, fmt.Errorf("%w: %v", ErrChannel, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Sample{}, fmt.Errorf("%w: status %d", ErrChannel, resp.StatusCode)
	}
	var s Sample
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&s); err != nil {
		return Sample{}, fmt.Errorf("%w: decode: %v", ErrChannel, err)
	}
	return s, nil
}
