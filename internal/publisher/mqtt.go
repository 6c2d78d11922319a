// Package publisher mirrors live meter readings to an MQTT broker.
package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/milad/smartmeter/internal/domain"
)

// DefaultTopicPrefix is used when Config.TopicPrefix is empty.
const DefaultTopicPrefix = "smartmeter"

// Config selects the broker. An empty Broker disables the mirror.
type Config struct {
	Broker      string
	TopicPrefix string
	Username    string
	Password    string
	ClientID    string
}

// Publisher mirrors readings somewhere. Nop is used when nothing is configured.
type Publisher interface {
	Publish(ctx context.Context, r domain.LiveUsageReading) error
	Close()
}

// Nop discards every reading.
type Nop struct{}

func (Nop) Publish(context.Context, domain.LiveUsageReading) error { return nil }
func (Nop) Close()                                                 {}

// client is the subset of mqtt.Client the mirror needs.
type client interface {
	IsConnected() bool
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// MQTT publishes each reading as JSON to <prefix>/live.
type MQTT struct {
	client client
	topic  string
}

// New connects to cfg.Broker. It returns Nop when no broker is configured.
func New(cfg Config) (Publisher, error) {
	if cfg.Broker == "" {
		return Nop{}, nil
	}

	broker := cfg.Broker
	if !strings.Contains(broker, "://") {
		broker = "tcp://" + broker
	}
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "smartmeter"
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(10 * time.Second)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}

	c := mqtt.NewClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connecting to MQTT broker: %w", token.Error())
	}
	return newMQTT(c, cfg.TopicPrefix), nil
}

func newMQTT(c client, prefix string) *MQTT {
	prefix = strings.TrimSuffix(prefix, "/")
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return &MQTT{client: c, topic: prefix + "/live"}
}

// Topic is where readings are published.
func (p *MQTT) Topic() string { return p.topic }

// Publish sends r with QoS 0, not retained, and waits for the token or ctx.
func (p *MQTT) Publish(ctx context.Context, r domain.LiveUsageReading) error {
	if !p.client.IsConnected() {
		return errors.New("mqtt: not connected")
	}
	body, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encoding reading: %w", err)
	}
	token := p.client.Publish(p.topic, 0, false, body)
	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return fmt.Errorf("mqtt publish %s: %w", p.topic, err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close disconnects from the broker.
func (p *MQTT) Close() {
	if p.client != nil && p.client.IsConnected() {
		p.client.Disconnect(250)
	}
}
