// Package telemetry publishes fix snapshots to an MQTT broker.
package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"marin-gps/internal/gps"
)

const publishTimeout = 2 * time.Second

var ErrNotConnected = errors.New("mqtt not connected")

// client is the subset of mqtt.Client the publisher uses.
type client interface {
	Connect() mqtt.Token
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
	IsConnectionOpen() bool
}

type Config struct {
	Broker   string
	ClientID string
	Topic    string
	QoS      byte
}

// Publisher sends each snapshot as retained JSON, so a subscriber that
// connects late still sees the last fix.
type Publisher struct {
	c     client
	topic string
	qos   byte

	published atomic.Uint64
	failed    atomic.Uint64

	mu      sync.Mutex
	lastErr string
}

func New(cfg Config) *Publisher {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(2 * time.Second).
		SetConnectTimeout(5 * time.Second).
		SetOrderMatters(false)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.Printf("mqtt connection lost broker=%s: %v", cfg.Broker, err)
	})
	opts.SetOnConnectHandler(func(mqtt.Client) {
		log.Printf("mqtt connected broker=%s topic=%s", cfg.Broker, cfg.Topic)
	})
	return newPublisher(mqtt.NewClient(opts), cfg.Topic, cfg.QoS)
}

func newPublisher(c client, topic string, qos byte) *Publisher {
	return &Publisher{c: c, topic: topic, qos: qos}
}

// Run connects (retrying in the background) and holds the session until ctx
// is done.
func (p *Publisher) Run(ctx context.Context) error {
	tok := p.c.Connect()
	select {
	case <-tok.Done():
		if err := tok.Error(); err != nil {
			return fmt.Errorf("mqtt connect: %w", err)
		}
	case <-ctx.Done():
	}
	<-ctx.Done()
	p.c.Disconnect(250)
	return ctx.Err()
}

// Publish sends one snapshot. It waits at most publishTimeout for the
// broker to acknowledge.
func (p *Publisher) Publish(s gps.Snapshot) error {
	if !p.c.IsConnectionOpen() {
		return p.fail(ErrNotConnected)
	}
	b, err := json.Marshal(s)
	if err != nil {
		return p.fail(fmt.Errorf("marshal snapshot: %w", err))
	}
	tok := p.c.Publish(p.topic, p.qos, true, b)
	if !tok.WaitTimeout(publishTimeout) {
		return p.fail(fmt.Errorf("mqtt publish topic=%s: timeout", p.topic))
	}
	if err := tok.Error(); err != nil {
		return p.fail(fmt.Errorf("mqtt publish topic=%s: %w", p.topic, err))
	}
	p.published.Add(1)
	return nil
}

func (p *Publisher) fail(err error) error {
	p.mu.Lock()
	p.lastErr = err.Error()
	p.mu.Unlock()
	p.failed.Add(1)
	return err
}

type Stats struct {
	Published uint64 `json:"published"`
	Failed    uint64 `json:"failed"`
	LastError string `json:"last_error,omitempty"`
}

func (p *Publisher) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{
		Published: p.published.Load(),
		Failed:    p.failed.Load(),
		LastError: p.lastErr,
	}
}
