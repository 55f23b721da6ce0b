// Package notify announces run lifecycle events to an MQTT broker.
package notify

import (
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
)

// Run statuses carried in events.
const (
	StatusStarted = "started"
	StatusDone    = "done"
	StatusFailed  = "failed"
)

const publishTimeout = 5 * time.Second

// Event is the JSON payload published for a run.
type Event struct {
	ID     string `json:"id"`
	URL    string `json:"url"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Publisher delivers run events. Delivery is best effort; implementations
// log failures instead of returning them.
type Publisher interface {
	Publish(evt Event)
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(Event) {}

// Options configures the MQTT publisher.
type Options struct {
	BrokerURL   string
	ClientID    string
	TopicPrefix string
	Username    string
	Password    string
	Log         zerolog.Logger
}

// MQTTPublisher publishes events to {prefix}/runs/{id}/started and
// {prefix}/runs/{id}/finished.
type MQTTPublisher struct {
	conn      mqtt.Client
	prefix    string
	connected atomic.Bool
	send      func(topic string, payload []byte) error
	log       zerolog.Logger
}

// Connect dials the broker and returns a publisher. The client reconnects
// on its own after the first successful connection.
func Connect(opts Options) (*MQTTPublisher, error) {
	p := &MQTTPublisher{
		prefix: opts.TopicPrefix,
		log:    opts.Log.With().Str("component", "notify").Logger(),
	}

	clientOpts := mqtt.NewClientOptions().
		AddBroker(opts.BrokerURL).
		SetClientID(opts.ClientID).
		SetAutoReconnect(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(p.onConnectionLost)

	if opts.Username != "" {
		clientOpts.SetUsername(opts.Username)
	}
	if opts.Password != "" {
		clientOpts.SetPassword(opts.Password)
	}

	p.conn = mqtt.NewClient(clientOpts)
	token := p.conn.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		return nil, err
	}
	p.send = p.mqttSend
	return p, nil
}

func (p *MQTTPublisher) onConnect(mqtt.Client) {
	p.connected.Store(true)
	p.log.Info().Str("prefix", p.prefix).Msg("mqtt connected")
}

func (p *MQTTPublisher) onConnectionLost(_ mqtt.Client, err error) {
	p.connected.Store(false)
	p.log.Warn().Err(err).Msg("mqtt connection lost, will auto-reconnect")
}

func (p *MQTTPublisher) mqttSend(topic string, payload []byte) error {
	token := p.conn.Publish(topic, 1, false, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish to %s timed out", topic)
	}
	return token.Error()
}

// Publish sends evt. Failures are logged.
func (p *MQTTPublisher) Publish(evt Event) {
	payload, err := json.Marshal(evt)
	if err != nil {
		p.log.Error().Err(err).Str("run_id", evt.ID).Msg("marshal run event")
		return
	}
	topic := Topic(p.prefix, evt)
	if err := p.send(topic, payload); err != nil {
		p.log.Warn().Err(err).Str("topic", topic).Msg("run event publish failed")
		return
	}
	p.log.Debug().Str("topic", topic).Msg("run event published")
}

// IsConnected reports the broker connection state.
func (p *MQTTPublisher) IsConnected() bool {
	return p.connected.Load()
}

func (p *MQTTPublisher) Close() {
	p.log.Info().Msg("disconnecting mqtt client")
	p.conn.Disconnect(1000)
}

// Topic returns the topic an event is published on.
func Topic(prefix string, evt Event) string {
	kind := "finished"
	if evt.Status == StatusStarted {
		kind = "started"
	}
	if prefix == "" {
		return fmt.Sprintf("runs/%s/%s", evt.ID, kind)
	}
	return fmt.Sprintf("%s/runs/%s/%s", prefix, evt.ID, kind)
}
