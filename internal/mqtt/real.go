package mqtt

import (
	"fmt"
	"log"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// bufferCapacity bounds the number of events queued while disconnected.
// A run produces a handful of lifecycle events, so this is generous.
const bufferCapacity = 64

// RealPublisher publishes to an actual MQTT broker. Events published while
// the connection is down are queued and replayed on reconnect.
type RealPublisher struct {
	client paho.Client

	mu  sync.Mutex
	buf *ringBuffer
}

// NewRealPublisher creates a publisher connected to the given broker.
func NewRealPublisher(broker, clientID string) (*RealPublisher, error) {
	p := &RealPublisher{buf: newRingBuffer(bufferCapacity)}

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOnConnectHandler(func(paho.Client) { p.replay() }).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Printf("mqtt: connection lost: %v", err)
		})

	client := paho.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	p.client = client
	return p, nil
}

// PublishRun sends a run lifecycle event to the MQTT broker. While the
// connection is down the event is queued for replay instead of being lost.
func (p *RealPublisher) PublishRun(event RunEvent) error {
	payload, err := FormatRunPayload(event)
	if err != nil {
		return fmt.Errorf("format run payload: %w", err)
	}

	if !p.client.IsConnected() {
		p.mu.Lock()
		p.buf.push(bufferedMsg{payload: payload, retained: event.Retained})
		queued := p.buf.len()
		p.mu.Unlock()
		log.Printf("mqtt: disconnected, queued %s (%d pending)", event.Event, queued)
		return nil
	}

	// QoS 1 (at-least-once): lifecycle events must reach the operator's log
	token := p.client.Publish(Topic, 1, event.Retained, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish run event: %w", err)
	}

	return nil
}

// replay drains queued events after a reconnect.
func (p *RealPublisher) replay() {
	p.mu.Lock()
	msgs := p.buf.drainAll()
	p.mu.Unlock()

	if len(msgs) == 0 {
		return
	}
	log.Printf("mqtt: reconnected, replaying %d queued events", len(msgs))
	for _, msg := range msgs {
		token := p.client.Publish(Topic, 1, msg.retained, msg.payload)
		if !token.WaitTimeout(5 * time.Second) {
			log.Printf("mqtt: replay timeout")
			return
		}
		if err := token.Error(); err != nil {
			log.Printf("mqtt: replay: %v", err)
			return
		}
	}
}

// IsConnected reports whether the broker connection is up.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnected()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
