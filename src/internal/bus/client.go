package bus

import (
	"fmt"
	"sync/atomic"
	"time"

	"mqbridge/src/internal/config"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/lixenwraith/log"
)

// Message is one raw (topic, payload) event from the broker.
type Message struct {
	Topic    string
	Payload  []byte
	Received time.Time
}

// Client subscribes to the message bus and hands raw messages to the
// bridge on a buffered channel. Connection loss and recovery are handled
// here; the pipeline only observes connectivity through Connected().
type Client struct {
	config *config.BusConfig
	client mqtt.Client
	out    chan Message
	logger *log.Logger

	connected      atomic.Bool
	everConnected  atomic.Bool
	connectedSince atomic.Value // time.Time

	// Statistics
	totalMessages   atomic.Uint64
	droppedMessages atomic.Uint64
	reconnects      atomic.Uint64
}

// NewClient creates a bus client for the configured broker.
func NewClient(cfg *config.BusConfig, logger *log.Logger) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bus configuration cannot be nil")
	}

	c := &Client{
		config: cfg,
		out:    make(chan Message, cfg.BufferSize),
		logger: logger,
	}
	c.connectedSince.Store(time.Time{})

	broker := fmt.Sprintf("%s://%s:%d", cfg.Protocol, cfg.Host, cfg.Port)
	clientID := fmt.Sprintf("%s-%s", cfg.ClientID, uuid.NewString()[:8])

	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetConnectTimeout(time.Duration(cfg.ConnectTimeoutS) * time.Second).
		SetAutoReconnect(true).
		SetMaxReconnectInterval(time.Duration(cfg.ReconnectPeriodS) * time.Second).
		SetConnectRetry(true).
		SetConnectRetryInterval(time.Duration(cfg.ReconnectPeriodS) * time.Second).
		SetOrderMatters(false).
		SetOnConnectHandler(c.onConnect).
		SetConnectionLostHandler(c.onConnectionLost)

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	c.client = mqtt.NewClient(opts)

	logger.Info("msg", "Bus client created",
		"component", "bus",
		"broker", broker,
		"client_id", clientID,
		"topics", cfg.Topics)

	return c, nil
}

// Subscribe returns the channel raw bus messages arrive on.
func (c *Client) Subscribe() <-chan Message {
	return c.out
}

// Start initiates the broker connection. Connection failures are not
// fatal: retry continues in the background and connectivity is surfaced
// through the status snapshot.
func (c *Client) Start() error {
	token := c.client.Connect()
	if !token.WaitTimeout(time.Duration(c.config.ConnectTimeoutS) * time.Second) {
		c.logger.Warn("msg", "Broker connection pending, retrying in background",
			"component", "bus")
		return nil
	}
	if err := token.Error(); err != nil {
		c.logger.Warn("msg", "Broker connection failed, retrying in background",
			"component", "bus",
			"error", err)
	}
	return nil
}

// Stop disconnects from the broker.
func (c *Client) Stop() {
	c.client.Disconnect(250)
	c.connected.Store(false)
	c.logger.Info("msg", "Bus client stopped",
		"component", "bus",
		"total_messages", c.totalMessages.Load(),
		"dropped_messages", c.droppedMessages.Load())
}

// Connected reports current broker connectivity.
func (c *Client) Connected() bool {
	return c.connected.Load()
}

// ConnectedSince returns the time of the last successful (re)connect.
func (c *Client) ConnectedSince() time.Time {
	t, _ := c.connectedSince.Load().(time.Time)
	return t
}

// GetStats returns bus client statistics.
func (c *Client) GetStats() map[string]any {
	return map[string]any{
		"connected":        c.Connected(),
		"connected_since":  c.ConnectedSince(),
		"total_messages":   c.totalMessages.Load(),
		"dropped_messages": c.droppedMessages.Load(),
		"reconnects":       c.reconnects.Load(),
	}
}

// onConnect runs on every successful connect, including reconnects, and
// must re-establish all subscriptions.
func (c *Client) onConnect(client mqtt.Client) {
	if !c.everConnected.CompareAndSwap(false, true) {
		c.reconnects.Add(1)
	}
	c.connected.Store(true)
	c.connectedSince.Store(time.Now())

	subscriptions := make(map[string]byte, len(c.config.Topics))
	for _, topic := range c.config.Topics {
		subscriptions[topic] = byte(c.config.QoS)
	}

	token := client.SubscribeMultiple(subscriptions, c.onMessage)
	go func() {
		token.Wait()
		if err := token.Error(); err != nil {
			c.logger.Error("msg", "Topic subscription failed",
				"component", "bus",
				"topics", c.config.Topics,
				"error", err)
			return
		}
		c.logger.Info("msg", "Subscribed to topics",
			"component", "bus",
			"topics", c.config.Topics)
	}()
}

func (c *Client) onConnectionLost(_ mqtt.Client, err error) {
	c.connected.Store(false)
	c.logger.Warn("msg", "Broker connection lost",
		"component", "bus",
		"error", err)
}

// onMessage hands the raw message to the pipeline without ever blocking
// the paho callback; a full channel drops the message and counts it.
func (c *Client) onMessage(_ mqtt.Client, msg mqtt.Message) {
	c.totalMessages.Add(1)

	m := Message{
		Topic:    msg.Topic(),
		Payload:  msg.Payload(),
		Received: time.Now(),
	}

	select {
	case c.out <- m:
	default:
		c.droppedMessages.Add(1)
		c.logger.Warn("msg", "Inbound channel full, dropping message",
			"component", "bus",
			"topic", msg.Topic())
	}
}
