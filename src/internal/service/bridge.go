package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"mqbridge/src/internal/buffer"
	"mqbridge/src/internal/bus"
	"mqbridge/src/internal/config"
	"mqbridge/src/internal/core"
	"mqbridge/src/internal/filter"
	"mqbridge/src/internal/loki"
	"mqbridge/src/internal/normalize"

	"github.com/lixenwraith/log"
	"golang.org/x/time/rate"
)

// Bound on the final flush attempt during shutdown
const shutdownFlushTimeout = 5 * time.Second

// BusSource is the message-bus collaborator as seen by the bridge.
type BusSource interface {
	Subscribe() <-chan bus.Message
	Start() error
	Stop()
	Connected() bool
	ConnectedSince() time.Time
	GetStats() map[string]any
}

// Bridge wires the bus to the sink: every inbound message is normalized,
// classified, filtered and appended to the delivery buffer.
type Bridge struct {
	config     *config.Config
	bus        BusSource
	normalizer *normalize.Normalizer
	filters    *filter.Chain
	buffer     *buffer.Buffer
	sink       *loki.Client
	limiter    *rate.Limiter
	logger     *log.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	startTime time.Time

	// Statistics
	totalReceived    atomic.Uint64
	totalRejected    atomic.Uint64
	totalRateLimited atomic.Uint64
}

// Status is the read-only snapshot surfaced to health and status
// collaborators.
type Status struct {
	BufferedEntries   int       `json:"buffered_entries"`
	LastFlush         time.Time `json:"last_flush"`
	LastError         string    `json:"last_error,omitempty"`
	BusConnected      bool      `json:"bus_connected"`
	BusConnectedSince time.Time `json:"bus_connected_since"`
	UptimeSeconds     int       `json:"uptime_seconds"`
}

// lokiDeliverer adapts grouping plus push into the buffer's single
// delivery attempt.
type lokiDeliverer struct {
	client *loki.Client
}

func (d *lokiDeliverer) Deliver(ctx context.Context, batch []core.Entry) error {
	return d.client.Push(ctx, loki.GroupStreams(batch))
}

// NewBridge creates the full pipeline from configuration.
func NewBridge(ctx context.Context, cfg *config.Config, logger *log.Logger) (*Bridge, error) {
	busClient, err := bus.NewClient(&cfg.Bus, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create bus client: %w", err)
	}
	return newBridge(ctx, cfg, busClient, logger)
}

func newBridge(ctx context.Context, cfg *config.Config, source BusSource, logger *log.Logger) (*Bridge, error) {
	bridgeCtx, cancel := context.WithCancel(ctx)

	sinkClient, err := loki.NewClient(&cfg.Sink, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create sink client: %w", err)
	}

	chain, err := filter.NewChain(cfg.Filters, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create filter chain: %w", err)
	}

	b := &Bridge{
		config:     cfg,
		bus:        source,
		normalizer: normalize.New("mqtt", logger),
		filters:    chain,
		sink:       sinkClient,
		logger:     logger,
		ctx:        bridgeCtx,
		cancel:     cancel,
		startTime:  time.Now(),
	}

	b.buffer = buffer.New(
		&lokiDeliverer{client: sinkClient},
		cfg.Sink.BatchSize,
		time.Duration(cfg.Sink.FlushIntervalMS)*time.Millisecond,
		logger,
	)

	if cfg.Limit.Enabled {
		b.limiter = rate.NewLimiter(rate.Limit(cfg.Limit.EntriesPerSecond), cfg.Limit.Burst)
	}

	return b, nil
}

// Start launches the buffer timer, connects the bus and begins ingesting.
func (b *Bridge) Start() error {
	b.buffer.Start(b.ctx)

	if err := b.bus.Start(); err != nil {
		return fmt.Errorf("failed to start bus client: %w", err)
	}

	b.wg.Add(1)
	go b.ingestLoop()

	b.logger.Info("msg", "Bridge started",
		"component", "bridge",
		"batch_size", b.config.Sink.BatchSize,
		"flush_interval_ms", b.config.Sink.FlushIntervalMS)
	return nil
}

// Shutdown stops ingestion, then attempts one final bounded flush.
// Exceeding the bound abandons in-flight delivery rather than blocking
// process exit.
func (b *Bridge) Shutdown() {
	b.logger.Info("msg", "Bridge shutting down", "component", "bridge")

	b.bus.Stop()
	b.cancel()
	b.wg.Wait()

	flushCtx, flushCancel := context.WithTimeout(context.Background(), shutdownFlushTimeout)
	defer flushCancel()
	b.buffer.Shutdown(flushCtx)

	b.logger.Info("msg", "Bridge shutdown complete",
		"component", "bridge",
		"total_received", b.totalReceived.Load())
}

func (b *Bridge) ingestLoop() {
	defer b.wg.Done()

	in := b.bus.Subscribe()
	for {
		select {
		case msg := <-in:
			b.ingest(msg)
		case <-b.ctx.Done():
			return
		}
	}
}

// ingest runs one message through normalize, classify, filter, append.
func (b *Bridge) ingest(msg bus.Message) {
	b.totalReceived.Add(1)

	if b.limiter != nil && !b.limiter.Allow() {
		b.totalRateLimited.Add(1)
		return
	}

	entry := b.normalizer.Normalize(msg.Topic, msg.Payload)

	// Data-quality rejection, distinct from the plain-text decode fallback
	if entry.Message == "" {
		b.totalRejected.Add(1)
		b.logger.Debug("msg", "Rejecting entry without message",
			"component", "bridge",
			"topic", msg.Topic,
			"device_id", entry.DeviceID)
		return
	}

	if !b.filters.Apply(entry) {
		return
	}

	b.buffer.Append(entry)
}

// Status returns the snapshot polled by health endpoints and shutdown
// logic.
func (b *Bridge) Status() Status {
	return Status{
		BufferedEntries:   b.buffer.Pending(),
		LastFlush:         b.buffer.LastFlush(),
		LastError:         b.buffer.LastError(),
		BusConnected:      b.bus.Connected(),
		BusConnectedSince: b.bus.ConnectedSince(),
		UptimeSeconds:     int(time.Since(b.startTime).Seconds()),
	}
}

// GetStats returns detailed statistics for the status server.
func (b *Bridge) GetStats() map[string]any {
	return map[string]any{
		"uptime_seconds":     int(time.Since(b.startTime).Seconds()),
		"total_received":     b.totalReceived.Load(),
		"total_rejected":     b.totalRejected.Load(),
		"total_rate_limited": b.totalRateLimited.Load(),
		"bus":                b.bus.GetStats(),
		"normalizer":         b.normalizer.GetStats(),
		"filters":            b.filters.GetStats(),
		"buffer":             b.buffer.GetStats(),
		"sink":               b.sink.GetStats(),
	}
}
