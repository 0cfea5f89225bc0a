package buffer

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"mqbridge/src/internal/core"

	"github.com/lixenwraith/log"
)

// OverflowThreshold is the live-buffer length above which a failed batch
// is dropped instead of requeued. Bounds memory when the sink stays down.
const OverflowThreshold = 1000

// Deliverer pushes a detached batch to the sink in a single attempt.
type Deliverer interface {
	Deliver(ctx context.Context, batch []core.Entry) error
}

// Buffer accumulates entries and flushes them on size and time triggers.
// Appends and flushes run concurrently; the detach step is atomic with
// respect to Append so in-flight batches never overlap the live buffer.
type Buffer struct {
	mu      sync.Mutex
	pending []core.Entry

	deliverer     Deliverer
	batchSize     int
	flushInterval time.Duration
	logger        *log.Logger

	// Single-flight guard: a timer tick or size trigger arriving while
	// a flush is in progress is skipped, never queued
	flushing atomic.Bool

	ctx  context.Context // guarded by mu
	done chan struct{}
	wg   sync.WaitGroup

	// Statistics
	totalDelivered atomic.Uint64
	totalFlushes   atomic.Uint64
	failedFlushes  atomic.Uint64
	droppedEntries atomic.Uint64
	lastFlush      atomic.Value // time.Time
	lastError      atomic.Value // string
}

// New creates a buffer that delivers through the given deliverer.
func New(deliverer Deliverer, batchSize int, flushInterval time.Duration, logger *log.Logger) *Buffer {
	b := &Buffer{
		pending:       make([]core.Entry, 0, batchSize),
		deliverer:     deliverer,
		batchSize:     batchSize,
		flushInterval: flushInterval,
		logger:        logger,
		ctx:           context.Background(),
		done:          make(chan struct{}),
	}
	b.lastFlush.Store(time.Time{})
	b.lastError.Store("")
	return b
}

// Start launches the periodic flush timer.
func (b *Buffer) Start(ctx context.Context) {
	b.mu.Lock()
	b.ctx = ctx
	b.mu.Unlock()

	b.wg.Add(1)
	go b.flushTimer(ctx)
}

// Append adds an entry to the tail of the live buffer. Reaching the batch
// size initiates a flush in the background; Append never blocks on delivery.
func (b *Buffer) Append(entry core.Entry) {
	b.mu.Lock()
	b.pending = append(b.pending, entry)
	n := len(b.pending)
	ctx := b.ctx
	b.mu.Unlock()

	if n >= b.batchSize {
		go b.Flush(ctx)
	}
}

// Flush atomically detaches the live buffer and attempts one delivery.
// On failure the detached batch is prepended back ahead of anything
// appended meanwhile, unless the live buffer already reached the overflow
// threshold, in which case the batch is dropped to bound memory.
// Only one flush runs at a time; concurrent triggers are skipped.
func (b *Buffer) Flush(ctx context.Context) {
	if !b.flushing.CompareAndSwap(false, true) {
		return
	}
	defer b.flushing.Store(false)

	b.mu.Lock()
	if len(b.pending) == 0 {
		b.mu.Unlock()
		return
	}
	batch := b.pending
	b.pending = make([]core.Entry, 0, b.batchSize)
	b.mu.Unlock()

	b.totalFlushes.Add(1)

	err := b.deliverer.Deliver(ctx, batch)
	if err == nil {
		b.totalDelivered.Add(uint64(len(batch)))
		b.lastFlush.Store(time.Now())
		b.lastError.Store("")
		b.logger.Debug("msg", "Batch delivered",
			"component", "buffer",
			"batch_size", len(batch))
		return
	}

	b.failedFlushes.Add(1)
	b.lastError.Store(err.Error())

	b.mu.Lock()
	if len(b.pending) >= OverflowThreshold {
		b.mu.Unlock()
		b.droppedEntries.Add(uint64(len(batch)))
		b.logger.Warn("msg", "Buffer overflow, dropping failed batch",
			"component", "buffer",
			"dropped", len(batch),
			"pending", b.Pending(),
			"error", err)
		return
	}
	// Restore delivery order ahead of entries appended during the attempt
	b.pending = append(batch, b.pending...)
	b.mu.Unlock()

	b.logger.Warn("msg", "Batch delivery failed, requeued",
		"component", "buffer",
		"batch_size", len(batch),
		"error", err)
}

// flushTimer bounds worst-case delivery latency for low-volume devices
// that never reach the size threshold.
func (b *Buffer) flushTimer(ctx context.Context) {
	defer b.wg.Done()

	ticker := time.NewTicker(b.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if b.Pending() > 0 {
				b.Flush(ctx)
			}
		case <-ctx.Done():
			return
		case <-b.done:
			return
		}
	}
}

// Shutdown stops the timer and attempts one final bounded flush. A flush
// already in flight is allowed to settle first so the final attempt is not
// skipped by the single-flight guard. When the context expires first,
// remaining entries are abandoned so process exit is never blocked on the
// sink.
func (b *Buffer) Shutdown(ctx context.Context) {
	close(b.done)
	b.wg.Wait()

	flushed := make(chan struct{})
	go func() {
		b.awaitInFlight(ctx)
		b.Flush(ctx)
		close(flushed)
	}()

	select {
	case <-flushed:
		b.logger.Info("msg", "Buffer shutdown complete",
			"component", "buffer",
			"total_delivered", b.totalDelivered.Load())
	case <-ctx.Done():
		b.logger.Warn("msg", "Final flush timed out, abandoning remaining entries",
			"component", "buffer",
			"abandoned", b.Pending())
	}
}

// awaitInFlight blocks until no flush is in progress or the context
// expires.
func (b *Buffer) awaitInFlight(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()

	for b.flushing.Load() {
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}

// Pending returns the current live-buffer length.
func (b *Buffer) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

// LastFlush returns the time of the last successful delivery.
func (b *Buffer) LastFlush() time.Time {
	t, _ := b.lastFlush.Load().(time.Time)
	return t
}

// LastError returns the last delivery failure text, "" after a success.
func (b *Buffer) LastError() string {
	s, _ := b.lastError.Load().(string)
	return s
}

// GetStats returns buffer statistics.
func (b *Buffer) GetStats() map[string]any {
	return map[string]any{
		"pending_entries": b.Pending(),
		"batch_size":      b.batchSize,
		"total_delivered": b.totalDelivered.Load(),
		"total_flushes":   b.totalFlushes.Load(),
		"failed_flushes":  b.failedFlushes.Load(),
		"dropped_entries": b.droppedEntries.Load(),
		"last_flush":      b.LastFlush(),
		"last_error":      b.LastError(),
	}
}
