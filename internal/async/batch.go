// Package async buffers a high-rate stream of incoming contest
// payloads so they can be flushed to the engine in chunks instead of
// one goroutine-per-contest; Engine.Submit itself stays synchronous
// and must still be called once per contest, in order, off this
// package's flush callback.
package async

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// BatchFunc processes one flushed batch. Submit is not safe to call
// concurrently with itself, so a BatchFunc over contest payloads must
// iterate batch sequentially rather than fanning its items out.
type BatchFunc[T any] func(ctx context.Context, batch []T) error

// BatchConfig controls how large a batch grows before it is flushed.
type BatchConfig struct {
	MaxBatchSize    int
	FlushInterval   time.Duration
	BufferCapacity  int
	FlushOnShutdown bool
}

// DefaultBatchConfig buffers up to 100 contests or 5 seconds,
// whichever comes first.
func DefaultBatchConfig() BatchConfig {
	return BatchConfig{
		MaxBatchSize:    100,
		FlushInterval:   5 * time.Second,
		BufferCapacity:  10000,
		FlushOnShutdown: true,
	}
}

// BatchMetrics tracks batcher throughput and health.
type BatchMetrics struct {
	TotalItems       int64
	TotalBatches     int64
	ProcessedBatches int64
	FailedBatches    int64
	CurrentBuffer    int64
	LastFlush        time.Time
	LastError        time.Time
}

// Batcher accumulates items of type T and flushes them to processor
// either when MaxBatchSize is reached or FlushInterval elapses.
type Batcher[T any] struct {
	processor BatchFunc[T]
	config    BatchConfig

	bufferMu sync.Mutex
	buffer   []T

	metrics    *batchMetricsInternal
	flushTimer *time.Timer
	stopCh     chan struct{}
	wg         sync.WaitGroup
	running    int32
}

type batchMetricsInternal struct {
	mu sync.RWMutex
	BatchMetrics
}

// NewBatcher constructs a Batcher; zero-valued config fields fall back
// to DefaultBatchConfig's values.
func NewBatcher[T any](processor BatchFunc[T], config BatchConfig) *Batcher[T] {
	def := DefaultBatchConfig()
	if config.MaxBatchSize <= 0 {
		config.MaxBatchSize = def.MaxBatchSize
	}
	if config.FlushInterval <= 0 {
		config.FlushInterval = def.FlushInterval
	}
	if config.BufferCapacity <= 0 {
		config.BufferCapacity = def.BufferCapacity
	}

	return &Batcher[T]{
		processor: processor,
		config:    config,
		buffer:    make([]T, 0, config.MaxBatchSize),
		metrics:   &batchMetricsInternal{},
		stopCh:    make(chan struct{}),
	}
}

// Start arms the flush timer.
func (b *Batcher[T]) Start(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&b.running, 0, 1) {
		return fmt.Errorf("batcher is already running")
	}
	b.resetFlushTimer(ctx)
	return nil
}

// Stop disarms the flush timer and, if configured, flushes whatever
// remains buffered before returning.
func (b *Batcher[T]) Stop(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&b.running, 1, 0) {
		return nil
	}
	if b.flushTimer != nil {
		b.flushTimer.Stop()
	}
	close(b.stopCh)

	if b.config.FlushOnShutdown {
		b.bufferMu.Lock()
		defer b.bufferMu.Unlock()
		return b.flushLocked(ctx)
	}
	return nil
}

// Submit appends item to the buffer, flushing synchronously if the
// batch is now full.
func (b *Batcher[T]) Submit(ctx context.Context, item T) error {
	if atomic.LoadInt32(&b.running) == 0 {
		return fmt.Errorf("batcher is not running")
	}

	b.bufferMu.Lock()
	defer b.bufferMu.Unlock()

	if len(b.buffer) >= b.config.BufferCapacity {
		return fmt.Errorf("batcher buffer is full")
	}

	b.buffer = append(b.buffer, item)
	b.metrics.mu.Lock()
	b.metrics.TotalItems++
	b.metrics.CurrentBuffer = int64(len(b.buffer))
	b.metrics.mu.Unlock()

	if len(b.buffer) >= b.config.MaxBatchSize {
		return b.flushLocked(ctx)
	}
	return nil
}

// Flush forces processing of whatever is currently buffered.
func (b *Batcher[T]) Flush(ctx context.Context) error {
	b.bufferMu.Lock()
	defer b.bufferMu.Unlock()
	return b.flushLocked(ctx)
}

// flushLocked runs the processor synchronously; callers must hold
// bufferMu. Running the processor inline (rather than in a spawned
// goroutine) preserves the caller's ordering across flushes, which
// matters because a batch of contests must reach Submit in the order
// they were produced.
func (b *Batcher[T]) flushLocked(ctx context.Context) error {
	if len(b.buffer) == 0 {
		return nil
	}

	batch := make([]T, len(b.buffer))
	copy(batch, b.buffer)
	b.buffer = b.buffer[:0]

	b.metrics.mu.Lock()
	b.metrics.CurrentBuffer = 0
	b.metrics.TotalBatches++
	b.metrics.mu.Unlock()

	err := b.processor(ctx, batch)

	b.metrics.mu.Lock()
	b.metrics.LastFlush = time.Now()
	if err != nil {
		b.metrics.FailedBatches++
		b.metrics.LastError = time.Now()
	} else {
		b.metrics.ProcessedBatches++
	}
	b.metrics.mu.Unlock()

	if atomic.LoadInt32(&b.running) == 1 {
		b.resetFlushTimer(ctx)
	}
	return err
}

func (b *Batcher[T]) resetFlushTimer(ctx context.Context) {
	if b.flushTimer != nil {
		b.flushTimer.Stop()
	}
	b.flushTimer = time.AfterFunc(b.config.FlushInterval, func() {
		if atomic.LoadInt32(&b.running) != 1 {
			return
		}
		b.bufferMu.Lock()
		defer b.bufferMu.Unlock()
		_ = b.flushLocked(ctx)
	})
}

// Metrics returns a snapshot of the batcher's counters.
func (b *Batcher[T]) Metrics() BatchMetrics {
	b.metrics.mu.RLock()
	defer b.metrics.mu.RUnlock()
	return b.metrics.BatchMetrics
}
