package queue

import (
	"context"
	"hash/fnv"
	"sync"

	"github.com/rs/zerolog"

	"github.com/videorental/rental-lifecycle/internal/core/domain"
	"github.com/videorental/rental-lifecycle/internal/core/ports"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
)

// Dispatcher routes committed rental events to a fixed set of workers using
// consistent hashing on the rental id, guaranteeing per-rental event ordering.
// It implements ports.AuditPublisher.
type Dispatcher struct {
	workers []chan domain.RentalEvent
	service ports.AuditService
	metrics ports.Metrics
	log     zerolog.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

var _ ports.AuditPublisher = (*Dispatcher)(nil)

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, service ports.AuditService, metrics ports.Metrics, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	d := &Dispatcher{
		workers: make([]chan domain.RentalEvent, numWorkers),
		service: service,
		metrics: metrics,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan domain.RentalEvent, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled
// or after Close has drained their queues.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}
}

// Publish hands an event to the worker responsible for its rental. It never
// blocks: when that worker's queue is full or the dispatcher is closed the
// event is dropped and logged.
func (d *Dispatcher) Publish(event domain.RentalEvent) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.drop(event, "dispatcher closed")
		return
	}

	idx := d.shardIndex(event.RentalID)
	select {
	case d.workers[idx] <- event:
		d.metrics.AuditQueueDepth(idx, len(d.workers[idx]))
	default:
		d.drop(event, "queue full")
	}
}

// Close stops accepting events and waits until queued events are written.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	for _, ch := range d.workers {
		close(ch)
	}
	d.mu.Unlock()

	d.wg.Wait()
}

func (d *Dispatcher) drop(event domain.RentalEvent, reason string) {
	d.metrics.AuditEventDropped()
	d.log.Warn().
		Str("rental_id", event.RentalID).
		Str("event_type", string(event.Type)).
		Str("reason", reason).
		Msg("audit event dropped")
}

// shardIndex maps a rental id deterministically to a worker index.
func (d *Dispatcher) shardIndex(rentalID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(rentalID))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan domain.RentalEvent) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			d.metrics.AuditQueueDepth(id, len(ch))
			if err := d.service.Record(ctx, event); err != nil {
				d.log.Error().Err(err).
					Str("rental_id", event.RentalID).
					Str("event_type", string(event.Type)).
					Int("worker_id", id).
					Msg("audit event write failed")
			}
		}
	}
}
