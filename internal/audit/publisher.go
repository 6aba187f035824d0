package audit

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

const defaultBufferSize = 1024

// Publisher serializes audit writes. Events are enqueued on one buffered
// channel and written by a single worker, so the sink sees them in emission
// order and the sequence numbers it assigns are a total order.
//
// Audit failures never fail the caller: an event that cannot be enqueued or
// written is counted on the skipped metric and logged at WARN.
type Publisher struct {
	sink         Sink
	logger       *slog.Logger
	metrics      *Metrics
	now          func() time.Time
	writeTimeout time.Duration
	bufferSize   int

	mu     sync.RWMutex
	closed bool
	queue  chan Event
	done   chan struct{}
	seq    uint64
}

// Option configures the Publisher.
type Option func(*Publisher)

// WithLogger sets the logger used for skipped events.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *Metrics) Option {
	return func(p *Publisher) {
		p.metrics = m
	}
}

// WithBufferSize sets the queue capacity.
func WithBufferSize(n int) Option {
	return func(p *Publisher) {
		if n > 0 {
			p.bufferSize = n
		}
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(p *Publisher) {
		p.now = now
	}
}

// WithWriteTimeout bounds a single sink write.
func WithWriteTimeout(d time.Duration) Option {
	return func(p *Publisher) {
		p.writeTimeout = d
	}
}

// NewPublisher starts the writer goroutine. Close must be called to drain it.
func NewPublisher(sink Sink, opts ...Option) *Publisher {
	p := &Publisher{
		sink:         sink,
		logger:       slog.New(slog.DiscardHandler),
		now:          time.Now,
		writeTimeout: 5 * time.Second,
		bufferSize:   defaultBufferSize,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.queue = make(chan Event, p.bufferSize)
	p.done = make(chan struct{})

	go p.run()
	return p
}

// Emit enqueues event, blocking while the queue is full until ctx ends.
// A zero Timestamp is set to the current UTC time.
func (p *Publisher) Emit(ctx context.Context, event Event) {
	h := event.EventHeader()
	h.Type = event.EventType()
	if h.Timestamp.IsZero() {
		h.Timestamp = p.now()
	}
	h.Timestamp = h.Timestamp.UTC()

	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		p.skip(ctx, event, reasonClosed, nil)
		return
	}

	// A cancelled caller still gets its event recorded while there is room.
	select {
	case p.queue <- event:
		p.metrics.setQueueDepth(len(p.queue))
		return
	default:
	}

	select {
	case p.queue <- event:
		p.metrics.setQueueDepth(len(p.queue))
	case <-ctx.Done():
		p.skip(ctx, event, reasonCancelled, ctx.Err())
	}
}

// Close stops accepting events, writes everything already queued and closes
// the sink.
func (p *Publisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	<-p.done
	return p.sink.Close()
}

func (p *Publisher) run() {
	defer close(p.done)
	for event := range p.queue {
		p.metrics.setQueueDepth(len(p.queue))
		p.write(event)
	}
}

func (p *Publisher) write(event Event) {
	p.seq++
	event.EventHeader().Sequence = p.seq

	ctx, cancel := context.WithTimeout(context.Background(), p.writeTimeout)
	defer cancel()

	start := time.Now()
	err := p.sink.Write(ctx, event)
	p.metrics.observeWrite(time.Since(start).Seconds())
	if err == nil {
		p.metrics.incWritten(event.EventType())
		return
	}

	failed := FailedSinks(err)
	if len(failed) == 0 {
		failed = []string{p.sink.Name()}
	}
	for _, name := range failed {
		p.skip(ctx, event, name+"_write_failed", err)
	}
}

func (p *Publisher) skip(ctx context.Context, event Event, reason string, err error) {
	p.metrics.incSkipped(event.EventType(), reason)
	h := event.EventHeader()
	p.logger.WarnContext(ctx, "audit event skipped",
		"event_type", h.Type,
		"request_id", h.RequestID,
		"sequence", h.Sequence,
		"reason", reason,
		"error", err,
	)
}

// FailedSinks lists the sinks named in a write error, in the order they failed.
func FailedSinks(err error) []string {
	var names []string
	var walk func(error)
	walk = func(e error) {
		if e == nil {
			return
		}
		var we *WriteError
		if joined, ok := e.(interface{ Unwrap() []error }); ok {
			for _, inner := range joined.Unwrap() {
				walk(inner)
			}
			return
		}
		if errors.As(e, &we) {
			names = append(names, we.Sink)
		}
	}
	walk(err)
	return names
}
