package audit

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/deltacron/authgate/internal/observability"
)

// defaultWriteTimeout bounds a single sink write.
const defaultWriteTimeout = 5 * time.Second

// Recorder accepts audit events for asynchronous persistence.
type Recorder interface {
	// Record enqueues an event. It never blocks; events are dropped when
	// the queue is full.
	Record(event *Event)
	// Close flushes queued events and stops the worker.
	Close() error
}

// AsyncRecorder drains a bounded queue into a sink from a single worker
// goroutine.
type AsyncRecorder struct {
	queue        chan *Event
	sink         Sink
	logger       observability.Logger
	writeTimeout time.Duration

	recorded prometheus.Counter
	dropped  prometheus.Counter
	failed   prometheus.Counter

	closeOnce sync.Once
	done      chan struct{}
}

// RecorderOption is a functional option for configuring the recorder.
type RecorderOption func(*AsyncRecorder)

// WithRecorderLogger sets the logger.
func WithRecorderLogger(logger observability.Logger) RecorderOption {
	return func(r *AsyncRecorder) {
		r.logger = logger
	}
}

// WithWriteTimeout bounds a single sink write.
func WithWriteTimeout(timeout time.Duration) RecorderOption {
	return func(r *AsyncRecorder) {
		r.writeTimeout = timeout
	}
}

// WithRegisterer registers the recorder's counters with reg.
func WithRegisterer(reg prometheus.Registerer) RecorderOption {
	return func(r *AsyncRecorder) {
		reg.MustRegister(r.recorded, r.dropped, r.failed)
	}
}

// NewRecorder creates and starts an AsyncRecorder.
func NewRecorder(sink Sink, queueSize int, opts ...RecorderOption) *AsyncRecorder {
	if queueSize <= 0 {
		queueSize = 1
	}

	r := &AsyncRecorder{
		queue:        make(chan *Event, queueSize),
		sink:         sink,
		logger:       observability.NopLogger(),
		writeTimeout: defaultWriteTimeout,
		done:         make(chan struct{}),
		recorded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "authgate",
			Subsystem: "audit",
			Name:      "events_recorded_total",
			Help:      "Total number of audit events written to the sink",
		}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "authgate",
			Subsystem: "audit",
			Name:      "events_dropped_total",
			Help:      "Total number of audit events dropped due to a full queue",
		}),
		failed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "authgate",
			Subsystem: "audit",
			Name:      "events_failed_total",
			Help:      "Total number of audit events the sink failed to write",
		}),
	}

	for _, opt := range opts {
		opt(r)
	}

	go r.worker()
	return r
}

// Record implements Recorder.
func (r *AsyncRecorder) Record(event *Event) {
	if event == nil {
		return
	}

	select {
	case r.queue <- event:
	default:
		r.dropped.Inc()
		r.logger.Warn("audit queue full, dropping event",
			observability.String("action", string(event.Action)),
		)
	}
}

// worker drains the queue until Close.
func (r *AsyncRecorder) worker() {
	defer close(r.done)

	for event := range r.queue {
		r.write(event)
	}
}

// write persists one event, logging failures without propagating them.
func (r *AsyncRecorder) write(event *Event) {
	ctx, cancel := context.WithTimeout(context.Background(), r.writeTimeout)
	defer cancel()

	if err := r.sink.Write(ctx, event); err != nil {
		r.failed.Inc()
		r.logger.Error("failed to write audit event",
			observability.String("sink", r.sink.Name()),
			observability.String("action", string(event.Action)),
			observability.Error(err),
		)
		return
	}
	r.recorded.Inc()
}

// Close implements Recorder. Queued events are flushed before returning.
func (r *AsyncRecorder) Close() error {
	r.closeOnce.Do(func() {
		close(r.queue)
	})
	<-r.done
	return nil
}

// noopRecorder discards all events.
type noopRecorder struct{}

// NopRecorder returns a recorder that discards all events, for use when
// auditing is disabled.
func NopRecorder() Recorder {
	return noopRecorder{}
}

// Record implements Recorder.
func (noopRecorder) Record(*Event) {}

// Close implements Recorder.
func (noopRecorder) Close() error { return nil }
