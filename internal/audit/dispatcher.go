package audit

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Config controls how the dispatcher buffers events ahead of its sink.
type Config struct {
	BufferSize int
	// DropIfFull discards events when the buffer is full instead of making
	// the flow wait for room.
	DropIfFull bool
	// Logger receives sink panics. Nil discards them.
	Logger *slog.Logger
}

// Dispatcher moves events off the request path and delivers them to one sink
// from a single goroutine, in emission order.
type Dispatcher struct {
	cfg     Config
	sink    Sink
	mu      sync.RWMutex
	closed  bool
	queue   chan Event
	stopped chan struct{}
	dropped atomic.Uint64
}

func NewDispatcher(cfg Config, sink Sink) *Dispatcher {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}
	d := &Dispatcher{
		cfg:     cfg,
		sink:    sink,
		queue:   make(chan Event, cfg.BufferSize),
		stopped: make(chan struct{}),
	}
	go d.deliver()
	return d
}

func (d *Dispatcher) deliver() {
	defer close(d.stopped)
	for event := range d.queue {
		d.emitOne(event)
	}
}

func (d *Dispatcher) emitOne(event Event) {
	defer func() {
		if r := recover(); r != nil && d.cfg.Logger != nil {
			d.cfg.Logger.Error("audit sink panicked", "event_type", event.EventType, "panic", r)
		}
	}()
	d.sink.Emit(context.Background(), event)
}

// Emit queues event. With DropIfFull unset it waits for buffer room or for
// ctx to end, whichever comes first. Emit after Close is a no-op.
func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	if d == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	// The read lock keeps Close from closing the queue under a pending send.
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return
	}

	if d.cfg.DropIfFull {
		select {
		case d.queue <- event:
		default:
			d.dropped.Add(1)
		}
		return
	}
	select {
	case d.queue <- event:
	case <-ctx.Done():
		d.dropped.Add(1)
	}
}

// Close stops accepting events and returns once everything already queued
// has reached the sink. It is safe to call more than once.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()
	<-d.stopped
}

// Dropped counts events discarded under backpressure or abandoned because
// the emitting context ended.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
