package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type countingSink struct {
	count atomic.Int64
}

func (s *countingSink) Emit(context.Context, Event) {
	s.count.Add(1)
}

type gateSink struct {
	gate chan struct{}
}

func (s *gateSink) Emit(context.Context, Event) {
	<-s.gate
}

func TestNilDispatcherIsInert(t *testing.T) {
	var d *Dispatcher
	d.Emit(context.Background(), Event{})
	d.Close()
	if d.Dropped() != 0 {
		t.Fatal("nil dispatcher must report zero drops")
	}
}

func TestDispatcherDeliversOnClose(t *testing.T) {
	sink := &countingSink{}
	d := NewDispatcher(Config{BufferSize: 16}, sink)

	for i := 0; i < 10; i++ {
		d.Emit(context.Background(), Event{EventType: "login_success"})
	}
	d.Close()

	if got := sink.count.Load(); got != 10 {
		t.Fatalf("expected 10 delivered events, got %d", got)
	}
}

func TestDispatcherDropIfFullCountsDrops(t *testing.T) {
	sink := &gateSink{gate: make(chan struct{})}
	d := NewDispatcher(Config{BufferSize: 1, DropIfFull: true}, sink)

	for i := 0; i < 20; i++ {
		d.Emit(context.Background(), Event{EventType: "register_success"})
	}

	deadline := time.Now().Add(time.Second)
	for d.Dropped() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if d.Dropped() == 0 {
		t.Fatal("expected dropped events with a full buffer")
	}

	close(sink.gate)
	d.Close()
}

func TestDispatcherEmitAfterCloseIsNoop(t *testing.T) {
	sink := &countingSink{}
	d := NewDispatcher(Config{BufferSize: 4}, sink)
	d.Close()
	d.Close()

	d.Emit(context.Background(), Event{EventType: "late"})
	if sink.count.Load() != 0 {
		t.Fatal("emit after close must not reach sink")
	}
}

func TestDispatcherCancelledEmitCountsDrop(t *testing.T) {
	sink := &gateSink{gate: make(chan struct{})}
	d := NewDispatcher(Config{BufferSize: 1}, sink)

	// One event is held by the sink, one fills the buffer.
	d.Emit(context.Background(), Event{EventType: "a"})
	d.Emit(context.Background(), Event{EventType: "b"})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for d.Dropped() == 0 && ctx.Err() == nil {
			d.Emit(ctx, Event{EventType: "c"})
		}
	}()
	<-done

	if d.Dropped() == 0 {
		t.Fatal("expected the cancelled emit to count as dropped")
	}
	close(sink.gate)
	d.Close()
}

type panicSink struct {
	delivered atomic.Int64
}

func (s *panicSink) Emit(_ context.Context, ev Event) {
	if ev.EventType == "boom" {
		panic("sink failure")
	}
	s.delivered.Add(1)
}

func TestDispatcherSurvivesSinkPanic(t *testing.T) {
	var buf bytes.Buffer
	sink := &panicSink{}
	d := NewDispatcher(Config{BufferSize: 4, Logger: slog.New(slog.NewJSONHandler(&buf, nil))}, sink)

	d.Emit(context.Background(), Event{EventType: "boom"})
	d.Emit(context.Background(), Event{EventType: "login_success"})
	d.Close()

	if sink.delivered.Load() != 1 {
		t.Fatalf("expected delivery to continue after a panic, got %d", sink.delivered.Load())
	}
	if !strings.Contains(buf.String(), "audit sink panicked") {
		t.Fatalf("expected panic to be logged, got %s", buf.String())
	}
}

func TestJSONWriterSinkWritesLines(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONWriterSink(&buf)

	sink.Emit(context.Background(), Event{EventType: "verify_otp_success", AccountID: "acc-1", Success: true})
	sink.Emit(context.Background(), Event{EventType: "login_failure", Error: "invalid_credentials"})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), buf.String())
	}
	var first Event
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if first.AccountID != "acc-1" || !first.Success {
		t.Fatalf("unexpected event: %+v", first)
	}
}

func TestSlogSinkLevels(t *testing.T) {
	var buf bytes.Buffer
	sink := NewSlogSink(slog.New(slog.NewJSONHandler(&buf, nil)))

	sink.Emit(context.Background(), Event{EventType: "login_failure", Error: "invalid_credentials", Metadata: map[string]string{"email": "a@x.com"}})

	out := buf.String()
	for _, want := range []string{`"level":"WARN"`, `"event_type":"login_failure"`, `"email":"a@x.com"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %s in %s", want, out)
		}
	}
}

func TestChannelSink(t *testing.T) {
	sink := NewChannelSink(1)
	sink.Emit(context.Background(), Event{EventType: "x"})

	select {
	case ev := <-sink.Events():
		if ev.EventType != "x" {
			t.Fatalf("unexpected event %+v", ev)
		}
	default:
		t.Fatal("expected buffered event")
	}
}
