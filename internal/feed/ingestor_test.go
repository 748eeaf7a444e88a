package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

// fakeSource hands out streams from open, counting attempts.
type fakeSource struct {
	mu    sync.Mutex
	opens int
	open  func(ctx context.Context) (io.ReadCloser, error)
}

func (s *fakeSource) Open(ctx context.Context) (io.ReadCloser, error) {
	s.mu.Lock()
	s.opens++
	open := s.open
	s.mu.Unlock()
	return open(ctx)
}

func (s *fakeSource) Opens() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opens
}

// fakeScheduler records armed timers instead of running them.
type fakeScheduler struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

type fakeTimer struct {
	d       time.Duration
	f       func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

func (s *fakeScheduler) Schedule(d time.Duration, f func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &fakeTimer{d: d, f: f}
	s.timers = append(s.timers, t)
	return t
}

func (s *fakeScheduler) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

func (s *fakeScheduler) Fire(i int) {
	s.mu.Lock()
	t := s.timers[i]
	s.mu.Unlock()
	t.f()
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func failingSource() *fakeSource {
	return &fakeSource{open: func(context.Context) (io.ReadCloser, error) {
		return nil, errors.New("connection refused")
	}}
}

func TestHeartbeatProducesNoEvent(t *testing.T) {
	in := NewIngestor(failingSource(), Options{})
	in.Handle(": keepalive")
	in.Handle(`{"payload":{}}`)
	if n := len(in.Events()); n != 0 {
		t.Errorf("expected no events, got %d", n)
	}
}

func TestMalformedJSONDropped(t *testing.T) {
	in := NewIngestor(failingSource(), Options{})
	in.Handle("{not json")
	in.Handle(`"just a string"`)
	in.Handle(`{"type":"agent_spawned","payload":{"agentName":"scout"}}`)

	evts := in.Events()
	if len(evts) != 1 {
		t.Fatalf("expected 1 event, got %d", len(evts))
	}
	if evts[0].ID != "evt-1" {
		t.Errorf("id = %s, want evt-1", evts[0].ID)
	}
}

func TestBufferKeepsMostRecentFifty(t *testing.T) {
	in := NewIngestor(failingSource(), Options{})
	for i := 1; i <= 60; i++ {
		in.Handle(fmt.Sprintf(`{"type":"activity_logged","payload":{"message":"m%d"}}`, i))
	}

	evts := in.Events()
	if len(evts) != DefaultCapacity {
		t.Fatalf("expected %d events, got %d", DefaultCapacity, len(evts))
	}
	if evts[0].Summary != "m60" || evts[0].ID != "evt-60" {
		t.Errorf("newest = %+v", evts[0])
	}
	if last := evts[len(evts)-1]; last.Summary != "m11" || last.ID != "evt-11" {
		t.Errorf("oldest = %+v", last)
	}
}

func TestEventTimestampIsReceiptTime(t *testing.T) {
	at := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	in := NewIngestor(failingSource(), Options{Now: func() time.Time { return at }})
	in.Handle(`{"type":"task_created","payload":{"title":"x"}}`)
	if got := in.Events()[0].Timestamp; got != at.UnixMilli() {
		t.Errorf("timestamp = %d", got)
	}
}

func TestErrorSchedulesExactlyOneReconnect(t *testing.T) {
	src := failingSource()
	sched := &fakeScheduler{}
	in := NewIngestor(src, Options{Schedule: sched.Schedule})
	defer in.Stop()

	in.Connect()
	waitFor(t, "retry timer", func() bool { return sched.Count() == 1 })

	time.Sleep(50 * time.Millisecond)
	if got := src.Opens(); got != 1 {
		t.Errorf("expected 1 open before the timer fires, got %d", got)
	}
	if sched.Count() != 1 {
		t.Errorf("expected a single armed timer, got %d", sched.Count())
	}
	if d := sched.timers[0].d; d != DefaultReconnectDelay {
		t.Errorf("delay = %s, want %s", d, DefaultReconnectDelay)
	}
	if in.Connected() {
		t.Error("should not be connected")
	}

	sched.Fire(0)
	waitFor(t, "second attempt", func() bool { return src.Opens() == 2 })
	waitFor(t, "second retry timer", func() bool { return sched.Count() == 2 })
}

func TestDuplicateConnectSuppressed(t *testing.T) {
	release := make(chan struct{})
	src := &fakeSource{open: func(ctx context.Context) (io.ReadCloser, error) {
		select {
		case <-release:
		case <-ctx.Done():
		}
		return nil, errors.New("gave up")
	}}
	sched := &fakeScheduler{}
	in := NewIngestor(src, Options{Schedule: sched.Schedule})
	defer in.Stop()

	in.Connect()
	in.Connect()
	in.Connect()
	if in.State() != StateConnecting {
		t.Errorf("state = %s, want connecting", in.State())
	}

	close(release)
	waitFor(t, "retry timer", func() bool { return sched.Count() == 1 })
	if got := src.Opens(); got != 1 {
		t.Errorf("expected 1 open, got %d", got)
	}
}

func TestStreamDeliversAndReconnects(t *testing.T) {
	pr, pw := io.Pipe()
	first := true
	src := &fakeSource{}
	src.open = func(context.Context) (io.ReadCloser, error) {
		if first {
			first = false
			return pr, nil
		}
		return nil, errors.New("down")
	}
	sched := &fakeScheduler{}
	in := NewIngestor(src, Options{Schedule: sched.Schedule})
	defer in.Stop()

	in.Connect()
	waitFor(t, "open", in.Connected)

	fmt.Fprint(pw, ": keepalive\n\n")
	fmt.Fprint(pw, "event: message\ndata: {\"type\":\"agent_completed\",\n")
	fmt.Fprint(pw, "data: \"payload\":{\"agentName\":\"scout\"}}\n\n")
	fmt.Fprint(pw, "data: {\"type\":\"deliverable_added\",\"payload\":{}}\n\n")
	waitFor(t, "two events", func() bool { return len(in.Events()) == 2 })

	evts := in.Events()
	if evts[0].Summary != "Deliverable: file" {
		t.Errorf("newest summary = %q", evts[0].Summary)
	}
	if evts[1].Summary != "Agent completed: scout" || evts[1].AgentName != "scout" {
		t.Errorf("older event = %+v", evts[1])
	}

	in.Clear()
	if len(in.Events()) != 0 {
		t.Error("Clear should empty the buffer")
	}
	if !in.Connected() {
		t.Error("Clear must not affect the connection")
	}

	pw.Close()
	waitFor(t, "disconnect", func() bool { return !in.Connected() })
	waitFor(t, "retry timer", func() bool { return sched.Count() == 1 })
}

func TestStopCancelsPendingReconnect(t *testing.T) {
	src := failingSource()
	sched := &fakeScheduler{}
	in := NewIngestor(src, Options{Schedule: sched.Schedule})

	in.Connect()
	waitFor(t, "retry timer", func() bool { return sched.Count() == 1 })

	in.Stop()
	if !sched.timers[0].stopped {
		t.Error("Stop should cancel the retry timer")
	}

	sched.Fire(0)
	time.Sleep(20 * time.Millisecond)
	if got := src.Opens(); got != 1 {
		t.Errorf("stopped ingestor reconnected: %d opens", got)
	}
}

func TestHTTPSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept") != "text/event-stream" {
			t.Errorf("Accept = %q", r.Header.Get("Accept"))
		}
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"type\":\"task_created\",\"payload\":{\"title\":\"Write docs\"}}\n\n")
	}))
	defer srv.Close()

	sched := &fakeScheduler{}
	in := NewIngestor(&HTTPSource{URL: srv.URL}, Options{Schedule: sched.Schedule})
	defer in.Stop()
	in.Connect()

	waitFor(t, "event", func() bool { return len(in.Events()) == 1 })
	if got := in.Events()[0].Summary; got != "Task created: Write docs" {
		t.Errorf("summary = %q", got)
	}
}

func TestHTTPSourceRejectsNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	src := &HTTPSource{URL: srv.URL}
	if _, err := src.Open(context.Background()); err == nil {
		t.Error("expected error for 503")
	}
}
