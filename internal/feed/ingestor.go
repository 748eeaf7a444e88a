// Package feed maintains the live event feed: a reconnecting stream
// consumer that normalizes upstream messages into a bounded history.
package feed

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"time"
)

// DefaultReconnectDelay is the wait between a stream error and the retry.
const DefaultReconnectDelay = 5 * time.Second

// State is the connection state of an Ingestor.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateOpen
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// Timer is a pending scheduled callback.
type Timer interface {
	Stop() bool
}

// Scheduler arms f to run once after d.
type Scheduler func(d time.Duration, f func()) Timer

func afterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Options configures an Ingestor. Zero values take defaults.
type Options struct {
	ReconnectDelay time.Duration
	Capacity       int
	Schedule       Scheduler
	Now            func() time.Time
}

// Ingestor owns a single streaming connection, its reconnect timer and the
// event buffer. Only the ingestor mutates the connection state; consumers
// read events and may clear the buffer.
type Ingestor struct {
	source   Source
	delay    time.Duration
	schedule Scheduler
	now      func() time.Time
	buf      *Buffer

	mu      sync.Mutex
	state   State
	gen     uint64 // identifies the current connection attempt
	cancel  context.CancelFunc
	body    io.ReadCloser
	retry   Timer
	seq     uint64
	stopped bool
}

// NewIngestor creates a disconnected ingestor reading from src.
func NewIngestor(src Source, opts Options) *Ingestor {
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = DefaultReconnectDelay
	}
	if opts.Schedule == nil {
		opts.Schedule = afterFunc
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Ingestor{
		source:   src,
		delay:    opts.ReconnectDelay,
		schedule: opts.Schedule,
		now:      opts.Now,
		buf:      NewBuffer(opts.Capacity),
	}
}

// Connect starts a connection attempt. It is a no-op while an attempt is
// in flight, while the stream is open, or after Stop.
func (in *Ingestor) Connect() {
	in.mu.Lock()
	if in.stopped || in.state != StateDisconnected {
		in.mu.Unlock()
		return
	}
	in.state = StateConnecting
	in.gen++
	gen := in.gen
	ctx, cancel := context.WithCancel(context.Background())
	in.cancel = cancel
	in.mu.Unlock()

	go in.run(ctx, gen)
}

func (in *Ingestor) run(ctx context.Context, gen uint64) {
	body, err := in.source.Open(ctx)
	if err != nil {
		in.fail(gen, err)
		return
	}
	if !in.opened(gen, body) {
		body.Close()
		return
	}

	err = in.read(body)
	if err == nil {
		err = io.EOF
	}
	in.fail(gen, err)
}

// opened moves a live attempt to the open state and cancels any pending
// retry. It reports false if the attempt was superseded or stopped.
func (in *Ingestor) opened(gen uint64, body io.ReadCloser) bool {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.stopped || gen != in.gen {
		return false
	}
	in.state = StateOpen
	in.body = body
	if in.retry != nil {
		in.retry.Stop()
		in.retry = nil
	}
	log.Printf("[Feed] Stream connected")
	return true
}

// fail closes the stream, clears it and arms a single reconnect.
func (in *Ingestor) fail(gen uint64, err error) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.stopped || gen != in.gen {
		return
	}

	in.state = StateDisconnected
	if in.body != nil {
		in.body.Close()
		in.body = nil
	}
	if in.cancel != nil {
		in.cancel()
		in.cancel = nil
	}

	if errors.Is(err, io.EOF) {
		log.Printf("[Feed] Stream closed, retrying in %s", in.delay)
	} else {
		log.Printf("[Feed] Stream error, retrying in %s: %v", in.delay, err)
	}

	if in.retry == nil {
		in.retry = in.schedule(in.delay, in.reconnect)
	}
}

func (in *Ingestor) reconnect() {
	in.mu.Lock()
	in.retry = nil
	in.mu.Unlock()
	in.Connect()
}

// read consumes SSE frames until the body fails. Data lines are joined
// per frame and dispatched on the blank line that ends it.
func (in *Ingestor) read(body io.Reader) error {
	r := bufio.NewReader(body)
	var data []string

	for {
		line, err := r.ReadString('\n')
		if line != "" || err == nil {
			line = strings.TrimRight(line, "\r\n")
			switch {
			case line == "":
				if len(data) > 0 {
					in.Handle(strings.Join(data, "\n"))
					data = data[:0]
				}
			case strings.HasPrefix(line, ":"):
				// comment / heartbeat
			case strings.HasPrefix(line, "data:"):
				data = append(data, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
			}
		}
		if err != nil {
			if len(data) > 0 {
				in.Handle(strings.Join(data, "\n"))
			}
			if errors.Is(err, io.EOF) {
				return io.EOF
			}
			return fmt.Errorf("read stream: %w", err)
		}
	}
}

// Handle ingests one message body. Heartbeats, malformed JSON and
// untyped messages are ignored.
func (in *Ingestor) Handle(data string) {
	if strings.HasPrefix(data, ":") {
		return
	}
	evt, ok := Normalize([]byte(data))
	if !ok {
		return
	}

	in.mu.Lock()
	in.seq++
	evt.ID = fmt.Sprintf("evt-%d", in.seq)
	in.mu.Unlock()
	evt.Timestamp = in.now().UnixMilli()

	in.buf.Push(evt)
}

// Events returns the buffered events, newest first.
func (in *Ingestor) Events() []Event {
	return in.buf.Events()
}

// Clear empties the buffer. The connection is not affected.
func (in *Ingestor) Clear() {
	in.buf.Clear()
}

// State reports the current connection state.
func (in *Ingestor) State() State {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.state
}

// Connected reports whether the stream is open.
func (in *Ingestor) Connected() bool {
	return in.State() == StateOpen
}

// Stop tears down the connection and cancels any pending reconnect.
// A stopped ingestor cannot be restarted.
func (in *Ingestor) Stop() {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.stopped = true
	in.state = StateDisconnected
	if in.retry != nil {
		in.retry.Stop()
		in.retry = nil
	}
	if in.cancel != nil {
		in.cancel()
		in.cancel = nil
	}
	if in.body != nil {
		in.body.Close()
		in.body = nil
	}
}
