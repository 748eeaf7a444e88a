// Package notify announces alert transitions to Shoutrrr targets.
package notify

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/nicholas-fedor/shoutrrr"

	"fleetwatch/internal/alerts"
)

// historySize is the number of dispatch records kept.
const historySize = 100

// Sender abstracts message dispatch so the dispatcher can be tested
// without hitting real services.
type Sender interface {
	Send(shoutrrrURL, message string) error
}

// ShoutrrrSender dispatches via the Shoutrrr library.
type ShoutrrrSender struct{}

func (ShoutrrrSender) Send(url, message string) error {
	return shoutrrr.Send(url, message)
}

// Dispatcher watches successive alert sets and notifies targets when an
// alert ID appears (and, if asked, when it clears). Alerts that persist
// across polls are not re-sent.
type Dispatcher struct {
	targets []Target
	sender  Sender
	now     func() time.Time

	queue  chan []alerts.Alert
	stopCh chan struct{}
	wg     sync.WaitGroup

	mu        sync.Mutex
	active    map[string]alerts.Alert // alert set from the previous poll
	cooldowns map[string]time.Time    // last send per target:alertID
	history   []Record
}

// NewDispatcher creates a dispatcher for targets. A nil sender uses Shoutrrr.
func NewDispatcher(targets []Target, sender Sender) *Dispatcher {
	if sender == nil {
		sender = ShoutrrrSender{}
	}
	return &Dispatcher{
		targets:   targets,
		sender:    sender,
		now:       time.Now,
		queue:     make(chan []alerts.Alert, 16),
		stopCh:    make(chan struct{}),
		active:    make(map[string]alerts.Alert),
		cooldowns: make(map[string]time.Time),
	}
}

// Start begins processing observed alert sets in the background.
func (d *Dispatcher) Start() {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for {
			select {
			case set := <-d.queue:
				d.handle(set)
			case <-d.stopCh:
				for {
					select {
					case set := <-d.queue:
						d.handle(set)
					default:
						return
					}
				}
			}
		}
	}()
}

// Stop drains queued alert sets and waits for the worker.
func (d *Dispatcher) Stop() {
	close(d.stopCh)
	d.wg.Wait()
}

// Observe queues the current alert set. Non-blocking: if the worker is
// behind, the set is dropped and the next poll supersedes it.
func (d *Dispatcher) Observe(current []alerts.Alert) {
	set := make([]alerts.Alert, len(current))
	copy(set, current)
	select {
	case d.queue <- set:
	default:
		log.Printf("[Notify] Queue full, dropping alert set")
	}
}

// handle diffs current against the previous set and dispatches.
func (d *Dispatcher) handle(current []alerts.Alert) {
	d.mu.Lock()
	next := make(map[string]alerts.Alert, len(current)+len(d.active))
	if offline(current) {
		// The offline set hides every other rule; standing alerts are unknown,
		// not cleared.
		for id, a := range d.active {
			next[id] = a
		}
	}
	var raised []alerts.Alert
	for _, a := range current {
		next[a.ID] = a
		if _, seen := d.active[a.ID]; !seen {
			raised = append(raised, a)
		}
	}
	var cleared []alerts.Alert
	for id, a := range d.active {
		if _, still := next[id]; !still {
			cleared = append(cleared, a)
		}
	}
	d.active = next
	d.mu.Unlock()

	for _, a := range raised {
		for _, t := range d.targets {
			if d.allowed(t, a) {
				d.dispatch(t, a, false)
			}
		}
	}
	for _, a := range cleared {
		for _, t := range d.targets {
			if t.Resolved && a.Severity >= t.minSeverity() && !d.inQuietHours(t, a) {
				d.dispatch(t, a, true)
			}
		}
	}
}

func offline(set []alerts.Alert) bool {
	for _, a := range set {
		if a.ID == alerts.IDGatewayOffline {
			return true
		}
	}
	return false
}

// allowed applies the severity filter, quiet hours and cooldown.
func (d *Dispatcher) allowed(t Target, a alerts.Alert) bool {
	if a.Severity < t.minSeverity() {
		return false
	}
	if d.inQuietHours(t, a) {
		return false
	}
	if t.Cooldown <= 0 {
		return true
	}

	key := t.Name + ":" + a.ID
	now := d.now()
	d.mu.Lock()
	defer d.mu.Unlock()
	if last, ok := d.cooldowns[key]; ok && now.Sub(last) < t.Cooldown {
		return false
	}
	d.cooldowns[key] = now
	return true
}

// inQuietHours reports whether a should be suppressed for t.
// Critical alerts are never suppressed by quiet hours.
func (d *Dispatcher) inQuietHours(t Target, a alerts.Alert) bool {
	if a.Severity == alerts.SeverityCritical || !t.hasQuietHours() {
		return false
	}

	now := d.now().UTC()
	nowMinutes := now.Hour()*60 + now.Minute()
	start := parseHHMM(t.QuietStart)
	end := parseHHMM(t.QuietEnd)

	if start < end {
		return nowMinutes >= start && nowMinutes < end
	}
	// Wraps midnight, e.g. 22:00–07:00
	return nowMinutes >= start || nowMinutes < end
}

func (d *Dispatcher) dispatch(t Target, a alerts.Alert, resolved bool) {
	u, err := t.ShoutrrrURL()
	if err != nil {
		log.Printf("[Notify] %v", err)
		return
	}

	msg := formatMessage(a, resolved)
	rec := Record{Target: t.Name, AlertID: a.ID, Message: msg, Resolved: resolved, SentAt: d.now().UTC()}
	if err := d.sender.Send(u, msg); err != nil {
		rec.Status = "failed"
		rec.Error = err.Error()
		log.Printf("[Notify] Send to %s failed: %v", t.Name, err)
	} else {
		rec.Status = "sent"
	}

	d.mu.Lock()
	d.history = append(d.history, rec)
	if len(d.history) > historySize {
		d.history = d.history[len(d.history)-historySize:]
	}
	d.mu.Unlock()
}

// History returns recent dispatch records, newest first.
func (d *Dispatcher) History() []Record {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Record, len(d.history))
	for i, r := range d.history {
		out[len(d.history)-1-i] = r
	}
	return out
}

// Targets returns the configured targets.
func (d *Dispatcher) Targets() []Target {
	return d.targets
}

func formatMessage(a alerts.Alert, resolved bool) string {
	if resolved {
		return fmt.Sprintf("[resolved] %s", a.Message)
	}
	return fmt.Sprintf("[%s] %s", a.Severity, a.Message)
}

// parseHHMM converts "HH:MM" to minutes since midnight.
func parseHHMM(s string) int {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0
	}
	return t.Hour()*60 + t.Minute()
}
