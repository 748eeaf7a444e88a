package monitor

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	_ "time/tzdata" // reference timezone must resolve on hosts without zoneinfo
)

// DailySnapshotKey is the storage key of the persisted baseline.
const DailySnapshotKey = "monitor-daily-token-snapshot"

// DefaultTimezone is where the daily counters reset at midnight, whatever
// the viewer's own timezone.
const DefaultTimezone = "America/Edmonton"

// Store is a best-effort key-value primitive. Set failures are swallowed by
// the implementation.
type Store interface {
	Get(key string) (string, bool)
	Set(key, value string)
}

// DailySnapshot is the cumulative-counter baseline recorded at the last
// midnight rollover.
type DailySnapshot struct {
	Date   string `json:"date"`
	Input  int64  `json:"input"`
	Output int64  `json:"output"`
	Total  int64  `json:"total"`
}

// DailyUsage is token usage since local midnight.
type DailyUsage struct {
	TokenTotals
	ResetDate string `json:"resetDate"`
}

// DailyTracker derives "usage since midnight" from cumulative counters using
// one persisted baseline. Only the latest day's baseline is kept.
type DailyTracker struct {
	store Store
	loc   *time.Location
	now   func() time.Time

	mu sync.Mutex
}

// NewDailyTracker creates a tracker resetting at midnight in loc.
// A nil loc uses DefaultTimezone.
func NewDailyTracker(store Store, loc *time.Location) *DailyTracker {
	if loc == nil {
		loc = LoadLocation(DefaultTimezone)
	}
	return &DailyTracker{store: store, loc: loc, now: time.Now}
}

// SetClock replaces the wall clock. Intended for tests.
func (t *DailyTracker) SetClock(now func() time.Time) {
	t.mu.Lock()
	t.now = now
	t.mu.Unlock()
}

func (t *DailyTracker) today() string {
	return t.now().In(t.loc).Format("2006-01-02")
}

// DailyTokens returns today's usage for sessions. The baseline is rewritten
// only when the calendar day changes (or none exists yet), so repeated calls
// within a day are idempotent.
//
// A mid-day counter reset makes current drop below the baseline; the
// difference is clamped to zero and the usage before the reset is lost.
func (t *DailyTracker) DailyTokens(sessions []Session) DailyUsage {
	current := AggregateTokens(sessions)

	t.mu.Lock()
	defer t.mu.Unlock()

	today := t.today()
	snap, ok := t.load()

	if !ok || snap.Date != today {
		t.save(DailySnapshot{
			Date:   today,
			Input:  current.Input,
			Output: current.Output,
			Total:  current.Total,
		})
		if ok {
			// New day: nothing accrued past the fresh baseline yet.
			return DailyUsage{ResetDate: today}
		}
		return DailyUsage{TokenTotals: current, ResetDate: today}
	}

	return DailyUsage{
		TokenTotals: TokenTotals{
			Input:  max(0, current.Input-snap.Input),
			Output: max(0, current.Output-snap.Output),
			Total:  max(0, current.Total-snap.Total),
		},
		ResetDate: today,
	}
}

func (t *DailyTracker) load() (DailySnapshot, bool) {
	raw, ok := t.store.Get(DailySnapshotKey)
	if !ok || raw == "" {
		return DailySnapshot{}, false
	}
	var snap DailySnapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		log.Printf("[Daily] Discarding unreadable snapshot: %v", err)
		return DailySnapshot{}, false
	}
	return snap, true
}

func (t *DailyTracker) save(snap DailySnapshot) {
	data, err := json.Marshal(snap)
	if err != nil {
		return
	}
	t.store.Set(DailySnapshotKey, string(data))
}

// LoadLocation resolves a timezone name, falling back to UTC.
func LoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		log.Printf("[Daily] Unknown timezone %q, using UTC: %v", name, err)
		return time.UTC
	}
	return loc
}
