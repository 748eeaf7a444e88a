package monitor

import (
	"testing"
	"time"

	"fleetwatch/internal/kvstore"
)

func newTestTracker(t *testing.T, now *time.Time) (*DailyTracker, *kvstore.Memory) {
	t.Helper()
	store := kvstore.NewMemory()
	tr := NewDailyTracker(store, LoadLocation(DefaultTimezone))
	tr.SetClock(func() time.Time { return *now })
	return tr, store
}

func sessionsWith(input, output, total int64) []Session {
	return []Session{{Key: "agent:a:main", InputTokens: input, OutputTokens: output, TotalTokens: total}}
}

func TestDailyTokens_Lifecycle(t *testing.T) {
	// 10:00 in Edmonton on 2025-03-01.
	now := time.Date(2025, 3, 1, 17, 0, 0, 0, time.UTC)
	tr, store := newTestTracker(t, &now)

	first := tr.DailyTokens(sessionsWith(100, 50, 150))
	if first.TokenTotals != (TokenTotals{Input: 100, Output: 50, Total: 150}) {
		t.Errorf("first observation = %+v, want current totals", first.TokenTotals)
	}
	if first.ResetDate != "2025-03-01" {
		t.Errorf("ResetDate = %q", first.ResetDate)
	}
	if raw, ok := store.Get(DailySnapshotKey); !ok || raw != `{"date":"2025-03-01","input":100,"output":50,"total":150}` {
		t.Errorf("unexpected persisted baseline %q", raw)
	}

	now = now.Add(2 * time.Hour)
	second := tr.DailyTokens(sessionsWith(130, 60, 190))
	if second.TokenTotals != (TokenTotals{Input: 30, Output: 10, Total: 40}) {
		t.Errorf("same-day delta = %+v, want {30 10 40}", second.TokenTotals)
	}

	// Next day, counters were reset upstream.
	now = now.Add(24 * time.Hour)
	third := tr.DailyTokens(sessionsWith(10, 5, 15))
	if third.TokenTotals != (TokenTotals{}) {
		t.Errorf("rollover = %+v, want zeros", third.TokenTotals)
	}
	if third.ResetDate != "2025-03-02" {
		t.Errorf("ResetDate after rollover = %q", third.ResetDate)
	}
	if raw, _ := store.Get(DailySnapshotKey); raw != `{"date":"2025-03-02","input":10,"output":5,"total":15}` {
		t.Errorf("expected rebased snapshot, got %q", raw)
	}
}

func TestDailyTokens_Idempotent(t *testing.T) {
	now := time.Date(2025, 3, 1, 17, 0, 0, 0, time.UTC)
	tr, _ := newTestTracker(t, &now)

	tr.DailyTokens(sessionsWith(100, 50, 150))
	a := tr.DailyTokens(sessionsWith(130, 60, 190))
	b := tr.DailyTokens(sessionsWith(130, 60, 190))
	if a != b {
		t.Errorf("repeated calls differ: %+v vs %+v", a, b)
	}
}

func TestDailyTokens_ClampsCounterReset(t *testing.T) {
	now := time.Date(2025, 3, 1, 17, 0, 0, 0, time.UTC)
	tr, _ := newTestTracker(t, &now)

	tr.DailyTokens(sessionsWith(100, 50, 150))
	got := tr.DailyTokens(sessionsWith(20, 60, 80))
	if got.TokenTotals != (TokenTotals{Input: 0, Output: 10, Total: 0}) {
		t.Errorf("expected clamped delta, got %+v", got.TokenTotals)
	}
}

func TestDailyTokens_ResetsAtReferenceMidnight(t *testing.T) {
	// 23:30 Edmonton (MST, UTC-7) on 2025-03-01 is already 2025-03-02 in UTC.
	now := time.Date(2025, 3, 2, 6, 30, 0, 0, time.UTC)
	tr, _ := newTestTracker(t, &now)

	if day := tr.today(); day != "2025-03-01" {
		t.Fatalf("today() = %q, want reference-zone date 2025-03-01", day)
	}
	tr.DailyTokens(sessionsWith(100, 0, 100))

	now = now.Add(time.Hour) // 00:30 in Edmonton
	if got := tr.DailyTokens(sessionsWith(120, 0, 120)); got.TokenTotals != (TokenTotals{}) {
		t.Errorf("expected rollover at Edmonton midnight, got %+v", got.TokenTotals)
	}
}

func TestDailyTokens_UnreadableSnapshot(t *testing.T) {
	now := time.Date(2025, 3, 1, 17, 0, 0, 0, time.UTC)
	tr, store := newTestTracker(t, &now)
	store.Set(DailySnapshotKey, "{not json")

	got := tr.DailyTokens(sessionsWith(7, 8, 15))
	if got.TokenTotals != (TokenTotals{Input: 7, Output: 8, Total: 15}) {
		t.Errorf("expected fresh baseline behaviour, got %+v", got.TokenTotals)
	}
}

// failingStore never persists anything.
type failingStore struct{}

func (failingStore) Get(string) (string, bool) { return "", false }
func (failingStore) Set(string, string)        {}

func TestDailyTokens_StorageUnavailable(t *testing.T) {
	tr := NewDailyTracker(failingStore{}, time.UTC)
	got := tr.DailyTokens(sessionsWith(7, 8, 15))
	if got.TokenTotals != (TokenTotals{Input: 7, Output: 8, Total: 15}) {
		t.Errorf("expected cumulative totals when storage is down, got %+v", got.TokenTotals)
	}
}

func TestLoadLocationFallsBackToUTC(t *testing.T) {
	if loc := LoadLocation("Not/AZone"); loc != time.UTC {
		t.Errorf("expected UTC fallback, got %v", loc)
	}
}
