package alerts

import (
	"sort"
	"sync"
)

// Dismissals is the presentation-side set of hidden alert IDs. The engine
// never sees it; dismissing an ID only filters display, and any alert whose
// ID was not dismissed shows up even if a similar one was.
type Dismissals struct {
	mu  sync.RWMutex
	ids map[string]struct{}
}

// NewDismissals returns an empty set.
func NewDismissals() *Dismissals {
	return &Dismissals{ids: make(map[string]struct{})}
}

// Dismiss hides id.
func (d *Dismissals) Dismiss(id string) {
	d.mu.Lock()
	d.ids[id] = struct{}{}
	d.mu.Unlock()
}

// Restore un-hides id.
func (d *Dismissals) Restore(id string) {
	d.mu.Lock()
	delete(d.ids, id)
	d.mu.Unlock()
}

// Dismissed reports whether id is hidden.
func (d *Dismissals) Dismissed(id string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.ids[id]
	return ok
}

// IDs lists the hidden IDs in sorted order.
func (d *Dismissals) IDs() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]string, 0, len(d.ids))
	for id := range d.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Visible returns the alerts whose IDs are not dismissed.
func (d *Dismissals) Visible(alerts []Alert) []Alert {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Alert, 0, len(alerts))
	for _, a := range alerts {
		if _, hidden := d.ids[a.ID]; !hidden {
			out = append(out, a)
		}
	}
	return out
}
