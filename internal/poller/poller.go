// Package poller drives the periodic gateway poll and keeps the derived
// monitor view.
package poller

import (
	"context"
	"log"
	"sync"
	"time"

	"fleetwatch/internal/alerts"
	"fleetwatch/internal/monitor"
)

// DefaultInterval is the time between polls.
const DefaultInterval = 10 * time.Second

// Fetcher returns one gateway snapshot. It reports failure through the
// snapshot's Connected and Error fields rather than an error value.
type Fetcher interface {
	Fetch(ctx context.Context) monitor.Snapshot
}

// View is everything derived from the latest poll.
type View struct {
	Snapshot     monitor.Snapshot               `json:"snapshot"`
	Tree         []monitor.AgentTree            `json:"tree"`
	Totals       monitor.TokenTotals            `json:"totals"`
	PerAgent     map[string]monitor.TokenTotals `json:"perAgent"`
	PerAgentCost map[string]float64             `json:"perAgentCost"`
	Daily        monitor.DailyUsage             `json:"daily"`
	Cost         monitor.Cost                   `json:"cost"`
	CronJobs     []monitor.CronJob              `json:"cronJobs"`
	Alerts       []alerts.Alert                 `json:"alerts"`
	UpdatedAt    time.Time                      `json:"updatedAt"`
}

// Poller fetches snapshots on an interval and recomputes the view.
type Poller struct {
	fetcher  Fetcher
	tracker  *monitor.DailyTracker
	engine   *alerts.Engine
	pricing  monitor.Pricing
	interval time.Duration
	now      func() time.Time

	mu        sync.RWMutex
	view      View
	polled    bool
	listeners []func(View)
}

// New creates a poller. A zero interval uses DefaultInterval.
func New(fetcher Fetcher, tracker *monitor.DailyTracker, engine *alerts.Engine, pricing monitor.Pricing, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Poller{
		fetcher:  fetcher,
		tracker:  tracker,
		engine:   engine,
		pricing:  pricing,
		interval: interval,
		now:      time.Now,
		view:     emptyView(),
	}
}

func emptyView() View {
	return View{
		Snapshot: monitor.Snapshot{
			Sessions: []monitor.Session{},
			Agents:   []monitor.Agent{},
			CronJobs: []monitor.CronJob{},
		},
		Tree:         []monitor.AgentTree{},
		PerAgent:     map[string]monitor.TokenTotals{},
		PerAgentCost: map[string]float64{},
		CronJobs:     []monitor.CronJob{},
		Alerts:       []alerts.Alert{},
	}
}

// OnUpdate registers fn to be called with every new view.
func (p *Poller) OnUpdate(fn func(View)) {
	p.mu.Lock()
	p.listeners = append(p.listeners, fn)
	p.mu.Unlock()
}

// View returns the latest view and whether any poll has completed.
func (p *Poller) View() (View, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.view, p.polled
}

// Run polls immediately and then every interval until ctx is done.
func (p *Poller) Run(ctx context.Context) {
	log.Printf("[Poller] Started (interval: %s)", p.interval)
	p.Poll(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("[Poller] Stopped")
			return
		case <-ticker.C:
			p.Poll(ctx)
		}
	}
}

// Poll performs one fetch and recomputation and returns the new view.
func (p *Poller) Poll(ctx context.Context) View {
	snap := p.fetcher.Fetch(ctx)
	now := p.now()

	p.mu.Lock()
	var view View
	if snap.Connected {
		view = p.derive(snap, now)
	} else {
		view = p.degrade(snap)
		log.Printf("[Poller] Gateway unavailable: %s", snap.Error)
	}
	view.Alerts = p.engine.Compute(view.Snapshot)
	alerts.Sort(view.Alerts)
	view.UpdatedAt = now

	p.view = view
	p.polled = true
	listeners := make([]func(View), len(p.listeners))
	copy(listeners, p.listeners)
	p.mu.Unlock()

	for _, fn := range listeners {
		fn(view)
	}
	return view
}

// derive computes a fresh view from a connected snapshot.
func (p *Poller) derive(snap monitor.Snapshot, now time.Time) View {
	tree := monitor.BuildAgentTree(snap.Sessions, snap.Agents, now)

	perAgentCost := make(map[string]float64, len(tree))
	for _, a := range tree {
		perAgentCost[a.Name] = p.pricing.AgentCost(a.AllSessions())
	}

	return View{
		Snapshot:     snap,
		Tree:         tree,
		Totals:       monitor.AggregateTokens(snap.Sessions),
		PerAgent:     monitor.TokensByAgent(snap.Sessions),
		PerAgentCost: perAgentCost,
		Daily:        p.tracker.DailyTokens(snap.Sessions),
		Cost:         p.pricing.Cost(snap.Sessions),
		CronJobs:     monitor.SortCronJobs(snap.CronJobs),
	}
}

// degrade keeps the last-known-good derived data and marks the snapshot
// disconnected. Must be called with p.mu held.
func (p *Poller) degrade(snap monitor.Snapshot) View {
	view := p.view
	view.Snapshot.Connected = false
	view.Snapshot.Error = snap.Error
	view.Snapshot.Timestamp = snap.Timestamp
	return view
}
