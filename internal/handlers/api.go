package handlers

import (
	"net/http"
	"time"

	"fleetwatch/internal/alerts"
	"fleetwatch/internal/feed"
	"fleetwatch/internal/monitor"
	"fleetwatch/internal/notify"
	"fleetwatch/internal/poller"
)

// ViewSource provides the latest derived monitor view.
type ViewSource interface {
	View() (poller.View, bool)
}

// FeedSource is the live event feed.
type FeedSource interface {
	Events() []feed.Event
	Connected() bool
	Clear()
}

// HistorySource reports recent notification dispatches.
type HistorySource interface {
	History() []notify.Record
}

// ClientCounter reports connected stream subscribers.
type ClientCounter interface {
	Clients() int
}

// API wires the monitor components to HTTP routes.
type API struct {
	Views      ViewSource
	Dismissals *alerts.Dismissals
	Feed       FeedSource
	Stream     http.Handler
	Streams    ClientCounter // optional
	Notifier   HistorySource // optional
	Version    string
	Now        func() time.Time
}

// Register adds every route to mux.
func (a *API) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", a.Health)
	mux.HandleFunc("GET /api/monitor", a.GetMonitor)
	mux.HandleFunc("GET /api/monitor/alerts", a.GetAlerts)
	mux.HandleFunc("POST /api/monitor/alerts/{id}/dismiss", a.DismissAlert)
	mux.HandleFunc("DELETE /api/monitor/alerts/{id}/dismiss", a.RestoreAlert)
	mux.HandleFunc("GET /api/monitor/feed", a.GetFeed)
	mux.HandleFunc("DELETE /api/monitor/feed", a.ClearFeed)
	mux.HandleFunc("GET /api/notify/history", a.GetNotifyHistory)
	if a.Stream != nil {
		mux.Handle("GET /api/events/stream", a.Stream)
	}
}

func (a *API) now() time.Time {
	if a.Now == nil {
		return time.Now()
	}
	return a.Now()
}

// Health reports liveness and whether the gateway answered the last poll.
// GET /health
func (a *API) Health(w http.ResponseWriter, r *http.Request) {
	view, polled := a.Views.View()
	streamClients := 0
	if a.Streams != nil {
		streamClients = a.Streams.Clients()
	}
	JSONResponse(w, map[string]any{
		"status":           "ok",
		"version":          a.Version,
		"polled":           polled,
		"gatewayConnected": view.Snapshot.Connected,
		"feedConnected":    a.Feed != nil && a.Feed.Connected(),
		"streamClients":    streamClients,
	})
}

// cronDisplay is a cron job plus its human-readable labels.
type cronDisplay struct {
	monitor.CronJob
	ScheduleLabel string `json:"scheduleLabel"`
	NextRunLabel  string `json:"nextRunLabel"`
	LastRunLabel  string `json:"lastRunLabel"`
	DurationLabel string `json:"durationLabel,omitempty"`
	DeliveryLabel string `json:"deliveryLabel"`
}

type monitorResponse struct {
	poller.View
	Polled    bool          `json:"polled"`
	CronJobs  []cronDisplay `json:"cronJobs"`
	CostLabel string        `json:"costLabel"`
	Dismissed []string      `json:"dismissed"`
}

// GetMonitor returns the latest view with dismissed alerts hidden.
// GET /api/monitor
func (a *API) GetMonitor(w http.ResponseWriter, r *http.Request) {
	view, polled := a.Views.View()
	now := a.now()

	view.Alerts = a.Dismissals.Visible(view.Alerts)

	crons := make([]cronDisplay, 0, len(view.CronJobs))
	for _, j := range view.CronJobs {
		d := cronDisplay{
			CronJob:       j,
			ScheduleLabel: monitor.FormatCronSchedule(j.Schedule),
			NextRunLabel:  monitor.FormatCountdown(j.State.NextRunAtMs, now),
			LastRunLabel:  monitor.FormatLastRun(j.State.LastRunAtMs, now),
			DeliveryLabel: monitor.DeliveryLabel(j),
		}
		if j.State.LastDurationMs != nil {
			d.DurationLabel = monitor.FormatRunDuration(*j.State.LastDurationMs)
		}
		crons = append(crons, d)
	}

	JSONResponse(w, monitorResponse{
		View:      view,
		Polled:    polled,
		CronJobs:  crons,
		CostLabel: monitor.FormatCost(view.Cost.TotalCost),
		Dismissed: a.Dismissals.IDs(),
	})
}

// GetAlerts returns the full alert set and the dismissed ids.
// GET /api/monitor/alerts
func (a *API) GetAlerts(w http.ResponseWriter, r *http.Request) {
	view, _ := a.Views.View()
	critical, warning := alerts.Count(view.Alerts)
	JSONResponse(w, map[string]any{
		"alerts":    view.Alerts,
		"visible":   a.Dismissals.Visible(view.Alerts),
		"dismissed": a.Dismissals.IDs(),
		"critical":  critical,
		"warning":   warning,
	})
}

// DismissAlert hides an alert id from the visible set.
// POST /api/monitor/alerts/{id}/dismiss
func (a *API) DismissAlert(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		JSONError(w, "Alert ID is required", http.StatusBadRequest)
		return
	}
	a.Dismissals.Dismiss(id)
	JSONResponse(w, map[string]any{"success": true, "id": id})
}

// RestoreAlert un-hides an alert id.
// DELETE /api/monitor/alerts/{id}/dismiss
func (a *API) RestoreAlert(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !a.Dismissals.Dismissed(id) {
		JSONError(w, "Alert is not dismissed", http.StatusNotFound)
		return
	}
	a.Dismissals.Restore(id)
	JSONResponse(w, map[string]any{"success": true, "id": id})
}

// GetFeed returns the buffered live events, newest first.
// GET /api/monitor/feed
func (a *API) GetFeed(w http.ResponseWriter, r *http.Request) {
	if a.Feed == nil {
		JSONError(w, "Live feed not available", http.StatusServiceUnavailable)
		return
	}
	JSONResponse(w, map[string]any{
		"connected": a.Feed.Connected(),
		"events":    a.Feed.Events(),
	})
}

// ClearFeed empties the event buffer.
// DELETE /api/monitor/feed
func (a *API) ClearFeed(w http.ResponseWriter, r *http.Request) {
	if a.Feed == nil {
		JSONError(w, "Live feed not available", http.StatusServiceUnavailable)
		return
	}
	a.Feed.Clear()
	JSONResponse(w, map[string]any{"success": true})
}

// GetNotifyHistory lists recent notification dispatches.
// GET /api/notify/history
func (a *API) GetNotifyHistory(w http.ResponseWriter, r *http.Request) {
	if a.Notifier == nil {
		JSONResponse(w, []notify.Record{})
		return
	}
	JSONResponse(w, a.Notifier.History())
}
