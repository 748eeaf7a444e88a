// Package alerts evaluates the alert rules against a gateway snapshot.
package alerts

import (
	"fmt"
	"sort"
	"time"

	"fleetwatch/internal/monitor"
)

// DefaultContextCap is the context window size used for the high-context rule.
const DefaultContextCap = 128_000

// highContextRatio is the occupancy above which a session is flagged.
const highContextRatio = 0.8

// Engine evaluates the fixed rule set. It holds no state between calls:
// every Compute returns the complete current alert list.
type Engine struct {
	ContextCap int64
	Now        func() time.Time
}

// NewEngine creates an engine with the given context cap (0 uses the default).
func NewEngine(contextCap int64) *Engine {
	if contextCap <= 0 {
		contextCap = DefaultContextCap
	}
	return &Engine{ContextCap: contextCap, Now: time.Now}
}

// Compute returns every alert that holds for snap. While the gateway is
// offline only the offline alert is reported.
func (e *Engine) Compute(snap monitor.Snapshot) []Alert {
	alerts := []Alert{}

	if !snap.Connected {
		return append(alerts, Alert{
			ID:       IDGatewayOffline,
			Severity: SeverityCritical,
			Message:  "Gateway is offline",
		})
	}

	for _, job := range snap.CronJobs {
		if !job.Failed() {
			continue
		}
		reason := job.State.LastError
		if reason == "" {
			reason = "unknown error"
		}
		alerts = append(alerts, Alert{
			ID:       prefixCronError + job.ID,
			Severity: SeverityCritical,
			Message:  fmt.Sprintf("Cron \"%s\" failed: %s", job.Name, reason),
		})
	}

	now := e.now()
	for _, s := range snap.Sessions {
		alerts = append(alerts, e.sessionAlerts(s, now)...)
	}

	return alerts
}

func (e *Engine) sessionAlerts(s monitor.Session, now time.Time) []Alert {
	var out []Alert
	isSubAgent := monitor.ParseSessionKey(s.Key).IsSubAgent

	if isSubAgent && s.AbortedLastRun && monitor.ClassifyHealth(s.UpdatedAt, now) == monitor.HealthStale {
		out = append(out, Alert{
			ID:       prefixStalledSubAgent + s.SessionID,
			Severity: SeverityWarning,
			Message:  fmt.Sprintf("Sub-agent session \"%s\" is stalled", s.Label()),
		})
	}

	if ratio := e.contextRatio(s); ratio > highContextRatio {
		out = append(out, Alert{
			ID:       prefixHighContext + s.SessionID,
			Severity: SeverityWarning,
			Message:  fmt.Sprintf("\"%s\" context at %s", s.Label(), monitor.FormatPercent(ratio)),
		})
	}

	if !isSubAgent && s.AbortedLastRun {
		out = append(out, Alert{
			ID:       prefixAborted + s.SessionID,
			Severity: SeverityWarning,
			Message:  fmt.Sprintf("\"%s\" last run was aborted", s.Label()),
		})
	}

	return out
}

func (e *Engine) contextRatio(s monitor.Session) float64 {
	limit := e.ContextCap
	if limit <= 0 {
		limit = DefaultContextCap
	}
	if s.ContextTokens <= 0 {
		return 0
	}
	return float64(s.ContextTokens) / float64(limit)
}

func (e *Engine) now() time.Time {
	if e.Now == nil {
		return time.Now()
	}
	return e.Now()
}

// Sort orders alerts critical first, keeping rule order within a severity.
func Sort(alerts []Alert) {
	sort.SliceStable(alerts, func(i, j int) bool {
		return alerts[i].Severity > alerts[j].Severity
	})
}

// Count tallies alerts by severity.
func Count(alerts []Alert) (critical, warning int) {
	for _, a := range alerts {
		switch a.Severity {
		case SeverityCritical:
			critical++
		case SeverityWarning:
			warning++
		}
	}
	return critical, warning
}
