package notify

import (
	"fmt"
	"time"

	"fleetwatch/internal/alerts"
)

// Target is a configured Shoutrrr destination.
type Target struct {
	Name string `yaml:"name" json:"name"`
	// URL is a raw Shoutrrr URL. When empty it is built from Type and Fields.
	URL    string            `yaml:"url" json:"-"`
	Type   string            `yaml:"type" json:"type,omitempty"`
	Fields map[string]string `yaml:"fields" json:"-"`

	// MinSeverity is "warning" (default) or "critical".
	MinSeverity string        `yaml:"min_severity" json:"min_severity"`
	Resolved    bool          `yaml:"resolved" json:"resolved"` // also announce cleared alerts
	Cooldown    time.Duration `yaml:"cooldown" json:"cooldown"`

	// QuietStart and QuietEnd are "HH:MM" in UTC. Critical alerts ignore them.
	QuietStart string `yaml:"quiet_start" json:"quiet_start,omitempty"`
	QuietEnd   string `yaml:"quiet_end" json:"quiet_end,omitempty"`
}

// ShoutrrrURL returns the URL to send to.
func (t Target) ShoutrrrURL() (string, error) {
	if t.URL != "" {
		return t.URL, nil
	}
	if t.Type == "" {
		return "", fmt.Errorf("target %q: url or type is required", t.Name)
	}
	u, err := BuildShoutrrrURL(t.Type, t.Fields)
	if err != nil {
		return "", fmt.Errorf("target %q: %w", t.Name, err)
	}
	return u, nil
}

func (t Target) minSeverity() alerts.Severity {
	if t.MinSeverity == "critical" {
		return alerts.SeverityCritical
	}
	return alerts.SeverityWarning
}

func (t Target) hasQuietHours() bool {
	return t.QuietStart != "" && t.QuietEnd != ""
}

// Validate checks that the target can be dispatched to.
func (t Target) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("notification target name is required")
	}
	switch t.MinSeverity {
	case "", "warning", "critical":
	default:
		return fmt.Errorf("target %q: unknown min_severity %q", t.Name, t.MinSeverity)
	}
	if _, err := t.ShoutrrrURL(); err != nil {
		return err
	}
	for _, hhmm := range []string{t.QuietStart, t.QuietEnd} {
		if hhmm == "" {
			continue
		}
		if _, err := time.Parse("15:04", hhmm); err != nil {
			return fmt.Errorf("target %q: bad quiet hours %q", t.Name, hhmm)
		}
	}
	return nil
}

// Record is one dispatch attempt.
type Record struct {
	Target   string    `json:"target"`
	AlertID  string    `json:"alert_id"`
	Message  string    `json:"message"`
	Status   string    `json:"status"` // sent, failed
	Error    string    `json:"error,omitempty"`
	SentAt   time.Time `json:"sent_at"`
	Resolved bool      `json:"resolved,omitempty"`
}
