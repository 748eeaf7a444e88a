package alerts

import "fmt"

// Severity indicates the urgency of an alert.
type Severity int

const (
	SeverityWarning  Severity = 1
	SeverityCritical Severity = 2
)

func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// MarshalText encodes the severity by name.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a severity name.
func (s *Severity) UnmarshalText(b []byte) error {
	switch string(b) {
	case "warning":
		*s = SeverityWarning
	case "critical":
		*s = SeverityCritical
	default:
		return fmt.Errorf("unknown severity %q", b)
	}
	return nil
}

// Alert is a condition that holds right now. Its ID names the failing thing
// (rule plus subject), not an occurrence, so it stays the same across polls
// for as long as the condition does.
type Alert struct {
	ID       string   `json:"id"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// Well-known alert IDs and prefixes.
const (
	IDGatewayOffline = "gateway-offline"

	prefixCronError       = "cron-error-"
	prefixStalledSubAgent = "stalled-subagent-"
	prefixHighContext     = "high-context-"
	prefixAborted         = "aborted-"
)
