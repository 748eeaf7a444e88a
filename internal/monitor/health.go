package monitor

import "time"

// Health is the liveness of an agent or session.
type Health string

const (
	HealthLive  Health = "live"
	HealthIdle  Health = "idle"
	HealthStale Health = "stale"
)

const (
	liveWindow = 120 * time.Second
	idleWindow = 900 * time.Second
)

// Rank orders health states for display: live < idle < stale.
func (h Health) Rank() int {
	switch h {
	case HealthLive:
		return 0
	case HealthIdle:
		return 1
	default:
		return 2
	}
}

// ClassifyHealth maps a last-activity time (epoch ms) to a liveness state
// relative to now. A zero lastActive means "never active" and is stale.
func ClassifyHealth(lastActive int64, now time.Time) Health {
	if lastActive == 0 {
		return HealthStale
	}
	elapsed := now.Sub(time.UnixMilli(lastActive))
	switch {
	case elapsed < liveWindow:
		return HealthLive
	case elapsed < idleWindow:
		return HealthIdle
	default:
		return HealthStale
	}
}
