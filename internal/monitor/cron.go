package monitor

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

var cronDayNames = map[string]string{
	"0": "Sundays",
	"1": "Mondays",
	"2": "Tuesdays",
	"3": "Wednesdays",
	"4": "Thursdays",
	"5": "Fridays",
	"6": "Saturdays",
	"7": "Sundays",
}

// FormatCronSchedule renders a schedule in words. Expressions it cannot
// describe come back unchanged.
func FormatCronSchedule(s CronSchedule) string {
	switch s.Kind {
	case ScheduleEvery:
		if s.Expr != "" {
			return "Every " + s.Expr
		}
		return "Recurring"
	case ScheduleAt:
		return "One-time"
	}
	if s.Expr == "" {
		return "Unknown"
	}

	fields := strings.Fields(s.Expr)
	if len(fields) < 5 {
		return s.Expr
	}
	minute, err := strconv.Atoi(fields[0])
	if err != nil {
		return s.Expr
	}
	hour, err := strconv.Atoi(fields[1])
	if err != nil {
		return s.Expr
	}

	at := formatClock(hour, minute)
	dow := fields[4]
	if dow == "*" {
		return "Daily at " + at
	}
	if day, ok := cronDayNames[dow]; ok {
		return day + " at " + at
	}
	return s.Expr
}

func formatClock(hour, minute int) string {
	ampm := "AM"
	if hour >= 12 {
		ampm = "PM"
	}
	display := hour
	switch {
	case hour == 0:
		display = 12
	case hour > 12:
		display = hour - 12
	}
	return fmt.Sprintf("%d:%02d %s", display, minute, ampm)
}

// FormatCountdown describes how far away targetMs is from now.
func FormatCountdown(targetMs int64, now time.Time) string {
	diff := time.UnixMilli(targetMs).Sub(now)
	if diff < 0 {
		return "overdue"
	}
	if diff < time.Minute {
		return "now"
	}

	minutes := int(diff / time.Minute)
	hours := minutes / 60
	days := hours / 24

	if days > 0 {
		if rem := hours % 24; rem > 0 {
			return fmt.Sprintf("in %dd %dh", days, rem)
		}
		return fmt.Sprintf("in %dd", days)
	}
	if hours > 0 {
		if rem := minutes % 60; rem > 0 {
			return fmt.Sprintf("in %dh %dm", hours, rem)
		}
		return fmt.Sprintf("in %dh", hours)
	}
	return fmt.Sprintf("in %dm", minutes)
}

// FormatLastRun describes a past run relative to now, or "never".
func FormatLastRun(lastRunMs int64, now time.Time) string {
	if lastRunMs == 0 {
		return "never"
	}
	return humanize.RelTime(time.UnixMilli(lastRunMs), now, "ago", "from now")
}

// FormatRunDuration renders a run duration in seconds with one decimal.
func FormatRunDuration(ms int64) string {
	return fmt.Sprintf("%.1fs", float64(ms)/1000)
}

// DeliveryLabel names where a job's output goes.
func DeliveryLabel(j CronJob) string {
	if j.Delivery == nil || j.Delivery.Mode == "none" {
		return "silent"
	}
	if j.Delivery.Channel != "" {
		return j.Delivery.Channel
	}
	return j.Delivery.Mode
}

// SortCronJobs returns a copy ordered enabled-first, then by next run.
func SortCronJobs(jobs []CronJob) []CronJob {
	out := make([]CronJob, len(jobs))
	copy(out, jobs)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Enabled != out[j].Enabled {
			return out[i].Enabled
		}
		return out[i].State.NextRunAtMs < out[j].State.NextRunAtMs
	})
	return out
}
