// Package bridge republishes gateway push notifications as live feed events.
package bridge

import (
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"fleetwatch/internal/events"
	"fleetwatch/internal/gateway"
)

// challengeEvent is part of the connect handshake and never surfaced.
const challengeEvent = "connect.challenge"

// Bridge maps gateway notifications onto the event bus.
type Bridge struct {
	bus   *events.Bus
	newID func() string
	now   func() time.Time
}

// New creates a bridge publishing to bus.
func New(bus *events.Bus) *Bridge {
	return &Bridge{
		bus:   bus,
		newID: func() string { return "gw-" + uuid.NewString() },
		now:   time.Now,
	}
}

// Attach starts forwarding notifications from client.
func (b *Bridge) Attach(client *gateway.Client) {
	client.OnNotification(b.Handle)
	log.Printf("[Bridge] Listening for gateway push events")
}

// Handle classifies one notification and publishes the result, if any.
func (b *Bridge) Handle(n gateway.Notification) {
	if evt, ok := b.Classify(n); ok {
		b.bus.Publish(evt)
	}
}

// Classify maps a notification to an event. It reports false for
// notifications that are not surfaced.
func (b *Bridge) Classify(n gateway.Notification) (events.Event, bool) {
	name := n.Event
	if name == "" {
		name = n.Method
	}
	payload := n.Payload
	if payload == nil {
		payload = n.Params
	}

	if strings.HasPrefix(name, "sessions.") || strings.HasPrefix(name, "session.") {
		if evt, ok := b.sessionEvent(name, payload); ok {
			return evt, true
		}
	}

	if strings.HasPrefix(name, "agent.") || strings.HasPrefix(name, "agents.") {
		agent := field(payload, "agent_id", "agentId", "name")
		switch {
		case containsAny(name, "spawn", "start"):
			return b.event(events.AgentSpawned, events.Payload{
				"taskId":    "",
				"sessionId": "",
				"agentName": or(agent, "sub-agent"),
			}), true
		case containsAny(name, "complet", "end", "finish"):
			return b.event(events.AgentCompleted, events.Payload{
				"taskId":    "",
				"sessionId": "",
				"agentName": or(agent, "agent"),
				"summary":   "Agent completed",
			}), true
		}
	}

	if strings.HasPrefix(name, "cron.") {
		job := field(payload, "name", "job_id")
		return b.activity("Cron: "+name+" — "+job, ""), true
	}

	if name != "" && name != challengeEvent {
		return b.activity("Gateway: "+name, ""), true
	}
	return events.Event{}, false
}

func (b *Bridge) sessionEvent(name string, payload map[string]any) (events.Event, bool) {
	sessionID := field(payload, "session_id", "sessionId")
	agent := field(payload, "agent_id", "agentId", "agent")

	switch {
	case containsAny(name, "message", "output", "turn"):
		return b.activity(or(agent, "Agent")+": "+lastSegment(name), or(agent, sessionID, "gateway")), true
	case containsAny(name, "started", "created", "spawned"):
		return b.event(events.AgentSpawned, events.Payload{
			"taskId":    "",
			"sessionId": sessionID,
			"agentName": or(agent, sessionID, "sub-agent"),
		}), true
	case containsAny(name, "ended", "completed", "closed"):
		return b.event(events.AgentCompleted, events.Payload{
			"taskId":    "",
			"sessionId": sessionID,
			"agentName": or(agent, sessionID, "agent"),
			"summary":   "Session ended",
		}), true
	}
	return events.Event{}, false
}

func (b *Bridge) activity(message, agent string) events.Event {
	p := events.Payload{
		"id":            b.newID(),
		"task_id":       "",
		"activity_type": "updated",
		"message":       message,
		"created_at":    b.now().UTC().Format(time.RFC3339),
	}
	if agent != "" {
		p["agent"] = map[string]any{"name": agent}
	}
	return b.event(events.ActivityLogged, p)
}

func (b *Bridge) event(t events.EventType, p events.Payload) events.Event {
	return events.Event{Type: t, Payload: p, Timestamp: b.now().UTC()}
}

// field returns the first non-empty string among keys.
func field(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func or(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func lastSegment(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[i+1:]
	}
	return name
}
