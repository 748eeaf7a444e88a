package feed

import (
	"encoding/json"

	"fleetwatch/internal/events"
)

// Event is a normalized live-feed entry.
type Event struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"` // epoch ms, time of receipt
	AgentName string `json:"agentName,omitempty"`
	Summary   string `json:"summary"`
}

// message is the upstream wire shape. Payload fields vary by type.
type message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Normalize maps one raw upstream message onto the feed vocabulary. It
// reports false for anything that is not a JSON object with a type; the ID
// and Timestamp of the result are left for the caller to assign.
func Normalize(data []byte) (Event, bool) {
	var msg message
	if err := json.Unmarshal(data, &msg); err != nil {
		return Event{}, false
	}
	if msg.Type == "" {
		return Event{}, false
	}

	// A payload that is not an object leaves p nil and the defaults apply.
	var p map[string]any
	_ = json.Unmarshal(msg.Payload, &p)
	evt := Event{Type: msg.Type}

	switch events.EventType(msg.Type) {
	case events.TaskCreated:
		evt.Summary = "Task created: " + or(str(p, "title"), "Untitled")
		evt.AgentName = str(p, "created_by_agent", "name")
	case events.TaskUpdated:
		evt.Summary = "Task updated: " + or(str(p, "title"), "Untitled") + " → " + str(p, "status")
		evt.AgentName = str(p, "assigned_agent", "name")
	case events.AgentSpawned:
		evt.AgentName = str(p, "agentName")
		evt.Summary = "Agent spawned: " + or(evt.AgentName, "sub-agent")
	case events.AgentCompleted:
		evt.AgentName = str(p, "agentName")
		evt.Summary = "Agent completed: " + or(evt.AgentName, "sub-agent")
	case events.ActivityLogged:
		evt.Summary = or(str(p, "message"), "Activity logged")
		evt.AgentName = str(p, "agent", "name")
	case events.DeliverableAdded:
		evt.Summary = "Deliverable: " + or(str(p, "title"), "file")
	default:
		evt.Summary = "Event: " + msg.Type
	}
	return evt, true
}

// str walks nested objects along path and returns the string at the end,
// or "" if any step is missing or not the expected shape.
func str(m map[string]any, path ...string) string {
	var cur any = m
	for _, k := range path {
		obj, ok := cur.(map[string]any)
		if !ok {
			return ""
		}
		cur = obj[k]
	}
	s, _ := cur.(string)
	return s
}

func or(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
