package events

import "time"

// EventType identifies the kind of event being published.
type EventType string

const (
	// Task board events
	TaskCreated      EventType = "task_created"
	TaskUpdated      EventType = "task_updated"
	TaskDeleted      EventType = "task_deleted"
	DeliverableAdded EventType = "deliverable_added"

	// Agent activity events
	ActivityLogged EventType = "activity_logged"
	AgentSpawned   EventType = "agent_spawned"
	AgentCompleted EventType = "agent_completed"
)

// Payload is the loosely-typed body of an event. Field names follow the
// upstream producers (snake_case for task/activity, camelCase for agents).
type Payload map[string]any

// Event is the payload published through the bus and written to SSE clients.
type Event struct {
	Type      EventType `json:"type"`
	Payload   Payload   `json:"payload"`
	Timestamp time.Time `json:"timestamp"`
}
