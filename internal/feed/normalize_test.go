package feed

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		summary string
		agent   string
	}{
		{"task created", `{"type":"task_created","payload":{"title":"Fix login","created_by_agent":{"name":"Alfred"}}}`, "Task created: Fix login", "Alfred"},
		{"task created untitled", `{"type":"task_created","payload":{}}`, "Task created: Untitled", ""},
		{"task updated", `{"type":"task_updated","payload":{"title":"Fix login","status":"done","assigned_agent":{"name":"Robin"}}}`, "Task updated: Fix login → done", "Robin"},
		{"agent spawned", `{"type":"agent_spawned","payload":{"agentName":"scout"}}`, "Agent spawned: scout", "scout"},
		{"agent spawned anonymous", `{"type":"agent_spawned"}`, "Agent spawned: sub-agent", ""},
		{"agent completed", `{"type":"agent_completed","payload":{}}`, "Agent completed: sub-agent", ""},
		{"activity", `{"type":"activity_logged","payload":{"message":"Cron: cron.run — backup","agent":{"name":"main"}}}`, "Cron: cron.run — backup", "main"},
		{"activity default", `{"type":"activity_logged","payload":{}}`, "Activity logged", ""},
		{"deliverable", `{"type":"deliverable_added","payload":{"title":"report.pdf"}}`, "Deliverable: report.pdf", ""},
		{"unknown type", `{"type":"task_deleted","payload":{"id":"1"}}`, "Event: task_deleted", ""},
		{"wrong field type", `{"type":"task_created","payload":{"title":42}}`, "Task created: Untitled", ""},
		{"string payload", `{"type":"task_created","payload":"oops"}`, "Task created: Untitled", ""},
		{"array payload", `{"type":"task_created","payload":[1,2]}`, "Task created: Untitled", ""},
		{"number payload", `{"type":"agent_spawned","payload":7}`, "Agent spawned: sub-agent", ""},
		{"null payload", `{"type":"activity_logged","payload":null}`, "Activity logged", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Normalize([]byte(tt.raw))
			if !ok {
				t.Fatal("expected message to normalize")
			}
			if got.Summary != tt.summary {
				t.Errorf("summary = %q, want %q", got.Summary, tt.summary)
			}
			if got.AgentName != tt.agent {
				t.Errorf("agent = %q, want %q", got.AgentName, tt.agent)
			}
		})
	}
}

func TestNormalizeRejects(t *testing.T) {
	for _, raw := range []string{"", "{", "[]", `{"payload":{}}`, `{"type":""}`, `{"type":7}`} {
		if _, ok := Normalize([]byte(raw)); ok {
			t.Errorf("Normalize(%q) should be rejected", raw)
		}
	}
}

func TestBufferClearAndCapacity(t *testing.T) {
	b := NewBuffer(3)
	for _, id := range []string{"a", "b", "c", "d"} {
		b.Push(Event{ID: id})
	}
	got := b.Events()
	if len(got) != 3 || got[0].ID != "d" || got[2].ID != "b" {
		t.Errorf("events = %+v", got)
	}
	b.Clear()
	if b.size() != 0 {
		t.Errorf("len after clear = %d", b.size())
	}
	b.Push(Event{ID: "e"})
	if b.size() != 1 {
		t.Errorf("len after push = %d", b.size())
	}
}
