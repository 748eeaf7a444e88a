package monitor

import (
	"encoding/json"
	"testing"
	"time"
)

var treeNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func agoMs(d time.Duration) int64 { return treeNow.Add(-d).UnixMilli() }

func TestBuildAgentTree_RegistryOnlyAgentIsStale(t *testing.T) {
	trees := BuildAgentTree(nil, []Agent{{ID: "a1", Name: "ghost", Model: "gpt-5"}}, treeNow)

	if len(trees) != 1 {
		t.Fatalf("expected 1 tree, got %d", len(trees))
	}
	got := trees[0]
	if got.Name != "ghost" || got.Status != HealthStale || got.LastActive != 0 {
		t.Errorf("unexpected tree: %+v", got)
	}
	if got.Sessions == nil || len(got.Sessions) != 0 {
		t.Errorf("expected empty non-nil sessions, got %#v", got.Sessions)
	}
	if got.Model != "gpt-5" {
		t.Errorf("expected registry model, got %q", got.Model)
	}
}

func TestBuildAgentTree_GroupsSubAgents(t *testing.T) {
	sessions := []Session{
		{Key: "agent:alfred:main", SessionID: "s1", UpdatedAt: agoMs(20 * time.Minute), Model: "kimi-k2.5"},
		{Key: "agent:alfred:subagent-1", SessionID: "s2", UpdatedAt: agoMs(30 * time.Second)},
		{Key: "agent:alfred:subagent-1", SessionID: "s3", UpdatedAt: agoMs(40 * time.Minute)},
		{Key: "agent:alfred:subagent-2", SessionID: "s4", UpdatedAt: agoMs(5 * time.Minute)},
	}

	trees := BuildAgentTree(sessions, nil, treeNow)
	if len(trees) != 1 {
		t.Fatalf("expected 1 agent, got %d", len(trees))
	}
	alfred := trees[0]

	if len(alfred.Sessions) != 1 || alfred.Sessions[0].SessionID != "s1" {
		t.Errorf("expected only the main session at top level, got %+v", alfred.Sessions)
	}
	// Sub-agent activity makes the parent live.
	if alfred.Status != HealthLive || alfred.LastActive != agoMs(30*time.Second) {
		t.Errorf("expected parent live at sub-agent time, got %s at %d", alfred.Status, alfred.LastActive)
	}
	if alfred.Model != "kimi-k2.5" {
		t.Errorf("expected model from first session, got %q", alfred.Model)
	}

	if len(alfred.SubAgents) != 2 {
		t.Fatalf("expected 2 sub-agents, got %d", len(alfred.SubAgents))
	}
	sub1, sub2 := alfred.SubAgents[0], alfred.SubAgents[1]
	if sub1.Name != "subagent-1" || len(sub1.Sessions) != 2 || sub1.Status != HealthLive {
		t.Errorf("unexpected subagent-1: %+v", sub1)
	}
	if sub2.Name != "subagent-2" || sub2.Status != HealthIdle {
		t.Errorf("unexpected subagent-2: %+v", sub2)
	}

	if n := len(alfred.AllSessions()); n != 4 {
		t.Errorf("AllSessions() = %d, want 4", n)
	}
}

func TestBuildAgentTree_OrderingAndUniqueness(t *testing.T) {
	sessions := []Session{
		{Key: "agent:stale-one:main", UpdatedAt: agoMs(2 * time.Hour)},
		{Key: "agent:idle-one:main", UpdatedAt: agoMs(5 * time.Minute)},
		{Key: "agent:live-one:main", UpdatedAt: agoMs(10 * time.Second)},
		{Key: "agent:stale-two:main", UpdatedAt: agoMs(3 * time.Hour)},
		{Key: "", UpdatedAt: agoMs(10 * time.Second)},
	}
	agents := []Agent{{Name: "live-one"}, {Name: "registry-only"}}

	trees := BuildAgentTree(sessions, agents, treeNow)

	var names []string
	for _, tr := range trees {
		names = append(names, tr.Name)
	}
	want := []string{"live-one", "unknown", "idle-one", "stale-one", "stale-two", "registry-only"}
	if len(names) != len(want) {
		t.Fatalf("got %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("got %v, want %v", names, want)
		}
	}
}

func TestBuildAgentTree_EmptySubAgentContext(t *testing.T) {
	// A context of just "subagent" names the bucket after itself.
	trees := BuildAgentTree([]Session{{Key: "agent:bob:subagent", UpdatedAt: agoMs(time.Second)}}, nil, treeNow)
	if len(trees[0].SubAgents) != 1 || trees[0].SubAgents[0].Name != "subagent" {
		t.Errorf("unexpected sub-agents: %+v", trees[0].SubAgents)
	}
}

func TestBuildAgentTree_ColorsCycle(t *testing.T) {
	var agents []Agent
	for _, n := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		agents = append(agents, Agent{Name: n})
	}
	trees := BuildAgentTree(nil, agents, treeNow)
	if trees[0].Color != AgentColors[0] || trees[6].Color != AgentColors[0] {
		t.Errorf("expected palette to wrap, got %q and %q", trees[0].Color, trees[6].Color)
	}
}

func TestBuildAgentTree_Idempotent(t *testing.T) {
	sessions := []Session{
		{Key: "agent:a:main", UpdatedAt: agoMs(time.Minute)},
		{Key: "agent:b:subagent-x", UpdatedAt: agoMs(time.Hour)},
	}
	agents := []Agent{{Name: "c"}}

	first, _ := json.Marshal(BuildAgentTree(sessions, agents, treeNow))
	second, _ := json.Marshal(BuildAgentTree(sessions, agents, treeNow))
	if string(first) != string(second) {
		t.Errorf("tree output differs between runs:\n%s\n%s", first, second)
	}
}
