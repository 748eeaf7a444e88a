package monitor

import (
	"sort"
	"time"
)

// AgentColors is the palette assigned to agents in discovery order.
var AgentColors = []string{
	"#58a6ff",
	"#3fb950",
	"#d29922",
	"#a371f7",
	"#db61a2",
	"#39d353",
}

// SubAgentTree is a group of sub-agent sessions sharing a context label.
type SubAgentTree struct {
	Name       string    `json:"name"`
	Status     Health    `json:"status"`
	LastActive int64     `json:"lastActive"`
	Sessions   []Session `json:"sessions"`
}

// AgentTree is one top-level agent with its direct sessions and sub-agents.
// LastActive and Status cover the sub-agent sessions too.
type AgentTree struct {
	Name       string         `json:"name"`
	Color      string         `json:"color"`
	Status     Health         `json:"status"`
	LastActive int64          `json:"lastActive"`
	Sessions   []Session      `json:"sessions"`
	Model      string         `json:"model,omitempty"`
	SubAgents  []SubAgentTree `json:"subAgents"`
}

// AllSessions returns the agent's direct sessions followed by every
// sub-agent session.
func (a AgentTree) AllSessions() []Session {
	out := make([]Session, 0, len(a.Sessions))
	out = append(out, a.Sessions...)
	for _, sub := range a.SubAgents {
		out = append(out, sub.Sessions...)
	}
	return out
}

type subBucket struct {
	name     string
	sessions []Session
}

type agentBucket struct {
	name     string
	sessions []Session
	subs     []*subBucket
	subIndex map[string]*subBucket
	model    string
}

func (b *agentBucket) sub(name string) *subBucket {
	if s, ok := b.subIndex[name]; ok {
		return s
	}
	s := &subBucket{name: name}
	b.subIndex[name] = s
	b.subs = append(b.subs, s)
	return s
}

// BuildAgentTree groups sessions per agent, adds registered agents that have
// no sessions, and orders the result live, idle, stale (ties keep discovery
// order).
func BuildAgentTree(sessions []Session, agents []Agent, now time.Time) []AgentTree {
	var order []*agentBucket
	index := make(map[string]*agentBucket)

	bucket := func(name string) *agentBucket {
		if b, ok := index[name]; ok {
			return b
		}
		b := &agentBucket{name: name, subIndex: make(map[string]*subBucket)}
		index[name] = b
		order = append(order, b)
		return b
	}

	for _, s := range sessions {
		k := ParseSessionKey(s.Key)
		b := bucket(k.Agent)
		if k.IsSubAgent {
			name := k.Context
			if name == "" {
				name = "subagent"
			}
			sb := b.sub(name)
			sb.sessions = append(sb.sessions, s)
		} else {
			b.sessions = append(b.sessions, s)
		}
		if b.model == "" && s.Model != "" {
			b.model = s.Model
		}
	}

	for _, a := range agents {
		if _, ok := index[a.Name]; ok {
			continue
		}
		b := bucket(a.Name)
		b.model = a.Model
	}

	trees := make([]AgentTree, 0, len(order))
	for i, b := range order {
		tree := AgentTree{
			Name:      b.name,
			Color:     AgentColors[i%len(AgentColors)],
			Sessions:  b.sessions,
			Model:     b.model,
			SubAgents: make([]SubAgentTree, 0, len(b.subs)),
		}
		if tree.Sessions == nil {
			tree.Sessions = []Session{}
		}

		lastActive := latestUpdate(b.sessions)
		for _, sb := range b.subs {
			subLast := latestUpdate(sb.sessions)
			if subLast > lastActive {
				lastActive = subLast
			}
			tree.SubAgents = append(tree.SubAgents, SubAgentTree{
				Name:       sb.name,
				Status:     ClassifyHealth(subLast, now),
				LastActive: subLast,
				Sessions:   sb.sessions,
			})
		}

		tree.LastActive = lastActive
		tree.Status = ClassifyHealth(lastActive, now)
		trees = append(trees, tree)
	}

	sort.SliceStable(trees, func(i, j int) bool {
		return trees[i].Status.Rank() < trees[j].Status.Rank()
	})
	return trees
}

func latestUpdate(sessions []Session) int64 {
	var latest int64
	for _, s := range sessions {
		if s.UpdatedAt > latest {
			latest = s.UpdatedAt
		}
	}
	return latest
}
