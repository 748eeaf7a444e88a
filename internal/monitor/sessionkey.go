package monitor

import "strings"

// UnknownAgent buckets sessions whose key carries no agent name.
const UnknownAgent = "unknown"

// SessionKey is the decomposed form of a session's opaque key,
// e.g. "agent:alfred:subagent-42".
type SessionKey struct {
	Agent      string `json:"agent"`
	Context    string `json:"context"`
	IsSubAgent bool   `json:"isSubAgent"`
}

// ParseSessionKey splits a "<kind>:<agent>:<context...>" key. Malformed keys
// degrade to the unknown agent with an empty context.
func ParseSessionKey(key string) SessionKey {
	parts := strings.Split(key, ":")

	agent := UnknownAgent
	switch {
	case len(parts) > 1 && parts[1] != "":
		agent = parts[1]
	case parts[0] != "":
		agent = parts[0]
	}

	var context string
	if len(parts) > 2 {
		context = strings.Join(parts[2:], ":")
	}

	return SessionKey{
		Agent:      agent,
		Context:    context,
		IsSubAgent: strings.Contains(strings.ToLower(context), "subagent"),
	}
}
