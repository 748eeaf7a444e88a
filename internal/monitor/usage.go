package monitor

// AggregateTokens sums the cumulative counters of sessions. Missing counters
// count as zero.
func AggregateTokens(sessions []Session) TokenTotals {
	var t TokenTotals
	for _, s := range sessions {
		t.Input += s.InputTokens
		t.Output += s.OutputTokens
		t.Total += s.TotalTokens
	}
	return t
}

// TokensByAgent groups sessions by parsed agent name and sums each group.
func TokensByAgent(sessions []Session) map[string]TokenTotals {
	out := make(map[string]TokenTotals)
	for _, s := range sessions {
		agent := ParseSessionKey(s.Key).Agent
		out[agent] = out[agent].Add(AggregateTokens([]Session{s}))
	}
	return out
}
