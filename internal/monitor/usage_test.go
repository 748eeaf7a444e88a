package monitor

import "testing"

func TestAggregateTokens(t *testing.T) {
	sessions := []Session{
		{Key: "agent:a:main", InputTokens: 100, OutputTokens: 50, TotalTokens: 150},
		{Key: "agent:a:other", InputTokens: 5},
		{Key: "agent:b:main"},
	}
	got := AggregateTokens(sessions)
	want := TokenTotals{Input: 105, Output: 50, Total: 150}
	if got != want {
		t.Errorf("AggregateTokens = %+v, want %+v", got, want)
	}

	if empty := AggregateTokens(nil); empty != (TokenTotals{}) {
		t.Errorf("expected zero totals for no sessions, got %+v", empty)
	}
}

func TestAggregateTokens_Associative(t *testing.T) {
	left := []Session{
		{InputTokens: 10, OutputTokens: 1, TotalTokens: 11},
		{InputTokens: 7, OutputTokens: 3, TotalTokens: 10},
	}
	right := []Session{
		{InputTokens: 1000, OutputTokens: 200, TotalTokens: 1200},
	}
	union := append(append([]Session{}, right...), left...)

	if got, want := AggregateTokens(union), AggregateTokens(left).Add(AggregateTokens(right)); got != want {
		t.Errorf("aggregate of union %+v != sum of aggregates %+v", got, want)
	}
}

func TestTokensByAgent(t *testing.T) {
	sessions := []Session{
		{Key: "agent:alfred:main", InputTokens: 10, OutputTokens: 1, TotalTokens: 11},
		{Key: "agent:alfred:subagent-1", InputTokens: 5, OutputTokens: 5, TotalTokens: 10},
		{Key: "agent:bruce:main", InputTokens: 3},
		{Key: "", TotalTokens: 9},
	}

	got := TokensByAgent(sessions)
	if got["alfred"] != (TokenTotals{Input: 15, Output: 6, Total: 21}) {
		t.Errorf("alfred = %+v", got["alfred"])
	}
	if got["bruce"] != (TokenTotals{Input: 3}) {
		t.Errorf("bruce = %+v", got["bruce"])
	}
	if got[UnknownAgent] != (TokenTotals{Total: 9}) {
		t.Errorf("unknown = %+v", got[UnknownAgent])
	}
}
