package monitor

import (
	"fmt"
	"strings"
)

// Pricing is a per-token price table for one metered provider/model.
// Sessions that do not match contribute nothing.
type Pricing struct {
	Provider      string  `yaml:"provider" json:"provider"`
	ModelContains string  `yaml:"model_contains" json:"modelContains"`
	InputPerMTok  float64 `yaml:"input_per_mtok" json:"inputPerMTok"`
	OutputPerMTok float64 `yaml:"output_per_mtok" json:"outputPerMTok"`
}

// DefaultPricing meters Kimi K2.5 through OpenRouter.
var DefaultPricing = Pricing{
	Provider:      "openrouter",
	ModelContains: "kimi",
	InputPerMTok:  0.23,
	OutputPerMTok: 3.00,
}

// Cost is a monetary estimate in USD.
type Cost struct {
	TotalCost  float64 `json:"totalCost"`
	InputCost  float64 `json:"inputCost"`
	OutputCost float64 `json:"outputCost"`
}

// Metered reports whether s is billed under this price table.
func (p Pricing) Metered(s Session) bool {
	if p.Provider != "" && s.ModelProvider == p.Provider {
		return true
	}
	return p.ModelContains != "" && strings.Contains(s.Model, p.ModelContains)
}

// Cost estimates the spend of the metered sessions.
func (p Pricing) Cost(sessions []Session) Cost {
	var input, output int64
	for _, s := range sessions {
		if !p.Metered(s) {
			continue
		}
		input += s.InputTokens
		output += s.OutputTokens
	}

	c := Cost{
		InputCost:  float64(input) * p.InputPerMTok / 1_000_000,
		OutputCost: float64(output) * p.OutputPerMTok / 1_000_000,
	}
	c.TotalCost = c.InputCost + c.OutputCost
	return c
}

// AgentCost is the total estimate for one agent's sessions.
func (p Pricing) AgentCost(sessions []Session) float64 {
	return p.Cost(sessions).TotalCost
}

// FormatCost renders a dollar amount for display.
func FormatCost(cost float64) string {
	switch {
	case cost == 0:
		return "$0.00"
	case cost < 0.01:
		return "<$0.01"
	default:
		return fmt.Sprintf("$%.2f", cost)
	}
}
