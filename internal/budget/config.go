// Package budget splits a trip budget across planning tools and moves unused
// money forward as tools report what they actually cost.
package budget

import "github.com/tripmazer/wayfarer/pkg/domain"

// Strategy selects how savings are spread over the pending tools.
type Strategy string

const (
	// StrategyEven gives every pending tool the same share.
	StrategyEven Strategy = "even"
	// StrategyPriority favours the earliest pending tool.
	StrategyPriority Strategy = "priority"
)

// Config holds the allocation and reallocation constants.
type Config struct {
	// Floor replaces a non-positive total budget.
	Floor float64 `yaml:"floor" toml:"floor"`
	// Weights are the default per-tool shares before normalization.
	Weights map[domain.ToolName]float64 `yaml:"weights" toml:"weights"`
	// FirstToolBonus is added to the first tool's fraction.
	FirstToolBonus float64 `yaml:"first_tool_bonus" toml:"first_tool_bonus"`
	// MinShare is the lowest fraction any tool can be pushed down to.
	MinShare float64 `yaml:"min_share" toml:"min_share"`
	// InternationalBoost multiplies the transport weight on cross-border trips.
	InternationalBoost float64 `yaml:"international_boost" toml:"international_boost"`
	// SpendFallback is the fraction of the allocation assumed spent when no
	// price can be read from a tool result.
	SpendFallback float64 `yaml:"spend_fallback" toml:"spend_fallback"`

	Strategy Strategy `yaml:"strategy" toml:"strategy"`
	// PriorityWeight is the earliest pending tool's weight under
	// StrategyPriority; every other pending tool weighs 1.
	PriorityWeight float64 `yaml:"priority_weight" toml:"priority_weight"`
}

// DefaultWeights returns the balanced split used when no external split is given.
func DefaultWeights() map[domain.ToolName]float64 {
	return map[domain.ToolName]float64{
		domain.ToolItinerary: 0.30,
		domain.ToolTransport: 0.35,
		domain.ToolLodging:   0.35,
		domain.ToolDining:    0.15,
	}
}

// DefaultConfig returns the stock constants.
func DefaultConfig() Config {
	return Config{
		Floor:              30000,
		Weights:            DefaultWeights(),
		FirstToolBonus:     0.10,
		MinShare:           0.05,
		InternationalBoost: 1.25,
		SpendFallback:      0.70,
		Strategy:           StrategyEven,
		PriorityWeight:     2.0,
	}
}

// withDefaults fills zero fields from DefaultConfig.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Floor <= 0 {
		c.Floor = def.Floor
	}
	if len(c.Weights) == 0 {
		c.Weights = def.Weights
	}
	if c.FirstToolBonus < 0 {
		c.FirstToolBonus = 0
	}
	if c.MinShare <= 0 {
		c.MinShare = def.MinShare
	}
	if c.InternationalBoost <= 0 {
		c.InternationalBoost = def.InternationalBoost
	}
	if c.SpendFallback <= 0 || c.SpendFallback > 1 {
		c.SpendFallback = def.SpendFallback
	}
	if c.Strategy == "" {
		c.Strategy = def.Strategy
	}
	if c.PriorityWeight <= 0 {
		c.PriorityWeight = def.PriorityWeight
	}
	return c
}
