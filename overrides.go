package ocdsmerge

import (
	"fmt"
	"strings"
)

// MergeStrategy overrides identifier merge for an array rule path.
type MergeStrategy int

const (
	// StrategyIdentifier is the default: elements are matched by `id`.
	StrategyIdentifier MergeStrategy = iota
	// StrategyAppend never matches elements across releases.
	StrategyAppend
	// StrategyMergeByPosition matches elements by their array index.
	StrategyMergeByPosition
)

func (s MergeStrategy) String() string {
	switch s {
	case StrategyAppend:
		return "append"
	case StrategyMergeByPosition:
		return "merge-by-position"
	default:
		return "identifier"
	}
}

// ParseMergeStrategy converts a strategy name such as "append".
func ParseMergeStrategy(value string) (MergeStrategy, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "append":
		return StrategyAppend, nil
	case "merge-by-position", "merge_by_position", "position":
		return StrategyMergeByPosition, nil
	case "", "identifier":
		return StrategyIdentifier, nil
	default:
		return StrategyIdentifier, fmt.Errorf("ocdsmerge: unknown merge strategy %q", value)
	}
}

// Overrides maps array rule paths to merge strategies.
type Overrides struct {
	table pathTable[MergeStrategy]
}

// NewOverrides builds overrides keyed by dotted rule path.
func NewOverrides(strategies map[string]MergeStrategy) Overrides {
	var overrides Overrides
	for path, strategy := range strategies {
		overrides = overrides.With(ParseRulePath(path), strategy)
	}
	return overrides
}

// Get returns the strategy for path, or StrategyIdentifier.
func (o Overrides) Get(path RulePath) MergeStrategy {
	strategy, _ := o.table.get(path)
	return strategy
}

// With returns a copy of o with strategy set for path.
func (o Overrides) With(path RulePath, strategy MergeStrategy) Overrides {
	return Overrides{table: o.table.with(path, strategy)}
}

// Len returns the number of overrides.
func (o Overrides) Len() int {
	return len(o.table.entries)
}

// Each visits overrides ordered by dotted path.
func (o Overrides) Each(fn func(RulePath, MergeStrategy)) {
	o.table.each(fn)
}
