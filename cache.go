package ocdsmerge

import "sync"

// ProgramCache stores compiled expression programs keyed by expression strings.
type ProgramCache interface {
	Get(key string) (any, bool)
	Set(key string, value any)
}

// RuleCache stores compiled merge rules keyed by schema source or digest.
// Entries must not be modified once stored.
type RuleCache interface {
	Get(key string) (Rules, bool)
	Set(key string, rules Rules)
}

// MemoryProgramCache is a ProgramCache safe for concurrent use.
type MemoryProgramCache struct {
	mu       sync.RWMutex
	programs map[string]any
}

// NewMemoryProgramCache returns an empty program cache.
func NewMemoryProgramCache() *MemoryProgramCache {
	return &MemoryProgramCache{programs: map[string]any{}}
}

// Get implements ProgramCache.
func (c *MemoryProgramCache) Get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	value, ok := c.programs[key]
	return value, ok
}

// Set implements ProgramCache.
func (c *MemoryProgramCache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.programs == nil {
		c.programs = map[string]any{}
	}
	c.programs[key] = value
}

// MemoryRuleCache is a RuleCache safe for concurrent use.
type MemoryRuleCache struct {
	mu    sync.RWMutex
	rules map[string]Rules
}

// NewMemoryRuleCache returns an empty rule cache.
func NewMemoryRuleCache() *MemoryRuleCache {
	return &MemoryRuleCache{rules: map[string]Rules{}}
}

// Get implements RuleCache.
func (c *MemoryRuleCache) Get(key string) (Rules, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rules, ok := c.rules[key]
	return rules, ok
}

// Set implements RuleCache. The first stored value for a key wins.
func (c *MemoryRuleCache) Set(key string, rules Rules) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rules == nil {
		c.rules = map[string]Rules{}
	}
	if _, exists := c.rules[key]; exists {
		return
	}
	c.rules[key] = rules
}

// WithProgramCache registers a program cache used by the order evaluators.
func WithProgramCache(cache ProgramCache) Option {
	return func(cfg *mergerConfig) {
		cfg.programCache = cache
	}
}

// WithRuleCache registers a cache for compiled schema rules.
func WithRuleCache(cache RuleCache) Option {
	return func(cfg *mergerConfig) {
		cfg.ruleCache = cache
	}
}

var sharedRuleCache = NewMemoryRuleCache()
