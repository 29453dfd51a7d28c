package ocdsmerge

import (
	"context"
	"fmt"
	"time"

	"github.com/goliatone/go-ocdsmerge/internal/digest"
	"github.com/goliatone/go-ocdsmerge/schema"
)

// Merger creates compiled and versioned releases with a fixed set of merge
// rules. A Merger is immutable after construction and safe for concurrent use;
// each merge operation owns its state.
type Merger struct {
	rules     Rules
	overrides Overrides
	order     CompiledRule
	engine    string
	cfg       mergerConfig
}

// New constructs a Merger. Rules come from WithRules when given, otherwise from
// the WithSchema document, otherwise only DefaultRules apply.
func New(opts ...Option) (*Merger, error) {
	cfg := applyOptions(opts)

	rules, err := cfg.resolveRules()
	if err != nil {
		return nil, err
	}
	order, engine, err := cfg.resolveOrder()
	if err != nil {
		return nil, err
	}
	return &Merger{
		rules:     DefaultRules().Merge(rules),
		overrides: cfg.overrides,
		order:     order,
		engine:    engine,
		cfg:       cfg,
	}, nil
}

// Load constructs a Merger whose rules are compiled from the release schema at
// source, a local path or URL. Compiled rules are cached per source, in the
// WithRuleCache cache or a process-wide one.
func Load(ctx context.Context, source string, opts ...Option) (*Merger, error) {
	cfg := applyOptions(opts)
	cache := cfg.ruleCache
	if cache == nil {
		cache = sharedRuleCache
	}
	rules, ok := cache.Get(source)
	if !ok {
		doc, err := schema.Load(ctx, source)
		if err != nil {
			return nil, err
		}
		rules = CompileRules(doc)
		cache.Set(source, rules)
	}
	return New(append(opts, WithRules(rules))...)
}

func (cfg mergerConfig) resolveRules() (Rules, error) {
	if cfg.rules != nil {
		return *cfg.rules, nil
	}
	if len(cfg.schema) == 0 {
		return Rules{}, nil
	}
	var key string
	if cfg.ruleCache != nil {
		sum, err := digest.Document(cfg.schema)
		if err != nil {
			return Rules{}, fmt.Errorf("ocdsmerge: schema digest: %w", err)
		}
		key = "sha:" + sum
		if rules, ok := cfg.ruleCache.Get(key); ok {
			return rules, nil
		}
	}
	doc, err := schema.Dereference(cfg.schema)
	if err != nil {
		return Rules{}, err
	}
	rules := CompileRules(doc)
	if cfg.ruleCache != nil {
		cfg.ruleCache.Set(key, rules)
	}
	return rules, nil
}

// Rules returns the effective merge rules, including DefaultRules.
func (m *Merger) Rules() Rules {
	return m.rules
}

// Overrides returns the configured rule overrides.
func (m *Merger) Overrides() Overrides {
	return m.overrides
}

// OrderEngine names the engine running the order expression, or "" when
// releases are sorted by date.
func (m *Merger) OrderEngine() string {
	return m.engine
}

// WithWarnings returns a copy of m that reports advisory warnings to handler.
// Rules and the order program are shared with m.
func (m *Merger) WithWarnings(handler WarningHandler) *Merger {
	clone := *m
	clone.cfg.warnings = handler
	return &clone
}

// SortReleases orders releases by date, or by the order expression when one is
// configured.
func (m *Merger) SortReleases(releases []any) ([]any, error) {
	if m.order == nil {
		return SortReleases(releases)
	}
	sorted, err := sortByRule(m.order, releases)
	if err != nil {
		return nil, wrapEvaluationError(m.engine, m.cfg.orderExpr, "", err)
	}
	return sorted, nil
}

// CreateCompiledRelease merges releases into a compiled release.
func (m *Merger) CreateCompiledRelease(releases []any) (map[string]any, error) {
	return m.create("compile", releases, false)
}

// CreateVersionedRelease merges releases into a versioned release.
func (m *Merger) CreateVersionedRelease(releases []any) (map[string]any, error) {
	return m.create("version", releases, true)
}

func (m *Merger) create(operation string, releases []any, versioned bool) (doc map[string]any, err error) {
	start := time.Now()
	defer func() {
		m.cfg.mergeLogger().LogMerge(MergeLogEvent{
			Operation: operation,
			Releases:  len(releases),
			Duration:  time.Since(start),
			Err:       err,
		})
	}()

	var merged *MergedRelease
	if versioned {
		merged, err = m.NewVersionedRelease(nil)
	} else {
		merged, err = m.NewCompiledRelease(nil)
	}
	if err != nil {
		return nil, err
	}
	if err = merged.Extend(releases); err != nil {
		return nil, err
	}
	return merged.AsDocument()
}

func (m *Merger) flatten(doc map[string]any, versioned bool) (*Flattened, error) {
	opts := []FlattenOption{
		FlattenWarnings(m.cfg.warningHandler()),
		FlattenCollisionPolicy(m.cfg.policy),
	}
	if versioned {
		opts = append(opts, FlattenVersioned())
	}
	return Flatten(doc, m.rules, m.overrides, opts...)
}
