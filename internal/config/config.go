// Package config reads YAML merge configuration files.
package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	ocdsmerge "github.com/goliatone/go-ocdsmerge"
	"github.com/viant/afs"
	"gopkg.in/yaml.v3"
)

// File is the on-disk merge configuration.
//
//	schema: https://standard.open-contracting.org/schema/1__1__5/release-schema.json
//	versioned: false
//	collision: warn
//	order:
//	  engine: expr
//	  expression: parseTime(date)
//	rules:
//	  - path: tender.items.additionalClassifications
//	    directive: wholeListMerge
//	overrides:
//	  - path: awards
//	    strategy: append
type File struct {
	Schema    string          `yaml:"schema"`
	Versioned bool            `yaml:"versioned"`
	Collision string          `yaml:"collision"`
	Order     Order           `yaml:"order"`
	Rules     []RuleEntry     `yaml:"rules"`
	Overrides []OverrideEntry `yaml:"overrides"`
}

// Order configures the release ordering expression.
type Order struct {
	Engine     string `yaml:"engine"`
	Expression string `yaml:"expression"`
}

// RuleEntry declares a directive for a dotted rule path.
type RuleEntry struct {
	Path      string `yaml:"path"`
	Directive string `yaml:"directive"`
}

// OverrideEntry declares a merge strategy for a dotted array path.
type OverrideEntry struct {
	Path     string `yaml:"path"`
	Strategy string `yaml:"strategy"`
}

// Load reads the configuration at location, a local path or any URL afs
// supports. A nil fs uses afs.New().
func Load(ctx context.Context, fs afs.Service, location string) (*File, error) {
	if fs == nil {
		fs = afs.New()
	}
	data, err := fs.DownloadWithURL(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("config: download %s: %w", location, err)
	}
	file, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", location, err)
	}
	return file, nil
}

// Parse decodes YAML configuration. Unknown fields are rejected.
func Parse(data []byte) (*File, error) {
	var file File
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	if err := file.Validate(); err != nil {
		return nil, err
	}
	return &file, nil
}

// Validate reports unknown directive, strategy, collision or engine names.
func (f *File) Validate() error {
	var errs []error
	if _, ok := ocdsmerge.ParseCollisionPolicy(f.Collision); !ok {
		errs = append(errs, fmt.Errorf("unknown collision policy %q", f.Collision))
	}
	if f.Order.Expression != "" {
		switch f.Order.Engine {
		case "", ocdsmerge.EngineExpr, ocdsmerge.EngineCEL, ocdsmerge.EngineJS:
		default:
			errs = append(errs, fmt.Errorf("unknown order engine %q", f.Order.Engine))
		}
	}
	for i, entry := range f.Rules {
		if entry.Path == "" {
			errs = append(errs, fmt.Errorf("rules[%d]: path is required", i))
		}
		if _, err := ocdsmerge.ParseDirective(entry.Directive); err != nil {
			errs = append(errs, fmt.Errorf("rules[%d]: %w", i, err))
		}
	}
	for i, entry := range f.Overrides {
		if entry.Path == "" {
			errs = append(errs, fmt.Errorf("overrides[%d]: path is required", i))
		}
		if _, err := ocdsmerge.ParseMergeStrategy(entry.Strategy); err != nil {
			errs = append(errs, fmt.Errorf("overrides[%d]: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

// RuleTable returns the configured rule entries as a rule table.
func (f *File) RuleTable() ocdsmerge.Rules {
	var rules ocdsmerge.Rules
	for _, entry := range f.Rules {
		directive, _ := ocdsmerge.ParseDirective(entry.Directive)
		rules = rules.With(ocdsmerge.ParseRulePath(entry.Path), directive)
	}
	return rules
}

// Options converts everything except the schema and rules into merger options.
func (f *File) Options() []ocdsmerge.Option {
	policy, _ := ocdsmerge.ParseCollisionPolicy(f.Collision)
	options := []ocdsmerge.Option{ocdsmerge.WithCollisionPolicy(policy)}

	if len(f.Overrides) > 0 {
		var overrides ocdsmerge.Overrides
		for _, entry := range f.Overrides {
			strategy, _ := ocdsmerge.ParseMergeStrategy(entry.Strategy)
			overrides = overrides.With(ocdsmerge.ParseRulePath(entry.Path), strategy)
		}
		options = append(options, ocdsmerge.WithRuleOverrides(overrides))
	}
	if f.Order.Expression != "" {
		options = append(options,
			ocdsmerge.WithOrderEngine(f.Order.Engine),
			ocdsmerge.WithOrderExpression(f.Order.Expression),
		)
	}
	return options
}

// Merger builds a merger from the configuration. Rules compiled from the
// schema are layered under the configured rules. extra options are applied
// after the configuration's own.
func (f *File) Merger(ctx context.Context, extra ...ocdsmerge.Option) (*ocdsmerge.Merger, error) {
	options := append(f.Options(), extra...)
	rules := f.RuleTable()

	if f.Schema == "" {
		if rules.Len() > 0 {
			options = append(options, ocdsmerge.WithRules(rules))
		}
		return ocdsmerge.New(options...)
	}

	merger, err := ocdsmerge.Load(ctx, f.Schema, options...)
	if err != nil {
		return nil, err
	}
	if rules.Len() == 0 {
		return merger, nil
	}
	return ocdsmerge.New(append(options, ocdsmerge.WithRules(merger.Rules().Merge(rules)))...)
}
