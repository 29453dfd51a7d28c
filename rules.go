package ocdsmerge

import (
	"fmt"
	"sort"
	"strings"
)

// Directive is the merge behaviour declared for a rule path.
type Directive int

const (
	// DirectiveDefault recurses into objects, identifier-merges arrays of
	// objects and replaces everything else.
	DirectiveDefault Directive = iota
	// OmitWhenMerged drops the field from merged output.
	OmitWhenMerged
	// WholeListMerge replaces the field's array wholesale.
	WholeListMerge
)

func (d Directive) String() string {
	switch d {
	case OmitWhenMerged:
		return "omitWhenMerged"
	case WholeListMerge:
		return "wholeListMerge"
	default:
		return "default"
	}
}

// ParseDirective converts a directive name. Both the schema keywords and the
// deprecated mergeStrategy values are accepted.
func ParseDirective(value string) (Directive, error) {
	switch strings.TrimSpace(value) {
	case "omitWhenMerged", "ocdsOmit":
		return OmitWhenMerged, nil
	case "wholeListMerge", "ocdsVersion":
		return WholeListMerge, nil
	case "", "default":
		return DirectiveDefault, nil
	default:
		return DirectiveDefault, fmt.Errorf("ocdsmerge: unknown merge directive %q", value)
	}
}

type ruleEntry[V any] struct {
	path  RulePath
	value V
}

// pathTable is an immutable-after-build map keyed by rule path.
type pathTable[V any] struct {
	entries map[string]ruleEntry[V]
}

func (t pathTable[V]) get(path RulePath) (V, bool) {
	entry, ok := t.entries[path.key()]
	return entry.value, ok
}

func (t pathTable[V]) with(path RulePath, value V) pathTable[V] {
	entries := make(map[string]ruleEntry[V], len(t.entries)+1)
	for key, entry := range t.entries {
		entries[key] = entry
	}
	entries[path.key()] = ruleEntry[V]{path: append(RulePath(nil), path...), value: value}
	return pathTable[V]{entries: entries}
}

func (t pathTable[V]) each(fn func(RulePath, V)) {
	keys := make([]string, 0, len(t.entries))
	for key := range t.entries {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		return t.entries[keys[i]].path.String() < t.entries[keys[j]].path.String()
	})
	for _, key := range keys {
		entry := t.entries[key]
		fn(append(RulePath(nil), entry.path...), entry.value)
	}
}

// Rules maps rule paths to merge directives. The zero value is empty and
// ready to use; Rules values are never mutated after construction so they can
// be shared between merge sessions.
type Rules struct {
	table pathTable[Directive]
}

// NewRules builds a rule table from a directive mapping keyed by dotted path.
func NewRules(directives map[string]Directive) Rules {
	var rules Rules
	for path, directive := range directives {
		rules = rules.With(ParseRulePath(path), directive)
	}
	return rules
}

// Get returns the directive for path, or DirectiveDefault.
func (r Rules) Get(path RulePath) Directive {
	directive, _ := r.table.get(path)
	return directive
}

// Lookup returns the directive for path and whether one is declared.
func (r Rules) Lookup(path RulePath) (Directive, bool) {
	return r.table.get(path)
}

// With returns a copy of r with directive set for path.
func (r Rules) With(path RulePath, directive Directive) Rules {
	return Rules{table: r.table.with(path, directive)}
}

// Len returns the number of declared directives.
func (r Rules) Len() int {
	return len(r.table.entries)
}

// Each visits directives ordered by dotted path.
func (r Rules) Each(fn func(RulePath, Directive)) {
	r.table.each(fn)
}

// Merge returns a copy of r where entries of other take precedence.
func (r Rules) Merge(other Rules) Rules {
	out := r
	other.Each(func(path RulePath, directive Directive) {
		out = out.With(path, directive)
	})
	return out
}

// DefaultRules returns the directives for the top-level fields the merge
// orchestrator consumes itself.
func DefaultRules() Rules {
	return NewRules(map[string]Directive{
		"id":   OmitWhenMerged,
		"date": OmitWhenMerged,
		"tag":  OmitWhenMerged,
		"ocid": OmitWhenMerged,
	})
}

// CompileRules derives merge directives from a dereferenced release schema.
// A nil or property-less schema yields no directives.
func CompileRules(schema map[string]any) Rules {
	var rules Rules
	properties, _ := schema["properties"].(map[string]any)
	compileProperties(properties, RulePath{}, &rules)
	return rules
}

func compileProperties(properties map[string]any, path RulePath, rules *Rules) {
	names := make([]string, 0, len(properties))
	for name := range properties {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		property, ok := properties[name].(map[string]any)
		if !ok {
			continue
		}
		next := path.Append(name)
		types := schemaTypes(property)

		switch {
		case truthy(property["omitWhenMerged"]) || property["mergeStrategy"] == "ocdsOmit":
			*rules = rules.With(next, OmitWhenMerged)
		case types["array"] && (truthy(property["wholeListMerge"]) || property["mergeStrategy"] == "ocdsVersion"):
			*rules = rules.With(next, WholeListMerge)
		case types["object"] && hasKey(property, "properties"):
			nested, _ := property["properties"].(map[string]any)
			compileProperties(nested, next, rules)
		case types["array"] && hasKey(property, "items"):
			items, _ := property["items"].(map[string]any)
			itemTypes := schemaTypes(items)
			if hasNonObject(itemTypes) {
				*rules = rules.With(next, WholeListMerge)
				continue
			}
			if !itemTypes["object"] || !hasKey(items, "properties") {
				continue
			}
			itemProperties, _ := items["properties"].(map[string]any)
			if _, ok := itemProperties["id"]; !ok {
				*rules = rules.With(next, WholeListMerge)
				continue
			}
			compileProperties(itemProperties, next, rules)
		}
	}
}

func schemaTypes(property map[string]any) map[string]bool {
	types := map[string]bool{}
	switch typed := property["type"].(type) {
	case string:
		types[typed] = true
	case []any:
		for _, item := range typed {
			if name, ok := item.(string); ok {
				types[name] = true
			}
		}
	case []string:
		for _, name := range typed {
			types[name] = true
		}
	}
	return types
}

func hasNonObject(types map[string]bool) bool {
	for name := range types {
		if name != "object" {
			return true
		}
	}
	return false
}

func hasKey(value map[string]any, key string) bool {
	_, ok := value[key]
	return ok
}

func truthy(value any) bool {
	switch typed := value.(type) {
	case nil:
		return false
	case bool:
		return typed
	case string:
		return typed != ""
	default:
		return true
	}
}
