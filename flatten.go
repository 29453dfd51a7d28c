package ocdsmerge

import (
	"sort"
)

// FlattenOption configures a single Flatten call.
type FlattenOption func(*flattenConfig)

type flattenConfig struct {
	versioned bool
	warnings  WarningHandler
	policy    CollisionPolicy
}

// FlattenVersioned treats arrays made only of versioned values as leaves, so a
// previously versioned document can be flattened back into merge state.
func FlattenVersioned() FlattenOption {
	return func(cfg *flattenConfig) {
		cfg.versioned = true
	}
}

// FlattenWarnings routes duplicate-id warnings to handler.
func FlattenWarnings(handler WarningHandler) FlattenOption {
	return func(cfg *flattenConfig) {
		if handler != nil {
			cfg.warnings = handler
		}
	}
}

// FlattenCollisionPolicy selects how duplicate ids are reported.
func FlattenCollisionPolicy(policy CollisionPolicy) FlattenOption {
	return func(cfg *flattenConfig) {
		cfg.policy = policy
	}
}

type flattener struct {
	rules     Rules
	overrides Overrides
	cfg       flattenConfig
	out       *Flattened
}

// Flatten decomposes doc into a path to leaf value mapping. Objects are
// recursed into, arrays of objects are split into elements keyed by identity,
// and everything else (including whole-list-merge arrays and arrays holding
// any non-object) is stored as a leaf. Empty objects and arrays are stored as
// empty sentinels so reconstruction keeps the field.
func Flatten(doc map[string]any, rules Rules, overrides Overrides, opts ...FlattenOption) (*Flattened, error) {
	cfg := flattenConfig{warnings: noopWarningHandler{}}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	f := &flattener{
		rules:     rules,
		overrides: overrides,
		cfg:       cfg,
		out:       NewFlattened(),
	}
	if err := f.object(doc, Path{}, RulePath{}); err != nil {
		return nil, err
	}
	return f.out, nil
}

func (f *flattener) object(obj map[string]any, path Path, rulePath RulePath) error {
	keys := make([]string, 0, len(obj))
	for key := range obj {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if err := f.member(obj[key], path.Append(Field(key)), rulePath.Append(key)); err != nil {
			return err
		}
	}
	return nil
}

func (f *flattener) member(value any, path Path, rulePath RulePath) error {
	directive := f.rules.Get(rulePath)
	if directive == OmitWhenMerged {
		return nil
	}
	value = normalizeArray(value)
	if directive == WholeListMerge || f.isLeaf(value) {
		f.out.Set(path, value)
		return nil
	}
	switch typed := value.(type) {
	case map[string]any:
		if len(typed) == 0 {
			f.out.Set(path, map[string]any{})
			return nil
		}
		return f.object(typed, path, rulePath)
	case []any:
		if len(typed) == 0 {
			f.out.Set(path, []any{})
			return nil
		}
		return f.array(typed, path, rulePath)
	}
	return nil
}

func (f *flattener) isLeaf(value any) bool {
	switch typed := value.(type) {
	case map[string]any:
		return false
	case []any:
		for _, item := range typed {
			if _, ok := item.(map[string]any); !ok {
				return true
			}
		}
		return f.cfg.versioned && IsHistory(typed)
	default:
		return true
	}
}

func (f *flattener) array(items []any, path Path, rulePath RulePath) error {
	strategy := f.overrides.Get(rulePath)
	seen := make(map[string]int, len(items))
	reported := false

	for i, item := range items {
		element := item.(map[string]any)
		declared, hasID := element["id"]

		identity := MintIdentity()
		if hasID {
			identity = DeclaredIdentity(declared)
		}
		token := identity
		switch strategy {
		case StrategyAppend:
			if hasID {
				token = MintIdentity()
			}
		case StrategyMergeByPosition:
			token = PositionIdentity(i)
		}

		defaultKey := identity.Key()
		if first, ok := seen[defaultKey]; !ok {
			seen[defaultKey] = i
		} else if first != i && !reported {
			reported = true
			if err := f.collision(rulePath, declared); err != nil {
				return err
			}
		}

		elementPath := path.Append(Element(token, declared, hasID))
		if len(element) == 0 {
			f.out.Set(elementPath, map[string]any{})
			continue
		}
		if err := f.object(element, elementPath, rulePath); err != nil {
			return err
		}
	}
	return nil
}

func (f *flattener) collision(rulePath RulePath, id any) error {
	switch f.cfg.policy {
	case CollisionIgnore:
		return nil
	case CollisionRaise:
		return &DuplicateIDError{RulePath: rulePath, ID: id}
	default:
		f.cfg.warnings.HandleWarning(DuplicateIDWarning{RulePath: rulePath, ID: id})
		return nil
	}
}

// normalizeArray converts typed slices of objects built in Go code into the
// []any form decoded JSON uses.
func normalizeArray(value any) any {
	items, ok := value.([]map[string]any)
	if !ok {
		return value
	}
	out := make([]any, len(items))
	for i, item := range items {
		out[i] = item
	}
	return out
}
