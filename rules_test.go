package ocdsmerge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-ocdsmerge/schema"
)

func rulesAsMap(rules Rules) map[string]Directive {
	out := map[string]Directive{}
	rules.Each(func(path RulePath, directive Directive) {
		out[path.String()] = directive
	})
	return out
}

func TestCompileRulesFromSchema(t *testing.T) {
	doc, err := schema.Dereference(loadJSON(t, "release-schema.json"))
	require.NoError(t, err)

	rules := CompileRules(doc)
	assert.Equal(t, map[string]Directive{
		"date":                                   OmitWhenMerged,
		"id":                                     OmitWhenMerged,
		"parties.legacy":                         OmitWhenMerged,
		"parties.roles":                          WholeListMerge,
		"tag":                                    OmitWhenMerged,
		"tender.items.additionalClassifications": WholeListMerge,
		"tender.milestones":                      WholeListMerge,
		"tender.submissionMethod":                WholeListMerge,
	}, rulesAsMap(rules))
}

func TestCompileRulesEdgeCases(t *testing.T) {
	doc := map[string]any{
		"properties": map[string]any{
			"untyped": map[string]any{"properties": map[string]any{
				"nested": map[string]any{"type": "string", "omitWhenMerged": true},
			}},
			"objectItems": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "object"},
			},
			"omitBeatsWhole": map[string]any{
				"type":           "array",
				"omitWhenMerged": true,
				"wholeListMerge": true,
			},
			"wholeOnScalar": map[string]any{
				"type":           "string",
				"wholeListMerge": true,
			},
		},
	}
	assert.Equal(t, map[string]Directive{
		"omitBeatsWhole": OmitWhenMerged,
	}, rulesAsMap(CompileRules(doc)))
}

func TestCompileRulesEmptySchema(t *testing.T) {
	assert.Equal(t, 0, CompileRules(nil).Len())
	assert.Equal(t, 0, CompileRules(map[string]any{}).Len())
}

func TestDefaultRulesAndMerge(t *testing.T) {
	defaults := DefaultRules()
	assert.Equal(t, 4, defaults.Len())
	for _, name := range []string{"id", "date", "tag", "ocid"} {
		assert.Equal(t, OmitWhenMerged, defaults.Get(RulePath{name}), name)
	}

	merged := defaults.Merge(NewRules(map[string]Directive{
		"ocid":          DirectiveDefault,
		"tender.awards": WholeListMerge,
	}))
	assert.Equal(t, DirectiveDefault, merged.Get(RulePath{"ocid"}))
	assert.Equal(t, WholeListMerge, merged.Get(ParseRulePath("tender.awards")))
	assert.Equal(t, 4, defaults.Len(), "merge must not modify the receiver")

	_, ok := merged.Lookup(RulePath{"missing"})
	assert.False(t, ok)
}

func TestParseDirective(t *testing.T) {
	for input, want := range map[string]Directive{
		"omitWhenMerged": OmitWhenMerged,
		"ocdsOmit":       OmitWhenMerged,
		"wholeListMerge": WholeListMerge,
		"ocdsVersion":    WholeListMerge,
		"":               DirectiveDefault,
	} {
		got, err := ParseDirective(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
	}
	_, err := ParseDirective("sometimes")
	assert.Error(t, err)
}

func TestParseMergeStrategy(t *testing.T) {
	got, err := ParseMergeStrategy("append")
	require.NoError(t, err)
	assert.Equal(t, StrategyAppend, got)

	got, err = ParseMergeStrategy("merge_by_position")
	require.NoError(t, err)
	assert.Equal(t, StrategyMergeByPosition, got)

	_, err = ParseMergeStrategy("shuffle")
	assert.Error(t, err)

	overrides := NewOverrides(map[string]MergeStrategy{"tender.items": StrategyAppend})
	assert.Equal(t, StrategyAppend, overrides.Get(ParseRulePath("tender.items")))
	assert.Equal(t, StrategyIdentifier, overrides.Get(ParseRulePath("awards")))
}
