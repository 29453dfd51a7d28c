package ocdsmerge

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mergeFixture struct {
	Rules     map[string]string `json:"rules"`
	Releases  []any             `json:"releases"`
	Compiled  map[string]any    `json:"compiled"`
	Versioned map[string]any    `json:"versioned"`
}

func loadFixture(t *testing.T, name string) mergeFixture {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	var fixture mergeFixture
	require.NoError(t, json.Unmarshal(data, &fixture))
	return fixture
}

// fixtureRules returns the fixture's directives, if it declares any.
func fixtureRules(t *testing.T, fixture mergeFixture) []Option {
	t.Helper()
	if len(fixture.Rules) == 0 {
		return nil
	}
	directives := make(map[string]Directive, len(fixture.Rules))
	for path, name := range fixture.Rules {
		directive, err := ParseDirective(name)
		require.NoError(t, err)
		directives[path] = directive
	}
	return []Option{WithRules(NewRules(directives))}
}

func loadJSON(t *testing.T, name string) map[string]any {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	return doc
}

func assertJSONEq(t *testing.T, expected, actual any) {
	t.Helper()
	want, err := json.Marshal(expected)
	require.NoError(t, err)
	got, err := json.Marshal(actual)
	require.NoError(t, err)
	assert.JSONEq(t, string(want), string(got))
}

func mustMerger(t *testing.T, opts ...Option) *Merger {
	t.Helper()
	merger, err := New(opts...)
	require.NoError(t, err)
	return merger
}

// collect gathers advisory warnings.
type collect struct {
	warnings []Warning
}

func (c *collect) HandleWarning(w Warning) {
	c.warnings = append(c.warnings, w)
}
