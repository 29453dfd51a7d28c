package ocdsmerge

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIdentityKeysSeparateKinds(t *testing.T) {
	assert.NotEqual(t, DeclaredIdentity(3).Key(), PositionIdentity(3).Key())
	assert.NotEqual(t, DeclaredIdentity("3").Key(), DeclaredIdentity(3).Key())
	assert.NotEqual(t, MintIdentity().Key(), MintIdentity().Key())

	minted := MintIdentity()
	assert.NotEqual(t, minted.Key(), DeclaredIdentity(minted.Value).Key())
}

func TestIdentityKeysNormaliseNumbers(t *testing.T) {
	assert.Equal(t, DeclaredIdentity(1).Key(), DeclaredIdentity(1.0).Key())
	assert.Equal(t, DeclaredIdentity(1).Key(), DeclaredIdentity(json.Number("1")).Key())
	assert.Equal(t, DeclaredIdentity("a").Key(), DeclaredIdentity("a").Key())
}

func TestIdentityKeysKeepLargeIntegersDistinct(t *testing.T) {
	above := DeclaredIdentity(json.Number("9007199254740993")).Key()
	below := DeclaredIdentity(json.Number("9007199254740992")).Key()
	assert.NotEqual(t, above, below)
	assert.NotEqual(t, above, DeclaredIdentity(9007199254740992.0).Key())

	assert.Equal(t, DeclaredIdentity(1).Key(), DeclaredIdentity(json.Number("1.0")).Key())
	assert.Equal(t, DeclaredIdentity(json.Number("10")).Key(), DeclaredIdentity(json.Number("1e1")).Key())
	assert.Equal(t, DeclaredIdentity(uint64(18446744073709551615)).Key(), DeclaredIdentity(json.Number("18446744073709551615")).Key())
}

func TestPathKeyIsInjective(t *testing.T) {
	dotted := FieldPath("a.b")
	nested := FieldPath("a", "b")
	assert.False(t, dotted.Equal(nested))

	field := FieldPath("items", "1")
	element := FieldPath("items").Append(Element(DeclaredIdentity("1"), "1", true))
	assert.False(t, field.Equal(element))

	prefix := FieldPath("tender", "items")
	full := prefix.Append(Element(DeclaredIdentity("x"), "x", true)).Append(Field("id"))
	assert.True(t, strings.HasPrefix(full.Key(), prefix.Key()))
	assert.True(t, full.Prefix(2).Equal(prefix))
}

func TestPathAppendDoesNotAlias(t *testing.T) {
	base := FieldPath("a")
	left := base.Append(Field("b"))
	right := base.Append(Field("c"))
	assert.Equal(t, "/a/b", left.String())
	assert.Equal(t, "/a/c", right.String())
	assert.Equal(t, 1, base.Len())
}

func TestPathRulePathStripsElements(t *testing.T) {
	path := NewPath(
		Field("tender"),
		Field("items"),
		Element(DeclaredIdentity("1"), "1", true),
		Field("id"),
	)
	assert.Equal(t, RulePath{"tender", "items", "id"}, path.RulePath())
	assert.Equal(t, "/tender/items/1/id", path.String())

	original, ok := path.Segment(2).Original()
	assert.True(t, ok)
	assert.Equal(t, "1", original)
	assert.True(t, path.Segment(2).IsElement())
	assert.Equal(t, "tender", path.Segment(0).Name())
}

func TestParseRulePath(t *testing.T) {
	assert.Equal(t, RulePath{"tender", "items"}, ParseRulePath("tender.items"))
	assert.Equal(t, RulePath{}, ParseRulePath("  "))
	assert.Equal(t, "tender.items", ParseRulePath("tender.items").String())
}
