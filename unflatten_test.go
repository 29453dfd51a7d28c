package ocdsmerge

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-ocdsmerge/internal/jsonvalue"
)

func TestUnflattenRoundTrip(t *testing.T) {
	doc := map[string]any{
		"ocid": "A",
		"tender": map[string]any{
			"id":    "T",
			"items": []any{map[string]any{"id": 1, "unit": map[string]any{"name": "kg"}}, map[string]any{"description": "no id"}},
			"tags":  []any{"a", "b"},
			"empty": map[string]any{},
			"none":  []any{},
		},
		"parties": []any{map[string]any{}},
		"cleared": nil,
	}

	flat, err := Flatten(doc, Rules{}, Overrides{})
	require.NoError(t, err)
	once, err := Unflatten(flat)
	require.NoError(t, err)

	expected := jsonvalue.CloneObject(doc)
	delete(expected, "cleared")
	assert.Equal(t, expected, once)

	flat, err = Flatten(once, Rules{}, Overrides{})
	require.NoError(t, err)
	twice, err := Unflatten(flat)
	require.NoError(t, err)
	assert.Equal(t, once, twice)
}

func TestUnflattenKeepsOriginalIDType(t *testing.T) {
	flat := NewFlattened()
	flat.Set(NewPath(Field("items"), Element(DeclaredIdentity(1), 1, true), Field("id")), 1)
	flat.Set(NewPath(Field("items"), Element(DeclaredIdentity(1.0), 1.0, true), Field("name")), "first")
	flat.Set(NewPath(Field("items"), Element(DeclaredIdentity("1"), "1", true), Field("name")), "string id")

	doc, err := Unflatten(flat)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"items": []any{
			map[string]any{"id": 1, "name": "first"},
			map[string]any{"id": "1", "name": "string id"},
		},
	}, doc)
}

func TestUnflattenDoesNotAliasState(t *testing.T) {
	list := []any{"a"}
	flat := NewFlattened()
	flat.Set(FieldPath("list"), list)

	doc, err := Unflatten(flat)
	require.NoError(t, err)
	doc["list"].([]any)[0] = "changed"
	assert.Equal(t, "a", list[0])
}

func TestUnflattenPromotesEmptyArray(t *testing.T) {
	flat := NewFlattened()
	flat.Set(FieldPath("awards"), []any{})
	flat.Set(NewPath(Field("awards"), Element(DeclaredIdentity("x"), "x", true), Field("status")), "active")

	doc, err := Unflatten(flat)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"awards": []any{map[string]any{"id": "x", "status": "active"}},
	}, doc)
}

func TestUnflattenInconsistentTypes(t *testing.T) {
	element := Element(DeclaredIdentity("1"), "1", true)
	tests := []struct {
		name    string
		build   func(*Flattened)
		path    string
		key     string
		value   any
		earlier jsonvalue.Shape
		current jsonvalue.Shape
		message string
	}{
		{
			name: "literal then object",
			build: func(f *Flattened) {
				f.Set(FieldPath("a"), "x")
				f.Set(FieldPath("a", "b"), 1)
			},
			path: "/a", key: "b", value: "x",
			earlier: jsonvalue.ShapeLiteral, current: jsonvalue.ShapeObject,
			message: `ocdsmerge: An earlier release had the value "x" for /a, but the current release has an object with a "b" key`,
		},
		{
			name: "object then literal",
			build: func(f *Flattened) {
				f.Set(FieldPath("a", "b"), 1)
				f.Set(FieldPath("a"), "x")
			},
			path: "/a", value: map[string]any{"b": 1},
			earlier: jsonvalue.ShapeObject, current: jsonvalue.ShapeLiteral,
			message: `ocdsmerge: An earlier release had the object {"b":1} for /a, but the current release has a literal value`,
		},
		{
			name: "array then object",
			build: func(f *Flattened) {
				f.Set(FieldPath("a").Append(element).Append(Field("id")), "1")
				f.Set(FieldPath("a", "b"), 1)
			},
			path: "/a", key: "b", value: []any{map[string]any{"id": "1"}},
			earlier: jsonvalue.ShapeArray, current: jsonvalue.ShapeObject,
		},
		{
			name: "object then array",
			build: func(f *Flattened) {
				f.Set(FieldPath("a", "b"), 1)
				f.Set(FieldPath("a").Append(element).Append(Field("id")), "1")
			},
			path: "/a", key: "1", value: map[string]any{"b": 1},
			earlier: jsonvalue.ShapeObject, current: jsonvalue.ShapeArray,
			message: `ocdsmerge: An earlier release had the object {"b":1} for /a, but the current release has an array`,
		},
		{
			name: "history then object",
			build: func(f *Flattened) {
				f.Set(FieldPath("a"), []any{VersionedValue{ReleaseID: "1", Value: "old"}.Map()})
				f.Set(FieldPath("a", "b"), []any{VersionedValue{ReleaseID: "2", Value: 1}.Map()})
			},
			path: "/a", key: "b", value: "old",
			earlier: jsonvalue.ShapeLiteral, current: jsonvalue.ShapeObject,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flat := NewFlattened()
			tt.build(flat)
			_, err := Unflatten(flat)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInconsistentType))

			var typed *InconsistentTypeError
			require.True(t, errors.As(err, &typed))
			assert.Equal(t, tt.path, typed.Path)
			assert.Equal(t, tt.key, typed.Key)
			assert.Equal(t, tt.value, typed.Value)
			assert.Equal(t, tt.earlier, typed.Earlier)
			assert.Equal(t, tt.current, typed.Current)
			if tt.message != "" {
				assert.Equal(t, tt.message, typed.Error())
			}
		})
	}
}

func TestUnflattenNilFlattened(t *testing.T) {
	doc, err := Unflatten(nil)
	require.NoError(t, err)
	assert.Empty(t, doc)
}
