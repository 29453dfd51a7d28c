package schema

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDereferenceResolvesLocalRefs(t *testing.T) {
	doc := map[string]any{
		"properties": map[string]any{
			"tender": map[string]any{"$ref": "#/definitions/Tender"},
		},
		"definitions": map[string]any{
			"Tender": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"items": map[string]any{
						"type":  "array",
						"items": map[string]any{"$ref": "#/definitions/Item"},
					},
				},
			},
			"Item": map[string]any{
				"type":       "object",
				"properties": map[string]any{"id": map[string]any{"type": "string"}},
			},
		},
	}

	out, err := Dereference(doc)
	require.NoError(t, err)

	tender := out["properties"].(map[string]any)["tender"].(map[string]any)
	assert.Equal(t, "object", tender["type"])
	items := tender["properties"].(map[string]any)["items"].(map[string]any)["items"].(map[string]any)
	assert.Contains(t, items["properties"], "id")

	// source document untouched
	_, stillRef := doc["properties"].(map[string]any)["tender"].(map[string]any)["$ref"]
	assert.True(t, stillRef)
}

func TestDereferenceEscapedPointer(t *testing.T) {
	doc := map[string]any{
		"definitions": map[string]any{"a/b": map[string]any{"type": "string"}},
		"properties":  map[string]any{"x": map[string]any{"$ref": "#/definitions/a~1b"}},
	}
	out, err := Dereference(doc)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"type": "string"}, out["properties"].(map[string]any)["x"])
}

func TestDereferencePointerForms(t *testing.T) {
	doc := map[string]any{
		"definitions": map[string]any{
			"m~n":     map[string]any{"type": "integer"},
			"a b":     map[string]any{"type": "boolean"},
			"choices": []any{map[string]any{"type": "null"}, map[string]any{"type": "number"}},
		},
		"properties": map[string]any{
			"tilde":   map[string]any{"$ref": "#/definitions/m~0n"},
			"encoded": map[string]any{"$ref": "#/definitions/a%20b"},
			"index":   map[string]any{"$ref": "#/definitions/choices/1"},
		},
	}
	out, err := Dereference(doc)
	require.NoError(t, err)
	properties := out["properties"].(map[string]any)
	assert.Equal(t, map[string]any{"type": "integer"}, properties["tilde"])
	assert.Equal(t, map[string]any{"type": "boolean"}, properties["encoded"])
	assert.Equal(t, map[string]any{"type": "number"}, properties["index"])

	for _, ref := range []string{"#definitions/m~0n", "#/definitions/choices/7", "#/definitions/choices/x"} {
		_, err := Dereference(map[string]any{
			"definitions": doc["definitions"],
			"properties":  map[string]any{"x": map[string]any{"$ref": ref}},
		})
		assert.ErrorIs(t, err, ErrUnresolvedRef, ref)
	}
}

func TestDereferenceCircular(t *testing.T) {
	doc := map[string]any{
		"definitions": map[string]any{
			"A": map[string]any{"$ref": "#/definitions/B"},
			"B": map[string]any{"$ref": "#/definitions/A"},
		},
		"properties": map[string]any{"x": map[string]any{"$ref": "#/definitions/A"}},
	}
	_, err := Dereference(doc)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCircularRef))
}

func TestDereferenceMissingTarget(t *testing.T) {
	doc := map[string]any{
		"properties": map[string]any{"x": map[string]any{"$ref": "#/definitions/Nope"}},
	}
	_, err := Dereference(doc)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnresolvedRef))
}

func TestDereferenceExternalWithoutLoader(t *testing.T) {
	doc := map[string]any{
		"properties": map[string]any{"x": map[string]any{"$ref": "other.json#/definitions/X"}},
	}
	_, err := Dereference(doc)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnresolvedRef))
}

func TestLoaderLoadsLocalFileWithExternalRef(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "release-schema.json"), `{
		"properties": {
			"ocid": {"type": "string"},
			"parties": {"type": "array", "items": {"$ref": "common.json#/definitions/Organization"}}
		}
	}`)
	writeFile(t, filepath.Join(dir, "common.json"), `{
		"definitions": {
			"Organization": {"type": "object", "properties": {"id": {"type": "string"}}}
		}
	}`)

	loader := NewLoader()
	doc, err := loader.Load(context.Background(), filepath.Join(dir, "release-schema.json"))
	require.NoError(t, err)

	parties := doc["properties"].(map[string]any)["parties"].(map[string]any)
	items := parties["items"].(map[string]any)
	assert.Equal(t, "object", items["type"])
}

func TestLoaderFetchMissingFile(t *testing.T) {
	loader := NewLoader()
	_, err := loader.Fetch(context.Background(), filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}

func TestTagsAndURLs(t *testing.T) {
	dir := t.TempDir()
	index := filepath.Join(dir, "index.html")
	writeFile(t, index, `<a href="1__1__10/">x</a><a href="1__0__3/">y</a><a href="1__1__5/">z</a><a href="1__1__5/">dup</a>`)

	loader := NewLoader()
	tags, err := loader.Tags(context.Background(), index)
	require.NoError(t, err)
	assert.Equal(t, []string{"1__0__3", "1__1__5", "1__1__10"}, tags)

	latest, err := loader.LatestReleaseSchemaURL(context.Background(), index)
	require.NoError(t, err)
	assert.Equal(t, "https://standard.open-contracting.org/schema/1__1__10/release-schema.json", latest)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}
