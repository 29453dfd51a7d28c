package state_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/goliatone/go-ocdsmerge/pkg/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// storeFactories lists every Store implementation the contract runs against.
func storeFactories(t *testing.T) map[string]func(t *testing.T) state.Store {
	t.Helper()
	return map[string]func(t *testing.T) state.Store{
		"memory": func(t *testing.T) state.Store {
			return state.NewMemoryStore()
		},
		"sqlite": func(t *testing.T) state.Store {
			store, err := state.OpenSQLite(filepath.Join(t.TempDir(), "records.db"))
			require.NoError(t, err)
			t.Cleanup(func() { _ = store.Close() })
			return store
		},
	}
}

func TestStoreContract(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := factory(t)
			ref := state.Ref{OCID: "ocds-213czf-1", Kind: state.KindCompiled}

			_, _, ok, err := store.Load(ctx, ref)
			require.NoError(t, err)
			assert.False(t, ok, "missing records are not an error")

			updated := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
			doc := map[string]any{
				"ocid":   "ocds-213czf-1",
				"tag":    []any{"compiled"},
				"tender": map[string]any{"value": map[string]any{"amount": 10.5}},
			}
			meta := state.Meta{SnapshotID: "snap-1", ETag: "e1", UpdatedAt: updated, Releases: 2, Extra: map[string]string{"source": "bulk"}}

			saved, err := store.Save(ctx, ref, doc, meta)
			require.NoError(t, err)
			assert.Equal(t, meta, saved)

			doc["ocid"] = "mutated"
			loaded, loadedMeta, ok, err := store.Load(ctx, ref)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, "ocds-213czf-1", loaded["ocid"], "stores must not alias saved documents")
			assert.Equal(t, map[string]any{"value": map[string]any{"amount": 10.5}}, loaded["tender"])
			assert.Equal(t, "snap-1", loadedMeta.SnapshotID)
			assert.Equal(t, "e1", loadedMeta.ETag)
			assert.True(t, updated.Equal(loadedMeta.UpdatedAt))
			assert.Equal(t, 2, loadedMeta.Releases)
			assert.Equal(t, map[string]string{"source": "bulk"}, loadedMeta.Extra)

			_, err = store.Save(ctx, ref, map[string]any{"ocid": "ocds-213czf-1"}, state.Meta{ETag: "e2"})
			require.NoError(t, err)
			loaded, loadedMeta, _, err = store.Load(ctx, ref)
			require.NoError(t, err)
			assert.Equal(t, map[string]any{"ocid": "ocds-213czf-1"}, loaded, "save overwrites")
			assert.Equal(t, "e2", loadedMeta.ETag)
			assert.Empty(t, loadedMeta.Extra)

			other := state.Ref{OCID: "ocds-213czf-1", Kind: state.KindVersioned}
			_, _, ok, err = store.Load(ctx, other)
			require.NoError(t, err)
			assert.False(t, ok, "kinds are stored separately")

			_, err = store.Save(ctx, state.Ref{Kind: state.KindCompiled}, doc, meta)
			assert.ErrorIs(t, err, state.ErrInvalidRef)
		})
	}
}

func TestSQLiteStoreReopenAndList(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "records.db")

	store, err := state.OpenSQLite(path)
	require.NoError(t, err)
	for _, ocid := range []string{"B", "A"} {
		_, err := store.Save(ctx, state.Ref{OCID: ocid, Kind: state.KindCompiled}, map[string]any{"ocid": ocid}, state.Meta{})
		require.NoError(t, err)
	}
	_, err = store.Save(ctx, state.Ref{OCID: "C", Kind: state.KindVersioned}, map[string]any{"ocid": "C"}, state.Meta{})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := state.OpenSQLite(path)
	require.NoError(t, err)
	defer reopened.Close()

	ocids, err := reopened.OCIDs(ctx, state.KindCompiled)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, ocids)

	doc, meta, ok, err := reopened.Load(ctx, state.Ref{OCID: "C", Kind: state.KindVersioned})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, map[string]any{"ocid": "C"}, doc)
	assert.True(t, meta.UpdatedAt.IsZero())
}
