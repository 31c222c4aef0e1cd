package repository

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/smk-student-hub/internal/models"
)

func TestMemoryStateStoreVersioning(t *testing.T) {
	store := NewMemoryStateStore()
	ctx := context.Background()

	missing, err := store.Get(ctx, models.KeyStudents)
	require.NoError(t, err)
	assert.Nil(t, missing)

	created, err := store.Set(ctx, models.KeyStudents, json.RawMessage(`[]`), 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, created.Version)

	_, err = store.Set(ctx, models.KeyStudents, json.RawMessage(`[1]`), 0)
	assert.ErrorIs(t, err, ErrVersionMismatch)

	_, err = store.Set(ctx, models.KeyStudents, json.RawMessage(`[1]`), 5)
	assert.ErrorIs(t, err, ErrVersionMismatch)

	updated, err := store.Set(ctx, models.KeyStudents, json.RawMessage(`[1]`), 1)
	require.NoError(t, err)
	assert.EqualValues(t, 2, updated.Version)

	forced, err := store.Set(ctx, models.KeyStudents, json.RawMessage(`[2]`), models.AnyVersion)
	require.NoError(t, err)
	assert.EqualValues(t, 3, forced.Version)

	got, err := store.Get(ctx, models.KeyStudents)
	require.NoError(t, err)
	assert.Equal(t, `[2]`, string(got.Value))
}

func TestMemoryStateStoreIsolatesCallerBuffers(t *testing.T) {
	store := NewMemoryStateStore()
	ctx := context.Background()

	value := json.RawMessage(`"light"`)
	_, err := store.Set(ctx, models.KeyTheme, value, models.AnyVersion)
	require.NoError(t, err)
	value[1] = 'X'

	got, err := store.Get(ctx, models.KeyTheme)
	require.NoError(t, err)
	assert.Equal(t, `"light"`, string(got.Value))
}

func TestMemoryStateStoreReplace(t *testing.T) {
	store := NewMemoryStateStore()
	ctx := context.Background()

	_, err := store.Set(ctx, models.KeyTheme, json.RawMessage(`"dark"`), models.AnyVersion)
	require.NoError(t, err)
	_, err = store.Set(ctx, models.KeyTheme, json.RawMessage(`"light"`), models.AnyVersion)
	require.NoError(t, err)

	require.NoError(t, store.Replace(ctx, map[models.StateKey]json.RawMessage{
		models.KeyClasses: json.RawMessage(`[]`),
	}))

	theme, err := store.Get(ctx, models.KeyTheme)
	require.NoError(t, err)
	assert.Nil(t, theme)

	snapshot, err := store.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snapshot, 1)
	assert.Equal(t, models.KeyClasses, snapshot[0].Key)
	assert.EqualValues(t, 3, snapshot[0].Version)
}
