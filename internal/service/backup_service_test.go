package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/smk-student-hub/internal/models"
	appErrors "github.com/noah-isme/smk-student-hub/pkg/errors"
)

func TestBackupRoundTripIsByteIdentical(t *testing.T) {
	ctx := context.Background()
	state, _ := newTestState(t)
	seedSchool(t, state)
	seed(t, state, models.KeyTheme, models.ThemeDark)
	backup := NewBackupService(state, nil)

	first, err := backup.Export(ctx)
	require.NoError(t, err)

	restoredState, _ := newTestState(t)
	restored := NewBackupService(restoredState, nil)
	keys, err := restored.Import(ctx, first)
	require.NoError(t, err)
	assert.Contains(t, keys, models.KeyStudents)

	second, err := restored.Export(ctx)
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))
}

func TestBackupRoundTripKeepsStoredBytes(t *testing.T) {
	ctx := context.Background()
	state, _ := newTestState(t)
	stored := `[{"note":"nilai <60 & bolos > 3x"}]`
	_, err := state.SaveRaw(ctx, models.KeyLogCounselor, []byte(stored), models.AnyVersion)
	require.NoError(t, err)

	exported, err := NewBackupService(state, nil).Export(ctx)
	require.NoError(t, err)
	assert.Contains(t, string(exported), "<60 & bolos >")
	assert.NotContains(t, string(exported), "\n")

	restoredState, _ := newTestState(t)
	_, err = NewBackupService(restoredState, nil).Import(ctx, exported)
	require.NoError(t, err)

	entry, err := restoredState.Raw(ctx, models.KeyLogCounselor)
	require.NoError(t, err)
	assert.Equal(t, stored, string(entry.Value))
}

func TestBackupImportRejectsUnknownKeys(t *testing.T) {
	state, _ := newTestState(t)
	seed(t, state, models.KeyTheme, models.ThemeDark)
	backup := NewBackupService(state, nil)

	_, err := backup.Import(context.Background(), []byte(`{"theme":"light","grades":[]}`))
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrUnknownKey.Code, appErr.Code)

	theme, err := NewPreferenceService(state).Theme(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.ThemeDark, theme)
}

func TestBackupImportClearsMissingKeys(t *testing.T) {
	ctx := context.Background()
	state, _ := newTestState(t)
	seedSchool(t, state)
	backup := NewBackupService(state, nil)

	_, err := backup.Import(ctx, []byte(`{"theme":"dark"}`))
	require.NoError(t, err)

	students, version, err := loadStudents(ctx, state)
	require.NoError(t, err)
	assert.Empty(t, students)
	assert.Zero(t, version)
}

func TestBackupImportBumpsVersions(t *testing.T) {
	ctx := context.Background()
	state, _ := newTestState(t)
	seedSchool(t, state)
	seed(t, state, models.KeyClasses, []models.Class{})
	backup := NewBackupService(state, nil)

	_, err := backup.Import(ctx, []byte(`{"theme":"dark","classes":[]}`))
	require.NoError(t, err)

	entry, err := state.Raw(ctx, models.KeyClasses)
	require.NoError(t, err)
	assert.Equal(t, int64(3), entry.Version)
	entry, err = state.Raw(ctx, models.KeyTheme)
	require.NoError(t, err)
	assert.Equal(t, int64(3), entry.Version)
}

func TestBackupImportRejectsNonObject(t *testing.T) {
	state, _ := newTestState(t)
	_, err := NewBackupService(state, nil).Import(context.Background(), []byte(`[1,2]`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}
