package repository

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/smk-student-hub/internal/models"
)

func newStateMock(t *testing.T) (*PostgresStateStore, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return NewPostgresStateStore(sqlx.NewDb(db, "sqlmock")), mock, func() { db.Close() }
}

func TestPostgresStateStoreGet(t *testing.T) {
	store, mock, cleanup := newStateMock(t)
	defer cleanup()

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT key, value, version, updated_at FROM app_state WHERE key = $1")).
		WithArgs("classes").
		WillReturnRows(sqlmock.NewRows([]string{"key", "value", "version", "updated_at"}).
			AddRow("classes", `[{"id":"c1"}]`, 4, now))

	entry, err := store.Get(context.Background(), models.KeyClasses)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, `[{"id":"c1"}]`, string(entry.Value))
	assert.EqualValues(t, 4, entry.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStateStoreGetMissing(t *testing.T) {
	store, mock, cleanup := newStateMock(t)
	defer cleanup()

	mock.ExpectQuery("SELECT key, value, version, updated_at FROM app_state").
		WithArgs("theme").
		WillReturnRows(sqlmock.NewRows([]string{"key", "value", "version", "updated_at"}))

	entry, err := store.Get(context.Background(), models.KeyTheme)
	require.NoError(t, err)
	assert.Nil(t, entry)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStateStoreSetUnconditional(t *testing.T) {
	store, mock, cleanup := newStateMock(t)
	defer cleanup()

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value")).
		WithArgs("theme", `"dark"`).
		WillReturnRows(sqlmock.NewRows([]string{"version", "updated_at"}).AddRow(2, now))

	entry, err := store.Set(context.Background(), models.KeyTheme, json.RawMessage(`"dark"`), models.AnyVersion)
	require.NoError(t, err)
	assert.EqualValues(t, 2, entry.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStateStoreSetVersionMismatch(t *testing.T) {
	store, mock, cleanup := newStateMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE key = $1 AND version = $3")).
		WithArgs("students", `[]`, int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"version", "updated_at"}))

	_, err := store.Set(context.Background(), models.KeyStudents, json.RawMessage(`[]`), 3)
	assert.ErrorIs(t, err, ErrVersionMismatch)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStateStoreCreateOnlyConflict(t *testing.T) {
	store, mock, cleanup := newStateMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (key) DO NOTHING")).
		WithArgs("students", `[]`).
		WillReturnRows(sqlmock.NewRows([]string{"version", "updated_at"}))

	_, err := store.Set(context.Background(), models.KeyStudents, json.RawMessage(`[]`), 0)
	assert.ErrorIs(t, err, ErrVersionMismatch)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStateStoreSnapshot(t *testing.T) {
	store, mock, cleanup := newStateMock(t)
	defer cleanup()

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT key, value, version, updated_at FROM app_state ORDER BY key")).
		WillReturnRows(sqlmock.NewRows([]string{"key", "value", "version", "updated_at"}).
			AddRow("classes", `[]`, 1, now).
			AddRow("theme", `"light"`, 2, now))

	entries, err := store.Snapshot(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, models.KeyTheme, entries[1].Key)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStateStoreReplace(t *testing.T) {
	store, mock, cleanup := newStateMock(t)
	defer cleanup()

	insert := regexp.QuoteMeta("INSERT INTO app_state (key, value, version, updated_at) VALUES ($1, $2, $3, NOW())")
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(MAX(version), 0) FROM app_state")).
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(7))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM app_state")).WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(insert).WithArgs("classes", `[]`, int64(8)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(insert).WithArgs("students", `[{"nis":"24001"}]`, int64(8)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.Replace(context.Background(), map[models.StateKey]json.RawMessage{
		models.KeyStudents: json.RawMessage(`[{"nis":"24001"}]`),
		models.KeyClasses:  json.RawMessage(`[]`),
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStateStoreReplaceRollsBack(t *testing.T) {
	store, mock, cleanup := newStateMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT COALESCE").WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(1))
	mock.ExpectExec("DELETE FROM app_state").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO app_state").WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := store.Replace(context.Background(), map[models.StateKey]json.RawMessage{
		models.KeyTheme: json.RawMessage(`"dark"`),
	})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
