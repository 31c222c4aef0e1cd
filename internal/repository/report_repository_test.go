package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/smk-student-hub/internal/models"
)

func newReportRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestReportRepositoryCreateAndGet(t *testing.T) {
	db, mock, cleanup := newReportRepoMock(t)
	defer cleanup()

	repo := NewReportRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO report_jobs")).
		WithArgs(sqlmock.AnyArg(), "roster", sqlmock.AnyArg(), "QUEUED", 0, nil, nil, "admin", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	job := &models.ReportJob{
		Type:      models.ReportTypeRoster,
		Params:    models.ReportJobParams{Format: models.ReportFormatXLSX, Role: models.RoleAdmin},
		CreatedBy: "admin",
	}
	require.NoError(t, repo.Create(context.Background(), job))
	require.NotEmpty(t, job.ID)

	rows := sqlmock.NewRows([]string{"id", "type", "params", "status", "progress", "result_url", "file_path", "created_by", "created_at", "finished_at", "error_message"}).
		AddRow(job.ID, "roster", `{"format":"xlsx","role":"admin"}`, "QUEUED", 0, nil, nil, "admin", time.Now(), nil, nil)
	mock.ExpectQuery(regexp.QuoteMeta("FROM report_jobs WHERE id = $1")).
		WithArgs(job.ID).
		WillReturnRows(rows)

	fetched, err := repo.GetByID(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.ID, fetched.ID)
	assert.Equal(t, models.ReportFormatXLSX, fetched.Params.Format)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepositoryGetMissing(t *testing.T) {
	db, mock, cleanup := newReportRepoMock(t)
	defer cleanup()

	mock.ExpectQuery("FROM report_jobs WHERE id").
		WithArgs("nope").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := NewReportRepository(db).GetByID(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrReportJobNotFound)
}

func TestReportRepositoryUpdate(t *testing.T) {
	db, mock, cleanup := newReportRepoMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	now := time.Now()
	status := models.ReportStatusFinished
	progress := 100
	result := "/api/v1/export/token"
	mock.ExpectExec(regexp.QuoteMeta("UPDATE report_jobs SET status = $1, progress = $2, result_url = $3, finished_at = $4 WHERE id = $5")).
		WithArgs(status, progress, result, now, "job-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Update(context.Background(), "job-1", UpdateReportJobParams{
		Status:     &status,
		Progress:   &progress,
		ResultURL:  &result,
		FinishedAt: &now,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepositoryUpdateNoop(t *testing.T) {
	db, mock, cleanup := newReportRepoMock(t)
	defer cleanup()

	require.NoError(t, NewReportRepository(db).Update(context.Background(), "job-1", UpdateReportJobParams{}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMemoryReportRepositoryLifecycle(t *testing.T) {
	repo := NewMemoryReportRepository()
	ctx := context.Background()

	job := &models.ReportJob{Type: models.ReportTypeMonthly, CreatedBy: "admin"}
	require.NoError(t, repo.Create(ctx, job))

	finished := time.Now().Add(-2 * time.Hour)
	status := models.ReportStatusFinished
	path := "reports/x.pdf"
	require.NoError(t, repo.Update(ctx, job.ID, UpdateReportJobParams{Status: &status, FinishedAt: &finished, FilePath: &path}))

	got, err := repo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusFinished, got.Status)
	assert.Equal(t, path, *got.FilePath)

	old, err := repo.ListFinishedBefore(ctx, time.Now().Add(-time.Hour), 10)
	require.NoError(t, err)
	assert.Len(t, old, 1)

	assert.ErrorIs(t, repo.Update(ctx, "missing", UpdateReportJobParams{}), ErrReportJobNotFound)
}
