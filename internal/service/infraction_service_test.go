package service

import (
	"context"
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/smk-student-hub/internal/dto"
	"github.com/noah-isme/smk-student-hub/internal/models"
	appErrors "github.com/noah-isme/smk-student-hub/pkg/errors"
)

func newInfractionServiceForTest(t *testing.T, cache *CacheService) (*InfractionService, *StateService) {
	t.Helper()
	state, _ := newTestState(t)
	seedSchool(t, state)
	svc := NewInfractionService(state, cache, validator.New(), nil)
	svc.now = fixedNow
	return svc, state
}

func recordInfraction(t *testing.T, svc *InfractionService, session models.Session, day, nis string, points int) *models.Infraction {
	t.Helper()
	infraction, err := svc.Create(context.Background(), session, dto.CreateInfractionRequest{
		Date:        date(t, day),
		NIS:         nis,
		Description: "Terlambat masuk kelas",
		Points:      points,
	})
	require.NoError(t, err)
	return infraction
}

func TestInfractionServiceRollupScenario(t *testing.T) {
	svc, _ := newInfractionServiceForTest(t, nil)
	recordInfraction(t, svc, adminSession, "2024-08-01", "24001", 5)
	recordInfraction(t, svc, adminSession, "2024-08-02", "24001", 10)
	recordInfraction(t, svc, adminSession, "2024-08-03", "24003", 10)

	rollup, hit, err := svc.Rollup(context.Background(), adminSession, "")
	require.NoError(t, err)
	assert.False(t, hit)
	require.Len(t, rollup, 2)
	assert.Equal(t, models.PointRollup{
		NIS: "24001", Name: "Ahmad Fauzi", ClassID: "c-tkj1", ClassName: "X TKJ 1",
		TotalPoints: 15, InfractionCount: 2, Band: models.RiskLow,
	}, rollup[0])
	assert.Equal(t, "24003", rollup[1].NIS)

	byClass, _, err := svc.Rollup(context.Background(), adminSession, "c-akl1")
	require.NoError(t, err)
	require.Len(t, byClass, 1)
	assert.Equal(t, "24003", byClass[0].NIS)
}

func TestInfractionServiceCreateChecksScope(t *testing.T) {
	svc, _ := newInfractionServiceForTest(t, nil)
	ctx := context.Background()

	created := recordInfraction(t, svc, homeroomSession, "2024-08-01", "24002", 5)
	assert.Equal(t, models.InfractionReported, created.Status)
	assert.Equal(t, "Pak Budi", created.Reporter)
	require.Len(t, created.History, 1)

	_, err := svc.Create(ctx, homeroomSession, dto.CreateInfractionRequest{Date: date(t, "2024-08-01"), NIS: "24003", Description: "x", Points: 1})
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))

	_, err = svc.Create(ctx, adminSession, dto.CreateInfractionRequest{Date: date(t, "2024-08-01"), NIS: "99999", Description: "x", Points: 1})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = svc.Create(ctx, adminSession, dto.CreateInfractionRequest{NIS: "24001", Description: "x", Points: 1})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = svc.Create(ctx, staffSession, dto.CreateInfractionRequest{Date: date(t, "2024-08-01"), NIS: "24001", Description: "x", Points: 1})
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))
}

func TestInfractionServiceStatusMovesForwardOnly(t *testing.T) {
	svc, _ := newInfractionServiceForTest(t, nil)
	ctx := context.Background()
	infraction := recordInfraction(t, svc, adminSession, "2024-08-01", "24001", 20)

	updated, err := svc.UpdateStatus(ctx, homeroomSession, infraction.ID, dto.InfractionStatusRequest{Status: models.InfractionHandledHomeroom, Note: "dipanggil"})
	require.NoError(t, err)
	assert.Equal(t, models.InfractionHandledHomeroom, updated.Status)
	assert.Len(t, updated.History, 2)

	_, err = svc.UpdateStatus(ctx, homeroomSession, infraction.ID, dto.InfractionStatusRequest{Status: models.InfractionClosed})
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))

	_, err = svc.UpdateStatus(ctx, counselorSession, infraction.ID, dto.InfractionStatusRequest{Status: models.InfractionClosed})
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, adminSession, infraction.ID, dto.InfractionStatusRequest{Status: models.InfractionEscalatedViceHead})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestInfractionServiceListNewestFirstAndDropsDangling(t *testing.T) {
	svc, state := newInfractionServiceForTest(t, nil)
	recordInfraction(t, svc, adminSession, "2024-08-01", "24001", 5)
	recordInfraction(t, svc, adminSession, "2024-08-05", "24002", 5)
	recordInfraction(t, svc, adminSession, "2024-08-03", "24003", 5)
	require.NoError(t, NewStudentService(state, validator.New(), nil).Delete(context.Background(), "s-3"))

	views, err := svc.List(context.Background(), adminSession, models.InfractionFilter{})
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, "24002", views[0].NIS)
	assert.Equal(t, "24001", views[1].NIS)

	ranged, err := svc.List(context.Background(), adminSession, models.InfractionFilter{From: date(t, "2024-08-02"), To: date(t, "2024-08-31")})
	require.NoError(t, err)
	require.Len(t, ranged, 1)
}

func TestInfractionServiceDeleteRequiresClosePermission(t *testing.T) {
	svc, _ := newInfractionServiceForTest(t, nil)
	ctx := context.Background()
	infraction := recordInfraction(t, svc, adminSession, "2024-08-01", "24001", 5)

	assert.True(t, errors.Is(svc.Delete(ctx, homeroomSession, infraction.ID), appErrors.ErrForbidden))
	require.NoError(t, svc.Delete(ctx, counselorSession, infraction.ID))
	assert.True(t, errors.Is(svc.Delete(ctx, counselorSession, infraction.ID), appErrors.ErrNotFound))
}

func TestInfractionServiceRollupCSV(t *testing.T) {
	svc, _ := newInfractionServiceForTest(t, nil)
	recordInfraction(t, svc, adminSession, "2024-08-01", "24001", 60)

	data, err := svc.RollupCSV(context.Background(), adminSession, "")
	require.NoError(t, err)
	assert.Contains(t, string(data), "Peringkat;NIS;Nama;Kelas;Total Poin;Jumlah Pelanggaran;Kategori")
	assert.Contains(t, string(data), "1;24001;Ahmad Fauzi;X TKJ 1;60;1;high")
}
