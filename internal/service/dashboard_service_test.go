package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/smk-student-hub/internal/dto"
	"github.com/noah-isme/smk-student-hub/internal/models"
	appErrors "github.com/noah-isme/smk-student-hub/pkg/errors"
)

func seedDashboard(t *testing.T, state *StateService) {
	t.Helper()
	infractions := NewInfractionService(state, nil, validator.New(), nil)
	for _, entry := range []struct {
		day    string
		nis    string
		points int
	}{
		{"2024-07-20", "24003", 30},
		{"2024-08-01", "24001", 5},
		{"2024-08-02", "24001", 10},
		{"2024-08-03", "24002", 60},
	} {
		_, err := infractions.Create(context.Background(), adminSession, dto.CreateInfractionRequest{
			Date: date(t, entry.day), NIS: entry.nis, Description: "Pelanggaran", Points: entry.points,
		})
		require.NoError(t, err)
	}
	attendance := NewAttendanceService(state, validator.New(), nil)
	_, err := attendance.Record(context.Background(), adminSession, dto.RecordAttendanceRequest{
		Date: date(t, "2024-08-05"), Kind: models.AttendanceStudent,
		Entries: []dto.AttendanceEntry{
			{SubjectID: "24001", Status: models.AttendanceStatusPresent},
			{SubjectID: "24002", Status: models.AttendanceStatusAbsent},
			{SubjectID: "24003", Status: models.AttendanceStatusPresent},
		},
	})
	require.NoError(t, err)
}

func TestDashboardServiceAdmin(t *testing.T) {
	state, _ := newTestState(t)
	seedSchool(t, state)
	seedDashboard(t, state)
	svc := NewDashboardService(state, nil, nil, DashboardServiceConfig{})

	resp, hit, err := svc.Get(context.Background(), adminSession, "2024-08")
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 4, resp.Counts.Students)
	assert.Equal(t, 2, resp.Counts.Classes)
	assert.Equal(t, 5, resp.Counts.Teachers)
	assert.Equal(t, 3, resp.Counts.Infractions)
	assert.Equal(t, 4, resp.ByStatus[string(models.InfractionReported)])
	require.Len(t, resp.TopPoints, 3)
	assert.Equal(t, "24002", resp.TopPoints[0].NIS)
	assert.Equal(t, 1, resp.RiskBands[models.RiskHigh])
	assert.Equal(t, 1, resp.RiskBands[models.RiskMedium])
	assert.Equal(t, 1, resp.RiskBands[models.RiskLow])
	assert.Equal(t, "66.7", resp.Attendance.Percentage)
	require.NotNil(t, resp.Payments)
	require.Len(t, resp.Recent, 3)
	assert.Equal(t, "2024-08-03", resp.Recent[0].Date.String())
}

func TestDashboardServiceScopesByRole(t *testing.T) {
	state, _ := newTestState(t)
	seedSchool(t, state)
	seedDashboard(t, state)
	svc := NewDashboardService(state, nil, nil, DashboardServiceConfig{})

	resp, _, err := svc.Get(context.Background(), counselorSession, "2024-08")
	require.NoError(t, err)
	assert.Nil(t, resp.Payments)

	resp, _, err = svc.Get(context.Background(), homeroomSession, "2024-08")
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Counts.Students)
	assert.Equal(t, "50.0", resp.Attendance.Percentage)
	require.NotNil(t, resp.Payments)
}

func TestDashboardServiceCachesPerMonth(t *testing.T) {
	state, _ := newTestState(t)
	seedSchool(t, state)
	cache := NewCacheService(newMemoryCache(), nil, time.Minute, nil, true)
	svc := NewDashboardService(state, cache, nil, DashboardServiceConfig{})

	_, hit, err := svc.Get(context.Background(), adminSession, "2024-08")
	require.NoError(t, err)
	assert.False(t, hit)
	_, hit, err = svc.Get(context.Background(), adminSession, "2024-08")
	require.NoError(t, err)
	assert.True(t, hit)
	_, hit, err = svc.Get(context.Background(), adminSession, "2024-09")
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestDashboardServiceRejectsBadMonth(t *testing.T) {
	state, _ := newTestState(t)
	svc := NewDashboardService(state, nil, nil, DashboardServiceConfig{})
	_, _, err := svc.Get(context.Background(), adminSession, "Agustus")
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}
