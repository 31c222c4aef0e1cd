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

func newAttendanceServiceForTest(t *testing.T) *AttendanceService {
	t.Helper()
	state, _ := newTestState(t)
	seedSchool(t, state)
	svc := NewAttendanceService(state, validator.New(), nil)
	svc.now = fixedNow
	return svc
}

func TestAttendanceServiceRecordOverwritesSameDay(t *testing.T) {
	svc := newAttendanceServiceForTest(t)
	ctx := context.Background()
	req := dto.RecordAttendanceRequest{
		Date: date(t, "2024-08-01"),
		Kind: models.AttendanceStudent,
		Entries: []dto.AttendanceEntry{
			{SubjectID: "24001", Status: models.AttendanceStatusAbsent},
			{SubjectID: "24002", Status: models.AttendanceStatusPresent},
		},
	}
	first, err := svc.Record(ctx, homeroomSession, req)
	require.NoError(t, err)
	require.Len(t, first, 2)

	req.Entries = []dto.AttendanceEntry{{SubjectID: "24001", Status: models.AttendanceStatusSick, Note: "demam"}}
	second, err := svc.Record(ctx, homeroomSession, req)
	require.NoError(t, err)
	assert.Equal(t, first[0].ID, second[0].ID)

	records, err := svc.List(ctx, adminSession, models.AttendanceFilter{})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, models.AttendanceStatusSick, records[0].Status)
}

func TestAttendanceServiceRecordRejectsOutOfScope(t *testing.T) {
	svc := newAttendanceServiceForTest(t)
	ctx := context.Background()

	_, err := svc.Record(ctx, homeroomSession, dto.RecordAttendanceRequest{
		Date: date(t, "2024-08-01"), Kind: models.AttendanceStudent,
		Entries: []dto.AttendanceEntry{{SubjectID: "24003", Status: models.AttendanceStatusPresent}},
	})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = svc.Record(ctx, counselorSession, dto.RecordAttendanceRequest{
		Date: date(t, "2024-08-01"), Kind: models.AttendanceStudent,
		Entries: []dto.AttendanceEntry{{SubjectID: "24003", Status: models.AttendanceStatusPresent}},
	})
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))

	_, err = svc.Record(ctx, adminSession, dto.RecordAttendanceRequest{
		Date: date(t, "2024-08-01"), Kind: models.AttendanceStudent,
		Entries: []dto.AttendanceEntry{{SubjectID: "24003", Status: "X"}},
	})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestAttendanceServiceSummaryReportsNAWithoutSessions(t *testing.T) {
	svc := newAttendanceServiceForTest(t)
	ctx := context.Background()
	for _, day := range []string{"2024-08-01", "2024-08-02", "2024-08-03"} {
		status := models.AttendanceStatusPresent
		if day == "2024-08-02" {
			status = models.AttendanceStatusExcused
		}
		_, err := svc.Record(ctx, adminSession, dto.RecordAttendanceRequest{
			Date: date(t, day), Kind: models.AttendanceStudent,
			Entries: []dto.AttendanceEntry{{SubjectID: "24001", Status: status}},
		})
		require.NoError(t, err)
	}

	summaries, err := svc.Summary(ctx, adminSession, models.AttendanceStudent, "c-tkj1", date(t, "2024-08-01"), date(t, "2024-08-31"))
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, "66.7", summaries[0].Percentage)
	assert.Equal(t, "X TKJ 1", summaries[0].ClassName)
	assert.Equal(t, models.AttendanceNA, summaries[1].Percentage)
}

func TestAttendanceServiceTeacherKind(t *testing.T) {
	svc := newAttendanceServiceForTest(t)
	ctx := context.Background()
	_, err := svc.Record(ctx, staffSession, dto.RecordAttendanceRequest{
		Date: date(t, "2024-08-01"), Kind: models.AttendanceTeacher,
		Entries: []dto.AttendanceEntry{{SubjectID: "t-bk", Status: models.AttendanceStatusPresent}},
	})
	require.NoError(t, err)

	records, err := svc.List(ctx, staffSession, models.AttendanceFilter{Kind: models.AttendanceTeacher})
	require.NoError(t, err)
	require.Len(t, records, 1)

	students, err := svc.List(ctx, staffSession, models.AttendanceFilter{})
	require.NoError(t, err)
	assert.Empty(t, students)
}
