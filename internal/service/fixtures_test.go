package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/smk-student-hub/internal/models"
	"github.com/noah-isme/smk-student-hub/internal/repository"
)

var (
	adminSession     = models.Session{Name: "Administrator", Role: models.RoleAdmin}
	staffSession     = models.Session{Name: "Bu Sari", TeacherID: "t-tu", Role: models.RoleStaff}
	homeroomSession  = models.Session{Name: "Pak Budi", TeacherID: "t-wali", Role: models.RoleHomeroom}
	counselorSession = models.Session{Name: "Bu Rina", TeacherID: "t-bk", Role: models.RoleCounselor}
	subjectSession   = models.Session{Name: "Pak Dedi", TeacherID: "t-mapel", Role: models.RoleSubject}
	companionSession = models.Session{Name: "Bu Wati", TeacherID: "t-pendamping", Role: models.RoleCompanion}
)

func newTestState(t *testing.T) (*StateService, *repository.MemoryStateStore) {
	t.Helper()
	store := repository.NewMemoryStateStore()
	return NewStateService(store, nil, nil, nil), store
}

func seed(t *testing.T, state *StateService, key models.StateKey, value interface{}) {
	t.Helper()
	_, err := state.Save(context.Background(), key, value, models.AnyVersion)
	require.NoError(t, err)
}

// seedSchool loads two classes, four students and the staff used across tests.
func seedSchool(t *testing.T, state *StateService) {
	t.Helper()
	seed(t, state, models.KeyClasses, []models.Class{
		{ID: "c-tkj1", Name: "X TKJ 1", MonthlyFee: 150000},
		{ID: "c-akl1", Name: "X AKL 1", MonthlyFee: 125000},
	})
	seed(t, state, models.KeyStudents, []models.Student{
		{ID: "s-1", NIS: "24001", Name: "Ahmad Fauzi", ClassID: "c-tkj1", Sex: models.SexMale},
		{ID: "s-2", NIS: "24002", Name: "Budi Santoso", ClassID: "c-tkj1", Sex: models.SexMale},
		{ID: "s-3", NIS: "24003", Name: "Citra Lestari", ClassID: "c-akl1", Sex: models.SexFemale},
		{ID: "s-4", NIS: "24004", Name: "Dewi Anggraini", ClassID: "c-gone", Sex: models.SexFemale},
	})
	seed(t, state, models.KeyTeachers, []models.Teacher{
		{ID: "t-tu", Name: "Bu Sari", Role: models.RoleStaff},
		{ID: "t-wali", Name: "Pak Budi", Role: models.RoleHomeroom, ClassIDs: []string{"c-tkj1"}},
		{ID: "t-bk", Name: "Bu Rina", Role: models.RoleCounselor},
		{ID: "t-mapel", Name: "Pak Dedi", Role: models.RoleSubject, Schedule: []models.ScheduleEntry{
			{Day: "Senin", Start: "07:00", End: "08:30", ClassID: "c-akl1", Subject: "Matematika"},
		}},
		{ID: "t-pendamping", Name: "Bu Wati", Role: models.RoleCompanion, StudentNIS: []string{"24002"}},
	})
}

func date(t *testing.T, raw string) models.Date {
	t.Helper()
	d, err := models.ParseDate(raw)
	require.NoError(t, err)
	return d
}

func fixedNow() time.Time {
	return time.Date(2024, time.August, 15, 9, 0, 0, 0, time.UTC)
}
