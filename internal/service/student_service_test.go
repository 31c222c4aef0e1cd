package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/smk-student-hub/internal/dto"
	"github.com/noah-isme/smk-student-hub/internal/models"
	appErrors "github.com/noah-isme/smk-student-hub/pkg/errors"
)

func newStudentServiceForTest(t *testing.T) (*StudentService, *StateService) {
	t.Helper()
	state, _ := newTestState(t)
	seedSchool(t, state)
	svc := NewStudentService(state, validator.New(), zap.NewNop())
	svc.now = fixedNow
	return svc, state
}

func TestStudentServiceListIncludesDanglingClassOnlyUnfiltered(t *testing.T) {
	svc, _ := newStudentServiceForTest(t)
	ctx := context.Background()

	all, pagination, err := svc.List(ctx, adminSession, models.StudentFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 4)
	assert.Equal(t, 4, pagination.TotalCount)

	tkj, _, err := svc.List(ctx, adminSession, models.StudentFilter{ClassID: "c-tkj1"})
	require.NoError(t, err)
	assert.Len(t, tkj, 2)
	assert.Equal(t, "X TKJ 1", tkj[0].ClassName)

	dangling, _, err := svc.List(ctx, adminSession, models.StudentFilter{ClassID: "c-gone"})
	require.NoError(t, err)
	assert.Empty(t, dangling)
}

func TestStudentServiceListScopesByRole(t *testing.T) {
	svc, _ := newStudentServiceForTest(t)
	ctx := context.Background()

	homeroom, _, err := svc.List(ctx, homeroomSession, models.StudentFilter{})
	require.NoError(t, err)
	assert.Len(t, homeroom, 2)

	subject, _, err := svc.List(ctx, subjectSession, models.StudentFilter{})
	require.NoError(t, err)
	require.Len(t, subject, 1)
	assert.Equal(t, "24003", subject[0].NIS)

	companion, _, err := svc.List(ctx, companionSession, models.StudentFilter{})
	require.NoError(t, err)
	require.Len(t, companion, 1)
	assert.Equal(t, "24002", companion[0].NIS)

	_, err = svc.Get(ctx, companionSession, "s-1")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestStudentServiceSearchAndPaginate(t *testing.T) {
	svc, _ := newStudentServiceForTest(t)
	found, _, err := svc.List(context.Background(), adminSession, models.StudentFilter{Search: "ahmad"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "24001", found[0].NIS)

	page, pagination, err := svc.List(context.Background(), adminSession, models.StudentFilter{Page: 2, PageSize: 3})
	require.NoError(t, err)
	assert.Len(t, page, 1)
	assert.Equal(t, 2, pagination.Page)
}

func TestStudentServiceCreateRejectsDuplicateNIS(t *testing.T) {
	svc, _ := newStudentServiceForTest(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, dto.CreateStudentRequest{NIS: "24010", Name: " Eka Putri ", ClassID: "c-akl1", Sex: models.SexFemale})
	require.NoError(t, err)
	assert.Equal(t, "Eka Putri", created.Name)
	assert.Equal(t, fixedNow(), created.CreatedAt)

	_, err = svc.Create(ctx, dto.CreateStudentRequest{NIS: "24001", Name: "Other", ClassID: "c-akl1", Sex: models.SexMale})
	assert.True(t, errors.Is(err, appErrors.ErrConflict))
}

func TestStudentServiceCreateValidates(t *testing.T) {
	svc, _ := newStudentServiceForTest(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, dto.CreateStudentRequest{NIS: "abc", Name: "X", ClassID: "c-akl1", Sex: models.SexMale})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = svc.Create(ctx, dto.CreateStudentRequest{NIS: "24011", Name: "X", ClassID: "c-none", Sex: models.SexMale})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestStudentServiceUpdateKeepsNIS(t *testing.T) {
	svc, _ := newStudentServiceForTest(t)
	updated, err := svc.Update(context.Background(), "s-1", dto.UpdateStudentRequest{Name: "Ahmad F.", ClassID: "c-akl1", Sex: models.SexMale})
	require.NoError(t, err)
	assert.Equal(t, "24001", updated.NIS)
	assert.Equal(t, "c-akl1", updated.ClassID)

	_, err = svc.Update(context.Background(), "missing", dto.UpdateStudentRequest{Name: "X", ClassID: "c-akl1", Sex: models.SexMale})
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestStudentServiceDelete(t *testing.T) {
	svc, state := newStudentServiceForTest(t)
	ctx := context.Background()
	require.NoError(t, svc.Delete(ctx, "s-2"))

	students, _, err := loadStudents(ctx, state)
	require.NoError(t, err)
	assert.Len(t, students, 3)
	assert.True(t, errors.Is(svc.Delete(ctx, "s-2"), appErrors.ErrNotFound))
}

func TestStudentServiceExportCSV(t *testing.T) {
	svc, _ := newStudentServiceForTest(t)
	data, err := svc.ExportCSV(context.Background(), homeroomSession)
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "NIS;Nama;Kelas;L/P;Alamat")
	assert.Contains(t, content, "24001;Ahmad Fauzi;X TKJ 1;L")
	assert.False(t, strings.Contains(content, "24003"))
}
