package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/smk-student-hub/internal/dto"
	"github.com/noah-isme/smk-student-hub/internal/models"
	"github.com/noah-isme/smk-student-hub/internal/repository"
	appErrors "github.com/noah-isme/smk-student-hub/pkg/errors"
)

func TestClassServiceListCountsStudents(t *testing.T) {
	state, _ := newTestState(t)
	seedSchool(t, state)
	svc := NewClassService(state, validator.New(), nil)

	classes, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, classes, 2)
	assert.Equal(t, 2, classes[0].StudentCount)
	assert.Equal(t, 1, classes[1].StudentCount)
}

func TestClassServiceCreateRejectsDuplicateName(t *testing.T) {
	state, _ := newTestState(t)
	seedSchool(t, state)
	svc := NewClassService(state, validator.New(), nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, dto.ClassRequest{Name: "XI TKJ 1", MonthlyFee: 175000})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	_, err = svc.Create(ctx, dto.ClassRequest{Name: "x tkj 1"})
	assert.True(t, errors.Is(err, appErrors.ErrConflict))

	_, err = svc.Create(ctx, dto.ClassRequest{Name: "XII", MonthlyFee: -1})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestClassServiceUpdate(t *testing.T) {
	state, _ := newTestState(t)
	seedSchool(t, state)
	svc := NewClassService(state, validator.New(), nil)

	updated, err := svc.Update(context.Background(), "c-akl1", dto.ClassRequest{Name: "X AKL 2", MonthlyFee: 130000})
	require.NoError(t, err)
	assert.Equal(t, int64(130000), updated.MonthlyFee)

	_, err = svc.Update(context.Background(), "c-akl1", dto.ClassRequest{Name: "X TKJ 1"})
	assert.True(t, errors.Is(err, appErrors.ErrConflict))
}

func TestClassServiceDeleteRefusesPopulatedClass(t *testing.T) {
	state, _ := newTestState(t)
	seedSchool(t, state)
	svc := NewClassService(state, validator.New(), nil)
	ctx := context.Background()

	assert.True(t, errors.Is(svc.Delete(ctx, "c-tkj1"), appErrors.ErrConflict))

	_, err := svc.Create(ctx, dto.ClassRequest{Name: "Empty"})
	require.NoError(t, err)
	classes, err := svc.List(ctx)
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, classes[2].ID))
	assert.True(t, errors.Is(svc.Delete(ctx, classes[2].ID), appErrors.ErrNotFound))
}

// interleavingStore runs onGet before each read so a test can land a write between two reads.
type interleavingStore struct {
	repository.StateStore
	onGet func(key models.StateKey)
}

func (s *interleavingStore) Get(ctx context.Context, key models.StateKey) (*models.StateEntry, error) {
	if s.onGet != nil {
		s.onGet(key)
	}
	return s.StateStore.Get(ctx, key)
}

func TestClassServiceDeleteSeesStudentAddedDuringDelete(t *testing.T) {
	ctx := context.Background()
	memory := repository.NewMemoryStateStore()
	store := &interleavingStore{StateStore: memory}
	state := NewStateService(store, nil, nil, nil)
	seedSchool(t, state)
	svc := NewClassService(state, validator.New(), nil)

	created, err := svc.Create(ctx, dto.ClassRequest{Name: "XII RPL 1"})
	require.NoError(t, err)

	var once sync.Once
	store.onGet = func(key models.StateKey) {
		if key != models.KeyClasses {
			return
		}
		once.Do(func() {
			raw, err := json.Marshal([]models.Student{{ID: "s-baru", NIS: "24999", Name: "Siswa Baru", ClassID: created.ID}})
			require.NoError(t, err)
			_, err = memory.Set(ctx, models.KeyStudents, raw, models.AnyVersion)
			require.NoError(t, err)
		})
	}

	assert.True(t, errors.Is(svc.Delete(ctx, created.ID), appErrors.ErrConflict))

	classes, err := svc.List(ctx)
	require.NoError(t, err)
	ids := make([]string, 0, len(classes))
	for _, class := range classes {
		ids = append(ids, class.ID)
	}
	assert.Contains(t, ids, created.ID)
}
