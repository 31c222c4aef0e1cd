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

func TestPaymentServiceSetPaidWritesStatusAndHistory(t *testing.T) {
	state, _ := newTestState(t)
	seedSchool(t, state)
	svc := NewPaymentService(state, nil, nil)
	svc.now = fixedNow
	ctx := context.Background()

	entry, err := svc.SetPaid(ctx, staffSession, "24001", "Juli", true)
	require.NoError(t, err)
	assert.Equal(t, int64(150000), entry.Amount)
	assert.Equal(t, "Bu Sari", entry.RecordedBy)

	status, _, err := loadPaymentStatus(ctx, state)
	require.NoError(t, err)
	assert.True(t, status.Paid("24001", "Juli"))

	history, err := svc.History(ctx, adminSession, "24001")
	require.NoError(t, err)
	require.Len(t, history, 1)

	tally, hit, err := svc.Tally(ctx, adminSession)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, int64(150000), tally.Collected)
	assert.Equal(t, int64(11*150000+12*150000+12*125000), tally.Arrears)
}

func TestPaymentServiceSetPaidValidates(t *testing.T) {
	state, _ := newTestState(t)
	seedSchool(t, state)
	svc := NewPaymentService(state, nil, nil)
	ctx := context.Background()

	_, err := svc.SetPaid(ctx, homeroomSession, "24001", "Juli", true)
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))

	_, err = svc.SetPaid(ctx, staffSession, "24001", "July", true)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = svc.SetPaid(ctx, staffSession, "99999", "Juli", true)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	_, err = svc.SetPaid(ctx, staffSession, "24004", "Juli", true)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestPaymentServiceStatusScopesToHomeroom(t *testing.T) {
	state, _ := newTestState(t)
	seedSchool(t, state)
	svc := NewPaymentService(state, nil, nil)

	status, err := svc.Status(context.Background(), homeroomSession, "")
	require.NoError(t, err)
	require.Len(t, status, 2)
	assert.Len(t, status[0].UnpaidMonths, len(models.AcademicMonths))

	_, err = svc.Status(context.Background(), counselorSession, "")
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))
}
