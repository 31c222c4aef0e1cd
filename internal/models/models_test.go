package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInfractionStatusForwardOnly(t *testing.T) {
	assert.True(t, InfractionReported.CanTransition(InfractionHandledHomeroom))
	assert.True(t, InfractionReported.CanTransition(InfractionClosed))
	assert.True(t, InfractionHandledHomeroom.CanTransition(InfractionEscalatedViceHead))
	assert.False(t, InfractionEscalatedCounselor.CanTransition(InfractionHandledHomeroom))
	assert.False(t, InfractionClosed.CanTransition(InfractionClosed))
	assert.False(t, InfractionReported.CanTransition("ARCHIVED"))
}

func TestInfractionStatusRequiredPermission(t *testing.T) {
	assert.Equal(t, PermHandleInfraction, InfractionHandledHomeroom.RequiredPermission())
	assert.Equal(t, PermEscalateInfraction, InfractionEscalatedViceHead.RequiredPermission())
	assert.Equal(t, PermCloseInfraction, InfractionClosed.RequiredPermission())
}

func TestDateJSON(t *testing.T) {
	d := NewDate(2024, time.July, 15)
	raw, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, `"2024-07-15"`, string(raw))

	var parsed Date
	require.NoError(t, json.Unmarshal(raw, &parsed))
	assert.True(t, d.Equal(parsed.Time))

	require.NoError(t, json.Unmarshal([]byte(`"2024-07-15T08:30:00+07:00"`), &parsed))
	assert.Equal(t, "2024-07-15", parsed.String())

	assert.Error(t, json.Unmarshal([]byte(`"15/07/2024"`), &parsed))
}

func TestParseMonthAndWithin(t *testing.T) {
	from, to, err := ParseMonth("2024-02")
	require.NoError(t, err)
	assert.Equal(t, "2024-02-01", from.String())
	assert.Equal(t, "2024-02-29", to.String())

	assert.True(t, NewDate(2024, time.February, 10).Within(from, to))
	assert.False(t, NewDate(2024, time.March, 1).Within(from, to))
	assert.True(t, NewDate(1999, time.January, 1).Within(Date{}, Date{}))

	_, _, err = ParseMonth("Februari")
	assert.Error(t, err)
}

func TestStateKeys(t *testing.T) {
	keys := StateKeys()
	assert.Len(t, keys, 14)
	assert.Equal(t, KeyStudents, keys[0])

	key, ok := ParseStateKey("komite_status")
	assert.True(t, ok)
	assert.Equal(t, EntityPayments, key.Entity())

	_, ok = ParseStateKey("currentUser")
	assert.False(t, ok)
}

func TestPaymentStatusAndMonths(t *testing.T) {
	assert.Len(t, AcademicMonths, 12)
	assert.Equal(t, "Juli", AcademicMonths[0])
	assert.Equal(t, "Juni", AcademicMonths[11])
	assert.True(t, ValidMonth("Mei"))
	assert.False(t, ValidMonth("May"))

	status := PaymentStatus{}
	status.Set("24001", "Juli", true)
	assert.True(t, status.Paid("24001", "Juli"))
	assert.False(t, status.Paid("24001", "Agustus"))
	assert.False(t, status.Paid("missing", "Juli"))
}

func TestTeacherViewHidesPassword(t *testing.T) {
	view := Teacher{ID: "t1", Name: "Pak Budi", Role: RoleSubject, PasswordHash: "hash"}.View()
	assert.True(t, view.HasPassword)
	assert.Equal(t, "Guru Mata Pelajaran", view.RoleLabel)

	raw, err := json.Marshal(view)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "hash")
}
