package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/smk-student-hub/internal/models"
	"github.com/noah-isme/smk-student-hub/pkg/config"
	appErrors "github.com/noah-isme/smk-student-hub/pkg/errors"
)

type fakeFetcher struct {
	docs map[string]map[string]interface{}
	err  error
}

func (f *fakeFetcher) FetchCollection(_ context.Context, name string) (map[string]interface{}, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.docs[name], nil
}

var testRemoteConfig = config.RemoteConfig{Enabled: true, RosterDocument: "roster", ProfileDocument: "profile"}
var testSchoolConfig = config.SchoolConfig{Name: "SMK Negeri 1", EmailDomain: "smkn1.sch.id"}

func TestRosterServiceLocalWhenRemoteDisabled(t *testing.T) {
	state, _ := newTestState(t)
	seedSchool(t, state)
	svc := NewRosterService(state, nil, config.RemoteConfig{}, testSchoolConfig, nil)

	teachers, err := svc.Teachers(context.Background())
	require.NoError(t, err)
	assert.Len(t, teachers, 5)

	profile, err := svc.Profile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "SMK Negeri 1", profile.Name)
	assert.Equal(t, "config", profile.Source)
}

func TestRosterServiceMergesRemoteAndKeepsPasswords(t *testing.T) {
	state, _ := newTestState(t)
	seed(t, state, models.KeyTeachers, []models.Teacher{
		{ID: "t-wali", Name: "Pak Budi", Role: models.RoleHomeroom, PasswordHash: "hash-budi"},
		{ID: "t-old", Name: "Bu Lama", Role: models.RoleStaff},
	})
	fetcher := &fakeFetcher{docs: map[string]map[string]interface{}{
		"roster": {"guru": []interface{}{
			map[string]interface{}{"nama": "Pak Budi", "role": "wali_kelas", "kelas": []interface{}{"c-tkj1"}},
			map[string]interface{}{"id": "t-bk", "name": "Bu Rina", "role": "guru_bk"},
		}},
	}}
	svc := NewRosterService(state, fetcher, testRemoteConfig, testSchoolConfig, nil)

	teachers, err := svc.Teachers(context.Background())
	require.NoError(t, err)
	require.Len(t, teachers, 2)
	assert.Equal(t, "t-wali", teachers[0].ID)
	assert.Equal(t, "hash-budi", teachers[0].PasswordHash)
	assert.Equal(t, []string{"c-tkj1"}, teachers[0].ClassIDs)

	stored, _, err := loadTeachers(context.Background(), state)
	require.NoError(t, err)
	assert.Equal(t, teachers, stored)
}

func TestRosterServiceRemoteErrorIsReturned(t *testing.T) {
	state, _ := newTestState(t)
	seedSchool(t, state)
	fetcher := &fakeFetcher{err: appErrors.Clone(appErrors.ErrRemoteUnavailable, "offline")}
	svc := NewRosterService(state, fetcher, testRemoteConfig, testSchoolConfig, nil)

	_, err := svc.Teachers(context.Background())
	assert.True(t, errors.Is(err, appErrors.ErrRemoteUnavailable))
}

func TestRosterServiceFallsBackOnMissingOrInvalidDocument(t *testing.T) {
	state, _ := newTestState(t)
	seedSchool(t, state)
	svc := NewRosterService(state, &fakeFetcher{docs: map[string]map[string]interface{}{}}, testRemoteConfig, testSchoolConfig, nil)
	teachers, err := svc.Teachers(context.Background())
	require.NoError(t, err)
	assert.Len(t, teachers, 5)

	invalid := &fakeFetcher{docs: map[string]map[string]interface{}{
		"roster": {"teachers": []interface{}{map[string]interface{}{"name": "X", "role": "kepala"}}},
	}}
	svc = NewRosterService(state, invalid, testRemoteConfig, testSchoolConfig, nil)
	teachers, err = svc.Teachers(context.Background())
	require.NoError(t, err)
	assert.Len(t, teachers, 5)
}

func TestRosterServiceProfileWritesThrough(t *testing.T) {
	state, _ := newTestState(t)
	fetcher := &fakeFetcher{docs: map[string]map[string]interface{}{
		"profile": {"nama": "SMK Harapan", "logo": "https://example.org/logo.png"},
	}}
	svc := NewRosterService(state, fetcher, testRemoteConfig, testSchoolConfig, nil)

	profile, err := svc.Profile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "SMK Harapan", profile.Name)
	assert.Equal(t, "remote", profile.Source)

	stored, _, err := Load(context.Background(), state, models.KeySchoolProfile, models.SchoolProfile{})
	require.NoError(t, err)
	assert.Equal(t, "https://example.org/logo.png", stored.LogoURL)
}
