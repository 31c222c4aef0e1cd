package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/smk-student-hub/internal/models"
	"github.com/noah-isme/smk-student-hub/pkg/config"
	"github.com/noah-isme/smk-student-hub/pkg/remote"
)

// RosterService reads the login roster and school profile, preferring the remote document store when configured.
// Remote results are written through so every other reader uses the local namespace.
type RosterService struct {
	state   *StateService
	fetcher remote.Fetcher
	remote  config.RemoteConfig
	school  config.SchoolConfig
	logger  *zap.Logger
	now     func() time.Time
}

// NewRosterService constructs the roster service. fetcher may be nil when remote sync is disabled.
func NewRosterService(state *StateService, fetcher remote.Fetcher, remoteCfg config.RemoteConfig, school config.SchoolConfig, logger *zap.Logger) *RosterService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RosterService{
		state:   state,
		fetcher: fetcher,
		remote:  remoteCfg,
		school:  school,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// remoteTeacher accepts both the English and Indonesian field names seen in roster documents.
type remoteTeacher struct {
	ID         string                 `json:"id"`
	Name       string                 `json:"name"`
	Nama       string                 `json:"nama"`
	Role       string                 `json:"role"`
	ClassIDs   []string               `json:"class_ids"`
	Kelas      []string               `json:"kelas"`
	StudentNIS []string               `json:"student_nis"`
	Schedule   []models.ScheduleEntry `json:"schedule"`
}

type remoteRoster struct {
	Teachers []remoteTeacher `json:"teachers"`
	Guru     []remoteTeacher `json:"guru"`
}

// Teachers returns the roster. With remote enabled a fetch error is returned as is, without falling back.
func (s *RosterService) Teachers(ctx context.Context) ([]models.Teacher, error) {
	if s.fetcher == nil {
		teachers, _, err := loadTeachers(ctx, s.state)
		return teachers, err
	}
	doc, err := s.fetcher.FetchCollection(ctx, s.remote.RosterDocument)
	if err != nil {
		s.logger.Warn("remote roster fetch failed", zap.Error(err))
		return nil, err
	}
	if doc == nil {
		teachers, _, err := loadTeachers(ctx, s.state)
		return teachers, err
	}
	fetched, err := decodeRoster(doc)
	if err != nil {
		s.logger.Warn("remote roster could not be decoded, using local roster", zap.Error(err))
		teachers, _, err := loadTeachers(ctx, s.state)
		return teachers, err
	}
	return mutate(ctx, s.state, models.KeyTeachers, emptyTeachers, func(local *[]models.Teacher) error {
		*local = mergeRoster(*local, fetched, s.now())
		return nil
	})
}

// Profile returns the school identity, refreshing it from the remote profile document when configured.
func (s *RosterService) Profile(ctx context.Context) (models.SchoolProfile, error) {
	fallback := models.SchoolProfile{Name: s.school.Name, LogoURL: s.school.LogoURL, Source: "config"}
	local, _, err := Load(ctx, s.state, models.KeySchoolProfile, fallback)
	if err != nil {
		return fallback, err
	}
	if s.fetcher == nil {
		return local, nil
	}
	doc, err := s.fetcher.FetchCollection(ctx, s.remote.ProfileDocument)
	if err != nil {
		return local, err
	}
	if doc == nil {
		return local, nil
	}
	profile := models.SchoolProfile{
		Name:      firstString(doc, "name", "nama"),
		LogoURL:   firstString(doc, "logo_url", "logo"),
		Source:    "remote",
		UpdatedAt: s.now(),
	}
	if profile.Name == "" {
		profile.Name = local.Name
	}
	if _, err := s.state.Save(ctx, models.KeySchoolProfile, profile, models.AnyVersion); err != nil {
		return profile, err
	}
	return profile, nil
}

func decodeRoster(doc map[string]interface{}) ([]remoteTeacher, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var roster remoteRoster
	if err := json.Unmarshal(raw, &roster); err != nil {
		return nil, err
	}
	entries := roster.Teachers
	if len(entries) == 0 {
		entries = roster.Guru
	}
	for _, entry := range entries {
		if _, err := models.ParseRole(entry.Role); err != nil {
			return nil, fmt.Errorf("teacher %q: %w", entry.displayName(), err)
		}
	}
	return entries, nil
}

func (t remoteTeacher) displayName() string {
	if t.Name != "" {
		return t.Name
	}
	return t.Nama
}

// mergeRoster replaces local records with the remote roster, keeping local password hashes by id or name.
func mergeRoster(local []models.Teacher, fetched []remoteTeacher, now time.Time) []models.Teacher {
	byID := make(map[string]models.Teacher, len(local))
	byName := make(map[string]models.Teacher, len(local))
	for _, teacher := range local {
		byID[teacher.ID] = teacher
		byName[strings.ToLower(teacher.Name)] = teacher
	}
	merged := make([]models.Teacher, 0, len(fetched))
	for _, entry := range fetched {
		name := strings.TrimSpace(entry.displayName())
		previous, ok := byID[entry.ID]
		if !ok || entry.ID == "" {
			previous, ok = byName[strings.ToLower(name)]
		}
		teacher := models.Teacher{
			ID:         entry.ID,
			Name:       name,
			Role:       models.RoleKey(entry.Role),
			ClassIDs:   entry.ClassIDs,
			StudentNIS: entry.StudentNIS,
			Schedule:   entry.Schedule,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if len(teacher.ClassIDs) == 0 {
			teacher.ClassIDs = entry.Kelas
		}
		if ok {
			teacher.PasswordHash = previous.PasswordHash
			teacher.CreatedAt = previous.CreatedAt
			if teacher.ID == "" {
				teacher.ID = previous.ID
			}
		}
		if teacher.ID == "" {
			teacher.ID = "remote-" + strings.ReplaceAll(strings.ToLower(name), " ", "-")
		}
		merged = append(merged, teacher)
	}
	return merged
}

func firstString(doc map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		if value, ok := doc[key].(string); ok && value != "" {
			return value
		}
	}
	return ""
}
