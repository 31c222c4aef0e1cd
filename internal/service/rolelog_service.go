package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/smk-student-hub/internal/dto"
	"github.com/noah-isme/smk-student-hub/internal/models"
	appErrors "github.com/noah-isme/smk-student-hub/pkg/errors"
)

// RoleLogService keeps the per-role journals (BK, wali kelas, tata tertib, pendamping).
type RoleLogService struct {
	state     *StateService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewRoleLogService constructs the role log service.
func NewRoleLogService(state *StateService, validate *validator.Validate, logger *zap.Logger) *RoleLogService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RoleLogService{state: state, validator: validate, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// List returns a journal, newest first. Roles read their own journal; admin and wakasek read all.
func (s *RoleLogService) List(ctx context.Context, session models.Session, kind models.LogKind) ([]models.LogEntry, error) {
	scope, err := ResolveScope(ctx, s.state, session)
	if err != nil {
		return nil, err
	}
	if !canReadLog(scope, kind) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "journal belongs to another role")
	}
	entries, _, err := Load(ctx, s.state, kind.StateKey(), []models.LogEntry{})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Date.After(entries[j].Date.Time)
	})
	return entries, nil
}

// Append writes a note to the journal of the session's role.
func (s *RoleLogService) Append(ctx context.Context, session models.Session, kind models.LogKind, req dto.LogEntryRequest) (*models.LogEntry, error) {
	scope, err := ResolveScope(ctx, s.state, session)
	if err != nil {
		return nil, err
	}
	if err := requirePermission(scope, models.PermWriteLogs); err != nil {
		return nil, err
	}
	if own, ok := scope.Role.LogKind(); scope.Role.Key() != models.RoleAdmin && (!ok || own != kind) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "journal belongs to another role")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid log payload")
	}
	if req.Date.IsZero() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date is required")
	}
	if req.NIS != "" {
		students, _, err := loadStudents(ctx, s.state)
		if err != nil {
			return nil, err
		}
		if _, ok := studentIndex(scope.Students(students))[req.NIS]; !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, "student "+req.NIS+" is unknown or outside your scope")
		}
	}
	entry := models.LogEntry{
		ID:        uuid.NewString(),
		Date:      req.Date,
		NIS:       req.NIS,
		Title:     strings.TrimSpace(req.Title),
		Note:      strings.TrimSpace(req.Note),
		Author:    scope.Actor(),
		CreatedAt: s.now(),
	}
	_, err = mutate(ctx, s.state, kind.StateKey(), emptyLog, func(entries *[]models.LogEntry) error {
		*entries = append(*entries, entry)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("role log appended", zap.String("kind", string(kind)), zap.String("entry_id", entry.ID))
	return &entry, nil
}

func canReadLog(scope Scope, kind models.LogKind) bool {
	switch scope.Role.Key() {
	case models.RoleAdmin, models.RoleViceHead:
		return true
	}
	own, ok := scope.Role.LogKind()
	return ok && own == kind
}

func emptyLog() []models.LogEntry { return []models.LogEntry{} }
