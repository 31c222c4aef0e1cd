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

// AttendanceService records daily H/S/I/A statuses for students and teachers.
type AttendanceService struct {
	state     *StateService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewAttendanceService constructs the attendance service.
func NewAttendanceService(state *StateService, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceService{state: state, validator: validate, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// Record stores one day of attendance. An existing record for the same day and subject is overwritten.
func (s *AttendanceService) Record(ctx context.Context, session models.Session, req dto.RecordAttendanceRequest) ([]models.AttendanceRecord, error) {
	scope, err := ResolveScope(ctx, s.state, session)
	if err != nil {
		return nil, err
	}
	if err := requirePermission(scope, models.PermRecordAttendance); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload")
	}
	if req.Date.IsZero() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date is required")
	}
	allowed, err := s.subjects(ctx, scope, req.Kind)
	if err != nil {
		return nil, err
	}
	for _, entry := range req.Entries {
		if _, ok := allowed[entry.SubjectID]; !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown or out of scope subject "+entry.SubjectID)
		}
	}

	now := s.now()
	saved := make([]models.AttendanceRecord, 0, len(req.Entries))
	_, err = mutate(ctx, s.state, models.KeyAttendance, emptyAttendance, func(records *[]models.AttendanceRecord) error {
		saved = saved[:0]
		for _, entry := range req.Entries {
			record := models.AttendanceRecord{
				ID:         uuid.NewString(),
				Date:       req.Date,
				SubjectID:  entry.SubjectID,
				Kind:       req.Kind,
				Status:     entry.Status,
				Note:       strings.TrimSpace(entry.Note),
				RecordedBy: scope.Actor(),
				CreatedAt:  now,
			}
			replaced := false
			for i := range *records {
				current := &(*records)[i]
				if current.Kind == record.Kind && current.SubjectID == record.SubjectID && current.Date.Equal(record.Date.Time) {
					record.ID = current.ID
					*current = record
					replaced = true
					break
				}
			}
			if !replaced {
				*records = append(*records, record)
			}
			saved = append(saved, record)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("attendance recorded", zap.String("date", req.Date.String()), zap.String("kind", string(req.Kind)), zap.Int("entries", len(saved)))
	return saved, nil
}

// List returns records the session may view, ordered by date then subject.
func (s *AttendanceService) List(ctx context.Context, session models.Session, filter models.AttendanceFilter) ([]models.AttendanceRecord, error) {
	scope, err := ResolveScope(ctx, s.state, session)
	if err != nil {
		return nil, err
	}
	if err := requirePermission(scope, models.PermViewAttendance); err != nil {
		return nil, err
	}
	kind := filter.Kind
	if kind == "" {
		kind = models.AttendanceStudent
	}
	allowed, err := s.subjects(ctx, scope, kind)
	if err != nil {
		return nil, err
	}
	if filter.ClassID != "" && kind == models.AttendanceStudent {
		allowed, err = s.classSubjects(ctx, scope, filter.ClassID)
		if err != nil {
			return nil, err
		}
	}
	records, _, err := loadAttendance(ctx, s.state)
	if err != nil {
		return nil, err
	}
	out := make([]models.AttendanceRecord, 0)
	for _, record := range records {
		if record.Kind != kind || !record.Date.Within(filter.From, filter.To) {
			continue
		}
		if filter.SubjectID != "" && record.SubjectID != filter.SubjectID {
			continue
		}
		if _, ok := allowed[record.SubjectID]; !ok {
			continue
		}
		out = append(out, record)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.Before(out[j].Date.Time)
		}
		return out[i].SubjectID < out[j].SubjectID
	})
	return out, nil
}

// Summary computes per-subject counts and the present percentage over [from, to].
func (s *AttendanceService) Summary(ctx context.Context, session models.Session, kind models.AttendanceKind, classID string, from, to models.Date) ([]models.AttendanceSummary, error) {
	scope, err := ResolveScope(ctx, s.state, session)
	if err != nil {
		return nil, err
	}
	if err := requirePermission(scope, models.PermViewAttendance); err != nil {
		return nil, err
	}
	records, _, err := loadAttendance(ctx, s.state)
	if err != nil {
		return nil, err
	}
	ofKind := make([]models.AttendanceRecord, 0, len(records))
	for _, record := range records {
		if record.Kind == kind {
			ofKind = append(ofKind, record)
		}
	}

	if kind == models.AttendanceTeacher {
		teachers, _, err := loadTeachers(ctx, s.state)
		if err != nil {
			return nil, err
		}
		summaries := make([]models.AttendanceSummary, 0, len(teachers))
		for _, teacher := range teachers {
			summary := SummarizeAttendance(ofKind, teacher.ID, from, to)
			summary.Name = teacher.Name
			summaries = append(summaries, summary)
		}
		return summaries, nil
	}

	students, _, err := loadStudents(ctx, s.state)
	if err != nil {
		return nil, err
	}
	classes, _, err := loadClasses(ctx, s.state)
	if err != nil {
		return nil, err
	}
	views := ResolveStudents(scope.Students(students), classes, classID != "")
	summaries := make([]models.AttendanceSummary, 0, len(views))
	for _, view := range views {
		if classID != "" && view.ClassID != classID {
			continue
		}
		summary := SummarizeAttendance(ofKind, view.NIS, from, to)
		summary.Name = view.Name
		summary.ClassName = view.ClassName
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// subjects lists the subject ids the scope may record or view for kind.
func (s *AttendanceService) subjects(ctx context.Context, scope Scope, kind models.AttendanceKind) (map[string]struct{}, error) {
	allowed := make(map[string]struct{})
	if kind == models.AttendanceTeacher {
		teachers, _, err := loadTeachers(ctx, s.state)
		if err != nil {
			return nil, err
		}
		for _, teacher := range teachers {
			allowed[teacher.ID] = struct{}{}
		}
		return allowed, nil
	}
	students, _, err := loadStudents(ctx, s.state)
	if err != nil {
		return nil, err
	}
	for _, student := range scope.Students(students) {
		allowed[student.NIS] = struct{}{}
	}
	return allowed, nil
}

func (s *AttendanceService) classSubjects(ctx context.Context, scope Scope, classID string) (map[string]struct{}, error) {
	students, _, err := loadStudents(ctx, s.state)
	if err != nil {
		return nil, err
	}
	classes, _, err := loadClasses(ctx, s.state)
	if err != nil {
		return nil, err
	}
	allowed := make(map[string]struct{})
	for _, view := range ResolveStudents(scope.Students(students), classes, true) {
		if view.ClassID == classID {
			allowed[view.NIS] = struct{}{}
		}
	}
	return allowed, nil
}

func emptyAttendance() []models.AttendanceRecord { return []models.AttendanceRecord{} }
