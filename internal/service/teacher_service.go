package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/smk-student-hub/internal/dto"
	"github.com/noah-isme/smk-student-hub/internal/models"
	appErrors "github.com/noah-isme/smk-student-hub/pkg/errors"
)

// TeacherService manages staff records and their role attachments.
type TeacherService struct {
	state     *StateService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewTeacherService constructs the teacher service.
func NewTeacherService(state *StateService, validate *validator.Validate, logger *zap.Logger) *TeacherService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TeacherService{state: state, validator: validate, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// List returns teacher records without credentials.
func (s *TeacherService) List(ctx context.Context, role models.RoleKey) ([]models.TeacherView, error) {
	teachers, _, err := loadTeachers(ctx, s.state)
	if err != nil {
		return nil, err
	}
	views := make([]models.TeacherView, 0, len(teachers))
	for _, teacher := range teachers {
		if role != "" && teacher.Role != role {
			continue
		}
		views = append(views, teacher.View())
	}
	return views, nil
}

// Create adds a teacher record.
func (s *TeacherService) Create(ctx context.Context, req dto.TeacherRequest) (*models.TeacherView, error) {
	if err := s.validate(ctx, req); err != nil {
		return nil, err
	}
	now := s.now()
	teacher := models.Teacher{
		ID:         uuid.NewString(),
		Name:       strings.TrimSpace(req.Name),
		Role:       req.Role,
		ClassIDs:   req.ClassIDs,
		StudentNIS: req.StudentNIS,
		Schedule:   scheduleFromRequest(req.Schedule),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if req.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
		}
		teacher.PasswordHash = string(hash)
	}
	_, err := mutate(ctx, s.state, models.KeyTeachers, emptyTeachers, func(teachers *[]models.Teacher) error {
		if teacherNameTaken(*teachers, teacher.Name, "") {
			return appErrors.Clone(appErrors.ErrConflict, "teacher name already used")
		}
		*teachers = append(*teachers, teacher)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("teacher created", zap.String("teacher_id", teacher.ID), zap.String("role", string(teacher.Role)))
	view := teacher.View()
	return &view, nil
}

// Update replaces a teacher record. An empty password keeps the stored hash.
func (s *TeacherService) Update(ctx context.Context, id string, req dto.TeacherRequest) (*models.TeacherView, error) {
	if err := s.validate(ctx, req); err != nil {
		return nil, err
	}
	var hash string
	if req.Password != "" {
		generated, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
		}
		hash = string(generated)
	}
	name := strings.TrimSpace(req.Name)
	var updated models.Teacher
	_, err := mutate(ctx, s.state, models.KeyTeachers, emptyTeachers, func(teachers *[]models.Teacher) error {
		if teacherNameTaken(*teachers, name, id) {
			return appErrors.Clone(appErrors.ErrConflict, "teacher name already used")
		}
		for i := range *teachers {
			current := &(*teachers)[i]
			if current.ID != id {
				continue
			}
			current.Name = name
			current.Role = req.Role
			current.ClassIDs = req.ClassIDs
			current.StudentNIS = req.StudentNIS
			current.Schedule = scheduleFromRequest(req.Schedule)
			if hash != "" {
				current.PasswordHash = hash
			}
			current.UpdatedAt = s.now()
			updated = *current
			return nil
		}
		return appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
	})
	if err != nil {
		return nil, err
	}
	view := updated.View()
	return &view, nil
}

// Delete removes a teacher record.
func (s *TeacherService) Delete(ctx context.Context, id string) error {
	_, err := mutate(ctx, s.state, models.KeyTeachers, emptyTeachers, func(teachers *[]models.Teacher) error {
		for i, current := range *teachers {
			if current.ID == id {
				*teachers = append((*teachers)[:i], (*teachers)[i+1:]...)
				return nil
			}
		}
		return appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
	})
	if err != nil {
		return err
	}
	s.logger.Info("teacher deleted", zap.String("teacher_id", id))
	return nil
}

func (s *TeacherService) validate(ctx context.Context, req dto.TeacherRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid teacher payload")
	}
	if req.Role == models.RoleAdmin {
		return appErrors.Clone(appErrors.ErrValidation, "teachers cannot hold the admin role")
	}
	classes, _, err := loadClasses(ctx, s.state)
	if err != nil {
		return err
	}
	for _, id := range req.ClassIDs {
		if _, ok := findClass(classes, id); !ok {
			return appErrors.Clone(appErrors.ErrValidation, "class "+id+" does not exist")
		}
	}
	for _, slot := range req.Schedule {
		if _, ok := findClass(classes, slot.ClassID); !ok {
			return appErrors.Clone(appErrors.ErrValidation, "scheduled class "+slot.ClassID+" does not exist")
		}
		if slot.End <= slot.Start {
			return appErrors.Clone(appErrors.ErrValidation, "schedule slot must end after it starts")
		}
	}
	if len(req.StudentNIS) == 0 {
		return nil
	}
	students, _, err := loadStudents(ctx, s.state)
	if err != nil {
		return err
	}
	known := studentIndex(students)
	for _, nis := range req.StudentNIS {
		if _, ok := known[nis]; !ok {
			return appErrors.Clone(appErrors.ErrValidation, "student "+nis+" does not exist")
		}
	}
	return nil
}

func scheduleFromRequest(entries []dto.ScheduleEntryRequest) []models.ScheduleEntry {
	if len(entries) == 0 {
		return nil
	}
	schedule := make([]models.ScheduleEntry, 0, len(entries))
	for _, entry := range entries {
		schedule = append(schedule, models.ScheduleEntry{
			Day:     entry.Day,
			Start:   entry.Start,
			End:     entry.End,
			ClassID: entry.ClassID,
			Subject: strings.TrimSpace(entry.Subject),
		})
	}
	return schedule
}

func teacherNameTaken(teachers []models.Teacher, name, excludeID string) bool {
	for _, teacher := range teachers {
		if teacher.ID != excludeID && strings.EqualFold(teacher.Name, name) {
			return true
		}
	}
	return false
}

func emptyTeachers() []models.Teacher { return []models.Teacher{} }
