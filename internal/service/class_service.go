package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/smk-student-hub/internal/dto"
	"github.com/noah-isme/smk-student-hub/internal/models"
	appErrors "github.com/noah-isme/smk-student-hub/pkg/errors"
)

// ClassService manages class groups and their komite fees.
type ClassService struct {
	state     *StateService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewClassService constructs the class service.
func NewClassService(state *StateService, validate *validator.Validate, logger *zap.Logger) *ClassService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClassService{state: state, validator: validate, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// List returns classes with their student counts.
func (s *ClassService) List(ctx context.Context) ([]models.ClassSummary, error) {
	classes, _, err := loadClasses(ctx, s.state)
	if err != nil {
		return nil, err
	}
	students, _, err := loadStudents(ctx, s.state)
	if err != nil {
		return nil, err
	}
	return SummarizeClasses(classes, students), nil
}

// Create adds a class. Names are unique ignoring case.
func (s *ClassService) Create(ctx context.Context, req dto.ClassRequest) (*models.Class, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}
	now := s.now()
	class := models.Class{
		ID:         uuid.NewString(),
		Name:       strings.TrimSpace(req.Name),
		MonthlyFee: req.MonthlyFee,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	_, err := mutate(ctx, s.state, models.KeyClasses, emptyClasses, func(classes *[]models.Class) error {
		if classNameTaken(*classes, class.Name, "") {
			return appErrors.Clone(appErrors.ErrConflict, "class name already used")
		}
		*classes = append(*classes, class)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("class created", zap.String("class_id", class.ID), zap.String("name", class.Name))
	return &class, nil
}

// Update renames a class or changes its fee.
func (s *ClassService) Update(ctx context.Context, id string, req dto.ClassRequest) (*models.Class, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}
	name := strings.TrimSpace(req.Name)
	var updated models.Class
	_, err := mutate(ctx, s.state, models.KeyClasses, emptyClasses, func(classes *[]models.Class) error {
		if classNameTaken(*classes, name, id) {
			return appErrors.Clone(appErrors.ErrConflict, "class name already used")
		}
		for i := range *classes {
			current := &(*classes)[i]
			if current.ID != id {
				continue
			}
			current.Name = name
			current.MonthlyFee = req.MonthlyFee
			current.UpdatedAt = s.now()
			updated = *current
			return nil
		}
		return appErrors.Clone(appErrors.ErrNotFound, "class not found")
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// Delete removes a class that no student references. Students are re-read on every attempt so the
// check sees writes that landed while the class list was loading. Two keys cannot be locked together;
// a student saved in the remaining window is excluded from class-scoped views.
func (s *ClassService) Delete(ctx context.Context, id string) error {
	_, err := mutate(ctx, s.state, models.KeyClasses, emptyClasses, func(classes *[]models.Class) error {
		index := -1
		for i, current := range *classes {
			if current.ID == id {
				index = i
				break
			}
		}
		if index < 0 {
			return appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		students, _, err := loadStudents(ctx, s.state)
		if err != nil {
			return err
		}
		for _, student := range students {
			if student.ClassID == id {
				return appErrors.Clone(appErrors.ErrConflict, "class still has students")
			}
		}
		*classes = append((*classes)[:index], (*classes)[index+1:]...)
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("class deleted", zap.String("class_id", id))
	return nil
}

func classNameTaken(classes []models.Class, name, excludeID string) bool {
	for _, class := range classes {
		if class.ID != excludeID && strings.EqualFold(class.Name, name) {
			return true
		}
	}
	return false
}

func emptyClasses() []models.Class { return []models.Class{} }
