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
	"github.com/noah-isme/smk-student-hub/pkg/export"
)

// Roster export column headers.
var rosterHeaders = []string{"NIS", "Nama", "Kelas", "L/P", "Alamat"}

// StudentService handles student use-cases.
type StudentService struct {
	state     *StateService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewStudentService constructs the student service.
func NewStudentService(state *StateService, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{state: state, validator: validate, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// List returns the students visible to the session with pagination metadata.
// Filtering by class drops students whose class no longer exists.
func (s *StudentService) List(ctx context.Context, session models.Session, filter models.StudentFilter) ([]models.StudentView, *models.Pagination, error) {
	views, err := s.visible(ctx, session, filter.ClassID != "")
	if err != nil {
		return nil, nil, err
	}
	filtered := make([]models.StudentView, 0, len(views))
	for _, view := range views {
		if filter.ClassID != "" && view.ClassID != filter.ClassID {
			continue
		}
		if filter.Search != "" && !containsFold(view.Name, filter.Search) && !strings.Contains(view.NIS, filter.Search) {
			continue
		}
		filtered = append(filtered, view)
	}
	page, pagination := paginate(filtered, filter.Page, filter.PageSize)
	return page, pagination, nil
}

// Get returns one student visible to the session.
func (s *StudentService) Get(ctx context.Context, session models.Session, id string) (*models.StudentView, error) {
	views, err := s.visible(ctx, session, false)
	if err != nil {
		return nil, err
	}
	for i := range views {
		if views[i].ID == id {
			return &views[i], nil
		}
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
}

// Create registers a new student.
func (s *StudentService) Create(ctx context.Context, req dto.CreateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	if err := s.ensureClass(ctx, req.ClassID); err != nil {
		return nil, err
	}
	now := s.now()
	student := models.Student{
		ID:        uuid.NewString(),
		NIS:       strings.TrimSpace(req.NIS),
		Name:      strings.TrimSpace(req.Name),
		ClassID:   req.ClassID,
		Sex:       req.Sex,
		Address:   strings.TrimSpace(req.Address),
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := mutate(ctx, s.state, models.KeyStudents, emptyStudents, func(students *[]models.Student) error {
		for _, existing := range *students {
			if existing.NIS == student.NIS {
				return appErrors.Clone(appErrors.ErrConflict, "nis already used")
			}
		}
		*students = append(*students, student)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("student created", zap.String("student_id", student.ID), zap.String("nis", student.NIS))
	return &student, nil
}

// Update modifies a student. The NIS cannot change because other records reference it.
func (s *StudentService) Update(ctx context.Context, id string, req dto.UpdateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	if err := s.ensureClass(ctx, req.ClassID); err != nil {
		return nil, err
	}
	var updated models.Student
	_, err := mutate(ctx, s.state, models.KeyStudents, emptyStudents, func(students *[]models.Student) error {
		for i := range *students {
			current := &(*students)[i]
			if current.ID != id {
				continue
			}
			current.Name = strings.TrimSpace(req.Name)
			current.ClassID = req.ClassID
			current.Sex = req.Sex
			current.Address = strings.TrimSpace(req.Address)
			current.UpdatedAt = s.now()
			updated = *current
			return nil
		}
		return appErrors.Clone(appErrors.ErrNotFound, "student not found")
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// Delete removes a student. Records keyed by the NIS become dangling and drop out of joined views.
func (s *StudentService) Delete(ctx context.Context, id string) error {
	_, err := mutate(ctx, s.state, models.KeyStudents, emptyStudents, func(students *[]models.Student) error {
		for i, current := range *students {
			if current.ID == id {
				*students = append((*students)[:i], (*students)[i+1:]...)
				return nil
			}
		}
		return appErrors.Clone(appErrors.ErrNotFound, "student not found")
	})
	if err != nil {
		return err
	}
	s.logger.Info("student deleted", zap.String("student_id", id))
	return nil
}

// RosterDataset builds the roster table for the session.
func (s *StudentService) RosterDataset(ctx context.Context, session models.Session, classID string) (export.Dataset, error) {
	views, err := s.visible(ctx, session, classID != "")
	if err != nil {
		return export.Dataset{}, err
	}
	rows := make([]map[string]string, 0, len(views))
	for _, view := range views {
		if classID != "" && view.ClassID != classID {
			continue
		}
		rows = append(rows, map[string]string{
			"NIS":    view.NIS,
			"Nama":   view.Name,
			"Kelas":  view.ClassName,
			"L/P":    string(view.Sex),
			"Alamat": view.Address,
		})
	}
	return export.Dataset{Headers: rosterHeaders, Rows: rows}, nil
}

// ExportCSV renders the visible roster as CSV.
func (s *StudentService) ExportCSV(ctx context.Context, session models.Session) ([]byte, error) {
	dataset, err := s.RosterDataset(ctx, session, "")
	if err != nil {
		return nil, err
	}
	content, err := export.NewCSVExporter().Render(dataset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render roster")
	}
	return content, nil
}

func (s *StudentService) visible(ctx context.Context, session models.Session, classScoped bool) ([]models.StudentView, error) {
	scope, err := ResolveScope(ctx, s.state, session)
	if err != nil {
		return nil, err
	}
	students, _, err := loadStudents(ctx, s.state)
	if err != nil {
		return nil, err
	}
	classes, _, err := loadClasses(ctx, s.state)
	if err != nil {
		return nil, err
	}
	return ResolveStudents(scope.Students(students), classes, classScoped), nil
}

func (s *StudentService) ensureClass(ctx context.Context, classID string) error {
	classes, _, err := loadClasses(ctx, s.state)
	if err != nil {
		return err
	}
	if _, ok := findClass(classes, classID); !ok {
		return appErrors.Clone(appErrors.ErrValidation, "class does not exist")
	}
	return nil
}

func emptyStudents() []models.Student { return []models.Student{} }
