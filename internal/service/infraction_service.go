package service

import (
	"context"
	"sort"
	"strconv"
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

var rollupHeaders = []string{"Peringkat", "NIS", "Nama", "Kelas", "Total Poin", "Jumlah Pelanggaran", "Kategori"}

// InfractionService records pelanggaran and moves them through the handling workflow.
type InfractionService struct {
	state     *StateService
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewInfractionService constructs the infraction service.
func NewInfractionService(state *StateService, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *InfractionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InfractionService{state: state, cache: cache, validator: validate, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// List returns infractions about students visible to the session, newest first.
func (s *InfractionService) List(ctx context.Context, session models.Session, filter models.InfractionFilter) ([]models.InfractionView, error) {
	scope, students, classes, err := s.scoped(ctx, session)
	if err != nil {
		return nil, err
	}
	infractions, _, err := loadInfractions(ctx, s.state)
	if err != nil {
		return nil, err
	}
	joined := JoinInfractions(infractions, scope.Students(students), classes)
	views := make([]models.InfractionView, 0, len(joined))
	for _, view := range joined {
		if filter.NIS != "" && view.NIS != filter.NIS {
			continue
		}
		if filter.ClassID != "" && view.ClassID != filter.ClassID {
			continue
		}
		if filter.Status != "" && view.Status != filter.Status {
			continue
		}
		if !view.Date.Within(filter.From, filter.To) {
			continue
		}
		views = append(views, view)
	}
	sort.SliceStable(views, func(i, j int) bool {
		return views[i].Date.After(views[j].Date.Time)
	})
	return views, nil
}

// Create records a new infraction in REPORTED status.
func (s *InfractionService) Create(ctx context.Context, session models.Session, req dto.CreateInfractionRequest) (*models.Infraction, error) {
	scope, students, _, err := s.scoped(ctx, session)
	if err != nil {
		return nil, err
	}
	if err := requirePermission(scope, models.PermRecordInfraction); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid infraction payload")
	}
	if req.Date.IsZero() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date is required")
	}
	if _, ok := studentIndex(students)[req.NIS]; !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student "+req.NIS+" does not exist")
	}
	if _, ok := studentIndex(scope.Students(students))[req.NIS]; !ok {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "student is outside your scope")
	}

	now := s.now()
	infraction := models.Infraction{
		ID:            uuid.NewString(),
		Date:          req.Date,
		NIS:           req.NIS,
		Description:   strings.TrimSpace(req.Description),
		Points:        req.Points,
		Reporter:      scope.Actor(),
		InitialAction: strings.TrimSpace(req.InitialAction),
		Status:        models.InfractionReported,
		History: []models.StatusChange{{
			Status: models.InfractionReported,
			By:     scope.Actor(),
			At:     now,
		}},
		CreatedAt: now,
	}
	_, err = mutate(ctx, s.state, models.KeyInfractions, emptyInfractions, func(infractions *[]models.Infraction) error {
		*infractions = append(*infractions, infraction)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("infraction recorded", zap.String("infraction_id", infraction.ID), zap.String("nis", infraction.NIS), zap.Int("points", infraction.Points))
	return &infraction, nil
}

// UpdateStatus moves an infraction forward. Each target status needs its own permission.
func (s *InfractionService) UpdateStatus(ctx context.Context, session models.Session, id string, req dto.InfractionStatusRequest) (*models.Infraction, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status payload")
	}
	if !req.Status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown status "+string(req.Status))
	}
	scope, students, _, err := s.scoped(ctx, session)
	if err != nil {
		return nil, err
	}
	if err := requirePermission(scope, req.Status.RequiredPermission()); err != nil {
		return nil, err
	}
	visible := studentIndex(scope.Students(students))

	var updated models.Infraction
	_, err = mutate(ctx, s.state, models.KeyInfractions, emptyInfractions, func(infractions *[]models.Infraction) error {
		for i := range *infractions {
			current := &(*infractions)[i]
			if current.ID != id {
				continue
			}
			if _, ok := visible[current.NIS]; !ok {
				return appErrors.Clone(appErrors.ErrNotFound, "infraction not found")
			}
			if !current.Status.CanTransition(req.Status) {
				return appErrors.Clone(appErrors.ErrValidation, "cannot move from "+string(current.Status)+" to "+string(req.Status))
			}
			current.Status = req.Status
			current.History = append(current.History, models.StatusChange{
				Status: req.Status,
				By:     scope.Actor(),
				Note:   strings.TrimSpace(req.Note),
				At:     s.now(),
			})
			updated = *current
			return nil
		}
		return appErrors.Clone(appErrors.ErrNotFound, "infraction not found")
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("infraction status changed", zap.String("infraction_id", id), zap.String("status", string(updated.Status)))
	return &updated, nil
}

// Delete removes an infraction. Only roles that may close cases may delete them.
func (s *InfractionService) Delete(ctx context.Context, session models.Session, id string) error {
	scope, err := ResolveScope(ctx, s.state, session)
	if err != nil {
		return err
	}
	if err := requirePermission(scope, models.PermCloseInfraction); err != nil {
		return err
	}
	_, err = mutate(ctx, s.state, models.KeyInfractions, emptyInfractions, func(infractions *[]models.Infraction) error {
		for i, current := range *infractions {
			if current.ID == id {
				*infractions = append((*infractions)[:i], (*infractions)[i+1:]...)
				return nil
			}
		}
		return appErrors.Clone(appErrors.ErrNotFound, "infraction not found")
	})
	return err
}

// Rollup ranks visible students by accumulated points. A class filter drops students without a valid class.
func (s *InfractionService) Rollup(ctx context.Context, session models.Session, classID string) ([]models.PointRollup, bool, error) {
	cacheKey := CachePrefixRollup + string(session.Role) + ":" + session.TeacherID + ":" + classID
	var cached []models.PointRollup
	if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
		return cached, true, nil
	}

	scope, students, classes, err := s.scoped(ctx, session)
	if err != nil {
		return nil, false, err
	}
	infractions, _, err := loadInfractions(ctx, s.state)
	if err != nil {
		return nil, false, err
	}
	visible := scope.Students(students)
	if classID != "" {
		inClass := make([]models.Student, 0, len(visible))
		for _, view := range ResolveStudents(visible, classes, true) {
			if view.ClassID == classID {
				inClass = append(inClass, view.Student)
			}
		}
		visible = inClass
	}
	rollup := RollupPoints(infractions, visible, classes)
	_ = s.cache.Set(ctx, cacheKey, rollup, 0)
	return rollup, false, nil
}

// RollupDataset converts a rollup into the export table.
func RollupDataset(rollup []models.PointRollup) export.Dataset {
	rows := make([]map[string]string, 0, len(rollup))
	for i, entry := range rollup {
		rows = append(rows, map[string]string{
			"Peringkat":          strconv.Itoa(i + 1),
			"NIS":                entry.NIS,
			"Nama":               entry.Name,
			"Kelas":              entry.ClassName,
			"Total Poin":         strconv.Itoa(entry.TotalPoints),
			"Jumlah Pelanggaran": strconv.Itoa(entry.InfractionCount),
			"Kategori":           string(entry.Band),
		})
	}
	return export.Dataset{Headers: rollupHeaders, Rows: rows}
}

// RollupCSV renders the rollup for download.
func (s *InfractionService) RollupCSV(ctx context.Context, session models.Session, classID string) ([]byte, error) {
	rollup, _, err := s.Rollup(ctx, session, classID)
	if err != nil {
		return nil, err
	}
	content, err := export.NewCSVExporter().Render(RollupDataset(rollup))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render rollup")
	}
	return content, nil
}

func (s *InfractionService) scoped(ctx context.Context, session models.Session) (Scope, []models.Student, []models.Class, error) {
	scope, err := ResolveScope(ctx, s.state, session)
	if err != nil {
		return Scope{}, nil, nil, err
	}
	students, _, err := loadStudents(ctx, s.state)
	if err != nil {
		return Scope{}, nil, nil, err
	}
	classes, _, err := loadClasses(ctx, s.state)
	if err != nil {
		return Scope{}, nil, nil, err
	}
	return scope, students, classes, nil
}

func emptyInfractions() []models.Infraction { return []models.Infraction{} }
