package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/smk-student-hub/internal/models"
	appErrors "github.com/noah-isme/smk-student-hub/pkg/errors"
)

// PaymentService tracks monthly komite payments.
type PaymentService struct {
	state  *StateService
	cache  *CacheService
	logger *zap.Logger
	now    func() time.Time
}

// NewPaymentService constructs the payment service.
func NewPaymentService(state *StateService, cache *CacheService, logger *zap.Logger) *PaymentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentService{state: state, cache: cache, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// Status lists paid and unpaid months for visible students in classes that exist.
func (s *PaymentService) Status(ctx context.Context, session models.Session, classID string) ([]models.StudentArrears, error) {
	tally, _, err := s.Tally(ctx, session)
	if err != nil {
		return nil, err
	}
	out := make([]models.StudentArrears, 0)
	for _, class := range tally.Classes {
		if classID != "" && class.ClassID != classID {
			continue
		}
		out = append(out, class.Students...)
	}
	return out, nil
}

// Tally computes arrears per class and for the school. The second return reports a cache hit.
func (s *PaymentService) Tally(ctx context.Context, session models.Session) (*models.PaymentTally, bool, error) {
	scope, err := ResolveScope(ctx, s.state, session)
	if err != nil {
		return nil, false, err
	}
	if err := requirePermission(scope, models.PermViewPayments); err != nil {
		return nil, false, err
	}
	cacheKey := CachePrefixTally + string(session.Role) + ":" + session.TeacherID
	var cached models.PaymentTally
	if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
		return &cached, true, nil
	}

	students, _, err := loadStudents(ctx, s.state)
	if err != nil {
		return nil, false, err
	}
	classes, _, err := loadClasses(ctx, s.state)
	if err != nil {
		return nil, false, err
	}
	status, _, err := loadPaymentStatus(ctx, s.state)
	if err != nil {
		return nil, false, err
	}
	tally := TallyPayments(scope.Students(students), classes, status)
	_ = s.cache.Set(ctx, cacheKey, tally, 0)
	return &tally, false, nil
}

// SetPaid flips a month for a student and appends a history line.
func (s *PaymentService) SetPaid(ctx context.Context, session models.Session, nis, month string, paid bool) (*models.PaymentHistoryEntry, error) {
	scope, err := ResolveScope(ctx, s.state, session)
	if err != nil {
		return nil, err
	}
	if err := requirePermission(scope, models.PermManagePayments); err != nil {
		return nil, err
	}
	if !models.ValidMonth(month) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown month "+month)
	}
	students, _, err := loadStudents(ctx, s.state)
	if err != nil {
		return nil, err
	}
	student, ok := studentIndex(students)[nis]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	classes, _, err := loadClasses(ctx, s.state)
	if err != nil {
		return nil, err
	}
	class, ok := findClass(classes, student.ClassID)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student has no valid class")
	}

	_, err = mutate(ctx, s.state, models.KeyKomiteStatus, emptyPaymentStatus, func(status *models.PaymentStatus) error {
		if *status == nil {
			*status = models.PaymentStatus{}
		}
		status.Set(nis, month, paid)
		return nil
	})
	if err != nil {
		return nil, err
	}

	entry := models.PaymentHistoryEntry{
		ID:         uuid.NewString(),
		NIS:        nis,
		Month:      month,
		Paid:       paid,
		Amount:     class.MonthlyFee,
		RecordedBy: scope.Actor(),
		RecordedAt: s.now(),
	}
	_, err = mutate(ctx, s.state, models.KeyKomiteHistory, emptyPaymentHistory, func(history *[]models.PaymentHistoryEntry) error {
		*history = append(*history, entry)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("komite payment updated", zap.String("nis", nis), zap.String("month", month), zap.Bool("paid", paid))
	return &entry, nil
}

// History returns payment changes, optionally for one student, newest last.
func (s *PaymentService) History(ctx context.Context, session models.Session, nis string) ([]models.PaymentHistoryEntry, error) {
	scope, err := ResolveScope(ctx, s.state, session)
	if err != nil {
		return nil, err
	}
	if err := requirePermission(scope, models.PermViewPayments); err != nil {
		return nil, err
	}
	history, _, err := Load(ctx, s.state, models.KeyKomiteHistory, []models.PaymentHistoryEntry{})
	if err != nil {
		return nil, err
	}
	students, _, err := loadStudents(ctx, s.state)
	if err != nil {
		return nil, err
	}
	visible := studentIndex(scope.Students(students))
	out := make([]models.PaymentHistoryEntry, 0, len(history))
	for _, entry := range history {
		if nis != "" && entry.NIS != nis {
			continue
		}
		if _, ok := visible[entry.NIS]; !ok {
			continue
		}
		out = append(out, entry)
	}
	return out, nil
}

func emptyPaymentStatus() models.PaymentStatus { return models.PaymentStatus{} }

func emptyPaymentHistory() []models.PaymentHistoryEntry { return []models.PaymentHistoryEntry{} }
