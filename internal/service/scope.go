package service

import (
	"context"
	"strings"

	"github.com/noah-isme/smk-student-hub/internal/models"
	appErrors "github.com/noah-isme/smk-student-hub/pkg/errors"
)

// Scope is the acting role and, for teachers, their record.
type Scope struct {
	Session models.Session
	Role    models.Role
	Teacher *models.Teacher
}

// Can checks a permission for the acting role.
func (sc Scope) Can(p models.Permission) bool {
	return sc.Role != nil && sc.Role.Can(p)
}

// Students narrows a roster to what the acting role may see.
func (sc Scope) Students(students []models.Student) []models.Student {
	if sc.Role == nil {
		return nil
	}
	return sc.Role.VisibleStudents(sc.Teacher, students)
}

// Actor names the user in audit fields, marking impersonation.
func (sc Scope) Actor() string {
	if sc.Session.ImpersonatedBy != "" {
		return sc.Session.Name + " (via " + sc.Session.ImpersonatedBy + ")"
	}
	return sc.Session.Name
}

func loadStudents(ctx context.Context, state *StateService) ([]models.Student, int64, error) {
	return Load(ctx, state, models.KeyStudents, []models.Student{})
}

func loadClasses(ctx context.Context, state *StateService) ([]models.Class, int64, error) {
	return Load(ctx, state, models.KeyClasses, []models.Class{})
}

func loadTeachers(ctx context.Context, state *StateService) ([]models.Teacher, int64, error) {
	return Load(ctx, state, models.KeyTeachers, []models.Teacher{})
}

func loadInfractions(ctx context.Context, state *StateService) ([]models.Infraction, int64, error) {
	return Load(ctx, state, models.KeyInfractions, []models.Infraction{})
}

func loadAttendance(ctx context.Context, state *StateService) ([]models.AttendanceRecord, int64, error) {
	return Load(ctx, state, models.KeyAttendance, []models.AttendanceRecord{})
}

func loadPaymentStatus(ctx context.Context, state *StateService) (models.PaymentStatus, int64, error) {
	return Load(ctx, state, models.KeyKomiteStatus, models.PaymentStatus{})
}

// ResolveScope resolves the session role and the teacher record behind it.
func ResolveScope(ctx context.Context, state *StateService, session models.Session) (Scope, error) {
	role, err := session.Role.Role()
	if err != nil {
		return Scope{}, appErrors.Clone(appErrors.ErrForbidden, "unknown role")
	}
	scope := Scope{Session: session, Role: role}
	if session.TeacherID == "" {
		return scope, nil
	}
	teachers, _, err := loadTeachers(ctx, state)
	if err != nil {
		return Scope{}, err
	}
	for i := range teachers {
		if teachers[i].ID == session.TeacherID {
			teacher := teachers[i]
			scope.Teacher = &teacher
			break
		}
	}
	return scope, nil
}

func requirePermission(scope Scope, p models.Permission) error {
	if !scope.Can(p) {
		return appErrors.Clone(appErrors.ErrForbidden, "role "+string(scope.Session.Role)+" lacks "+string(p))
	}
	return nil
}

func findClass(classes []models.Class, id string) (models.Class, bool) {
	for _, class := range classes {
		if class.ID == id {
			return class, true
		}
	}
	return models.Class{}, false
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func paginate[T any](items []T, page, size int) ([]T, *models.Pagination) {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: len(items)}
	start := (page - 1) * size
	if start >= len(items) {
		return []T{}, pagination
	}
	end := start + size
	if end > len(items) {
		end = len(items)
	}
	return items[start:end], pagination
}
