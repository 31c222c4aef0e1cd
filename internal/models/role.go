package models

import (
	"encoding/json"
	"fmt"
)

// RoleKey identifies one of the fixed staff roles.
type RoleKey string

const (
	RoleAdmin      RoleKey = "admin"
	RoleHomeroom   RoleKey = "wali_kelas"
	RoleCounselor  RoleKey = "guru_bk"
	RoleSubject    RoleKey = "guru_mapel"
	RoleDiscipline RoleKey = "tatib"
	RoleCompanion  RoleKey = "pendamping"
	RoleViceHead   RoleKey = "wakasek"
	RoleStaff      RoleKey = "tu"
)

// Permission names a capability checked by handlers and services.
type Permission string

const (
	PermManageStudents     Permission = "manage_students"
	PermManageClasses      Permission = "manage_classes"
	PermManageTeachers     Permission = "manage_teachers"
	PermRecordInfraction   Permission = "record_infraction"
	PermHandleInfraction   Permission = "handle_infraction"
	PermEscalateInfraction Permission = "escalate_infraction"
	PermCloseInfraction    Permission = "close_infraction"
	PermRecordAttendance   Permission = "record_attendance"
	PermViewAttendance     Permission = "view_attendance"
	PermManagePayments     Permission = "manage_payments"
	PermViewPayments       Permission = "view_payments"
	PermGenerateReports    Permission = "generate_reports"
	PermManageBackup       Permission = "manage_backup"
	PermImpersonate        Permission = "impersonate"
	PermWriteLogs          Permission = "write_logs"
)

// Role is the closed set of staff roles. Only this package can add variants.
type Role interface {
	Key() RoleKey
	Label() string
	Can(Permission) bool
	// VisibleStudents narrows the roster to what the acting teacher may see.
	VisibleStudents(teacher *Teacher, students []Student) []Student
	ReportTitle() string
	// LogKind is the role log the role writes to, if any.
	LogKind() (LogKind, bool)
	sealed()
}

type permissionSet map[Permission]struct{}

func perms(list ...Permission) permissionSet {
	set := make(permissionSet, len(list))
	for _, p := range list {
		set[p] = struct{}{}
	}
	return set
}

func (s permissionSet) has(p Permission) bool {
	_, ok := s[p]
	return ok
}

type baseRole struct {
	key   RoleKey
	label string
	title string
	perms permissionSet
}

func (r baseRole) Key() RoleKey           { return r.key }
func (r baseRole) Label() string          { return r.label }
func (r baseRole) ReportTitle() string    { return r.title }
func (r baseRole) Can(p Permission) bool  { return r.perms.has(p) }
func (baseRole) LogKind() (LogKind, bool) { return "", false }
func (baseRole) sealed()                  {}

// schoolWide roles see every student.
type schoolWide struct{ baseRole }

func (schoolWide) VisibleStudents(_ *Teacher, students []Student) []Student {
	return students
}

type adminRole struct{ schoolWide }

func (adminRole) Can(Permission) bool { return true }

type homeroomRole struct{ baseRole }

func (homeroomRole) VisibleStudents(t *Teacher, students []Student) []Student {
	if t == nil {
		return nil
	}
	return filterByClass(students, t.ClassIDs)
}
func (homeroomRole) LogKind() (LogKind, bool) { return LogHomeroom, true }

type counselorRole struct{ baseRole }

// Counselors assigned to specific classes cover that band; unassigned counselors cover everyone.
func (counselorRole) VisibleStudents(t *Teacher, students []Student) []Student {
	if t == nil || len(t.ClassIDs) == 0 {
		return students
	}
	return filterByClass(students, t.ClassIDs)
}
func (counselorRole) LogKind() (LogKind, bool) { return LogCounselor, true }

type subjectRole struct{ baseRole }

func (subjectRole) VisibleStudents(t *Teacher, students []Student) []Student {
	if t == nil {
		return nil
	}
	return filterByClass(students, t.TaughtClassIDs())
}

type disciplineRole struct{ schoolWide }

func (disciplineRole) LogKind() (LogKind, bool) { return LogDiscipline, true }

type companionRole struct{ baseRole }

func (companionRole) VisibleStudents(t *Teacher, students []Student) []Student {
	if t == nil {
		return nil
	}
	allowed := make(map[string]struct{}, len(t.StudentNIS))
	for _, nis := range t.StudentNIS {
		allowed[nis] = struct{}{}
	}
	out := make([]Student, 0, len(t.StudentNIS))
	for _, s := range students {
		if _, ok := allowed[s.NIS]; ok {
			out = append(out, s)
		}
	}
	return out
}
func (companionRole) LogKind() (LogKind, bool) { return LogCompanion, true }

type viceHeadRole struct{ schoolWide }

type staffRole struct{ schoolWide }

func filterByClass(students []Student, classIDs []string) []Student {
	allowed := make(map[string]struct{}, len(classIDs))
	for _, id := range classIDs {
		allowed[id] = struct{}{}
	}
	out := make([]Student, 0)
	for _, s := range students {
		if _, ok := allowed[s.ClassID]; ok {
			out = append(out, s)
		}
	}
	return out
}

var roles = map[RoleKey]Role{
	RoleAdmin: adminRole{schoolWide{baseRole{
		key: RoleAdmin, label: "Administrator", title: "Laporan Administrator",
	}}},
	RoleHomeroom: homeroomRole{baseRole{
		key: RoleHomeroom, label: "Wali Kelas", title: "Laporan Wali Kelas",
		perms: perms(PermRecordInfraction, PermHandleInfraction, PermEscalateInfraction,
			PermRecordAttendance, PermViewAttendance, PermViewPayments, PermGenerateReports, PermWriteLogs),
	}},
	RoleCounselor: counselorRole{baseRole{
		key: RoleCounselor, label: "Guru BK", title: "Laporan Bimbingan Konseling",
		perms: perms(PermRecordInfraction, PermEscalateInfraction, PermCloseInfraction,
			PermViewAttendance, PermGenerateReports, PermWriteLogs),
	}},
	RoleSubject: subjectRole{baseRole{
		key: RoleSubject, label: "Guru Mata Pelajaran", title: "Laporan Guru Mata Pelajaran",
		perms: perms(PermRecordInfraction, PermRecordAttendance, PermViewAttendance, PermGenerateReports),
	}},
	RoleDiscipline: disciplineRole{schoolWide{baseRole{
		key: RoleDiscipline, label: "Tata Tertib", title: "Laporan Tata Tertib",
		perms: perms(PermRecordInfraction, PermHandleInfraction, PermViewAttendance,
			PermGenerateReports, PermWriteLogs),
	}}},
	RoleCompanion: companionRole{baseRole{
		key: RoleCompanion, label: "Guru Pendamping", title: "Laporan Guru Pendamping",
		perms: perms(PermRecordInfraction, PermViewAttendance, PermGenerateReports, PermWriteLogs),
	}},
	RoleViceHead: viceHeadRole{schoolWide{baseRole{
		key: RoleViceHead, label: "Wakil Kepala Sekolah", title: "Laporan Kesiswaan",
		perms: perms(PermRecordInfraction, PermHandleInfraction, PermEscalateInfraction,
			PermCloseInfraction, PermViewAttendance, PermViewPayments, PermGenerateReports),
	}}},
	RoleStaff: staffRole{schoolWide{baseRole{
		key: RoleStaff, label: "Tata Usaha", title: "Laporan Tata Usaha",
		perms: perms(PermManageStudents, PermManageClasses, PermRecordAttendance, PermViewAttendance,
			PermManagePayments, PermViewPayments, PermGenerateReports),
	}}},
}

// TeacherRoleKeys lists the roles a teacher record may carry.
var TeacherRoleKeys = []RoleKey{
	RoleHomeroom, RoleCounselor, RoleSubject, RoleDiscipline, RoleCompanion, RoleViceHead, RoleStaff,
}

// ParseRole resolves a role key.
func ParseRole(raw string) (Role, error) {
	role, ok := roles[RoleKey(raw)]
	if !ok {
		return nil, fmt.Errorf("unknown role %q", raw)
	}
	return role, nil
}

// MustRole returns the role for a known key and panics otherwise.
func MustRole(key RoleKey) Role {
	role, err := ParseRole(string(key))
	if err != nil {
		panic(err)
	}
	return role
}

// Role resolves the key to its variant.
func (k RoleKey) Role() (Role, error) {
	return ParseRole(string(k))
}

// UnmarshalJSON rejects unknown role keys.
func (k *RoleKey) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if _, err := ParseRole(raw); err != nil {
		return err
	}
	*k = RoleKey(raw)
	return nil
}
