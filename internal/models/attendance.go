package models

import "time"

// AttendanceStatus represents the status for attendance records.
type AttendanceStatus string

const (
	AttendanceStatusPresent AttendanceStatus = "H"
	AttendanceStatusSick    AttendanceStatus = "S"
	AttendanceStatusExcused AttendanceStatus = "I"
	AttendanceStatusAbsent  AttendanceStatus = "A"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendanceStatusPresent, AttendanceStatusSick, AttendanceStatusExcused, AttendanceStatusAbsent:
		return true
	default:
		return false
	}
}

// AttendanceKind distinguishes student from teacher attendance.
type AttendanceKind string

const (
	AttendanceStudent AttendanceKind = "student"
	AttendanceTeacher AttendanceKind = "teacher"
)

// AttendanceRecord is one day's status for a student (by NIS) or a teacher (by ID).
type AttendanceRecord struct {
	ID         string           `json:"id"`
	Date       Date             `json:"date"`
	SubjectID  string           `json:"subject_id"`
	Kind       AttendanceKind   `json:"kind"`
	Status     AttendanceStatus `json:"status"`
	Note       string           `json:"note,omitempty"`
	RecordedBy string           `json:"recorded_by,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
}

// AttendanceFilter narrows attendance listings.
type AttendanceFilter struct {
	SubjectID string
	Kind      AttendanceKind
	ClassID   string
	From      Date
	To        Date
}

// AttendanceNA is rendered when a subject has no sessions in the interval.
const AttendanceNA = "N/A"

// AttendanceSummary aggregates attendance for one subject over an interval.
type AttendanceSummary struct {
	SubjectID  string `json:"subject_id"`
	Name       string `json:"name,omitempty"`
	ClassName  string `json:"class_name,omitempty"`
	Present    int    `json:"present"`
	Sick       int    `json:"sick"`
	Excused    int    `json:"excused"`
	Absent     int    `json:"absent"`
	Total      int    `json:"total"`
	Percentage string `json:"percentage"`
}
