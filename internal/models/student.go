package models

import "time"

// Sex is recorded as L (laki-laki) or P (perempuan).
type Sex string

const (
	SexMale   Sex = "L"
	SexFemale Sex = "P"
)

// Student represents a learner registered in the school. NIS is the join key used across records.
type Student struct {
	ID        string    `json:"id"`
	NIS       string    `json:"nis"`
	Name      string    `json:"name"`
	ClassID   string    `json:"class_id"`
	Sex       Sex       `json:"sex"`
	Address   string    `json:"address,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StudentView is a student with its class name resolved.
type StudentView struct {
	Student
	ClassName string `json:"class_name"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search   string
	ClassID  string
	Page     int
	PageSize int
}

// Class represents a class group and its monthly komite fee in rupiah.
type Class struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	MonthlyFee int64     `json:"monthly_fee"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ClassSummary adds the resolved student count to a class.
type ClassSummary struct {
	Class
	StudentCount int `json:"student_count"`
}
