package dto

import "github.com/noah-isme/smk-student-hub/internal/models"

// CreateStudentRequest holds payload for creating students.
type CreateStudentRequest struct {
	NIS     string     `json:"nis" validate:"required,numeric,max=20"`
	Name    string     `json:"name" validate:"required,max=120"`
	ClassID string     `json:"class_id" validate:"required"`
	Sex     models.Sex `json:"sex" validate:"required,oneof=L P"`
	Address string     `json:"address" validate:"max=255"`
}

// UpdateStudentRequest holds payload for updating students. NIS is immutable.
type UpdateStudentRequest struct {
	Name    string     `json:"name" validate:"required,max=120"`
	ClassID string     `json:"class_id" validate:"required"`
	Sex     models.Sex `json:"sex" validate:"required,oneof=L P"`
	Address string     `json:"address" validate:"max=255"`
}

// ClassRequest creates or updates a class.
type ClassRequest struct {
	Name       string `json:"name" validate:"required,max=60"`
	MonthlyFee int64  `json:"monthly_fee" validate:"gte=0"`
}

// ScheduleEntryRequest is one teaching slot in a teacher payload.
type ScheduleEntryRequest struct {
	Day     string `json:"day" validate:"required,oneof=Senin Selasa Rabu Kamis Jumat Sabtu"`
	Start   string `json:"start" validate:"required,datetime=15:04"`
	End     string `json:"end" validate:"required,datetime=15:04"`
	ClassID string `json:"class_id" validate:"required"`
	Subject string `json:"subject" validate:"required,max=80"`
}

// TeacherRequest creates or updates a teacher record. An empty password keeps the current one.
type TeacherRequest struct {
	Name       string                 `json:"name" validate:"required,max=120"`
	Role       models.RoleKey         `json:"role" validate:"required"`
	ClassIDs   []string               `json:"class_ids" validate:"dive,required"`
	StudentNIS []string               `json:"student_nis" validate:"dive,required"`
	Schedule   []ScheduleEntryRequest `json:"schedule" validate:"dive"`
	Password   string                 `json:"password" validate:"omitempty,min=6,max=72"`
}
