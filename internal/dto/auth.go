package dto

// LoginRequest carries roster credentials.
type LoginRequest struct {
	Name     string `json:"name" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// ImpersonateRequest lets an administrator act as a teacher.
type ImpersonateRequest struct {
	TeacherID string `json:"teacher_id" validate:"required"`
}
