package models

import "time"

// ScheduleEntry is one teaching slot.
type ScheduleEntry struct {
	Day     string `json:"day"`
	Start   string `json:"start"`
	End     string `json:"end"`
	ClassID string `json:"class_id"`
	Subject string `json:"subject"`
}

// Teacher is a staff record. Role-specific attachments are only meaningful for the matching role.
type Teacher struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Role         RoleKey         `json:"role"`
	ClassIDs     []string        `json:"class_ids,omitempty"`
	StudentNIS   []string        `json:"student_nis,omitempty"`
	Schedule     []ScheduleEntry `json:"schedule,omitempty"`
	PasswordHash string          `json:"password_hash,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// TeacherView is the public projection of a teacher record.
type TeacherView struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Role        RoleKey         `json:"role"`
	RoleLabel   string          `json:"role_label"`
	ClassIDs    []string        `json:"class_ids,omitempty"`
	StudentNIS  []string        `json:"student_nis,omitempty"`
	Schedule    []ScheduleEntry `json:"schedule,omitempty"`
	HasPassword bool            `json:"has_password"`
}

// View strips credentials from the record.
func (t Teacher) View() TeacherView {
	label := string(t.Role)
	if role, err := ParseRole(string(t.Role)); err == nil {
		label = role.Label()
	}
	return TeacherView{
		ID:          t.ID,
		Name:        t.Name,
		Role:        t.Role,
		RoleLabel:   label,
		ClassIDs:    t.ClassIDs,
		StudentNIS:  t.StudentNIS,
		Schedule:    t.Schedule,
		HasPassword: t.PasswordHash != "",
	}
}

// TaughtClassIDs merges assigned classes with classes referenced by the schedule.
func (t Teacher) TaughtClassIDs() []string {
	seen := make(map[string]struct{}, len(t.ClassIDs)+len(t.Schedule))
	out := make([]string, 0, len(t.ClassIDs)+len(t.Schedule))
	add := func(id string) {
		if id == "" {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	for _, id := range t.ClassIDs {
		add(id)
	}
	for _, slot := range t.Schedule {
		add(slot.ClassID)
	}
	return out
}
