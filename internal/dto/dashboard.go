package dto

import "github.com/noah-isme/smk-student-hub/internal/models"

// DashboardResponse is the role-scoped landing page summary.
type DashboardResponse struct {
	Month      string                  `json:"month"`
	Role       models.RoleKey          `json:"role"`
	RoleLabel  string                  `json:"role_label"`
	Counts     DashboardCounts         `json:"counts"`
	TopPoints  []models.PointRollup    `json:"top_points"`
	ByStatus   map[string]int          `json:"infractions_by_status"`
	Attendance DashboardAttendance     `json:"attendance"`
	Payments   *DashboardPayments      `json:"payments,omitempty"`
	RiskBands  map[models.RiskBand]int `json:"risk_bands"`
	Recent     []models.InfractionView `json:"recent_infractions"`
}

// DashboardCounts holds headline numbers.
type DashboardCounts struct {
	Students    int `json:"students"`
	Classes     int `json:"classes"`
	Teachers    int `json:"teachers"`
	Infractions int `json:"infractions_this_month"`
}

// DashboardAttendance summarises student attendance for the month.
type DashboardAttendance struct {
	Present    int    `json:"present"`
	Sick       int    `json:"sick"`
	Excused    int    `json:"excused"`
	Absent     int    `json:"absent"`
	Percentage string `json:"percentage"`
}

// DashboardPayments is only filled for roles that may view payments.
type DashboardPayments struct {
	Arrears   int64 `json:"arrears"`
	Collected int64 `json:"collected"`
}
