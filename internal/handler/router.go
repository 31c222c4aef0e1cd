package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/smk-student-hub/internal/middleware"
	"github.com/noah-isme/smk-student-hub/internal/models"
)

// Handlers groups every HTTP handler mounted under the API prefix.
type Handlers struct {
	Auth        *AuthHandler
	Students    *StudentHandler
	Classes     *ClassHandler
	Teachers    *TeacherHandler
	Infractions *InfractionHandler
	Attendance  *AttendanceHandler
	Payments    *PaymentHandler
	Logs        *RoleLogHandler
	Dashboard   *DashboardHandler
	Reports     *ReportHandler
	Backup      *BackupHandler
	State       *StateHandler
	Preferences *PreferenceHandler
	Events      *EventHandler
}

// RegisterRoutes mounts the API on group. Login, roster and signed downloads are public.
// Role checks that depend on the record being touched live in the services.
func RegisterRoutes(group *gin.RouterGroup, h Handlers, validator middleware.TokenValidator) {
	auth := group.Group("/auth")
	auth.POST("/login", h.Auth.Login)
	auth.GET("/roster", h.Auth.Roster)

	group.GET("/export/:token", h.Reports.Download)

	protected := group.Group("")
	protected.Use(middleware.JWT(validator))

	protected.GET("/auth/me", h.Auth.Me)
	protected.POST("/auth/impersonate", middleware.RequirePermission(models.PermImpersonate), h.Auth.Impersonate)

	manageStudents := middleware.RequirePermission(models.PermManageStudents)
	students := protected.Group("/students")
	students.GET("", h.Students.List)
	students.GET("/export.csv", h.Students.ExportCSV)
	students.GET("/:id", h.Students.Get)
	students.POST("", manageStudents, h.Students.Create)
	students.PUT("/:id", manageStudents, h.Students.Update)
	students.DELETE("/:id", manageStudents, h.Students.Delete)

	manageClasses := middleware.RequirePermission(models.PermManageClasses)
	classes := protected.Group("/classes")
	classes.GET("", h.Classes.List)
	classes.POST("", manageClasses, h.Classes.Create)
	classes.PUT("/:id", manageClasses, h.Classes.Update)
	classes.DELETE("/:id", manageClasses, h.Classes.Delete)

	manageTeachers := middleware.RequirePermission(models.PermManageTeachers)
	teachers := protected.Group("/teachers")
	teachers.GET("", h.Teachers.List)
	teachers.POST("", manageTeachers, h.Teachers.Create)
	teachers.PUT("/:id", manageTeachers, h.Teachers.Update)
	teachers.DELETE("/:id", manageTeachers, h.Teachers.Delete)

	infractions := protected.Group("/infractions")
	infractions.GET("", h.Infractions.List)
	infractions.POST("", h.Infractions.Create)
	infractions.GET("/rollup", h.Infractions.Rollup)
	infractions.GET("/rollup/export.csv", h.Infractions.RollupCSV)
	infractions.PATCH("/:id/status", h.Infractions.UpdateStatus)
	infractions.DELETE("/:id", h.Infractions.Delete)

	attendance := protected.Group("/attendance")
	attendance.GET("", h.Attendance.List)
	attendance.POST("", h.Attendance.Record)
	attendance.GET("/summary", h.Attendance.Summary)

	payments := protected.Group("/payments")
	payments.GET("", h.Payments.Status)
	payments.GET("/tally", h.Payments.Tally)
	payments.GET("/history", h.Payments.History)
	payments.PUT("/:nis/:month", middleware.RequirePermission(models.PermManagePayments), h.Payments.SetPaid)

	protected.GET("/logs/:role", h.Logs.List)
	protected.POST("/logs/:role", h.Logs.Append)

	protected.GET("/dashboard", h.Dashboard.Get)

	reports := protected.Group("/reports")
	reports.GET("/monthly", h.Reports.MonthlyHTML)
	reports.GET("/monthly.pdf", h.Reports.MonthlyPDF)
	reports.POST("/generate", h.Reports.Generate)
	reports.GET("/status/:id", h.Reports.Status)

	manageBackup := middleware.RequirePermission(models.PermManageBackup)
	protected.GET("/backup", manageBackup, h.Backup.Export)
	protected.POST("/backup/restore", manageBackup, h.Backup.Restore)
	protected.GET("/state/:key", manageBackup, h.State.Get)
	protected.PUT("/state/:key", manageBackup, h.State.Put)

	protected.GET("/preferences/theme", h.Preferences.Theme)
	protected.PUT("/preferences/theme", h.Preferences.SetTheme)

	protected.GET("/events", h.Events.Stream)
}
