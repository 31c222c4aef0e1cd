package service

import (
	"bytes"
	"context"
	"html/template"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/smk-student-hub/internal/models"
	appErrors "github.com/noah-isme/smk-student-hub/pkg/errors"
	"github.com/noah-isme/smk-student-hub/pkg/export"
)

type reportSection string

const (
	sectionStudents    reportSection = "students"
	sectionRollup      reportSection = "rollup"
	sectionInfractions reportSection = "infractions"
	sectionAttendance  reportSection = "attendance"
	sectionPayments    reportSection = "payments"
	sectionLog         reportSection = "log"
)

// sectionPermission gates sections on top of the per-role layout.
var sectionPermission = map[reportSection]models.Permission{
	sectionAttendance: models.PermViewAttendance,
	sectionPayments:   models.PermViewPayments,
}

// reportLayouts picks the monthly report sections for each role.
var reportLayouts = map[models.RoleKey][]reportSection{
	models.RoleAdmin:      {sectionRollup, sectionInfractions, sectionAttendance, sectionPayments},
	models.RoleViceHead:   {sectionRollup, sectionInfractions, sectionAttendance, sectionPayments},
	models.RoleHomeroom:   {sectionStudents, sectionAttendance, sectionInfractions, sectionPayments, sectionLog},
	models.RoleCounselor:  {sectionRollup, sectionInfractions, sectionLog},
	models.RoleSubject:    {sectionAttendance, sectionInfractions},
	models.RoleDiscipline: {sectionRollup, sectionInfractions, sectionLog},
	models.RoleCompanion:  {sectionStudents, sectionInfractions, sectionAttendance, sectionLog},
	models.RoleStaff:      {sectionStudents, sectionPayments, sectionAttendance},
}

var sectionTitles = map[reportSection]string{
	sectionStudents:    "Daftar Siswa",
	sectionRollup:      "Peringkat Poin Pelanggaran",
	sectionInfractions: "Pelanggaran Bulan Ini",
	sectionAttendance:  "Rekap Kehadiran",
	sectionPayments:    "Rekap Iuran Komite",
	sectionLog:         "Catatan",
}

// MonthlyReport is the role-scoped monthly summary rendered as HTML or PDF.
type MonthlyReport struct {
	Title       string
	School      string
	LogoURL     string
	Month       string
	Role        models.RoleKey
	RoleLabel   string
	Author      string
	GeneratedAt time.Time
	Sections    []export.Section
}

// ReportRenderer builds tabular report content from the namespace.
type ReportRenderer struct {
	state  *StateService
	school string
	pdf    *export.PDFExporter
	html   *template.Template
	logger *zap.Logger
	now    func() time.Time
}

// NewReportRenderer constructs the renderer. school is the name used when no profile is stored.
func NewReportRenderer(state *StateService, school string, logger *zap.Logger) *ReportRenderer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportRenderer{
		state:  state,
		school: school,
		pdf:    export.NewPDFExporter(),
		html:   template.Must(template.New("monthly").Parse(monthlyTemplate)),
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// reportData is everything a report section can draw from, already narrowed to the session scope.
type reportData struct {
	scope       Scope
	from, to    models.Date
	students    []models.StudentView
	classes     []models.Class
	infractions []models.Infraction
	attendance  []models.AttendanceRecord
	payments    models.PaymentStatus
}

// load reads strictly: a report built on a defaulted key would misstate the records.
func (r *ReportRenderer) load(ctx context.Context, session models.Session, month, classID string) (*reportData, error) {
	if month == "" {
		month = r.now().Format("2006-01")
	}
	from, to, err := models.ParseMonth(month)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	scope, err := ResolveScope(ctx, r.state, session)
	if err != nil {
		return nil, err
	}
	students, _, err := LoadStrict(ctx, r.state, models.KeyStudents, []models.Student{})
	if err != nil {
		return nil, err
	}
	classes, _, err := LoadStrict(ctx, r.state, models.KeyClasses, []models.Class{})
	if err != nil {
		return nil, err
	}
	infractions, _, err := LoadStrict(ctx, r.state, models.KeyInfractions, []models.Infraction{})
	if err != nil {
		return nil, err
	}
	attendance, _, err := LoadStrict(ctx, r.state, models.KeyAttendance, []models.AttendanceRecord{})
	if err != nil {
		return nil, err
	}
	payments, _, err := LoadStrict(ctx, r.state, models.KeyKomiteStatus, models.PaymentStatus{})
	if err != nil {
		return nil, err
	}
	views := ResolveStudents(scope.Students(students), classes, classID != "")
	if classID != "" {
		inClass := make([]models.StudentView, 0, len(views))
		for _, view := range views {
			if view.ClassID == classID {
				inClass = append(inClass, view)
			}
		}
		views = inClass
	}
	return &reportData{
		scope:       scope,
		from:        from,
		to:          to,
		students:    views,
		classes:     classes,
		infractions: infractions,
		attendance:  attendance,
		payments:    payments,
	}, nil
}

func (d *reportData) plainStudents() []models.Student {
	out := make([]models.Student, 0, len(d.students))
	for _, view := range d.students {
		out = append(out, view.Student)
	}
	return out
}

func (d *reportData) monthInfractions() []models.Infraction {
	out := make([]models.Infraction, 0)
	for _, infraction := range d.infractions {
		if infraction.Date.Within(d.from, d.to) {
			out = append(out, infraction)
		}
	}
	return out
}

// Monthly assembles the monthly report for the session.
func (r *ReportRenderer) Monthly(ctx context.Context, session models.Session, month, classID string) (*MonthlyReport, error) {
	data, err := r.load(ctx, session, month, classID)
	if err != nil {
		return nil, err
	}
	if err := requirePermission(data.scope, models.PermGenerateReports); err != nil {
		return nil, err
	}
	profile, _, err := Load(ctx, r.state, models.KeySchoolProfile, models.SchoolProfile{Name: r.school})
	if err != nil {
		return nil, err
	}

	report := &MonthlyReport{
		Title:       data.scope.Role.ReportTitle(),
		School:      profile.Name,
		LogoURL:     profile.LogoURL,
		Month:       data.from.Format("2006-01"),
		Role:        data.scope.Role.Key(),
		RoleLabel:   data.scope.Role.Label(),
		Author:      data.scope.Actor(),
		GeneratedAt: r.now(),
	}
	for _, section := range reportLayouts[data.scope.Role.Key()] {
		if p, gated := sectionPermission[section]; gated && !data.scope.Can(p) {
			continue
		}
		dataset, err := r.sectionDataset(ctx, data, section)
		if err != nil {
			return nil, err
		}
		report.Sections = append(report.Sections, export.Section{
			Title:   sectionTitles[section],
			Dataset: dataset,
			Empty:   "Tidak ada data.",
		})
	}
	return report, nil
}

// HTML renders the report as a standalone page fragment.
func (r *ReportRenderer) HTML(report *MonthlyReport) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.html.Execute(&buf, htmlReport(report)); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render report")
	}
	return buf.Bytes(), nil
}

// PDF renders the report through the tabular PDF exporter.
func (r *ReportRenderer) PDF(report *MonthlyReport) ([]byte, error) {
	subtitle := report.School + " | " + report.Month + " | " + report.Author
	content, err := r.pdf.RenderDocument(export.Document{Title: report.Title, Subtitle: subtitle, Sections: report.Sections})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render report pdf")
	}
	return content, nil
}

// Dataset builds a single export table for an asynchronous report job.
func (r *ReportRenderer) Dataset(ctx context.Context, session models.Session, reportType models.ReportType, month, classID string) (export.Dataset, string, error) {
	data, err := r.load(ctx, session, month, classID)
	if err != nil {
		return export.Dataset{}, "", err
	}
	var section reportSection
	switch reportType {
	case models.ReportTypeRoster:
		section = sectionStudents
	case models.ReportTypeInfractions:
		section = sectionRollup
	case models.ReportTypeAttendance:
		section = sectionAttendance
	case models.ReportTypePayments:
		section = sectionPayments
	default:
		return export.Dataset{}, "", appErrors.Clone(appErrors.ErrValidation, "unsupported report type "+string(reportType))
	}
	if p, gated := sectionPermission[section]; gated && !data.scope.Can(p) {
		return export.Dataset{}, "", appErrors.Clone(appErrors.ErrForbidden, "role cannot export "+string(reportType))
	}
	dataset, err := r.sectionDataset(ctx, data, section)
	if err != nil {
		return export.Dataset{}, "", err
	}
	return dataset, sectionTitles[section] + " " + data.from.Format("2006-01"), nil
}

func (r *ReportRenderer) sectionDataset(ctx context.Context, data *reportData, section reportSection) (export.Dataset, error) {
	switch section {
	case sectionStudents:
		return studentsDataset(data.students), nil
	case sectionRollup:
		// All-time totals, matching the rollup endpoint.
		return RollupDataset(RollupPoints(data.infractions, data.plainStudents(), data.classes)), nil
	case sectionInfractions:
		return infractionsDataset(JoinInfractions(data.monthInfractions(), data.plainStudents(), data.classes)), nil
	case sectionAttendance:
		return attendanceDataset(data), nil
	case sectionPayments:
		return paymentsDataset(TallyPayments(data.plainStudents(), data.classes, data.payments)), nil
	case sectionLog:
		return r.logDataset(ctx, data)
	default:
		return export.Dataset{}, nil
	}
}

func studentsDataset(views []models.StudentView) export.Dataset {
	rows := make([]map[string]string, 0, len(views))
	for _, view := range views {
		rows = append(rows, map[string]string{
			"NIS":   view.NIS,
			"Nama":  view.Name,
			"Kelas": view.ClassName,
			"L/P":   string(view.Sex),
		})
	}
	return export.Dataset{Headers: []string{"NIS", "Nama", "Kelas", "L/P"}, Rows: rows}
}

func infractionsDataset(views []models.InfractionView) export.Dataset {
	rows := make([]map[string]string, 0, len(views))
	for _, view := range views {
		rows = append(rows, map[string]string{
			"Tanggal":     view.Date.String(),
			"NIS":         view.NIS,
			"Nama":        view.StudentName,
			"Kelas":       view.ClassName,
			"Pelanggaran": view.Description,
			"Poin":        strconv.Itoa(view.Points),
			"Status":      string(view.Status),
		})
	}
	return export.Dataset{Headers: []string{"Tanggal", "NIS", "Nama", "Kelas", "Pelanggaran", "Poin", "Status"}, Rows: rows}
}

func attendanceDataset(data *reportData) export.Dataset {
	students := make([]models.AttendanceRecord, 0, len(data.attendance))
	for _, record := range data.attendance {
		if record.Kind == models.AttendanceStudent {
			students = append(students, record)
		}
	}
	rows := make([]map[string]string, 0, len(data.students))
	for _, view := range data.students {
		summary := SummarizeAttendance(students, view.NIS, data.from, data.to)
		rows = append(rows, map[string]string{
			"NIS":           view.NIS,
			"Nama":          view.Name,
			"Kelas":         view.ClassName,
			"H":             strconv.Itoa(summary.Present),
			"S":             strconv.Itoa(summary.Sick),
			"I":             strconv.Itoa(summary.Excused),
			"A":             strconv.Itoa(summary.Absent),
			"Kehadiran (%)": summary.Percentage,
		})
	}
	return export.Dataset{Headers: []string{"NIS", "Nama", "Kelas", "H", "S", "I", "A", "Kehadiran (%)"}, Rows: rows}
}

func paymentsDataset(tally models.PaymentTally) export.Dataset {
	rows := make([]map[string]string, 0)
	for _, class := range tally.Classes {
		for _, student := range class.Students {
			rows = append(rows, map[string]string{
				"Kelas":       class.ClassName,
				"NIS":         student.NIS,
				"Nama":        student.Name,
				"Lunas":       strconv.Itoa(len(student.PaidMonths)),
				"Belum Lunas": strconv.Itoa(len(student.UnpaidMonths)),
				"Tunggakan":   FormatRupiah(student.Arrears),
			})
		}
	}
	return export.Dataset{Headers: []string{"Kelas", "NIS", "Nama", "Lunas", "Belum Lunas", "Tunggakan"}, Rows: rows}
}

func (r *ReportRenderer) logDataset(ctx context.Context, data *reportData) (export.Dataset, error) {
	headers := []string{"Tanggal", "NIS", "Judul", "Catatan", "Penulis"}
	kind, ok := data.scope.Role.LogKind()
	if !ok {
		return export.Dataset{Headers: headers}, nil
	}
	entries, _, err := Load(ctx, r.state, kind.StateKey(), []models.LogEntry{})
	if err != nil {
		return export.Dataset{}, err
	}
	rows := make([]map[string]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.Date.Within(data.from, data.to) {
			continue
		}
		rows = append(rows, map[string]string{
			"Tanggal": entry.Date.String(),
			"NIS":     entry.NIS,
			"Judul":   entry.Title,
			"Catatan": entry.Note,
			"Penulis": entry.Author,
		})
	}
	return export.Dataset{Headers: headers, Rows: rows}, nil
}

// FormatRupiah renders an amount as "Rp 1.250.000".
func FormatRupiah(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	digits := strconv.FormatInt(amount, 10)
	var b strings.Builder
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(d)
	}
	return sign + "Rp " + b.String()
}

type htmlSection struct {
	Title   string
	Headers []string
	Rows    [][]string
	Empty   string
}

type htmlView struct {
	*MonthlyReport
	Tables []htmlSection
}

func htmlReport(report *MonthlyReport) htmlView {
	view := htmlView{MonthlyReport: report}
	for _, section := range report.Sections {
		view.Tables = append(view.Tables, htmlSection{
			Title:   section.Title,
			Headers: section.Dataset.Headers,
			Rows:    section.Dataset.Records(),
			Empty:   section.Empty,
		})
	}
	return view
}

const monthlyTemplate = `<section class="report report-{{.Role}}">
  <header>
    {{if .LogoURL}}<img class="logo" src="{{.LogoURL}}" alt="{{.School}}">{{end}}
    <h1>{{.Title}}</h1>
    <p class="meta">{{.School}} &middot; {{.Month}} &middot; {{.RoleLabel}} &middot; {{.Author}}</p>
  </header>
  {{range .Tables}}
  <h2>{{.Title}}</h2>
  {{if .Rows}}
  <table>
    <thead><tr>{{range .Headers}}<th>{{.}}</th>{{end}}</tr></thead>
    <tbody>{{range .Rows}}<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>{{end}}</tbody>
  </table>
  {{else}}
  <p class="empty">{{.Empty}}</p>
  {{end}}
  {{end}}
  <footer>Dibuat {{.GeneratedAt.Format "02-01-2006 15:04"}} UTC</footer>
</section>
`
