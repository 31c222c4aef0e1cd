package service

import (
	"math"
	"sort"
	"strconv"

	"github.com/noah-isme/smk-student-hub/internal/models"
)

// Risk band thresholds on accumulated infraction points.
const (
	HighRiskPoints   = 50
	MediumRiskPoints = 20
)

// RiskBandFor classifies a point total.
func RiskBandFor(points int) models.RiskBand {
	switch {
	case points > HighRiskPoints:
		return models.RiskHigh
	case points > MediumRiskPoints:
		return models.RiskMedium
	default:
		return models.RiskLow
	}
}

func classIndex(classes []models.Class) map[string]models.Class {
	index := make(map[string]models.Class, len(classes))
	for _, class := range classes {
		index[class.ID] = class
	}
	return index
}

func studentIndex(students []models.Student) map[string]models.Student {
	index := make(map[string]models.Student, len(students))
	for _, student := range students {
		index[student.NIS] = student
	}
	return index
}

// ResolveStudents joins students with their class names. With classScoped set, students whose
// class does not resolve are left out.
func ResolveStudents(students []models.Student, classes []models.Class, classScoped bool) []models.StudentView {
	index := classIndex(classes)
	views := make([]models.StudentView, 0, len(students))
	for _, student := range students {
		class, ok := index[student.ClassID]
		if !ok && classScoped {
			continue
		}
		views = append(views, models.StudentView{Student: student, ClassName: class.Name})
	}
	return views
}

// SummarizeClasses counts the students that resolve to each class.
func SummarizeClasses(classes []models.Class, students []models.Student) []models.ClassSummary {
	counts := make(map[string]int, len(classes))
	for _, student := range students {
		counts[student.ClassID]++
	}
	summaries := make([]models.ClassSummary, 0, len(classes))
	for _, class := range classes {
		summaries = append(summaries, models.ClassSummary{Class: class, StudentCount: counts[class.ID]})
	}
	return summaries
}

// JoinInfractions resolves the student and class of every infraction. Records whose NIS has no
// student are dropped.
func JoinInfractions(infractions []models.Infraction, students []models.Student, classes []models.Class) []models.InfractionView {
	byNIS := studentIndex(students)
	byClass := classIndex(classes)
	views := make([]models.InfractionView, 0, len(infractions))
	for _, infraction := range infractions {
		student, ok := byNIS[infraction.NIS]
		if !ok {
			continue
		}
		views = append(views, models.InfractionView{
			Infraction:  infraction,
			StudentName: student.Name,
			ClassID:     student.ClassID,
			ClassName:   byClass[student.ClassID].Name,
		})
	}
	return views
}

// RollupPoints sums infraction points per student and ranks them by total, highest first.
// Students with equal totals keep their roster order. Students without infractions are omitted.
func RollupPoints(infractions []models.Infraction, students []models.Student, classes []models.Class) []models.PointRollup {
	type tally struct {
		points int
		count  int
	}
	totals := make(map[string]*tally, len(students))
	for _, student := range students {
		totals[student.NIS] = &tally{}
	}
	for _, infraction := range infractions {
		t, ok := totals[infraction.NIS]
		if !ok {
			continue
		}
		t.points += infraction.Points
		t.count++
	}

	byClass := classIndex(classes)
	rollup := make([]models.PointRollup, 0, len(students))
	seen := make(map[string]bool, len(students))
	for _, student := range students {
		t := totals[student.NIS]
		if t.count == 0 || seen[student.NIS] {
			continue
		}
		seen[student.NIS] = true
		rollup = append(rollup, models.PointRollup{
			NIS:             student.NIS,
			Name:            student.Name,
			ClassID:         student.ClassID,
			ClassName:       byClass[student.ClassID].Name,
			TotalPoints:     t.points,
			InfractionCount: t.count,
			Band:            RiskBandFor(t.points),
		})
	}
	sort.SliceStable(rollup, func(i, j int) bool {
		return rollup[i].TotalPoints > rollup[j].TotalPoints
	})
	return rollup
}

// FormatPercentage renders part/total as a one-decimal percentage, or N/A when total is zero.
func FormatPercentage(part, total int) string {
	if total == 0 {
		return models.AttendanceNA
	}
	pct := math.Round(float64(part)/float64(total)*1000) / 10
	return strconv.FormatFloat(pct, 'f', 1, 64)
}

// SummarizeAttendance counts statuses for one subject within [from, to].
func SummarizeAttendance(records []models.AttendanceRecord, subjectID string, from, to models.Date) models.AttendanceSummary {
	summary := models.AttendanceSummary{SubjectID: subjectID}
	for _, record := range records {
		if record.SubjectID != subjectID || !record.Date.Within(from, to) {
			continue
		}
		countStatus(&summary, record.Status)
	}
	summary.Percentage = FormatPercentage(summary.Present, summary.Total)
	return summary
}

// AttendancePercentage is the present share of sessions for one subject within [from, to].
func AttendancePercentage(records []models.AttendanceRecord, subjectID string, from, to models.Date) string {
	return SummarizeAttendance(records, subjectID, from, to).Percentage
}

func countStatus(summary *models.AttendanceSummary, status models.AttendanceStatus) {
	switch status {
	case models.AttendanceStatusPresent:
		summary.Present++
	case models.AttendanceStatusSick:
		summary.Sick++
	case models.AttendanceStatusExcused:
		summary.Excused++
	case models.AttendanceStatusAbsent:
		summary.Absent++
	default:
		return
	}
	summary.Total++
}

// TallyPayments computes arrears as unpaid months times the class fee, per student, class and school.
// Students whose class does not resolve are excluded.
func TallyPayments(students []models.Student, classes []models.Class, status models.PaymentStatus) models.PaymentTally {
	months := append([]string(nil), models.AcademicMonths...)
	tally := models.PaymentTally{Months: months, Classes: make([]models.ClassTally, 0, len(classes))}
	position := make(map[string]int, len(classes))
	for _, class := range classes {
		position[class.ID] = len(tally.Classes)
		tally.Classes = append(tally.Classes, models.ClassTally{
			ClassID:   class.ID,
			ClassName: class.Name,
			Fee:       class.MonthlyFee,
			Students:  []models.StudentArrears{},
		})
	}

	for _, student := range students {
		idx, ok := position[student.ClassID]
		if !ok {
			continue
		}
		class := &tally.Classes[idx]
		arrears := StudentArrearsFor(student, class.Fee, status)
		class.Students = append(class.Students, arrears)
		class.Arrears += arrears.Arrears
		class.Collected += int64(len(arrears.PaidMonths)) * class.Fee
	}

	for _, class := range tally.Classes {
		tally.Arrears += class.Arrears
		tally.Collected += class.Collected
	}
	return tally
}

// StudentArrearsFor splits the academic year into paid and unpaid months for one student.
func StudentArrearsFor(student models.Student, fee int64, status models.PaymentStatus) models.StudentArrears {
	arrears := models.StudentArrears{
		NIS:          student.NIS,
		Name:         student.Name,
		ClassID:      student.ClassID,
		PaidMonths:   []string{},
		UnpaidMonths: []string{},
		MonthlyFee:   fee,
	}
	for _, month := range models.AcademicMonths {
		if status.Paid(student.NIS, month) {
			arrears.PaidMonths = append(arrears.PaidMonths, month)
			continue
		}
		arrears.UnpaidMonths = append(arrears.UnpaidMonths, month)
	}
	arrears.Arrears = int64(len(arrears.UnpaidMonths)) * fee
	return arrears
}
