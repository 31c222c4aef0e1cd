package models

import "time"

// AcademicMonths is the komite billing year, July through June.
var AcademicMonths = []string{
	"Juli", "Agustus", "September", "Oktober", "November", "Desember",
	"Januari", "Februari", "Maret", "April", "Mei", "Juni",
}

// ValidMonth reports whether name is one of the academic months.
func ValidMonth(name string) bool {
	for _, m := range AcademicMonths {
		if m == name {
			return true
		}
	}
	return false
}

// PaymentStatus maps NIS to month to paid flag.
type PaymentStatus map[string]map[string]bool

// Paid reports whether nis has paid for month.
func (p PaymentStatus) Paid(nis, month string) bool {
	return p[nis][month]
}

// Set records the paid flag, allocating the inner map as needed.
func (p PaymentStatus) Set(nis, month string, paid bool) {
	months, ok := p[nis]
	if !ok {
		months = make(map[string]bool, len(AcademicMonths))
		p[nis] = months
	}
	months[month] = paid
}

// PaymentHistoryEntry is an audit line for a payment flag change.
type PaymentHistoryEntry struct {
	ID         string    `json:"id"`
	NIS        string    `json:"nis"`
	Month      string    `json:"month"`
	Paid       bool      `json:"paid"`
	Amount     int64     `json:"amount"`
	RecordedBy string    `json:"recorded_by"`
	RecordedAt time.Time `json:"recorded_at"`
}

// StudentArrears summarises one student's unpaid months.
type StudentArrears struct {
	NIS          string   `json:"nis"`
	Name         string   `json:"name"`
	ClassID      string   `json:"class_id"`
	PaidMonths   []string `json:"paid_months"`
	UnpaidMonths []string `json:"unpaid_months"`
	MonthlyFee   int64    `json:"monthly_fee"`
	Arrears      int64    `json:"arrears"`
}

// ClassTally sums arrears for a class.
type ClassTally struct {
	ClassID   string           `json:"class_id"`
	ClassName string           `json:"class_name"`
	Fee       int64            `json:"monthly_fee"`
	Students  []StudentArrears `json:"students"`
	Arrears   int64            `json:"arrears"`
	Collected int64            `json:"collected"`
}

// PaymentTally is the school-wide komite position.
type PaymentTally struct {
	Months    []string     `json:"months"`
	Classes   []ClassTally `json:"classes"`
	Arrears   int64        `json:"arrears"`
	Collected int64        `json:"collected"`
}
