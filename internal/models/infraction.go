package models

import "time"

// InfractionStatus is the workflow position of an infraction record.
type InfractionStatus string

const (
	InfractionReported           InfractionStatus = "REPORTED"
	InfractionHandledHomeroom    InfractionStatus = "HANDLED_HOMEROOM"
	InfractionEscalatedCounselor InfractionStatus = "ESCALATED_COUNSELOR"
	InfractionEscalatedViceHead  InfractionStatus = "ESCALATED_VICE_HEAD"
	InfractionClosed             InfractionStatus = "CLOSED"
)

var infractionRank = map[InfractionStatus]int{
	InfractionReported:           0,
	InfractionHandledHomeroom:    1,
	InfractionEscalatedCounselor: 2,
	InfractionEscalatedViceHead:  3,
	InfractionClosed:             4,
}

// Valid reports whether the status is part of the workflow.
func (s InfractionStatus) Valid() bool {
	_, ok := infractionRank[s]
	return ok
}

// CanTransition allows moving strictly forward, skipping steps if needed.
func (s InfractionStatus) CanTransition(to InfractionStatus) bool {
	from, ok := infractionRank[s]
	if !ok {
		return false
	}
	target, ok := infractionRank[to]
	return ok && target > from
}

// RequiredPermission returns the capability needed to move a record into s.
func (s InfractionStatus) RequiredPermission() Permission {
	switch s {
	case InfractionHandledHomeroom:
		return PermHandleInfraction
	case InfractionEscalatedCounselor, InfractionEscalatedViceHead:
		return PermEscalateInfraction
	case InfractionClosed:
		return PermCloseInfraction
	default:
		return PermRecordInfraction
	}
}

// StatusChange records one workflow step.
type StatusChange struct {
	Status InfractionStatus `json:"status"`
	By     string           `json:"by"`
	Note   string           `json:"note,omitempty"`
	At     time.Time        `json:"at"`
}

// Infraction is a pelanggaran record. Only the NIS is stored; name and class are resolved on read.
type Infraction struct {
	ID            string           `json:"id"`
	Date          Date             `json:"date"`
	NIS           string           `json:"nis"`
	Description   string           `json:"description"`
	Points        int              `json:"points"`
	Reporter      string           `json:"reporter"`
	InitialAction string           `json:"initial_action,omitempty"`
	Status        InfractionStatus `json:"status"`
	History       []StatusChange   `json:"history,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
}

// InfractionView is an infraction joined with its student.
type InfractionView struct {
	Infraction
	StudentName string `json:"student_name"`
	ClassID     string `json:"class_id"`
	ClassName   string `json:"class_name"`
}

// InfractionFilter narrows infraction listings.
type InfractionFilter struct {
	NIS     string
	ClassID string
	Status  InfractionStatus
	From    Date
	To      Date
}

// RiskBand classifies accumulated points.
type RiskBand string

const (
	RiskLow    RiskBand = "low"
	RiskMedium RiskBand = "medium"
	RiskHigh   RiskBand = "high"
)

// PointRollup is one student's accumulated infraction points.
type PointRollup struct {
	NIS             string   `json:"nis"`
	Name            string   `json:"name"`
	ClassID         string   `json:"class_id"`
	ClassName       string   `json:"class_name"`
	TotalPoints     int      `json:"total_points"`
	InfractionCount int      `json:"infraction_count"`
	Band            RiskBand `json:"band"`
}
