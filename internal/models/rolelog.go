package models

import "time"

// LogKind names a per-role note collection.
type LogKind string

const (
	LogCounselor  LogKind = "counselor"
	LogHomeroom   LogKind = "homeroom"
	LogDiscipline LogKind = "discipline"
	LogCompanion  LogKind = "companion"
)

var logKeys = map[LogKind]StateKey{
	LogCounselor:  KeyLogCounselor,
	LogHomeroom:   KeyLogHomeroom,
	LogDiscipline: KeyLogDiscipline,
	LogCompanion:  KeyLogCompanion,
}

// ParseLogKind validates a log kind path segment.
func ParseLogKind(raw string) (LogKind, bool) {
	kind := LogKind(raw)
	_, ok := logKeys[kind]
	return kind, ok
}

// StateKey returns the key holding this log.
func (k LogKind) StateKey() StateKey {
	return logKeys[k]
}

// LogEntry is a dated note, optionally about one student.
type LogEntry struct {
	ID        string    `json:"id"`
	Date      Date      `json:"date"`
	NIS       string    `json:"nis,omitempty"`
	Title     string    `json:"title"`
	Note      string    `json:"note"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"created_at"`
}
