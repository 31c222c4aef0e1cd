package models

import (
	"encoding/json"
	"time"

	"github.com/noah-isme/smk-student-hub/pkg/eventbus"
)

// StateKey names one entry of the persisted namespace.
type StateKey string

const (
	KeyStudents      StateKey = "students"
	KeyClasses       StateKey = "classes"
	KeyTeachers      StateKey = "teachers"
	KeyInfractions   StateKey = "infraction_history"
	KeyAttendance    StateKey = "attendance"
	KeyKomiteStatus  StateKey = "komite_status"
	KeyKomiteHistory StateKey = "komite_history"
	KeyLogCounselor  StateKey = "log_counselor"
	KeyLogHomeroom   StateKey = "log_homeroom"
	KeyLogDiscipline StateKey = "log_discipline"
	KeyLogCompanion  StateKey = "log_companion"
	KeyLastSession   StateKey = "last_session"
	KeySchoolProfile StateKey = "school_profile"
	KeyTheme         StateKey = "theme"
)

// Entity families carried on change events.
const (
	EntityStudents    eventbus.Entity = "students"
	EntityClasses     eventbus.Entity = "classes"
	EntityTeachers    eventbus.Entity = "teachers"
	EntityInfractions eventbus.Entity = "infractions"
	EntityAttendance  eventbus.Entity = "attendance"
	EntityPayments    eventbus.Entity = "payments"
	EntityLogs        eventbus.Entity = "logs"
	EntitySession     eventbus.Entity = "session"
	EntityProfile     eventbus.Entity = "profile"
	EntityPreferences eventbus.Entity = "preferences"
)

var stateKeys = []StateKey{
	KeyStudents,
	KeyClasses,
	KeyTeachers,
	KeyInfractions,
	KeyAttendance,
	KeyKomiteStatus,
	KeyKomiteHistory,
	KeyLogCounselor,
	KeyLogHomeroom,
	KeyLogDiscipline,
	KeyLogCompanion,
	KeyLastSession,
	KeySchoolProfile,
	KeyTheme,
}

var keyEntities = map[StateKey]eventbus.Entity{
	KeyStudents:      EntityStudents,
	KeyClasses:       EntityClasses,
	KeyTeachers:      EntityTeachers,
	KeyInfractions:   EntityInfractions,
	KeyAttendance:    EntityAttendance,
	KeyKomiteStatus:  EntityPayments,
	KeyKomiteHistory: EntityPayments,
	KeyLogCounselor:  EntityLogs,
	KeyLogHomeroom:   EntityLogs,
	KeyLogDiscipline: EntityLogs,
	KeyLogCompanion:  EntityLogs,
	KeyLastSession:   EntitySession,
	KeySchoolProfile: EntityProfile,
	KeyTheme:         EntityPreferences,
}

// StateKeys lists every known key in backup order.
func StateKeys() []StateKey {
	keys := make([]StateKey, len(stateKeys))
	copy(keys, stateKeys)
	return keys
}

// ParseStateKey reports whether raw names a known key.
func ParseStateKey(raw string) (StateKey, bool) {
	key := StateKey(raw)
	_, ok := keyEntities[key]
	return key, ok
}

// Entity returns the event family the key belongs to.
func (k StateKey) Entity() eventbus.Entity {
	if entity, ok := keyEntities[k]; ok {
		return entity
	}
	return eventbus.Entity(k)
}

// AnyVersion disables the optimistic concurrency check on writes.
const AnyVersion int64 = -1

// StateEntry is one stored key with its raw JSON value.
type StateEntry struct {
	Key       StateKey        `json:"key"`
	Value     json.RawMessage `json:"value"`
	Version   int64           `json:"version"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// SchoolProfile carries the school identity shown on reports and the login screen.
type SchoolProfile struct {
	Name      string    `json:"name"`
	LogoURL   string    `json:"logo_url,omitempty"`
	Source    string    `json:"source,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Theme is the persisted UI colour scheme.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// Valid reports whether the theme is supported.
func (t Theme) Valid() bool {
	return t == ThemeLight || t == ThemeDark
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
