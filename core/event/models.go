package event

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/sutdhousing/portal/core"
)

// Event types
const (
	TypeFloor     = "FLOOR"
	TypeHouse     = "HOUSE"
	TypeInstitute = "INSTITUTE"
)

var Types = []string{TypeFloor, TypeHouse, TypeInstitute}

type Event struct {
	UID             string     `json:"uid"`
	Title           string     `json:"title"`
	EventType       string     `json:"event_type"`
	MeetupLocation  string     `json:"meetup_location"`
	StartTime       time.Time  `json:"start_time"`
	DurationMins    int        `json:"duration_mins"`
	Description     string     `json:"description"`
	SignupLimit     int        `json:"signup_limit"`
	SignupDDL       *time.Time `json:"signup_ddl"`
	CountAttendance bool       `json:"count_attendance"`
	IsCompulsory    bool       `json:"is_compulsory"`
	CreatedBy       string     `json:"created_by"`
	CreatedAt       time.Time  `json:"created_at"` // UTC
	UpdatedAt       time.Time  `json:"updated_at"` // UTC
	Signups         []string   `json:"signups"`
	Attendance      []string   `json:"attendance"`
}

func (e Event) IsSignedUp(studentID string) bool {
	for _, id := range e.Signups {
		if id == studentID {
			return true
		}
	}
	return false
}

// SignupOpen reports whether students may still sign up or quit at t.
func (e Event) SignupOpen(t time.Time) bool {
	if e.SignupDDL != nil {
		return t.Before(*e.SignupDDL)
	}
	return t.Before(e.StartTime)
}

// EventData is the payload creating or overwriting an Event.
type EventData struct {
	Title           string     `json:"title" validate:"required,notblank"`
	EventType       string     `json:"event_type" validate:"required,eventtype"`
	MeetupLocation  string     `json:"meetup_location" validate:"required,notblank"`
	StartTime       time.Time  `json:"start_time" validate:"required"`
	DurationMins    int        `json:"duration_mins" validate:"required,gt=0"`
	Description     string     `json:"description"`
	SignupLimit     int        `json:"signup_limit" validate:"required,gt=0"`
	SignupDDL       *time.Time `json:"signup_ddl" validate:"omitempty,ltefield=StartTime"`
	CountAttendance bool       `json:"count_attendance"`
	IsCompulsory    bool       `json:"is_compulsory"`
}

func (ed *EventData) Validate(validate *validator.Validate) error {
	ed.Title = core.CleanString(ed.Title)
	ed.EventType = core.CleanString(ed.EventType)
	ed.MeetupLocation = core.CleanString(ed.MeetupLocation)
	ed.Description = core.CleanString(ed.Description)
	return validate.Struct(ed)
}

func (ed EventData) apply(e *Event) {
	e.Title = ed.Title
	e.EventType = ed.EventType
	e.MeetupLocation = ed.MeetupLocation
	e.StartTime = ed.StartTime.UTC()
	e.DurationMins = ed.DurationMins
	e.Description = ed.Description
	e.SignupLimit = ed.SignupLimit
	e.SignupDDL = nil
	if ed.SignupDDL != nil {
		ddl := ed.SignupDDL.UTC()
		e.SignupDDL = &ddl
	}
	e.CountAttendance = ed.CountAttendance
	e.IsCompulsory = ed.IsCompulsory
}

// Attendance lists the signed up students who attended an event.
type Attendance struct {
	StudentIDs []string `json:"student_ids"`
}

type QueryFilter struct {
	StartFrom *time.Time `query:"start_from"`
	StudentID string     `query:"student_id"` // signed up student
}
