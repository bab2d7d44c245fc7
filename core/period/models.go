package period

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/sutdhousing/portal/core"
)

// TimePeriod is a stay period students may apply for.
type TimePeriod struct {
	StartDate time.Time `json:"start_date" validate:"required"`
	EndDate   time.Time `json:"end_date" validate:"required,gtfield=StartDate"`
}

func (tp TimePeriod) Equal(other TimePeriod) bool {
	return tp.StartDate.Equal(other.StartDate) && tp.EndDate.Equal(other.EndDate)
}

// ApplicationPeriod is an admin-defined window during which students may apply for housing.
type ApplicationPeriod struct {
	UID                    string       `json:"uid"`
	CreatedAt              time.Time    `json:"created_at"` // UTC
	CreatedBy              string       `json:"created_by"`
	UpdatedAt              time.Time    `json:"updated_at"` // UTC
	ApplicationWindowOpen  time.Time    `json:"application_window_open"`
	ApplicationWindowClose time.Time    `json:"application_window_close"`
	ApplicablePeriods      []TimePeriod `json:"applicable_periods"`
	ApplicableRooms        []string     `json:"applicable_rooms"`
	ApplicableStudents     []string     `json:"applicable_students"` // empty: every student

	// derived from the submitted applications
	ApplicationForms []string `json:"application_forms"`
}

// IsOpen reports whether applications are accepted at t.
func (p ApplicationPeriod) IsOpen(t time.Time) bool {
	return !t.Before(p.ApplicationWindowOpen) && t.Before(p.ApplicationWindowClose)
}

// IsApplicable reports whether the student may apply during this period.
func (p ApplicationPeriod) IsApplicable(studentID string) bool {
	if len(p.ApplicableStudents) == 0 {
		return true
	}
	for _, id := range p.ApplicableStudents {
		if id == studentID {
			return true
		}
	}
	return false
}

// HasPeriod reports whether tp is one of the applicable periods.
func (p ApplicationPeriod) HasPeriod(tp TimePeriod) bool {
	for _, ap := range p.ApplicablePeriods {
		if ap.Equal(tp) {
			return true
		}
	}
	return false
}

// PeriodData is the payload creating or overwriting an ApplicationPeriod.
type PeriodData struct {
	ApplicationWindowOpen  time.Time    `json:"application_window_open" validate:"required"`
	ApplicationWindowClose time.Time    `json:"application_window_close" validate:"required,gtfield=ApplicationWindowOpen"`
	ApplicablePeriods      []TimePeriod `json:"applicable_periods" validate:"required,min=1,dive"`
	ApplicableRooms        []string     `json:"applicable_rooms"`
	ApplicableStudents     []string     `json:"applicable_students"`
}

func (pd *PeriodData) Validate(validate *validator.Validate) error {
	pd.ApplicableRooms = core.CleanStrings(pd.ApplicableRooms)
	pd.ApplicableStudents = core.CleanStrings(pd.ApplicableStudents, true /* lower */)
	return validate.Struct(pd)
}

func (pd PeriodData) apply(p *ApplicationPeriod) {
	p.ApplicationWindowOpen = pd.ApplicationWindowOpen.UTC()
	p.ApplicationWindowClose = pd.ApplicationWindowClose.UTC()
	p.ApplicablePeriods = make([]TimePeriod, 0, len(pd.ApplicablePeriods))
	for _, tp := range pd.ApplicablePeriods {
		p.ApplicablePeriods = append(p.ApplicablePeriods, TimePeriod{StartDate: tp.StartDate.UTC(), EndDate: tp.EndDate.UTC()})
	}
	p.ApplicableRooms = pd.ApplicableRooms
	p.ApplicableStudents = pd.ApplicableStudents
	if p.ApplicableRooms == nil {
		p.ApplicableRooms = []string{}
	}
	if p.ApplicableStudents == nil {
		p.ApplicableStudents = []string{}
	}
}
