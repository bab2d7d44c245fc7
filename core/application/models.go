package application

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/sutdhousing/portal/core"
	"github.com/sutdhousing/portal/core/period"
	"github.com/sutdhousing/portal/core/student"
)

// Statuses
const (
	StatusSubmitted = "SUBMITTED"
	StatusWithdrawn = "WITHDRAWN"
	StatusOffered   = "OFFERED"
	StatusRejected  = "REJECTED"
)

var Statuses = []string{StatusSubmitted, StatusWithdrawn, StatusOffered, StatusRejected}

// Wizard steps
const (
	StepPeriod = iota
	StepPersonal
	StepRoomProfile
	StepLifestyleProfile
	StepSummary
)

// Form is a housing application submitted by a student for an application period.
type Form struct {
	UID                  string                   `json:"uid"`
	CreatedAt            time.Time                `json:"created_at"` // UTC
	UpdatedAt            time.Time                `json:"updated_at"` // UTC
	StudentID            string                   `json:"student_id"`
	ApplicationPeriodUID string                   `json:"application_period_uid"`
	ApplicablePeriod     period.TimePeriod        `json:"applicable_period"`
	RoomProfile          student.RoomProfile      `json:"room_profile"`
	LifestyleProfile     student.LifestyleProfile `json:"lifestyle_profile"`
	Status               string                   `json:"status"`
	Remarks              string                   `json:"remarks"`
}

// IsActive reports whether the form still counts as the student's application for its period.
func (f Form) IsActive() bool {
	return f.Status == StatusSubmitted || f.Status == StatusOffered
}

// NewForm contains information needed to submit an application.
type NewForm struct {
	ApplicationPeriodUID string                   `json:"application_period_uid" validate:"required"`
	ApplicablePeriod     period.TimePeriod        `json:"applicable_period"`
	RoomProfile          student.RoomProfile      `json:"room_profile"`
	LifestyleProfile     student.LifestyleProfile `json:"lifestyle_profile"`
}

func (nf *NewForm) Validate(validate *validator.Validate) error {
	nf.ApplicationPeriodUID = core.CleanString(nf.ApplicationPeriodUID)
	return validate.Struct(nf)
}

// StatusUpdate is the admin decision on a Form.
type StatusUpdate struct {
	Status  string `json:"status" validate:"required,appstatus"`
	Remarks string `json:"remarks"`
}

func (su *StatusUpdate) Validate(validate *validator.Validate) error {
	su.Status = core.CleanString(su.Status)
	su.Remarks = core.CleanString(su.Remarks)
	return validate.Struct(su)
}

type QueryFilter struct {
	PeriodUID string `query:"period"`
	Status    string `query:"status"`
	StudentID string `query:"student_id"`
}

func (qf *QueryFilter) Clean() {
	qf.PeriodUID = core.CleanString(qf.PeriodUID)
	qf.Status = core.CleanString(qf.Status)
	qf.StudentID = core.CleanString(qf.StudentID, true /* lower */)
}

// Draft is the saved state of the application wizard of a student for one period.
type Draft struct {
	StudentID            string                    `json:"student_id"`
	ApplicationPeriodUID string                    `json:"application_period_uid"`
	CurrentStep          int                       `json:"current_step"`
	ApplicablePeriod     *period.TimePeriod        `json:"applicable_period"`
	Personal             *student.EditableProfile  `json:"personal"`
	RoomProfile          *student.RoomProfile      `json:"room_profile"`
	LifestyleProfile     *student.LifestyleProfile `json:"lifestyle_profile"`
	UpdatedAt            time.Time                 `json:"updated_at"` // UTC
}

// DraftUpdate carries the values entered on one wizard step. Nil sections are left untouched.
type DraftUpdate struct {
	Step             int                       `json:"step" validate:"min=0,max=4"`
	ApplicablePeriod *period.TimePeriod        `json:"applicable_period"`
	Personal         *student.EditableProfile  `json:"personal"`
	RoomProfile      *student.RoomProfile      `json:"room_profile"`
	LifestyleProfile *student.LifestyleProfile `json:"lifestyle_profile"`
}

func (du *DraftUpdate) Validate(validate *validator.Validate) error {
	return validate.Struct(du)
}

func (du DraftUpdate) apply(d *Draft) {
	d.CurrentStep = du.Step
	if du.ApplicablePeriod != nil {
		d.ApplicablePeriod = du.ApplicablePeriod
	}
	if du.Personal != nil {
		d.Personal = du.Personal
	}
	if du.RoomProfile != nil {
		d.RoomProfile = du.RoomProfile
	}
	if du.LifestyleProfile != nil {
		d.LifestyleProfile = du.LifestyleProfile
	}
}
