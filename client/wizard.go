package client

import (
	"context"
	"net/http"

	"github.com/pkg/errors"

	"github.com/sutdhousing/portal/core/application"
	"github.com/sutdhousing/portal/core/period"
	"github.com/sutdhousing/portal/core/student"
)

var (
	ErrNotLastStep = errors.New("the application can only be submitted from the summary step")
	ErrNoPeriod    = errors.New("no application period selected")
	ErrFirstStep   = errors.New("already at the first step")
	ErrLastStep    = errors.New("already at the last step")
)

// Wizard walks a student through the application steps: period selection,
// personal details, room profile, lifestyle profile and summary.
// Values entered on a step survive moving back and forth.
type Wizard struct {
	c    *Client
	step int

	PeriodUID        string
	ApplicablePeriod *period.TimePeriod
	Personal         *student.EditableProfile
	RoomProfile      *student.RoomProfile
	LifestyleProfile *student.LifestyleProfile
}

func NewWizard(c *Client) *Wizard {
	return &Wizard{c: c, step: application.StepPeriod}
}

// ResumeWizard restores the saved draft of the period, or starts afresh when there is none.
func ResumeWizard(ctx context.Context, c *Client, periodUID string) (*Wizard, error) {
	w := NewWizard(c)
	w.PeriodUID = periodUID

	d, err := c.GetDraft(ctx, periodUID)
	if err != nil {
		if apiErr, ok := err.(*APIError); ok && apiErr.StatusCode == http.StatusNotFound {
			return w, nil
		}
		return nil, err
	}
	w.step = d.CurrentStep
	w.ApplicablePeriod = d.ApplicablePeriod
	w.Personal = d.Personal
	w.RoomProfile = d.RoomProfile
	w.LifestyleProfile = d.LifestyleProfile
	return w, nil
}

func (w *Wizard) Step() int {
	return w.step
}

// SelectPeriod chooses the application period and the stay period applied for.
func (w *Wizard) SelectPeriod(periodUID string, tp period.TimePeriod) {
	w.PeriodUID = periodUID
	w.ApplicablePeriod = &tp
}

func (w *Wizard) SetPersonal(ep student.EditableProfile) {
	w.Personal = &ep
}

func (w *Wizard) SetRoomProfile(rp student.RoomProfile) {
	w.RoomProfile = &rp
}

func (w *Wizard) SetLifestyleProfile(lp student.LifestyleProfile) {
	w.LifestyleProfile = &lp
}

// ValidateStep checks the values required by the current step.
func (w *Wizard) ValidateStep() error {
	verr := make(ValidationError)
	switch w.step {
	case application.StepPeriod:
		if w.PeriodUID == "" {
			verr["application_period_uid"] = msgRequired
		}
		if w.ApplicablePeriod == nil || w.ApplicablePeriod.StartDate.IsZero() || w.ApplicablePeriod.EndDate.IsZero() {
			verr["applicable_period"] = msgRequired
		}
	case application.StepPersonal:
		if w.Personal == nil {
			verr["personal"] = msgRequired
		}
	case application.StepRoomProfile:
		if w.RoomProfile == nil {
			verr["room_profile"] = msgRequired
			break
		}
		form := RoomProfileEdit{StudentID: "-", Profile: *w.RoomProfile}
		if err := form.Validate(); err != nil {
			for k, v := range err.(ValidationError) {
				verr["room_profile."+k] = v
			}
		}
	case application.StepLifestyleProfile:
		if w.LifestyleProfile == nil {
			verr["lifestyle_profile"] = msgRequired
			break
		}
		form := LifestyleData{StudentID: "-", Profile: *w.LifestyleProfile}
		if err := form.Validate(); err != nil {
			for k, v := range err.(ValidationError) {
				verr["lifestyle_profile."+k] = v
			}
		}
	}
	if len(verr) > 0 {
		return verr
	}
	return nil
}

// Next validates the current step then advances.
func (w *Wizard) Next() error {
	if w.step == application.StepSummary {
		return ErrLastStep
	}
	if err := w.ValidateStep(); err != nil {
		return err
	}
	w.step++
	return nil
}

// Back returns to the previous step. Entered values are kept.
func (w *Wizard) Back() error {
	if w.step == application.StepPeriod {
		return ErrFirstStep
	}
	w.step--
	return nil
}

// Save persists the wizard state as the draft of the selected period.
func (w *Wizard) Save(ctx context.Context) error {
	if w.PeriodUID == "" {
		return ErrNoPeriod
	}
	_, err := w.c.SaveDraft(ctx, w.PeriodUID, application.DraftUpdate{
		Step:             w.step,
		ApplicablePeriod: w.ApplicablePeriod,
		Personal:         w.Personal,
		RoomProfile:      w.RoomProfile,
		LifestyleProfile: w.LifestyleProfile,
	})
	return err
}

// Discard deletes the saved draft.
func (w *Wizard) Discard(ctx context.Context) error {
	if w.PeriodUID == "" {
		return ErrNoPeriod
	}
	return w.c.DeleteDraft(ctx, w.PeriodUID)
}

// Form returns the application built from the entered values.
func (w *Wizard) Form() application.NewForm {
	nf := application.NewForm{ApplicationPeriodUID: w.PeriodUID}
	if w.ApplicablePeriod != nil {
		nf.ApplicablePeriod = *w.ApplicablePeriod
	}
	if w.RoomProfile != nil {
		nf.RoomProfile = *w.RoomProfile
	}
	if w.LifestyleProfile != nil {
		nf.LifestyleProfile = *w.LifestyleProfile
	}
	return nf
}

// Submit posts the application. Only allowed from the summary step.
// The personal details are saved to the student profile first.
func (w *Wizard) Submit(ctx context.Context, studentID string) (application.Form, error) {
	if w.step != application.StepSummary {
		return application.Form{}, ErrNotLastStep
	}
	if w.Personal != nil {
		if _, err := w.c.UpdateStudent(ctx, studentID, *w.Personal); err != nil {
			return application.Form{}, errors.Wrap(err, "updating personal details")
		}
	}
	return w.c.SubmitApplication(ctx, w.Form())
}
