package application

import (
	"context"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/sutdhousing/portal/core"
	"github.com/sutdhousing/portal/core/period"
	"github.com/sutdhousing/portal/core/student"
)

var (
	// errors
	ErrNotFound           = errors.New("application not found")
	ErrDraftNotFound      = errors.New("draft not found")
	ErrWindowClosed       = errors.New("the application window is closed")
	ErrNotApplicable      = errors.New("you are not eligible for this application period")
	ErrUnknownPeriod      = errors.New("applicable_period is not one of the application period's")
	ErrAlreadyApplied     = errors.New("you already have an active application for this period")
	ErrCannotWithdraw     = errors.New("only submitted applications can be withdrawn")
	ErrPeriodDoesNotExist = errors.New("application period does not exist")

	nowFunc = time.Now // mockable
)

type (
	Repository interface {
		// CreateForm fails with ErrAlreadyApplied when the student already has an active form for the period.
		CreateForm(ctx context.Context, f Form) (Form, error)
		QueryForms(ctx context.Context, filter *QueryFilter) ([]Form, error) // ordered by creation, oldest first
		GetForm(ctx context.Context, uid string) (Form, error)
		UpdateForm(ctx context.Context, f Form) (Form, error)
	}

	// DraftStore keeps the wizard drafts. Drafts expire on their own.
	DraftStore interface {
		GetDraft(ctx context.Context, studentID, periodUID string) (Draft, error)
		SaveDraft(ctx context.Context, d Draft) error
		DeleteDraft(ctx context.Context, studentID, periodUID string) error
	}

	Service interface {
		Submit(ctx context.Context, studentID string, nf NewForm) (Form, error)
		Query(ctx context.Context, filter *QueryFilter) ([]Form, error)
		// QueryByStudent returns the student's forms keyed by UID.
		QueryByStudent(ctx context.Context, studentID string) (map[string]Form, error)
		Get(ctx context.Context, uid string) (Form, error)
		Withdraw(ctx context.Context, uid string) (Form, error)
		SetStatus(ctx context.Context, uid string, su StatusUpdate) (Form, error)

		GetDraft(ctx context.Context, studentID, periodUID string) (Draft, error)
		SaveDraft(ctx context.Context, studentID, periodUID string, du DraftUpdate) (Draft, error)
		DeleteDraft(ctx context.Context, studentID, periodUID string) error
	}

	service struct {
		tx         core.Transactor
		repo       Repository
		drafts     DraftStore
		periodSvc  period.Service
		studentSvc student.Service
		mailSvc    core.EmailService
	}
)

var _ Service = (*service)(nil)

func NewService(
	tx core.Transactor,
	repo Repository,
	drafts DraftStore,
	periodSvc period.Service,
	studentSvc student.Service,
	mailSvc core.EmailService,
) Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(tx, "tx"),
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(drafts, "drafts"),
		vala.IsNotNil(periodSvc, "periodSvc"),
		vala.IsNotNil(studentSvc, "studentSvc"),
		vala.IsNotNil(mailSvc, "mailSvc"),
	).CheckAndPanic()

	return &service{
		tx:         tx,
		repo:       repo,
		drafts:     drafts,
		periodSvc:  periodSvc,
		studentSvc: studentSvc,
		mailSvc:    mailSvc,
	}
}

// Submit checks that the student may apply to the period and stores the form.
// The student's draft for the period is discarded and a confirmation email is sent.
func (svc *service) Submit(ctx context.Context, studentID string, nf NewForm) (Form, error) {
	var (
		f   Form
		stu student.Student
	)
	err := svc.tx.WithinTx(ctx, func(ctx context.Context) error {
		p, err := svc.periodSvc.Get(ctx, nf.ApplicationPeriodUID)
		if err != nil {
			if errors.Cause(err) == period.ErrNotFound {
				return core.NewFieldValidationError("application_period_uid", ErrPeriodDoesNotExist)
			}
			return errors.Wrap(err, "getting application period")
		}
		now := nowFunc().UTC()
		if !p.IsOpen(now) {
			return core.NewValidationError(ErrWindowClosed)
		}
		if !p.IsApplicable(studentID) {
			return core.NewValidationError(ErrNotApplicable)
		}
		if !p.HasPeriod(nf.ApplicablePeriod) {
			return core.NewFieldValidationError("applicable_period", ErrUnknownPeriod)
		}

		if stu, err = svc.studentSvc.Get(ctx, studentID); err != nil {
			return errors.Wrap(err, "getting student")
		}

		existing, err := svc.repo.QueryForms(ctx, &QueryFilter{PeriodUID: p.UID, StudentID: studentID})
		if err != nil {
			return errors.Wrap(err, "querying forms")
		}
		for _, e := range existing {
			if e.IsActive() {
				return core.NewValidationError(ErrAlreadyApplied)
			}
		}

		f, err = svc.repo.CreateForm(ctx, Form{
			UID:                  uuid.New().String(),
			CreatedAt:            now,
			UpdatedAt:            now,
			StudentID:            studentID,
			ApplicationPeriodUID: p.UID,
			ApplicablePeriod:     nf.ApplicablePeriod,
			RoomProfile:          nf.RoomProfile,
			LifestyleProfile:     nf.LifestyleProfile,
			Status:               StatusSubmitted,
		})
		if errors.Cause(err) == ErrAlreadyApplied {
			return core.NewValidationError(ErrAlreadyApplied)
		}
		return errors.Wrap(err, "creating form")
	})
	if err != nil {
		return Form{}, err
	}

	if err := svc.drafts.DeleteDraft(ctx, studentID, f.ApplicationPeriodUID); err != nil && errors.Cause(err) != ErrDraftNotFound {
		return f, errors.Wrap(err, "deleting draft")
	}
	if msg := submittedMessage(stu, f); msg != nil {
		svc.mailSvc.SendMessages(msg)
	}
	return f, nil
}

func submittedMessage(stu student.Student, f Form) *core.EmailMessage {
	to := stu.EmailSUTD
	if to == "" {
		to = stu.EmailPersonal
	}
	if to == "" {
		return nil
	}
	return &core.EmailMessage{
		To:           []mail.Address{{Name: stu.FullName, Address: to}},
		Subject:      "Housing Application Submitted",
		TemplateName: "application_submitted",
		TemplateData: map[string]string{
			"StudentID": stu.StudentID,
			"UID":       f.UID,
			"StartDate": f.ApplicablePeriod.StartDate.Format("2 Jan 2006"),
			"EndDate":   f.ApplicablePeriod.EndDate.Format("2 Jan 2006"),
		},
	}
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter) ([]Form, error) {
	return svc.repo.QueryForms(ctx, filter)
}

func (svc *service) QueryByStudent(ctx context.Context, studentID string) (map[string]Form, error) {
	forms, err := svc.repo.QueryForms(ctx, &QueryFilter{StudentID: studentID})
	if err != nil {
		return nil, err
	}
	byUID := make(map[string]Form, len(forms))
	for _, f := range forms {
		byUID[f.UID] = f
	}
	return byUID, nil
}

func (svc *service) Get(ctx context.Context, uid string) (Form, error) {
	return svc.repo.GetForm(ctx, uid)
}

// Withdraw is only possible while the application window of the form's period is open.
func (svc *service) Withdraw(ctx context.Context, uid string) (Form, error) {
	var f Form
	err := svc.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if f, err = svc.repo.GetForm(ctx, uid); err != nil {
			return err
		}
		if f.Status != StatusSubmitted {
			return core.NewValidationError(ErrCannotWithdraw)
		}
		p, err := svc.periodSvc.Get(ctx, f.ApplicationPeriodUID)
		if err != nil {
			return errors.Wrap(err, "getting application period")
		}
		now := nowFunc().UTC()
		if !p.IsOpen(now) {
			return core.NewValidationError(ErrWindowClosed)
		}
		f.Status = StatusWithdrawn
		f.UpdatedAt = now
		f, err = svc.repo.UpdateForm(ctx, f)
		return err
	})
	return f, err
}

func (svc *service) SetStatus(ctx context.Context, uid string, su StatusUpdate) (Form, error) {
	var f Form
	err := svc.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if f, err = svc.repo.GetForm(ctx, uid); err != nil {
			return err
		}
		f.Status = su.Status
		f.Remarks = su.Remarks
		f.UpdatedAt = nowFunc().UTC()
		f, err = svc.repo.UpdateForm(ctx, f)
		if errors.Cause(err) == ErrAlreadyApplied {
			return core.NewValidationError(ErrAlreadyApplied)
		}
		return err
	})
	return f, err
}

func (svc *service) GetDraft(ctx context.Context, studentID, periodUID string) (Draft, error) {
	return svc.drafts.GetDraft(ctx, studentID, periodUID)
}

// SaveDraft merges the step values into the student's draft, starting a new one if needed.
func (svc *service) SaveDraft(ctx context.Context, studentID, periodUID string, du DraftUpdate) (Draft, error) {
	if _, err := svc.periodSvc.Get(ctx, periodUID); err != nil {
		return Draft{}, err
	}

	d, err := svc.drafts.GetDraft(ctx, studentID, periodUID)
	if err != nil {
		if errors.Cause(err) != ErrDraftNotFound {
			return Draft{}, errors.Wrap(err, "getting draft")
		}
		d = Draft{StudentID: studentID, ApplicationPeriodUID: periodUID}
	}
	du.apply(&d)
	d.UpdatedAt = nowFunc().UTC()

	if err := svc.drafts.SaveDraft(ctx, d); err != nil {
		return Draft{}, errors.Wrap(err, "saving draft")
	}
	return d, nil
}

func (svc *service) DeleteDraft(ctx context.Context, studentID, periodUID string) error {
	return svc.drafts.DeleteDraft(ctx, studentID, periodUID)
}
