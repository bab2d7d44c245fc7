package event

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/sutdhousing/portal/core"
)

var (
	// errors
	ErrNotFound         = errors.New("event not found")
	ErrEventFull        = errors.New("event is full")
	ErrSignupClosed     = errors.New("signup for this event is closed")
	ErrAlreadySignedUp  = errors.New("already signed up for this event")
	ErrNotSignedUp      = errors.New("not signed up for this event")
	ErrAttendeeNotFound = errors.New("only signed up students can attend")

	nowFunc = time.Now // mockable
)

type (
	Repository interface {
		CreateEvent(ctx context.Context, e Event) (Event, error)
		QueryEvents(ctx context.Context, filter *QueryFilter) ([]Event, error) // ordered by start time
		GetEvent(ctx context.Context, uid string) (Event, error)
		UpdateEvent(ctx context.Context, e Event) (Event, error)
		DeleteEvent(ctx context.Context, uid string) error
		// AddSignup fails with ErrEventFull once the event has limit signups.
		AddSignup(ctx context.Context, uid, studentID string, limit int, at time.Time) error
		RemoveSignup(ctx context.Context, uid, studentID string) error
		SetAttendance(ctx context.Context, uid string, studentIDs []string) error
	}

	Service interface {
		Create(ctx context.Context, data EventData, createdBy string) (Event, error)
		QueryUpcoming(ctx context.Context) ([]Event, error)
		QueryAll(ctx context.Context) ([]Event, error)
		QueryByStudent(ctx context.Context, studentID string) ([]Event, error)
		Get(ctx context.Context, uid string) (Event, error)
		Update(ctx context.Context, uid string, data EventData) (Event, error)
		Delete(ctx context.Context, uid string) error
		Signup(ctx context.Context, uid, studentID string) (Event, error)
		Quit(ctx context.Context, uid, studentID string) (Event, error)
		RecordAttendance(ctx context.Context, uid string, att Attendance) (Event, error)
	}

	service struct {
		tx   core.Transactor
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(tx core.Transactor, repo Repository) Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(tx, "tx"),
		vala.IsNotNil(repo, "repo"),
	).CheckAndPanic()

	return &service{tx: tx, repo: repo}
}

func (svc *service) Create(ctx context.Context, data EventData, createdBy string) (Event, error) {
	now := nowFunc().UTC()
	e := Event{
		UID:        uuid.New().String(),
		CreatedBy:  createdBy,
		CreatedAt:  now,
		UpdatedAt:  now,
		Signups:    []string{},
		Attendance: []string{},
	}
	data.apply(&e)
	return svc.repo.CreateEvent(ctx, e)
}

func (svc *service) QueryUpcoming(ctx context.Context) ([]Event, error) {
	now := nowFunc().UTC()
	return svc.repo.QueryEvents(ctx, &QueryFilter{StartFrom: &now})
}

func (svc *service) QueryAll(ctx context.Context) ([]Event, error) {
	return svc.repo.QueryEvents(ctx, nil)
}

func (svc *service) QueryByStudent(ctx context.Context, studentID string) ([]Event, error) {
	return svc.repo.QueryEvents(ctx, &QueryFilter{StudentID: studentID})
}

func (svc *service) Get(ctx context.Context, uid string) (Event, error) {
	return svc.repo.GetEvent(ctx, uid)
}

func (svc *service) Update(ctx context.Context, uid string, data EventData) (Event, error) {
	var e Event
	err := svc.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if e, err = svc.repo.GetEvent(ctx, uid); err != nil {
			return err
		}
		data.apply(&e)
		e.UpdatedAt = nowFunc().UTC()
		e, err = svc.repo.UpdateEvent(ctx, e)
		return err
	})
	return e, err
}

func (svc *service) Delete(ctx context.Context, uid string) error {
	return svc.repo.DeleteEvent(ctx, uid)
}

func (svc *service) Signup(ctx context.Context, uid, studentID string) (Event, error) {
	var e Event
	err := svc.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if e, err = svc.repo.GetEvent(ctx, uid); err != nil {
			return err
		}
		now := nowFunc().UTC()
		if !e.SignupOpen(now) {
			return core.NewValidationError(ErrSignupClosed)
		}
		if e.IsSignedUp(studentID) {
			return core.NewValidationError(ErrAlreadySignedUp)
		}
		if err = svc.repo.AddSignup(ctx, uid, studentID, e.SignupLimit, now); err != nil {
			if errors.Cause(err) == ErrEventFull {
				return core.NewValidationError(ErrEventFull)
			}
			return errors.Wrap(err, "adding signup")
		}
		e, err = svc.repo.GetEvent(ctx, uid)
		return err
	})
	return e, err
}

func (svc *service) Quit(ctx context.Context, uid, studentID string) (Event, error) {
	var e Event
	err := svc.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if e, err = svc.repo.GetEvent(ctx, uid); err != nil {
			return err
		}
		if !e.SignupOpen(nowFunc().UTC()) {
			return core.NewValidationError(ErrSignupClosed)
		}
		if !e.IsSignedUp(studentID) {
			return core.NewValidationError(ErrNotSignedUp)
		}
		if err = svc.repo.RemoveSignup(ctx, uid, studentID); err != nil {
			return errors.Wrap(err, "removing signup")
		}
		e, err = svc.repo.GetEvent(ctx, uid)
		return err
	})
	return e, err
}

// RecordAttendance overwrites the attendance list. Every attendee must have signed up.
func (svc *service) RecordAttendance(ctx context.Context, uid string, att Attendance) (Event, error) {
	ids := core.CleanStrings(att.StudentIDs, true /* lower */)

	var e Event
	err := svc.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if e, err = svc.repo.GetEvent(ctx, uid); err != nil {
			return err
		}
		for _, id := range ids {
			if !e.IsSignedUp(id) {
				return core.NewFieldValidationError("student_ids", errors.Wrap(ErrAttendeeNotFound, id))
			}
		}
		if err = svc.repo.SetAttendance(ctx, uid, ids); err != nil {
			return errors.Wrap(err, "setting attendance")
		}
		e, err = svc.repo.GetEvent(ctx, uid)
		return err
	})
	return e, err
}
