package period

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
	ErrNotFound        = errors.New("application period not found")
	ErrHasApplications = errors.New("application period has submitted applications and cannot be deleted")

	nowFunc = time.Now // mockable
)

type (
	Repository interface {
		CreatePeriod(ctx context.Context, p ApplicationPeriod) (ApplicationPeriod, error)
		QueryPeriods(ctx context.Context) ([]ApplicationPeriod, error) // ordered by window open, latest first
		GetPeriod(ctx context.Context, uid string) (ApplicationPeriod, error)
		UpdatePeriod(ctx context.Context, p ApplicationPeriod) (ApplicationPeriod, error)
		DeletePeriod(ctx context.Context, uid string) error
	}

	Service interface {
		Create(ctx context.Context, data PeriodData, createdBy string) (ApplicationPeriod, error)
		QueryAll(ctx context.Context) ([]ApplicationPeriod, error)
		// QueryOngoing returns the open periods; when studentID is set, only those applicable to that student.
		QueryOngoing(ctx context.Context, studentID string) ([]ApplicationPeriod, error)
		Get(ctx context.Context, uid string) (ApplicationPeriod, error)
		Update(ctx context.Context, uid string, data PeriodData) (ApplicationPeriod, error)
		Delete(ctx context.Context, uid string) error
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

func (svc *service) Create(ctx context.Context, data PeriodData, createdBy string) (ApplicationPeriod, error) {
	now := nowFunc().UTC()
	p := ApplicationPeriod{
		UID:              uuid.New().String(),
		CreatedAt:        now,
		CreatedBy:        createdBy,
		UpdatedAt:        now,
		ApplicationForms: []string{},
	}
	data.apply(&p)
	return svc.repo.CreatePeriod(ctx, p)
}

func (svc *service) QueryAll(ctx context.Context) ([]ApplicationPeriod, error) {
	return svc.repo.QueryPeriods(ctx)
}

func (svc *service) QueryOngoing(ctx context.Context, studentID string) ([]ApplicationPeriod, error) {
	periods, err := svc.repo.QueryPeriods(ctx)
	if err != nil {
		return nil, err
	}
	now := nowFunc()
	ongoing := make([]ApplicationPeriod, 0, len(periods))
	for _, p := range periods {
		if !p.IsOpen(now) {
			continue
		}
		if studentID != "" && !p.IsApplicable(studentID) {
			continue
		}
		ongoing = append(ongoing, p)
	}
	return ongoing, nil
}

func (svc *service) Get(ctx context.Context, uid string) (ApplicationPeriod, error) {
	return svc.repo.GetPeriod(ctx, uid)
}

func (svc *service) Update(ctx context.Context, uid string, data PeriodData) (ApplicationPeriod, error) {
	var p ApplicationPeriod
	err := svc.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if p, err = svc.repo.GetPeriod(ctx, uid); err != nil {
			return err
		}
		data.apply(&p)
		p.UpdatedAt = nowFunc().UTC()
		p, err = svc.repo.UpdatePeriod(ctx, p)
		return err
	})
	return p, err
}

// Delete removes the period unless applications were submitted to it.
func (svc *service) Delete(ctx context.Context, uid string) error {
	return svc.tx.WithinTx(ctx, func(ctx context.Context) error {
		p, err := svc.repo.GetPeriod(ctx, uid)
		if err != nil {
			return err
		}
		if len(p.ApplicationForms) > 0 {
			return core.NewValidationError(ErrHasApplications)
		}
		if err = svc.repo.DeletePeriod(ctx, uid); errors.Cause(err) == ErrHasApplications {
			// a form was submitted in the meantime
			return core.NewValidationError(ErrHasApplications)
		}
		return err
	})
}
