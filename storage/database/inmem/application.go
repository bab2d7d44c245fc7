package inmemdb

import (
	"context"
	"sort"

	"github.com/sutdhousing/portal/core/application"
)

type applicationRepository struct {
	db *DB
}

var _ application.Repository = (*applicationRepository)(nil)

func NewApplicationRepository(db *DB) application.Repository {
	return &applicationRepository{db: db}
}

func (repo *applicationRepository) CreateForm(ctx context.Context, f application.Form) (application.Form, error) {
	defer repo.db.lock(ctx)()

	if repo.hasActiveForm(f) {
		return application.Form{}, application.ErrAlreadyApplied
	}
	repo.db.forms[f.UID] = f
	return f, nil
}

// hasActiveForm reports whether another active form of f's student and period exists.
// The caller must hold the table lock.
func (repo *applicationRepository) hasActiveForm(f application.Form) bool {
	if !f.IsActive() {
		return false
	}
	for _, e := range repo.db.forms {
		if e.UID != f.UID && e.IsActive() && e.StudentID == f.StudentID && e.ApplicationPeriodUID == f.ApplicationPeriodUID {
			return true
		}
	}
	return false
}

func (repo *applicationRepository) QueryForms(ctx context.Context, filter *application.QueryFilter) ([]application.Form, error) {
	defer repo.db.rlock(ctx)()

	forms := make([]application.Form, 0)
	for _, f := range repo.db.forms {
		if filter != nil {
			if filter.PeriodUID != "" && f.ApplicationPeriodUID != filter.PeriodUID {
				continue
			}
			if filter.Status != "" && f.Status != filter.Status {
				continue
			}
			if filter.StudentID != "" && f.StudentID != filter.StudentID {
				continue
			}
		}
		forms = append(forms, f)
	}
	sort.Slice(forms, func(i, j int) bool {
		if forms[i].CreatedAt.Equal(forms[j].CreatedAt) {
			return forms[i].UID < forms[j].UID
		}
		return forms[i].CreatedAt.Before(forms[j].CreatedAt)
	})
	return forms, nil
}

func (repo *applicationRepository) GetForm(ctx context.Context, uid string) (application.Form, error) {
	defer repo.db.rlock(ctx)()

	f, ok := repo.db.forms[uid]
	if !ok {
		return application.Form{}, application.ErrNotFound
	}
	return f, nil
}

func (repo *applicationRepository) UpdateForm(ctx context.Context, f application.Form) (application.Form, error) {
	defer repo.db.lock(ctx)()

	if _, ok := repo.db.forms[f.UID]; !ok {
		return application.Form{}, application.ErrNotFound
	}
	if repo.hasActiveForm(f) {
		return application.Form{}, application.ErrAlreadyApplied
	}
	repo.db.forms[f.UID] = f
	return f, nil
}
