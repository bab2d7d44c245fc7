package inmemdb

import (
	"context"
	"sort"

	"github.com/sutdhousing/portal/core/period"
)

type periodRepository struct {
	db *DB
}

var _ period.Repository = (*periodRepository)(nil)

func NewPeriodRepository(db *DB) period.Repository {
	return &periodRepository{db: db}
}

// populate fills the application forms of p. The caller holds the lock.
func (repo *periodRepository) populate(p period.ApplicationPeriod) period.ApplicationPeriod {
	p.ApplicationForms = []string{}
	for uid, f := range repo.db.forms {
		if f.ApplicationPeriodUID == p.UID {
			p.ApplicationForms = append(p.ApplicationForms, uid)
		}
	}
	sort.Strings(p.ApplicationForms)
	return p
}

func (repo *periodRepository) CreatePeriod(ctx context.Context, p period.ApplicationPeriod) (period.ApplicationPeriod, error) {
	defer repo.db.lock(ctx)()

	repo.db.periods[p.UID] = p
	return repo.populate(p), nil
}

func (repo *periodRepository) QueryPeriods(ctx context.Context) ([]period.ApplicationPeriod, error) {
	defer repo.db.rlock(ctx)()

	periods := make([]period.ApplicationPeriod, 0, len(repo.db.periods))
	for _, p := range repo.db.periods {
		periods = append(periods, repo.populate(p))
	}
	sort.Slice(periods, func(i, j int) bool {
		return periods[i].ApplicationWindowOpen.After(periods[j].ApplicationWindowOpen)
	})
	return periods, nil
}

func (repo *periodRepository) GetPeriod(ctx context.Context, uid string) (period.ApplicationPeriod, error) {
	defer repo.db.rlock(ctx)()

	p, ok := repo.db.periods[uid]
	if !ok {
		return period.ApplicationPeriod{}, period.ErrNotFound
	}
	return repo.populate(p), nil
}

func (repo *periodRepository) UpdatePeriod(ctx context.Context, p period.ApplicationPeriod) (period.ApplicationPeriod, error) {
	defer repo.db.lock(ctx)()

	if _, ok := repo.db.periods[p.UID]; !ok {
		return period.ApplicationPeriod{}, period.ErrNotFound
	}
	repo.db.periods[p.UID] = p
	return repo.populate(p), nil
}

func (repo *periodRepository) DeletePeriod(ctx context.Context, uid string) error {
	defer repo.db.lock(ctx)()

	if _, ok := repo.db.periods[uid]; !ok {
		return period.ErrNotFound
	}
	for _, f := range repo.db.forms {
		if f.ApplicationPeriodUID == uid {
			return period.ErrHasApplications
		}
	}
	delete(repo.db.periods, uid)
	return nil
}
