package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/sutdhousing/portal/core/event"
)

type eventRepository struct {
	db *DB
}

var _ event.Repository = (*eventRepository)(nil)

func NewEventRepository(db *DB) event.Repository {
	return &eventRepository{db: db}
}

// populate fills the signups and attendance of e. The caller holds the lock.
func (repo *eventRepository) populate(e event.Event) event.Event {
	e.Signups = []string{}
	e.Attendance = []string{}
	for _, su := range repo.db.signups[e.UID] {
		e.Signups = append(e.Signups, su.studentID)
		if su.attended {
			e.Attendance = append(e.Attendance, su.studentID)
		}
	}
	return e
}

func (repo *eventRepository) CreateEvent(ctx context.Context, e event.Event) (event.Event, error) {
	defer repo.db.lock(ctx)()

	repo.db.events[e.UID] = e
	return repo.populate(e), nil
}

func (repo *eventRepository) QueryEvents(ctx context.Context, filter *event.QueryFilter) ([]event.Event, error) {
	defer repo.db.rlock(ctx)()

	events := make([]event.Event, 0, len(repo.db.events))
	for _, e := range repo.db.events {
		e = repo.populate(e)
		if filter != nil {
			if filter.StartFrom != nil && e.StartTime.Before(*filter.StartFrom) {
				continue
			}
			if filter.StudentID != "" && !e.IsSignedUp(filter.StudentID) {
				continue
			}
		}
		events = append(events, e)
	}
	sort.Slice(events, func(i, j int) bool { return events[i].StartTime.Before(events[j].StartTime) })
	return events, nil
}

func (repo *eventRepository) GetEvent(ctx context.Context, uid string) (event.Event, error) {
	defer repo.db.rlock(ctx)()

	e, ok := repo.db.events[uid]
	if !ok {
		return event.Event{}, event.ErrNotFound
	}
	return repo.populate(e), nil
}

func (repo *eventRepository) UpdateEvent(ctx context.Context, e event.Event) (event.Event, error) {
	defer repo.db.lock(ctx)()

	if _, ok := repo.db.events[e.UID]; !ok {
		return event.Event{}, event.ErrNotFound
	}
	repo.db.events[e.UID] = e
	return repo.populate(e), nil
}

func (repo *eventRepository) DeleteEvent(ctx context.Context, uid string) error {
	defer repo.db.lock(ctx)()

	if _, ok := repo.db.events[uid]; !ok {
		return event.ErrNotFound
	}
	delete(repo.db.events, uid)
	delete(repo.db.signups, uid)
	return nil
}

func (repo *eventRepository) AddSignup(ctx context.Context, uid, studentID string, limit int, at time.Time) error {
	defer repo.db.lock(ctx)()

	if _, ok := repo.db.events[uid]; !ok {
		return event.ErrNotFound
	}
	sus := repo.db.signups[uid]
	if len(sus) >= limit {
		return event.ErrEventFull
	}
	for _, su := range sus {
		if su.studentID == studentID {
			return event.ErrAlreadySignedUp
		}
	}
	repo.db.signups[uid] = append(sus, signup{studentID: studentID, signedUpAt: at})
	return nil
}

func (repo *eventRepository) RemoveSignup(ctx context.Context, uid, studentID string) error {
	defer repo.db.lock(ctx)()

	sus := repo.db.signups[uid]
	for i, su := range sus {
		if su.studentID == studentID {
			repo.db.signups[uid] = append(sus[:i:i], sus[i+1:]...)
			return nil
		}
	}
	return event.ErrNotSignedUp
}

func (repo *eventRepository) SetAttendance(ctx context.Context, uid string, studentIDs []string) error {
	defer repo.db.lock(ctx)()

	attended := make(map[string]bool, len(studentIDs))
	for _, id := range studentIDs {
		attended[id] = true
	}
	sus := repo.db.signups[uid]
	for i := range sus {
		sus[i].attended = attended[sus[i].studentID]
	}
	return nil
}
