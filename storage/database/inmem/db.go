// Package inmemdb implements the repositories in memory. It backs tests and the "memory" storage.
package inmemdb

import (
	"context"
	"sync"
	"time"

	"github.com/sutdhousing/portal/core"
	"github.com/sutdhousing/portal/core/application"
	"github.com/sutdhousing/portal/core/event"
	"github.com/sutdhousing/portal/core/period"
	"github.com/sutdhousing/portal/core/record"
	"github.com/sutdhousing/portal/core/student"
	"github.com/sutdhousing/portal/core/user"
)

type (
	// DB holds every table behind one lock so that derived fields can be computed across tables.
	DB struct {
		mu sync.RWMutex
		tables
	}

	tables struct {
		users    map[string]user.User
		students map[string]student.Student
		periods  map[string]period.ApplicationPeriod
		forms    map[string]application.Form
		events   map[string]event.Event
		signups  map[string][]signup // by event UID
		records  map[string]record.DisciplinaryRecord
	}

	signup struct {
		studentID  string
		signedUpAt time.Time
		attended   bool
	}

	txKey struct{}
)

var _ core.Transactor = (*DB)(nil)

func Open() *DB {
	db := new(DB)
	db.Reset()
	return db
}

// Reset drops every row.
func (db *DB) Reset() {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.tables = tables{
		users:    make(map[string]user.User),
		students: make(map[string]student.Student),
		periods:  make(map[string]period.ApplicationPeriod),
		forms:    make(map[string]application.Form),
		events:   make(map[string]event.Event),
		signups:  make(map[string][]signup),
		records:  make(map[string]record.DisciplinaryRecord),
	}
}

// WithinTx runs fn holding the write lock, so transactions are serialized.
// When fn fails, every table is restored to its state before the call. Nested calls join the outer transaction.
func (db *DB) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if db.inTx(ctx) {
		return fn(ctx)
	}
	db.mu.Lock()
	defer db.mu.Unlock()

	saved := db.tables.clone()
	if err := fn(context.WithValue(ctx, txKey{}, db)); err != nil {
		db.tables = saved
		return err
	}
	return nil
}

func (db *DB) inTx(ctx context.Context) bool {
	tx, _ := ctx.Value(txKey{}).(*DB)
	return tx == db
}

// lock write-locks the tables, unless ctx belongs to a transaction of db which already holds the lock.
func (db *DB) lock(ctx context.Context) (unlock func()) {
	if db.inTx(ctx) {
		return func() {}
	}
	db.mu.Lock()
	return db.mu.Unlock
}

func (db *DB) rlock(ctx context.Context) (unlock func()) {
	if db.inTx(ctx) {
		return func() {}
	}
	db.mu.RLock()
	return db.mu.RUnlock
}

func (t tables) clone() tables {
	c := tables{
		users:    make(map[string]user.User, len(t.users)),
		students: make(map[string]student.Student, len(t.students)),
		periods:  make(map[string]period.ApplicationPeriod, len(t.periods)),
		forms:    make(map[string]application.Form, len(t.forms)),
		events:   make(map[string]event.Event, len(t.events)),
		signups:  make(map[string][]signup, len(t.signups)),
		records:  make(map[string]record.DisciplinaryRecord, len(t.records)),
	}
	for k, v := range t.users {
		c.users[k] = v
	}
	for k, v := range t.students {
		c.students[k] = v
	}
	for k, v := range t.periods {
		c.periods[k] = v
	}
	for k, v := range t.forms {
		c.forms[k] = v
	}
	for k, v := range t.events {
		c.events[k] = v
	}
	for k, v := range t.signups {
		// signups are updated in place
		c.signups[k] = append([]signup(nil), v...)
	}
	for k, v := range t.records {
		c.records[k] = v
	}
	return c
}

// less reports whether a sorts before b by the orderings, using fallback on ties.
// cmp compares a and b on one field and returns 0 for unknown fields.
func less[T any](a, b T, orderings []core.DBOrdering, cmp func(a, b T, field string) int, fallback func(a, b T) bool) bool {
	for _, ord := range orderings {
		c := cmp(a, b, ord.Field)
		if c == 0 {
			continue
		}
		if ord.Ascending {
			return c < 0
		}
		return c > 0
	}
	return fallback(a, b)
}
