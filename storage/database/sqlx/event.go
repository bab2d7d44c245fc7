package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/sutdhousing/portal/core/event"
)

const eventSelect = `SELECT e.uid, e.title, e.event_type, e.meetup_location, e.start_time, e.duration_mins,
	e.description, e.signup_limit, e.signup_ddl, e.count_attendance, e.is_compulsory, e.created_by,
	e.created_at, e.updated_at,
	ARRAY(SELECT s.student_id FROM event_signups s WHERE s.event_uid = e.uid ORDER BY s.signed_up_at) AS signups,
	ARRAY(SELECT s.student_id FROM event_signups s WHERE s.event_uid = e.uid AND s.attended ORDER BY s.signed_up_at) AS attendance
	FROM events e`

type eventRow struct {
	UID             string         `db:"uid"`
	Title           string         `db:"title"`
	EventType       string         `db:"event_type"`
	MeetupLocation  string         `db:"meetup_location"`
	StartTime       time.Time      `db:"start_time"`
	DurationMins    int            `db:"duration_mins"`
	Description     string         `db:"description"`
	SignupLimit     int            `db:"signup_limit"`
	SignupDDL       null.Time      `db:"signup_ddl"`
	CountAttendance bool           `db:"count_attendance"`
	IsCompulsory    bool           `db:"is_compulsory"`
	CreatedBy       string         `db:"created_by"`
	CreatedAt       time.Time      `db:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at"`
	Signups         pq.StringArray `db:"signups"`
	Attendance      pq.StringArray `db:"attendance"`
}

func newEventRow(e event.Event) eventRow {
	return eventRow{
		UID:             e.UID,
		Title:           e.Title,
		EventType:       e.EventType,
		MeetupLocation:  e.MeetupLocation,
		StartTime:       e.StartTime,
		DurationMins:    e.DurationMins,
		Description:     e.Description,
		SignupLimit:     e.SignupLimit,
		SignupDDL:       null.TimeFromPtr(e.SignupDDL),
		CountAttendance: e.CountAttendance,
		IsCompulsory:    e.IsCompulsory,
		CreatedBy:       e.CreatedBy,
		CreatedAt:       e.CreatedAt,
		UpdatedAt:       e.UpdatedAt,
	}
}

func (row eventRow) toEvent() event.Event {
	e := event.Event{
		UID:             row.UID,
		Title:           row.Title,
		EventType:       row.EventType,
		MeetupLocation:  row.MeetupLocation,
		StartTime:       row.StartTime.UTC(),
		DurationMins:    row.DurationMins,
		Description:     row.Description,
		SignupLimit:     row.SignupLimit,
		CountAttendance: row.CountAttendance,
		IsCompulsory:    row.IsCompulsory,
		CreatedBy:       row.CreatedBy,
		CreatedAt:       row.CreatedAt.UTC(),
		UpdatedAt:       row.UpdatedAt.UTC(),
		Signups:         nonNil(row.Signups),
		Attendance:      nonNil(row.Attendance),
	}
	if row.SignupDDL.Valid {
		ddl := row.SignupDDL.Time.UTC()
		e.SignupDDL = &ddl
	}
	return e
}

type eventRepository struct {
	db *sqlx.DB
}

var _ event.Repository = (*eventRepository)(nil)

func NewEventRepository(db *sqlx.DB) event.Repository {
	return &eventRepository{db: db}
}

func (repo *eventRepository) CreateEvent(ctx context.Context, e event.Event) (event.Event, error) {
	q := `INSERT INTO events (uid, title, event_type, meetup_location, start_time, duration_mins, description,
		signup_limit, signup_ddl, count_attendance, is_compulsory, created_by, created_at, updated_at)
		VALUES (:uid, :title, :event_type, :meetup_location, :start_time, :duration_mins, :description,
		:signup_limit, :signup_ddl, :count_attendance, :is_compulsory, :created_by, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, getExec(ctx, repo.db), q, newEventRow(e)); err != nil {
		return event.Event{}, errors.Wrap(err, "inserting event")
	}
	e.Signups = []string{}
	e.Attendance = []string{}
	return e, nil
}

func (repo *eventRepository) QueryEvents(ctx context.Context, filter *event.QueryFilter) ([]event.Event, error) {
	var where whereClause
	if filter != nil {
		if filter.StartFrom != nil {
			where.add("e.start_time >= ?", *filter.StartFrom)
		}
		if filter.StudentID != "" {
			where.add("EXISTS (SELECT 1 FROM event_signups s WHERE s.event_uid = e.uid AND s.student_id = ?)", filter.StudentID)
		}
	}

	var rows []eventRow
	q := eventSelect + where.String() + ` ORDER BY e.start_time, e.uid`
	if err := sqlx.SelectContext(ctx, getExec(ctx, repo.db), &rows, q, where.args...); err != nil {
		return nil, errors.Wrap(err, "selecting events")
	}

	events := make([]event.Event, 0, len(rows))
	for _, row := range rows {
		events = append(events, row.toEvent())
	}
	return events, nil
}

func (repo *eventRepository) GetEvent(ctx context.Context, uid string) (event.Event, error) {
	var row eventRow
	if err := sqlx.GetContext(ctx, getExec(ctx, repo.db), &row, eventSelect+` WHERE e.uid = $1`, uid); err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return event.Event{}, event.ErrNotFound
		}
		return event.Event{}, errors.Wrap(err, "selecting event")
	}
	return row.toEvent(), nil
}

func (repo *eventRepository) UpdateEvent(ctx context.Context, e event.Event) (event.Event, error) {
	q := `UPDATE events SET title = :title, event_type = :event_type, meetup_location = :meetup_location,
		start_time = :start_time, duration_mins = :duration_mins, description = :description,
		signup_limit = :signup_limit, signup_ddl = :signup_ddl, count_attendance = :count_attendance,
		is_compulsory = :is_compulsory, updated_at = :updated_at
		WHERE uid = :uid`
	res, err := sqlx.NamedExecContext(ctx, getExec(ctx, repo.db), q, newEventRow(e))
	if err != nil {
		return event.Event{}, errors.Wrap(err, "updating event")
	}
	if err = checkAffected(res, event.ErrNotFound); err != nil {
		return event.Event{}, err
	}
	return repo.GetEvent(ctx, e.UID)
}

func (repo *eventRepository) DeleteEvent(ctx context.Context, uid string) error {
	res, err := getExec(ctx, repo.db).ExecContext(ctx, `DELETE FROM events WHERE uid = $1`, uid)
	if err != nil {
		return errors.Wrap(err, "deleting event")
	}
	return checkAffected(res, event.ErrNotFound)
}

// AddSignup locks the event row so that concurrent signups cannot exceed limit.
func (repo *eventRepository) AddSignup(ctx context.Context, uid, studentID string, limit int, at time.Time) error {
	exec := getExec(ctx, repo.db)

	var locked string
	if err := sqlx.GetContext(ctx, exec, &locked, `SELECT uid FROM events WHERE uid = $1 FOR UPDATE`, uid); err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return event.ErrNotFound
		}
		return errors.Wrap(err, "locking event")
	}

	q := `INSERT INTO event_signups (event_uid, student_id, signed_up_at)
		SELECT $1, $2, $3
		WHERE (SELECT COUNT(*) FROM event_signups WHERE event_uid = $1) < $4`
	res, err := exec.ExecContext(ctx, q, uid, studentID, at, limit)
	if err != nil {
		if pqErrCode(err) == pqUniqueViolation {
			return event.ErrAlreadySignedUp
		}
		return errors.Wrap(err, "inserting event signup")
	}
	return checkAffected(res, event.ErrEventFull)
}

func (repo *eventRepository) RemoveSignup(ctx context.Context, uid, studentID string) error {
	res, err := getExec(ctx, repo.db).ExecContext(ctx,
		`DELETE FROM event_signups WHERE event_uid = $1 AND student_id = $2`, uid, studentID)
	if err != nil {
		return errors.Wrap(err, "deleting event signup")
	}
	return checkAffected(res, event.ErrNotSignedUp)
}

func (repo *eventRepository) SetAttendance(ctx context.Context, uid string, studentIDs []string) error {
	_, err := getExec(ctx, repo.db).ExecContext(ctx,
		`UPDATE event_signups SET attended = (student_id = ANY($2)) WHERE event_uid = $1`,
		uid, pq.Array(studentIDs))
	return errors.Wrap(err, "updating attendance")
}
