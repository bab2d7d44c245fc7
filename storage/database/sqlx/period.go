package sqlxrepos

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/sutdhousing/portal/core/period"
)

const periodSelect = `SELECT p.uid, p.application_window_open, p.application_window_close, p.applicable_periods,
	p.applicable_rooms, p.applicable_students, p.created_by, p.created_at, p.updated_at,
	ARRAY(SELECT a.uid FROM applications a WHERE a.application_period_uid = p.uid ORDER BY a.uid) AS application_forms
	FROM application_periods p`

type periodRow struct {
	UID                    string         `db:"uid"`
	ApplicationWindowOpen  time.Time      `db:"application_window_open"`
	ApplicationWindowClose time.Time      `db:"application_window_close"`
	ApplicablePeriods      types.JSONText `db:"applicable_periods"`
	ApplicableRooms        pq.StringArray `db:"applicable_rooms"`
	ApplicableStudents     pq.StringArray `db:"applicable_students"`
	CreatedBy              string         `db:"created_by"`
	CreatedAt              time.Time      `db:"created_at"`
	UpdatedAt              time.Time      `db:"updated_at"`
	ApplicationForms       pq.StringArray `db:"application_forms"`
}

func newPeriodRow(p period.ApplicationPeriod) (periodRow, error) {
	periods, err := json.Marshal(p.ApplicablePeriods)
	if err != nil {
		return periodRow{}, errors.Wrap(err, "marshalling applicable_periods")
	}
	return periodRow{
		UID:                    p.UID,
		ApplicationWindowOpen:  p.ApplicationWindowOpen,
		ApplicationWindowClose: p.ApplicationWindowClose,
		ApplicablePeriods:      periods,
		ApplicableRooms:        pq.StringArray(nonNil(p.ApplicableRooms)),
		ApplicableStudents:     pq.StringArray(nonNil(p.ApplicableStudents)),
		CreatedBy:              p.CreatedBy,
		CreatedAt:              p.CreatedAt,
		UpdatedAt:              p.UpdatedAt,
	}, nil
}

func (row periodRow) toPeriod() (period.ApplicationPeriod, error) {
	p := period.ApplicationPeriod{
		UID:                    row.UID,
		ApplicationWindowOpen:  row.ApplicationWindowOpen.UTC(),
		ApplicationWindowClose: row.ApplicationWindowClose.UTC(),
		ApplicableRooms:        nonNil(row.ApplicableRooms),
		ApplicableStudents:     nonNil(row.ApplicableStudents),
		CreatedBy:              row.CreatedBy,
		CreatedAt:              row.CreatedAt.UTC(),
		UpdatedAt:              row.UpdatedAt.UTC(),
		ApplicationForms:       nonNil(row.ApplicationForms),
	}
	if err := row.ApplicablePeriods.Unmarshal(&p.ApplicablePeriods); err != nil {
		return period.ApplicationPeriod{}, errors.Wrap(err, "unmarshalling applicable_periods")
	}
	return p, nil
}

type periodRepository struct {
	db *sqlx.DB
}

var _ period.Repository = (*periodRepository)(nil)

func NewPeriodRepository(db *sqlx.DB) period.Repository {
	return &periodRepository{db: db}
}

func (repo *periodRepository) CreatePeriod(ctx context.Context, p period.ApplicationPeriod) (period.ApplicationPeriod, error) {
	row, err := newPeriodRow(p)
	if err != nil {
		return period.ApplicationPeriod{}, err
	}
	q := `INSERT INTO application_periods (uid, application_window_open, application_window_close, applicable_periods,
		applicable_rooms, applicable_students, created_by, created_at, updated_at)
		VALUES (:uid, :application_window_open, :application_window_close, :applicable_periods,
		:applicable_rooms, :applicable_students, :created_by, :created_at, :updated_at)`
	if _, err = sqlx.NamedExecContext(ctx, getExec(ctx, repo.db), q, row); err != nil {
		return period.ApplicationPeriod{}, errors.Wrap(err, "inserting application period")
	}
	return repo.GetPeriod(ctx, p.UID)
}

func (repo *periodRepository) QueryPeriods(ctx context.Context) ([]period.ApplicationPeriod, error) {
	var rows []periodRow
	if err := sqlx.SelectContext(ctx, getExec(ctx, repo.db), &rows, periodSelect+` ORDER BY p.application_window_open DESC`); err != nil {
		return nil, errors.Wrap(err, "selecting application periods")
	}

	periods := make([]period.ApplicationPeriod, 0, len(rows))
	for _, row := range rows {
		p, err := row.toPeriod()
		if err != nil {
			return nil, err
		}
		periods = append(periods, p)
	}
	return periods, nil
}

func (repo *periodRepository) GetPeriod(ctx context.Context, uid string) (period.ApplicationPeriod, error) {
	var row periodRow
	if err := sqlx.GetContext(ctx, getExec(ctx, repo.db), &row, periodSelect+` WHERE p.uid = $1`, uid); err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return period.ApplicationPeriod{}, period.ErrNotFound
		}
		return period.ApplicationPeriod{}, errors.Wrap(err, "selecting application period")
	}
	return row.toPeriod()
}

func (repo *periodRepository) UpdatePeriod(ctx context.Context, p period.ApplicationPeriod) (period.ApplicationPeriod, error) {
	row, err := newPeriodRow(p)
	if err != nil {
		return period.ApplicationPeriod{}, err
	}
	q := `UPDATE application_periods SET application_window_open = :application_window_open,
		application_window_close = :application_window_close, applicable_periods = :applicable_periods,
		applicable_rooms = :applicable_rooms, applicable_students = :applicable_students, updated_at = :updated_at
		WHERE uid = :uid`
	res, err := sqlx.NamedExecContext(ctx, getExec(ctx, repo.db), q, row)
	if err != nil {
		return period.ApplicationPeriod{}, errors.Wrap(err, "updating application period")
	}
	if err = checkAffected(res, period.ErrNotFound); err != nil {
		return period.ApplicationPeriod{}, err
	}
	return repo.GetPeriod(ctx, p.UID)
}

func (repo *periodRepository) DeletePeriod(ctx context.Context, uid string) error {
	res, err := getExec(ctx, repo.db).ExecContext(ctx, `DELETE FROM application_periods WHERE uid = $1`, uid)
	if err != nil {
		if pqErrCode(err) == pqForeignKeyViolation {
			return period.ErrHasApplications
		}
		return errors.Wrap(err, "deleting application period")
	}
	return checkAffected(res, period.ErrNotFound)
}
