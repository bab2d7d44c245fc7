package sqlxrepos

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/pkg/errors"

	"github.com/sutdhousing/portal/core/application"
)

const formColumns = `uid, student_id, application_period_uid, applicable_period, room_profile, lifestyle_profile,
	status, remarks, created_at, updated_at`

type formRow struct {
	UID                  string         `db:"uid"`
	StudentID            string         `db:"student_id"`
	ApplicationPeriodUID string         `db:"application_period_uid"`
	ApplicablePeriod     types.JSONText `db:"applicable_period"`
	RoomProfile          types.JSONText `db:"room_profile"`
	LifestyleProfile     types.JSONText `db:"lifestyle_profile"`
	Status               string         `db:"status"`
	Remarks              string         `db:"remarks"`
	CreatedAt            time.Time      `db:"created_at"`
	UpdatedAt            time.Time      `db:"updated_at"`
}

func newFormRow(f application.Form) (formRow, error) {
	row := formRow{
		UID:                  f.UID,
		StudentID:            f.StudentID,
		ApplicationPeriodUID: f.ApplicationPeriodUID,
		Status:               f.Status,
		Remarks:              f.Remarks,
		CreatedAt:            f.CreatedAt,
		UpdatedAt:            f.UpdatedAt,
	}
	var err error
	if row.ApplicablePeriod, err = json.Marshal(f.ApplicablePeriod); err != nil {
		return formRow{}, errors.Wrap(err, "marshalling applicable_period")
	}
	if row.RoomProfile, err = json.Marshal(f.RoomProfile); err != nil {
		return formRow{}, errors.Wrap(err, "marshalling room_profile")
	}
	if row.LifestyleProfile, err = json.Marshal(f.LifestyleProfile); err != nil {
		return formRow{}, errors.Wrap(err, "marshalling lifestyle_profile")
	}
	return row, nil
}

func (row formRow) toForm() (application.Form, error) {
	f := application.Form{
		UID:                  row.UID,
		StudentID:            row.StudentID,
		ApplicationPeriodUID: row.ApplicationPeriodUID,
		Status:               row.Status,
		Remarks:              row.Remarks,
		CreatedAt:            row.CreatedAt.UTC(),
		UpdatedAt:            row.UpdatedAt.UTC(),
	}
	if err := row.ApplicablePeriod.Unmarshal(&f.ApplicablePeriod); err != nil {
		return application.Form{}, errors.Wrap(err, "unmarshalling applicable_period")
	}
	if err := row.RoomProfile.Unmarshal(&f.RoomProfile); err != nil {
		return application.Form{}, errors.Wrap(err, "unmarshalling room_profile")
	}
	if err := row.LifestyleProfile.Unmarshal(&f.LifestyleProfile); err != nil {
		return application.Form{}, errors.Wrap(err, "unmarshalling lifestyle_profile")
	}
	return f, nil
}

type applicationRepository struct {
	db *sqlx.DB
}

var _ application.Repository = (*applicationRepository)(nil)

func NewApplicationRepository(db *sqlx.DB) application.Repository {
	return &applicationRepository{db: db}
}

func (repo *applicationRepository) CreateForm(ctx context.Context, f application.Form) (application.Form, error) {
	row, err := newFormRow(f)
	if err != nil {
		return application.Form{}, err
	}
	q := `INSERT INTO applications (` + formColumns + `)
		VALUES (:uid, :student_id, :application_period_uid, :applicable_period, :room_profile, :lifestyle_profile,
		:status, :remarks, :created_at, :updated_at)`
	if _, err = sqlx.NamedExecContext(ctx, getExec(ctx, repo.db), q, row); err != nil {
		if pqErrCode(err) == pqUniqueViolation {
			return application.Form{}, application.ErrAlreadyApplied
		}
		return application.Form{}, errors.Wrap(err, "inserting application")
	}
	return f, nil
}

func (repo *applicationRepository) QueryForms(ctx context.Context, filter *application.QueryFilter) ([]application.Form, error) {
	var where whereClause
	if filter != nil {
		if filter.PeriodUID != "" {
			where.add("application_period_uid = ?", filter.PeriodUID)
		}
		if filter.Status != "" {
			where.add("status = ?", filter.Status)
		}
		if filter.StudentID != "" {
			where.add("student_id = ?", filter.StudentID)
		}
	}

	var rows []formRow
	q := `SELECT ` + formColumns + ` FROM applications` + where.String() + ` ORDER BY created_at, uid`
	if err := sqlx.SelectContext(ctx, getExec(ctx, repo.db), &rows, q, where.args...); err != nil {
		return nil, errors.Wrap(err, "selecting applications")
	}

	forms := make([]application.Form, 0, len(rows))
	for _, row := range rows {
		f, err := row.toForm()
		if err != nil {
			return nil, err
		}
		forms = append(forms, f)
	}
	return forms, nil
}

func (repo *applicationRepository) GetForm(ctx context.Context, uid string) (application.Form, error) {
	var row formRow
	if err := sqlx.GetContext(ctx, getExec(ctx, repo.db), &row, `SELECT `+formColumns+` FROM applications WHERE uid = $1`, uid); err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return application.Form{}, application.ErrNotFound
		}
		return application.Form{}, errors.Wrap(err, "selecting application")
	}
	return row.toForm()
}

func (repo *applicationRepository) UpdateForm(ctx context.Context, f application.Form) (application.Form, error) {
	row, err := newFormRow(f)
	if err != nil {
		return application.Form{}, err
	}
	q := `UPDATE applications SET applicable_period = :applicable_period, room_profile = :room_profile,
		lifestyle_profile = :lifestyle_profile, status = :status, remarks = :remarks, updated_at = :updated_at
		WHERE uid = :uid`
	res, err := sqlx.NamedExecContext(ctx, getExec(ctx, repo.db), q, row)
	if err != nil {
		if pqErrCode(err) == pqUniqueViolation {
			return application.Form{}, application.ErrAlreadyApplied
		}
		return application.Form{}, errors.Wrap(err, "updating application")
	}
	if err = checkAffected(res, application.ErrNotFound); err != nil {
		return application.Form{}, err
	}
	return f, nil
}
