package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/sutdhousing/portal/core"
	"github.com/sutdhousing/portal/core/record"
)

const recordColumns = `uid, student_id, record_type, description, points_deduction, created_by, created_at, updated_at`

var recordOrderings = map[string]string{
	"created_at":       "created_at",
	"student_id":       "student_id",
	"record_type":      "record_type",
	"points_deduction": "points_deduction",
}

type recordRow struct {
	UID             string    `db:"uid"`
	StudentID       string    `db:"student_id"`
	RecordType      string    `db:"record_type"`
	Description     string    `db:"description"`
	PointsDeduction int       `db:"points_deduction"`
	CreatedBy       string    `db:"created_by"`
	CreatedAt       time.Time `db:"created_at"`
	UpdatedAt       time.Time `db:"updated_at"`
}

func newRecordRow(r record.DisciplinaryRecord) recordRow {
	return recordRow{
		UID:             r.UID,
		StudentID:       r.StudentID,
		RecordType:      r.RecordType,
		Description:     r.Description,
		PointsDeduction: r.PointsDeduction,
		CreatedBy:       r.CreatedBy,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

func (row recordRow) toRecord() record.DisciplinaryRecord {
	return record.DisciplinaryRecord{
		UID:             row.UID,
		StudentID:       row.StudentID,
		RecordType:      row.RecordType,
		Description:     row.Description,
		PointsDeduction: row.PointsDeduction,
		CreatedBy:       row.CreatedBy,
		CreatedAt:       row.CreatedAt.UTC(),
		UpdatedAt:       row.UpdatedAt.UTC(),
	}
}

var errStudentDoesNotExist = core.NewFieldValidationError("student_id", record.ErrStudentDoesNotExist)

type recordRepository struct {
	db *sqlx.DB
}

var _ record.Repository = (*recordRepository)(nil)

func NewRecordRepository(db *sqlx.DB) record.Repository {
	return &recordRepository{db: db}
}

func (repo *recordRepository) CreateRecord(ctx context.Context, r record.DisciplinaryRecord) (record.DisciplinaryRecord, error) {
	q := `INSERT INTO disciplinary_records (` + recordColumns + `)
		VALUES (:uid, :student_id, :record_type, :description, :points_deduction, :created_by, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, getExec(ctx, repo.db), q, newRecordRow(r)); err != nil {
		if pqErrCode(err) == pqForeignKeyViolation {
			return record.DisciplinaryRecord{}, errStudentDoesNotExist
		}
		return record.DisciplinaryRecord{}, errors.Wrap(err, "inserting disciplinary record")
	}
	return r, nil
}

func (repo *recordRepository) QueryRecords(ctx context.Context, filter *record.QueryFilter) ([]record.DisciplinaryRecord, error) {
	var (
		where     whereClause
		orderings []core.DBOrdering
	)
	if filter != nil {
		if filter.StudentID != "" {
			where.add("student_id = ?", filter.StudentID)
		}
		orderings = filter.Orderings
	}

	var rows []recordRow
	q := `SELECT ` + recordColumns + ` FROM disciplinary_records` + where.String() +
		` ORDER BY ` + orderBy(orderings, recordOrderings, "created_at DESC", "uid")
	if err := sqlx.SelectContext(ctx, getExec(ctx, repo.db), &rows, q, where.args...); err != nil {
		return nil, errors.Wrap(err, "selecting disciplinary records")
	}

	records := make([]record.DisciplinaryRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.toRecord())
	}
	return records, nil
}

func (repo *recordRepository) GetRecord(ctx context.Context, uid string) (record.DisciplinaryRecord, error) {
	var row recordRow
	q := `SELECT ` + recordColumns + ` FROM disciplinary_records WHERE uid = $1`
	if err := sqlx.GetContext(ctx, getExec(ctx, repo.db), &row, q, uid); err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return record.DisciplinaryRecord{}, record.ErrNotFound
		}
		return record.DisciplinaryRecord{}, errors.Wrap(err, "selecting disciplinary record")
	}
	return row.toRecord(), nil
}

func (repo *recordRepository) UpdateRecord(ctx context.Context, r record.DisciplinaryRecord) (record.DisciplinaryRecord, error) {
	q := `UPDATE disciplinary_records SET student_id = :student_id, record_type = :record_type,
		description = :description, points_deduction = :points_deduction, updated_at = :updated_at
		WHERE uid = :uid`
	res, err := sqlx.NamedExecContext(ctx, getExec(ctx, repo.db), q, newRecordRow(r))
	if err != nil {
		if pqErrCode(err) == pqForeignKeyViolation {
			return record.DisciplinaryRecord{}, errStudentDoesNotExist
		}
		return record.DisciplinaryRecord{}, errors.Wrap(err, "updating disciplinary record")
	}
	if err = checkAffected(res, record.ErrNotFound); err != nil {
		return record.DisciplinaryRecord{}, err
	}
	return r, nil
}

func (repo *recordRepository) DeleteRecord(ctx context.Context, uid string) error {
	res, err := getExec(ctx, repo.db).ExecContext(ctx, `DELETE FROM disciplinary_records WHERE uid = $1`, uid)
	if err != nil {
		return errors.Wrap(err, "deleting disciplinary record")
	}
	return checkAffected(res, record.ErrNotFound)
}
