package sqlxrepos

import (
	"context"
	"database/sql"
	"encoding/json"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/sutdhousing/portal/core"
	"github.com/sutdhousing/portal/core/student"
)

var studentOrderings = map[string]string{
	"student_id":         "s.student_id",
	"full_name":          "s.full_name",
	"year_of_enrollment": "s.year_of_enrollment",
	"created_at":         "s.created_at",
}

const studentSelect = `SELECT s.student_id, s.full_name, s.gender, s.enrollment_type, s.year_of_enrollment,
	s.nationality, s.email_sutd, s.phone_number, s.email_personal, s.local_addr_post_code,
	s.local_addr_street, s.local_addr_unit, s.preference_room, s.preference_lifestyle,
	s.is_house_guardian, s.created_at, s.updated_at,
	ARRAY(SELECT es.event_uid FROM event_signups es WHERE es.student_id = s.student_id ORDER BY es.event_uid) AS registered_events,
	ARRAY(SELECT es.event_uid FROM event_signups es WHERE es.student_id = s.student_id AND es.attended ORDER BY es.event_uid) AS attended_events,
	ARRAY(SELECT dr.uid FROM disciplinary_records dr WHERE dr.student_id = s.student_id ORDER BY dr.uid) AS disciplinary_records,
	ARRAY(SELECT a.uid FROM applications a WHERE a.student_id = s.student_id ORDER BY a.uid) AS application_uids
	FROM students s`

type studentRow struct {
	StudentID           string         `db:"student_id"`
	FullName            string         `db:"full_name"`
	Gender              string         `db:"gender"`
	EnrollmentType      string         `db:"enrollment_type"`
	YearOfEnrollment    int            `db:"year_of_enrollment"`
	Nationality         string         `db:"nationality"`
	EmailSUTD           string         `db:"email_sutd"`
	PhoneNumber         string         `db:"phone_number"`
	EmailPersonal       string         `db:"email_personal"`
	LocalAddrPostCode   string         `db:"local_addr_post_code"`
	LocalAddrStreet     string         `db:"local_addr_street"`
	LocalAddrUnit       string         `db:"local_addr_unit"`
	PreferenceRoom      types.JSONText `db:"preference_room"`
	PreferenceLifestyle types.JSONText `db:"preference_lifestyle"`
	IsHouseGuardian     bool           `db:"is_house_guardian"`
	CreatedAt           time.Time      `db:"created_at"`
	UpdatedAt           time.Time      `db:"updated_at"`

	RegisteredEvents    pq.StringArray `db:"registered_events"`
	AttendedEvents      pq.StringArray `db:"attended_events"`
	DisciplinaryRecords pq.StringArray `db:"disciplinary_records"`
	ApplicationUIDs     pq.StringArray `db:"application_uids"`
}

func newStudentRow(s student.Student) (studentRow, error) {
	room, err := json.Marshal(s.PreferenceRoom)
	if err != nil {
		return studentRow{}, errors.Wrap(err, "marshalling preference_room")
	}
	lifestyle, err := json.Marshal(s.PreferenceLifestyle)
	if err != nil {
		return studentRow{}, errors.Wrap(err, "marshalling preference_lifestyle")
	}
	return studentRow{
		StudentID:           s.StudentID,
		FullName:            s.FullName,
		Gender:              s.Gender,
		EnrollmentType:      s.EnrollmentType,
		YearOfEnrollment:    s.YearOfEnrollment,
		Nationality:         s.Nationality,
		EmailSUTD:           s.EmailSUTD,
		PhoneNumber:         s.PhoneNumber,
		EmailPersonal:       s.EmailPersonal,
		LocalAddrPostCode:   s.LocalAddrPostCode,
		LocalAddrStreet:     s.LocalAddrStreet,
		LocalAddrUnit:       s.LocalAddrUnit,
		PreferenceRoom:      room,
		PreferenceLifestyle: lifestyle,
		IsHouseGuardian:     s.IsHouseGuardian,
		CreatedAt:           s.CreatedAt,
		UpdatedAt:           s.UpdatedAt,
	}, nil
}

func (row studentRow) toStudent() (student.Student, error) {
	s := student.Student{
		StudentID:           row.StudentID,
		FullName:            row.FullName,
		Gender:              row.Gender,
		EnrollmentType:      row.EnrollmentType,
		YearOfEnrollment:    row.YearOfEnrollment,
		Nationality:         row.Nationality,
		EmailSUTD:           row.EmailSUTD,
		PhoneNumber:         row.PhoneNumber,
		EmailPersonal:       row.EmailPersonal,
		LocalAddrPostCode:   row.LocalAddrPostCode,
		LocalAddrStreet:     row.LocalAddrStreet,
		LocalAddrUnit:       row.LocalAddrUnit,
		IsHouseGuardian:     row.IsHouseGuardian,
		CreatedAt:           row.CreatedAt.UTC(),
		UpdatedAt:           row.UpdatedAt.UTC(),
		RegisteredEvents:    nonNil(row.RegisteredEvents),
		AttendedEvents:      nonNil(row.AttendedEvents),
		DisciplinaryRecords: nonNil(row.DisciplinaryRecords),
		ApplicationUIDs:     nonNil(row.ApplicationUIDs),
	}
	if err := row.PreferenceRoom.Unmarshal(&s.PreferenceRoom); err != nil {
		return student.Student{}, errors.Wrap(err, "unmarshalling preference_room")
	}
	if err := row.PreferenceLifestyle.Unmarshal(&s.PreferenceLifestyle); err != nil {
		return student.Student{}, errors.Wrap(err, "unmarshalling preference_lifestyle")
	}
	return s, nil
}

func nonNil(arr pq.StringArray) []string {
	if arr == nil {
		return []string{}
	}
	return []string(arr)
}

type studentRepository struct {
	db *sqlx.DB
}

var _ student.Repository = (*studentRepository)(nil)

func NewStudentRepository(db *sqlx.DB) student.Repository {
	return &studentRepository{db: db}
}

func (repo *studentRepository) CreateStudent(ctx context.Context, s student.Student) (student.Student, error) {
	row, err := newStudentRow(s)
	if err != nil {
		return student.Student{}, err
	}
	q := `INSERT INTO students (student_id, full_name, gender, enrollment_type, year_of_enrollment, nationality,
		email_sutd, phone_number, email_personal, local_addr_post_code, local_addr_street, local_addr_unit,
		preference_room, preference_lifestyle, is_house_guardian, created_at, updated_at)
		VALUES (:student_id, :full_name, :gender, :enrollment_type, :year_of_enrollment, :nationality,
		:email_sutd, :phone_number, :email_personal, :local_addr_post_code, :local_addr_street, :local_addr_unit,
		:preference_room, :preference_lifestyle, :is_house_guardian, :created_at, :updated_at)`
	if _, err = sqlx.NamedExecContext(ctx, getExec(ctx, repo.db), q, row); err != nil {
		if pqErrCode(err) == pqUniqueViolation {
			return student.Student{}, student.ErrAlreadyExists
		}
		return student.Student{}, errors.Wrap(err, "inserting student")
	}
	return repo.GetStudent(ctx, s.StudentID)
}

func (repo *studentRepository) QueryStudents(ctx context.Context, filter *student.QueryFilter, limit int) ([]student.Student, error) {
	var (
		where     whereClause
		orderings []core.DBOrdering
	)
	if filter != nil {
		if filter.Search != "" {
			where.add("(s.student_id ILIKE ? OR s.full_name ILIKE ?)", "%"+filter.Search+"%")
		}
		if filter.IsHouseGuardian != nil {
			where.add("s.is_house_guardian = ?", *filter.IsHouseGuardian)
		}
		orderings = filter.Orderings
	}
	q := studentSelect + where.String() + ` ORDER BY ` + orderBy(orderings, studentOrderings, "s.student_id")
	if limit > 0 {
		where.args = append(where.args, limit)
		q += ` LIMIT $` + strconv.Itoa(len(where.args))
	}

	var rows []studentRow
	if err := sqlx.SelectContext(ctx, getExec(ctx, repo.db), &rows, q, where.args...); err != nil {
		return nil, errors.Wrap(err, "selecting students")
	}

	students := make([]student.Student, 0, len(rows))
	for _, row := range rows {
		s, err := row.toStudent()
		if err != nil {
			return nil, err
		}
		students = append(students, s)
	}
	return students, nil
}

func (repo *studentRepository) GetStudent(ctx context.Context, studentID string) (student.Student, error) {
	var row studentRow
	if err := sqlx.GetContext(ctx, getExec(ctx, repo.db), &row, studentSelect+` WHERE s.student_id = $1`, studentID); err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return student.Student{}, student.ErrNotFound
		}
		return student.Student{}, errors.Wrap(err, "selecting student")
	}
	return row.toStudent()
}

func (repo *studentRepository) UpdateStudent(ctx context.Context, s student.Student) (student.Student, error) {
	row, err := newStudentRow(s)
	if err != nil {
		return student.Student{}, err
	}
	q := `UPDATE students SET full_name = :full_name, gender = :gender, enrollment_type = :enrollment_type,
		year_of_enrollment = :year_of_enrollment, nationality = :nationality, email_sutd = :email_sutd,
		phone_number = :phone_number, email_personal = :email_personal, local_addr_post_code = :local_addr_post_code,
		local_addr_street = :local_addr_street, local_addr_unit = :local_addr_unit, preference_room = :preference_room,
		preference_lifestyle = :preference_lifestyle, is_house_guardian = :is_house_guardian, updated_at = :updated_at
		WHERE student_id = :student_id`
	res, err := sqlx.NamedExecContext(ctx, getExec(ctx, repo.db), q, row)
	if err != nil {
		return student.Student{}, errors.Wrap(err, "updating student")
	}
	if err = checkAffected(res, student.ErrNotFound); err != nil {
		return student.Student{}, err
	}
	return repo.GetStudent(ctx, s.StudentID)
}
