package record

import (
	"context"
	"net/mail"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/sutdhousing/portal/core"
	"github.com/sutdhousing/portal/core/student"
)

var (
	// errors
	ErrNotFound            = errors.New("disciplinary record not found")
	ErrStudentDoesNotExist = errors.New("student does not exist")
)

type (
	Repository interface {
		CreateRecord(ctx context.Context, r DisciplinaryRecord) (DisciplinaryRecord, error)
		QueryRecords(ctx context.Context, filter *QueryFilter) ([]DisciplinaryRecord, error) // latest first
		GetRecord(ctx context.Context, uid string) (DisciplinaryRecord, error)
		UpdateRecord(ctx context.Context, r DisciplinaryRecord) (DisciplinaryRecord, error)
		DeleteRecord(ctx context.Context, uid string) error
	}

	Service interface {
		Create(ctx context.Context, data RecordData, createdBy string) (DisciplinaryRecord, error)
		Query(ctx context.Context, filter *QueryFilter) ([]DisciplinaryRecord, error)
		Get(ctx context.Context, uid string) (DisciplinaryRecord, error)
		Update(ctx context.Context, uid string, data RecordData) (DisciplinaryRecord, error)
		Delete(ctx context.Context, uid string) error
	}

	service struct {
		tx         core.Transactor
		repo       Repository
		studentSvc student.Service
		mailSvc    core.EmailService
	}
)

var _ Service = (*service)(nil)

func NewService(tx core.Transactor, repo Repository, studentSvc student.Service, mailSvc core.EmailService) Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(tx, "tx"),
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(studentSvc, "studentSvc"),
		vala.IsNotNil(mailSvc, "mailSvc"),
	).CheckAndPanic()

	return &service{tx: tx, repo: repo, studentSvc: studentSvc, mailSvc: mailSvc}
}

func (svc *service) getStudent(ctx context.Context, studentID string) (student.Student, error) {
	stu, err := svc.studentSvc.Get(ctx, studentID)
	if err != nil {
		if errors.Cause(err) == student.ErrNotFound {
			return student.Student{}, core.NewFieldValidationError("student_id", ErrStudentDoesNotExist)
		}
		return student.Student{}, errors.Wrap(err, "getting student")
	}
	return stu, nil
}

// Create stores the record and notifies the student by email.
func (svc *service) Create(ctx context.Context, data RecordData, createdBy string) (DisciplinaryRecord, error) {
	stu, err := svc.getStudent(ctx, data.StudentID)
	if err != nil {
		return DisciplinaryRecord{}, err
	}

	now := time.Now().UTC()
	r := DisciplinaryRecord{
		UID:       uuid.New().String(),
		CreatedAt: now,
		CreatedBy: createdBy,
		UpdatedAt: now,
	}
	data.apply(&r)
	if r, err = svc.repo.CreateRecord(ctx, r); err != nil {
		return DisciplinaryRecord{}, err
	}

	if msg := recordMessage(stu, r); msg != nil {
		svc.mailSvc.SendMessages(msg)
	}
	return r, nil
}

func recordMessage(stu student.Student, r DisciplinaryRecord) *core.EmailMessage {
	to := stu.EmailSUTD
	if to == "" {
		to = stu.EmailPersonal
	}
	if to == "" {
		return nil
	}
	return &core.EmailMessage{
		To:           []mail.Address{{Name: stu.FullName, Address: to}},
		Subject:      "Disciplinary Record",
		TemplateName: "disciplinary_record",
		TemplateData: map[string]string{
			"StudentID":       stu.StudentID,
			"RecordType":      r.RecordType,
			"PointsDeduction": strconv.Itoa(r.PointsDeduction),
			"Description":     r.Description,
		},
	}
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter) ([]DisciplinaryRecord, error) {
	return svc.repo.QueryRecords(ctx, filter)
}

func (svc *service) Get(ctx context.Context, uid string) (DisciplinaryRecord, error) {
	return svc.repo.GetRecord(ctx, uid)
}

func (svc *service) Update(ctx context.Context, uid string, data RecordData) (DisciplinaryRecord, error) {
	var r DisciplinaryRecord
	err := svc.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if r, err = svc.repo.GetRecord(ctx, uid); err != nil {
			return err
		}
		if r.StudentID != data.StudentID {
			if _, err = svc.getStudent(ctx, data.StudentID); err != nil {
				return err
			}
		}
		data.apply(&r)
		r.UpdatedAt = time.Now().UTC()
		r, err = svc.repo.UpdateRecord(ctx, r)
		return err
	})
	return r, err
}

func (svc *service) Delete(ctx context.Context, uid string) error {
	return svc.repo.DeleteRecord(ctx, uid)
}
