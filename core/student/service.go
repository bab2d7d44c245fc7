package student

import (
	"context"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/sutdhousing/portal/core"
	"github.com/sutdhousing/portal/core/user"
)

var (
	// errors
	ErrNotFound      = errors.New("student not found")
	ErrAlreadyExists = errors.New("student already exists")
)

type (
	Repository interface {
		CreateStudent(ctx context.Context, s Student) (Student, error)
		QueryStudents(ctx context.Context, filter *QueryFilter, limit int) ([]Student, error)
		GetStudent(ctx context.Context, studentID string) (Student, error)
		UpdateStudent(ctx context.Context, s Student) (Student, error)
	}

	Service interface {
		Register(ctx context.Context, ns NewStudent) (Student, error)
		Query(ctx context.Context, filter *QueryFilter, num int) ([]Student, error)
		Get(ctx context.Context, studentID string) (Student, error)
		IsHouseGuardian(ctx context.Context, studentID string) (bool, error)
		UpdateEditable(ctx context.Context, studentID string, ep EditableProfile) (Student, error)
		UpdateIdentity(ctx context.Context, studentID string, ip IdentityProfile) (Student, error)
		UpdateRoomProfile(ctx context.Context, studentID string, rp RoomProfile) (Student, error)
		UpdateLifestyleProfile(ctx context.Context, studentID string, lp LifestyleProfile) (Student, error)
		SetHouseGuardian(ctx context.Context, studentID string, isHG bool) (Student, error)
		SetHouseGuardians(ctx context.Context, studentIDs []string) ([]HouseGuardianResult, error)
	}

	service struct {
		tx      core.Transactor
		repo    Repository
		usrRepo user.Repository
	}
)

var _ Service = (*service)(nil)

func NewService(tx core.Transactor, repo Repository, usrRepo user.Repository) Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(tx, "tx"),
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(usrRepo, "usrRepo"),
	).CheckAndPanic()

	return &service{tx: tx, repo: repo, usrRepo: usrRepo}
}

// Register creates the student user account and its profile in a single transaction.
func (svc *service) Register(ctx context.Context, ns NewStudent) (Student, error) {
	usr, err := user.NewUserFrom(ns.ToNewUser())
	if err != nil {
		return Student{}, err
	}

	var s Student
	err = svc.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := svc.usrRepo.CreateUser(ctx, usr); err != nil {
			return errors.Wrap(err, "creating user")
		}
		s, err = svc.repo.CreateStudent(ctx, ns.toStudent(usr.CreatedAt))
		return errors.Wrap(err, "creating student")
	})
	return s, err
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, num int) ([]Student, error) {
	return svc.repo.QueryStudents(ctx, filter, num)
}

func (svc *service) Get(ctx context.Context, studentID string) (Student, error) {
	return svc.repo.GetStudent(ctx, core.CleanString(studentID, true /* lower */))
}

func (svc *service) IsHouseGuardian(ctx context.Context, studentID string) (bool, error) {
	s, err := svc.Get(ctx, studentID)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return false, nil
		}
		return false, err
	}
	return s.IsHouseGuardian, nil
}

func (svc *service) update(ctx context.Context, studentID string, change func(s *Student)) (Student, error) {
	var s Student
	err := svc.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if s, err = svc.Get(ctx, studentID); err != nil {
			return err
		}
		change(&s)
		s.UpdatedAt = time.Now().UTC()
		s, err = svc.repo.UpdateStudent(ctx, s)
		return err
	})
	return s, err
}

func (svc *service) UpdateEditable(ctx context.Context, studentID string, ep EditableProfile) (Student, error) {
	return svc.update(ctx, studentID, ep.apply)
}

func (svc *service) UpdateIdentity(ctx context.Context, studentID string, ip IdentityProfile) (Student, error) {
	return svc.update(ctx, studentID, ip.apply)
}

func (svc *service) UpdateRoomProfile(ctx context.Context, studentID string, rp RoomProfile) (Student, error) {
	return svc.update(ctx, studentID, func(s *Student) { s.PreferenceRoom = rp })
}

func (svc *service) UpdateLifestyleProfile(ctx context.Context, studentID string, lp LifestyleProfile) (Student, error) {
	return svc.update(ctx, studentID, func(s *Student) { s.PreferenceLifestyle = lp })
}

func (svc *service) SetHouseGuardian(ctx context.Context, studentID string, isHG bool) (Student, error) {
	return svc.update(ctx, studentID, func(s *Student) { s.IsHouseGuardian = isHG })
}

// SetHouseGuardians grants the house guardian role to every listed student.
// Unknown students do not abort the assignment: each entry gets its own result.
func (svc *service) SetHouseGuardians(ctx context.Context, studentIDs []string) ([]HouseGuardianResult, error) {
	ids := core.CleanStrings(studentIDs, true /* lower */)
	results := make([]HouseGuardianResult, 0, len(ids))

	err := svc.tx.WithinTx(ctx, func(ctx context.Context) error {
		for _, id := range ids {
			res := HouseGuardianResult{StudentID: id, OK: true}
			if _, err := svc.SetHouseGuardian(ctx, id, true); err != nil {
				if errors.Cause(err) != ErrNotFound {
					return errors.Wrapf(err, "setting house guardian %s", id)
				}
				res.OK = false
				res.Error = err.Error()
			}
			results = append(results, res)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}
