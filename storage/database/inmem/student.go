package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/sutdhousing/portal/core"
	"github.com/sutdhousing/portal/core/student"
)

type studentRepository struct {
	db *DB
}

var _ student.Repository = (*studentRepository)(nil)

func NewStudentRepository(db *DB) student.Repository {
	return &studentRepository{db: db}
}

// populate fills the derived lists of s. The caller holds the lock.
func (repo *studentRepository) populate(s student.Student) student.Student {
	s.RegisteredEvents = []string{}
	s.AttendedEvents = []string{}
	for uid, sus := range repo.db.signups {
		for _, su := range sus {
			if su.studentID != s.StudentID {
				continue
			}
			s.RegisteredEvents = append(s.RegisteredEvents, uid)
			if su.attended {
				s.AttendedEvents = append(s.AttendedEvents, uid)
			}
		}
	}

	s.DisciplinaryRecords = []string{}
	for uid, r := range repo.db.records {
		if r.StudentID == s.StudentID {
			s.DisciplinaryRecords = append(s.DisciplinaryRecords, uid)
		}
	}

	s.ApplicationUIDs = []string{}
	for uid, f := range repo.db.forms {
		if f.StudentID == s.StudentID {
			s.ApplicationUIDs = append(s.ApplicationUIDs, uid)
		}
	}

	sort.Strings(s.RegisteredEvents)
	sort.Strings(s.AttendedEvents)
	sort.Strings(s.DisciplinaryRecords)
	sort.Strings(s.ApplicationUIDs)
	return s
}

func (repo *studentRepository) CreateStudent(ctx context.Context, s student.Student) (student.Student, error) {
	defer repo.db.lock(ctx)()

	if _, ok := repo.db.students[s.StudentID]; ok {
		return student.Student{}, student.ErrAlreadyExists
	}
	repo.db.students[s.StudentID] = s
	return repo.populate(s), nil
}

func (repo *studentRepository) QueryStudents(ctx context.Context, filter *student.QueryFilter, limit int) ([]student.Student, error) {
	defer repo.db.rlock(ctx)()

	students := make([]student.Student, 0, len(repo.db.students))
	for _, s := range repo.db.students {
		if filter != nil {
			if filter.IsHouseGuardian != nil && s.IsHouseGuardian != *filter.IsHouseGuardian {
				continue
			}
			if search := strings.ToLower(filter.Search); search != "" &&
				!(strings.Contains(s.StudentID, search) || strings.Contains(strings.ToLower(s.FullName), search)) {
				continue
			}
		}
		students = append(students, s)
	}
	var orderings []core.DBOrdering
	if filter != nil {
		orderings = filter.Orderings
	}
	sort.Slice(students, func(i, j int) bool {
		return less(students[i], students[j], orderings, compareStudents, func(s1, s2 student.Student) bool {
			return s1.StudentID < s2.StudentID
		})
	})

	if limit > 0 && len(students) > limit {
		students = students[:limit]
	}
	for i := range students {
		students[i] = repo.populate(students[i])
	}
	return students, nil
}

func (repo *studentRepository) GetStudent(ctx context.Context, studentID string) (student.Student, error) {
	defer repo.db.rlock(ctx)()

	s, ok := repo.db.students[studentID]
	if !ok {
		return student.Student{}, student.ErrNotFound
	}
	return repo.populate(s), nil
}

func (repo *studentRepository) UpdateStudent(ctx context.Context, s student.Student) (student.Student, error) {
	defer repo.db.lock(ctx)()

	orig, ok := repo.db.students[s.StudentID]
	if !ok {
		return student.Student{}, student.ErrNotFound
	}
	s.CreatedAt = orig.CreatedAt
	repo.db.students[s.StudentID] = s
	return repo.populate(s), nil
}

func compareStudents(s1, s2 student.Student, field string) int {
	switch field {
	case "student_id":
		return strings.Compare(s1.StudentID, s2.StudentID)
	case "full_name":
		return strings.Compare(s1.FullName, s2.FullName)
	case "year_of_enrollment":
		return compareInt64s(int64(s1.YearOfEnrollment), int64(s2.YearOfEnrollment))
	case "created_at":
		return compareInt64s(s1.CreatedAt.UnixNano(), s2.CreatedAt.UnixNano())
	}
	return 0
}
