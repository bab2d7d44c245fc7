package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/sutdhousing/portal/core"
	"github.com/sutdhousing/portal/core/record"
)

type recordRepository struct {
	db *DB
}

var _ record.Repository = (*recordRepository)(nil)

func NewRecordRepository(db *DB) record.Repository {
	return &recordRepository{db: db}
}

func (repo *recordRepository) CreateRecord(ctx context.Context, r record.DisciplinaryRecord) (record.DisciplinaryRecord, error) {
	defer repo.db.lock(ctx)()

	repo.db.records[r.UID] = r
	return r, nil
}

func (repo *recordRepository) QueryRecords(ctx context.Context, filter *record.QueryFilter) ([]record.DisciplinaryRecord, error) {
	defer repo.db.rlock(ctx)()

	records := make([]record.DisciplinaryRecord, 0)
	for _, r := range repo.db.records {
		if filter != nil && filter.StudentID != "" && r.StudentID != filter.StudentID {
			continue
		}
		records = append(records, r)
	}
	var orderings []core.DBOrdering
	if filter != nil {
		orderings = filter.Orderings
	}
	sort.Slice(records, func(i, j int) bool {
		return less(records[i], records[j], orderings, compareRecords, func(r1, r2 record.DisciplinaryRecord) bool {
			if r1.CreatedAt.Equal(r2.CreatedAt) {
				return r1.UID < r2.UID
			}
			return r1.CreatedAt.After(r2.CreatedAt)
		})
	})
	return records, nil
}

func (repo *recordRepository) GetRecord(ctx context.Context, uid string) (record.DisciplinaryRecord, error) {
	defer repo.db.rlock(ctx)()

	r, ok := repo.db.records[uid]
	if !ok {
		return record.DisciplinaryRecord{}, record.ErrNotFound
	}
	return r, nil
}

func (repo *recordRepository) UpdateRecord(ctx context.Context, r record.DisciplinaryRecord) (record.DisciplinaryRecord, error) {
	defer repo.db.lock(ctx)()

	if _, ok := repo.db.records[r.UID]; !ok {
		return record.DisciplinaryRecord{}, record.ErrNotFound
	}
	repo.db.records[r.UID] = r
	return r, nil
}

func (repo *recordRepository) DeleteRecord(ctx context.Context, uid string) error {
	defer repo.db.lock(ctx)()

	if _, ok := repo.db.records[uid]; !ok {
		return record.ErrNotFound
	}
	delete(repo.db.records, uid)
	return nil
}

func compareRecords(r1, r2 record.DisciplinaryRecord, field string) int {
	switch field {
	case "created_at":
		return compareInt64s(r1.CreatedAt.UnixNano(), r2.CreatedAt.UnixNano())
	case "student_id":
		return strings.Compare(r1.StudentID, r2.StudentID)
	case "record_type":
		return strings.Compare(r1.RecordType, r2.RecordType)
	case "points_deduction":
		return compareInt64s(int64(r1.PointsDeduction), int64(r2.PointsDeduction))
	}
	return 0
}
