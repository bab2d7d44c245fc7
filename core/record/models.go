package record

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/sutdhousing/portal/core"
)

// DisciplinaryRecord is a penalty entry attached to a student's profile.
type DisciplinaryRecord struct {
	UID             string    `json:"uid"`
	StudentID       string    `json:"student_id"`
	RecordType      string    `json:"record_type"`
	Description     string    `json:"description"`
	PointsDeduction int       `json:"points_deduction"`
	CreatedAt       time.Time `json:"created_at"` // UTC
	CreatedBy       string    `json:"created_by"`
	UpdatedAt       time.Time `json:"updated_at"` // UTC
}

// RecordData is the payload creating or overwriting a DisciplinaryRecord.
// Every field is required; points_deduction must not be 0.
type RecordData struct {
	StudentID       string `json:"student_id" validate:"required,notblank"`
	RecordType      string `json:"record_type" validate:"required,notblank"`
	Description     string `json:"description" validate:"required,notblank"`
	PointsDeduction int    `json:"points_deduction" validate:"required"`
}

func (rd *RecordData) Validate(validate *validator.Validate) error {
	rd.StudentID = core.CleanString(rd.StudentID, true /* lower */)
	rd.RecordType = core.CleanString(rd.RecordType)
	rd.Description = core.CleanString(rd.Description)
	return validate.Struct(rd)
}

func (rd RecordData) apply(r *DisciplinaryRecord) {
	r.StudentID = rd.StudentID
	r.RecordType = rd.RecordType
	r.Description = rd.Description
	r.PointsDeduction = rd.PointsDeduction
}

type QueryFilter struct {
	StudentID string            `query:"student_id"`
	Orderings []core.DBOrdering `query:"-"` // latest first when empty
}

// OrderingFields are the fields records can be ordered by.
var OrderingFields = []string{"created_at", "student_id", "record_type", "points_deduction"}
