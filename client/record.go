package client

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/sutdhousing/portal/core/record"
)

func (c *Client) CreateRecord(ctx context.Context, data record.RecordData) (record.DisciplinaryRecord, error) {
	var r record.DisciplinaryRecord
	err := c.do(ctx, http.MethodPost, "/records", data, &r)
	return r, err
}

func (c *Client) GetRecord(ctx context.Context, uid string) (record.DisciplinaryRecord, error) {
	var r record.DisciplinaryRecord
	err := c.do(ctx, http.MethodGet, "/records/"+url.PathEscape(uid), nil, &r)
	return r, err
}

func (c *Client) DeleteRecord(ctx context.Context, uid string) error {
	return c.do(ctx, http.MethodDelete, "/records/"+url.PathEscape(uid), nil, nil)
}

// CreateDisciplinaryRecord is the form filing a disciplinary record.
// Every field must be set: points deduction must not be 0.
type CreateDisciplinaryRecord struct {
	StudentID       string
	RecordType      string
	Description     string
	PointsDeduction int
}

func (f *CreateDisciplinaryRecord) Validate() error {
	verr := make(ValidationError)
	if strings.TrimSpace(f.StudentID) == "" {
		verr["student_id"] = msgRequired
	}
	if strings.TrimSpace(f.RecordType) == "" {
		verr["record_type"] = msgRequired
	}
	if strings.TrimSpace(f.Description) == "" {
		verr["description"] = msgRequired
	}
	if f.PointsDeduction == 0 {
		verr["points_deduction"] = msgRequired
	}
	if len(verr) > 0 {
		return verr
	}
	return nil
}

func (f *CreateDisciplinaryRecord) Submit(ctx context.Context, c *Client) (record.DisciplinaryRecord, error) {
	if err := f.Validate(); err != nil {
		return record.DisciplinaryRecord{}, err
	}
	return c.CreateRecord(ctx, record.RecordData{
		StudentID:       strings.TrimSpace(f.StudentID),
		RecordType:      strings.TrimSpace(f.RecordType),
		Description:     strings.TrimSpace(f.Description),
		PointsDeduction: f.PointsDeduction,
	})
}
