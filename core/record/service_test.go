package record_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sutdhousing/portal/core"
	"github.com/sutdhousing/portal/core/record"
	emailsvc "github.com/sutdhousing/portal/services/email"
	"github.com/sutdhousing/portal/testutil"
)

var ctxBg = context.Background()

func TestRecordData_Validate(t *testing.T) {
	validate, _ := testutil.NewValidator()
	valid := record.RecordData{StudentID: " 1004321 ", RecordType: "NOISE", Description: "party at 3am", PointsDeduction: 5}

	tests := []struct {
		name    string
		change  func(rd *record.RecordData)
		wantErr bool
	}{
		{name: "ok", change: func(rd *record.RecordData) {}},
		{name: "negative points", change: func(rd *record.RecordData) { rd.PointsDeduction = -3 }},
		{name: "zero points", change: func(rd *record.RecordData) { rd.PointsDeduction = 0 }, wantErr: true},
		{name: "blank type", change: func(rd *record.RecordData) { rd.RecordType = " " }, wantErr: true},
		{name: "no description", change: func(rd *record.RecordData) { rd.Description = "" }, wantErr: true},
		{name: "no student", change: func(rd *record.RecordData) { rd.StudentID = "" }, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rd := valid
			tt.change(&rd)
			err := rd.Validate(validate)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "1004321", rd.StudentID)
		})
	}
}

func TestService(t *testing.T) {
	s := testutil.NewStack()
	testutil.CreateStudent(t, s, "1004321", "Jane Tan")
	testutil.CreateStudent(t, s, "1004999", "John Lim")

	_, err := s.RecordSvc.Create(ctxBg, record.RecordData{StudentID: "0000000", RecordType: "NOISE", Description: "x", PointsDeduction: 1}, "boss")
	verr, ok := errors.Cause(err).(*core.ValidationError)
	require.True(t, ok, "got %T", err)
	assert.Equal(t, record.ErrStudentDoesNotExist, verr.Err)
	assert.Empty(t, emailsvc.SentMessages)

	r, err := s.RecordSvc.Create(ctxBg, record.RecordData{StudentID: "1004321", RecordType: "NOISE", Description: "party at 3am", PointsDeduction: 5}, "boss")
	require.NoError(t, err)
	assert.Equal(t, "boss", r.CreatedBy)
	require.Len(t, emailsvc.SentMessages, 1)
	msg := emailsvc.SentMessages[0]
	assert.Equal(t, "disciplinary_record", msg.TemplateName)
	assert.Equal(t, "1004321@mymail.sutd.edu.sg", msg.To[0].Address)
	assert.Equal(t, "5", msg.TemplateData.(map[string]string)["PointsDeduction"])

	_, err = s.RecordSvc.Create(ctxBg, record.RecordData{StudentID: "1004999", RecordType: "LATE", Description: "curfew", PointsDeduction: 2}, "boss")
	require.NoError(t, err)

	recs, err := s.RecordSvc.Query(ctxBg, &record.QueryFilter{StudentID: "1004321"})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, r.UID, recs[0].UID)

	t.Run("update", func(t *testing.T) {
		_, err := s.RecordSvc.Update(ctxBg, r.UID, record.RecordData{StudentID: "0000000", RecordType: "NOISE", Description: "x", PointsDeduction: 1})
		assert.Equal(t, record.ErrStudentDoesNotExist, errors.Cause(err).(*core.ValidationError).Err)

		upd, err := s.RecordSvc.Update(ctxBg, r.UID, record.RecordData{StudentID: "1004999", RecordType: "NOISE", Description: "moved", PointsDeduction: 3})
		require.NoError(t, err)
		assert.Equal(t, "1004999", upd.StudentID)
		assert.Equal(t, 3, upd.PointsDeduction)
		assert.Equal(t, "boss", upd.CreatedBy)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, s.RecordSvc.Delete(ctxBg, r.UID))
		_, err := s.RecordSvc.Get(ctxBg, r.UID)
		assert.Equal(t, record.ErrNotFound, errors.Cause(err))
	})
}
