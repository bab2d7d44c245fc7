package tests

import (
	"bytes"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/sutdhousing/portal/core/record"
	emailsvc "github.com/sutdhousing/portal/services/email"
)

func recordData(studentID string) record.RecordData {
	return record.RecordData{
		StudentID:       studentID,
		RecordType:      "Noise",
		Description:     "Loud music after midnight",
		PointsDeduction: 5,
	}
}

func Test_recordApi_create(t *testing.T) {
	u := setupUsers(t)
	path := "/api/records"

	runHTTPTests(t, []httpTest{
		{name: "students forbidden", method: http.MethodPost, path: path, token: u.studentTok, body: marshalObj(t, recordData(u.other.Username)), wantCode: http.StatusForbidden},
		{name: "read-only admin forbidden", method: http.MethodPost, path: path, token: u.adminROTok, body: marshalObj(t, recordData(u.other.Username)), wantCode: http.StatusForbidden},
		{
			name: "description required", method: http.MethodPost, path: path, token: u.adminTok,
			body:     marshalObj(t, record.RecordData{StudentID: u.student.Username, RecordType: "Noise", PointsDeduction: 5}),
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, map[string]string{"description": "this field is required"}),
		},
		{
			name: "unknown student", method: http.MethodPost, path: path, token: u.adminTok, body: marshalObj(t, recordData("0000000")),
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, map[string]string{"student_id": record.ErrStudentDoesNotExist.Error()}),
		},
	})
	assert.Empty(t, emailsvc.SentMessages)

	rec := do(t, http.MethodPost, path, u.adminTok, recordData(u.student.Username))
	if assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String()) {
		var r record.DisciplinaryRecord
		unmarshal(t, rec, &r)
		assert.Equal(t, u.admin.Username, r.CreatedBy)
		assert.Equal(t, 5, r.PointsDeduction)
	}

	// the student is notified
	if assert.Len(t, emailsvc.SentMessages, 1) {
		assert.Equal(t, u.student.Email, emailsvc.SentMessages[0].To[0].Address)
	}
}

func Test_recordApi_access(t *testing.T) {
	u := setupUsers(t)
	r, err := stack.RecordSvc.Create(ctxBg, recordData(u.student.Username), u.admin.Username)
	require.NoError(t, err)
	path := "/api/records/" + r.UID

	updated := recordData(u.student.Username)
	updated.PointsDeduction = 2

	runHTTPTests(t, []httpTest{
		{name: "owner", path: path, token: u.studentTok, wantCode: http.StatusOK},
		{name: "other student", path: path, token: u.otherTok, wantCode: http.StatusForbidden},
		{name: "read-only admin", path: path, token: u.adminROTok, wantCode: http.StatusOK},
		{name: "list: students forbidden", path: "/api/records", token: u.studentTok, wantCode: http.StatusForbidden},
		{name: "own records", path: "/api/students/" + u.student.Username + "/records", token: u.studentTok, wantCode: http.StatusOK},
		{name: "update: owner forbidden", method: http.MethodPut, path: path, token: u.studentTok, body: marshalObj(t, updated), wantCode: http.StatusForbidden},
		{name: "update: unknown student", method: http.MethodPut, path: path, token: u.adminTok, body: marshalObj(t, recordData("0000000")), wantCode: http.StatusBadRequest},
		{name: "update", method: http.MethodPut, path: path, token: u.adminTok, body: marshalObj(t, updated), wantCode: http.StatusOK},
		{name: "delete: read-only admin forbidden", method: http.MethodDelete, path: path, token: u.adminROTok, wantCode: http.StatusForbidden},
		{name: "delete", method: http.MethodDelete, path: path, token: u.adminTok, wantCode: http.StatusNoContent},
		{name: "gone", path: path, token: u.adminTok, wantCode: http.StatusNotFound},
	})
}

func Test_recordApi_query(t *testing.T) {
	u := setupUsers(t)
	for _, id := range []string{u.student.Username, u.student.Username, u.other.Username} {
		_, err := stack.RecordSvc.Create(ctxBg, recordData(id), u.admin.Username)
		require.NoError(t, err)
	}

	rec := do(t, http.MethodGet, "/api/records?student_id="+u.student.Username, u.adminROTok, nil)
	if assert.Equal(t, http.StatusOK, rec.Code) {
		var records []record.DisciplinaryRecord
		unmarshal(t, rec, &records)
		assert.Len(t, records, 2)
	}

	rec = do(t, http.MethodGet, "/api/records/export", u.adminROTok, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "disciplinary_records_")

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Disciplinary Records")
	require.NoError(t, err)
	assert.Len(t, rows, 4)

	severe := recordData(u.other.Username)
	severe.PointsDeduction = 20
	_, err = stack.RecordSvc.Create(ctxBg, severe, u.admin.Username)
	require.NoError(t, err)

	rec = do(t, http.MethodGet, "/api/records?ordering=-points_deduction,student_id", u.adminROTok, nil)
	if assert.Equal(t, http.StatusOK, rec.Code) {
		var records []record.DisciplinaryRecord
		unmarshal(t, rec, &records)
		require.Len(t, records, 4)
		assert.Equal(t, 20, records[0].PointsDeduction)
		assert.Equal(t, u.student.Username, records[1].StudentID)
		assert.Equal(t, u.other.Username, records[3].StudentID)
	}

	rec = do(t, http.MethodGet, "/api/records?ordering=description", u.adminROTok, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ordering"`)
}
