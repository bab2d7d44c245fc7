package tests

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sutdhousing/portal/core/application"
	"github.com/sutdhousing/portal/core/period"
	"github.com/sutdhousing/portal/core/student"
	emailsvc "github.com/sutdhousing/portal/services/email"
	"github.com/sutdhousing/portal/testutil"
)

func Test_applicationApi_submit(t *testing.T) {
	u := setupUsers(t)
	now := time.Now()
	path := "/api/applications"

	open := testutil.CreateOpenPeriod(t, stack)
	closed := testutil.CreatePeriod(t, stack, now.Add(-48*time.Hour), now.Add(-time.Hour))
	restricted := testutil.CreateOpenPeriod(t, stack, u.other.Username)

	unknownPeriod := testutil.NewForm(open)
	unknownPeriod.ApplicablePeriod = testutil.TimePeriod(1, 1)
	badRoom := testutil.NewForm(open)
	badRoom.RoomProfile.Block = "42"

	runHTTPTests(t, []httpTest{
		{name: "admins forbidden", method: http.MethodPost, path: path, token: u.adminTok, body: marshalObj(t, testutil.NewForm(open)), wantCode: http.StatusForbidden},
		{
			name: "period required", method: http.MethodPost, path: path, token: u.studentTok,
			body: marshalObj(t, application.NewForm{
				ApplicablePeriod: open.ApplicablePeriods[0],
				RoomProfile:      student.DefaultRoomProfile(),
				LifestyleProfile: student.DefaultLifestyleProfile(),
			}),
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, map[string]string{"application_period_uid": "this field is required"}),
		},
		{
			name: "invalid room profile", method: http.MethodPost, path: path, token: u.studentTok, body: marshalObj(t, badRoom),
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, map[string]string{"room_profile.block": "block must be one of 55, 57, 59, ANY"}),
		},
		{
			name: "unknown application period", method: http.MethodPost, path: path, token: u.studentTok,
			body:     marshalObj(t, application.NewForm{ApplicationPeriodUID: "nope", ApplicablePeriod: open.ApplicablePeriods[0], RoomProfile: student.DefaultRoomProfile(), LifestyleProfile: student.DefaultLifestyleProfile()}),
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, map[string]string{"application_period_uid": application.ErrPeriodDoesNotExist.Error()}),
		},
		{
			name: "window closed", method: http.MethodPost, path: path, token: u.studentTok, body: marshalObj(t, testutil.NewForm(closed)),
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, httpErr{Error: application.ErrWindowClosed.Error()}),
		},
		{
			name: "not applicable", method: http.MethodPost, path: path, token: u.studentTok, body: marshalObj(t, testutil.NewForm(restricted)),
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, httpErr{Error: application.ErrNotApplicable.Error()}),
		},
		{
			name: "unknown applicable period", method: http.MethodPost, path: path, token: u.studentTok, body: marshalObj(t, unknownPeriod),
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, map[string]string{"applicable_period": application.ErrUnknownPeriod.Error()}),
		},
		{name: "submitted", method: http.MethodPost, path: path, token: u.studentTok, body: marshalObj(t, testutil.NewForm(open)), wantCode: http.StatusCreated},
		{
			name: "duplicate", method: http.MethodPost, path: path, token: u.studentTok, body: marshalObj(t, testutil.NewForm(open)),
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, httpErr{Error: application.ErrAlreadyApplied.Error()}),
		},
		{name: "other student applies to restricted period", method: http.MethodPost, path: path, token: u.otherTok, body: marshalObj(t, testutil.NewForm(restricted)), wantCode: http.StatusCreated},
	})

	// a confirmation email goes out per submission
	assert.Len(t, emailsvc.SentMessages, 2)

	forms, err := stack.ApplicationSvc.Query(ctxBg, &application.QueryFilter{PeriodUID: open.UID})
	require.NoError(t, err)
	if assert.Len(t, forms, 1) {
		assert.Equal(t, u.student.Username, forms[0].StudentID)
		assert.Equal(t, application.StatusSubmitted, forms[0].Status)
	}
}

// A submitted form carries exactly the documented keys.
func Test_applicationApi_submitPayload(t *testing.T) {
	u := setupUsers(t)
	p := testutil.CreateOpenPeriod(t, stack)

	rec := do(t, http.MethodPost, "/api/applications", u.studentTok, testutil.NewForm(p))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var got map[string]interface{}
	unmarshal(t, rec, &got)
	keys := make([]string, 0, len(got))
	for k := range got {
		keys = append(keys, k)
	}
	assert.ElementsMatch(t, []string{
		"uid", "created_at", "updated_at", "student_id", "application_period_uid", "applicable_period",
		"room_profile", "lifestyle_profile", "status", "remarks",
	}, keys)
	assert.IsType(t, map[string]interface{}{}, got["room_profile"])
	assert.IsType(t, "", got["status"])

	lifestyle := got["lifestyle_profile"].(map[string]interface{})
	assert.IsType(t, float64(0), lifestyle["sleep_time"])
	assert.IsType(t, false, lifestyle["use_aircon"])
}

func Test_applicationApi_access(t *testing.T) {
	u := setupUsers(t)
	p := testutil.CreateOpenPeriod(t, stack)
	f, err := stack.ApplicationSvc.Submit(ctxBg, u.student.Username, testutil.NewForm(p))
	require.NoError(t, err)
	path := "/api/applications/" + f.UID

	runHTTPTests(t, []httpTest{
		{name: "owner", path: path, token: u.studentTok, wantCode: http.StatusOK},
		{name: "other student", path: path, token: u.otherTok, wantCode: http.StatusForbidden},
		{name: "read-only admin", path: path, token: u.adminROTok, wantCode: http.StatusOK},
		{name: "unknown", path: "/api/applications/nope", token: u.adminTok, wantCode: http.StatusNotFound},
		{name: "list: students forbidden", path: "/api/applications", token: u.studentTok, wantCode: http.StatusForbidden},
		{name: "withdraw: other student forbidden", method: http.MethodPut, path: path + "/withdraw", token: u.otherTok, wantCode: http.StatusForbidden},
		{name: "withdraw: admins forbidden", method: http.MethodPut, path: path + "/withdraw", token: u.adminTok, wantCode: http.StatusForbidden},
		{
			name: "status: read-only admin forbidden", method: http.MethodPut, path: path + "/status", token: u.adminROTok,
			body: marshalObj(t, application.StatusUpdate{Status: application.StatusOffered}), wantCode: http.StatusForbidden,
		},
	})

	rec := do(t, http.MethodGet, "/api/applications?status=SUBMITTED&period="+p.UID, u.adminROTok, nil)
	if assert.Equal(t, http.StatusOK, rec.Code) {
		var forms []application.Form
		unmarshal(t, rec, &forms)
		assert.Len(t, forms, 1)
	}
	rec = do(t, http.MethodGet, "/api/applications?status=OFFERED", u.adminROTok, nil)
	if assert.Equal(t, http.StatusOK, rec.Code) {
		var forms []application.Form
		unmarshal(t, rec, &forms)
		assert.Empty(t, forms)
	}
}

func Test_applicationApi_withdrawAndStatus(t *testing.T) {
	u := setupUsers(t)
	p := testutil.CreateOpenPeriod(t, stack)
	f, err := stack.ApplicationSvc.Submit(ctxBg, u.student.Username, testutil.NewForm(p))
	require.NoError(t, err)
	path := "/api/applications/" + f.UID

	rec := do(t, http.MethodPut, path+"/status", u.adminTok, application.StatusUpdate{Status: "MAYBE"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, http.MethodPut, path+"/withdraw", u.studentTok, nil)
	if assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String()) {
		var got application.Form
		unmarshal(t, rec, &got)
		assert.Equal(t, application.StatusWithdrawn, got.Status)
	}
	rec = do(t, http.MethodPut, path+"/withdraw", u.studentTok, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// a withdrawn form does not block a new application
	rec = do(t, http.MethodPost, "/api/applications", u.studentTok, testutil.NewForm(p))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var second application.Form
	unmarshal(t, rec, &second)

	rec = do(t, http.MethodPut, "/api/applications/"+second.UID+"/status", u.adminTok, application.StatusUpdate{Status: application.StatusOffered, Remarks: "59-801"})
	if assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String()) {
		var got application.Form
		unmarshal(t, rec, &got)
		assert.Equal(t, application.StatusOffered, got.Status)
		assert.Equal(t, "59-801", got.Remarks)
	}

	rec = do(t, http.MethodGet, "/api/students/"+u.student.Username+"/applications", u.studentTok, nil)
	if assert.Equal(t, http.StatusOK, rec.Code) {
		var byUID map[string]application.Form
		unmarshal(t, rec, &byUID)
		assert.Len(t, byUID, 2)
		assert.Equal(t, application.StatusWithdrawn, byUID[f.UID].Status)
	}
}

// Moving back and forth through the wizard keeps the values of every step.
func Test_applicationApi_drafts(t *testing.T) {
	u := setupUsers(t)
	p := testutil.CreateOpenPeriod(t, stack)
	path := "/api/applications/drafts/" + p.UID

	runHTTPTests(t, []httpTest{
		{name: "admins forbidden", path: path, token: u.adminTok, wantCode: http.StatusForbidden},
		{name: "no draft yet", path: path, token: u.studentTok, wantCode: http.StatusNotFound},
		{
			name: "unknown period", method: http.MethodPut, path: "/api/applications/drafts/nope", token: u.studentTok,
			body: marshalObj(t, application.DraftUpdate{Step: 1}), wantCode: http.StatusNotFound,
		},
		{
			name: "step out of range", method: http.MethodPut, path: path, token: u.studentTok,
			body: marshalObj(t, application.DraftUpdate{Step: 9}), wantCode: http.StatusBadRequest,
		},
	})

	tp := p.ApplicablePeriods[1]
	phone := "91234567"
	rp := student.DefaultRoomProfile()
	rp.RoomType = student.RoomDouble

	steps := []application.DraftUpdate{
		{Step: 1, ApplicablePeriod: &tp},
		{Step: 2, Personal: &student.EditableProfile{PhoneNumber: &phone}},
		{Step: 3, RoomProfile: &rp},
		{Step: 1}, // back
		{Step: 2}, // next
	}
	var d application.Draft
	for _, du := range steps {
		rec := do(t, http.MethodPut, path, u.studentTok, du)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		unmarshal(t, rec, &d)
		assert.Equal(t, du.Step, d.CurrentStep)
	}

	rec := do(t, http.MethodGet, path, u.studentTok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	unmarshal(t, rec, &d)
	assert.Equal(t, 2, d.CurrentStep)
	if assert.NotNil(t, d.ApplicablePeriod) {
		assert.True(t, tp.Equal(*d.ApplicablePeriod))
	}
	if assert.NotNil(t, d.Personal) {
		assert.Equal(t, phone, *d.Personal.PhoneNumber)
	}
	assert.Equal(t, &rp, d.RoomProfile)
	assert.Nil(t, d.LifestyleProfile)

	// drafts are per student
	rec = do(t, http.MethodGet, path, u.otherTok, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// submitting discards the draft
	nf := testutil.NewForm(p)
	nf.ApplicablePeriod = period.TimePeriod{StartDate: tp.StartDate, EndDate: tp.EndDate}
	rec = do(t, http.MethodPost, "/api/applications", u.studentTok, nf)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = do(t, http.MethodGet, path, u.studentTok, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// explicit delete
	rec = do(t, http.MethodPut, path, u.otherTok, application.DraftUpdate{Step: 1})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, http.MethodDelete, path, u.otherTok, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, http.MethodGet, path, u.otherTok, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
