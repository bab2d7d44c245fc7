package client

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/sutdhousing/portal/apps/api/echo"
	"github.com/sutdhousing/portal/core/application"
	"github.com/sutdhousing/portal/core/period"
	"github.com/sutdhousing/portal/core/student"
	"github.com/sutdhousing/portal/testutil"
)

// newPortal serves the real API on top of an in-memory stack.
func newPortal(t *testing.T) (*testutil.Stack, string) {
	stack := testutil.NewStack()
	srv := httptest.NewServer(echoapi.NewServer(echoapi.ServerDeps{
		Conf:           stack.Conf,
		Logger:         stack.Logger,
		Validate:       stack.Validate,
		Translator:     stack.Translator,
		DisableReqLogs: true,
		UserSvc:        stack.UserSvc,
		StudentSvc:     stack.StudentSvc,
		PeriodSvc:      stack.PeriodSvc,
		ApplicationSvc: stack.ApplicationSvc,
		EventSvc:       stack.EventSvc,
		RecordSvc:      stack.RecordSvc,
	}))
	t.Cleanup(srv.Close)
	return stack, srv.URL + "/api"
}

func login(t *testing.T, baseURL, username string) *Client {
	c := New(baseURL, nil)
	_, err := c.Login(ctxBg, username, testutil.Password)
	require.NoError(t, err)
	return c
}

func TestWizard(t *testing.T) {
	stack, baseURL := newPortal(t)
	testutil.CreateStudent(t, stack, "1004321", "Jane Tan")
	p := testutil.CreateOpenPeriod(t, stack)
	c := login(t, baseURL, "1004321")

	ongoing, err := c.OngoingPeriods(ctxBg)
	require.NoError(t, err)
	require.Len(t, ongoing, 1)
	assert.Equal(t, p.UID, ongoing[0].UID)

	w := NewWizard(c)
	assert.Equal(t, ErrFirstStep, w.Back())
	assert.Equal(t, ValidationError{"application_period_uid": msgRequired, "applicable_period": msgRequired}, w.Next())
	assert.Equal(t, application.StepPeriod, w.Step())

	// period -> personal -> room profile
	w.SelectPeriod(p.UID, p.ApplicablePeriods[1])
	require.NoError(t, w.Next())
	assert.Equal(t, ValidationError{"personal": msgRequired}, w.Next())
	phone := "+65 8123 4567"
	w.SetPersonal(student.EditableProfile{PhoneNumber: &phone})
	require.NoError(t, w.Next())

	w.SetRoomProfile(student.RoomProfile{RoomType: student.RoomSingle})
	err = w.Next()
	require.IsType(t, ValidationError{}, err)
	assert.Contains(t, err.(ValidationError), "room_profile.block")
	rp := student.DefaultRoomProfile()
	rp.RoomType = student.RoomSingle
	w.SetRoomProfile(rp)
	require.NoError(t, w.Next())
	assert.Equal(t, application.StepLifestyleProfile, w.Step())

	// back twice, values survive
	require.NoError(t, w.Back())
	require.NoError(t, w.Back())
	assert.Equal(t, application.StepPersonal, w.Step())
	assert.Equal(t, phone, *w.Personal.PhoneNumber)
	assert.Equal(t, rp, *w.RoomProfile)
	assert.True(t, w.ApplicablePeriod.Equal(p.ApplicablePeriods[1]))
	require.NoError(t, w.Next())
	require.NoError(t, w.Next())

	lp := student.DefaultLifestyleProfile()
	lp.Diet = "vegetarian"
	w.SetLifestyleProfile(lp)
	require.NoError(t, w.Save(ctxBg))

	// resume from the saved draft
	resumed, err := ResumeWizard(ctxBg, c, p.UID)
	require.NoError(t, err)
	assert.Equal(t, application.StepLifestyleProfile, resumed.Step())
	assert.Equal(t, phone, *resumed.Personal.PhoneNumber)
	assert.Equal(t, rp, *resumed.RoomProfile)
	assert.Equal(t, lp, *resumed.LifestyleProfile)
	assert.True(t, resumed.ApplicablePeriod.Equal(p.ApplicablePeriods[1]))

	_, err = resumed.Submit(ctxBg, "1004321")
	assert.Equal(t, ErrNotLastStep, err)
	require.NoError(t, resumed.Next())
	assert.Equal(t, ErrLastStep, resumed.Next())

	f, err := resumed.Submit(ctxBg, "1004321")
	require.NoError(t, err)
	assert.Equal(t, application.StatusSubmitted, f.Status)
	assert.Equal(t, "vegetarian", f.LifestyleProfile.Diet)

	s, err := c.GetStudent(ctxBg, "1004321")
	require.NoError(t, err)
	assert.Equal(t, phone, s.PhoneNumber)

	forms, err := c.StudentApplications(ctxBg, "1004321")
	require.NoError(t, err)
	assert.Contains(t, forms, f.UID)

	// the draft is gone once submitted
	_, err = c.GetDraft(ctxBg, p.UID)
	require.IsType(t, &APIError{}, err)
	assert.Equal(t, http.StatusNotFound, err.(*APIError).StatusCode)
	fresh, err := ResumeWizard(ctxBg, c, p.UID)
	require.NoError(t, err)
	assert.Equal(t, application.StepPeriod, fresh.Step())

	// a second submission is refused by the server
	_, err = c.SubmitApplication(ctxBg, resumed.Form())
	require.IsType(t, &APIError{}, err)
	assert.Equal(t, http.StatusBadRequest, err.(*APIError).StatusCode)
}

func TestPeriodManagement(t *testing.T) {
	stack, baseURL := newPortal(t)
	testutil.CreateAdmin(t, stack, "boss", true)
	testutil.CreateStudent(t, stack, "1004321", "Jane Tan")
	admin := login(t, baseURL, "boss")
	stu := login(t, baseURL, "1004321")

	now := time.Now().UTC().Truncate(time.Second)
	data := period.PeriodData{
		ApplicationWindowOpen:  now.Add(-time.Hour),
		ApplicationWindowClose: now.AddDate(0, 0, 7),
		ApplicablePeriods:      []period.TimePeriod{testutil.TimePeriod(30, 12)},
	}

	_, err := stu.CreatePeriod(ctxBg, data)
	require.IsType(t, &APIError{}, err)
	assert.Equal(t, http.StatusForbidden, err.(*APIError).StatusCode)

	p, err := admin.CreatePeriod(ctxBg, data)
	require.NoError(t, err)
	assert.Equal(t, "boss", p.CreatedBy)

	got, err := admin.GetPeriod(ctxBg, p.UID)
	require.NoError(t, err)
	assert.Equal(t, p.UID, got.UID)

	all, err := admin.AllPeriods(ctxBg)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	ongoing, err := stu.OngoingPeriods(ctxBg)
	require.NoError(t, err)
	assert.Len(t, ongoing, 1)

	require.NoError(t, admin.DeletePeriod(ctxBg, p.UID))
	_, err = admin.GetPeriod(ctxBg, p.UID)
	require.IsType(t, &APIError{}, err)
	assert.Equal(t, http.StatusNotFound, err.(*APIError).StatusCode)
}

func TestRecordAndHouseGuardianForms(t *testing.T) {
	stack, baseURL := newPortal(t)
	testutil.CreateAdmin(t, stack, "boss", true)
	testutil.CreateStudent(t, stack, "1004321", "Jane Tan")
	testutil.CreateStudent(t, stack, "1004999", "John Lim")
	admin := login(t, baseURL, "boss")

	f := CreateDisciplinaryRecord{StudentID: "1004321", RecordType: "NOISE", Description: "party at 3am", PointsDeduction: 5}
	r, err := f.Submit(ctxBg, admin)
	require.NoError(t, err)
	assert.Equal(t, "1004321", r.StudentID)
	assert.Equal(t, "boss", r.CreatedBy)
	require.NoError(t, admin.DeleteRecord(ctxBg, r.UID))

	hg := new(AddHouseGuardian)
	hg.Add("1004321")
	hg.Add("0000000")
	hg.Add("1004999")
	results, err := hg.Submit(ctxBg, admin)
	require.Error(t, err)
	require.Len(t, results, 3)
	assert.True(t, results[0].OK)
	assert.False(t, results[1].OK)
	assert.True(t, results[2].OK)

	s, err := admin.GetStudent(ctxBg, "1004999")
	require.NoError(t, err)
	assert.True(t, s.IsHouseGuardian)

	bulk, err := admin.SetHouseGuardians(ctxBg, []string{"1004321", "0000000"})
	require.NoError(t, err)
	assert.Equal(t, []student.HouseGuardianResult{
		{StudentID: "1004321", OK: true},
		{StudentID: "0000000", OK: false, Error: student.ErrNotFound.Error()},
	}, bulk)
}
