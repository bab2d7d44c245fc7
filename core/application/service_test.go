package application_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sutdhousing/portal/core"
	"github.com/sutdhousing/portal/core/application"
	"github.com/sutdhousing/portal/core/period"
	"github.com/sutdhousing/portal/core/student"
	emailsvc "github.com/sutdhousing/portal/services/email"
	"github.com/sutdhousing/portal/testutil"
)

var ctxBg = context.Background()

func validationErr(t *testing.T, err error) *core.ValidationError {
	t.Helper()
	verr, ok := errors.Cause(err).(*core.ValidationError)
	require.True(t, ok, "want *core.ValidationError, got %T: %v", err, err)
	return verr
}

func TestService_Submit(t *testing.T) {
	s := testutil.NewStack()
	testutil.CreateStudent(t, s, "1004321", "Jane Tan")
	testutil.CreateStudent(t, s, "1004999", "John Lim")

	open := testutil.CreateOpenPeriod(t, s)
	restricted := testutil.CreateOpenPeriod(t, s, "1004999")
	now := time.Now()
	closed := testutil.CreatePeriod(t, s, now.AddDate(0, 0, -14), now.AddDate(0, 0, -7))
	future := testutil.CreatePeriod(t, s, now.AddDate(0, 0, 7), now.AddDate(0, 0, 14))

	unknownPeriod := testutil.NewForm(open)
	unknownPeriod.ApplicablePeriod = testutil.TimePeriod(1, 1)
	missing := testutil.NewForm(open)
	missing.ApplicationPeriodUID = "nope"

	tests := []struct {
		name      string
		studentID string
		form      application.NewForm
		wantErr   error
		wantField string
	}{
		{name: "unknown period uid", studentID: "1004321", form: missing, wantErr: application.ErrPeriodDoesNotExist, wantField: "application_period_uid"},
		{name: "window closed", studentID: "1004321", form: testutil.NewForm(closed), wantErr: application.ErrWindowClosed},
		{name: "window not yet open", studentID: "1004321", form: testutil.NewForm(future), wantErr: application.ErrWindowClosed},
		{name: "not applicable", studentID: "1004321", form: testutil.NewForm(restricted), wantErr: application.ErrNotApplicable},
		{name: "unknown applicable period", studentID: "1004321", form: unknownPeriod, wantErr: application.ErrUnknownPeriod, wantField: "applicable_period"},
		{name: "ok", studentID: "1004321", form: testutil.NewForm(open)},
		{name: "already applied", studentID: "1004321", form: testutil.NewForm(open), wantErr: application.ErrAlreadyApplied},
		{name: "applicable student", studentID: "1004999", form: testutil.NewForm(restricted)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := s.ApplicationSvc.Submit(ctxBg, tt.studentID, tt.form)
			if tt.wantErr != nil {
				verr := validationErr(t, err)
				assert.Equal(t, tt.wantErr, verr.Err)
				if tt.wantField != "" {
					require.Len(t, verr.Fields, 1)
					assert.Equal(t, tt.wantField, verr.Fields[0].Field)
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, application.StatusSubmitted, f.Status)
			assert.Equal(t, tt.studentID, f.StudentID)
			assert.NotEmpty(t, f.UID)
		})
	}

	p, err := s.PeriodSvc.Get(ctxBg, open.UID)
	require.NoError(t, err)
	assert.Len(t, p.ApplicationForms, 1)

	require.Len(t, emailsvc.SentMessages, 2)
	assert.Equal(t, "application_submitted", emailsvc.SentMessages[0].TemplateName)
	assert.Equal(t, "1004321@mymail.sutd.edu.sg", emailsvc.SentMessages[0].To[0].Address)
}

// slowFormRepo widens the gap between the duplicate check and the insert.
type slowFormRepo struct {
	application.Repository
}

func (r slowFormRepo) QueryForms(ctx context.Context, filter *application.QueryFilter) ([]application.Form, error) {
	time.Sleep(5 * time.Millisecond)
	return r.Repository.QueryForms(ctx, filter)
}

// readCommitted runs fn without isolating it from concurrent transactions.
type readCommitted struct{}

func (readCommitted) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func TestService_Submit_concurrent(t *testing.T) {
	tests := []struct {
		name   string
		newSvc func(s *testutil.Stack) application.Service
	}{
		{
			name:   "serialized transactions",
			newSvc: func(s *testutil.Stack) application.Service { return s.ApplicationSvc },
		},
		{
			name: "unisolated transactions",
			newSvc: func(s *testutil.Stack) application.Service {
				return application.NewService(readCommitted{}, slowFormRepo{s.FormRepo}, s.Drafts, s.PeriodSvc, s.StudentSvc, s.MailSvc)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := testutil.NewStack()
			testutil.CreateStudent(t, s, "1004321", "Jane Tan")
			p := testutil.CreateOpenPeriod(t, s)
			svc := tt.newSvc(s)

			const n = 20
			errs := make([]error, n)
			var wg sync.WaitGroup
			for i := 0; i < n; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					_, errs[i] = svc.Submit(ctxBg, "1004321", testutil.NewForm(p))
				}(i)
			}
			wg.Wait()

			var ok int
			for _, err := range errs {
				if err == nil {
					ok++
					continue
				}
				assert.Equal(t, application.ErrAlreadyApplied, validationErr(t, err).Err)
			}
			assert.Equal(t, 1, ok)

			forms, err := s.FormRepo.QueryForms(ctxBg, &application.QueryFilter{PeriodUID: p.UID, StudentID: "1004321"})
			require.NoError(t, err)
			assert.Len(t, forms, 1)
		})
	}
}

func TestService_Withdraw(t *testing.T) {
	s := testutil.NewStack()
	testutil.CreateStudent(t, s, "1004321", "Jane Tan")
	p := testutil.CreateOpenPeriod(t, s)

	f, err := s.ApplicationSvc.Submit(ctxBg, "1004321", testutil.NewForm(p))
	require.NoError(t, err)

	f, err = s.ApplicationSvc.Withdraw(ctxBg, f.UID)
	require.NoError(t, err)
	assert.Equal(t, application.StatusWithdrawn, f.Status)

	_, err = s.ApplicationSvc.Withdraw(ctxBg, f.UID)
	assert.Equal(t, application.ErrCannotWithdraw, validationErr(t, err).Err)

	// a withdrawn form does not block a new submission
	f, err = s.ApplicationSvc.Submit(ctxBg, "1004321", testutil.NewForm(p))
	require.NoError(t, err)

	// close the window
	p.ApplicationWindowClose = time.Now().Add(-time.Minute).UTC()
	_, err = s.PeriodRepo.UpdatePeriod(ctxBg, p)
	require.NoError(t, err)
	_, err = s.ApplicationSvc.Withdraw(ctxBg, f.UID)
	assert.Equal(t, application.ErrWindowClosed, validationErr(t, err).Err)

	_, err = s.ApplicationSvc.Withdraw(ctxBg, "nope")
	assert.Equal(t, application.ErrNotFound, errors.Cause(err))
}

func TestService_SetStatus(t *testing.T) {
	s := testutil.NewStack()
	testutil.CreateStudent(t, s, "1004321", "Jane Tan")
	p := testutil.CreateOpenPeriod(t, s)
	f, err := s.ApplicationSvc.Submit(ctxBg, "1004321", testutil.NewForm(p))
	require.NoError(t, err)

	f, err = s.ApplicationSvc.SetStatus(ctxBg, f.UID, application.StatusUpdate{Status: application.StatusOffered, Remarks: "block 57"})
	require.NoError(t, err)
	assert.Equal(t, application.StatusOffered, f.Status)
	assert.Equal(t, "block 57", f.Remarks)

	// an offered form still counts as the active application
	_, err = s.ApplicationSvc.Submit(ctxBg, "1004321", testutil.NewForm(p))
	assert.Equal(t, application.ErrAlreadyApplied, validationErr(t, err).Err)

	forms, err := s.ApplicationSvc.Query(ctxBg, &application.QueryFilter{Status: application.StatusOffered})
	require.NoError(t, err)
	require.Len(t, forms, 1)

	byUID, err := s.ApplicationSvc.QueryByStudent(ctxBg, "1004321")
	require.NoError(t, err)
	assert.Contains(t, byUID, f.UID)
}

func TestService_drafts(t *testing.T) {
	s := testutil.NewStack()
	testutil.CreateStudent(t, s, "1004321", "Jane Tan")
	p := testutil.CreateOpenPeriod(t, s)

	_, err := s.ApplicationSvc.GetDraft(ctxBg, "1004321", p.UID)
	assert.Equal(t, application.ErrDraftNotFound, errors.Cause(err))

	_, err = s.ApplicationSvc.SaveDraft(ctxBg, "1004321", "nope", application.DraftUpdate{})
	assert.Equal(t, period.ErrNotFound, errors.Cause(err))

	tp := p.ApplicablePeriods[0]
	d, err := s.ApplicationSvc.SaveDraft(ctxBg, "1004321", p.UID, application.DraftUpdate{Step: application.StepPersonal, ApplicablePeriod: &tp})
	require.NoError(t, err)
	assert.Equal(t, application.StepPersonal, d.CurrentStep)

	rp := student.DefaultRoomProfile()
	rp.Block = "57"
	d, err = s.ApplicationSvc.SaveDraft(ctxBg, "1004321", p.UID, application.DraftUpdate{Step: application.StepLifestyleProfile, RoomProfile: &rp})
	require.NoError(t, err)

	// going back keeps the sections saved so far
	d, err = s.ApplicationSvc.SaveDraft(ctxBg, "1004321", p.UID, application.DraftUpdate{Step: application.StepPeriod})
	require.NoError(t, err)
	assert.Equal(t, application.StepPeriod, d.CurrentStep)
	require.NotNil(t, d.ApplicablePeriod)
	assert.True(t, d.ApplicablePeriod.Equal(tp))
	require.NotNil(t, d.RoomProfile)
	assert.Equal(t, "57", d.RoomProfile.Block)

	got, err := s.ApplicationSvc.GetDraft(ctxBg, "1004321", p.UID)
	require.NoError(t, err)
	assert.Equal(t, "57", got.RoomProfile.Block)

	// submitting discards the draft
	_, err = s.ApplicationSvc.Submit(ctxBg, "1004321", testutil.NewForm(p))
	require.NoError(t, err)
	_, err = s.ApplicationSvc.GetDraft(ctxBg, "1004321", p.UID)
	assert.Equal(t, application.ErrDraftNotFound, errors.Cause(err))

	assert.NoError(t, s.ApplicationSvc.DeleteDraft(ctxBg, "1004321", p.UID), "deleting a missing draft is a no-op")
}
