package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sutdhousing/portal/core/period"
	"github.com/sutdhousing/portal/core/student"
)

var ctxBg = context.Background()

type recordedReq struct {
	Method string
	Path   string
	Auth   string
	Body   []byte
}

type recorder struct {
	mu   sync.Mutex
	reqs []recordedReq
}

func (r *recorder) requests() []recordedReq {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]recordedReq(nil), r.reqs...)
}

// newFakeServer starts a server recording every request and answering with handler.
func newFakeServer(t *testing.T, handler http.HandlerFunc) (*Client, *recorder) {
	rec := new(recorder)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		rec.mu.Lock()
		rec.reqs = append(rec.reqs, recordedReq{Method: r.Method, Path: r.URL.Path, Auth: r.Header.Get("Authorization"), Body: body})
		rec.mu.Unlock()
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	c := New(srv.URL+"/api", nil)
	c.SetToken("t0k3n")
	return c, rec
}

func replyJSON(code int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_, _ = io.WriteString(w, body)
	}
}

func bodyKeys(t *testing.T, body []byte) ([]string, map[string]interface{}) {
	t.Helper()
	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &m))
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, m
}

func TestClient_errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    *APIError
	}{
		{
			name:    "message",
			handler: replyJSON(http.StatusForbidden, `{"error":"permission denied"}`),
			want:    &APIError{StatusCode: http.StatusForbidden, Message: "permission denied"},
		},
		{
			name:    "fields",
			handler: replyJSON(http.StatusBadRequest, `{"points_deduction":"this field is required"}`),
			want: &APIError{
				StatusCode: http.StatusBadRequest,
				Message:    "Bad Request",
				Fields:     map[string]string{"points_deduction": "this field is required"},
			},
		},
		{
			name:    "no body",
			handler: func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusInternalServerError) },
			want:    &APIError{StatusCode: http.StatusInternalServerError, Message: "Internal Server Error"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newFakeServer(t, tt.handler)
			_, err := c.GetRecord(ctxBg, "r1")
			apiErr, ok := err.(*APIError)
			require.True(t, ok, "got %T", err)
			assert.Equal(t, tt.want, apiErr)
		})
	}
}

func TestClient_Login(t *testing.T) {
	c, rec := newFakeServer(t, replyJSON(http.StatusOK, `{"token":"fresh","is_student":true,"is_student_hg":false,"is_admin":false,"is_admin_write":false}`))

	_, err := c.Login(ctxBg, " ", "")
	assert.Equal(t, ValidationError{"username": msgRequired, "password": msgRequired}, err)
	assert.Empty(t, rec.requests())

	res, err := c.Login(ctxBg, "1004321", "s3cret")
	require.NoError(t, err)
	assert.True(t, res.IsStudent)
	assert.Equal(t, "fresh", res.Token)

	_, err = c.Access(ctxBg)
	require.NoError(t, err)
	reqs := rec.requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, "/api/auth/login", reqs[0].Path)
	assert.Equal(t, "Bearer fresh", reqs[1].Auth)
}

func TestCreateDisciplinaryRecord(t *testing.T) {
	valid := CreateDisciplinaryRecord{StudentID: "1004321", RecordType: "NOISE", Description: "party at 3am", PointsDeduction: 5}

	tests := []struct {
		name    string
		change  func(f *CreateDisciplinaryRecord)
		wantErr ValidationError
	}{
		{name: "blank student", change: func(f *CreateDisciplinaryRecord) { f.StudentID = "  " }, wantErr: ValidationError{"student_id": msgRequired}},
		{name: "no type", change: func(f *CreateDisciplinaryRecord) { f.RecordType = "" }, wantErr: ValidationError{"record_type": msgRequired}},
		{name: "no description", change: func(f *CreateDisciplinaryRecord) { f.Description = "" }, wantErr: ValidationError{"description": msgRequired}},
		{name: "zero points", change: func(f *CreateDisciplinaryRecord) { f.PointsDeduction = 0 }, wantErr: ValidationError{"points_deduction": msgRequired}},
		{
			name:   "all empty",
			change: func(f *CreateDisciplinaryRecord) { *f = CreateDisciplinaryRecord{} },
			wantErr: ValidationError{
				"student_id":       msgRequired,
				"record_type":      msgRequired,
				"description":      msgRequired,
				"points_deduction": msgRequired,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, rec := newFakeServer(t, replyJSON(http.StatusCreated, `{}`))
			f := valid
			tt.change(&f)
			_, err := f.Submit(ctxBg, c)
			assert.Equal(t, tt.wantErr, err)
			assert.Empty(t, rec.requests(), "no request must be issued")
		})
	}

	t.Run("submit", func(t *testing.T) {
		c, rec := newFakeServer(t, replyJSON(http.StatusCreated, `{"uid":"r1","student_id":"1004321"}`))
		f := valid
		r, err := f.Submit(ctxBg, c)
		require.NoError(t, err)
		assert.Equal(t, "r1", r.UID)

		reqs := rec.requests()
		require.Len(t, reqs, 1)
		assert.Equal(t, http.MethodPost, reqs[0].Method)
		assert.Equal(t, "/api/records", reqs[0].Path)
		assert.Equal(t, "Bearer t0k3n", reqs[0].Auth)

		keys, body := bodyKeys(t, reqs[0].Body)
		assert.Equal(t, []string{"description", "points_deduction", "record_type", "student_id"}, keys)
		assert.IsType(t, float64(0), body["points_deduction"])
		assert.IsType(t, "", body["record_type"])
	})
}

func TestRoomProfileEdit(t *testing.T) {
	t.Run("required", func(t *testing.T) {
		c, rec := newFakeServer(t, replyJSON(http.StatusOK, `{}`))
		f := NewRoomProfileEdit("1004321", student.RoomProfile{RoomType: student.RoomSingle})
		_, err := f.Submit(ctxBg, c)
		verr, ok := err.(ValidationError)
		require.True(t, ok)
		assert.Len(t, verr, 6)
		assert.NotContains(t, verr, "room_type")
		assert.Empty(t, rec.requests())
	})

	t.Run("submit", func(t *testing.T) {
		c, rec := newFakeServer(t, replyJSON(http.StatusOK, `{"student_id":"1004321"}`))
		rp := student.DefaultRoomProfile()
		yes := true
		rp.NearToLift = &yes
		f := NewRoomProfileEdit("1004321", rp)
		_, err := f.Submit(ctxBg, c)
		require.NoError(t, err)

		reqs := rec.requests()
		require.Len(t, reqs, 1)
		assert.Equal(t, http.MethodPut, reqs[0].Method)
		assert.Equal(t, "/api/students/1004321/update_room_profile", reqs[0].Path)

		keys, body := bodyKeys(t, reqs[0].Body)
		assert.Equal(t, []string{
			"block", "block_2nd", "level_has_gsr", "level_has_mr", "level_has_pantry", "level_has_rr",
			"level_range", "near_to_lift", "near_to_washroom", "room_type", "room_type_2nd",
			"weightage_order", "window_facing",
		}, keys)
		assert.Equal(t, true, body["near_to_lift"])
		assert.Nil(t, body["near_to_washroom"], "no preference is null")
		assert.Equal(t, student.Any, body["block"])
		assert.Len(t, body["weightage_order"], 9)
	})
}

func TestLifestyleData(t *testing.T) {
	c, rec := newFakeServer(t, replyJSON(http.StatusOK, `{"student_id":"1004321"}`))

	var notified []student.LifestyleProfile
	f := NewLifestyleData("1004321", student.LifestyleProfile{})
	f.OnChange = func(lp student.LifestyleProfile) { notified = append(notified, lp) }

	_, err := f.Submit(ctxBg, c)
	assert.Equal(t, ValidationError{"wakeup_time": msgRequired}, err)
	assert.Empty(t, rec.requests())

	f.Update(func(lp *student.LifestyleProfile) { lp.WakeupTime = 8 })
	f.Update(func(lp *student.LifestyleProfile) { lp.Diet = "halal"; lp.LikeQuiet = 10 })
	require.Len(t, notified, 2)
	assert.Equal(t, 8, notified[1].WakeupTime)
	assert.Equal(t, "halal", notified[1].Diet)

	_, err = f.Submit(ctxBg, c)
	require.NoError(t, err)
	reqs := rec.requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "/api/students/1004321/update_lifestyle_profile", reqs[0].Path)

	keys, body := bodyKeys(t, reqs[0].Body)
	assert.Equal(t, []string{"diet", "like_clean", "like_quiet", "like_social", "sleep_time", "smoking", "use_aircon", "wakeup_time"}, keys)
	assert.Equal(t, float64(10), body["like_quiet"])
	assert.Equal(t, false, body["smoking"])
}

func TestAddHouseGuardian(t *testing.T) {
	f := new(AddHouseGuardian)
	assert.Equal(t, ValidationError{"student_ids": msgRequired}, f.Validate())

	f.Add("1004321")
	i := f.Add("")
	f.Add("0000000")
	f.Add("1004999")
	f.Set(i, "   ")
	f.Remove(3)
	f.Remove(42)
	f.Add(" 1004999 ")
	assert.Equal(t, []string{"1004321", "0000000", "1004999"}, f.Entries())

	c, rec := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "0000000") {
			replyJSON(http.StatusNotFound, `{"error":"not found"}`)(w, r)
			return
		}
		replyJSON(http.StatusOK, `{"is_house_guardian":true}`)(w, r)
	})
	results, err := f.Submit(ctxBg, c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
	assert.Equal(t, []student.HouseGuardianResult{
		{StudentID: "1004321", OK: true},
		{StudentID: "0000000", OK: false, Error: "api: 404 not found"},
		{StudentID: "1004999", OK: true},
	}, results)

	reqs := rec.requests()
	require.Len(t, reqs, 3, "one request per entry")
	for _, req := range reqs {
		assert.Equal(t, http.MethodPut, req.Method)
		assert.True(t, strings.HasSuffix(req.Path, "/set_hg"))
	}
}

func TestClient_periods(t *testing.T) {
	t.Run("create requires fields", func(t *testing.T) {
		c, rec := newFakeServer(t, replyJSON(http.StatusCreated, `{}`))
		_, err := c.CreatePeriod(ctxBg, period.PeriodData{ApplicationWindowOpen: time.Now()})
		assert.Equal(t, ValidationError{"application_window_close": msgRequired, "applicable_periods": msgRequired}, err)
		assert.Empty(t, rec.requests())
	})

	t.Run("create key set", func(t *testing.T) {
		c, rec := newFakeServer(t, replyJSON(http.StatusCreated, `{"uid":"p1"}`))
		now := time.Now()
		p, err := c.CreatePeriod(ctxBg, period.PeriodData{
			ApplicationWindowOpen:  now,
			ApplicationWindowClose: now.Add(time.Hour),
			ApplicablePeriods:      []period.TimePeriod{{StartDate: now, EndDate: now.Add(24 * time.Hour)}},
		})
		require.NoError(t, err)
		assert.Equal(t, "p1", p.UID)

		reqs := rec.requests()
		require.Len(t, reqs, 1)
		keys, _ := bodyKeys(t, reqs[0].Body)
		assert.Equal(t, []string{"applicable_periods", "applicable_rooms", "applicable_students", "application_window_close", "application_window_open"}, keys)
	})

	t.Run("delete issues exactly one DELETE", func(t *testing.T) {
		c, rec := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
		require.NoError(t, c.DeletePeriod(ctxBg, "p1"))

		reqs := rec.requests()
		require.Len(t, reqs, 1)
		assert.Equal(t, http.MethodDelete, reqs[0].Method)
		assert.Equal(t, "/api/application_periods/p1", reqs[0].Path)
	})

	t.Run("delete failure", func(t *testing.T) {
		c, rec := newFakeServer(t, replyJSON(http.StatusBadRequest, `{"error":"application period has applications"}`))
		err := c.DeletePeriod(ctxBg, "p1")
		require.Error(t, err)
		assert.Equal(t, "application period has applications", err.(*APIError).Message)
		assert.Len(t, rec.requests(), 1)
	})

	t.Run("paths", func(t *testing.T) {
		c, rec := newFakeServer(t, replyJSON(http.StatusOK, `[]`))
		_, err := c.AllPeriods(ctxBg)
		require.NoError(t, err)
		_, err = c.OngoingPeriods(ctxBg)
		require.NoError(t, err)

		reqs := rec.requests()
		require.Len(t, reqs, 2)
		assert.Equal(t, "/api/application_periods/all", reqs[0].Path)
		assert.Equal(t, "/api/application_periods", reqs[1].Path)
	})
}
