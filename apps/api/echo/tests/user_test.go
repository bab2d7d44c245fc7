package tests

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	. "github.com/sutdhousing/portal/apps/api/echo"
	"github.com/sutdhousing/portal/core/student"
	"github.com/sutdhousing/portal/core/user"
	emailsvc "github.com/sutdhousing/portal/services/email"
	"github.com/sutdhousing/portal/testutil"
)

func Test_userApi_login(t *testing.T) {
	u := setupUsers(t)
	_, err := stack.StudentSvc.SetHouseGuardian(ctxBg, u.student.Username, true)
	assert.NoError(t, err)
	inactive := testutil.CreateUser(t, stack.UserRepo, "Gone", "gone", "gone@test.sg", []string{user.RoleStudent}, false)

	errAuth := marshalObj(t, httpErr{Error: "Invalid username and/or password"})
	path := "/api/auth/login"

	runHTTPTests(t, []httpTest{
		{
			name: "username required", method: http.MethodPost, path: path,
			body:     marshalObj(t, LoginRequest{Password: "x"}),
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, map[string]string{"username": "this field is required"}),
		},
		{
			name: "unknown user", method: http.MethodPost, path: path,
			body:     marshalObj(t, LoginRequest{Username: "nobody", Password: testutil.Password}),
			wantCode: http.StatusUnauthorized, wantData: errAuth,
		},
		{
			name: "wrong password", method: http.MethodPost, path: path,
			body:     marshalObj(t, LoginRequest{Username: u.student.Username, Password: "wrong"}),
			wantCode: http.StatusUnauthorized, wantData: errAuth,
		},
		{
			name: "deactivated", method: http.MethodPost, path: path,
			body:     marshalObj(t, LoginRequest{Username: inactive.Username, Password: testutil.Password}),
			wantCode: http.StatusForbidden, wantData: marshalObj(t, httpErr{Error: "account deactivated"}),
		},
	})

	tests := []struct {
		name string
		usr  user.User
		want AccessResponse
	}{
		{"house guardian", u.student, AccessResponse{IsStudent: true, IsStudentHG: true}},
		{"student", u.other, AccessResponse{IsStudent: true}},
		{"admin", u.admin, AccessResponse{IsAdmin: true, IsAdminWrite: true}},
		{"read-only admin", u.adminRO, AccessResponse{IsAdmin: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// login with the email works too
			rec := do(t, http.MethodPost, path, "", LoginRequest{Username: tt.usr.Email, Password: testutil.Password})
			if !assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String()) {
				return
			}
			var resp LoginResponse
			unmarshal(t, rec, &resp)
			assert.NotEmpty(t, resp.Token)
			assert.Equal(t, tt.want, resp.AccessResponse)

			// the token grants access
			rec = do(t, http.MethodGet, "/api/auth/access", resp.Token, nil)
			assert.Equal(t, http.StatusOK, rec.Code)
			var access AccessResponse
			unmarshal(t, rec, &access)
			assert.Equal(t, tt.want, access)
		})
	}
}

func Test_userApi_access(t *testing.T) {
	u := setupUsers(t)
	tok := u.studentTok

	runHTTPTests(t, []httpTest{
		{name: "auth required", path: "/api/auth/access", wantCode: http.StatusUnauthorized, wantData: marshalObj(t, errMissingToken)},
		{
			name: "not house guardian yet", path: "/api/auth/access", token: tok, wantCode: http.StatusOK,
			wantData: marshalObj(t, AccessResponse{IsStudent: true}),
		},
	})

	// the house guardian flag is read fresh, the token stays the same
	_, err := stack.StudentSvc.SetHouseGuardian(ctxBg, u.student.Username, true)
	assert.NoError(t, err)
	runHTTPTests(t, []httpTest{
		{
			name: "house guardian", path: "/api/auth/access", token: tok, wantCode: http.StatusOK,
			wantData: marshalObj(t, AccessResponse{IsStudent: true, IsStudentHG: true}),
		},
	})
}

func Test_userApi_createStudent(t *testing.T) {
	u := setupUsers(t)
	path := "/api/auth/register/student"
	ns := student.NewStudent{StudentID: "1005555", Password: "pwd", FullName: "Ali Bin Abu", EmailSUTD: "ali@mymail.sutd.edu.sg"}

	runHTTPTests(t, []httpTest{
		{name: "auth required", method: http.MethodPost, path: path, body: marshalObj(t, ns), wantCode: http.StatusUnauthorized},
		{
			name: "students forbidden", method: http.MethodPost, path: path, token: u.studentTok,
			body: marshalObj(t, ns), wantCode: http.StatusForbidden, wantData: marshalObj(t, errForbidden),
		},
		{
			name: "read-only admin forbidden", method: http.MethodPost, path: path, token: u.adminROTok,
			body: marshalObj(t, ns), wantCode: http.StatusForbidden, wantData: marshalObj(t, errForbidden),
		},
		{
			name: "full name required", method: http.MethodPost, path: path, token: u.adminTok,
			body:     marshalObj(t, student.NewStudent{StudentID: "1005556", Password: "pwd"}),
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, map[string]string{"full_name": "this field is required"}),
		},
		{
			name: "student already exists", method: http.MethodPost, path: path, token: u.adminTok,
			body:     marshalObj(t, student.NewStudent{StudentID: u.student.Username, Password: "pwd", FullName: "Dup"}),
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, map[string]string{"student_id": student.ErrAlreadyExists.Error()}),
		},
	})

	rec := do(t, http.MethodPost, path, u.adminTok, ns)
	if assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String()) {
		var s student.Student
		unmarshal(t, rec, &s)
		assert.Equal(t, ns.StudentID, s.StudentID)
		assert.Equal(t, student.DefaultRoomProfile(), s.PreferenceRoom)

		// the new student can log in with the student ID
		rec = do(t, http.MethodPost, "/api/auth/login", "", LoginRequest{Username: ns.StudentID, Password: ns.Password})
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func Test_userApi_createAdmin(t *testing.T) {
	u := setupUsers(t)
	path := "/api/auth/register/admin"
	na := user.NewAdmin{
		NewUser:  user.NewUser{Name: "Office", Username: "office", Email: "office@test.sg", Password: "pwd", PasswordConfirm: "pwd"},
		ReadOnly: true,
	}

	runHTTPTests(t, []httpTest{
		{
			name: "read-only admin forbidden", method: http.MethodPost, path: path, token: u.adminROTok,
			body: marshalObj(t, na), wantCode: http.StatusForbidden,
		},
		{
			name: "username is taken", method: http.MethodPost, path: path, token: u.adminTok,
			body: marshalObj(t, user.NewAdmin{
				NewUser: user.NewUser{Username: u.admin.Username, Password: "pwd", PasswordConfirm: "pwd"},
			}),
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, map[string]string{"username": user.ErrUsernameExists.Error()}),
		},
	})

	rec := do(t, http.MethodPost, path, u.adminTok, na)
	if assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String()) {
		var usr user.User
		unmarshal(t, rec, &usr)
		assert.Equal(t, []string{user.RoleAdmin}, usr.Roles)
	}
}

func Test_userApi_passwordReset(t *testing.T) {
	u := setupUsers(t)

	// unknown emails get the same answer
	for _, email := range []string{"nobody@test.sg", u.student.Email} {
		rec := do(t, http.MethodPost, "/api/auth/password-reset", "", PasswordResetRequest{Email: email})
		assert.Equal(t, http.StatusOK, rec.Code)
	}
	if !assert.Len(t, emailsvc.SentMessages, 1) {
		return
	}
	msg := emailsvc.SentMessages[0]
	assert.Equal(t, u.student.Email, msg.To[0].Address)
	data := msg.TemplateData.(map[string]string)

	reset := user.ResetUserPassword{UID: data["UID"], Token: "bad", Password: "n3w", PasswordConfirm: "n3w"}
	rec := do(t, http.MethodPost, "/api/auth/password-reset-confirm", "", reset)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	reset.Token = data["Token"]
	rec = do(t, http.MethodPost, "/api/auth/password-reset-confirm", "", reset)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, http.MethodPost, "/api/auth/login", "", LoginRequest{Username: u.student.Username, Password: "n3w"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func Test_userApi_refreshToken(t *testing.T) {
	u := setupUsers(t)

	rec := do(t, http.MethodPost, "/api/auth/token-refresh", u.studentTok, nil)
	if assert.Equal(t, http.StatusOK, rec.Code) {
		var resp TokenResponse
		unmarshal(t, rec, &resp)
		assert.NotEmpty(t, resp.Token)
	}
}
