package student_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sutdhousing/portal/core"
	"github.com/sutdhousing/portal/core/student"
	"github.com/sutdhousing/portal/core/user"
	"github.com/sutdhousing/portal/testutil"
)

var ctxBg = context.Background()

func strPtr(s string) *string { return &s }

func TestRoomProfile_Validate(t *testing.T) {
	validate, _ := testutil.NewValidator()

	tests := []struct {
		name    string
		change  func(rp *student.RoomProfile)
		wantErr bool
	}{
		{name: "default", change: func(rp *student.RoomProfile) {}},
		{name: "choices", change: func(rp *student.RoomProfile) {
			rp.RoomType = student.RoomSingleEnsuite
			rp.Block = "57"
			rp.LevelRange = student.LevelUpper
			rp.WindowFacing = student.FacingAirport
		}},
		{name: "unknown block", change: func(rp *student.RoomProfile) { rp.Block = "61" }, wantErr: true},
		{name: "empty room type", change: func(rp *student.RoomProfile) { rp.RoomType = "" }, wantErr: true},
		{name: "short weightage", change: func(rp *student.RoomProfile) { rp.WeightageOrder = []int{1, 2, 3} }, wantErr: true},
		{name: "repeated weightage", change: func(rp *student.RoomProfile) { rp.WeightageOrder = []int{1, 1, 3, 4, 5, 6, 7, 8, 9} }, wantErr: true},
		{name: "shuffled weightage", change: func(rp *student.RoomProfile) { rp.WeightageOrder = []int{9, 8, 7, 6, 5, 4, 3, 2, 1} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rp := student.DefaultRoomProfile()
			tt.change(&rp)
			err := rp.Validate(validate)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLifestyleProfile_Validate(t *testing.T) {
	validate, _ := testutil.NewValidator()

	tests := []struct {
		name    string
		change  func(lp *student.LifestyleProfile)
		wantErr bool
	}{
		{name: "default", change: func(lp *student.LifestyleProfile) {}},
		{name: "midnight", change: func(lp *student.LifestyleProfile) { lp.SleepTime = 0 }},
		{name: "sleep at 20", change: func(lp *student.LifestyleProfile) { lp.SleepTime = 20 }, wantErr: true},
		{name: "wake up at 4", change: func(lp *student.LifestyleProfile) { lp.WakeupTime = 4 }, wantErr: true},
		{name: "social 11", change: func(lp *student.LifestyleProfile) { lp.LikeSocial = 11 }, wantErr: true},
		{name: "quiet 0", change: func(lp *student.LifestyleProfile) { lp.LikeQuiet = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lp := student.DefaultLifestyleProfile()
			tt.change(&lp)
			err := lp.Validate(validate)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewStudent_Validate(t *testing.T) {
	s := testutil.NewStack()
	testutil.CreateStudent(t, s, "1004321", "Jane Tan")

	ns := student.NewStudent{StudentID: " 1004321 ", Password: "Zq8!vTr2#pLw", FullName: "Jane Again", EmailSUTD: "jane.again@mymail.sutd.edu.sg"}
	err := ns.Validate(s.Validate, s.UserSvc)
	verr, ok := errors.Cause(err).(*core.ValidationError)
	require.True(t, ok, "got %T: %v", err, err)
	assert.Equal(t, student.ErrAlreadyExists, verr.Err)
	assert.Equal(t, "student_id", verr.Fields[0].Field)

	ns = student.NewStudent{StudentID: "1004999", Password: "Zq8!vTr2#pLw", FullName: "John Lim", EmailSUTD: "1004999@mymail.sutd.edu.sg"}
	require.NoError(t, ns.Validate(s.Validate, s.UserSvc))

	ns.StudentID = "not valid!"
	assert.Error(t, ns.Validate(s.Validate, s.UserSvc))
}

func TestService_Register(t *testing.T) {
	s := testutil.NewStack()
	stu, usr := testutil.CreateStudent(t, s, "1004321", "Jane Tan")

	assert.Equal(t, "1004321", usr.Username)
	assert.Equal(t, []string{user.RoleStudent}, usr.Roles)
	assert.True(t, usr.IsActive)
	assert.Equal(t, "Jane Tan", usr.Name)

	assert.Equal(t, student.DefaultRoomProfile(), stu.PreferenceRoom)
	assert.Equal(t, student.DefaultLifestyleProfile(), stu.PreferenceLifestyle)
	assert.False(t, stu.IsHouseGuardian)

	students, err := s.StudentSvc.Query(ctxBg, &student.QueryFilter{}, 30)
	require.NoError(t, err)
	assert.Len(t, students, 1)
}

func TestService_updates(t *testing.T) {
	s := testutil.NewStack()
	testutil.CreateStudent(t, s, "1004321", "Jane Tan")

	stu, err := s.StudentSvc.UpdateEditable(ctxBg, "1004321", student.EditableProfile{PhoneNumber: strPtr("+65 8123 4567"), LocalAddrStreet: strPtr("8 Somapah Rd")})
	require.NoError(t, err)
	stu, err = s.StudentSvc.UpdateEditable(ctxBg, "1004321", student.EditableProfile{LocalAddrUnit: strPtr("#01-02")})
	require.NoError(t, err)
	assert.Equal(t, "+65 8123 4567", stu.PhoneNumber, "omitted fields are preserved")
	assert.Equal(t, "8 Somapah Rd", stu.LocalAddrStreet)
	assert.Equal(t, "#01-02", stu.LocalAddrUnit)

	year := 2021
	stu, err = s.StudentSvc.UpdateIdentity(ctxBg, "1004321", student.IdentityProfile{Nationality: strPtr("Singaporean"), YearOfEnrollment: &year})
	require.NoError(t, err)
	assert.Equal(t, "Jane Tan", stu.FullName)
	assert.Equal(t, "Singaporean", stu.Nationality)
	assert.Equal(t, 2021, stu.YearOfEnrollment)

	rp := student.DefaultRoomProfile()
	rp.Block = "55"
	stu, err = s.StudentSvc.UpdateRoomProfile(ctxBg, "1004321", rp)
	require.NoError(t, err)
	assert.Equal(t, "55", stu.PreferenceRoom.Block)

	lp := student.DefaultLifestyleProfile()
	lp.Smoking = true
	stu, err = s.StudentSvc.UpdateLifestyleProfile(ctxBg, "1004321", lp)
	require.NoError(t, err)
	assert.True(t, stu.PreferenceLifestyle.Smoking)
	assert.Equal(t, "55", stu.PreferenceRoom.Block)

	_, err = s.StudentSvc.UpdateEditable(ctxBg, "0000000", student.EditableProfile{})
	assert.Equal(t, student.ErrNotFound, errors.Cause(err))
}

func TestService_houseGuardians(t *testing.T) {
	s := testutil.NewStack()
	testutil.CreateStudent(t, s, "1004321", "Jane Tan")
	testutil.CreateStudent(t, s, "1004999", "John Lim")

	isHG, err := s.StudentSvc.IsHouseGuardian(ctxBg, "0000000")
	require.NoError(t, err)
	assert.False(t, isHG)

	results, err := s.StudentSvc.SetHouseGuardians(ctxBg, []string{"1004321", " 0000000 ", "", "1004999", "1004321"})
	require.NoError(t, err)
	assert.Equal(t, []student.HouseGuardianResult{
		{StudentID: "1004321", OK: true},
		{StudentID: "0000000", OK: false, Error: student.ErrNotFound.Error()},
		{StudentID: "1004999", OK: true},
	}, results)

	for _, id := range []string{"1004321", "1004999"} {
		isHG, err = s.StudentSvc.IsHouseGuardian(ctxBg, id)
		require.NoError(t, err)
		assert.True(t, isHG, id)
	}

	stu, err := s.StudentSvc.SetHouseGuardian(ctxBg, "1004321", false)
	require.NoError(t, err)
	assert.False(t, stu.IsHouseGuardian)
}
