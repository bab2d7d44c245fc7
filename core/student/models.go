package student

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/sutdhousing/portal/core"
	"github.com/sutdhousing/portal/core/user"
)

// "No preference" sentinel for the enumerated room preferences.
const Any = "ANY"

// Room types
const (
	RoomSingle        = "SINGLE"
	RoomDouble        = "DOUBLE"
	RoomSingleEnsuite = "SINGLE_ENSUITE"
)

// Level ranges
const (
	LevelLower  = "LOWER"
	LevelMiddle = "MIDDLE"
	LevelUpper  = "UPPER"
)

// Window facings
const (
	FacingCampus   = "CAMPUS"
	FacingAirport  = "AIRPORT"
	FacingBuilding = "BUILDING"
)

var (
	RoomTypes     = []string{RoomSingle, RoomDouble, RoomSingleEnsuite, Any}
	Blocks        = []string{"55", "57", "59", Any}
	LevelRanges   = []string{LevelLower, LevelMiddle, LevelUpper, Any}
	WindowFacings = []string{FacingCampus, FacingAirport, FacingBuilding, Any}
	SleepTimes    = []int{21, 22, 23, 0, 1, 2}

	// weightageLen is the number of room criteria ranked by RoomProfile.WeightageOrder.
	weightageLen = 9
)

// RoomProfile is a student's room preference.
// The optional amenity flags are nil when the student has no preference.
type RoomProfile struct {
	RoomType       string `json:"room_type" validate:"required,roomtype"`
	RoomType2nd    string `json:"room_type_2nd" validate:"required,roomtype"`
	Block          string `json:"block" validate:"required,block"`
	Block2nd       string `json:"block_2nd" validate:"required,block"`
	LevelRange     string `json:"level_range" validate:"required,levelrange"`
	WindowFacing   string `json:"window_facing" validate:"required,windowfacing"`
	NearToLift     *bool  `json:"near_to_lift"`
	NearToWashroom *bool  `json:"near_to_washroom"`
	LevelHasPantry *bool  `json:"level_has_pantry"`
	LevelHasMR     *bool  `json:"level_has_mr"`
	LevelHasGSR    *bool  `json:"level_has_gsr"`
	LevelHasRR     *bool  `json:"level_has_rr"`
	WeightageOrder []int  `json:"weightage_order" validate:"required,weightage"`
}

// DefaultRoomProfile is the profile of a student without any room preference.
func DefaultRoomProfile() RoomProfile {
	order := make([]int, weightageLen)
	for i := range order {
		order[i] = i + 1
	}
	return RoomProfile{
		RoomType:       Any,
		RoomType2nd:    Any,
		Block:          Any,
		Block2nd:       Any,
		LevelRange:     Any,
		WindowFacing:   Any,
		WeightageOrder: order,
	}
}

func (rp *RoomProfile) Validate(validate *validator.Validate) error {
	rp.RoomType = core.CleanString(rp.RoomType)
	rp.RoomType2nd = core.CleanString(rp.RoomType2nd)
	rp.Block = core.CleanString(rp.Block)
	rp.Block2nd = core.CleanString(rp.Block2nd)
	rp.LevelRange = core.CleanString(rp.LevelRange)
	rp.WindowFacing = core.CleanString(rp.WindowFacing)
	return validate.Struct(rp)
}

// LifestyleProfile is a student's lifestyle preference.
type LifestyleProfile struct {
	SleepTime  int    `json:"sleep_time" validate:"sleeptime"`
	WakeupTime int    `json:"wakeup_time" validate:"min=5,max=11"`
	LikeSocial int    `json:"like_social" validate:"min=0,max=10"`
	LikeClean  int    `json:"like_clean" validate:"min=0,max=10"`
	LikeQuiet  int    `json:"like_quiet" validate:"min=0,max=10"`
	UseAircon  bool   `json:"use_aircon"`
	Smoking    bool   `json:"smoking"`
	Diet       string `json:"diet"`
}

func DefaultLifestyleProfile() LifestyleProfile {
	return LifestyleProfile{SleepTime: 23, WakeupTime: 7, LikeSocial: 5, LikeClean: 5, LikeQuiet: 5}
}

func (lp *LifestyleProfile) Validate(validate *validator.Validate) error {
	lp.Diet = core.CleanString(lp.Diet)
	return validate.Struct(lp)
}

// Student is the housing profile of a user with the student role.
// StudentID is the username of the matching user.User.
type Student struct {
	StudentID        string `json:"student_id"`
	FullName         string `json:"full_name"`
	Gender           string `json:"gender"`
	EnrollmentType   string `json:"enrollment_type"`
	YearOfEnrollment int    `json:"year_of_enrollment"`
	Nationality      string `json:"nationality"`
	EmailSUTD        string `json:"email_sutd"`

	PhoneNumber       string `json:"phone_number"`
	EmailPersonal     string `json:"email_personal"`
	LocalAddrPostCode string `json:"local_addr_post_code"`
	LocalAddrStreet   string `json:"local_addr_street"`
	LocalAddrUnit     string `json:"local_addr_unit"`

	PreferenceRoom      RoomProfile      `json:"preference_room"`
	PreferenceLifestyle LifestyleProfile `json:"preference_lifestyle"`
	IsHouseGuardian     bool             `json:"is_house_guardian"`

	// derived from events, records and applications
	RegisteredEvents    []string `json:"registered_events"`
	AttendedEvents      []string `json:"attended_events"`
	DisciplinaryRecords []string `json:"disciplinary_records"`
	ApplicationUIDs     []string `json:"application_uids"`

	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

// EditableProfile holds the fields a student may change on their own profile.
// Nil fields are left untouched.
type EditableProfile struct {
	PhoneNumber       *string `json:"phone_number,omitempty"`
	EmailPersonal     *string `json:"email_personal,omitempty" validate:"omitempty,email"`
	LocalAddrPostCode *string `json:"local_addr_post_code,omitempty"`
	LocalAddrStreet   *string `json:"local_addr_street,omitempty"`
	LocalAddrUnit     *string `json:"local_addr_unit,omitempty"`
}

func (ep *EditableProfile) Validate(validate *validator.Validate) error {
	cleanPtr(ep.PhoneNumber)
	cleanPtr(ep.EmailPersonal, true /* lower */)
	cleanPtr(ep.LocalAddrPostCode)
	cleanPtr(ep.LocalAddrStreet)
	cleanPtr(ep.LocalAddrUnit)
	return validate.Struct(ep)
}

func (ep EditableProfile) apply(s *Student) {
	setIfNotNil(&s.PhoneNumber, ep.PhoneNumber)
	setIfNotNil(&s.EmailPersonal, ep.EmailPersonal)
	setIfNotNil(&s.LocalAddrPostCode, ep.LocalAddrPostCode)
	setIfNotNil(&s.LocalAddrStreet, ep.LocalAddrStreet)
	setIfNotNil(&s.LocalAddrUnit, ep.LocalAddrUnit)
}

// IdentityProfile holds the fields only an admin may change. Nil fields are left untouched.
type IdentityProfile struct {
	FullName         *string `json:"full_name,omitempty" validate:"omitempty,notblank"`
	Gender           *string `json:"gender,omitempty"`
	EnrollmentType   *string `json:"enrollment_type,omitempty"`
	YearOfEnrollment *int    `json:"year_of_enrollment,omitempty" validate:"omitempty,min=2009,max=2100"`
	Nationality      *string `json:"nationality,omitempty"`
	EmailSUTD        *string `json:"email_sutd,omitempty" validate:"omitempty,email"`
}

func (ip *IdentityProfile) Validate(validate *validator.Validate) error {
	cleanPtr(ip.FullName)
	cleanPtr(ip.Gender)
	cleanPtr(ip.EnrollmentType)
	cleanPtr(ip.Nationality)
	cleanPtr(ip.EmailSUTD, true /* lower */)
	return validate.Struct(ip)
}

func (ip IdentityProfile) apply(s *Student) {
	setIfNotNil(&s.FullName, ip.FullName)
	setIfNotNil(&s.Gender, ip.Gender)
	setIfNotNil(&s.EnrollmentType, ip.EnrollmentType)
	setIfNotNil(&s.Nationality, ip.Nationality)
	setIfNotNil(&s.EmailSUTD, ip.EmailSUTD)
	if ip.YearOfEnrollment != nil {
		s.YearOfEnrollment = *ip.YearOfEnrollment
	}
}

// NewStudent contains information needed to register a student account and profile.
type NewStudent struct {
	StudentID        string `json:"student_id" validate:"required,alphanum_"`
	Password         string `json:"password" validate:"required"`
	FullName         string `json:"full_name" validate:"required"`
	Gender           string `json:"gender"`
	EnrollmentType   string `json:"enrollment_type"`
	YearOfEnrollment int    `json:"year_of_enrollment" validate:"omitempty,min=2009,max=2100"`
	Nationality      string `json:"nationality"`
	EmailSUTD        string `json:"email_sutd" validate:"omitempty,email"`
	PhoneNumber      string `json:"phone_number"`
	EmailPersonal    string `json:"email_personal" validate:"omitempty,email"`
}

func (ns *NewStudent) Clean() {
	ns.StudentID = core.CleanString(ns.StudentID, true /* lower */)
	ns.FullName = core.CleanString(ns.FullName)
	ns.Gender = core.CleanString(ns.Gender)
	ns.EnrollmentType = core.CleanString(ns.EnrollmentType)
	ns.Nationality = core.CleanString(ns.Nationality)
	ns.EmailSUTD = core.CleanString(ns.EmailSUTD, true /* lower */)
	ns.PhoneNumber = core.CleanString(ns.PhoneNumber)
	ns.EmailPersonal = core.CleanString(ns.EmailPersonal, true /* lower */)
}

// Validate checks ns and the user account it will create, password policy included.
func (ns *NewStudent) Validate(validate *validator.Validate, usrSvc user.Service) error {
	ns.Clean()
	if err := validate.Struct(ns); err != nil {
		return err
	}
	nu := ns.ToNewUser()
	if err := validate.Struct(nu); err != nil {
		return err
	}
	if err := usrSvc.CheckUniqueness(nu.Username, nu.Email); err != nil {
		if _, ok := err.(*core.ValidationError); ok {
			return core.NewFieldValidationError("student_id", ErrAlreadyExists)
		}
		return err
	}
	return nil
}

// ToNewUser returns the account of the student: the student ID is the username.
func (ns NewStudent) ToNewUser() user.NewUser {
	return user.NewUser{
		Name:            ns.FullName,
		Username:        ns.StudentID,
		Email:           ns.EmailSUTD,
		Password:        ns.Password,
		PasswordConfirm: ns.Password,
		Roles:           []string{user.RoleStudent},
	}
}

func (ns NewStudent) toStudent(now time.Time) Student {
	return Student{
		StudentID:           ns.StudentID,
		FullName:            ns.FullName,
		Gender:              ns.Gender,
		EnrollmentType:      ns.EnrollmentType,
		YearOfEnrollment:    ns.YearOfEnrollment,
		Nationality:         ns.Nationality,
		EmailSUTD:           ns.EmailSUTD,
		PhoneNumber:         ns.PhoneNumber,
		EmailPersonal:       ns.EmailPersonal,
		PreferenceRoom:      DefaultRoomProfile(),
		PreferenceLifestyle: DefaultLifestyleProfile(),
		CreatedAt:           now,
		UpdatedAt:           now,
	}
}

// HouseGuardianResult is the outcome of one entry of a bulk house guardian assignment.
type HouseGuardianResult struct {
	StudentID string `json:"student_id"`
	OK        bool   `json:"ok"`
	Error     string `json:"error,omitempty"`
}

type QueryFilter struct {
	Search          string            `query:"search"`
	IsHouseGuardian *bool             `query:"is_house_guardian"`
	Orderings       []core.DBOrdering `query:"-"` // student_id when empty
}

// OrderingFields are the fields students can be ordered by.
var OrderingFields = []string{"student_id", "full_name", "year_of_enrollment", "created_at"}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}

func cleanPtr(s *string, lower ...bool) {
	if s != nil {
		*s = core.CleanString(*s, lower...)
	}
}

func setIfNotNil(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}
