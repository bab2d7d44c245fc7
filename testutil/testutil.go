// Package testutil wires the in-memory stack used by the tests of the other packages.
package testutil

import (
	"context"
	"net/mail"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sutdhousing/portal/core"
	"github.com/sutdhousing/portal/core/application"
	"github.com/sutdhousing/portal/core/event"
	"github.com/sutdhousing/portal/core/period"
	"github.com/sutdhousing/portal/core/record"
	"github.com/sutdhousing/portal/core/student"
	"github.com/sutdhousing/portal/core/user"
	emailsvc "github.com/sutdhousing/portal/services/email"
	logsvc "github.com/sutdhousing/portal/services/logger"
	"github.com/sutdhousing/portal/storage/cache"
	inmemdb "github.com/sutdhousing/portal/storage/database/inmem"
)

// Password is the password of the users created by CreateUser and CreateStudent.
const Password = "s3cret.pwd"

// Stack holds in-memory repositories and the services built on them.
type Stack struct {
	Conf       *core.Config
	Logger     core.Logger
	Validate   *validator.Validate
	Translator ut.Translator

	DB          *inmemdb.DB
	UserRepo    user.Repository
	StudentRepo student.Repository
	PeriodRepo  period.Repository
	FormRepo    application.Repository
	EventRepo   event.Repository
	RecordRepo  record.Repository
	Drafts      application.DraftStore
	MailSvc     core.EmailService

	UserSvc        user.Service
	StudentSvc     student.Service
	PeriodSvc      period.Service
	ApplicationSvc application.Service
	EventSvc       event.Service
	RecordSvc      record.Service
}

func Conf() *core.Config {
	return &core.Config{
		Env:                       "TEST",
		AppName:                   "Housing Portal",
		TestMode:                  true,
		SecretKey:                 "test-secret",
		FrontendBaseURL:           "http://localhost:3000",
		DefaultFromEmail:          mail.Address{Name: "Housing Portal", Address: "noreply@test.sg"},
		LogLevel:                  "debug",
		LogFormat:                 "console",
		Storage:                   "memory",
		PasswordResetTimeoutDelta: 24 * time.Hour,
		Server: core.ServerConfig{
			JWTExpirationDelta:        time.Hour,
			JWTRefreshExpirationDelta: 24 * time.Hour,
			ShutdownTimeout:           time.Second,
			LoginRateLimit:            1000,
		},
		Redis: core.RedisConfig{DraftTTL: time.Hour},
	}
}

// NopLogger discards everything.
func NopLogger() core.Logger {
	return logsvc.NewRollbarLogger(zap.NewNop(), Conf())
}

// NewValidator returns a validator with the validations of every domain package registered.
func NewValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	student.InitValidators(validate, translator)
	application.InitValidators(validate, translator)
	event.InitValidators(validate, translator)
	return validate, translator
}

func NewStack() *Stack {
	conf := Conf()
	logger := NopLogger()
	validate, translator := NewValidator()

	db := inmemdb.Open()
	s := &Stack{
		Conf:        conf,
		Logger:      logger,
		Validate:    validate,
		Translator:  translator,
		DB:          db,
		UserRepo:    inmemdb.NewUserRepository(db),
		StudentRepo: inmemdb.NewStudentRepository(db),
		PeriodRepo:  inmemdb.NewPeriodRepository(db),
		FormRepo:    inmemdb.NewApplicationRepository(db),
		EventRepo:   inmemdb.NewEventRepository(db),
		RecordRepo:  inmemdb.NewRecordRepository(db),
		Drafts:      cache.NewMemoryDraftStore(),
		MailSvc:     emailsvc.NewConsoleServiceMock(conf, logger),
	}
	s.UserSvc = user.NewService(s.UserRepo, s.MailSvc, conf)
	s.StudentSvc = student.NewService(db, s.StudentRepo, s.UserRepo)
	s.PeriodSvc = period.NewService(db, s.PeriodRepo)
	s.ApplicationSvc = application.NewService(db, s.FormRepo, s.Drafts, s.PeriodSvc, s.StudentSvc, s.MailSvc)
	s.EventSvc = event.NewService(db, s.EventRepo)
	s.RecordSvc = record.NewService(db, s.RecordRepo, s.StudentSvc, s.MailSvc)

	emailsvc.ClearSentMessages()
	return s
}

// Reset drops every row and the sent messages.
func (s *Stack) Reset() {
	s.DB.Reset()
	emailsvc.ClearSentMessages()
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	usr, err := user.NewUserFrom(user.NewUser{Name: name, Username: uname, Email: email, Password: Password, Roles: roles})
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	usr.IsActive = isActive
	if len(createdAt) > 0 {
		usr.CreatedAt = createdAt[0].UTC()
		usr.UpdatedAt = usr.CreatedAt
	}
	usr, err = repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

// CreateAdmin creates an active admin. write grants admin-write access.
func CreateAdmin(t *testing.T, s *Stack, uname string, write bool) user.User {
	roles := []string{user.RoleAdmin}
	if write {
		roles = append(roles, user.RoleAdminWrite)
	}
	return CreateUser(t, s.UserRepo, "Admin "+uname, uname, uname+"@test.sg", roles, true)
}

// CreateStudent registers a student account and profile.
func CreateStudent(t *testing.T, s *Stack, studentID, fullName string) (student.Student, user.User) {
	ctx := context.Background()
	stu, err := s.StudentSvc.Register(ctx, student.NewStudent{
		StudentID: studentID,
		Password:  Password,
		FullName:  fullName,
		EmailSUTD: studentID + "@mymail.sutd.edu.sg",
	})
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	usr, err := s.UserSvc.GetByUsername(ctx, studentID)
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	return stu, usr
}

// TimePeriod returns a stay period starting in `days` days and lasting `weeks` weeks.
func TimePeriod(days, weeks int) period.TimePeriod {
	start := time.Now().UTC().Truncate(24*time.Hour).AddDate(0, 0, days)
	return period.TimePeriod{StartDate: start, EndDate: start.AddDate(0, 0, 7*weeks)}
}

// CreatePeriod stores an application period whose window is [open, close).
func CreatePeriod(t *testing.T, s *Stack, open, close time.Time, students ...string) period.ApplicationPeriod {
	now := time.Now().UTC()
	if students == nil {
		students = []string{}
	}
	p, err := s.PeriodRepo.CreatePeriod(context.Background(), period.ApplicationPeriod{
		UID:                    uuid.New().String(),
		CreatedAt:              now,
		CreatedBy:              "admin",
		UpdatedAt:              now,
		ApplicationWindowOpen:  open.UTC(),
		ApplicationWindowClose: close.UTC(),
		ApplicablePeriods:      []period.TimePeriod{TimePeriod(30, 12), TimePeriod(120, 12)},
		ApplicableRooms:        []string{},
		ApplicableStudents:     students,
	})
	if err != nil {
		t.Fatalf("CreatePeriod() failed: %v", err)
	}
	return p
}

// CreateOpenPeriod stores a period accepting applications for the next week.
func CreateOpenPeriod(t *testing.T, s *Stack, students ...string) period.ApplicationPeriod {
	now := time.Now()
	return CreatePeriod(t, s, now.Add(-time.Hour), now.AddDate(0, 0, 7), students...)
}

// EventData returns a valid event starting at start.
func EventData(title string, start time.Time, limit int) event.EventData {
	return event.EventData{
		Title:          title,
		EventType:      event.TypeFloor,
		MeetupLocation: "Block 59 lobby",
		StartTime:      start.UTC(),
		DurationMins:   60,
		SignupLimit:    limit,
	}
}

func CreateEvent(t *testing.T, s *Stack, createdBy string, data event.EventData) event.Event {
	e, err := s.EventSvc.Create(context.Background(), data, createdBy)
	if err != nil {
		t.Fatalf("CreateEvent() failed: %v", err)
	}
	return e
}

// NewForm returns a complete submission for p.
func NewForm(p period.ApplicationPeriod) application.NewForm {
	return application.NewForm{
		ApplicationPeriodUID: p.UID,
		ApplicablePeriod:     p.ApplicablePeriods[0],
		RoomProfile:          student.DefaultRoomProfile(),
		LifestyleProfile:     student.DefaultLifestyleProfile(),
	}
}
