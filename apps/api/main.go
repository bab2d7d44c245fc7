package main

import (
	"context"
	"expvar"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	echoapi "github.com/sutdhousing/portal/apps/api/echo"
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
	"github.com/sutdhousing/portal/storage/database"
	inmemdb "github.com/sutdhousing/portal/storage/database/inmem"
	sqlxrepos "github.com/sutdhousing/portal/storage/database/sqlx"
)

// repositories groups the storage backend of every domain package.
type repositories struct {
	tx       core.Transactor
	users    user.Repository
	students student.Repository
	periods  period.Repository
	forms    application.Repository
	events   event.Repository
	records  record.Repository
	close    func() error
}

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	zl, err := logsvc.NewZapLogger(conf)
	if err != nil {
		panic(fmt.Sprintf("setting up zap: %v", err))
	}
	defer func() { _ = zl.Sync() }()

	logger := logsvc.NewRollbarLogger(zl.Named("api"), conf)
	logger.Enable(!conf.Debug)

	dbLogger := logsvc.NewRollbarLogger(zl.Named("db"), conf)
	dbLogger.Enable(!conf.Debug)

	// set up storage
	repos, err := setUpStorage(context.Background(), conf)
	if err != nil {
		dbLogger.Fatal(fmt.Sprintf("setting up %s storage: %v", conf.Storage, err), err)
	}
	defer func() {
		if err = repos.close(); err != nil {
			dbLogger.Fatal("Failed to close", err)
		}
	}()
	drafts := setUpDrafts(conf, logger)

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}
	usrSvc := user.NewService(repos.users, mailSvc, conf)
	studentSvc := student.NewService(repos.tx, repos.students, repos.users)
	periodSvc := period.NewService(repos.tx, repos.periods)
	appSvc := application.NewService(repos.tx, repos.forms, drafts, periodSvc, studentSvc, mailSvc)
	eventSvc := event.NewService(repos.tx, repos.events)
	recordSvc := record.NewService(repos.tx, repos.records, studentSvc, mailSvc)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	student.InitValidators(validate, translator)
	application.InitValidators(validate, translator)
	event.InitValidators(validate, translator)

	core.ParseEmailTemplates(conf, logger)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)
	expvar.NewString("storage").Set(conf.Storage)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:           conf,
			Logger:         logger,
			Validate:       validate,
			Translator:     translator,
			UserSvc:        usrSvc,
			StudentSvc:     studentSvc,
			PeriodSvc:      periodSvc,
			ApplicationSvc: appSvc,
			EventSvc:       eventSvc,
			RecordSvc:      recordSvc,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shut down and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

// setUpStorage opens the configured storage. Postgres is created and migrated if needed.
func setUpStorage(ctx context.Context, conf *core.Config) (repositories, error) {
	switch strings.ToLower(conf.Storage) {
	case "memory":
		db := inmemdb.Open()
		return repositories{
			tx:       db,
			users:    inmemdb.NewUserRepository(db),
			students: inmemdb.NewStudentRepository(db),
			periods:  inmemdb.NewPeriodRepository(db),
			forms:    inmemdb.NewApplicationRepository(db),
			events:   inmemdb.NewEventRepository(db),
			records:  inmemdb.NewRecordRepository(db),
			close:    func() error { return nil },
		}, nil

	case "postgres":
		if err := database.CreateIfNotExist(ctx, conf); err != nil {
			return repositories{}, err
		}
		db, err := database.Open(ctx, conf)
		if err != nil {
			return repositories{}, err
		}
		if err = database.Migrate(ctx, db.DB, "up"); err != nil {
			_ = db.Close()
			return repositories{}, err
		}
		return repositories{
			tx:       sqlxrepos.NewTransactor(db),
			users:    sqlxrepos.NewUserRepository(db),
			students: sqlxrepos.NewStudentRepository(db),
			periods:  sqlxrepos.NewPeriodRepository(db),
			forms:    sqlxrepos.NewApplicationRepository(db),
			events:   sqlxrepos.NewEventRepository(db),
			records:  sqlxrepos.NewRecordRepository(db),
			close:    db.Close,
		}, nil
	}
	return repositories{}, errors.Errorf("unknown storage %q", conf.Storage)
}

// setUpDrafts keeps the application wizard drafts in redis when it is configured, in memory otherwise.
func setUpDrafts(conf *core.Config, logger core.Logger) application.DraftStore {
	if conf.Redis.Addr == "" {
		logger.Warn("redis is not configured: application drafts are kept in memory")
		return cache.NewMemoryDraftStore()
	}
	return cache.NewRedisDraftStore(cache.NewRedisClient(conf), conf.Redis.DraftTTL)
}
