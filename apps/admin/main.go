package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/sutdhousing/portal/core"
	"github.com/sutdhousing/portal/core/student"
	logsvc "github.com/sutdhousing/portal/services/logger"
	"github.com/sutdhousing/portal/storage/database"
	sqlxrepos "github.com/sutdhousing/portal/storage/database/sqlx"
)

var logger *zap.SugaredLogger

func main() {
	defer os.Exit(0)

	conf := core.NewConfig()
	zl, err := logsvc.NewZapLogger(conf)
	if err != nil {
		panic(fmt.Sprintf("setting up zap: %v", err))
	}
	defer func() { _ = zl.Sync() }()
	logger = zl.Named("admin").Sugar()

	// set up DB
	ctx := context.Background()
	errAndDie(database.CreateIfNotExist(ctx, conf))
	db, err := database.Open(ctx, conf)
	errAndDie(err)
	defer db.Close()

	// start CLI
	usrRepo := sqlxrepos.NewUserRepository(db)
	cli := commandLine{
		db:         db.DB,
		usrRepo:    usrRepo,
		studentSvc: student.NewService(sqlxrepos.NewTransactor(db), sqlxrepos.NewStudentRepository(db), usrRepo),
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Errorf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
