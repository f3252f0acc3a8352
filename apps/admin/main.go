package main

import (
	"log"
	"os"

	"github.com/canteraproject/cantera/core"
	"github.com/canteraproject/cantera/core/account"
	"github.com/canteraproject/cantera/core/fee"
	"github.com/canteraproject/cantera/core/profile"
	"github.com/canteraproject/cantera/core/student"
	emailsvc "github.com/canteraproject/cantera/services/email"
	logsvc "github.com/canteraproject/cantera/services/logger"
	pdfsvc "github.com/canteraproject/cantera/services/pdf"
	whatsappsvc "github.com/canteraproject/cantera/services/whatsapp"
	"github.com/canteraproject/cantera/storage/database"
	sqlxrepos "github.com/canteraproject/cantera/storage/database/sqlx"
	"github.com/canteraproject/cantera/storage/sessions"
)

var std = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

func main() {
	defer os.Exit(0)

	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(std, conf)
	logger.Enable(!conf.Debug)

	// set up DB
	db, err := database.Open(conf)
	errAndDie(err)
	defer func() { _ = db.Close() }()
	errAndDie(db.Ping())

	profileSvc := profile.NewService(sqlxrepos.NewProfileRepository(db))
	accountSvc := account.NewService(sqlxrepos.NewAccountRepository(db), sessions.NewInmemStore(), conf)
	studentSvc := student.NewService(sqlxrepos.NewStudentRepository(db), profileSvc)
	feeSvc := fee.NewService(
		sqlxrepos.NewFeeRepository(db),
		studentSvc,
		emailsvc.NewConsoleService(),
		whatsappsvc.NewConsoleService(),
		pdfsvc.NewReceiptGenerator(),
		logger,
		conf,
	)

	// start CLI
	cli := commandLine{
		db:         db,
		accountSvc: accountSvc,
		profileSvc: profileSvc,
		feeSvc:     feeSvc,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			std.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		std.Fatal(err)
	}
}
