package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	echoapi "github.com/canteraproject/cantera/apps/api/echo"
	"github.com/canteraproject/cantera/core"
	"github.com/canteraproject/cantera/core/account"
	"github.com/canteraproject/cantera/core/attendance"
	"github.com/canteraproject/cantera/core/fee"
	"github.com/canteraproject/cantera/core/news"
	"github.com/canteraproject/cantera/core/profile"
	"github.com/canteraproject/cantera/core/registration"
	"github.com/canteraproject/cantera/core/session"
	"github.com/canteraproject/cantera/core/student"
	emailsvc "github.com/canteraproject/cantera/services/email"
	logsvc "github.com/canteraproject/cantera/services/logger"
	pdfsvc "github.com/canteraproject/cantera/services/pdf"
	whatsappsvc "github.com/canteraproject/cantera/services/whatsapp"
	"github.com/canteraproject/cantera/storage/database"
	sqlxrepos "github.com/canteraproject/cantera/storage/database/sqlx"
	"github.com/canteraproject/cantera/storage/sessions"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	// set up DB
	db, err := setUpDB(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			logger.Error("closing database", err)
		}
	}()

	// set up session store
	var sessionStore account.SessionStore
	if conf.Redis.Addr != "" {
		store, err := sessions.NewRedisStore(conf)
		if err != nil {
			logger.Fatal(fmt.Sprintf("setting up redis: %v", err), err)
		}
		defer func() { _ = store.Close() }()
		sessionStore = store
	} else {
		sessionStore = sessions.NewInmemStore()
	}

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService()
	} else {
		mailSvc = emailsvc.NewSendgridService(logger)
	}
	textSvc := whatsappsvc.NewConsoleService()
	receiptGen := pdfsvc.NewReceiptGenerator()

	profileSvc := profile.NewService(sqlxrepos.NewProfileRepository(db))
	accountSvc := account.NewService(sqlxrepos.NewAccountRepository(db), sessionStore, conf)
	studentSvc := student.NewService(sqlxrepos.NewStudentRepository(db), profileSvc)
	feeSvc := fee.NewService(sqlxrepos.NewFeeRepository(db), studentSvc, mailSvc, textSvc, receiptGen, logger, conf)
	newsSvc := news.NewService(sqlxrepos.NewNewsRepository(db))
	registrationSvc := registration.NewService(accountSvc, profileSvc, studentSvc, mailSvc, logger)
	bootstrapper := session.NewBootstrapper(profileSvc)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)

	attendanceSvc := attendance.NewService(sqlxrepos.NewAttendanceRepository(db), validate)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.
	// /debug/metrics - Prometheus scrape endpoint.

	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)
	http.Handle("/debug/metrics", promhttp.Handler())

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		conf.Server.Addr,
		&echoapi.Deps{
			Conf:            conf,
			Logger:          logger,
			DB:              db,
			AccountSvc:      accountSvc,
			ProfileSvc:      profileSvc,
			StudentSvc:      studentSvc,
			FeeSvc:          feeSvc,
			AttendanceSvc:   attendanceSvc,
			NewsSvc:         newsSvc,
			RegistrationSvc: registrationSvc,
			Bootstrapper:    bootstrapper,
			Validate:        validate,
			Translator:      translator,
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

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func setUpDB(conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db.DB); err != nil {
		return nil, err
	}
	return db, nil
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}
