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

	echoapi "github.com/trezcool/tutorly/apps/api/echo"
	"github.com/trezcool/tutorly/core"
	"github.com/trezcool/tutorly/core/calendar"
	"github.com/trezcool/tutorly/core/lesson"
	"github.com/trezcool/tutorly/core/notification"
	"github.com/trezcool/tutorly/core/student"
	emailsvc "github.com/trezcool/tutorly/services/email"
	logsvc "github.com/trezcool/tutorly/services/logger"
	"github.com/trezcool/tutorly/services/reminder"
	"github.com/trezcool/tutorly/storage/database"
	sqlxrepos "github.com/trezcool/tutorly/storage/database/sqlx"
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
	defer logger.Close()

	dbLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	dbLogger.Enable(!conf.Debug)

	// set up DB
	db, err := setUpDB(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			dbLogger.Fatal("Failed to close", err)
		}
	}()

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	stuRepo := sqlxrepos.NewStudentRepository(db)
	lessonRepo := sqlxrepos.NewLessonRepository(db)
	exporter := calendar.NewExporter(conf)

	stuSvc := student.NewService(db, stuRepo, logger)
	lessonSvc := lesson.NewService(db, lessonRepo, stuRepo, logger, conf)
	notifier := notification.NewService(mailSvc, stuRepo, exporter, logger)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)
	student.InitValidators(validate, translator)
	lesson.InitValidators(validate, translator)

	core.ParseEmailTemplates(logger, conf)

	// =========================================================================
	// Start Reminders

	if conf.Reminders.Enabled {
		reminders := reminder.NewScheduler(lessonSvc, notifier, logger, conf)
		if err = reminders.Start(context.Background()); err != nil {
			logger.Fatal(fmt.Sprintf("starting reminders: %v", err), err)
		}
		defer func() {
			if err := reminders.Shutdown(); err != nil {
				logger.Error(fmt.Sprintf("stopping reminders: %v", err), err)
			}
		}()
	}

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:       conf,
			Logger:     logger,
			StudentSvc: stuSvc,
			LessonSvc:  lessonSvc,
			Notifier:   notifier,
			Calendar:   exporter,
			Validate:   validate,
			Translator: translator,
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

	if err = database.Migrate(db.DB, conf.Database.Engine); err != nil {
		_ = db.Close()
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
