package main

import (
	"fmt"
	"log"
	"os"

	"github.com/trezcool/goose"

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
	conf := core.NewConfig()

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	// set up DB
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
	}
	if err = goose.SetDialect(conf.Database.Engine); err != nil {
		logger.Fatal(fmt.Sprintf("setting migration dialect: %v", err), err)
	}

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}
	core.ParseEmailTemplates(logger, conf)

	stuRepo := sqlxrepos.NewStudentRepository(db)
	exporter := calendar.NewExporter(conf)
	lessonSvc := lesson.NewService(db, sqlxrepos.NewLessonRepository(db), stuRepo, logger, conf)
	notifier := notification.NewService(mailSvc, stuRepo, exporter, logger)

	// start CLI
	cli := commandLine{
		db:        db,
		students:  student.NewService(db, stuRepo, logger),
		lessons:   lessonSvc,
		calendar:  exporter,
		reminders: reminder.NewScheduler(lessonSvc, notifier, logger, conf),
	}
	err = cli.run(os.Args)

	_ = db.Close()
	logger.Close()
	if err != nil {
		if err != errHelp {
			logger.Error(fmt.Sprintf("error: %v", err), err)
		}
		os.Exit(1)
	}
}
