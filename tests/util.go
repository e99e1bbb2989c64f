// Package testutil sets up the database and fixtures shared by the test suites.
package testutil

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/tutorly/core"
	"github.com/trezcool/tutorly/core/lesson"
	"github.com/trezcool/tutorly/core/student"
	logsvc "github.com/trezcool/tutorly/services/logger"
	"github.com/trezcool/tutorly/storage/database"
)

// PrepareDB opens a migrated sqlite database in a temporary directory. It is closed when the test ends.
func PrepareDB(t *testing.T) *sqlx.DB {
	t.Helper()

	conf := core.NewTestConfig()
	conf.Database.Name = filepath.Join(t.TempDir(), "tutorly.db")

	db, err := database.Open(conf)
	if err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err = database.Migrate(db.DB, conf.Database.Engine); err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	return db
}

// NewLogger returns a console logger that never reports to Rollbar.
func NewLogger(conf *core.Config) *logsvc.RollbarLogger {
	logger := logsvc.NewRollbarLogger(log.New(os.Stdout, "TEST : ", log.LstdFlags), conf)
	logger.Enable(false)
	return logger
}

func CreateStudent(t *testing.T, repo student.Repository, first, last, email string, createdAt ...time.Time) student.Student {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	stu, err := repo.CreateStudent(context.Background(), student.Student{
		FirstName: first,
		LastName:  last,
		Email:     email,
		Subjects:  []string{"Math"},
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	})
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	return stu
}

// Schedule books a lesson, or a series when rec is set, starting at start and lasting an hour.
func Schedule(t *testing.T, svc *lesson.Service, stu student.Student, title string, start time.Time, rec *lesson.RecurrenceRequest) []lesson.Lesson {
	t.Helper()

	lessons, err := svc.Schedule(context.Background(), lesson.NewLesson{
		StudentID:  stu.ID,
		Title:      title,
		Subject:    "Math",
		Start:      start,
		End:        start.Add(time.Hour),
		Location:   "Library",
		Reminder:   30,
		Recurrence: rec,
	})
	if err != nil {
		t.Fatalf("Schedule() failed: %v", err)
	}
	return lessons
}
