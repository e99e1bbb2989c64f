package notification_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"strings"
	"testing"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/tutorly/core"
	"github.com/trezcool/tutorly/core/calendar"
	"github.com/trezcool/tutorly/core/lesson"
	"github.com/trezcool/tutorly/core/notification"
	emailsvc "github.com/trezcool/tutorly/services/email"
	sqlxrepos "github.com/trezcool/tutorly/storage/database/sqlx"
	testutil "github.com/trezcool/tutorly/tests"
)

var monday = time.Date(2030, time.January, 7, 16, 0, 0, 0, time.UTC)

func TestService(t *testing.T) {
	ctx := context.Background()
	conf := core.NewTestConfig()
	logger := testutil.NewLogger(conf)
	core.ParseEmailTemplates(logger, conf)

	db := testutil.PrepareDB(t)
	stuRepo := sqlxrepos.NewStudentRepository(db)
	lessonSvc := lesson.NewService(db, sqlxrepos.NewLessonRepository(db), stuRepo, logger, conf)
	mailer := emailsvc.NewConsoleServiceMock(conf, logger)
	svc := notification.NewService(mailer, stuRepo, calendar.NewExporter(conf), logger)

	amani := testutil.CreateStudent(t, stuRepo, "Amani", "Kabila", "amani@test.cd")
	neema := testutil.CreateStudent(t, stuRepo, "Neema", "Tshisekedi", "")
	series := testutil.Schedule(t, lessonSvc, amani, "Algebra", monday, &lesson.RecurrenceRequest{Cadence: lesson.Weekly, Count: 3})

	t.Run("lessons scheduled", func(t *testing.T) {
		mailer.Reset()
		sent, err := svc.LessonsScheduled(ctx, series)
		require.NoError(t, err)
		assert.True(t, sent)

		msgs := mailer.SentMessages()
		require.Len(t, msgs, 1)
		msg := msgs[0]
		assert.Equal(t, "amani@test.cd", msg.To[0].Address)
		assert.Equal(t, "Your Math lessons are booked", msg.Subject)
		assert.Contains(t, msg.TextContent, "Algebra (1/3)")

		require.Len(t, msg.Attachments, 1)
		at := msg.Attachments[0]
		assert.Equal(t, "lessons.ics", at.Filename)
		assert.Equal(t, calendar.ContentType, at.ContentType)

		raw, err := base64.StdEncoding.DecodeString(at.Content.String())
		require.NoError(t, err)
		cal, err := ical.ParseCalendar(bytes.NewReader(raw))
		require.NoError(t, err)
		assert.Len(t, cal.Events(), 3)
	})

	t.Run("one-off", func(t *testing.T) {
		mailer.Reset()
		oneOff := testutil.Schedule(t, lessonSvc, amani, "Chemistry", monday.AddDate(0, 1, 0), nil)
		sent, err := svc.LessonsScheduled(ctx, oneOff)
		require.NoError(t, err)
		assert.True(t, sent)
		assert.Equal(t, "Your Math lesson is booked", mailer.SentMessages()[0].Subject)
	})

	t.Run("nothing scheduled", func(t *testing.T) {
		sent, err := svc.LessonsScheduled(ctx, nil)
		assert.NoError(t, err)
		assert.False(t, sent)
	})

	t.Run("student without email", func(t *testing.T) {
		mailer.Reset()
		lessons := testutil.Schedule(t, lessonSvc, neema, "Physics", monday, nil)
		sent, err := svc.LessonsScheduled(ctx, lessons)
		require.NoError(t, err)
		assert.False(t, sent)

		sent, err = svc.LessonReminder(ctx, lessons[0])
		require.NoError(t, err)
		assert.False(t, sent)
		assert.Empty(t, mailer.SentMessages())
	})

	t.Run("reminder", func(t *testing.T) {
		mailer.Reset()
		sent, err := svc.LessonReminder(ctx, series[1])
		require.NoError(t, err)
		assert.True(t, sent)

		msgs := mailer.SentMessages()
		require.Len(t, msgs, 1)
		assert.Equal(t, "Reminder: Algebra (2/3)", msgs[0].Subject)
		assert.Empty(t, msgs[0].Attachments)
		assert.True(t, strings.Contains(msgs[0].TextContent, "Amani"))
	})

	t.Run("unknown student", func(t *testing.T) {
		_, err := svc.LessonReminder(ctx, lesson.Lesson{ID: "l1", StudentID: "lol"})
		assert.Error(t, err)
	})
}
