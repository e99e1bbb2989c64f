// Package notification emails students about their lessons.
package notification

import (
	"context"
	"fmt"
	"net/mail"

	"github.com/pkg/errors"

	"github.com/trezcool/tutorly/core"
	"github.com/trezcool/tutorly/core/calendar"
	"github.com/trezcool/tutorly/core/lesson"
	"github.com/trezcool/tutorly/core/student"
)

const (
	scheduledTemplate = "lessons_scheduled"
	reminderTemplate  = "lesson_reminder"
	calendarFilename  = "lessons.ics"
)

// TemplateData is what the lesson email templates render.
type TemplateData struct {
	StudentName string
	GroupID     string
	Subject     string
	Lessons     []lesson.Lesson
	Lesson      lesson.Lesson
}

type Service struct {
	mailer   core.EmailService
	students student.Repository
	calendar *calendar.Exporter
	logger   core.Logger
}

func NewService(mailer core.EmailService, students student.Repository, exporter *calendar.Exporter, logger core.Logger) *Service {
	return &Service{mailer: mailer, students: students, calendar: exporter, logger: logger}
}

// recipient returns the student the lessons belong to, or ok=false when they have no email.
func (svc *Service) recipient(ctx context.Context, studentID string) (stu student.Student, ok bool, err error) {
	stu, err = svc.students.GetStudent(ctx, student.GetFilter{ID: studentID})
	if err != nil {
		return stu, false, errors.Wrap(err, "finding student")
	}
	return stu, stu.HasEmail(), nil
}

// LessonsScheduled emails the student the lessons just booked, with a calendar file of all of them.
// It reports whether an email was sent.
func (svc *Service) LessonsScheduled(ctx context.Context, lessons []lesson.Lesson) (bool, error) {
	if len(lessons) == 0 {
		return false, nil
	}
	first := lessons[0]

	stu, ok, err := svc.recipient(ctx, first.StudentID)
	if err != nil || !ok {
		return false, err
	}

	buf, err := svc.calendar.Bytes(first.Subject, lessons)
	if err != nil {
		return false, errors.Wrap(err, "exporting calendar")
	}

	subject := fmt.Sprintf("Your %s lesson is booked", first.Subject)
	if first.IsRecurring {
		subject = fmt.Sprintf("Your %s lessons are booked", first.Subject)
	}
	msg := &core.EmailMessage{
		To:           []mail.Address{{Name: stu.DisplayName(), Address: stu.Email}},
		Subject:      subject,
		TemplateName: scheduledTemplate,
		TemplateData: TemplateData{
			StudentName: stu.FirstName,
			GroupID:     first.GroupID(),
			Subject:     first.Subject,
			Lessons:     lessons,
		},
	}
	if err = msg.Attach(buf, calendarFilename, calendar.ContentType); err != nil {
		return false, err
	}

	svc.mailer.SendMessages(msg)
	return true, nil
}

// LessonReminder emails the student that the lesson is coming up. It reports whether an email was sent.
func (svc *Service) LessonReminder(ctx context.Context, l lesson.Lesson) (bool, error) {
	stu, ok, err := svc.recipient(ctx, l.StudentID)
	if err != nil || !ok {
		return false, err
	}

	svc.mailer.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: stu.DisplayName(), Address: stu.Email}},
		Subject:      "Reminder: " + l.Title,
		TemplateName: reminderTemplate,
		TemplateData: TemplateData{
			StudentName: stu.FirstName,
			GroupID:     l.GroupID(),
			Subject:     l.Subject,
			Lessons:     []lesson.Lesson{l},
			Lesson:      l,
		},
	})
	return true, nil
}
