package lesson

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/tutorly/core"
	"github.com/trezcool/tutorly/core/student"
)

var nowFunc = func() time.Time { return time.Now().UTC() } // mockable

type (
	Repository interface {
		// CreateLesson stores a new lesson and assigns its ID.
		CreateLesson(ctx context.Context, l Lesson, exec ...core.DBExecutor) (Lesson, error)
		GetLesson(ctx context.Context, id string, exec ...core.DBExecutor) (Lesson, error)
		// QueryLessons applies AND on the set QueryFilter fields; StartFrom and StartTo are inclusive.
		QueryLessons(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Lesson, error)
		// QuerySeries returns the occurrences of a series sorted by occurrence number.
		QuerySeries(ctx context.Context, groupID string, exec ...core.DBExecutor) ([]Lesson, error)
		UpdateLesson(ctx context.Context, l Lesson, exec ...core.DBExecutor) (Lesson, error)
		// DeleteLesson returns ErrNotFound when nothing was deleted.
		DeleteLesson(ctx context.Context, id string, exec ...core.DBExecutor) error
		DeleteSeries(ctx context.Context, groupID string, exec ...core.DBExecutor) (int, error)
	}

	// Service schedules lessons and edits series. Every operation rereads the stored occurrences.
	Service struct {
		db       core.DB
		repo     Repository
		students student.Repository
		logger   core.Logger
		loc      *time.Location
		atomic   bool
	}
)

func NewService(db core.DB, repo Repository, students student.Repository, logger core.Logger, conf *core.Config) *Service {
	return &Service{
		db:       db,
		repo:     repo,
		students: students,
		logger:   logger,
		loc:      conf.Location(),
		atomic:   conf.Lessons.AtomicBatches,
	}
}

func (svc *Service) Location() *time.Location {
	return svc.loc
}

func (svc *Service) local(lessons []Lesson) []Lesson {
	for i := range lessons {
		lessons[i].in(svc.loc)
	}
	return lessons
}

// Schedule stores a lesson, or the series its recurrence block expands to, for an existing student.
// The student's current display name is copied onto every occurrence.
func (svc *Service) Schedule(ctx context.Context, nl NewLesson) ([]Lesson, error) {
	stu, err := svc.students.GetStudent(ctx, student.GetFilter{ID: nl.StudentID})
	if err != nil {
		if errors.Cause(err) == student.ErrNotFound {
			return nil, core.NewValidationError(err, core.FieldError{Field: "student_id", Error: err.Error()})
		}
		return nil, storageErr("finding student", err)
	}

	seed := Seed{
		StudentID:   stu.ID,
		StudentName: stu.DisplayName(),
		Title:       nl.Title,
		Subject:     nl.Subject,
		Location:    nl.Location,
		Description: nl.Description,
		Reminder:    nl.Reminder,
		Start:       nl.Start.In(svc.loc).Truncate(time.Minute),
		End:         nl.End.In(svc.loc).Truncate(time.Minute),
	}

	var drafts []Lesson
	if nl.Recurrence == nil {
		if err = seed.validate(); err != nil {
			return nil, err
		}
		drafts = []Lesson{seed.lesson()}
	} else {
		rule, err := nl.Recurrence.Rule(svc.loc)
		if err != nil {
			return nil, err
		}
		if drafts, err = Expand(seed, rule); err != nil {
			return nil, err
		}
	}
	if len(drafts) == 0 {
		return []Lesson{}, nil
	}

	created := make([]Lesson, 0, len(drafts))
	_, err = svc.runBatch(ctx, func(b *batch) error {
		now := nowFunc()
		for _, draft := range drafts {
			draft := draft
			draft.CreatedAt = now
			draft.UpdatedAt = now
			b.do(opCreate, "", func(exec core.DBExecutor) error {
				l, err := svc.repo.CreateLesson(ctx, draft, exec)
				if err == nil {
					created = append(created, l)
				}
				return err
			})
		}
		return nil
	})
	if err != nil {
		if _, partial := err.(*BatchError); !partial {
			return nil, err
		}
	}

	if len(drafts) > 1 {
		svc.logger.Info(fmt.Sprintf("series %s scheduled: %d lessons for student %s",
			drafts[0].GroupID(), len(created), stu.ID), stu)
	}
	return svc.local(created), err
}

func (svc *Service) Get(ctx context.Context, id string) (Lesson, error) {
	l, err := svc.repo.GetLesson(ctx, id)
	if err != nil {
		return Lesson{}, storageErr("finding lesson", err)
	}
	l.in(svc.loc)
	return l, nil
}

// Query lists lessons, by start time unless ordered otherwise.
func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Lesson, error) {
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "start_time", Ascending: true}}
	}
	lessons, err := svc.repo.QueryLessons(ctx, filter, ordering)
	if err != nil {
		return nil, storageErr("querying lessons", err)
	}
	return svc.local(lessons), nil
}

// Series returns the derived view of a series. The stored bound is reported as created or last updated;
// Stored tells how many occurrences remain.
func (svc *Service) Series(ctx context.Context, groupID string) (Series, error) {
	occs, err := svc.loadSeries(ctx, groupID, svc.db)
	if err != nil {
		return Series{}, err
	}
	first, last := occs[0], occs[len(occs)-1]
	rule := first.Recurrence.Rule()

	s := Series{
		GroupID:     groupID,
		StudentID:   first.StudentID,
		StudentName: first.StudentName,
		Title:       baseTitle(first),
		Subject:     first.Subject,
		Cadence:     rule.Cadence,
		Count:       rule.Bound.Count,
		EndDate:     first.Recurrence.EndDate,
		Stored:      len(occs),
		FirstStart:  first.Start,
		LastStart:   last.Start,
		Lessons:     occs,
	}

	// the rule restarts at the first stored occurrence
	rrRule := rule
	if rrRule.Bound.IsCount() {
		rrRule.Bound.Count -= first.Recurrence.Occurrence - 1
	}
	s.RRule = rrRule.RRule(first.Start, seriesAnchorDay(monthlyTail(occs)))
	return s, nil
}

// UpdateOccurrence edits a single lesson. Start and end may only change on one-off lessons:
// the occurrences of a series keep to its cadence.
func (svc *Service) UpdateOccurrence(ctx context.Context, id string, ou OccurrenceUpdate) (Lesson, error) {
	if err := ou.FieldOverrides.validate(); err != nil {
		return Lesson{}, err
	}

	l, err := svc.repo.GetLesson(ctx, id)
	if err != nil {
		return Lesson{}, storageErr("finding lesson", err)
	}
	l.in(svc.loc)
	orig := l

	if ou.Start != nil || ou.End != nil {
		if l.IsRecurring {
			return Lesson{}, core.NewValidationError(nil, core.FieldError{
				Field: "start_time", Error: "the times of a series occurrence change with the series",
			})
		}
		start, end := l.Start, l.End
		if ou.Start != nil {
			start = ou.Start.In(svc.loc).Truncate(time.Minute)
		}
		if ou.End != nil {
			end = ou.End.In(svc.loc).Truncate(time.Minute)
		} else if ou.Duration == nil {
			end = start.Add(end.Sub(l.Start))
		}
		if !end.After(start) {
			return Lesson{}, errors.Wrap(ErrInvalidSeed, "end time must be after start time")
		}
		l.setSpan(start, end.Sub(start))
		ou.Duration = nil
	}

	upd := ou.FieldOverrides.merge(l)
	if ou.Title != nil {
		upd.Title = *ou.Title
	}
	if upd.sameAs(orig) {
		return orig, nil
	}
	upd.UpdatedAt = nowFunc()

	upd, err = svc.repo.UpdateLesson(ctx, upd)
	if err != nil {
		return Lesson{}, storageErr("updating lesson", err)
	}
	upd.in(svc.loc)
	return upd, nil
}

// DueReminders returns the lessons whose reminder falls in (from, to].
func (svc *Service) DueReminders(ctx context.Context, from, to time.Time, lookahead time.Duration) ([]Lesson, error) {
	filter := &QueryFilter{StartFrom: from, StartTo: to.Add(lookahead), WithReminder: true}
	lessons, err := svc.repo.QueryLessons(ctx, filter, []core.DBOrdering{{Field: "start_time", Ascending: true}})
	if err != nil {
		return nil, storageErr("querying reminders", err)
	}

	due := make([]Lesson, 0, len(lessons))
	for _, l := range svc.local(lessons) {
		at := l.ReminderAt()
		if at.After(from) && !at.After(to) {
			due = append(due, l)
		}
	}
	return due, nil
}

// Report summarizes the lessons matching filter.
func (svc *Service) Report(ctx context.Context, filter *QueryFilter) (Summary, error) {
	lessons, err := svc.repo.QueryLessons(ctx, filter, nil)
	if err != nil {
		return Summary{}, storageErr("querying lessons", err)
	}
	return Summarize(lessons), nil
}
