// Package reminder runs the periodic job that emails students before their lessons.
package reminder

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/pkg/errors"

	"github.com/trezcool/tutorly/core"
	"github.com/trezcool/tutorly/core/lesson"
)

const jobName = "lesson reminders"

type (
	LessonFinder interface {
		DueReminders(ctx context.Context, from, to time.Time, lookahead time.Duration) ([]lesson.Lesson, error)
	}

	Notifier interface {
		LessonReminder(ctx context.Context, l lesson.Lesson) (bool, error)
	}
)

// Scheduler sends every reminder whose time falls between two consecutive runs.
type Scheduler struct {
	lessons   LessonFinder
	notifier  Notifier
	logger    core.Logger
	loc       *time.Location
	interval  time.Duration
	lookahead time.Duration

	mu      sync.Mutex
	lastRun time.Time
	sched   gocron.Scheduler
}

func NewScheduler(lessons LessonFinder, notifier Notifier, logger core.Logger, conf *core.Config) *Scheduler {
	return &Scheduler{
		lessons:   lessons,
		notifier:  notifier,
		logger:    logger,
		loc:       conf.Location(),
		interval:  conf.Reminders.Interval,
		lookahead: conf.Reminders.Lookahead,
	}
}

// Start runs the job every interval until Shutdown. ctx is handed to each run.
func (s *Scheduler) Start(ctx context.Context) error {
	sched, err := gocron.NewScheduler(gocron.WithLocation(s.loc))
	if err != nil {
		return errors.Wrap(err, "creating scheduler")
	}

	_, err = sched.NewJob(
		gocron.DurationJob(s.interval),
		gocron.NewTask(func() {
			if _, err := s.RunOnce(ctx, time.Now()); err != nil {
				s.logger.Error(fmt.Sprintf("%s: %v", jobName, err), err)
			}
		}),
		gocron.WithName(jobName),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return errors.Wrap(err, "scheduling reminders")
	}

	s.sched = sched
	sched.Start()
	s.logger.Info(fmt.Sprintf("%s: running every %v", jobName, s.interval))
	return nil
}

func (s *Scheduler) Shutdown() error {
	if s.sched == nil {
		return nil
	}
	return errors.Wrap(s.sched.Shutdown(), "stopping scheduler")
}

// RunOnce emails the reminders due in (previous run, now]. The first run looks back one interval.
// It returns the number of emails sent; failed ones are logged and skipped.
func (s *Scheduler) RunOnce(ctx context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	from := s.lastRun
	if from.IsZero() {
		from = now.Add(-s.interval)
	}
	s.lastRun = now
	s.mu.Unlock()

	due, err := s.lessons.DueReminders(ctx, from, now, s.lookahead)
	if err != nil {
		return 0, errors.Wrap(err, "finding due reminders")
	}

	var sent int
	for _, l := range due {
		ok, err := s.notifier.LessonReminder(ctx, l)
		if err != nil {
			s.logger.Error(fmt.Sprintf("reminding lesson %s: %v", l.ID, err), err)
			continue
		}
		if ok {
			sent++
		}
	}
	return sent, nil
}
