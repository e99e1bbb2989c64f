package lesson

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/tutorly/core"
)

const (
	opCreate = "create"
	opUpdate = "update"
	opDelete = "delete"
)

// batch runs the writes of a multi-occurrence operation one at a time.
// Atomic batches stop at the first failure; the others log it and go on.
type batch struct {
	atomic   bool
	exec     core.DBExecutor
	logger   core.Logger
	affected int
	failures []BatchFailure
	err      error
}

// do reports whether the write went through.
func (b *batch) do(op, id string, fn func(exec core.DBExecutor) error) bool {
	if b.err != nil {
		return false
	}

	if err := fn(b.exec); err != nil {
		if b.atomic {
			b.err = storageErr(op+" lesson", err)
			return false
		}
		b.logger.Error(fmt.Sprintf("%s lesson %s: %v", op, id, err), err)
		b.failures = append(b.failures, BatchFailure{Op: op, LessonID: id, Err: err})
		return false
	}
	b.affected++
	return true
}

// runBatch hands fn a batch bound to a transaction when batches are atomic, to the database otherwise.
// It returns the number of rows written, or 0 when the transaction was rolled back.
func (svc *Service) runBatch(ctx context.Context, fn func(b *batch) error) (int, error) {
	b := &batch{atomic: svc.atomic, exec: svc.db, logger: svc.logger}

	if !b.atomic {
		if err := fn(b); err != nil {
			return b.affected, err
		}
		if len(b.failures) > 0 {
			return b.affected, &BatchError{Affected: b.affected, Failures: b.failures}
		}
		return b.affected, nil
	}

	tx, err := svc.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, storageErr("starting transaction", err)
	}
	b.exec = tx

	err = fn(b)
	if err == nil {
		err = b.err
	}
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			svc.logger.Error(fmt.Sprintf("rolling back lesson batch: %v", rbErr), rbErr)
		}
		return 0, err
	}
	if err = tx.Commit(); err != nil {
		return 0, storageErr("committing transaction", err)
	}
	return b.affected, nil
}

// loadSeries reads the stored occurrences of a group, sorted by occurrence number.
func (svc *Service) loadSeries(ctx context.Context, groupID string, exec core.DBExecutor) ([]Lesson, error) {
	occs, err := svc.repo.QuerySeries(ctx, groupID, exec)
	if err != nil {
		return nil, storageErr("loading series", err)
	}
	if len(occs) == 0 {
		return nil, errors.Wrapf(ErrNotFound, "no lessons in series %s", groupID)
	}
	return svc.local(occs), nil
}

// DeleteOccurrence removes one lesson. The rest of its series keeps its numbering.
func (svc *Service) DeleteOccurrence(ctx context.Context, id string) (int, error) {
	if err := svc.repo.DeleteLesson(ctx, id); err != nil {
		return 0, storageErr("deleting lesson", err)
	}
	return 1, nil
}

// DeleteFollowing removes the lesson and every later occurrence of its series.
func (svc *Service) DeleteFollowing(ctx context.Context, id string) (int, error) {
	l, err := svc.Get(ctx, id)
	if err != nil {
		return 0, err
	}
	if !l.IsRecurring {
		return svc.DeleteOccurrence(ctx, id)
	}
	return svc.DeleteFrom(ctx, l.GroupID(), l.Start)
}

// DeleteFrom removes the occurrences of a series starting at or after from.
// Earlier occurrences are left as they are, stored bound included.
func (svc *Service) DeleteFrom(ctx context.Context, groupID string, from time.Time) (int, error) {
	return svc.runBatch(ctx, func(b *batch) error {
		occs, err := svc.loadSeries(ctx, groupID, b.exec)
		if err != nil {
			return err
		}
		for _, occ := range occs {
			if occ.Start.Before(from) {
				continue
			}
			id := occ.ID
			b.do(opDelete, id, func(exec core.DBExecutor) error {
				return svc.repo.DeleteLesson(ctx, id, exec)
			})
		}
		return nil
	})
}

// DeleteSeries removes every occurrence of a series in one statement.
func (svc *Service) DeleteSeries(ctx context.Context, groupID string) (int, error) {
	n, err := svc.repo.DeleteSeries(ctx, groupID)
	if err != nil {
		return 0, storageErr("deleting series", err)
	}
	if n == 0 {
		return 0, errors.Wrapf(ErrNotFound, "no lessons in series %s", groupID)
	}
	svc.logger.Info(fmt.Sprintf("series %s deleted: %d lessons", groupID, n))
	return n, nil
}

// DeleteSeriesOf removes the whole series the lesson belongs to, or the lesson alone when it is a one-off.
func (svc *Service) DeleteSeriesOf(ctx context.Context, id string) (int, error) {
	l, err := svc.Get(ctx, id)
	if err != nil {
		return 0, err
	}
	if !l.IsRecurring {
		return svc.DeleteOccurrence(ctx, id)
	}
	return svc.DeleteSeries(ctx, l.GroupID())
}

// UpdateSeries applies su to every stored occurrence of a series and returns how many rows were
// updated, deleted or created. Existing occurrences keep their start; a new recurrence trims the
// occurrences past its bound and extends the series from the last one kept. A recurrence with
// only a count or an end date keeps the series' cadence.
func (svc *Service) UpdateSeries(ctx context.Context, groupID string, su SeriesUpdate) (int, error) {
	var rule *Rule
	if su.Recurrence != nil {
		rr := *su.Recurrence
		if rr.keepsCadence() {
			// stands in for the stored cadence until the series is loaded
			rr.Cadence = Weekly
		}
		r, err := rr.Rule(svc.loc)
		if err != nil {
			return 0, err
		}
		rule = &r
	}
	if err := su.FieldOverrides.validate(); err != nil {
		return 0, err
	}

	var plan seriesPlan
	affected, err := svc.runBatch(ctx, func(b *batch) error {
		occs, err := svc.loadSeries(ctx, groupID, b.exec)
		if err != nil {
			return err
		}
		if rule != nil && su.Recurrence.keepsCadence() {
			rule.Cadence = occs[0].Recurrence.Cadence
		}
		if plan, err = planSeriesUpdate(occs, su.FieldOverrides, rule); err != nil {
			return err
		}

		now := nowFunc()
		for _, occ := range plan.deletes {
			id := occ.ID
			b.do(opDelete, id, func(exec core.DBExecutor) error {
				return svc.repo.DeleteLesson(ctx, id, exec)
			})
		}
		for _, occ := range plan.updates {
			occ := occ
			occ.UpdatedAt = now
			b.do(opUpdate, occ.ID, func(exec core.DBExecutor) error {
				_, err := svc.repo.UpdateLesson(ctx, occ, exec)
				return err
			})
		}
		for _, occ := range plan.creates {
			occ := occ
			occ.CreatedAt = now
			occ.UpdatedAt = now
			b.do(opCreate, "", func(exec core.DBExecutor) error {
				_, err := svc.repo.CreateLesson(ctx, occ, exec)
				return err
			})
		}
		return nil
	})

	if err == nil || affected > 0 {
		svc.logger.Info(fmt.Sprintf("series %s updated: %d updated, %d deleted, %d created",
			groupID, len(plan.updates), len(plan.deletes), len(plan.creates)))
	}
	return affected, err
}

type seriesPlan struct {
	updates []Lesson
	deletes []Lesson
	creates []Lesson
}

// planSeriesUpdate works out the writes of a series update over occs, sorted by occurrence number.
// A nil rule only edits fields. Occurrences left unchanged are not part of the plan.
func planSeriesUpdate(occs []Lesson, fo FieldOverrides, rule *Rule) (seriesPlan, error) {
	var plan seriesPlan
	if len(occs) == 0 {
		return plan, ErrNotFound
	}
	if rule != nil {
		if err := rule.Validate(); err != nil {
			return plan, err
		}
	}
	oldCadence := occs[0].Recurrence.Cadence

	retained := make([]Lesson, 0, len(occs))
	for _, occ := range occs {
		n := occ.Recurrence.Occurrence
		occRule := occ.Recurrence.Rule()
		if rule != nil {
			if !rule.Bound.includes(n, occ.Start) {
				plan.deletes = append(plan.deletes, occ)
				continue
			}
			occRule = *rule
		}

		upd := fo.merge(occ)
		upd.Recurrence = newRecurrence(occ.GroupID(), n, occRule)
		if fo.Title != nil || upd.Recurrence.Count != occ.Recurrence.Count {
			base := baseTitle(occ)
			if fo.Title != nil {
				base = *fo.Title
			}
			upd.Title = occRule.title(base, n)
		}

		if !upd.sameAs(occ) {
			plan.updates = append(plan.updates, upd)
		}
		retained = append(retained, upd)
	}

	if rule == nil || len(retained) == 0 {
		return plan, nil
	}

	last := retained[len(retained)-1]
	anchor := last.Start.Day()
	if rule.Cadence == Monthly && oldCadence == Monthly {
		anchor = seriesAnchorDay(monthlyTail(retained))
	}
	base := baseTitle(last)
	if fo.Title != nil {
		base = *fo.Title
	}
	dur := last.End.Sub(last.Start)

	start := advance(last.Start, rule.Cadence, anchor)
	for n := last.Recurrence.Occurrence + 1; rule.Bound.includes(n, start); n++ {
		if n > MaxOccurrences {
			return seriesPlan{}, errors.Wrapf(ErrInvalidRule, "series would exceed %d occurrences", MaxOccurrences)
		}
		plan.creates = append(plan.creates, occurrence(last, base, start, dur, last.GroupID(), n, *rule))
		start = advance(start, rule.Cadence, anchor)
	}
	return plan, nil
}
