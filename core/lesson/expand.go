package lesson

import (
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// MaxOccurrences caps the length of a series (ten years of weekly lessons).
const MaxOccurrences = 520

var newGroupID = func() string { return uuid.New().String() } // mockable

// Expand turns a seed lesson and a recurrence rule into the ordered occurrences of a new series.
// The occurrences are drafts: they share a fresh group identifier but have no ID until stored.
// A date-bound rule ending before the seed starts yields no occurrences and no error.
func Expand(seed Seed, rule Rule) ([]Lesson, error) {
	if err := seed.validate(); err != nil {
		return nil, err
	}
	if err := rule.Validate(); err != nil {
		return nil, err
	}

	groupID := newGroupID()
	base := seed.lesson()
	dur := base.End.Sub(base.Start)
	anchor := seed.Start.Day()

	var occs []Lesson
	start := seed.Start
	for n := 1; rule.Bound.includes(n, start); n++ {
		if n > MaxOccurrences {
			return nil, errors.Wrapf(ErrInvalidRule, "series would exceed %d occurrences", MaxOccurrences)
		}
		occs = append(occs, occurrence(base, seed.Title, start, dur, groupID, n, rule))
		start = advance(start, rule.Cadence, anchor)
	}
	return occs, nil
}

// occurrence builds the n-th occurrence of a series from a template lesson.
func occurrence(tmpl Lesson, title string, start time.Time, dur time.Duration, groupID string, n int, rule Rule) Lesson {
	occ := tmpl
	occ.ID = ""
	occ.setSpan(start, dur)
	occ.Title = rule.title(title, n)
	occ.IsRecurring = true
	occ.Recurrence = newRecurrence(groupID, n, rule)
	return occ
}
