package lesson

import (
	"fmt"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 2030-01-07 is a Monday
var monday = time.Date(2030, time.January, 7, 16, 0, 0, 0, time.UTC)

func testSeed(start time.Time) Seed {
	return Seed{
		StudentID:   "stu",
		StudentName: "Amani Kabila",
		Title:       "Algebra",
		Subject:     "Math",
		Location:    "Library",
		Description: "bring a calculator",
		Reminder:    30,
		Start:       start,
		End:         start.Add(time.Hour),
	}
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 16, 0, 0, 0, time.UTC)
}

func starts(occs []Lesson) []time.Time {
	res := make([]time.Time, 0, len(occs))
	for _, occ := range occs {
		res = append(res, occ.Start)
	}
	return res
}

func endOfDay(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 23, 59, 59, 0, time.UTC)
}

func TestExpand(t *testing.T) {
	tests := []struct {
		name       string
		seed       Seed
		rule       Rule
		wantStarts []time.Time
		wantErr    error
	}{
		{
			name:       "weekly by count",
			seed:       testSeed(monday),
			rule:       Rule{Cadence: Weekly, Bound: Bound{Count: 4}},
			wantStarts: []time.Time{day(2030, 1, 7), day(2030, 1, 14), day(2030, 1, 21), day(2030, 1, 28)},
		},
		{
			name:       "biweekly by count",
			seed:       testSeed(monday),
			rule:       Rule{Cadence: Biweekly, Bound: Bound{Count: 3}},
			wantStarts: []time.Time{day(2030, 1, 7), day(2030, 1, 21), day(2030, 2, 4)},
		},
		{
			name:       "monthly from the 31st",
			seed:       testSeed(day(2030, 1, 31)),
			rule:       Rule{Cadence: Monthly, Bound: Bound{Count: 5}},
			wantStarts: []time.Time{day(2030, 1, 31), day(2030, 2, 28), day(2030, 3, 31), day(2030, 4, 30), day(2030, 5, 31)},
		},
		{
			name:       "monthly over a leap february",
			seed:       testSeed(day(2032, 1, 30)),
			rule:       Rule{Cadence: Monthly, Bound: Bound{Count: 3}},
			wantStarts: []time.Time{day(2032, 1, 30), day(2032, 2, 29), day(2032, 3, 30)},
		},
		{
			name:       "monthly over new year",
			seed:       testSeed(day(2030, 11, 15)),
			rule:       Rule{Cadence: Monthly, Bound: Bound{Count: 3}},
			wantStarts: []time.Time{day(2030, 11, 15), day(2030, 12, 15), day(2031, 1, 15)},
		},
		{
			name:       "weekly by end date",
			seed:       testSeed(monday),
			rule:       Rule{Cadence: Weekly, Bound: Bound{EndDate: endOfDay(2030, 1, 28)}},
			wantStarts: []time.Time{day(2030, 1, 7), day(2030, 1, 14), day(2030, 1, 21), day(2030, 1, 28)},
		},
		{
			name:       "end date on the last start",
			seed:       testSeed(monday),
			rule:       Rule{Cadence: Weekly, Bound: Bound{EndDate: day(2030, 1, 21)}},
			wantStarts: []time.Time{day(2030, 1, 7), day(2030, 1, 14), day(2030, 1, 21)},
		},
		{
			name:       "end date before the seed",
			seed:       testSeed(monday),
			rule:       Rule{Cadence: Weekly, Bound: Bound{EndDate: endOfDay(2030, 1, 1)}},
			wantStarts: []time.Time{},
		},
		{
			name:       "single occurrence",
			seed:       testSeed(monday),
			rule:       Rule{Cadence: Monthly, Bound: Bound{Count: 1}},
			wantStarts: []time.Time{day(2030, 1, 7)},
		},
		{name: "no bound", seed: testSeed(monday), rule: Rule{Cadence: Weekly}, wantErr: ErrInvalidRule},
		{name: "both bounds", seed: testSeed(monday), rule: Rule{Cadence: Weekly, Bound: Bound{Count: 2, EndDate: endOfDay(2030, 2, 1)}}, wantErr: ErrInvalidRule},
		{name: "negative count", seed: testSeed(monday), rule: Rule{Cadence: Weekly, Bound: Bound{Count: -1}}, wantErr: ErrInvalidRule},
		{name: "count too large", seed: testSeed(monday), rule: Rule{Cadence: Weekly, Bound: Bound{Count: MaxOccurrences + 1}}, wantErr: ErrInvalidRule},
		{name: "end date too far", seed: testSeed(monday), rule: Rule{Cadence: Weekly, Bound: Bound{EndDate: endOfDay(2045, 1, 1)}}, wantErr: ErrInvalidRule},
		{name: "unknown cadence", seed: testSeed(monday), rule: Rule{Cadence: "daily", Bound: Bound{Count: 2}}, wantErr: ErrInvalidRule},
		{
			name: "end before start",
			seed: func() Seed {
				s := testSeed(monday)
				s.End = monday.Add(-time.Hour)
				return s
			}(),
			rule:    Rule{Cadence: Weekly, Bound: Bound{Count: 2}},
			wantErr: ErrInvalidSeed,
		},
		{
			name: "no title",
			seed: func() Seed {
				s := testSeed(monday)
				s.Title = ""
				return s
			}(),
			rule:    Rule{Cadence: Weekly, Bound: Bound{Count: 2}},
			wantErr: ErrInvalidSeed,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			occs, err := Expand(tt.seed, tt.rule)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, errors.Cause(err))
				assert.Nil(t, occs)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantStarts, starts(occs))
		})
	}
}

func TestExpand_occurrences(t *testing.T) {
	seed := testSeed(monday)

	t.Run("count-bound", func(t *testing.T) {
		occs, err := Expand(seed, Rule{Cadence: Weekly, Bound: Bound{Count: 3}})
		require.NoError(t, err)
		require.Len(t, occs, 3)

		for i, occ := range occs {
			n := i + 1
			assert.Empty(t, occ.ID)
			assert.NotEmpty(t, occ.GroupID())
			assert.Equal(t, occs[0].GroupID(), occ.GroupID())
			assert.True(t, occ.IsRecurring)
			assert.Equal(t, n, occ.Recurrence.Occurrence)
			assert.Equal(t, 3, occ.Recurrence.Count)
			assert.Nil(t, occ.Recurrence.EndDate)
			assert.Equal(t, Weekly, occ.Recurrence.Cadence)
			assert.Equal(t, fmt.Sprintf("Algebra (%d/3)", n), occ.Title)
			assert.Equal(t, 60, occ.Duration)
			assert.Equal(t, occ.Start.Add(time.Hour), occ.End)
			assert.Equal(t, "stu", occ.StudentID)
			assert.Equal(t, "Amani Kabila", occ.StudentName)
			assert.Equal(t, "Math", occ.Subject)
			assert.Equal(t, "Library", occ.Location)
			assert.Equal(t, "bring a calculator", occ.Description)
			assert.Equal(t, 30, occ.Reminder)
		}
	})

	t.Run("date-bound", func(t *testing.T) {
		end := endOfDay(2030, 1, 14)
		occs, err := Expand(seed, Rule{Cadence: Weekly, Bound: Bound{EndDate: end}})
		require.NoError(t, err)
		require.Len(t, occs, 2)

		for _, occ := range occs {
			assert.Equal(t, "Algebra", occ.Title)
			assert.Zero(t, occ.Recurrence.Count)
			require.NotNil(t, occ.Recurrence.EndDate)
			assert.True(t, occ.Recurrence.EndDate.Equal(end))
		}
	})

	t.Run("occurrences do not share their recurrence", func(t *testing.T) {
		occs, err := Expand(seed, Rule{Cadence: Weekly, Bound: Bound{EndDate: endOfDay(2030, 1, 14)}})
		require.NoError(t, err)
		occs[0].Recurrence.Occurrence = 42
		*occs[0].Recurrence.EndDate = time.Time{}
		assert.Equal(t, 2, occs[1].Recurrence.Occurrence)
		assert.False(t, occs[1].Recurrence.EndDate.IsZero())
	})
}

func TestExpand_newGroupPerSeries(t *testing.T) {
	a, err := Expand(testSeed(monday), Rule{Cadence: Weekly, Bound: Bound{Count: 2}})
	require.NoError(t, err)
	b, err := Expand(testSeed(monday), Rule{Cadence: Weekly, Bound: Bound{Count: 2}})
	require.NoError(t, err)
	assert.NotEqual(t, a[0].GroupID(), b[0].GroupID())
}

func TestExpand_keepsWallClockAcrossDST(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	// DST starts on 2030-03-10 in New York
	start := time.Date(2030, time.March, 3, 10, 0, 0, 0, ny)
	occs, err := Expand(testSeed(start), Rule{Cadence: Weekly, Bound: Bound{Count: 3}})
	require.NoError(t, err)

	for _, occ := range occs {
		assert.Equal(t, 10, occ.Start.Hour())
		assert.Equal(t, 11, occ.End.Hour())
	}
	assert.Equal(t, 7*24*time.Hour-time.Hour, occs[1].Start.Sub(occs[0].Start))
}
