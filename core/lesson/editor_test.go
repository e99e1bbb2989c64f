package lesson

import (
	"fmt"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// storedSeries expands a series and gives its occurrences IDs, as if they had been stored.
func storedSeries(t *testing.T, start time.Time, rule Rule) []Lesson {
	occs, err := Expand(testSeed(start), rule)
	require.NoError(t, err)
	for i := range occs {
		occs[i].ID = fmt.Sprintf("l%d", i+1)
	}
	return occs
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func titlesOf(occs []Lesson) []string {
	res := make([]string, 0, len(occs))
	for _, occ := range occs {
		res = append(res, occ.Title)
	}
	return res
}

func idsOf(occs []Lesson) []string {
	res := make([]string, 0, len(occs))
	for _, occ := range occs {
		res = append(res, occ.ID)
	}
	return res
}

func numbersOf(occs []Lesson) []int {
	res := make([]int, 0, len(occs))
	for _, occ := range occs {
		res = append(res, occ.Recurrence.Occurrence)
	}
	return res
}

// applyPlan returns the occurrences stored once plan has been written.
func applyPlan(occs []Lesson, plan seriesPlan) []Lesson {
	updated := make(map[string]Lesson, len(plan.updates))
	for _, upd := range plan.updates {
		updated[upd.ID] = upd
	}
	deleted := make(map[string]bool, len(plan.deletes))
	for _, del := range plan.deletes {
		deleted[del.ID] = true
	}

	res := make([]Lesson, 0, len(occs)+len(plan.creates))
	for _, occ := range occs {
		if deleted[occ.ID] {
			continue
		}
		if upd, ok := updated[occ.ID]; ok {
			occ = upd
		}
		res = append(res, occ)
	}
	for i, occ := range plan.creates {
		occ.ID = fmt.Sprintf("c%d", i+1)
		res = append(res, occ)
	}
	return res
}

func TestPlanSeriesUpdate_fields(t *testing.T) {
	weekly4 := Rule{Cadence: Weekly, Bound: Bound{Count: 4}}

	t.Run("no changes", func(t *testing.T) {
		occs := storedSeries(t, monday, weekly4)
		plan, err := planSeriesUpdate(occs, FieldOverrides{}, nil)
		require.NoError(t, err)
		assert.Empty(t, plan.updates)
		assert.Empty(t, plan.deletes)
		assert.Empty(t, plan.creates)
	})

	t.Run("same values", func(t *testing.T) {
		occs := storedSeries(t, monday, weekly4)
		plan, err := planSeriesUpdate(occs, FieldOverrides{Location: strPtr("Library"), Reminder: intPtr(30)}, nil)
		require.NoError(t, err)
		assert.Empty(t, plan.updates)
	})

	t.Run("location and duration", func(t *testing.T) {
		occs := storedSeries(t, monday, weekly4)
		plan, err := planSeriesUpdate(occs, FieldOverrides{Location: strPtr("Online"), Duration: intPtr(45)}, nil)
		require.NoError(t, err)
		require.Len(t, plan.updates, 4)
		assert.Empty(t, plan.deletes)
		assert.Empty(t, plan.creates)

		for i, upd := range plan.updates {
			assert.Equal(t, occs[i].ID, upd.ID)
			assert.Equal(t, "Online", upd.Location)
			assert.Equal(t, 45, upd.Duration)
			assert.True(t, upd.Start.Equal(occs[i].Start))
			assert.True(t, upd.End.Equal(occs[i].Start.Add(45*time.Minute)))
			assert.Equal(t, occs[i].Title, upd.Title)
		}
		// the stored occurrences are left alone
		assert.Equal(t, "Library", occs[0].Location)
	})

	t.Run("title keeps the numbering", func(t *testing.T) {
		occs := storedSeries(t, monday, weekly4)
		plan, err := planSeriesUpdate(occs, FieldOverrides{Title: strPtr("Geometry")}, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"Geometry (1/4)", "Geometry (2/4)", "Geometry (3/4)", "Geometry (4/4)"}, titlesOf(plan.updates))
	})

	t.Run("title of a date-bound series", func(t *testing.T) {
		occs := storedSeries(t, monday, Rule{Cadence: Weekly, Bound: Bound{EndDate: endOfDay(2030, 1, 21)}})
		plan, err := planSeriesUpdate(occs, FieldOverrides{Title: strPtr("Geometry")}, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"Geometry", "Geometry", "Geometry"}, titlesOf(plan.updates))
	})

	t.Run("after a deleted occurrence", func(t *testing.T) {
		occs := storedSeries(t, monday, weekly4)
		occs = append(occs[:1], occs[2:]...)
		plan, err := planSeriesUpdate(occs, FieldOverrides{Title: strPtr("Geometry")}, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"Geometry (1/4)", "Geometry (3/4)", "Geometry (4/4)"}, titlesOf(plan.updates))
	})

	t.Run("no occurrences", func(t *testing.T) {
		_, err := planSeriesUpdate(nil, FieldOverrides{}, nil)
		assert.Equal(t, ErrNotFound, errors.Cause(err))
	})
}

func TestPlanSeriesUpdate_rule(t *testing.T) {
	tests := []struct {
		name        string
		occs        func(t *testing.T) []Lesson
		fo          FieldOverrides
		rule        Rule
		wantUpdates []string // titles
		wantDeletes []string // ids
		wantCreates []time.Time
		wantNumbers []int // of the creates
		wantErr     error
	}{
		{
			name:        "same rule",
			occs:        func(t *testing.T) []Lesson { return storedSeries(t, monday, Rule{Cadence: Weekly, Bound: Bound{Count: 3}}) },
			rule:        Rule{Cadence: Weekly, Bound: Bound{Count: 3}},
			wantUpdates: []string{},
			wantDeletes: []string{},
			wantCreates: []time.Time{},
		},
		{
			name:        "shrink",
			occs:        func(t *testing.T) []Lesson { return storedSeries(t, monday, Rule{Cadence: Weekly, Bound: Bound{Count: 4}}) },
			rule:        Rule{Cadence: Weekly, Bound: Bound{Count: 2}},
			wantUpdates: []string{"Algebra (1/2)", "Algebra (2/2)"},
			wantDeletes: []string{"l3", "l4"},
			wantCreates: []time.Time{},
		},
		{
			name:        "extend",
			occs:        func(t *testing.T) []Lesson { return storedSeries(t, monday, Rule{Cadence: Weekly, Bound: Bound{Count: 2}}) },
			rule:        Rule{Cadence: Weekly, Bound: Bound{Count: 4}},
			wantUpdates: []string{"Algebra (1/4)", "Algebra (2/4)"},
			wantDeletes: []string{},
			wantCreates: []time.Time{day(2030, 1, 21), day(2030, 1, 28)},
			wantNumbers: []int{3, 4},
		},
		{
			name: "extend after deleting the tail",
			occs: func(t *testing.T) []Lesson {
				return storedSeries(t, monday, Rule{Cadence: Weekly, Bound: Bound{Count: 4}})[:2]
			},
			rule:        Rule{Cadence: Weekly, Bound: Bound{Count: 3}},
			wantUpdates: []string{"Algebra (1/3)", "Algebra (2/3)"},
			wantDeletes: []string{},
			wantCreates: []time.Time{day(2030, 1, 21)},
			wantNumbers: []int{3},
		},
		{
			name:        "count to end date",
			occs:        func(t *testing.T) []Lesson { return storedSeries(t, monday, Rule{Cadence: Weekly, Bound: Bound{Count: 4}}) },
			rule:        Rule{Cadence: Weekly, Bound: Bound{EndDate: endOfDay(2030, 1, 14)}},
			wantUpdates: []string{"Algebra", "Algebra"},
			wantDeletes: []string{"l3", "l4"},
			wantCreates: []time.Time{},
		},
		{
			name: "end date to count",
			occs: func(t *testing.T) []Lesson {
				return storedSeries(t, monday, Rule{Cadence: Weekly, Bound: Bound{EndDate: endOfDay(2030, 1, 14)}})
			},
			rule:        Rule{Cadence: Weekly, Bound: Bound{Count: 3}},
			wantUpdates: []string{"Algebra (1/3)", "Algebra (2/3)"},
			wantDeletes: []string{},
			wantCreates: []time.Time{day(2030, 1, 21)},
			wantNumbers: []int{3},
		},
		{
			name:        "weekly to biweekly keeps existing starts",
			occs:        func(t *testing.T) []Lesson { return storedSeries(t, monday, Rule{Cadence: Weekly, Bound: Bound{Count: 2}}) },
			rule:        Rule{Cadence: Biweekly, Bound: Bound{Count: 4}},
			wantUpdates: []string{"Algebra (1/4)", "Algebra (2/4)"},
			wantDeletes: []string{},
			wantCreates: []time.Time{day(2030, 1, 28), day(2030, 2, 11)},
			wantNumbers: []int{3, 4},
		},
		{
			name:        "monthly extension keeps the month-end anchor",
			occs:        func(t *testing.T) []Lesson { return storedSeries(t, day(2030, 1, 31), Rule{Cadence: Monthly, Bound: Bound{Count: 2}}) },
			rule:        Rule{Cadence: Monthly, Bound: Bound{Count: 4}},
			wantUpdates: []string{"Algebra (1/4)", "Algebra (2/4)"},
			wantDeletes: []string{},
			wantCreates: []time.Time{day(2030, 3, 31), day(2030, 4, 30)},
			wantNumbers: []int{3, 4},
		},
		{
			name: "weekly to monthly anchors on the last start",
			occs: func(t *testing.T) []Lesson {
				return storedSeries(t, day(2030, 1, 24), Rule{Cadence: Weekly, Bound: Bound{Count: 2}})
			},
			rule:        Rule{Cadence: Monthly, Bound: Bound{Count: 3}},
			wantUpdates: []string{"Algebra (1/3)", "Algebra (2/3)"},
			wantDeletes: []string{},
			wantCreates: []time.Time{day(2030, 2, 28)},
			wantNumbers: []int{3},
		},
		{
			name: "monthly extension ignores starts from a former weekly cadence",
			occs: func(t *testing.T) []Lesson {
				occs := storedSeries(t, day(2030, 1, 24), Rule{Cadence: Weekly, Bound: Bound{Count: 3}})
				plan, err := planSeriesUpdate(occs, FieldOverrides{}, &Rule{Cadence: Monthly, Bound: Bound{Count: 4}})
				require.NoError(t, err)
				require.Equal(t, []time.Time{day(2030, 3, 7)}, starts(plan.creates))
				return applyPlan(occs, plan)
			},
			rule:        Rule{Cadence: Monthly, Bound: Bound{Count: 5}},
			wantUpdates: []string{"Algebra (1/5)", "Algebra (2/5)", "Algebra (3/5)", "Algebra (4/5)"},
			wantDeletes: []string{},
			wantCreates: []time.Time{day(2030, 4, 7)},
			wantNumbers: []int{5},
		},
		{
			name:        "rule and title",
			occs:        func(t *testing.T) []Lesson { return storedSeries(t, monday, Rule{Cadence: Weekly, Bound: Bound{Count: 1}}) },
			fo:          FieldOverrides{Title: strPtr("Geometry"), Location: strPtr("Online")},
			rule:        Rule{Cadence: Weekly, Bound: Bound{Count: 2}},
			wantUpdates: []string{"Geometry (1/2)"},
			wantDeletes: []string{},
			wantCreates: []time.Time{day(2030, 1, 14)},
			wantNumbers: []int{2},
		},
		{
			name:    "invalid rule",
			occs:    func(t *testing.T) []Lesson { return storedSeries(t, monday, Rule{Cadence: Weekly, Bound: Bound{Count: 2}}) },
			rule:    Rule{Cadence: Weekly},
			wantErr: ErrInvalidRule,
		},
		{
			name:    "too long",
			occs:    func(t *testing.T) []Lesson { return storedSeries(t, monday, Rule{Cadence: Weekly, Bound: Bound{Count: 2}}) },
			rule:    Rule{Cadence: Weekly, Bound: Bound{EndDate: endOfDay(2045, 1, 1)}},
			wantErr: ErrInvalidRule,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			occs := tt.occs(t)
			rule := tt.rule
			plan, err := planSeriesUpdate(occs, tt.fo, &rule)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, errors.Cause(err))
				return
			}
			require.NoError(t, err)

			assert.Equal(t, tt.wantUpdates, titlesOf(plan.updates))
			assert.Equal(t, tt.wantDeletes, idsOf(plan.deletes))
			assert.Equal(t, tt.wantCreates, starts(plan.creates))
			if len(tt.wantNumbers) > 0 {
				assert.Equal(t, tt.wantNumbers, numbersOf(plan.creates))
			}

			groupID := occs[0].GroupID()
			for _, l := range append(plan.updates, plan.creates...) {
				assert.Equal(t, groupID, l.GroupID())
				assert.Equal(t, rule.Cadence, l.Recurrence.Cadence)
				assert.True(t, rule.Bound.equal(l.Recurrence.Rule().Bound))
				assert.Equal(t, 60, l.Duration)
				if tt.fo.Location != nil {
					assert.Equal(t, *tt.fo.Location, l.Location)
				}
			}
			for i, upd := range plan.updates {
				// existing occurrences never move
				assert.True(t, upd.Start.Equal(occs[i].Start))
			}
			for _, c := range plan.creates {
				assert.Empty(t, c.ID)
				assert.True(t, c.IsRecurring)
			}
		})
	}
}
