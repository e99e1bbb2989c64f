package lesson

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teambition/rrule-go"
)

func TestParseRRule(t *testing.T) {
	until := time.Date(2030, time.March, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		rrule   string
		want    Rule
		wantErr error
	}{
		{name: "weekly", rrule: "FREQ=WEEKLY;COUNT=5", want: Rule{Cadence: Weekly, Bound: Bound{Count: 5}}},
		{name: "weekly with interval 1", rrule: "FREQ=WEEKLY;INTERVAL=1;COUNT=5", want: Rule{Cadence: Weekly, Bound: Bound{Count: 5}}},
		{name: "prefixed", rrule: " RRULE:FREQ=WEEKLY;COUNT=2 ", want: Rule{Cadence: Weekly, Bound: Bound{Count: 2}}},
		{name: "biweekly until", rrule: "FREQ=WEEKLY;INTERVAL=2;UNTIL=20300301T000000Z", want: Rule{Cadence: Biweekly, Bound: Bound{EndDate: until}}},
		{name: "monthly", rrule: "FREQ=MONTHLY;COUNT=12", want: Rule{Cadence: Monthly, Bound: Bound{Count: 12}}},
		{
			name:  "monthly with month-end clipping",
			rrule: "FREQ=MONTHLY;COUNT=4;BYMONTHDAY=28,29,30,31;BYSETPOS=-1",
			want:  Rule{Cadence: Monthly, Bound: Bound{Count: 4}},
		},
		{name: "daily", rrule: "FREQ=DAILY;COUNT=5", wantErr: ErrInvalidRule},
		{name: "every three weeks", rrule: "FREQ=WEEKLY;INTERVAL=3;COUNT=5", wantErr: ErrInvalidRule},
		{name: "every other month", rrule: "FREQ=MONTHLY;INTERVAL=2;COUNT=5", wantErr: ErrInvalidRule},
		{name: "by day", rrule: "FREQ=WEEKLY;BYDAY=MO,WE;COUNT=5", wantErr: ErrInvalidRule},
		{name: "weekly by month day", rrule: "FREQ=WEEKLY;BYMONTHDAY=1;COUNT=5", wantErr: ErrInvalidRule},
		{name: "no bound", rrule: "FREQ=WEEKLY", wantErr: ErrInvalidRule},
		{name: "count too large", rrule: "FREQ=WEEKLY;COUNT=600", wantErr: ErrInvalidRule},
		{name: "garbage", rrule: "lol", wantErr: ErrInvalidRule},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRRule(tt.rrule, time.UTC)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, errors.Cause(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want.Cadence, got.Cadence)
			assert.Equal(t, tt.want.Bound.Count, got.Bound.Count)
			assert.True(t, tt.want.Bound.EndDate.Equal(got.Bound.EndDate), "EndDate = %v, want %v", got.Bound.EndDate, tt.want.Bound.EndDate)
		})
	}
}

// Expanding a rule must give the same starts as evaluating its RRULE form.
func TestRule_ROption(t *testing.T) {
	tests := []struct {
		name string
		seed time.Time
		rule Rule
	}{
		{name: "weekly", seed: monday, rule: Rule{Cadence: Weekly, Bound: Bound{Count: 10}}},
		{name: "biweekly", seed: monday, rule: Rule{Cadence: Biweekly, Bound: Bound{Count: 10}}},
		{name: "weekly until", seed: monday, rule: Rule{Cadence: Weekly, Bound: Bound{EndDate: endOfDay(2030, 3, 4)}}},
		{name: "monthly", seed: day(2030, 1, 15), rule: Rule{Cadence: Monthly, Bound: Bound{Count: 14}}},
		{name: "monthly from the 31st", seed: day(2030, 1, 31), rule: Rule{Cadence: Monthly, Bound: Bound{Count: 14}}},
		{name: "monthly from the 30th", seed: day(2031, 12, 30), rule: Rule{Cadence: Monthly, Bound: Bound{Count: 6}}},
		{name: "monthly from the 29th until", seed: day(2031, 11, 29), rule: Rule{Cadence: Monthly, Bound: Bound{EndDate: endOfDay(2032, 6, 1)}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			occs, err := Expand(testSeed(tt.seed), tt.rule)
			require.NoError(t, err)

			rr, err := rrule.NewRRule(tt.rule.ROption(tt.seed, tt.seed.Day()))
			require.NoError(t, err)
			want := rr.All()

			require.Len(t, occs, len(want))
			for i := range want {
				assert.True(t, want[i].Equal(occs[i].Start), "occurrence %d: %v, want %v", i+1, occs[i].Start, want[i])
			}
		})
	}
}

func TestRule_RRule(t *testing.T) {
	rules := []Rule{
		{Cadence: Weekly, Bound: Bound{Count: 4}},
		{Cadence: Biweekly, Bound: Bound{EndDate: time.Date(2030, time.June, 1, 23, 59, 59, 0, time.UTC)}},
		{Cadence: Monthly, Bound: Bound{Count: 6}},
	}
	for _, rule := range rules {
		t.Run(string(rule.Cadence), func(t *testing.T) {
			for _, anchor := range []int{7, 31} {
				got, err := ParseRRule(rule.RRule(monday, anchor), time.UTC)
				require.NoError(t, err)
				assert.Equal(t, rule.Cadence, got.Cadence)
				assert.True(t, rule.Bound.equal(got.Bound), "bound = %+v, want %+v", got.Bound, rule.Bound)
			}
		})
	}

	assert.Contains(t, Rule{Cadence: Monthly, Bound: Bound{Count: 3}}.RRule(monday, 31), "BYSETPOS=-1")
	assert.NotContains(t, Rule{Cadence: Monthly, Bound: Bound{Count: 3}}.RRule(monday, 15), "BYSETPOS")
}
