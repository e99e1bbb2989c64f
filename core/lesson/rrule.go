package lesson

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/teambition/rrule-go"
)

// ParseRRule converts an RFC 5545 recurrence rule into a Rule.
// Only what a series can express is accepted: FREQ=WEEKLY with INTERVAL 1 or 2, FREQ=MONTHLY with INTERVAL 1,
// and exactly one of COUNT and UNTIL. BYMONTHDAY/BYSETPOS are tolerated on monthly rules since month-end
// clipping is implied. UNTIL is read in loc when it carries no zone.
func ParseRRule(s string, loc *time.Location) (Rule, error) {
	s = strings.TrimSpace(s)
	lines := strings.Split(s, "\n")
	lines[len(lines)-1] = strings.TrimPrefix(strings.TrimSpace(lines[len(lines)-1]), "RRULE:")

	opt, err := rrule.StrToROptionInLocation(strings.Join(lines, "\n"), loc)
	if err != nil {
		return Rule{}, errors.Wrap(ErrInvalidRule, err.Error())
	}
	if len(opt.Byweekday) > 0 || len(opt.Bymonth) > 0 || len(opt.Byyearday) > 0 || len(opt.Byweekno) > 0 ||
		len(opt.Byhour) > 0 || len(opt.Byminute) > 0 || len(opt.Bysecond) > 0 || len(opt.Byeaster) > 0 {
		return Rule{}, errors.Wrap(ErrInvalidRule, "rrule may not narrow occurrences with BY* parts")
	}

	interval := opt.Interval
	if interval == 0 {
		interval = 1
	}

	var rule Rule
	switch {
	case opt.Freq == rrule.WEEKLY && interval == 1:
		rule.Cadence = Weekly
	case opt.Freq == rrule.WEEKLY && interval == 2:
		rule.Cadence = Biweekly
	case opt.Freq == rrule.MONTHLY && interval == 1:
		rule.Cadence = Monthly
	default:
		return Rule{}, errors.Wrap(ErrInvalidRule, "only weekly, biweekly (INTERVAL=2) and monthly rules are supported")
	}
	if rule.Cadence != Monthly && (len(opt.Bymonthday) > 0 || len(opt.Bysetpos) > 0) {
		return Rule{}, errors.Wrap(ErrInvalidRule, "rrule may not narrow occurrences with BY* parts")
	}

	rule.Bound.Count = opt.Count
	if !opt.Until.IsZero() {
		rule.Bound.EndDate = opt.Until.In(loc)
	}
	return rule, rule.Validate()
}

// ROption describes the rule in rrule-go terms, starting at dtstart.
// A monthly anchor past the 28th becomes "the last of days 28..anchor", which is how RFC 5545 spells clipping.
func (r Rule) ROption(dtstart time.Time, anchorDay int) rrule.ROption {
	opt := rrule.ROption{
		Freq:     rrule.WEEKLY,
		Interval: 1,
		Dtstart:  dtstart,
		Count:    r.Bound.Count,
		Until:    r.Bound.EndDate,
	}
	switch r.Cadence {
	case Biweekly:
		opt.Interval = 2
	case Monthly:
		opt.Freq = rrule.MONTHLY
		if anchorDay > 28 {
			for d := 28; d <= anchorDay; d++ {
				opt.Bymonthday = append(opt.Bymonthday, d)
			}
			opt.Bysetpos = []int{-1}
		}
	}
	return opt
}

// RRule renders the rule as an RRULE value (without DTSTART).
func (r Rule) RRule(dtstart time.Time, anchorDay int) string {
	opt := r.ROption(dtstart, anchorDay)
	return opt.RRuleString()
}
