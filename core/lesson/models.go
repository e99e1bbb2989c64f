package lesson

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/tutorly/core"
)

type Cadence string

const (
	Weekly   Cadence = "weekly"
	Biweekly Cadence = "biweekly"
	Monthly  Cadence = "monthly"
)

var Cadences = []Cadence{Weekly, Biweekly, Monthly}

func (c Cadence) IsValid() bool {
	for _, known := range Cadences {
		if c == known {
			return true
		}
	}
	return false
}

// Bound ends a series, either after Count occurrences or with the last occurrence that does not start after EndDate.
// Exactly one of them is set.
type Bound struct {
	Count   int
	EndDate time.Time
}

func (b Bound) IsCount() bool {
	return b.Count != 0
}

func (b Bound) validate() error {
	switch {
	case b.Count != 0 && !b.EndDate.IsZero():
		return errors.Wrap(ErrInvalidRule, "only one of count and end_date may be set")
	case b.Count < 0:
		return errors.Wrap(ErrInvalidRule, "count must be positive")
	case b.Count > MaxOccurrences:
		return errors.Wrapf(ErrInvalidRule, "count must not exceed %d", MaxOccurrences)
	case b.Count == 0 && b.EndDate.IsZero():
		return errors.Wrap(ErrInvalidRule, "a positive count or an end_date is required")
	}
	return nil
}

// includes reports whether the occurrence numbered n and starting at start falls within the bound.
func (b Bound) includes(n int, start time.Time) bool {
	if b.IsCount() {
		return n <= b.Count
	}
	return !start.After(b.EndDate)
}

func (b Bound) equal(o Bound) bool {
	return b.Count == o.Count && b.EndDate.Equal(o.EndDate)
}

type Rule struct {
	Cadence Cadence
	Bound   Bound
}

func (r Rule) Validate() error {
	if !r.Cadence.IsValid() {
		return errors.Wrapf(ErrInvalidRule, "unknown cadence %q", r.Cadence)
	}
	return r.Bound.validate()
}

// title renders the title of the n-th occurrence. Count-bound series get a "(n/count)" suffix.
func (r Rule) title(base string, n int) string {
	if r.Bound.IsCount() {
		return base + occurrenceSuffix(n, r.Bound.Count)
	}
	return base
}

func occurrenceSuffix(n, count int) string {
	return fmt.Sprintf(" (%d/%d)", n, count)
}

// Recurrence holds the series metadata of a recurring lesson.
type Recurrence struct {
	GroupID    string     `json:"group_id"`
	Cadence    Cadence    `json:"cadence"`
	Occurrence int        `json:"occurrence_number"`           // 1-based
	Count      int        `json:"total_occurrences,omitempty"` // set for count-bound series
	EndDate    *time.Time `json:"end_date,omitempty"`          // set for date-bound series
}

func newRecurrence(groupID string, n int, rule Rule) *Recurrence {
	rec := &Recurrence{GroupID: groupID, Cadence: rule.Cadence, Occurrence: n, Count: rule.Bound.Count}
	if !rule.Bound.IsCount() {
		end := rule.Bound.EndDate
		rec.EndDate = &end
	}
	return rec
}

func (r *Recurrence) Rule() Rule {
	rule := Rule{Cadence: r.Cadence, Bound: Bound{Count: r.Count}}
	if r.EndDate != nil {
		rule.Bound.EndDate = *r.EndDate
	}
	return rule
}

func (r *Recurrence) equal(o *Recurrence) bool {
	if r == nil || o == nil {
		return r == o
	}
	return r.GroupID == o.GroupID &&
		r.Cadence == o.Cadence &&
		r.Occurrence == o.Occurrence &&
		r.Rule().Bound.equal(o.Rule().Bound)
}

// Lesson is one scheduled occurrence.
type Lesson struct {
	ID          string      `json:"id"`
	StudentID   string      `json:"student_id"`
	StudentName string      `json:"student_name"` // snapshot taken at creation
	Title       string      `json:"title"`
	Subject     string      `json:"subject"`
	Start       time.Time   `json:"start_time"`
	End         time.Time   `json:"end_time"`
	Duration    int         `json:"duration"` // minutes, always End - Start
	Location    string      `json:"location"`
	Description string      `json:"description"`
	Reminder    int         `json:"reminder"` // minutes before Start, 0 = none
	IsRecurring bool        `json:"is_recurring"`
	Recurrence  *Recurrence `json:"recurrence"`
	CreatedAt   time.Time   `json:"created_at"` // UTC
	UpdatedAt   time.Time   `json:"updated_at"` // UTC
}

// GroupID returns the series identifier, or "" for a one-off lesson.
func (l Lesson) GroupID() string {
	if l.Recurrence == nil {
		return ""
	}
	return l.Recurrence.GroupID
}

// ReminderAt is when the reminder for this lesson is due. Zero when the lesson has none.
func (l Lesson) ReminderAt() time.Time {
	if l.Reminder <= 0 {
		return time.Time{}
	}
	return l.Start.Add(-time.Duration(l.Reminder) * time.Minute)
}

func (l *Lesson) setSpan(start time.Time, dur time.Duration) {
	l.Start = start
	l.End = start.Add(dur)
	l.Duration = int(dur / time.Minute)
}

func (l *Lesson) in(loc *time.Location) {
	l.Start = l.Start.In(loc)
	l.End = l.End.In(loc)
	if l.Recurrence != nil && l.Recurrence.EndDate != nil {
		end := l.Recurrence.EndDate.In(loc)
		l.Recurrence.EndDate = &end
	}
}

// sameAs compares everything an edit may change.
func (l Lesson) sameAs(o Lesson) bool {
	return l.Title == o.Title &&
		l.Subject == o.Subject &&
		l.Location == o.Location &&
		l.Description == o.Description &&
		l.Reminder == o.Reminder &&
		l.Duration == o.Duration &&
		l.Start.Equal(o.Start) &&
		l.End.Equal(o.End) &&
		l.Recurrence.equal(o.Recurrence)
}

// baseTitle strips the "(n/count)" suffix a count-bound series adds to titles.
func baseTitle(l Lesson) string {
	if l.Recurrence == nil || l.Recurrence.Count == 0 {
		return l.Title
	}
	return strings.TrimSuffix(l.Title, occurrenceSuffix(l.Recurrence.Occurrence, l.Recurrence.Count))
}

// Seed is the lesson a series is expanded from.
type Seed struct {
	StudentID   string
	StudentName string
	Title       string
	Subject     string
	Location    string
	Description string
	Reminder    int
	Start       time.Time
	End         time.Time
}

func (s Seed) validate() error {
	switch {
	case s.StudentID == "":
		return errors.Wrap(ErrInvalidSeed, "a student is required")
	case s.Title == "":
		return errors.Wrap(ErrInvalidSeed, "a title is required")
	case s.Start.IsZero() || s.End.IsZero():
		return errors.Wrap(ErrInvalidSeed, "start and end times are required")
	case !s.End.After(s.Start):
		return errors.Wrap(ErrInvalidSeed, "end time must be after start time")
	case s.End.Sub(s.Start)%time.Minute != 0:
		return errors.Wrap(ErrInvalidSeed, "duration must be a whole number of minutes")
	case s.Reminder < 0:
		return errors.Wrap(ErrInvalidSeed, "reminder must not be negative")
	}
	return nil
}

func (s Seed) lesson() Lesson {
	l := Lesson{
		StudentID:   s.StudentID,
		StudentName: s.StudentName,
		Title:       s.Title,
		Subject:     s.Subject,
		Location:    s.Location,
		Description: s.Description,
		Reminder:    s.Reminder,
	}
	l.setSpan(s.Start, s.End.Sub(s.Start))
	return l
}

// Date binds either an RFC 3339 instant or a plain date (2006-01-02) from JSON or query params.
type Date struct {
	time.Time
	dateOnly bool
}

const dateLayout = "2006-01-02"

func (d *Date) UnmarshalParam(param string) error {
	param = strings.TrimSpace(param)
	if param == "" {
		*d = Date{}
		return nil
	}
	if t, err := time.Parse(dateLayout, param); err == nil {
		*d = Date{Time: t, dateOnly: true}
		return nil
	}
	t, err := time.Parse(time.RFC3339, param)
	if err != nil {
		return errors.Errorf("%q is neither a date (%s) nor an RFC 3339 time", param, dateLayout)
	}
	*d = Date{Time: t}
	return nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == "null" {
		*d = Date{}
		return nil
	}
	return d.UnmarshalParam(strings.Trim(s, `"`))
}

// StartIn returns the instant in loc; a plain date starts at midnight.
func (d Date) StartIn(loc *time.Location) time.Time {
	if d.IsZero() {
		return time.Time{}
	}
	if d.dateOnly {
		y, m, day := d.Date()
		return time.Date(y, m, day, 0, 0, 0, 0, loc)
	}
	return d.In(loc)
}

// EndIn returns the instant in loc; a plain date ends at its last second.
func (d Date) EndIn(loc *time.Location) time.Time {
	if d.IsZero() {
		return time.Time{}
	}
	if d.dateOnly {
		y, m, day := d.Date()
		return time.Date(y, m, day, 23, 59, 59, 0, loc)
	}
	return d.In(loc)
}

// RecurrenceRequest is the recurrence block of a create or series-update request.
// A rule is either structured (cadence + count or end_date) or an RFC 5545 RRULE.
type RecurrenceRequest struct {
	Cadence Cadence `json:"cadence" validate:"omitempty,cadence"`
	Count   int     `json:"count" validate:"min=0"`
	EndDate Date    `json:"end_date"`
	RRule   string  `json:"rrule" validate:"omitempty,rrule"`
}

func (rr RecurrenceRequest) Rule(loc *time.Location) (Rule, error) {
	if rr.RRule != "" {
		if rr.Cadence != "" || rr.Count != 0 || !rr.EndDate.IsZero() {
			return Rule{}, errors.Wrap(ErrInvalidRule, "rrule cannot be combined with cadence, count or end_date")
		}
		return ParseRRule(rr.RRule, loc)
	}
	rule := Rule{
		Cadence: rr.Cadence,
		Bound:   Bound{Count: rr.Count, EndDate: rr.EndDate.EndIn(loc)},
	}
	return rule, rule.Validate()
}

// keepsCadence reports whether rr only rebounds a series.
func (rr RecurrenceRequest) keepsCadence() bool {
	return rr.RRule == "" && rr.Cadence == ""
}

// NewLesson contains information needed to schedule a lesson or a series of lessons.
type NewLesson struct {
	StudentID   string             `json:"student_id" validate:"required"`
	Title       string             `json:"title" validate:"required,max=200"`
	Subject     string             `json:"subject" validate:"required,max=100"`
	Start       time.Time          `json:"start_time" validate:"required"`
	End         time.Time          `json:"end_time" validate:"required,gtfield=Start"`
	Location    string             `json:"location" validate:"required,max=200"`
	Description string             `json:"description"`
	Reminder    int                `json:"reminder" validate:"min=0,max=10080"`
	Recurrence  *RecurrenceRequest `json:"recurrence"`
}

func (nl *NewLesson) Clean() {
	nl.StudentID = core.CleanString(nl.StudentID)
	nl.Title = core.CleanString(nl.Title)
	nl.Subject = core.CleanString(nl.Subject)
	nl.Location = core.CleanString(nl.Location)
	nl.Description = core.CleanString(nl.Description)
	if nl.Recurrence != nil {
		nl.Recurrence.Cadence = Cadence(core.CleanString(string(nl.Recurrence.Cadence), true /* lower */))
		nl.Recurrence.RRule = core.CleanString(nl.Recurrence.RRule)
	}
}

func (nl *NewLesson) Validate(validate *validator.Validate) error {
	nl.Clean()
	return validate.Struct(nl)
}

// FieldOverrides are the non-temporal fields an edit may change. Nil fields are left untouched.
type FieldOverrides struct {
	Title       *string `json:"title" validate:"omitempty,min=1,max=200"`
	Subject     *string `json:"subject" validate:"omitempty,min=1,max=100"`
	Location    *string `json:"location" validate:"omitempty,min=1,max=200"`
	Description *string `json:"description"`
	Duration    *int    `json:"duration" validate:"omitempty,min=1,max=1440"`
	Reminder    *int    `json:"reminder" validate:"omitempty,min=0,max=10080"`
}

func (fo *FieldOverrides) clean() {
	for _, s := range []*string{fo.Title, fo.Subject, fo.Location, fo.Description} {
		if s != nil {
			*s = core.CleanString(*s)
		}
	}
}

func (fo FieldOverrides) validate() error {
	switch {
	case fo.Title != nil && *fo.Title == "":
		return errors.Wrap(ErrInvalidSeed, "title must not be empty")
	case fo.Duration != nil && *fo.Duration <= 0:
		return errors.Wrap(ErrInvalidSeed, "duration must be positive")
	case fo.Reminder != nil && *fo.Reminder < 0:
		return errors.Wrap(ErrInvalidSeed, "reminder must not be negative")
	}
	return nil
}

// merge returns l with the overrides applied. The title is left to the caller: series titles carry a suffix.
// A duration override moves the end, never the start.
func (fo FieldOverrides) merge(l Lesson) Lesson {
	if fo.Subject != nil {
		l.Subject = *fo.Subject
	}
	if fo.Location != nil {
		l.Location = *fo.Location
	}
	if fo.Description != nil {
		l.Description = *fo.Description
	}
	if fo.Reminder != nil {
		l.Reminder = *fo.Reminder
	}
	if fo.Duration != nil {
		l.setSpan(l.Start, time.Duration(*fo.Duration)*time.Minute)
	}
	return l
}

// SeriesUpdate edits every occurrence of a series. Without Recurrence only fields change:
// the series is neither trimmed nor extended.
type SeriesUpdate struct {
	FieldOverrides
	Recurrence *RecurrenceRequest `json:"recurrence"`
}

func (su *SeriesUpdate) Validate(validate *validator.Validate) error {
	su.clean()
	if su.Recurrence != nil {
		su.Recurrence.Cadence = Cadence(core.CleanString(string(su.Recurrence.Cadence), true /* lower */))
	}
	return validate.Struct(su)
}

// OccurrenceUpdate edits one lesson. Start and End may only move one-off lessons.
type OccurrenceUpdate struct {
	FieldOverrides
	Start *time.Time `json:"start_time"`
	End   *time.Time `json:"end_time"`
}

func (ou *OccurrenceUpdate) Validate(validate *validator.Validate) error {
	ou.clean()
	return validate.Struct(ou)
}

type QueryFilter struct {
	StudentID string `query:"student_id"`
	Subject   string `query:"subject"`
	GroupID   string `query:"group_id"`
	From      Date   `query:"from"`
	To        Date   `query:"to"`

	// resolved by Clean
	StartFrom time.Time `json:"-"`
	StartTo   time.Time `json:"-"`

	// WithReminder keeps only lessons that have a reminder set.
	WithReminder bool `json:"-"`
}

func (qf *QueryFilter) Clean(loc *time.Location) {
	qf.StudentID = core.CleanString(qf.StudentID)
	qf.Subject = core.CleanString(qf.Subject)
	qf.GroupID = core.CleanString(qf.GroupID)
	if !qf.From.IsZero() {
		qf.StartFrom = qf.From.StartIn(loc)
	}
	if !qf.To.IsZero() {
		qf.StartTo = qf.To.EndIn(loc)
	}
}

// Series is the derived view of all stored occurrences sharing a group identifier.
type Series struct {
	GroupID     string     `json:"group_id"`
	StudentID   string     `json:"student_id"`
	StudentName string     `json:"student_name"`
	Title       string     `json:"title"`
	Subject     string     `json:"subject"`
	Cadence     Cadence    `json:"cadence"`
	Count       int        `json:"total_occurrences,omitempty"`
	EndDate     *time.Time `json:"end_date,omitempty"`
	Stored      int        `json:"stored_occurrences"`
	FirstStart  time.Time  `json:"first_start"`
	LastStart   time.Time  `json:"last_start"`
	RRule       string     `json:"rrule"`
	Lessons     []Lesson   `json:"lessons"`
}
