// Package calendar exports lessons as iCalendar (RFC 5545) feeds.
package calendar

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/trezcool/tutorly/core"
	"github.com/trezcool/tutorly/core/lesson"
)

const ContentType = "text/calendar; charset=utf-8"

var nowFunc = func() time.Time { return time.Now().UTC() } // mockable

type Exporter struct {
	productID string
	uidDomain string
}

func NewExporter(conf *core.Config) *Exporter {
	return &Exporter{
		productID: conf.Calendar.ProductID,
		uidDomain: conf.Calendar.UIDDomain,
	}
}

// UID is the stable event identifier of a lesson.
func (e *Exporter) UID(id string) string {
	return id + "@" + e.uidDomain
}

// Calendar builds a published calendar with one event per lesson.
func (e *Exporter) Calendar(name string, lessons []lesson.Lesson) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(e.productID)
	cal.SetCalscale("GREGORIAN")
	if name != "" {
		cal.SetXWRCalName(name)
	}

	stamp := nowFunc()
	for _, l := range lessons {
		ev := cal.AddEvent(e.UID(l.ID))
		ev.SetDtStampTime(stamp)
		ev.SetCreatedTime(l.CreatedAt)
		ev.SetModifiedAt(l.UpdatedAt)
		ev.SetStartAt(l.Start)
		ev.SetEndAt(l.End)
		ev.SetSummary(l.Title)
		ev.SetDescription(description(l))
		if l.Location != "" {
			ev.SetLocation(l.Location)
		}
		ev.SetProperty(ical.ComponentProperty("STATUS"), "CONFIRMED")
		ev.SetProperty(ical.ComponentProperty("TRANSP"), "OPAQUE")
		if gid := l.GroupID(); gid != "" {
			ev.SetProperty(ical.ComponentProperty("RELATED-TO"), e.UID(gid))
		}

		if l.Reminder > 0 {
			alarm := ev.AddAlarm()
			alarm.SetAction(ical.ActionDisplay)
			alarm.SetTrigger(fmt.Sprintf("-PT%dM", l.Reminder))
			alarm.SetProperty(ical.ComponentPropertyDescription, "Reminder: "+l.Title)
		}
	}
	return cal
}

func (e *Exporter) Encode(w io.Writer, name string, lessons []lesson.Lesson) error {
	return e.Calendar(name, lessons).SerializeTo(w)
}

// Bytes renders the feed in memory, e.g. for an email attachment.
func (e *Exporter) Bytes(name string, lessons []lesson.Lesson) (*bytes.Buffer, error) {
	buf := new(bytes.Buffer)
	if err := e.Encode(buf, name, lessons); err != nil {
		return nil, err
	}
	return buf, nil
}

func description(l lesson.Lesson) string {
	lines := []string{
		"Subject: " + l.Subject,
		"Student: " + l.StudentName,
	}
	if l.Description != "" {
		lines = append(lines, "", l.Description)
	}
	return strings.Join(lines, "\n")
}
