package calendar

import (
	"strings"
	"testing"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/tutorly/core"
	"github.com/trezcool/tutorly/core/lesson"
)

var start = time.Date(2030, time.January, 7, 16, 0, 0, 0, time.UTC)

func testLessons() []lesson.Lesson {
	return []lesson.Lesson{
		{
			ID: "l1", StudentName: "Amani Kabila", Title: "Algebra (1/2)", Subject: "Math", Location: "Library",
			Start: start, End: start.Add(time.Hour), Duration: 60, Reminder: 30, IsRecurring: true,
			Recurrence: &lesson.Recurrence{GroupID: "g1", Cadence: lesson.Weekly, Occurrence: 1, Count: 2},
		},
		{
			ID: "l2", StudentName: "Amani Kabila", Title: "Chemistry", Subject: "Science",
			Description: "Bring the lab notes", Start: start.AddDate(0, 0, 1), End: start.AddDate(0, 0, 1).Add(90 * time.Minute),
			Duration: 90,
		},
	}
}

func TestExporter_Encode(t *testing.T) {
	nowFunc = func() time.Time { return start.AddDate(0, 0, -1) }
	defer func() { nowFunc = func() time.Time { return time.Now().UTC() } }()

	conf := core.NewTestConfig()
	exp := NewExporter(conf)

	buf, err := exp.Bytes("Amani's lessons", testLessons())
	require.NoError(t, err)
	body := buf.String()

	cal, err := ical.ParseCalendar(strings.NewReader(body))
	require.NoError(t, err)
	events := cal.Events()
	require.Len(t, events, 2)

	t.Run("series occurrence", func(t *testing.T) {
		ev := events[0]
		assert.Equal(t, "l1@tutorly.test", ev.Id())
		assert.Equal(t, "Algebra (1/2)", ev.GetProperty(ical.ComponentPropertySummary).Value)
		assert.Equal(t, "Library", ev.GetProperty(ical.ComponentPropertyLocation).Value)
		assert.Equal(t, "g1@tutorly.test", ev.GetProperty("RELATED-TO").Value)

		at, err := ev.GetStartAt()
		require.NoError(t, err)
		assert.True(t, at.Equal(start))
		at, err = ev.GetEndAt()
		require.NoError(t, err)
		assert.True(t, at.Equal(start.Add(time.Hour)))
	})

	t.Run("one-off", func(t *testing.T) {
		ev := events[1]
		assert.Nil(t, ev.GetProperty("RELATED-TO"))
		assert.Nil(t, ev.GetProperty(ical.ComponentPropertyLocation))
		assert.Contains(t, ev.GetProperty(ical.ComponentPropertyDescription).Value, "Bring the lab notes")
	})

	assert.Contains(t, body, "X-WR-CALNAME:Amani's lessons")
	assert.Contains(t, body, "PRODID:"+conf.Calendar.ProductID)
	assert.Equal(t, 1, strings.Count(body, "BEGIN:VALARM"))
	assert.Contains(t, body, "TRIGGER:-PT30M")
}

func TestExporter_Encode_empty(t *testing.T) {
	buf, err := NewExporter(core.NewTestConfig()).Bytes("", nil)
	require.NoError(t, err)

	cal, err := ical.ParseCalendar(strings.NewReader(buf.String()))
	require.NoError(t, err)
	assert.Empty(t, cal.Events())
	assert.NotContains(t, buf.String(), "X-WR-CALNAME")
}

func TestDescription(t *testing.T) {
	l := testLessons()
	assert.Equal(t, "Subject: Math\nStudent: Amani Kabila", description(l[0]))
	assert.Equal(t, "Subject: Science\nStudent: Amani Kabila\n\nBring the lab notes", description(l[1]))
}
