package lesson

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSummarize(t *testing.T) {
	lesson := func(stu, subject string, minutes int) Lesson {
		return Lesson{StudentID: stu, Subject: subject, Duration: minutes}
	}

	tests := []struct {
		name    string
		lessons []Lesson
		want    Summary
	}{
		{
			name:    "empty",
			lessons: nil,
			want:    Summary{BySubject: []SubjectSummary{}},
		},
		{
			name: "by subject",
			lessons: []Lesson{
				lesson("s1", "Physics", 60),
				lesson("s1", "Math", 45),
				lesson("s2", "Math", 50),
				lesson("s2", "Chemistry", 20),
			},
			want: Summary{
				TotalLessons: 4,
				TotalHours:   2.9,
				Students:     2,
				BySubject: []SubjectSummary{
					{Subject: "Chemistry", Lessons: 1, Hours: 0.3},
					{Subject: "Math", Lessons: 2, Hours: 1.6},
					{Subject: "Physics", Lessons: 1, Hours: 1},
				},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Summarize(tt.lessons))
		})
	}
}
