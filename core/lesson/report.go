package lesson

import (
	"sort"

	"github.com/trezcool/tutorly/core"
)

type (
	SubjectSummary struct {
		Subject string  `json:"subject"`
		Lessons int     `json:"lessons"`
		Hours   float64 `json:"hours"`
	}

	// Summary aggregates a set of lessons. Hours are rounded to one decimal.
	Summary struct {
		TotalLessons int              `json:"total_lessons"`
		TotalHours   float64          `json:"total_hours"`
		Students     int              `json:"students"`
		BySubject    []SubjectSummary `json:"by_subject"`
	}
)

func Summarize(lessons []Lesson) Summary {
	minutes := make(map[string]int)
	counts := make(map[string]int)
	students := make(map[string]struct{})
	var total int

	for _, l := range lessons {
		minutes[l.Subject] += l.Duration
		counts[l.Subject]++
		students[l.StudentID] = struct{}{}
		total += l.Duration
	}

	sum := Summary{
		TotalLessons: len(lessons),
		TotalHours:   core.Round(float64(total)/60, 1),
		Students:     len(students),
		BySubject:    make([]SubjectSummary, 0, len(counts)),
	}
	for subject, n := range counts {
		sum.BySubject = append(sum.BySubject, SubjectSummary{
			Subject: subject,
			Lessons: n,
			Hours:   core.Round(float64(minutes[subject])/60, 1),
		})
	}
	sort.Slice(sum.BySubject, func(i, j int) bool {
		return sum.BySubject[i].Subject < sum.BySubject[j].Subject
	})
	return sum
}
