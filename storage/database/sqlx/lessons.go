package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/tutorly/core"
	"github.com/trezcool/tutorly/core/lesson"
)

const lessonColumns = `id, student_id, student_name, title, subject, start_time, end_time, duration, location,
	description, reminder, is_recurring, recurrence_type, occurrence_number, total_occurrences, series_end,
	recurrence_group_id, created_at, updated_at`

var lessonOrdering = map[string]string{
	"start_time":        "start_time",
	"end_time":          "end_time",
	"title":             "title",
	"subject":           "subject",
	"student_name":      "student_name",
	"occurrence_number": "occurrence_number",
	"created_at":        "created_at",
}

type lessonRow struct {
	ID                string      `db:"id"`
	StudentID         string      `db:"student_id"`
	StudentName       string      `db:"student_name"`
	Title             string      `db:"title"`
	Subject           string      `db:"subject"`
	StartTime         time.Time   `db:"start_time"`
	EndTime           time.Time   `db:"end_time"`
	Duration          int         `db:"duration"`
	Location          string      `db:"location"`
	Description       null.String `db:"description"`
	Reminder          int         `db:"reminder"`
	IsRecurring       bool        `db:"is_recurring"`
	RecurrenceType    null.String `db:"recurrence_type"`
	OccurrenceNumber  null.Int    `db:"occurrence_number"`
	TotalOccurrences  null.Int    `db:"total_occurrences"`
	SeriesEnd         null.Time   `db:"series_end"`
	RecurrenceGroupID null.String `db:"recurrence_group_id"`
	CreatedAt         time.Time   `db:"created_at"`
	UpdatedAt         time.Time   `db:"updated_at"`
}

type lessonRepository struct {
	exec core.DBExecutor
}

var _ lesson.Repository = (*lessonRepository)(nil) // interface compliance check

func NewLessonRepository(exec core.DBExecutor) *lessonRepository {
	return &lessonRepository{exec: exec}
}

func (repo lessonRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 {
		return svcExec[0]
	}
	return repo.exec
}

func (repo lessonRepository) toRow(l lesson.Lesson) lessonRow {
	row := lessonRow{
		ID:          l.ID,
		StudentID:   l.StudentID,
		StudentName: l.StudentName,
		Title:       l.Title,
		Subject:     l.Subject,
		StartTime:   l.Start.UTC(),
		EndTime:     l.End.UTC(),
		Duration:    l.Duration,
		Location:    l.Location,
		Description: null.NewString(l.Description, l.Description != ""),
		Reminder:    l.Reminder,
		IsRecurring: l.IsRecurring,
		CreatedAt:   l.CreatedAt.UTC(),
		UpdatedAt:   l.UpdatedAt.UTC(),
	}
	if rec := l.Recurrence; rec != nil {
		row.RecurrenceType = null.StringFrom(string(rec.Cadence))
		row.OccurrenceNumber = null.IntFrom(rec.Occurrence)
		row.TotalOccurrences = null.NewInt(rec.Count, rec.Count > 0)
		if rec.EndDate != nil {
			row.SeriesEnd = null.TimeFrom(rec.EndDate.UTC())
		}
		row.RecurrenceGroupID = null.StringFrom(rec.GroupID)
	}
	return row
}

func (repo lessonRepository) fromRow(row lessonRow) lesson.Lesson {
	l := lesson.Lesson{
		ID:          row.ID,
		StudentID:   row.StudentID,
		StudentName: row.StudentName,
		Title:       row.Title,
		Subject:     row.Subject,
		Start:       row.StartTime.UTC(),
		End:         row.EndTime.UTC(),
		Duration:    row.Duration,
		Location:    row.Location,
		Description: row.Description.String,
		Reminder:    row.Reminder,
		IsRecurring: row.IsRecurring,
		CreatedAt:   row.CreatedAt.UTC(),
		UpdatedAt:   row.UpdatedAt.UTC(),
	}
	if row.RecurrenceGroupID.Valid {
		l.Recurrence = &lesson.Recurrence{
			GroupID:    row.RecurrenceGroupID.String,
			Cadence:    lesson.Cadence(row.RecurrenceType.String),
			Occurrence: row.OccurrenceNumber.Int,
			Count:      row.TotalOccurrences.Int,
		}
		if row.SeriesEnd.Valid {
			end := row.SeriesEnd.Time.UTC()
			l.Recurrence.EndDate = &end
		}
	}
	return l
}

func (repo lessonRepository) fromRows(rows []lessonRow) []lesson.Lesson {
	lessons := make([]lesson.Lesson, 0, len(rows))
	for _, row := range rows {
		lessons = append(lessons, repo.fromRow(row))
	}
	return lessons
}

// trapNoRowsErr maps sql "no rows" err to lesson.ErrNotFound
func (repo lessonRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return lesson.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo lessonRepository) CreateLesson(ctx context.Context, l lesson.Lesson, exec ...core.DBExecutor) (lesson.Lesson, error) {
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	q := `INSERT INTO lessons (` + lessonColumns + `)
		VALUES (:id, :student_id, :student_name, :title, :subject, :start_time, :end_time, :duration, :location,
		:description, :reminder, :is_recurring, :recurrence_type, :occurrence_number, :total_occurrences, :series_end,
		:recurrence_group_id, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, repo.getExec(exec), q, repo.toRow(l)); err != nil {
		return lesson.Lesson{}, errors.Wrap(err, "inserting lesson")
	}
	return l, nil
}

func (repo lessonRepository) GetLesson(ctx context.Context, id string, exec ...core.DBExecutor) (lesson.Lesson, error) {
	e := repo.getExec(exec)
	var row lessonRow
	q := `SELECT ` + lessonColumns + ` FROM lessons WHERE id = ?`
	if err := sqlx.GetContext(ctx, e, &row, e.Rebind(q), id); err != nil {
		return lesson.Lesson{}, repo.trapNoRowsErr(err, "getting lesson")
	}
	return repo.fromRow(row), nil
}

func (repo lessonRepository) QueryLessons(ctx context.Context, filter *lesson.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]lesson.Lesson, error) {
	e := repo.getExec(exec)

	var (
		where []string
		args  []interface{}
	)
	if filter != nil {
		if filter.StudentID != "" {
			where = append(where, "student_id = ?")
			args = append(args, filter.StudentID)
		}
		if filter.Subject != "" {
			where = append(where, "LOWER(subject) = ?")
			args = append(args, strings.ToLower(filter.Subject))
		}
		if filter.GroupID != "" {
			where = append(where, "recurrence_group_id = ?")
			args = append(args, filter.GroupID)
		}
		if !filter.StartFrom.IsZero() {
			where = append(where, "start_time >= ?")
			args = append(args, filter.StartFrom.UTC())
		}
		if !filter.StartTo.IsZero() {
			where = append(where, "start_time <= ?")
			args = append(args, filter.StartTo.UTC())
		}
		if filter.WithReminder {
			where = append(where, "reminder > 0")
		}
	}

	q := `SELECT ` + lessonColumns + ` FROM lessons`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += orderBy(core.FilterOrdering(ordering, lessonOrdering), "start_time ASC")

	var rows []lessonRow
	if err := sqlx.SelectContext(ctx, e, &rows, e.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "querying lessons")
	}
	return repo.fromRows(rows), nil
}

func (repo lessonRepository) QuerySeries(ctx context.Context, groupID string, exec ...core.DBExecutor) ([]lesson.Lesson, error) {
	e := repo.getExec(exec)
	var rows []lessonRow
	q := `SELECT ` + lessonColumns + ` FROM lessons WHERE recurrence_group_id = ? ORDER BY occurrence_number ASC`
	if err := sqlx.SelectContext(ctx, e, &rows, e.Rebind(q), groupID); err != nil {
		return nil, errors.Wrap(err, "querying series")
	}
	return repo.fromRows(rows), nil
}

func (repo lessonRepository) UpdateLesson(ctx context.Context, l lesson.Lesson, exec ...core.DBExecutor) (lesson.Lesson, error) {
	q := `UPDATE lessons SET
		title = :title, subject = :subject, start_time = :start_time, end_time = :end_time, duration = :duration,
		location = :location, description = :description, reminder = :reminder, is_recurring = :is_recurring,
		recurrence_type = :recurrence_type, occurrence_number = :occurrence_number,
		total_occurrences = :total_occurrences, series_end = :series_end, recurrence_group_id = :recurrence_group_id,
		updated_at = :updated_at
		WHERE id = :id`
	res, err := sqlx.NamedExecContext(ctx, repo.getExec(exec), q, repo.toRow(l))
	if err != nil {
		return lesson.Lesson{}, errors.Wrap(err, "updating lesson")
	}
	if err = checkAffected(res, lesson.ErrNotFound); err != nil {
		return lesson.Lesson{}, err
	}
	return l, nil
}

func (repo lessonRepository) DeleteLesson(ctx context.Context, id string, exec ...core.DBExecutor) error {
	e := repo.getExec(exec)
	res, err := e.ExecContext(ctx, e.Rebind(`DELETE FROM lessons WHERE id = ?`), id)
	if err != nil {
		return errors.Wrap(err, "deleting lesson")
	}
	return checkAffected(res, lesson.ErrNotFound)
}

func (repo lessonRepository) DeleteSeries(ctx context.Context, groupID string, exec ...core.DBExecutor) (int, error) {
	e := repo.getExec(exec)
	res, err := e.ExecContext(ctx, e.Rebind(`DELETE FROM lessons WHERE recurrence_group_id = ?`), groupID)
	if err != nil {
		return 0, errors.Wrap(err, "deleting series")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "reading affected rows")
	}
	return int(n), nil
}
