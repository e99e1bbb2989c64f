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
	"github.com/trezcool/tutorly/core/student"
)

const (
	studentColumns = "id, first_name, last_name, email, phone, grade, school_name, subjects, created_at, updated_at"
	subjectsSep    = ","
)

var studentOrdering = map[string]string{
	"first_name": "first_name",
	"last_name":  "last_name",
	"email":      "email",
	"grade":      "grade",
	"created_at": "created_at",
}

type studentRow struct {
	ID         string      `db:"id"`
	FirstName  string      `db:"first_name"`
	LastName   string      `db:"last_name"`
	Email      null.String `db:"email"`
	Phone      null.String `db:"phone"`
	Grade      null.String `db:"grade"`
	SchoolName null.String `db:"school_name"`
	Subjects   null.String `db:"subjects"`
	CreatedAt  time.Time   `db:"created_at"`
	UpdatedAt  time.Time   `db:"updated_at"`
}

type studentRepository struct {
	exec core.DBExecutor
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(exec core.DBExecutor) *studentRepository {
	return &studentRepository{exec: exec}
}

func (repo studentRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 {
		return svcExec[0]
	}
	return repo.exec
}

func (repo studentRepository) toRow(stu student.Student) studentRow {
	return studentRow{
		ID:         stu.ID,
		FirstName:  stu.FirstName,
		LastName:   stu.LastName,
		Email:      null.NewString(stu.Email, stu.Email != ""),
		Phone:      null.NewString(stu.Phone, stu.Phone != ""),
		Grade:      null.NewString(stu.Grade, stu.Grade != ""),
		SchoolName: null.NewString(stu.SchoolName, stu.SchoolName != ""),
		Subjects:   null.NewString(strings.Join(stu.Subjects, subjectsSep), len(stu.Subjects) > 0),
		CreatedAt:  stu.CreatedAt.UTC(),
		UpdatedAt:  stu.UpdatedAt.UTC(),
	}
}

func (repo studentRepository) fromRow(row studentRow) student.Student {
	subjects := []string{}
	if row.Subjects.String != "" {
		subjects = strings.Split(row.Subjects.String, subjectsSep)
	}
	return student.Student{
		ID:         row.ID,
		FirstName:  row.FirstName,
		LastName:   row.LastName,
		Email:      row.Email.String,
		Phone:      row.Phone.String,
		Grade:      row.Grade.String,
		SchoolName: row.SchoolName.String,
		Subjects:   subjects,
		CreatedAt:  row.CreatedAt.UTC(),
		UpdatedAt:  row.UpdatedAt.UTC(),
	}
}

// trapNoRowsErr maps sql "no rows" err to student.ErrNotFound
func (repo studentRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return student.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo studentRepository) CreateStudent(ctx context.Context, stu student.Student, exec ...core.DBExecutor) (student.Student, error) {
	if stu.ID == "" {
		stu.ID = uuid.New().String()
	}
	q := `INSERT INTO students (` + studentColumns + `)
		VALUES (:id, :first_name, :last_name, :email, :phone, :grade, :school_name, :subjects, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, repo.getExec(exec), q, repo.toRow(stu)); err != nil {
		return student.Student{}, errors.Wrap(err, "inserting student")
	}
	return stu, nil
}

func (repo studentRepository) GetStudent(ctx context.Context, filter student.GetFilter, exec ...core.DBExecutor) (student.Student, error) {
	e := repo.getExec(exec)

	q := `SELECT ` + studentColumns + ` FROM students WHERE `
	var arg string
	switch {
	case filter.ID != "":
		q, arg = q+"id = ?", filter.ID
	case filter.Email != "":
		q, arg = q+"LOWER(email) = ?", strings.ToLower(filter.Email)
	default:
		return student.Student{}, student.ErrNotFound
	}

	var row studentRow
	if err := sqlx.GetContext(ctx, e, &row, e.Rebind(q), arg); err != nil {
		return student.Student{}, repo.trapNoRowsErr(err, "getting student")
	}
	return repo.fromRow(row), nil
}

func (repo studentRepository) QueryStudents(ctx context.Context, filter *student.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]student.Student, error) {
	e := repo.getExec(exec)

	q := `SELECT ` + studentColumns + ` FROM students`
	var args []interface{}
	if filter != nil && !filter.IsEmpty() {
		// students with first name, last name or email matching the search keyword
		val := "%" + strings.ToLower(filter.Search) + "%"
		q += ` WHERE LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR LOWER(email) LIKE ?`
		args = append(args, val, val, val)
	}
	q += orderBy(core.FilterOrdering(ordering, studentOrdering), "last_name ASC, first_name ASC")

	var rows []studentRow
	if err := sqlx.SelectContext(ctx, e, &rows, e.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "querying students")
	}

	students := make([]student.Student, 0, len(rows))
	for _, row := range rows {
		students = append(students, repo.fromRow(row))
	}
	return students, nil
}

func (repo studentRepository) UpdateStudent(ctx context.Context, stu student.Student, exec ...core.DBExecutor) (student.Student, error) {
	q := `UPDATE students SET
		first_name = :first_name, last_name = :last_name, email = :email, phone = :phone, grade = :grade,
		school_name = :school_name, subjects = :subjects, updated_at = :updated_at
		WHERE id = :id`
	res, err := sqlx.NamedExecContext(ctx, repo.getExec(exec), q, repo.toRow(stu))
	if err != nil {
		return student.Student{}, errors.Wrap(err, "updating student")
	}
	if err = checkAffected(res, student.ErrNotFound); err != nil {
		return student.Student{}, err
	}
	return stu, nil
}
