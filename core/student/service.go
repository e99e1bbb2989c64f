package student

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/trezcool/tutorly/core"
)

// MinNameSimilarity is the lowest difflib ratio FindByName accepts for a fuzzy match.
const MinNameSimilarity = 0.8

var (
	// errors
	ErrNotFound    = errors.New("student not found")
	ErrEmailExists = errors.New("a student with this email already exists")

	nowFunc = func() time.Time { return time.Now().UTC() } // mockable
)

type (
	Repository interface {
		CreateStudent(ctx context.Context, stu Student, exec ...core.DBExecutor) (Student, error)
		// GetStudent finds a student by GetFilter.ID or, when empty, by GetFilter.Email.
		GetStudent(ctx context.Context, filter GetFilter, exec ...core.DBExecutor) (Student, error)
		// QueryStudents does a case-insensitive match of QueryFilter.Search on names and email.
		QueryStudents(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Student, error)
		UpdateStudent(ctx context.Context, stu Student, exec ...core.DBExecutor) (Student, error)
	}

	Service struct {
		db     core.DB
		repo   Repository
		logger core.Logger
	}
)

func NewService(db core.DB, repo Repository, logger core.Logger) *Service {
	return &Service{db: db, repo: repo, logger: logger}
}

func (svc *Service) checkEmailUniqueness(ctx context.Context, email string, exec ...core.DBExecutor) error {
	if email == "" {
		return nil
	}
	_, err := svc.repo.GetStudent(ctx, GetFilter{Email: email}, exec...)
	switch errors.Cause(err) {
	case nil:
		return core.NewValidationError(ErrEmailExists, core.FieldError{Field: "email", Error: ErrEmailExists.Error()})
	case ErrNotFound:
		return nil
	default:
		return errors.Wrap(err, "checking email uniqueness")
	}
}

func (svc *Service) Create(ctx context.Context, ns NewStudent) (Student, error) {
	if err := svc.checkEmailUniqueness(ctx, ns.Email); err != nil {
		return Student{}, err
	}
	now := nowFunc()
	stu := fromNew(ns)
	stu.CreatedAt = now
	stu.UpdatedAt = now
	return svc.repo.CreateStudent(ctx, stu)
}

// Update merges us into the stored student. A changed email must not belong to another student.
func (svc *Service) Update(ctx context.Context, id string, us UpdateStudent) (Student, error) {
	orig, err := svc.repo.GetStudent(ctx, GetFilter{ID: id})
	if err != nil {
		return Student{}, err
	}
	stu := us.apply(orig)
	if !strings.EqualFold(stu.Email, orig.Email) {
		if err = svc.checkEmailUniqueness(ctx, stu.Email); err != nil {
			return Student{}, err
		}
	}
	stu.UpdatedAt = nowFunc()
	return svc.repo.UpdateStudent(ctx, stu)
}

func (svc *Service) Get(ctx context.Context, id string) (Student, error) {
	return svc.repo.GetStudent(ctx, GetFilter{ID: id})
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Student, error) {
	return svc.repo.QueryStudents(ctx, filter, ordering)
}

// FindByName returns the student whose display name matches `name`, ignoring case.
// Without an exact match the most similar name wins, as long as it is at least MinNameSimilarity alike.
func (svc *Service) FindByName(ctx context.Context, name string) (Student, error) {
	want := strings.ToLower(CleanName(name))
	if want == "" {
		return Student{}, ErrNotFound
	}

	students, err := svc.repo.QueryStudents(ctx, nil, []core.DBOrdering{{Field: "created_at", Ascending: true}})
	if err != nil {
		return Student{}, errors.Wrap(err, "querying students")
	}

	var best Student
	var bestRatio float64
	for _, stu := range students {
		got := strings.ToLower(stu.DisplayName())
		if got == want {
			return stu, nil
		}
		ratio := difflib.NewMatcher(strings.Split(want, ""), strings.Split(got, "")).Ratio()
		if ratio > bestRatio {
			best, bestRatio = stu, ratio
		}
	}
	if bestRatio < MinNameSimilarity {
		return Student{}, ErrNotFound
	}
	return best, nil
}

// Import creates the given students, or updates the ones whose email is already known, in one transaction.
func (svc *Service) Import(ctx context.Context, students []NewStudent) (created, updated int, err error) {
	tx, err := svc.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, 0, errors.Wrap(err, "beginning transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := nowFunc()
	for _, ns := range students {
		stu := fromNew(ns)
		stu.UpdatedAt = now

		var existing Student
		if ns.Email != "" {
			existing, err = svc.repo.GetStudent(ctx, GetFilter{Email: ns.Email}, tx)
			if err != nil && errors.Cause(err) != ErrNotFound {
				return 0, 0, errors.Wrapf(err, "finding student %q", ns.Email)
			}
		}

		if existing.ID != "" {
			stu.ID = existing.ID
			stu.CreatedAt = existing.CreatedAt
			if _, err = svc.repo.UpdateStudent(ctx, stu, tx); err != nil {
				return 0, 0, errors.Wrapf(err, "updating student %q", stu.DisplayName())
			}
			updated++
			continue
		}

		stu.CreatedAt = now
		if _, err = svc.repo.CreateStudent(ctx, stu, tx); err != nil {
			return 0, 0, errors.Wrapf(err, "creating student %q", stu.DisplayName())
		}
		created++
	}

	if err = tx.Commit(); err != nil {
		return 0, 0, errors.Wrap(err, "committing import")
	}
	svc.logger.Info(fmt.Sprintf("students imported: %d created, %d updated", created, updated))
	return created, updated, nil
}

func fromNew(ns NewStudent) Student {
	subjects := ns.Subjects
	if subjects == nil {
		subjects = []string{}
	}
	return Student{
		FirstName:  ns.FirstName,
		LastName:   ns.LastName,
		Email:      ns.Email,
		Phone:      ns.Phone,
		Grade:      ns.Grade,
		SchoolName: ns.SchoolName,
		Subjects:   subjects,
	}
}
