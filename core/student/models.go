package student

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/trezcool/tutorly/core"
)

// Student is the owner of lessons. The scheduling core only needs its ID and display name.
type Student struct {
	ID         string    `json:"id"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	Email      string    `json:"email"`
	Phone      string    `json:"phone"`
	Grade      string    `json:"grade"`
	SchoolName string    `json:"school_name"`
	Subjects   []string  `json:"subjects"`
	CreatedAt  time.Time `json:"created_at"` // UTC
	UpdatedAt  time.Time `json:"updated_at"` // UTC
}

func (s Student) DisplayName() string {
	return strings.TrimSpace(s.FirstName + " " + s.LastName)
}

func (s Student) HasEmail() bool {
	return s.Email != ""
}

// NewStudent contains information needed to create a new Student.
type NewStudent struct {
	FirstName  string   `json:"first_name" yaml:"first_name" validate:"required,max=100"`
	LastName   string   `json:"last_name" yaml:"last_name" validate:"required,max=100"`
	Email      string   `json:"email" yaml:"email" validate:"omitempty,email,max=254"`
	Phone      string   `json:"phone" yaml:"phone" validate:"omitempty,phone"`
	Grade      string   `json:"grade" yaml:"grade" validate:"max=32"`
	SchoolName string   `json:"school_name" yaml:"school_name" validate:"max=200"`
	Subjects   []string `json:"subjects" yaml:"subjects" validate:"omitempty,dive,subject"`
}

func (ns *NewStudent) Clean() {
	ns.FirstName = CleanName(ns.FirstName)
	ns.LastName = CleanName(ns.LastName)
	ns.Email = core.CleanString(ns.Email, true /* lower */)
	ns.Phone = core.CleanString(ns.Phone)
	ns.Grade = core.CleanString(ns.Grade)
	ns.SchoolName = core.CleanString(ns.SchoolName)
	for i, subj := range ns.Subjects {
		ns.Subjects[i] = core.CleanString(subj)
	}
}

func (ns *NewStudent) Validate(validate *validator.Validate) error {
	ns.Clean()
	return validate.Struct(ns)
}

// UpdateStudent edits a Student. Empty fields, and nil Subjects, keep their stored value.
type UpdateStudent struct {
	FirstName  string   `json:"first_name" validate:"max=100"`
	LastName   string   `json:"last_name" validate:"max=100"`
	Email      string   `json:"email" validate:"omitempty,email,max=254"`
	Phone      string   `json:"phone" validate:"omitempty,phone"`
	Grade      string   `json:"grade" validate:"max=32"`
	SchoolName string   `json:"school_name" validate:"max=200"`
	Subjects   []string `json:"subjects" validate:"omitempty,dive,subject"`
}

func (us *UpdateStudent) Validate(validate *validator.Validate) error {
	us.FirstName = CleanName(us.FirstName)
	us.LastName = CleanName(us.LastName)
	us.Email = core.CleanString(us.Email, true /* lower */)
	us.Phone = core.CleanString(us.Phone)
	us.Grade = core.CleanString(us.Grade)
	us.SchoolName = core.CleanString(us.SchoolName)
	for i, subj := range us.Subjects {
		us.Subjects[i] = core.CleanString(subj)
	}
	return validate.Struct(us)
}

func (us UpdateStudent) apply(stu Student) Student {
	for _, f := range []struct {
		dst *string
		val string
	}{
		{&stu.FirstName, us.FirstName},
		{&stu.LastName, us.LastName},
		{&stu.Email, us.Email},
		{&stu.Phone, us.Phone},
		{&stu.Grade, us.Grade},
		{&stu.SchoolName, us.SchoolName},
	} {
		if f.val != "" {
			*f.dst = f.val
		}
	}
	if us.Subjects != nil {
		stu.Subjects = us.Subjects
	}
	return stu
}

type GetFilter struct {
	ID    string
	Email string
}

type QueryFilter struct {
	Search string `query:"search"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == ""
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}

var nameCaser = cases.Title(language.English, cases.NoLower)

// CleanName collapses inner whitespace and capitalizes every word, keeping existing capitals ("mcDonald" stays).
func CleanName(name string) string {
	return nameCaser.String(strings.Join(strings.Fields(name), " "))
}
