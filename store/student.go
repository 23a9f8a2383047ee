package store

import (
	"errors"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/uptrace/bun"
)

// Student is the single entity managed by the service.
type Student struct {
	bun.BaseModel `bun:"table:students,alias:s" json:"-" msgpack:"-"`

	ID    int64   `bun:"id,pk,autoincrement" json:"id" msgpack:"id"`
	Name  string  `bun:"name,notnull" json:"name" msgpack:"name"`
	Email string  `bun:"email,notnull,unique" json:"email" msgpack:"email"`
	Age   *int    `bun:"age" json:"age" msgpack:"age"`
	Grade *string `bun:"grade" json:"grade" msgpack:"grade"`
}

// NewStudent holds the fields accepted when creating a student.
type NewStudent struct {
	Name  string  `json:"name"`
	Email string  `json:"email"`
	Age   *int    `json:"age,omitempty"`
	Grade *string `json:"grade,omitempty"`
}

// Validate requires a non-empty name and email.
func (n NewStudent) Validate() error {
	return validation.ValidateStruct(&n,
		validation.Field(&n.Name, validation.Required),
		validation.Field(&n.Email, validation.Required),
	)
}

// StudentPatch is a partial update. Nil fields are left untouched.
type StudentPatch struct {
	Name  *string `json:"name,omitempty"`
	Email *string `json:"email,omitempty"`
	Age   *int    `json:"age,omitempty"`
	Grade *string `json:"grade,omitempty"`
}

// Validate rejects supplied name or email values that are empty.
func (p StudentPatch) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Name, validation.NilOrNotEmpty),
		validation.Field(&p.Email, validation.NilOrNotEmpty),
	)
}

// Empty reports whether the patch changes nothing.
func (p StudentPatch) Empty() bool {
	return p.Name == nil && p.Email == nil && p.Age == nil && p.Grade == nil
}

// apply copies supplied fields onto s and returns the changed column names.
func (p StudentPatch) apply(s *Student) []string {
	var columns []string
	if p.Name != nil {
		s.Name = *p.Name
		columns = append(columns, "name")
	}
	if p.Email != nil {
		s.Email = *p.Email
		columns = append(columns, "email")
	}
	if p.Age != nil {
		age := *p.Age
		s.Age = &age
		columns = append(columns, "age")
	}
	if p.Grade != nil {
		grade := *p.Grade
		s.Grade = &grade
		columns = append(columns, "grade")
	}
	return columns
}

func newValidationError(err error) error {
	var fields validation.Errors
	if errors.As(err, &fields) {
		return &ValidationError{Fields: fields}
	}
	return err
}
