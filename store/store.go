// Package store persists students with bun on SQLite or Postgres.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Store is the persistence contract for students. Every mutating call is
// durable before it returns.
type Store interface {
	Create(ctx context.Context, in NewStudent) (*Student, error)
	Get(ctx context.Context, id int64) (*Student, error)
	List(ctx context.Context) ([]Student, error)
	Update(ctx context.Context, id int64, patch StudentPatch) (*Student, error)
	Delete(ctx context.Context, id int64) error
	Ping(ctx context.Context) error
}

var _ Store = (*BunStore)(nil)

// BunStore implements Store on top of a bun database handle.
type BunStore struct {
	db     *bun.DB
	driver string
	// byEmail resolves students by their natural key. Ids are integers, so
	// only identifier lookups go through the repository.
	byEmail repository.Repository[*Student]
}

// New returns a store backed by db.
func New(db *bun.DB) *BunStore {
	return &BunStore{
		db:     db,
		driver: repository.DetectDriver(db),
		byEmail: repository.NewRepository[*Student](db, repository.ModelHandlers[*Student]{
			NewRecord:     func() *Student { return new(Student) },
			GetIdentifier: func() string { return "email" },
		}),
	}
}

// EnsureSchema creates the students table when it does not exist yet.
func (s *BunStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.NewCreateTable().
		Model((*Student)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("create students table: %w", err)
	}
	return nil
}

// Create validates in and inserts a new student. The id is assigned by the database.
func (s *BunStore) Create(ctx context.Context, in NewStudent) (*Student, error) {
	if err := in.Validate(); err != nil {
		return nil, newValidationError(err)
	}

	student := &Student{
		Name:  in.Name,
		Email: in.Email,
		Age:   in.Age,
		Grade: in.Grade,
	}

	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := s.ensureEmailAvailable(ctx, tx, student.Email, 0); err != nil {
			return err
		}
		_, err := tx.NewInsert().Model(student).Exec(ctx)
		return err
	})
	if err != nil {
		return nil, s.wrap("create student", err)
	}

	return student, nil
}

// Get returns the student with the given id or ErrNotFound.
func (s *BunStore) Get(ctx context.Context, id int64) (*Student, error) {
	student, err := getByID(ctx, s.db, id)
	if err != nil {
		return nil, s.wrap("get student", err)
	}
	return student, nil
}

// List returns every student ordered by id.
func (s *BunStore) List(ctx context.Context) ([]Student, error) {
	students := make([]Student, 0)
	if err := s.db.NewSelect().Model(&students).Order("s.id ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	return students, nil
}

// Update applies patch to the student with the given id. Only supplied fields change.
func (s *BunStore) Update(ctx context.Context, id int64, patch StudentPatch) (*Student, error) {
	if err := patch.Validate(); err != nil {
		return nil, newValidationError(err)
	}

	if patch.Empty() {
		return s.Get(ctx, id)
	}

	var student *Student
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		current, err := getByID(ctx, tx, id)
		if err != nil {
			return err
		}

		if patch.Email != nil && *patch.Email != current.Email {
			if err := s.ensureEmailAvailable(ctx, tx, *patch.Email, id); err != nil {
				return err
			}
		}

		student = current
		_, err = tx.NewUpdate().
			Model(current).
			Column(patch.apply(current)...).
			WherePK().
			Exec(ctx)
		return err
	})
	if err != nil {
		return nil, s.wrap("update student", err)
	}

	return student, nil
}

// Delete removes the student with the given id or returns ErrNotFound.
func (s *BunStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.NewDelete().
		Model((*Student)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete student: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("delete student %d: %w", id, ErrNotFound)
	}
	return nil
}

// Ping checks that the database is reachable.
func (s *BunStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func getByID(ctx context.Context, db bun.IDB, id int64) (*Student, error) {
	student := new(Student)
	err := db.NewSelect().Model(student).Where("s.id = ?", id).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("student %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return student, nil
}

// ensureEmailAvailable fails with ErrDuplicateEmail when a student other
// than exceptID owns email. The UNIQUE constraint still backs this check for
// concurrent writers; wrap maps its violation to the same error.
func (s *BunStore) ensureEmailAvailable(ctx context.Context, tx bun.IDB, email string, exceptID int64) error {
	// The repository looks UUID-shaped identifiers up by id; leave those to
	// the constraint.
	if _, err := uuid.Parse(email); err == nil {
		return nil
	}

	owner, err := s.byEmail.GetByIdentifierTx(ctx, tx, email)
	switch {
	case goerrors.IsCategory(err, repository.CategoryDatabaseNotFound):
		return nil
	case err != nil:
		return err
	case owner.ID != exceptID:
		return ErrDuplicateEmail
	}
	return nil
}

// wrap adds op context while keeping sentinel and validation errors
// matchable. Unique violations from the driver become ErrDuplicateEmail,
// the only unique column besides the primary key being email.
func (s *BunStore) wrap(op string, err error) error {
	if !errors.Is(err, ErrDuplicateEmail) && repository.IsDuplicatedKey(repository.MapDatabaseError(err, s.driver)) {
		return fmt.Errorf("%s: %w", op, ErrDuplicateEmail)
	}
	return fmt.Errorf("%s: %w", op, err)
}
