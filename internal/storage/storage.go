// Package storage defines the Storage interface — a contract that any
// database backend must satisfy to work with this application.
//
// WHY AN INTERFACE?
// ─────────────────
// The student service should not know or care which database it is
// talking to. By depending only on this interface:
//
//   - Switching databases = pick another driver in config.
//     sqlite, postgres and memory all satisfy it.
//
//   - Writing tests = pass the memory store or a gomock mock.
//     No real database needed for unit tests.
//
// ACTIVE ROWS ONLY
// ────────────────
// Students are never physically removed; a soft delete flips IsActive
// to false. Every method below that looks a student up — by id, email,
// CPF, search, or the Exists family — only ever sees active rows.
package storage

//go:generate mockgen -source=storage.go -destination=mocks/mocks.go -package=mocks Storage

import (
	"context"
	"time"

	"github.com/qapabilities/students-api/internal/types"
)

// Storage is the student persistence contract.
type Storage interface {
	// FindByID returns the active student with the given id,
	// or (nil, nil) when there is none.
	FindByID(ctx context.Context, id string) (*types.Student, error)

	// FindByEmail returns the active student using email, or (nil, nil).
	FindByEmail(ctx context.Context, email string) (*types.Student, error)

	// FindByCPF returns the active student with the given CPF, or (nil, nil).
	FindByCPF(ctx context.Context, cpf string) (*types.Student, error)

	// Search returns one page of active students whose name, email or CPF
	// contains searchTerm (case-insensitive), ordered by name.
	// A blank searchTerm matches everyone. Out-of-range paging values are
	// clamped (see Normalize), never an error.
	Search(ctx context.Context, pageNumber, pageSize int, searchTerm string) (types.Page[types.Student], error)

	// Insert persists a new student exactly as given; the caller has
	// already stamped ID, CreatedAt and IsActive.
	// Returns ErrConflict when an active row already holds the email or CPF.
	Insert(ctx context.Context, s *types.Student) (*types.Student, error)

	// Save persists the editable columns of an active student
	// (name, email, phone, address, updated_at). The active flag is
	// never written here, so a stale copy cannot reactivate a row.
	// Returns ErrNotFound when no active row has s.ID, ErrConflict on a
	// uniqueness violation.
	Save(ctx context.Context, s *types.Student) (*types.Student, error)

	// Deactivate soft-deletes the active student with the given id and
	// stamps updated_at with at. Returns ErrNotFound when no active row
	// has id, so a second delete is not found.
	Deactivate(ctx context.Context, id string, at time.Time) error

	// Exists reports whether an active student has the given id.
	Exists(ctx context.Context, id string) (bool, error)

	// EmailExists reports whether an active student uses email.
	EmailExists(ctx context.Context, email string) (bool, error)

	// CPFExists reports whether an active student has the given CPF.
	CPFExists(ctx context.Context, cpf string) (bool, error)

	// Close releases the underlying connections.
	Close() error
}
