// Package student is the domain service for student records.
//
// It sits between the HTTP handlers and storage.Storage and owns the
// rules that need repository state: one active student per email and
// per CPF, the minimum-age policy at creation, and which fields an
// update may touch. Payload format (lengths, patterns, CPF checksum) is
// checked by the validation package before a request gets here.
//
// Every operation returns a result.Result. Business-rule failures are
// failed Results; the error return is reserved for storage faults.
//
// The service holds no mutable state and is safe for concurrent use.
package student

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/qapabilities/students-api/internal/metrics"
	"github.com/qapabilities/students-api/internal/result"
	"github.com/qapabilities/students-api/internal/storage"
	"github.com/qapabilities/students-api/internal/types"
	"github.com/qapabilities/students-api/internal/validation"
)

// Messages carried by the returned Results.
const (
	MsgNotFound          = "student not found"
	MsgEmailInUse        = "email already in use"
	MsgCPFInUse          = "CPF already in use"
	MsgEmailOrCPFInUse   = "email or CPF already in use"
	MsgEmailInUseByOther = "email already in use by another student"
	MsgTooYoung          = "student must be at least 16 years old"
	MsgInvalidBirthDate  = "invalid birth date"

	MsgCreated = "student created successfully"
	MsgUpdated = "student updated successfully"
	MsgRemoved = "student removed successfully"
)

// Service implements the student use cases on top of a Storage.
type Service struct {
	store   storage.Storage
	now     func() time.Time
	newID   func() string
	log     *slog.Logger
	metrics *metrics.Metrics
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces time.Now as the source of createdAt/updatedAt and
// of the reference date for the age check.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator replaces uuid.NewString for new student ids.
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

// WithLogger sets the logger used for operation outcomes. The default
// is slog.Default().
func WithLogger(log *slog.Logger) Option {
	return func(s *Service) { s.log = log }
}

// WithMetrics records per-operation outcomes and the created and removed
// counters on m. Without it nothing is recorded.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// New builds a Service. store is required.
func New(store storage.Storage, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("student store is required")
	}

	s := &Service{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
		log:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// GetByID returns the active student with the given id.
func (s *Service) GetByID(ctx context.Context, id string) (result.Result[types.StudentView], error) {
	const op = "get"

	key, ok := canonicalID(id)
	if !ok {
		return fail[types.StudentView](s, op, result.KindNotFound, MsgNotFound)
	}

	student, err := s.store.FindByID(ctx, key)
	if err != nil {
		return fault[types.StudentView](s, op, err)
	}
	if student == nil {
		return fail[types.StudentView](s, op, result.KindNotFound, MsgNotFound)
	}

	return succeed(s, op, types.ToView(*student), "")
}

// GetAll returns one page of active students, optionally filtered by
// searchTerm. An empty page is a success. pageNumber and pageSize are
// passed to the store as given; the store clamps them.
func (s *Service) GetAll(ctx context.Context, pageNumber, pageSize int, searchTerm string) (result.Result[types.PageView[types.StudentView]], error) {
	const op = "list"

	page, err := s.store.Search(ctx, pageNumber, pageSize, searchTerm)
	if err != nil {
		return fault[types.PageView[types.StudentView]](s, op, err)
	}

	return succeed(s, op, types.ToPageView(page), "")
}

// Create registers a new student.
//
// Checks run in order and the first failure wins:
//  1. email not used by an active student
//  2. CPF not used by an active student
//  3. birth date satisfies the minimum-age policy
func (s *Service) Create(ctx context.Context, req types.CreateStudentRequest) (result.Result[types.StudentView], error) {
	const op = "create"

	taken, err := s.store.EmailExists(ctx, req.Email)
	if err != nil {
		return fault[types.StudentView](s, op, err)
	}
	if taken {
		return fail[types.StudentView](s, op, result.KindConflict, MsgEmailInUse)
	}

	taken, err = s.store.CPFExists(ctx, req.CPF)
	if err != nil {
		return fault[types.StudentView](s, op, err)
	}
	if taken {
		return fail[types.StudentView](s, op, result.KindConflict, MsgCPFInUse)
	}

	student, err := types.NewStudent(req)
	if err != nil {
		return fail[types.StudentView](s, op, result.KindInvalid, MsgInvalidBirthDate)
	}

	now := s.now()
	if !validation.IsEligible(student.BirthDate, now) {
		return fail[types.StudentView](s, op, result.KindIneligible, MsgTooYoung)
	}

	student.ID = s.newID()
	student.CreatedAt = now
	student.IsActive = true

	created, err := s.store.Insert(ctx, &student)
	if errors.Is(err, storage.ErrConflict) {
		// Lost a race with a concurrent create; the unique index caught it.
		return fail[types.StudentView](s, op, result.KindConflict, MsgEmailOrCPFInUse)
	}
	if err != nil {
		return fault[types.StudentView](s, op, err)
	}

	s.metrics.IncrementStudentsCreated()
	s.log.Info("student created", slog.String("id", created.ID))

	return succeed(s, op, types.ToView(*created), MsgCreated)
}

// Update overwrites name, email, phone and address of an active student.
// CPF, birth date, creation time and the active flag are never changed.
func (s *Service) Update(ctx context.Context, id string, req types.UpdateStudentRequest) (result.Result[types.StudentView], error) {
	const op = "update"

	key, ok := canonicalID(id)
	if !ok {
		return fail[types.StudentView](s, op, result.KindNotFound, MsgNotFound)
	}

	existing, err := s.store.FindByID(ctx, key)
	if err != nil {
		return fault[types.StudentView](s, op, err)
	}
	if existing == nil {
		return fail[types.StudentView](s, op, result.KindNotFound, MsgNotFound)
	}

	if req.Email != existing.Email {
		holder, err := s.store.FindByEmail(ctx, req.Email)
		if err != nil {
			return fault[types.StudentView](s, op, err)
		}
		if holder != nil && holder.ID != existing.ID {
			return fail[types.StudentView](s, op, result.KindConflict, MsgEmailInUseByOther)
		}
	}

	types.ApplyUpdate(existing, req)
	now := s.now()
	existing.UpdatedAt = &now

	saved, err := s.store.Save(ctx, existing)
	switch {
	case errors.Is(err, storage.ErrConflict):
		return fail[types.StudentView](s, op, result.KindConflict, MsgEmailInUseByOther)
	case errors.Is(err, storage.ErrNotFound):
		return fail[types.StudentView](s, op, result.KindNotFound, MsgNotFound)
	case err != nil:
		return fault[types.StudentView](s, op, err)
	}

	s.log.Info("student updated", slog.String("id", saved.ID))

	return succeed(s, op, types.ToView(*saved), MsgUpdated)
}

// Delete soft-deletes an active student. Deleting an id that is unknown
// or already inactive is a not-found failure, including when another
// request deleted it first.
func (s *Service) Delete(ctx context.Context, id string) (result.Result[bool], error) {
	const op = "delete"

	key, ok := canonicalID(id)
	if !ok {
		return fail[bool](s, op, result.KindNotFound, MsgNotFound)
	}

	err := s.store.Deactivate(ctx, key, s.now())
	if errors.Is(err, storage.ErrNotFound) {
		return fail[bool](s, op, result.KindNotFound, MsgNotFound)
	}
	if err != nil {
		return fault[bool](s, op, err)
	}

	s.metrics.IncrementStudentsRemoved()
	s.log.Info("student removed", slog.String("id", key))

	return succeed(s, op, true, MsgRemoved)
}

// Exists reports whether an active student has the given id.
// A false answer is still a successful Result.
func (s *Service) Exists(ctx context.Context, id string) (result.Result[bool], error) {
	const op = "exists"

	key, ok := canonicalID(id)
	if !ok {
		return succeed(s, op, false, "")
	}

	found, err := s.store.Exists(ctx, key)
	if err != nil {
		return fault[bool](s, op, err)
	}

	return succeed(s, op, found, "")
}

// canonicalID parses id as a UUID and returns its canonical lowercase
// form. Anything else cannot name a student.
func canonicalID(id string) (string, bool) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return "", false
	}
	return parsed.String(), true
}

func succeed[T any](s *Service, op string, data T, message string) (result.Result[T], error) {
	s.metrics.ObserveOperation(op, metrics.OutcomeSuccess)
	return result.Ok(data, message), nil
}

func fail[T any](s *Service, op string, kind result.Kind, message string) (result.Result[T], error) {
	s.metrics.ObserveOperation(op, kind.String())
	s.log.Debug("student operation rejected",
		slog.String("op", op),
		slog.String("kind", kind.String()),
		slog.String("reason", message),
	)
	return result.Fail[T](kind, message), nil
}

func fault[T any](s *Service, op string, err error) (result.Result[T], error) {
	s.metrics.ObserveOperation(op, metrics.OutcomeError)
	s.log.Error("student storage failure",
		slog.String("op", op),
		slog.String("error", err.Error()),
	)
	return result.Result[T]{}, fmt.Errorf("student.%s: %w", op, err)
}
