// Package memory provides an in-process implementation of
// storage.Storage. It backs the unit tests and the "memory" storage
// driver used for local experiments; nothing survives a restart.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/qapabilities/students-api/internal/storage"
	"github.com/qapabilities/students-api/internal/types"
)

// Memory keeps every student, active or not, keyed by id.
// Values are copied in and out so callers never share state with the store.
type Memory struct {
	mu       sync.RWMutex
	students map[string]types.Student
}

// New returns an empty store.
func New() *Memory {
	return &Memory{students: make(map[string]types.Student)}
}

func (m *Memory) FindByID(_ context.Context, id string) (*types.Student, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.students[id]
	if !ok || !s.IsActive {
		return nil, nil
	}
	return clone(s), nil
}

func (m *Memory) FindByEmail(_ context.Context, email string) (*types.Student, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.findActive(func(s types.Student) bool { return s.Email == email }), nil
}

func (m *Memory) FindByCPF(_ context.Context, cpf string) (*types.Student, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.findActive(func(s types.Student) bool { return s.CPF == cpf }), nil
}

func (m *Memory) Search(_ context.Context, pageNumber, pageSize int, searchTerm string) (types.Page[types.Student], error) {
	pageNumber, pageSize = storage.Normalize(pageNumber, pageSize)
	term := strings.ToLower(strings.TrimSpace(searchTerm))

	m.mu.RLock()
	matches := make([]types.Student, 0, len(m.students))
	for _, s := range m.students {
		if !s.IsActive {
			continue
		}
		if term != "" &&
			!strings.Contains(strings.ToLower(s.Name), term) &&
			!strings.Contains(strings.ToLower(s.Email), term) &&
			!strings.Contains(s.CPF, term) {
			continue
		}
		matches = append(matches, s)
	}
	m.mu.RUnlock()

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Name != matches[j].Name {
			return matches[i].Name < matches[j].Name
		}
		return matches[i].ID < matches[j].ID
	})

	page := types.Page[types.Student]{
		Items:      []types.Student{},
		TotalCount: len(matches),
		PageNumber: pageNumber,
		PageSize:   pageSize,
	}

	start := storage.Offset(pageNumber, pageSize)
	if start >= len(matches) {
		return page, nil
	}
	end := start + min(pageSize, len(matches)-start)
	page.Items = append(page.Items, matches[start:end]...)

	return page, nil
}

func (m *Memory) Insert(_ context.Context, s *types.Student) (*types.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.students[s.ID]; ok {
		return nil, storage.ErrConflict
	}
	if s.IsActive && m.clashes(*s) {
		return nil, storage.ErrConflict
	}

	m.students[s.ID] = *clone(*s)
	return clone(*s), nil
}

func (m *Memory) Save(_ context.Context, s *types.Student) (*types.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.students[s.ID]
	if !ok || !current.IsActive {
		return nil, storage.ErrNotFound
	}

	// Only the editable columns are written, as a SQL UPDATE would.
	current.Name = s.Name
	current.Email = s.Email
	current.Phone = s.Phone
	current.Address = s.Address
	current.UpdatedAt = s.UpdatedAt

	if m.clashes(current) {
		return nil, storage.ErrConflict
	}

	m.students[s.ID] = *clone(current)
	return clone(current), nil
}

func (m *Memory) Deactivate(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.students[id]
	if !ok || !current.IsActive {
		return storage.ErrNotFound
	}

	current.IsActive = false
	current.UpdatedAt = &at
	m.students[id] = current
	return nil
}

func (m *Memory) Exists(ctx context.Context, id string) (bool, error) {
	s, err := m.FindByID(ctx, id)
	return s != nil, err
}

func (m *Memory) EmailExists(ctx context.Context, email string) (bool, error) {
	s, err := m.FindByEmail(ctx, email)
	return s != nil, err
}

func (m *Memory) CPFExists(ctx context.Context, cpf string) (bool, error) {
	s, err := m.FindByCPF(ctx, cpf)
	return s != nil, err
}

func (m *Memory) Close() error { return nil }

// findActive must be called with the lock held.
func (m *Memory) findActive(match func(types.Student) bool) *types.Student {
	for _, s := range m.students {
		if s.IsActive && match(s) {
			return clone(s)
		}
	}
	return nil
}

// clashes reports whether another active student shares s's email or CPF.
// Must be called with the lock held.
func (m *Memory) clashes(s types.Student) bool {
	for id, other := range m.students {
		if id == s.ID || !other.IsActive {
			continue
		}
		if other.Email == s.Email || other.CPF == s.CPF {
			return true
		}
	}
	return false
}

func clone(s types.Student) *types.Student {
	if s.UpdatedAt != nil {
		t := *s.UpdatedAt
		s.UpdatedAt = &t
	}
	return &s
}
