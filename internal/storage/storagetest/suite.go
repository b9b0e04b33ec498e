// Package storagetest holds a testify suite that every storage.Storage
// implementation must pass. Backend packages run it from their own tests:
//
//	func TestMemory(t *testing.T) {
//		suite.Run(t, storagetest.New(func(t *testing.T) storage.Storage { return memory.New() }))
//	}
package storagetest

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"github.com/qapabilities/students-api/internal/storage"
	"github.com/qapabilities/students-api/internal/types"
)

// Factory opens a fresh, empty store for one test.
type Factory func(t *testing.T) storage.Storage

// Suite exercises the storage.Storage contract.
type Suite struct {
	suite.Suite
	factory Factory
	store   storage.Storage
	ctx     context.Context
}

// New returns a Suite backed by stores from factory.
func New(factory Factory) *Suite {
	return &Suite{factory: factory}
}

func (s *Suite) SetupTest() {
	s.ctx = context.Background()
	s.store = s.factory(s.T())
}

func (s *Suite) TearDownTest() {
	if s.store != nil {
		s.Require().NoError(s.store.Close())
	}
}

var created = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

// Student returns an active, unsaved student with a fresh id.
func Student(name, email, cpf string) *types.Student {
	return &types.Student{
		ID:        uuid.NewString(),
		Name:      name,
		Email:     email,
		CPF:       cpf,
		BirthDate: time.Date(2001, 7, 9, 0, 0, 0, 0, time.UTC),
		Phone:     "(11) 5555-0000",
		Address:   "Rua Augusta, 500",
		CreatedAt: created,
		IsActive:  true,
	}
}

func (s *Suite) insert(name, email, cpf string) *types.Student {
	st, err := s.store.Insert(s.ctx, Student(name, email, cpf))
	s.Require().NoError(err)
	return st
}

func (s *Suite) softDelete(st *types.Student) {
	s.Require().NoError(s.store.Deactivate(s.ctx, st.ID, created.Add(time.Hour)))
}

// =============================================================================
// Lookups
// =============================================================================

func (s *Suite) TestInsertAndFind() {
	in := Student("Ana", "ana@example.com", "11144477735")
	_, err := s.store.Insert(s.ctx, in)
	s.Require().NoError(err)

	s.Run("by id", func() {
		got, err := s.store.FindByID(s.ctx, in.ID)
		s.Require().NoError(err)
		s.Require().NotNil(got)
		s.Equal(in.ID, got.ID)
		s.Equal("Ana", got.Name)
		s.Equal("ana@example.com", got.Email)
		s.Equal("11144477735", got.CPF)
		s.Equal("(11) 5555-0000", got.Phone)
		s.Equal("Rua Augusta, 500", got.Address)
		s.True(in.BirthDate.Equal(got.BirthDate), "birth date %v != %v", in.BirthDate, got.BirthDate)
		s.True(in.CreatedAt.Equal(got.CreatedAt), "created at %v != %v", in.CreatedAt, got.CreatedAt)
		s.Nil(got.UpdatedAt)
		s.True(got.IsActive)
	})

	s.Run("by email", func() {
		got, err := s.store.FindByEmail(s.ctx, "ana@example.com")
		s.Require().NoError(err)
		s.Require().NotNil(got)
		s.Equal(in.ID, got.ID)
	})

	s.Run("by cpf", func() {
		got, err := s.store.FindByCPF(s.ctx, "11144477735")
		s.Require().NoError(err)
		s.Require().NotNil(got)
		s.Equal(in.ID, got.ID)
	})

	s.Run("absent returns nil without error", func() {
		got, err := s.store.FindByID(s.ctx, uuid.NewString())
		s.NoError(err)
		s.Nil(got)

		got, err = s.store.FindByEmail(s.ctx, "nobody@example.com")
		s.NoError(err)
		s.Nil(got)

		got, err = s.store.FindByCPF(s.ctx, "52998224725")
		s.NoError(err)
		s.Nil(got)
	})
}

func (s *Suite) TestExistsFamily() {
	st := s.insert("Bruno", "bruno@example.com", "52998224725")

	for range 2 {
		ok, err := s.store.Exists(s.ctx, st.ID)
		s.Require().NoError(err)
		s.True(ok)
	}

	ok, err := s.store.EmailExists(s.ctx, "bruno@example.com")
	s.Require().NoError(err)
	s.True(ok)

	ok, err = s.store.CPFExists(s.ctx, "52998224725")
	s.Require().NoError(err)
	s.True(ok)

	ok, err = s.store.Exists(s.ctx, uuid.NewString())
	s.Require().NoError(err)
	s.False(ok)
}

// =============================================================================
// Soft delete visibility
// =============================================================================

func (s *Suite) TestInactiveStudentsAreInvisible() {
	st := s.insert("Carla", "carla@example.com", "39053344705")
	s.softDelete(st)

	got, err := s.store.FindByID(s.ctx, st.ID)
	s.Require().NoError(err)
	s.Nil(got)

	got, err = s.store.FindByEmail(s.ctx, "carla@example.com")
	s.Require().NoError(err)
	s.Nil(got)

	got, err = s.store.FindByCPF(s.ctx, "39053344705")
	s.Require().NoError(err)
	s.Nil(got)

	for _, check := range []func() (bool, error){
		func() (bool, error) { return s.store.Exists(s.ctx, st.ID) },
		func() (bool, error) { return s.store.EmailExists(s.ctx, "carla@example.com") },
		func() (bool, error) { return s.store.CPFExists(s.ctx, "39053344705") },
	} {
		ok, err := check()
		s.Require().NoError(err)
		s.False(ok)
	}

	page, err := s.store.Search(s.ctx, 1, 10, "")
	s.Require().NoError(err)
	s.Equal(0, page.TotalCount)
	s.Empty(page.Items)
}

// =============================================================================
// Uniqueness
// =============================================================================

func (s *Suite) TestUniqueAmongActive() {
	first := s.insert("Ana", "ana@example.com", "11144477735")

	s.Run("duplicate email rejected", func() {
		_, err := s.store.Insert(s.ctx, Student("Outra Ana", "ana@example.com", "52998224725"))
		s.ErrorIs(err, storage.ErrConflict)
	})

	s.Run("duplicate cpf rejected", func() {
		_, err := s.store.Insert(s.ctx, Student("Outra Ana", "other@example.com", "11144477735"))
		s.ErrorIs(err, storage.ErrConflict)
	})

	s.Run("reusable once the holder is inactive", func() {
		s.softDelete(first)
		_, err := s.store.Insert(s.ctx, Student("Nova Ana", "ana@example.com", "11144477735"))
		s.NoError(err)
	})
}

// =============================================================================
// Save
// =============================================================================

func (s *Suite) TestSave() {
	s.Run("writes only mutable columns", func() {
		st := s.insert("Daniel", "daniel@example.com", "12345678909")
		at := created.Add(2 * time.Hour)

		changed := *st
		changed.Name = "Daniel Lima"
		changed.Email = "daniel.lima@example.com"
		changed.Phone = "+55 11 90000-0000"
		changed.Address = "Rua Nova, 1"
		changed.UpdatedAt = &at
		changed.CPF = "98765432100"
		changed.BirthDate = time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC)
		changed.CreatedAt = at

		_, err := s.store.Save(s.ctx, &changed)
		s.Require().NoError(err)

		got, err := s.store.FindByID(s.ctx, st.ID)
		s.Require().NoError(err)
		s.Require().NotNil(got)
		s.Equal("Daniel Lima", got.Name)
		s.Equal("daniel.lima@example.com", got.Email)
		s.Equal("+55 11 90000-0000", got.Phone)
		s.Equal("Rua Nova, 1", got.Address)
		s.Require().NotNil(got.UpdatedAt)
		s.True(at.Equal(*got.UpdatedAt))
		s.Equal("12345678909", got.CPF)
		s.True(st.BirthDate.Equal(got.BirthDate))
		s.True(created.Equal(got.CreatedAt))
	})

	s.Run("unknown id", func() {
		_, err := s.store.Save(s.ctx, Student("Ghost", "ghost@example.com", "00000000191"))
		s.ErrorIs(err, storage.ErrNotFound)
	})

	s.Run("email taken by another active student", func() {
		a := s.insert("Eva", "eva@example.com", "98765432100")
		s.insert("Fabio", "fabio@example.com", "00000000191")

		a.Email = "fabio@example.com"
		_, err := s.store.Save(s.ctx, a)
		s.ErrorIs(err, storage.ErrConflict)
	})
}

// =============================================================================
// Deactivate
// =============================================================================

func (s *Suite) TestDeactivate() {
	s.Run("hides the row", func() {
		st := s.insert("Gabi", "gabi@example.com", "11144477735")
		at := created.Add(3 * time.Hour)

		s.Require().NoError(s.store.Deactivate(s.ctx, st.ID, at))

		ok, err := s.store.Exists(s.ctx, st.ID)
		s.Require().NoError(err)
		s.False(ok)
	})

	s.Run("second delete is not found", func() {
		st := s.insert("Hugo", "hugo@example.com", "52998224725")
		s.softDelete(st)

		err := s.store.Deactivate(s.ctx, st.ID, created.Add(2*time.Hour))
		s.ErrorIs(err, storage.ErrNotFound)
	})

	s.Run("unknown id", func() {
		err := s.store.Deactivate(s.ctx, uuid.NewString(), created)
		s.ErrorIs(err, storage.ErrNotFound)
	})
}

func (s *Suite) TestSaveAfterDeactivateIsNotFound() {
	st := s.insert("Iris", "iris@example.com", "39053344705")

	// A copy read while the student was still active.
	stale := *st
	s.softDelete(st)

	at := created.Add(2 * time.Hour)
	stale.Name = "Iris Costa"
	stale.UpdatedAt = &at
	_, err := s.store.Save(s.ctx, &stale)
	s.ErrorIs(err, storage.ErrNotFound)

	got, err := s.store.FindByID(s.ctx, st.ID)
	s.Require().NoError(err)
	s.Nil(got, "a save must never reactivate a deleted student")

	ok, err := s.store.CPFExists(s.ctx, "39053344705")
	s.Require().NoError(err)
	s.False(ok)
}

// =============================================================================
// Search
// =============================================================================

func (s *Suite) seedABC() {
	// Inserted out of order so the result order comes from the query.
	s.insert("Carla", "carla@example.com", "39053344705")
	s.insert("Ana", "ana@example.com", "11144477735")
	s.insert("Bruno", "bruno@school.org", "52998224725")
}

func names(p types.Page[types.Student]) []string {
	out := make([]string, 0, len(p.Items))
	for _, st := range p.Items {
		out = append(out, st.Name)
	}
	return out
}

func (s *Suite) TestSearchPaging() {
	s.seedABC()

	first, err := s.store.Search(s.ctx, 1, 2, "")
	s.Require().NoError(err)
	s.Equal([]string{"Ana", "Bruno"}, names(first))
	s.Equal(3, first.TotalCount)
	s.Equal(1, first.PageNumber)
	s.Equal(2, first.PageSize)

	second, err := s.store.Search(s.ctx, 2, 2, "")
	s.Require().NoError(err)
	s.Equal([]string{"Carla"}, names(second))
	s.Equal(3, second.TotalCount)

	beyond, err := s.store.Search(s.ctx, 5, 2, "")
	s.Require().NoError(err)
	s.Empty(beyond.Items)
	s.NotNil(beyond.Items)
	s.Equal(3, beyond.TotalCount)
}

func (s *Suite) TestSearchClampsPaging() {
	s.seedABC()

	p, err := s.store.Search(s.ctx, 0, 2, "")
	s.Require().NoError(err)
	s.Equal(1, p.PageNumber)
	s.Equal([]string{"Ana", "Bruno"}, names(p))

	p, err = s.store.Search(s.ctx, 1, -5, "")
	s.Require().NoError(err)
	s.Equal(0, p.PageSize)
	s.Empty(p.Items)
	s.Equal(3, p.TotalCount)

	s.Run("page number whose offset overflows", func() {
		p, err := s.store.Search(s.ctx, math.MaxInt, 2, "")
		s.Require().NoError(err)
		s.NotNil(p.Items)
		s.Empty(p.Items)
		s.Equal(3, p.TotalCount)
		s.Equal(math.MaxInt, p.PageNumber)
	})

	s.Run("huge page size", func() {
		p, err := s.store.Search(s.ctx, 1, math.MaxInt, "")
		s.Require().NoError(err)
		s.Equal([]string{"Ana", "Bruno", "Carla"}, names(p))

		p, err = s.store.Search(s.ctx, 2, math.MaxInt, "")
		s.Require().NoError(err)
		s.Empty(p.Items)
		s.Equal(3, p.TotalCount)
	})
}

func (s *Suite) TestSearchTerm() {
	s.seedABC()

	tests := []struct {
		term string
		want []string
	}{
		{"an", []string{"Ana"}},
		{"ANA", []string{"Ana"}},
		{"school.org", []string{"Bruno"}},
		{"3905334", []string{"Carla"}},
		{"example.com", []string{"Ana", "Carla"}},
		{"   ", []string{"Ana", "Bruno", "Carla"}},
		{"%", []string{}},
		{"zzz", []string{}},
	}

	for _, tt := range tests {
		s.Run(tt.term, func() {
			p, err := s.store.Search(s.ctx, 1, 10, tt.term)
			s.Require().NoError(err)
			s.Equal(tt.want, names(p))
			s.Equal(len(tt.want), p.TotalCount)
		})
	}
}
