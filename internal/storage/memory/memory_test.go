package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/qapabilities/students-api/internal/storage"
	"github.com/qapabilities/students-api/internal/storage/storagetest"
)

func TestMemoryStorage(t *testing.T) {
	suite.Run(t, storagetest.New(func(t *testing.T) storage.Storage {
		return New()
	}))
}

func TestReturnedStudentsAreCopies(t *testing.T) {
	ctx := context.Background()
	m := New()

	in := storagetest.Student("Ana", "ana@example.com", "11144477735")
	_, err := m.Insert(ctx, in)
	require.NoError(t, err)

	in.Name = "mutated after insert"

	got, err := m.FindByID(ctx, in.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ana", got.Name)

	got.Name = "mutated after read"
	again, err := m.FindByID(ctx, in.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ana", again.Name)
}

func TestInsertDuplicateID(t *testing.T) {
	ctx := context.Background()
	m := New()

	a := storagetest.Student("Ana", "ana@example.com", "11144477735")
	_, err := m.Insert(ctx, a)
	require.NoError(t, err)

	b := storagetest.Student("Bia", "bia@example.com", "52998224725")
	b.ID = a.ID
	_, err = m.Insert(ctx, b)
	assert.ErrorIs(t, err, storage.ErrConflict)
}
