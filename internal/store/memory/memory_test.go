package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/healthcare-ti/form-enfermagem/internal/store"
)

const testBucket = "solicitacoes-files"

type MemoryStoreSuite struct {
	suite.Suite
	store *Store
	ctx   context.Context
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func (s *MemoryStoreSuite) SetupTest() {
	s.store = New()
	s.ctx = context.Background()
}

func registration(email, license string) store.Registration {
	return store.Registration{
		Name:    "Maria da Silva",
		Email:   email,
		License: license,
		Phone:   "(21) 9 8765-4321",
		Consent: true,
	}
}

func (s *MemoryStoreSuite) TestInsert() {
	s.Run("assigns increasing ids", func() {
		first, err := s.store.Insert(s.ctx, registration("a@example.com", "12.345.678-9"))
		s.Require().NoError(err)
		second, err := s.store.Insert(s.ctx, registration("b@example.com", "98.765.432-1"))
		s.Require().NoError(err)
		s.Greater(second, first)
		s.Equal(2, s.store.RowCount())
	})

	s.Run("duplicate email reports column", func() {
		_, err := s.store.Insert(s.ctx, registration("a@example.com", "11.111.111-1"))
		s.Require().Error(err)
		s.Equal(store.CodeUniqueViolation, store.CodeOf(err))
		s.Equal(store.UniqueEmail, store.ColumnHint(err))
	})

	s.Run("email match is case sensitive like the unique index", func() {
		_, err := s.store.Insert(s.ctx, registration("B@example.com", "22.222.222-2"))
		s.Require().NoError(err)
	})

	s.Run("duplicate license reports column", func() {
		_, err := s.store.Insert(s.ctx, registration("c@example.com", "12.345.678-9"))
		s.Require().Error(err)
		s.Equal(store.UniqueLicense, store.ColumnHint(err))
	})
}

func (s *MemoryStoreSuite) TestUpdate() {
	id, err := s.store.Insert(s.ctx, registration("a@example.com", "12.345.678-9"))
	s.Require().NoError(err)

	s.Run("sets attachment columns", func() {
		err := s.store.Update(s.ctx, id, map[string]string{store.ColumnPhoto: "fotos-perfil/1/x.jpg"})
		s.Require().NoError(err)
		row, ok := s.store.Row(id)
		s.Require().True(ok)
		s.Equal("fotos-perfil/1/x.jpg", row.Attachments[store.ColumnPhoto])
	})

	s.Run("rejects non attachment columns", func() {
		err := s.store.Update(s.ctx, id, map[string]string{"email": "x"})
		s.Equal(store.CodeInvalidInput, store.CodeOf(err))
	})

	s.Run("missing row", func() {
		err := s.store.Update(s.ctx, id+100, map[string]string{store.ColumnPhoto: "p"})
		s.True(errors.Is(err, store.ErrNotFound))
	})
}

func (s *MemoryStoreSuite) TestDelete() {
	id, err := s.store.Insert(s.ctx, registration("a@example.com", "12.345.678-9"))
	s.Require().NoError(err)

	s.Require().NoError(s.store.Delete(s.ctx, id))
	s.Equal(0, s.store.RowCount())
	s.True(errors.Is(s.store.Delete(s.ctx, id), store.ErrNotFound))

	// The unique values are free again once the row is gone.
	_, err = s.store.Insert(s.ctx, registration("a@example.com", "12.345.678-9"))
	s.NoError(err)
}

func (s *MemoryStoreSuite) TestUploadAndRemove() {
	obj := store.Object{Data: []byte("%PDF-1.4"), ContentType: "application/pdf"}
	opts := store.UploadOptions{CacheControl: "3600", NoOverwrite: true}

	path, err := s.store.Upload(s.ctx, testBucket, "caderneta-vacina/1/a.pdf", obj, opts)
	s.Require().NoError(err)
	s.Equal("caderneta-vacina/1/a.pdf", path)

	stored, ok := s.store.Object(testBucket, path)
	s.Require().True(ok)
	s.Equal("3600", stored.CacheControl)
	s.Equal(obj.Data, stored.Data)

	_, err = s.store.Upload(s.ctx, testBucket, path, obj, opts)
	s.True(errors.Is(err, store.ErrObjectExists))

	_, err = s.store.Upload(s.ctx, testBucket, path, obj, store.UploadOptions{})
	s.NoError(err, "overwrite allowed without NoOverwrite")

	s.Require().NoError(s.store.Remove(s.ctx, testBucket, []string{path, "missing/path"}))
	s.Equal(0, s.store.ObjectCount(testBucket))
}

func TestCancelledContext(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Insert(ctx, registration("a@example.com", "1"))
	require.ErrorIs(t, err, store.ErrUnavailable)
	require.ErrorIs(t, s.Ping(ctx), context.Canceled)
}
