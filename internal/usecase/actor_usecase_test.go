package usecase

import (
	"testing"

	"github.com/contractflow/contractflow/internal/domain"
	"github.com/contractflow/contractflow/internal/infra/password"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActorUseCase(t *testing.T) {
	f := newFixture(t)
	hasher := password.NewBcryptPasswordService(4)
	uc := NewActorUseCase(f.actors, hasher, nil)

	t.Run("non administrators are rejected", func(t *testing.T) {
		for _, actor := range []*domain.Actor{f.finance, f.alice} {
			_, err := uc.List(f.ctx, actor)
			assert.ErrorIs(t, err, domain.ErrForbidden)
			_, err = uc.Create(f.ctx, actor, CreateActorRequest{Username: "eve", Password: "secret1"})
			assert.ErrorIs(t, err, domain.ErrForbidden)
			assert.ErrorIs(t, uc.Delete(f.ctx, actor, f.bob.ID), domain.ErrForbidden)
		}
	})

	var carol *domain.Actor
	t.Run("create defaults to normal role", func(t *testing.T) {
		var err error
		carol, err = uc.Create(f.ctx, f.admin, CreateActorRequest{Username: "carol", Password: "secret1"})
		require.NoError(t, err)
		assert.Equal(t, domain.RoleNormal, carol.Role)
		assert.NoError(t, hasher.ComparePassword(carol.PasswordHash, "secret1"))
	})

	t.Run("duplicate username conflicts", func(t *testing.T) {
		_, err := uc.Create(f.ctx, f.admin, CreateActorRequest{Username: "carol", Password: "secret1"})
		assert.ErrorIs(t, err, domain.ErrConflict)
	})

	t.Run("create validates input", func(t *testing.T) {
		_, err := uc.Create(f.ctx, f.admin, CreateActorRequest{Username: "dave", Password: "123"})
		assert.ErrorIs(t, err, domain.ErrValidation)
		_, err = uc.Create(f.ctx, f.admin, CreateActorRequest{Username: "dave", Password: "secret1", Role: "auditor"})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("update role and password", func(t *testing.T) {
		role := domain.RoleFinance
		secret := "another1"
		updated, err := uc.Update(f.ctx, f.admin, carol.ID, UpdateActorRequest{Role: &role, Password: &secret})
		require.NoError(t, err)
		assert.Equal(t, domain.RoleFinance, updated.Role)

		stored, err := f.actors.FindByID(f.ctx, carol.ID)
		require.NoError(t, err)
		assert.NoError(t, hasher.ComparePassword(stored.PasswordHash, "another1"))

		bad := domain.Role("auditor")
		_, err = uc.Update(f.ctx, f.admin, carol.ID, UpdateActorRequest{Role: &bad})
		assert.ErrorIs(t, err, domain.ErrValidation)

		_, err = uc.Update(f.ctx, f.admin, "missing", UpdateActorRequest{Role: &role})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("list includes everyone", func(t *testing.T) {
		actors, err := uc.List(f.ctx, f.admin)
		require.NoError(t, err)
		assert.Len(t, actors, 5)
	})

	t.Run("delete", func(t *testing.T) {
		assert.ErrorIs(t, uc.Delete(f.ctx, f.admin, f.admin.ID), domain.ErrValidation)
		assert.ErrorIs(t, uc.Delete(f.ctx, f.admin, "missing"), domain.ErrNotFound)
		require.NoError(t, uc.Delete(f.ctx, f.admin, carol.ID))
		_, err := f.actors.FindByID(f.ctx, carol.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestActorUseCase_DeleteKeepsContracts(t *testing.T) {
	f := newFixture(t)
	uc := NewActorUseCase(f.actors, password.NewBcryptPasswordService(4), nil)
	c := f.create(t, f.bob)

	require.NoError(t, uc.Delete(f.ctx, f.admin, f.bob.ID))

	got, err := f.query.Get(f.ctx, f.admin, c.ID)
	require.NoError(t, err)
	assert.Equal(t, f.bob.ID, got.CreatedBy)
	assert.Empty(t, got.CreatedByUsername)

	logs := f.logs(t, c.ID)
	require.Len(t, logs, 1)
	assert.Equal(t, f.bob.ID, logs[0].ActorID)
}
