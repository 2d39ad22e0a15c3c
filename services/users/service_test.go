package users

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tech-arch1tect/authstarter/testutils"
)

func TestService_CreateAndFind(t *testing.T) {
	db := testutils.SetupTestDB(t, &User{})
	service := NewService(db, nil)
	ctx := context.Background()

	created, err := service.Create(ctx, " Ada@Example.com ", "Ada")
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "ada@example.com", created.Email)
	assert.False(t, created.EmailVerified())

	t.Run("lookup is case insensitive", func(t *testing.T) {
		found, err := service.FindByEmail(ctx, "ADA@example.com")

		require.NoError(t, err)
		assert.Equal(t, created.ID, found.ID)
	})

	t.Run("unknown email", func(t *testing.T) {
		found, err := service.FindByEmail(ctx, "nobody@example.com")

		assert.Nil(t, found)
		assert.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("duplicate email", func(t *testing.T) {
		_, err := service.Create(ctx, "ada@example.com", "Other")

		assert.ErrorIs(t, err, ErrEmailTaken)
	})
}

func TestService_MarkEmailVerified(t *testing.T) {
	db := testutils.SetupTestDB(t, &User{})
	service := NewService(db, nil)
	ctx := context.Background()

	_, err := service.Create(ctx, "a@example.com", "A")
	require.NoError(t, err)

	exists, err := service.MarkEmailVerified(ctx, "A@example.com")
	require.NoError(t, err)
	assert.True(t, exists)

	user, err := service.FindByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	require.True(t, user.EmailVerified())
	first := *user.EmailVerifiedAt

	exists, err = service.MarkEmailVerified(ctx, "a@example.com")
	require.NoError(t, err)
	assert.True(t, exists)

	user, err = service.FindByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	assert.True(t, first.Equal(*user.EmailVerifiedAt), "timestamp is set only once")

	exists, err = service.MarkEmailVerified(ctx, "missing@example.com")
	require.NoError(t, err)
	assert.False(t, exists)
}
