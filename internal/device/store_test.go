package device

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prepwise/prepwise-api/internal/db/dbtest"
)

func testToken() string {
	return "ExponentPushToken[" + uuid.NewString()[:22] + "]"
}

func TestStoreIntegration(t *testing.T) {
	store := NewStore(dbtest.New(t))
	ctx := context.Background()

	t.Run("token is globally unique", func(t *testing.T) {
		token := testToken()
		_, err := store.Register(ctx, uuid.New(), Registration{Token: token, Platform: IOS})
		require.NoError(t, err)

		_, err = store.Register(ctx, uuid.New(), Registration{Token: token, Platform: Android})
		assert.ErrorIs(t, err, ErrTokenTaken)
	})

	t.Run("register is idempotent per owner", func(t *testing.T) {
		owner := uuid.New()
		token := testToken()
		name := "Pixel"

		first, err := store.Register(ctx, owner, Registration{Token: token, Platform: Android, DeviceName: &name})
		require.NoError(t, err)
		require.NoError(t, store.Deactivate(ctx, owner, first.ID))

		again, err := store.Register(ctx, owner, Registration{Token: token, Platform: Android})
		require.NoError(t, err)
		assert.Equal(t, first.ID, again.ID)
		assert.True(t, again.IsActive)
		require.NotNil(t, again.DeviceName)
		assert.Equal(t, name, *again.DeviceName)
		assert.False(t, again.LastUsed.Before(first.LastUsed))

		list, err := store.ListByOwner(ctx, owner)
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})

	t.Run("deactivation hides tokens", func(t *testing.T) {
		owner := uuid.New()
		keep, gone := testToken(), testToken()
		_, err := store.Register(ctx, owner, Registration{Token: keep, Platform: IOS})
		require.NoError(t, err)
		d, err := store.Register(ctx, owner, Registration{Token: gone, Platform: Web})
		require.NoError(t, err)

		tokens, err := store.ActiveTokens(ctx)
		require.NoError(t, err)
		assert.Contains(t, tokens, keep)
		assert.Contains(t, tokens, gone)

		n, err := store.DeactivateTokens(ctx, []string{gone, "ExponentPushToken[unknown-unknown-xx]"})
		require.NoError(t, err)
		assert.EqualValues(t, 1, n)

		tokens, err = store.ActiveTokens(ctx)
		require.NoError(t, err)
		assert.Contains(t, tokens, keep)
		assert.NotContains(t, tokens, gone)

		got, err := store.Get(ctx, owner, d.ID)
		require.NoError(t, err)
		assert.False(t, got.IsActive)
	})

	t.Run("owner scoping", func(t *testing.T) {
		owner := uuid.New()
		d, err := store.Register(ctx, owner, Registration{Token: testToken(), Platform: IOS})
		require.NoError(t, err)

		_, err = store.Get(ctx, uuid.New(), d.ID)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, store.Deactivate(ctx, uuid.New(), d.ID), ErrNotFound)
		_, err = store.Touch(ctx, uuid.New(), d.ID)
		assert.ErrorIs(t, err, ErrNotFound)

		found, err := store.GetAny(ctx, d.ID)
		require.NoError(t, err)
		assert.Equal(t, owner, found.OwnerID)

		touched, err := store.Touch(ctx, owner, d.ID)
		require.NoError(t, err)
		assert.False(t, touched.LastUsed.Before(d.LastUsed))
	})
}
