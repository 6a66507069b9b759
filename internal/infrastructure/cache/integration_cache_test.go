package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketplace-platform/webhook-service/internal/domain"
	"github.com/marketplace-platform/webhook-service/internal/testutil"
)

func newIntegration(t *testing.T) *domain.Integration {
	t.Helper()
	integration, err := domain.NewIntegration("acme", "Acme", domain.IntegrationTypeMarketplace, "s3cret", nil)
	require.NoError(t, err)
	return integration
}

func TestIntegrationRepository_CachesProviderLookups(t *testing.T) {
	integration := newIntegration(t)
	backing := testutil.NewIntegrationRepo(integration)
	repo := NewIntegrationRepository(backing, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		found, err := repo.FindByProvider(ctx, "acme")
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, integration.IntegrationID, found.IntegrationID)
	}
	assert.Equal(t, 1, backing.Calls)

	t.Run("callers cannot mutate the cached entry", func(t *testing.T) {
		found, err := repo.FindByProvider(ctx, "acme")
		require.NoError(t, err)
		found.Active = false

		again, err := repo.FindByProvider(ctx, "acme")
		require.NoError(t, err)
		assert.True(t, again.Active)
	})
}

func TestIntegrationRepository_SaveInvalidates(t *testing.T) {
	integration := newIntegration(t)
	backing := testutil.NewIntegrationRepo(integration)
	repo := NewIntegrationRepository(backing, time.Minute)
	ctx := context.Background()

	_, err := repo.FindByProvider(ctx, "acme")
	require.NoError(t, err)

	integration.Deactivate()
	require.NoError(t, repo.Save(ctx, integration))

	found, err := repo.FindByProvider(ctx, "acme")
	require.NoError(t, err)
	assert.False(t, found.Active)
	assert.Equal(t, 2, backing.Calls)
}

func TestIntegrationRepository_MissesAndErrorsAreNotCached(t *testing.T) {
	backing := testutil.NewIntegrationRepo()
	repo := NewIntegrationRepository(backing, time.Minute)
	ctx := context.Background()

	found, err := repo.FindByProvider(ctx, "globex")
	require.NoError(t, err)
	assert.Nil(t, found)

	backing.Err = testutil.ErrInjected
	_, err = repo.FindByProvider(ctx, "globex")
	assert.ErrorIs(t, err, testutil.ErrInjected)

	backing.Err = nil
	integration, err := domain.NewIntegration("globex", "", domain.IntegrationTypeCRM, "", nil)
	require.NoError(t, err)
	require.NoError(t, backing.Save(ctx, integration))

	found, err = repo.FindByProvider(ctx, "globex")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, 3, backing.Calls)
}

func TestIntegrationRepository_Expiry(t *testing.T) {
	backing := testutil.NewIntegrationRepo(newIntegration(t))
	repo := NewIntegrationRepository(backing, 10*time.Millisecond)
	ctx := context.Background()

	_, err := repo.FindByProvider(ctx, "acme")
	require.NoError(t, err)
	time.Sleep(20 * time.Millisecond)
	_, err = repo.FindByProvider(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, 2, backing.Calls)

	repo.Flush()
	_, err = repo.FindByProvider(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, 3, backing.Calls)
}
