package storage

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"surface-tracker/internal/domain/entity"
)

func TestMemoryUserRepository_GetCreatesOnce(t *testing.T) {
	repo := NewMemoryUserRepository()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = repo.Get(ctx, 5, 50)
		}()
	}
	wg.Wait()

	require.Equal(t, 1, repo.Count())
	u, err := repo.Get(ctx, 5, 50)
	require.NoError(t, err)
	require.Equal(t, entity.StateMainMenu, u.State)
	require.Equal(t, "tg-50", u.SessionID)
}

func TestMemoryUserRepository_ReturnsCopies(t *testing.T) {
	repo := NewMemoryUserRepository()
	ctx := context.Background()

	u, err := repo.Get(ctx, 1, 10)
	require.NoError(t, err)
	u.SetState(entity.StateTracking)

	again, err := repo.Get(ctx, 1, 10)
	require.NoError(t, err)
	require.Equal(t, entity.StateMainMenu, again.State, "unsaved change must not leak")

	require.NoError(t, repo.Save(ctx, u))
	again, err = repo.Get(ctx, 1, 10)
	require.NoError(t, err)
	require.Equal(t, entity.StateTracking, again.State)
}

func TestMemoryUserRepository_UpdateState(t *testing.T) {
	repo := NewMemoryUserRepository()
	ctx := context.Background()

	require.NoError(t, repo.UpdateState(ctx, 3, entity.StateTracking))
	require.Zero(t, repo.Count(), "unknown user is ignored")

	_, err := repo.Get(ctx, 3, 30)
	require.NoError(t, err)
	require.NoError(t, repo.UpdateState(ctx, 3, entity.StateAwaitingReference))

	u, err := repo.Get(ctx, 3, 30)
	require.NoError(t, err)
	require.Equal(t, entity.StateAwaitingReference, u.State)
}
