package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/pkg/config"
)

// Requiere un PostgreSQL desechable: LEDGER_TEST_PG_URL=postgres://...
func newTestRepo(t *testing.T) *SnapshotRepo {
	t.Helper()
	url := os.Getenv("LEDGER_TEST_PG_URL")
	if url == "" {
		t.Skip("LEDGER_TEST_PG_URL no definido")
	}
	ctx := context.Background()
	pool, err := NewPool(ctx, config.SyncConfig{DatabaseURL: url})
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, Migrate(ctx, pool))
	return NewSnapshotRepository(pool)
}

func TestSnapshotRepo_ReplaceYLoad(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)
	actor := int64(3)

	snap := &entity.Snapshot{
		TakenAt:  now,
		Articles: []*entity.Article{{Reference: "A1", Description: "tornillo", Quantity: 4, CreatedAt: now, UpdatedAt: now}},
		Movements: []*entity.Movement{
			{ID: 1, ArticleReference: "A1", ActorID: &actor, OccurredAt: now, Kind: entity.MovementCreate, QuantityAfter: 4, QuantityDelta: 4, Worker: "Luis"},
			{ID: 2, ArticleReference: "OLD", OccurredAt: now, Kind: entity.MovementDelete},
		},
	}
	runID := uuid.NewString()
	require.NoError(t, repo.Replace(ctx, runID, snap))
	assert.ErrorIs(t, repo.Replace(ctx, runID, snap), domain.ErrAlreadyExists)

	got, err := repo.Load(ctx)
	require.NoError(t, err)
	require.Len(t, got.Articles, 1)
	require.Len(t, got.Movements, 2)
	assert.Equal(t, "Luis", got.Movements[0].Worker)
	assert.Equal(t, &actor, got.Movements[0].ActorID)
	assert.True(t, now.Equal(got.Movements[0].OccurredAt))

	// Un reemplazo con contexto cancelado conserva la exportación anterior
	cctx, cancel := context.WithCancel(ctx)
	cancel()
	assert.Error(t, repo.Replace(cctx, uuid.NewString(), &entity.Snapshot{TakenAt: now}))
	got, err = repo.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, got.Articles, 1)
}
