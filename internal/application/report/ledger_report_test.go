package report_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/application/ledger"
	"github.com/jhoicas/stock-ledger/internal/application/report"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/sqlite"
	"github.com/jhoicas/stock-ledger/pkg/config"
)

// ──────────────────────────────────────────────────────────────────────────────
// Reportes sobre el ledger SQLite real
// ──────────────────────────────────────────────────────────────────────────────

func newSQLiteLedger(t *testing.T) (*ledger.Ledger, *sqlite.DB) {
	t.Helper()
	db, err := sqlite.Open(context.Background(), config.LedgerConfig{
		Path:        filepath.Join(t.TempDir(), "ledger.db"),
		BusyTimeout: 5 * time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	// reloj que avanza un minuto por lectura
	clock := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	l, err := ledger.New(ledger.Params{
		TxRunner:  sqlite.NewTxRunner(db),
		Store:     db,
		Articles:  sqlite.NewArticleRepository(db.Gorm()),
		Movements: sqlite.NewMovementRepository(db.Gorm()),
		Now: func() time.Time {
			clock = clock.Add(time.Minute)
			return clock
		},
	})
	require.NoError(t, err)
	require.NoError(t, l.Migrate(context.Background()))
	return l, db
}

func TestReportes_SobreMovimientosAlmacenados(t *testing.T) {
	ctx := context.Background()
	l, db := newSQLiteLedger(t)

	ana := &entity.User{Username: "ana", CredentialHash: "x", Role: entity.RoleMember, CreatedAt: time.Now()}
	require.NoError(t, sqlite.NewUserRepository(db.Gorm()).Create(ctx, ana))

	// Caso 1: REF001 con entrada y salida, REF002 creado por el sistema
	_, err := l.CreateArticle(ctx, ledger.CreateArticleInput{Reference: "ref001", Description: "Tornillo", InitialQuantity: 10, MinimumQuantity: 2, ActorID: &ana.ID})
	require.NoError(t, err)
	_, err = l.AdjustQuantity(ctx, ledger.AdjustQuantityInput{Reference: "REF001", Amount: 5, Direction: entity.DirectionAdd, ActorID: &ana.ID})
	require.NoError(t, err)
	_, err = l.AdjustQuantity(ctx, ledger.AdjustQuantityInput{Reference: "REF001", Amount: 3, Direction: entity.DirectionRemove, Project: "P1"})
	require.NoError(t, err)
	_, err = l.CreateArticle(ctx, ledger.CreateArticleInput{Reference: "ref002", Description: "Tuerca", InitialQuantity: 4})
	require.NoError(t, err)

	uc := report.NewReportUseCase(l)

	sum, err := uc.Summary(ctx, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 4, sum.TotalMovements)
	assert.Equal(t, int64(19), sum.QuantityIn)
	assert.Equal(t, int64(3), sum.QuantityOut)
	require.NotEmpty(t, sum.TopArticles)
	assert.Equal(t, "REF001", sum.TopArticles[0].Key)
	assert.Equal(t, 3, sum.TopArticles[0].Movements)
	assert.Equal(t, int64(18), sum.TopArticles[0].Units)
	require.Len(t, sum.TopActors, 2)
	assert.Equal(t, "ana", sum.TopActors[0].Key)
	assert.Equal(t, int64(15), sum.TopActors[0].Units)
	assert.Equal(t, "system", sum.TopActors[1].Key)

	// Caso 2: evolución cronológica desde el saldo previo al CREATE
	evo, err := uc.StockEvolution(ctx, "ref001", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "REF001", evo.Reference)
	require.Len(t, evo.Points, 4)
	quantities := make([]int64, 0, len(evo.Points))
	for _, p := range evo.Points {
		quantities = append(quantities, p.Quantity)
	}
	assert.Equal(t, []int64{0, 10, 15, 12}, quantities)
	assert.Equal(t, string(entity.MovementCreate), evo.Points[1].Kind)
	assert.Equal(t, string(entity.MovementStockRemove), evo.Points[3].Kind)
	for i := 2; i < len(evo.Points); i++ {
		assert.True(t, evo.Points[i].At.After(evo.Points[i-1].At), "puntos en orden cronológico")
	}

	// Caso 3: el filtro por fecha deja fuera los movimientos anteriores
	from := evo.Points[3].At
	partial, err := uc.StockEvolution(ctx, "REF001", &from, nil)
	require.NoError(t, err)
	require.Len(t, partial.Points, 2)
	assert.Equal(t, int64(15), partial.Points[0].Quantity)
	assert.Equal(t, int64(12), partial.Points[1].Quantity)
}
