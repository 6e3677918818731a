package ledger_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/application/ledger"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/sqlite"
	"github.com/jhoicas/stock-ledger/pkg/config"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

type fixture struct {
	ledger *ledger.Ledger
	db     *sqlite.DB
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := sqlite.Open(context.Background(), config.LedgerConfig{
		Path:        filepath.Join(t.TempDir(), "ledger.db"),
		BusyTimeout: 5 * time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	l, err := ledger.New(ledger.Params{
		TxRunner:  sqlite.NewTxRunner(db),
		Store:     db,
		Articles:  sqlite.NewArticleRepository(db.Gorm()),
		Movements: sqlite.NewMovementRepository(db.Gorm()),
	})
	require.NoError(t, err)
	require.NoError(t, l.Migrate(context.Background()))
	return &fixture{ledger: l, db: db}
}

func (f *fixture) create(t *testing.T, ref string, qty, min int64) *entity.Article {
	t.Helper()
	a, err := f.ledger.CreateArticle(context.Background(), ledger.CreateArticleInput{
		Reference: ref, Description: "desc " + ref, InitialQuantity: qty, MinimumQuantity: min,
	})
	require.NoError(t, err)
	return a
}

func (f *fixture) adjust(ref string, amount int64, dir entity.Direction) (*entity.Article, error) {
	return f.ledger.AdjustQuantity(context.Background(), ledger.AdjustQuantityInput{
		Reference: ref, Amount: amount, Direction: dir,
	})
}

func (f *fixture) history(t *testing.T, ref string) []*entity.Movement {
	t.Helper()
	movs, err := f.ledger.ListMovements(context.Background(), entity.MovementFilter{Reference: ref})
	require.NoError(t, err)
	return movs
}

// assertInvariant verifica que cada artículo coincide con el quantity_after de su último movimiento.
func assertInvariant(t *testing.T, f *fixture) {
	t.Helper()
	snap, err := f.ledger.ExportSnapshot(context.Background())
	require.NoError(t, err)
	require.NoError(t, ledger.ValidateSnapshot(snap))
}

// ──────────────────────────────────────────────────────────────────────────────
// Mutaciones
// ──────────────────────────────────────────────────────────────────────────────

func TestCreateArticle_RegistraMovimientoCreate(t *testing.T) {
	f := newFixture(t)
	a := f.create(t, "  ref001 ", 12, 5)

	assert.Equal(t, "REF001", a.Reference)
	assert.Equal(t, int64(12), a.Quantity)

	movs := f.history(t, "ref001")
	require.Len(t, movs, 1)
	assert.Equal(t, entity.MovementCreate, movs[0].Kind)
	assert.Equal(t, int64(0), movs[0].QuantityBefore)
	assert.Equal(t, int64(12), movs[0].QuantityAfter)
	assert.Equal(t, int64(12), movs[0].QuantityDelta)
	assertInvariant(t, f)
}

func TestCreateArticle_DuplicadoSinDistinguirMayusculas(t *testing.T) {
	f := newFixture(t)
	f.create(t, "REF001", 1, 0)

	_, err := f.ledger.CreateArticle(context.Background(), ledger.CreateArticleInput{Reference: "ref001"})
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
	assert.Len(t, f.history(t, "REF001"), 1, "el rechazo no escribe movimientos")
}

func TestCreateArticle_EntradaInvalida(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := []ledger.CreateArticleInput{
		{Reference: "   "},
		{Reference: "A\x00B"},
		{Reference: "A1", InitialQuantity: -1},
		{Reference: "A1", MinimumQuantity: -1},
		{Reference: string(make([]byte, entity.MaxReferenceLength+1))},
	}
	for _, in := range cases {
		_, err := f.ledger.CreateArticle(ctx, in)
		assert.ErrorIs(t, err, domain.ErrInvalidInput, "entrada %+v", in)
	}
}

func TestUpdateMetadata_MovimientoModifyConDeltaCero(t *testing.T) {
	f := newFixture(t)
	f.create(t, "A1", 7, 1)

	a, err := f.ledger.UpdateMetadata(context.Background(), ledger.UpdateMetadataInput{
		Reference: "a1", Description: "Tornillo M6", MinimumQuantity: 10, Position: "R2-B",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(7), a.Quantity)
	assert.Equal(t, "R2-B", a.Position)
	assert.True(t, a.IsLowStock())

	movs := f.history(t, "A1")
	require.Len(t, movs, 2)
	assert.Equal(t, entity.MovementModify, movs[0].Kind)
	assert.Equal(t, int64(0), movs[0].QuantityDelta)
	assert.Equal(t, int64(7), movs[0].QuantityBefore)
	assert.Equal(t, int64(7), movs[0].QuantityAfter)

	_, err = f.ledger.UpdateMetadata(context.Background(), ledger.UpdateMetadataInput{Reference: "NOPE"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAdjustQuantity_EntradaYSalida(t *testing.T) {
	f := newFixture(t)
	f.create(t, "A1", 10, 0)

	a, err := f.ledger.AdjustQuantity(context.Background(), ledger.AdjustQuantityInput{
		Reference: "A1", Amount: 3, Direction: entity.DirectionRemove, Project: "Obra Norte", Worker: "Luis",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(7), a.Quantity)

	a, err = f.adjust("A1", 5, entity.DirectionAdd)
	require.NoError(t, err)
	assert.Equal(t, int64(12), a.Quantity)

	movs := f.history(t, "A1")
	require.Len(t, movs, 3)
	assert.Equal(t, entity.MovementStockAdd, movs[0].Kind)
	assert.Equal(t, int64(5), movs[0].QuantityDelta)
	assert.Equal(t, entity.MovementStockRemove, movs[1].Kind)
	assert.Equal(t, int64(-3), movs[1].QuantityDelta)
	assert.Equal(t, "Obra Norte", movs[1].Project)
	assert.Equal(t, "Luis", movs[1].Worker)
	assertInvariant(t, f)
}

func TestAdjustQuantity_StockInsuficienteNoModifica(t *testing.T) {
	f := newFixture(t)
	f.create(t, "A1", 2, 0)

	_, err := f.adjust("A1", 3, entity.DirectionRemove)
	require.ErrorIs(t, err, domain.ErrInsufficientStock)
	var ise *domain.InsufficientStockError
	require.ErrorAs(t, err, &ise)
	assert.Equal(t, int64(2), ise.Available)
	assert.Equal(t, int64(3), ise.Requested)

	a, err := f.ledger.GetArticle(context.Background(), "A1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), a.Quantity)
	assert.Len(t, f.history(t, "A1"), 1)

	// Retirar exactamente el saldo deja cero
	a, err = f.adjust("A1", 2, entity.DirectionRemove)
	require.NoError(t, err)
	assert.Equal(t, int64(0), a.Quantity)
}

func TestAdjustQuantity_CantidadInvalida(t *testing.T) {
	f := newFixture(t)
	f.create(t, "A1", 2, 0)

	for _, amount := range []int64{0, -4} {
		_, err := f.adjust("A1", amount, entity.DirectionAdd)
		assert.ErrorIs(t, err, domain.ErrInvalidAmount)
	}
	_, err := f.adjust("A1", 1, entity.Direction("SIDEWAYS"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.adjust("NOPE", 1, entity.DirectionAdd)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Len(t, f.history(t, "A1"), 1)
}

func TestDeleteArticle_ConservaHistorial(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.create(t, "A1", 4, 0)
	_, err := f.adjust("A1", 1, entity.DirectionRemove)
	require.NoError(t, err)

	require.NoError(t, f.ledger.DeleteArticle(ctx, "a1", nil))

	_, err = f.ledger.GetArticle(ctx, "A1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	movs := f.history(t, "A1")
	require.Len(t, movs, 3, "el historial sobrevive al borrado")
	assert.Equal(t, entity.MovementDelete, movs[0].Kind)
	assert.Equal(t, int64(3), movs[0].QuantityBefore)
	assert.Equal(t, int64(0), movs[0].QuantityAfter)
	assert.Equal(t, int64(-3), movs[0].QuantityDelta)

	// Estado terminal
	_, err = f.adjust("A1", 1, entity.DirectionAdd)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, f.ledger.DeleteArticle(ctx, "A1", nil), domain.ErrNotFound)
	_, err = f.ledger.CreateArticle(ctx, ledger.CreateArticleInput{Reference: "A1"})
	assert.ErrorIs(t, err, domain.ErrAlreadyExists, "una referencia eliminada queda retirada")
	assertInvariant(t, f)
}

func TestMarkNotified(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.create(t, "A1", 0, 3)
	when := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)

	require.NoError(t, f.ledger.MarkNotified(ctx, "A1", when))
	a, err := f.ledger.GetArticle(ctx, "A1")
	require.NoError(t, err)
	require.NotNil(t, a.LastNotifiedAt)
	assert.True(t, when.Equal(*a.LastNotifiedAt))
	assert.Len(t, f.history(t, "A1"), 1, "marcar no genera movimientos")

	assert.ErrorIs(t, f.ledger.MarkNotified(ctx, "NOPE", when), domain.ErrNotFound)
}

// ──────────────────────────────────────────────────────────────────────────────
// Consultas
// ──────────────────────────────────────────────────────────────────────────────

func TestListLowStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.create(t, "A", 3, 5)   // bajo su mínimo
	f.create(t, "B", 10, 10) // igual al mínimo: no
	f.create(t, "C", 14, 0)

	low, err := f.ledger.ListLowStock(ctx, nil)
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.Equal(t, "A", low[0].Reference)

	threshold := int64(15)
	low, err = f.ledger.ListLowStock(ctx, &threshold)
	require.NoError(t, err)
	assert.Len(t, low, 3, "con umbral explícito se ignora el mínimo")

	negative := int64(-1)
	_, err = f.ledger.ListLowStock(ctx, &negative)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestListAndSearchArticles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.create(t, "B-200", 1, 0)
	f.create(t, "A-100", 1, 0)

	all, err := f.ledger.ListArticles(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "A-100", all[0].Reference)

	found, err := f.ledger.SearchArticles(ctx, "desc b-2")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "B-200", found[0].Reference)

	found, err = f.ledger.SearchArticles(ctx, "  ")
	require.NoError(t, err)
	assert.Len(t, found, 2)
}

func TestListMovements_FiltrosInvalidos(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	from := time.Now()
	to := from.Add(-time.Hour)

	_, err := f.ledger.ListMovements(ctx, entity.MovementFilter{From: &from, To: &to})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = f.ledger.ListMovements(ctx, entity.MovementFilter{Kind: "AJOUT"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = f.ledger.ListMovements(ctx, entity.MovementFilter{Limit: -1})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

// ──────────────────────────────────────────────────────────────────────────────
// Concurrencia, tiempo límite y migración
// ──────────────────────────────────────────────────────────────────────────────

func TestAdjustQuantity_ConcurrenteSinActualizacionesPerdidas(t *testing.T) {
	f := newFixture(t)
	f.create(t, "HOT", 100, 0)

	const n = 40
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			dir := entity.DirectionAdd
			if i%2 == 1 {
				dir = entity.DirectionRemove
			}
			_, err := f.adjust("HOT", int64(i%5+1), dir)
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	var net int64
	for i := 0; i < n; i++ {
		amount := int64(i%5 + 1)
		if i%2 == 1 {
			amount = -amount
		}
		net += amount
	}
	a, err := f.ledger.GetArticle(context.Background(), "HOT")
	require.NoError(t, err)
	assert.Equal(t, 100+net, a.Quantity)
	assert.Len(t, f.history(t, "HOT"), n+1)
	assertInvariant(t, f)
}

func TestWrite_TiempoLimiteNoModifica(t *testing.T) {
	f := newFixture(t)
	f.create(t, "A1", 5, 0)

	holding := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- f.ledger.WithExclusiveAccess(context.Background(), func(context.Context) error {
			close(holding)
			<-release
			return nil
		})
	}()
	<-holding

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := f.ledger.AdjustQuantity(ctx, ledger.AdjustQuantityInput{Reference: "A1", Amount: 1, Direction: entity.DirectionAdd})
	assert.ErrorIs(t, err, domain.ErrStorageFailure)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	require.NoError(t, <-done)

	a, err := f.ledger.GetArticle(context.Background(), "A1")
	require.NoError(t, err)
	assert.Equal(t, int64(5), a.Quantity)
}

func TestMigrate_IdempotenteConDatos(t *testing.T) {
	f := newFixture(t)
	f.create(t, "A1", 5, 0)

	require.NoError(t, f.ledger.Migrate(context.Background()))
	require.NoError(t, f.ledger.Migrate(context.Background()))

	a, err := f.ledger.GetArticle(context.Background(), "A1")
	require.NoError(t, err)
	assert.Equal(t, int64(5), a.Quantity)
}
