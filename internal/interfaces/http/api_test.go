package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/application/auth"
	"github.com/jhoicas/stock-ledger/internal/application/backup"
	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/ledger"
	"github.com/jhoicas/stock-ledger/internal/application/notification"
	"github.com/jhoicas/stock-ledger/internal/application/report"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/sqlite"
	apphttp "github.com/jhoicas/stock-ledger/internal/interfaces/http"
	"github.com/jhoicas/stock-ledger/pkg/config"
	"github.com/jhoicas/stock-ledger/pkg/logger"
	"github.com/jhoicas/stock-ledger/pkg/metrics"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

type apiFixture struct {
	app         *fiber.App
	adminToken  string
	memberToken string
	adminID     int64
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	ctx := context.Background()
	root := t.TempDir()

	db, err := sqlite.Open(ctx, config.LedgerConfig{Path: filepath.Join(root, "stock_ledger.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	reg := prometheus.NewRegistry()
	l, err := ledger.New(ledger.Params{
		TxRunner:  sqlite.NewTxRunner(db),
		Store:     db,
		Articles:  sqlite.NewArticleRepository(db.Gorm()),
		Movements: sqlite.NewMovementRepository(db.Gorm()),
		Metrics:   metrics.NewLedgerMetrics(reg),
	})
	require.NoError(t, err)
	require.NoError(t, l.Migrate(ctx))

	authUC := auth.NewAuthUseCase(sqlite.NewUserRepository(db.Gorm()), auth.JWTConfig{
		Secret: testJWTSecret, ExpMinutes: testExpMin, Issuer: testIssuer,
	})
	admin, err := authUC.CreateUser(ctx, dto.CreateUserRequest{Username: "admin", Password: "admin-secret", Role: "admin"})
	require.NoError(t, err)
	_, err = authUC.CreateUser(ctx, dto.CreateUserRequest{Username: "ana", Password: "member-secret", Role: "member"})
	require.NoError(t, err)

	app := apphttp.NewApp(apphttp.AppConfig{Name: "stock-ledger-test", Metrics: reg})
	apphttp.Router(app, apphttp.RouterDeps{
		Ledger:           l,
		AuthUC:           authUC,
		ReportUC:         report.NewReportUseCase(l),
		Backups:          backup.NewService(l, db.Path(), filepath.Join(root, "backups"), nil),
		Notifications:    notification.NewEvaluator(l, notification.NewLogNotifier(logger.Nop()), time.Hour, nil),
		BackupSuffix:     "manual",
		JWTSecret:        testJWTSecret,
		OperationTimeout: 5 * time.Second,
	})

	f := &apiFixture{app: app, adminID: admin.ID}
	f.adminToken = f.login(t, "admin", "admin-secret")
	f.memberToken = f.login(t, "ana", "member-secret")
	return f
}

func (f *apiFixture) login(t *testing.T, username, password string) string {
	t.Helper()
	resp, body := f.do(t, http.MethodPost, "/api/auth/login", "", dto.LoginRequest{Username: username, Password: password})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var out dto.LoginResponse
	require.NoError(t, json.Unmarshal(body, &out))
	return out.Token
}

// do lanza la petición con body JSON opcional y devuelve la respuesta y su cuerpo.
func (f *apiFixture) do(t *testing.T, method, path, token string, body any) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, raw
}

func errorCode(t *testing.T, body []byte) string {
	t.Helper()
	var e dto.ErrorResponse
	require.NoError(t, json.Unmarshal(body, &e), string(body))
	return e.Code
}

func (f *apiFixture) createArticle(t *testing.T, ref string, qty, min int64) {
	t.Helper()
	resp, body := f.do(t, http.MethodPost, "/api/articles", f.memberToken, dto.CreateArticleRequest{
		Reference: ref, Description: "tornillo " + ref, InitialQuantity: qty, MinimumQuantity: min,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
}

// ──────────────────────────────────────────────────────────────────────────────
// Públicos
// ──────────────────────────────────────────────────────────────────────────────

func TestHealthYMetrics(t *testing.T) {
	f := newAPIFixture(t)

	resp, body := f.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"ok"`)

	f.createArticle(t, "A1", 1, 0)
	resp, body = f.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "stock_ledger_operations_total")
}

func TestLogin_CredencialesInvalidas(t *testing.T) {
	f := newAPIFixture(t)

	resp, body := f.do(t, http.MethodPost, "/api/auth/login", "", dto.LoginRequest{Username: "admin", Password: "incorrecta"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "UNAUTHORIZED", errorCode(t, body))

	resp, body = f.do(t, http.MethodPost, "/api/auth/login", "", dto.LoginRequest{Username: "nadie", Password: "x"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "UNAUTHORIZED", errorCode(t, body))

	resp, body = f.do(t, http.MethodPost, "/api/auth/login", "", dto.LoginRequest{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION", errorCode(t, body))
}

func TestRutasProtegidas_SinToken(t *testing.T) {
	f := newAPIFixture(t)
	resp, _ := f.do(t, http.MethodGet, "/api/articles", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

// ──────────────────────────────────────────────────────────────────────────────
// Artículos y movimientos
// ──────────────────────────────────────────────────────────────────────────────

func TestArticulos_FlujoCompleto(t *testing.T) {
	f := newAPIFixture(t)

	// Caso 1: alta y duplicado sin distinguir mayúsculas
	f.createArticle(t, "a1", 10, 5)
	resp, body := f.do(t, http.MethodPost, "/api/articles", f.memberToken, dto.CreateArticleRequest{Reference: "A1"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "DUPLICATE", errorCode(t, body))

	// Caso 2: salida mayor que el saldo, sin cambios
	resp, body = f.do(t, http.MethodPost, "/api/articles/A1/movements", f.memberToken,
		dto.AdjustStockRequest{Direction: "REMOVE", Amount: 20})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "INSUFFICIENT_STOCK", errorCode(t, body))

	// Caso 3: cantidad cero
	resp, body = f.do(t, http.MethodPost, "/api/articles/A1/movements", f.memberToken,
		dto.AdjustStockRequest{Direction: "REMOVE", Amount: 0})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "INVALID_AMOUNT", errorCode(t, body))

	// Caso 4: dirección desconocida
	resp, body = f.do(t, http.MethodPost, "/api/articles/A1/movements", f.memberToken,
		dto.AdjustStockRequest{Direction: "MOVE", Amount: 1})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION", errorCode(t, body))

	// Caso 5: salida válida con proyecto y solicitante
	resp, body = f.do(t, http.MethodPost, "/api/articles/a1/movements", f.memberToken,
		dto.AdjustStockRequest{Direction: "REMOVE", Amount: 7, Project: "obra-12", Worker: "Luis"})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var art dto.ArticleResponse
	require.NoError(t, json.Unmarshal(body, &art))
	assert.Equal(t, int64(3), art.Quantity)
	assert.True(t, art.LowStock)

	// Caso 6: edición de metadatos
	resp, body = f.do(t, http.MethodPut, "/api/articles/A1", f.adminToken,
		dto.UpdateArticleRequest{Description: "tornillo M6", MinimumQuantity: 2, Position: "R1-B"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	require.NoError(t, json.Unmarshal(body, &art))
	assert.Equal(t, int64(3), art.Quantity)
	assert.Equal(t, "R1-B", art.Position)

	// Caso 7: historial, del más reciente al más antiguo
	resp, body = f.do(t, http.MethodGet, "/api/articles/A1/movements", f.memberToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var page dto.MovementListResponse
	require.NoError(t, json.Unmarshal(body, &page))
	require.Len(t, page.Items, 3)
	assert.Equal(t, "MODIFY", page.Items[0].Kind)
	assert.Equal(t, "STOCK_REMOVE", page.Items[1].Kind)
	assert.Equal(t, int64(-7), page.Items[1].QuantityDelta)
	assert.Equal(t, "Luis", page.Items[1].Worker)
	assert.Equal(t, "ana", page.Items[1].ActorUsername)
	assert.Equal(t, "CREATE", page.Items[2].Kind)

	// Caso 8: baja; el historial sigue consultable y la referencia no se reutiliza
	resp, _ = f.do(t, http.MethodDelete, "/api/articles/A1", f.adminToken, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, body = f.do(t, http.MethodGet, "/api/articles/A1", f.memberToken, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", errorCode(t, body))

	resp, body = f.do(t, http.MethodGet, "/api/movements?reference=a1&kind=DELETE", f.memberToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &page))
	require.Len(t, page.Items, 1)
	assert.Equal(t, int64(3), page.Items[0].QuantityBefore)
	assert.Equal(t, int64(0), page.Items[0].QuantityAfter)
	require.NotNil(t, page.Items[0].ActorID)
	assert.Equal(t, f.adminID, *page.Items[0].ActorID)

	resp, _ = f.do(t, http.MethodPost, "/api/articles", f.memberToken, dto.CreateArticleRequest{Reference: "A1"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestArticulos_Validaciones(t *testing.T) {
	f := newAPIFixture(t)

	resp, body := f.do(t, http.MethodPost, "/api/articles", f.memberToken, dto.CreateArticleRequest{Description: "sin referencia"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION", errorCode(t, body))
	assert.Contains(t, string(body), "reference")

	resp, body = f.do(t, http.MethodPost, "/api/articles", f.memberToken, dto.CreateArticleRequest{Reference: "B1", InitialQuantity: -1})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION", errorCode(t, body))

	req := httptest.NewRequest(http.MethodPost, "/api/articles", strings.NewReader("{no es json"))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+f.memberToken)
	raw, err := f.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, raw.StatusCode)

	resp, body = f.do(t, http.MethodGet, "/api/movements?from=ayer", f.memberToken, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION", errorCode(t, body))

	resp, _ = f.do(t, http.MethodGet, "/api/movements?from=2024-06-02&to=2024-06-01", f.memberToken, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = f.do(t, http.MethodGet, "/api/articles/low-stock?threshold=-1", f.memberToken, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestArticulos_BusquedaYStockBajo(t *testing.T) {
	f := newAPIFixture(t)
	f.createArticle(t, "VIS-M6", 2, 5)
	f.createArticle(t, "ECROU-M6", 50, 5)
	f.createArticle(t, "RONDELLE", 4, 0)

	resp, body := f.do(t, http.MethodGet, "/api/articles?q=m6", f.memberToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list []dto.ArticleResponse
	require.NoError(t, json.Unmarshal(body, &list))
	require.Len(t, list, 2)
	assert.Equal(t, "ECROU-M6", list[0].Reference)

	resp, body = f.do(t, http.MethodGet, "/api/articles/low-stock", f.memberToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &list))
	require.Len(t, list, 1)
	assert.Equal(t, "VIS-M6", list[0].Reference)

	resp, body = f.do(t, http.MethodGet, "/api/articles/low-stock?threshold=10", f.memberToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &list))
	assert.Len(t, list, 2)
}

// ──────────────────────────────────────────────────────────────────────────────
// Reportes
// ──────────────────────────────────────────────────────────────────────────────

func TestReportes(t *testing.T) {
	f := newAPIFixture(t)
	f.createArticle(t, "A1", 10, 8)
	resp, _ := f.do(t, http.MethodPost, "/api/articles/A1/movements", f.adminToken, dto.AdjustStockRequest{Direction: "REMOVE", Amount: 6})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body := f.do(t, http.MethodGet, "/api/reports/summary", f.memberToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var summary dto.SummaryResponse
	require.NoError(t, json.Unmarshal(body, &summary))
	assert.Equal(t, 2, summary.TotalMovements)
	assert.Equal(t, int64(10), summary.QuantityIn)
	assert.Equal(t, int64(6), summary.QuantityOut)
	require.NotEmpty(t, summary.TopArticles)
	assert.Equal(t, "A1", summary.TopArticles[0].Key)

	resp, body = f.do(t, http.MethodGet, "/api/reports/evolution/a1", f.memberToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var evo dto.EvolutionResponse
	require.NoError(t, json.Unmarshal(body, &evo))
	require.Len(t, evo.Points, 3)
	assert.Equal(t, int64(0), evo.Points[0].Quantity)
	assert.Equal(t, int64(10), evo.Points[1].Quantity)
	assert.Equal(t, int64(4), evo.Points[2].Quantity)

	resp, body = f.do(t, http.MethodGet, "/api/reports/replenishment", f.memberToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var repl struct {
		Total          int                              `json:"total"`
		Replenishments []dto.ReplenishmentSuggestionDTO `json:"replenishments"`
	}
	require.NoError(t, json.Unmarshal(body, &repl))
	require.Equal(t, 1, repl.Total)
	// ideal = ceil(8 * 1.5) = 12, sugerido = 12 - 4
	assert.Equal(t, "12", repl.Replenishments[0].IdealStock.String())
	assert.Equal(t, "8", repl.Replenishments[0].SuggestedOrderQty.String())
}

// ──────────────────────────────────────────────────────────────────────────────
// Administración
// ──────────────────────────────────────────────────────────────────────────────

func TestAdmin_SoloAdmin(t *testing.T) {
	f := newAPIFixture(t)
	for _, r := range []struct{ method, path string }{
		{http.MethodGet, "/api/users"},
		{http.MethodPost, "/api/admin/backups"},
		{http.MethodGet, "/api/admin/backups"},
		{http.MethodPost, "/api/admin/sync/export"},
		{http.MethodPost, "/api/admin/notifications/run"},
	} {
		resp, body := f.do(t, r.method, r.path, f.memberToken, nil)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode, r.path)
		assert.Equal(t, "FORBIDDEN", errorCode(t, body), r.path)
	}
}

func TestAdmin_Usuarios(t *testing.T) {
	f := newAPIFixture(t)

	resp, body := f.do(t, http.MethodPost, "/api/users", f.adminToken, dto.CreateUserRequest{Username: "Pedro", Password: "pedro-secret"})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var user dto.UserResponse
	require.NoError(t, json.Unmarshal(body, &user))
	assert.Equal(t, "pedro", user.Username)
	assert.Equal(t, "member", user.Role)

	resp, body = f.do(t, http.MethodPost, "/api/users", f.adminToken, dto.CreateUserRequest{Username: "PEDRO", Password: "otra-clave"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "DUPLICATE", errorCode(t, body))

	resp, body = f.do(t, http.MethodPost, "/api/users", f.adminToken, dto.CreateUserRequest{Username: "a b", Password: "pedro-secret"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION", errorCode(t, body))

	resp, body = f.do(t, http.MethodGet, "/api/users", f.adminToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var users []dto.UserResponse
	require.NoError(t, json.Unmarshal(body, &users))
	assert.Len(t, users, 3)

	resp, _ = f.do(t, http.MethodDelete, "/api/users/"+itoa(user.ID), f.adminToken, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = f.do(t, http.MethodDelete, "/api/users/"+itoa(user.ID), f.adminToken, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp, _ = f.do(t, http.MethodDelete, "/api/users/"+itoa(f.adminID), f.adminToken, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAdmin_BackupsSyncYAvisos(t *testing.T) {
	f := newAPIFixture(t)
	f.createArticle(t, "A1", 1, 5)

	resp, body := f.do(t, http.MethodPost, "/api/admin/backups", f.adminToken, dto.CreateBackupRequest{Suffix: "pre-import"})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var b dto.BackupResponse
	require.NoError(t, json.Unmarshal(body, &b))
	assert.Equal(t, "pre-import", b.Suffix)
	assert.Positive(t, b.Size)

	resp, body = f.do(t, http.MethodPost, "/api/admin/backups", f.adminToken, dto.CreateBackupRequest{Suffix: "no válido"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION", errorCode(t, body))

	resp, body = f.do(t, http.MethodGet, "/api/admin/backups", f.adminToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var backups []dto.BackupResponse
	require.NoError(t, json.Unmarshal(body, &backups))
	require.Len(t, backups, 1)
	assert.Equal(t, b.Name, backups[0].Name)

	resp, body = f.do(t, http.MethodPost, "/api/admin/sync/export", f.adminToken, nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "SYNC_DISABLED", errorCode(t, body))

	// el segundo aviso dentro del intervalo no repite el artículo
	resp, body = f.do(t, http.MethodPost, "/api/admin/notifications/run", f.adminToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var run dto.NotificationRunResponse
	require.NoError(t, json.Unmarshal(body, &run))
	assert.Equal(t, []string{"A1"}, run.Notified)

	resp, body = f.do(t, http.MethodPost, "/api/admin/notifications/run", f.adminToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &run))
	assert.Empty(t, run.Notified)
}

func itoa(v int64) string {
	b, _ := json.Marshal(v)
	return string(b)
}
