package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"gorm.io/gorm"
)

// SchemaVersion versión registrada en PRAGMA user_version tras migrar.
const SchemaVersion = 3

const createUsers = `CREATE TABLE IF NOT EXISTS users (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	username        TEXT NOT NULL UNIQUE COLLATE NOCASE,
	credential_hash TEXT NOT NULL,
	role            TEXT NOT NULL DEFAULT 'member' CHECK (role IN ('admin', 'member')),
	created_at      TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

const createArticles = `CREATE TABLE IF NOT EXISTS articles (
	reference        TEXT PRIMARY KEY COLLATE NOCASE CHECK (reference <> '' AND reference = upper(reference)),
	description      TEXT NOT NULL DEFAULT '',
	quantity         INTEGER NOT NULL DEFAULT 0 CHECK (quantity >= 0),
	minimum_quantity INTEGER NOT NULL DEFAULT 0 CHECK (minimum_quantity >= 0),
	position         TEXT NOT NULL DEFAULT '',
	created_at       TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at       TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	last_notified_at TIMESTAMP NULL
)`

// movements no referencia a articles: el historial sobrevive al borrado del artículo.
const movementsDDL = `CREATE TABLE IF NOT EXISTS %s (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	article_reference TEXT NOT NULL,
	actor_id          INTEGER NULL REFERENCES users(id) ON DELETE SET NULL,
	occurred_at       TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	kind              TEXT NOT NULL DEFAULT 'UNKNOWN',
	quantity_before   INTEGER NOT NULL DEFAULT 0,
	quantity_after    INTEGER NOT NULL DEFAULT 0 CHECK (quantity_after >= 0),
	quantity_delta    INTEGER NOT NULL DEFAULT 0,
	project           TEXT NULL,
	worker            TEXT NULL,
	CHECK (quantity_after = quantity_before + quantity_delta)
)`

var indexes = []string{
	`CREATE INDEX IF NOT EXISTS idx_movements_article ON movements(article_reference, occurred_at)`,
	`CREATE INDEX IF NOT EXISTS idx_movements_occurred ON movements(occurred_at)`,
	`CREATE INDEX IF NOT EXISTS idx_movements_actor ON movements(actor_id)`,
}

// columnSpec columna añadible con ALTER TABLE ADD COLUMN. backfill se ejecuta tras añadirla.
type columnSpec struct {
	name     string
	ddl      string
	backfill string
}

// SQLite no admite defaults no constantes en ADD COLUMN; las fechas se rellenan después.
var articleColumns = []columnSpec{
	{name: "description", ddl: "TEXT NOT NULL DEFAULT ''"},
	{name: "quantity", ddl: "INTEGER NOT NULL DEFAULT 0"},
	{name: "minimum_quantity", ddl: "INTEGER NOT NULL DEFAULT 0"},
	{name: "position", ddl: "TEXT NOT NULL DEFAULT ''"},
	{name: "created_at", ddl: "TIMESTAMP NULL", backfill: "UPDATE articles SET created_at = CURRENT_TIMESTAMP WHERE created_at IS NULL"},
	{name: "updated_at", ddl: "TIMESTAMP NULL", backfill: "UPDATE articles SET updated_at = COALESCE(created_at, CURRENT_TIMESTAMP) WHERE updated_at IS NULL"},
	{name: "last_notified_at", ddl: "TIMESTAMP NULL"},
}

var userColumns = []columnSpec{
	{name: "role", ddl: "TEXT NOT NULL DEFAULT 'member'"},
	{name: "created_at", ddl: "TIMESTAMP NULL", backfill: "UPDATE users SET created_at = CURRENT_TIMESTAMP WHERE created_at IS NULL"},
}

// movementColumns en el orden de la tabla canónica; legacy son nombres anteriores de la columna.
var movementColumns = []struct {
	columnSpec
	legacy       string
	rebuildValue string
}{
	{columnSpec: columnSpec{name: "id"}, rebuildValue: "NULL"},
	{columnSpec: columnSpec{name: "article_reference"}, rebuildValue: "''"},
	{columnSpec: columnSpec{name: "actor_id", ddl: "INTEGER NULL REFERENCES users(id) ON DELETE SET NULL"}, rebuildValue: "NULL"},
	{columnSpec: columnSpec{name: "occurred_at", ddl: "TIMESTAMP NULL", backfill: "UPDATE movements SET occurred_at = CURRENT_TIMESTAMP WHERE occurred_at IS NULL"}, rebuildValue: "CURRENT_TIMESTAMP"},
	{columnSpec: columnSpec{name: "kind", ddl: "TEXT NOT NULL DEFAULT 'UNKNOWN'"}, rebuildValue: "'UNKNOWN'"},
	{columnSpec: columnSpec{name: "quantity_before", ddl: "INTEGER NOT NULL DEFAULT 0"}, rebuildValue: "0"},
	{columnSpec: columnSpec{name: "quantity_after", ddl: "INTEGER NOT NULL DEFAULT 0"}, rebuildValue: "0"},
	{columnSpec: columnSpec{name: "quantity_delta", ddl: "INTEGER NOT NULL DEFAULT 0"}, rebuildValue: "0"},
	{columnSpec: columnSpec{name: "project", ddl: "TEXT NULL"}, legacy: "comment", rebuildValue: "NULL"},
	{columnSpec: columnSpec{name: "worker", ddl: "TEXT NULL"}, rebuildValue: "NULL"},
}

// Migrate lleva el esquema a la versión actual dentro de una sola transacción.
// Añade columnas faltantes y reconstruye movements (copiar, intercambiar, borrar) cuando
// conserva una FK hacia articles o la columna histórica comment. Es idempotente.
func (d *DB) Migrate(ctx context.Context) error {
	tx := d.conn.WithContext(ctx).Begin()
	if tx.Error != nil {
		return &domain.MigrationError{Step: "begin", Err: tx.Error}
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range []string{createUsers, createArticles} {
		if err := tx.Exec(stmt).Error; err != nil {
			return &domain.MigrationError{Step: "create table", Err: err}
		}
	}
	if err := addMissingColumns(tx, "users", userColumns); err != nil {
		return err
	}
	if err := addMissingColumns(tx, "articles", articleColumns); err != nil {
		return err
	}
	if err := migrateMovements(tx); err != nil {
		return err
	}
	for _, stmt := range indexes {
		if err := tx.Exec(stmt).Error; err != nil {
			return &domain.MigrationError{Step: "create index", Err: err}
		}
	}
	if err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", SchemaVersion)).Error; err != nil {
		return &domain.MigrationError{Step: "user_version", Err: err}
	}
	if err := tx.Commit().Error; err != nil {
		return &domain.MigrationError{Step: "commit", Err: err}
	}
	return nil
}

// UserVersion devuelve PRAGMA user_version.
func (d *DB) UserVersion(ctx context.Context) (int, error) {
	var v int
	if err := d.conn.WithContext(ctx).Raw("PRAGMA user_version").Scan(&v).Error; err != nil {
		return 0, fmt.Errorf("user_version: %w", err)
	}
	return v, nil
}

func migrateMovements(tx *gorm.DB) error {
	if !tx.Migrator().HasTable("movements") {
		if err := tx.Exec(fmt.Sprintf(movementsDDL, "movements")).Error; err != nil {
			return &domain.MigrationError{Step: "create table movements", Err: err}
		}
		return nil
	}

	cols, err := columnSet(tx, "movements")
	if err != nil {
		return err
	}
	rebuild, err := movementsNeedRebuild(tx, cols)
	if err != nil {
		return err
	}
	if rebuild {
		return rebuildMovements(tx, cols)
	}

	specs := make([]columnSpec, 0, len(movementColumns))
	for _, c := range movementColumns {
		if c.ddl != "" {
			specs = append(specs, c.columnSpec)
		}
	}
	return addMissingColumns(tx, "movements", specs)
}

// movementsNeedRebuild detecta esquemas que ADD COLUMN no puede corregir:
// una FK hacia articles (con o sin cascada) o la columna comment sin project.
func movementsNeedRebuild(tx *gorm.DB, cols map[string]struct{}) (bool, error) {
	var targets []string
	if err := tx.Raw(`SELECT "table" FROM pragma_foreign_key_list('movements')`).Scan(&targets).Error; err != nil {
		return false, &domain.MigrationError{Step: "inspect foreign keys", Err: err}
	}
	for _, t := range targets {
		if strings.EqualFold(t, "articles") {
			return true, nil
		}
	}
	_, hasComment := cols["comment"]
	_, hasProject := cols["project"]
	return hasComment && !hasProject, nil
}

func rebuildMovements(tx *gorm.DB, cols map[string]struct{}) error {
	if err := tx.Exec("DROP TABLE IF EXISTS movements_new").Error; err != nil {
		return &domain.MigrationError{Step: "rebuild movements", Err: err}
	}
	if err := tx.Exec(fmt.Sprintf(movementsDDL, "movements_new")).Error; err != nil {
		return &domain.MigrationError{Step: "rebuild movements", Err: err}
	}

	names := make([]string, 0, len(movementColumns))
	exprs := make([]string, 0, len(movementColumns))
	for _, c := range movementColumns {
		names = append(names, c.name)
		switch {
		case has(cols, c.name):
			exprs = append(exprs, c.name)
		case c.legacy != "" && has(cols, c.legacy):
			exprs = append(exprs, c.legacy)
		default:
			exprs = append(exprs, c.rebuildValue)
		}
	}
	copyStmt := fmt.Sprintf("INSERT INTO movements_new (%s) SELECT %s FROM movements",
		strings.Join(names, ", "), strings.Join(exprs, ", "))

	for _, stmt := range []string{
		copyStmt,
		"DROP TABLE movements",
		"ALTER TABLE movements_new RENAME TO movements",
	} {
		if err := tx.Exec(stmt).Error; err != nil {
			return &domain.MigrationError{Step: "rebuild movements", Err: err}
		}
	}
	return nil
}

func addMissingColumns(tx *gorm.DB, table string, specs []columnSpec) error {
	cols, err := columnSet(tx, table)
	if err != nil {
		return err
	}
	for _, c := range specs {
		if has(cols, c.name) {
			continue
		}
		stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, c.name, c.ddl)
		if err := tx.Exec(stmt).Error; err != nil {
			return &domain.MigrationError{Step: fmt.Sprintf("add column %s.%s", table, c.name), Err: err}
		}
		if c.backfill != "" {
			if err := tx.Exec(c.backfill).Error; err != nil {
				return &domain.MigrationError{Step: fmt.Sprintf("backfill %s.%s", table, c.name), Err: err}
			}
		}
	}
	return nil
}

func columnSet(tx *gorm.DB, table string) (map[string]struct{}, error) {
	var names []string
	if err := tx.Raw("SELECT name FROM pragma_table_info(?)", table).Scan(&names).Error; err != nil {
		return nil, &domain.MigrationError{Step: "inspect " + table, Err: err}
	}
	out := make(map[string]struct{}, len(names))
	for _, n := range names {
		out[strings.ToLower(n)] = struct{}{}
	}
	return out, nil
}

func has(set map[string]struct{}, name string) bool {
	_, ok := set[name]
	return ok
}
