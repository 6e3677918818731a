package sqlite

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/jhoicas/stock-ledger/pkg/config"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// DB conexión al archivo SQLite del ledger. Es el único artefacto que copia el servicio de backup.
type DB struct {
	conn *gorm.DB
	path string
}

// Open abre (o crea) el archivo del ledger con claves foráneas activas, WAL y
// transacciones BEGIN IMMEDIATE para serializar escritores entre procesos.
func Open(ctx context.Context, cfg config.LedgerConfig) (*DB, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("ruta del ledger requerida")
	}
	if dir := filepath.Dir(cfg.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("crear directorio %q: %w", dir, err)
		}
	}
	busy := cfg.BusyTimeout
	if busy <= 0 {
		busy = 5 * time.Second
	}
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=%d&_txlock=immediate",
		cfg.Path, busy.Milliseconds())

	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                 gormlogger.New(log.New(io.Discard, "", log.LstdFlags), gormlogger.Config{LogLevel: gormlogger.Silent}),
		SkipDefaultTransaction: true,
		NowFunc:                func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("abrir ledger: %w", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("obtener sql.DB: %w", err)
	}
	maxOpen := cfg.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 4
	}
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(maxOpen)
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping ledger: %w", err)
	}
	return &DB{conn: conn, path: cfg.Path}, nil
}

// Gorm devuelve la conexión subyacente.
func (d *DB) Gorm() *gorm.DB { return d.conn }

// Path ruta del archivo del ledger.
func (d *DB) Path() string { return d.path }

// Checkpoint vuelca el WAL al archivo principal para que una copia del archivo sea completa.
func (d *DB) Checkpoint(ctx context.Context) error {
	if err := d.conn.WithContext(ctx).Exec("PRAGMA wal_checkpoint(TRUNCATE)").Error; err != nil {
		return fmt.Errorf("wal checkpoint: %w", err)
	}
	return nil
}

// Close cierra todas las conexiones.
func (d *DB) Close() error {
	sqlDB, err := d.conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
