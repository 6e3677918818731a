package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config agrupa la configuración de la aplicación (lectura vía Viper desde env y opcionalmente archivo).
type Config struct {
	App          AppConfig
	Ledger       LedgerConfig
	HTTP         HTTPConfig
	JWT          JWTConfig
	Sync         SyncConfig
	Backup       BackupConfig
	Notification NotificationConfig
	Redis        RedisConfig
	Metrics      MetricsConfig
}

// AppConfig configuración general de la aplicación.
type AppConfig struct {
	Env      string // development, staging, production
	Name     string
	LogLevel string // trace, debug, info, warn, error
}

// LedgerConfig configuración del almacén principal (archivo SQLite único).
type LedgerConfig struct {
	Path             string
	BusyTimeout      time.Duration
	MaxOpenConns     int
	OperationTimeout time.Duration // tiempo máximo por operación interactiva
}

// HTTPConfig configuración del servidor HTTP.
type HTTPConfig struct {
	Host string
	Port int
}

// Addr devuelve la dirección de escucha (host:port).
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// JWTConfig configuración de JWT.
type JWTConfig struct {
	Secret     string
	Expiration int // minutos
	Issuer     string
}

// SyncConfig configuración de la exportación periódica hacia PostgreSQL.
// Si DatabaseURL no está vacío, se usa como connection string completo.
type SyncConfig struct {
	Enabled     bool
	Interval    time.Duration
	DatabaseURL string
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string
}

// ConnectionString devuelve el DSN a usar: DATABASE_URL si está definido, si no el construido con DSN().
func (c SyncConfig) ConnectionString() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return c.DSN()
}

// DSN devuelve el connection string para PostgreSQL con URL encoding para caracteres especiales.
func (c SyncConfig) DSN() string {
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.DBName,
		RawQuery: fmt.Sprintf("sslmode=%s", c.SSLMode),
	}
	return u.String()
}

// BackupConfig configuración de copias de seguridad del archivo del ledger.
type BackupConfig struct {
	Enabled  bool
	Dir      string
	Interval time.Duration
	Suffix   string // clase de sufijo para las copias programadas
	Retain   int    // copias conservadas por clase de sufijo
}

// NotificationConfig configuración del evaluador de stock bajo.
type NotificationConfig struct {
	Enabled          bool
	Interval         time.Duration // frecuencia de evaluación
	RenotifyInterval time.Duration // intervalo mínimo entre avisos del mismo artículo
}

// RedisConfig configuración opcional para el lock del planificador entre procesos.
type RedisConfig struct {
	URL     string
	LockKey string
	LockTTL time.Duration
}

// MetricsConfig habilita la exposición de métricas Prometheus.
type MetricsConfig struct {
	Enabled bool
}

// Load lee la configuración desde variables de entorno (y opcionalmente desde archivo).
// Las env vars tienen prioridad. Nombres esperados: APP_ENV, LEDGER_PATH, JWT_SECRET, etc.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // ignoramos error si no existe

	v.SetConfigName("config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	_ = v.ReadInConfig()

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfg := &Config{
		App: AppConfig{
			Env:      getString(v, "APP_ENV", "development"),
			Name:     getString(v, "APP_NAME", "stock-ledger"),
			LogLevel: getString(v, "LOG_LEVEL", "info"),
		},
		Ledger: LedgerConfig{
			Path:             getString(v, "LEDGER_PATH", "data/stock_ledger.db"),
			BusyTimeout:      getDuration(v, "LEDGER_BUSY_TIMEOUT", 5*time.Second),
			MaxOpenConns:     getInt(v, "LEDGER_MAX_OPEN_CONNS", 4),
			OperationTimeout: getDuration(v, "LEDGER_OPERATION_TIMEOUT", 10*time.Second),
		},
		HTTP: HTTPConfig{
			Host: getString(v, "HTTP_HOST", "0.0.0.0"),
			Port: getInt(v, "HTTP_PORT", 8080),
		},
		JWT: JWTConfig{
			Secret:     getString(v, "JWT_SECRET", ""),
			Expiration: getInt(v, "JWT_EXPIRATION_MINUTES", 480),
			Issuer:     getString(v, "JWT_ISSUER", "stock-ledger"),
		},
		Sync: SyncConfig{
			Enabled:     getBool(v, "SYNC_ENABLED", false),
			Interval:    getDuration(v, "SYNC_INTERVAL", time.Minute),
			DatabaseURL: getString(v, "SYNC_DATABASE_URL", ""),
			Host:        getString(v, "SYNC_DB_HOST", "localhost"),
			Port:        getInt(v, "SYNC_DB_PORT", 5432),
			User:        getString(v, "SYNC_DB_USER", "postgres"),
			Password:    getString(v, "SYNC_DB_PASSWORD", ""),
			DBName:      getString(v, "SYNC_DB_NAME", "stock_ledger"),
			SSLMode:     getString(v, "SYNC_DB_SSLMODE", "disable"),
		},
		Backup: BackupConfig{
			Enabled:  getBool(v, "BACKUP_ENABLED", true),
			Dir:      getString(v, "BACKUP_DIR", "data/backups"),
			Interval: getDuration(v, "BACKUP_INTERVAL", 24*time.Hour),
			Suffix:   getString(v, "BACKUP_SUFFIX", "daily"),
			Retain:   getInt(v, "BACKUP_RETAIN", 7),
		},
		Notification: NotificationConfig{
			Enabled:          getBool(v, "NOTIFY_ENABLED", true),
			Interval:         getDuration(v, "NOTIFY_INTERVAL", time.Hour),
			RenotifyInterval: getDuration(v, "NOTIFY_RENOTIFY_INTERVAL", 24*time.Hour),
		},
		Redis: RedisConfig{
			URL:     getString(v, "REDIS_URL", ""),
			LockKey: getString(v, "REDIS_LOCK_KEY", "stock-ledger:scheduler"),
			LockTTL: getDuration(v, "REDIS_LOCK_TTL", 10*time.Minute),
		},
		Metrics: MetricsConfig{
			Enabled: getBool(v, "METRICS_ENABLED", true),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Ledger.Path == "" {
		return fmt.Errorf("LEDGER_PATH requerido")
	}
	if c.Backup.Retain < 1 {
		return fmt.Errorf("BACKUP_RETAIN debe ser >= 1")
	}
	if c.Sync.Enabled && c.Sync.Interval <= 0 {
		return fmt.Errorf("SYNC_INTERVAL debe ser positivo")
	}
	return nil
}

func getString(v *viper.Viper, key, def string) string {
	if v.IsSet(key) {
		return v.GetString(key)
	}
	return def
}

func getInt(v *viper.Viper, key string, def int) int {
	if v.IsSet(key) {
		switch v.Get(key).(type) {
		case int:
			return v.GetInt(key)
		case string:
			n, err := strconv.Atoi(v.GetString(key))
			if err != nil {
				return def
			}
			return n
		default:
			return v.GetInt(key)
		}
	}
	return def
}

func getBool(v *viper.Viper, key string, def bool) bool {
	if v.IsSet(key) {
		return v.GetBool(key)
	}
	return def
}

// getDuration acepta "90s", "5m" o un número entero de segundos.
func getDuration(v *viper.Viper, key string, def time.Duration) time.Duration {
	if !v.IsSet(key) {
		return def
	}
	raw := strings.TrimSpace(v.GetString(key))
	if n, err := strconv.Atoi(raw); err == nil {
		return time.Duration(n) * time.Second
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return def
	}
	return d
}
