package backup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"go.uber.org/multierr"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

const (
	timeLayout = "20060102_150405"
	extension  = ".db"
	// DefaultSuffix clase de los backups automáticos.
	DefaultSuffix = "auto"
	// PreRestoreSuffix clase del backup que se toma antes de restaurar.
	PreRestoreSuffix = "prerestore"
)

var suffixPattern = regexp.MustCompile(`^[A-Za-z0-9-]{1,32}$`)

// ExclusiveRunner da acceso exclusivo al almacén (lo implementa el Ledger).
type ExclusiveRunner interface {
	WithExclusiveAccess(ctx context.Context, fn func(ctx context.Context) error) error
}

// Backup un archivo de copia del ledger.
type Backup struct {
	Name      string
	Path      string
	Suffix    string
	Size      int64
	CreatedAt time.Time
}

// Service copias consistentes del archivo del ledger: <YYYYMMDD_HHMMSS>_<base>_<suffix>.db.
type Service struct {
	ledger    ExclusiveRunner
	storePath string
	dir       string
	base      string
	now       func() time.Time
	logg      *logger.Logger
}

// NewService construye el servicio de backups para el archivo storePath.
func NewService(ledger ExclusiveRunner, storePath, dir string, logg *logger.Logger) *Service {
	if logg == nil {
		logg = logger.Nop()
	}
	return &Service{
		ledger:    ledger,
		storePath: storePath,
		dir:       dir,
		base:      baseName(storePath),
		now:       time.Now,
		logg:      logg.For("backup"),
	}
}

// Dir directorio de backups.
func (s *Service) Dir() string { return s.dir }

// Create copia el archivo del ledger con acceso exclusivo (tras volcar el WAL).
func (s *Service) Create(ctx context.Context, suffix string) (*Backup, error) {
	if suffix == "" {
		suffix = DefaultSuffix
	}
	if !suffixPattern.MatchString(suffix) {
		return nil, domain.InvalidInput("suffix", "solo letras, dígitos y guion")
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, domain.Storage("create backup dir", err)
	}

	var out *Backup
	err := s.ledger.WithExclusiveAccess(ctx, func(ctx context.Context) error {
		created := s.now().UTC()
		name := fileName(created, s.base, suffix)
		dst := filepath.Join(s.dir, name)
		if _, err := os.Stat(dst); err == nil {
			return domain.ErrAlreadyExists
		}
		size, err := copyFile(ctx, s.storePath, dst)
		if err != nil {
			return domain.Storage("copy ledger", err)
		}
		out = &Backup{Name: name, Path: dst, Suffix: suffix, Size: size, CreatedAt: created.Truncate(time.Second)}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logg.Info().Str("backup", out.Name).Int64("bytes", out.Size).Msg("backup created")
	return out, nil
}

// List devuelve los backups del ledger, del más reciente al más antiguo.
func (s *Service) List() ([]Backup, error) {
	return list(s.dir, s.base)
}

// Prune conserva los retain backups más recientes de cada sufijo y borra el resto.
func (s *Service) Prune(retain int) ([]string, error) {
	if retain < 1 {
		return nil, domain.InvalidInput("retain", "debe ser al menos 1")
	}
	backups, err := s.List()
	if err != nil {
		return nil, err
	}
	kept := make(map[string]int)
	var removed []string
	var errs error
	for _, b := range backups {
		kept[b.Suffix]++
		if kept[b.Suffix] <= retain {
			continue
		}
		if err := os.Remove(b.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = multierr.Append(errs, fmt.Errorf("remove %s: %w", b.Name, err))
			continue
		}
		removed = append(removed, b.Name)
	}
	if len(removed) > 0 {
		s.logg.Info().Strs("removed", removed).Msg("backups pruned")
	}
	return removed, errs
}

// Restore reemplaza el archivo del ledger por el backup name. Solo debe llamarse con el
// almacén cerrado: no pasa por el Ledger. Antes guarda el archivo actual como backup prerestore.
func Restore(ctx context.Context, dir, name, storePath string, now time.Time) (string, error) {
	if name != filepath.Base(name) || !strings.HasSuffix(name, extension) {
		return "", domain.InvalidInput("name", "nombre de backup inválido")
	}
	src := filepath.Join(dir, name)
	if _, err := os.Stat(src); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", domain.ErrNotFound
		}
		return "", domain.Storage("stat backup", err)
	}

	var safety string
	if _, err := os.Stat(storePath); err == nil {
		safety = filepath.Join(dir, fileName(now.UTC(), baseName(storePath), PreRestoreSuffix))
		if _, err := copyFile(ctx, storePath, safety); err != nil {
			return "", domain.Storage("save current ledger", err)
		}
	}
	if _, err := copyFile(ctx, src, storePath); err != nil {
		return "", domain.Storage("restore ledger", err)
	}
	// El WAL del archivo anterior no corresponde al restaurado
	for _, side := range []string{storePath + "-wal", storePath + "-shm"} {
		if err := os.Remove(side); err != nil && !errors.Is(err, os.ErrNotExist) {
			return "", domain.Storage("remove "+filepath.Base(side), err)
		}
	}
	return safety, nil
}

func list(dir, base string) ([]Backup, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []Backup{}, nil
		}
		return nil, domain.Storage("read backup dir", err)
	}
	out := make([]Backup, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		created, suffix, ok := parseName(e.Name(), base)
		if !ok {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, Backup{
			Name:      e.Name(),
			Path:      filepath.Join(dir, e.Name()),
			Suffix:    suffix,
			Size:      info.Size(),
			CreatedAt: created,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].Name > out[j].Name
	})
	return out, nil
}

func fileName(t time.Time, base, suffix string) string {
	return fmt.Sprintf("%s_%s_%s%s", t.Format(timeLayout), base, suffix, extension)
}

// parseName extrae fecha y sufijo de <YYYYMMDD_HHMMSS>_<base>_<suffix>.db.
func parseName(name, base string) (time.Time, string, bool) {
	if !strings.HasSuffix(name, extension) || len(name) <= len(timeLayout)+1 {
		return time.Time{}, "", false
	}
	created, err := time.ParseInLocation(timeLayout, name[:len(timeLayout)], time.UTC)
	if err != nil {
		return time.Time{}, "", false
	}
	rest := strings.TrimSuffix(name[len(timeLayout):], extension)
	prefix := "_" + base + "_"
	if !strings.HasPrefix(rest, prefix) {
		return time.Time{}, "", false
	}
	suffix := rest[len(prefix):]
	if !suffixPattern.MatchString(suffix) {
		return time.Time{}, "", false
	}
	return created, suffix, true
}

func baseName(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

// copyFile copia src en dst mediante un temporal en el directorio destino y un rename.
func copyFile(ctx context.Context, src, dst string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".backup-*.tmp")
	if err != nil {
		return 0, err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	n, err := io.Copy(tmp, in)
	if err == nil {
		err = tmp.Sync()
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return 0, err
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return 0, err
	}
	return n, nil
}
