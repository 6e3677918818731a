package entity

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// MaxReferenceLength límite de longitud de una referencia normalizada.
const MaxReferenceLength = 64

// Article representa un artículo del inventario identificado por su referencia.
// Quantity solo cambia a través de operaciones del ledger y siempre coincide con
// el QuantityAfter de su último movimiento.
type Article struct {
	Reference       string // clave primaria, normalizada a mayúsculas, inmutable
	Description     string
	Quantity        int64
	MinimumQuantity int64 // umbral de alerta
	Position        string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	LastNotifiedAt  *time.Time
}

// IsLowStock indica si el artículo está por debajo de su umbral mínimo.
func (a *Article) IsLowStock() bool {
	return a.Quantity < a.MinimumQuantity
}

// NormalizeReference recorta espacios y pasa la referencia a mayúsculas.
func NormalizeReference(ref string) string {
	// cases.Caser no es seguro entre goroutines
	return cases.Upper(language.Und).String(strings.TrimSpace(ref))
}
