package ledger

import (
	"unicode"
	"unicode/utf8"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// Límites de los campos de texto libre.
const (
	MaxDescriptionLength = 255
	MaxPositionLength    = 64
	MaxProjectLength     = 128
	MaxWorkerLength      = 128
)

// normalizeReference normaliza y valida una referencia.
func normalizeReference(raw string) (string, error) {
	ref := entity.NormalizeReference(raw)
	if ref == "" {
		return "", domain.InvalidInput("reference", "no puede estar vacía")
	}
	if utf8.RuneCountInString(ref) > entity.MaxReferenceLength {
		return "", domain.InvalidInput("reference", "demasiado larga")
	}
	for _, r := range ref {
		if unicode.IsControl(r) {
			return "", domain.InvalidInput("reference", "contiene caracteres de control")
		}
	}
	return ref, nil
}

func validateText(field, value string, max int) error {
	if !utf8.ValidString(value) {
		return domain.InvalidInput(field, "no es UTF-8 válido")
	}
	if utf8.RuneCountInString(value) > max {
		return domain.InvalidInput(field, "demasiado largo")
	}
	return nil
}

func validateNonNegative(field string, v int64) error {
	if v < 0 {
		return domain.InvalidInput(field, "no puede ser negativo")
	}
	return nil
}
