package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio (sin dependencias externas).
// Los de regla de negocio (AlreadyExists..InsufficientStock) son flujo esperado;
// StorageFailure y MigrationFailure abortan la operación y se reportan al operador.
var (
	ErrAlreadyExists     = errors.New("el recurso ya existe")
	ErrNotFound          = errors.New("recurso no encontrado")
	ErrInvalidInput      = errors.New("entrada inválida")
	ErrInvalidAmount     = errors.New("cantidad inválida: debe ser un entero positivo")
	ErrInsufficientStock = errors.New("stock insuficiente")
	ErrStorageFailure    = errors.New("fallo de almacenamiento")
	ErrMigrationFailure  = errors.New("fallo de migración de esquema")
	ErrUnauthorized      = errors.New("no autorizado")
	ErrForbidden         = errors.New("acceso denegado")
)

// InvalidInputError detalla el campo rechazado.
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrInvalidInput.Error(), e.Field, e.Reason)
}

func (e *InvalidInputError) Is(target error) bool { return target == ErrInvalidInput }

// InvalidInput construye un error de entrada para el campo dado.
func InvalidInput(field, reason string) error {
	return &InvalidInputError{Field: field, Reason: reason}
}

// InsufficientStockError lleva el saldo disponible para mostrarlo al usuario.
type InsufficientStockError struct {
	Reference string
	Available int64
	Requested int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("%s: %s disponible %d, solicitado %d", ErrInsufficientStock.Error(), e.Reference, e.Available, e.Requested)
}

func (e *InsufficientStockError) Is(target error) bool { return target == ErrInsufficientStock }

// StorageError envuelve cualquier error de E/S o de constraint del almacén.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrStorageFailure.Error(), e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorageFailure }

// Storage envuelve err como StorageError salvo que ya sea un error de dominio o nil.
func Storage(op string, err error) error {
	if err == nil || IsBusinessRule(err) {
		return err
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

// MigrationError indica el paso de migración que falló.
type MigrationError struct {
	Step string
	Err  error
}

func (e *MigrationError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrMigrationFailure.Error(), e.Step, e.Err)
}

func (e *MigrationError) Unwrap() error { return e.Err }

func (e *MigrationError) Is(target error) bool { return target == ErrMigrationFailure }

// IsBusinessRule indica si err es un rechazo de regla de negocio (no fatal para el flujo del llamador).
func IsBusinessRule(err error) bool {
	return errors.Is(err, ErrAlreadyExists) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInsufficientStock)
}
