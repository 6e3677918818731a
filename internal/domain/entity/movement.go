package entity

import "time"

// MovementKind tipo de movimiento del diario.
type MovementKind string

// Tipos de movimiento.
const (
	MovementCreate      MovementKind = "CREATE"
	MovementModify      MovementKind = "MODIFY"
	MovementStockAdd    MovementKind = "STOCK_ADD"
	MovementStockRemove MovementKind = "STOCK_REMOVE"
	MovementDelete      MovementKind = "DELETE"
)

// IsValid indica si el tipo es uno de los conocidos.
func (k MovementKind) IsValid() bool {
	switch k {
	case MovementCreate, MovementModify, MovementStockAdd, MovementStockRemove, MovementDelete:
		return true
	}
	return false
}

// Direction sentido de un ajuste de cantidad.
type Direction string

const (
	DirectionAdd    Direction = "ADD"
	DirectionRemove Direction = "REMOVE"
)

// Movement registro inmutable del diario: un cambio de cantidad o una edición de metadatos.
type Movement struct {
	ID               int64 // monotónico, asignado por el almacén
	ArticleReference string
	ActorID          *int64 // nil para acciones del sistema o usuario eliminado
	ActorUsername    string // solo lectura, resuelto al consultar
	OccurredAt       time.Time
	Kind             MovementKind
	QuantityBefore   int64
	QuantityAfter    int64
	QuantityDelta    int64 // positivo entrada, negativo salida, cero edición
	Project          string
	Worker           string // solicitante humano, distinto de ActorID
}

// Consistent verifica after = before + delta y after >= 0.
func (m *Movement) Consistent() bool {
	return m.QuantityBefore >= 0 &&
		m.QuantityAfter >= 0 &&
		m.QuantityAfter == m.QuantityBefore+m.QuantityDelta
}

// MovementFilter filtros de consulta del historial. Campos vacíos no filtran.
type MovementFilter struct {
	Reference string
	ActorID   *int64
	Kind      MovementKind
	From      *time.Time // inclusivo
	To        *time.Time // inclusivo
	Limit     int
	Offset    int
}
