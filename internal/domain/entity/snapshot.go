package entity

import "time"

// Snapshot copia completa de artículos y movimientos para exportar o importar (reemplazo total).
type Snapshot struct {
	TakenAt   time.Time
	Articles  []*Article
	Movements []*Movement
}
