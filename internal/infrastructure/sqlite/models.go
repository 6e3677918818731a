package sqlite

import (
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// Filas de las tablas del ledger. Las marcas de tiempo las fija siempre el ledger,
// por eso se desactiva el autoCreateTime/autoUpdateTime de gorm.

type articleRow struct {
	Reference       string     `gorm:"column:reference;primaryKey"`
	Description     string     `gorm:"column:description"`
	Quantity        int64      `gorm:"column:quantity"`
	MinimumQuantity int64      `gorm:"column:minimum_quantity"`
	Position        string     `gorm:"column:position"`
	CreatedAt       time.Time  `gorm:"column:created_at;autoCreateTime:false"`
	UpdatedAt       time.Time  `gorm:"column:updated_at;autoUpdateTime:false"`
	LastNotifiedAt  *time.Time `gorm:"column:last_notified_at"`
}

func (articleRow) TableName() string { return "articles" }

func articleFromEntity(a *entity.Article) *articleRow {
	return &articleRow{
		Reference:       a.Reference,
		Description:     a.Description,
		Quantity:        a.Quantity,
		MinimumQuantity: a.MinimumQuantity,
		Position:        a.Position,
		CreatedAt:       a.CreatedAt.UTC(),
		UpdatedAt:       a.UpdatedAt.UTC(),
		LastNotifiedAt:  utcPtr(a.LastNotifiedAt),
	}
}

func (r *articleRow) toEntity() *entity.Article {
	return &entity.Article{
		Reference:       r.Reference,
		Description:     r.Description,
		Quantity:        r.Quantity,
		MinimumQuantity: r.MinimumQuantity,
		Position:        r.Position,
		CreatedAt:       r.CreatedAt.UTC(),
		UpdatedAt:       r.UpdatedAt.UTC(),
		LastNotifiedAt:  utcPtr(r.LastNotifiedAt),
	}
}

type movementRow struct {
	ID               int64     `gorm:"column:id;primaryKey;autoIncrement"`
	ArticleReference string    `gorm:"column:article_reference"`
	ActorID          *int64    `gorm:"column:actor_id"`
	OccurredAt       time.Time `gorm:"column:occurred_at"`
	Kind             string    `gorm:"column:kind"`
	QuantityBefore   int64     `gorm:"column:quantity_before"`
	QuantityAfter    int64     `gorm:"column:quantity_after"`
	QuantityDelta    int64     `gorm:"column:quantity_delta"`
	Project          *string   `gorm:"column:project"`
	Worker           *string   `gorm:"column:worker"`
}

func (movementRow) TableName() string { return "movements" }

// movementView fila de movimiento con el username del actor resuelto por LEFT JOIN.
// Las columnas se declaran explícitas: gorm ignora los embebidos no exportados.
type movementView struct {
	ID               int64     `gorm:"column:id"`
	ArticleReference string    `gorm:"column:article_reference"`
	ActorID          *int64    `gorm:"column:actor_id"`
	OccurredAt       time.Time `gorm:"column:occurred_at"`
	Kind             string    `gorm:"column:kind"`
	QuantityBefore   int64     `gorm:"column:quantity_before"`
	QuantityAfter    int64     `gorm:"column:quantity_after"`
	QuantityDelta    int64     `gorm:"column:quantity_delta"`
	Project          *string   `gorm:"column:project"`
	Worker           *string   `gorm:"column:worker"`
	ActorUsername    *string   `gorm:"column:actor_username"`
}

func movementFromEntity(m *entity.Movement) *movementRow {
	return &movementRow{
		ID:               m.ID,
		ArticleReference: m.ArticleReference,
		ActorID:          m.ActorID,
		OccurredAt:       m.OccurredAt.UTC(),
		Kind:             string(m.Kind),
		QuantityBefore:   m.QuantityBefore,
		QuantityAfter:    m.QuantityAfter,
		QuantityDelta:    m.QuantityDelta,
		Project:          nullableString(m.Project),
		Worker:           nullableString(m.Worker),
	}
}

func (r *movementRow) toEntity() *entity.Movement {
	return &entity.Movement{
		ID:               r.ID,
		ArticleReference: r.ArticleReference,
		ActorID:          r.ActorID,
		OccurredAt:       r.OccurredAt.UTC(),
		Kind:             entity.MovementKind(r.Kind),
		QuantityBefore:   r.QuantityBefore,
		QuantityAfter:    r.QuantityAfter,
		QuantityDelta:    r.QuantityDelta,
		Project:          derefString(r.Project),
		Worker:           derefString(r.Worker),
	}
}

func (v *movementView) toEntity() *entity.Movement {
	row := movementRow{
		ID:               v.ID,
		ArticleReference: v.ArticleReference,
		ActorID:          v.ActorID,
		OccurredAt:       v.OccurredAt,
		Kind:             v.Kind,
		QuantityBefore:   v.QuantityBefore,
		QuantityAfter:    v.QuantityAfter,
		QuantityDelta:    v.QuantityDelta,
		Project:          v.Project,
		Worker:           v.Worker,
	}
	m := row.toEntity()
	m.ActorUsername = derefString(v.ActorUsername)
	return m
}

type userRow struct {
	ID             int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Username       string    `gorm:"column:username"`
	CredentialHash string    `gorm:"column:credential_hash"`
	Role           string    `gorm:"column:role"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime:false"`
}

func (userRow) TableName() string { return "users" }

func (r *userRow) toEntity() *entity.User {
	return &entity.User{
		ID:             r.ID,
		Username:       r.Username,
		CredentialHash: r.CredentialHash,
		Role:           r.Role,
		CreatedAt:      r.CreatedAt.UTC(),
	}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
