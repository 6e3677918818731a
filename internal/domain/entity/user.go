package entity

import "time"

// Roles válidos para User.
const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// User usuario del sistema; solo actúa como destino de la FK actor_id de los movimientos.
type User struct {
	ID             int64
	Username       string // único, sin distinguir mayúsculas
	CredentialHash string // bcrypt, nunca el secreto en claro
	Role           string
	CreatedAt      time.Time
}

// ValidRole indica si el rol es admin o member.
func ValidRole(role string) bool {
	return role == RoleAdmin || role == RoleMember
}
