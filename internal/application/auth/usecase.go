package auth

import (
	"context"
	"regexp"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/pkg/jwt"
)

// MinPasswordLength longitud mínima del secreto. bcrypt ignora lo que pase de 72 bytes.
const (
	MinPasswordLength = 8
	MaxPasswordLength = 72
)

var usernamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]{2,31}$`)

// JWTConfig configuración para generación de tokens.
type JWTConfig struct {
	Secret     string
	ExpMinutes int
	Issuer     string
}

// AuthUseCase casos de uso de usuarios: alta, login, baja y listado.
type AuthUseCase struct {
	userRepo repository.UserRepository
	jwtCfg   JWTConfig
	now      func() time.Time
}

// NewAuthUseCase construye el caso de uso de auth.
func NewAuthUseCase(userRepo repository.UserRepository, jwtCfg JWTConfig) *AuthUseCase {
	return &AuthUseCase{userRepo: userRepo, jwtCfg: jwtCfg, now: time.Now}
}

// ValidUsername indica si el nombre (ya en minúsculas) es aceptable.
func ValidUsername(username string) bool {
	return usernamePattern.MatchString(username)
}

// CreateUser hashea el secreto con bcrypt y persiste. Devuelve ErrAlreadyExists si el username ya existe.
func (uc *AuthUseCase) CreateUser(ctx context.Context, in dto.CreateUserRequest) (*dto.UserResponse, error) {
	username := strings.ToLower(strings.TrimSpace(in.Username))
	if !ValidUsername(username) {
		return nil, domain.InvalidInput("username", "3-32 caracteres: letras, dígitos, punto, guion")
	}
	if len(in.Password) < MinPasswordLength || len(in.Password) > MaxPasswordLength {
		return nil, domain.InvalidInput("password", "entre 8 y 72 caracteres")
	}
	role := in.Role
	if role == "" {
		role = entity.RoleMember
	}
	if !entity.ValidRole(role) {
		return nil, domain.InvalidInput("role", "debe ser admin o member")
	}
	existing, err := uc.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, domain.Storage("get user", err)
	}
	if existing != nil {
		return nil, domain.ErrAlreadyExists
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user := &entity.User{
		Username:       username,
		CredentialHash: string(hash),
		Role:           role,
		CreatedAt:      uc.now().UTC(),
	}
	if err := uc.userRepo.Create(ctx, user); err != nil {
		return nil, domain.Storage("create user", err)
	}
	return toUserResponse(user), nil
}

// Login verifica username/password, genera JWT y retorna token + usuario.
// Usuario inexistente y secreto incorrecto devuelven el mismo ErrUnauthorized.
func (uc *AuthUseCase) Login(ctx context.Context, in dto.LoginRequest) (*dto.LoginResponse, error) {
	user, err := uc.userRepo.GetByUsername(ctx, in.Username)
	if err != nil {
		return nil, domain.Storage("get user", err)
	}
	if user == nil {
		return nil, domain.ErrUnauthorized
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.CredentialHash), []byte(in.Password)); err != nil {
		return nil, domain.ErrUnauthorized
	}
	token, err := jwt.Generate(uc.jwtCfg.Secret, user.ID, user.Username, user.Role, uc.jwtCfg.Issuer, uc.jwtCfg.ExpMinutes)
	if err != nil {
		return nil, err
	}
	return &dto.LoginResponse{
		Token: token,
		User:  *toUserResponse(user),
	}, nil
}

// DeleteUser elimina el usuario; sus movimientos quedan con actor nulo.
func (uc *AuthUseCase) DeleteUser(ctx context.Context, id int64) error {
	deleted, err := uc.userRepo.Delete(ctx, id)
	if err != nil {
		return domain.Storage("delete user", err)
	}
	if !deleted {
		return domain.ErrNotFound
	}
	return nil
}

// ListUsers devuelve todos los usuarios.
func (uc *AuthUseCase) ListUsers(ctx context.Context) ([]dto.UserResponse, error) {
	users, err := uc.userRepo.List(ctx)
	if err != nil {
		return nil, domain.Storage("list users", err)
	}
	out := make([]dto.UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, *toUserResponse(u))
	}
	return out, nil
}

func toUserResponse(u *entity.User) *dto.UserResponse {
	if u == nil {
		return nil
	}
	return &dto.UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}
