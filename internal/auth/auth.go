package auth

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"

	userDatamodel "github.com/frahmantamala/opsboard/internal/core/datamodel/user"
	coreuser "github.com/frahmantamala/opsboard/internal/core/user"
)

type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// TokenGenerator creates and validates signed tokens.
type TokenGenerator interface {
	GenerateAccessToken(userID, email string) (token string, expiresAt time.Time, err error)
	GenerateRefreshToken(userID, email string) (token string, expiresAt time.Time, err error)
	ValidateToken(tokenString string, typ TokenType) (*Claims, error)
}

type ServiceAPI interface {
	Authenticate(ctx context.Context, dto LoginDTO) (AuthTokens, error)
	RefreshTokens(ctx context.Context, refreshToken string) (AuthTokens, error)
	Logout(ctx context.Context, actorID, refreshToken string) error
	ValidateAccessToken(tokenString string) (*Claims, error)
	PrincipalFor(ctx context.Context, userID string) (*coreuser.Principal, error)
}

type UserRepository interface {
	GetByEmail(ctx context.Context, email string) (*userDatamodel.User, error)
	GetByID(ctx context.Context, id string) (*userDatamodel.User, error)
}

// TokenStore keeps hashes of issued refresh tokens so they can be rotated
// and revoked.
type TokenStore interface {
	SaveRefreshToken(ctx context.Context, t *userDatamodel.RefreshToken) error
	FindActiveRefreshToken(ctx context.Context, tokenHash string, now time.Time) (*userDatamodel.RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, tokenHash string, at time.Time) (bool, error)
	RevokeAllForUser(ctx context.Context, userID string, at time.Time) error
}

// RoleResolver turns a role name into its rank and granted permissions.
type RoleResolver interface {
	Resolve(role string) (rank int, permissions []string, ok bool)
}

type AuthTokens struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Claims represents JWT token claims
type Claims struct {
	UserID string    `json:"user_id"`
	Email  string    `json:"email"`
	Type   TokenType `json:"typ"`
	jwt.RegisteredClaims
}

type JWTTokenGenerator struct {
	AccessTokenSecret  []byte
	RefreshTokenSecret []byte
	AccessTokenTTL     time.Duration
	RefreshTokenTTL    time.Duration
}
