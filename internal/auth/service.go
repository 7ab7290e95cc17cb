package auth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/frahmantamala/opsboard/internal"
	userDatamodel "github.com/frahmantamala/opsboard/internal/core/datamodel/user"
	coreuser "github.com/frahmantamala/opsboard/internal/core/user"
	"github.com/frahmantamala/opsboard/internal/user"
)

// Service is the main auth service with dependencies
type Service struct {
	users          UserRepository
	tokens         TokenStore
	roles          RoleResolver
	tokenGenerator TokenGenerator
	logger         *slog.Logger
	now            func() time.Time
}

func NewService(users UserRepository, tokens TokenStore, roles RoleResolver, tokenGen TokenGenerator, logger *slog.Logger) *Service {
	return &Service{
		users:          users,
		tokens:         tokens,
		roles:          roles,
		tokenGenerator: tokenGen,
		logger:         logger,
		now:            time.Now,
	}
}

// Authenticate validates credentials and returns tokens
func (s *Service) Authenticate(ctx context.Context, dto LoginDTO) (AuthTokens, error) {
	dto.Normalize()
	if err := dto.Validate(); err != nil {
		return AuthTokens{}, err
	}

	u, err := s.users.GetByEmail(ctx, dto.Email)
	if err != nil {
		return AuthTokens{}, internal.NewInternalError("failed to load user", err)
	}
	if u == nil {
		return AuthTokens{}, internal.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(dto.Password)); err != nil {
		s.logger.Info("login rejected", "user_id", u.ID)
		return AuthTokens{}, internal.ErrInvalidCredentials
	}

	return s.issue(ctx, u)
}

// RefreshTokens rotates a refresh token: the presented token is revoked and
// a new pair is issued. A token can be redeemed once.
func (s *Service) RefreshTokens(ctx context.Context, refreshToken string) (AuthTokens, error) {
	if err := (RefreshTokenDTO{RefreshToken: refreshToken}).Validate(); err != nil {
		return AuthTokens{}, err
	}

	claims, err := s.tokenGenerator.ValidateToken(refreshToken, TokenTypeRefresh)
	if err != nil {
		return AuthTokens{}, err
	}

	hash := HashToken(refreshToken)
	now := s.now()

	stored, err := s.tokens.FindActiveRefreshToken(ctx, hash, now)
	if err != nil {
		return AuthTokens{}, internal.NewInternalError("failed to load refresh token", err)
	}
	if stored == nil || stored.UserID != claims.UserID {
		return AuthTokens{}, internal.ErrInvalidToken
	}

	revoked, err := s.tokens.RevokeRefreshToken(ctx, hash, now)
	if err != nil {
		return AuthTokens{}, internal.NewInternalError("failed to revoke refresh token", err)
	}
	if !revoked {
		return AuthTokens{}, internal.ErrInvalidToken
	}

	u, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		return AuthTokens{}, internal.NewInternalError("failed to load user", err)
	}
	if u == nil {
		return AuthTokens{}, internal.ErrInvalidToken
	}

	return s.issue(ctx, u)
}

// Logout revokes the given refresh token, or every refresh token of the
// actor when none is given.
func (s *Service) Logout(ctx context.Context, actorID, refreshToken string) error {
	now := s.now()

	if refreshToken == "" {
		if err := s.tokens.RevokeAllForUser(ctx, actorID, now); err != nil {
			return internal.NewInternalError("failed to revoke sessions", err)
		}
		return nil
	}

	claims, err := s.tokenGenerator.ValidateToken(refreshToken, TokenTypeRefresh)
	if err != nil {
		return err
	}
	if claims.UserID != actorID {
		return internal.ErrInvalidToken
	}

	if _, err := s.tokens.RevokeRefreshToken(ctx, HashToken(refreshToken), now); err != nil {
		return internal.NewInternalError("failed to revoke refresh token", err)
	}
	return nil
}

// ValidateAccessToken validates access token and returns claims
func (s *Service) ValidateAccessToken(tokenString string) (*Claims, error) {
	return s.tokenGenerator.ValidateToken(tokenString, TokenTypeAccess)
}

// PrincipalFor loads the user behind a token together with the rank and
// permissions of their current role.
func (s *Service) PrincipalFor(ctx context.Context, userID string) (*coreuser.Principal, error) {
	dm, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, internal.NewInternalError("failed to load user", err)
	}
	if dm == nil {
		return nil, internal.ErrInvalidToken
	}

	rank, perms, ok := s.roles.Resolve(dm.Role)
	if !ok {
		s.logger.Warn("user has unknown role", "user_id", dm.ID, "role", dm.Role)
		return nil, internal.NewForbiddenError(fmt.Sprintf("role %q is not defined", dm.Role), internal.ErrCodeUnknownRole)
	}

	return &coreuser.Principal{
		User:        user.FromDataModel(dm).ToCore(),
		Rank:        rank,
		Permissions: perms,
	}, nil
}

func (s *Service) issue(ctx context.Context, u *userDatamodel.User) (AuthTokens, error) {
	accessToken, expiresAt, err := s.tokenGenerator.GenerateAccessToken(u.ID, u.Email)
	if err != nil {
		return AuthTokens{}, internal.NewInternalError("failed to issue token", err)
	}

	refreshToken, refreshExpiresAt, err := s.tokenGenerator.GenerateRefreshToken(u.ID, u.Email)
	if err != nil {
		return AuthTokens{}, internal.NewInternalError("failed to issue token", err)
	}

	record := &userDatamodel.RefreshToken{
		ID:        uuid.New().String(),
		UserID:    u.ID,
		TokenHash: HashToken(refreshToken),
		ExpiresAt: refreshExpiresAt,
	}
	if err := s.tokens.SaveRefreshToken(ctx, record); err != nil {
		return AuthTokens{}, internal.NewInternalError("failed to store refresh token", err)
	}

	return AuthTokens{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresAt:    expiresAt,
	}, nil
}
