package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	userDatamodel "github.com/frahmantamala/opsboard/internal/core/datamodel/user"
)

// Repository stores refresh token hashes.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db: db,
	}
}

func (r *Repository) SaveRefreshToken(ctx context.Context, t *userDatamodel.RefreshToken) error {
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *Repository) FindActiveRefreshToken(ctx context.Context, tokenHash string, now time.Time) (*userDatamodel.RefreshToken, error) {
	var t userDatamodel.RefreshToken
	err := r.db.WithContext(ctx).
		Where("token_hash = ? AND revoked_at IS NULL AND expires_at > ?", tokenHash, now).
		First(&t).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

// RevokeRefreshToken reports whether this call revoked the token; a second
// revocation of the same token returns false.
func (r *Repository) RevokeRefreshToken(ctx context.Context, tokenHash string, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&userDatamodel.RefreshToken{}).
		Where("token_hash = ? AND revoked_at IS NULL", tokenHash).
		Update("revoked_at", at)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *Repository) RevokeAllForUser(ctx context.Context, userID string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&userDatamodel.RefreshToken{}).
		Where("user_id = ? AND revoked_at IS NULL", userID).
		Update("revoked_at", at).Error
}
