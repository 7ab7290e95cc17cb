package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	roleDatamodel "github.com/frahmantamala/opsboard/internal/core/datamodel/role"
	userDatamodel "github.com/frahmantamala/opsboard/internal/core/datamodel/user"
	"github.com/frahmantamala/opsboard/internal/role"
)

type RoleRepository struct {
	db *gorm.DB
}

func NewRoleRepository(db *gorm.DB) role.RepositoryAPI {
	return &RoleRepository{db: db}
}

func (r *RoleRepository) List(ctx context.Context) ([]*roleDatamodel.Role, error) {
	var roles []*roleDatamodel.Role
	err := r.db.WithContext(ctx).Preload("Permissions").Order("rank DESC, name ASC").Find(&roles).Error
	return roles, err
}

func (r *RoleRepository) GetByID(ctx context.Context, id string) (*roleDatamodel.Role, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *RoleRepository) GetByName(ctx context.Context, name string) (*roleDatamodel.Role, error) {
	return r.first(ctx, "name = ?", name)
}

func (r *RoleRepository) first(ctx context.Context, query string, arg interface{}) (*roleDatamodel.Role, error) {
	var rl roleDatamodel.Role
	err := r.db.WithContext(ctx).Preload("Permissions").Where(query, arg).First(&rl).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rl, nil
}

func (r *RoleRepository) Create(ctx context.Context, rl *roleDatamodel.Role) error {
	return r.db.WithContext(ctx).Create(rl).Error
}

// Update rewrites the role row and replaces its permission set.
func (r *RoleRepository) Update(ctx context.Context, rl *roleDatamodel.Role) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&roleDatamodel.Role{}).Where("id = ?", rl.ID).Updates(map[string]interface{}{
			"rank":       rl.Rank,
			"updated_at": rl.UpdatedAt,
		}).Error; err != nil {
			return err
		}
		if err := tx.Where("role_id = ?", rl.ID).Delete(&roleDatamodel.RolePermission{}).Error; err != nil {
			return err
		}
		if len(rl.Permissions) == 0 {
			return nil
		}
		return tx.Create(&rl.Permissions).Error
	})
}

func (r *RoleRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("role_id = ?", id).Delete(&roleDatamodel.RolePermission{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&roleDatamodel.Role{}).Error
	})
}

func (r *RoleRepository) CountUsers(ctx context.Context, roleName string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&userDatamodel.User{}).Where("role = ?", roleName).Count(&n).Error
	return n, err
}
