package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/frahmantamala/opsboard/internal"
	notificationDatamodel "github.com/frahmantamala/opsboard/internal/core/datamodel/notification"
	taskDatamodel "github.com/frahmantamala/opsboard/internal/core/datamodel/task"
	userDatamodel "github.com/frahmantamala/opsboard/internal/core/datamodel/user"
	"github.com/frahmantamala/opsboard/internal/user"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) user.Repository {
	return &UserRepository{db: db}
}

func (r *UserRepository) ListUsers(ctx context.Context) ([]*userDatamodel.User, error) {
	var users []*userDatamodel.User
	err := r.db.WithContext(ctx).Order("created_at ASC, id ASC").Find(&users).Error
	return users, err
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*userDatamodel.User, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*userDatamodel.User, error) {
	return r.first(ctx, "email = ?", email)
}

func (r *UserRepository) first(ctx context.Context, query string, arg interface{}) (*userDatamodel.User, error) {
	var u userDatamodel.User
	err := r.db.WithContext(ctx).Where(query, arg).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) Create(ctx context.Context, u *userDatamodel.User) error {
	return r.db.WithContext(ctx).Create(u).Error
}

func (r *UserRepository) Update(ctx context.Context, u *userDatamodel.User, expectedVersion int64) error {
	res := r.db.WithContext(ctx).Model(&userDatamodel.User{}).
		Where("id = ? AND version = ?", u.ID, expectedVersion).
		Updates(map[string]interface{}{
			"email":          u.Email,
			"name":           u.Name,
			"role":           u.Role,
			"supervisor_id":  u.SupervisorID,
			"project_id":     u.ProjectID,
			"planning_score": u.PlanningScore,
			"version":        expectedVersion + 1,
			"updated_at":     u.UpdatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return internal.ErrVersionConflict
	}
	u.Version = expectedVersion + 1
	return nil
}

func (r *UserRepository) DeleteAndUnassign(ctx context.Context, id string, newSupervisorID *string) (int64, error) {
	var unassigned int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&taskDatamodel.Task{}).Where("assignee_id = ?", id).
			Updates(map[string]interface{}{
				"assignee_id": nil,
				"version":     gorm.Expr("version + 1"),
			})
		if res.Error != nil {
			return res.Error
		}
		unassigned = res.RowsAffected

		if err := tx.Model(&taskDatamodel.Task{}).Where("creator_id = ?", id).
			Update("creator_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Model(&taskDatamodel.Task{}).Where("reviewed_by = ?", id).
			Update("reviewed_by", nil).Error; err != nil {
			return err
		}

		if err := tx.Model(&userDatamodel.User{}).Where("supervisor_id = ?", id).
			Updates(map[string]interface{}{
				"supervisor_id": newSupervisorID,
				"version":       gorm.Expr("version + 1"),
			}).Error; err != nil {
			return err
		}

		if err := tx.Where("user_id = ?", id).Delete(&userDatamodel.RefreshToken{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&notificationDatamodel.Notification{}).Error; err != nil {
			return err
		}

		res = tx.Where("id = ?", id).Delete(&userDatamodel.User{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return internal.ErrUserNotFound
		}
		return nil
	})
	return unassigned, err
}
