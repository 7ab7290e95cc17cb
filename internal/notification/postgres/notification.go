package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	notificationDatamodel "github.com/frahmantamala/opsboard/internal/core/datamodel/notification"
	"github.com/frahmantamala/opsboard/internal/notification"
)

type NotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Create(ctx context.Context, n *notification.Notification) error {
	return r.db.WithContext(ctx).Create(n.ToDataModel()).Error
}

func (r *NotificationRepository) ListByUser(ctx context.Context, userID string, unreadOnly bool, limit int) ([]*notification.Notification, error) {
	db := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if unreadOnly {
		db = db.Where("read_at IS NULL")
	}
	if limit > 0 {
		db = db.Limit(limit)
	}

	var rows []*notificationDatamodel.Notification
	if err := db.Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]*notification.Notification, 0, len(rows))
	for _, row := range rows {
		out = append(out, notification.FromDataModel(row))
	}
	return out, nil
}

func (r *NotificationRepository) CountUnread(ctx context.Context, userID string) (int, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&notificationDatamodel.Notification{}).
		Where("user_id = ? AND read_at IS NULL", userID).
		Count(&n).Error
	return int(n), err
}

func (r *NotificationRepository) GetByID(ctx context.Context, id string) (*notification.Notification, error) {
	var row notificationDatamodel.Notification
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return notification.FromDataModel(&row), nil
}

func (r *NotificationRepository) MarkRead(ctx context.Context, id string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&notificationDatamodel.Notification{}).
		Where("id = ? AND read_at IS NULL", id).
		Update("read_at", at).Error
}
