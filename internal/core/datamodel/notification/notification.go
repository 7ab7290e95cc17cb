package notification

import "time"

type Notification struct {
	ID        string     `gorm:"primaryKey;type:uuid"`
	UserID    string     `gorm:"column:user_id;not null;index"`
	Kind      string     `gorm:"column:kind;not null"`
	TaskID    *string    `gorm:"column:task_id"`
	ActorID   *string    `gorm:"column:actor_id"`
	Message   string     `gorm:"column:message;not null"`
	ReadAt    *time.Time `gorm:"column:read_at"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
}

func (Notification) TableName() string { return "notifications" }
