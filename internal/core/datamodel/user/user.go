package user

import "time"

type User struct {
	ID            string    `gorm:"primaryKey;type:uuid"`
	Email         string    `gorm:"column:email;uniqueIndex;not null"`
	Name          string    `gorm:"column:name;not null"`
	PasswordHash  string    `gorm:"column:password_hash;not null"`
	Role          string    `gorm:"column:role;not null;index"`
	SupervisorID  *string   `gorm:"column:supervisor_id;index"`
	ProjectID     *string   `gorm:"column:project_id"`
	PlanningScore int       `gorm:"column:planning_score;not null;default:0"`
	Version       int64     `gorm:"column:version;not null;default:1"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (User) TableName() string { return "users" }

type RefreshToken struct {
	ID        string     `gorm:"primaryKey;type:uuid"`
	UserID    string     `gorm:"column:user_id;not null;index"`
	TokenHash string     `gorm:"column:token_hash;uniqueIndex;not null"`
	ExpiresAt time.Time  `gorm:"column:expires_at;not null"`
	RevokedAt *time.Time `gorm:"column:revoked_at"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
}

func (RefreshToken) TableName() string { return "refresh_tokens" }
