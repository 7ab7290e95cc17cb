package role

import "time"

type Role struct {
	ID          string           `gorm:"primaryKey;type:uuid"`
	Name        string           `gorm:"column:name;uniqueIndex;not null"`
	Rank        int              `gorm:"column:rank;not null"`
	IsEditable  bool             `gorm:"column:is_editable;not null;default:true"`
	Permissions []RolePermission `gorm:"foreignKey:RoleID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

func (Role) TableName() string { return "roles" }

type RolePermission struct {
	RoleID     string `gorm:"primaryKey;column:role_id;type:uuid"`
	Permission string `gorm:"primaryKey;column:permission"`
}

func (RolePermission) TableName() string { return "role_permissions" }
