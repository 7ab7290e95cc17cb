package task

import "time"

type Task struct {
	ID                 string     `gorm:"primaryKey;type:uuid"`
	Title              string     `gorm:"column:title;not null"`
	Description        string     `gorm:"column:description"`
	AssigneeID         *string    `gorm:"column:assignee_id;index"`
	CreatorID          *string    `gorm:"column:creator_id;index"`
	DueDate            time.Time  `gorm:"column:due_date;not null"`
	Priority           string     `gorm:"column:priority;not null;default:Medium"`
	Status             string     `gorm:"column:status;not null;default:To Do;index"`
	RequiresAttachment bool       `gorm:"column:requires_attachment;not null;default:false"`
	AttachmentURL      *string    `gorm:"column:attachment_url"`
	ReviewComment      string     `gorm:"column:review_comment"`
	ReviewedBy         *string    `gorm:"column:reviewed_by"`
	ReviewedAt         *time.Time `gorm:"column:reviewed_at"`
	CompletedAt        *time.Time `gorm:"column:completed_at"`
	Version            int64      `gorm:"column:version;not null;default:1"`
	CreatedAt          time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (Task) TableName() string { return "tasks" }
