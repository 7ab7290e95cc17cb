package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/frahmantamala/opsboard/internal"
	taskDatamodel "github.com/frahmantamala/opsboard/internal/core/datamodel/task"
	"github.com/frahmantamala/opsboard/internal/task"
)

type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) task.RepositoryAPI {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) List(ctx context.Context, q task.Query) ([]*taskDatamodel.Task, error) {
	db := r.db.WithContext(ctx).Model(&taskDatamodel.Task{})

	if !q.All {
		switch {
		case len(q.AssigneeIDs) > 0 && q.CreatorID != "":
			db = db.Where("assignee_id IN ? OR creator_id = ?", q.AssigneeIDs, q.CreatorID)
		case len(q.AssigneeIDs) > 0:
			db = db.Where("assignee_id IN ?", q.AssigneeIDs)
		case q.CreatorID != "":
			db = db.Where("creator_id = ?", q.CreatorID)
		default:
			return []*taskDatamodel.Task{}, nil
		}
	}

	if len(q.Statuses) > 0 {
		statuses := make([]string, len(q.Statuses))
		for i, s := range q.Statuses {
			statuses[i] = string(s)
		}
		db = db.Where("status IN ?", statuses)
	}
	if !q.DueFrom.IsZero() {
		db = db.Where("due_date >= ?", q.DueFrom)
	}
	if !q.DueTo.IsZero() {
		db = db.Where("due_date <= ?", q.DueTo)
	}

	var tasks []*taskDatamodel.Task
	err := db.Order("due_date ASC, created_at ASC").Find(&tasks).Error
	return tasks, err
}

func (r *TaskRepository) GetByID(ctx context.Context, id string) (*taskDatamodel.Task, error) {
	var t taskDatamodel.Task
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&t).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

func (r *TaskRepository) Create(ctx context.Context, t *taskDatamodel.Task) error {
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *TaskRepository) Update(ctx context.Context, t *taskDatamodel.Task, expectedVersion int64) error {
	res := r.db.WithContext(ctx).Model(&taskDatamodel.Task{}).
		Where("id = ? AND version = ?", t.ID, expectedVersion).
		Updates(map[string]interface{}{
			"title":               t.Title,
			"description":         t.Description,
			"assignee_id":         t.AssigneeID,
			"creator_id":          t.CreatorID,
			"due_date":            t.DueDate,
			"priority":            t.Priority,
			"status":              t.Status,
			"requires_attachment": t.RequiresAttachment,
			"attachment_url":      t.AttachmentURL,
			"review_comment":      t.ReviewComment,
			"reviewed_by":         t.ReviewedBy,
			"reviewed_at":         t.ReviewedAt,
			"completed_at":        t.CompletedAt,
			"version":             expectedVersion + 1,
			"updated_at":          t.UpdatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return internal.ErrVersionConflict
	}
	t.Version = expectedVersion + 1
	return nil
}
