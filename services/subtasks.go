package services

import (
	"errors"
	"strings"
	"time"

	"github.com/lvt17/planex-be/models"

	"gorm.io/gorm"
)

// CreateSubtask adds a checklist item and re-syncs the parent's stored progress.
func CreateSubtask(db *gorm.DB, task *models.Task, title string) (*models.Subtask, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, Invalid("title is required")
	}
	sub := &models.Subtask{TaskID: task.ID, Title: title}
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(sub).Error; err != nil {
			return err
		}
		_, err := SyncStoredProgress(tx, task.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// ListSubtasks returns a task's subtasks in creation order.
func ListSubtasks(db *gorm.DB, taskID uint) ([]models.Subtask, error) {
	var subs []models.Subtask
	err := db.Where("task_id = ?", taskID).Order("id ASC").Find(&subs).Error
	return subs, err
}

// LoadAccessibleSubtask loads a subtask and checks access through its task.
func LoadAccessibleSubtask(db *gorm.DB, subtaskID, uid uint) (*models.Subtask, *models.Task, error) {
	var sub models.Subtask
	if err := db.First(&sub, subtaskID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, NotFound("subtask not found")
		}
		return nil, nil, err
	}
	task, err := LoadAccessibleTask(db, sub.TaskID, uid)
	if err != nil {
		return nil, nil, err
	}
	return &sub, task, nil
}

// UpdateSubtask renames and/or toggles a subtask.
func UpdateSubtask(db *gorm.DB, sub *models.Subtask, title *string, completed *bool) (*models.Subtask, int, error) {
	updates := map[string]interface{}{}
	if title != nil {
		t := strings.TrimSpace(*title)
		if t == "" {
			return nil, 0, Invalid("title must not be empty")
		}
		updates["title"] = t
	}
	if completed != nil {
		updates["is_completed"] = *completed
	}
	var progress int
	err := db.Transaction(func(tx *gorm.DB) error {
		if len(updates) > 0 {
			if err := tx.Model(&models.Subtask{}).Where("id = ?", sub.ID).Updates(updates).Error; err != nil {
				return err
			}
		}
		var err error
		progress, err = SyncStoredProgress(tx, sub.TaskID)
		return err
	})
	if err != nil {
		return nil, 0, err
	}
	var fresh models.Subtask
	if err := db.First(&fresh, sub.ID).Error; err != nil {
		return nil, 0, err
	}
	return &fresh, progress, nil
}

// DeleteSubtask removes a subtask with its comments.
func DeleteSubtask(db *gorm.DB, sub *models.Subtask) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("subtask_id = ?", sub.ID).Delete(&models.TaskComment{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.Subtask{}, sub.ID).Error; err != nil {
			return err
		}
		_, err := SyncStoredProgress(tx, sub.TaskID)
		return err
	})
}

// CommentView is a comment with its author.
type CommentView struct {
	ID        uint      `json:"id"`
	UserID    uint      `json:"user_id"`
	Username  string    `json:"username"`
	AvatarURL *string   `json:"avatar_url"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// AddComment attaches a comment to exactly one of task or subtask.
func AddComment(db *gorm.DB, uid uint, taskID, subtaskID *uint, content string) (*CommentView, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, Invalid("content is required")
	}
	if (taskID == nil) == (subtaskID == nil) {
		return nil, Invalid("comment must target a task or a subtask")
	}
	c := &models.TaskComment{TaskID: taskID, SubtaskID: subtaskID, UserID: uid, Content: content}
	if err := db.Create(c).Error; err != nil {
		return nil, err
	}
	if err := db.Preload("User").First(c, c.ID).Error; err != nil {
		return nil, err
	}
	v := commentView(c)
	return &v, nil
}

// ListComments returns comments of a task (or subtask) oldest first.
func ListComments(db *gorm.DB, column string, id uint) ([]CommentView, error) {
	if column != "task_id" && column != "subtask_id" {
		return nil, Invalid("unknown comment target")
	}
	var rows []models.TaskComment
	if err := db.Preload("User").Where(column+" = ?", id).Order("created_at ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]CommentView, 0, len(rows))
	for i := range rows {
		out = append(out, commentView(&rows[i]))
	}
	return out, nil
}

func commentView(c *models.TaskComment) CommentView {
	v := CommentView{ID: c.ID, UserID: c.UserID, Content: c.Content, CreatedAt: c.CreatedAt}
	if c.User != nil {
		v.Username = c.User.Username
		v.AvatarURL = c.User.AvatarURL
	}
	return v
}
