package services

import (
	"fmt"
	"time"

	"github.com/lvt17/planex-be/models"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	deadlineLookback = 12 * time.Hour
	staleLookback    = 24 * time.Hour
	staleAfterDays   = 2
	staleProgressCap = 50
)

// NotificationInput describes a notification to create.
type NotificationInput struct {
	UserID     uint
	Type       string
	Title      string
	Message    string
	ActionType string
	ActionData map[string]interface{}
	TaskID     *uint
	CreatedAt  time.Time
}

// Notify inserts one notification row.
func Notify(db *gorm.DB, in NotificationInput) (*models.Notification, error) {
	n := &models.Notification{
		UserID:  in.UserID,
		Type:    in.Type,
		Title:   in.Title,
		Message: in.Message,
		TaskID:  in.TaskID,
	}
	if !in.CreatedAt.IsZero() {
		n.CreatedAt = in.CreatedAt.UTC()
	}
	if in.ActionType != "" {
		at := in.ActionType
		n.ActionType = &at
	}
	if in.ActionData != nil {
		n.ActionData = datatypes.JSONMap(in.ActionData)
	}
	if err := db.Create(n).Error; err != nil {
		return nil, err
	}
	return n, nil
}

// hasRecentUnread reports whether the user already has an unread notification
// of kind for the task created after since.
func hasRecentUnread(tx *gorm.DB, userID uint, kind string, taskID uint, since time.Time) (bool, error) {
	var count int64
	err := tx.Model(&models.Notification{}).
		Where("user_id = ? AND type = ? AND task_id = ? AND is_read = ? AND created_at > ?",
			userID, kind, taskID, false, since.UTC()).
		Count(&count).Error
	return count > 0, err
}

// ScanAndEmit looks at the user's open tasks and creates deadline and
// staleness notifications that are not already pending. It runs in a single
// transaction; any failure rolls the scan back and is only logged. It returns
// the number of notifications created.
func ScanAndEmit(db *gorm.DB, userID uint, now time.Time, loc *time.Location) int {
	created := 0
	err := db.Transaction(func(tx *gorm.DB) error {
		var tasks []models.Task
		if err := tx.Where("user_id = ? AND is_done = ?", userID, false).Find(&tasks).Error; err != nil {
			return err
		}
		if len(tasks) == 0 {
			return nil
		}
		ids := make([]uint, 0, len(tasks))
		for _, t := range tasks {
			ids = append(ids, t.ID)
		}
		counts, err := SubtaskCounts(tx, ids)
		if err != nil {
			return err
		}

		for i := range tasks {
			t := &tasks[i]
			taskID := t.ID

			if t.Deadline != nil {
				days := DaysUntil(now, *t.Deadline, loc)
				if days >= 0 && days <= 1 {
					dup, err := hasRecentUnread(tx, userID, models.NotificationTaskDeadline, t.ID, now.Add(-deadlineLookback))
					if err != nil {
						return err
					}
					if !dup {
						when := "tomorrow"
						if days == 0 {
							when = "today"
						}
						if _, err := Notify(tx, NotificationInput{
							UserID:     userID,
							Type:       models.NotificationTaskDeadline,
							Title:      "Task deadline approaching",
							Message:    fmt.Sprintf("Task %q is due %s.", t.Name, when),
							ActionType: "view_task",
							ActionData: map[string]interface{}{"task_id": t.ID},
							TaskID:     &taskID,
							CreatedAt:  now,
						}); err != nil {
							return err
						}
						created++
					}
				}
			}

			age := int(now.Sub(t.CreatedAt) / (24 * time.Hour))
			progress := ProgressFromCounts(t.State, counts[t.ID])
			if age >= staleAfterDays && progress < staleProgressCap {
				dup, err := hasRecentUnread(tx, userID, models.NotificationTaskStale, t.ID, now.Add(-staleLookback))
				if err != nil {
					return err
				}
				if !dup {
					if _, err := Notify(tx, NotificationInput{
						UserID:     userID,
						Type:       models.NotificationTaskStale,
						Title:      "Task is falling behind",
						Message:    fmt.Sprintf("Task %q was created %d days ago and is only %d%% complete.", t.Name, age, progress),
						ActionType: "view_task",
						ActionData: map[string]interface{}{"task_id": t.ID},
						TaskID:     &taskID,
						CreatedAt:  now,
					}); err != nil {
						return err
					}
					created++
				}
			}
		}
		return nil
	})
	if err != nil {
		zap.L().Warn("notification scan rolled back", zap.Uint("user_id", userID), zap.Error(err))
		return 0
	}
	return created
}

// DaysUntil counts calendar days from now to deadline, both taken in loc.
// Negative values mean the deadline has passed.
func DaysUntil(now, deadline time.Time, loc *time.Location) int {
	a := now.In(loc)
	b := deadline.In(loc)
	da := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	dd := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(dd.Sub(da).Hours() / 24)
}

// NotificationList is the response of the notification inbox.
type NotificationList struct {
	Notifications []models.Notification `json:"notifications"`
	UnreadCount   int64                 `json:"unread_count"`
}

// ListNotifications runs the scan first so freshly due tasks show up, then
// returns the latest limit notifications and the unread count.
func ListNotifications(db *gorm.DB, userID uint, limit int, now time.Time, loc *time.Location) (*NotificationList, error) {
	if limit <= 0 {
		limit = 50
	}
	ScanAndEmit(db, userID, now, loc)

	out := &NotificationList{Notifications: []models.Notification{}}
	if err := db.Where("user_id = ?", userID).Order("created_at DESC, id DESC").Limit(limit).Find(&out.Notifications).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.Notification{}).Where("user_id = ? AND is_read = ?", userID, false).Count(&out.UnreadCount).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// MarkNotificationRead marks one of the user's notifications read.
func MarkNotificationRead(db *gorm.DB, userID, id uint) error {
	res := db.Model(&models.Notification{}).Where("id = ? AND user_id = ?", id, userID).Update("is_read", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := db.Model(&models.Notification{}).Where("id = ? AND user_id = ?", id, userID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return NotFound("notification not found")
		}
	}
	return nil
}

// MarkAllNotificationsRead returns how many rows changed.
func MarkAllNotificationsRead(db *gorm.DB, userID uint) (int64, error) {
	res := db.Model(&models.Notification{}).Where("user_id = ? AND is_read = ?", userID, false).Update("is_read", true)
	return res.RowsAffected, res.Error
}
