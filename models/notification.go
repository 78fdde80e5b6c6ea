package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	NotificationTaskDeadline    = "task_deadline"
	NotificationTaskStale       = "task_stale"
	NotificationTeamInvite      = "team_invite"
	NotificationTaskAssigned    = "task_assigned"
	NotificationMemberRated     = "member_rated"
	NotificationPasswordChanged = "password_changed"
)

// Notification belongs to a user. TaskID mirrors action_data.task_id so the
// dedup lookup is an indexed query.
type Notification struct {
	ID         uint              `gorm:"primaryKey" json:"id"`
	UserID     uint              `gorm:"not null;index:idx_notification_dedup,priority:1" json:"user_id"`
	Type       string            `gorm:"size:50;not null;index:idx_notification_dedup,priority:2" json:"type"`
	TaskID     *uint             `gorm:"index:idx_notification_dedup,priority:3" json:"task_id"`
	Title      string            `gorm:"size:200;not null" json:"title"`
	Message    string            `gorm:"type:text" json:"message"`
	IsRead     bool              `gorm:"not null;default:false" json:"is_read"`
	ActionType *string           `gorm:"size:50" json:"action_type"`
	ActionData datatypes.JSONMap `json:"action_data"`
	CreatedAt  time.Time         `gorm:"index" json:"created_at"`
}
