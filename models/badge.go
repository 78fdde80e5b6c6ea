package models

import "time"

type BadgeDefinition struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Name           string    `gorm:"size:100;not null" json:"name"`
	IconURL        *string   `gorm:"size:500" json:"icon_url"`
	FrameStyle     *string   `gorm:"size:50" json:"frame_style"`
	Description    string    `gorm:"type:text" json:"description"`
	ConditionType  *string   `gorm:"size:50" json:"condition_type"`
	ConditionValue *int      `json:"condition_value"`
	CreatedAt      time.Time `json:"created_at"`
}

type UserBadgeAssignment struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	UserID     uint       `gorm:"not null;index" json:"user_id"`
	BadgeID    uint       `gorm:"not null;index" json:"badge_id"`
	AssignedBy *uint      `json:"assigned_by"`
	AssignedAt time.Time  `gorm:"autoCreateTime" json:"assigned_at"`
	ExpiresAt  *time.Time `json:"expires_at"`

	Badge BadgeDefinition `gorm:"foreignKey:BadgeID;constraint:OnDelete:CASCADE" json:"-"`
}

// IsActive reports whether the assignment has no expiry or expires after now.
func (a *UserBadgeAssignment) IsActive(now time.Time) bool {
	return a.ExpiresAt == nil || a.ExpiresAt.After(now)
}
