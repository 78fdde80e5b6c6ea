package models

import "time"

type User struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	Username        string     `gorm:"size:80;uniqueIndex;not null" json:"username"`
	Email           string     `gorm:"size:120;uniqueIndex;not null" json:"email"`
	Password        string     `gorm:"size:255;not null" json:"-"`
	FullName        string     `gorm:"size:120" json:"full_name"`
	AvatarURL       *string    `gorm:"size:500" json:"avatar_url"`
	AccessCount     int64      `gorm:"not null;default:0" json:"access_count"`
	IsPlatformAdmin bool       `gorm:"not null;default:false" json:"is_platform_admin"`
	FailedLogins    int        `gorm:"not null;default:0" json:"-"`
	LockedUntil     *time.Time `json:"-"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// Role is the JWT role claim for the user.
func (u *User) Role() string {
	if u.IsPlatformAdmin {
		return "admin"
	}
	return "user"
}
