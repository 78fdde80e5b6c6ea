package models

import "time"

const (
	RoleOwner  = "owner"
	RoleAdmin  = "admin"
	RoleMember = "member"
)

const (
	InviteTypeLink    = "link"
	InviteTypeRequest = "request"
	InviteTypeInvite  = "invite"

	InviteStatusPending  = "pending"
	InviteStatusApproved = "approved"
	InviteStatusAccepted = "accepted"
	InviteStatusRejected = "rejected"
)

type Team struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:120;not null" json:"name"`
	OwnerID   uint      `gorm:"not null;index" json:"owner_id"`
	AvatarURL *string   `gorm:"size:500" json:"avatar_url"`
	CreatedAt time.Time `json:"created_at"`
}

type TeamMembership struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	TeamID    uint      `gorm:"not null;uniqueIndex:idx_team_member" json:"team_id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_team_member;index" json:"user_id"`
	Role      string    `gorm:"size:20;not null;default:member" json:"role"`
	InvitedBy *uint     `json:"invited_by"`
	JoinedAt  time.Time `gorm:"autoCreateTime" json:"joined_at"`

	User *User `gorm:"foreignKey:UserID" json:"-"`
}

// IsLeader reports whether the role can manage the team.
func (m *TeamMembership) IsLeader() bool {
	return m.Role == RoleOwner || m.Role == RoleAdmin
}

// TeamInvite covers invite links, join requests and direct invites.
type TeamInvite struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	TeamID      uint       `gorm:"not null;index" json:"team_id"`
	InviteToken *string    `gorm:"size:64;uniqueIndex" json:"invite_token,omitempty"`
	UserID      *uint      `gorm:"index" json:"user_id"`
	InvitedBy   *uint      `json:"invited_by"`
	Status      string     `gorm:"size:20;not null;default:pending" json:"status"`
	InviteType  string     `gorm:"size:20;not null;default:link" json:"invite_type"`
	CreatedAt   time.Time  `json:"created_at"`
	ExpiresAt   *time.Time `gorm:"index" json:"expires_at"`
}

type ChatMessage struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	TeamID    uint      `gorm:"not null;index" json:"team_id"`
	UserID    uint      `gorm:"not null" json:"user_id"`
	Content   string    `gorm:"type:text" json:"content"`
	ImageURL  *string   `gorm:"size:500" json:"image_url"`
	CreatedAt time.Time `json:"created_at"`

	User *User `gorm:"foreignKey:UserID" json:"-"`
}

// MemberRating is one leader's 1-5 score for a member within a team.
type MemberRating struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	TeamID    uint      `gorm:"not null;uniqueIndex:idx_member_rating" json:"team_id"`
	MemberID  uint      `gorm:"not null;uniqueIndex:idx_member_rating" json:"member_id"`
	RaterID   uint      `gorm:"not null;uniqueIndex:idx_member_rating" json:"rater_id"`
	Score     int       `gorm:"not null" json:"score"`
	Comment   string    `gorm:"type:text" json:"comment"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
