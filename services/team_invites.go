package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/lvt17/planex-be/models"

	"gorm.io/gorm"
)

const inviteLinkTTL = 7 * 24 * time.Hour

// JoinRequestView is a pending request to join through a link.
type JoinRequestView struct {
	ID        uint      `json:"id"`
	UserID    uint      `json:"user_id"`
	Username  string    `json:"username"`
	FullName  string    `json:"full_name"`
	AvatarURL *string   `json:"avatar_url"`
	CreatedAt time.Time `json:"created_at"`
}

// InviteLinkView is what a leader shares.
type InviteLinkView struct {
	InviteLink string    `json:"invite_link"`
	Token      string    `json:"token"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// InviteUser invites an existing user by username or email and notifies them.
func InviteUser(db *gorm.DB, teamID, actorID uint, identifier string) (*models.TeamInvite, *models.User, error) {
	if _, err := RequireLeader(db, teamID, actorID); err != nil {
		return nil, nil, err
	}
	target, err := FindUserByIdentifier(db, identifier)
	if err != nil {
		return nil, nil, err
	}
	if _, err := loadMembership(db, teamID, target.ID); err == nil {
		return nil, nil, Invalid("user is already a member of this team")
	}
	var pending int64
	if err := db.Model(&models.TeamInvite{}).
		Where("team_id = ? AND user_id = ? AND invite_type = ? AND status = ?", teamID, target.ID, models.InviteTypeInvite, models.InviteStatusPending).
		Count(&pending).Error; err != nil {
		return nil, nil, err
	}
	if pending > 0 {
		return nil, nil, Invalid("user already has a pending invite")
	}
	team, err := loadTeam(db, teamID)
	if err != nil {
		return nil, nil, err
	}

	invite := &models.TeamInvite{
		TeamID:     teamID,
		UserID:     &target.ID,
		InvitedBy:  &actorID,
		Status:     models.InviteStatusPending,
		InviteType: models.InviteTypeInvite,
	}
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(invite).Error; err != nil {
			return err
		}
		_, err := Notify(tx, NotificationInput{
			UserID:     target.ID,
			Type:       models.NotificationTeamInvite,
			Title:      "Team invitation",
			Message:    fmt.Sprintf("You have been invited to join team %s.", team.Name),
			ActionType: "accept_team_invite",
			ActionData: map[string]interface{}{"team_id": teamID, "invite_id": invite.ID},
		})
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return invite, target, nil
}

// CreateInviteLink issues a 7-day shareable token.
func CreateInviteLink(db *gorm.DB, teamID, actorID uint, now time.Time) (*InviteLinkView, error) {
	if _, err := RequireLeader(db, teamID, actorID); err != nil {
		return nil, err
	}
	token, err := models.RandomToken(16)
	if err != nil {
		return nil, err
	}
	exp := now.UTC().Add(inviteLinkTTL)
	invite := &models.TeamInvite{
		TeamID:      teamID,
		InviteToken: &token,
		InvitedBy:   &actorID,
		Status:      models.InviteStatusPending,
		InviteType:  models.InviteTypeLink,
		ExpiresAt:   &exp,
	}
	if err := db.Create(invite).Error; err != nil {
		return nil, err
	}
	return &InviteLinkView{InviteLink: "/join-team/" + token, Token: token, ExpiresAt: exp}, nil
}

func loadLink(db *gorm.DB, token string, now time.Time) (*models.TeamInvite, error) {
	var invite models.TeamInvite
	err := db.Where("invite_token = ? AND invite_type = ?", token, models.InviteTypeLink).First(&invite).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, NotFound("invite link not found")
	}
	if err != nil {
		return nil, err
	}
	if invite.ExpiresAt != nil && !invite.ExpiresAt.After(now) {
		return nil, Expired("invite link has expired")
	}
	return &invite, nil
}

// InviteLinkInfo resolves a public link token to its team.
func InviteLinkInfo(db *gorm.DB, token string, now time.Time) (*models.Team, error) {
	invite, err := loadLink(db, token, now)
	if err != nil {
		return nil, err
	}
	return loadTeam(db, invite.TeamID)
}

// RequestJoin files a join request through a link. Leaders approve it.
func RequestJoin(db *gorm.DB, token string, uid uint, now time.Time) (*models.TeamInvite, error) {
	link, err := loadLink(db, token, now)
	if err != nil {
		return nil, err
	}
	if _, err := loadMembership(db, link.TeamID, uid); err == nil {
		return nil, Invalid("you are already a member of this team")
	}
	var pending int64
	if err := db.Model(&models.TeamInvite{}).
		Where("team_id = ? AND user_id = ? AND invite_type = ? AND status = ?", link.TeamID, uid, models.InviteTypeRequest, models.InviteStatusPending).
		Count(&pending).Error; err != nil {
		return nil, err
	}
	if pending > 0 {
		return nil, Invalid("you have already requested to join this team")
	}
	req := &models.TeamInvite{
		TeamID:     link.TeamID,
		UserID:     &uid,
		InvitedBy:  link.InvitedBy,
		Status:     models.InviteStatusPending,
		InviteType: models.InviteTypeRequest,
	}
	if err := db.Create(req).Error; err != nil {
		return nil, err
	}
	return req, nil
}

func pendingRequests(db *gorm.DB, teamID uint) ([]JoinRequestView, error) {
	var rows []models.TeamInvite
	if err := db.Where("team_id = ? AND invite_type = ? AND status = ?", teamID, models.InviteTypeRequest, models.InviteStatusPending).
		Order("created_at ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]JoinRequestView, 0, len(rows))
	for _, r := range rows {
		if r.UserID == nil {
			continue
		}
		var u models.User
		if err := db.Select("id", "username", "full_name", "avatar_url").First(&u, *r.UserID).Error; err != nil {
			continue
		}
		out = append(out, JoinRequestView{ID: r.ID, UserID: u.ID, Username: u.Username, FullName: u.FullName, AvatarURL: u.AvatarURL, CreatedAt: r.CreatedAt})
	}
	return out, nil
}

// ListJoinRequests is for leaders.
func ListJoinRequests(db *gorm.DB, teamID, actorID uint) ([]JoinRequestView, error) {
	if _, err := RequireLeader(db, teamID, actorID); err != nil {
		return nil, err
	}
	return pendingRequests(db, teamID)
}

// ResolveJoinRequest approves or rejects a pending request. Approving a user
// who already joined another way only closes the request.
func ResolveJoinRequest(db *gorm.DB, teamID, actorID, requestID uint, approve bool) error {
	if _, err := RequireLeader(db, teamID, actorID); err != nil {
		return err
	}
	return db.Transaction(func(tx *gorm.DB) error {
		var req models.TeamInvite
		if err := tx.First(&req, requestID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NotFound("join request not found")
			}
			return err
		}
		if req.TeamID != teamID || req.InviteType != models.InviteTypeRequest || req.UserID == nil {
			return Invalid("invalid join request")
		}
		if req.Status != models.InviteStatusPending {
			return Invalid("join request was already processed")
		}
		if !approve {
			return tx.Model(&models.TeamInvite{}).Where("id = ?", req.ID).Update("status", models.InviteStatusRejected).Error
		}
		if _, err := loadMembership(tx, teamID, *req.UserID); errors.Is(err, gorm.ErrRecordNotFound) {
			m := &models.TeamMembership{TeamID: teamID, UserID: *req.UserID, Role: models.RoleMember, InvitedBy: &actorID}
			if err := tx.Create(m).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		}
		return tx.Model(&models.TeamInvite{}).Where("id = ?", req.ID).Update("status", models.InviteStatusApproved).Error
	})
}

func loadDirectInvite(tx *gorm.DB, inviteID, uid uint) (*models.TeamInvite, error) {
	var invite models.TeamInvite
	err := tx.Where("id = ? AND user_id = ? AND invite_type = ? AND status = ?",
		inviteID, uid, models.InviteTypeInvite, models.InviteStatusPending).First(&invite).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, NotFound("invitation not found")
	}
	return &invite, err
}

// AcceptInvite turns a direct invite into a membership.
func AcceptInvite(db *gorm.DB, inviteID, uid uint) (*models.Team, error) {
	var teamID uint
	err := db.Transaction(func(tx *gorm.DB) error {
		invite, err := loadDirectInvite(tx, inviteID, uid)
		if err != nil {
			return err
		}
		teamID = invite.TeamID
		if _, err := loadMembership(tx, invite.TeamID, uid); err == nil {
			return Invalid("you are already a member of this team")
		}
		m := &models.TeamMembership{TeamID: invite.TeamID, UserID: uid, Role: models.RoleMember, InvitedBy: invite.InvitedBy}
		if err := tx.Create(m).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.TeamInvite{}).Where("id = ?", invite.ID).Update("status", models.InviteStatusAccepted).Error; err != nil {
			return err
		}
		return markInviteNotificationRead(tx, uid, invite.ID)
	})
	if err != nil {
		return nil, err
	}
	return loadTeam(db, teamID)
}

// RejectInvite declines a direct invite.
func RejectInvite(db *gorm.DB, inviteID, uid uint) error {
	return db.Transaction(func(tx *gorm.DB) error {
		invite, err := loadDirectInvite(tx, inviteID, uid)
		if err != nil {
			return err
		}
		if err := tx.Model(&models.TeamInvite{}).Where("id = ?", invite.ID).Update("status", models.InviteStatusRejected).Error; err != nil {
			return err
		}
		return markInviteNotificationRead(tx, uid, invite.ID)
	})
}

// markInviteNotificationRead matches on action_data.invite_id in Go so the
// query stays portable across drivers.
func markInviteNotificationRead(tx *gorm.DB, uid, inviteID uint) error {
	var rows []models.Notification
	if err := tx.Where("user_id = ? AND type = ? AND is_read = ?", uid, models.NotificationTeamInvite, false).Find(&rows).Error; err != nil {
		return err
	}
	want := fmt.Sprint(inviteID)
	for _, n := range rows {
		if v, ok := n.ActionData["invite_id"]; ok && fmt.Sprint(v) == want {
			if err := tx.Model(&models.Notification{}).Where("id = ?", n.ID).Update("is_read", true).Error; err != nil {
				return err
			}
		}
	}
	return nil
}
