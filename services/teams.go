package services

import (
	"errors"
	"strings"
	"time"

	"github.com/lvt17/planex-be/models"

	"gorm.io/gorm"
)

// TeamSummary is a team as seen by one of its members.
type TeamSummary struct {
	models.Team
	MyRole      string `json:"my_role"`
	MemberCount int64  `json:"member_count"`
}

// MemberView is a team member with team-scoped badges.
type MemberView struct {
	UserID    uint      `json:"user_id"`
	Username  string    `json:"username"`
	FullName  string    `json:"full_name"`
	Email     string    `json:"email"`
	AvatarURL *string   `json:"avatar_url"`
	Role      string    `json:"role"`
	JoinedAt  time.Time `json:"joined_at"`
	Title     string    `json:"title"`
	Badges    []string  `json:"badges"`
}

// TeamDetail is the full team view.
type TeamDetail struct {
	Team            models.Team       `json:"team"`
	MyRole          string            `json:"my_role"`
	Members         []MemberView      `json:"members"`
	PendingRequests []JoinRequestView `json:"pending_requests,omitempty"`
}

func loadMembership(db *gorm.DB, teamID, uid uint) (*models.TeamMembership, error) {
	var m models.TeamMembership
	if err := db.Where("team_id = ? AND user_id = ?", teamID, uid).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

func loadTeam(db *gorm.DB, teamID uint) (*models.Team, error) {
	var team models.Team
	if err := db.First(&team, teamID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFound("team not found")
		}
		return nil, err
	}
	return &team, nil
}

// RequireMembership returns uid's membership or NotFound/Forbidden.
func RequireMembership(db *gorm.DB, teamID, uid uint) (*models.TeamMembership, error) {
	if _, err := loadTeam(db, teamID); err != nil {
		return nil, err
	}
	m, err := loadMembership(db, teamID, uid)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, Forbidden("you are not a member of this team")
	}
	return m, err
}

// RequireLeader is RequireMembership restricted to owner and admins.
func RequireLeader(db *gorm.DB, teamID, uid uint) (*models.TeamMembership, error) {
	m, err := RequireMembership(db, teamID, uid)
	if err != nil {
		return nil, err
	}
	if !m.IsLeader() {
		return nil, Forbidden("only the team owner or an admin can do this")
	}
	return m, nil
}

// RequireOwner is RequireMembership restricted to the owner.
func RequireOwner(db *gorm.DB, teamID, uid uint) (*models.TeamMembership, error) {
	m, err := RequireMembership(db, teamID, uid)
	if err != nil {
		return nil, err
	}
	if m.Role != models.RoleOwner {
		return nil, Forbidden("only the team owner can do this")
	}
	return m, nil
}

// CreateTeam creates a team with ownerID as its owner member.
func CreateTeam(db *gorm.DB, ownerID uint, name string) (*models.Team, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, Invalid("team name is required")
	}
	team := &models.Team{Name: name, OwnerID: ownerID}
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(team).Error; err != nil {
			return err
		}
		return tx.Create(&models.TeamMembership{TeamID: team.ID, UserID: ownerID, Role: models.RoleOwner}).Error
	})
	if err != nil {
		return nil, err
	}
	return team, nil
}

// ListTeams returns the teams uid belongs to.
func ListTeams(db *gorm.DB, uid uint) ([]TeamSummary, error) {
	var memberships []models.TeamMembership
	if err := db.Where("user_id = ?", uid).Order("joined_at ASC, id ASC").Find(&memberships).Error; err != nil {
		return nil, err
	}
	out := make([]TeamSummary, 0, len(memberships))
	for _, m := range memberships {
		var team models.Team
		if err := db.First(&team, m.TeamID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return nil, err
		}
		var count int64
		if err := db.Model(&models.TeamMembership{}).Where("team_id = ?", m.TeamID).Count(&count).Error; err != nil {
			return nil, err
		}
		out = append(out, TeamSummary{Team: team, MyRole: m.Role, MemberCount: count})
	}
	return out, nil
}

// GetTeamDetail returns the team with members. Leaders also get the pending
// join requests.
func GetTeamDetail(db *gorm.DB, teamID, uid uint) (*TeamDetail, error) {
	me, err := RequireMembership(db, teamID, uid)
	if err != nil {
		return nil, err
	}
	team, err := loadTeam(db, teamID)
	if err != nil {
		return nil, err
	}
	members, err := ListMembers(db, teamID)
	if err != nil {
		return nil, err
	}
	detail := &TeamDetail{Team: *team, MyRole: me.Role, Members: members}
	if me.IsLeader() {
		reqs, err := pendingRequests(db, teamID)
		if err != nil {
			return nil, err
		}
		detail.PendingRequests = reqs
	}
	return detail, nil
}

// ListMembers returns members ordered by join time with team-scoped badges.
func ListMembers(db *gorm.DB, teamID uint) ([]MemberView, error) {
	var memberships []models.TeamMembership
	if err := db.Preload("User").Where("team_id = ?", teamID).Order("joined_at ASC, id ASC").Find(&memberships).Error; err != nil {
		return nil, err
	}
	out := make([]MemberView, 0, len(memberships))
	for _, m := range memberships {
		if m.User == nil {
			continue
		}
		b := TeamBadgesFor(db, m.User, teamID)
		out = append(out, MemberView{
			UserID:    m.UserID,
			Username:  m.User.Username,
			FullName:  m.User.FullName,
			Email:     m.User.Email,
			AvatarURL: m.User.AvatarURL,
			Role:      m.Role,
			JoinedAt:  m.JoinedAt,
			Title:     b.Title,
			Badges:    b.Badges,
		})
	}
	return out, nil
}

// RenameTeam is allowed to leaders.
func RenameTeam(db *gorm.DB, teamID, uid uint, name string) (*models.Team, error) {
	if _, err := RequireLeader(db, teamID, uid); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, Invalid("team name is required")
	}
	if err := db.Model(&models.Team{}).Where("id = ?", teamID).Update("name", name).Error; err != nil {
		return nil, err
	}
	return loadTeam(db, teamID)
}

// SetTeamAvatar stores an already uploaded avatar URL.
func SetTeamAvatar(db *gorm.DB, teamID uint, url string) (*models.Team, error) {
	if err := db.Model(&models.Team{}).Where("id = ?", teamID).Update("avatar_url", url).Error; err != nil {
		return nil, err
	}
	return loadTeam(db, teamID)
}

// ChangeMemberRole lets the owner promote or demote a member.
func ChangeMemberRole(db *gorm.DB, teamID, actorID, targetID uint, role string) error {
	if _, err := RequireOwner(db, teamID, actorID); err != nil {
		return err
	}
	if targetID == actorID {
		return Invalid("you cannot change your own role")
	}
	if role != models.RoleAdmin && role != models.RoleMember {
		return Invalid("role must be admin or member")
	}
	if _, err := loadMembership(db, teamID, targetID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return NotFound("member not found in this team")
		}
		return err
	}
	return db.Model(&models.TeamMembership{}).
		Where("team_id = ? AND user_id = ?", teamID, targetID).
		Update("role", role).Error
}

// LeaveResult tells the caller what leaving did to the team.
type LeaveResult struct {
	TeamDeleted bool  `json:"team_deleted"`
	NewOwnerID  *uint `json:"new_owner_id,omitempty"`
}

// LeaveTeam removes uid from the team. An owner hands ownership to the
// earliest-joined admin, else the earliest-joined member; an owner who is
// alone deletes the team. All of it happens in one transaction.
func LeaveTeam(db *gorm.DB, teamID, uid uint) (*LeaveResult, error) {
	res := &LeaveResult{}
	err := db.Transaction(func(tx *gorm.DB) error {
		m, err := loadMembership(tx, teamID, uid)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NotFound("you are not a member of this team")
			}
			return err
		}
		if m.Role != models.RoleOwner {
			return tx.Delete(&models.TeamMembership{}, m.ID).Error
		}

		var successor models.TeamMembership
		err = tx.Where("team_id = ? AND user_id <> ?", teamID, uid).
			Order("CASE WHEN role = 'admin' THEN 0 ELSE 1 END, joined_at ASC, id ASC").
			First(&successor).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			res.TeamDeleted = true
			return deleteTeamData(tx, teamID)
		}
		if err != nil {
			return err
		}
		if err := tx.Model(&models.TeamMembership{}).Where("id = ?", successor.ID).Update("role", models.RoleOwner).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Team{}).Where("id = ?", teamID).Update("owner_id", successor.UserID).Error; err != nil {
			return err
		}
		res.NewOwnerID = &successor.UserID
		return tx.Delete(&models.TeamMembership{}, m.ID).Error
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// DissolveTeam deletes the team and everything scoped to it. Owner only.
func DissolveTeam(db *gorm.DB, teamID, uid uint) error {
	if _, err := RequireOwner(db, teamID, uid); err != nil {
		return err
	}
	return db.Transaction(func(tx *gorm.DB) error {
		return deleteTeamData(tx, teamID)
	})
}

// deleteTeamData removes team-scoped rows. Tasks survive as personal tasks of
// their owner.
func deleteTeamData(tx *gorm.DB, teamID uint) error {
	if err := tx.Model(&models.Task{}).Where("team_id = ?", teamID).
		Updates(map[string]interface{}{"team_id": nil, "project_id": nil}).Error; err != nil {
		return err
	}
	for _, m := range []interface{}{
		&models.TeamMembership{},
		&models.TeamInvite{},
		&models.ChatMessage{},
		&models.MemberRating{},
		&models.Project{},
	} {
		if err := tx.Where("team_id = ?", teamID).Delete(m).Error; err != nil {
			return err
		}
	}
	return tx.Delete(&models.Team{}, teamID).Error
}

// RemoveMember lets the owner kick a member.
func RemoveMember(db *gorm.DB, teamID, actorID, targetID uint) error {
	if _, err := RequireOwner(db, teamID, actorID); err != nil {
		return err
	}
	if targetID == actorID {
		return Invalid("you cannot remove yourself, leave the team instead")
	}
	res := db.Where("team_id = ? AND user_id = ?", teamID, targetID).Delete(&models.TeamMembership{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return NotFound("member not found in this team")
	}
	return nil
}
