package services

import (
	"errors"
	"strings"
	"time"

	"github.com/lvt17/planex-be/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// BadgeInput carries the writable fields of a badge definition.
type BadgeInput struct {
	Name           *string
	IconURL        *string
	FrameStyle     *string
	Description    *string
	ConditionType  *string
	ConditionValue *int
}

func ListBadgeDefinitions(db *gorm.DB) ([]models.BadgeDefinition, error) {
	var out []models.BadgeDefinition
	err := db.Order("id ASC").Find(&out).Error
	return out, err
}

func LoadBadgeDefinition(db *gorm.DB, id uint) (*models.BadgeDefinition, error) {
	var b models.BadgeDefinition
	if err := db.First(&b, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFound("badge %d not found", id)
		}
		return nil, err
	}
	return &b, nil
}

func CreateBadgeDefinition(db *gorm.DB, in BadgeInput) (*models.BadgeDefinition, error) {
	if in.Name == nil || strings.TrimSpace(*in.Name) == "" {
		return nil, Invalid("name is required")
	}
	b := &models.BadgeDefinition{
		Name:           strings.TrimSpace(*in.Name),
		IconURL:        in.IconURL,
		FrameStyle:     in.FrameStyle,
		ConditionType:  in.ConditionType,
		ConditionValue: in.ConditionValue,
	}
	if in.Description != nil {
		b.Description = *in.Description
	}
	if err := db.Create(b).Error; err != nil {
		return nil, err
	}
	return b, nil
}

func UpdateBadgeDefinition(db *gorm.DB, id uint, in BadgeInput) (*models.BadgeDefinition, error) {
	b, err := LoadBadgeDefinition(db, id)
	if err != nil {
		return nil, err
	}
	updates := map[string]interface{}{}
	if in.Name != nil {
		n := strings.TrimSpace(*in.Name)
		if n == "" {
			return nil, Invalid("name must not be empty")
		}
		updates["name"] = n
	}
	if in.IconURL != nil {
		updates["icon_url"] = *in.IconURL
	}
	if in.FrameStyle != nil {
		updates["frame_style"] = *in.FrameStyle
	}
	if in.Description != nil {
		updates["description"] = *in.Description
	}
	if in.ConditionType != nil {
		updates["condition_type"] = *in.ConditionType
	}
	if in.ConditionValue != nil {
		updates["condition_value"] = *in.ConditionValue
	}
	if len(updates) > 0 {
		if err := db.Model(b).Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	return LoadBadgeDefinition(db, id)
}

// DeleteBadgeDefinition removes the definition together with its assignments.
func DeleteBadgeDefinition(db *gorm.DB, id uint) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("badge_id = ?", id).Delete(&models.UserBadgeAssignment{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.BadgeDefinition{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return NotFound("badge %d not found", id)
		}
		return nil
	})
}

// AssignmentView is an assignment joined with its badge and holder.
type AssignmentView struct {
	ID         uint       `json:"id"`
	UserID     uint       `json:"user_id"`
	Username   string     `json:"username"`
	BadgeID    uint       `json:"badge_id"`
	BadgeName  string     `json:"badge_name"`
	AssignedBy *uint      `json:"assigned_by"`
	AssignedAt time.Time  `json:"assigned_at"`
	ExpiresAt  *time.Time `json:"expires_at"`
	Active     bool       `json:"active"`
}

// ListAssignments returns assignments newest first, optionally for one badge.
func ListAssignments(db *gorm.DB, badgeID uint, now time.Time) ([]AssignmentView, error) {
	q := db.Table("user_badge_assignments AS a").
		Select("a.id, a.user_id, u.username, a.badge_id, b.name AS badge_name, a.assigned_by, a.assigned_at, a.expires_at").
		Joins("JOIN users u ON u.id = a.user_id").
		Joins("JOIN badge_definitions b ON b.id = a.badge_id").
		Order("a.assigned_at DESC, a.id DESC")
	if badgeID != 0 {
		q = q.Where("a.badge_id = ?", badgeID)
	}
	var out []AssignmentView
	if err := q.Scan(&out).Error; err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Active = out[i].ExpiresAt == nil || out[i].ExpiresAt.After(now)
	}
	return out, nil
}

func RemoveAssignment(db *gorm.DB, id uint) error {
	res := db.Delete(&models.UserBadgeAssignment{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return NotFound("assignment %d not found", id)
	}
	return nil
}

// UserFilter drives the admin user listing.
type UserFilter struct {
	Search  string
	Page    int
	PerPage int
}

func ListUsers(db *gorm.DB, f UserFilter) ([]models.User, int64, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PerPage < 1 || f.PerPage > 100 {
		f.PerPage = 20
	}
	q := db.Model(&models.User{})
	if s := strings.TrimSpace(f.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		q = q.Where("LOWER(username) LIKE ? OR LOWER(email) LIKE ? OR LOWER(full_name) LIKE ?", like, like, like)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var users []models.User
	err := q.Order("id ASC").Offset((f.Page - 1) * f.PerPage).Limit(f.PerPage).Find(&users).Error
	return users, total, err
}

// SetPlatformAdmin grants or revokes the platform admin flag. An admin cannot
// revoke their own flag.
func SetPlatformAdmin(db *gorm.DB, actorID, userID uint, admin bool) (*models.User, error) {
	if actorID == userID && !admin {
		return nil, Invalid("you cannot revoke your own admin access")
	}
	user, err := GetUser(db, userID)
	if err != nil {
		return nil, err
	}
	if err := db.Model(user).Update("is_platform_admin", admin).Error; err != nil {
		return nil, err
	}
	user.IsPlatformAdmin = admin
	return user, nil
}

// PlatformStats is the admin dashboard summary.
type PlatformStats struct {
	TotalUsers     int64           `json:"total_users"`
	NewUsersWeek   int64           `json:"new_users_week"`
	TotalTasks     int64           `json:"total_tasks"`
	CompletedTasks int64           `json:"completed_tasks"`
	TotalTeams     int64           `json:"total_teams"`
	TotalIncome    decimal.Decimal `json:"total_income"`
}

func ComputePlatformStats(db *gorm.DB, now time.Time) (*PlatformStats, error) {
	var s PlatformStats
	steps := []func() error{
		func() error { return db.Model(&models.User{}).Count(&s.TotalUsers).Error },
		func() error {
			return db.Model(&models.User{}).Where("created_at >= ?", now.UTC().AddDate(0, 0, -7)).Count(&s.NewUsersWeek).Error
		},
		func() error { return db.Model(&models.Task{}).Count(&s.TotalTasks).Error },
		func() error { return db.Model(&models.Task{}).Where("is_done = ?", true).Count(&s.CompletedTasks).Error },
		func() error { return db.Model(&models.Team{}).Count(&s.TotalTeams).Error },
		func() error {
			var sum decimal.NullDecimal
			if err := db.Model(&models.TotalIncome{}).Select("SUM(total)").Scan(&sum).Error; err != nil {
				return err
			}
			s.TotalIncome = sum.Decimal
			return nil
		},
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return nil, err
		}
	}
	return &s, nil
}

// lockDurations maps the admin lock choices to their length. A permanent lock
// is a lock a century long.
var lockDurations = map[string]time.Duration{
	"hour":      time.Hour,
	"day":       24 * time.Hour,
	"permanent": 36500 * 24 * time.Hour,
}

// LockUser blocks sign-in for the chosen duration and drops the user's
// refresh tokens so existing sessions cannot be renewed.
func LockUser(db *gorm.DB, actorID, userID uint, duration string, now time.Time) (*models.User, error) {
	d, ok := lockDurations[strings.ToLower(strings.TrimSpace(duration))]
	if !ok {
		return nil, Invalid("duration must be hour, day or permanent")
	}
	if actorID == userID {
		return nil, Invalid("you cannot lock your own account")
	}
	user, err := GetUser(db, userID)
	if err != nil {
		return nil, err
	}
	until := now.UTC().Add(d)
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.User{}).Where("id = ?", userID).Update("locked_until", until).Error; err != nil {
			return err
		}
		return tx.Where("user_id = ?", userID).Delete(&models.RefreshToken{}).Error
	})
	if err != nil {
		return nil, err
	}
	user.LockedUntil = &until
	return user, nil
}

// UnlockUser lifts any lock and clears the failed login counter.
func UnlockUser(db *gorm.DB, userID uint) (*models.User, error) {
	user, err := GetUser(db, userID)
	if err != nil {
		return nil, err
	}
	err = db.Model(&models.User{}).Where("id = ?", userID).Updates(map[string]interface{}{
		"locked_until":  nil,
		"failed_logins": 0,
	}).Error
	if err != nil {
		return nil, err
	}
	user.LockedUntil = nil
	user.FailedLogins = 0
	return user, nil
}

// DeleteUser removes the account and everything it owns. Teams the user owns
// are dissolved; in other teams their memberships, messages and ratings go.
func DeleteUser(db *gorm.DB, actorID, userID uint) error {
	if actorID == userID {
		return Invalid("you cannot delete your own account")
	}
	if _, err := GetUser(db, userID); err != nil {
		return err
	}
	return db.Transaction(func(tx *gorm.DB) error {
		var teamIDs []uint
		if err := tx.Model(&models.Team{}).Where("owner_id = ?", userID).Pluck("id", &teamIDs).Error; err != nil {
			return err
		}
		for _, id := range teamIDs {
			if err := deleteTeamData(tx, id); err != nil {
				return err
			}
		}

		var taskIDs, subIDs []uint
		if err := tx.Model(&models.Task{}).Where("user_id = ? OR creator_id = ?", userID, userID).Pluck("id", &taskIDs).Error; err != nil {
			return err
		}
		if len(taskIDs) > 0 {
			if err := tx.Model(&models.Subtask{}).Where("task_id IN ?", taskIDs).Pluck("id", &subIDs).Error; err != nil {
				return err
			}
			if err := tx.Where("task_id IN ?", taskIDs).Delete(&models.TaskComment{}).Error; err != nil {
				return err
			}
			if len(subIDs) > 0 {
				if err := tx.Where("subtask_id IN ?", subIDs).Delete(&models.TaskComment{}).Error; err != nil {
					return err
				}
			}
			if err := tx.Where("task_id IN ?", taskIDs).Delete(&models.Subtask{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("user_id = ?", userID).Delete(&models.TaskComment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ? OR creator_id = ?", userID, userID).Delete(&models.Task{}).Error; err != nil {
			return err
		}
		if err := tx.Where("member_id = ? OR rater_id = ?", userID, userID).Delete(&models.MemberRating{}).Error; err != nil {
			return err
		}
		for _, m := range []interface{}{
			&models.Project{},
			&models.TeamMembership{},
			&models.ChatMessage{},
			&models.TeamInvite{},
			&models.TotalIncome{},
			&models.Sale{},
			&models.Product{},
			&models.Notification{},
			&models.UserBadgeAssignment{},
			&models.Whiteboard{},
			&models.RefreshToken{},
		} {
			if err := tx.Where("user_id = ?", userID).Delete(m).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&models.User{}, userID).Error
	})
}
