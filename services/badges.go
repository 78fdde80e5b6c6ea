package services

import (
	"fmt"
	"time"

	"github.com/lvt17/planex-be/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	BadgeFounder     = "Founder"
	BadgeMaster      = "Master"
	BadgeExpert      = "Expert"
	BadgeRegular     = "Regular"
	BadgeNewbie      = "Newbie"
	BadgeTeamLeader  = "Team Leader"
	BadgeStarOfWeek  = "Star of the Week"
	BadgeStarOfMonth = "Star of the Month"
	BadgeTeamMVP     = "Team MVP"

	weeklyCompletionThreshold  = 5
	monthlyCompletionThreshold = 21
)

// PrestigeBadge is the single tier badge every user has. Platform admins get
// the top tier, everyone else is ranked by access_count.
func PrestigeBadge(user *models.User) string {
	if user == nil {
		return BadgeNewbie
	}
	if user.IsPlatformAdmin {
		return BadgeFounder
	}
	switch {
	case user.AccessCount >= 1000:
		return BadgeMaster
	case user.AccessCount >= 100:
		return BadgeExpert
	case user.AccessCount >= 10:
		return BadgeRegular
	default:
		return BadgeNewbie
	}
}

// PreviousWeek returns [Monday 00:00 of last week, Monday 00:00 of this week) in loc.
func PreviousWeek(now time.Time, loc *time.Location) (time.Time, time.Time) {
	local := now.In(loc)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	sinceMonday := (int(midnight.Weekday()) + 6) % 7
	thisMonday := midnight.AddDate(0, 0, -sinceMonday)
	return thisMonday.AddDate(0, 0, -7), thisMonday
}

// PreviousMonth returns [first of last month, first of this month) in loc.
func PreviousMonth(now time.Time, loc *time.Location) (time.Time, time.Time) {
	local := now.In(loc)
	first := time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, loc)
	return first.AddDate(0, -1, 0), first
}

// CountCompletions counts the user's tasks with completed_at in [start, end).
func CountCompletions(db *gorm.DB, userID uint, start, end time.Time) (int64, error) {
	var n int64
	err := db.Model(&models.Task{}).
		Where("user_id = ? AND completed_at >= ? AND completed_at < ?", userID, start.UTC(), end.UTC()).
		Count(&n).Error
	return n, err
}

// runStep evaluates one badge rule. Errors and panics are logged and the rule
// contributes nothing.
func runStep(step string, userID uint, fn func() ([]string, error)) (out []string) {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("badge step panicked", zap.String("step", step), zap.Uint("user_id", userID), zap.Any("panic", r))
			out = nil
		}
	}()
	badges, err := fn()
	if err != nil {
		zap.L().Warn("badge step failed", zap.String("step", step), zap.Uint("user_id", userID), zap.Error(err))
		return nil
	}
	return badges
}

// ComputeBadges returns the user's badges in display order; the first entry
// is the title. It never fails: a broken rule is skipped and a catastrophic
// failure degrades to the prestige badge alone.
func ComputeBadges(db *gorm.DB, user *models.User, now time.Time, loc *time.Location) (badges []string) {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("badge computation panicked", zap.Any("panic", r))
			badges = []string{safePrestige(user)}
		}
	}()

	badges = []string{PrestigeBadge(user)}

	badges = append(badges, runStep("leadership", user.ID, func() ([]string, error) {
		var owned int64
		if err := db.Model(&models.Team{}).Where("owner_id = ?", user.ID).Count(&owned).Error; err != nil {
			return nil, err
		}
		if owned > 0 {
			return []string{BadgeTeamLeader}, nil
		}
		return nil, nil
	})...)

	badges = append(badges, runStep("weekly", user.ID, func() ([]string, error) {
		start, end := PreviousWeek(now, loc)
		n, err := CountCompletions(db, user.ID, start, end)
		if err != nil {
			return nil, err
		}
		if n >= weeklyCompletionThreshold {
			return []string{BadgeStarOfWeek}, nil
		}
		return nil, nil
	})...)

	badges = append(badges, runStep("monthly", user.ID, func() ([]string, error) {
		start, end := PreviousMonth(now, loc)
		n, err := CountCompletions(db, user.ID, start, end)
		if err != nil {
			return nil, err
		}
		if n >= monthlyCompletionThreshold {
			return []string{BadgeStarOfMonth}, nil
		}
		return nil, nil
	})...)

	badges = append(badges, runStep("team_mvp", user.ID, func() ([]string, error) {
		var teamIDs []uint
		if err := db.Model(&models.TeamMembership{}).
			Where("user_id = ?", user.ID).
			Order("joined_at ASC, id ASC").
			Pluck("team_id", &teamIDs).Error; err != nil {
			return nil, err
		}
		for _, teamID := range teamIDs {
			top, err := isTopOfTeam(db, user, teamID)
			if err != nil {
				return nil, err
			}
			if top {
				return []string{BadgeTeamMVP}, nil
			}
		}
		return nil, nil
	})...)

	badges = append(badges, runStep("manual", user.ID, func() ([]string, error) {
		var assignments []models.UserBadgeAssignment
		if err := db.Preload("Badge").
			Where("user_id = ? AND (expires_at IS NULL OR expires_at > ?)", user.ID, now.UTC()).
			Order("id ASC").
			Find(&assignments).Error; err != nil {
			return nil, err
		}
		var names []string
		for i := range assignments {
			if assignments[i].IsActive(now) && assignments[i].Badge.Name != "" {
				names = append(names, assignments[i].Badge.Name)
			}
		}
		return names, nil
	})...)

	return badges
}

// ComputeTeamBadges returns only the badges that describe the user inside
// one team: leader of that team and top of that team.
func ComputeTeamBadges(db *gorm.DB, user *models.User, teamID uint) []string {
	badges := []string{}
	badges = append(badges, runStep("team_leadership", user.ID, func() ([]string, error) {
		var team models.Team
		if err := db.Select("id", "owner_id").First(&team, teamID).Error; err != nil {
			return nil, err
		}
		if team.OwnerID == user.ID {
			return []string{BadgeTeamLeader}, nil
		}
		return nil, nil
	})...)
	badges = append(badges, runStep("team_mvp", user.ID, func() ([]string, error) {
		top, err := isTopOfTeam(db, user, teamID)
		if err != nil || !top {
			return nil, err
		}
		return []string{BadgeTeamMVP}, nil
	})...)
	return badges
}

// isTopOfTeam reports whether the user has the highest access_count in a team
// with more than one member. A maximum of zero never qualifies.
func isTopOfTeam(db *gorm.DB, user *models.User, teamID uint) (bool, error) {
	var stats struct {
		Members   int64
		MaxAccess int64
	}
	err := db.Table("team_memberships").
		Select("COUNT(*) AS members, COALESCE(MAX(users.access_count), 0) AS max_access").
		Joins("JOIN users ON users.id = team_memberships.user_id").
		Where("team_memberships.team_id = ?", teamID).
		Scan(&stats).Error
	if err != nil {
		return false, err
	}
	if stats.Members <= 1 || stats.MaxAccess <= 0 {
		return false, nil
	}
	return user.AccessCount >= stats.MaxAccess, nil
}

func safePrestige(user *models.User) (badge string) {
	defer func() {
		if recover() != nil {
			badge = BadgeNewbie
		}
	}()
	return PrestigeBadge(user)
}

// UserBadges is the serialised badge view of a user.
type UserBadges struct {
	Title  string   `json:"title"`
	Badges []string `json:"badges"`
}

// BadgesFor wraps ComputeBadges with the title.
func BadgesFor(db *gorm.DB, user *models.User, now time.Time, loc *time.Location) UserBadges {
	b := ComputeBadges(db, user, now, loc)
	return UserBadges{Title: b[0], Badges: b}
}

// TeamBadgesFor is the team-scoped view. The title stays the global prestige badge.
func TeamBadgesFor(db *gorm.DB, user *models.User, teamID uint) UserBadges {
	return UserBadges{Title: PrestigeBadge(user), Badges: ComputeTeamBadges(db, user, teamID)}
}

// AssignBadge grants a badge definition to a user, optionally expiring after
// expiresInDays days.
func AssignBadge(db *gorm.DB, adminID uint, identifier string, badgeID uint, expiresInDays *int, now time.Time) (*models.UserBadgeAssignment, error) {
	var badge models.BadgeDefinition
	if err := db.First(&badge, badgeID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, NotFound("badge %d not found", badgeID)
		}
		return nil, err
	}
	user, err := FindUserByIdentifier(db, identifier)
	if err != nil {
		return nil, err
	}
	a := &models.UserBadgeAssignment{
		UserID:     user.ID,
		BadgeID:    badge.ID,
		AssignedBy: &adminID,
		AssignedAt: now.UTC(),
	}
	if expiresInDays != nil {
		if *expiresInDays <= 0 {
			return nil, Invalid("expires_in_days must be positive")
		}
		exp := now.UTC().AddDate(0, 0, *expiresInDays)
		a.ExpiresAt = &exp
	}
	if err := db.Create(a).Error; err != nil {
		return nil, err
	}
	a.Badge = badge
	return a, nil
}

// FindUserByIdentifier looks a user up by username or email.
func FindUserByIdentifier(db *gorm.DB, identifier string) (*models.User, error) {
	if identifier == "" {
		return nil, Invalid("username or email is required")
	}
	var user models.User
	err := db.Where("username = ? OR email = ?", identifier, identifier).First(&user).Error
	if err == gorm.ErrRecordNotFound {
		return nil, NotFound("user %s not found", identifier)
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &user, nil
}
