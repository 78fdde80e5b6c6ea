package services

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/lvt17/planex-be/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LeaderboardEntry is one member's rating summary.
type LeaderboardEntry struct {
	UserID      uint    `json:"user_id"`
	Username    string  `json:"username"`
	FullName    string  `json:"full_name"`
	AvatarURL   *string `json:"avatar_url"`
	Role        string  `json:"role"`
	AvgScore    float64 `json:"avg_score"`
	RatingCount int64   `json:"rating_count"`
	RankColor   string  `json:"rank_color"`
}

// RatingColor maps an average score to its rank colour.
func RatingColor(avg float64) string {
	switch {
	case avg >= 4.5:
		return "gold"
	case avg >= 3.5:
		return "green"
	case avg >= 2.5:
		return "yellow"
	case avg > 0:
		return "red"
	default:
		return "gray"
	}
}

// RateMember stores (or replaces) rater's score for member and notifies the member.
func RateMember(db *gorm.DB, teamID, raterID, memberID uint, score int, comment string, now time.Time) (*models.MemberRating, error) {
	if _, err := RequireLeader(db, teamID, raterID); err != nil {
		return nil, err
	}
	if memberID == raterID {
		return nil, Invalid("you cannot rate yourself")
	}
	if score < 1 || score > 5 {
		return nil, Invalid("score must be between 1 and 5")
	}
	if _, err := loadMembership(db, teamID, memberID); err != nil {
		return nil, NotFound("member not found in this team")
	}
	team, err := loadTeam(db, teamID)
	if err != nil {
		return nil, err
	}

	rating := &models.MemberRating{
		TeamID:    teamID,
		MemberID:  memberID,
		RaterID:   raterID,
		Score:     score,
		Comment:   strings.TrimSpace(comment),
		CreatedAt: now.UTC(),
		UpdatedAt: now.UTC(),
	}
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "team_id"}, {Name: "member_id"}, {Name: "rater_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"score", "comment", "updated_at"}),
		}).Create(rating).Error; err != nil {
			return err
		}
		_, err := Notify(tx, NotificationInput{
			UserID:     memberID,
			Type:       models.NotificationMemberRated,
			Title:      "You received a rating",
			Message:    fmt.Sprintf("A leader of team %s rated you %d/5.", team.Name, score),
			ActionType: "view_leaderboard",
			ActionData: map[string]interface{}{"team_id": teamID},
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return rating, nil
}

// Leaderboard ranks every member by average score, best first. Members
// without ratings are listed with zero and gray.
func Leaderboard(db *gorm.DB, teamID, uid uint) ([]LeaderboardEntry, error) {
	if _, err := RequireMembership(db, teamID, uid); err != nil {
		return nil, err
	}
	var aggregates []struct {
		MemberID uint
		Avg      float64
		Cnt      int64
	}
	if err := db.Model(&models.MemberRating{}).
		Select("member_id, AVG(score) AS avg, COUNT(*) AS cnt").
		Where("team_id = ?", teamID).
		Group("member_id").
		Scan(&aggregates).Error; err != nil {
		return nil, err
	}
	byMember := make(map[uint]int, len(aggregates))
	for i, a := range aggregates {
		byMember[a.MemberID] = i
	}

	var memberships []models.TeamMembership
	if err := db.Preload("User").Where("team_id = ?", teamID).Order("joined_at ASC, id ASC").Find(&memberships).Error; err != nil {
		return nil, err
	}
	out := make([]LeaderboardEntry, 0, len(memberships))
	for _, m := range memberships {
		if m.User == nil {
			continue
		}
		e := LeaderboardEntry{
			UserID:    m.UserID,
			Username:  m.User.Username,
			FullName:  m.User.FullName,
			AvatarURL: m.User.AvatarURL,
			Role:      m.Role,
		}
		if i, ok := byMember[m.UserID]; ok {
			e.AvgScore = math.Round(aggregates[i].Avg*10) / 10
			e.RatingCount = aggregates[i].Cnt
		}
		e.RankColor = RatingColor(e.AvgScore)
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].AvgScore != out[j].AvgScore {
			return out[i].AvgScore > out[j].AvgScore
		}
		return out[i].RatingCount > out[j].RatingCount
	})
	return out, nil
}
