package database

import (
	"strings"

	"github.com/lvt17/planex-be/models"

	"gorm.io/gorm"
)

// Models lists every persisted entity in dependency order.
func Models() []interface{} {
	return []interface{}{
		&models.User{},
		&models.RefreshToken{},
		&models.RevokedToken{},
		&models.Team{},
		&models.TeamMembership{},
		&models.TeamInvite{},
		&models.Project{},
		&models.Task{},
		&models.Subtask{},
		&models.TaskComment{},
		&models.ChatMessage{},
		&models.MemberRating{},
		&models.Notification{},
		&models.BadgeDefinition{},
		&models.UserBadgeAssignment{},
		&models.TotalIncome{},
		&models.Whiteboard{},
		&models.Product{},
		&models.Sale{},
	}
}

// Migrate runs AutoMigrate for all models inside one transaction where the
// driver supports transactional DDL.
func Migrate(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		return tx.AutoMigrate(Models()...)
	})
}

// PromotePlatformAdmins flags the users whose email is in emails as platform
// admins. Emails are compared case-insensitively; unknown emails are ignored.
func PromotePlatformAdmins(db *gorm.DB, emails []string) (int64, error) {
	if len(emails) == 0 {
		return 0, nil
	}
	lowered := make([]string, 0, len(emails))
	for _, e := range emails {
		lowered = append(lowered, strings.ToLower(strings.TrimSpace(e)))
	}
	res := db.Model(&models.User{}).
		Where("LOWER(email) IN ? AND is_platform_admin = ?", lowered, false).
		Update("is_platform_admin", true)
	return res.RowsAffected, res.Error
}
