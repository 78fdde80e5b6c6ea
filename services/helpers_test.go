package services

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/lvt17/planex-be/database"
	"github.com/lvt17/planex-be/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var testLoc = time.FixedZone("ICT", 7*3600)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.OpenSQLite(fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func mkUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	u := &models.User{Username: username, Email: username + "@example.com", Password: "x"}
	require.NoError(t, db.Create(u).Error)
	return u
}

func mkTask(t *testing.T, db *gorm.DB, owner uint, name string, price string) *models.Task {
	t.Helper()
	task, err := CreateTask(db, owner, TaskInput{Name: name, Price: decimal.RequireFromString(price)})
	require.NoError(t, err)
	return task
}

func addMember(t *testing.T, db *gorm.DB, teamID, userID uint, role string, joined time.Time) {
	t.Helper()
	require.NoError(t, db.Create(&models.TeamMembership{TeamID: teamID, UserID: userID, Role: role, JoinedAt: joined}).Error)
}
