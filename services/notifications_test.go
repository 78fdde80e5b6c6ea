package services

import (
	"testing"
	"time"

	"github.com/lvt17/planex-be/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDaysUntil(t *testing.T) {
	now := time.Date(2026, 6, 10, 16, 30, 0, 0, time.UTC) // 23:30 ICT
	assert.Equal(t, 0, DaysUntil(now, now.Add(20*time.Minute), testLoc))
	assert.Equal(t, 1, DaysUntil(now, now.Add(time.Hour), testLoc))
	assert.Equal(t, -1, DaysUntil(now, now.Add(-24*time.Hour), testLoc))
}

func TestScanAndEmit_DeadlineDedupOnlyWhileUnread(t *testing.T) {
	db := newTestDB(t)
	u := mkUser(t, db, "scanner")
	now := time.Date(2026, 6, 10, 3, 0, 0, 0, time.UTC)
	deadline := now.Add(2 * time.Hour)

	task, err := CreateTask(db, u.ID, TaskInput{Name: "ship it", Deadline: &deadline, State: 90})
	require.NoError(t, err)
	require.NoError(t, db.Model(&models.Task{}).Where("id = ?", task.ID).Update("created_at", now.Add(-time.Hour)).Error)

	assert.Equal(t, 1, ScanAndEmit(db, u.ID, now, testLoc))
	assert.Equal(t, 0, ScanAndEmit(db, u.ID, now.Add(time.Minute), testLoc))

	n, err := MarkAllNotificationsRead(db, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	assert.Equal(t, 1, ScanAndEmit(db, u.ID, now.Add(2*time.Minute), testLoc))
}

func TestScanAndEmit_StaleTask(t *testing.T) {
	db := newTestDB(t)
	u := mkUser(t, db, "slowpoke")
	now := time.Date(2026, 6, 10, 3, 0, 0, 0, time.UTC)

	stale := mkTask(t, db, u.ID, "old and slow", "0")
	fresh := mkTask(t, db, u.ID, "old but nearly done", "0")
	require.NoError(t, db.Model(&models.Task{}).Where("id IN ?", []uint{stale.ID, fresh.ID}).
		Update("created_at", now.Add(-72*time.Hour)).Error)
	require.NoError(t, db.Model(&models.Task{}).Where("id = ?", fresh.ID).Update("state", 80).Error)

	assert.Equal(t, 1, ScanAndEmit(db, u.ID, now, testLoc))
	assert.Equal(t, 0, ScanAndEmit(db, u.ID, now.Add(time.Hour), testLoc))

	var rows []models.Notification
	require.NoError(t, db.Where("user_id = ?", u.ID).Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, models.NotificationTaskStale, rows[0].Type)
	require.NotNil(t, rows[0].TaskID)
	assert.Equal(t, stale.ID, *rows[0].TaskID)
}

func TestListNotifications_UnreadCountAndMarkRead(t *testing.T) {
	db := newTestDB(t)
	u := mkUser(t, db, "reader")
	other := mkUser(t, db, "nosy")

	n1, err := Notify(db, NotificationInput{UserID: u.ID, Type: models.NotificationTaskAssigned, Title: "a"})
	require.NoError(t, err)
	_, err = Notify(db, NotificationInput{UserID: u.ID, Type: models.NotificationTaskAssigned, Title: "b"})
	require.NoError(t, err)

	list, err := ListNotifications(db, u.ID, 50, time.Now(), testLoc)
	require.NoError(t, err)
	assert.Len(t, list.Notifications, 2)
	assert.Equal(t, int64(2), list.UnreadCount)

	assert.Error(t, MarkNotificationRead(db, other.ID, n1.ID))
	require.NoError(t, MarkNotificationRead(db, u.ID, n1.ID))
	// idempotent
	require.NoError(t, MarkNotificationRead(db, u.ID, n1.ID))

	list, err = ListNotifications(db, u.ID, 50, time.Now(), testLoc)
	require.NoError(t, err)
	assert.Equal(t, int64(1), list.UnreadCount)
}
