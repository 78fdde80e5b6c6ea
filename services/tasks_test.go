package services

import (
	"errors"
	"testing"
	"time"

	"github.com/lvt17/planex-be/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func incomeRows(t *testing.T, db *gorm.DB, taskID uint) []models.TotalIncome {
	t.Helper()
	var rows []models.TotalIncome
	require.NoError(t, db.Where("task_id = ?", taskID).Order("id ASC").Find(&rows).Error)
	return rows
}

func TestCreateTask_Validation(t *testing.T) {
	db := newTestDB(t)
	u := mkUser(t, db, "bob")

	_, err := CreateTask(db, u.ID, TaskInput{Name: "   "})
	assert.True(t, errors.Is(err, ErrValidation))

	_, err = CreateTask(db, u.ID, TaskInput{Name: "x", Price: decimal.NewFromInt(-1)})
	assert.True(t, errors.Is(err, ErrValidation))

	task, err := CreateTask(db, u.ID, TaskInput{Name: "ok", State: 180})
	require.NoError(t, err)
	assert.Equal(t, 100, task.State)
}

func TestSetTaskDone_WritesIncomeOnce(t *testing.T) {
	db := newTestDB(t)
	u := mkUser(t, db, "carol")
	task := mkTask(t, db, u.ID, "logo design", "150.50")
	now := time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

	done := true
	_, err := UpdateTask(db, task, TaskPatch{IsDone: &done}, now)
	require.NoError(t, err)
	_, err = UpdateTask(db, task, TaskPatch{IsDone: &done}, now.Add(time.Hour))
	require.NoError(t, err)

	rows := incomeRows(t, db, task.ID)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].Total.Equal(decimal.RequireFromString("150.50")))
	assert.Equal(t, models.IncomeSourceTask, rows[0].SourceType)
	assert.Equal(t, u.ID, rows[0].UserID)

	var stored models.Task
	require.NoError(t, db.First(&stored, task.ID).Error)
	assert.True(t, stored.IsDone)
	require.NotNil(t, stored.CompletedAt)
	assert.True(t, stored.CompletedAt.Equal(now))
}

func TestSetTaskDone_ReopenKeepsCompletedAtAndLedger(t *testing.T) {
	db := newTestDB(t)
	u := mkUser(t, db, "dave")
	task := mkTask(t, db, u.ID, "landing page", "80")
	first := time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

	done, open := true, false
	_, err := UpdateTask(db, task, TaskPatch{IsDone: &done}, first)
	require.NoError(t, err)
	_, err = UpdateTask(db, task, TaskPatch{IsDone: &open}, first.Add(time.Hour))
	require.NoError(t, err)

	var stored models.Task
	require.NoError(t, db.First(&stored, task.ID).Error)
	assert.False(t, stored.IsDone)
	require.NotNil(t, stored.CompletedAt)
	assert.True(t, stored.CompletedAt.Equal(first))

	// completing again is a new transition and earns again
	_, err = UpdateTask(db, &stored, TaskPatch{IsDone: &done}, first.Add(2*time.Hour))
	require.NoError(t, err)
	require.NoError(t, db.First(&stored, task.ID).Error)
	assert.True(t, stored.CompletedAt.Equal(first))
	assert.Len(t, incomeRows(t, db, task.ID), 2)
}

func TestUpdateTask_PriceEditAppliesToSameCompletion(t *testing.T) {
	db := newTestDB(t)
	u := mkUser(t, db, "erin")
	task := mkTask(t, db, u.ID, "consulting", "10")

	price := decimal.RequireFromString("99.99")
	done := true
	_, err := UpdateTask(db, task, TaskPatch{Price: &price, IsDone: &done}, time.Now())
	require.NoError(t, err)

	rows := incomeRows(t, db, task.ID)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].Total.Equal(price))
}

func TestSetTaskDone_FreeTaskHasNoIncome(t *testing.T) {
	db := newTestDB(t)
	u := mkUser(t, db, "frank")
	task := mkTask(t, db, u.ID, "chores", "0")

	done := true
	_, err := UpdateTask(db, task, TaskPatch{IsDone: &done}, time.Now())
	require.NoError(t, err)
	assert.Empty(t, incomeRows(t, db, task.ID))
}

func TestUpdateTask_ClampsState(t *testing.T) {
	db := newTestDB(t)
	u := mkUser(t, db, "gina")
	task := mkTask(t, db, u.ID, "t", "0")

	neg := -5
	fresh, err := UpdateTask(db, task, TaskPatch{State: &neg}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 0, fresh.State)
}

func TestLoadAccessibleTask(t *testing.T) {
	db := newTestDB(t)
	owner := mkUser(t, db, "owner")
	other := mkUser(t, db, "stranger")
	task := mkTask(t, db, owner.ID, "private", "0")

	_, err := LoadAccessibleTask(db, task.ID, owner.ID)
	require.NoError(t, err)

	_, err = LoadAccessibleTask(db, task.ID, other.ID)
	assert.True(t, errors.Is(err, ErrForbidden))

	_, err = LoadAccessibleTask(db, 9999, owner.ID)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestAddIncome_RejectsNonPositive(t *testing.T) {
	db := newTestDB(t)
	u := mkUser(t, db, "henry")

	_, err := AddIncome(db, u.ID, decimal.Zero, "tip", "manual", "")
	assert.True(t, errors.Is(err, ErrValidation))

	_, err = AddIncome(db, u.ID, decimal.NewFromInt(5), "tip", "gift", "")
	assert.True(t, errors.Is(err, ErrValidation))

	row, err := AddIncome(db, u.ID, decimal.RequireFromString("12.345"), "tip", "", "note")
	require.NoError(t, err)
	assert.Equal(t, models.IncomeSourceManual, row.SourceType)
	assert.True(t, row.Total.Equal(decimal.RequireFromString("12.35")))
}

func TestComputeIncomeStats_BucketsByLocalDay(t *testing.T) {
	db := newTestDB(t)
	u := mkUser(t, db, "iris")
	now := time.Date(2026, 6, 10, 12, 0, 0, 0, time.UTC)

	for _, r := range []models.TotalIncome{
		// 2026-06-09 18:00 UTC is 2026-06-10 01:00 in ICT
		{UserID: u.ID, Total: decimal.NewFromInt(10), SourceType: models.IncomeSourceManual, CreatedAt: time.Date(2026, 6, 9, 18, 0, 0, 0, time.UTC)},
		{UserID: u.ID, Total: decimal.NewFromInt(20), SourceType: models.IncomeSourceTask, CreatedAt: time.Date(2026, 6, 10, 3, 0, 0, 0, time.UTC)},
		{UserID: u.ID, Total: decimal.NewFromInt(30), SourceType: models.IncomeSourceSale, CreatedAt: time.Date(2026, 6, 8, 3, 0, 0, 0, time.UTC)},
		// outside the week window
		{UserID: u.ID, Total: decimal.NewFromInt(1000), SourceType: models.IncomeSourceManual, CreatedAt: time.Date(2026, 5, 1, 3, 0, 0, 0, time.UTC)},
	} {
		row := r
		require.NoError(t, db.Create(&row).Error)
	}

	stats, err := ComputeIncomeStats(db, u.ID, "week", now, testLoc)
	require.NoError(t, err)
	assert.Equal(t, "week", stats.Range)
	assert.Equal(t, 3, stats.Count)
	assert.Equal(t, 1, stats.TaskCount)
	assert.True(t, stats.Total.Equal(decimal.NewFromInt(60)))
	assert.True(t, stats.Average.Equal(decimal.NewFromInt(20)))
	require.Len(t, stats.DailyStats, 2)
	assert.Equal(t, "2026-06-08", stats.DailyStats[0].Date)
	assert.Equal(t, "2026-06-10", stats.DailyStats[1].Date)
	assert.Equal(t, 2, stats.DailyStats[1].Count)
}

func TestRangeStart_DefaultsToMonth(t *testing.T) {
	now := time.Date(2026, 6, 10, 0, 0, 0, 0, time.UTC)
	rng, start := RangeStart("decade", now)
	assert.Equal(t, "month", rng)
	assert.Equal(t, now.AddDate(0, 0, -30), start)
}

func TestUpdateTask_StateFollowsSubtasks(t *testing.T) {
	db := newTestDB(t)
	u := mkUser(t, db, "jules")
	task := mkTask(t, db, u.ID, "checklist", "0")

	first, err := CreateSubtask(db, task, "draft")
	require.NoError(t, err)
	_, err = CreateSubtask(db, task, "review")
	require.NoError(t, err)
	completed := true
	_, _, err = UpdateSubtask(db, first, nil, &completed)
	require.NoError(t, err)

	zero := 0
	fresh, err := UpdateTask(db, task, TaskPatch{State: &zero}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 50, fresh.State)

	now := time.Now()
	_, pending, err := ListTasks(db, u.ID, TaskFilter{Status: "pending"}, now, testLoc)
	require.NoError(t, err)
	assert.Zero(t, pending)
	_, inProgress, err := ListTasks(db, u.ID, TaskFilter{Status: "in_progress"}, now, testLoc)
	require.NoError(t, err)
	assert.Equal(t, int64(1), inProgress)
}

func TestComputeProgress_IgnoresConflictingStoredState(t *testing.T) {
	db := newTestDB(t)
	u := mkUser(t, db, "kira")
	task := mkTask(t, db, u.ID, "mixed", "0")
	sub, err := CreateSubtask(db, task, "only step")
	require.NoError(t, err)
	completed := true
	_, _, err = UpdateSubtask(db, sub, nil, &completed)
	require.NoError(t, err)

	require.NoError(t, db.Model(&models.Task{}).Where("id = ?", task.ID).Update("state", 7).Error)

	var loaded models.Task
	require.NoError(t, db.Preload("Subtasks").First(&loaded, task.ID).Error)
	assert.Equal(t, 7, loaded.State)
	assert.Equal(t, 100, ComputeProgress(&loaded))
}

func TestUpdateTask_PriceEditAfterCompletionAddsNoIncome(t *testing.T) {
	db := newTestDB(t)
	u := mkUser(t, db, "lena")
	task := mkTask(t, db, u.ID, "brand kit", "100")
	now := time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

	done := true
	_, err := UpdateTask(db, task, TaskPatch{IsDone: &done}, now)
	require.NoError(t, err)

	var stored models.Task
	require.NoError(t, db.First(&stored, task.ID).Error)
	price := decimal.NewFromInt(500)
	fresh, err := UpdateTask(db, &stored, TaskPatch{Price: &price}, now.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, fresh.Price.Equal(price))

	rows := incomeRows(t, db, task.ID)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].Total.Equal(decimal.NewFromInt(100)))
}
