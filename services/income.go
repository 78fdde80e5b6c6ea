package services

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/lvt17/planex-be/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OnTaskCompleted appends the ledger row for a task that just became done.
// Tasks without a positive price produce no row. Call it inside the same
// transaction that persisted the transition.
func OnTaskCompleted(tx *gorm.DB, task *models.Task) (*models.TotalIncome, error) {
	if !task.Price.IsPositive() {
		return nil, nil
	}
	taskID := task.ID
	row := &models.TotalIncome{
		UserID:     task.UserID,
		TaskID:     &taskID,
		Total:      task.Price,
		FromSource: task.Name,
		SourceType: models.IncomeSourceTask,
		Noted:      fmt.Sprintf("Task #%d completed", task.ID),
	}
	if err := tx.Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

// AddIncome records income that is not tied to a task.
func AddIncome(db *gorm.DB, userID uint, amount decimal.Decimal, name, source, note string) (*models.TotalIncome, error) {
	if !amount.IsPositive() {
		return nil, Invalid("amount must be greater than 0")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, Invalid("name is required")
	}
	source = strings.ToLower(strings.TrimSpace(source))
	switch source {
	case "":
		source = models.IncomeSourceManual
	case models.IncomeSourceManual, models.IncomeSourceSale:
	default:
		return nil, Invalid("source must be manual or sale")
	}
	row := &models.TotalIncome{
		UserID:     userID,
		Total:      amount.Round(2),
		FromSource: name,
		SourceType: source,
		Noted:      note,
	}
	if err := db.Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

// DailyIncome is one calendar day of ledger totals.
type DailyIncome struct {
	Date  string          `json:"date"`
	Total decimal.Decimal `json:"total"`
	Count int             `json:"count"`
}

// IncomeStats summarises ledger rows inside a trailing window.
type IncomeStats struct {
	Range      string          `json:"range"`
	Total      decimal.Decimal `json:"total_income"`
	Count      int             `json:"entry_count"`
	TaskCount  int             `json:"task_count"`
	Average    decimal.Decimal `json:"average_per_entry"`
	DailyStats []DailyIncome   `json:"daily_stats"`
}

// RangeStart maps week|month|year to the start of a trailing 7/30/365 day window.
// Unknown ranges fall back to month.
func RangeStart(rng string, now time.Time) (string, time.Time) {
	switch rng {
	case "week":
		return rng, now.AddDate(0, 0, -7)
	case "year":
		return rng, now.AddDate(0, 0, -365)
	default:
		return "month", now.AddDate(0, 0, -30)
	}
}

// ComputeIncomeStats aggregates the user's ledger since the range start.
// Days are bucketed in loc.
func ComputeIncomeStats(db *gorm.DB, userID uint, rng string, now time.Time, loc *time.Location) (*IncomeStats, error) {
	rng, start := RangeStart(rng, now)
	var rows []models.TotalIncome
	if err := db.Where("user_id = ? AND created_at >= ?", userID, start.UTC()).
		Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, err
	}

	stats := &IncomeStats{Range: rng, Total: decimal.Zero, Average: decimal.Zero, DailyStats: []DailyIncome{}}
	byDay := map[string]*DailyIncome{}
	for _, r := range rows {
		stats.Total = stats.Total.Add(r.Total)
		stats.Count++
		if r.SourceType == models.IncomeSourceTask {
			stats.TaskCount++
		}
		day := r.CreatedAt.In(loc).Format("2006-01-02")
		d, ok := byDay[day]
		if !ok {
			d = &DailyIncome{Date: day, Total: decimal.Zero}
			byDay[day] = d
		}
		d.Total = d.Total.Add(r.Total)
		d.Count++
	}
	if stats.Count > 0 {
		stats.Average = stats.Total.Div(decimal.NewFromInt(int64(stats.Count))).Round(2)
	}
	for _, d := range byDay {
		stats.DailyStats = append(stats.DailyStats, *d)
	}
	sort.Slice(stats.DailyStats, func(i, j int) bool { return stats.DailyStats[i].Date < stats.DailyStats[j].Date })
	return stats, nil
}

// TaskIncome is the ledger view of one task.
type TaskIncome struct {
	TaskID   uint                 `json:"task_id"`
	TaskName string               `json:"task_name"`
	Price    decimal.Decimal      `json:"price"`
	IsDone   bool                 `json:"is_done"`
	Earned   decimal.Decimal      `json:"earned"`
	Entries  []models.TotalIncome `json:"entries"`
}

// IncomeByTask returns what a task has contributed to uid's ledger.
func IncomeByTask(db *gorm.DB, taskID, uid uint) (*TaskIncome, error) {
	task, err := LoadAccessibleTask(db, taskID, uid)
	if err != nil {
		return nil, err
	}
	out := &TaskIncome{TaskID: task.ID, TaskName: task.Name, Price: task.Price, IsDone: task.IsDone, Earned: decimal.Zero, Entries: []models.TotalIncome{}}
	if err := db.Where("task_id = ? AND user_id = ?", task.ID, uid).Order("created_at ASC, id ASC").Find(&out.Entries).Error; err != nil {
		return nil, err
	}
	for _, e := range out.Entries {
		out.Earned = out.Earned.Add(e.Total)
	}
	return out, nil
}

// ListIncomeEntries pages through the ledger newest first.
func ListIncomeEntries(db *gorm.DB, uid uint, page, perPage int) ([]models.TotalIncome, int64, error) {
	f := TaskFilter{Page: page, PerPage: perPage}
	f.normalize()
	var total int64
	q := db.Model(&models.TotalIncome{}).Where("user_id = ?", uid).Session(&gorm.Session{})
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	rows := []models.TotalIncome{}
	err := q.Order("created_at DESC, id DESC").Offset((f.Page - 1) * f.PerPage).Limit(f.PerPage).Find(&rows).Error
	return rows, total, err
}
