package services

import (
	"time"

	"github.com/lvt17/planex-be/models"

	"gorm.io/gorm"
)

// SubtaskCount is the completed/total pair for one task.
type SubtaskCount struct {
	TaskID    uint
	Total     int
	Completed int
}

// ClampProgress bounds a manually set progress value to [0,100].
func ClampProgress(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// ProgressFromCounts derives progress from subtask counts, falling back to
// the stored manual value when the task has no subtasks.
func ProgressFromCounts(state int, c SubtaskCount) int {
	if c.Total > 0 {
		return 100 * c.Completed / c.Total
	}
	return ClampProgress(state)
}

// ComputeProgress returns the progress of a task whose Subtasks are loaded.
func ComputeProgress(task *models.Task) int {
	c := SubtaskCount{TaskID: task.ID, Total: len(task.Subtasks)}
	for _, s := range task.Subtasks {
		if s.IsCompleted {
			c.Completed++
		}
	}
	return ProgressFromCounts(task.State, c)
}

// ApplyCompletion sets IsDone and stamps CompletedAt the first time the task
// becomes done. Re-opening keeps CompletedAt. It reports whether this call was
// a false->true transition.
func ApplyCompletion(task *models.Task, done bool, now time.Time) bool {
	transition := done && !task.IsDone
	task.IsDone = done
	if transition && task.CompletedAt == nil {
		t := now.UTC()
		task.CompletedAt = &t
	}
	return transition
}

// SubtaskCounts loads subtask counts for the given tasks in one query.
func SubtaskCounts(db *gorm.DB, taskIDs []uint) (map[uint]SubtaskCount, error) {
	out := make(map[uint]SubtaskCount, len(taskIDs))
	if len(taskIDs) == 0 {
		return out, nil
	}
	var rows []SubtaskCount
	err := db.Model(&models.Subtask{}).
		Select("task_id, COUNT(*) AS total, SUM(CASE WHEN is_completed THEN 1 ELSE 0 END) AS completed").
		Where("task_id IN ?", taskIDs).
		Group("task_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		out[r.TaskID] = r
	}
	return out, nil
}

// SyncStoredProgress rewrites the stored state of a task from its subtasks so
// that list queries filtering on state stay close to the computed value.
func SyncStoredProgress(db *gorm.DB, taskID uint) (int, error) {
	counts, err := SubtaskCounts(db, []uint{taskID})
	if err != nil {
		return 0, err
	}
	c, ok := counts[taskID]
	if !ok {
		var task models.Task
		if err := db.Select("id", "state").First(&task, taskID).Error; err != nil {
			return 0, err
		}
		return ClampProgress(task.State), nil
	}
	progress := ProgressFromCounts(0, c)
	if err := db.Model(&models.Task{}).Where("id = ?", taskID).Update("state", progress).Error; err != nil {
		return 0, err
	}
	return progress, nil
}
