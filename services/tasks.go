package services

import (
	"errors"
	"strings"
	"time"

	"github.com/lvt17/planex-be/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TaskInput is the payload for creating a task.
type TaskInput struct {
	Name       string
	Content    string
	Deadline   *time.Time
	Price      decimal.Decimal
	State      int
	ClientNum  string
	ClientMail string
	Noted      string
	ProjectID  *uint
	AssigneeID *uint
}

// TaskPatch is a partial update. Nil fields are left alone.
type TaskPatch struct {
	Name          *string
	Content       *string
	Deadline      *time.Time
	ClearDeadline bool
	Price         *decimal.Decimal
	State         *int
	IsDone        *bool
	ClientNum     *string
	ClientMail    *string
	Noted         *string
	ProjectID     *uint
	ClearProject  bool
}

// TaskView is a task with its derived progress.
type TaskView struct {
	models.Task
	Progress int `json:"progress"`
}

// TaskFilter narrows a task listing.
type TaskFilter struct {
	Status   string // pending | in_progress | done
	Deadline string // today | overdue
	Page     int
	PerPage  int
}

func (f *TaskFilter) normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PerPage < 1 {
		f.PerPage = 20
	}
	if f.PerPage > 100 {
		f.PerPage = 100
	}
}

// CreateTask creates a personal task owned by userID.
func CreateTask(db *gorm.DB, userID uint, in TaskInput) (*models.Task, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, Invalid("name is required")
	}
	if in.Price.IsNegative() {
		return nil, Invalid("price must not be negative")
	}
	if in.ProjectID != nil {
		var count int64
		if err := db.Model(&models.Project{}).Where("id = ? AND user_id = ?", *in.ProjectID, userID).Count(&count).Error; err != nil {
			return nil, err
		}
		if count == 0 {
			return nil, NotFound("project not found")
		}
	}
	task := &models.Task{
		UserID:     userID,
		ProjectID:  in.ProjectID,
		CreatorID:  &userID,
		Name:       name,
		Content:    in.Content,
		Deadline:   utcPtr(in.Deadline),
		Price:      in.Price.Round(2),
		State:      ClampProgress(in.State),
		ClientNum:  in.ClientNum,
		ClientMail: in.ClientMail,
		Noted:      in.Noted,
	}
	if err := db.Create(task).Error; err != nil {
		return nil, err
	}
	return task, nil
}

// LoadAccessibleTask returns the task if uid owns it, created it, is its
// assignee, or belongs to its team.
func LoadAccessibleTask(db *gorm.DB, taskID, uid uint) (*models.Task, error) {
	var task models.Task
	if err := db.First(&task, taskID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFound("task not found")
		}
		return nil, err
	}
	if canAccessTask(db, &task, uid) {
		return &task, nil
	}
	return nil, Forbidden("you do not have access to this task")
}

func canAccessTask(db *gorm.DB, task *models.Task, uid uint) bool {
	if task.UserID == uid {
		return true
	}
	if task.CreatorID != nil && *task.CreatorID == uid {
		return true
	}
	if task.AssigneeID != nil && *task.AssigneeID == uid {
		return true
	}
	if task.TeamID != nil {
		var count int64
		if err := db.Model(&models.TeamMembership{}).
			Where("team_id = ? AND user_id = ?", *task.TeamID, uid).
			Count(&count).Error; err == nil && count > 0 {
			return true
		}
	}
	return false
}

// SetTaskDone persists is_done. A false->true transition stamps completed_at
// (only if it was never set) and appends the income row; the conditional
// update makes concurrent completions race-free, so exactly one caller sees
// the transition. tx must be a transaction.
func SetTaskDone(tx *gorm.DB, task *models.Task, done bool, now time.Time) (bool, error) {
	if !done {
		if err := tx.Model(&models.Task{}).Where("id = ?", task.ID).Update("is_done", false).Error; err != nil {
			return false, err
		}
		task.IsDone = false
		return false, nil
	}

	ts := now.UTC()
	res := tx.Model(&models.Task{}).
		Where("id = ? AND is_done = ?", task.ID, false).
		Updates(map[string]interface{}{
			"is_done":      true,
			"completed_at": gorm.Expr("COALESCE(completed_at, ?)", ts),
		})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		task.IsDone = true
		return false, nil
	}

	task.IsDone = false
	ApplyCompletion(task, true, ts)
	if _, err := OnTaskCompleted(tx, task); err != nil {
		return false, err
	}
	return true, nil
}

// UpdateTask applies patch to task in one transaction and returns the
// reloaded task.
func UpdateTask(db *gorm.DB, task *models.Task, patch TaskPatch, now time.Time) (*models.Task, error) {
	updates := map[string]interface{}{}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, Invalid("name must not be empty")
		}
		updates["name"] = name
	}
	if patch.Content != nil {
		updates["content"] = *patch.Content
	}
	if patch.ClearDeadline {
		updates["deadline"] = nil
	} else if patch.Deadline != nil {
		updates["deadline"] = patch.Deadline.UTC()
	}
	if patch.Price != nil {
		if patch.Price.IsNegative() {
			return nil, Invalid("price must not be negative")
		}
		updates["price"] = patch.Price.Round(2)
	}
	if patch.State != nil {
		updates["state"] = ClampProgress(*patch.State)
	}
	if patch.ClientNum != nil {
		updates["client_num"] = *patch.ClientNum
	}
	if patch.ClientMail != nil {
		updates["client_mail"] = *patch.ClientMail
	}
	if patch.Noted != nil {
		updates["noted"] = *patch.Noted
	}
	if patch.ClearProject {
		updates["project_id"] = nil
	} else if patch.ProjectID != nil {
		if err := checkProjectForTask(db, task, *patch.ProjectID); err != nil {
			return nil, err
		}
		updates["project_id"] = *patch.ProjectID
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if len(updates) > 0 {
			if err := tx.Model(&models.Task{}).Where("id = ?", task.ID).Updates(updates).Error; err != nil {
				return err
			}
		}
		// with subtasks the stored state always follows them
		if patch.State != nil {
			if _, err := SyncStoredProgress(tx, task.ID); err != nil {
				return err
			}
		}
		if patch.IsDone != nil {
			// price may have changed above, the ledger uses the new one
			if p, ok := updates["price"].(decimal.Decimal); ok {
				task.Price = p
			}
			if n, ok := updates["name"].(string); ok {
				task.Name = n
			}
			if _, err := SetTaskDone(tx, task, *patch.IsDone, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var fresh models.Task
	if err := db.First(&fresh, task.ID).Error; err != nil {
		return nil, err
	}
	return &fresh, nil
}

func checkProjectForTask(db *gorm.DB, task *models.Task, projectID uint) error {
	q := db.Model(&models.Project{}).Where("id = ?", projectID)
	if task.TeamID != nil {
		q = q.Where("team_id = ?", *task.TeamID)
	} else {
		q = q.Where("user_id = ?", task.UserID)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return NotFound("project not found")
	}
	return nil
}

// DeleteTask removes a task. Only the owner, the creator or a leader of the
// task's team may delete it. Ledger rows stay; they are history.
func DeleteTask(db *gorm.DB, taskID, uid uint) error {
	task, err := LoadAccessibleTask(db, taskID, uid)
	if err != nil {
		return err
	}
	allowed := task.UserID == uid || (task.CreatorID != nil && *task.CreatorID == uid)
	if !allowed && task.TeamID != nil {
		if m, err := loadMembership(db, *task.TeamID, uid); err == nil && m.IsLeader() {
			allowed = true
		}
	}
	if !allowed {
		return Forbidden("only the owner can delete this task")
	}
	return db.Transaction(func(tx *gorm.DB) error {
		var subIDs []uint
		if err := tx.Model(&models.Subtask{}).Where("task_id = ?", task.ID).Pluck("id", &subIDs).Error; err != nil {
			return err
		}
		if len(subIDs) > 0 {
			if err := tx.Where("subtask_id IN ?", subIDs).Delete(&models.TaskComment{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("task_id = ?", task.ID).Delete(&models.TaskComment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("task_id = ?", task.ID).Delete(&models.Subtask{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Task{}, task.ID).Error
	})
}

// ListTasks returns the user's tasks with computed progress, ordered by
// deadline with undated tasks last.
func ListTasks(db *gorm.DB, userID uint, f TaskFilter, now time.Time, loc *time.Location) ([]TaskView, int64, error) {
	f.normalize()
	q := db.Model(&models.Task{}).Where("user_id = ?", userID)
	switch f.Status {
	case "pending":
		q = q.Where("is_done = ? AND state = 0", false)
	case "in_progress":
		q = q.Where("is_done = ? AND state > 0", false)
	case "done":
		q = q.Where("is_done = ?", true)
	case "":
	default:
		return nil, 0, Invalid("status must be pending, in_progress or done")
	}
	switch f.Deadline {
	case "today":
		local := now.In(loc)
		start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
		q = q.Where("deadline >= ? AND deadline < ?", start.UTC(), start.AddDate(0, 0, 1).UTC())
	case "overdue":
		q = q.Where("deadline < ? AND is_done = ?", now.UTC(), false)
	case "":
	default:
		return nil, 0, Invalid("deadline must be today or overdue")
	}

	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var tasks []models.Task
	err := q.Order("CASE WHEN deadline IS NULL THEN 1 ELSE 0 END, deadline ASC, id DESC").
		Offset((f.Page - 1) * f.PerPage).
		Limit(f.PerPage).
		Find(&tasks).Error
	if err != nil {
		return nil, 0, err
	}
	views, err := WithProgress(db, tasks)
	return views, total, err
}

// WithProgress attaches computed progress to a page of tasks using one
// grouped subtask query.
func WithProgress(db *gorm.DB, tasks []models.Task) ([]TaskView, error) {
	ids := make([]uint, 0, len(tasks))
	for _, t := range tasks {
		ids = append(ids, t.ID)
	}
	counts, err := SubtaskCounts(db, ids)
	if err != nil {
		return nil, err
	}
	views := make([]TaskView, 0, len(tasks))
	for _, t := range tasks {
		views = append(views, TaskView{Task: t, Progress: ProgressFromCounts(t.State, counts[t.ID])})
	}
	return views, nil
}

// TaskWithProgress loads subtasks and returns the view of one task.
func TaskWithProgress(db *gorm.DB, task *models.Task) (*TaskView, error) {
	views, err := WithProgress(db, []models.Task{*task})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// CreateTeamTask creates a task inside a team. When an assignee is given the
// task is owned by the assignee, otherwise by the creator. projectID, when
// set, must belong to the team and the creator must be a leader.
func CreateTeamTask(db *gorm.DB, teamID, creatorID uint, in TaskInput) (*models.Task, error) {
	member, err := RequireMembership(db, teamID, creatorID)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, Invalid("name is required")
	}
	if in.Price.IsNegative() {
		return nil, Invalid("price must not be negative")
	}
	if in.ProjectID != nil {
		if !member.IsLeader() {
			return nil, Forbidden("only the team owner or an admin can add project tasks")
		}
		var count int64
		if err := db.Model(&models.Project{}).Where("id = ? AND team_id = ?", *in.ProjectID, teamID).Count(&count).Error; err != nil {
			return nil, err
		}
		if count == 0 {
			return nil, NotFound("project not found in this team")
		}
	}
	owner := creatorID
	if in.AssigneeID != nil {
		if _, err := loadMembership(db, teamID, *in.AssigneeID); err != nil {
			return nil, Invalid("assignee is not a member of this team")
		}
		owner = *in.AssigneeID
	}

	task := &models.Task{
		UserID:     owner,
		TeamID:     &teamID,
		ProjectID:  in.ProjectID,
		CreatorID:  &creatorID,
		AssigneeID: in.AssigneeID,
		Name:       name,
		Content:    in.Content,
		Deadline:   utcPtr(in.Deadline),
		Price:      in.Price.Round(2),
		State:      ClampProgress(in.State),
		ClientNum:  in.ClientNum,
		ClientMail: in.ClientMail,
		Noted:      in.Noted,
	}
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(task).Error; err != nil {
			return err
		}
		if in.AssigneeID == nil || *in.AssigneeID == creatorID {
			return nil
		}
		var team models.Team
		if err := tx.Select("id", "name").First(&team, teamID).Error; err != nil {
			return err
		}
		taskID := task.ID
		_, err := Notify(tx, NotificationInput{
			UserID:     *in.AssigneeID,
			Type:       models.NotificationTaskAssigned,
			Title:      "New task assigned",
			Message:    "You were assigned \"" + task.Name + "\" in team " + team.Name + ".",
			ActionType: "view_task",
			ActionData: map[string]interface{}{"task_id": task.ID},
			TaskID:     &taskID,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

// ListTeamTasks returns every task of a team, newest first.
func ListTeamTasks(db *gorm.DB, teamID, uid uint) ([]TaskView, error) {
	if _, err := RequireMembership(db, teamID, uid); err != nil {
		return nil, err
	}
	var tasks []models.Task
	if err := db.Where("team_id = ?", teamID).Order("created_at DESC, id DESC").Find(&tasks).Error; err != nil {
		return nil, err
	}
	return WithProgress(db, tasks)
}

// MemberTasks lists the tasks a member owns inside the team. Leaders only.
func MemberTasks(db *gorm.DB, teamID, actorID, memberID uint) ([]TaskView, error) {
	if _, err := RequireLeader(db, teamID, actorID); err != nil {
		return nil, err
	}
	if _, err := loadMembership(db, teamID, memberID); err != nil {
		return nil, NotFound("member not found in this team")
	}
	var tasks []models.Task
	if err := db.Where("team_id = ? AND user_id = ?", teamID, memberID).
		Order("created_at DESC, id DESC").Find(&tasks).Error; err != nil {
		return nil, err
	}
	return WithProgress(db, tasks)
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
