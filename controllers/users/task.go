package users

import (
	"net/http"
	"strings"
	"time"

	"github.com/lvt17/planex-be/config"
	"github.com/lvt17/planex-be/database"
	"github.com/lvt17/planex-be/middleware"
	"github.com/lvt17/planex-be/services"
	"github.com/lvt17/planex-be/utils"

	"github.com/shopspring/decimal"
)

type TaskRequest struct {
	Name       string          `json:"name" validate:"required,max=200"`
	Content    string          `json:"content"`
	Deadline   *time.Time      `json:"deadline"`
	Price      decimal.Decimal `json:"price"`
	State      int             `json:"state"`
	ClientNum  string          `json:"client_num" validate:"max=50"`
	ClientMail string          `json:"client_mail" validate:"max=120"`
	Noted      string          `json:"noted"`
	ProjectID  *uint           `json:"project_id"`
	AssigneeID *uint           `json:"assignee_id"`
}

func (req TaskRequest) input() services.TaskInput {
	return services.TaskInput{
		Name:       req.Name,
		Content:    req.Content,
		Deadline:   req.Deadline,
		Price:      req.Price,
		State:      req.State,
		ClientNum:  strings.TrimSpace(req.ClientNum),
		ClientMail: strings.TrimSpace(req.ClientMail),
		Noted:      req.Noted,
		ProjectID:  req.ProjectID,
		AssigneeID: req.AssigneeID,
	}
}

type UpdateTaskRequest struct {
	Name          *string          `json:"name" validate:"max=200"`
	Content       *string          `json:"content"`
	Deadline      *time.Time       `json:"deadline"`
	ClearDeadline bool             `json:"clear_deadline"`
	Price         *decimal.Decimal `json:"price"`
	State         *int             `json:"state"`
	IsDone        *bool            `json:"is_done"`
	ClientNum     *string          `json:"client_num" validate:"max=50"`
	ClientMail    *string          `json:"client_mail" validate:"max=120"`
	Noted         *string          `json:"noted"`
	ProjectID     *uint            `json:"project_id"`
	ClearProject  bool             `json:"clear_project"`
}

// GET /v1/tasks?status=&deadline=&page=&per_page=
func ListTasksHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := utils.MustUserID(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	f := services.TaskFilter{
		Status:   q.Get("status"),
		Deadline: q.Get("deadline"),
		Page:     utils.QueryInt(r, "page", 1),
		PerPage:  utils.QueryInt(r, "per_page", 20),
	}
	tasks, total, err := services.ListTasks(database.DB, uid, f, time.Now(), config.Get().Location)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Successfully",
		Data: map[string]interface{}{
			"tasks": tasks,
			"total": total,
			"page":  f.Page,
		},
	})
}

// POST /v1/tasks
func CreateTaskHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := utils.MustUserID(w, r)
	if !ok {
		return
	}
	var req TaskRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}
	task, err := services.CreateTask(database.DB, uid, req.input())
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	view, err := services.TaskWithProgress(database.DB, task)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, utils.APIResponse{Success: true, Message: "Task created", Data: view})
}

// GET /v1/tasks/{id}
func GetTaskHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := utils.MustUserID(w, r)
	if !ok {
		return
	}
	id, ok := utils.PathUint(w, r, "id")
	if !ok {
		return
	}
	task, err := services.LoadAccessibleTask(database.DB, id, uid)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	view, err := services.TaskWithProgress(database.DB, task)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: view})
}

// PUT /v1/tasks/{id}
func UpdateTaskHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := utils.MustUserID(w, r)
	if !ok {
		return
	}
	id, ok := utils.PathUint(w, r, "id")
	if !ok {
		return
	}
	var req UpdateTaskRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}
	task, err := services.LoadAccessibleTask(database.DB, id, uid)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	patch := services.TaskPatch{
		Name:          req.Name,
		Content:       req.Content,
		Deadline:      req.Deadline,
		ClearDeadline: req.ClearDeadline,
		Price:         req.Price,
		State:         req.State,
		IsDone:        req.IsDone,
		ClientNum:     req.ClientNum,
		ClientMail:    req.ClientMail,
		Noted:         req.Noted,
		ProjectID:     req.ProjectID,
		ClearProject:  req.ClearProject,
	}
	task, err = services.UpdateTask(database.DB, task, patch, time.Now())
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	view, err := services.TaskWithProgress(database.DB, task)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Task updated", Data: view})
}

// DELETE /v1/tasks/{id}
func DeleteTaskHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := utils.MustUserID(w, r)
	if !ok {
		return
	}
	id, ok := utils.PathUint(w, r, "id")
	if !ok {
		return
	}
	if err := services.DeleteTask(database.DB, id, uid); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Task deleted"})
}
