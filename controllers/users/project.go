package users

import (
	"net/http"
	"time"

	"github.com/lvt17/planex-be/database"
	"github.com/lvt17/planex-be/middleware"
	"github.com/lvt17/planex-be/services"
	"github.com/lvt17/planex-be/utils"

	"github.com/shopspring/decimal"
)

type ProjectRequest struct {
	Name        string          `json:"name" validate:"required,max=200"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Deadline    *time.Time      `json:"deadline"`
}

func (req ProjectRequest) input() services.ProjectInput {
	return services.ProjectInput{Name: req.Name, Description: req.Description, Price: req.Price, Deadline: req.Deadline}
}

type UpdateProjectRequest struct {
	Name        *string          `json:"name" validate:"max=200"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Deadline    *time.Time       `json:"deadline"`
	IsCompleted *bool            `json:"is_completed"`
}

// GET /v1/projects
func ListProjectsHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := utils.MustUserID(w, r)
	if !ok {
		return
	}
	projects, err := services.ListProjects(database.DB, uid)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: projects})
}

// POST /v1/projects
func CreateProjectHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := utils.MustUserID(w, r)
	if !ok {
		return
	}
	var req ProjectRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}
	p, err := services.CreateProject(database.DB, uid, req.input())
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, utils.APIResponse{Success: true, Message: "Project created", Data: p})
}

// GET /v1/projects/{id}
func GetProjectHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := utils.MustUserID(w, r)
	if !ok {
		return
	}
	id, ok := utils.PathUint(w, r, "id")
	if !ok {
		return
	}
	p, err := services.LoadOwnProject(database.DB, id, uid)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: p})
}

// PUT /v1/projects/{id}
func UpdateProjectHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := utils.MustUserID(w, r)
	if !ok {
		return
	}
	id, ok := utils.PathUint(w, r, "id")
	if !ok {
		return
	}
	var req UpdateProjectRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}
	p, err := services.LoadOwnProject(database.DB, id, uid)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	p, err = services.UpdateProject(database.DB, p, services.ProjectPatch{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Deadline:    req.Deadline,
		IsCompleted: req.IsCompleted,
	}, time.Now())
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Project updated", Data: p})
}

// DELETE /v1/projects/{id}
func DeleteProjectHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := utils.MustUserID(w, r)
	if !ok {
		return
	}
	id, ok := utils.PathUint(w, r, "id")
	if !ok {
		return
	}
	p, err := services.LoadOwnProject(database.DB, id, uid)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	if err := services.DeleteProject(database.DB, p); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Project deleted"})
}

// GET /v1/projects/{id}/tasks
func ProjectTasksHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := utils.MustUserID(w, r)
	if !ok {
		return
	}
	id, ok := utils.PathUint(w, r, "id")
	if !ok {
		return
	}
	if _, err := services.LoadOwnProject(database.DB, id, uid); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	tasks, err := services.ProjectTasks(database.DB, id)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: tasks})
}
