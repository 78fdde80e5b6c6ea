package users

import (
	"fmt"
	"net/http"

	"github.com/lvt17/planex-be/config"
	"github.com/lvt17/planex-be/database"
	"github.com/lvt17/planex-be/middleware"
	"github.com/lvt17/planex-be/models"
	"github.com/lvt17/planex-be/services"
	"github.com/lvt17/planex-be/utils"

	"go.uber.org/zap"
)

type TeamNameRequest struct {
	Name string `json:"name" validate:"required,max=120"`
}

type MemberRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=admin member"`
}

// GET /v1/teams
func ListTeamsHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := utils.MustUserID(w, r)
	if !ok {
		return
	}
	teams, err := services.ListTeams(database.DB, uid)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: teams})
}

// POST /v1/teams
func CreateTeamHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := utils.MustUserID(w, r)
	if !ok {
		return
	}
	var req TeamNameRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}
	team, err := services.CreateTeam(database.DB, uid, req.Name)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, utils.APIResponse{Success: true, Message: "Team created", Data: team})
}

// GET /v1/teams/{id}
func GetTeamHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := utils.MustUserID(w, r)
	if !ok {
		return
	}
	id, ok := utils.PathUint(w, r, "id")
	if !ok {
		return
	}
	detail, err := services.GetTeamDetail(database.DB, id, uid)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: detail})
}

// PUT /v1/teams/{id}
func RenameTeamHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := utils.MustUserID(w, r)
	if !ok {
		return
	}
	id, ok := utils.PathUint(w, r, "id")
	if !ok {
		return
	}
	var req TeamNameRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}
	team, err := services.RenameTeam(database.DB, id, uid, req.Name)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Team updated", Data: team})
}

// DELETE /v1/teams/{id}
func DissolveTeamHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := utils.MustUserID(w, r)
	if !ok {
		return
	}
	id, ok := utils.PathUint(w, r, "id")
	if !ok {
		return
	}
	if err := services.DissolveTeam(database.DB, id, uid); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Team dissolved"})
}

// POST /v1/teams/{id}/avatar
func UploadTeamAvatarHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := utils.MustUserID(w, r)
	if !ok {
		return
	}
	id, ok := utils.PathUint(w, r, "id")
	if !ok {
		return
	}
	if _, err := services.RequireLeader(database.DB, id, uid); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	var old models.Team
	if err := database.DB.Select("id", "avatar_url").First(&old, id).Error; err != nil {
		utils.WriteError(w, r, err)
		return
	}
	url, ok := uploadFormImage(w, r, "teams")
	if !ok {
		return
	}
	team, err := services.SetTeamAvatar(database.DB, id, url)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	removeStoredImage(r, old.AvatarURL)
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Team avatar updated", Data: team})
}

// GET /v1/teams/{id}/members
func ListMembersHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := utils.MustUserID(w, r)
	if !ok {
		return
	}
	id, ok := utils.PathUint(w, r, "id")
	if !ok {
		return
	}
	if _, err := services.RequireMembership(database.DB, id, uid); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	members, err := services.ListMembers(database.DB, id)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: members})
}

// PUT /v1/teams/{id}/members/{user_id}/role
func ChangeMemberRoleHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := utils.MustUserID(w, r)
	if !ok {
		return
	}
	id, ok := utils.PathUint(w, r, "id")
	if !ok {
		return
	}
	target, ok := utils.PathUint(w, r, "user_id")
	if !ok {
		return
	}
	var req MemberRoleRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}
	if err := services.ChangeMemberRole(database.DB, id, uid, target, req.Role); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Role updated"})
}

// DELETE /v1/teams/{id}/members/{user_id}
func RemoveMemberHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := utils.MustUserID(w, r)
	if !ok {
		return
	}
	id, ok := utils.PathUint(w, r, "id")
	if !ok {
		return
	}
	target, ok := utils.PathUint(w, r, "user_id")
	if !ok {
		return
	}
	if err := services.RemoveMember(database.DB, id, uid, target); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Member removed"})
}

// POST /v1/teams/{id}/leave
func LeaveTeamHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := utils.MustUserID(w, r)
	if !ok {
		return
	}
	id, ok := utils.PathUint(w, r, "id")
	if !ok {
		return
	}
	res, err := services.LeaveTeam(database.DB, id, uid)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	msg := "You left the team"
	if res.TeamDeleted {
		msg = "You left the team and it was deleted"
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: msg, Data: res})
}

// GET /v1/teams/{id}/members/{user_id}/tasks
func MemberTasksHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := utils.MustUserID(w, r)
	if !ok {
		return
	}
	id, ok := utils.PathUint(w, r, "id")
	if !ok {
		return
	}
	target, ok := utils.PathUint(w, r, "user_id")
	if !ok {
		return
	}
	tasks, err := services.MemberTasks(database.DB, id, uid, target)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: tasks})
}

// GET /v1/teams/{id}/projects
func ListTeamProjectsHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := utils.MustUserID(w, r)
	if !ok {
		return
	}
	id, ok := utils.PathUint(w, r, "id")
	if !ok {
		return
	}
	projects, err := services.ListTeamProjects(database.DB, id, uid)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: projects})
}

// POST /v1/teams/{id}/projects
func CreateTeamProjectHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := utils.MustUserID(w, r)
	if !ok {
		return
	}
	id, ok := utils.PathUint(w, r, "id")
	if !ok {
		return
	}
	var req ProjectRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}
	p, err := services.CreateTeamProject(database.DB, id, uid, req.input())
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, utils.APIResponse{Success: true, Message: "Project created", Data: p})
}

// GET /v1/teams/{id}/tasks
func ListTeamTasksHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := utils.MustUserID(w, r)
	if !ok {
		return
	}
	id, ok := utils.PathUint(w, r, "id")
	if !ok {
		return
	}
	tasks, err := services.ListTeamTasks(database.DB, id, uid)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: tasks})
}

// POST /v1/teams/{id}/tasks
func CreateTeamTaskHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := utils.MustUserID(w, r)
	if !ok {
		return
	}
	id, ok := utils.PathUint(w, r, "id")
	if !ok {
		return
	}
	var req TaskRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}
	task, err := services.CreateTeamTask(database.DB, id, uid, req.input())
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	if task.AssigneeID != nil && *task.AssigneeID != uid {
		mailAssignment(task)
	}
	view, err := services.TaskWithProgress(database.DB, task)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, utils.APIResponse{Success: true, Message: "Task created", Data: view})
}

// mailAssignment tells the assignee about a new task. Best effort.
func mailAssignment(task *models.Task) {
	assignee, err := services.GetUser(database.DB, *task.AssigneeID)
	if err != nil {
		zap.L().Warn("assignment mail skipped", zap.Uint("task_id", task.ID), zap.Error(err))
		return
	}
	deadline := "no deadline"
	if task.Deadline != nil {
		deadline = task.Deadline.In(config.Get().Location).Format("02 Jan 2006 15:04")
	}
	body := fmt.Sprintf("Hi %s,\n\nYou have been assigned a new task: %s\nDeadline: %s\n\nOpen your dashboard: %s/dashboard\n",
		assignee.Username, task.Name, deadline, config.Get().FrontendURL)
	utils.SendMailAsync(assignee.Email, "New task assigned: "+task.Name, body)
}
