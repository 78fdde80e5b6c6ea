package users

import (
	"net/http"

	"github.com/lvt17/planex-be/database"
	"github.com/lvt17/planex-be/middleware"
	"github.com/lvt17/planex-be/services"
	"github.com/lvt17/planex-be/utils"
)

type SubtaskRequest struct {
	Title string `json:"title" validate:"required,max=200"`
}

type UpdateSubtaskRequest struct {
	Title       *string `json:"title" validate:"max=200"`
	IsCompleted *bool   `json:"is_completed"`
}

type CommentRequest struct {
	Content string `json:"content" validate:"required,max=2000"`
}

// GET /v1/tasks/{id}/subtasks
func ListSubtasksHandler(w http.ResponseWriter, r *http.Request) {
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
	subs, err := services.ListSubtasks(database.DB, task.ID)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: subs})
}

// POST /v1/tasks/{id}/subtasks
func CreateSubtaskHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := utils.MustUserID(w, r)
	if !ok {
		return
	}
	id, ok := utils.PathUint(w, r, "id")
	if !ok {
		return
	}
	var req SubtaskRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}
	task, err := services.LoadAccessibleTask(database.DB, id, uid)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	sub, err := services.CreateSubtask(database.DB, task, req.Title)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, utils.APIResponse{Success: true, Message: "Subtask created", Data: sub})
}

// PUT /v1/subtasks/{id}
func UpdateSubtaskHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := utils.MustUserID(w, r)
	if !ok {
		return
	}
	id, ok := utils.PathUint(w, r, "id")
	if !ok {
		return
	}
	var req UpdateSubtaskRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}
	sub, _, err := services.LoadAccessibleSubtask(database.DB, id, uid)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	sub, progress, err := services.UpdateSubtask(database.DB, sub, req.Title, req.IsCompleted)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Subtask updated",
		Data:    map[string]interface{}{"subtask": sub, "task_progress": progress},
	})
}

// DELETE /v1/subtasks/{id}
func DeleteSubtaskHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := utils.MustUserID(w, r)
	if !ok {
		return
	}
	id, ok := utils.PathUint(w, r, "id")
	if !ok {
		return
	}
	sub, _, err := services.LoadAccessibleSubtask(database.DB, id, uid)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	if err := services.DeleteSubtask(database.DB, sub); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Subtask deleted"})
}

// GET /v1/tasks/{id}/comments
func ListTaskCommentsHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := utils.MustUserID(w, r)
	if !ok {
		return
	}
	id, ok := utils.PathUint(w, r, "id")
	if !ok {
		return
	}
	if _, err := services.LoadAccessibleTask(database.DB, id, uid); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	comments, err := services.ListComments(database.DB, "task_id", id)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: comments})
}

// POST /v1/tasks/{id}/comments
func AddTaskCommentHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := utils.MustUserID(w, r)
	if !ok {
		return
	}
	id, ok := utils.PathUint(w, r, "id")
	if !ok {
		return
	}
	var req CommentRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}
	if _, err := services.LoadAccessibleTask(database.DB, id, uid); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	c, err := services.AddComment(database.DB, uid, &id, nil, req.Content)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, utils.APIResponse{Success: true, Message: "Comment added", Data: c})
}

// GET /v1/subtasks/{id}/comments
func ListSubtaskCommentsHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := utils.MustUserID(w, r)
	if !ok {
		return
	}
	id, ok := utils.PathUint(w, r, "id")
	if !ok {
		return
	}
	if _, _, err := services.LoadAccessibleSubtask(database.DB, id, uid); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	comments, err := services.ListComments(database.DB, "subtask_id", id)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: comments})
}

// POST /v1/subtasks/{id}/comments
func AddSubtaskCommentHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := utils.MustUserID(w, r)
	if !ok {
		return
	}
	id, ok := utils.PathUint(w, r, "id")
	if !ok {
		return
	}
	var req CommentRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}
	if _, _, err := services.LoadAccessibleSubtask(database.DB, id, uid); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	c, err := services.AddComment(database.DB, uid, nil, &id, req.Content)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, utils.APIResponse{Success: true, Message: "Comment added", Data: c})
}
