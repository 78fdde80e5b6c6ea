package users

import (
	"encoding/json"
	"net/http"

	"github.com/lvt17/planex-be/database"
	"github.com/lvt17/planex-be/middleware"
	"github.com/lvt17/planex-be/services"
	"github.com/lvt17/planex-be/utils"
)

type WhiteboardRequest struct {
	Name        string          `json:"name" validate:"required,max=200"`
	Description string          `json:"description"`
	Data        json.RawMessage `json:"data"`
}

type UpdateWhiteboardRequest struct {
	Name        *string         `json:"name" validate:"max=200"`
	Description *string         `json:"description"`
	Data        json.RawMessage `json:"data"`
}

// GET /v1/whiteboards
func ListWhiteboardsHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := utils.MustUserID(w, r)
	if !ok {
		return
	}
	boards, err := services.ListWhiteboards(database.DB, uid)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: boards})
}

// POST /v1/whiteboards
func CreateWhiteboardHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := utils.MustUserID(w, r)
	if !ok {
		return
	}
	var req WhiteboardRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}
	wb, err := services.CreateWhiteboard(database.DB, uid, req.Name, req.Description, req.Data)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, utils.APIResponse{Success: true, Message: "Whiteboard created", Data: wb})
}

// GET /v1/whiteboards/{id}
func GetWhiteboardHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := utils.MustUserID(w, r)
	if !ok {
		return
	}
	id, ok := utils.PathUint(w, r, "id")
	if !ok {
		return
	}
	wb, err := services.LoadWhiteboard(database.DB, id, uid)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: wb})
}

// PUT /v1/whiteboards/{id}
func UpdateWhiteboardHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := utils.MustUserID(w, r)
	if !ok {
		return
	}
	id, ok := utils.PathUint(w, r, "id")
	if !ok {
		return
	}
	var req UpdateWhiteboardRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}
	wb, err := services.LoadWhiteboard(database.DB, id, uid)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	wb, err = services.UpdateWhiteboard(database.DB, wb, services.WhiteboardPatch{
		Name:        req.Name,
		Description: req.Description,
		Data:        req.Data,
	})
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Whiteboard saved", Data: wb})
}

// DELETE /v1/whiteboards/{id}
func DeleteWhiteboardHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := utils.MustUserID(w, r)
	if !ok {
		return
	}
	id, ok := utils.PathUint(w, r, "id")
	if !ok {
		return
	}
	if err := services.DeleteWhiteboard(database.DB, id, uid); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Whiteboard deleted"})
}
