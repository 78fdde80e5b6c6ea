package admins

import (
	"net/http"
	"time"

	"github.com/lvt17/planex-be/database"
	"github.com/lvt17/planex-be/middleware"
	"github.com/lvt17/planex-be/services"
	"github.com/lvt17/planex-be/utils"
)

type BadgeRequest struct {
	Name           *string `json:"name" validate:"max=100"`
	IconURL        *string `json:"icon_url" validate:"max=500"`
	FrameStyle     *string `json:"frame_style" validate:"max=50"`
	Description    *string `json:"description"`
	ConditionType  *string `json:"condition_type" validate:"max=50"`
	ConditionValue *int    `json:"condition_value"`
}

func (r BadgeRequest) input() services.BadgeInput {
	return services.BadgeInput{
		Name:           r.Name,
		IconURL:        r.IconURL,
		FrameStyle:     r.FrameStyle,
		Description:    r.Description,
		ConditionType:  r.ConditionType,
		ConditionValue: r.ConditionValue,
	}
}

type AssignBadgeRequest struct {
	Identifier    string `json:"identifier" validate:"required,max=120"`
	BadgeID       uint   `json:"badge_id" validate:"required"`
	ExpiresInDays *int   `json:"expires_in_days"`
}

// GET /v1/admin/badges
func ListBadgesHandler(w http.ResponseWriter, r *http.Request) {
	badges, err := services.ListBadgeDefinitions(database.DB)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Successfully",
		Data:    map[string]interface{}{"badges": badges},
	})
}

// GET /v1/admin/badges/{id}
func GetBadgeHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := utils.PathUint(w, r, "id")
	if !ok {
		return
	}
	badge, err := services.LoadBadgeDefinition(database.DB, id)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: badge})
}

// POST /v1/admin/badges
func CreateBadgeHandler(w http.ResponseWriter, r *http.Request) {
	var req BadgeRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}
	badge, err := services.CreateBadgeDefinition(database.DB, req.input())
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, utils.APIResponse{Success: true, Message: "Badge created", Data: badge})
}

// PUT /v1/admin/badges/{id}
func UpdateBadgeHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := utils.PathUint(w, r, "id")
	if !ok {
		return
	}
	var req BadgeRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}
	badge, err := services.UpdateBadgeDefinition(database.DB, id, req.input())
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Badge updated", Data: badge})
}

// DELETE /v1/admin/badges/{id}
func DeleteBadgeHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := utils.PathUint(w, r, "id")
	if !ok {
		return
	}
	if err := services.DeleteBadgeDefinition(database.DB, id); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Badge deleted"})
}

// POST /v1/admin/badges/assign
func AssignBadgeHandler(w http.ResponseWriter, r *http.Request) {
	adminID, ok := utils.MustUserID(w, r)
	if !ok {
		return
	}
	var req AssignBadgeRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}
	a, err := services.AssignBadge(database.DB, adminID, req.Identifier, req.BadgeID, req.ExpiresInDays, time.Now())
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, utils.APIResponse{Success: true, Message: "Badge assigned", Data: a})
}

// GET /v1/admin/badges/assignments?badge_id=
func ListAssignmentsHandler(w http.ResponseWriter, r *http.Request) {
	badgeID := utils.QueryInt(r, "badge_id", 0)
	if badgeID < 0 {
		badgeID = 0
	}
	rows, err := services.ListAssignments(database.DB, uint(badgeID), time.Now())
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Successfully",
		Data:    map[string]interface{}{"assignments": rows},
	})
}

// DELETE /v1/admin/badges/assignments/{id}
func RemoveAssignmentHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := utils.PathUint(w, r, "id")
	if !ok {
		return
	}
	if err := services.RemoveAssignment(database.DB, id); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Assignment removed"})
}
