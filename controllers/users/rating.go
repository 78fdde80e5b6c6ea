package users

import (
	"net/http"
	"time"

	"github.com/lvt17/planex-be/database"
	"github.com/lvt17/planex-be/middleware"
	"github.com/lvt17/planex-be/services"
	"github.com/lvt17/planex-be/utils"
)

type RateMemberRequest struct {
	MemberID uint   `json:"member_id" validate:"required"`
	Score    int    `json:"score" validate:"required"`
	Comment  string `json:"comment" validate:"max=1000"`
}

// POST /v1/teams/{id}/ratings
func RateMemberHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := utils.MustUserID(w, r)
	if !ok {
		return
	}
	id, ok := utils.PathUint(w, r, "id")
	if !ok {
		return
	}
	var req RateMemberRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}
	rating, err := services.RateMember(database.DB, id, uid, req.MemberID, req.Score, req.Comment, time.Now())
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Rating saved", Data: rating})
}

// GET /v1/teams/{id}/leaderboard
func LeaderboardHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := utils.MustUserID(w, r)
	if !ok {
		return
	}
	id, ok := utils.PathUint(w, r, "id")
	if !ok {
		return
	}
	board, err := services.Leaderboard(database.DB, id, uid)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: board})
}
