package auth

import (
	"net/http"

	"github.com/lvt17/planex-be/database"
	"github.com/lvt17/planex-be/middleware"
	"github.com/lvt17/planex-be/models"
	"github.com/lvt17/planex-be/utils"
)

type LogoutRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// LogoutHandler revokes the given refresh token and the access token on the request.
func LogoutHandler(w http.ResponseWriter, r *http.Request) {
	var req LogoutRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}
	uid, _ := utils.GetUserID(r)

	utils.RevokeBearer(r)

	// Unknown tokens still answer 200 so tokens cannot be probed.
	if err := database.DB.Model(&models.RefreshToken{}).
		Where("id = ? AND user_id = ?", req.RefreshToken, uid).
		Update("revoked", true).Error; err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Logged out"})
}

// LogoutAllHandler revokes all refresh tokens for the authenticated user
func LogoutAllHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := utils.GetUserID(r)
	if !ok {
		utils.WriteJSON(w, http.StatusUnauthorized, utils.APIResponse{Success: false, Message: "Unauthorized"})
		return
	}

	utils.RevokeBearer(r)

	res := database.DB.Model(&models.RefreshToken{}).Where("user_id = ? AND revoked = ?", uid, false).Update("revoked", true)
	if res.Error != nil {
		utils.WriteError(w, r, res.Error)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "All sessions revoked",
		Data:    map[string]interface{}{"revoked": res.RowsAffected},
	})
}
