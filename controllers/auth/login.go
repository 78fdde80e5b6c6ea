package auth

import (
	"net/http"
	"time"

	"github.com/lvt17/planex-be/database"
	"github.com/lvt17/planex-be/middleware"
	"github.com/lvt17/planex-be/services"
	"github.com/lvt17/planex-be/utils"
)

type LoginRequest struct {
	// Identifier is an email address or a username.
	Identifier string `json:"identifier" validate:"required,max=120"`
	Password   string `json:"password" validate:"required"`
	IsApp      *bool  `json:"is_app,omitempty"`
}

func LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}

	user, err := services.Authenticate(database.DB, req.Identifier, req.Password, time.Now())
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	issueTokens(w, r, http.StatusOK, "Login successful", user, req.IsApp)
}

// MeHandler returns the authenticated user with badges.
func MeHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := utils.GetUserID(r)
	if !ok {
		utils.WriteJSON(w, http.StatusUnauthorized, utils.APIResponse{Success: false, Message: "Unauthorized"})
		return
	}
	user, err := services.GetUser(database.DB, uid)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: userPayload(user)})
}
