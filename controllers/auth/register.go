package auth

import (
	"fmt"
	"net/http"

	"github.com/lvt17/planex-be/config"
	"github.com/lvt17/planex-be/database"
	"github.com/lvt17/planex-be/middleware"
	"github.com/lvt17/planex-be/services"
	"github.com/lvt17/planex-be/utils"
)

type RegisterRequest struct {
	Username string `json:"username" validate:"required,username"`
	Email    string `json:"email" validate:"required,email,max=120"`
	Password string `json:"password" validate:"required,pwdmin"`
	FullName string `json:"full_name" validate:"max=120"`
	IsApp    *bool  `json:"is_app,omitempty"`
}

func RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}

	user, err := services.RegisterUser(database.DB, req.Username, req.Email, req.Password, req.FullName)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}

	name := user.FullName
	if name == "" {
		name = user.Username
	}
	utils.SendMailAsync(user.Email, "Welcome to Planex",
		fmt.Sprintf("Hi %s,\n\nYour Planex account is ready. Sign in at %s to start planning.\n", name, config.Get().FrontendURL))

	issueTokens(w, r, http.StatusCreated, "Registration successful", user, req.IsApp)
}
