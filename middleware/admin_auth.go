package middleware

import (
	"net/http"

	"github.com/lvt17/planex-be/database"
	"github.com/lvt17/planex-be/models"
	"github.com/lvt17/planex-be/utils"
)

// AdminAuthMiddleware lets through platform admins only. It must run after
// AuthMiddleware. The admin flag is re-read from the database so a demoted
// user loses access before their token expires.
func AdminAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid, ok := utils.GetUserID(r)
		if !ok {
			unauthorized(w, "Unauthorized")
			return
		}
		if utils.GetUserRole(r) != "admin" {
			utils.WriteJSON(w, http.StatusForbidden, utils.APIResponse{Success: false, Message: "Forbidden: Admin access required"})
			return
		}

		var user models.User
		if err := database.DB.Select("id", "is_platform_admin").First(&user, uid).Error; err != nil {
			unauthorized(w, "Unauthorized: account not found")
			return
		}
		if !user.IsPlatformAdmin {
			utils.WriteJSON(w, http.StatusForbidden, utils.APIResponse{Success: false, Message: "Forbidden"})
			return
		}
		next.ServeHTTP(w, r)
	})
}
