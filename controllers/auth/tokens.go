package auth

import (
	"net/http"
	"time"

	"github.com/lvt17/planex-be/config"
	"github.com/lvt17/planex-be/database"
	"github.com/lvt17/planex-be/models"
	"github.com/lvt17/planex-be/services"
	"github.com/lvt17/planex-be/utils"
)

// userPayload is the user object returned by login, register and /me.
func userPayload(user *models.User) map[string]interface{} {
	b := services.BadgesFor(database.DB, user, time.Now(), config.Get().Location)
	return map[string]interface{}{
		"id":                user.ID,
		"username":          user.Username,
		"email":             user.Email,
		"full_name":         user.FullName,
		"avatar_url":        user.AvatarURL,
		"access_count":      user.AccessCount,
		"is_platform_admin": user.IsPlatformAdmin,
		"title":             b.Title,
		"badges":            b.Badges,
		"created_at":        user.CreatedAt,
	}
}

// issueTokens answers with a fresh access/refresh pair. App clients get a
// 30 day access token instead of 15 minutes.
func issueTokens(w http.ResponseWriter, r *http.Request, status int, message string, user *models.User, isApp *bool) {
	expiry := utils.AccessTokenTTL
	if isApp != nil && *isApp {
		expiry = utils.AppAccessTokenTTL
	}
	exp := time.Now().Add(expiry)

	accessToken, err := utils.GenerateAccessTokenWithExpiry(user.ID, user.Role(), expiry)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	refreshToken, err := utils.GenerateRefreshToken(database.DB, user.ID)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}

	utils.WriteJSON(w, status, utils.APIResponse{
		Success: true,
		Message: message,
		Data: map[string]interface{}{
			"access_token":  accessToken,
			"access_expire": exp.UTC().Format(time.RFC3339),
			"refresh_token": refreshToken,
			"user":          userPayload(user),
		},
	})
}
