package users

import (
	"errors"
	"net/http"
	"time"

	"github.com/lvt17/planex-be/config"
	"github.com/lvt17/planex-be/database"
	"github.com/lvt17/planex-be/middleware"
	"github.com/lvt17/planex-be/models"
	"github.com/lvt17/planex-be/services"
	"github.com/lvt17/planex-be/utils"

	"go.uber.org/zap"
)

type UpdateProfileRequest struct {
	FullName *string `json:"full_name" validate:"max=120"`
	Username *string `json:"username" validate:"username"`
}

func profilePayload(user *models.User) map[string]interface{} {
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

// GET /v1/users/me
func GetProfileHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := utils.MustUserID(w, r)
	if !ok {
		return
	}
	user, err := services.GetUser(database.DB, uid)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: profilePayload(user)})
}

// PUT /v1/users/me
func UpdateProfileHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := utils.MustUserID(w, r)
	if !ok {
		return
	}
	var req UpdateProfileRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}
	user, err := services.UpdateProfile(database.DB, uid, req.FullName, req.Username)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Profile updated", Data: profilePayload(user)})
}

// uploadFormImage stores the multipart "file" field under prefix. It writes
// the error response itself and returns false on failure.
func uploadFormImage(w http.ResponseWriter, r *http.Request, prefix string) (string, bool) {
	if err := r.ParseMultipartForm(utils.MaxImageBytes); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Invalid form data"})
		return "", false
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "file is required"})
		return "", false
	}
	defer file.Close()

	url, err := utils.UploadImage(r.Context(), prefix, file, header)
	if err != nil {
		if errors.Is(err, utils.ErrStorageDisabled) {
			utils.WriteJSON(w, http.StatusServiceUnavailable, utils.APIResponse{Success: false, Message: "Image upload is not available"})
			return "", false
		}
		utils.WriteError(w, r, err)
		return "", false
	}
	return url, true
}

// removeStoredImage deletes a replaced upload. Failures only get logged.
func removeStoredImage(r *http.Request, url *string) {
	if url == nil {
		return
	}
	key, ok := utils.ObjectKeyFromURL(*url)
	if !ok {
		return
	}
	if err := utils.DeleteFromS3(r.Context(), key); err != nil {
		zap.L().Warn("old image cleanup failed", zap.String("key", key), zap.Error(err))
	}
}

// POST /v1/users/me/avatar
func UploadAvatarHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := utils.MustUserID(w, r)
	if !ok {
		return
	}
	user, err := services.GetUser(database.DB, uid)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	url, ok := uploadFormImage(w, r, "avatars")
	if !ok {
		return
	}
	old := user.AvatarURL
	if err := database.DB.Model(user).Update("avatar_url", url).Error; err != nil {
		utils.WriteError(w, r, err)
		return
	}
	removeStoredImage(r, old)
	user.AvatarURL = &url
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Avatar updated", Data: profilePayload(user)})
}

// GET /v1/users/me/badges
func MyBadgesHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := utils.MustUserID(w, r)
	if !ok {
		return
	}
	user, err := services.GetUser(database.DB, uid)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Successfully",
		Data:    services.BadgesFor(database.DB, user, time.Now(), config.Get().Location),
	})
}
