package admins

import (
	"net/http"
	"time"

	"github.com/lvt17/planex-be/database"
	"github.com/lvt17/planex-be/middleware"
	"github.com/lvt17/planex-be/models"
	"github.com/lvt17/planex-be/services"
	"github.com/lvt17/planex-be/utils"
)

type UserResponse struct {
	ID              uint       `json:"id"`
	Username        string     `json:"username"`
	Email           string     `json:"email"`
	FullName        string     `json:"full_name"`
	AvatarURL       *string    `json:"avatar_url"`
	AccessCount     int64      `json:"access_count"`
	IsPlatformAdmin bool       `json:"is_platform_admin"`
	Locked          bool       `json:"locked"`
	LockedUntil     *time.Time `json:"locked_until"`
	CreatedAt       string     `json:"created_at"`
}

// userResponse reports a lock only while it is still in force.
func userResponse(u *models.User, now time.Time) UserResponse {
	locked := u.LockedUntil != nil && u.LockedUntil.After(now)
	var until *time.Time
	if locked {
		until = u.LockedUntil
	}
	return UserResponse{
		ID:              u.ID,
		Username:        u.Username,
		Email:           u.Email,
		FullName:        u.FullName,
		AvatarURL:       u.AvatarURL,
		AccessCount:     u.AccessCount,
		IsPlatformAdmin: u.IsPlatformAdmin,
		Locked:          locked,
		LockedUntil:     until,
		CreatedAt:       u.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

type PlatformAdminRequest struct {
	IsPlatformAdmin bool `json:"is_platform_admin"`
}

type LockUserRequest struct {
	Duration string `json:"duration" validate:"required,oneof=hour day permanent"`
}

// GET /v1/admin/users?search=&page=&per_page=
func GetUsers(w http.ResponseWriter, r *http.Request) {
	page := utils.QueryInt(r, "page", 1)
	users, total, err := services.ListUsers(database.DB, services.UserFilter{
		Search:  r.URL.Query().Get("search"),
		Page:    page,
		PerPage: utils.QueryInt(r, "per_page", 20),
	})
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	now := time.Now()
	response := make([]UserResponse, 0, len(users))
	for i := range users {
		response = append(response, userResponse(&users[i], now))
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Successfully",
		Data: map[string]interface{}{
			"users": response,
			"total": total,
			"page":  page,
		},
	})
}

// GET /v1/admin/users/{id}
func GetUserDetail(w http.ResponseWriter, r *http.Request) {
	id, ok := utils.PathUint(w, r, "id")
	if !ok {
		return
	}
	user, err := services.GetUser(database.DB, id)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: userResponse(user, time.Now())})
}

// PUT /v1/admin/users/{id}/admin
func SetPlatformAdminHandler(w http.ResponseWriter, r *http.Request) {
	actorID, ok := utils.MustUserID(w, r)
	if !ok {
		return
	}
	id, ok := utils.PathUint(w, r, "id")
	if !ok {
		return
	}
	var req PlatformAdminRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}
	user, err := services.SetPlatformAdmin(database.DB, actorID, id, req.IsPlatformAdmin)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "User updated", Data: userResponse(user, time.Now())})
}

// POST /v1/admin/users/{id}/lock
func LockUserHandler(w http.ResponseWriter, r *http.Request) {
	actorID, ok := utils.MustUserID(w, r)
	if !ok {
		return
	}
	id, ok := utils.PathUint(w, r, "id")
	if !ok {
		return
	}
	var req LockUserRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}
	now := time.Now()
	user, err := services.LockUser(database.DB, actorID, id, req.Duration, now)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "User locked", Data: userResponse(user, now)})
}

// POST /v1/admin/users/{id}/unlock
func UnlockUserHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := utils.PathUint(w, r, "id")
	if !ok {
		return
	}
	user, err := services.UnlockUser(database.DB, id)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "User unlocked", Data: userResponse(user, time.Now())})
}

// DELETE /v1/admin/users/{id}
func DeleteUserHandler(w http.ResponseWriter, r *http.Request) {
	actorID, ok := utils.MustUserID(w, r)
	if !ok {
		return
	}
	id, ok := utils.PathUint(w, r, "id")
	if !ok {
		return
	}
	if err := services.DeleteUser(database.DB, actorID, id); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "User deleted"})
}
