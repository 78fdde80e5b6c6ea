package users

import (
	"net/http"
	"time"

	"github.com/lvt17/planex-be/config"
	"github.com/lvt17/planex-be/database"
	"github.com/lvt17/planex-be/services"
	"github.com/lvt17/planex-be/utils"
)

// GET /v1/notifications
func ListNotificationsHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := utils.MustUserID(w, r)
	if !ok {
		return
	}
	cfg := config.Get()
	list, err := services.ListNotifications(database.DB, uid, cfg.NotificationLimit, time.Now(), cfg.Location)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: list})
}

// POST /v1/notifications/{id}/read
func MarkNotificationReadHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := utils.MustUserID(w, r)
	if !ok {
		return
	}
	id, ok := utils.PathUint(w, r, "id")
	if !ok {
		return
	}
	if err := services.MarkNotificationRead(database.DB, uid, id); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Notification marked as read"})
}

// POST /v1/notifications/read-all
func MarkAllNotificationsReadHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := utils.MustUserID(w, r)
	if !ok {
		return
	}
	n, err := services.MarkAllNotificationsRead(database.DB, uid)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "All notifications marked as read",
		Data:    map[string]interface{}{"updated": n},
	})
}
