package users

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/lvt17/planex-be/database"
	"github.com/lvt17/planex-be/middleware"
	"github.com/lvt17/planex-be/services"
	"github.com/lvt17/planex-be/utils"

	"go.uber.org/zap"
)

const streamKeepAlive = 25 * time.Second

type ChatRequest struct {
	Content string `json:"content" validate:"required,max=4000"`
}

// publishChat pushes a stored message to open streams of the team.
func publishChat(r *http.Request, msg *services.ChatView) {
	payload, err := json.Marshal(msg)
	if err != nil {
		zap.L().Warn("chat encode failed", zap.Uint("message_id", msg.ID), zap.Error(err))
		return
	}
	utils.Hub.Publish(r.Context(), msg.TeamID, payload)
}

// GET /v1/teams/{id}/chat?after=
func ListChatHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := utils.MustUserID(w, r)
	if !ok {
		return
	}
	id, ok := utils.PathUint(w, r, "id")
	if !ok {
		return
	}
	after, _ := strconv.ParseUint(r.URL.Query().Get("after"), 10, 32)
	msgs, err := services.ListChat(database.DB, id, uid, uint(after))
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: msgs})
}

// POST /v1/teams/{id}/chat
func SendChatHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := utils.MustUserID(w, r)
	if !ok {
		return
	}
	id, ok := utils.PathUint(w, r, "id")
	if !ok {
		return
	}
	var req ChatRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}
	msg, err := services.PostChat(database.DB, id, uid, req.Content, nil)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	publishChat(r, msg)
	utils.WriteJSON(w, http.StatusCreated, utils.APIResponse{Success: true, Message: "Message sent", Data: msg})
}

// POST /v1/teams/{id}/chat/image (multipart: file, content)
func SendChatImageHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := utils.MustUserID(w, r)
	if !ok {
		return
	}
	id, ok := utils.PathUint(w, r, "id")
	if !ok {
		return
	}
	if _, err := services.RequireMembership(database.DB, id, uid); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	url, ok := uploadFormImage(w, r, fmt.Sprintf("chat/%d", id))
	if !ok {
		return
	}
	msg, err := services.PostChat(database.DB, id, uid, r.FormValue("content"), &url)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	publishChat(r, msg)
	utils.WriteJSON(w, http.StatusCreated, utils.APIResponse{Success: true, Message: "Image sent", Data: msg})
}

// GET /v1/teams/{id}/chat/stream
// Server-sent events: one "message" event per new chat message, plus a
// comment line every 25 seconds to keep proxies from closing the connection.
func ChatStreamHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := utils.MustUserID(w, r)
	if !ok {
		return
	}
	id, ok := utils.PathUint(w, r, "id")
	if !ok {
		return
	}
	if _, err := services.RequireMembership(database.DB, id, uid); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Streaming unsupported"})
		return
	}

	events, unsubscribe := utils.Hub.Subscribe(id)
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	ping := time.NewTicker(streamKeepAlive)
	defer ping.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-ping.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case payload := <-events:
			if _, err := fmt.Fprintf(w, "event: message\ndata: %s\n\n", payload); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
