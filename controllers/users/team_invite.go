package users

import (
	"fmt"
	"net/http"
	"time"

	"github.com/lvt17/planex-be/config"
	"github.com/lvt17/planex-be/database"
	"github.com/lvt17/planex-be/middleware"
	"github.com/lvt17/planex-be/services"
	"github.com/lvt17/planex-be/utils"

	"github.com/gorilla/mux"
)

type InviteRequest struct {
	// Identifier is the invitee's username or email.
	Identifier string `json:"identifier" validate:"required,max=120"`
}

// POST /v1/teams/{id}/invites
func InviteMemberHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := utils.MustUserID(w, r)
	if !ok {
		return
	}
	id, ok := utils.PathUint(w, r, "id")
	if !ok {
		return
	}
	var req InviteRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}
	invite, invitee, err := services.InviteUser(database.DB, id, uid, req.Identifier)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.SendMailAsync(invitee.Email, "You were invited to a team on Planex",
		fmt.Sprintf("Hi %s,\n\nYou have a new team invitation waiting. Open %s/notifications to accept or decline it.\n", invitee.Username, config.Get().FrontendURL))
	utils.WriteJSON(w, http.StatusCreated, utils.APIResponse{Success: true, Message: "Invitation sent", Data: invite})
}

// POST /v1/teams/{id}/invite-link
func CreateInviteLinkHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := utils.MustUserID(w, r)
	if !ok {
		return
	}
	id, ok := utils.PathUint(w, r, "id")
	if !ok {
		return
	}
	link, err := services.CreateInviteLink(database.DB, id, uid, time.Now())
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, utils.APIResponse{Success: true, Message: "Invite link created", Data: link})
}

// GET /v1/teams/join/{token} (public)
func InviteLinkInfoHandler(w http.ResponseWriter, r *http.Request) {
	team, err := services.InviteLinkInfo(database.DB, mux.Vars(r)["token"], time.Now())
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Successfully",
		Data: map[string]interface{}{
			"team_id":    team.ID,
			"team_name":  team.Name,
			"avatar_url": team.AvatarURL,
		},
	})
}

// POST /v1/teams/join/{token}
func RequestJoinHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := utils.MustUserID(w, r)
	if !ok {
		return
	}
	req, err := services.RequestJoin(database.DB, mux.Vars(r)["token"], uid, time.Now())
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, utils.APIResponse{Success: true, Message: "Join request sent", Data: req})
}

// GET /v1/teams/{id}/join-requests
func ListJoinRequestsHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := utils.MustUserID(w, r)
	if !ok {
		return
	}
	id, ok := utils.PathUint(w, r, "id")
	if !ok {
		return
	}
	reqs, err := services.ListJoinRequests(database.DB, id, uid)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: reqs})
}

func resolveJoinRequest(w http.ResponseWriter, r *http.Request, approve bool) {
	uid, ok := utils.MustUserID(w, r)
	if !ok {
		return
	}
	id, ok := utils.PathUint(w, r, "id")
	if !ok {
		return
	}
	reqID, ok := utils.PathUint(w, r, "request_id")
	if !ok {
		return
	}
	if err := services.ResolveJoinRequest(database.DB, id, uid, reqID, approve); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	msg := "Join request rejected"
	if approve {
		msg = "Join request approved"
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: msg})
}

// POST /v1/teams/{id}/join-requests/{request_id}/approve
func ApproveJoinRequestHandler(w http.ResponseWriter, r *http.Request) {
	resolveJoinRequest(w, r, true)
}

// POST /v1/teams/{id}/join-requests/{request_id}/reject
func RejectJoinRequestHandler(w http.ResponseWriter, r *http.Request) {
	resolveJoinRequest(w, r, false)
}

// POST /v1/notifications/team-invite/{id}/accept
func AcceptInviteHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := utils.MustUserID(w, r)
	if !ok {
		return
	}
	id, ok := utils.PathUint(w, r, "id")
	if !ok {
		return
	}
	team, err := services.AcceptInvite(database.DB, id, uid)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "You joined " + team.Name, Data: team})
}

// POST /v1/notifications/team-invite/{id}/reject
func RejectInviteHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := utils.MustUserID(w, r)
	if !ok {
		return
	}
	id, ok := utils.PathUint(w, r, "id")
	if !ok {
		return
	}
	if err := services.RejectInvite(database.DB, id, uid); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Invitation declined"})
}
