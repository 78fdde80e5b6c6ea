package routes

import (
	"net/http"
	"time"

	"github.com/lvt17/planex-be/controllers/auth"
	"github.com/lvt17/planex-be/controllers/users"
	"github.com/lvt17/planex-be/middleware"

	"github.com/gorilla/mux"
)

// AuthRoutes registers the account endpoints. The unauthenticated ones share a
// per-IP limiter.
func AuthRoutes(api *mux.Router) {
	// 60 per IP per 5 minutes
	loginLimiter := middleware.NewIPRateLimiter(60, 5*time.Minute)
	userLimiter := middleware.NewUserRateLimiter(120, 60, 60)
	public := func(h http.HandlerFunc) http.Handler { return loginLimiter.Middleware(h) }
	private := func(h http.HandlerFunc) http.Handler {
		return middleware.AuthMiddleware(userLimiter.Middleware(h))
	}

	a := api.PathPrefix("/auth").Subrouter()
	a.Handle("/register", public(auth.RegisterHandler)).Methods(http.MethodPost)
	a.Handle("/login", public(auth.LoginHandler)).Methods(http.MethodPost)
	a.Handle("/refresh", public(auth.RefreshHandler)).Methods(http.MethodPost)
	a.Handle("/forgot-password", public(auth.ForgotPasswordHandler)).Methods(http.MethodPost)
	a.Handle("/reset-password", public(auth.ResetPasswordHandler)).Methods(http.MethodPost)

	a.Handle("/logout", private(auth.LogoutHandler)).Methods(http.MethodPost)
	a.Handle("/logout-all", private(auth.LogoutAllHandler)).Methods(http.MethodPost)
	a.Handle("/change-password", private(auth.ChangePasswordHandler)).Methods(http.MethodPost)
	a.Handle("/me", private(auth.MeHandler)).Methods(http.MethodGet)
}

// UsersRoutes registers every authenticated user-facing route.
func UsersRoutes(api *mux.Router) {
	// 120 read, 60 write per user per 60 seconds
	userLimiter := middleware.NewUserRateLimiter(120, 60, 60)
	h := func(fn http.HandlerFunc) http.Handler {
		return middleware.AuthMiddleware(userLimiter.Middleware(fn))
	}
	// Chat streams hold one request open; they skip the per-user budget.
	stream := func(fn http.HandlerFunc) http.Handler { return middleware.AuthMiddleware(fn) }

	// Profile
	api.Handle("/users/me", h(users.GetProfileHandler)).Methods(http.MethodGet)
	api.Handle("/users/me", h(users.UpdateProfileHandler)).Methods(http.MethodPut)
	api.Handle("/users/me/avatar", h(users.UploadAvatarHandler)).Methods(http.MethodPost)
	api.Handle("/users/me/badges", h(users.MyBadgesHandler)).Methods(http.MethodGet)

	// Tasks
	api.Handle("/tasks", h(users.ListTasksHandler)).Methods(http.MethodGet)
	api.Handle("/tasks", h(users.CreateTaskHandler)).Methods(http.MethodPost)
	api.Handle("/tasks/{id:[0-9]+}", h(users.GetTaskHandler)).Methods(http.MethodGet)
	api.Handle("/tasks/{id:[0-9]+}", h(users.UpdateTaskHandler)).Methods(http.MethodPut)
	api.Handle("/tasks/{id:[0-9]+}", h(users.DeleteTaskHandler)).Methods(http.MethodDelete)
	api.Handle("/tasks/{id:[0-9]+}/subtasks", h(users.ListSubtasksHandler)).Methods(http.MethodGet)
	api.Handle("/tasks/{id:[0-9]+}/subtasks", h(users.CreateSubtaskHandler)).Methods(http.MethodPost)
	api.Handle("/tasks/{id:[0-9]+}/comments", h(users.ListTaskCommentsHandler)).Methods(http.MethodGet)
	api.Handle("/tasks/{id:[0-9]+}/comments", h(users.AddTaskCommentHandler)).Methods(http.MethodPost)

	// Subtasks
	api.Handle("/subtasks/{id:[0-9]+}", h(users.UpdateSubtaskHandler)).Methods(http.MethodPut)
	api.Handle("/subtasks/{id:[0-9]+}", h(users.DeleteSubtaskHandler)).Methods(http.MethodDelete)
	api.Handle("/subtasks/{id:[0-9]+}/comments", h(users.ListSubtaskCommentsHandler)).Methods(http.MethodGet)
	api.Handle("/subtasks/{id:[0-9]+}/comments", h(users.AddSubtaskCommentHandler)).Methods(http.MethodPost)

	// Projects
	api.Handle("/projects", h(users.ListProjectsHandler)).Methods(http.MethodGet)
	api.Handle("/projects", h(users.CreateProjectHandler)).Methods(http.MethodPost)
	api.Handle("/projects/{id:[0-9]+}", h(users.GetProjectHandler)).Methods(http.MethodGet)
	api.Handle("/projects/{id:[0-9]+}", h(users.UpdateProjectHandler)).Methods(http.MethodPut)
	api.Handle("/projects/{id:[0-9]+}", h(users.DeleteProjectHandler)).Methods(http.MethodDelete)
	api.Handle("/projects/{id:[0-9]+}/tasks", h(users.ProjectTasksHandler)).Methods(http.MethodGet)

	// Team invite links; the info lookup is public and must be matched before /teams/{id}
	api.Handle("/teams/join/{token}", http.HandlerFunc(users.InviteLinkInfoHandler)).Methods(http.MethodGet)
	api.Handle("/teams/join/{token}", h(users.RequestJoinHandler)).Methods(http.MethodPost)

	// Teams
	api.Handle("/teams", h(users.ListTeamsHandler)).Methods(http.MethodGet)
	api.Handle("/teams", h(users.CreateTeamHandler)).Methods(http.MethodPost)
	api.Handle("/teams/{id:[0-9]+}", h(users.GetTeamHandler)).Methods(http.MethodGet)
	api.Handle("/teams/{id:[0-9]+}", h(users.RenameTeamHandler)).Methods(http.MethodPut)
	api.Handle("/teams/{id:[0-9]+}", h(users.DissolveTeamHandler)).Methods(http.MethodDelete)
	api.Handle("/teams/{id:[0-9]+}/avatar", h(users.UploadTeamAvatarHandler)).Methods(http.MethodPost)
	api.Handle("/teams/{id:[0-9]+}/leave", h(users.LeaveTeamHandler)).Methods(http.MethodPost)

	api.Handle("/teams/{id:[0-9]+}/members", h(users.ListMembersHandler)).Methods(http.MethodGet)
	api.Handle("/teams/{id:[0-9]+}/members/{user_id:[0-9]+}/role", h(users.ChangeMemberRoleHandler)).Methods(http.MethodPut)
	api.Handle("/teams/{id:[0-9]+}/members/{user_id:[0-9]+}", h(users.RemoveMemberHandler)).Methods(http.MethodDelete)
	api.Handle("/teams/{id:[0-9]+}/members/{user_id:[0-9]+}/tasks", h(users.MemberTasksHandler)).Methods(http.MethodGet)

	api.Handle("/teams/{id:[0-9]+}/invites", h(users.InviteMemberHandler)).Methods(http.MethodPost)
	api.Handle("/teams/{id:[0-9]+}/invite-link", h(users.CreateInviteLinkHandler)).Methods(http.MethodPost)
	api.Handle("/teams/{id:[0-9]+}/join-requests", h(users.ListJoinRequestsHandler)).Methods(http.MethodGet)
	api.Handle("/teams/{id:[0-9]+}/join-requests/{request_id:[0-9]+}/approve", h(users.ApproveJoinRequestHandler)).Methods(http.MethodPost)
	api.Handle("/teams/{id:[0-9]+}/join-requests/{request_id:[0-9]+}/reject", h(users.RejectJoinRequestHandler)).Methods(http.MethodPost)

	api.Handle("/teams/{id:[0-9]+}/projects", h(users.ListTeamProjectsHandler)).Methods(http.MethodGet)
	api.Handle("/teams/{id:[0-9]+}/projects", h(users.CreateTeamProjectHandler)).Methods(http.MethodPost)
	api.Handle("/teams/{id:[0-9]+}/tasks", h(users.ListTeamTasksHandler)).Methods(http.MethodGet)
	api.Handle("/teams/{id:[0-9]+}/tasks", h(users.CreateTeamTaskHandler)).Methods(http.MethodPost)

	api.Handle("/teams/{id:[0-9]+}/ratings", h(users.RateMemberHandler)).Methods(http.MethodPost)
	api.Handle("/teams/{id:[0-9]+}/leaderboard", h(users.LeaderboardHandler)).Methods(http.MethodGet)

	// Team chat
	api.Handle("/teams/{id:[0-9]+}/chat", h(users.ListChatHandler)).Methods(http.MethodGet)
	api.Handle("/teams/{id:[0-9]+}/chat", h(users.SendChatHandler)).Methods(http.MethodPost)
	api.Handle("/teams/{id:[0-9]+}/chat/image", h(users.SendChatImageHandler)).Methods(http.MethodPost)
	api.Handle("/teams/{id:[0-9]+}/chat/stream", stream(users.ChatStreamHandler)).Methods(http.MethodGet)

	// Notifications
	api.Handle("/notifications", h(users.ListNotificationsHandler)).Methods(http.MethodGet)
	api.Handle("/notifications/read-all", h(users.MarkAllNotificationsReadHandler)).Methods(http.MethodPost)
	api.Handle("/notifications/{id:[0-9]+}/read", h(users.MarkNotificationReadHandler)).Methods(http.MethodPost)
	api.Handle("/notifications/team-invite/{id:[0-9]+}/accept", h(users.AcceptInviteHandler)).Methods(http.MethodPost)
	api.Handle("/notifications/team-invite/{id:[0-9]+}/reject", h(users.RejectInviteHandler)).Methods(http.MethodPost)

	// Income
	api.Handle("/income", h(users.IncomeStatsHandler)).Methods(http.MethodGet)
	api.Handle("/income", h(users.AddIncomeHandler)).Methods(http.MethodPost)
	api.Handle("/income/entries", h(users.ListIncomeEntriesHandler)).Methods(http.MethodGet)
	api.Handle("/income/by-task/{id:[0-9]+}", h(users.IncomeByTaskHandler)).Methods(http.MethodGet)

	// Products and sales
	api.Handle("/products", h(users.ListProductsHandler)).Methods(http.MethodGet)
	api.Handle("/products", h(users.CreateProductHandler)).Methods(http.MethodPost)
	api.Handle("/products/{id:[0-9]+}", h(users.GetProductHandler)).Methods(http.MethodGet)
	api.Handle("/products/{id:[0-9]+}", h(users.UpdateProductHandler)).Methods(http.MethodPut)
	api.Handle("/products/{id:[0-9]+}", h(users.DeleteProductHandler)).Methods(http.MethodDelete)
	api.Handle("/sales", h(users.RecordSaleHandler)).Methods(http.MethodPost)
	api.Handle("/sales/stats", h(users.SalesStatsHandler)).Methods(http.MethodGet)
	api.Handle("/sales/recent", h(users.RecentSalesHandler)).Methods(http.MethodGet)

	// Whiteboards
	api.Handle("/whiteboards", h(users.ListWhiteboardsHandler)).Methods(http.MethodGet)
	api.Handle("/whiteboards", h(users.CreateWhiteboardHandler)).Methods(http.MethodPost)
	api.Handle("/whiteboards/{id:[0-9]+}", h(users.GetWhiteboardHandler)).Methods(http.MethodGet)
	api.Handle("/whiteboards/{id:[0-9]+}", h(users.UpdateWhiteboardHandler)).Methods(http.MethodPut)
	api.Handle("/whiteboards/{id:[0-9]+}", h(users.DeleteWhiteboardHandler)).Methods(http.MethodDelete)
}
