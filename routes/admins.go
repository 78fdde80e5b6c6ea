package routes

import (
	"net/http"

	"github.com/lvt17/planex-be/controllers/admins"
	"github.com/lvt17/planex-be/middleware"

	"github.com/gorilla/mux"
)

// SetAdminRoutes registers the platform admin API. Admins sign in through the
// normal login; the subrouter checks the JWT role and the stored flag.
func SetAdminRoutes(api *mux.Router) {
	adminRouter := api.PathPrefix("/admin").Subrouter()
	adminRouter.Use(middleware.AuthMiddleware, middleware.AdminAuthMiddleware)

	// Dashboard stats
	adminRouter.Handle("/dashboard", http.HandlerFunc(admins.GetDashboardStats)).Methods(http.MethodGet)

	// User management
	adminRouter.Handle("/users", http.HandlerFunc(admins.GetUsers)).Methods(http.MethodGet)
	adminRouter.Handle("/users/{id:[0-9]+}", http.HandlerFunc(admins.GetUserDetail)).Methods(http.MethodGet)
	adminRouter.Handle("/users/{id:[0-9]+}/admin", http.HandlerFunc(admins.SetPlatformAdminHandler)).Methods(http.MethodPut)
	adminRouter.Handle("/users/{id:[0-9]+}/lock", http.HandlerFunc(admins.LockUserHandler)).Methods(http.MethodPost)
	adminRouter.Handle("/users/{id:[0-9]+}/unlock", http.HandlerFunc(admins.UnlockUserHandler)).Methods(http.MethodPost)
	adminRouter.Handle("/users/{id:[0-9]+}", http.HandlerFunc(admins.DeleteUserHandler)).Methods(http.MethodDelete)

	// Badge management
	adminRouter.Handle("/badges", http.HandlerFunc(admins.ListBadgesHandler)).Methods(http.MethodGet)
	adminRouter.Handle("/badges", http.HandlerFunc(admins.CreateBadgeHandler)).Methods(http.MethodPost)
	adminRouter.Handle("/badges/assign", http.HandlerFunc(admins.AssignBadgeHandler)).Methods(http.MethodPost)
	adminRouter.Handle("/badges/assignments", http.HandlerFunc(admins.ListAssignmentsHandler)).Methods(http.MethodGet)
	adminRouter.Handle("/badges/assignments/{id:[0-9]+}", http.HandlerFunc(admins.RemoveAssignmentHandler)).Methods(http.MethodDelete)
	adminRouter.Handle("/badges/{id:[0-9]+}", http.HandlerFunc(admins.GetBadgeHandler)).Methods(http.MethodGet)
	adminRouter.Handle("/badges/{id:[0-9]+}", http.HandlerFunc(admins.UpdateBadgeHandler)).Methods(http.MethodPut)
	adminRouter.Handle("/badges/{id:[0-9]+}", http.HandlerFunc(admins.DeleteBadgeHandler)).Methods(http.MethodDelete)
}
