package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/lvt17/planex-be/utils"

	"github.com/golang-jwt/jwt/v5"
)

func unauthorized(w http.ResponseWriter, msg string) {
	utils.WriteJSON(w, http.StatusUnauthorized, utils.APIResponse{Success: false, Message: msg})
}

// AuthMiddleware requires a valid access token and puts the user id and role
// on the request context.
func AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenStr, ok := utils.BearerToken(r)
		if !ok && isStream(r) {
			// EventSource cannot send headers.
			tokenStr = r.URL.Query().Get("access_token")
			ok = tokenStr != ""
		}
		if !ok {
			unauthorized(w, "Unauthorized")
			return
		}
		claims, err := utils.ValidateAccessToken(tokenStr)
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				unauthorized(w, "Session expired, please sign in again")
				return
			}
			unauthorized(w, "Invalid token")
			return
		}
		userID, err := utils.ClaimUserID(claims)
		if err != nil {
			unauthorized(w, "Invalid token")
			return
		}
		role, _ := claims["role"].(string)

		ctx := context.WithValue(r.Context(), utils.UserIDKey, userID)
		ctx = context.WithValue(ctx, utils.UserRoleKey, role)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
