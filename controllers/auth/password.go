package auth

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lvt17/planex-be/config"
	"github.com/lvt17/planex-be/database"
	"github.com/lvt17/planex-be/middleware"
	"github.com/lvt17/planex-be/services"
	"github.com/lvt17/planex-be/utils"

	"go.uber.org/zap"
)

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Token           string `json:"token" validate:"required"`
	Password        string `json:"password" validate:"required,pwdmin"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=Password"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,pwdmin"`
}

const forgotPasswordMessage = "If the email is registered, a reset link has been sent"

// ForgotPasswordHandler always answers 200 so registered emails cannot be
// discovered. The reset link is mailed in the background.
func ForgotPasswordHandler(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}

	user, err := services.FindUserByIdentifier(database.DB, strings.ToLower(strings.TrimSpace(req.Email)))
	if err == nil && user.Email != "" {
		token, err := utils.GeneratePasswordResetToken(user.ID)
		if err != nil {
			zap.L().Warn("reset token generation failed", zap.Uint("user_id", user.ID), zap.Error(err))
		} else {
			link := fmt.Sprintf("%s/reset-password?token=%s", config.Get().FrontendURL, url.QueryEscape(token))
			utils.SendMailAsync(user.Email, "Reset your Planex password",
				fmt.Sprintf("We received a request to reset your password.\n\nOpen this link within one hour:\n%s\n\nIf you did not ask for this, ignore this email.\n", link))
		}
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: forgotPasswordMessage})
}

// ResetPasswordHandler sets a new password from a reset token. The token is
// single use: its jti is revoked on success.
func ResetPasswordHandler(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}

	uid, jti, expAt, err := utils.ParsePasswordResetToken(req.Token)
	if err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Reset link is invalid or expired"})
		return
	}
	if err := services.ResetPassword(database.DB, uid, req.Password); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	if jti != "" {
		if err := utils.RevokeJTI(jti, time.Until(expAt)); err != nil {
			zap.L().Warn("reset token revocation failed", zap.Uint("user_id", uid), zap.Error(err))
		}
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Password has been reset, please sign in again"})
}

func ChangePasswordHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := utils.GetUserID(r)
	if !ok {
		utils.WriteJSON(w, http.StatusUnauthorized, utils.APIResponse{Success: false, Message: "Unauthorized"})
		return
	}
	var req ChangePasswordRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}
	if err := services.ChangePassword(database.DB, uid, req.CurrentPassword, req.NewPassword); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Password changed"})
}
