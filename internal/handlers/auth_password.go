package handlers

import (
	"net/http"

	"chatdesk/internal/reqctx"
	"chatdesk/internal/services"
	"chatdesk/internal/utils/helpers"
)

type PasswordHandler struct {
	auth *services.AuthService
}

func NewPasswordHandler(auth *services.AuthService) *PasswordHandler {
	return &PasswordHandler{auth: auth}
}

type forgotReq struct {
	Email string `json:"email"`
}

// Forgot godoc
// @Summary Request a password reset
// @Description Mails a reset link. By default the answer is the same whether or not the email is registered.
// @Tags password
// @Accept json
// @Produce json
// @Param input body forgotReq true "Account email"
// @Success 200 {object} services.Result
// @Failure 400 {object} services.Result
// @Router /api/password/forgot [post]
func (h *PasswordHandler) Forgot(w http.ResponseWriter, r *http.Request) {
	var req forgotReq
	if !decode(w, r, &req) {
		return
	}
	writeResult(w, h.auth.RequestPasswordReset(r.Context(), req.Email), http.StatusOK)
}

type validateReq struct {
	Token string `json:"token"`
}

// Validate godoc
// @Summary Check a reset token before showing the new-password form
// @Tags password
// @Accept json
// @Produce json
// @Param input body validateReq true "Reset token"
// @Success 200 {object} services.Result
// @Failure 401 {object} services.Result
// @Router /api/password/validate [post]
func (h *PasswordHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req validateReq
	if !decode(w, r, &req) {
		return
	}
	writeResult(w, h.auth.ValidateResetToken(r.Context(), req.Token), http.StatusOK)
}

type resetReq struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// Reset godoc
// @Summary Set a new password with a reset token
// @Description The token is single use. All sessions of the account are ended.
// @Tags password
// @Accept json
// @Produce json
// @Param input body resetReq true "Token and new password"
// @Success 200 {object} services.Result
// @Failure 400 {object} services.Result
// @Failure 401 {object} services.Result
// @Router /api/password/reset [post]
func (h *PasswordHandler) Reset(w http.ResponseWriter, r *http.Request) {
	var req resetReq
	if !decode(w, r, &req) {
		return
	}
	writeResult(w, h.auth.ResetPassword(r.Context(), req.Token, req.NewPassword), http.StatusOK)
}

type changeReq struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// Change godoc
// @Summary Change the password of the logged-in user
// @Tags password
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param input body changeReq true "Current and new password"
// @Success 200 {object} services.Result
// @Failure 400 {object} services.Result
// @Failure 401 {object} services.Result
// @Router /api/password/change [post]
func (h *PasswordHandler) Change(w http.ResponseWriter, r *http.Request) {
	userID, ok := reqctx.GetUserID(r.Context())
	if !ok {
		helpers.JSON(w, http.StatusUnauthorized, services.Result{Message: "unauthorized"})
		return
	}

	var req changeReq
	if !decode(w, r, &req) {
		return
	}
	writeResult(w, h.auth.ChangePassword(r.Context(), userID, req.CurrentPassword, req.NewPassword), http.StatusOK)
}
