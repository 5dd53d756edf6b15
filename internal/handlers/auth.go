package handlers

import (
	"encoding/json"
	"net/http"

	"chatdesk/internal/authtoken"
	"chatdesk/internal/logger"
	"chatdesk/internal/models"
	"chatdesk/internal/reqctx"
	"chatdesk/internal/services"
	"chatdesk/internal/utils/helpers"

	"github.com/gorilla/sessions"
	"go.uber.org/zap"
)

type AuthHandler struct {
	auth       *services.AuthService
	store      sessions.Store
	cookieName string
}

func NewAuthHandler(auth *services.AuthService, store sessions.Store, cookieName string) *AuthHandler {
	return &AuthHandler{auth: auth, store: store, cookieName: cookieName}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// writeResult answers with the façade Result, choosing the status from its kind.
func writeResult(w http.ResponseWriter, res services.Result, okStatus int) {
	if res.Success {
		helpers.JSON(w, okStatus, res)
		return
	}
	helpers.JSON(w, helpers.StatusFor(res.Kind), res)
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		logger.WithCtx(r.Context()).Info("Malformed JSON body", zap.String("path", r.URL.Path), zap.Error(err))
		helpers.JSON(w, http.StatusBadRequest, services.Result{Message: "invalid payload"})
		return false
	}
	return true
}

// Register godoc
// @Summary Register a new account
// @Tags auth
// @Accept json
// @Produce json
// @Param input body models.Registration true "Registration data"
// @Success 201 {object} services.Result
// @Failure 400 {object} services.Result
// @Failure 409 {object} services.Result
// @Router /api/register [post]
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.Registration
	if !decode(w, r, &req) {
		return
	}
	writeResult(w, h.auth.Register(r.Context(), req), http.StatusCreated)
}

// Login godoc
// @Summary Log in with username and password
// @Description Returns an opaque session token and also stores it in the cookie session.
// @Tags auth
// @Accept json
// @Produce json
// @Param input body loginRequest true "Credentials"
// @Success 200 {object} services.Result
// @Failure 401 {object} services.Result
// @Router /api/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decode(w, r, &req) {
		return
	}

	res := h.auth.Login(r.Context(), req.Username, req.Password)
	if res.Success && h.store != nil {
		if err := authtoken.Remember(w, r, h.store, h.cookieName, res.Token); err != nil {
			logger.WithCtx(r.Context()).Warn("Failed to store session cookie", zap.Error(err))
		}
	}
	writeResult(w, res, http.StatusOK)
}

// Logout godoc
// @Summary End the current session
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} services.Result
// @Failure 401 {object} services.Result
// @Failure 404 {object} services.Result
// @Router /api/logout [post]
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token, _ := authtoken.Token(r, h.store, h.cookieName)
	res := h.auth.Logout(r.Context(), token)

	if h.store != nil {
		if err := authtoken.Forget(w, r, h.store, h.cookieName); err != nil {
			logger.WithCtx(r.Context()).Warn("Failed to clear session cookie", zap.Error(err))
		}
	}
	writeResult(w, res, http.StatusOK)
}

// Session godoc
// @Summary Check whether a session token is valid
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Param token query string false "Session token"
// @Success 200 {object} services.Result
// @Failure 401 {object} services.Result
// @Router /api/session [get]
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	token, _ := authtoken.Token(r, h.store, h.cookieName)
	writeResult(w, h.auth.ValidateSession(r.Context(), token), http.StatusOK)
}

// Profile godoc
// @Summary Current user's profile
// @Tags profile
// @Produce json
// @Security BearerAuth
// @Success 200 {object} services.Result
// @Failure 401 {object} services.Result
// @Router /api/profile [get]
func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	userID, ok := reqctx.GetUserID(r.Context())
	if !ok {
		helpers.JSON(w, http.StatusUnauthorized, services.Result{Message: "unauthorized"})
		return
	}
	writeResult(w, h.auth.Profile(r.Context(), userID), http.StatusOK)
}

// UpdateProfile godoc
// @Summary Update email, display name or phone
// @Tags profile
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param input body models.ProfileUpdate true "Fields to change"
// @Success 200 {object} services.Result
// @Failure 400 {object} services.Result
// @Failure 409 {object} services.Result
// @Router /api/profile [patch]
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := reqctx.GetUserID(r.Context())
	if !ok {
		helpers.JSON(w, http.StatusUnauthorized, services.Result{Message: "unauthorized"})
		return
	}

	var req models.ProfileUpdate
	if !decode(w, r, &req) {
		return
	}
	writeResult(w, h.auth.UpdateProfile(r.Context(), userID, req), http.StatusOK)
}
