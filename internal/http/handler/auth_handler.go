package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sandeepkv93/booking-scheduler-backend/internal/http/response"
	"github.com/sandeepkv93/booking-scheduler-backend/internal/security"
	"github.com/sandeepkv93/booking-scheduler-backend/internal/service"
)

type AuthHandler struct {
	authSvc    service.AuthServiceInterface
	cookieMgr  *security.CookieManager
	refreshTTL time.Duration
	frontURL   string
	errs       ErrorWriter
}

func NewAuthHandler(authSvc service.AuthServiceInterface, cookieMgr *security.CookieManager, refreshTTL time.Duration, frontURL string, errs ErrorWriter) *AuthHandler {
	return &AuthHandler{
		authSvc:    authSvc,
		cookieMgr:  cookieMgr,
		refreshTTL: refreshTTL,
		frontURL:   strings.TrimRight(frontURL, "/"),
		errs:       errs,
	}
}

type registerRequest struct {
	Email           string     `json:"email" validate:"required,email,max=255"`
	Password        string     `json:"password" validate:"required,max=128"`
	FirstName       string     `json:"first_name" validate:"required,max=64"`
	LastName        string     `json:"last_name" validate:"required,max=64"`
	DateOfBirth     *time.Time `json:"date_of_birth"`
	Title           string     `json:"title" validate:"max=128"`
	Description     string     `json:"description" validate:"max=1024"`
	GenderID        uuid.UUID  `json:"gender_id"`
	AcceptTerms     bool       `json:"accept_terms"`
	AcceptMarketing bool       `json:"accept_marketing"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type emailRequest struct {
	Email string `json:"email" validate:"required"`
}

type resetPasswordRequest struct {
	UserID      uuid.UUID `json:"user_id" validate:"required"`
	ResetToken  string    `json:"reset_token" validate:"required"`
	NewPassword string    `json:"new_password" validate:"required,max=128"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,max=128"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	if req.DateOfBirth != nil {
		dob := req.DateOfBirth.UTC()
		req.DateOfBirth = &dob
	}
	result, err := h.authSvc.Register(r.Context(), service.RegisterInput{
		Email:           req.Email,
		Password:        req.Password,
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		DateOfBirth:     req.DateOfBirth,
		Title:           req.Title,
		Description:     req.Description,
		GenderID:        req.GenderID,
		AcceptTerms:     req.AcceptTerms,
		AcceptMarketing: req.AcceptMarketing,
	})
	if err != nil {
		audit(r, "auth.register", "user", "", "", err)
		h.errs.Write(w, r, err)
		return
	}
	audit(r, "auth.register", "user", result.User.ID.String(), result.User.ID.String(), nil)
	response.Message(w, r, http.StatusCreated, "account created, confirmation pending", result)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	result, err := h.authSvc.Login(r.Context(), req.Email, req.Password, clientIP(r))
	if err != nil {
		audit(r, "auth.login", "user", "", "", err)
		h.errs.Write(w, r, err)
		return
	}
	h.setRefreshCookie(w, result)
	audit(r, "auth.login", "user", result.User.ID.String(), result.User.ID.String(), nil)
	response.JSON(w, r, http.StatusOK, result)
}

// Refresh issues a new access token for the refresh cookie. The cookie itself is
// left untouched since the refresh token does not rotate on this path.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	refresh := security.GetCookie(r, security.RefreshCookieName)
	if refresh == "" {
		audit(r, "auth.refresh", "user", "", "", errors.New("missing_refresh_cookie"))
		response.Error(w, r, http.StatusUnauthorized, "missing refresh token", nil)
		return
	}
	result, err := h.authSvc.Refresh(r.Context(), refresh)
	if err != nil {
		audit(r, "auth.refresh", "user", "", "", err)
		h.errs.Write(w, r, err)
		return
	}
	audit(r, "auth.refresh", "user", result.User.ID.String(), result.User.ID.String(), nil)
	response.JSON(w, r, http.StatusOK, result)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	if err := h.authSvc.Logout(r.Context(), actor.UserID); err != nil {
		audit(r, "auth.logout", "user", actor.UserID.String(), actor.UserID.String(), err)
		h.errs.Write(w, r, err)
		return
	}
	h.cookieMgr.ClearRefreshCookie(w)
	audit(r, "auth.logout", "user", actor.UserID.String(), actor.UserID.String(), nil)
	response.Message(w, r, http.StatusOK, "logged out", nil)
}

func (h *AuthHandler) ConfirmEmail(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	userID, err := uuid.Parse(q.Get("userId"))
	if err != nil {
		response.Error(w, r, http.StatusBadRequest, "invalid userId", nil)
		return
	}
	token := q.Get("confirmationToken")
	if token == "" {
		response.Error(w, r, http.StatusBadRequest, "missing confirmationToken", nil)
		return
	}
	if err := h.authSvc.ConfirmEmail(r.Context(), userID, token); err != nil {
		audit(r, "auth.email.confirm", "user", "", userID.String(), err)
		h.errs.Write(w, r, err)
		return
	}
	audit(r, "auth.email.confirm", "user", userID.String(), userID.String(), nil)
	response.Message(w, r, http.StatusOK, "email confirmed", map[string]string{
		"redirect_url": h.frontURL + "/auth/email-confirmation-success",
	})
}

// ResendConfirmation answers the same way whether or not the email is known.
func (h *AuthHandler) ResendConfirmation(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	if err := h.authSvc.ResendConfirmation(r.Context(), req.Email); err != nil {
		audit(r, "auth.email.resend", "user", "", "", err)
		h.errs.Write(w, r, err)
		return
	}
	audit(r, "auth.email.resend", "user", "", "", nil)
	response.Message(w, r, http.StatusOK, "if the account exists and is pending, a confirmation email has been sent", nil)
}

func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	ticket, err := h.authSvc.ForgotPassword(r.Context(), req.Email, clientIP(r))
	if err != nil {
		audit(r, "auth.password.forgot", "user", "", "", err)
		h.errs.Write(w, r, err)
		return
	}
	audit(r, "auth.password.forgot", "user", "", ticket.UserID.String(), nil)
	response.Message(w, r, http.StatusOK, "password reset requested", ticket)
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	if err := h.authSvc.ResetPassword(r.Context(), req.UserID, req.ResetToken, req.NewPassword); err != nil {
		audit(r, "auth.password.reset", "user", "", req.UserID.String(), err)
		h.errs.Write(w, r, err)
		return
	}
	h.cookieMgr.ClearRefreshCookie(w)
	audit(r, "auth.password.reset", "user", req.UserID.String(), req.UserID.String(), nil)
	response.Message(w, r, http.StatusOK, "password updated", nil)
}

func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	var req changePasswordRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	result, err := h.authSvc.ChangePassword(r.Context(), actor.UserID, req.CurrentPassword, req.NewPassword)
	if err != nil {
		audit(r, "auth.password.change", "user", actor.UserID.String(), actor.UserID.String(), err)
		h.errs.Write(w, r, err)
		return
	}
	h.setRefreshCookie(w, result)
	audit(r, "auth.password.change", "user", actor.UserID.String(), actor.UserID.String(), nil)
	response.Message(w, r, http.StatusOK, "password changed", result)
}

func (h *AuthHandler) setRefreshCookie(w http.ResponseWriter, result *service.LoginResult) {
	ttl := time.Until(result.RefreshTokenExpiresAt)
	if ttl <= 0 {
		ttl = h.refreshTTL
	}
	h.cookieMgr.SetRefreshCookie(w, result.RefreshToken, ttl)
}
