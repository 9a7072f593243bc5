package handler

import (
	"log/slog"
	"net/http"

	"github.com/foodshare/pickup-api/internal/auth"
	"github.com/foodshare/pickup-api/internal/model"
	"github.com/foodshare/pickup-api/internal/service"
)

// AuthHandler manages sign-up, login sessions, email verification and
// password reset.
//
// HANDLER RESPONSIBILITIES:
//   - HandleRegister       → create an unverified account, email the link
//   - HandleLogin          → check credentials, set the session cookie
//   - HandleLogout         → delete the session, clear the cookie
//   - HandleVerifyEmail    → consume a verification token
//   - HandleForgotPassword → email a reset link (same answer for unknown emails)
//   - HandleResetPassword  → consume a reset token, set the new password
//   - HandleMe             → return the logged-in user
type AuthHandler struct {
	auth   *service.AuthService
	logger *slog.Logger
	// secureCookies is on in production, where the site is HTTPS-only.
	secureCookies bool
}

func NewAuthHandler(authSvc *service.AuthService, secureCookies bool, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{auth: authSvc, secureCookies: secureCookies, logger: logger}
}

type registerRequest struct {
	Email           string  `json:"email" validate:"required,email"`
	Password        string  `json:"password" validate:"required,min=8,max=72"`
	ConfirmPassword string  `json:"confirmPassword" validate:"omitempty,eqfield=Password"`
	Role            string  `json:"role" validate:"required,oneof=volunteer ngo"`
	FirstName       string  `json:"firstName" validate:"required,max=100"`
	LastName        string  `json:"lastName" validate:"required,max=100"`
	Phone           string  `json:"phone" validate:"required,max=40"`
	Address         *string `json:"address" validate:"omitempty,max=200"`
	City            *string `json:"city" validate:"omitempty,max=100"`
	State           *string `json:"state" validate:"omitempty,max=100"`
	ZipCode         *string `json:"zipCode" validate:"omitempty,max=20"`
	Country         *string `json:"country" validate:"omitempty,max=100"`
	Availability    *string `json:"availability" validate:"omitempty,max=500"`

	OrganizationName string `json:"organizationName" validate:"required_if=Role ngo,max=200"`
	Description      string `json:"description" validate:"max=2000"`
	Website          string `json:"website" validate:"omitempty,url,max=200"`
}

// HandleRegister creates an account.
//
// HTTP: POST /api/register
// 201 {"message": "..."} on success; 400 when the email is taken or a
// field is invalid.
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	_, err := h.auth.Register(r.Context(), service.RegisterInput{
		Email:            req.Email,
		Password:         req.Password,
		Role:             model.Role(req.Role),
		FirstName:        req.FirstName,
		LastName:         req.LastName,
		Phone:            req.Phone,
		Address:          req.Address,
		City:             req.City,
		State:            req.State,
		ZipCode:          req.ZipCode,
		Country:          req.Country,
		Availability:     req.Availability,
		OrganizationName: req.OrganizationName,
		Description:      req.Description,
		Website:          req.Website,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeMessage(w, http.StatusCreated, "Registration successful. Please check your email to verify your account.")
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// HandleLogin opens a session.
//
// HTTP: POST /api/login
// 200 with the user object and a Set-Cookie for the session; 401 for bad
// credentials or an unverified account.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	auth.SetSessionCookie(w, result.Token, h.auth.SessionTTL(), h.secureCookies)
	writeJSON(w, http.StatusOK, result.User)
}

// HandleLogout ends the session.
//
// HTTP: POST /api/logout
//
// WHY POST AND NOT GET?
// Logout changes state. A GET could be triggered by a prefetch or an
// <img> tag on another site.
//
// The cookie is cleared even if deleting the session row fails.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	var token string
	if c, err := r.Cookie(auth.SessionCookieName); err == nil {
		token = c.Value
	}

	auth.ClearSessionCookie(w, h.secureCookies)

	if err := h.auth.Logout(r.Context(), token); err != nil {
		writeError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "Logged out successfully")
}

// HandleVerifyEmail consumes the link from the verification email.
//
// HTTP: GET /api/verify-email?token=...
func (h *AuthHandler) HandleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	if _, err := h.auth.VerifyEmail(r.Context(), r.URL.Query().Get("token")); err != nil {
		writeError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "Email verified successfully")
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

// HandleForgotPassword answers identically whether or not the email is
// registered, so the endpoint cannot be used to discover accounts.
//
// HTTP: POST /api/forgot-password
func (h *AuthHandler) HandleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	if err := h.auth.RequestPasswordReset(r.Context(), req.Email); err != nil {
		writeError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "If your email is registered, you will receive a password reset link")
}

type resetPasswordRequest struct {
	Token           string `json:"token"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword" validate:"omitempty,eqfield=Password"`
}

// HandleResetPassword sets a new password from a reset link.
//
// HTTP: POST /api/reset-password
func (h *AuthHandler) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	if err := h.auth.ResetPassword(r.Context(), req.Token, req.Password); err != nil {
		writeError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "Password reset successfully")
}

// HandleMe returns the currently authenticated user.
//
// HTTP: GET /api/user
// Auth: Required (RequireAuth has already put the user in the context)
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		// Should never happen on a RequireAuth-protected route, but be safe.
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "Not authenticated"})
		return
	}
	writeJSON(w, http.StatusOK, user)
}
