package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/bestflix/backend/internal/apperr"
	"github.com/bestflix/backend/internal/auth"
	"github.com/bestflix/backend/internal/logging"
)

const (
	registeredMessage = "User registered successfully"
	resetSentMessage  = "Reset link sent if email exists"
	resetDoneMessage  = "Password successfully reset"
)

// AuthHandler implements the account endpoints.
type AuthHandler struct {
	Auth    Authenticator
	Resets  PasswordResetter
	Limiter RateLimiter
	Proxies TrustedProxies
	// ExposeResetToken echoes issued reset tokens in the forgot-password response.
	ExposeResetToken bool
}

// Register handles POST /register requests.
func (h AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	if rejectLimited(h.Limiter, h.Proxies, w, r, "register") {
		return
	}

	var req auth.Registration
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	user, err := h.Auth.Register(r.Context(), req)
	if err != nil {
		respondError(w, r, err)
		return
	}

	logging.FromContext(r.Context()).Info("registration completed", "userId", user.ID)
	respondJSON(r.Context(), w, http.StatusCreated, messageResponse{Message: registeredMessage})
}

// Login handles POST /login requests.
func (h AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	if rejectLimited(h.Limiter, h.Proxies, w, r, "login") {
		return
	}

	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	token, err := h.Auth.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(r.Context(), w, http.StatusOK, loginResponse{Token: token})
}

// ForgotPassword handles POST /forgot-password requests. Unknown addresses get
// the same response as known ones.
func (h AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	if rejectLimited(h.Limiter, h.Proxies, w, r, "forgot-password") {
		return
	}

	ctx := r.Context()
	var req forgotPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Email) == "" {
		respondError(w, r, apperr.Validation("email: Email cannot be empty"))
		return
	}

	token, err := h.Resets.RequestReset(ctx, req.Email)
	if err != nil {
		if !errors.Is(err, apperr.ErrUserNotFound) {
			respondError(w, r, err)
			return
		}
		logging.FromContext(ctx).Info("password reset requested for unknown email")
	}

	resp := forgotPasswordResponse{Message: resetSentMessage}
	if h.ExposeResetToken {
		resp.Token = token
	}
	respondJSON(ctx, w, http.StatusOK, resp)
}

// ResetPassword handles POST /reset-password requests.
func (h AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	if rejectLimited(h.Limiter, h.Proxies, w, r, "reset-password") {
		return
	}

	var req resetPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	if err := h.Resets.ConsumeReset(r.Context(), strings.TrimSpace(req.Token), req.NewPassword); err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(r.Context(), w, http.StatusOK, messageResponse{Message: resetDoneMessage})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type forgotPasswordResponse struct {
	Message string `json:"message"`
	Token   string `json:"token,omitempty"`
}

type resetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}
