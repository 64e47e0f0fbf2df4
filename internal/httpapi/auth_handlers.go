package httpapi

import (
	"errors"
	"net/http"
	"time"

	"gocredo.org/internal/audit"
	"gocredo.org/internal/auth"
)

type signupRequest struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	Password     string `json:"password"`
	ConsentGiven bool   `json:"consentGiven"`
	// Accepted for wire compatibility with the portal frontend; public signup
	// ignores it and always creates a patient account.
	Role string `json:"role"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type accountPayload struct {
	ID    string    `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
	Role  auth.Role `json:"role"`
}

type loginAccountPayload struct {
	accountPayload
	AccountWarning bool `json:"accountWarning"`
}

type authResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      any       `json:"user"`
}

func (a *API) handleSignup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req signupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	creds, err := a.auth.Signup(r.Context(), auth.SignupInput{
		Name:         req.Name,
		Email:        req.Email,
		Password:     req.Password,
		ConsentGiven: req.ConsentGiven,
	}, originFromRequest(r))
	if err != nil {
		a.handleAuthError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, authResponse{
		Token:     creds.Token,
		ExpiresAt: creds.ExpiresAt,
		User:      publicAccount(creds.Account),
	})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	creds, err := a.auth.Login(r.Context(), req.Email, req.Password, originFromRequest(r))
	if err != nil {
		a.handleAuthError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, authResponse{
		Token:     creds.Token,
		ExpiresAt: creds.ExpiresAt,
		User: loginAccountPayload{
			accountPayload: publicAccount(creds.Account),
			AccountWarning: creds.Account.AccountWarning,
		},
	})
}

// handleProvision creates provider or admin accounts. Reachable only through
// the admin role guard; public signup cannot assign privileged roles.
func (a *API) handleProvision(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req signupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	creds, err := a.auth.ProvisionAccount(r.Context(), auth.SignupInput{
		Name:         req.Name,
		Email:        req.Email,
		Password:     req.Password,
		Role:         auth.Role(req.Role),
		ConsentGiven: req.ConsentGiven,
	}, originFromRequest(r))
	if err != nil {
		a.handleAuthError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, authResponse{
		Token:     creds.Token,
		ExpiresAt: creds.ExpiresAt,
		User:      publicAccount(creds.Account),
	})
}

// handleAuthError maps the auth error taxonomy onto status codes. Every
// login failure cause shares one 401 message so the response cannot leak
// whether the email exists.
func (a *API) handleAuthError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrValidation):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, auth.ErrConflict):
		writeError(w, r, http.StatusConflict, "email already registered")
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, r, http.StatusUnauthorized, "invalid credentials")
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}

func publicAccount(account auth.Account) accountPayload {
	return accountPayload{
		ID:    account.ID,
		Name:  account.Name,
		Email: account.Email,
		Role:  account.Role,
	}
}

func originFromRequest(r *http.Request) audit.Origin {
	return audit.Origin{
		IP:        clientIP(r),
		UserAgent: r.UserAgent(),
	}
}
