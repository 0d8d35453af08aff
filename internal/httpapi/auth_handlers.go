package httpapi

import (
	"net/http"
	"time"

	"rollbook.org/internal/audit"
	"rollbook.org/internal/school"
)

type signupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type tokenRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func (a *API) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	principal, err := a.svc.Signup(r.Context(), school.SignupInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		a.handleServiceError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "auth.signup", map[string]any{
		"user_id": principal.ID,
		"email":   principal.Email,
		"role":    string(principal.Role),
	})

	writeJSON(w, http.StatusCreated, principal)
}

func (a *API) handleToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	grant, err := a.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		a.handleServiceError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "auth.token.issued", map[string]any{
		"user_id":    grant.Principal.ID,
		"expires_at": grant.ExpiresAt.Format(time.RFC3339),
	})

	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken: grant.Token,
		TokenType:   "bearer",
		ExpiresAt:   grant.ExpiresAt,
	})
}
