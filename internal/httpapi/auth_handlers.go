package httpapi

import (
	"net/http"
	"slices"
	"strings"
	"time"

	"orphanadmin/internal/audit"
	"orphanadmin/internal/auth"
)

type tokenRequest struct {
	User  string   `json:"user" validate:"required,max=64"`
	Roles []string `json:"roles" validate:"required,min=1,dive,required"`
}

type tokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

const tokenTTL = 15 * time.Minute

// handleAuthToken issues development tokens for known staff roles.
func (a *API) handleAuthToken(w http.ResponseWriter, r *http.Request) {
	req, err := bindJSON[tokenRequest](r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	user := strings.TrimSpace(req.User)
	if user == "" {
		writeError(w, r, http.StatusBadRequest, "user is required")
		return
	}
	roles := auth.ParseRoles(req.Roles)
	for _, role := range roles {
		if !slices.Contains(auth.KnownRoles, role) {
			writeError(w, r, http.StatusBadRequest, "unknown role "+string(role))
			return
		}
	}
	if len(roles) == 0 {
		writeError(w, r, http.StatusBadRequest, "roles are required")
		return
	}

	token, err := auth.GenerateToken(user, roles, tokenTTL)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "token generation failed")
		return
	}

	expiresAt := time.Now().UTC().Add(tokenTTL)
	_ = audit.LogEvent(r.Context(), audit.TokenIssued, map[string]any{
		"user":       user,
		"roles":      roles.Strings(),
		"expires_at": expiresAt.Format(time.RFC3339),
	})

	writeJSON(w, http.StatusOK, tokenResponse{
		Token:     token,
		ExpiresAt: expiresAt,
	})
}
