package api

import (
	"encoding/json"
	"net/http"

	"github.com/cryotrack/cryotrack-core/internal/auth"
)

type loginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string    `json:"token"`
	User  loginUser `json:"user"`
}

type loginUser struct {
	Name    string `json:"name"`
	Role    string `json:"role"`
	Company string `json:"company"`
}

// handleLogin authenticates a username/password pair and issues an access
// token. Every failure answers the same generic message: a rate-limited
// caller cannot tell the limit from a wrong password, and a wrong username
// looks identical to a wrong password.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "missing login credentials")
		return
	}
	if req.Login == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "missing login credentials")
		return
	}

	user, err := s.auth.Login(r.Context(), req.Login, req.Password, sourceAddr(r))
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid username or password")
		return
	}

	token, err := auth.GenerateAccessToken(user, s.secCfg.JWT.Secret, s.secCfg.JWT.AccessTokenTTL)
	if err != nil {
		s.logger.Error("token generation failed", "username", user.Username, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeSuccess(w, http.StatusOK, loginResponse{
		Token: token,
		User: loginUser{
			Name:    user.Username,
			Role:    string(user.Role),
			Company: user.Company,
		},
	})
}

// handleMe returns the caller's resolved access, as carried by the token.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	access := accessFrom(r)
	writeSuccess(w, http.StatusOK, map[string]string{
		"role":    access.Role,
		"company": access.Company,
	})
}
