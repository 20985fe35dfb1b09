package web

import (
	"net/http"
	"time"

	"github.com/conorfennell/qbank/internal/auth"
	"github.com/conorfennell/qbank/internal/domain"
)

const (
	refreshCookie     = "refresh_token"
	refreshCookiePath = "/v1/auth"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type accountResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

type tokenResponse struct {
	accountResponse
	AccessToken    string    `json:"access_token"`
	RefreshToken   string    `json:"refresh_token"`
	AccessExpires  time.Time `json:"access_expires_at"`
	RefreshExpires time.Time `json:"refresh_expires_at"`
}

func toAccountResponse(a *domain.Account) accountResponse {
	return accountResponse{ID: a.ID, Email: a.Email, CreatedAt: a.CreatedAt}
}

func (s *Server) handleRegister() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req credentialsRequest
		if err := decodeJSON(w, r, &req); err != nil {
			s.writeError(w, r, err)
			return
		}
		a, err := s.deps.Auth.Register(r.Context(), req.Email, req.Password)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.logger.Info("account registered", "account_id", a.ID)
		writeJSON(w, http.StatusCreated, toAccountResponse(a))
	}
}

func (s *Server) handleLogin() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req credentialsRequest
		if err := decodeJSON(w, r, &req); err != nil {
			s.writeError(w, r, err)
			return
		}
		a, tokens, err := s.deps.Auth.Login(r.Context(), req.Email, req.Password)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.setTokenCookies(w, tokens)
		writeJSON(w, http.StatusOK, tokenResponse{
			accountResponse: toAccountResponse(a),
			AccessToken:     tokens.Access,
			RefreshToken:    tokens.Refresh,
			AccessExpires:   tokens.AccessExpires,
			RefreshExpires:  tokens.RefreshExpires,
		})
	}
}

func (s *Server) handleRefresh() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := ""
		if c, err := r.Cookie(refreshCookie); err == nil {
			token = c.Value
		} else {
			var req struct {
				RefreshToken string `json:"refresh_token"`
			}
			// A missing or malformed body leaves the token empty, which
			// Refresh reports as unauthenticated.
			if err := decodeJSON(w, r, &req); err == nil {
				token = req.RefreshToken
			}
		}

		tokens, err := s.deps.Auth.Refresh(r.Context(), token)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.setTokenCookies(w, tokens)
		writeJSON(w, http.StatusOK, map[string]any{
			"access_token":       tokens.Access,
			"refresh_token":      tokens.Refresh,
			"access_expires_at":  tokens.AccessExpires,
			"refresh_expires_at": tokens.RefreshExpires,
		})
	}
}

func (s *Server) handleLogout() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, s.cookie(accessCookie, "", "/", -1))
		http.SetCookie(w, s.cookie(refreshCookie, "", refreshCookiePath, -1))
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleMe() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, err := s.deps.Auth.Account(r.Context(), accountID(r))
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toAccountResponse(a))
	}
}

func (s *Server) setTokenCookies(w http.ResponseWriter, t auth.Tokens) {
	http.SetCookie(w, s.cookie(accessCookie, t.Access, "/", int(s.opts.AccessTTL.Seconds())))
	http.SetCookie(w, s.cookie(refreshCookie, t.Refresh, refreshCookiePath, int(s.opts.RefreshTTL.Seconds())))
}

func (s *Server) cookie(name, value, path string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.opts.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}
