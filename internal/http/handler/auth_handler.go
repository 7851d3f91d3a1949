package handler

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/devfolio/devfolio-server/internal/domain"
	"github.com/devfolio/devfolio-server/internal/http/middleware"
	"github.com/devfolio/devfolio-server/internal/http/response"
	"github.com/devfolio/devfolio-server/internal/observability"
	"github.com/devfolio/devfolio-server/internal/repository"
	"github.com/devfolio/devfolio-server/internal/security"
	"github.com/devfolio/devfolio-server/internal/service"
)

const oauthStateCookie = "oauth_state"

type AuthHandler struct {
	auth         service.AuthServiceInterface
	oauth        service.OAuthServiceInterface
	accessTTL    time.Duration
	refreshTTL   time.Duration
	cookieSecure bool
}

// NewAuthHandler wires the auth endpoints. oauth may be nil when Google
// login is not configured; its endpoints then answer 404.
func NewAuthHandler(auth service.AuthServiceInterface, oauth service.OAuthServiceInterface, accessTTL, refreshTTL time.Duration, cookieSecure bool) *AuthHandler {
	return &AuthHandler{auth: auth, oauth: oauth, accessTTL: accessTTL, refreshTTL: refreshTTL, cookieSecure: cookieSecure}
}

type userView struct {
	ID           uint   `json:"id"`
	LoginID      string `json:"login_id"`
	Email        string `json:"email"`
	Nickname     string `json:"nickname"`
	AuthProvider string `json:"auth_provider"`
}

func newUserView(u *domain.User) userView {
	return userView{ID: u.ID, LoginID: u.LoginID, Email: u.Email, Nickname: u.Nickname, AuthProvider: u.AuthProvider}
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", nil)
		return
	}
	if fields := req.validate(); fields != nil {
		response.ValidationError(w, r, fields)
		return
	}

	user, err := h.auth.Register(req.LoginID, req.Password, req.Email, req.Nickname)
	if err != nil {
		if errors.Is(err, repository.ErrLoginIDTaken) {
			response.Error(w, r, http.StatusConflict, "CONFLICT", "login id already taken", nil)
			return
		}
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "could not create account", nil)
		return
	}
	observability.Audit(r, "auth.signup", "user_id", user.ID)
	response.JSON(w, r, http.StatusCreated, newUserView(user))
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", nil)
		return
	}
	if fields := req.validate(); fields != nil {
		response.ValidationError(w, r, fields)
		return
	}

	user, pair, err := h.auth.Login(req.LoginID, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			observability.RecordAuthLogin("local", "failure")
			response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "invalid credentials", nil)
			return
		}
		observability.RecordAuthLogin("local", "error")
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "login failed", nil)
		return
	}

	h.installTokenPair(w, pair)
	observability.RecordAuthLogin("local", "success")
	observability.Audit(r, "auth.login", "user_id", user.ID, "provider", "local")
	response.JSON(w, r, http.StatusOK, map[string]any{
		"user":     newUserView(user),
		"token_id": pair.TokenID,
	})
}

// Refresh rotates the refresh credential presented as the token-id header
// plus the RT cookie. Every failure is the same 401; the client's only
// recovery is a fresh login.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	tokenID := r.Header.Get(security.TokenIDHeader)
	raw := security.GetCookie(r, security.RefreshTokenCookie)
	if tokenID == "" || raw == "" {
		observability.RecordAuthRefresh("missing_credential")
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "invalid refresh token", nil)
		return
	}

	user, pair, err := h.auth.Refresh(tokenID, raw)
	if err != nil {
		if errors.Is(err, service.ErrInvalidRefreshToken) {
			observability.RecordAuthRefresh("failure")
			h.expireTokenCookies(w)
			response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "invalid refresh token", nil)
			return
		}
		observability.RecordAuthRefresh("error")
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "refresh failed", nil)
		return
	}

	h.installTokenPair(w, pair)
	observability.RecordAuthRefresh("success")
	observability.Audit(r, "auth.refresh", "user_id", user.ID)
	response.JSON(w, r, http.StatusOK, map[string]any{
		"user":     newUserView(user),
		"token_id": pair.TokenID,
	})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	tokenID := r.Header.Get(security.TokenIDHeader)
	if tokenID != "" {
		if err := h.auth.Logout(userID, tokenID); err != nil {
			observability.RecordAuthLogout("error")
			response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "logout failed", nil)
			return
		}
	}
	h.expireTokenCookies(w)
	observability.RecordAuthLogout("success")
	observability.Audit(r, "auth.logout", "user_id", userID)
	response.JSON(w, r, http.StatusOK, map[string]string{"status": "logged_out"})
}

func (h *AuthHandler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	if h.oauth == nil {
		response.Error(w, r, http.StatusNotFound, "NOT_FOUND", "google login is not configured", nil)
		return
	}
	state, err := newOAuthState()
	if err != nil {
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "could not start login", nil)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   300,
	})
	http.Redirect(w, r, h.oauth.GoogleLoginURL(state), http.StatusFound)
}

func (h *AuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	if h.oauth == nil {
		response.Error(w, r, http.StatusNotFound, "NOT_FOUND", "google login is not configured", nil)
		return
	}
	state := r.URL.Query().Get("state")
	if state == "" || state != security.GetCookie(r, oauthStateCookie) {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "invalid oauth state", nil)
		return
	}
	security.ExpireCookie(w, oauthStateCookie, h.cookieSecure)

	user, err := h.oauth.HandleGoogleCallback(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		observability.RecordAuthLogin("google", "failure")
		observability.Audit(r, "auth.google.callback_failed", "reason", err.Error())
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "google login failed", nil)
		return
	}
	pair, err := h.auth.IssuePair(user)
	if err != nil {
		observability.RecordAuthLogin("google", "error")
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "login failed", nil)
		return
	}

	h.installTokenPair(w, pair)
	observability.RecordAuthLogin("google", "success")
	observability.Audit(r, "auth.login", "user_id", user.ID, "provider", "google")
	response.JSON(w, r, http.StatusOK, map[string]any{
		"user":     newUserView(user),
		"token_id": pair.TokenID,
	})
}

// Me returns the authenticated caller, resolved purely from token claims.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing access token", nil)
		return
	}
	userID, err := claims.UserID()
	if err != nil {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "invalid access token", nil)
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]any{
		"id":            userID,
		"login_id":      claims.LoginID,
		"auth_provider": claims.AuthProvider,
	})
}

func (h *AuthHandler) installTokenPair(w http.ResponseWriter, pair *service.TokenPair) {
	security.SetAccessTokenCookie(w, pair.AccessToken, h.accessTTL, h.cookieSecure)
	security.SetRefreshTokenCookie(w, pair.RefreshToken, h.refreshTTL, h.cookieSecure)
}

func (h *AuthHandler) expireTokenCookies(w http.ResponseWriter) {
	security.ExpireCookie(w, security.AccessTokenCookie, h.cookieSecure)
	security.ExpireCookie(w, security.RefreshTokenCookie, h.cookieSecure)
}

func newOAuthState() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
