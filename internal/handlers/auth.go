package handlers

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"ideaboard/internal/config"
	"ideaboard/internal/metrics"
	"ideaboard/internal/middleware"
	"ideaboard/internal/services"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
)

const (
	fortyTwoAuthURL    = "https://api.intra.42.fr/oauth/authorize"
	fortyTwoTokenURL   = "https://api.intra.42.fr/oauth/token"
	fortyTwoProfileURL = "https://api.intra.42.fr/v2/me"

	oauthStateKey = "oauth_state"
)

// FortyTwoProfile is the part of /v2/me the login needs
type FortyTwoProfile struct {
	ID    int64  `json:"id"`
	Login string `json:"login"`
}

// AuthHandler drives the 42 intranet OAuth login and the session endpoints
type AuthHandler struct {
	users       *services.UserService
	metrics     metrics.Recorder
	oauth       *oauth2.Config
	profileURL  string
	frontendURL string
}

func NewAuthHandler(cfg *config.Config, users *services.UserService, recorder metrics.Recorder) *AuthHandler {
	if recorder == nil {
		recorder = metrics.Noop{}
	}
	h := &AuthHandler{
		users:       users,
		metrics:     recorder,
		profileURL:  fortyTwoProfileURL,
		frontendURL: strings.TrimRight(cfg.FrontendURL, "/"),
	}
	if cfg.OAuthConfigured() {
		h.oauth = &oauth2.Config{
			ClientID:     cfg.FortyTwoClientID,
			ClientSecret: cfg.FortyTwoClientSecret,
			RedirectURL:  cfg.FortyTwoCallbackURL,
			Scopes:       []string{"public"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  fortyTwoAuthURL,
				TokenURL: fortyTwoTokenURL,
			},
		}
	} else {
		logrus.Warn("42 OAuth environment variables not set (FORTY_TWO_CLIENT_ID, FORTY_TWO_CLIENT_SECRET). Login disabled.")
	}
	return h
}

// generateStateToken 生成随机 state token
func generateStateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// Login GET /api/auth/42
func (h *AuthHandler) Login(c *gin.Context) {
	if h.oauth == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "42 OAuth strategy not configured. Please set FORTY_TWO_CLIENT_ID and FORTY_TWO_CLIENT_SECRET in .env"})
		return
	}

	state, err := generateStateToken()
	if err != nil {
		respondError(c, fmt.Errorf("generate oauth state: %w", err))
		return
	}

	session := sessions.Default(c)
	session.Set(oauthStateKey, state)
	if err := session.Save(); err != nil {
		respondError(c, fmt.Errorf("save session: %w", err))
		return
	}

	c.Redirect(http.StatusTemporaryRedirect, h.oauth.AuthCodeURL(state))
}

// Callback GET /api/auth/42/callback
func (h *AuthHandler) Callback(c *gin.Context) {
	if h.oauth == nil {
		c.String(http.StatusInternalServerError, "42 OAuth strategy not configured")
		return
	}

	session := sessions.Default(c)
	savedState, _ := session.Get(oauthStateKey).(string)
	session.Delete(oauthStateKey)

	if savedState == "" || c.Query("state") != savedState {
		h.loginFailed(c, session, "invalid oauth state", nil)
		return
	}

	code := c.Query("code")
	if code == "" {
		h.loginFailed(c, session, "missing authorization code", nil)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	token, err := h.oauth.Exchange(ctx, code)
	if err != nil {
		h.loginFailed(c, session, "token exchange failed", err)
		return
	}

	profile, err := h.fetchProfile(ctx, token)
	if err != nil {
		h.loginFailed(c, session, "profile fetch failed", err)
		return
	}

	user, err := h.users.FindOrCreateByExternalID(ctx, profile.ID, profile.Login)
	if err != nil {
		h.loginFailed(c, session, "user lookup failed", err)
		return
	}

	session.Set(middleware.SessionUserKey, user.ID)
	if err := session.Save(); err != nil {
		h.loginFailed(c, session, "session save failed", err)
		return
	}

	h.metrics.AuthAttempt("success")
	logrus.WithField("login", user.Username).Info("User logged in")
	c.Redirect(http.StatusFound, h.frontendURL)
}

func (h *AuthHandler) loginFailed(c *gin.Context, session sessions.Session, reason string, err error) {
	_ = session.Save()
	h.metrics.AuthAttempt("failure")
	logrus.WithError(err).WithField("reason", reason).Warn("42 login failed")
	c.Redirect(http.StatusFound, h.frontendURL+"/login-failed")
}

func (h *AuthHandler) fetchProfile(ctx context.Context, token *oauth2.Token) (*FortyTwoProfile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.profileURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := h.oauth.Client(ctx, token).Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("profile endpoint returned %d", resp.StatusCode)
	}

	var profile FortyTwoProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	return &profile, nil
}

// Me GET /api/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":       user.ID,
		"login":    user.Username,
		"intra_id": user.ExternalID,
	})
}

// Logout POST /api/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	session.Options(sessions.Options{Path: "/", MaxAge: -1})
	if err := session.Save(); err != nil {
		respondError(c, fmt.Errorf("clear session: %w", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "message": "Logged out successfully"})
}
