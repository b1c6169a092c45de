package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/collabify/backend/internal/config"
	"github.com/collabify/backend/internal/middleware"
	"github.com/collabify/backend/internal/services"
	"github.com/collabify/backend/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	stateCookieName = "collabify_oauth_state"
	stateCookieTTL  = 10 * time.Minute
)

type AuthHandler struct {
	authService  *services.AuthService
	cookieName   string
	cookieSecure bool
	frontendURL  string
}

func NewAuthHandler(db *gorm.DB, cfg *config.Config, provider services.IdentityProvider) *AuthHandler {
	return &AuthHandler{
		authService:  services.NewAuthService(db, provider, &cfg.JWT),
		cookieName:   cfg.JWT.CookieName,
		cookieSecure: cfg.JWT.CookieSecure,
		frontendURL:  strings.TrimRight(cfg.OAuth.FrontendURL, "/"),
	}
}

// GoogleLogin redirects to the Google consent page
// GET /api/auth/google/login
func (h *AuthHandler) GoogleLogin(c *gin.Context) {
	state := uuid.NewString()
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(stateCookieName, state, int(stateCookieTTL.Seconds()), "/", "", h.cookieSecure, true)
	c.Redirect(http.StatusFound, h.authService.LoginURL(state))
}

// GoogleCallback finishes the OAuth flow and starts a session
// GET /api/auth/google/callback
func (h *AuthHandler) GoogleCallback(c *gin.Context) {
	expected, err := c.Cookie(stateCookieName)
	c.SetCookie(stateCookieName, "", -1, "/", "", h.cookieSecure, true)
	if err != nil || expected == "" || c.Query("state") != expected {
		response.BadRequest(c, "Invalid OAuth state")
		return
	}

	result, err := h.authService.CompleteLogin(c.Request.Context(), c.Query("code"))
	if err != nil {
		response.Error(c, err)
		return
	}

	maxAge := int(time.Until(result.ExpireAt).Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookieName, result.Token, maxAge, "/", "", h.cookieSecure, true)

	next := "/dashboard"
	if !result.User.Onboarded() {
		next = "/onboarding"
	}
	c.Redirect(http.StatusFound, h.frontendURL+next)
}

// GetCurrentUser returns the signed-in user
// GET /api/auth/me
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	user, err := h.authService.GetUserByID(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, user)
}

// Logout clears the session cookie
// POST /api/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookieName, "", -1, "/", "", h.cookieSecure, true)
	response.OK(c, gin.H{})
}
