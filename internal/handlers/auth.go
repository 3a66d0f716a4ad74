package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"chat-app/internal/apperr"
	"chat-app/internal/attachments"
	"chat-app/internal/auth"
	"chat-app/internal/middleware"
	"chat-app/internal/models"
)

// AuthService covers signup, login and the caller's own profile.
type AuthService interface {
	Signup(ctx context.Context, draft auth.UserDraft) (models.User, error)
	Login(ctx context.Context, emailOrMobile, password string, role models.Role) (models.User, error)
	CurrentUser(ctx context.Context, userID int) (models.User, error)
	UpdateProfilePic(ctx context.Context, userID int, file attachments.RawFile) (models.User, error)
}

// TokenIssuer signs session tokens.
type TokenIssuer interface {
	Issue(userID int, role models.Role) (string, error)
	TTL() time.Duration
}

// AuthHandler serves the /auth endpoints.
type AuthHandler struct {
	svc          AuthService
	tokens       TokenIssuer
	secureCookie bool
}

// NewAuthHandler builds an AuthHandler.
func NewAuthHandler(svc AuthService, tokens TokenIssuer, secureCookie bool) *AuthHandler {
	return &AuthHandler{svc: svc, tokens: tokens, secureCookie: secureCookie}
}

type sessionResponse struct {
	User  models.User `json:"user"`
	Token string      `json:"token"`
}

// Signup creates a user and starts a session.
func (h *AuthHandler) Signup(c *gin.Context) {
	var draft auth.UserDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user data"})
		return
	}

	user, err := h.svc.Signup(c.Request.Context(), draft)
	if err != nil {
		respondError(c, err)
		return
	}
	h.startSession(c, http.StatusCreated, user)
}

// Login checks credentials and starts a session.
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		EmailOrMobile string      `json:"email_or_mobile"`
		Password      string      `json:"password"`
		Role          models.Role `json:"role"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Both email/mobile and password are required"})
		return
	}

	user, err := h.svc.Login(c.Request.Context(), req.EmailOrMobile, req.Password, req.Role)
	if err != nil {
		respondError(c, err)
		return
	}
	h.startSession(c, http.StatusOK, user)
}

// Logout clears the session cookie.
func (h *AuthHandler) Logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(auth.CookieName, "", -1, "/", "", h.secureCookie, true)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

// Check returns the authenticated user.
func (h *AuthHandler) Check(c *gin.Context) {
	user, err := h.svc.CurrentUser(c.Request.Context(), c.GetInt(middleware.ContextUserID))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// UpdateProfile replaces the caller's avatar with an uploaded image.
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	limitBody(c)
	file, body, err := formFile(c, "profile_pic")
	if err != nil {
		respondError(c, err)
		return
	}
	if file == nil {
		respondError(c, apperr.Validation("missing_profile_pic", "Profile pic is required"))
		return
	}
	defer body.Close()

	user, err := h.svc.UpdateProfilePic(c.Request.Context(), c.GetInt(middleware.ContextUserID), *file)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *AuthHandler) startSession(c *gin.Context, status int, user models.User) {
	token, err := h.tokens.Issue(user.ID, user.Role)
	if err != nil {
		respondError(c, err)
		return
	}
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(auth.CookieName, token, int(h.tokens.TTL().Seconds()), "/", "", h.secureCookie, true)
	c.JSON(status, sessionResponse{User: user, Token: token})
}
