package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"chat-app/internal/auth"
	"chat-app/internal/middleware"
	"chat-app/internal/models"
)

// AdminService manages user accounts on behalf of an admin.
type AdminService interface {
	CreateUser(ctx context.Context, actorID int, draft auth.UserDraft) (models.User, error)
	ListUsers(ctx context.Context, search string, includeInactive bool) ([]models.User, error)
	GetUser(ctx context.Context, userID int) (models.User, error)
	UpdateUser(ctx context.Context, actorID, userID int, draft auth.UserDraft) (models.User, error)
	DeactivateUser(ctx context.Context, actorID, userID int) (models.User, error)
	DeleteUser(ctx context.Context, actorID, userID int) error
}

// AdminHandler serves /admin/users.
type AdminHandler struct {
	svc AdminService
}

func NewAdminHandler(svc AdminService) *AdminHandler {
	return &AdminHandler{svc: svc}
}

func (h *AdminHandler) CreateUser(c *gin.Context) {
	var draft auth.UserDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user data"})
		return
	}

	user, err := h.svc.CreateUser(c.Request.Context(), c.GetInt(middleware.ContextUserID), draft)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

// ListUsers supports ?search= and ?include_inactive=true.
func (h *AdminHandler) ListUsers(c *gin.Context) {
	users, err := h.svc.ListUsers(c.Request.Context(), c.Query("search"), c.Query("include_inactive") == "true")
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (h *AdminHandler) GetUser(c *gin.Context) {
	userID, ok := idParam(c, "id")
	if !ok {
		return
	}
	user, err := h.svc.GetUser(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *AdminHandler) UpdateUser(c *gin.Context) {
	userID, ok := idParam(c, "id")
	if !ok {
		return
	}
	var draft auth.UserDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user data"})
		return
	}

	user, err := h.svc.UpdateUser(c.Request.Context(), c.GetInt(middleware.ContextUserID), userID, draft)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// DeleteUser marks a user inactive.
func (h *AdminHandler) DeleteUser(c *gin.Context) {
	userID, ok := idParam(c, "id")
	if !ok {
		return
	}
	user, err := h.svc.DeactivateUser(c.Request.Context(), c.GetInt(middleware.ContextUserID), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User deleted successfully", "user": user})
}

// HardDeleteUser removes a user permanently.
func (h *AdminHandler) HardDeleteUser(c *gin.Context) {
	userID, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.svc.DeleteUser(c.Request.Context(), c.GetInt(middleware.ContextUserID), userID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User permanently deleted"})
}
