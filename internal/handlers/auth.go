package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"devnotes/api/internal/middleware"
	"devnotes/api/internal/models"
	"devnotes/api/internal/security"
	"devnotes/api/internal/service"
)

type registerRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

// userResponse is the safe projection; the password hash never leaves the
// server.
type userResponse struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	Status string `json:"status"`
}

func toUserResponse(user models.User) userResponse {
	return userResponse{
		ID:     user.ID,
		Name:   user.Name,
		Email:  user.Email,
		Role:   string(user.Role),
		Status: string(user.Status),
	}
}

func (h HandlerSet) RegisterUser(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	result, err := h.authService.Register(c.Request.Context(), service.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		if errors.Is(err, service.ErrEmailTaken) {
			c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
			return
		}
		h.log.Error().Err(err).Msg("register failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "try again"})
		return
	}

	security.SetSessionCookie(c, h.cfg.Security.SessionCookie, result.Token, h.cfg.Security.SessionTTL)
	c.JSON(http.StatusOK, gin.H{"user": toUserResponse(result.User)})
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (h HandlerSet) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	result, err := h.authService.Login(c.Request.Context(), service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		case errors.Is(err, service.ErrUserSuspended):
			c.JSON(http.StatusForbidden, gin.H{"error": "account suspended"})
		default:
			h.log.Error().Err(err).Msg("login failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "try again"})
		}
		return
	}

	security.SetSessionCookie(c, h.cfg.Security.SessionCookie, result.Token, h.cfg.Security.SessionTTL)
	c.JSON(http.StatusOK, gin.H{"user": toUserResponse(result.User)})
}

// Logout clears the cookie and always succeeds, logged in or not.
func (h HandlerSet) Logout(c *gin.Context) {
	security.ClearSessionCookie(c, h.cfg.Security.SessionCookie)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Me never errors: anonymous callers get a null user.
func (h HandlerSet) Me(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusOK, gin.H{"user": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": toUserResponse(user)})
}
