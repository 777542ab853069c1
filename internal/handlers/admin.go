package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"devnotes/api/internal/models"
	"devnotes/api/internal/repository"
)

func (h HandlerSet) GetSettings(c *gin.Context) {
	dynamic, err := h.authz.DynamicAdmins(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("read settings failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "try again"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"adminEmails":       dynamic,
		"staticAdminEmails": h.authz.StaticAdmins(),
	})
}

type updateSettingsRequest struct {
	AdminEmails []string `json:"adminEmails" binding:"required"`
}

func (h HandlerSet) UpdateSettings(c *gin.Context) {
	var req updateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	if err := h.authz.SetDynamicAdmins(c.Request.Context(), req.AdminEmails); err != nil {
		h.log.Error().Err(err).Msg("write settings failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "try again"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

const statsCacheKey = "admin:stats"

type statsResponse struct {
	UserCount     int64    `json:"userCount"`
	FileCount     int64    `json:"fileCount"`
	LoginsLast24h int64    `json:"loginsLast24h"`
	RecentBatches []string `json:"recentBatches"`
}

func (h HandlerSet) Stats(c *gin.Context) {
	ctx := c.Request.Context()

	if h.cache != nil {
		if raw, err := h.cache.Get(ctx, statsCacheKey).Bytes(); err == nil {
			var cached statsResponse
			if err := json.Unmarshal(raw, &cached); err == nil {
				c.JSON(http.StatusOK, cached)
				return
			}
		}
	}

	userCount, err := h.users.Count(ctx)
	if err != nil {
		h.log.Error().Err(err).Msg("count users failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "try again"})
		return
	}
	fileCount, err := h.files.Count(ctx)
	if err != nil {
		h.log.Error().Err(err).Msg("count files failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "try again"})
		return
	}
	logins, err := h.events.CountSince(ctx, models.EventLogin, time.Now().Add(-24*time.Hour))
	if err != nil {
		h.log.Error().Err(err).Msg("count logins failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "try again"})
		return
	}
	batches, err := h.files.RecentBatches(ctx, 10)
	if err != nil {
		h.log.Error().Err(err).Msg("recent batches failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "try again"})
		return
	}

	resp := statsResponse{
		UserCount:     userCount,
		FileCount:     fileCount,
		LoginsLast24h: logins,
		RecentBatches: batches,
	}

	if h.cache != nil {
		if raw, err := json.Marshal(resp); err == nil {
			if err := h.cache.Set(ctx, statsCacheKey, raw, 30*time.Second).Err(); err != nil {
				h.log.Debug().Err(err).Msg("stats cache write failed")
			}
		}
	}

	c.JSON(http.StatusOK, resp)
}

type eventResponse struct {
	ID        string            `json:"id"`
	Type      string            `json:"type"`
	UserID    string            `json:"userId"`
	Email     string            `json:"email"`
	Metadata  map[string]string `json:"metadata"`
	CreatedAt time.Time         `json:"createdAt"`
}

func (h HandlerSet) Logs(c *gin.Context) {
	limit := 100
	if raw := c.Query("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			limit = v
		}
	}
	if limit > repository.MaxEventQueryLimit {
		limit = repository.MaxEventQueryLimit
	}

	events, err := h.events.List(c.Request.Context(), c.Query("type"), limit)
	if err != nil {
		h.log.Error().Err(err).Msg("query events failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "try again"})
		return
	}

	resp := make([]eventResponse, 0, len(events))
	for _, event := range events {
		resp = append(resp, eventResponse{
			ID:        event.ID,
			Type:      string(event.Type),
			UserID:    event.UserID,
			Email:     event.Email,
			Metadata:  event.Metadata,
			CreatedAt: event.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"events": resp})
}

type adminUserResponse struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Email       string     `json:"email"`
	Role        string     `json:"role"`
	Status      string     `json:"status"`
	LoginCount  int        `json:"loginCount"`
	LastLoginAt *time.Time `json:"lastLoginAt"`
	CreatedAt   time.Time  `json:"createdAt"`
}

func (h HandlerSet) ListUsers(c *gin.Context) {
	limit := 50
	offset := 0
	if v, err := strconv.Atoi(c.DefaultQuery("perPage", "50")); err == nil && v > 0 && v <= 200 {
		limit = v
	}
	if v, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil && v > 1 {
		offset = (v - 1) * limit
	}

	users, err := h.users.List(c.Request.Context(), limit, offset)
	if err != nil {
		h.log.Error().Err(err).Msg("list users failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "try again"})
		return
	}

	resp := make([]adminUserResponse, 0, len(users))
	for _, user := range users {
		resp = append(resp, adminUserResponse{
			ID:          user.ID,
			Name:        user.Name,
			Email:       user.Email,
			Role:        string(user.Role),
			Status:      string(user.Status),
			LoginCount:  user.LoginCount,
			LastLoginAt: user.LastLoginAt,
			CreatedAt:   user.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"users": resp})
}

type bulkUsersRequest struct {
	IDs    []string `json:"ids" binding:"required,min=1"`
	Status string   `json:"status"`
	Role   string   `json:"role"`
}

// BulkUpdateUsers changes status and/or role for a set of users. The role
// column is display metadata only; granting admin access goes through the
// settings allow-list, not here.
func (h HandlerSet) BulkUpdateUsers(c *gin.Context) {
	var req bulkUsersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	if req.Status == "" && req.Role == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status or role required"})
		return
	}

	var updated int64
	if req.Status != "" {
		switch models.UserStatus(req.Status) {
		case models.UserStatusActive, models.UserStatusInactive, models.UserStatusSuspended:
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown status"})
			return
		}
		n, err := h.users.UpdateStatusBulk(c.Request.Context(), req.IDs, models.UserStatus(req.Status))
		if err != nil {
			h.log.Error().Err(err).Msg("bulk status update failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "try again"})
			return
		}
		updated = n
	}
	if req.Role != "" {
		switch models.UserRole(req.Role) {
		case models.UserRoleUser, models.UserRoleModerator, models.UserRoleAdmin:
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown role"})
			return
		}
		n, err := h.users.UpdateRoleBulk(c.Request.Context(), req.IDs, models.UserRole(req.Role))
		if err != nil {
			h.log.Error().Err(err).Msg("bulk role update failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "try again"})
			return
		}
		if n > updated {
			updated = n
		}
	}

	c.JSON(http.StatusOK, gin.H{"updated": updated})
}

func (h HandlerSet) DeleteUser(c *gin.Context) {
	id := c.Param("id")

	if err := h.users.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		h.log.Error().Err(err).Str("user_id", id).Msg("delete user failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "try again"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}
