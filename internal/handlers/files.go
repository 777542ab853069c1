package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"devnotes/api/internal/middleware"
	"devnotes/api/internal/models"
	"devnotes/api/internal/service"
	"devnotes/api/internal/storage"
)

type fileResponse struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Name      string    `json:"name"`
	MimeType  string    `json:"mimeType"`
	SizeBytes int64     `json:"sizeBytes"`
	Batch     string    `json:"batch,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func toFileResponse(file models.File) fileResponse {
	return fileResponse{
		ID:        file.ID,
		UserID:    file.UserID,
		Name:      file.Name,
		MimeType:  file.MimeType,
		SizeBytes: file.SizeBytes,
		Batch:     file.Batch,
		CreatedAt: file.CreatedAt,
	}
}

// GetFiles serves both the listing (no id) and the byte stream (id set).
func (h HandlerSet) GetFiles(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)
	isAdmin := h.authz.IsAdmin(c.Request.Context(), user.Email)

	if id := c.Query("id"); id != "" {
		h.streamFile(c, id, user, isAdmin)
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	files, err := h.fileService.List(c.Request.Context(), user, isAdmin, c.DefaultQuery("scope", "mine"), limit, offset)
	if err != nil {
		if errors.Is(err, service.ErrForbidden) {
			c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		h.log.Error().Err(err).Msg("list files failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "try again"})
		return
	}

	resp := make([]fileResponse, 0, len(files))
	for _, file := range files {
		resp = append(resp, toFileResponse(file))
	}
	c.JSON(http.StatusOK, gin.H{"files": resp})
}

func (h HandlerSet) streamFile(c *gin.Context, id string, user models.User, isAdmin bool) {
	file, f, err := h.fileService.Open(c.Request.Context(), id, user, isAdmin)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrFileNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		case errors.Is(err, service.ErrFileGone):
			c.JSON(http.StatusGone, gin.H{"error": "file content missing"})
		default:
			h.log.Error().Err(err).Str("file_id", id).Msg("open file failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "try again"})
		}
		return
	}
	defer f.Close()

	disposition := "inline"
	if c.Query("download") == "1" {
		disposition = "attachment"
	}

	// Access-controlled content must never land in shared caches.
	headers := map[string]string{
		"Content-Disposition": fmt.Sprintf(`%s; filename="%s"`, disposition, file.Name),
		"Cache-Control":       "private, no-store",
	}

	c.DataFromReader(http.StatusOK, file.SizeBytes, file.MimeType, f, headers)
}

func (h HandlerSet) UploadFiles(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart form required"})
		return
	}

	fileHeaders := form.File["file"]
	if len(fileHeaders) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no files attached"})
		return
	}

	items := make([]service.UploadItem, 0, len(fileHeaders))
	opened := make([]interface{ Close() error }, 0, len(fileHeaders))
	defer func() {
		for _, f := range opened {
			f.Close()
		}
	}()

	for _, header := range fileHeaders {
		f, err := header.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable file part"})
			return
		}
		opened = append(opened, f)
		items = append(items, service.UploadItem{
			Name:     header.Filename,
			MimeType: header.Header.Get("Content-Type"),
			Reader:   f,
		})
	}

	isAdmin := h.authz.IsAdmin(c.Request.Context(), user.Email)

	saved, batch, err := h.fileService.Upload(c.Request.Context(), user, isAdmin, items)
	if err != nil {
		if errors.Is(err, storage.ErrTooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{
				"error": "file too large",
				"saved": toSavedResponse(saved),
			})
			return
		}
		h.log.Error().Err(err).Str("user_id", user.ID).Int("saved", len(saved)).Msg("upload failed")
		// Items saved before the failure stay saved; report them so the
		// caller can reconcile.
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "try again",
			"saved": toSavedResponse(saved),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"saved":  toSavedResponse(saved),
		"folder": batch,
	})
}

type savedFileResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func toSavedResponse(saved []service.SavedFile) []savedFileResponse {
	resp := make([]savedFileResponse, 0, len(saved))
	for _, s := range saved {
		resp = append(resp, savedFileResponse{ID: s.ID, Name: s.Name})
	}
	return resp
}

func (h HandlerSet) DeleteFile(c *gin.Context) {
	id := c.Query("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id required"})
		return
	}

	user, _ := middleware.CurrentUser(c)

	if err := h.fileService.Delete(c.Request.Context(), id, user); err != nil {
		if errors.Is(err, service.ErrFileNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		h.log.Error().Err(err).Str("file_id", id).Msg("delete file failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "try again"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}
