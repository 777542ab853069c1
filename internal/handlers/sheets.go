package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"devnotes/api/internal/ids"
	"devnotes/api/internal/models"
	"devnotes/api/internal/repository"
)

type sheetResponse struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Category  string    `json:"category"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func toSheetResponse(sheet models.Sheet) sheetResponse {
	return sheetResponse{
		ID:        sheet.ID,
		Title:     sheet.Title,
		Category:  sheet.Category,
		Content:   sheet.Content,
		CreatedAt: sheet.CreatedAt,
		UpdatedAt: sheet.UpdatedAt,
	}
}

func (h HandlerSet) ListSheets(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if offset < 0 {
		offset = 0
	}

	sheets, err := h.sheets.List(c.Request.Context(), c.Query("category"), limit, offset)
	if err != nil {
		h.log.Error().Err(err).Msg("list sheets failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "try again"})
		return
	}

	resp := make([]sheetResponse, 0, len(sheets))
	for _, sheet := range sheets {
		resp = append(resp, toSheetResponse(sheet))
	}
	c.JSON(http.StatusOK, gin.H{"sheets": resp})
}

func (h HandlerSet) GetSheet(c *gin.Context) {
	sheet, err := h.sheets.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrSheetNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		h.log.Error().Err(err).Msg("get sheet failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "try again"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"sheet": toSheetResponse(sheet)})
}

type sheetRequest struct {
	Title    string `json:"title" binding:"required"`
	Category string `json:"category"`
	Content  string `json:"content"`
}

func (h HandlerSet) CreateSheet(c *gin.Context) {
	var req sheetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	sheet := models.Sheet{
		ID:       ids.New(),
		Title:    req.Title,
		Category: req.Category,
		Content:  req.Content,
	}
	if err := h.sheets.Create(c.Request.Context(), sheet); err != nil {
		h.log.Error().Err(err).Msg("create sheet failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "try again"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"sheet": toSheetResponse(sheet)})
}

func (h HandlerSet) UpdateSheet(c *gin.Context) {
	var req sheetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	sheet := models.Sheet{
		ID:       c.Param("id"),
		Title:    req.Title,
		Category: req.Category,
		Content:  req.Content,
	}
	if err := h.sheets.Update(c.Request.Context(), sheet); err != nil {
		if errors.Is(err, repository.ErrSheetNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		h.log.Error().Err(err).Msg("update sheet failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "try again"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h HandlerSet) DeleteSheet(c *gin.Context) {
	if err := h.sheets.Delete(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, repository.ErrSheetNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		h.log.Error().Err(err).Msg("delete sheet failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "try again"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
