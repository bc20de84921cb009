package handlers

import (
	"errors"
	"net/http"

	"expense-api/middleware"
	"expense-api/models"
	"expense-api/services"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type ImportHandler struct {
	Service *services.ImportService
	Feed    *WSHandler
}

func (h *ImportHandler) Upload(c *gin.Context) {
	userID := middleware.GetUserID(c)

	var req models.UploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.Service.Upload(c.Request.Context(), userID, req.FileName, req.CSVContent)
	if errors.Is(err, services.ErrEmptyCSV) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		logrus.Errorf("import upload failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create import session"})
		return
	}

	c.JSON(http.StatusCreated, resp)
}

func (h *ImportHandler) SaveMapping(c *gin.Context) {
	userID := middleware.GetUserID(c)
	sessionID := c.Param("id")

	var req models.SaveMappingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session, err := h.Service.SaveMapping(c.Request.Context(), sessionID, userID, req.ColumnMapping)
	switch {
	case errors.Is(err, services.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrSessionConfirmed), errors.Is(err, services.ErrInvalidMapping):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case err != nil:
		logrus.Errorf("save mapping failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save mapping"})
	default:
		c.JSON(http.StatusOK, session)
	}
}

func (h *ImportHandler) Confirm(c *gin.Context) {
	userID := middleware.GetUserID(c)
	sessionID := c.Param("id")

	resp, err := h.Service.Confirm(c.Request.Context(), sessionID, userID)
	switch {
	case errors.Is(err, services.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrSessionConfirmed), errors.Is(err, services.ErrMappingNotSaved):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case err != nil:
		logrus.Errorf("import confirm failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to confirm import"})
	default:
		h.Feed.BroadcastExpenseEvent(userID, "expenses_imported")
		c.JSON(http.StatusOK, resp)
	}
}

func (h *ImportHandler) History(c *gin.Context) {
	userID := middleware.GetUserID(c)

	history, err := h.Service.History(c.Request.Context(), userID)
	if err != nil {
		logrus.Errorf("failed to list import history: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list import history"})
		return
	}

	c.JSON(http.StatusOK, history)
}
