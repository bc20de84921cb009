package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"expense-api/middleware"
	"expense-api/models"
	"expense-api/services"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type ExpenseHandler struct {
	Service *services.ExpenseService
	Feed    *WSHandler
}

func (h *ExpenseHandler) Create(c *gin.Context) {
	userID := middleware.GetUserID(c)

	var req models.CreateExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	expense, err := h.Service.Create(c.Request.Context(), userID, req)
	var ve *services.ValidationError
	if errors.As(err, &ve) {
		c.JSON(http.StatusBadRequest, gin.H{"error": ve.Message})
		return
	}
	if err != nil {
		logrus.Errorf("failed to create expense: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create expense"})
		return
	}

	h.Feed.BroadcastExpenseEvent(userID, "expense_created")
	c.JSON(http.StatusCreated, expense)
}

func (h *ExpenseHandler) List(c *gin.Context) {
	userID := middleware.GetUserID(c)

	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))
	filter := models.ExpenseFilter{
		Limit:     limit,
		Offset:    offset,
		StartDate: c.Query("startDate"),
		EndDate:   c.Query("endDate"),
		Search:    c.Query("search"),
	}

	expenses, err := h.Service.List(c.Request.Context(), userID, filter)
	if err != nil {
		logrus.Errorf("failed to list expenses: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list expenses"})
		return
	}

	c.JSON(http.StatusOK, expenses)
}

func (h *ExpenseHandler) Get(c *gin.Context) {
	userID := middleware.GetUserID(c)

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid expense id"})
		return
	}

	expense, err := h.Service.GetByID(c.Request.Context(), id, userID)
	if errors.Is(err, services.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Expense not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch expense"})
		return
	}

	c.JSON(http.StatusOK, expense)
}

func (h *ExpenseHandler) Update(c *gin.Context) {
	userID := middleware.GetUserID(c)

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid expense id"})
		return
	}

	var req models.UpdateExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	expense, err := h.Service.Update(c.Request.Context(), id, userID, req)
	if errors.Is(err, services.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Expense not found"})
		return
	}
	var ve *services.ValidationError
	if errors.As(err, &ve) {
		c.JSON(http.StatusBadRequest, gin.H{"error": ve.Message})
		return
	}
	if err != nil {
		logrus.Errorf("failed to update expense: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update expense"})
		return
	}

	h.Feed.BroadcastExpenseEvent(userID, "expense_updated")
	c.JSON(http.StatusOK, expense)
}

func (h *ExpenseHandler) Delete(c *gin.Context) {
	userID := middleware.GetUserID(c)

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid expense id"})
		return
	}

	err = h.Service.Delete(c.Request.Context(), id, userID)
	if errors.Is(err, services.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Expense not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete expense"})
		return
	}

	h.Feed.BroadcastExpenseEvent(userID, "expense_deleted")
	c.JSON(http.StatusOK, gin.H{"message": "Expense deleted"})
}

func (h *ExpenseHandler) MonthlyTotal(c *gin.Context) {
	userID := middleware.GetUserID(c)

	now := time.Now()
	year, err := strconv.Atoi(c.DefaultQuery("year", strconv.Itoa(now.Year())))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid year"})
		return
	}
	month, err := strconv.Atoi(c.DefaultQuery("month", strconv.Itoa(int(now.Month()))))
	if err != nil || month < 1 || month > 12 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid month"})
		return
	}

	total, err := h.Service.MonthlyTotal(c.Request.Context(), userID, year, month)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute monthly total"})
		return
	}

	c.JSON(http.StatusOK, models.MonthlyTotalResponse{Total: total, Year: year, Month: month})
}
