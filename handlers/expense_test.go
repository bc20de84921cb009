package handlers_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type expenseJSON struct {
	ID           int64   `json:"id"`
	CategoryID   int64   `json:"categoryId"`
	Amount       float64 `json:"amount"`
	Description  string  `json:"description"`
	Date         string  `json:"date"`
	CategoryName string  `json:"categoryName"`
	CategoryIcon string  `json:"categoryIcon"`
}

func createExpense(t *testing.T, router *gin.Engine, token string, body gin.H) expenseJSON {
	t.Helper()
	w := doJSON(t, router, "POST", "/api/expenses", token, body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var e expenseJSON
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &e))
	return e
}

func TestCreateAndFetchExpense(t *testing.T) {
	router, _ := setupAPI(t)
	token := registerUser(t, router, "u1@example.com")

	e := createExpense(t, router, token, gin.H{
		"categoryId":  1,
		"amount":      15.50,
		"description": "Coffee",
		"date":        "2025-02-10",
	})
	assert.Equal(t, "Food", e.CategoryName)
	assert.NotEmpty(t, e.CategoryIcon)

	w := doJSON(t, router, "GET", fmt.Sprintf("/api/expenses/%d", e.ID), token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var fetched expenseJSON
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &fetched))
	assert.Equal(t, "Coffee", fetched.Description)
	assert.Equal(t, "2025-02-10", fetched.Date, "date must round-trip verbatim")
}

func TestCreateExpenseValidation(t *testing.T) {
	router, _ := setupAPI(t)
	token := registerUser(t, router, "u2@example.com")

	cases := []gin.H{
		{"categoryId": 1, "amount": -5, "description": "neg", "date": "2025-02-10"},
		{"categoryId": 1, "amount": 0, "description": "zero", "date": "2025-02-10"},
		{"categoryId": 1, "amount": 5, "description": "", "date": "2025-02-10"},
		{"categoryId": 1, "amount": 5, "description": "bad date", "date": "10/02/2025"},
		{"categoryId": 1, "amount": 5, "description": "bad date", "date": "2025-2-1"},
		{"categoryId": 1, "amount": 5, "description": "not a day", "date": "2025-13-40"},
	}
	for i, body := range cases {
		w := doJSON(t, router, "POST", "/api/expenses", token, body)
		assert.Equal(t, http.StatusBadRequest, w.Code, "case %d: %s", i, w.Body.String())
	}
}

// An internal failure on create is 500; only rejected input is 400.
func TestCreateExpenseDatabaseFailureIs500(t *testing.T) {
	router, db := setupAPI(t)
	token := registerUser(t, router, "u500@example.com")
	require.NoError(t, db.Close())

	w := doJSON(t, router, "POST", "/api/expenses", token, gin.H{
		"categoryId":  1,
		"amount":      5,
		"description": "Coffee",
		"date":        "2025-02-10",
	})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "Failed to create expense")
}

func TestDescriptionLengthBounds(t *testing.T) {
	router, _ := setupAPI(t)
	token := registerUser(t, router, "u3@example.com")

	w := doJSON(t, router, "POST", "/api/expenses", token, gin.H{
		"categoryId":  1,
		"amount":      5,
		"description": strings.Repeat("a", 255),
		"date":        "2025-02-10",
	})
	assert.Equal(t, http.StatusCreated, w.Code, "255 characters is allowed")

	w = doJSON(t, router, "POST", "/api/expenses", token, gin.H{
		"categoryId":  1,
		"amount":      5,
		"description": strings.Repeat("a", 256),
		"date":        "2025-02-10",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code, "256 characters is rejected")
}

func TestListExpensesFilters(t *testing.T) {
	router, _ := setupAPI(t)
	token := registerUser(t, router, "u4@example.com")

	createExpense(t, router, token, gin.H{"categoryId": 1, "amount": 10, "description": "Coffee", "date": "2025-01-05"})
	createExpense(t, router, token, gin.H{"categoryId": 2, "amount": 20, "description": "Bus ticket", "date": "2025-02-05"})
	createExpense(t, router, token, gin.H{"categoryId": 1, "amount": 30, "description": "Dinner", "date": "2025-03-05"})

	var list []expenseJSON

	w := doJSON(t, router, "GET", "/api/expenses", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 3)
	assert.Equal(t, "Dinner", list[0].Description, "newest date first")

	w = doJSON(t, router, "GET", "/api/expenses?startDate=2025-02-01&endDate=2025-02-28", token, nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "Bus ticket", list[0].Description)

	w = doJSON(t, router, "GET", "/api/expenses?search=coffee", token, nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "Coffee", list[0].Description)

	w = doJSON(t, router, "GET", "/api/expenses?limit=2&offset=2", token, nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "Coffee", list[0].Description)
}

func TestUpdateExpense(t *testing.T) {
	router, _ := setupAPI(t)
	token := registerUser(t, router, "u5@example.com")

	e := createExpense(t, router, token, gin.H{"categoryId": 1, "amount": 10, "description": "Lunch", "date": "2025-02-10"})

	w := doJSON(t, router, "PUT", fmt.Sprintf("/api/expenses/%d", e.ID), token, gin.H{
		"categoryId":  2,
		"amount":      12.75,
		"description": "Train ticket",
		"date":        "2025-02-11",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var updated expenseJSON
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
	assert.Equal(t, "Train ticket", updated.Description)
	assert.Equal(t, "Transport", updated.CategoryName)
	assert.Equal(t, "2025-02-11", updated.Date)
}

func TestExpenseOwnershipIs404(t *testing.T) {
	router, db := setupAPI(t)
	owner := registerUser(t, router, "owner@example.com")
	intruder := registerUser(t, router, "intruder@example.com")

	e := createExpense(t, router, owner, gin.H{"categoryId": 1, "amount": 10, "description": "Private", "date": "2025-02-10"})

	path := fmt.Sprintf("/api/expenses/%d", e.ID)
	assert.Equal(t, http.StatusNotFound, doJSON(t, router, "GET", path, intruder, nil).Code)
	assert.Equal(t, http.StatusNotFound, doJSON(t, router, "DELETE", path, intruder, nil).Code)
	assert.Equal(t, http.StatusNotFound, doJSON(t, router, "PUT", path, intruder, gin.H{
		"categoryId": 1, "amount": 1, "description": "x", "date": "2025-02-10",
	}).Code)

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM expenses`).Scan(&count))
	assert.Equal(t, 1, count, "failed cross-user operations must not mutate rows")
}

func TestDeleteExpense(t *testing.T) {
	router, db := setupAPI(t)
	token := registerUser(t, router, "u6@example.com")

	e := createExpense(t, router, token, gin.H{"categoryId": 1, "amount": 10, "description": "Gone", "date": "2025-02-10"})

	path := fmt.Sprintf("/api/expenses/%d", e.ID)
	assert.Equal(t, http.StatusOK, doJSON(t, router, "DELETE", path, token, nil).Code)

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM expenses`).Scan(&count))
	assert.Equal(t, 0, count)

	assert.Equal(t, http.StatusNotFound, doJSON(t, router, "GET", path, token, nil).Code)
	assert.Equal(t, http.StatusNotFound, doJSON(t, router, "DELETE", path, token, nil).Code)
	assert.Equal(t, http.StatusNotFound, doJSON(t, router, "DELETE", "/api/expenses/99999", token, nil).Code)
}

func TestMonthlyTotal(t *testing.T) {
	router, _ := setupAPI(t)
	token := registerUser(t, router, "u7@example.com")

	createExpense(t, router, token, gin.H{"categoryId": 1, "amount": 10.50, "description": "A", "date": "2025-02-10"})
	createExpense(t, router, token, gin.H{"categoryId": 1, "amount": 4.50, "description": "B", "date": "2025-02-20"})
	createExpense(t, router, token, gin.H{"categoryId": 1, "amount": 99, "description": "C", "date": "2025-03-01"})

	w := doJSON(t, router, "GET", "/api/expenses/monthly-total?year=2025&month=2", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Total float64 `json:"total"`
		Year  int     `json:"year"`
		Month int     `json:"month"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.InDelta(t, 15.0, resp.Total, 0.0001)
	assert.Equal(t, 2025, resp.Year)
	assert.Equal(t, 2, resp.Month)
}
