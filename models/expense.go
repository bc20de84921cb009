package models

import "time"

type Expense struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"userId"`
	CategoryID  int64     `json:"categoryId"`
	Amount      float64   `json:"amount"`
	Description string    `json:"description"`
	Date        string    `json:"date"` // YYYY-MM-DD, stored verbatim
	CreatedAt   time.Time `json:"createdAt"`

	// Joined from categories on list/get.
	CategoryName string `json:"categoryName,omitempty"`
	CategoryIcon string `json:"categoryIcon,omitempty"`
}

type CreateExpenseRequest struct {
	CategoryID  int64   `json:"categoryId" binding:"required"`
	Amount      float64 `json:"amount" binding:"required,gt=0"`
	Description string  `json:"description" binding:"required,max=255"`
	Date        string  `json:"date" binding:"required"`
}

type UpdateExpenseRequest struct {
	CategoryID  int64   `json:"categoryId" binding:"required"`
	Amount      float64 `json:"amount" binding:"required,gt=0"`
	Description string  `json:"description" binding:"required,max=255"`
	Date        string  `json:"date" binding:"required"`
}

// ExpenseFilter narrows GET /expenses.
type ExpenseFilter struct {
	Limit     int
	Offset    int
	StartDate string
	EndDate   string
	Search    string
}

type MonthlyTotalResponse struct {
	Total float64 `json:"total"`
	Year  int     `json:"year"`
	Month int     `json:"month"`
}
