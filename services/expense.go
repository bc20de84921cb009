package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"time"

	"expense-api/models"
)

// ErrNotFound covers both missing rows and rows owned by another user;
// the API does not distinguish the two.
var ErrNotFound = errors.New("not found")

// ValidationError marks input the service rejects. Handlers map it to
// 400; every other error is an internal failure and maps to 500.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

var dateFormat = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// ValidateDate checks the literal YYYY-MM-DD form and that the value
// is a real calendar date.
func ValidateDate(date string) error {
	if !dateFormat.MatchString(date) {
		return &ValidationError{Message: "date must be in YYYY-MM-DD format"}
	}
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return &ValidationError{Message: "invalid calendar date"}
	}
	return nil
}

type ExpenseService struct {
	db *sql.DB
}

func NewExpenseService(db *sql.DB) *ExpenseService {
	return &ExpenseService{db: db}
}

func (s *ExpenseService) Create(ctx context.Context, userID int64, req models.CreateExpenseRequest) (*models.Expense, error) {
	if err := ValidateDate(req.Date); err != nil {
		return nil, err
	}

	var exists bool
	if err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM categories WHERE id = ?)`, req.CategoryID,
	).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check category: %w", err)
	}
	if !exists {
		return nil, &ValidationError{Message: "unknown category"}
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO expenses (user_id, category_id, amount, description, date)
		VALUES (?, ?, ?, ?, ?)
	`, userID, req.CategoryID, req.Amount, req.Description, req.Date)
	if err != nil {
		return nil, fmt.Errorf("insert expense: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	return s.GetByID(ctx, id, userID)
}

func (s *ExpenseService) GetByID(ctx context.Context, id, userID int64) (*models.Expense, error) {
	var e models.Expense
	err := s.db.QueryRowContext(ctx, `
		SELECT e.id, e.user_id, e.category_id, e.amount, e.description, e.date, e.created_at,
		       c.name, c.icon
		FROM expenses e
		INNER JOIN categories c ON e.category_id = c.id
		WHERE e.id = ? AND e.user_id = ?
	`, id, userID).Scan(
		&e.ID, &e.UserID, &e.CategoryID, &e.Amount, &e.Description, &e.Date, &e.CreatedAt,
		&e.CategoryName, &e.CategoryIcon,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get expense: %w", err)
	}
	return &e, nil
}

// List returns the caller's expenses joined with category name/icon,
// newest date first.
func (s *ExpenseService) List(ctx context.Context, userID int64, filter models.ExpenseFilter) ([]models.Expense, error) {
	query := `
		SELECT e.id, e.user_id, e.category_id, e.amount, e.description, e.date, e.created_at,
		       c.name, c.icon
		FROM expenses e
		INNER JOIN categories c ON e.category_id = c.id
		WHERE e.user_id = ?
	`
	args := []any{userID}

	if filter.StartDate != "" {
		query += ` AND e.date >= ?`
		args = append(args, filter.StartDate)
	}
	if filter.EndDate != "" {
		query += ` AND e.date <= ?`
		args = append(args, filter.EndDate)
	}
	if filter.Search != "" {
		query += ` AND e.description LIKE ?`
		args = append(args, "%"+filter.Search+"%")
	}

	query += ` ORDER BY e.date DESC, e.id DESC`

	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += ` OFFSET ?`
			args = append(args, filter.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	expenses := []models.Expense{}
	for rows.Next() {
		var e models.Expense
		if err := rows.Scan(
			&e.ID, &e.UserID, &e.CategoryID, &e.Amount, &e.Description, &e.Date, &e.CreatedAt,
			&e.CategoryName, &e.CategoryIcon,
		); err != nil {
			return nil, err
		}
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

func (s *ExpenseService) Update(ctx context.Context, id, userID int64, req models.UpdateExpenseRequest) (*models.Expense, error) {
	if err := ValidateDate(req.Date); err != nil {
		return nil, err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE expenses
		SET category_id = ?, amount = ?, description = ?, date = ?
		WHERE id = ? AND user_id = ?
	`, req.CategoryID, req.Amount, req.Description, req.Date, id, userID)
	if err != nil {
		return nil, fmt.Errorf("update expense: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, ErrNotFound
	}

	return s.GetByID(ctx, id, userID)
}

func (s *ExpenseService) Delete(ctx context.Context, id, userID int64) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM expenses WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// MonthlyTotal sums the caller's expenses for one calendar month.
func (s *ExpenseService) MonthlyTotal(ctx context.Context, userID int64, year, month int) (float64, error) {
	prefix := fmt.Sprintf("%04d-%02d-", year, month)

	var total float64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount), 0)
		FROM expenses
		WHERE user_id = ? AND date LIKE ?
	`, userID, prefix+"%").Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("monthly total: %w", err)
	}
	return total, nil
}
