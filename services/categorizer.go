package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"expense-api/models"
)

// CategoryResolver maps free-text category values (CSV cells, LLM
// output) onto the seeded category rows.
type CategoryResolver struct {
	db *sql.DB
}

func NewCategoryResolver(db *sql.DB) *CategoryResolver {
	return &CategoryResolver{db: db}
}

// ListCategories returns all categories in id order.
func (r *CategoryResolver) ListCategories(ctx context.Context) ([]models.Category, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, icon FROM categories ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var categories []models.Category
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Icon); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// Static keyword dictionary: common merchant/expense words mapped to
// the category names they imply. Checked after name matching fails.
var categoryKeywords = map[string][]string{
	"Food":          {"grocery", "groceries", "supermarket", "restaurant", "coffee", "cafe", "lunch", "dinner", "pizza", "bakery"},
	"Transport":     {"gas", "fuel", "petrol", "taxi", "uber", "train", "bus", "metro", "parking", "toll"},
	"Entertainment": {"movie", "cinema", "netflix", "spotify", "game", "concert", "streaming"},
	"Shopping":      {"amazon", "clothes", "clothing", "shoes", "store", "mall"},
	"Bills":         {"electricity", "water", "internet", "phone", "rent", "utility", "utilities", "insurance", "subscription"},
	"Healthcare":    {"pharmacy", "doctor", "hospital", "dental", "medicine", "clinic"},
	"Education":     {"tuition", "course", "school", "university", "textbook"},
	"Travel":        {"hotel", "flight", "airline", "airbnb", "booking", "hostel"},
}

// Resolve matches a raw category value against the known categories:
// exact case-insensitive name match, then substring match in either
// direction, then the keyword dictionary, then the "Other" category,
// then the first category when "Other" does not exist.
func (r *CategoryResolver) Resolve(ctx context.Context, raw string) (models.Category, error) {
	categories, err := r.ListCategories(ctx)
	if err != nil {
		return models.Category{}, err
	}
	return ResolveFrom(categories, raw)
}

// ResolveFrom is Resolve over an already-loaded category list.
func ResolveFrom(categories []models.Category, raw string) (models.Category, error) {
	if len(categories) == 0 {
		return models.Category{}, fmt.Errorf("no categories available")
	}

	normalized := strings.ToLower(strings.TrimSpace(raw))

	if normalized != "" {
		for _, c := range categories {
			if strings.ToLower(c.Name) == normalized {
				return c, nil
			}
		}

		for _, c := range categories {
			name := strings.ToLower(c.Name)
			if strings.Contains(name, normalized) || strings.Contains(normalized, name) {
				return c, nil
			}
		}

		for _, c := range categories {
			for _, keyword := range categoryKeywords[c.Name] {
				if strings.Contains(normalized, keyword) {
					return c, nil
				}
			}
		}
	}

	for _, c := range categories {
		if strings.EqualFold(c.Name, "Other") {
			return c, nil
		}
	}

	return categories[0], nil
}
