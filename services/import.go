package services

import (
	"context"
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"expense-api/models"
	"expense-api/utils"

	"github.com/google/uuid"
)

var (
	// ErrEmptyCSV rejects uploads with no data rows or blank headers.
	ErrEmptyCSV = errors.New("csv must contain a header line and at least one data row")
	// ErrSessionNotFound covers unknown sessions and sessions owned by
	// another user.
	ErrSessionNotFound = errors.New("import session not found")
	// ErrSessionConfirmed rejects any operation on a finished session.
	ErrSessionConfirmed = errors.New("import session already confirmed")
	// ErrMappingNotSaved rejects confirmation before the mapping stage.
	ErrMappingNotSaved = errors.New("column mapping has not been saved")
	// ErrInvalidMapping rejects mappings that skip a field or name a
	// header the CSV does not have.
	ErrInvalidMapping = errors.New("column mapping must assign all four fields to existing headers")
)

// Header synonyms used to suggest a mapping on upload. Matching is
// case-insensitive: exact synonym first, then substring.
var mappingSynonyms = map[string][]string{
	"date":        {"date", "day", "transaction date", "posted", "when"},
	"amount":      {"amount", "sum", "price", "cost", "value", "total"},
	"description": {"description", "desc", "memo", "note", "details", "merchant", "payee", "label"},
	"category":    {"category", "type", "tag", "group"},
}

// ImportService drives the three-stage CSV import:
// upload -> mapping-saved -> confirmed.
type ImportService struct {
	db       *sql.DB
	resolver *CategoryResolver
}

func NewImportService(db *sql.DB) *ImportService {
	return &ImportService{
		db:       db,
		resolver: NewCategoryResolver(db),
	}
}

func parseCSV(content string) ([][]string, error) {
	reader := csv.NewReader(strings.NewReader(content))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	return records, nil
}

// SuggestMapping proposes a best-effort column mapping from header
// names. Fields without a confident match stay empty for the user to
// fill in during the mapping stage.
func SuggestMapping(headers []string) models.ColumnMapping {
	match := func(field string) string {
		synonyms := mappingSynonyms[field]
		for _, h := range headers {
			lower := strings.ToLower(strings.TrimSpace(h))
			for _, syn := range synonyms {
				if lower == syn {
					return h
				}
			}
		}
		for _, h := range headers {
			lower := strings.ToLower(strings.TrimSpace(h))
			for _, syn := range synonyms {
				if strings.Contains(lower, syn) {
					return h
				}
			}
		}
		return ""
	}

	return models.ColumnMapping{
		Date:        match("date"),
		Amount:      match("amount"),
		Description: match("description"),
		Category:    match("category"),
	}
}

// Upload parses the CSV, stores a new session in upload status and
// returns the detected structure. Nothing is persisted when the CSV is
// rejected.
func (s *ImportService) Upload(ctx context.Context, userID int64, fileName, csvContent string) (*models.UploadResponse, error) {
	records, err := parseCSV(csvContent)
	if err != nil {
		return nil, ErrEmptyCSV
	}
	if len(records) < 2 {
		return nil, ErrEmptyCSV
	}

	headers := records[0]
	hasHeader := false
	for _, h := range headers {
		if strings.TrimSpace(h) != "" {
			hasHeader = true
			break
		}
	}
	if !hasHeader {
		return nil, ErrEmptyCSV
	}

	headersJSON, err := json.Marshal(headers)
	if err != nil {
		return nil, err
	}

	session := models.ImportSession{
		ID:        uuid.New().String(),
		UserID:    userID,
		FileName:  fileName,
		Headers:   headers,
		Status:    models.ImportStatusUpload,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO import_sessions (id, user_id, file_name, csv_content, headers, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, session.ID, userID, fileName, csvContent, string(headersJSON), session.Status, session.CreatedAt, session.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("create import session: %w", err)
	}

	return &models.UploadResponse{
		Session: session,
		Structure: models.CSVStructure{
			Headers:          headers,
			SuggestedMapping: SuggestMapping(headers),
		},
	}, nil
}

type sessionRow struct {
	models.ImportSession
	CSVContent string
}

func (s *ImportService) getSession(ctx context.Context, sessionID string, userID int64) (*sessionRow, error) {
	var (
		row         sessionRow
		headersJSON string
		mappingJSON sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, file_name, csv_content, headers, column_mapping, status, created_at, updated_at
		FROM import_sessions
		WHERE id = ? AND user_id = ?
	`, sessionID, userID).Scan(
		&row.ID, &row.UserID, &row.FileName, &row.CSVContent,
		&headersJSON, &mappingJSON, &row.Status, &row.CreatedAt, &row.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get import session: %w", err)
	}

	if err := json.Unmarshal([]byte(headersJSON), &row.Headers); err != nil {
		return nil, fmt.Errorf("decode session headers: %w", err)
	}
	if mappingJSON.Valid && mappingJSON.String != "" {
		var mapping models.ColumnMapping
		if err := json.Unmarshal([]byte(mappingJSON.String), &mapping); err != nil {
			return nil, fmt.Errorf("decode session mapping: %w", err)
		}
		row.ColumnMapping = &mapping
	}
	return &row, nil
}

// SaveMapping stores an explicit mapping for all four fields and moves
// the session to mapping-saved.
func (s *ImportService) SaveMapping(ctx context.Context, sessionID string, userID int64, mapping models.ColumnMapping) (*models.ImportSession, error) {
	session, err := s.getSession(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}
	if session.Status == models.ImportStatusConfirmed {
		return nil, ErrSessionConfirmed
	}

	headerSet := make(map[string]bool, len(session.Headers))
	for _, h := range session.Headers {
		headerSet[h] = true
	}
	for _, col := range []string{mapping.Date, mapping.Amount, mapping.Description, mapping.Category} {
		if col == "" || !headerSet[col] {
			return nil, ErrInvalidMapping
		}
	}

	mappingJSON, err := json.Marshal(mapping)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	_, err = s.db.ExecContext(ctx, `
		UPDATE import_sessions
		SET column_mapping = ?, status = ?, updated_at = ?
		WHERE id = ? AND user_id = ?
	`, string(mappingJSON), models.ImportStatusMappingSaved, now, sessionID, userID)
	if err != nil {
		return nil, fmt.Errorf("save mapping: %w", err)
	}

	session.ColumnMapping = &mapping
	session.Status = models.ImportStatusMappingSaved
	session.UpdatedAt = now
	return &session.ImportSession, nil
}

// Confirm re-parses the stored CSV with the saved mapping and inserts
// one expense per parseable row. Rows whose amount or date cannot be
// parsed are counted as skipped, never fatal. The inserts, the history
// record and the status transition commit in a single transaction.
func (s *ImportService) Confirm(ctx context.Context, sessionID string, userID int64) (*models.ConfirmResponse, error) {
	session, err := s.getSession(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}
	if session.Status == models.ImportStatusConfirmed {
		return nil, ErrSessionConfirmed
	}
	if session.Status != models.ImportStatusMappingSaved || session.ColumnMapping == nil {
		return nil, ErrMappingNotSaved
	}

	records, err := parseCSV(session.CSVContent)
	if err != nil || len(records) < 2 {
		return nil, ErrEmptyCSV
	}

	colIndex := make(map[string]int, len(session.Headers))
	for i, h := range records[0] {
		colIndex[h] = i
	}
	mapping := session.ColumnMapping

	categories, err := s.resolver.ListCategories(ctx)
	if err != nil {
		return nil, err
	}

	cell := func(row []string, header string) string {
		idx, ok := colIndex[header]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	var pending []models.Expense
	skipped := 0
	for _, row := range records[1:] {
		amount, err := ParseAmount(cell(row, mapping.Amount))
		if err != nil || amount <= 0 {
			skipped++
			continue
		}

		date, err := ParseImportDate(cell(row, mapping.Date))
		if err != nil {
			skipped++
			continue
		}

		description := cell(row, mapping.Description)
		if description == "" {
			description = "Imported expense"
		}

		category, err := ResolveFrom(categories, cell(row, mapping.Category))
		if err != nil {
			return nil, err
		}

		pending = append(pending, models.Expense{
			UserID:      userID,
			CategoryID:  category.ID,
			Amount:      amount,
			Description: description,
			Date:        date,
		})
	}

	history := models.ImportHistory{
		UserID:        userID,
		FileName:      session.FileName,
		ImportedCount: len(pending),
		SkippedCount:  skipped,
		CreatedAt:     time.Now(),
	}

	err = utils.WithTransaction(s.db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO expenses (user_id, category_id, amount, description, date)
			VALUES (?, ?, ?, ?, ?)
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, e := range pending {
			if _, err := stmt.ExecContext(ctx, e.UserID, e.CategoryID, e.Amount, e.Description, e.Date); err != nil {
				return fmt.Errorf("insert imported expense: %w", err)
			}
		}

		res, err := tx.ExecContext(ctx, `
			INSERT INTO import_history (user_id, file_name, imported_count, skipped_count, created_at)
			VALUES (?, ?, ?, ?, ?)
		`, history.UserID, history.FileName, history.ImportedCount, history.SkippedCount, history.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert import history: %w", err)
		}
		if history.ID, err = res.LastInsertId(); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE import_sessions SET status = ?, updated_at = ? WHERE id = ?
		`, models.ImportStatusConfirmed, time.Now(), sessionID)
		return err
	})
	if err != nil {
		return nil, err
	}

	return &models.ConfirmResponse{
		ImportedCount: history.ImportedCount,
		SkippedCount:  history.SkippedCount,
		History:       history,
	}, nil
}

// History lists the caller's past imports, newest first.
func (s *ImportService) History(ctx context.Context, userID int64) ([]models.ImportHistory, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, file_name, imported_count, skipped_count, created_at
		FROM import_history
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list import history: %w", err)
	}
	defer rows.Close()

	history := []models.ImportHistory{}
	for rows.Next() {
		var h models.ImportHistory
		if err := rows.Scan(&h.ID, &h.UserID, &h.FileName, &h.ImportedCount, &h.SkippedCount, &h.CreatedAt); err != nil {
			return nil, err
		}
		history = append(history, h)
	}
	return history, rows.Err()
}

// ParseAmount parses a CSV amount cell with tolerance for currency
// symbols, spaces, thousands separators and comma decimals.
func ParseAmount(raw string) (float64, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '$', '€', '£', '¥', ' ', ' ':
			return -1
		}
		return r
	}, strings.TrimSpace(raw))

	if cleaned == "" {
		return 0, fmt.Errorf("empty amount")
	}

	// "1.234,56" and "12,50" use the comma as decimal separator;
	// "1,234.56" uses it for thousands.
	if strings.Contains(cleaned, ",") {
		if strings.Contains(cleaned, ".") {
			if strings.LastIndex(cleaned, ",") > strings.LastIndex(cleaned, ".") {
				cleaned = strings.ReplaceAll(cleaned, ".", "")
				cleaned = strings.Replace(cleaned, ",", ".", 1)
			} else {
				cleaned = strings.ReplaceAll(cleaned, ",", "")
			}
		} else if strings.Count(cleaned, ",") == 1 && len(cleaned)-strings.Index(cleaned, ",") != 4 {
			// One comma not followed by exactly three digits reads as a
			// decimal separator ("12,50"); "1,234" reads as thousands.
			cleaned = strings.Replace(cleaned, ",", ".", 1)
		} else {
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		}
	}

	amount, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", raw)
	}
	return amount, nil
}

var importDateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"02.01.2006",
	"Jan 2, 2006",
}

// ParseImportDate parses a CSV date cell against common layouts and
// normalises it to YYYY-MM-DD.
func ParseImportDate(raw string) (string, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return "", fmt.Errorf("empty date")
	}
	for _, layout := range importDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Format("2006-01-02"), nil
		}
	}
	return "", fmt.Errorf("invalid date %q", raw)
}
