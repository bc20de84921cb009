package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"expense-api/models"

	"github.com/sirupsen/logrus"
)

const extractionSchema = `{"merchant": string, "amount": number, "date": "YYYY-MM-DD", "category": string, "description": string}`

// ReceiptService turns unstructured email/PDF text into candidate
// expenses. Every external failure degrades to an empty result: the
// caller always gets a well-formed response, never an error page.
type ReceiptService struct {
	ai       *GeminiService
	resolver *CategoryResolver
}

func NewReceiptService(db *sql.DB) *ReceiptService {
	return &ReceiptService{
		ai:       NewGeminiService(),
		resolver: NewCategoryResolver(db),
	}
}

// NewReceiptServiceWithClient lets tests inject a stubbed Gemini client.
func NewReceiptServiceWithClient(db *sql.DB, ai *GeminiService) *ReceiptService {
	return &ReceiptService{
		ai:       ai,
		resolver: NewCategoryResolver(db),
	}
}

// ScanEmails filters a batch of emails down to receipt-likely ones and
// extracts a structured expense from each of those.
func (s *ReceiptService) ScanEmails(ctx context.Context, emails []models.EmailMessage) []models.ReceiptExpense {
	if len(emails) == 0 {
		return []models.ReceiptExpense{}
	}

	receiptIDs := s.filterReceiptEmails(ctx, emails)

	receipts := []models.ReceiptExpense{}
	for _, email := range emails {
		if !receiptIDs[email.ID] {
			continue
		}
		content := fmt.Sprintf("Subject: %s\nFrom: %s\n\n%s", email.Subject, email.From, email.Body)
		for _, expense := range s.extract(ctx, content) {
			expense.EmailID = email.ID
			receipts = append(receipts, expense)
		}
	}
	return receipts
}

// AnalyzeEmail extracts expenses from one raw email body.
func (s *ReceiptService) AnalyzeEmail(ctx context.Context, content string) []models.ReceiptExpense {
	return s.extract(ctx, content)
}

// AnalyzePDF extracts expenses from an uploaded PDF receipt.
func (s *ReceiptService) AnalyzePDF(ctx context.Context, data []byte) []models.ReceiptExpense {
	prompt := fmt.Sprintf(`This document is a purchase receipt or invoice.
Extract every expense it contains as a JSON array of objects with this exact schema:
%s

Respond with ONLY the JSON array. No prose, no markdown.`, extractionSchema)

	text, err := s.ai.GenerateFromDocument(ctx, prompt, "application/pdf", data)
	if err != nil {
		logrus.Warnf("receipt pdf extraction failed: %v", err)
		return []models.ReceiptExpense{}
	}
	return s.decodeExpenses(ctx, text)
}

// filterReceiptEmails asks the model which email ids look like purchase
// receipts. On any failure nothing is receipt-likely.
func (s *ReceiptService) filterReceiptEmails(ctx context.Context, emails []models.EmailMessage) map[string]bool {
	var sb strings.Builder
	sb.WriteString("You are given a list of emails. Decide which of them are purchase receipts, order confirmations or invoices.\n\n")
	for _, email := range emails {
		snippet := email.Body
		if len(snippet) > 500 {
			snippet = snippet[:500]
		}
		fmt.Fprintf(&sb, "ID: %s\nSubject: %s\nFrom: %s\nBody: %s\n---\n", email.ID, email.Subject, email.From, snippet)
	}
	sb.WriteString("\nRespond with ONLY a JSON array of the IDs that are receipts, e.g. [\"id1\",\"id2\"]. No prose, no markdown.")

	result := map[string]bool{}
	text, err := s.ai.GenerateText(ctx, sb.String())
	if err != nil {
		logrus.Warnf("receipt email filtering failed: %v", err)
		return result
	}

	var ids []string
	if err := json.Unmarshal([]byte(StripCodeFence(text)), &ids); err != nil {
		logrus.Warnf("receipt filter returned unparseable output: %v", err)
		return result
	}
	for _, id := range ids {
		result[id] = true
	}
	return result
}

func (s *ReceiptService) extract(ctx context.Context, content string) []models.ReceiptExpense {
	prompt := fmt.Sprintf(`The following text is an email that may contain a purchase receipt.
Extract every expense it contains as a JSON array of objects with this exact schema:
%s

Text:
%s

Respond with ONLY the JSON array. No prose, no markdown.`, extractionSchema, content)

	text, err := s.ai.GenerateText(ctx, prompt)
	if err != nil {
		logrus.Warnf("receipt extraction failed: %v", err)
		return []models.ReceiptExpense{}
	}
	return s.decodeExpenses(ctx, text)
}

// decodeExpenses parses the model output and resolves each free-text
// category to a known category row.
func (s *ReceiptService) decodeExpenses(ctx context.Context, text string) []models.ReceiptExpense {
	var expenses []models.ReceiptExpense
	if err := json.Unmarshal([]byte(StripCodeFence(text)), &expenses); err != nil {
		logrus.Warnf("receipt extraction returned unparseable output: %v", err)
		return []models.ReceiptExpense{}
	}

	categories, err := s.resolver.ListCategories(ctx)
	if err != nil {
		logrus.Warnf("failed to load categories for receipt resolution: %v", err)
		return []models.ReceiptExpense{}
	}

	resolved := make([]models.ReceiptExpense, 0, len(expenses))
	for _, e := range expenses {
		category, err := ResolveFrom(categories, e.Category)
		if err != nil {
			continue
		}
		e.CategoryID = category.ID
		e.Category = category.Name
		resolved = append(resolved, e)
	}
	return resolved
}
