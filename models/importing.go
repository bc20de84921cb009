package models

import "time"

// Import session statuses. A session only ever moves forward:
// upload -> mapping-saved -> confirmed.
const (
	ImportStatusUpload       = "upload"
	ImportStatusMappingSaved = "mapping-saved"
	ImportStatusConfirmed    = "confirmed"
)

// ColumnMapping assigns a CSV header name to each of the four
// semantic expense fields.
type ColumnMapping struct {
	Date        string `json:"date"`
	Amount      string `json:"amount"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

type ImportSession struct {
	ID            string         `json:"id"`
	UserID        int64          `json:"userId"`
	FileName      string         `json:"fileName"`
	Headers       []string       `json:"headers"`
	ColumnMapping *ColumnMapping `json:"columnMapping,omitempty"`
	Status        string         `json:"status"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

type ImportHistory struct {
	ID            int64     `json:"id"`
	UserID        int64     `json:"userId"`
	FileName      string    `json:"fileName"`
	ImportedCount int       `json:"importedCount"`
	SkippedCount  int       `json:"skippedCount"`
	CreatedAt     time.Time `json:"createdAt"`
}

type UploadRequest struct {
	FileName   string `json:"fileName" binding:"required"`
	CSVContent string `json:"csvContent" binding:"required"`
}

// CSVStructure is what the client needs to render the mapping step.
type CSVStructure struct {
	Headers          []string      `json:"headers"`
	SuggestedMapping ColumnMapping `json:"suggestedMapping"`
}

type UploadResponse struct {
	Session   ImportSession `json:"session"`
	Structure CSVStructure  `json:"structure"`
}

type SaveMappingRequest struct {
	ColumnMapping ColumnMapping `json:"columnMapping" binding:"required"`
}

type ConfirmResponse struct {
	ImportedCount int           `json:"importedCount"`
	SkippedCount  int           `json:"skippedCount"`
	History       ImportHistory `json:"history"`
}
