package handlers

import (
	"io"
	"net/http"

	"expense-api/models"
	"expense-api/services"

	"github.com/gin-gonic/gin"
)

// Uploaded PDFs are capped at 10 MB.
const maxPDFSize = 10 << 20

type ReceiptHandler struct {
	Service *services.ReceiptService
}

// ScanEmails filters the submitted emails down to receipt-likely ones
// and extracts structured expenses from each. Extraction failures
// degrade to an empty list, never an error status.
func (h *ReceiptHandler) ScanEmails(c *gin.Context) {
	var req models.ScanEmailsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	receipts := h.Service.ScanEmails(c.Request.Context(), req.Emails)
	c.JSON(http.StatusOK, models.ScanEmailsResponse{Receipts: receipts})
}

func (h *ReceiptHandler) Analyze(c *gin.Context) {
	var req models.AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	expenses := h.Service.AnalyzeEmail(c.Request.Context(), req.EmailContent)
	c.JSON(http.StatusOK, models.AnalyzeResponse{Expenses: expenses})
}

func (h *ReceiptHandler) AnalyzePDF(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing file upload"})
		return
	}
	if fileHeader.Size > maxPDFSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File too large"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read upload"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read upload"})
		return
	}

	expenses := h.Service.AnalyzePDF(c.Request.Context(), data)
	c.JSON(http.StatusOK, models.AnalyzeResponse{Expenses: expenses})
}
