package models

// EmailMessage is one candidate email submitted for receipt scanning.
type EmailMessage struct {
	ID      string `json:"id" binding:"required"`
	Subject string `json:"subject"`
	From    string `json:"from"`
	Body    string `json:"body"`
}

type ScanEmailsRequest struct {
	Emails []EmailMessage `json:"emails" binding:"required"`
}

// ReceiptExpense is the fixed schema the extraction model is asked to
// produce, plus the resolved category row.
type ReceiptExpense struct {
	EmailID     string  `json:"emailId,omitempty"`
	Merchant    string  `json:"merchant"`
	Amount      float64 `json:"amount"`
	Date        string  `json:"date"`
	Category    string  `json:"category"`
	CategoryID  int64   `json:"categoryId"`
	Description string  `json:"description"`
}

type ScanEmailsResponse struct {
	Receipts []ReceiptExpense `json:"receipts"`
}

type AnalyzeRequest struct {
	EmailContent string `json:"emailContent" binding:"required"`
}

type AnalyzeResponse struct {
	Expenses []ReceiptExpense `json:"expenses"`
}
