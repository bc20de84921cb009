package routes

import (
	"database/sql"

	"expense-api/handlers"
	"expense-api/services"

	"github.com/gin-gonic/gin"
)

// SetupAuthRoutes sets up public authentication routes.
func SetupAuthRoutes(rg *gin.RouterGroup, db *sql.DB) {
	authHandler := &handlers.AuthHandler{DB: db}

	rg.POST("/auth/register", authHandler.Register)
	rg.POST("/auth/login", authHandler.Login)
}

// SetupExpenseRoutes sets up protected expense CRUD routes.
func SetupExpenseRoutes(rg *gin.RouterGroup, db *sql.DB, feed *handlers.WSHandler) {
	h := &handlers.ExpenseHandler{
		Service: services.NewExpenseService(db),
		Feed:    feed,
	}

	rg.GET("/expenses", h.List)
	rg.GET("/expenses/monthly-total", h.MonthlyTotal)
	rg.GET("/expenses/:id", h.Get)
	rg.POST("/expenses", h.Create)
	rg.PUT("/expenses/:id", h.Update)
	rg.DELETE("/expenses/:id", h.Delete)
}

// SetupCategoryRoutes sets up the read-only category route.
func SetupCategoryRoutes(rg *gin.RouterGroup, db *sql.DB) {
	h := &handlers.CategoryHandler{Resolver: services.NewCategoryResolver(db)}

	rg.GET("/categories", h.List)
}

// SetupImportRoutes sets up the CSV import workflow routes.
func SetupImportRoutes(rg *gin.RouterGroup, db *sql.DB, feed *handlers.WSHandler) {
	h := &handlers.ImportHandler{
		Service: services.NewImportService(db),
		Feed:    feed,
	}

	rg.POST("/import/upload", h.Upload)
	rg.POST("/import/session/:id/mapping", h.SaveMapping)
	rg.POST("/import/session/:id/confirm", h.Confirm)
	rg.GET("/import/history", h.History)
}

// SetupReceiptRoutes sets up the LLM-backed receipt extraction routes.
func SetupReceiptRoutes(rg *gin.RouterGroup, db *sql.DB) {
	h := &handlers.ReceiptHandler{Service: services.NewReceiptService(db)}

	rg.POST("/receipts/scan-emails", h.ScanEmails)
	rg.POST("/receipts/analyze", h.Analyze)
	rg.POST("/receipts/analyze-pdf", h.AnalyzePDF)
}

// SetupUserRoutes sets up protected account management routes.
func SetupUserRoutes(rg *gin.RouterGroup, db *sql.DB) {
	userHandler := &handlers.UserHandler{DB: db}

	rg.GET("/user/profile", userHandler.GetProfile)
	rg.POST("/user/password", userHandler.ChangePassword)
	rg.POST("/user/2fa/setup", userHandler.SetupTOTP)
	rg.POST("/user/2fa/verify", userHandler.VerifyTOTP)
	rg.POST("/user/2fa/disable", userHandler.DisableTOTP)
	rg.DELETE("/user/account", userHandler.DeleteAccount)
}
