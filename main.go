package main

import (
	"os"
	"time"

	"expense-api/config"
	"expense-api/handlers"
	"expense-api/middleware"
	"expense-api/routes"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, using environment variables")
	}

	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if os.Getenv("JWT_SECRET") == "" {
		logrus.Fatal("JWT_SECRET environment variable is required")
	}

	db, err := config.InitDB()
	if err != nil {
		logrus.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := config.RunMigrations(db); err != nil {
		logrus.Fatalf("Failed to run migrations: %v", err)
	}

	logrus.Info("Database ready")

	wsHandler := handlers.NewWSHandler()

	router := gin.New()
	router.Use(gin.Recovery())

	frontendURL := os.Getenv("FRONTEND_URL")
	if frontendURL == "" {
		frontendURL = "http://localhost:3000"
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{frontendURL},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logrus.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start),
			"ip":       c.ClientIP(),
		}).Info("request")
	})

	router.Use(middleware.RateLimiter(100, time.Minute))

	api := router.Group("/api")
	{
		routes.SetupAuthRoutes(api, db)
		api.GET("/ws/expenses/:userID", wsHandler.HandleWS)

		protected := api.Group("/")
		protected.Use(middleware.AuthMiddleware())
		{
			routes.SetupExpenseRoutes(protected, db, wsHandler)
			routes.SetupCategoryRoutes(protected, db)
			routes.SetupImportRoutes(protected, db, wsHandler)
			routes.SetupReceiptRoutes(protected, db)
			routes.SetupUserRoutes(protected, db)
		}
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	logrus.Infof("Server starting on port %s", port)
	if err := router.Run(":" + port); err != nil {
		logrus.Fatalf("Failed to start server: %v", err)
	}
}
