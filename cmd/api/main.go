package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"hearth/internal/ai"
	"hearth/internal/config"
	"hearth/internal/database"
	"hearth/internal/handlers"
	"hearth/internal/logger"
	"hearth/internal/middleware"
	"hearth/internal/provider"
	"hearth/internal/services"
	"hearth/internal/validator"

	_ "hearth/internal/docs" // Import swagger docs
)

// @title           Hearth API
// @version         1.0
// @description     Hearth is a household finance backend: provider sync, statement imports, automated classification, splits and transfer matching over a shared ledger.

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	validator.Register()

	dbConfig, err := database.NewConfig()
	if err != nil {
		return fmt.Errorf("failed to load database configuration: %w", err)
	}
	dbManager, err := database.NewManager(dbConfig)
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}
	if err := dbManager.Migrate(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}
	db := dbManager.DB()

	// Provider client is optional; sync endpoints degrade to 502 without it.
	var providerClient provider.Client
	if appConfig.ProviderBaseURL != "" {
		providerClient = provider.NewHTTPClient(provider.Options{
			BaseURL:  appConfig.ProviderBaseURL,
			ClientID: appConfig.ProviderClientID,
			Secret:   appConfig.ProviderSecret,
			Timeout:  appConfig.ProviderTimeout,
		})
	} else {
		log.Warn("PROVIDER_BASE_URL not set; provider sync disabled")
	}

	categoryMap, err := provider.LoadCategoryMap(appConfig.CategoryMapFile)
	if err != nil {
		return fmt.Errorf("failed to load category map: %w", err)
	}

	// Classifier is optional; classification and receipts degrade to 503.
	var classifier ai.Classifier
	if appConfig.GeminiAPIKey != "" {
		c, err := ai.NewGeminiClassifier(context.Background(), appConfig.GeminiAPIKey, appConfig.GeminiModel)
		if err != nil {
			return fmt.Errorf("failed to create classifier: %w", err)
		}
		classifier = c
	} else {
		log.Warn("GEMINI_API_KEY not set; automated classification and receipt extraction disabled")
	}

	// Services
	userService := services.NewUserService(db)
	householdService := services.NewHouseholdService(db)
	accountService := services.NewAccountService(db, householdService)
	categoryService := services.NewCategoryService(db, householdService)
	auditService := services.NewAuditService(db)
	transactionService := services.NewTransactionService(db, householdService)
	classifyService := services.NewClassifyService(db, classifier, householdService, appConfig.ClassifyWindow, appConfig.ClassifyBatchSize)
	importService := services.NewImportService(db, householdService, classifyService)
	syncService := services.NewSyncService(db, providerClient, householdService, categoryMap, appConfig.ProviderPageSize)
	receiptService := services.NewReceiptService(db, classifier, householdService, appConfig.AITimeout)
	splitService := services.NewSplitService(db, householdService, receiptService)
	transferService := services.NewTransferService(db, householdService)

	// Handlers
	authHandler := handlers.NewAuthHandler(userService, auditService)
	householdHandler := handlers.NewHouseholdHandler(householdService, auditService)
	accountHandler := handlers.NewAccountHandler(accountService)
	categoryHandler := handlers.NewCategoryHandler(categoryService)
	transactionHandler := handlers.NewTransactionHandler(transactionService, auditService)
	importHandler := handlers.NewImportHandler(importService, auditService)
	connectionHandler := handlers.NewConnectionHandler(syncService, auditService)
	classifyHandler := handlers.NewClassifyHandler(classifyService, auditService)
	splitHandler := handlers.NewSplitHandler(splitService)
	transferHandler := handlers.NewTransferHandler(transferService)
	receiptHandler := handlers.NewReceiptHandler(receiptService)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.ErrorHandler())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")

	auth := v1.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)

	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware())

	protected.GET("/auth/me", authHandler.Me)

	households := protected.Group("/households")
	households.POST("", householdHandler.CreateHousehold)
	households.GET("", householdHandler.GetHouseholds)
	households.GET("/:id", householdHandler.GetHousehold)
	households.PATCH("/:id", householdHandler.UpdateHousehold)
	households.POST("/:id/members", householdHandler.AddMember)
	households.GET("/:id/members", householdHandler.GetMembers)

	accounts := protected.Group("/accounts")
	accounts.POST("", accountHandler.CreateAccount)
	accounts.GET("", accountHandler.GetAccounts)
	accounts.GET("/:id", accountHandler.GetAccount)
	accounts.PATCH("/:id", accountHandler.UpdateAccount)
	accounts.DELETE("/:id", accountHandler.DeleteAccount)

	categories := protected.Group("/categories")
	categories.POST("", categoryHandler.CreateCategory)
	categories.GET("", categoryHandler.GetCategories)
	categories.PATCH("/:id", categoryHandler.UpdateCategory)
	categories.DELETE("/:id", categoryHandler.DeleteCategory)

	transactions := protected.Group("/transactions")
	transactions.POST("", transactionHandler.CreateTransaction)
	transactions.GET("", transactionHandler.GetTransactions)
	transactions.GET("/recent", transactionHandler.GetRecentTransactions)
	transactions.GET("/cash-flow", transactionHandler.GetCashFlow)
	transactions.GET("/spending", transactionHandler.GetSpendingByCategory)
	transactions.POST("/bulk/recategorize", transactionHandler.BulkRecategorize)
	transactions.POST("/bulk/delete", transactionHandler.BulkDelete)
	transactions.GET("/:id", transactionHandler.GetTransaction)
	transactions.PATCH("/:id", transactionHandler.UpdateTransaction)
	transactions.DELETE("/:id", transactionHandler.DeleteTransaction)
	transactions.POST("/:id/split", splitHandler.Split)
	transactions.POST("/:id/split/receipt", splitHandler.SplitFromReceipt)
	transactions.GET("/:id/transfer/matches", transferHandler.FindMatches)
	transactions.POST("/:id/transfer", transferHandler.Link)
	transactions.DELETE("/:id/transfer", transferHandler.Unlink)

	imports := protected.Group("/imports")
	imports.POST("/csv/preview", importHandler.PreviewCSV)
	imports.POST("/csv", importHandler.ImportCSV)
	imports.POST("/ofx", importHandler.ImportOFX)

	connections := protected.Group("/connections")
	connections.POST("", connectionHandler.CreateConnection)
	connections.GET("", connectionHandler.GetConnections)
	connections.DELETE("/:id", connectionHandler.DeleteConnection)
	connections.POST("/:id/sync", connectionHandler.Sync)

	protected.POST("/classify", classifyHandler.Classify)

	receipts := protected.Group("/receipts")
	receipts.POST("", receiptHandler.Upload)
	receipts.GET("", receiptHandler.GetScans)
	receipts.GET("/:id", receiptHandler.GetScan)

	log.Infof("Starting Hearth backend server on port %s", appConfig.Port)
	log.Infof("Swagger documentation available at http://localhost:%s/swagger/index.html", appConfig.Port)
	return router.Run(":" + appConfig.Port)
}
