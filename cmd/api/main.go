package main

import (
	"context"
	"log"
	"os"

	_ "shopbill/api/swagger" // swagger docs
	"shopbill/internal/database"
	"shopbill/internal/handler"
	"shopbill/internal/middleware"
	"shopbill/internal/notify"
	"shopbill/internal/repository"
	"shopbill/internal/service"
	"shopbill/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           Shop Billing API
// @version         1.0
// @description     Retail billing backend: products, stock, clients, GST bills, reports.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	if err := godotenv.Load("configs/.env"); err != nil {
		log.Println("No configs/.env file found or error loading it")
	}

	dbHost := envOr("DB_HOST", "localhost")
	dbPort := envOr("DB_PORT", "5432")
	dbUser := envOr("DB_USER", "postgres")
	dbPassword := envOr("DB_PASSWORD", "postgres")
	dbName := envOr("DB_NAME", "shopbill")
	dbSslMode := envOr("DB_SSLMODE", "disable")

	dsn := "postgres://" + dbUser + ":" + dbPassword + "@" + dbHost + ":" + dbPort + "/" + dbName + "?sslmode=" + dbSslMode

	db, err := database.NewConnection(dsn)
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	log.Println("Connected to PostgreSQL successfully.")

	// Set up WebSocket Hub
	wsHub := websocket.NewHub()
	go wsHub.Run()

	// Notification channels, log-backed when unconfigured
	dispatcher := notify.NewDispatcher(
		notify.NewWhatsAppSender(os.Getenv("WHATSAPP_API_URL")),
		notify.NewEmailSender(
			os.Getenv("SMTP_HOST"),
			envOr("SMTP_PORT", "587"),
			os.Getenv("SMTP_FROM"),
			os.Getenv("SMTP_PASSWORD"),
		),
	)

	baseURL := envOr("BASE_URL", "http://localhost:8080")

	// Set up dependencies (Repository -> Service -> Handler)
	txManager := repository.NewTransactionManager(db)
	userRepo := repository.NewUserRepository(db)
	productRepo := repository.NewProductRepository(db)
	stockLogRepo := repository.NewStockLogRepository(db)
	clientRepo := repository.NewClientRepository(db)
	billRepo := repository.NewBillRepository(db)
	settingRepo := repository.NewSettingRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	reportRepo := repository.NewReportRepository(db)

	userService := service.NewUserService(userRepo)
	settingService := service.NewSettingService(settingRepo, auditRepo, txManager)
	productService := service.NewProductService(productRepo, stockLogRepo, auditRepo, settingService, txManager, wsHub)
	clientService := service.NewClientService(clientRepo, auditRepo, txManager)
	billService := service.NewBillService(billRepo, productRepo, clientRepo, stockLogRepo, auditRepo, settingService, txManager, dispatcher, wsHub, baseURL)
	stockHistoryService := service.NewStockHistoryService(stockLogRepo, auditRepo, txManager)
	reportService := service.NewReportService(reportRepo, settingService)
	auditService := service.NewAuditService(auditRepo)

	// Seed defaults so a fresh install can sign in and raise bills
	ctx := context.Background()
	if err := settingRepo.SeedDefaults(ctx, service.DefaultSettings()); err != nil {
		log.Fatalf("Failed to seed settings: %v", err)
	}
	if err := userService.SeedDefaultAdmin(ctx); err != nil {
		log.Fatalf("Failed to seed admin user: %v", err)
	}

	// Initialize Handlers
	userHandler := handler.NewUserHandler(userService)
	productHandler := handler.NewProductHandler(productService)
	stockHandler := handler.NewStockHandler(stockHistoryService)
	clientHandler := handler.NewClientHandler(clientService)
	billHandler := handler.NewBillHandler(billService)
	settingHandler := handler.NewSettingHandler(settingService)
	reportHandler := handler.NewReportHandler(reportService)
	auditHandler := handler.NewAuditHandler(auditService)

	// Set up Gin Router
	router := gin.Default()

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"http://localhost:5173", "http://127.0.0.1:5173", "http://localhost:5174"} // Frontend URL
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "OK"})
	})

	// WebSocket endpoint
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, middleware.GetJWTSecret())
	})

	// Register API Routes
	userHandler.RegisterRoutes(router.Group(""))
	productHandler.RegisterRoutes(router.Group(""))
	stockHandler.RegisterRoutes(router.Group(""))
	clientHandler.RegisterRoutes(router.Group(""))
	billHandler.RegisterRoutes(router.Group(""))
	settingHandler.RegisterRoutes(router.Group(""))
	reportHandler.RegisterRoutes(router.Group(""))
	auditHandler.RegisterRoutes(router.Group(""))

	port := envOr("PORT", "8080")

	log.Printf("Server listening on :%s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
