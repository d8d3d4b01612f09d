package main

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/mk-dev-co/supplyline-api/config"
	"github.com/mk-dev-co/supplyline-api/controllers"
	"github.com/mk-dev-co/supplyline-api/middleware"
	"github.com/mk-dev-co/supplyline-api/models"
	"github.com/mk-dev-co/supplyline-api/services"
)

func main() {
	log.Println("Starting Supplyline API server...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := config.ConnectDatabase(); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Auto-migrate database models
	db := config.GetDB()
	if err := db.AutoMigrate(
		&models.User{},
		&models.Warehouse{},
		&models.Item{},
		&models.Order{},
		&models.OrderItem{},
		&models.Delivery{},
	); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	log.Println("Database migration completed successfully")

	audit := services.NewAuditService()
	defer audit.Sync()

	var notifier services.NotificationPublisher = services.NoopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPublisher, err := services.NewKafkaPublisher(cfg.KafkaBrokers)
		if err != nil {
			log.Printf("Kafka unavailable, notification events disabled: %v", err)
		} else {
			notifier = kafkaPublisher
			defer kafkaPublisher.Close()
		}
	}

	cache := services.NewCacheService(cfg.RedisAddr, 5*time.Minute)
	defer cache.Close()

	if cfg.AWSS3Bucket != "" {
		if _, err := services.InitS3Service(); err != nil {
			log.Printf("S3 unavailable, proof-of-delivery uploads disabled: %v", err)
		}
	}

	deliveryFee, err := decimal.NewFromString(cfg.DeliveryBaseFee)
	if err != nil {
		log.Fatalf("Invalid DELIVERY_BASE_FEE %q: %v", cfg.DeliveryBaseFee, err)
	}

	services.InitOrderService(services.NewOrderService(
		db,
		services.NewStockService(),
		audit,
		notifier,
		cache,
		deliveryFee,
	))

	router := setupRouter(cfg, cache)

	port := ":" + cfg.Port
	log.Printf("Server is running on http://localhost%s", port)
	if err := router.Run(port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// setupRouter configures CORS, authentication and every API route.
func setupRouter(cfg *config.Config, cache *services.CacheService) *gin.Engine {
	router := gin.Default()

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		MaxAge:           12 * time.Hour,
		AllowCredentials: false,
	}))

	authRequired := middleware.EnsureValidToken(cfg)

	v1 := router.Group("/api/v1")
	{
		// Health check endpoint
		v1.GET("/health", healthCheck)

		// Database status endpoint
		v1.GET("/database/status", databaseStatus)

		// User provisioning and profile
		users := v1.Group("/users", authRequired)
		{
			users.POST("", controllers.CreateUser)
			users.GET("/me", controllers.GetMyProfile)
			users.PUT("/me", controllers.UpdateMyProfile)
		}

		// Shopkeeper order lifecycle
		orders := v1.Group("/orders", authRequired, middleware.RequireRole(models.RoleShopkeeper))
		{
			orders.POST("", middleware.RateLimit(cache.Client(), cfg.RateLimitPerMin, time.Minute), controllers.CreateOrder)
			orders.GET("", controllers.ListOrders)
			orders.GET("/:id", controllers.GetOrder)
			orders.POST("/:id/cancel", controllers.CancelOrder)
		}

		// Warehouse manager operations
		warehouse := v1.Group("/warehouse", authRequired, middleware.RequireRole(models.RoleWarehouseManager, models.RoleAdmin))
		{
			warehouse.POST("/onboarding", controllers.OnboardWarehouse)
			warehouse.GET("/orders", controllers.ListWarehouseOrders)
			warehouse.POST("/orders/:id/accept", controllers.AcceptOrder)
			warehouse.POST("/orders/:id/reject", controllers.RejectOrder)
			warehouse.POST("/orders/:id/assign", controllers.AssignRider)
			warehouse.POST("/items/:id/restock", controllers.RestockItem)
		}

		// Rider operations
		rider := v1.Group("/rider", authRequired, middleware.RequireRole(models.RoleRider))
		{
			rider.GET("/deliveries", controllers.ListMyDeliveries)
			rider.POST("/orders/:id/deliver", controllers.MarkDelivered)
		}

		// Admin operations
		admin := v1.Group("/admin", authRequired, middleware.RequireRole(models.RoleAdmin))
		{
			admin.PATCH("/orders/:id/status", controllers.UpdateOrderStatus)
			admin.POST("/warehouses/:id/approve", controllers.ApproveWarehouse)
		}
	}

	return router
}

// healthCheck handles the health check endpoint
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Supplyline API is running",
	})
}

// databaseStatus checks database connectivity and returns table information
func databaseStatus(c *gin.Context) {
	db := config.GetDB()

	// Get the underlying SQL database to check connection
	sqlDB, err := db.DB()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to get database instance",
			},
		})
		return
	}

	// Ping the database to verify connection
	if err := sqlDB.Ping(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_CONNECTION_ERROR",
				"message": "Database connection failed",
			},
		})
		return
	}

	// Get list of tables
	var tables []string
	if err := db.Raw("SELECT tablename FROM pg_tables WHERE schemaname = 'public'").Scan(&tables).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_QUERY_ERROR",
				"message": "Failed to query tables",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Database connected",
		"tables":  tables,
	})
}
