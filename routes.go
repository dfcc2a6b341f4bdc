package main

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/vapecity/vapecity-api/config"
	"github.com/vapecity/vapecity-api/controllers"
	"github.com/vapecity/vapecity-api/metrics"
	"github.com/vapecity/vapecity-api/middleware"
)

// newRouter builds the HTTP API. Services must be initialized before the
// router serves requests.
func newRouter(cfg *config.Config) *gin.Engine {
	router := gin.Default()
	router.MaxMultipartMemory = 8 << 20

	corsConfig := cors.DefaultConfig()
	if len(cfg.CORSOrigins) == 0 || (len(cfg.CORSOrigins) == 1 && cfg.CORSOrigins[0] == "*") {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = cfg.CORSOrigins
	}
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization")
	router.Use(cors.New(corsConfig))
	router.Use(metrics.Middleware())

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/uploads/*path", controllers.GetUploadedFile)

	ensureAdmin := middleware.EnsureAdmin(cfg)

	api := router.Group("/api")
	{
		api.GET("/health", healthCheck)
		api.GET("/database/status", databaseStatus)

		api.GET("/categories", controllers.ListCategories)
		api.GET("/categories/:slug", controllers.GetCategory)

		api.GET("/stores", controllers.ListStores)
		api.GET("/stores/:id", controllers.GetStore)
		api.GET("/stores/:id/inventory", controllers.GetStoreInventory)

		api.GET("/products", controllers.ListProducts)
		api.POST("/products/check-availability", controllers.CheckAvailability)
		api.GET("/products/:id", controllers.GetProduct)

		users := api.Group("/users/:telegramId")
		{
			users.GET("", controllers.GetUser)
			users.POST("", controllers.UpsertUser)
			users.GET("/generate-code", controllers.GenerateDiscountCode)
			users.GET("/discount-qr", controllers.GetDiscountQR)
		}

		reservations := api.Group("/reservations")
		{
			reservations.POST("", controllers.CreateReservation)
			reservations.GET("/user/:tgId", controllers.ListUserReservations)
			reservations.GET("/store/:storeId", controllers.ListStoreReservations)
			reservations.GET("/:id", controllers.GetReservation)
			reservations.PATCH("/:id", middleware.OptionalAdmin(cfg), controllers.UpdateReservationStatus)
			reservations.PATCH("/:id/recipient", controllers.UpdateReservationRecipient)
			reservations.POST("/:id/receipt", controllers.UploadReceipt)
			reservations.POST("/:id/shipping", ensureAdmin, controllers.UploadShippingImage)
			reservations.DELETE("/:id", ensureAdmin, controllers.DeleteReservation)
		}

		api.POST("/admin/login", controllers.AdminLogin)

		admin := api.Group("/admin")
		admin.Use(ensureAdmin)
		{
			admin.GET("/check", controllers.AdminCheck)

			admin.GET("/products", controllers.AdminListProducts)
			admin.POST("/products", controllers.CreateProduct)
			admin.PUT("/products/:id", controllers.UpdateProduct)
			admin.DELETE("/products/:id", controllers.DeleteProduct)
			admin.POST("/products/:id/image", controllers.UploadProductImage)
			admin.DELETE("/products/:id/image", controllers.DeleteProductImage)
			admin.GET("/products/:id/attributes", controllers.GetProductAttributes)
			admin.PUT("/products/:id/attributes", controllers.ReplaceProductAttributes)

			admin.GET("/categories", controllers.AdminListCategories)
			admin.POST("/categories", controllers.CreateCategory)
			admin.PUT("/categories/:id", controllers.UpdateCategory)
			admin.DELETE("/categories/:id", controllers.DeleteCategory)

			admin.GET("/stores", controllers.AdminListStores)
			admin.POST("/stores", controllers.CreateStore)
			admin.PUT("/stores/:id", controllers.UpdateStore)
			admin.DELETE("/stores/:id", controllers.DeleteStore)
			admin.GET("/stores/:id/sellers", controllers.ListSellers)
			admin.POST("/stores/:id/sellers", controllers.AddSeller)
			admin.DELETE("/stores/:id/sellers/:sellerId", controllers.DeleteSeller)

			admin.GET("/inventory/:storeId", controllers.AdminInventory)
			admin.PUT("/inventory/:storeId/:productId", controllers.SetInventory)

			admin.GET("/orders", controllers.ListAdminOrders)

			admin.GET("/settings", controllers.GetSettings)
			admin.PUT("/settings", controllers.UpdateSettings)

			admin.POST("/images/generate", controllers.GenerateImage)
			admin.POST("/images/category-icon", controllers.GenerateCategoryIcon)
			admin.POST("/images/theme-background", controllers.GenerateThemeBackground)
		}
	}

	return router
}

// healthCheck handles the health check endpoint
func healthCheck(c *gin.Context) {
	status := "ok"
	if err := pingDatabase(); err != nil {
		status = "degraded"
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"status":   status,
			"database": status == "ok",
			"bot":      botStatus(),
		},
	})
}

func pingDatabase() error {
	db := config.GetDB()
	if db == nil {
		return errNoDatabase
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// databaseStatus checks database connectivity and returns table information
func databaseStatus(c *gin.Context) {
	if err := pingDatabase(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Database connection failed",
			"code":    "DATABASE_CONNECTION_ERROR",
		})
		return
	}

	tables, err := config.GetDB().Migrator().GetTables()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to query tables",
			"code":    "DATABASE_QUERY_ERROR",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    gin.H{"tables": tables},
	})
}
