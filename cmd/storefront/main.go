package main

import (
	"context"
	"errors"
	stdlog "log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/dukapoint/storefront/internal/auth"
	"github.com/dukapoint/storefront/internal/cache"
	"github.com/dukapoint/storefront/internal/catalog"
	"github.com/dukapoint/storefront/internal/checkout"
	"github.com/dukapoint/storefront/internal/config"
	"github.com/dukapoint/storefront/internal/notify"
	"github.com/dukapoint/storefront/internal/obs"
	"github.com/dukapoint/storefront/internal/postgres"
	"github.com/dukapoint/storefront/internal/stock"
)

func main() {
	cfg := config.Load()

	log, err := obs.NewLogger()
	if err != nil {
		stdlog.Fatalf("Failed to initialize logger: %v", err)
	}
	defer log.Sync()

	ctx := context.Background()

	tp, err := obs.InitTracer(ctx, cfg.ServiceName, cfg.OTLPEndpoint)
	if err != nil {
		log.Fatalw("Failed to initialize tracer", "error", err)
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			log.Warnw("Error shutting down tracer", "error", err)
		}
	}()

	mp, err := obs.InitMetrics(ctx, cfg.ServiceName, cfg.OTLPEndpoint)
	if err != nil {
		log.Fatalw("Failed to initialize metrics", "error", err)
	}
	defer func() {
		if err := mp.Shutdown(context.Background()); err != nil {
			log.Warnw("Error shutting down meter", "error", err)
		}
	}()

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL(), log)
	if err != nil {
		log.Fatalw("Failed to initialize database", "error", err)
	}
	defer pool.Close()

	var snapshots cache.Cache
	switch cfg.CacheBackend {
	case "redis":
		redisCache, err := cache.NewRedisCache(ctx, cfg.RedisAddr, log)
		if err != nil {
			log.Fatalw("Failed to initialize Redis cache", "error", err)
		}
		defer redisCache.Close()
		snapshots = redisCache
	default:
		snapshots = cache.NewMemoryCache()
	}

	tokens := auth.NewTokens(cfg.JWTSecret, cfg.TokenTTL)
	users := auth.NewUserRepository(pool)
	authHandler := auth.NewHandler(users, tokens, log)

	catalogRepo := catalog.NewRepository(pool)
	catalogService := catalog.NewService(catalogRepo, snapshots, cfg.CacheTTL, log)
	catalogHandler := catalog.NewHandler(catalogService, log)

	ledger := stock.NewLedger(pool)
	orders := checkout.NewOrderRepository(pool)
	dispatcher := notify.NewWebhookDispatcher(cfg.OperatorWebhookURL, cfg.NotifyTimeout, log)
	coordinator := checkout.NewCoordinator(
		orders, ledger, snapshots, dispatcher, tp.Tracer(cfg.ServiceName), log)
	checkoutHandler := checkout.NewHandler(coordinator, orders, log)

	r := gin.Default()
	r.Use(otelgin.Middleware(cfg.ServiceName))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": cfg.ServiceName})
	})

	r.POST("/api/signup", authHandler.Signup)
	r.POST("/api/login", authHandler.Login)

	r.GET("/api/public/products", catalogHandler.PublicProducts)
	r.GET("/api/public/categories", catalogHandler.PublicCategories)

	authed := r.Group("/api", auth.RequireAuth(tokens))
	authed.POST("/checkout", checkoutHandler.Checkout)

	admin := authed.Group("", auth.RequireAdmin())
	admin.POST("/reset-password", authHandler.ResetPassword)
	admin.GET("/users", authHandler.ListUsers)

	admin.GET("/products", catalogHandler.ListProducts)
	admin.POST("/products", catalogHandler.CreateProduct)
	admin.PUT("/products/:id", catalogHandler.UpdateProduct)
	admin.DELETE("/products/:id", catalogHandler.DeleteProduct)

	admin.GET("/categories", catalogHandler.ListCategories)
	admin.POST("/categories", catalogHandler.CreateCategory)
	admin.PUT("/categories/:id", catalogHandler.UpdateCategory)
	admin.DELETE("/categories/:id", catalogHandler.DeleteCategory)
	admin.POST("/categories/:id/images", catalogHandler.AddCategoryImages)
	admin.PUT("/category-images/:imageId", catalogHandler.ReplaceCategoryImage)
	admin.DELETE("/category-images/:imageId", catalogHandler.DeleteCategoryImage)

	admin.GET("/suppliers", catalogHandler.ListSuppliers)
	admin.POST("/suppliers", catalogHandler.CreateSupplier)
	admin.PUT("/suppliers/:id", catalogHandler.UpdateSupplier)
	admin.DELETE("/suppliers/:id", catalogHandler.DeleteSupplier)
	admin.GET("/suppliers-with-products", catalogHandler.SuppliersWithProducts)

	admin.GET("/transactions", checkoutHandler.ListTransactions)
	admin.PUT("/transactions/:id", checkoutHandler.UpdateTransaction)
	admin.DELETE("/transactions/:id", checkoutHandler.DeleteTransaction)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  30 * time.Second,
	}
	log.Infow("🚀 Storefront listening", "port", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalw("Failed to start server", "error", err)
	}
}
