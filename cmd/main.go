package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"bizdirect/subscription-service/internal/config"
	"bizdirect/subscription-service/internal/handler"
	"bizdirect/subscription-service/internal/repository"
	"bizdirect/subscription-service/internal/services"
	"bizdirect/subscription-service/internal/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	baseCtx := context.Background()
	ctx, shutdownManager := utils.NewShutdownManager(baseCtx)
	shutdownManager.StartListening()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatal("Mongo connection failed:", err)
	}
	shutdownManager.Register(func(ctx context.Context) error {
		log.Println("[SHUTDOWN] Closing MongoDB connection...")
		return mongoClient.Disconnect(ctx)
	})

	db := mongoClient.Database(cfg.MongoDatabase)

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatal("Invalid redis URL:", err)
	}
	rdb := redis.NewClient(redisOpts)
	shutdownManager.Register(func(ctx context.Context) error {
		log.Println("[SHUTDOWN] Closing Redis connection...")
		return rdb.Close()
	})

	subRepo := repository.NewSubscriptionRepository(mongoClient, db)
	planRepo := repository.NewPlanRepository(db)
	businessRepo := repository.NewBusinessRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	failureRepo := repository.NewFailureRepository(db)

	indexCtx, cancelIndexes := context.WithTimeout(ctx, 30*time.Second)
	defer cancelIndexes()
	if err := subRepo.EnsureIndexes(indexCtx); err != nil {
		log.Fatal("Failed to create subscription indexes:", err)
	}
	if err := planRepo.EnsureIndexes(indexCtx); err != nil {
		log.Fatal("Failed to create plan indexes:", err)
	}
	if err := auditRepo.EnsureIndexes(indexCtx); err != nil {
		log.Fatal("Failed to create audit indexes:", err)
	}

	events := utils.NewRedisPublisher(rdb)
	gateway := utils.NewGatewayClient(cfg.GatewayBaseURL, cfg.GatewayKeyID, cfg.GatewaySecret)

	planService := services.NewPlanService(planRepo)
	paymentService := services.NewPaymentService(planService, gateway, cfg.GatewaySecret, cfg.TaxRatePercent)
	projectionService := services.NewProjectionService(businessRepo)
	auditService := services.NewAuditService(auditRepo)
	ledger := services.NewSubscriptionService(subRepo, businessRepo, projectionService, failureRepo, auditService, events)

	sweeper := services.NewSweeper(ledger, events, cfg.SweepInterval)
	sweeper.Start(ctx)

	reconciler := services.NewReconciler(failureRepo, subRepo, projectionService, cfg.SweepInterval)
	reconciler.Start(ctx)

	subscriptionHandler := handler.NewSubscriptionHandler(ledger, paymentService, sweeper)
	planHandler := handler.NewPlanHandler(planService)
	auditHandler := handler.NewAuditHandler(auditService)

	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	authMiddleware := utils.AuthMiddleware(cfg.AuthServiceURL)
	adminOnly := utils.RequireRole("admin")

	plans := router.Group("/api/plans")
	{
		plans.GET("/", planHandler.List)
		plans.GET("/all", authMiddleware, adminOnly, planHandler.ListAll)
		plans.POST("/", authMiddleware, adminOnly, planHandler.Create)
		plans.PUT("/:id", authMiddleware, adminOnly, planHandler.Update)
		plans.DELETE("/:id", authMiddleware, adminOnly, planHandler.Deactivate)
	}

	api := router.Group("/api/subscriptions", authMiddleware)
	{
		api.POST("/orders", subscriptionHandler.CreateOrder)
		api.POST("/verify", subscriptionHandler.VerifyAndActivate)
		api.DELETE("/:id", subscriptionHandler.Cancel)
		api.GET("/my", subscriptionHandler.GetMy)
		api.GET("/business/:businessId", subscriptionHandler.GetByBusiness)

		api.GET("/", adminOnly, subscriptionHandler.GetAll)
		api.POST("/direct", adminOnly, subscriptionHandler.DirectPurchase)
		api.POST("/sweep", adminOnly, subscriptionHandler.TriggerSweep)
		api.GET("/logs", adminOnly, auditHandler.List)
		api.GET("/logs/revenue", adminOnly, auditHandler.Revenue)
	}

	server := &http.Server{
		Addr:    cfg.ServerPort,
		Handler: router,
	}

	go func() {
		log.Println("Subscription service running on", cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	shutdownManager.Register(func(ctx context.Context) error {
		log.Println("[SHUTDOWN] Shutting down HTTP server...")
		return server.Shutdown(ctx)
	})

	select {}
}
