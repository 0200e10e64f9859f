package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/CodeWithFin/warehouse-inventory/config"
	"github.com/CodeWithFin/warehouse-inventory/internal/api"
	"github.com/CodeWithFin/warehouse-inventory/internal/broker"
	"github.com/CodeWithFin/warehouse-inventory/internal/ledger"
	"github.com/CodeWithFin/warehouse-inventory/internal/redisclient"
	"github.com/CodeWithFin/warehouse-inventory/internal/service"
	"github.com/CodeWithFin/warehouse-inventory/internal/store"
	"github.com/CodeWithFin/warehouse-inventory/internal/util"
	"github.com/CodeWithFin/warehouse-inventory/internal/worker"

	"github.com/gin-gonic/gin"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting warehouse inventory service")

	tp, err := util.InitTracer("warehouse-inventory", cfg.Observ.JaegerEndpoint)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down tracer: %v", err)
		}
	}()

	db, err := store.NewStore(cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Database connected")

	redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("Redis connected")

	producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicStock)
	defer producer.Close()
	log.Println("Kafka producer initialized")

	eventPublisher := broker.NewEventPublisher(producer)

	clock := ledger.SystemClock()
	soonWindow := time.Duration(cfg.Inventory.ExpirySoonWindowDays) * 24 * time.Hour
	lockTTL := time.Duration(cfg.Inventory.LockTTLSeconds) * time.Second

	inventoryService := service.NewInventoryService(db, redisClient, eventPublisher, clock, soonWindow, lockTTL)

	ctx := context.Background()
	if err := inventoryService.SyncStockToRedis(ctx); err != nil {
		log.Printf("Failed to sync stock snapshots to Redis: %v", err)
	}

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	lowStockConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicStock, cfg.Kafka.ConsumerGroup)
	lowStockWorker := worker.NewLowStockWorker(lowStockConsumer, eventPublisher)
	go func() {
		if err := lowStockWorker.Start(workerCtx); err != nil {
			log.Printf("Low-stock worker error: %v", err)
		}
	}()

	sweepInterval := time.Duration(cfg.Inventory.ExpirySweepSeconds) * time.Second
	expiryWorker := worker.NewExpiryWorker(db, eventPublisher, clock, soonWindow, sweepInterval)
	go func() {
		if err := expiryWorker.Start(workerCtx); err != nil {
			log.Printf("Expiry worker error: %v", err)
		}
	}()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handler := api.NewHandler(inventoryService)
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Printf("Starting HTTP server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	workerCancel()
	lowStockWorker.Stop()

	log.Println("Server exited")
}
