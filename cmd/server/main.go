package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/fortebank/backend/docs"
	"github.com/fortebank/backend/internal/audit"
	"github.com/fortebank/backend/internal/config"
	"github.com/fortebank/backend/internal/database"
	"github.com/fortebank/backend/internal/ledger"
	mW "github.com/fortebank/backend/internal/middleware"
	"github.com/fortebank/backend/internal/queue"
	"github.com/fortebank/backend/internal/services"
	"github.com/fortebank/backend/internal/store"
	httpSwagger "github.com/swaggo/http-swagger"
)

// @title Fortebank Ledger API
// @version 1.0
// @description Balance and ledger operations for fortebank accounts
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https

func main() {
	cfg := config.Load()

	docs.SwaggerInfo.Title = "Fortebank Ledger API"
	docs.SwaggerInfo.Version = "1.0"
	docs.SwaggerInfo.Host = "localhost:" + cfg.Port
	docs.SwaggerInfo.BasePath = "/api/v1"
	docs.SwaggerInfo.Schemes = []string{"http", "https"}

	db := database.InitDatabase(cfg.Database)
	defer db.Close()

	redisClient := database.InitRedis(cfg.Redis)
	if redisClient != nil {
		defer redisClient.Close()
	}

	rabbit, err := queue.NewRabbitMQ(cfg.RabbitMQURI)
	if err != nil {
		log.Fatalf("Failed to connect to RabbitMQ: %v", err)
	}
	defer rabbit.Close()

	accounts := store.NewPostgresAccountStore(db)
	entries := store.NewPostgresTransactionStore(db)
	auditLog := audit.NewLogger()

	var recon ledger.ReconciliationQueue
	var settlement ledger.SettlementQueue
	if redisClient != nil {
		recon = queue.NewRedisReconciliationQueue(redisClient)
		settlement = queue.NewRedisSettlementQueue(redisClient)
	}

	writer := ledger.NewWriter(accounts, entries, auditLog, recon, cfg.Ledger.MaxRetries, cfg.Ledger.RetryBackoff)
	orchestrator := ledger.NewTransferOrchestrator(writer, accounts, auditLog, settlement, cfg.Ledger.InternationalFee, cfg.Ledger.Currency)
	adjuster := ledger.NewAdjuster(writer, accounts)

	accountService := services.NewAccountService(writer, accounts, entries)
	transferService := services.NewTransferService(orchestrator)
	adminService := services.NewAdminService(adjuster)
	batchService := services.NewBatchService(rabbit)
	paymentRequestService := services.NewPaymentRequestService(redisClient, accounts)

	r := chi.NewRouter()

	r.Use(mW.SecurityHeaders)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	})

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("http://localhost:"+cfg.Port+"/swagger/doc.json"),
	))

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(mW.Auth(cfg.JWTSecret))

			r.Post("/accounts/{accountId}/deposit", accountService.Deposit)
			r.Post("/accounts/{accountId}/withdraw", accountService.Withdraw)
			r.Get("/accounts/{accountId}/balance", accountService.GetBalance)
			r.Get("/accounts/{accountId}/transactions", accountService.ListTransactions)
			r.Get("/accounts/number/{accountNumber}", accountService.ResolveAccountNumber)

			r.Post("/transfers", transferService.CreateTransfer)
			r.Post("/transactions/batch", batchService.BatchPostings)

			r.Post("/payment-requests", paymentRequestService.CreatePaymentRequest)
			r.Post("/payment-requests/claim", paymentRequestService.ClaimPaymentRequest)
		})

		r.Group(func(r chi.Router) {
			r.Use(mW.Auth(cfg.JWTSecret))
			r.Use(mW.AdminOnly(cfg.JWTSecret))

			r.Post("/admin/accounts/{accountId}/adjust", adminService.AdjustBalance)
		})
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on :%s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server stopped")
}
