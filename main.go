package main

//go:generate swag init

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/satheeshds/ledger/db"
	_ "github.com/satheeshds/ledger/docs"
	"github.com/satheeshds/ledger/handlers"
	"github.com/satheeshds/ledger/services"
	httpSwagger "github.com/swaggo/http-swagger"
)

// @title           Ledger API
// @version         1.0.0
// @description     Double-entry style personal ledger: accounts, credit cards, linked payments, statement generation, and monthly balance caching.
// @host            localhost:8080
// @BasePath        /api/v1
// @securityDefinitions.basic  BasicAuth

func main() {
	// Local overrides; absence is fine in production
	godotenv.Load()

	// Configure structured logging
	level := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	// Open database
	database, driver, err := db.Open()
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer database.Close()

	// Run migrations
	if err := db.Migrate(database, driver); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Engine tunables
	cfg := services.DefaultConfig()
	if v, err := strconv.Atoi(os.Getenv("HORIZON_MONTHS")); err == nil && v > 0 {
		cfg.HorizonMonths = v
	}
	if v, err := strconv.Atoi(os.Getenv("PAYMENT_OFFSET_DAYS")); err == nil && v > 0 {
		cfg.PaymentOffsetDays = v
	}
	handlers.Svc = services.New(database, driver, cfg)

	// Router setup
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// API routes with basic auth
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(handlers.BasicAuth)

		// Accounts
		r.Get("/accounts", handlers.ListAccounts)
		r.Post("/accounts", handlers.CreateAccount)
		r.Get("/accounts/{id}", handlers.GetAccount)
		r.Put("/accounts/{id}", handlers.UpdateAccount)
		r.Delete("/accounts/{id}", handlers.DeleteAccount)
		r.Get("/accounts/{id}/balances", handlers.GetBalanceTimeline)
		r.Get("/accounts/{id}/balances/{month}", handlers.GetMonthlyBalance)

		// Bank transactions
		r.Get("/transactions", handlers.ListTransactions)
		r.Post("/transactions", handlers.CreateTransaction)
		r.Post("/transactions/linked-payment", handlers.CreateLinkedPayment)
		r.Get("/transactions/{id}", handlers.GetTransaction)
		r.Put("/transactions/{id}", handlers.UpdateTransaction)
		r.Delete("/transactions/{id}", handlers.DeleteTransaction)

		// Credit cards
		r.Get("/cards", handlers.ListCards)
		r.Post("/cards", handlers.CreateCard)
		r.Get("/cards/{id}", handlers.GetCard)
		r.Put("/cards/{id}", handlers.UpdateCard)
		r.Delete("/cards/{id}", handlers.DeleteCard)
		r.Get("/cards/{id}/promotions", handlers.ListPromotions)
		r.Post("/cards/{id}/promotions", handlers.CreatePromotion)
		r.Delete("/cards/{id}/promotions/{promoId}", handlers.DeletePromotion)
		r.Get("/cards/{id}/transactions", handlers.ListCardTransactions)
		r.Post("/cards/{id}/transactions", handlers.CreateCardTransaction)
		r.Post("/cards/{id}/generate-statements", handlers.GenerateStatements)
		r.Post("/cards/{id}/regenerate-statements", handlers.RegenerateStatements)

		// Card transactions
		r.Get("/card-transactions/{id}", handlers.GetCardTransaction)
		r.Put("/card-transactions/{id}", handlers.UpdateCardTransaction)
		r.Delete("/card-transactions/{id}", handlers.DeleteCardTransaction)
		r.Post("/card-transactions/{id}/toggle-paid", handlers.ToggleCardTransactionPaid)
		r.Post("/card-transactions/{id}/toggle-fixed", handlers.ToggleCardTransactionFixed)

		// Admin
		r.Post("/admin/generate-statements", handlers.GenerateAllStatements)
		r.Post("/admin/regenerate-statements", handlers.RegenerateAllStatements)
		r.Post("/admin/rebuild-caches", handlers.RebuildBalanceCaches)
	})

	// Swagger UI
	r.Get("/swagger/*", httpSwagger.WrapHandler)

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	addr := fmt.Sprintf(":%s", port)
	slog.Info("server starting", "address", addr, "driver", driver)
	if err := http.ListenAndServe(addr, r); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
