package main

import (
	"encoding/json"
	stdlog "log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/username/gramstracker/backend/src/config"
	"github.com/username/gramstracker/backend/src/database"
	"github.com/username/gramstracker/backend/src/handlers"
	"github.com/username/gramstracker/backend/src/logger"
	"github.com/username/gramstracker/backend/src/security"
	"github.com/username/gramstracker/backend/src/services"
	"github.com/username/gramstracker/backend/src/storage"
	"golang.org/x/time/rate"
)

var limiter = rate.NewLimiter(rate.Every(100*time.Millisecond), 30)

func rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			logger.L.Warn("Rate limit exceeded", "path", r.URL.Path)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == config.Cfg.FrontendBaseURL {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, Authorization, X-Requested-With")
		}

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func main() {
	config.LoadConfig()
	logger.InitLogger(config.Cfg.LogLevel)

	logger.L.Info("Gramstracker backend server starting...")

	if len(config.Cfg.JWTSecret) < 32 {
		stdlog.Fatalf("JWT_SECRET must be at least 32 characters")
	}

	logger.L.Info("Initializing database...", "path", config.Cfg.DatabasePath)
	database.InitDB(config.Cfg.DatabasePath)
	database.RunMigrations(config.Cfg.DatabasePath)

	adapter := storage.NewSQLiteAdapter(database.DB)

	authService := security.NewAuthService(
		config.Cfg.JWTSecret,
		config.Cfg.AccessKeys,
		config.Cfg.MaxUnlockAttempts,
		config.Cfg.LockoutBaseDuration,
		config.Cfg.SessionTokenExpiry,
	)
	ledgerService := services.NewLedgerService(adapter, config.Cfg.DefaultPricePerGram)
	historyGate := services.NewHistoryGate(
		config.Cfg.HistoryAccessPIN,
		config.Cfg.EmergencyDeletePIN,
		ledgerService,
		config.Cfg.HistorySessionTTL,
	)

	authHandler := handlers.NewAuthHandler(authService, ledgerService, historyGate)
	stockHandler := handlers.NewStockHandler(ledgerService)
	historyHandler := handlers.NewHistoryHandler(ledgerService, historyGate)

	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(handlers.ContextualLoggerMiddleware)
	r.Use(enableCORS)
	r.Use(rateLimitMiddleware)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"message": "Gramstracker Backend is running"})
	})

	r.Route("/api", func(r chi.Router) {
		// Public routes
		r.Post("/auth/unlock", authHandler.UnlockHandler)

		// Protected routes (require a session token)
		r.Group(func(r chi.Router) {
			r.Use(authHandler.AuthMiddleware)

			r.Post("/auth/logout", authHandler.LogoutHandler)

			r.Get("/stock", stockHandler.HandleGetStock)
			r.Post("/stock/add", stockHandler.HandleAddStock)
			r.Post("/sell", stockHandler.HandleSell)
			r.Post("/sell/by-money", stockHandler.HandleSellByMoney)
			r.Post("/trade", stockHandler.HandleTrade)
			r.Post("/transactions/undo", stockHandler.HandleUndo)
			r.Put("/settings/price", stockHandler.HandleSetPrice)
			r.Delete("/history", stockHandler.HandleClearHistory)

			r.Post("/history/authorize", historyHandler.HandleAuthorize)
			r.Post("/history/deauthorize", historyHandler.HandleDeauthorize)
			r.Get("/history", historyHandler.HandleGetHistory)
		})
	})

	serverAddr := ":" + config.Cfg.Port
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.L.Info("Server starting", "address", serverAddr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		stdlog.Fatalf("Failed to start server: %v", err)
	}
}
