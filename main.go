package main

import (
	"encoding/json"
	stdlog "log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/patrickmn/go-cache"
	"github.com/username/fundfolio/backend/src/config"
	"github.com/username/fundfolio/backend/src/database"
	"github.com/username/fundfolio/backend/src/handlers"
	"github.com/username/fundfolio/backend/src/logger"
	"github.com/username/fundfolio/backend/src/parsers"
	"github.com/username/fundfolio/backend/src/parsers/tradelog"
	"github.com/username/fundfolio/backend/src/security"
	"github.com/username/fundfolio/backend/src/services"
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
		allowedOrigins := map[string]bool{
			"http://localhost:3000":    true,
			config.Cfg.FrontendBaseURL: true,
		}

		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE, PATCH")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, Authorization, X-Requested-With")
		} else if origin == "" {
			w.Header().Set("Access-Control-Allow-Origin", "*")
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

	logger.L.Info("FundFolio backend server starting...")

	if config.Cfg.JWTSecret == "" || len(config.Cfg.JWTSecret) < 32 {
		logger.L.Error("JWT_SECRET configuration invalid.")
		os.Exit(1)
	}

	logger.L.Info("Initializing database...", "path", config.Cfg.DatabasePath)
	database.InitDB(config.Cfg.DatabasePath)
	database.RunMigrations(config.Cfg.DatabasePath)

	parsers.Register("tradelog", tradelog.NewParser())
	parsers.Register("csv", tradelog.NewParser())

	reportCache := cache.New(services.DefaultCacheExpiration, services.CacheCleanupInterval)

	authService := security.NewAuthService(config.Cfg.JWTSecret, config.Cfg.AccessTokenExpiry)

	settingsService := services.NewSettingsService(database.DB)
	flowService := services.NewCapitalFlowService(database.DB, settingsService, reportCache)
	tradeService := services.NewTradeService(database.DB, settingsService, flowService)
	clientService := services.NewClientService(database.DB, flowService)
	benchmarkService := services.NewBenchmarkService(settingsService, reportCache)

	authHandler := handlers.NewAuthHandler(authService, clientService)
	tradeHandler := handlers.NewTradeHandler(tradeService, flowService)
	clientHandler := handlers.NewClientHandler(clientService)
	flowHandler := handlers.NewCapitalFlowHandler(flowService, benchmarkService)
	settingsHandler := handlers.NewSettingsHandler(settingsService, flowService)

	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(handlers.ContextualLoggerMiddleware)
	r.Use(enableCORS)
	r.Use(rateLimitMiddleware)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"message": "FundFolio Backend is running"})
	})

	r.Route("/api", func(r chi.Router) {
		// Public routes
		r.Post("/auth/login", authHandler.HandleLogin)

		// Authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(authHandler.AuthMiddleware)

			r.Get("/movements", clientHandler.HandleListMovements)
			r.Get("/returns/monthly", flowHandler.HandleMonthlyReturns)
			r.Get("/returns/biweekly", flowHandler.HandleBiweeklyReturns)
			r.Get("/clients/{clientID}/capital-flow", flowHandler.HandleCapitalFlow)
			r.Get("/benchmark/sp500", flowHandler.HandleBenchmark)

			// Admin routes
			r.Group(func(r chi.Router) {
				r.Use(authHandler.AdminMiddleware)

				r.Post("/trades/import", tradeHandler.HandleImport)
				r.Get("/trades", tradeHandler.HandleListTrades)
				r.Delete("/trades", tradeHandler.HandleDeleteAllTrades)
				r.Post("/trades/remove-by-return", tradeHandler.HandleRemoveByReturn)
				r.Get("/trades/summary", tradeHandler.HandleSummary)
				r.Get("/imports/history", tradeHandler.HandleImportHistory)

				r.Get("/clients", clientHandler.HandleListClients)
				r.Post("/clients", clientHandler.HandleUpsertClient)
				r.Put("/clients/{clientID}", clientHandler.HandleUpsertClient)
				r.Delete("/clients/{clientID}", clientHandler.HandleDeleteClient)
				r.Post("/movements", clientHandler.HandleAddMovement)

				r.Get("/capital/monthly", clientHandler.HandleListMonthlyOverrides)
				r.Put("/capital/monthly/{month}", clientHandler.HandleSetMonthlyOverride)
				r.Delete("/capital/monthly/{month}", clientHandler.HandleDeleteMonthlyOverride)

				r.Get("/returns/daily", flowHandler.HandleDailyReturns)
				r.Get("/returns/weekly", flowHandler.HandleWeeklyReturns)

				r.Get("/settings", settingsHandler.HandleGetGlobal)
				r.Put("/settings", settingsHandler.HandleUpdateGlobal)
				r.Get("/settings/clients/{clientID}", settingsHandler.HandleGetClient)
				r.Put("/settings/clients/{clientID}", settingsHandler.HandleUpdateClient)
				r.Delete("/settings/clients/{clientID}", settingsHandler.HandleDeleteClientOverrides)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/api/") {
			http.NotFound(w, r)
		}
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
