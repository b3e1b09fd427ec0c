package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/finloop/loan-management/internal/config"
	"github.com/finloop/loan-management/internal/domain"
	"github.com/finloop/loan-management/internal/handler"
	"github.com/finloop/loan-management/internal/mailer"
	"github.com/finloop/loan-management/internal/repository"
	"github.com/finloop/loan-management/internal/service"
	"github.com/finloop/loan-management/pkg/response"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	db, err := initDB(cfg)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	redisClient := initRedis(cfg)
	defer redisClient.Close()

	// Repositories
	loanRepo := repository.NewLoanRepository(db)
	userRepo := repository.NewUserRepository(db)
	otpStore := repository.NewOTPStore(redisClient)
	uow := repository.NewUnitOfWork(db)

	// Services
	mail := mailer.FromConfig(cfg, logger)
	authService := service.NewAuthService(userRepo, otpStore, mail, cfg, logger)
	loanService := service.NewLoanService(loanRepo, uow, cfg, logger)

	// Handlers
	authHandler := handler.NewAuthHandler(authService)
	loanHandler := handler.NewLoanHandler(loanService)
	healthHandler := handler.NewHealthHandler(db, redisClient)
	authMW := handler.NewAuthMiddleware(authService)

	router := setupRoutes(authHandler, loanHandler, healthHandler, authMW, logger)

	server := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server exited")
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsProduction() || cfg.Logging.Format == "json" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func initDB(cfg *config.Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	return db, nil
}

func initRedis(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Host + ":" + cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

func setupRoutes(
	authHandler *handler.AuthHandler,
	loanHandler *handler.LoanHandler,
	healthHandler *handler.HealthHandler,
	authMW *handler.AuthMiddleware,
	logger *zap.Logger,
) *mux.Router {
	router := mux.NewRouter()
	router.Use(response.LoggingMiddleware(logger))
	router.Use(response.CORSMiddleware)

	// Health check
	router.HandleFunc("/health", healthHandler.Health).Methods("GET")
	router.HandleFunc("/health/ready", healthHandler.Ready).Methods("GET")

	api := router.PathPrefix("/api/v1").Subrouter()

	// Public auth routes
	auth := api.PathPrefix("/auth").Subrouter()
	auth.HandleFunc("/register", authHandler.Register).Methods("POST")
	auth.HandleFunc("/verify-otp", authHandler.VerifyOTP).Methods("POST")
	auth.HandleFunc("/resend-otp", authHandler.ResendOTP).Methods("POST")
	auth.HandleFunc("/login", authHandler.Login).Methods("POST")
	auth.HandleFunc("/refresh", authHandler.Refresh).Methods("POST")

	// Authenticated loan routes
	loans := api.PathPrefix("/loans").Subrouter()
	loans.Use(authMW.Authenticate)
	loans.HandleFunc("", loanHandler.CreateLoan).Methods("POST")
	loans.HandleFunc("", loanHandler.ListLoans).Methods("GET")
	loans.HandleFunc("/{loanId}/schedule", loanHandler.GetSchedule).Methods("GET")
	loans.HandleFunc("/{loanId}/foreclose", loanHandler.Foreclose).Methods("POST")

	// Admin routes
	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(authMW.Authenticate)
	admin.Use(handler.RequireRole(domain.RoleAdmin))
	admin.HandleFunc("/loans", loanHandler.AdminListLoans).Methods("GET")
	admin.HandleFunc("/loans/users", loanHandler.AdminListLoansWithOwners).Methods("GET")
	admin.HandleFunc("/loans/{loanId}", loanHandler.DeleteLoan).Methods("DELETE")

	return router
}
