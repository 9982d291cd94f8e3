package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"tickex/internal/compliance"
	"tickex/internal/fees"
	"tickex/internal/handler"
	"tickex/internal/middleware"
	"tickex/internal/monitor"
	"tickex/internal/notification"
	"tickex/internal/policy"
	"tickex/internal/repository/postgres"
	"tickex/internal/scheduler"
	"tickex/internal/verify"
	"tickex/internal/verify/providers/httpjson"
	"tickex/internal/verify/providers/static"
	"tickex/pkg/cache"
	"tickex/pkg/config"
	"tickex/pkg/logger"
	"tickex/pkg/validator"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.New("compliance-service")

	if err := cfg.Validate(); err != nil {
		log.Fatal("Invalid configuration", map[string]interface{}{"error": err.Error()})
	}

	// Connect to database
	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatal("Failed to connect to database", map[string]interface{}{"error": err.Error()})
	}
	defer db.Close()

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	// Connect to Redis
	redisCache, err := cache.NewRedisCache(cfg.Redis.URL, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatal("Failed to connect to Redis", map[string]interface{}{"error": err.Error()})
	}
	defer redisCache.Close()
	redisClient := redisCache.Client()

	// Verification provider chain, tried strictly in configured order.
	var chain []verify.Registration
	for _, pc := range cfg.Providers {
		var provider verify.Provider
		if pc.URL == "" {
			provider = static.New(pc.Name, pc.Certified)
		} else {
			provider = httpjson.New(pc.Name, pc.URL, pc.APIKey, pc.Certified)
		}
		chain = append(chain, verify.Registration{
			Provider: provider,
			Timeout:  pc.Timeout,
		})
	}
	gateway, err := verify.NewGateway(chain, log)
	if err != nil {
		log.Fatal("Invalid provider configuration", map[string]interface{}{"error": err.Error()})
	}

	// Core services
	tierPolicy, err := policy.New(cfg.Policy)
	if err != nil {
		log.Fatal("Invalid policy configuration", map[string]interface{}{"error": err.Error()})
	}
	feeSchedule, err := fees.NewSchedule(cfg.Fees)
	if err != nil {
		log.Fatal("Invalid fee configuration", map[string]interface{}{"error": err.Error()})
	}

	reportRepo := postgres.NewReportRepository(db)
	monitorService := monitor.NewService(reportRepo, cfg.Retention.Window, log)
	alerts := notification.NewService(log, cfg.Alerts)
	complianceService := compliance.NewService(tierPolicy, feeSchedule, gateway, monitorService, alerts, log)

	sweep := scheduler.New(monitorService, alerts, cfg.Retention.SweepInterval, log)
	sweep.Start()
	defer sweep.Stop()

	// Handlers
	val := validator.New()
	complianceHandler := handler.NewComplianceHandler(complianceService, monitorService, val, log)

	// Router
	r := mux.NewRouter()

	r.Use(middleware.CORS)
	r.Use(middleware.CorrelationID)
	r.Use(middleware.NewLoggingMiddleware(log).Log)
	r.Use(middleware.NewRateLimiter(redisClient, 120, time.Minute).Limit)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.Recovery)
	r.Use(middleware.BodyLimit(1 << 20))

	r.HandleFunc("/health", healthCheck).Methods("GET")

	authMW := middleware.NewAuthMiddleware(cfg.JWT.Secret)
	idemMW := middleware.NewIdempotencyMiddleware(redisCache, 24*time.Hour)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(authMW.Authenticate)
	api.HandleFunc("/compliance/evaluate", complianceHandler.Evaluate).Methods("POST")
	api.HandleFunc("/compliance/verify", complianceHandler.Verify).Methods("POST")
	api.HandleFunc("/compliance/disclose", complianceHandler.Disclose).Methods("POST")
	api.HandleFunc("/compliance/accept", complianceHandler.Accept).Methods("POST")
	api.Handle("/compliance/settle", idemMW.Require(http.HandlerFunc(complianceHandler.Settle))).Methods("POST")
	api.HandleFunc("/compliance/reset", complianceHandler.Reset).Methods("POST")
	api.HandleFunc("/compliance/session", complianceHandler.Session).Methods("GET")
	api.HandleFunc("/compliance/session/watch", complianceHandler.Watch).Methods("GET")
	api.HandleFunc("/reports", complianceHandler.Reports).Methods("GET")
	api.HandleFunc("/reports/purge", complianceHandler.Purge).Methods("POST")
	api.HandleFunc("/dashboard", complianceHandler.Dashboard).Methods("GET")

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("Compliance service starting", map[string]interface{}{"port": cfg.Server.Port})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed", map[string]interface{}{"error": err.Error()})
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", map[string]interface{}{"error": err.Error()})
	}

	log.Info("Server exited", nil)
}

func healthCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok","service":"compliance"}`))
}
