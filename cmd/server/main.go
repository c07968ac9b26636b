package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/minhasfinancas/backend/docs"
	"github.com/minhasfinancas/backend/internal/config"
	"github.com/minhasfinancas/backend/internal/database"
	"github.com/minhasfinancas/backend/internal/handlers"
	mW "github.com/minhasfinancas/backend/internal/middleware"
	"github.com/minhasfinancas/backend/internal/services"
)

// @title Minhas Financas API
// @version 1.0
// @description Personal finance management backend
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	// Initialize config
	config.Load()

	// Initialize Swagger docs
	docs.SwaggerInfo.Title = "Minhas Financas API"
	docs.SwaggerInfo.Description = "Personal finance management backend"
	docs.SwaggerInfo.Version = "1.0"
	docs.SwaggerInfo.Host = "localhost:8080"
	docs.SwaggerInfo.BasePath = "/api/v1"
	docs.SwaggerInfo.Schemes = []string{"http", "https"}

	// Initialize stores
	db := database.InitDatabase()
	defer db.Close()

	if err := database.RunMigrations(db); err != nil {
		logrus.Fatalf("Failed to run database migrations: %v", err)
	}

	redisClient := database.InitRedis()
	if redisClient != nil {
		defer redisClient.Close()
	}

	// Initialize services
	auditService := services.NewAuditService(redisClient)
	authService := services.NewAuthService(db, auditService)
	userService := services.NewUserService(db, auditService)
	categoryService := services.NewCategoryService(db, auditService)
	budgetService := services.NewBudgetService(db, auditService)
	movementService := services.NewMovementService(db, auditService)
	reservationService := services.NewReservationService(db, auditService)

	authHandler := handlers.NewAuthHandler(authService, userService)
	userHandler := handlers.NewUserHandler(userService)
	categoryHandler := handlers.NewCategoryHandler(categoryService)
	budgetHandler := handlers.NewBudgetHandler(budgetService)
	movementHandler := handlers.NewMovementHandler(movementService)
	reservationHandler := handlers.NewReservationHandler(reservationService)
	auditHandler := handlers.NewAuditHandler(auditService)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(mW.SecurityHeaders)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Access-Control-Allow-Origin"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	})

	// Swagger documentation
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("http://localhost:8080/swagger/doc.json"),
	))

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public endpoints (no auth required)
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/refresh", authHandler.Refresh)

		// Protected endpoints (auth required)
		r.Group(func(r chi.Router) {
			r.Use(mW.Auth)

			r.Post("/auth/logout", authHandler.Logout)

			r.Post("/users", userHandler.Create)
			r.Get("/users", userHandler.List)
			r.Get("/users/{id}", userHandler.Get)
			r.Put("/users/{id}", userHandler.Update)
			r.Delete("/users/{id}", userHandler.Remove)

			r.Post("/categories", categoryHandler.Create)
			r.Get("/categories", categoryHandler.List)
			r.Get("/categories/{id}", categoryHandler.Get)
			r.Put("/categories/{id}", categoryHandler.Update)
			r.Delete("/categories/{id}", categoryHandler.Remove)

			r.Post("/budgets", budgetHandler.Create)
			r.Get("/budgets", budgetHandler.List)
			r.Get("/budgets/{id}", budgetHandler.Get)
			r.Put("/budgets/{id}", budgetHandler.Update)
			r.Delete("/budgets/{id}", budgetHandler.Remove)
			r.Post("/budgets/{id}/clone", budgetHandler.Clone)
			r.Post("/budgets/{id}/items", budgetHandler.AddItem)
			r.Put("/budget-items/{itemId}", budgetHandler.UpdateItem)
			r.Delete("/budget-items/{itemId}", budgetHandler.RemoveItem)

			r.Get("/periods/{period}/categories", budgetHandler.PeriodCategories)

			r.Post("/movements", movementHandler.Create)
			r.Get("/movements", movementHandler.List)
			r.Get("/movements/{id}", movementHandler.Get)
			r.Put("/movements/{id}", movementHandler.Update)
			r.Delete("/movements/{id}", movementHandler.Remove)

			r.Post("/reservations", reservationHandler.Create)
			r.Get("/reservations", reservationHandler.List)
			r.Get("/reservations/{id}", reservationHandler.Get)
			r.Put("/reservations/{id}", reservationHandler.Update)
			r.Delete("/reservations/{id}", reservationHandler.Remove)

			r.Get("/audit-logs", auditHandler.List)
			r.Get("/audit-logs/{id}", auditHandler.Get)
		})
	})

	port := viper.GetString("server.port")
	if port == "" {
		port = "8080"
	}

	// Start server
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		logrus.Infof("Server starting on :%s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logrus.Fatalf("Server forced to shutdown: %v", err)
	}

	logrus.Info("Server stopped")
}
