// Entry point of the taskman application. It loads configuration, connects
// the database pool, runs migrations, wires the services and handlers
// together, sets up the HTTP router and middleware, and runs the server with
// graceful shutdown.
//
// @title Taskman API
// @version 1.0
// @description Multi-user task management API with bearer-token authentication.
// @license.name MIT
// @license.url https://opensource.org/licenses/MIT
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type 'Bearer YOUR_TOKEN' to authorize
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/user/taskman-go/apperror"
	"github.com/user/taskman-go/auth"
	"github.com/user/taskman-go/config"
	"github.com/user/taskman-go/db"
	_ "github.com/user/taskman-go/docs" // Generated Swagger docs
	"github.com/user/taskman-go/tasks"
	"github.com/user/taskman-go/users"
)

func main() {
	// .env support for development; production sets variables directly.
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found or error loading it: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	pool, err := db.NewPool(cfg.DB)
	if err != nil {
		log.Fatalf("Failed to create database pool: %v", err)
	}
	defer pool.Close()

	if err := db.RunMigrations(cfg.DB, "./migrations"); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Manual dependency injection: stores on the pool, services on the
	// stores, handlers on the services.
	userStore := auth.NewPgUserStore(pool)
	taskStore := tasks.NewPgTaskStore(pool)

	authService := auth.NewAuthService(userStore, *cfg.Auth)
	authHandlers := auth.NewHandlers(authService)

	userService := users.NewUserService(userStore)
	userHandlers := users.NewUserHandlers(userService)

	taskService := tasks.NewTaskService(taskStore)
	taskHandlers := tasks.NewTaskHandlers(taskService)

	r := chi.NewRouter()

	// Global middleware; chi requires all middleware before any routes.
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Panic recovery that answers in the apperror JSON shape.
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			defer func() {
				if rvr := recover(); rvr != nil {
					log.Printf("Panic: %+v", rvr)
					writeError(ww, apperror.NewInternalError("internal server error", nil))
				}
			}()
			next.ServeHTTP(ww, r)
		})
	})

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	authGate := auth.Middleware(authService)

	r.Route("/users", func(r chi.Router) {
		// Public user routes
		r.Post("/", authHandlers.HandleRegister())
		r.Post("/login", authHandlers.HandleLogin())
		r.Get("/{id}/avatar", userHandlers.HandleGetAvatar())

		// Routes requiring an authenticated session
		r.Group(func(r chi.Router) {
			r.Use(authGate)
			r.Post("/logout", authHandlers.HandleLogout())
			r.Post("/logout-all", authHandlers.HandleLogoutAll())
			r.Get("/me", userHandlers.HandleGetMe())
			r.Patch("/me", userHandlers.HandleUpdateMe())
			r.Delete("/me", userHandlers.HandleDeleteMe())
			r.Post("/me/avatar", userHandlers.HandleUploadAvatar())
			r.Delete("/me/avatar", userHandlers.HandleDeleteAvatar())
		})
	})

	// Every task route sits behind the auth gate, including get-by-id.
	r.Route("/tasks", func(r chi.Router) {
		r.Use(authGate)
		taskHandlers.RegisterRoutes(r)
	})

	addr := fmt.Sprintf(":%s", cfg.Server.Port)

	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start the server in a goroutine so main can wait for shutdown signals.
	go func() {
		log.Printf("Server starting on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server shutdown failed: %v", err)
	}
	log.Println("Server stopped gracefully")
}

// writeError is a local helper for the panic recovery middleware, keeping the
// apperror response shape without importing the handler packages.
func writeError(w http.ResponseWriter, appErr *apperror.AppError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.StatusCode())
	if err := json.NewEncoder(w).Encode(appErr.ToResponse()); err != nil {
		http.Error(w, `{"error":"failed to encode error response"}`, http.StatusInternalServerError)
	}
}
