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
	"github.com/spf13/viper"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/fetchgo/admin-backend/docs"
	"github.com/fetchgo/admin-backend/internal/config"
	"github.com/fetchgo/admin-backend/internal/database"
	"github.com/fetchgo/admin-backend/internal/handlers"
	mW "github.com/fetchgo/admin-backend/internal/middleware"
	"github.com/fetchgo/admin-backend/internal/services"
	"github.com/fetchgo/admin-backend/internal/ws"
)

// @title FetchGo Admin Backend API
// @version 1.0
// @description Admin API for the FetchGo delivery platform
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https

func main() {
	// Initialize config
	viper.SetConfigFile(".env") // explicitly point to .env file
	viper.AutomaticEnv()        // allow environment variables to override .env
	viper.ReadInConfig()        // read .env file

	viper.SetEnvPrefix("")

	viper.BindEnv("database.host", "DATABASE_HOST")
	viper.BindEnv("database.port", "DATABASE_PORT")
	viper.BindEnv("database.user", "DATABASE_USER")
	viper.BindEnv("database.password", "DATABASE_PASSWORD")
	viper.BindEnv("database.name", "DATABASE_NAME")
	viper.BindEnv("database.ssl_mode", "DATABASE_SSL_MODE")

	viper.BindEnv("redis.host", "REDIS_HOST")
	viper.BindEnv("redis.port", "REDIS_PORT")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")
	viper.BindEnv("redis.db", "REDIS_DB")

	viper.BindEnv("jwt.secret_key", "JWT_SECRET_KEY")
	viper.BindEnv("jwt.expiry_hours", "JWT_EXPIRY_HOURS")
	viper.BindEnv("argon2.time", "ARGON2_TIME")
	viper.BindEnv("argon2.memory", "ARGON2_MEMORY")
	viper.BindEnv("argon2.threads", "ARGON2_THREADS")
	viper.BindEnv("argon2.key_length", "ARGON2_KEY_LENGTH")
	viper.BindEnv("argon2.salt_length", "ARGON2_SALT_LENGTH")

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Config file not found, using defaults: %v", err)
	}

	// Initialize Swagger docs
	docs.SwaggerInfo.Title = "FetchGo Admin Backend API"
	docs.SwaggerInfo.Description = "Admin API for the FetchGo delivery platform"
	docs.SwaggerInfo.Version = "1.0"
	docs.SwaggerInfo.Host = "localhost:8080"
	docs.SwaggerInfo.BasePath = "/api/v1"
	docs.SwaggerInfo.Schemes = []string{"http", "https"}

	// Initialize services
	db := database.InitDatabase()
	defer db.Close()

	redisClient := database.InitRedis()
	if redisClient != nil {
		defer redisClient.Close()
	}

	platformCfg := config.LoadPlatformConfig()

	chatHub := ws.NewChatHub()
	go chatHub.Run()

	authService := services.NewAuthService(db, redisClient)
	if err := authService.SeedAdmin(platformCfg); err != nil {
		log.Printf("Warning: failed to seed admin account: %v", err)
	}

	riderService := services.NewRiderService(db)
	ledgerService := services.NewCreditLedgerService(db)
	creditRequestService := services.NewCreditRequestService(db, redisClient, ledgerService, platformCfg)
	customerService := services.NewCustomerService(db)
	orderService := services.NewOrderService(db, platformCfg)
	chatService := services.NewChatService(db, chatHub)
	topupService := services.NewTopupService(db, redisClient, platformCfg)
	topupHandler := handlers.NewTopupHandler(topupService)

	// Initialize auth middleware with Redis
	mW.InitAuthMiddleware(redisClient)

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

	// Static file server for rider application documents
	r.Handle("/static/documents/*", http.StripPrefix("/static/documents/",
		mW.StaticFileServer("./static/documents")))

	// Live feed for admin consoles
	r.Get("/ws/chat", chatHub.HandleWebSocket)

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public endpoints (no auth required)
		r.Post("/auth/login", authService.Login)
		r.Post("/auth/logout", authService.Logout)

		// Rider app entry points
		r.Post("/riders/applications", riderService.SubmitApplication)
		r.Post("/credit-requests", creditRequestService.SubmitRequest)
		r.Post("/topup/qr", topupHandler.GenerateQR)
		r.Post("/topup/qr/verify", topupHandler.VerifyQR)
		r.Post("/chat/conversations/{phone}/rider-messages", chatService.ReceiveMessage)

		// Protected endpoints (auth required)
		r.Group(func(r chi.Router) {
			r.Use(mW.AuthMiddleware)

			r.Get("/auth/account", authService.GetAccount)

			// Rider applications
			r.Get("/riders/applications", riderService.ListApplications)
			r.Post("/riders/applications/{phone}/approve", riderService.ApproveApplication)
			r.Post("/riders/applications/{phone}/reject", riderService.RejectApplication)

			// Rider directory
			r.Get("/riders", riderService.ListRiders)
			r.Get("/riders/{phone}", riderService.GetRider)
			r.Put("/riders/{phone}/suspend", riderService.Suspend)
			r.Put("/riders/{phone}/restore", riderService.Restore)
			r.Delete("/riders/{phone}", riderService.DeleteRider)

			// Credit ledger
			r.Post("/riders/{phone}/credit/add", ledgerService.AddCredit)
			r.Post("/riders/{phone}/credit/deduct", ledgerService.DeductCredit)
			r.Get("/riders/{phone}/credit/history", ledgerService.GetHistory)
			r.Get("/riders/{phone}/credit/reconcile", ledgerService.Reconcile)

			// Credit requests
			r.Get("/credit-requests", creditRequestService.ListRequests)
			r.Post("/credit-requests/{id}/approve", creditRequestService.ApproveRequest)
			r.Post("/credit-requests/{id}/reject", creditRequestService.RejectRequest)

			// Customers and orders
			r.Get("/customers", customerService.ListCustomers)
			r.Get("/customers/{id}", customerService.GetCustomer)
			r.Get("/customers/{id}/orders", customerService.GetCustomerOrders)
			r.Get("/orders", orderService.ListOrders)
			r.Get("/orders/{id}", orderService.GetOrder)
			r.Put("/orders/{id}/status", orderService.UpdateStatus)
			r.Get("/statistics", orderService.GetStatistics)

			// Support chat
			r.Get("/chat/conversations", chatService.ListConversations)
			r.Get("/chat/conversations/{phone}/messages", chatService.GetMessages)
			r.Post("/chat/conversations/{phone}/messages", chatService.SendMessage)
		})
	})

	port := os.Getenv("PORT")
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
		log.Printf("Server starting on :%s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
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
