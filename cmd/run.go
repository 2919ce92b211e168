package cmd

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"tambola/api"
	"tambola/auth"
	"tambola/config"
	"tambola/database"
	"tambola/events"
	"tambola/repository"
	"tambola/service"
	"tambola/ws"

	"github.com/gin-gonic/gin"
)

// Run initializes and starts the application
func Run(ctx context.Context) error {
	log.Println("Starting tambola server...")

	// Load configuration
	cfg := config.Get()

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize database connection
	log.Println("Connecting to database...")
	db, err := database.NewConnection(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Println("Database connection established successfully")

	// Initialize event bus
	eventBus := events.NewBus()

	// Initialize unit of work factory
	uowFactory := repository.NewUnitOfWorkFactory(db, eventBus)

	// Initialize services
	log.Println("Initializing services...")
	userService := service.NewUserService(uowFactory)
	ledgerService := service.NewLedgerService(uowFactory)
	roomService := service.NewRoomService(uowFactory)
	gameService := service.NewGameService(uowFactory)
	log.Println("Services initialized successfully")

	// Initialize auth layer
	issuer := auth.NewTokenIssuer(cfg.JWTSecret)
	middleware := auth.NewMiddleware(issuer, userService)

	// Initialize websocket hub
	hub := ws.NewHub(eventBus)
	wsHandler := ws.NewHandler(hub, roomService, gameService)

	// Initialize HTTP router
	router := gin.Default()
	api.SetupRoutes(router, middleware, api.Controllers{
		Auth:   api.NewAuthController(userService, issuer),
		Rooms:  api.NewRoomController(roomService),
		Games:  api.NewGameController(gameService),
		Wallet: api.NewWalletController(ledgerService),
		WS:     wsHandler,
	})

	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: router,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Printf("Server listening on %s in %s mode...", cfg.ListenAddr, cfg.Environment)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	// Wait for context cancellation or a server failure
	select {
	case err := <-serverErr:
		db.Close()
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	// Cleanup resources
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error shutting down server: %v", err)
	}

	// Close database connection
	log.Println("Closing database connection...")
	db.Close()

	log.Println("Shutdown completed")
	return nil
}
