package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"guildwatch/cache"
	"guildwatch/config"
	"guildwatch/database"
	"guildwatch/events"
	"guildwatch/gameapi"
	"guildwatch/notifier"
	"guildwatch/repository"
	"guildwatch/service"
	"guildwatch/worker"

	"github.com/bwmarrin/discordgo"
)

// Run initializes and starts the application
func Run(ctx context.Context) error {
	log.Println("Starting guildwatch...")

	// Load configuration
	cfg := config.Get()

	// Initialize database connection
	log.Println("Connecting to database...")
	db, err := database.NewConnection(ctx, cfg.GetDatabaseURL())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Println("Database connection established successfully")

	// Initialize event bus
	log.Println("Initializing event bus...")
	eventBus := events.NewBus()

	// Bridge events onto NATS when configured
	var natsPublisher *events.NATSPublisher
	if cfg.NATSServers != "" {
		log.Println("Connecting to NATS...")
		natsPublisher, err = events.NewNATSPublisher(cfg.NATSServers, "guildwatch")
		if err != nil {
			return fmt.Errorf("failed to connect to NATS: %w", err)
		}
		natsPublisher.Bridge(eventBus)
		log.Println("NATS event bridge established")
	}

	// Initialize unit of work factory
	uowFactory := repository.NewUnitOfWorkFactory(db, eventBus)

	// Initialize remote game API client with caching and retries
	log.Println("Initializing game API client...")
	responseCache := cache.New[string, any](cfg.CacheTTL, gameapi.SweepInterval)
	defer responseCache.Destroy()
	apiClient := gameapi.NewClient(cfg.APIBaseURL, cfg.APIKey)
	cachedClient := gameapi.NewCachedClient(apiClient, responseCache, cfg.CacheTTL)

	// Initialize Discord session and notifier
	var notify service.Notifier
	var session *discordgo.Session
	if cfg.IsDevelopment() {
		log.Println("Development mode, notifications are logged only")
		notify = notifier.NewNoopNotifier()
	} else {
		log.Println("Connecting to Discord...")
		session, err = discordgo.New("Bot " + cfg.DiscordToken)
		if err != nil {
			return fmt.Errorf("failed to create Discord session: %w", err)
		}
		if err := session.Open(); err != nil {
			return fmt.Errorf("failed to open Discord session: %w", err)
		}
		notify = notifier.NewDiscordNotifier(session)
		log.Println("Discord session established successfully")
	}

	// Initialize services
	log.Println("Initializing services...")
	reconcileService := service.NewReconcileService(uowFactory, cachedClient)
	summaryService := service.NewSummaryService(uowFactory)
	monitorService := service.NewMonitorService(uowFactory, cachedClient, notify, summaryService, cfg.TicketThreshold, cfg.IsDevelopment())
	log.Println("Services initialized successfully")

	// Start background workers
	stopMonitor := worker.StartMonitorWorker(ctx, monitorService, cfg.PollInterval, cfg.IsDevelopment())
	stopSync := worker.StartSyncWorker(ctx, uowFactory, reconcileService, cfg.SyncInterval)

	// Wait for context cancellation
	log.Printf("guildwatch is running in %s mode...", cfg.Environment)
	<-ctx.Done()

	// Cleanup resources
	log.Println("Shutting down...")
	stopMonitor()
	stopSync()

	if session != nil {
		if err := session.Close(); err != nil {
			log.Printf("Error closing Discord session: %v", err)
		}
	}
	if natsPublisher != nil {
		natsPublisher.Close()
	}

	// Give cleanup operations time to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Close database connection
	log.Println("Closing database connection...")
	db.Close()

	select {
	case <-shutdownCtx.Done():
		log.Println("Shutdown timeout exceeded")
	case <-time.After(1 * time.Second):
		log.Println("Shutdown completed")
	}

	return nil
}
