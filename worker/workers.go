package worker

import (
	"context"
	"time"

	"guildwatch/service"

	log "github.com/sirupsen/logrus"
)

// StartMonitorWorker starts a background worker driving the reset cycle
// monitor. Returns a cleanup function to stop the worker gracefully.
func StartMonitorWorker(ctx context.Context, monitor *service.MonitorService, interval time.Duration, development bool) func() {
	ticker := time.NewTicker(interval)
	stopChan := make(chan struct{})

	runTick := func() {
		if err := monitor.Tick(context.Background()); err != nil {
			log.Errorf("Error running monitor tick: %v", err)
		}
	}

	go func() {
		log.Info("Reset cycle monitor worker started")

		// Run immediately on startup
		runTick()

		if development {
			log.Info("Development mode, monitor worker ran a single pass")
			return
		}

		for {
			select {
			case <-ctx.Done():
				log.Info("Monitor worker shutting down (context cancelled)...")
				return
			case <-stopChan:
				log.Info("Monitor worker shutting down (stop requested)...")
				return
			case <-ticker.C:
				runTick()
			}
		}
	}()

	return func() {
		ticker.Stop()
		close(stopChan)
	}
}

// StartSyncWorker starts a background worker that periodically reconciles
// every registered guild's roster. Returns a cleanup function to stop the
// worker gracefully.
func StartSyncWorker(ctx context.Context, uowFactory service.UnitOfWorkFactory, reconciler *service.ReconcileService, interval time.Duration) func() {
	ticker := time.NewTicker(interval)
	stopChan := make(chan struct{})

	syncAllGuilds := func() {
		// A throwaway read-only transaction just for the guild list
		tempUow := uowFactory.Create()
		if err := tempUow.Begin(context.Background()); err != nil {
			log.Errorf("Error beginning transaction to get guild list: %v", err)
			return
		}

		guilds, err := tempUow.GuildRepository().GetAll(context.Background())
		tempUow.Rollback()

		if err != nil {
			log.Errorf("Error getting registered guilds: %v", err)
			return
		}

		succeeded := 0
		for _, guild := range guilds {
			if _, err := reconciler.SyncGuild(context.Background(), guild.GuildID); err != nil {
				log.Errorf("Error reconciling roster for guild %s: %v", guild.GuildID, err)
				continue
			}
			succeeded++
		}

		log.WithFields(log.Fields{
			"guilds":    len(guilds),
			"succeeded": succeeded,
		}).Info("Roster sync pass completed")
	}

	go func() {
		log.Info("Roster sync worker started")

		// Run immediately on startup
		syncAllGuilds()

		for {
			select {
			case <-ctx.Done():
				log.Info("Sync worker shutting down (context cancelled)...")
				return
			case <-stopChan:
				log.Info("Sync worker shutting down (stop requested)...")
				return
			case <-ticker.C:
				syncAllGuilds()
			}
		}
	}()

	return func() {
		ticker.Stop()
		close(stopChan)
	}
}
