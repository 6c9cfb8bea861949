package cron

import (
	"context"
	"log"
	"time"

	"core/services"

	"github.com/robfig/cron/v3"
)

// Scheduler runs the background sweeps: rematch-window expiry, the pool
// janitor and refresh-token cleanup.
type Scheduler struct {
	cron          *cron.Cron
	matches       *services.MatchService
	pool          *services.PoolService
	cleanupTokens func() error
}

func NewScheduler(matches *services.MatchService, pool *services.PoolService, cleanupTokens func() error) *Scheduler {
	c := cron.New(cron.WithSeconds(), cron.WithLogger(cron.VerbosePrintfLogger(log.Default())))

	return &Scheduler{
		cron:          c,
		matches:       matches,
		pool:          pool,
		cleanupTokens: cleanupTokens,
	}
}

// Start registers and starts all scheduled jobs
func (s *Scheduler) Start() error {
	log.Println("Starting cron scheduler...")

	// Rematch windows are short, so sweep every 5 seconds.
	if _, err := s.cron.AddFunc("*/5 * * * * *", s.matches.ExpireRematches); err != nil {
		log.Printf("Error scheduling rematch expiry job: %v", err)
		return err
	}

	if _, err := s.cron.AddFunc("0 * * * * *", s.runPoolJanitor); err != nil {
		log.Printf("Error scheduling pool janitor job: %v", err)
		return err
	}

	if _, err := s.cron.AddFunc("0 0 * * * *", s.runTokenCleanup); err != nil {
		log.Printf("Error scheduling token cleanup job: %v", err)
		return err
	}

	s.cron.Start()
	log.Println("Cron scheduler started successfully")

	return nil
}

// Stop gracefully shuts down the scheduler
func (s *Scheduler) Stop() {
	log.Println("Stopping cron scheduler...")
	s.cron.Stop()
	log.Println("Cron scheduler stopped")
}

// runPoolJanitor sweeps pool entries older than the check-in TTL
func (s *Scheduler) runPoolJanitor() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	removed, err := s.pool.CleanupInactive(ctx)
	if err != nil {
		log.Printf("Error during pool cleanup: %v", err)
		return
	}
	if removed > 0 {
		log.Printf("Pool janitor removed %d inactive entries", removed)
	}
}

// runTokenCleanup purges expired refresh tokens
func (s *Scheduler) runTokenCleanup() {
	if err := s.cleanupTokens(); err != nil {
		log.Printf("Error during refresh token cleanup: %v", err)
	}
}
