package bootstrap

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/appleboy/graceful"

	"github.com/openbootdotdev/openboot.dev/internal/cache"
	"github.com/openbootdotdev/openboot.dev/internal/config"
	"github.com/openbootdotdev/openboot.dev/internal/metrics"
	"github.com/openbootdotdev/openboot.dev/internal/middleware"
	"github.com/openbootdotdev/openboot.dev/internal/store"
)

// createHTTPServer creates the HTTP server instance
func createHTTPServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

// addServerRunningJob adds the HTTP server running job
func addServerRunningJob(m *graceful.Manager, srv *http.Server) {
	m.AddRunningJob(func(ctx context.Context) error {
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("Failed to start server: %v", err)
			}
		}()
		<-ctx.Done()
		return nil
	})
}

// addServerShutdownJob adds HTTP server shutdown handler
func addServerShutdownJob(m *graceful.Manager, srv *http.Server) {
	m.AddShutdownJob(func() error {
		log.Println("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("Server forced to shutdown: %v", err)
			return err
		}

		log.Println("Server exited")
		return nil
	})
}

// addReaperJob adds the periodic cleanup of expired auth codes and tokens.
// Expiry is always enforced at read time; the reaper only keeps the tables
// from growing without bound.
func addReaperJob(m *graceful.Manager, cfg *config.Config, db *store.Store) {
	if cfg.ReaperInterval <= 0 {
		return
	}

	m.AddRunningJob(func(ctx context.Context) error {
		ticker := time.NewTicker(cfg.ReaperInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				reapExpired(db)
			case <-ctx.Done():
				return nil
			}
		}
	})
}

func reapExpired(db *store.Store) {
	now := time.Now()

	if stuck, err := db.CountStuckProcessing(now); err == nil && stuck > 0 {
		// A crash between claim and approve leaves codes in processing. They
		// expire like any pending code; worth knowing about all the same.
		log.Printf("[Reaper] %d auth codes stuck in processing", stuck)
	}

	codes, err := db.DeleteExpiredCLIAuthCodes(now)
	if err != nil {
		log.Printf("[Reaper] failed to delete expired auth codes: %v", err)
	}
	tokens, err := db.DeleteExpiredAPITokens(now)
	if err != nil {
		log.Printf("[Reaper] failed to delete expired tokens: %v", err)
	}
	if codes > 0 || tokens > 0 {
		log.Printf("[Reaper] removed %d expired auth codes, %d expired tokens", codes, tokens)
	}
}

// addMetricsGaugeUpdateJob adds periodic metrics gauge updates
func addMetricsGaugeUpdateJob(
	m *graceful.Manager,
	cfg *config.Config,
	db *store.Store,
	recorder metrics.Recorder,
	metricsCache cache.Cache[int64],
) {
	if !cfg.MetricsEnabled {
		return
	}

	const interval = 30 * time.Second
	updater := metrics.NewUpdater(db, recorder, metricsCache, interval)

	m.AddRunningJob(func(ctx context.Context) error {
		updater.Run(ctx, interval)
		return nil
	})
}

// addRateLimiterShutdownJob closes the rate limiter's Redis connection
func addRateLimiterShutdownJob(m *graceful.Manager, factory *middleware.RateLimiterFactory) {
	if factory == nil {
		return
	}

	m.AddShutdownJob(func() error {
		if err := factory.Close(); err != nil {
			log.Printf("Error closing rate limiter store: %v", err)
			return err
		}
		return nil
	})
}

// addCacheCleanupJob adds cache cleanup on shutdown
func addCacheCleanupJob(m *graceful.Manager, closer func() error) {
	if closer == nil {
		return
	}

	m.AddShutdownJob(func() error {
		if err := closer(); err != nil {
			log.Printf("Error closing search cache: %v", err)
		}
		return nil
	})
}
