package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"socratic-tutor-be/internal/bootstrap"
	"socratic-tutor-be/internal/config"
	"socratic-tutor-be/internal/server"
	"socratic-tutor-be/internal/tracer"
	"socratic-tutor-be/pkg/database"
)

func main() {
	// 1. Load Configuration
	cfg := config.Load()

	// 2. Initialize Tracer
	shutdownTracer := tracer.InitTracer(cfg.App.OtelEnabled, cfg.App.OtelEndpoint)
	defer shutdownTracer(context.Background())

	// 3. Initialize Database
	gormDB, err := database.NewGormDBFromDSN(cfg.Database.Connection, cfg.App.Environment != "production")
	if err != nil {
		log.Panicf("Unable to connect to GORM DB: %v", err)
	}

	// 4. Bootstrap Dependencies (Container)
	container, err := bootstrap.NewContainer(gormDB, cfg)
	if err != nil {
		log.Panicf("Unable to bootstrap container: %v", err)
	}
	defer container.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 5. Start Background Services
	if err := container.ConsumerService.Consume(ctx); err != nil {
		log.Printf("Background Consumer Error: %v", err)
	}
	if container.AuditService != nil {
		if err := container.AuditService.Start(ctx); err != nil {
			log.Printf("Background Audit Error: %v", err)
		}
	}
	go runSweeper(ctx, container, cfg.Dialogue.SweepInterval)

	// 6. Initialize Server
	srv := server.New(cfg, container)
	go func() {
		<-ctx.Done()
		if err := srv.Shutdown(); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	// 7. Run Server
	if err := srv.Run(); err != nil {
		log.Printf("Server stopped: %v", err)
	}
}

// runSweeper finalizes submissions of conversations that closed without one.
func runSweeper(ctx context.Context, c *bootstrap.Container, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := c.SubmissionService.SweepClosed(ctx, 0)
			if err != nil {
				c.Logger.Error("SWEEP", "Submission sweep failed", map[string]interface{}{"error": err.Error()})
				continue
			}
			if n > 0 {
				c.Logger.Info("SWEEP", "Finalized pending submissions", map[string]interface{}{"count": n})
			}
		}
	}
}
