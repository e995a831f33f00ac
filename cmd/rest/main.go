package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"helmet-orchestrator-be/internal/bootstrap"
	"helmet-orchestrator-be/internal/config"
	"helmet-orchestrator-be/internal/server"
	"helmet-orchestrator-be/internal/tracer"

	"golang.org/x/sync/errgroup"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Load Configuration
	cfg := config.Load()

	// 2. Bootstrap Dependencies (Container)
	container, err := bootstrap.NewContainer(ctx, cfg)
	if err != nil {
		log.Fatalf("Unable to bootstrap: %v", err)
	}

	// 3. Tracer
	shutdownTracer := tracer.InitTracer(cfg.App, container.Logger)

	// 4. Server and background workers share one lifetime
	srv := server.New(cfg, container)
	g, gctx := errgroup.WithContext(ctx)
	for _, w := range container.Workers {
		w := w
		g.Go(func() error {
			container.Logger.Info("Main", "Starting worker", map[string]interface{}{"worker": w.Name})
			if err := w.Run(gctx); err != nil {
				container.Logger.Error("Main", "Worker stopped", map[string]interface{}{"worker": w.Name, "error": err.Error()})
				return err
			}
			return nil
		})
	}
	g.Go(func() error {
		return srv.Run(gctx)
	})

	err = g.Wait()
	container.Close()
	if shutdownErr := shutdownTracer(context.Background()); shutdownErr != nil {
		log.Printf("Tracer shutdown: %v", shutdownErr)
	}
	if err != nil {
		log.Fatalf("Orchestrator exited: %v", err)
	}
}
