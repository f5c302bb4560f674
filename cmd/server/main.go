package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/abdullah0408/server/internal/app"
)

const shutdownTimeout = 10 * time.Minute

func main() {
	application, err := app.New()
	if err != nil {
		fmt.Printf("init app: %v\n", err)
		os.Exit(1)
	}
	defer application.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application.Start()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(application.Run)
	g.Go(func() error {
		<-gctx.Done()
		application.Log.Info("Shutting down; waiting for in-flight pipeline runs...")
		// In-flight runs may be inside a stage-worker call bounded only by
		// STAGE_WORKER_TIMEOUT_SECONDS plus retry waits.
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return application.Shutdown(sctx)
	})

	if err := g.Wait(); err != nil {
		application.Log.Error("Server exited with error", "error", err)
		application.Close()
		os.Exit(1)
	}
	application.Log.Info("Server stopped")
}
