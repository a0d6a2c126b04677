package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"insightminer/internal/drain"
	"insightminer/internal/server"
)

// serveCmd runs the local ingress server plus the background queue drain
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the local ingress server and background queue drain",
	Long: `Start the local HTTP ingress and the background drain worker.

The ingress accepts download requests from trusted local clients:

  POST /download  {"url": "...", "folder": "..."}
  GET  /health
  GET  /status
  GET  /metrics

The drain worker periodically scans the image and video folders for
outstanding processing flags and hands completed downloads to the
downstream analysis stage.`,
	Run: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig()
	if err != nil {
		fatal("failed to load configuration", err)
	}

	a, err := newApp(cfg)
	if err != nil {
		fatal("failed to initialize", err)
	}
	if err := a.ensureFolders(); err != nil {
		fatal("failed to prepare folders", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	worker := drain.NewWorker(
		a.queue,
		[]string{cfg.Folders.Images, cfg.Folders.Videos},
		drain.NewHandoffProcessor(nil),
		cfg.Queue.DrainInterval,
		nil)
	go worker.Run(ctx)

	srv := server.New(&cfg.Server, a.pipeline, a.sessions, a.store, nil)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	fmt.Printf("InsightMiner listening on %s:%d\n", cfg.Server.Host, cfg.Server.Port)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			fatal("shutdown failed", err)
		}
		fmt.Println("Shut down cleanly")
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			fatal("server failed", err)
		}
	}
}
