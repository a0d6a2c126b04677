package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"insightminer/internal/drain"
)

// drainCmd runs a single queue drain pass
var drainCmd = &cobra.Command{
	Use:   "drain",
	Short: "Run a single queue drain pass",
	Long: `Scan the image and video folders for outstanding processing flags and
process each referenced file once. Useful after a crash or when the serve
loop is not running.`,
	Run: runDrain,
}

func init() {
	rootCmd.AddCommand(drainCmd)
}

func runDrain(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig()
	if err != nil {
		fatal("failed to load configuration", err)
	}

	a, err := newApp(cfg)
	if err != nil {
		fatal("failed to initialize", err)
	}

	worker := drain.NewWorker(
		a.queue,
		[]string{cfg.Folders.Images, cfg.Folders.Videos},
		drain.NewHandoffProcessor(nil),
		cfg.Queue.DrainInterval,
		nil)

	count := worker.RunOnce(context.Background())
	fmt.Printf("Processed %d queued item(s)\n", count)
}
