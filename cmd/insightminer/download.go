package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var downloadFolder string

// downloadCmd downloads one or more URLs directly from the command line
var downloadCmd = &cobra.Command{
	Use:   "download <url> [url...]",
	Short: "Download Instagram media from share URLs",
	Long: `Download the media behind one or more Instagram share URLs.

Each URL is resolved, downloaded (falling back to the raw API when the
structured path fails), deduplicated if it is an image, and enqueued for
downstream processing.`,
	Example: `  # Download a reel
  insightminer download https://www.instagram.com/reel/Cabc123/

  # Download into a specific folder
  insightminer download --folder ~/Pictures/saved https://www.instagram.com/p/Cxyz789/`,
	Args: cobra.MinimumNArgs(1),
	Run:  runDownload,
}

func init() {
	rootCmd.AddCommand(downloadCmd)
	downloadCmd.Flags().StringVarP(&downloadFolder, "folder", "f", "", "override the destination folder")
}

func runDownload(cmd *cobra.Command, args []string) {
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

	ctx := context.Background()
	failures := 0
	for _, url := range args {
		ok, msg := a.pipeline.DownloadAndQueue(ctx, url, downloadFolder)
		if ok {
			fmt.Printf("✓ %s\n", msg)
		} else {
			fmt.Printf("✗ %s\n", msg)
			failures++
		}
	}

	if failures > 0 {
		fmt.Printf("\n%d of %d downloads failed\n", failures, len(args))
		os.Exit(1)
	}
}
