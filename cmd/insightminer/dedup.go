package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"insightminer/pkg/dedup"
	"insightminer/pkg/logger"
)

// dedupCmd groups fingerprint store operations
var dedupCmd = &cobra.Command{
	Use:   "dedup",
	Short: "Inspect or reset the content fingerprint store",
}

var dedupStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show fingerprint store statistics",
	Run:   runDedupStats,
}

var dedupResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear all stored fingerprints",
	Long: `Clear all stored fingerprints. Previously seen content will no longer
be detected as duplicate.`,
	Run: runDedupReset,
}

func init() {
	rootCmd.AddCommand(dedupCmd)
	dedupCmd.AddCommand(dedupStatsCmd)
	dedupCmd.AddCommand(dedupResetCmd)
}

func openStore() *dedup.Store {
	cfg, err := loadConfig()
	if err != nil {
		fatal("failed to load configuration", err)
	}

	store := dedup.NewStore(cfg.Dedup.StorePath, logger.GetLogger())
	if err := store.Load(); err != nil {
		fatal("failed to load fingerprint store", err)
	}
	return store
}

func runDedupStats(cmd *cobra.Command, args []string) {
	store := openStore()
	stats := store.Stats()

	fmt.Printf("Unique content items:  %d\n", stats.UniqueCount)
	fmt.Printf("Duplicates blocked:    %d\n", stats.DuplicatesBlocked)
}

func runDedupReset(cmd *cobra.Command, args []string) {
	store := openStore()
	stats := store.Stats()

	fmt.Printf("This will discard %d stored fingerprint(s). Continue? (yes/N): ", stats.UniqueCount)
	reader := bufio.NewReader(os.Stdin)
	input, _ := reader.ReadString('\n')
	if strings.TrimSpace(input) != "yes" {
		return
	}

	if err := store.Reset(); err != nil {
		fatal("failed to reset fingerprint store", err)
	}
	fmt.Println("Fingerprint store cleared")
}
