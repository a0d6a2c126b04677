package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"insightminer/pkg/config"
	"insightminer/pkg/logger"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile  string
	logLevel    string
	igUsername  string
	imageFolder string
	videoFolder string
	serverPort  int
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "insightminer",
	Short: "Resilient Instagram content acquisition and deduplication pipeline",
	Long: `InsightMiner downloads Instagram media behind share URLs, survives the
platform's failure modes (expired URLs, strict-parser breakage, session
expiry), fingerprints images to block duplicate content, and hands clean
files off to downstream analysis through flag-file queues.

Commands:
  serve     run the local ingress server and background queue drain
  download  download one or more URLs from the command line
  drain     run a single queue drain pass
  auth      manage stored Instagram credentials
  dedup     inspect or reset the fingerprint store`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is .insightminer.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&igUsername, "username", "", "Instagram account to use")
	rootCmd.PersistentFlags().StringVar(&imageFolder, "image-folder", "", "destination folder for images")
	rootCmd.PersistentFlags().StringVar(&videoFolder, "video-folder", "", "destination folder for videos")
	rootCmd.PersistentFlags().IntVar(&serverPort, "port", 0, "ingress server port")

	rootCmd.SetVersionTemplate(`InsightMiner {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// loadConfig resolves configuration from all sources and initializes the
// global logger
func loadConfig() (*config.Config, error) {
	flags := make(map[string]interface{})
	if igUsername != "" {
		flags["username"] = igUsername
	}
	if imageFolder != "" {
		flags["image-folder"] = imageFolder
	}
	if videoFolder != "" {
		flags["video-folder"] = videoFolder
	}
	if serverPort > 0 {
		flags["port"] = serverPort
	}
	if logLevel != "" {
		flags["log-level"] = logLevel
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		return nil, err
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return cfg, nil
}

// fatal prints an error and exits
func fatal(msg string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err)
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", msg)
	}
	os.Exit(1)
}
