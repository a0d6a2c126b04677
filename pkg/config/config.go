package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for the acquisition pipeline
type Config struct {
	// Instagram client settings
	Instagram InstagramConfig `yaml:"instagram" json:"instagram"`

	// Download settings
	Download DownloadConfig `yaml:"download" json:"download"`

	// Destination folders by media type
	Folders FolderConfig `yaml:"folders" json:"folders"`

	// Deduplication settings
	Dedup DedupConfig `yaml:"dedup" json:"dedup"`

	// Processing queue settings
	Queue QueueConfig `yaml:"queue" json:"queue"`

	// Rate limiting configuration
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Local ingress server
	Server ServerConfig `yaml:"server" json:"server"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// InstagramConfig holds Instagram-specific configuration
type InstagramConfig struct {
	Username    string `yaml:"username" json:"username"`
	SessionFile string `yaml:"session_file" json:"session_file"`
	UserAgent   string `yaml:"user_agent" json:"user_agent"`
}

// DownloadConfig holds download-specific configuration
type DownloadConfig struct {
	Timeout       time.Duration `yaml:"timeout" json:"timeout"`
	RetryAttempts int           `yaml:"retry_attempts" json:"retry_attempts"`
	TempFolder    string        `yaml:"temp_folder" json:"temp_folder"`
}

// FolderConfig routes downloaded media to folders by content type
type FolderConfig struct {
	Images string `yaml:"images" json:"images"`
	Videos string `yaml:"videos" json:"videos"`
}

// DedupConfig holds fingerprint store configuration
type DedupConfig struct {
	StorePath string `yaml:"store_path" json:"store_path"`
}

// QueueConfig holds processing handoff queue configuration
type QueueConfig struct {
	DrainInterval time.Duration `yaml:"drain_interval" json:"drain_interval"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute" json:"requests_per_minute"`
}

// ServerConfig holds local HTTP ingress configuration
type ServerConfig struct {
	Host string `yaml:"host" json:"host"`
	Port int    `yaml:"port" json:"port"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Instagram: InstagramConfig{
			SessionFile: "instagram_session.json",
			UserAgent:   "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
		},
		Download: DownloadConfig{
			Timeout:       30 * time.Second,
			RetryAttempts: 3,
			TempFolder:    "temp_processing",
		},
		Folders: FolderConfig{
			Images: "input_images",
			Videos: "input_videos",
		},
		Dedup: DedupConfig{
			StorePath: "hash_cache.json",
		},
		Queue: QueueConfig{
			DrainInterval: 30 * time.Second,
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 60,
		},
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 8502,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	if username := os.Getenv("INSIGHTMINER_USERNAME"); username != "" {
		c.Instagram.Username = username
	}
	if sessionFile := os.Getenv("INSIGHTMINER_SESSION_FILE"); sessionFile != "" {
		c.Instagram.SessionFile = sessionFile
	}
	if userAgent := os.Getenv("INSIGHTMINER_USER_AGENT"); userAgent != "" {
		c.Instagram.UserAgent = userAgent
	}

	if timeout := os.Getenv("INSTAGRAM_TIMEOUT"); timeout != "" {
		var seconds int
		fmt.Sscanf(timeout, "%d", &seconds)
		if seconds > 0 {
			c.Download.Timeout = time.Duration(seconds) * time.Second
		}
	}
	if retries := os.Getenv("INSTAGRAM_RETRY_ATTEMPTS"); retries != "" {
		var val int
		fmt.Sscanf(retries, "%d", &val)
		if val > 0 {
			c.Download.RetryAttempts = val
		}
	}

	if inputFolder := os.Getenv("INPUT_FOLDER"); inputFolder != "" {
		c.Folders.Images = inputFolder
	}
	if videoFolder := os.Getenv("VIDEO_FOLDER"); videoFolder != "" {
		c.Folders.Videos = videoFolder
	}

	if storePath := os.Getenv("INSIGHTMINER_HASH_STORE"); storePath != "" {
		c.Dedup.StorePath = storePath
	}

	if rpm := os.Getenv("INSIGHTMINER_REQUESTS_PER_MINUTE"); rpm != "" {
		var val int
		fmt.Sscanf(rpm, "%d", &val)
		if val > 0 {
			c.RateLimit.RequestsPerMinute = val
		}
	}

	if port := os.Getenv("INSIGHTMINER_PORT"); port != "" {
		var val int
		fmt.Sscanf(port, "%d", &val)
		if val > 0 {
			c.Server.Port = val
		}
	}

	if logLevel := os.Getenv("INSIGHTMINER_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}

	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	locations := []string{
		".insightminer.yaml",
		".insightminer.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "insightminer", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".config", "insightminer", "config.yml"),
		filepath.Join(os.Getenv("HOME"), ".insightminer.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.Download.Timeout <= 0 {
		errs = append(errs, errors.New("download timeout must be positive"))
	}
	if c.Download.RetryAttempts <= 0 {
		errs = append(errs, errors.New("retry attempts must be positive"))
	}

	if c.Folders.Images == "" {
		errs = append(errs, errors.New("image folder is required"))
	}
	if c.Folders.Videos == "" {
		errs = append(errs, errors.New("video folder is required"))
	}

	if c.Dedup.StorePath == "" {
		errs = append(errs, errors.New("fingerprint store path is required"))
	}
	if c.Queue.DrainInterval <= 0 {
		errs = append(errs, errors.New("queue drain interval must be positive"))
	}

	if c.RateLimit.RequestsPerMinute <= 0 {
		errs = append(errs, errors.New("requests per minute must be positive"))
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, errors.New("server port must be between 1 and 65535"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if username, ok := flags["username"].(string); ok && username != "" {
		c.Instagram.Username = username
	}
	if imageFolder, ok := flags["image-folder"].(string); ok && imageFolder != "" {
		c.Folders.Images = imageFolder
	}
	if videoFolder, ok := flags["video-folder"].(string); ok && videoFolder != "" {
		c.Folders.Videos = videoFolder
	}
	if port, ok := flags["port"].(int); ok && port > 0 {
		c.Server.Port = port
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".insightminer.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
