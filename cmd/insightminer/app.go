package main

import (
	"fmt"
	"os"
	"time"

	"insightminer/pkg/auth"
	"insightminer/pkg/config"
	"insightminer/pkg/dedup"
	"insightminer/pkg/instagram"
	"insightminer/pkg/logger"
	"insightminer/pkg/pipeline"
	"insightminer/pkg/queue"
	"insightminer/pkg/ratelimit"
	"insightminer/pkg/resolver"
	"insightminer/pkg/retry"
	"insightminer/pkg/session"
)

// app wires the full pipeline from configuration. Commands that touch the
// network or the stores go through here so every entry point gets the same
// assembly.
type app struct {
	cfg        *config.Config
	client     *instagram.Client
	creds      *auth.Manager
	sessions   *session.Manager
	downloader *instagram.Downloader
	resolver   *resolver.Resolver
	store      *dedup.Store
	queue      *queue.FlagFileQueue
	pipeline   *pipeline.Pipeline
}

func newApp(cfg *config.Config) (*app, error) {
	log := logger.GetLogger()

	client := instagram.NewClient(cfg.Download.Timeout, log)
	if cfg.Instagram.UserAgent != "" {
		client.SetHeader("User-Agent", cfg.Instagram.UserAgent)
	}

	creds, err := auth.NewManager()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	retryCfg := retry.DefaultConfig()
	if cfg.Download.RetryAttempts > 0 {
		retryCfg.MaxAttempts = cfg.Download.RetryAttempts
	}

	sessions := session.NewManager(
		session.NewStore(cfg.Instagram.SessionFile),
		client, creds, cfg.Instagram.Username, log)

	downloader := instagram.NewDownloader(client, retryCfg, log)
	res := resolver.New(client, downloader, retryCfg, cfg.Download.TempFolder, log)

	store := dedup.NewStore(cfg.Dedup.StorePath, log)
	if err := store.Load(); err != nil {
		return nil, fmt.Errorf("failed to load fingerprint store: %w", err)
	}

	q := queue.NewFlagFileQueue(log)
	limiter := ratelimit.NewTokenBucket(cfg.RateLimit.RequestsPerMinute, time.Minute)

	return &app{
		cfg:        cfg,
		client:     client,
		creds:      creds,
		sessions:   sessions,
		downloader: downloader,
		resolver:   res,
		store:      store,
		queue:      q,
		pipeline:   pipeline.New(cfg, sessions, downloader, res, store, q, limiter, log),
	}, nil
}

// ensureFolders creates the destination and scratch folders
func (a *app) ensureFolders() error {
	for _, dir := range []string{a.cfg.Folders.Images, a.cfg.Folders.Videos, a.cfg.Download.TempFolder} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create folder %s: %w", dir, err)
		}
	}
	return nil
}
