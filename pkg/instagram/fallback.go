package instagram

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	errs "insightminer/pkg/errors"
	"insightminer/pkg/logger"
	"insightminer/pkg/media"
	"insightminer/pkg/retry"
)

// Failure modes of a fallback download, distinguishable so callers can tell
// "nothing to try" apart from "everything failed"
var (
	ErrNoCandidates        = errors.New("no candidate URLs extracted from raw metadata")
	ErrAllCandidatesFailed = errors.New("all candidate URLs failed during transfer")
)

// Downloader performs content downloads through the authenticated client,
// wrapping network calls in the retry engine
type Downloader struct {
	client   *Client
	retryCfg *retry.Config
	logger   logger.Logger
}

// NewDownloader creates a downloader around an authenticated client
func NewDownloader(client *Client, retryCfg *retry.Config, log logger.Logger) *Downloader {
	if retryCfg == nil {
		retryCfg = retry.DefaultConfig()
	}
	if log == nil {
		log = logger.GetLogger()
	}
	return &Downloader{
		client:   client,
		retryCfg: retryCfg,
		logger:   log,
	}
}

// Client returns the underlying API client
func (d *Downloader) Client() *Client {
	return d.client
}

// Download performs the structured download path for a resolved media item:
// transfer the top-ranked content URL with retries.
func (d *Downloader) Download(ctx context.Context, item *MediaItem, destFolder string) (string, error) {
	url := item.BestURL()
	if url == "" {
		return "", errs.New(errs.ErrorTypeValidation, "resolved media item carries no content URL", 0)
	}

	desc := item.Descriptor()
	destPath := filepath.Join(destFolder, desc.Filename())

	cfg := d.retryConfig(ctx)
	err := retry.Do(func() error {
		_, transferErr := d.client.Transfer(ctx, url, destPath)
		return transferErr
	}, cfg)
	if err != nil {
		return "", err
	}

	return destPath, nil
}

// FallbackDownload bypasses structured parsing entirely: fetch raw metadata
// for the primary key, enumerate every candidate content URL, and attempt
// each in order until one transfers. Candidate URLs carry short-lived signed
// expiry, so attempts start immediately after extraction.
//
// A 404 on a candidate means its signature expired; fresh metadata is
// fetched once and any new URLs are appended to the attempt queue.
func (d *Downloader) FallbackDownload(ctx context.Context, pk string, mediaType media.Type, destFolder string) (string, error) {
	cfg := d.retryConfig(ctx)

	doc, err := retry.DoWithResult(func() (map[string]interface{}, error) {
		return d.client.FetchRawMediaInfo(ctx, pk)
	}, cfg)
	if err != nil {
		return "", fmt.Errorf("raw metadata fetch failed for pk %s: %w", pk, err)
	}

	candidates := ExtractCandidateURLs(doc, mediaType)
	if len(candidates) == 0 {
		return "", fmt.Errorf("%w (pk %s)", ErrNoCandidates, pk)
	}

	d.logger.InfoWithFields("attempting fallback candidates", map[string]interface{}{
		"media_pk":   pk,
		"media_type": string(mediaType),
		"candidates": len(candidates),
	})

	desc := &media.Descriptor{PrimaryKey: pk, MediaType: mediaType}
	destPath := filepath.Join(destFolder, desc.Filename())

	tried := make(map[string]bool)
	refreshed := false

	for i := 0; i < len(candidates); i++ {
		url := candidates[i]
		if tried[url] {
			continue
		}
		tried[url] = true

		written, err := d.client.Transfer(ctx, url, destPath)
		if err == nil {
			d.logger.InfoWithFields("fallback transfer succeeded", map[string]interface{}{
				"media_pk": pk,
				"attempt":  i + 1,
				"bytes":    written,
			})
			return destPath, nil
		}

		d.logger.WarnWithFields("fallback candidate failed", map[string]interface{}{
			"media_pk": pk,
			"attempt":  i + 1,
			"error":    err.Error(),
		})

		// Expired URL: re-derive fresh candidates once and keep going with
		// any URL we have not already tried
		if errs.IsType(err, errs.ErrorTypeNotFound) && !refreshed {
			refreshed = true
			if fresh := d.refreshCandidates(ctx, pk, mediaType, tried); len(fresh) > 0 {
				candidates = append(candidates, fresh...)
			}
		}
	}

	return "", fmt.Errorf("%w (pk %s, %d attempted)", ErrAllCandidatesFailed, pk, len(tried))
}

// refreshCandidates re-fetches raw metadata and returns candidate URLs not
// yet attempted
func (d *Downloader) refreshCandidates(ctx context.Context, pk string, mediaType media.Type, tried map[string]bool) []string {
	doc, err := d.client.FetchRawMediaInfo(ctx, pk)
	if err != nil {
		d.logger.WarnWithFields("candidate refresh failed", map[string]interface{}{
			"media_pk": pk,
			"error":    err.Error(),
		})
		return nil
	}

	var fresh []string
	for _, url := range ExtractCandidateURLs(doc, mediaType) {
		if !tried[url] {
			fresh = append(fresh, url)
		}
	}

	d.logger.InfoWithFields("refreshed fallback candidates", map[string]interface{}{
		"media_pk": pk,
		"fresh":    len(fresh),
	})

	return fresh
}

// retryConfig clones the downloader's retry configuration with the call
// context attached
func (d *Downloader) retryConfig(ctx context.Context) *retry.Config {
	cfg := *d.retryCfg
	cfg.Context = ctx
	return &cfg
}
