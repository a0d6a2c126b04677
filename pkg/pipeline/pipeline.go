package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"

	"insightminer/pkg/config"
	"insightminer/pkg/dedup"
	errs "insightminer/pkg/errors"
	"insightminer/pkg/instagram"
	"insightminer/pkg/logger"
	"insightminer/pkg/media"
	"insightminer/pkg/metrics"
	"insightminer/pkg/queue"
	"insightminer/pkg/ratelimit"
	"insightminer/pkg/resolver"
	"insightminer/pkg/session"
)

// Pipeline orchestrates one download request end to end: session, URL
// validation, metadata resolution, download (structured or raw fallback),
// image deduplication, and the processing handoff. Every failure class is
// recovered at this boundary and reduced to a boolean plus a human-readable
// message; no error escapes past DownloadAndQueue.
type Pipeline struct {
	cfg        *config.Config
	session    *session.Manager
	downloader *instagram.Downloader
	resolver   *resolver.Resolver
	store      *dedup.Store
	queue      queue.Queue
	limiter    ratelimit.Limiter
	logger     logger.Logger
}

// New assembles a pipeline from its collaborators
func New(cfg *config.Config, sess *session.Manager, downloader *instagram.Downloader, res *resolver.Resolver, store *dedup.Store, q queue.Queue, limiter ratelimit.Limiter, log logger.Logger) *Pipeline {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Pipeline{
		cfg:        cfg,
		session:    sess,
		downloader: downloader,
		resolver:   res,
		store:      store,
		queue:      q,
		limiter:    limiter,
		logger:     log,
	}
}

// DownloadAndQueue acquires the media behind sourceURL, deduplicates images
// against the fingerprint store, and enqueues the file for downstream
// processing. overrideFolder, when non-empty, wins over the media-type
// folder routing.
func (p *Pipeline) DownloadAndQueue(ctx context.Context, sourceURL, overrideFolder string) (bool, string) {
	if !media.Validate(sourceURL) {
		return false, fmt.Sprintf("Invalid URL: %s", sourceURL)
	}

	if ct := media.ClassifyContentType(sourceURL); ct == media.ContentTypeUnknown {
		p.logger.WarnWithFields("URL has no recognized content pattern", map[string]interface{}{
			"url": sourceURL,
		})
	}

	pk, ok := media.ExtractPK(sourceURL)
	if !ok {
		return false, "Could not extract a media ID from the URL"
	}

	if err := p.session.EnsureSession(ctx); err != nil {
		metrics.DownloadsTotal.WithLabelValues(metrics.ResultFailure).Inc()
		return false, failureMessage(err)
	}

	if p.limiter != nil {
		p.limiter.Wait()
	}

	desc, item, err := p.resolver.Resolve(ctx, pk, sourceURL)
	if err != nil {
		metrics.DownloadsTotal.WithLabelValues(metrics.ResultFailure).Inc()
		logger.LogDownload(sourceURL, pk, "", false, err)
		return false, failureMessage(err)
	}

	destFolder := p.routeFolder(desc, overrideFolder)

	path, usedFallback, err := p.download(ctx, desc, item, destFolder)
	if err != nil {
		metrics.DownloadsTotal.WithLabelValues(metrics.ResultFailure).Inc()
		logger.LogDownload(sourceURL, pk, string(desc.MediaType), false, err)
		return false, failureMessage(err)
	}

	// The fingerprint store and queue are only touched after the file is
	// verified on disk
	info, statErr := os.Stat(path)
	if statErr != nil || info.Size() == 0 {
		metrics.DownloadsTotal.WithLabelValues(metrics.ResultFailure).Inc()
		return false, fmt.Sprintf("Download reported success but %s is missing or empty", filepath.Base(path))
	}

	p.enrich(desc, path, info.Size())

	if desc.MediaType == media.TypeImage {
		if done, msg := p.deduplicate(path); done {
			return true, msg
		}
	}

	if err := p.queue.Enqueue(path, sourceURL, pk, desc.MediaType); err != nil {
		metrics.DownloadsTotal.WithLabelValues(metrics.ResultFailure).Inc()
		return false, fmt.Sprintf("Downloaded but failed to enqueue for processing: %v", err)
	}

	metrics.DownloadsTotal.WithLabelValues(metrics.ResultSuccess).Inc()
	logger.LogDownload(sourceURL, pk, string(desc.MediaType), true, nil)

	name := filepath.Base(path)
	if usedFallback {
		return true, fmt.Sprintf("Downloaded via raw API fallback: %s", name)
	}
	return true, fmt.Sprintf("Downloaded: %s", name)
}

// download runs the structured path for resolved descriptors and the raw
// fallback for reconstructed ones. A structured failure falls through to
// the raw path as a last resort before giving up.
func (p *Pipeline) download(ctx context.Context, desc *media.Descriptor, item *instagram.MediaItem, destFolder string) (string, bool, error) {
	if desc.Source == media.SourceResolved && item != nil {
		path, err := p.downloader.Download(ctx, item, destFolder)
		if err == nil {
			return path, false, nil
		}

		p.logger.WarnWithFields("structured download failed, attempting raw fallback", map[string]interface{}{
			"media_pk": desc.PrimaryKey,
			"error":    err.Error(),
		})
	}

	metrics.FallbackActivations.Inc()
	logger.LogFallback(desc.PrimaryKey, "raw-protocol download")

	path, err := p.downloader.FallbackDownload(ctx, desc.PrimaryKey, desc.MediaType, destFolder)
	if err != nil {
		return "", true, err
	}
	return path, true, nil
}

// routeFolder picks the destination folder: an explicit override wins,
// otherwise the descriptor's media type decides
func (p *Pipeline) routeFolder(desc *media.Descriptor, overrideFolder string) string {
	if overrideFolder != "" {
		return overrideFolder
	}
	if desc.MediaType == media.TypeVideo {
		return p.cfg.Folders.Videos
	}
	return p.cfg.Folders.Images
}

// enrich merges post-download attributes into a reconstructed descriptor
func (p *Pipeline) enrich(desc *media.Descriptor, path string, size int64) {
	if !desc.IsReconstructed() {
		return
	}

	width, height := 0, 0
	if desc.MediaType == media.TypeImage {
		if img, err := imaging.Open(path); err == nil {
			bounds := img.Bounds()
			width, height = bounds.Dx(), bounds.Dy()
		}
	}

	desc.MergeDownloadAttrs(width, height, size)
}

// deduplicate fingerprints a downloaded image and consults the store. A
// duplicate hit deletes the fresh file, skips the queue, and still reports
// success with a notice. Returns (true, message) when the request is fully
// handled here.
func (p *Pipeline) deduplicate(path string) (bool, string) {
	hash, err := dedup.Fingerprint(path)
	if err != nil {
		// An undecodable image cannot be fingerprinted; let it through
		// rather than blocking the pipeline
		p.logger.WarnWithFields("fingerprinting failed, skipping dedup", map[string]interface{}{
			"file":  path,
			"error": err.Error(),
		})
		return false, ""
	}

	isDup, existing, err := p.store.CheckAndRecord(hash, dedup.Metadata{
		OriginalFilename: filepath.Base(path),
	})
	if err != nil {
		p.logger.ErrorWithFields("fingerprint store update failed", map[string]interface{}{
			"file":  path,
			"error": err.Error(),
		})
		return false, ""
	}

	if !isDup {
		return false, ""
	}

	metrics.DuplicatesBlocked.Inc()
	metrics.DownloadsTotal.WithLabelValues(metrics.ResultDuplicate).Inc()
	os.Remove(path)

	msg := fmt.Sprintf("Duplicate content: already processed as %s", existing.OriginalFilename)
	if existing.Category != "" {
		msg += fmt.Sprintf(" (%s: %s)", existing.Category, existing.Summary)
	}
	return true, msg
}

// failureMessage reduces a pipeline error to the user-facing string
// surfaced at the DownloadAndQueue boundary
func failureMessage(err error) string {
	var exhausted *errs.ExhaustedError
	if errors.As(err, &exhausted) {
		return exhausted.Error()
	}

	switch errs.TypeOf(err) {
	case errs.ErrorTypeRateLimit:
		return "Rate limited by upstream; try again later"
	case errs.ErrorTypeNotFound:
		return "Media not found; it may have been deleted"
	case errs.ErrorTypePrivate:
		return "This content is private"
	case errs.ErrorTypeChallenge:
		return "Login challenge required; resolve it manually and retry"
	case errs.ErrorTypeAuth:
		return fmt.Sprintf("Authentication failed: %v", err)
	default:
		return fmt.Sprintf("Download failed: %v", err)
	}
}
