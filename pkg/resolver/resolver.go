package resolver

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	errs "insightminer/pkg/errors"
	"insightminer/pkg/instagram"
	"insightminer/pkg/logger"
	"insightminer/pkg/media"
	"insightminer/pkg/retry"
)

// Resolver produces the canonical media descriptor for a primary key. When
// the structured metadata call fails with a validation-class error (the
// upstream ships structurally broken payloads for a subset of videos), it
// reconstructs a minimal descriptor from URL heuristics instead of failing
// the request. Any other failure class propagates unchanged.
type Resolver struct {
	client     *instagram.Client
	downloader *instagram.Downloader
	retryCfg   *retry.Config
	tempFolder string
	logger     logger.Logger
}

// New creates a resolver. tempFolder receives discarded probe artifacts.
func New(client *instagram.Client, downloader *instagram.Downloader, retryCfg *retry.Config, tempFolder string, log logger.Logger) *Resolver {
	if retryCfg == nil {
		retryCfg = retry.DefaultConfig()
	}
	if log == nil {
		log = logger.GetLogger()
	}
	return &Resolver{
		client:     client,
		downloader: downloader,
		retryCfg:   retryCfg,
		tempFolder: tempFolder,
		logger:     log,
	}
}

// Resolve builds a MediaDescriptor for the primary key extracted from
// sourceURL. The returned item is non-nil only on the structured path; the
// reconstructed path returns just the descriptor.
func (r *Resolver) Resolve(ctx context.Context, pk, sourceURL string) (*media.Descriptor, *instagram.MediaItem, error) {
	cfg := *r.retryCfg
	cfg.Context = ctx

	item, err := retry.DoWithResult(func() (*instagram.MediaItem, error) {
		return r.client.FetchMediaInfo(ctx, pk)
	}, &cfg)

	if err == nil {
		desc := item.Descriptor()
		if desc.ShortCode == "" {
			if code, ok := media.ExtractShortCode(sourceURL); ok {
				desc.ShortCode = code
			}
		}
		return desc, item, nil
	}

	if !errs.IsType(err, errs.ErrorTypeValidation) {
		// not-found, rate limit, auth, exhausted retries: fatal for this call
		return nil, nil, err
	}

	logger.LogFallback(pk, "structured metadata failed validation")

	desc := r.reconstruct(ctx, pk, sourceURL)
	return desc, nil, nil
}

// reconstruct builds a minimal descriptor when structured metadata is
// unusable. Media type comes from URL shape; a /p/ post defaults to video,
// the statistically safer choice for mixed carousels. URLs with no
// recognizable shape get a cheap download probe of both types.
func (r *Resolver) reconstruct(ctx context.Context, pk, sourceURL string) *media.Descriptor {
	shortCode, _ := media.ExtractShortCode(sourceURL)

	mediaType, known := typeFromURLShape(sourceURL)
	if !known {
		mediaType = r.probeType(ctx, pk)
	}

	r.logger.InfoWithFields("reconstructed media descriptor", map[string]interface{}{
		"media_pk":   pk,
		"media_type": string(mediaType),
		"short_code": shortCode,
	})

	return &media.Descriptor{
		PrimaryKey: pk,
		MediaType:  mediaType,
		ShortCode:  shortCode,
		Source:     media.SourceReconstructed,
	}
}

// typeFromURLShape infers the media type from the URL path alone
func typeFromURLShape(sourceURL string) (media.Type, bool) {
	switch {
	case strings.Contains(sourceURL, "/reel/"), strings.Contains(sourceURL, "/reels/"), strings.Contains(sourceURL, "/tv/"):
		return media.TypeVideo, true
	case strings.Contains(sourceURL, "/p/"):
		return media.TypeVideo, true
	default:
		return "", false
	}
}

// probeType attempts a cheap download of each type; whichever succeeds
// first determines the type. The probe artifact is discarded either way.
func (r *Resolver) probeType(ctx context.Context, pk string) media.Type {
	probeDir := filepath.Join(r.tempFolder, "probe_"+pk)
	defer os.RemoveAll(probeDir)

	for _, candidate := range []media.Type{media.TypeVideo, media.TypeImage} {
		if path, err := r.downloader.FallbackDownload(ctx, pk, candidate, probeDir); err == nil {
			os.Remove(path)
			return candidate
		}
	}

	r.logger.WarnWithFields("type probe failed for both media types", map[string]interface{}{
		"media_pk": pk,
	})

	// Nothing succeeded; the download attempt downstream will surface the
	// real failure
	return media.TypeVideo
}
