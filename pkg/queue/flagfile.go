package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"insightminer/pkg/logger"
	"insightminer/pkg/media"
)

const flagPrefix = ".processing_"

// FlagFileQueue implements Queue with one JSON sidecar per downloaded file
type FlagFileQueue struct {
	logger logger.Logger
}

// NewFlagFileQueue creates the default flag-file queue implementation
func NewFlagFileQueue(log logger.Logger) *FlagFileQueue {
	if log == nil {
		log = logger.GetLogger()
	}
	return &FlagFileQueue{logger: log}
}

// FlagPath returns the sidecar path for a downloaded file
func FlagPath(filePath string) string {
	dir := filepath.Dir(filePath)
	base := filepath.Base(filePath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, flagPrefix+stem+".json")
}

// Enqueue writes the processing marker for a successfully downloaded file.
// The write goes through a temp file and rename so a crash mid-write never
// produces a half-written marker.
func (q *FlagFileQueue) Enqueue(filePath, sourceURL, mediaPK string, mediaType media.Type) error {
	flag := &Flag{
		FilePath:     filePath,
		SourceURL:    sourceURL,
		MediaPK:      mediaPK,
		MediaType:    mediaType,
		DownloadedAt: time.Now(),
	}

	if err := q.writeFlag(FlagPath(filePath), flag); err != nil {
		return err
	}

	q.logger.DebugWithFields("processing flag enqueued", map[string]interface{}{
		"file":     filePath,
		"media_pk": mediaPK,
	})

	return nil
}

// Drain scans folder for outstanding flags and processes each referenced
// file. Per-item failures are recorded on the flag and do not halt the
// pass. Drain is idempotent: a completed flag is removed before the next
// scan, so a second run over the same state processes nothing.
func (q *FlagFileQueue) Drain(ctx context.Context, folder string, processor Processor) (int, error) {
	entries, err := os.ReadDir(folder)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to scan queue folder: %w", err)
	}

	processed := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), flagPrefix) || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		if err := ctx.Err(); err != nil {
			return processed, err
		}

		flagPath := filepath.Join(folder, entry.Name())
		if q.drainOne(ctx, flagPath, processor) {
			processed++
		}
	}

	return processed, nil
}

// drainOne handles a single flag file, returning true when the referenced
// file was successfully processed
func (q *FlagFileQueue) drainOne(ctx context.Context, flagPath string, processor Processor) bool {
	flag, err := q.readFlag(flagPath)
	if err != nil {
		// A malformed flag can never succeed; remove it rather than retry
		// it forever
		q.logger.WarnWithFields("removing malformed processing flag", map[string]interface{}{
			"flag":  flagPath,
			"error": err.Error(),
		})
		os.Remove(flagPath)
		return false
	}

	// Flags already marked processed failed a previous pass; they are
	// retained for inspection, not retried
	if flag.Processed {
		return false
	}

	// A flag whose file is gone is stale; discard it
	if _, err := os.Stat(flag.FilePath); err != nil {
		q.logger.InfoWithFields("discarding stale processing flag", map[string]interface{}{
			"flag": flagPath,
			"file": flag.FilePath,
		})
		os.Remove(flagPath)
		return false
	}

	if err := processor.Process(ctx, flag.FilePath); err != nil {
		logger.LogQueueItem(flag.FilePath, false, err)

		flag.Processed = true
		flag.ProcessingError = err.Error()
		if writeErr := q.writeFlag(flagPath, flag); writeErr != nil {
			q.logger.ErrorWithFields("failed to record processing failure", map[string]interface{}{
				"flag":  flagPath,
				"error": writeErr.Error(),
			})
		}
		return false
	}

	logger.LogQueueItem(flag.FilePath, true, nil)
	os.Remove(flagPath)
	return true
}

func (q *FlagFileQueue) readFlag(path string) (*Flag, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read flag: %w", err)
	}

	var flag Flag
	if err := json.Unmarshal(data, &flag); err != nil {
		return nil, fmt.Errorf("failed to parse flag: %w", err)
	}

	if flag.FilePath == "" {
		return nil, fmt.Errorf("flag missing file_path")
	}

	return &flag, nil
}

func (q *FlagFileQueue) writeFlag(path string, flag *Flag) error {
	data, err := json.MarshalIndent(flag, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal flag: %w", err)
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write flag: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace flag: %w", err)
	}

	return nil
}
