package logger

import (
	"github.com/rs/zerolog"
)

// LogDownload logs the outcome of a media acquisition attempt
func LogDownload(sourceURL, mediaPK, mediaType string, success bool, err error) {
	fields := map[string]interface{}{
		"source_url": sourceURL,
		"media_pk":   mediaPK,
		"media_type": mediaType,
		"success":    success,
	}

	logger := GetLogger().WithFields(fields)

	if err != nil {
		logger.WithError(err).Error("Download failed")
	} else if success {
		logger.Info("Download completed")
	} else {
		logger.Warn("Download skipped")
	}
}

// LogFallback logs activation of the raw-protocol fallback path
func LogFallback(mediaPK string, reason string) {
	GetLogger().WithFields(map[string]interface{}{
		"media_pk": mediaPK,
		"reason":   reason,
	}).Warn("Raw API fallback activated")
}

// LogDuplicate logs a deduplication hit
func LogDuplicate(hash, originalFilename string, duplicateCount int) {
	GetLogger().WithFields(map[string]interface{}{
		"hash":            truncateHash(hash),
		"original":        originalFilename,
		"duplicate_count": duplicateCount,
	}).Info("Duplicate content detected")
}

// LogSession logs session lifecycle events
func LogSession(event, detail string) {
	GetLogger().WithFields(map[string]interface{}{
		"event":  event,
		"detail": detail,
	}).Info("Session event")
}

// LogQueueItem logs queue drain outcomes per item
func LogQueueItem(filePath string, success bool, err error) {
	logger := GetLogger().WithField("file", filePath)
	if err != nil {
		logger.WithError(err).Error("Queue item processing failed")
	} else if success {
		logger.Info("Queue item processed")
	} else {
		logger.Warn("Queue item discarded")
	}
}

// truncateHash shortens a fingerprint for log output
func truncateHash(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}

// NewNopLogger creates a no-operation logger for testing
func NewNopLogger() Logger {
	return &nopLogger{}
}

// nopLogger is a logger that does nothing (useful for testing)
type nopLogger struct{}

func (n *nopLogger) Debug(msg string)                                          {}
func (n *nopLogger) Info(msg string)                                           {}
func (n *nopLogger) Warn(msg string)                                           {}
func (n *nopLogger) Error(msg string)                                          {}
func (n *nopLogger) Fatal(msg string)                                          {}
func (n *nopLogger) WithField(key string, value interface{}) Logger            { return n }
func (n *nopLogger) WithFields(fields map[string]interface{}) Logger           { return n }
func (n *nopLogger) WithError(err error) Logger                                { return n }
func (n *nopLogger) DebugWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) InfoWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) WarnWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) ErrorWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) GetZerolog() *zerolog.Logger                               { return nil }
