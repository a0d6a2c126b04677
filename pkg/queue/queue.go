package queue

import (
	"context"
	"time"

	"insightminer/pkg/media"
)

// Flag is the durable marker written alongside a downloaded file to signal
// that it awaits downstream processing. Absence of the flag after a
// successful drain is the completion signal.
type Flag struct {
	FilePath        string     `json:"file_path"`
	SourceURL       string     `json:"source_url"`
	MediaPK         string     `json:"media_pk"`
	MediaType       media.Type `json:"media_type"`
	DownloadedAt    time.Time  `json:"download_timestamp"`
	Processed       bool       `json:"processed"`
	ProcessingError string     `json:"processing_error,omitempty"`
}

// Processor is the downstream analysis collaborator. It receives a file
// path and is expected to durably record its results before returning nil.
type Processor interface {
	Process(ctx context.Context, filePath string) error
}

// ProcessorFunc adapts a function to the Processor interface
type ProcessorFunc func(ctx context.Context, filePath string) error

func (f ProcessorFunc) Process(ctx context.Context, filePath string) error {
	return f(ctx, filePath)
}

// Queue is the processing handoff contract. The flag-file implementation is
// the default; the interface exists so a durable broker could replace it
// without touching callers.
type Queue interface {
	// Enqueue records a durable marker for a successfully downloaded file
	Enqueue(filePath, sourceURL, mediaPK string, mediaType media.Type) error

	// Drain scans a folder for outstanding markers and hands each referenced
	// file to the processor. It returns the number successfully processed.
	Drain(ctx context.Context, folder string, processor Processor) (int, error)
}
