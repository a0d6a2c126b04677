package queue

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"insightminer/pkg/logger"
	"insightminer/pkg/media"
)

type countingProcessor struct {
	calls []string
	fail  map[string]error
}

func (p *countingProcessor) Process(ctx context.Context, filePath string) error {
	p.calls = append(p.calls, filePath)
	if err, ok := p.fail[filePath]; ok {
		return err
	}
	return nil
}

func newQueue() *FlagFileQueue {
	return NewFlagFileQueue(logger.NewNopLogger())
}

func writeDownload(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("media"), 0644))
	return path
}

func TestFlagPath(t *testing.T) {
	assert.Equal(t,
		filepath.Join("videos", ".processing_instagram_42.json"),
		FlagPath(filepath.Join("videos", "instagram_42.mp4")))
}

func TestEnqueueWritesFlag(t *testing.T) {
	dir := t.TempDir()
	filePath := writeDownload(t, dir, "instagram_1.jpg")

	q := newQueue()
	require.NoError(t, q.Enqueue(filePath, "https://www.instagram.com/p/abc/", "1", media.TypeImage))

	data, err := os.ReadFile(FlagPath(filePath))
	require.NoError(t, err)

	var flag Flag
	require.NoError(t, json.Unmarshal(data, &flag))
	assert.Equal(t, filePath, flag.FilePath)
	assert.Equal(t, "1", flag.MediaPK)
	assert.Equal(t, media.TypeImage, flag.MediaType)
	assert.False(t, flag.Processed)
	assert.False(t, flag.DownloadedAt.IsZero())
}

func TestDrainProcessesAndRemovesFlags(t *testing.T) {
	dir := t.TempDir()
	fileA := writeDownload(t, dir, "instagram_1.jpg")
	fileB := writeDownload(t, dir, "instagram_2.jpg")

	q := newQueue()
	require.NoError(t, q.Enqueue(fileA, "urlA", "1", media.TypeImage))
	require.NoError(t, q.Enqueue(fileB, "urlB", "2", media.TypeImage))

	p := &countingProcessor{}
	count, err := q.Drain(context.Background(), dir, p)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.ElementsMatch(t, []string{fileA, fileB}, p.calls)

	assert.NoFileExists(t, FlagPath(fileA))
	assert.NoFileExists(t, FlagPath(fileB))
}

func TestDrainIdempotent(t *testing.T) {
	dir := t.TempDir()
	filePath := writeDownload(t, dir, "instagram_1.jpg")

	q := newQueue()
	require.NoError(t, q.Enqueue(filePath, "url", "1", media.TypeImage))

	p := &countingProcessor{}
	first, err := q.Drain(context.Background(), dir, p)
	require.NoError(t, err)
	assert.Equal(t, 1, first)

	second, err := q.Drain(context.Background(), dir, p)
	require.NoError(t, err)
	assert.Zero(t, second, "a second drain over the same state processes nothing")
	assert.Len(t, p.calls, 1)
}

func TestDrainDiscardsStaleFlag(t *testing.T) {
	dir := t.TempDir()
	filePath := writeDownload(t, dir, "instagram_1.jpg")

	q := newQueue()
	require.NoError(t, q.Enqueue(filePath, "url", "1", media.TypeImage))
	require.NoError(t, os.Remove(filePath))

	p := &countingProcessor{}
	count, err := q.Drain(context.Background(), dir, p)
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Empty(t, p.calls, "stale flags are discarded, not processed")
	assert.NoFileExists(t, FlagPath(filePath))
}

func TestDrainRecordsFailureWithoutRetry(t *testing.T) {
	dir := t.TempDir()
	filePath := writeDownload(t, dir, "instagram_1.jpg")

	q := newQueue()
	require.NoError(t, q.Enqueue(filePath, "url", "1", media.TypeImage))

	p := &countingProcessor{fail: map[string]error{filePath: errors.New("analysis crashed")}}
	count, err := q.Drain(context.Background(), dir, p)
	require.NoError(t, err, "per-item failures do not halt the drain pass")
	assert.Zero(t, count)

	// The flag survives with the failure recorded
	data, err := os.ReadFile(FlagPath(filePath))
	require.NoError(t, err)
	var flag Flag
	require.NoError(t, json.Unmarshal(data, &flag))
	assert.True(t, flag.Processed)
	assert.Equal(t, "analysis crashed", flag.ProcessingError)

	// A later pass does not retry it
	count, err = q.Drain(context.Background(), dir, p)
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Len(t, p.calls, 1)
}

func TestDrainRemovesMalformedFlag(t *testing.T) {
	dir := t.TempDir()
	flagPath := filepath.Join(dir, ".processing_broken.json")
	require.NoError(t, os.WriteFile(flagPath, []byte("{not json"), 0644))

	q := newQueue()
	p := &countingProcessor{}
	count, err := q.Drain(context.Background(), dir, p)
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.NoFileExists(t, flagPath)
}

func TestDrainMissingFolder(t *testing.T) {
	q := newQueue()
	count, err := q.Drain(context.Background(), filepath.Join(t.TempDir(), "nope"), &countingProcessor{})
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestDrainIgnoresUnrelatedFiles(t *testing.T) {
	dir := t.TempDir()
	writeDownload(t, dir, "instagram_1.jpg")
	writeDownload(t, dir, "notes.json")

	q := newQueue()
	p := &countingProcessor{}
	count, err := q.Drain(context.Background(), dir, p)
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Empty(t, p.calls)
}
