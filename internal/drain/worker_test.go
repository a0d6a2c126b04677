package drain

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"insightminer/pkg/logger"
	"insightminer/pkg/media"
	"insightminer/pkg/queue"
)

type recordingProcessor struct {
	mu    sync.Mutex
	calls []string
}

func (p *recordingProcessor) Process(ctx context.Context, filePath string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, filePath)
	return nil
}

func (p *recordingProcessor) seen() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

func enqueueFile(t *testing.T, q queue.Queue, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("media"), 0644))
	require.NoError(t, q.Enqueue(path, "url", "1", media.TypeImage))
	return path
}

func TestRunOnceDrainsAllFolders(t *testing.T) {
	images := t.TempDir()
	videos := t.TempDir()
	q := queue.NewFlagFileQueue(logger.NewNopLogger())

	img := enqueueFile(t, q, images, "instagram_1.jpg")
	vid := enqueueFile(t, q, videos, "instagram_2.mp4")

	p := &recordingProcessor{}
	w := NewWorker(q, []string{images, videos}, p, time.Minute, logger.NewNopLogger())

	count := w.RunOnce(context.Background())
	assert.Equal(t, 2, count)
	assert.ElementsMatch(t, []string{img, vid}, p.seen())
}

func TestRunOncePicksUpLaterEnqueues(t *testing.T) {
	dir := t.TempDir()
	q := queue.NewFlagFileQueue(logger.NewNopLogger())
	p := &recordingProcessor{}
	w := NewWorker(q, []string{dir}, p, time.Minute, logger.NewNopLogger())

	assert.Zero(t, w.RunOnce(context.Background()))

	enqueueFile(t, q, dir, "instagram_1.jpg")
	assert.Equal(t, 1, w.RunOnce(context.Background()))

	// Nothing left on the next pass
	assert.Zero(t, w.RunOnce(context.Background()))
}

func TestRunStopsOnCancel(t *testing.T) {
	dir := t.TempDir()
	q := queue.NewFlagFileQueue(logger.NewNopLogger())
	w := NewWorker(q, []string{dir}, &recordingProcessor{}, 10*time.Millisecond, logger.NewNopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after cancel")
	}
}

func TestRunTickerDrainsNewWork(t *testing.T) {
	dir := t.TempDir()
	q := queue.NewFlagFileQueue(logger.NewNopLogger())
	p := &recordingProcessor{}
	w := NewWorker(q, []string{dir}, p, 10*time.Millisecond, logger.NewNopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	path := enqueueFile(t, q, dir, "instagram_1.jpg")

	require.Eventually(t, func() bool {
		return len(p.seen()) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{path}, p.seen())
}

func TestHandoffProcessorRejectsEmptyFile(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "instagram_1.jpg")
	require.NoError(t, os.WriteFile(empty, nil, 0644))

	p := NewHandoffProcessor(logger.NewNopLogger())
	assert.Error(t, p.Process(context.Background(), empty))

	full := filepath.Join(dir, "instagram_2.jpg")
	require.NoError(t, os.WriteFile(full, []byte("media"), 0644))
	assert.NoError(t, p.Process(context.Background(), full))
}
