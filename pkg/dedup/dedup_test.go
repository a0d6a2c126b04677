package dedup

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"insightminer/pkg/logger"
)

// writeTestImage renders a half-black half-white image to path. The strong
// contrast keeps the perceptual signature stable across encodings.
func writeTestImage(t *testing.T, path string, inverted bool) {
	t.Helper()

	img := image.NewNRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			white := x >= 32
			if inverted {
				white = !white
			}
			if white {
				img.Set(x, y, color.NRGBA{255, 255, 255, 255})
			} else {
				img.Set(x, y, color.NRGBA{0, 0, 0, 255})
			}
		}
	}

	require.NoError(t, imaging.Save(img, path))
}

func TestFingerprintIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.png")
	writeTestImage(t, path, false)

	first, err := Fingerprint(path)
	require.NoError(t, err)
	second, err := Fingerprint(path)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, first, 32, "combined fingerprint is an md5 hex digest")
}

func TestFingerprintIdenticalBytes(t *testing.T) {
	dir := t.TempDir()
	pathA := filepath.Join(dir, "a.png")
	pathB := filepath.Join(dir, "b.png")
	writeTestImage(t, pathA, false)

	data, err := os.ReadFile(pathA)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(pathB, data, 0644))

	hashA, err := Fingerprint(pathA)
	require.NoError(t, err)
	hashB, err := Fingerprint(pathB)
	require.NoError(t, err)

	assert.Equal(t, hashA, hashB)
}

func TestFingerprintDistinctContent(t *testing.T) {
	dir := t.TempDir()
	pathA := filepath.Join(dir, "a.png")
	pathB := filepath.Join(dir, "b.png")
	writeTestImage(t, pathA, false)
	writeTestImage(t, pathB, true)

	hashA, err := Fingerprint(pathA)
	require.NoError(t, err)
	hashB, err := Fingerprint(pathB)
	require.NoError(t, err)

	assert.NotEqual(t, hashA, hashB)
}

func TestPerceptualHashSurvivesReencoding(t *testing.T) {
	dir := t.TempDir()
	pngPath := filepath.Join(dir, "a.png")
	jpgPath := filepath.Join(dir, "a.jpg")
	writeTestImage(t, pngPath, false)
	writeTestImage(t, jpgPath, false)

	pngHash, err := PerceptualHash(pngPath)
	require.NoError(t, err)
	jpgHash, err := PerceptualHash(jpgPath)
	require.NoError(t, err)

	assert.Equal(t, pngHash, jpgHash, "re-encoded visually identical content shares a perceptual signature")
}

func TestFingerprintNonImageFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "not_an_image.jpg")
	require.NoError(t, os.WriteFile(path, []byte("plain text"), 0644))

	_, err := Fingerprint(path)
	assert.Error(t, err)
}

func TestCheckAndRecord(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "hash_cache.json"), logger.NewNopLogger())
	require.NoError(t, store.Load())

	meta := Metadata{OriginalFilename: "instagram_1.jpg"}

	isDup, existing, err := store.CheckAndRecord("hash-1", meta)
	require.NoError(t, err)
	assert.False(t, isDup)
	assert.Nil(t, existing)

	// Second sighting of the same hash is a duplicate
	isDup, existing, err = store.CheckAndRecord("hash-1", Metadata{OriginalFilename: "instagram_2.jpg"})
	require.NoError(t, err)
	assert.True(t, isDup)
	require.NotNil(t, existing)
	assert.Equal(t, "instagram_1.jpg", existing.OriginalFilename, "the original record is returned, not the new sighting")
	assert.Equal(t, 1, existing.DuplicateCount)

	stats := store.Stats()
	assert.Equal(t, 1, stats.UniqueCount)
	assert.Equal(t, 1, stats.DuplicatesBlocked)
}

func TestStorePersistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hash_cache.json")

	store := NewStore(path, logger.NewNopLogger())
	require.NoError(t, store.Load())
	_, _, err := store.CheckAndRecord("persisted-hash", Metadata{OriginalFilename: "f.jpg", Category: "meme", Summary: "a meme"})
	require.NoError(t, err)

	// A new instance over the same file sees the record
	reopened := NewStore(path, logger.NewNopLogger())
	require.NoError(t, reopened.Load())

	isDup, existing, err := reopened.CheckAndRecord("persisted-hash", Metadata{})
	require.NoError(t, err)
	assert.True(t, isDup)
	assert.Equal(t, "meme", existing.Category)
	assert.Equal(t, "a meme", existing.Summary)
}

func TestUpdateAnalysis(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "hash_cache.json"), logger.NewNopLogger())
	require.NoError(t, store.Load())

	_, _, err := store.CheckAndRecord("h", Metadata{OriginalFilename: "f.jpg"})
	require.NoError(t, err)

	require.NoError(t, store.UpdateAnalysis("h", "screenshot", "terminal output", 0.92))

	record, ok := store.Get("h")
	require.True(t, ok)
	assert.Equal(t, "screenshot", record.Category)
	assert.Equal(t, 0.92, record.Confidence)

	assert.Error(t, store.UpdateAnalysis("missing", "x", "y", 0))
}

func TestReset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hash_cache.json")
	store := NewStore(path, logger.NewNopLogger())
	require.NoError(t, store.Load())

	_, _, err := store.CheckAndRecord("h1", Metadata{})
	require.NoError(t, err)
	require.NoError(t, store.Reset())

	assert.Equal(t, 0, store.Stats().UniqueCount)

	reopened := NewStore(path, logger.NewNopLogger())
	require.NoError(t, reopened.Load())
	assert.Equal(t, 0, reopened.Stats().UniqueCount)
}
