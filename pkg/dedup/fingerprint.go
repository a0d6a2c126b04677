package dedup

import (
	"crypto/md5"
	"crypto/sha256"
	"fmt"
	"os"

	"github.com/disintegration/imaging"
)

// perceptualGridSize is the edge length of the downscale grid used for the
// perceptual signature
const perceptualGridSize = 8

// Fingerprint computes the combined content fingerprint for a file: a
// cryptographic digest of the raw bytes (defeats byte-identical re-uploads)
// joined with a coarse perceptual signature (defeats re-encodes of visually
// identical content), hashed together into the final key.
func Fingerprint(filePath string) (string, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to read file for fingerprinting: %w", err)
	}

	byteHash := fmt.Sprintf("%x", sha256.Sum256(data))

	perceptual, err := PerceptualHash(filePath)
	if err != nil {
		return "", err
	}

	combined := byteHash + "_" + perceptual
	return fmt.Sprintf("%x", md5.Sum([]byte(combined))), nil
}

// PerceptualHash computes the mean-threshold perceptual signature of an
// image: downscale to an 8x8 grid, reduce to grayscale intensity, then set
// one bit per cell depending on whether it is brighter than the grid mean.
func PerceptualHash(filePath string) (string, error) {
	img, err := imaging.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to decode image for perceptual hash: %w", err)
	}

	small := imaging.Resize(img, perceptualGridSize, perceptualGridSize, imaging.Lanczos)
	gray := imaging.Grayscale(small)

	var cells [perceptualGridSize * perceptualGridSize]uint32
	var total uint64
	for y := 0; y < perceptualGridSize; y++ {
		for x := 0; x < perceptualGridSize; x++ {
			r, _, _, _ := gray.At(x, y).RGBA()
			cells[y*perceptualGridSize+x] = r
			total += uint64(r)
		}
	}
	mean := uint32(total / uint64(len(cells)))

	var bits uint64
	for i, v := range cells {
		if v > mean {
			bits |= 1 << uint(len(cells)-1-i)
		}
	}

	return fmt.Sprintf("%016x", bits), nil
}
