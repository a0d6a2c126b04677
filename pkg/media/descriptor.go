package media

// Type is the authoritative media type carried by a descriptor
type Type string

const (
	TypeImage Type = "image"
	TypeVideo Type = "video"
)

// Source records how a descriptor was produced. Reconstructed descriptors
// route to the raw-protocol fallback download path.
type Source string

const (
	SourceResolved      Source = "resolved"
	SourceReconstructed Source = "reconstructed"
)

// Descriptor is the canonical description of a single media item
type Descriptor struct {
	PrimaryKey string `json:"primary_key"`
	MediaType  Type   `json:"media_type"`
	ShortCode  string `json:"short_code"`
	Owner      string `json:"owner,omitempty"`
	Source     Source `json:"source"`

	// Attributes merged after download for reconstructed media
	Width    int   `json:"width,omitempty"`
	Height   int   `json:"height,omitempty"`
	FileSize int64 `json:"file_size,omitempty"`
}

// IsReconstructed reports whether the descriptor came from the
// reconstruction fallback
func (d *Descriptor) IsReconstructed() bool {
	return d.Source == SourceReconstructed
}

// MergeDownloadAttrs fills in attributes detected after download. Only
// reconstructed descriptors are enriched; resolved ones already carry
// upstream metadata.
func (d *Descriptor) MergeDownloadAttrs(width, height int, fileSize int64) {
	if !d.IsReconstructed() {
		return
	}
	if width > 0 {
		d.Width = width
	}
	if height > 0 {
		d.Height = height
	}
	if fileSize > 0 {
		d.FileSize = fileSize
	}
}

// Filename returns the canonical local filename for the descriptor
func (d *Descriptor) Filename() string {
	if d.MediaType == TypeVideo {
		return "instagram_" + d.PrimaryKey + ".mp4"
	}
	return "instagram_" + d.PrimaryKey + ".jpg"
}
