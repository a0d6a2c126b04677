package instagram

import (
	"fmt"
	"strings"

	errs "insightminer/pkg/errors"
	"insightminer/pkg/media"
)

// Media type codes used by the upstream API
const (
	mediaTypeCodeImage    = 1
	mediaTypeCodeVideo    = 2
	mediaTypeCodeCarousel = 8
)

// MediaInfoResponse is the typed shape of the media-info endpoint
type MediaInfoResponse struct {
	Items  []MediaItem `json:"items"`
	Status string      `json:"status"`
}

// PKValue decodes a media primary key that the upstream serves as either a
// JSON string or a bare number. Keeping the raw digits avoids float64
// precision loss on 19-digit keys.
type PKValue string

func (p *PKValue) UnmarshalJSON(data []byte) error {
	*p = PKValue(strings.Trim(string(data), `"`))
	return nil
}

// MediaItem is one media entry in a media-info response
type MediaItem struct {
	PK             PKValue         `json:"pk"`
	ID             string          `json:"id"`
	Code           string          `json:"code"`
	MediaTypeCode  int             `json:"media_type"`
	User           MediaUser       `json:"user"`
	ImageVersions2 *ImageVersions  `json:"image_versions2"`
	VideoVersions  []VideoVersion  `json:"video_versions"`
	CarouselMedia  []MediaItem     `json:"carousel_media"`
	Clips          *ClipsMetadata  `json:"clips_metadata"`
	OriginalWidth  int             `json:"original_width"`
	OriginalHeight int             `json:"original_height"`
}

// MediaUser identifies the owner of a media item
type MediaUser struct {
	Username string `json:"username"`
}

// ImageVersions holds the ranked image quality candidates
type ImageVersions struct {
	Candidates []ImageCandidate `json:"candidates"`
}

// ImageCandidate is one image quality variant
type ImageCandidate struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// VideoVersion is one video quality variant
type VideoVersion struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Type   int    `json:"type"`
}

// ClipsMetadata holds reel-specific metadata. MusicInfo is the nested field
// the upstream is known to null out for a subset of videos, which breaks
// strict consumers.
type ClipsMetadata struct {
	MusicInfo *MusicInfo `json:"music_info"`
	AudioType string     `json:"audio_type"`
}

// MusicInfo holds audio attribution for a clip
type MusicInfo struct {
	MusicAssetInfo *MusicAssetInfo `json:"music_asset_info"`
}

// MusicAssetInfo holds the audio asset details
type MusicAssetInfo struct {
	AudioClusterID string `json:"audio_cluster_id"`
	Title          string `json:"title"`
}

// PKString renders the primary key as its decimal string form
func (m *MediaItem) PKString() string {
	return string(m.PK)
}

// MediaType maps the upstream type code to the descriptor media type.
// Carousels resolve to image; individual carousel entries carry their own
// codes.
func (m *MediaItem) MediaType() media.Type {
	if m.MediaTypeCode == mediaTypeCodeVideo {
		return media.TypeVideo
	}
	return media.TypeImage
}

// Validate enforces the structural invariants a strict consumer relies on.
// Violations are validation-class errors: the media may still be perfectly
// downloadable through the raw path.
func (m *MediaItem) Validate() error {
	switch m.MediaTypeCode {
	case mediaTypeCodeImage:
		if m.ImageVersions2 == nil || len(m.ImageVersions2.Candidates) == 0 {
			return errs.New(errs.ErrorTypeValidation, "image item missing image_versions2 candidates", 200)
		}
	case mediaTypeCodeVideo:
		if len(m.VideoVersions) == 0 {
			return errs.New(errs.ErrorTypeValidation, "video item missing video_versions", 200)
		}
		// A clips block with a null music_info is the known upstream defect
		// that breaks strict audio metadata consumers
		if m.Clips != nil && m.Clips.MusicInfo == nil && m.Clips.AudioType == "licensed_music" {
			return errs.New(errs.ErrorTypeValidation, "video item has null nested audio metadata", 200)
		}
		if m.Clips != nil && m.Clips.MusicInfo != nil && m.Clips.MusicInfo.MusicAssetInfo == nil {
			return errs.New(errs.ErrorTypeValidation, "video item has null music asset info", 200)
		}
	case mediaTypeCodeCarousel:
		if len(m.CarouselMedia) == 0 {
			return errs.New(errs.ErrorTypeValidation, "carousel item has no carousel_media", 200)
		}
		for i := range m.CarouselMedia {
			if err := m.CarouselMedia[i].Validate(); err != nil {
				return err
			}
		}
	default:
		return errs.New(errs.ErrorTypeValidation, fmt.Sprintf("unknown media_type code %d", m.MediaTypeCode), 200)
	}

	return nil
}

// BestURL returns the top-ranked content URL for the item's media type.
// Upstream orders variants best-first.
func (m *MediaItem) BestURL() string {
	if m.MediaTypeCode == mediaTypeCodeVideo && len(m.VideoVersions) > 0 {
		return m.VideoVersions[0].URL
	}
	if m.MediaTypeCode == mediaTypeCodeCarousel && len(m.CarouselMedia) > 0 {
		return m.CarouselMedia[0].BestURL()
	}
	if m.ImageVersions2 != nil && len(m.ImageVersions2.Candidates) > 0 {
		return m.ImageVersions2.Candidates[0].URL
	}
	return ""
}

// Descriptor builds the canonical descriptor for a resolved media item
func (m *MediaItem) Descriptor() *media.Descriptor {
	d := &media.Descriptor{
		PrimaryKey: m.PKString(),
		MediaType:  m.MediaType(),
		ShortCode:  m.Code,
		Owner:      m.User.Username,
		Source:     media.SourceResolved,
	}

	if m.OriginalWidth > 0 {
		d.Width = m.OriginalWidth
	}
	if m.OriginalHeight > 0 {
		d.Height = m.OriginalHeight
	}

	return d
}
