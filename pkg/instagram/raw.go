package instagram

import (
	"context"

	"insightminer/pkg/media"
)

// FetchRawMediaInfo fetches media metadata and parses it as a generic
// untyped document. This sidesteps the strict-parse failures that make some
// structurally defective payloads unusable on the typed path even though
// the media itself downloads fine.
func (c *Client) FetchRawMediaInfo(ctx context.Context, pk string) (map[string]interface{}, error) {
	url := c.MediaInfoURL(pk)

	c.logger.DebugWithFields("fetching raw media info", map[string]interface{}{
		"media_pk": pk,
		"url":      url,
	})

	var doc map[string]interface{}
	if err := c.GetJSON(ctx, url, &doc); err != nil {
		return nil, err
	}

	return doc, nil
}

// ExtractCandidateURLs enumerates every candidate content URL in a raw
// media-info document for the target media type: all quality variants of
// the first item plus nested carousel entries of the matching type.
// Candidates are de-duplicated by URL and keep the upstream ranking order.
func ExtractCandidateURLs(doc map[string]interface{}, mediaType media.Type) []string {
	items, ok := doc["items"].([]interface{})
	if !ok || len(items) == 0 {
		return nil
	}

	item, ok := items[0].(map[string]interface{})
	if !ok {
		return nil
	}

	var urls []string
	urls = append(urls, versionURLs(item, mediaType)...)

	if carousel, ok := item["carousel_media"].([]interface{}); ok {
		for _, entry := range carousel {
			child, ok := entry.(map[string]interface{})
			if !ok {
				continue
			}
			if rawMediaType(child) != mediaType {
				continue
			}
			urls = append(urls, versionURLs(child, mediaType)...)
		}
	}

	return dedupURLs(urls)
}

// versionURLs pulls the ranked quality-variant URLs for one item
func versionURLs(item map[string]interface{}, mediaType media.Type) []string {
	var urls []string

	if mediaType == media.TypeVideo {
		if versions, ok := item["video_versions"].([]interface{}); ok {
			for _, v := range versions {
				if u := urlField(v); u != "" {
					urls = append(urls, u)
				}
			}
		}
		return urls
	}

	if iv, ok := item["image_versions2"].(map[string]interface{}); ok {
		if candidates, ok := iv["candidates"].([]interface{}); ok {
			for _, v := range candidates {
				if u := urlField(v); u != "" {
					urls = append(urls, u)
				}
			}
		}
	}

	return urls
}

// rawMediaType reads the media_type code out of an untyped item
func rawMediaType(item map[string]interface{}) media.Type {
	if code, ok := item["media_type"].(float64); ok && int(code) == mediaTypeCodeVideo {
		return media.TypeVideo
	}
	return media.TypeImage
}

// urlField extracts the "url" key from an untyped variant entry
func urlField(v interface{}) string {
	entry, ok := v.(map[string]interface{})
	if !ok {
		return ""
	}
	u, _ := entry["url"].(string)
	return u
}

// dedupURLs removes duplicate URLs while preserving first-seen order
func dedupURLs(urls []string) []string {
	seen := make(map[string]bool, len(urls))
	var out []string
	for _, u := range urls {
		if seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, u)
	}
	return out
}
