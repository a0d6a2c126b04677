package instagram

import (
	"fmt"
)

const (
	// BaseURL is the base URL for the Instagram web surface
	BaseURL = "https://www.instagram.com"

	// APIBaseURL is the base URL for the private mobile API surface
	APIBaseURL = "https://i.instagram.com"

	// MediaInfoEndpoint is the endpoint pattern for media metadata by primary key
	MediaInfoEndpoint = "/api/v1/media/%s/info/"

	// TimelineEndpoint is the cheap read used to verify a session
	TimelineEndpoint = "/api/v1/feed/timeline/"

	// LoginEndpoint is the web login endpoint
	LoginEndpoint = "/accounts/login/ajax/"

	// WebAppID is the X-IG-App-ID value the web client sends
	WebAppID = "936619743392459"
)

// MediaInfoURL constructs the metadata-by-id URL for a media primary key
func MediaInfoURL(pk string) string {
	return APIBaseURL + fmt.Sprintf(MediaInfoEndpoint, pk)
}

// TimelineURL constructs the session verification probe URL
func TimelineURL() string {
	return APIBaseURL + TimelineEndpoint
}

// LoginURL constructs the web login URL
func LoginURL() string {
	return BaseURL + LoginEndpoint
}

// PostURL constructs the public URL for a post short code
func PostURL(shortCode string) string {
	if shortCode == "" {
		return ""
	}
	return fmt.Sprintf("%s/p/%s/", BaseURL, shortCode)
}
