// Package apod fetches and parses NASA Astronomy Picture of the Day
// pages. The page layout has drifted unpredictably across ~25 years of
// publication, so every field extractor is an ordered chain of
// strategies that falls back from newer layouts to older ones.
package apod

// MediaType classifies the media on an APOD page.
type MediaType string

const (
	// MediaTypeImage is a page with an inline image.
	MediaTypeImage MediaType = "image"
	// MediaTypeVideo is a page with an embedded video frame.
	MediaTypeVideo MediaType = "video"
	// MediaTypeOther is a page with no recognizable media element.
	MediaTypeOther MediaType = "other"
)

// PageRecord is the parsed result for one date. Date is the effective
// date actually parsed, which may be one day earlier than requested
// under the fallback policy. Records are built fresh per parse call and
// not mutated afterwards.
//
// JSON field names follow the public APOD API contract.
type PageRecord struct {
	Date        string    `json:"date"`
	Title       string    `json:"title"`
	Explanation string    `json:"explanation"`
	URL         string    `json:"url,omitempty"`
	HDURL       string    `json:"hdurl,omitempty"`
	MediaType   MediaType `json:"media_type"`
	Copyright   string    `json:"copyright,omitempty"`
	// ThumbnailURL is set only for video pages when thumbnail
	// resolution was requested and the host was recognized.
	ThumbnailURL string `json:"thumbnail_url,omitempty"`

	// ServiceVersion and Concepts are filled in by the API layer.
	// Concepts is either a map of ranked concepts or the
	// feature-disabled notice string.
	ServiceVersion string `json:"service_version,omitempty"`
	Concepts       any    `json:"concepts,omitempty"`
}
