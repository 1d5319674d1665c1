package apod

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/encoding/charmap"

	"github.com/jonesrussell/apod-api/internal/logger"
)

// Service orchestrates a page parse: fetch, decode, run the field
// extractors, and optionally resolve a video thumbnail.
type Service struct {
	fetcher PageFetcher
	thumbs  *ThumbnailResolver
	baseURL string
	log     logger.Logger
	now     func() time.Time
}

// NewService creates a parse orchestrator. baseURL is the upstream site
// root used to resolve relative media references.
func NewService(fetcher PageFetcher, thumbs *ThumbnailResolver, baseURL string, log logger.Logger) *Service {
	return &Service{
		fetcher: fetcher,
		thumbs:  thumbs,
		baseURL: baseURL,
		log:     log,
		now:     time.Now,
	}
}

// Parse fetches and parses the page for the given date. When the date
// was defaulted to today and the page is missing, the request is
// retried once for the previous day: the upstream site publishes on US
// Eastern time, so a caller ahead of it can ask for a page that does
// not exist yet. The returned record carries the date actually parsed.
func (s *Service) Parse(ctx context.Context, date time.Time, defaultedToday, withThumbs bool) (*PageRecord, error) {
	body, err := s.fetcher.Fetch(ctx, date)
	if errors.Is(err, ErrNoPage) && defaultedToday {
		date = date.AddDate(0, 0, -1)
		s.log.Debug("today's page not yet published, retrying previous day",
			logger.String("date", date.Format(DateFormat)))
		body, err = s.fetcher.Fetch(ctx, date)
	}
	if err != nil {
		return nil, err
	}

	doc, err := parseDocument(body)
	if err != nil {
		return nil, err
	}

	return s.buildRecord(ctx, doc, date, withThumbs)
}

// ParseLatest fetches and parses the newest published page, reading the
// publication date out of the page body since no date was requested.
func (s *Service) ParseLatest(ctx context.Context, withThumbs bool) (*PageRecord, error) {
	body, err := s.fetcher.FetchLatest(ctx)
	if err != nil {
		return nil, err
	}

	doc, err := parseDocument(body)
	if err != nil {
		return nil, err
	}

	date, err := ExtractPageDate(doc, s.now())
	if err != nil {
		return nil, err
	}

	return s.buildRecord(ctx, doc, date, withThumbs)
}

func (s *Service) buildRecord(ctx context.Context, doc *goquery.Document, date time.Time, withThumbs bool) (*PageRecord, error) {
	title, err := ExtractTitle(doc)
	if err != nil {
		return nil, err
	}

	explanation, err := ExtractExplanation(doc)
	if err != nil {
		return nil, err
	}

	copyright, err := ExtractCopyright(doc)
	if err != nil {
		return nil, err
	}

	media := ExtractMedia(doc, s.baseURL)

	record := &PageRecord{
		Date:        date.Format(DateFormat),
		Title:       title,
		Explanation: explanation,
		Copyright:   copyright,
		MediaType:   media.Type,
		URL:         media.URL,
		HDURL:       media.HDURL,
	}
	if media.Type == MediaTypeVideo {
		// hdurl is an image-only field.
		record.HDURL = ""
	}

	if withThumbs && media.Type == MediaTypeVideo {
		thumb, err := s.thumbs.Resolve(ctx, media.URL)
		if err != nil {
			// Thumbnail resolution is an enrichment; its failure must
			// not fail the whole parse.
			s.log.Warn("thumbnail resolution failed",
				logger.String("date", record.Date),
				logger.String("url", media.URL),
				logger.Error(err))
		}
		record.ThumbnailURL = thumb
	}

	return record, nil
}

// parseDocument parses page bytes into a document. Pages that are not
// valid UTF-8 are re-decoded as Windows-1252 first; the HTML parser
// would otherwise replace every offending byte with U+FFFD before the
// per-field text repair could see it.
func parseDocument(body []byte) (*goquery.Document, error) {
	if !utf8.Valid(body) {
		decoded, err := charmap.Windows1252.NewDecoder().Bytes(body)
		if err == nil {
			body = decoded
		}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}
	return doc, nil
}
