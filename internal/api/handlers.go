// Package api exposes the parsed APOD records over an HTTP JSON API.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/apod-api/internal/apod"
	"github.com/jonesrussell/apod-api/internal/cache"
	"github.com/jonesrussell/apod-api/internal/concepts"
	"github.com/jonesrussell/apod-api/internal/logger"
	"github.com/jonesrussell/apod-api/internal/metrics"
)

// ServiceVersion is the public API version stamped on every response.
const ServiceVersion = "v1"

// allowedFields is the query parameter whitelist. Anything else is a
// client error, not silently ignored.
var allowedFields = map[string]bool{
	"concept_tags": true,
	"date":         true,
	"hd":           true,
	"count":        true,
	"start_date":   true,
	"end_date":     true,
	"thumbs":       true,
}

// errorBody is the JSON error payload.
type errorBody struct {
	Code           int    `json:"code"`
	Msg            string `json:"msg"`
	ServiceVersion string `json:"service_version"`
}

// Handler holds the HTTP request handlers and their collaborators.
type Handler struct {
	service *apod.Service
	store   *cache.Store
	tagger  *concepts.Tagger
	metrics *metrics.Provider
	logger  logger.Logger
	now     func() time.Time
}

// NewHandler creates a handler. store may be nil when caching is
// disabled; tagger may be nil when concept tagging is unconfigured.
func NewHandler(service *apod.Service, store *cache.Store, tagger *concepts.Tagger, m *metrics.Provider, log logger.Logger) *Handler {
	return &Handler{
		service: service,
		store:   store,
		tagger:  tagger,
		metrics: m,
		logger:  log,
		now:     time.Now,
	}
}

// Apod handles GET /v1/apod, dispatching on the query parameter
// combination: a single date (explicit or defaulted to today), a random
// sample via count, or an inclusive date range.
func (h *Handler) Apod(c *gin.Context) {
	if !h.validateFields(c) {
		return
	}

	conceptTags := c.Query("concept_tags") == "true"
	thumbs := c.Query("thumbs") == "true"
	dateParam := c.Query("date")
	countParam := c.Query("count")
	startParam := c.Query("start_date")
	endParam := c.Query("end_date")

	switch {
	case countParam != "":
		if dateParam != "" || startParam != "" || endParam != "" {
			h.abort(c, http.StatusBadRequest,
				"Bad Request: count cannot be used with date or start_date and end_date.")
			return
		}
		h.randomApods(c, countParam, conceptTags, thumbs)

	case startParam != "" || endParam != "":
		if dateParam != "" {
			h.abort(c, http.StatusBadRequest,
				"Bad Request: date cannot be used with start_date and end_date.")
			return
		}
		if startParam == "" {
			h.abort(c, http.StatusBadRequest,
				"Bad Request: end_date cannot be used without start_date.")
			return
		}
		h.rangeApods(c, startParam, endParam, conceptTags, thumbs)

	default:
		h.singleApod(c, dateParam, conceptTags, thumbs)
	}
}

// singleApod serves one record. Without a date parameter the newest
// published page is used, which sidesteps the timezone question of what
// "today" means for the caller.
func (h *Handler) singleApod(c *gin.Context, dateParam string, conceptTags, thumbs bool) {
	ctx := c.Request.Context()

	if dateParam == "" {
		h.latestApod(c, conceptTags, thumbs)
		return
	}

	date, _, err := apod.ResolveDate(dateParam, h.now())
	if err != nil {
		h.abortForError(c, err, dateParam)
		return
	}

	key := cache.Key(date.Format(apod.DateFormat), conceptTags, thumbs)
	if record, ok := h.cached(ctx, key); ok {
		c.JSON(http.StatusOK, record)
		return
	}

	record, err := h.parse(ctx, date, false, conceptTags, thumbs)
	if err != nil {
		h.abortForError(c, err, date.Format(apod.DateFormat))
		return
	}

	h.cacheRecord(ctx, key, record)
	c.JSON(http.StatusOK, record)
}

// latestApod serves the newest published record. Its date is only known
// after the parse, so the cache is written under the effective date and
// the lookup can only try today's key. A latest request just after
// midnight misses and re-parses yesterday's page, which is fine.
func (h *Handler) latestApod(c *gin.Context, conceptTags, thumbs bool) {
	ctx := c.Request.Context()
	today := h.now().UTC().Format(apod.DateFormat)

	if record, ok := h.cached(ctx, cache.Key(today, conceptTags, thumbs)); ok {
		c.JSON(http.StatusOK, record)
		return
	}

	start := time.Now()
	record, err := h.service.ParseLatest(ctx, thumbs)
	h.metrics.ParseDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		h.observeParseError(err)
		h.abortForError(c, err, today)
		return
	}
	h.metrics.PagesFetched.WithLabelValues("ok").Inc()

	record.ServiceVersion = ServiceVersion
	if conceptTags {
		record.Concepts = h.conceptTags(ctx, record.Explanation)
	}

	h.cacheRecord(ctx, cache.Key(record.Date, conceptTags, thumbs), record)
	c.JSON(http.StatusOK, record)
}

// rangeApods serves every record between start_date and end_date
// inclusive, in ascending order. end_date defaults to today.
func (h *Handler) rangeApods(c *gin.Context, startParam, endParam string, conceptTags, thumbs bool) {
	ctx := c.Request.Context()
	now := h.now()

	start, _, err := apod.ResolveDate(startParam, now)
	if err != nil {
		h.abortForError(c, err, startParam)
		return
	}

	end, _, err := apod.ResolveDate(endParam, now)
	if err != nil {
		h.abortForError(c, err, endParam)
		return
	}

	if start.After(end) {
		h.abort(c, http.StatusBadRequest, "Bad Request: start_date cannot be after end_date.")
		return
	}

	records := make([]*apod.PageRecord, 0, int(end.Sub(start).Hours()/24)+1)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		record, err := h.parse(ctx, d, apod.SameDay(d, now), conceptTags, thumbs)
		if errors.Is(err, apod.ErrNoPage) {
			continue
		}
		if err != nil {
			h.abortForError(c, err, d.Format(apod.DateFormat))
			return
		}
		// The today entry may fall back to yesterday's page, which the
		// previous iteration already produced.
		if record.Date != d.Format(apod.DateFormat) {
			continue
		}
		records = append(records, record)
	}

	c.JSON(http.StatusOK, records)
}

// randomApods serves count records for distinct random dates. Dates
// whose pages are missing upstream are skipped and redrawn.
func (h *Handler) randomApods(c *gin.Context, countParam string, conceptTags, thumbs bool) {
	ctx := c.Request.Context()

	count, err := strconv.Atoi(countParam)
	if err != nil {
		count = -1
	}

	dates, err := apod.RandomDates(count, h.now())
	if err != nil {
		h.abortForError(c, err, countParam)
		return
	}

	records := make([]*apod.PageRecord, 0, count)
	for _, d := range dates {
		if len(records) == count {
			break
		}
		record, err := h.parse(ctx, d, false, conceptTags, thumbs)
		if errors.Is(err, apod.ErrNoPage) {
			continue
		}
		if err != nil {
			h.abortForError(c, err, d.Format(apod.DateFormat))
			return
		}
		records = append(records, record)
	}

	c.JSON(http.StatusOK, records)
}

// parse runs the parse pipeline for one date and decorates the record
// with the version stamp and optional concept tags.
func (h *Handler) parse(ctx context.Context, date time.Time, defaultedToday, conceptTags, thumbs bool) (*apod.PageRecord, error) {
	start := time.Now()
	record, err := h.service.Parse(ctx, date, defaultedToday, thumbs)
	h.metrics.ParseDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		h.observeParseError(err)
		return nil, err
	}
	h.metrics.PagesFetched.WithLabelValues("ok").Inc()
	if defaultedToday && record.Date != date.Format(apod.DateFormat) {
		h.metrics.FallbackRetries.Inc()
	}

	record.ServiceVersion = ServiceVersion
	if conceptTags {
		record.Concepts = h.conceptTags(ctx, record.Explanation)
	}
	return record, nil
}

// conceptTags annotates explanation text, or reports the feature as
// disabled. Tagging failures degrade to no tags rather than failing
// the request.
func (h *Handler) conceptTags(ctx context.Context, text string) any {
	if h.tagger == nil || !h.tagger.Enabled() {
		return concepts.DisabledMessage
	}

	tags, err := h.tagger.Concepts(ctx, text)
	if err != nil {
		h.logger.Warn("concept tagging failed", logger.Error(err))
		return nil
	}
	return tags
}

func (h *Handler) cached(ctx context.Context, key string) (*apod.PageRecord, bool) {
	if h.store == nil {
		return nil, false
	}

	record, err := h.store.Get(ctx, key)
	if errors.Is(err, cache.ErrMiss) {
		h.metrics.CacheMisses.Inc()
		return nil, false
	}
	if err != nil {
		h.logger.Warn("cache lookup failed", logger.String("key", key), logger.Error(err))
		return nil, false
	}

	h.metrics.CacheHits.Inc()
	return record, true
}

func (h *Handler) cacheRecord(ctx context.Context, key string, record *apod.PageRecord) {
	if h.store == nil {
		return
	}
	if err := h.store.Set(ctx, key, record); err != nil {
		h.logger.Warn("cache store failed", logger.String("key", key), logger.Error(err))
	}
}

// validateFields rejects requests carrying parameters outside the
// whitelist.
func (h *Handler) validateFields(c *gin.Context) bool {
	for field := range c.Request.URL.Query() {
		if !allowedFields[field] {
			h.abort(c, http.StatusBadRequest, "Bad Request: incorrect field passed.")
			return false
		}
	}
	return true
}

// abortForError maps a pipeline error to its HTTP status and message.
func (h *Handler) abortForError(c *gin.Context, err error, input string) {
	var (
		invalidDate *apod.InvalidDateError
		dateRange   *apod.DateRangeError
		countErr    *apod.CountError
	)

	switch {
	case errors.As(err, &invalidDate), errors.As(err, &dateRange), errors.As(err, &countErr):
		h.abort(c, http.StatusBadRequest, "Bad Request: "+err.Error())
	case errors.Is(err, apod.ErrNoPage):
		h.abort(c, http.StatusNotFound, "No data available for date: "+input)
	default:
		h.logger.Error("request failed",
			logger.String("input", input),
			logger.Error(err))
		h.abort(c, http.StatusInternalServerError, "Internal Service Error")
	}
}

func (h *Handler) abort(c *gin.Context, code int, msg string) {
	c.AbortWithStatusJSON(code, errorBody{
		Code:           code,
		Msg:            msg,
		ServiceVersion: ServiceVersion,
	})
}

func (h *Handler) observeParseError(err error) {
	var schemaErr *apod.SchemaError
	switch {
	case errors.As(err, &schemaErr):
		h.metrics.ParseFailures.WithLabelValues(schemaErr.Field).Inc()
	case errors.Is(err, apod.ErrNoPage):
		h.metrics.PagesFetched.WithLabelValues("missing").Inc()
	default:
		h.metrics.PagesFetched.WithLabelValues("error").Inc()
	}
}
