package api_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/apod-api/internal/api"
	"github.com/jonesrussell/apod-api/internal/apod"
	"github.com/jonesrussell/apod-api/internal/cache"
	"github.com/jonesrussell/apod-api/internal/logger"
	"github.com/jonesrussell/apod-api/internal/metrics"
)

const testBaseURL = "https://apod.nasa.gov/apod/"

// pageFor builds a minimal but structurally complete page for a title.
func pageFor(title string) []byte {
	return fmt.Appendf(nil, `<html>
<head><title> APOD: 2017 March 22 - %s  </title></head>
<body>
<center>
<p><a href="astropix.html">Astronomy Picture of the Day</a></p>
<p>
2017 March 22
<br>
<a href="image/1703/pic_2048.jpg">
<img src="image/1703/pic_1024.jpg"></a>
</p>
</center>
<center>
<b> %s </b> <br>
<b> Image Credit &amp; <a href="lib/about_apod.html#srapply">Copyright</a>: </b>
<a href="http://example.com/">Robert Gendler</a>
</center> <p>
<b> Explanation: </b>
A structurally complete page for handler tests.
</p>
<p> <b> Tomorrow's picture: </b> open space
</p>
</body>
</html>`, title, title)
}

// fakeFetcher serves canned pages by date and counts fetches.
type fakeFetcher struct {
	pages   map[string][]byte
	fetches int
}

func (f *fakeFetcher) Fetch(_ context.Context, date time.Time) ([]byte, error) {
	f.fetches++
	page, ok := f.pages[date.Format(apod.DateFormat)]
	if !ok {
		return nil, apod.ErrNoPage
	}
	return page, nil
}

func (f *fakeFetcher) FetchLatest(_ context.Context) ([]byte, error) {
	f.fetches++
	page, ok := f.pages["latest"]
	if !ok {
		return nil, apod.ErrNoPage
	}
	return page, nil
}

func newTestRouter(t *testing.T, fetcher apod.PageFetcher, store *cache.Store) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := logger.Nop()
	service := apod.NewService(fetcher, apod.NewThumbnailResolver(nil), testBaseURL, log)
	provider := metrics.NewProvider()
	handler := api.NewHandler(service, store, nil, provider, log)

	router := gin.New()
	api.SetupRoutes(router, api.RouteOptions{
		Handler:     handler,
		Metrics:     provider,
		ServiceName: "apod-api",
	})
	return router
}

func doRequest(router *gin.Engine, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	router.ServeHTTP(w, req)
	return w
}

func TestApod_SingleDate(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{pages: map[string][]byte{
		"2017-03-22": pageFor("Central Cygnus Skyscape"),
	}}
	router := newTestRouter(t, fetcher, nil)

	w := doRequest(router, "/v1/apod?date=2017-03-22")
	require.Equal(t, http.StatusOK, w.Code)

	var record apod.PageRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &record))

	assert.Equal(t, "2017-03-22", record.Date)
	assert.Equal(t, "Central Cygnus Skyscape", record.Title)
	assert.Equal(t, "Robert Gendler", record.Copyright)
	assert.Equal(t, apod.MediaTypeImage, record.MediaType)
	assert.Equal(t, testBaseURL+"image/1703/pic_1024.jpg", record.URL)
	assert.Equal(t, testBaseURL+"image/1703/pic_2048.jpg", record.HDURL)
	assert.Equal(t, api.ServiceVersion, record.ServiceVersion)
	assert.Nil(t, record.Concepts)
}

func TestApod_MissingDateIs404(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, &fakeFetcher{pages: map[string][]byte{}}, nil)

	w := doRequest(router, "/v1/apod?date=2017-03-23")
	require.Equal(t, http.StatusNotFound, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "No data available for date: 2017-03-23", body["msg"])
	assert.Equal(t, api.ServiceVersion, body["service_version"])
	assert.EqualValues(t, http.StatusNotFound, body["code"])
}

func TestApod_UnknownFieldRejected(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, &fakeFetcher{}, nil)

	w := doRequest(router, "/v1/apod?date=2017-03-22&bogus=1")
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "incorrect field passed")
}

func TestApod_InvalidDate(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, &fakeFetcher{}, nil)

	w := doRequest(router, "/v1/apod?date=not-a-date")
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Bad Request")
}

func TestApod_DateBeforeEpoch(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, &fakeFetcher{}, nil)

	w := doRequest(router, "/v1/apod?date=1995-06-15")
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Jun 16, 1995")
}

func TestApod_ConflictingParameters(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, &fakeFetcher{}, nil)

	tests := []struct {
		name   string
		target string
	}{
		{"count with date", "/v1/apod?count=5&date=2017-03-22"},
		{"count with range", "/v1/apod?count=5&start_date=2017-03-20"},
		{"date with range", "/v1/apod?date=2017-03-22&start_date=2017-03-20"},
		{"end without start", "/v1/apod?end_date=2017-03-22"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			w := doRequest(router, tt.target)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestApod_DateRange(t *testing.T) {
	t.Parallel()

	// 2017-03-21 is deliberately missing and must be skipped, not fail
	// the whole range.
	fetcher := &fakeFetcher{pages: map[string][]byte{
		"2017-03-20": pageFor("Day One"),
		"2017-03-22": pageFor("Day Three"),
	}}
	router := newTestRouter(t, fetcher, nil)

	w := doRequest(router, "/v1/apod?start_date=2017-03-20&end_date=2017-03-22")
	require.Equal(t, http.StatusOK, w.Code)

	var records []apod.PageRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &records))
	require.Len(t, records, 2)
	assert.Equal(t, "Day One", records[0].Title)
	assert.Equal(t, "Day Three", records[1].Title)
}

func TestApod_RangeStartAfterEnd(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, &fakeFetcher{}, nil)

	w := doRequest(router, "/v1/apod?start_date=2017-03-22&end_date=2017-03-20")
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "start_date cannot be after end_date")
}

func TestApod_RandomCountBounds(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, &fakeFetcher{}, nil)

	for _, target := range []string{
		"/v1/apod?count=0",
		"/v1/apod?count=101",
		"/v1/apod?count=abc",
	} {
		w := doRequest(router, target)
		assert.Equal(t, http.StatusBadRequest, w.Code, target)
	}
}

func TestApod_ConceptTagsDisabled(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{pages: map[string][]byte{
		"2017-03-22": pageFor("Central Cygnus Skyscape"),
	}}
	router := newTestRouter(t, fetcher, nil)

	w := doRequest(router, "/v1/apod?date=2017-03-22&concept_tags=true")
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "concept_tags functionality turned off in current service", body["concepts"])
}

func TestApod_CachedSecondRequest(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	store, err := cache.New(context.Background(), cache.Config{
		Enabled: true,
		Addr:    mr.Addr(),
		TTL:     time.Hour,
	}, logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	fetcher := &fakeFetcher{pages: map[string][]byte{
		"2017-03-22": pageFor("Central Cygnus Skyscape"),
	}}
	router := newTestRouter(t, fetcher, store)

	first := doRequest(router, "/v1/apod?date=2017-03-22")
	require.Equal(t, http.StatusOK, first.Code)
	second := doRequest(router, "/v1/apod?date=2017-03-22")
	require.Equal(t, http.StatusOK, second.Code)

	assert.Equal(t, 1, fetcher.fetches)
	assert.JSONEq(t, first.Body.String(), second.Body.String())
}

func TestApod_HDFlagAcceptedAndIgnored(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{pages: map[string][]byte{
		"2017-03-22": pageFor("Central Cygnus Skyscape"),
	}}
	router := newTestRouter(t, fetcher, nil)

	w := doRequest(router, "/v1/apod?date=2017-03-22&hd=true")
	require.Equal(t, http.StatusOK, w.Code)

	var record apod.PageRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &record))
	assert.NotEmpty(t, record.HDURL)
}

func TestHealthEndpoint(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, &fakeFetcher{}, nil)

	w := doRequest(router, "/health")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{pages: map[string][]byte{
		"2017-03-22": pageFor("Central Cygnus Skyscape"),
	}}
	router := newTestRouter(t, fetcher, nil)

	doRequest(router, "/v1/apod?date=2017-03-22")

	w := doRequest(router, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "apod_requests_total")
}

func TestUnknownRoute(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, &fakeFetcher{}, nil)

	w := doRequest(router, "/v2/nope")
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Not Found")
}
