package concepts_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/apod-api/internal/concepts"
)

func TestTagger_Enabled(t *testing.T) {
	t.Parallel()

	assert.False(t, concepts.New(concepts.Config{}, nil).Enabled())
	assert.True(t, concepts.New(concepts.Config{APIKey: "k"}, nil).Enabled())
}

func TestTagger_Concepts(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "secret", r.URL.Query().Get("apikey"))
		assert.Equal(t, "json", r.URL.Query().Get("outputMode"))
		assert.NotEmpty(t, r.URL.Query().Get("text"))

		fmt.Fprint(w, `{"concepts":[{"text":"Nebula"},{"text":"Milky Way"},{"text":"Star formation"}]}`)
	}))
	defer server.Close()

	tagger := concepts.New(concepts.Config{APIURL: server.URL, APIKey: "secret"}, server.Client())

	tags, err := tagger.Concepts(context.Background(), "glowing hydrogen gas near the Great Rift")
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"0": "Nebula",
		"1": "Milky Way",
		"2": "Star formation",
	}, tags)
}

func TestTagger_UpstreamFailure(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	tagger := concepts.New(concepts.Config{APIURL: server.URL, APIKey: "secret"}, server.Client())

	_, err := tagger.Concepts(context.Background(), "text")
	assert.Error(t, err)
}
