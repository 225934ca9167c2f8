package registry

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openbootdotdev/openboot.dev/internal/retry"
)

func newHomebrewFixture(t *testing.T) (*Service, *atomic.Int32) {
	t.Helper()

	var fetches atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/formula.json", func(w http.ResponseWriter, r *http.Request) {
		fetches.Add(1)
		_ = json.NewEncoder(w).Encode([]map[string]string{
			{"name": "jq", "desc": "Lightweight JSON processor"},
			{"name": "jqp", "desc": "TUI playground for jq"},
			{"name": "ripgrep", "desc": "Search tool like grep"},
			{"name": "fd", "desc": "Simple alternative to find, uses jq-style output"},
		})
	})
	mux.HandleFunc("/cask.json", func(w http.ResponseWriter, r *http.Request) {
		fetches.Add(1)
		_ = json.NewEncoder(w).Encode([]map[string]interface{}{
			{"token": "visual-studio-code", "name": []string{"Visual Studio Code"}, "desc": "Code editor"},
			{"token": "jqplay", "name": []string{"jq playground"}, "desc": ""},
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	svc := NewService(Options{
		Client:     retry.NewClient(retry.WithMaxRetries(0)),
		FormulaURL: srv.URL + "/formula.json",
		CaskURL:    srv.URL + "/cask.json",
	})
	return svc, &fetches
}

func TestSearchHomebrew(t *testing.T) {
	svc, _ := newHomebrewFixture(t)

	results, err := svc.SearchHomebrew(context.Background(), "jq")
	require.NoError(t, err)
	require.NotEmpty(t, results)

	// Exact match ranks first, then prefix matches.
	assert.Equal(t, "jq", results[0].Name)
	assert.Equal(t, "formula", results[0].Type)
	assert.Equal(t, "jqp", results[1].Name)

	names := make(map[string]string)
	for _, r := range results {
		names[r.Name] = r.Type
	}
	assert.Equal(t, "cask", names["jqplay"])
	// Description matches are included too.
	assert.Contains(t, names, "fd")
	// Non-matches are not.
	assert.NotContains(t, names, "ripgrep")
}

func TestSearchHomebrewCaskDescFallback(t *testing.T) {
	svc, _ := newHomebrewFixture(t)

	results, err := svc.SearchHomebrew(context.Background(), "jqplay")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "jq playground", results[0].Desc, "empty cask desc falls back to display name")
}

func TestSearchHomebrewUsesCache(t *testing.T) {
	svc, fetches := newHomebrewFixture(t)

	_, err := svc.SearchHomebrew(context.Background(), "jq")
	require.NoError(t, err)
	first := fetches.Load()
	assert.Equal(t, int32(2), first, "one fetch per upstream document")

	_, err = svc.SearchHomebrew(context.Background(), "ripgrep")
	require.NoError(t, err)
	assert.Equal(t, first, fetches.Load(), "second query is served from the cached index")
}

func TestSearchHomebrewQueryTooShort(t *testing.T) {
	svc, _ := newHomebrewFixture(t)

	_, err := svc.SearchHomebrew(context.Background(), "j")
	assert.ErrorIs(t, err, ErrQueryTooShort)

	_, err = svc.SearchHomebrew(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrQueryTooShort)
}

func TestSearchHomebrewUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	svc := NewService(Options{
		Client:     retry.NewClient(retry.WithMaxRetries(0)),
		FormulaURL: srv.URL + "/formula.json",
		CaskURL:    srv.URL + "/cask.json",
	})

	_, err := svc.SearchHomebrew(context.Background(), "jq")
	assert.Error(t, err)
}

func TestSearchNpm(t *testing.T) {
	var fetches atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches.Add(1)
		assert.Equal(t, "prettier", r.URL.Query().Get("text"))
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"objects": []map[string]interface{}{
				{"package": map[string]string{"name": "prettier", "description": "Opinionated formatter"}},
				{"package": map[string]string{"name": "prettier-eslint", "description": ""}},
			},
		})
	}))
	defer srv.Close()

	svc := NewService(Options{
		Client:       retry.NewClient(retry.WithMaxRetries(0)),
		NpmSearchURL: srv.URL,
		NpmTTL:       time.Minute,
	})

	results, err := svc.SearchNpm(context.Background(), "Prettier")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, SearchResult{Name: "prettier", Desc: "Opinionated formatter", Type: "npm"}, results[0])
	assert.Equal(t, "npm", results[1].Type)

	// Same normalized query hits the cache.
	_, err = svc.SearchNpm(context.Background(), "  prettier ")
	require.NoError(t, err)
	assert.Equal(t, int32(1), fetches.Load())
}

func TestSearchNpmQueryTooShort(t *testing.T) {
	svc := NewService(Options{})
	_, err := svc.SearchNpm(context.Background(), "x")
	assert.ErrorIs(t, err, ErrQueryTooShort)
}

func TestRankResults(t *testing.T) {
	results := []SearchResult{
		{Name: "super-jq-tool"},
		{Name: "jqx"},
		{Name: "jq"},
		{Name: "jqlong-name"},
	}
	rankResults(results, "jq")

	assert.Equal(t, "jq", results[0].Name)
	assert.Equal(t, "jqx", results[1].Name)
	assert.Equal(t, "jqlong-name", results[2].Name)
	assert.Equal(t, "super-jq-tool", results[3].Name)
}
