// Package registry proxies package catalog searches (Homebrew, npm) with
// caching, so the package picker does not hammer the upstream registries.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/openbootdotdev/openboot.dev/internal/cache"
	"github.com/openbootdotdev/openboot.dev/internal/retry"
)

const (
	homebrewFormulaURL = "https://formulae.brew.sh/api/formula.json"
	homebrewCaskURL    = "https://formulae.brew.sh/api/cask.json"
	npmSearchURL       = "https://registry.npmjs.org/-/v1/search"

	// MinQueryLength keeps one-character queries from scanning the whole
	// Homebrew index.
	MinQueryLength = 2
	maxResults     = 30
)

var ErrQueryTooShort = fmt.Errorf("query must be at least %d characters", MinQueryLength)

// SearchResult is one catalog hit, shaped for the package picker.
type SearchResult struct {
	Name string `json:"name"`
	Desc string `json:"desc"`
	Type string `json:"type"` // formula, cask or npm
}

type homebrewFormula struct {
	Name string `json:"name"`
	Desc string `json:"desc"`
}

type homebrewCask struct {
	Token string   `json:"token"`
	Name  []string `json:"name"`
	Desc  string   `json:"desc"`
}

type HomebrewIndex struct {
	Formulae []homebrewFormula `json:"formulae"`
	Casks    []homebrewCask    `json:"casks"`
}

type npmResponse struct {
	Objects []struct {
		Package struct {
			Name        string `json:"name"`
			Description string `json:"description"`
		} `json:"package"`
	} `json:"objects"`
}

// Service fetches and searches the upstream catalogs. The Homebrew index is
// cached whole (it is one big JSON document either way); npm searches are
// cached per query. Both caches are injected so deployments can share them
// through Redis.
type Service struct {
	client        *retry.Client
	homebrewCache cache.Cache[HomebrewIndex]
	npmCache      cache.Cache[[]SearchResult]
	homebrewTTL   time.Duration
	npmTTL        time.Duration

	formulaURL   string
	caskURL      string
	npmSearchURL string
}

type Options struct {
	Client        *retry.Client
	HomebrewCache cache.Cache[HomebrewIndex]
	NpmCache      cache.Cache[[]SearchResult]
	HomebrewTTL   time.Duration
	NpmTTL        time.Duration

	// URL overrides for tests; the real registries otherwise.
	FormulaURL   string
	CaskURL      string
	NpmSearchURL string
}

func NewService(opts Options) *Service {
	if opts.Client == nil {
		opts.Client = retry.NewClient()
	}
	if opts.HomebrewCache == nil {
		opts.HomebrewCache = cache.NewMemoryCache[HomebrewIndex]()
	}
	if opts.NpmCache == nil {
		opts.NpmCache = cache.NewMemoryCache[[]SearchResult]()
	}
	if opts.HomebrewTTL <= 0 {
		opts.HomebrewTTL = time.Hour
	}
	if opts.NpmTTL <= 0 {
		opts.NpmTTL = 5 * time.Minute
	}
	if opts.FormulaURL == "" {
		opts.FormulaURL = homebrewFormulaURL
	}
	if opts.CaskURL == "" {
		opts.CaskURL = homebrewCaskURL
	}
	if opts.NpmSearchURL == "" {
		opts.NpmSearchURL = npmSearchURL
	}
	return &Service{
		client:        opts.Client,
		homebrewCache: opts.HomebrewCache,
		npmCache:      opts.NpmCache,
		homebrewTTL:   opts.HomebrewTTL,
		npmTTL:        opts.NpmTTL,
		formulaURL:    opts.FormulaURL,
		caskURL:       opts.CaskURL,
		npmSearchURL:  opts.NpmSearchURL,
	}
}

// NewNpmCache builds the per-query cache with the value type the service
// expects, so callers can construct a shared (Redis) instance.
func NewNpmCache() cache.Cache[[]SearchResult] {
	return cache.NewMemoryCache[[]SearchResult]()
}

// SearchHomebrew scans the cached formula and cask indexes for substring
// matches on name or description, then ranks exact matches first, prefix
// matches second, shorter names before longer.
func (s *Service) SearchHomebrew(ctx context.Context, query string) ([]SearchResult, error) {
	query = normalizeQuery(query)
	if len(query) < MinQueryLength {
		return nil, ErrQueryTooShort
	}

	index, err := cache.GetWithFetch(ctx, s.homebrewCache, "homebrew:index", s.homebrewTTL, s.fetchHomebrewIndex)
	if err != nil {
		return nil, err
	}

	results := make([]SearchResult, 0, maxResults)
	for _, f := range index.Formulae {
		if len(results) >= maxResults {
			break
		}
		if strings.Contains(strings.ToLower(f.Name), query) ||
			strings.Contains(strings.ToLower(f.Desc), query) {
			results = append(results, SearchResult{Name: f.Name, Desc: f.Desc, Type: "formula"})
		}
	}
	for _, c := range index.Casks {
		if len(results) >= maxResults+20 {
			break
		}
		if caskMatches(c, query) {
			desc := c.Desc
			if desc == "" && len(c.Name) > 0 {
				desc = c.Name[0]
			}
			results = append(results, SearchResult{Name: c.Token, Desc: desc, Type: "cask"})
		}
	}

	rankResults(results, query)
	if len(results) > maxResults {
		results = results[:maxResults]
	}
	return results, nil
}

// SearchNpm proxies the npm registry search, caching per normalized query.
func (s *Service) SearchNpm(ctx context.Context, query string) ([]SearchResult, error) {
	query = normalizeQuery(query)
	if len(query) < MinQueryLength {
		return nil, ErrQueryTooShort
	}

	return cache.GetWithFetch(ctx, s.npmCache, "npm:"+query, s.npmTTL,
		func(ctx context.Context, _ string) ([]SearchResult, error) {
			return s.fetchNpmSearch(ctx, query)
		})
}

func (s *Service) fetchHomebrewIndex(ctx context.Context, _ string) (HomebrewIndex, error) {
	var index HomebrewIndex

	if err := s.fetchJSON(ctx, s.formulaURL, &index.Formulae); err != nil {
		return index, fmt.Errorf("failed to fetch formulae: %w", err)
	}
	if err := s.fetchJSON(ctx, s.caskURL, &index.Casks); err != nil {
		return index, fmt.Errorf("failed to fetch casks: %w", err)
	}
	return index, nil
}

func (s *Service) fetchNpmSearch(ctx context.Context, query string) ([]SearchResult, error) {
	searchURL := fmt.Sprintf("%s?text=%s&size=%d", s.npmSearchURL, url.QueryEscape(query), maxResults)

	var resp npmResponse
	if err := s.fetchJSON(ctx, searchURL, &resp); err != nil {
		return nil, fmt.Errorf("failed to search npm: %w", err)
	}

	results := make([]SearchResult, 0, len(resp.Objects))
	for _, obj := range resp.Objects {
		results = append(results, SearchResult{
			Name: obj.Package.Name,
			Desc: obj.Package.Description,
			Type: "npm",
		})
	}
	return results, nil
}

func (s *Service) fetchJSON(ctx context.Context, rawURL string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("upstream returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return errors.New("upstream returned invalid JSON")
	}
	return nil
}

func caskMatches(c homebrewCask, query string) bool {
	if strings.Contains(strings.ToLower(c.Token), query) ||
		strings.Contains(strings.ToLower(c.Desc), query) {
		return true
	}
	for _, n := range c.Name {
		if strings.Contains(strings.ToLower(n), query) {
			return true
		}
	}
	return false
}

// rankResults sorts exact name matches first, then prefix matches, then by
// name length so the tightest match surfaces on top.
func rankResults(results []SearchResult, query string) {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := strings.ToLower(results[i].Name), strings.ToLower(results[j].Name)

		aExact, bExact := a == query, b == query
		if aExact != bExact {
			return aExact
		}

		aStarts, bStarts := strings.HasPrefix(a, query), strings.HasPrefix(b, query)
		if aStarts != bStarts {
			return aStarts
		}

		return len(a) < len(b)
	})
}

func normalizeQuery(query string) string {
	return strings.ToLower(strings.TrimSpace(query))
}
