package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openbootdotdev/openboot.dev/internal/cache"
)

func TestInit(t *testing.T) {
	m := Init(true)
	assert.NotNil(t, m)

	// Type assert to concrete Metrics to access fields
	metrics, ok := m.(*Metrics)
	assert.True(t, ok, "Init(true) should return *Metrics")
	assert.NotNil(t, metrics.CLIAuthCodesTotal)
	assert.NotNil(t, metrics.TokensIssuedTotal)
	assert.NotNil(t, metrics.OAuthLoginsTotal)
	assert.NotNil(t, metrics.HTTPRequestsTotal)
}

func TestInitNoop(t *testing.T) {
	m := Init(false)
	assert.NotNil(t, m)

	_, ok := m.(*NoopMetrics)
	assert.True(t, ok, "Init(false) should return *NoopMetrics")
}

func TestInitReturnsSameInstance(t *testing.T) {
	m1 := Init(true)
	m2 := Init(true)
	assert.Same(t, m1, m2, "Prometheus metrics register once")
}

func TestRecordersDoNotPanic(t *testing.T) {
	for name, m := range map[string]Recorder{
		"prometheus": Init(true),
		"noop":       NewNoopMetrics(),
	} {
		t.Run(name, func(t *testing.T) {
			m.RecordCLIAuthCodeStarted(true)
			m.RecordCLIAuthCodeStarted(false)
			m.RecordCLIAuthCodeApproved()
			m.RecordCLIAuthPoll("pending")
			m.RecordCLIAuthPoll("approved")
			m.RecordCLIAuthPoll("expired")
			m.RecordTokenIssued()
			m.RecordTokenRevoked("user_request")
			m.RecordOAuthLogin("github", true)
			m.RecordOAuthLogin("google", false)
			m.RecordLogout()
			m.RecordInstallServed("public")
			m.RecordInstallServed("private")
			m.RecordConfigWrite("create", true)
			m.RecordRegistrySearch("homebrew", "success")
			m.SetActiveTokensCount(7)
			m.SetActiveCLIAuthCodesCount(3, 2)
			m.RecordDatabaseQueryError("count_api_tokens")
		})
	}
}

func TestHTTPMetricsMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(HTTPMetricsMiddleware(Init(true)))
	router.GET("/api/auth/cli/poll", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "pending"})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/auth/cli/poll?code_id=abc", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHTTPMetricsMiddlewareNoop(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(HTTPMetricsMiddleware(NewNoopMetrics()))
	router.GET("/health", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestNormalizePath(t *testing.T) {
	assert.Equal(t, "/:username/:slug/install", normalizePath("/:username/:slug/install"))
	assert.Equal(t, "unknown", normalizePath(""))
}

// fakeCounterStore counts how often the updater actually hits the database.
type fakeCounterStore struct {
	tokens       int64
	total        int64
	pending      int64
	calls        int
	failTokens   bool
	failAuthCode bool
}

func (f *fakeCounterStore) CountActiveAPITokens(now time.Time) (int64, error) {
	f.calls++
	if f.failTokens {
		return 0, errors.New("db down")
	}
	return f.tokens, nil
}

func (f *fakeCounterStore) CountLiveCLIAuthCodes(now time.Time) (int64, int64, error) {
	f.calls++
	if f.failAuthCode {
		return 0, 0, errors.New("db down")
	}
	return f.total, f.pending, nil
}

// fakeRecorder captures gauge updates so the test can observe them.
type fakeRecorder struct {
	NoopMetrics
	tokens   int64
	total    int64
	pending  int64
	dbErrors []string
}

func (f *fakeRecorder) SetActiveTokensCount(count int64) { f.tokens = count }
func (f *fakeRecorder) SetActiveCLIAuthCodesCount(total, pending int64) {
	f.total, f.pending = total, pending
}
func (f *fakeRecorder) RecordDatabaseQueryError(operation string) {
	f.dbErrors = append(f.dbErrors, operation)
}

func TestUpdaterSetsGauges(t *testing.T) {
	store := &fakeCounterStore{tokens: 5, total: 3, pending: 2}
	rec := &fakeRecorder{}
	u := NewUpdater(store, rec, nil, time.Minute)

	u.Update(context.Background())

	assert.Equal(t, int64(5), rec.tokens)
	assert.Equal(t, int64(3), rec.total)
	assert.Equal(t, int64(2), rec.pending)
	assert.Empty(t, rec.dbErrors)
}

func TestUpdaterUsesCache(t *testing.T) {
	store := &fakeCounterStore{tokens: 5, total: 3, pending: 2}
	rec := &fakeRecorder{}
	u := NewUpdater(store, rec, cache.NewMemoryCache[int64](), time.Minute)

	u.Update(context.Background())
	require.Equal(t, 2, store.calls, "one call per count on a cold cache")

	u.Update(context.Background())
	assert.Equal(t, 2, store.calls, "warm cache avoids the database")
	assert.Equal(t, int64(5), rec.tokens)
}

func TestUpdaterRecordsDatabaseErrors(t *testing.T) {
	store := &fakeCounterStore{failTokens: true, failAuthCode: true}
	rec := &fakeRecorder{}
	u := NewUpdater(store, rec, nil, time.Minute)

	u.Update(context.Background())

	assert.Contains(t, rec.dbErrors, "count_api_tokens")
	assert.Contains(t, rec.dbErrors, "count_cli_auth_codes")
}
