package metrics

import (
	"context"
	"time"

	"github.com/openbootdotdev/openboot.dev/internal/cache"
)

const (
	activeTokensKey     = "metrics:api_tokens:active"
	activeAuthCodesKey  = "metrics:cli_auth_codes:active"
	pendingAuthCodesKey = "metrics:cli_auth_codes:pending"
)

// counterStore defines the database operations needed by the Updater.
// This interface allows for easier testing without requiring a full store.Store.
type counterStore interface {
	CountActiveAPITokens(now time.Time) (int64, error)
	CountLiveCLIAuthCodes(now time.Time) (total, pending int64, err error)
}

// Updater refreshes the gauge metrics from database counts. Counts are cached
// so frequent scrapes do not translate into frequent COUNT queries; multiple
// instances can share the cache through Redis.
type Updater struct {
	store    counterStore
	recorder Recorder
	cache    cache.Cache[int64]
	ttl      time.Duration
}

// NewUpdater creates a gauge updater. A nil cache falls back to an in-process one.
func NewUpdater(store counterStore, recorder Recorder, c cache.Cache[int64], ttl time.Duration) *Updater {
	if c == nil {
		c = cache.NewMemoryCache[int64]()
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Updater{store: store, recorder: recorder, cache: c, ttl: ttl}
}

// Update refreshes all gauges once. Database errors are recorded and the
// affected gauge keeps its previous value.
func (u *Updater) Update(ctx context.Context) {
	now := time.Now()

	tokens, err := cache.GetWithFetch(ctx, u.cache, activeTokensKey, u.ttl,
		func(ctx context.Context, _ string) (int64, error) {
			return u.store.CountActiveAPITokens(now)
		})
	if err != nil {
		u.recorder.RecordDatabaseQueryError("count_api_tokens")
	} else {
		u.recorder.SetActiveTokensCount(tokens)
	}

	total, pending, err := u.liveAuthCodeCounts(ctx, now)
	if err != nil {
		u.recorder.RecordDatabaseQueryError("count_cli_auth_codes")
		return
	}
	u.recorder.SetActiveCLIAuthCodesCount(total, pending)
}

// liveAuthCodeCounts reads both code gauges from the cache, falling back to a
// single COUNT pair on miss. The two keys are written together so they always
// describe the same instant.
func (u *Updater) liveAuthCodeCounts(ctx context.Context, now time.Time) (int64, int64, error) {
	// Cache failures count as misses; the store is the source of truth.
	if cached, err := u.cache.MGet(ctx, []string{activeAuthCodesKey, pendingAuthCodesKey}); err == nil {
		total, okTotal := cached[activeAuthCodesKey]
		pending, okPending := cached[pendingAuthCodesKey]
		if okTotal && okPending {
			return total, pending, nil
		}
	}

	total, pending, err := u.store.CountLiveCLIAuthCodes(now)
	if err != nil {
		return 0, 0, err
	}

	_ = u.cache.MSet(ctx, map[string]int64{
		activeAuthCodesKey:  total,
		pendingAuthCodesKey: pending,
	}, u.ttl)
	return total, pending, nil
}

// Run updates the gauges on a fixed interval until the context is cancelled.
func (u *Updater) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	u.Update(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			u.Update(ctx)
		}
	}
}
