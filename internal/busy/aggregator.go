// Package busy aggregates every interval during which a host is
// unavailable: confirmed bookings from the store plus busy blocks
// reported by a connected external calendar.
package busy

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"slotwise/internal/models"
)

// Store is the subset of the repository the aggregator reads.
type Store interface {
	GetHost(ctx context.Context, id int64) (*models.Host, error)
	ListConfirmedInRange(ctx context.Context, hostID int64, from, to time.Time) ([]models.Booking, error)
}

// CalendarSource fetches busy blocks from an external calendar.
type CalendarSource interface {
	GetBusy(ctx context.Context, account string, from, to time.Time) ([]models.Interval, error)
}

// Aggregator collects and merges busy intervals.
type Aggregator struct {
	store    Store
	calendar CalendarSource
	logger   *zerolog.Logger

	redis           *redis.Client
	cacheTTL        time.Duration
	providerTimeout time.Duration
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithRedisCache enables read-through caching of external calendar
// fetches. Calendar busy data goes stale fast, so keep the TTL short.
func WithRedisCache(client *redis.Client, ttl time.Duration) Option {
	return func(a *Aggregator) {
		a.redis = client
		a.cacheTTL = ttl
	}
}

// WithProviderTimeout bounds how long a calendar fetch may take before
// the aggregator degrades to internal bookings only.
func WithProviderTimeout(d time.Duration) Option {
	return func(a *Aggregator) {
		a.providerTimeout = d
	}
}

// NewAggregator creates an aggregator. calendar may be nil when no
// external calendar integration is configured.
func NewAggregator(store Store, calendar CalendarSource, logger *zerolog.Logger, opts ...Option) *Aggregator {
	a := &Aggregator{
		store:           store,
		calendar:        calendar,
		logger:          logger,
		providerTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Collect returns the merged, sorted, non-overlapping busy intervals
// for hostID within [from, to). An external calendar failure degrades
// gracefully: the error is logged and only internally known bookings
// are returned. Pure read, safe to call repeatedly.
func (a *Aggregator) Collect(ctx context.Context, hostID int64, from, to time.Time) ([]models.Interval, error) {
	return a.CollectExcluding(ctx, hostID, from, to, "")
}

// CollectExcluding is Collect with one booking's own interval left
// out, so a reschedule is not blocked by the interval it is vacating.
func (a *Aggregator) CollectExcluding(ctx context.Context, hostID int64, from, to time.Time, excludeBookingID string) ([]models.Interval, error) {
	bookings, err := a.store.ListConfirmedInRange(ctx, hostID, from, to)
	if err != nil {
		return nil, fmt.Errorf("collect busy: %w", err)
	}

	intervals := make([]models.Interval, 0, len(bookings))
	for _, b := range bookings {
		if excludeBookingID != "" && b.ID == excludeBookingID {
			continue
		}
		intervals = append(intervals, b.Interval())
	}

	if external := a.externalBusy(ctx, hostID, from, to); len(external) > 0 {
		intervals = append(intervals, external...)
	}

	return models.MergeIntervals(intervals), nil
}

// externalBusy fetches calendar busy blocks. It never returns an
// error: availability computation must not depend on the provider.
func (a *Aggregator) externalBusy(ctx context.Context, hostID int64, from, to time.Time) []models.Interval {
	if a.calendar == nil {
		return nil
	}

	host, err := a.store.GetHost(ctx, hostID)
	if err != nil || !host.CalendarConnected || host.CalendarAccount == "" {
		return nil
	}

	cacheKey := fmt.Sprintf("busy:%d:%d:%d", hostID, from.Unix(), to.Unix())
	if cached, ok := a.readCache(ctx, cacheKey); ok {
		return cached
	}

	fetchCtx, cancel := context.WithTimeout(ctx, a.providerTimeout)
	defer cancel()

	blocks, err := a.calendar.GetBusy(fetchCtx, host.CalendarAccount, from, to)
	if err != nil {
		a.logger.Warn().Err(err).
			Int64("host_id", hostID).
			Msg("external calendar fetch failed, using internal bookings only")
		return nil
	}

	a.writeCache(ctx, cacheKey, blocks)
	return blocks
}

func (a *Aggregator) readCache(ctx context.Context, key string) ([]models.Interval, bool) {
	if a.redis == nil || a.cacheTTL <= 0 {
		return nil, false
	}
	val, err := a.redis.Get(ctx, key).Result()
	if err != nil {
		return nil, false
	}
	var out []models.Interval
	if err := json.Unmarshal([]byte(val), &out); err != nil {
		return nil, false
	}
	return out, true
}

func (a *Aggregator) writeCache(ctx context.Context, key string, intervals []models.Interval) {
	if a.redis == nil || a.cacheTTL <= 0 {
		return
	}
	data, err := json.Marshal(intervals)
	if err != nil {
		return
	}
	if err := a.redis.Set(ctx, key, data, a.cacheTTL).Err(); err != nil {
		a.logger.Debug().Err(err).Msg("busy interval cache write failed")
	}
}
