package gameapi

import (
	"context"
	"fmt"
	"time"

	"guildwatch/cache"

	log "github.com/sirupsen/logrus"
)

const (
	// DefaultTTL is how long API lookups stay fresh
	DefaultTTL = 2 * time.Minute

	// SweepInterval is how often the shared cache sweeps expired entries
	SweepInterval = 24 * time.Hour

	defaultMaxRetries = 3
	defaultBaseDelay  = 1 * time.Second
)

// RemoteClient is the remote operation surface wrapped by CachedClient
type RemoteClient interface {
	FetchPlayer(ctx context.Context, allyCode int64) (*Player, error)
	FetchGuildRoster(ctx context.Context, guildID string, includeActivity bool) (*GuildRoster, error)
}

// CachedClient wraps a RemoteClient with the shared TTL cache and
// exponential-backoff retry on transient failures. One instance is
// constructed at process start and injected everywhere API lookups happen.
type CachedClient struct {
	client     RemoteClient
	cache      *cache.Cache[string, any]
	ttl        time.Duration
	maxRetries int
	baseDelay  time.Duration
}

// NewCachedClient creates a resilient client over the shared cache
func NewCachedClient(client RemoteClient, c *cache.Cache[string, any], ttl time.Duration) *CachedClient {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &CachedClient{
		client:     client,
		cache:      c,
		ttl:        ttl,
		maxRetries: defaultMaxRetries,
		baseDelay:  defaultBaseDelay,
	}
}

// FetchPlayer returns the cached player profile or fetches it with retries
func (c *CachedClient) FetchPlayer(ctx context.Context, allyCode int64) (*Player, error) {
	key := fmt.Sprintf("player:%d", allyCode)

	v, err := c.cache.GetOrSet(key, func() (any, error) {
		var player *Player
		err := c.withRetry(ctx, key, func() error {
			var fetchErr error
			player, fetchErr = c.client.FetchPlayer(ctx, allyCode)
			return fetchErr
		})
		return player, err
	}, c.ttl)
	if err != nil {
		return nil, err
	}

	return v.(*Player), nil
}

// FetchGuildRoster returns the cached roster or fetches it with retries
func (c *CachedClient) FetchGuildRoster(ctx context.Context, guildID string, includeActivity bool) (*GuildRoster, error) {
	key := fmt.Sprintf("guild:%s:%t", guildID, includeActivity)

	v, err := c.cache.GetOrSet(key, func() (any, error) {
		var roster *GuildRoster
		err := c.withRetry(ctx, key, func() error {
			var fetchErr error
			roster, fetchErr = c.client.FetchGuildRoster(ctx, guildID, includeActivity)
			return fetchErr
		})
		return roster, err
	}, c.ttl)
	if err != nil {
		return nil, err
	}

	return v.(*GuildRoster), nil
}

// withRetry invokes fn up to maxRetries+1 times, backing off exponentially
// between attempts on transient errors. Non-transient errors and retry
// exhaustion propagate unchanged.
func (c *CachedClient) withRetry(ctx context.Context, key string, fn func() error) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}

		if !IsTransient(err) || attempt >= c.maxRetries {
			return err
		}

		delay := c.baseDelay * (1 << attempt)
		log.WithFields(log.Fields{
			"key":     key,
			"attempt": attempt + 1,
			"delay":   delay,
			"error":   err,
		}).Warn("Transient API error, retrying")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}
