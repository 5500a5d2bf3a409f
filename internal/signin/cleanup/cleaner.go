package cleanup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/vietddude/authguard/internal/infra/storage"
	"github.com/vietddude/authguard/internal/signin/metrics"
)

// Stage names, also used as metric labels.
const (
	StageCorrelated = "correlated"
	StageConnection = "connection"
	StagePreventive = "preventive"
)

// Patterns selects the persisted keys each stage may delete.
type Patterns struct {
	// ConnectionPrefixes match every key owned by the wallet connection layer (case-insensitive)
	ConnectionPrefixes []string `yaml:"connection_prefixes"`
	// PreventivePatterns match keys known to go stale (case-insensitive substring)
	PreventivePatterns []string `yaml:"preventive_patterns"`
}

// DefaultPatterns returns the WalletConnect v2 / wagmi key layout.
func DefaultPatterns() Patterns {
	return Patterns{
		ConnectionPrefixes: []string{
			"wc@2:",
			"wagmi.",
			"walletconnect",
			"wcm_",
			"@w3m/",
			"w3m_",
		},
		PreventivePatterns: []string{
			"//session",
			"//pairing",
			"//expirer",
			"//subscription",
			"//messages",
		},
	}
}

// Cleaner deletes persisted wallet data. Every stage runs under the shared Mutex.
type Cleaner struct {
	store    storage.KVStore
	mu       *Mutex
	patterns Patterns
	log      *slog.Logger
}

// NewCleaner creates a cleaner; empty patterns fall back to DefaultPatterns.
func NewCleaner(store storage.KVStore, mu *Mutex, patterns Patterns, log *slog.Logger) *Cleaner {
	def := DefaultPatterns()
	if len(patterns.ConnectionPrefixes) == 0 {
		patterns.ConnectionPrefixes = def.ConnectionPrefixes
	}
	if len(patterns.PreventivePatterns) == 0 {
		patterns.PreventivePatterns = def.PreventivePatterns
	}
	if mu == nil {
		mu = NewMutex(log)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Cleaner{
		store:    store,
		mu:       mu,
		patterns: patterns,
		log:      log.With("component", "cleaner"),
	}
}

// PurgeCorrelated deletes keys whose name contains correlationID.
func (c *Cleaner) PurgeCorrelated(ctx context.Context, correlationID string) (int, error) {
	if correlationID == "" {
		return 0, errors.New("empty correlation id")
	}
	id := strings.ToLower(correlationID)
	return c.bulk(ctx, StageCorrelated, func(key string) bool {
		return strings.Contains(strings.ToLower(key), id)
	})
}

// PurgeConnection deletes every connection-related key in one bulk delete.
func (c *Cleaner) PurgeConnection(ctx context.Context) (int, error) {
	return c.bulk(ctx, StageConnection, func(key string) bool {
		return hasAnyPrefix(strings.ToLower(key), c.patterns.ConnectionPrefixes)
	})
}

// Preventive deletes only keys matching known-problematic patterns, one key at a
// time, so that a single bad key does not abort the whole pass.
func (c *Cleaner) Preventive(ctx context.Context) (int, error) {
	deleted := 0
	err := c.mu.Run(ctx, func(ctx context.Context) error {
		keys, err := c.store.ListKeys(ctx)
		if err != nil {
			return fmt.Errorf("failed to list keys: %w", err)
		}

		var errs []error
		for _, key := range keys {
			if !containsAny(strings.ToLower(key), c.patterns.PreventivePatterns) {
				continue
			}
			if err := c.store.Delete(ctx, key); err != nil {
				c.log.Warn("Preventive delete failed", "key", key, "error", err)
				errs = append(errs, err)
				continue
			}
			deleted++
		}
		return errors.Join(errs...)
	})
	c.record(StagePreventive, deleted, err)
	return deleted, err
}

func (c *Cleaner) bulk(ctx context.Context, stage string, match func(string) bool) (int, error) {
	deleted := 0
	err := c.mu.Run(ctx, func(ctx context.Context) error {
		keys, err := c.store.ListKeys(ctx)
		if err != nil {
			return fmt.Errorf("failed to list keys: %w", err)
		}

		var victims []string
		for _, key := range keys {
			if match(key) {
				victims = append(victims, key)
			}
		}
		if len(victims) == 0 {
			return nil
		}
		if err := c.store.DeleteMany(ctx, victims); err != nil {
			return fmt.Errorf("failed to delete %d keys: %w", len(victims), err)
		}
		deleted = len(victims)
		return nil
	})
	c.record(stage, deleted, err)
	return deleted, err
}

func (c *Cleaner) record(stage string, deleted int, err error) {
	if err != nil {
		metrics.CleanupRuns.WithLabelValues(stage, "error").Inc()
		c.log.Warn("Cleanup stage failed", "stage", stage, "error", err)
		return
	}
	metrics.CleanupRuns.WithLabelValues(stage, "ok").Inc()
	c.log.Info("Cleanup stage completed", "stage", stage, "deleted", deleted)
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, strings.ToLower(p)) {
			return true
		}
	}
	return false
}

func containsAny(s string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(s, strings.ToLower(p)) {
			return true
		}
	}
	return false
}
