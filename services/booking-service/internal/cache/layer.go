package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/md-rashed-zaman/slotbook/libs/httpx"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/metrics"
)

const (
	keyPrefix  = "slotbook:"
	versionTTL = 24 * time.Hour
)

// Scope is a unit of invalidation. Entries record the version of every scope they were
// built from; bumping a scope's version orphans all of them at once.
type Scope struct {
	name  string
	entry string
}

// SlotScope covers the single-slot entry.
func SlotScope(slotID string) Scope { return Scope{name: "slot:" + slotID, entry: "slot:" + slotID} }

// ConsultantSlotsScope covers every slot listing of a consultant.
func ConsultantSlotsScope(consultantID string) Scope { return Scope{name: "slots:" + consultantID} }

// AllSlotsScope covers slot listings not narrowed to a consultant.
func AllSlotsScope() Scope { return Scope{name: "slots:*"} }

// ConsultantAvailabilityScope covers every availability listing of a consultant.
func ConsultantAvailabilityScope(consultantID string) Scope {
	return Scope{name: "availability:" + consultantID}
}

// AllAvailabilityScope covers availability listings not narrowed to a consultant.
func AllAvailabilityScope() Scope { return Scope{name: "availability:*"} }

func (s Scope) String() string { return s.name }

// Layer implements read-through caching with versioned invalidation. Readers capture scope
// versions before loading from the store, so a load racing with a write is stored under
// the superseded version and never served after the write's invalidation. Concurrent misses
// on one versioned key share a single store load.
type Layer struct {
	c      Cache
	ttl    time.Duration
	logger *slog.Logger
	flight singleflight.Group
}

func NewLayer(c Cache, ttl time.Duration, logger *slog.Logger) *Layer {
	if c == nil {
		c = Nop{}
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Layer{c: c, ttl: ttl, logger: logger}
}

func versionKey(s Scope) string { return keyPrefix + "v:" + s.name }

func (l *Layer) versions(ctx context.Context, scopes []Scope) (string, error) {
	parts := make([]string, len(scopes))
	for i, s := range scopes {
		raw, ok, err := l.c.Get(ctx, versionKey(s))
		if err != nil {
			return "", err
		}
		v := "0"
		if ok {
			v = string(raw)
		}
		parts[i] = s.name + "=" + v
	}
	return strings.Join(parts, ","), nil
}

func entryKey(key, versions string) string {
	return keyPrefix + key + "|" + versions
}

func (l *Layer) warn(ctx context.Context, msg string, err error, key string) {
	metrics.CacheRequests.WithLabelValues("error").Inc()
	if l.logger != nil {
		l.logger.Warn(msg, "err", err, "key", key, "request_id", httpx.RequestIDFromContext(ctx))
	}
}

// Fetch returns the cached value for key under scopes, or loads, stores and returns it.
// Cache failures are logged and bypassed.
func Fetch[T any](ctx context.Context, l *Layer, key string, scopes []Scope, load func(context.Context) (T, error)) (T, error) {
	versions, err := l.versions(ctx, scopes)
	if err != nil {
		l.warn(ctx, "cache version read failed", err, key)
		return load(ctx)
	}
	full := entryKey(key, versions)

	raw, ok, err := l.c.Get(ctx, full)
	switch {
	case err != nil:
		l.warn(ctx, "cache read failed", err, full)
	case ok:
		var v T
		if err := json.Unmarshal(raw, &v); err == nil {
			metrics.CacheRequests.WithLabelValues("hit").Inc()
			return v, nil
		}
		l.warn(ctx, "cache entry undecodable", err, full)
	default:
		metrics.CacheRequests.WithLabelValues("miss").Inc()
	}

	res, err, _ := l.flight.Do(full, func() (any, error) {
		v, err := load(ctx)
		if err != nil {
			return v, err
		}
		if b, err := json.Marshal(v); err == nil {
			if err := l.c.Set(ctx, full, b, l.ttl); err != nil {
				l.warn(ctx, "cache write failed", err, full)
			}
		}
		return v, nil
	})
	v, _ := res.(T)
	return v, err
}

// FetchEntity caches a single entity under its own scope.
func FetchEntity[T any](ctx context.Context, l *Layer, scope Scope, load func(context.Context) (T, error)) (T, error) {
	return Fetch(ctx, l, scope.entry, []Scope{scope}, load)
}

// Invalidate bumps the version of every scope and drops the superseded entity entries.
// Call it after the write commits. Failures are logged; entries then expire with their TTL.
func (l *Layer) Invalidate(ctx context.Context, scopes ...Scope) {
	for _, s := range scopes {
		n, err := l.c.Incr(ctx, versionKey(s), versionTTL)
		if err != nil {
			l.warn(ctx, "cache invalidation failed", err, s.name)
			continue
		}
		metrics.CacheInvalidations.Inc()
		if s.entry == "" {
			continue
		}
		prev := "0"
		if n > 1 {
			prev = strconv.FormatInt(n-1, 10)
		}
		if err := l.c.Delete(ctx, entryKey(s.entry, s.name+"="+prev)); err != nil {
			l.warn(ctx, "cache delete failed", err, s.entry)
		}
	}
}

// SlotMutation lists the scopes a write to one slot of a consultant makes stale.
func SlotMutation(consultantID string, slotIDs ...string) []Scope {
	scopes := []Scope{ConsultantSlotsScope(consultantID), AllSlotsScope()}
	for _, id := range slotIDs {
		scopes = append(scopes, SlotScope(id))
	}
	return scopes
}

// AvailabilityMutation lists the scopes a write to a consultant's availability makes stale.
func AvailabilityMutation(consultantID string) []Scope {
	return []Scope{ConsultantAvailabilityScope(consultantID), AllAvailabilityScope()}
}
