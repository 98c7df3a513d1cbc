package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const replayKeyPrefix = "doctrack:replay:"

// replayEntry is what the middleware keeps per request id. Pending marks a
// request whose handler has not finished yet.
type replayEntry struct {
	Pending   bool      `json:"pending"`
	Status    int       `json:"status,omitempty"`
	Body      []byte    `json:"body,omitempty"`
	Digest    string    `json:"digest"`
	RequestID string    `json:"requestId"`
	RequestAt int64     `json:"requestAt"`
	StoredAt  time.Time `json:"storedAt"`
}

func replayKey(method, route, owner, requestID string) string {
	return replayKeyPrefix + strings.ToLower(method) + ":" + route + ":" + owner + ":" + requestID
}

func digest(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

// parseRequestID accepts a uuid, dashed or as 32 bare hex digits, and
// returns its canonical form so both spellings share one entry.
func parseRequestID(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if len(raw) != 32 && len(raw) != 36 {
		return "", false
	}
	u, err := uuid.Parse(raw)
	if err != nil {
		return "", false
	}
	return u.String(), true
}

var errRequestAt = errors.New("Ax-Request-At must be epoch seconds, epoch milliseconds or RFC3339 with a zone")

// parseRequestAt reads the client's send time. Values above 1e12 are epoch
// milliseconds, smaller integers epoch seconds.
func parseRequestAt(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, errors.New("missing Ax-Request-At")
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		if n > 1e12 {
			return time.UnixMilli(n).UTC(), nil
		}
		return time.Unix(n, 0).UTC(), nil
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, errRequestAt
	}
	return t.UTC(), nil
}

// replayStore keeps replay entries in redis. claim takes the key with a
// short lock TTL; finish rewrites it with the response for the full TTL.
type replayStore struct{ rdb *redis.Client }

func (s replayStore) claim(ctx context.Context, key string, e replayEntry) (bool, error) {
	raw, err := json.Marshal(e)
	if err != nil {
		return false, err
	}
	return s.rdb.SetNX(ctx, key, raw, pendingTTL).Result()
}

func (s replayStore) load(ctx context.Context, key string) (replayEntry, error) {
	var e replayEntry
	raw, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return e, err
	}
	if err := json.Unmarshal(raw, &e); err != nil {
		return e, err
	}
	return e, nil
}

func (s replayStore) finish(ctx context.Context, key string, e replayEntry, ttl time.Duration) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, key, raw, ttl).Err()
}

func (s replayStore) release(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, key).Err()
}
