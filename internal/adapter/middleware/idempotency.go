package middleware

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

const (
	HeaderRequestID = "Ax-Request-Id"
	HeaderRequestAt = "Ax-Request-At"
	HeaderReplayed  = "Idempotent-Replay"

	// pendingTTL bounds how long a crashed handler can block its request id.
	pendingTTL = 60 * time.Second
	maxSkew    = 10 * time.Minute
	storeWait  = 2 * time.Second
)

// captureWriter tees the handler's response so it can be stored for replay.
type captureWriter struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (w *captureWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *captureWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func fail(c echo.Context, status int, msg string) error {
	return c.JSON(status, map[string]string{"error": msg})
}

// IdempotencyMiddleware replays the stored response when a mutating request
// is retried with the same Ax-Request-Id. Requests without the header pass
// straight through. Entries are scoped by method, route and the signed-in
// username ("anonymous" before login). 5xx responses are never stored.
func IdempotencyMiddleware(rdb *redis.Client, ttl time.Duration) echo.MiddlewareFunc {
	store := replayStore{rdb: rdb}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			switch req.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				return next(c)
			}
			raw := req.Header.Get(HeaderRequestID)
			if raw == "" {
				return next(c)
			}
			id, ok := parseRequestID(raw)
			if !ok {
				return fail(c, http.StatusBadRequest, "Ax-Request-Id must be a uuid")
			}
			at, err := parseRequestAt(req.Header.Get(HeaderRequestAt))
			if err != nil {
				return fail(c, http.StatusBadRequest, err.Error())
			}
			if skew := time.Since(at); skew > maxSkew || skew < -maxSkew {
				return fail(c, http.StatusBadRequest, "Ax-Request-At too far from server time")
			}

			owner := "anonymous"
			if p := PrincipalFrom(c); p != nil {
				owner = p.Username
			}
			var payload []byte
			if req.Body != nil {
				payload, _ = io.ReadAll(req.Body)
			}
			req.Body = io.NopCloser(bytes.NewReader(payload))

			key := replayKey(req.Method, c.Path(), owner, id)
			sum := digest(payload)
			entry := replayEntry{Pending: true, Digest: sum, RequestID: id, RequestAt: at.UnixMilli(), StoredAt: time.Now().UTC()}

			ctx, cancel := context.WithTimeout(req.Context(), storeWait)
			defer cancel()
			claimed, err := store.claim(ctx, key, entry)
			if err != nil {
				slog.Error("replay store claim failed", "key", key, "err", err)
				return fail(c, http.StatusServiceUnavailable, "idempotency store unavailable")
			}
			if !claimed {
				prev, err := store.load(ctx, key)
				if err != nil {
					slog.Warn("replay store load failed", "key", key, "err", err)
				}
				switch {
				case prev.Digest != "" && prev.Digest != sum:
					return fail(c, http.StatusConflict, "Ax-Request-Id reused with a different body")
				case !prev.Pending && prev.Status != 0:
					c.Response().Header().Set(HeaderReplayed, "true")
					return c.Blob(prev.Status, echo.MIMEApplicationJSON, prev.Body)
				}
				return fail(c, http.StatusConflict, "request is already in progress")
			}

			cw := &captureWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK}
			c.Response().Writer = cw
			if err := next(c); err != nil {
				c.Error(err)
			}

			if cw.status >= http.StatusInternalServerError {
				if err := store.release(context.Background(), key); err != nil {
					slog.Warn("replay store release failed", "key", key, "err", err)
				}
				return nil
			}
			entry.Pending = false
			entry.Status = cw.status
			entry.Body = cw.body.Bytes()
			entry.StoredAt = time.Now().UTC()
			if err := store.finish(context.Background(), key, entry, ttl); err != nil {
				slog.Warn("replay store finish failed", "key", key, "err", err)
			}
			return nil
		}
	}
}
