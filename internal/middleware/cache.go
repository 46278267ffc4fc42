package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/ankur-foundation/ngo-portal/internal/config"
)

// ResponseCache stores successful GET responses in Redis under a tag. Any
// write that changes the cached view purges the tag. A cache without a
// Redis client, or disabled by configuration, is a pass-through.
type ResponseCache struct {
	cfg config.CacheConfig
	rdb *redis.Client
}

// NewResponseCache builds a cache. rdb may be nil.
func NewResponseCache(cfg config.CacheConfig, rdb *redis.Client) *ResponseCache {
	return &ResponseCache{cfg: cfg, rdb: rdb}
}

func (rc *ResponseCache) active() bool {
	return rc != nil && rc.cfg.Enabled && rc.rdb != nil
}

func (rc *ResponseCache) tagPrefix(tag string) string {
	return rc.cfg.Prefix + ":" + tag + ":"
}

func (rc *ResponseCache) key(tag string, c echo.Context) string {
	sum := sha1.Sum([]byte(c.Path() + "?" + c.Request().URL.RawQuery))
	return fmt.Sprintf("%s%x", rc.tagPrefix(tag), sum[:])
}

// captureWriter copies the response body while forwarding it to the client.
type captureWriter struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
	limit  int
	over   bool
}

func (cw *captureWriter) WriteHeader(code int) {
	cw.status = code
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *captureWriter) Write(b []byte) (int, error) {
	if !cw.over {
		if cw.limit > 0 && cw.buf.Len()+len(b) > cw.limit {
			cw.over = true
			cw.buf.Reset()
		} else {
			cw.buf.Write(b)
		}
	}
	return cw.ResponseWriter.Write(b)
}

// Cached serves hits from Redis and stores 200 responses on a miss.
// Responses larger than MaxBodyBytes are not stored.
func (rc *ResponseCache) Cached(tag string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if !rc.active() {
			return next
		}
		return func(c echo.Context) error {
			if !rc.cfg.Methods[c.Request().Method] {
				return next(c)
			}
			ctx := c.Request().Context()
			key := rc.key(tag, c)

			if bs, err := rc.rdb.Get(ctx, key).Bytes(); err == nil {
				if status, hdr, body, ok := decodePayload(bs); ok {
					out := c.Response().Header()
					for k, vals := range hdr {
						if perRequestHeader(k) {
							continue
						}
						out.Del(k)
						for _, v := range vals {
							out.Add(k, v)
						}
					}
					c.Response().Header().Set("X-Cache", "HIT")
					c.Response().WriteHeader(status)
					_, err := c.Response().Write(body)
					return err
				}
			}

			cw := &captureWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: rc.cfg.MaxBodyBytes}
			c.Response().Writer = cw
			c.Response().Header().Set("X-Cache", "MISS")
			if err := next(c); err != nil {
				return err
			}
			if cw.status != http.StatusOK || cw.over {
				return nil
			}
			hdr := http.Header{}
			for k, vals := range c.Response().Header() {
				if !perRequestHeader(k) {
					hdr[k] = vals
				}
			}
			if payload, err := encodePayload(cw.status, hdr, cw.buf.Bytes()); err == nil {
				if err := rc.rdb.Set(context.WithoutCancel(ctx), key, payload, rc.cfg.TTL).Err(); err != nil {
					c.Logger().Warnf("cache: store %s: %v", key, err)
				}
			}
			return nil
		}
	}
}

// perRequestHeader reports headers that describe one exchange rather than
// the cached representation. They are neither stored nor replayed.
func perRequestHeader(k string) bool {
	switch http.CanonicalHeaderKey(k) {
	case echo.HeaderContentLength, echo.HeaderXRequestID, echo.HeaderSetCookie,
		echo.HeaderRetryAfter, "Date", "X-Cache":
		return true
	}
	return strings.HasPrefix(http.CanonicalHeaderKey(k), "X-Ratelimit-")
}

// Purge deletes every entry stored under tag.
func (rc *ResponseCache) Purge(ctx context.Context, tag string) error {
	if !rc.active() {
		return nil
	}
	iter := rc.rdb.Scan(ctx, 0, rc.tagPrefix(tag)+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return rc.rdb.Del(ctx, keys...).Err()
}

// PurgeOnWrite purges tag after a handler responds with a 2xx status.
func (rc *ResponseCache) PurgeOnWrite(tag string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if !rc.active() {
			return next
		}
		return func(c echo.Context) error {
			if err := next(c); err != nil {
				return err
			}
			if s := c.Response().Status; s >= 200 && s < 300 {
				if err := rc.Purge(context.WithoutCancel(c.Request().Context()), tag); err != nil {
					c.Logger().Warnf("cache: purge %s: %v", tag, err)
				}
			}
			return nil
		}
	}
}

// encodePayload packs [4 bytes status][4 bytes header length][header JSON][body].
func encodePayload(status int, header http.Header, body []byte) ([]byte, error) {
	hdrJSON, err := json.Marshal(header)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 8+len(hdrJSON)+len(body))
	binary.BigEndian.PutUint32(out[0:4], uint32(status))
	binary.BigEndian.PutUint32(out[4:8], uint32(len(hdrJSON)))
	copy(out[8:], hdrJSON)
	copy(out[8+len(hdrJSON):], body)
	return out, nil
}

func decodePayload(bs []byte) (status int, header http.Header, body []byte, ok bool) {
	if len(bs) < 8 {
		return 0, nil, nil, false
	}
	status = int(binary.BigEndian.Uint32(bs[0:4]))
	hlen := int(binary.BigEndian.Uint32(bs[4:8]))
	if hlen < 0 || 8+hlen > len(bs) {
		return 0, nil, nil, false
	}
	header = http.Header{}
	if hlen > 0 {
		if err := json.Unmarshal(bs[8:8+hlen], &header); err != nil {
			return 0, nil, nil, false
		}
	}
	return status, header, bs[8+hlen:], true
}
