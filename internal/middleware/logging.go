package middleware

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/ankur-foundation/ngo-portal/internal/ids"
)

// RequestID assigns a ULID to every request that does not carry a valid
// one and echoes it in X-Request-Id.
func RequestID() echo.MiddlewareFunc {
	assign := echomw.RequestIDWithConfig(echomw.RequestIDConfig{
		Generator: ids.New,
	})
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		h := assign(next)
		return func(c echo.Context) error {
			req := c.Request()
			if rid := req.Header.Get(echo.HeaderXRequestID); rid != "" && !ids.Valid(rid) {
				req.Header.Del(echo.HeaderXRequestID)
			}
			return h(c)
		}
	}
}

// RequestLogger writes one structured line per request through the echo
// logger.
func RequestLogger() echo.MiddlewareFunc {
	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			fields := log.JSON{
				"request_id": v.RequestID,
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency_ms": v.Latency.Milliseconds(),
				"remote_ip":  v.RemoteIP,
			}
			if id, ok := IdentityFrom(c); ok {
				fields["user_id"] = id.SubjectID
			}
			if v.Error != nil {
				fields["error"] = v.Error.Error()
				c.Logger().Warnj(fields)
				return nil
			}
			c.Logger().Infoj(fields)
			return nil
		},
	})
}
