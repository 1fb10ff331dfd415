package middleware

import (
	"time"

	"golang-options/pkg/logger"
	"golang-options/pkg/trace"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel/attribute"
)

const HeaderTraceID = "X-Trace-Id"

// NewRequestContextMiddleware opens a span per request and stores a logger
// scoped to the request id in the request context. It must run after echo's
// RequestID middleware.
func NewRequestContextMiddleware(log *logger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			start := time.Now()

			ctx, span := trace.StartSpan(req.Context(), req.Method+" "+c.Path(),
				attribute.String("http.method", req.Method),
				attribute.String("http.route", c.Path()),
			)
			if traceID, _, ok := trace.GetTraceFields(ctx); ok {
				c.Response().Header().Set(HeaderTraceID, traceID)
			}

			reqLog := log.With(
				logger.StringField("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
				logger.StringField("method", req.Method),
				logger.StringField("route", c.Path()),
			)
			c.SetRequest(req.WithContext(logger.NewContext(ctx, reqLog)))

			err := next(c)
			if err != nil {
				c.Error(err)
			}
			span.SetAttributes(attribute.Int("http.status_code", c.Response().Status))
			trace.End(span, err)

			reqLog.Debug("Request served",
				logger.IntField("status", c.Response().Status),
				logger.Field("latency", time.Since(start)),
			)
			return nil
		}
	}
}
