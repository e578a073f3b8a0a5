// Package middleware provides the gin middleware of the v1 API: tracing,
// request logging, bearer auth, idempotency keys, error rendering and panic
// recovery.
package middleware

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/gin-gonic/gin"

	"stockledger/internal/core/apperror"
	appctx "stockledger/internal/core/context"
	"stockledger/pkg/logger"
)

// Recovery turns a handler panic into an INTERNAL_ERROR for ErrorHandler to
// render. The stack is logged, never returned. A client that hung up gets
// nothing written back, and http.ErrAbortHandler is re-raised for net/http.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
				panic(rec)
			}

			ctx := c.Request.Context()
			if isBrokenPipe(rec) {
				logger.Warn(ctx, "client connection lost",
					"method", c.Request.Method,
					"path", c.Request.URL.Path,
					"error", rec)
				c.Abort()
				return
			}

			logger.Error(ctx, "panic recovered",
				"method", c.Request.Method,
				"path", c.FullPath(),
				"error", rec,
				"stack", string(debug.Stack()))

			_ = c.Error(apperror.NewInternal(fmt.Errorf("panic: %v", rec)).
				WithDetail("request_id", appctx.GetRequestID(ctx)))
			c.Abort()
		}()
		c.Next()
	}
}

func isBrokenPipe(rec any) bool {
	err, ok := rec.(error)
	if !ok {
		return false
	}
	var opErr *net.OpError
	if !errors.As(err, &opErr) {
		return false
	}
	var sysErr *os.SyscallError
	if errors.As(opErr.Err, &sysErr) {
		return errors.Is(sysErr.Err, syscall.EPIPE) || errors.Is(sysErr.Err, syscall.ECONNRESET)
	}
	return strings.Contains(strings.ToLower(opErr.Error()), "broken pipe")
}
