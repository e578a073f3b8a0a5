package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"stockledger/internal/core/apperror"
	"stockledger/pkg/logger"
)

// ErrorHandler renders the last error of the request as {code,message,details}.
// Errors that are not AppErrors become INTERNAL_ERROR and only the request id
// reaches the client.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		ctx := c.Request.Context()
		err := c.Errors.Last().Err

		appErr, ok := apperror.AsAppError(err)
		if !ok {
			logger.Error(ctx, "unhandled error", "error", err)
			appErr = apperror.NewInternal(err).WithDetail("request_id", c.GetString("request_id"))
		} else if appErr.Err != nil {
			logger.Error(ctx, "request error", "code", appErr.Code, "cause", appErr.Err)
		}

		body := gin.H{
			"code":    appErr.Code,
			"message": appErr.Message,
			"details": appErr.Details,
		}
		if transient(appErr) {
			ReleaseIdempotency(c)
		} else {
			FailIdempotency(c, appErr.HTTPStatus, body)
		}
		c.JSON(appErr.HTTPStatus, body)
	}
}

// transient errors are not stored against an idempotency key.
func transient(e *apperror.AppError) bool {
	return e.HTTPStatus >= http.StatusInternalServerError ||
		e.Code == apperror.CodeConcurrentModification
}
