package middleware

import (
	"errors"
	"net/http"

	"github.com/Eursukkul/outing-service/internal/dto"
	"github.com/Eursukkul/outing-service/internal/service"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// ErrorHandler renders errors as dto.ErrorResponse. Domain errors attached to an
// *echo.HTTPError as its internal error contribute their kind.
func ErrorHandler(logger *zap.Logger) echo.HTTPErrorHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code := http.StatusInternalServerError
		msg := err.Error()
		cause := err

		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
			if m, ok := he.Message.(string); ok {
				msg = m
			} else {
				msg = http.StatusText(code)
			}
			if he.Internal != nil {
				cause = he.Internal
			}
		}

		if code >= http.StatusInternalServerError {
			logger.Error("request failed",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Error(cause),
			)
			// Infrastructure details stay in the logs.
			msg = http.StatusText(code)
		}

		resp := dto.ErrorResponse{Message: msg, Kind: service.Kind(cause)}

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, resp)
	}
}
