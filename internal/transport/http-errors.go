package transport

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/Rogue-Bear-Innovations/bookmarker-api/internal/models"
	"github.com/Rogue-Bear-Innovations/bookmarker-api/internal/service"
)

var kindStatus = map[service.Kind]int{
	service.KindNotFound:        http.StatusNotFound,
	service.KindDuplicate:       http.StatusConflict,
	service.KindForbidden:       http.StatusForbidden,
	service.KindUnauthorized:    http.StatusUnauthorized,
	service.KindInvalidArgument: http.StatusBadRequest,
	service.KindInternal:        http.StatusInternalServerError,
}

var statusKind = map[int]service.Kind{
	http.StatusNotFound:     service.KindNotFound,
	http.StatusConflict:     service.KindDuplicate,
	http.StatusForbidden:    service.KindForbidden,
	http.StatusUnauthorized: service.KindUnauthorized,
}

// handleError is the only place errors become responses. Client errors are
// logged at warn, the rest at error with their message hidden from the caller.
func (s *HTTPServer) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status, resp := s.errorResponse(err)
	if status >= http.StatusInternalServerError {
		s.logger.Errorw("request failed", "method", c.Request().Method, "path", c.Request().URL.Path, "err", err)
	} else {
		s.logger.Warnw("request rejected", "method", c.Request().Method, "path", c.Request().URL.Path, "code", resp.ErrorCode, "err", err)
	}

	var writeErr error
	if c.Request().Method == http.MethodHead {
		writeErr = c.NoContent(status)
	} else {
		writeErr = c.JSON(status, resp)
	}
	if writeErr != nil {
		s.logger.Errorw("write error response", "err", writeErr)
	}
}

func (s *HTTPServer) errorResponse(err error) (int, models.ErrorResp) {
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		kind, ok := statusKind[httpErr.Code]
		switch {
		case ok:
		case httpErr.Code >= http.StatusInternalServerError:
			kind = service.KindInternal
		default:
			kind = service.KindInvalidArgument
		}
		msg, _ := httpErr.Message.(string)
		if msg == "" {
			msg = http.StatusText(httpErr.Code)
		}
		return httpErr.Code, models.ErrorResp{Message: msg, ErrorCode: string(kind)}
	}

	kind := service.KindOf(err)
	if kind == service.KindInternal {
		return http.StatusInternalServerError, models.ErrorResp{
			Message:   "internal error",
			ErrorCode: string(kind),
		}
	}
	return kindStatus[kind], models.ErrorResp{Message: err.Error(), ErrorCode: string(kind)}
}
