package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/tutorly/core"
	"github.com/trezcool/tutorly/core/lesson"
	"github.com/trezcool/tutorly/core/student"
)

var errHttpNotFound = echo.NewHTTPError(http.StatusNotFound, "not found")

type batchFailureResponse struct {
	Op       string `json:"op"`
	LessonID string `json:"lesson_id,omitempty"`
	Error    string `json:"error"`
}

func batchFailures(err *lesson.BatchError) []batchFailureResponse {
	failures := make([]batchFailureResponse, 0, len(err.Failures))
	for _, f := range err.Failures {
		failures = append(failures, batchFailureResponse{Op: f.Op, LessonID: f.LessonID, Error: f.Err.Error()})
	}
	return failures
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = origErr.Message
		case validator.ValidationErrors:
			fldErrs := make(map[string]string, len(origErr))
			for _, vErr := range origErr {
				fldErrs[vErr.Field()] = vErr.Translate(translator)
			}
			code = http.StatusBadRequest
			message = fldErrs
		case *core.ValidationError:
			if origErr.Fields != nil {
				fldErrs := make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					fldErrs[fErr.Field] = fErr.Error
				}
				message = fldErrs
			} else {
				message = origErr.Error()
			}
			code = http.StatusBadRequest
		case *lesson.BatchError:
			code = http.StatusMultiStatus
			message = echo.Map{
				"error":    origErr.Error(),
				"affected": origErr.Affected,
				"failures": batchFailures(origErr),
			}
			logger.Warn(origErr.Error(), origErr)
		case *lesson.StorageError:
			code = http.StatusServiceUnavailable
			message = "storage unavailable"
			logger.Error(origErr.Error(), errors.Wrap(err, "storage"))
		default:
			switch {
			case lesson.IsInputError(err):
				code = http.StatusBadRequest
				message = err.Error()
			case errors.Cause(err) == lesson.ErrNotFound || errors.Cause(err) == student.ErrNotFound:
				code = http.StatusNotFound
				message = errors.Cause(err).Error()
			default: // any other error is a server error
				code = http.StatusInternalServerError
				msg := http.StatusText(http.StatusInternalServerError)
				message = msg
				logger.Error(msg, errors.Wrap(err, msg))

				// shutting down...
				if core.IsShutdown(err) {
					signalShutdown()
				}
			}
		}

		if ctx.Echo().Debug {
			message = err.Error()
		} else if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
