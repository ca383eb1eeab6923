package httpapi

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/zenGate-Global/palmyra-taskhub/platform/go/apperr"
	platformlogging "github.com/zenGate-Global/palmyra-taskhub/platform/go/logging"
)

const internalMessage = "an unexpected error occurred"

// WriteError classifies err, logs it with the operation name and writes the envelope.
// Unclassified errors are logged in full and reported to the caller as a generic 500.
func WriteError(w http.ResponseWriter, r *http.Request, fallback *zap.Logger, op string, err error) {
	status, body := classify(err)

	logger := platformlogging.FromRequest(r, fallback)
	if logger == nil {
		logger = zap.NewNop()
	}
	fields := []zap.Field{
		zap.String("operation", op),
		zap.Int("status", status),
		zap.Error(err),
	}

	switch {
	case status >= http.StatusInternalServerError:
		logger.Error("operation failed", fields...)
	case status == http.StatusNotFound:
		logger.Info("resource not found", fields...)
	default:
		logger.Warn("request rejected", fields...)
	}

	write(w, status, body)
}

func classify(err error) (int, Envelope) {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) || appErr.Code == apperr.CodeInternal {
		return http.StatusInternalServerError, Envelope{Success: false, Message: internalMessage}
	}

	body := Envelope{Success: false, Message: appErr.Msg}
	if len(appErr.Fields) > 0 {
		copied := make(apperr.FieldErrors, len(appErr.Fields))
		for field, messages := range appErr.Fields {
			copied[field] = append([]string(nil), messages...)
		}
		body.Errors = copied
	}

	return apperr.HTTPStatus(appErr.Code), body
}
