package httpx

import (
	"context"
	"errors"
	"net/http"

	apperrors "github.com/target/mmk-ce-queue/internal/errors"
)

// errorStatus maps a queue error to an HTTP status and error code.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, string(apperrors.ErrCodeTimeout)
	case errors.Is(err, context.Canceled):
		// nginx convention for a client that went away.
		return 499, string(apperrors.ErrCodeCanceled)
	}

	code := apperrors.GetCode(err)
	switch code {
	case apperrors.ErrCodeInvalidArgument:
		return http.StatusBadRequest, string(code)
	case apperrors.ErrCodeNotFound:
		return http.StatusNotFound, string(code)
	case apperrors.ErrCodeIllegalState, apperrors.ErrCodeDuplicateKey:
		return http.StatusConflict, string(code)
	case apperrors.ErrCodeTimeout:
		return http.StatusGatewayTimeout, string(code)
	case apperrors.ErrCodeCanceled:
		return 499, string(code)
	default:
		return http.StatusInternalServerError, string(apperrors.ErrCodeInternal)
	}
}

// writeServiceError writes err with the status its code maps to.
func writeServiceError(w http.ResponseWriter, err error) {
	status, code := errorStatus(err)
	WriteError(w, ErrorParams{Code: status, ErrCode: code, Err: err, Field: apperrors.GetField(err)})
}
