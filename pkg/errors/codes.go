package errors

import (
	"net/http"
	"strings"
)

// ErrorCode is a string representation of a specific error condition.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common Error Codes
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeNotFound           ErrorCode = "COMMON_005"
	ErrCodeTooManyRequests    ErrorCode = "COMMON_007"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_008"
	ErrCodeTimeout            ErrorCode = "COMMON_009"
	ErrCodeValidation         ErrorCode = "COMMON_010"
	ErrCodeSerialization      ErrorCode = "COMMON_011"
	ErrCodeCacheError         ErrorCode = "COMMON_013"
	ErrCodeExternalService    ErrorCode = "COMMON_014"
	ErrCodeStorageError       ErrorCode = "COMMON_017"
	ErrCodeMessagingError     ErrorCode = "COMMON_018"
)

// Plot-info error codes.
const (
	// ErrCodeMalformedDocument: normalization could not locate the extract root.
	ErrCodeMalformedDocument ErrorCode = "PLOT_001"
	// ErrCodeLookupFailed: plot lookup by point or by identifier failed.
	ErrCodeLookupFailed ErrorCode = "PLOT_002"
	// ErrCodeQueryFailed: an expandable info query could not be fetched.
	ErrCodeQueryFailed ErrorCode = "PLOT_003"
	// ErrCodeDownloadFailed: a PDF download failed.
	ErrCodeDownloadFailed ErrorCode = "PLOT_004"
	// ErrCodeInvalidGeometry: a WKT geometry could not be decoded.
	ErrCodeInvalidGeometry ErrorCode = "PLOT_005"
	// ErrCodeUnsupportedProjection: no transform between two CRS codes.
	ErrCodeUnsupportedProjection ErrorCode = "PLOT_006"
)

const (
	CodeOK      = ErrorCode("OK")
	CodeUnknown = ErrorCode("UNKNOWN")
)

// ErrorCodeHTTPStatus maps codes to the status returned by the API server.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeTooManyRequests:    http.StatusTooManyRequests,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeTimeout:            http.StatusGatewayTimeout,
	ErrCodeValidation:         http.StatusBadRequest,
	ErrCodeSerialization:      http.StatusInternalServerError,
	ErrCodeCacheError:         http.StatusInternalServerError,
	ErrCodeExternalService:    http.StatusBadGateway,
	ErrCodeStorageError:       http.StatusInternalServerError,
	ErrCodeMessagingError:     http.StatusInternalServerError,

	ErrCodeMalformedDocument:     http.StatusUnprocessableEntity,
	ErrCodeLookupFailed:          http.StatusBadGateway,
	ErrCodeQueryFailed:           http.StatusBadGateway,
	ErrCodeDownloadFailed:        http.StatusBadGateway,
	ErrCodeInvalidGeometry:       http.StatusUnprocessableEntity,
	ErrCodeUnsupportedProjection: http.StatusBadRequest,
}

// ErrorCodeMessage holds the default message for each code.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:           "internal server error",
	ErrCodeBadRequest:         "bad request",
	ErrCodeNotFound:           "resource not found",
	ErrCodeTooManyRequests:    "too many requests",
	ErrCodeServiceUnavailable: "service unavailable",
	ErrCodeTimeout:            "request timeout",
	ErrCodeValidation:         "validation failed",
	ErrCodeSerialization:      "serialization error",
	ErrCodeCacheError:         "cache error",
	ErrCodeExternalService:    "external service error",
	ErrCodeStorageError:       "storage error",
	ErrCodeMessagingError:     "messaging error",

	ErrCodeMalformedDocument:     "malformed extract document",
	ErrCodeLookupFailed:          "plot lookup failed",
	ErrCodeQueryFailed:           "query failed",
	ErrCodeDownloadFailed:        "download failed",
	ErrCodeInvalidGeometry:       "invalid geometry",
	ErrCodeUnsupportedProjection: "unsupported projection",
}

// HTTPStatusForCode returns the HTTP status code for an ErrorCode.
func HTTPStatusForCode(code ErrorCode) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DefaultMessageForCode returns the default message for an ErrorCode.
func DefaultMessageForCode(code ErrorCode) string {
	if msg, ok := ErrorCodeMessage[code]; ok {
		return msg
	}
	return "unknown error"
}

// IsClientError returns true if the ErrorCode corresponds to a 4xx HTTP status.
func IsClientError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 400 && status < 500
}

// ModuleForCode returns the module prefix of an ErrorCode.
func ModuleForCode(code ErrorCode) string {
	parts := strings.Split(string(code), "_")
	if len(parts) > 0 && parts[0] != "" {
		return parts[0]
	}
	return "UNKNOWN"
}
