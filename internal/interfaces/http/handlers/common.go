package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/turtacn/plotinfo/pkg/errors"
)

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// ErrorResponse is the standard error response body.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// writeAppError maps err to the status of its code. Errors without a code
// and server-side codes are masked.
func writeAppError(w http.ResponseWriter, err error) {
	var ae *errors.AppError
	if !errors.As(err, &ae) {
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Code:    errors.ErrCodeInternal.String(),
			Message: errors.DefaultMessageForCode(errors.ErrCodeInternal),
		})
		return
	}
	status := ae.HTTPStatus()
	resp := ErrorResponse{Code: ae.Code.String(), Message: ae.Message}
	switch {
	case errors.IsClientError(ae.Code):
		resp.Detail = ae.Detail
	case status == http.StatusInternalServerError:
		resp.Message = errors.DefaultMessageForCode(ae.Code)
	}
	writeJSON(w, status, resp)
}
