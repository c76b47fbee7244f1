package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/localrivet/latentfs/internal/errortypes"
)

// ErrorResponse is the JSON body of every failed HTTP request.
type ErrorResponse struct {
	Status  string                 `json:"status"`
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// HTTP error codes
const (
	ErrorCodeInvalidRequest   = "INVALID_REQUEST"
	ErrorCodeInternalError    = "INTERNAL_ERROR"
	ErrorCodeResourceNotFound = "RESOURCE_NOT_FOUND"
	ErrorCodeBadGateway       = "BAD_GATEWAY"
)

// httpClass is how one error category is reported over HTTP.
type httpClass struct {
	status  int
	code    string
	message string
}

var (
	classBadRequest = httpClass{http.StatusBadRequest, ErrorCodeInvalidRequest, "Invalid request parameters"}
	classNotFound   = httpClass{http.StatusNotFound, ErrorCodeResourceNotFound, "Resource not found"}
	classGateway    = httpClass{http.StatusBadGateway, ErrorCodeBadGateway, "Downstream service error"}
	classInternal   = httpClass{http.StatusInternalServerError, ErrorCodeInternalError, "An unexpected error occurred"}
)

// httpClasses maps error categories to responses. Anything missing is
// internal.
var httpClasses = map[errortypes.ErrorType]httpClass{
	errortypes.ErrorTypeValidation: classBadRequest,
	errortypes.ErrorTypeNotFound:   classNotFound,
	errortypes.ErrorTypeNetwork:    classGateway,
	errortypes.ErrorTypeAPI:        classGateway,
	errortypes.ErrorTypeExternal:   classGateway,
}

func classFor(err error) httpClass {
	if c, ok := httpClasses[errortypes.Classify(err)]; ok {
		return c
	}
	return classInternal
}

// writeErrorResponse writes an ErrorResponse. AppError fields are copied into
// the details so callers see the offending ids; stacks stay in the log.
func writeErrorResponse(w http.ResponseWriter, status int, code, message string, err error) {
	resp := ErrorResponse{Status: "error", Code: code, Message: message}

	if err != nil {
		resp.Details = map[string]interface{}{"error": err.Error()}
		var appErr *errortypes.AppError
		if errors.As(err, &appErr) {
			for k, v := range appErr.Fields {
				resp.Details[k] = v
			}
		}

		if status >= http.StatusInternalServerError {
			errortypes.LogError(nil, errortypes.APIError(err, message).
				WithField("status_code", status).
				WithField("error_code", code))
		} else {
			slog.Debug("Rejected request", "status_code", status, "error_code", code, "error", err)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("Failed to encode error response", "error", err)
	}
}

// HandleBadRequest writes a 400 response.
func HandleBadRequest(w http.ResponseWriter, message string, err error) {
	writeErrorResponse(w, http.StatusBadRequest, ErrorCodeInvalidRequest, message, err)
}

// HandleNotFound writes a 404 response.
func HandleNotFound(w http.ResponseWriter, message string, err error) {
	writeErrorResponse(w, http.StatusNotFound, ErrorCodeResourceNotFound, message, err)
}

// HandleError writes the response matching err's category: validation 400,
// not found 404, network and upstream failures 502, everything else 500.
func HandleError(w http.ResponseWriter, err error) {
	c := classFor(err)
	writeErrorResponse(w, c.status, c.code, c.message, err)
}

// errorCode is the code reported to MCP clients for err.
func errorCode(err error) string {
	return string(errortypes.Classify(err))
}
