package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/MrEthical07/ardentid"
)

// Response codes carried in Envelope.ResponseCode.
const (
	CodeSuccess       = 2000
	CodeBadRequest    = 4000
	CodeUnauthorized  = 4001
	CodeInvalidOTP    = 4002
	CodeNotFound      = 4004
	CodeConflict      = 4009
	CodeInternalError = 5000
)

const (
	statusSuccess = "Success"
	statusFailure = "Failure"
)

// Error codes carried in Envelope.ErrorCode.
const (
	ErrCodeValidation   = "VALIDATION_ERROR"
	ErrCodeDuplicate    = "ERR-1000-001"
	ErrCodeInternal     = "ERR-0000-001"
	ErrCodeNotFound     = "USER_NOT_FOUND_OR_INVALID_STATE"
	ErrCodeInvalidOTP   = "INVALID_OTP"
	ErrCodeCredentials  = "INVALID_CREDENTIALS"
	ErrCodeUnauthorized = "UNAUTHORIZED"
)

// Envelope wraps every JSON response.
type Envelope struct {
	Status       string `json:"status"`
	StatusCode   int    `json:"status_code"`
	ResponseCode int    `json:"response_code"`
	Message      string `json:"message"`
	ErrorCode    string `json:"error_code,omitempty"`
	Txn          string `json:"txn"`
	Data         any    `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body Envelope) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeSuccess(w http.ResponseWriter, r *http.Request, message string, data any) {
	writeJSON(w, http.StatusOK, Envelope{
		Status:       statusSuccess,
		StatusCode:   http.StatusOK,
		ResponseCode: CodeSuccess,
		Message:      message,
		Txn:          ardentid.TxnFromContext(r.Context()),
		Data:         data,
	})
}

// writeFailure sends a failure envelope; httpStatus may differ from the
// envelope status code for outcomes reported with 200.
func writeFailure(w http.ResponseWriter, r *http.Request, httpStatus, responseCode int, errorCode, message string, data any) {
	writeJSON(w, httpStatus, Envelope{
		Status:       statusFailure,
		StatusCode:   httpStatus,
		ResponseCode: responseCode,
		Message:      message,
		ErrorCode:    errorCode,
		Txn:          ardentid.TxnFromContext(r.Context()),
		Data:         data,
	})
}

func writeInternal(w http.ResponseWriter, r *http.Request) {
	writeFailure(w, r, http.StatusInternalServerError, CodeInternalError, ErrCodeInternal,
		"An unexpected internal server error occurred. Please try again later.", nil)
}
