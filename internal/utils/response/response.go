// Package response provides helpers for writing consistent JSON HTTP responses.
//
// Every handler in this application sends JSON back to the client.
// Rather than repeating the same three lines (set header, set status,
// encode JSON) in every handler, we centralise them here.
//
// Every body, success or failure, uses the same envelope as
// result.Result, so API consumers only ever parse one shape.
package response

import (
	"encoding/json"
	"net/http"

	"github.com/qapabilities/students-api/internal/result"
	"github.com/qapabilities/students-api/internal/validation"
)

// ─────────────────────────────────────────────────────────────────────────────
// Response is the failure envelope for errors raised before the service
// is reached (bad JSON, invalid payload) or by a storage fault.
//
//	{ "success": false, "message": "validation failed", "errors": ["cpf: is not a valid CPF"] }
//
// The json:"..." struct tags keep it byte-compatible with a failed
// result.Result.
// ─────────────────────────────────────────────────────────────────────────────
type Response struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Errors  []string `json:"errors,omitempty"`
}

// MsgValidationFailed heads the list of field violations.
const MsgValidationFailed = "validation failed"

// ─────────────────────────────────────────────────────────────────────────────
// WriteJSON writes a JSON-encoded response with the given HTTP status code.
//
// IMPORTANT ORDER: Header() → WriteHeader() → body writes.
// Once WriteHeader is called (or the first Write), headers are locked.
// ─────────────────────────────────────────────────────────────────────────────
func WriteJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// ─────────────────────────────────────────────────────────────────────────────
// WriteResult writes a service Result. A success uses okStatus; a failure
// uses the status its Kind maps to (see StatusFor).
// ─────────────────────────────────────────────────────────────────────────────
func WriteResult[T any](w http.ResponseWriter, okStatus int, res result.Result[T]) error {
	if res.Success {
		return WriteJSON(w, okStatus, res)
	}
	return WriteJSON(w, StatusFor(res.Kind), res)
}

// StatusFor maps a failure Kind to an HTTP status code.
func StatusFor(kind result.Kind) int {
	switch kind {
	case result.KindNotFound:
		return http.StatusNotFound
	case result.KindConflict:
		return http.StatusConflict
	case result.KindIneligible:
		return http.StatusUnprocessableEntity
	case result.KindInvalid:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// GeneralError wraps any Go error into our standard Response shape.
// Use this for decode errors and storage faults.
//
//	response.WriteJSON(w, http.StatusInternalServerError,
//	    response.GeneralError(err))
//
// ─────────────────────────────────────────────────────────────────────────────
func GeneralError(err error) Response {
	return Response{
		Success: false,
		Message: err.Error(),
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// ValidationError turns field violations into a single Response with one
// "field: problem" entry per violation.
//
//	{ "success": false, "message": "validation failed",
//	  "errors": ["name: is required", "email: must be a valid email address"] }
//
// ─────────────────────────────────────────────────────────────────────────────
func ValidationError(vs []validation.Violation) Response {
	return Response{
		Success: false,
		Message: MsgValidationFailed,
		Errors:  validation.Messages(vs),
	}
}
