// Package student contains all HTTP handlers related to the Student resource.
//
// HANDLER PATTERN USED HERE — THE CLOSURE / FACTORY PATTERN:
// ────────────────────────────────────────────────────────────
// The router expects handler functions with the signature:
//
//	func(http.ResponseWriter, *http.Request)
//
// That signature has no room for extra parameters like a service.
// To inject dependencies we use a factory function that:
//  1. Accepts dependencies (service, validator, limits)
//  2. Returns a function with the exact signature the router needs
//
// Example:
//
//	r.Post("/api/students", student.New(svc, v))
//	//                      ^^^^^^^^^^^^^^^^^^^
//	//      called ONCE at startup; the returned func runs per request.
//
// Handlers do three things only: decode and validate the request, call
// the service, and translate its Result into a status code. Every
// business rule lives in the service.
package student

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/qapabilities/students-api/internal/result"
	"github.com/qapabilities/students-api/internal/types"
	"github.com/qapabilities/students-api/internal/utils/response"
	"github.com/qapabilities/students-api/internal/validation"
)

// Paging defaults applied when the query string omits a value.
const (
	DefaultPageNumber = 1
	DefaultPageSize   = 10
)

// Service is the subset of the student service the handlers call.
type Service interface {
	GetByID(ctx context.Context, id string) (result.Result[types.StudentView], error)
	GetAll(ctx context.Context, pageNumber, pageSize int, searchTerm string) (result.Result[types.PageView[types.StudentView]], error)
	Create(ctx context.Context, req types.CreateStudentRequest) (result.Result[types.StudentView], error)
	Update(ctx context.Context, id string, req types.UpdateStudentRequest) (result.Result[types.StudentView], error)
	Delete(ctx context.Context, id string) (result.Result[bool], error)
	Exists(ctx context.Context, id string) (result.Result[bool], error)
}

// Validator checks request payloads before they reach the service.
type Validator interface {
	ValidateCreate(req types.CreateStudentRequest) []validation.Violation
	ValidateUpdate(req types.UpdateStudentRequest) []validation.Violation
}

// ─────────────────────────────────────────────────────────────────────────────
// New handles POST /api/students
//
// Success response (201 Created, Location: /api/students/{id}):
//
//	{ "success": true, "message": "student created successfully", "data": { ...student } }
//
// Error responses:
//
//	400 Bad Request          — empty body, malformed JSON, or failed validation
//	409 Conflict             — email or CPF already used by an active student
//	422 Unprocessable Entity — younger than the minimum age
//	500 Internal             — storage fault
//
// ─────────────────────────────────────────────────────────────────────────────
func New(svc Service, v Validator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slog.Info("creating a student", requestID(r))

		var req types.CreateStudentRequest
		if !decode(w, r, &req) {
			return
		}

		if violations := v.ValidateCreate(req); len(violations) > 0 {
			response.WriteJSON(w, http.StatusBadRequest, response.ValidationError(violations))
			return
		}

		res, err := svc.Create(r.Context(), req)
		if err != nil {
			serverError(w, r, err)
			return
		}

		if res.Success {
			w.Header().Set("Location", "/api/students/"+res.Data.ID)
		}
		response.WriteResult(w, http.StatusCreated, res)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// GetByID handles GET /api/students/{id}
//
// Error responses:
//
//	404 Not Found — no active student with that id (including malformed ids)
//	500 Internal  — storage fault
//
// ─────────────────────────────────────────────────────────────────────────────
func GetByID(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		slog.Info("getting a student", slog.String("id", id), requestID(r))

		res, err := svc.GetByID(r.Context(), id)
		if err != nil {
			serverError(w, r, err)
			return
		}

		response.WriteResult(w, http.StatusOK, res)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// GetList handles GET /api/students?pageNumber=&pageSize=&searchTerm=
//
// Missing paging values default to page 1 of 10. pageSize is capped at
// maxPageSize. Non-integer paging values are a 400.
//
//	{ "success": true, "data": { "items": [...], "totalCount": 3,
//	  "pageNumber": 1, "pageSize": 2, "totalPages": 2,
//	  "hasPreviousPage": false, "hasNextPage": true } }
//
// ─────────────────────────────────────────────────────────────────────────────
func GetList(svc Service, maxPageSize int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		pageNumber, err := intParam(q.Get("pageNumber"), DefaultPageNumber)
		if err != nil {
			response.WriteJSON(w, http.StatusBadRequest,
				response.GeneralError(fmt.Errorf("invalid pageNumber: %w", err)))
			return
		}

		pageSize, err := intParam(q.Get("pageSize"), DefaultPageSize)
		if err != nil {
			response.WriteJSON(w, http.StatusBadRequest,
				response.GeneralError(fmt.Errorf("invalid pageSize: %w", err)))
			return
		}
		if maxPageSize > 0 && pageSize > maxPageSize {
			pageSize = maxPageSize
		}

		searchTerm := q.Get("searchTerm")
		slog.Info("listing students",
			slog.Int("pageNumber", pageNumber),
			slog.Int("pageSize", pageSize),
			slog.String("searchTerm", searchTerm),
			requestID(r),
		)

		res, err := svc.GetAll(r.Context(), pageNumber, pageSize, searchTerm)
		if err != nil {
			serverError(w, r, err)
			return
		}

		response.WriteResult(w, http.StatusOK, res)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Update handles PUT /api/students/{id}
//
// Only name, email, phone and address are accepted; CPF and birth date
// cannot be changed.
//
// Error responses:
//
//	400 Bad Request — empty body, malformed JSON, or failed validation
//	404 Not Found   — no active student with that id
//	409 Conflict    — email used by another active student
//	500 Internal    — storage fault
//
// ─────────────────────────────────────────────────────────────────────────────
func Update(svc Service, v Validator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		slog.Info("updating a student", slog.String("id", id), requestID(r))

		var req types.UpdateStudentRequest
		if !decode(w, r, &req) {
			return
		}

		if violations := v.ValidateUpdate(req); len(violations) > 0 {
			response.WriteJSON(w, http.StatusBadRequest, response.ValidationError(violations))
			return
		}

		res, err := svc.Update(r.Context(), id, req)
		if err != nil {
			serverError(w, r, err)
			return
		}

		response.WriteResult(w, http.StatusOK, res)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Delete handles DELETE /api/students/{id}
//
// The student is soft-deleted: the row is kept but becomes invisible.
// A second delete of the same id is a 404.
// ─────────────────────────────────────────────────────────────────────────────
func Delete(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		slog.Info("deleting a student", slog.String("id", id), requestID(r))

		res, err := svc.Delete(r.Context(), id)
		if err != nil {
			serverError(w, r, err)
			return
		}

		response.WriteResult(w, http.StatusOK, res)
	}
}

// Exists handles GET /api/students/{id}/exists. The answer is always
// 200 with data true or false, unless storage fails.
func Exists(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		res, err := svc.Exists(r.Context(), id)
		if err != nil {
			serverError(w, r, err)
			return
		}

		response.WriteResult(w, http.StatusOK, res)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────────────────────

// decode reads the JSON body into dst. On failure it writes a 400 and
// returns false.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	err := json.NewDecoder(r.Body).Decode(dst)
	if errors.Is(err, io.EOF) {
		response.WriteJSON(w, http.StatusBadRequest,
			response.GeneralError(errors.New("request body is empty")))
		return false
	}
	if err != nil {
		response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
		return false
	}
	return true
}

func serverError(w http.ResponseWriter, r *http.Request, err error) {
	slog.Error("request failed", slog.String("error", err.Error()), requestID(r))
	response.WriteJSON(w, http.StatusInternalServerError,
		response.GeneralError(errors.New("internal server error")))
}

func intParam(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

func requestID(r *http.Request) slog.Attr {
	return slog.String("request_id", middleware.GetReqID(r.Context()))
}
