package student

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"github.com/qapabilities/students-api/internal/result"
	studentsvc "github.com/qapabilities/students-api/internal/service/student"
	"github.com/qapabilities/students-api/internal/storage/memory"
	"github.com/qapabilities/students-api/internal/types"
	"github.com/qapabilities/students-api/internal/validation"
)

// =============================================================================
// Student Handler Test Suite
// =============================================================================

type HandlerSuite struct {
	suite.Suite
	router http.Handler
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))

	now := func() time.Time { return time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC) }
	svc, err := studentsvc.New(memory.New(), studentsvc.WithClock(now))
	s.Require().NoError(err)

	s.router = routes(svc, validation.New(now), 50)
}

func routes(svc Service, v Validator, maxPageSize int) http.Handler {
	r := chi.NewRouter()
	r.Get("/api/students", GetList(svc, maxPageSize))
	r.Post("/api/students", New(svc, v))
	r.Get("/api/students/{id}", GetByID(svc))
	r.Put("/api/students/{id}", Update(svc, v))
	r.Delete("/api/students/{id}", Delete(svc))
	r.Get("/api/students/{id}/exists", Exists(svc))
	return r
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Errors  []string        `json:"errors"`
}

func (s *HandlerSuite) do(method, path, body string) (*httptest.ResponseRecorder, envelope) {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var env envelope
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec, env
}

const anaJSON = `{
	"name": "Ana Souza",
	"email": "ana@example.com",
	"cpf": "11144477735",
	"birthDate": "2000-04-12",
	"phone": "(11) 94444-3333",
	"address": "Rua Vergueiro, 77"
}`

func (s *HandlerSuite) create(body string) types.StudentView {
	rec, env := s.do(http.MethodPost, "/api/students", body)
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	var v types.StudentView
	s.Require().NoError(json.Unmarshal(env.Data, &v))
	return v
}

// =============================================================================
// POST /api/students
// =============================================================================

func (s *HandlerSuite) TestCreate() {
	rec, env := s.do(http.MethodPost, "/api/students", anaJSON)

	s.Equal(http.StatusCreated, rec.Code)
	s.True(env.Success)
	s.Equal(studentsvc.MsgCreated, env.Message)

	var v types.StudentView
	s.Require().NoError(json.Unmarshal(env.Data, &v))
	s.Equal("Ana Souza", v.Name)
	s.Equal("2000-04-12", v.BirthDate)
	s.True(v.IsActive)
	s.Nil(v.UpdatedAt)
	s.Equal("/api/students/"+v.ID, rec.Header().Get("Location"))
}

func (s *HandlerSuite) TestCreate_BadRequests() {
	s.Run("empty body", func() {
		rec, env := s.do(http.MethodPost, "/api/students", "")
		s.Equal(http.StatusBadRequest, rec.Code)
		s.Equal("request body is empty", env.Message)
	})

	s.Run("malformed json", func() {
		rec, env := s.do(http.MethodPost, "/api/students", `{"name":`)
		s.Equal(http.StatusBadRequest, rec.Code)
		s.False(env.Success)
	})

	s.Run("field violations are listed", func() {
		body := strings.Replace(anaJSON, "11144477735", "11144477736", 1)
		body = strings.Replace(body, "ana@example.com", "not-an-email", 1)

		rec, env := s.do(http.MethodPost, "/api/students", body)
		s.Equal(http.StatusBadRequest, rec.Code)
		s.Equal("validation failed", env.Message)
		s.Contains(env.Errors, "cpf: is not a valid CPF")
		s.Contains(env.Errors, "email: must be a valid email address")
	})
}

func (s *HandlerSuite) TestCreate_BusinessFailures() {
	s.create(anaJSON)

	s.Run("duplicate email is 409", func() {
		body := strings.Replace(anaJSON, "11144477735", "52998224725", 1)
		rec, env := s.do(http.MethodPost, "/api/students", body)
		s.Equal(http.StatusConflict, rec.Code)
		s.Equal(studentsvc.MsgEmailInUse, env.Message)
	})

	s.Run("too young is 422", func() {
		body := strings.Replace(anaJSON, "ana@example.com", "kid@example.com", 1)
		body = strings.Replace(body, "11144477735", "52998224725", 1)
		body = strings.Replace(body, "2000-04-12", "2010-10-17", 1)
		rec, env := s.do(http.MethodPost, "/api/students", body)
		s.Equal(http.StatusUnprocessableEntity, rec.Code)
		s.Equal(studentsvc.MsgTooYoung, env.Message)
	})
}

// =============================================================================
// GET /api/students/{id} and /exists
// =============================================================================

func (s *HandlerSuite) TestGetByID() {
	v := s.create(anaJSON)

	rec, env := s.do(http.MethodGet, "/api/students/"+v.ID, "")
	s.Equal(http.StatusOK, rec.Code)
	s.True(env.Success)

	rec, env = s.do(http.MethodGet, "/api/students/6f1c1c2e-6a43-4a8e-9a53-3a0b9b0c9d11", "")
	s.Equal(http.StatusNotFound, rec.Code)
	s.Equal(studentsvc.MsgNotFound, env.Message)

	rec, _ = s.do(http.MethodGet, "/api/students/123", "")
	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *HandlerSuite) TestExists() {
	v := s.create(anaJSON)

	rec, env := s.do(http.MethodGet, "/api/students/"+v.ID+"/exists", "")
	s.Equal(http.StatusOK, rec.Code)
	s.JSONEq("true", string(env.Data))

	rec, env = s.do(http.MethodGet, "/api/students/6f1c1c2e-6a43-4a8e-9a53-3a0b9b0c9d11/exists", "")
	s.Equal(http.StatusOK, rec.Code)
	s.True(env.Success)
	s.JSONEq("false", string(env.Data))
}

// =============================================================================
// GET /api/students
// =============================================================================

func (s *HandlerSuite) TestGetList() {
	s.create(anaJSON)
	s.create(`{"name":"Bruno Lima","email":"bruno@example.com","cpf":"52998224725","birthDate":"1999-01-01","phone":"11999990000","address":"Rua B, 2"}`)
	s.create(`{"name":"Carla Dias","email":"carla@example.com","cpf":"39053344705","birthDate":"1998-02-02","phone":"11999990001","address":"Rua C, 3"}`)

	s.Run("defaults", func() {
		rec, env := s.do(http.MethodGet, "/api/students", "")
		s.Equal(http.StatusOK, rec.Code)

		var page types.PageView[types.StudentView]
		s.Require().NoError(json.Unmarshal(env.Data, &page))
		s.Len(page.Items, 3)
		s.Equal(1, page.PageNumber)
		s.Equal(DefaultPageSize, page.PageSize)
	})

	s.Run("paging", func() {
		_, env := s.do(http.MethodGet, "/api/students?pageNumber=2&pageSize=2", "")

		var page types.PageView[types.StudentView]
		s.Require().NoError(json.Unmarshal(env.Data, &page))
		s.Require().Len(page.Items, 1)
		s.Equal("Carla Dias", page.Items[0].Name)
		s.Equal(3, page.TotalCount)
		s.True(page.HasPreviousPage)
		s.False(page.HasNextPage)
	})

	s.Run("page size is capped", func() {
		_, env := s.do(http.MethodGet, "/api/students?pageSize=500", "")

		var page types.PageView[types.StudentView]
		s.Require().NoError(json.Unmarshal(env.Data, &page))
		s.Equal(50, page.PageSize)
	})

	s.Run("search term", func() {
		_, env := s.do(http.MethodGet, "/api/students?searchTerm=bruno", "")

		var page types.PageView[types.StudentView]
		s.Require().NoError(json.Unmarshal(env.Data, &page))
		s.Require().Len(page.Items, 1)
		s.Equal("Bruno Lima", page.Items[0].Name)
	})

	s.Run("page number at the int limit", func() {
		rec, env := s.do(http.MethodGet, "/api/students?pageNumber=9223372036854775807&pageSize=2", "")
		s.Equal(http.StatusOK, rec.Code, rec.Body.String())

		var page types.PageView[types.StudentView]
		s.Require().NoError(json.Unmarshal(env.Data, &page))
		s.Empty(page.Items)
		s.Equal(3, page.TotalCount)
		s.Equal(2, page.TotalPages)
		s.False(page.HasNextPage)
	})

	s.Run("page number beyond int range", func() {
		rec, env := s.do(http.MethodGet, "/api/students?pageNumber=9223372036854775808", "")
		s.Equal(http.StatusBadRequest, rec.Code)
		s.Contains(env.Message, "invalid pageNumber")
	})

	s.Run("non-integer page number", func() {
		rec, env := s.do(http.MethodGet, "/api/students?pageNumber=abc", "")
		s.Equal(http.StatusBadRequest, rec.Code)
		s.Contains(env.Message, "invalid pageNumber")
	})
}

// =============================================================================
// PUT and DELETE /api/students/{id}
// =============================================================================

func (s *HandlerSuite) TestUpdate() {
	v := s.create(anaJSON)

	body := `{"name":"Ana Beatriz","email":"ana@example.com","phone":"11988887777","address":"Rua Nova, 10"}`
	rec, env := s.do(http.MethodPut, "/api/students/"+v.ID, body)
	s.Equal(http.StatusOK, rec.Code)
	s.Equal(studentsvc.MsgUpdated, env.Message)

	var got types.StudentView
	s.Require().NoError(json.Unmarshal(env.Data, &got))
	s.Equal("Ana Beatriz", got.Name)
	s.Equal(v.CPF, got.CPF)
	s.NotNil(got.UpdatedAt)

	s.Run("invalid payload", func() {
		rec, env := s.do(http.MethodPut, "/api/students/"+v.ID, `{"name":"","email":"ana@example.com","phone":"1","address":"x"}`)
		s.Equal(http.StatusBadRequest, rec.Code)
		s.Contains(env.Errors, "name: is required")
	})

	s.Run("unknown id", func() {
		rec, _ := s.do(http.MethodPut, "/api/students/6f1c1c2e-6a43-4a8e-9a53-3a0b9b0c9d11", body)
		s.Equal(http.StatusNotFound, rec.Code)
	})
}

func (s *HandlerSuite) TestDelete() {
	v := s.create(anaJSON)

	rec, env := s.do(http.MethodDelete, "/api/students/"+v.ID, "")
	s.Equal(http.StatusOK, rec.Code)
	s.Equal(studentsvc.MsgRemoved, env.Message)

	rec, _ = s.do(http.MethodDelete, "/api/students/"+v.ID, "")
	s.Equal(http.StatusNotFound, rec.Code)

	rec, _ = s.do(http.MethodGet, "/api/students/"+v.ID, "")
	s.Equal(http.StatusNotFound, rec.Code)
}

// =============================================================================
// Storage faults
// =============================================================================

type faultyService struct{ Service }

func (faultyService) GetByID(context.Context, string) (result.Result[types.StudentView], error) {
	return result.Result[types.StudentView]{}, errors.New("student.get: connection refused")
}

func (s *HandlerSuite) TestFaultIsOpaque500() {
	h := routes(faultyService{}, validation.New(nil), 5)

	req := httptest.NewRequest(http.MethodGet, "/api/students/6f1c1c2e-6a43-4a8e-9a53-3a0b9b0c9d11", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	s.Equal(http.StatusInternalServerError, rec.Code)
	s.JSONEq(`{"success":false,"message":"internal server error"}`, rec.Body.String())
}
