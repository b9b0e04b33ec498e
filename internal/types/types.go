// Package types holds all shared data structures (models) used across
// the application. Keeping them in one place prevents import cycles —
// handlers, service, storage, and utils can all import types without
// depending on each other.
package types

import "time"

// DateLayout is the wire and storage format of a birth date.
const DateLayout = "2006-01-02"

// Student is the persisted student record.
//
// ID, CPF, BirthDate and CreatedAt are written once at creation and never
// change. UpdatedAt stays nil until the first update or soft delete.
// IsActive is flipped to false by a soft delete; inactive rows are kept
// but are invisible to every lookup.
type Student struct {
	ID        string
	Name      string
	Email     string
	CPF       string
	BirthDate time.Time
	Phone     string
	Address   string
	CreatedAt time.Time
	UpdatedAt *time.Time
	IsActive  bool
}

// StudentView is the JSON shape returned to API consumers.
type StudentView struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	CPF       string     `json:"cpf"`
	BirthDate string     `json:"birthDate"`
	Phone     string     `json:"phone"`
	Address   string     `json:"address"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt *time.Time `json:"updatedAt"`
	IsActive  bool       `json:"isActive"`
}

// CreateStudentRequest is the body of POST /api/students.
//
// Struct tags serve two purposes:
//
//  1. json:"..."     — the key names accepted from the client.
//  2. validate:"..." — rules checked by the go-playground/validator
//     package. cpf, personname, phone and pastdate are custom tags
//     registered in the validation package.
type CreateStudentRequest struct {
	Name      string `json:"name"      validate:"required,max=100,personname"`
	Email     string `json:"email"     validate:"required,email,max=100"`
	CPF       string `json:"cpf"       validate:"required,len=11,numeric,cpf"`
	BirthDate string `json:"birthDate" validate:"required,datetime=2006-01-02,pastdate"`
	Phone     string `json:"phone"     validate:"required,max=15,phone"`
	Address   string `json:"address"   validate:"required,max=200"`
}

// UpdateStudentRequest is the body of PUT /api/students/{id}.
// CPF and birth date are deliberately absent: they cannot be changed.
type UpdateStudentRequest struct {
	Name    string `json:"name"    validate:"required,max=100,personname"`
	Email   string `json:"email"   validate:"required,email,max=100"`
	Phone   string `json:"phone"   validate:"required,max=15,phone"`
	Address string `json:"address" validate:"required,max=200"`
}

// Page is one slice of a paginated search.
type Page[T any] struct {
	Items      []T `json:"items"`
	TotalCount int `json:"totalCount"`
	PageNumber int `json:"pageNumber"`
	PageSize   int `json:"pageSize"`
}

// TotalPages is the number of pages of PageSize needed for TotalCount.
func (p Page[T]) TotalPages() int {
	if p.PageSize <= 0 {
		return 0
	}
	pages := p.TotalCount / p.PageSize
	if p.TotalCount%p.PageSize != 0 {
		pages++
	}
	return pages
}

// HasPreviousPage reports whether a page precedes this one.
func (p Page[T]) HasPreviousPage() bool {
	return p.PageNumber > 1
}

// HasNextPage reports whether a page follows this one.
func (p Page[T]) HasNextPage() bool {
	return p.PageNumber < p.TotalPages()
}

// PageView is the JSON shape of a Page, including the derived fields.
type PageView[T any] struct {
	Items           []T  `json:"items"`
	TotalCount      int  `json:"totalCount"`
	PageNumber      int  `json:"pageNumber"`
	PageSize        int  `json:"pageSize"`
	TotalPages      int  `json:"totalPages"`
	HasPreviousPage bool `json:"hasPreviousPage"`
	HasNextPage     bool `json:"hasNextPage"`
}
