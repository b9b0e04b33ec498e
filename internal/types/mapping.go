package types

import (
	"fmt"
	"time"
)

// NewStudent builds an unsaved Student from a creation payload.
// ID, CreatedAt and IsActive are left for the caller to stamp.
func NewStudent(req CreateStudentRequest) (Student, error) {
	birthDate, err := ParseDate(req.BirthDate)
	if err != nil {
		return Student{}, err
	}

	return Student{
		Name:      req.Name,
		Email:     req.Email,
		CPF:       req.CPF,
		BirthDate: birthDate,
		Phone:     req.Phone,
		Address:   req.Address,
	}, nil
}

// ApplyUpdate copies the mutable fields of req onto s.
// CPF, BirthDate, CreatedAt and IsActive are never touched here.
func ApplyUpdate(s *Student, req UpdateStudentRequest) {
	s.Name = req.Name
	s.Email = req.Email
	s.Phone = req.Phone
	s.Address = req.Address
}

// ToView converts a stored Student into its API representation.
func ToView(s Student) StudentView {
	return StudentView{
		ID:        s.ID,
		Name:      s.Name,
		Email:     s.Email,
		CPF:       s.CPF,
		BirthDate: s.BirthDate.Format(DateLayout),
		Phone:     s.Phone,
		Address:   s.Address,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
		IsActive:  s.IsActive,
	}
}

// ToPageView converts a page of students into its API representation.
func ToPageView(p Page[Student]) PageView[StudentView] {
	items := make([]StudentView, 0, len(p.Items))
	for _, s := range p.Items {
		items = append(items, ToView(s))
	}

	return PageView[StudentView]{
		Items:           items,
		TotalCount:      p.TotalCount,
		PageNumber:      p.PageNumber,
		PageSize:        p.PageSize,
		TotalPages:      p.TotalPages(),
		HasPreviousPage: p.HasPreviousPage(),
		HasNextPage:     p.HasNextPage(),
	}
}

// ParseDate parses a YYYY-MM-DD birth date as midnight UTC.
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}
