// Package validation holds the format-level rules applied to student
// payloads at the transport boundary, plus the two pure domain checks
// the service also relies on: the CPF checksum and the minimum-age policy.
//
// Format rules are declared as validate:"..." struct tags on the request
// types and evaluated with go-playground/validator. Rules the validator
// does not ship with (cpf, personname, phone, pastdate) are registered
// here as custom tags.
//
// Business rules that need repository state (unique email/CPF) live in
// the student service, not here.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/qapabilities/students-api/internal/types"
)

var (
	// Letters (including Latin-1 accented letters) and whitespace.
	personNameRe = regexp.MustCompile(`^[a-zA-Z\x{00C0}-\x{00FF}\s]+$`)
	phoneRe      = regexp.MustCompile(`^[\d\s\-()+]+$`)
)

// Violation is a single field-level rule failure.
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

// Messages flattens violations into display strings.
func Messages(vs []Violation) []string {
	out := make([]string, 0, len(vs))
	for _, v := range vs {
		out = append(out, v.String())
	}
	return out
}

// Validator checks request payloads.
// A single instance is safe for concurrent use; the underlying
// validator.Validate caches struct metadata on first use.
type Validator struct {
	validate *validator.Validate
	now      func() time.Time
}

// New returns a Validator whose "pastdate" rule compares against now().
// A nil now falls back to time.Now.
func New(now func() time.Time) *Validator {
	if now == nil {
		now = time.Now
	}

	v := &Validator{validate: validator.New(), now: now}

	// Report violations by their JSON key rather than the Go field name.
	v.validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})

	// Registration only fails for an empty tag or nil func.
	_ = v.validate.RegisterValidation("cpf", func(fl validator.FieldLevel) bool {
		return ValidCPF(fl.Field().String())
	})
	_ = v.validate.RegisterValidation("personname", func(fl validator.FieldLevel) bool {
		return personNameRe.MatchString(fl.Field().String())
	})
	_ = v.validate.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phoneRe.MatchString(fl.Field().String())
	})
	_ = v.validate.RegisterValidation("pastdate", func(fl validator.FieldLevel) bool {
		d, err := types.ParseDate(fl.Field().String())
		if err != nil {
			return false
		}
		return d.Before(v.now())
	})

	return v
}

// ValidateCreate returns every rule the creation payload breaks.
// An empty result means the payload is well-formed.
func (v *Validator) ValidateCreate(req types.CreateStudentRequest) []Violation {
	return v.check(req)
}

// ValidateUpdate returns every rule the update payload breaks.
func (v *Validator) ValidateUpdate(req types.UpdateStudentRequest) []Violation {
	return v.check(req)
}

func (v *Validator) check(s any) []Violation {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []Violation{{Field: "", Message: err.Error()}}
	}

	out := make([]Violation, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, Violation{Field: fe.Field(), Message: message(fe)})
	}
	return out
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "len":
		return fmt.Sprintf("must be exactly %s characters", fe.Param())
	case "email":
		return "must be a valid email address"
	case "numeric":
		return "must contain only digits"
	case "cpf":
		return "is not a valid CPF"
	case "personname":
		return "must contain only letters and spaces"
	case "phone":
		return "must contain only digits, spaces, hyphens, parentheses and plus"
	case "datetime":
		return "must be a date in YYYY-MM-DD format"
	case "pastdate":
		return "must be in the past"
	default:
		return "is invalid"
	}
}
