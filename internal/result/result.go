// Package result defines the uniform envelope every student service
// operation returns.
//
// A Result is either a success carrying Data (and optionally a Message),
// or a failure carrying a Message and a Kind. Business-rule outcomes
// (not found, already in use, too young, malformed input) are always
// expressed as a failed Result, never as a Go error. A Go error next to a
// Result means the storage layer itself broke.
package result

// Kind classifies a failure so the transport layer can choose a status
// code without parsing the message.
type Kind int

const (
	KindNone Kind = iota
	KindNotFound
	KindConflict
	KindIneligible
	KindInvalid
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindIneligible:
		return "ineligible"
	case KindInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// Result is the success/failure envelope serialized to API consumers.
type Result[T any] struct {
	Success bool     `json:"success"`
	Message string   `json:"message,omitempty"`
	Data    T        `json:"data"`
	Errors  []string `json:"errors,omitempty"`

	// Kind is for the transport layer only.
	Kind Kind `json:"-"`
}

// Ok wraps data in a successful Result. message may be empty.
func Ok[T any](data T, message string) Result[T] {
	return Result[T]{Success: true, Data: data, Message: message}
}

// Fail returns a failed Result of the given kind.
func Fail[T any](kind Kind, message string) Result[T] {
	return Result[T]{Kind: kind, Message: message}
}

// Invalid returns a failed Result listing field-level problems.
func Invalid[T any](message string, errs []string) Result[T] {
	return Result[T]{Kind: KindInvalid, Message: message, Errors: errs}
}
