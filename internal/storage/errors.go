package storage

import "errors"

// Sentinel errors returned (optionally wrapped) by every Storage
// implementation. Callers test them with errors.Is.
var (
	ErrNotFound = errors.New("storage: student not found")
	ErrConflict = errors.New("storage: email or cpf already in use")
)
