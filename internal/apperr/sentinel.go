package apperr

import "fmt"

// NotFoundError represents a missing stored resource.
type NotFoundError struct {
	Resource string
}

func (e NotFoundError) Error() string {
	if e.Resource == "" {
		return "not found"
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

// Is enables errors.Is matching on NotFoundError.
func (e NotFoundError) Is(target error) bool {
	_, ok := target.(NotFoundError)
	if ok {
		return true
	}
	_, ok = target.(*NotFoundError)
	return ok
}

// ErrNotFound is the sentinel stores return for missing rows.
var ErrNotFound = NotFoundError{}

// DuplicateError is returned when a uniqueness constraint rejects a write.
type DuplicateError struct {
	Resource string
}

func (e DuplicateError) Error() string {
	if e.Resource == "" {
		return "duplicate"
	}
	return fmt.Sprintf("duplicate %s", e.Resource)
}

func (e DuplicateError) Is(target error) bool {
	_, ok := target.(DuplicateError)
	if ok {
		return true
	}
	_, ok = target.(*DuplicateError)
	return ok
}

// ErrDuplicate is the sentinel stores return for unique key violations.
var ErrDuplicate = DuplicateError{}
