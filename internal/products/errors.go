package products

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ValidationError lists every invalid field of a request, keyed by field name.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+": "+e.Fields[name])
	}
	return "invalid product: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, message string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, exists := e.Fields[field]; !exists {
		e.Fields[field] = message
	}
}

func NewValidationError(field, message string) *ValidationError {
	e := &ValidationError{}
	e.add(field, message)
	return e
}

// JoinValidation merges validation errors so every violated field is reported
// together. Nil errors are skipped; any non-validation error wins as is.
func JoinValidation(errs ...error) error {
	merged := &ValidationError{}
	for _, err := range errs {
		if err == nil {
			continue
		}
		var verr *ValidationError
		if !errors.As(err, &verr) {
			return err
		}
		for field, msg := range verr.Fields {
			merged.add(field, msg)
		}
	}
	if len(merged.Fields) == 0 {
		return nil
	}
	return merged
}

// StorageError reports a failure of the image store.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("image storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
