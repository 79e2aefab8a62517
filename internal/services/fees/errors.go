package fees

import (
	"errors"
	"fmt"
	"strings"

	"envpermit/internal/validation"
)

// Service errors
var (
	ErrClassificationNotFound = errors.New("activity level not recognised")
	ErrInvalidParameter       = errors.New("invalid fee parameter")
)

// RequestValidationError carries the per-field faults of a rejected
// calculation request. The fee is never partially computed.
type RequestValidationError struct {
	Fields []validation.ValidationError
}

func (e *RequestValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Error())
	}
	return fmt.Sprintf("invalid fee calculation request: %s", strings.Join(msgs, "; "))
}
