package dataset

import (
	"errors"
	"fmt"
)

// ErrMalformedDataset reports a dataset that cannot be analysed.
var ErrMalformedDataset = errors.New("malformed dataset")

// Kind classifies why a dataset was rejected.
type Kind string

const (
	KindRowCount      Kind = "row_count"
	KindMissingColumn Kind = "missing_column"
	KindInvalidRow    Kind = "invalid_row"
	KindInvalidValue  Kind = "invalid_value"
	KindOutOfRange    Kind = "out_of_range"
)

// SchemaError describes a column or value that failed validation.
// Line is the 1-based line in the input, counting the header.
type SchemaError struct {
	Kind   Kind
	Column string
	Line   int
	Value  string
	Err    error
}

func (e *SchemaError) Error() string {
	switch e.Kind {
	case KindMissingColumn:
		return fmt.Sprintf("missing required column %q", e.Column)
	case KindInvalidRow:
		return fmt.Sprintf("line %d: %v", e.Line, e.Err)
	case KindOutOfRange:
		return fmt.Sprintf("line %d: %s value %q out of range: %v", e.Line, e.Column, e.Value, e.Err)
	default:
		return fmt.Sprintf("line %d: invalid %s value %q: %v", e.Line, e.Column, e.Value, e.Err)
	}
}

// Is makes every schema error match ErrMalformedDataset.
func (e *SchemaError) Is(target error) bool {
	return target == ErrMalformedDataset
}

func (e *SchemaError) Unwrap() error {
	return e.Err
}

// KindOf returns the rejection kind for err, or "" when err is not a dataset error.
func KindOf(err error) Kind {
	var schemaErr *SchemaError
	if errors.As(err, &schemaErr) {
		return schemaErr.Kind
	}
	if errors.Is(err, ErrMalformedDataset) {
		return KindRowCount
	}
	return ""
}
