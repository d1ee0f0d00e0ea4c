package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidBoundingBox = errors.New("invalid bounding box")
	ErrUnsupportedFormat  = errors.New("unsupported output format")
	ErrInvalidParameter   = errors.New("invalid parameter")
	ErrNotFound           = errors.New("not found")
)

// InvalidBoundingBoxError reports a box whose area exceeds the export limit.
type InvalidBoundingBoxError struct {
	Box     BoundingBox
	Area    float64
	MaxArea float64
}

func (e *InvalidBoundingBoxError) Error() string {
	return fmt.Sprintf("Bounding box %s exceeds the max allowed size."+
		"<br />Selected area: %s square degrees."+
		"<br />Max selection area: %s square degrees.",
		e.Box, FormatFloat(e.Area), FormatFloat(e.MaxArea))
}

func (e *InvalidBoundingBoxError) Is(target error) bool { return target == ErrInvalidBoundingBox }

// UnsupportedFormatError reports an output type other than csv or nrml.
type UnsupportedFormatError struct {
	Format string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("Unrecognized output type '%s', only 'nrml' and 'csv' are supported", e.Format)
}

func (e *UnsupportedFormatError) Is(target error) bool { return target == ErrUnsupportedFormat }

// InvalidParameterError reports a categorical query parameter outside its
// enumerated set.
type InvalidParameterError struct {
	Name    string
	Value   string
	Allowed []string
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("Invalid '%s' selection: '%s'. Expected %s.", e.Name, e.Value, quoteChoices(e.Allowed))
}

func (e *InvalidParameterError) Is(target error) bool { return target == ErrInvalidParameter }

// quoteChoices renders ["a","b","c"] as "'a', 'b', or 'c'".
func quoteChoices(choices []string) string {
	quoted := make([]string, len(choices))
	for i, c := range choices {
		quoted[i] = "'" + c + "'"
	}
	switch len(quoted) {
	case 0:
		return ""
	case 1:
		return quoted[0]
	case 2:
		return quoted[0] + " or " + quoted[1]
	}
	return strings.Join(quoted[:len(quoted)-1], ", ") + ", or " + quoted[len(quoted)-1]
}
