package apod

import (
	"errors"
	"fmt"
	"time"
)

// ErrNoPage indicates the upstream site has no page for the requested
// date. The orchestrator uses it to drive the one-day fallback; the API
// layer maps it to 404.
var ErrNoPage = errors.New("no APOD page for date")

// ErrDateNotFound indicates the latest-page date scan exhausted every
// line of the page without finding a publication date.
var ErrDateNotFound = errors.New("publication date not found in page")

// InvalidDateError indicates a date string that does not parse as a
// calendar date.
type InvalidDateError struct {
	Input string
}

func (e *InvalidDateError) Error() string {
	return fmt.Sprintf("invalid date %q: expected YYYY-MM-DD", e.Input)
}

// DateRangeError indicates a date outside the service's valid range.
// Min and Max carry the bounds so callers can render a helpful message.
type DateRangeError struct {
	Date time.Time
	Min  time.Time
	Max  time.Time
}

func (e *DateRangeError) Error() string {
	return fmt.Sprintf("date must be between %s and %s",
		e.Min.Format("Jan 2, 2006"), e.Max.Format("Jan 2, 2006"))
}

// SchemaError indicates a page whose structure none of an extractor's
// fallback strategies recognize. It is fatal for the whole parse and is
// never silently absorbed.
type SchemaError struct {
	Field string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("unsupported page schema: %s", e.Field)
}
