package apod

import (
	"math/rand"
	"time"
)

// DateFormat is the wire format for request and response dates.
const DateFormat = "2006-01-02"

// Epoch is the first published APOD date. No earlier page exists.
var Epoch = time.Date(1995, time.June, 16, 0, 0, 0, 0, time.UTC)

// MaxRandomCount bounds the count parameter of random-date requests.
const MaxRandomCount = 100

// ResolveDate validates an optional requested date string against
// [Epoch, today]. An empty input resolves to today and sets
// defaultedToday, which later arms the one-day fetch fallback. Pure
// function of (input, now).
func ResolveDate(input string, now time.Time) (date time.Time, defaultedToday bool, err error) {
	today := truncateToDay(now)

	if input == "" {
		return today, true, nil
	}

	dt, parseErr := time.ParseInLocation(DateFormat, input, time.UTC)
	if parseErr != nil {
		return time.Time{}, false, &InvalidDateError{Input: input}
	}

	if err := ValidateDate(dt, now); err != nil {
		return time.Time{}, false, err
	}

	return dt, false, nil
}

// ValidateDate checks that dt lies within [Epoch, today] inclusive.
func ValidateDate(dt, now time.Time) error {
	today := truncateToDay(now)
	if dt.Before(Epoch) || dt.After(today) {
		return &DateRangeError{Date: dt, Min: Epoch, Max: today}
	}
	return nil
}

// RandomDates returns n distinct dates drawn from [Epoch, today] in
// random order. n must be in (0, MaxRandomCount]; the whole valid range
// is shuffled so callers can keep drawing past n when some pages turn
// out to be missing upstream.
func RandomDates(n int, now time.Time) ([]time.Time, error) {
	if n <= 0 || n > MaxRandomCount {
		return nil, &CountError{Count: n}
	}

	today := truncateToDay(now)
	total := int(today.Sub(Epoch).Hours()/24) + 1

	dates := make([]time.Time, total)
	for i := range dates {
		dates[i] = Epoch.AddDate(0, 0, i)
	}
	rand.Shuffle(total, func(i, j int) {
		dates[i], dates[j] = dates[j], dates[i]
	})

	return dates, nil
}

// CountError indicates an out-of-bounds random-date count.
type CountError struct {
	Count int
}

func (e *CountError) Error() string {
	return "count must be positive and cannot exceed 100"
}

// SameDay reports whether a and b fall on the same calendar day.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func truncateToDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
