// Package agecalc derives the "age at capture" display string from a birth
// date and a capture date. The result is deterministic for identical inputs.
package agecalc

import (
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// Label returns the age string for a capture date given a birth date, both in
// YYYY-MM-DD form. Rules: under one calendar month the label is in days,
// under a year in whole calendar months, otherwise years with a month
// remainder. A capture date before the birth date yields an empty label.
func Label(birthDate, captureDate string) (string, error) {
	birth, err := time.Parse(dateLayout, birthDate)
	if err != nil {
		return "", fmt.Errorf("agecalc: parse birth date %q: %w", birthDate, err)
	}
	capture, err := time.Parse(dateLayout, captureDate)
	if err != nil {
		return "", fmt.Errorf("agecalc: parse capture date %q: %w", captureDate, err)
	}
	if capture.Before(birth) {
		return "", nil
	}

	months := wholeMonths(birth, capture)
	switch {
	case months < 1:
		days := int(capture.Sub(birth).Hours() / 24)
		return plural(days, "day"), nil
	case months < 12:
		return plural(months, "month"), nil
	default:
		years := months / 12
		rem := months % 12
		if rem == 0 {
			return plural(years, "year"), nil
		}
		return plural(years, "year") + " " + plural(rem, "month"), nil
	}
}

// wholeMonths counts completed calendar months between from and to,
// day-of-month aware: 01-15 to 06-14 is 4 months, 01-15 to 06-15 is 5.
func wholeMonths(from, to time.Time) int {
	months := (to.Year()-from.Year())*12 + int(to.Month()) - int(from.Month())
	if to.Day() < from.Day() {
		months--
	}
	if months < 0 {
		return 0
	}
	return months
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
