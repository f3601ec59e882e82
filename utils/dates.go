package utils

import "time"

// DateLayout is the YYYY-MM-DD key every log and delay is grouped by.
const DateLayout = "2006-01-02"

func DateString(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// DaysAgo returns the UTC date key `days` whole days before now.
func DaysAgo(now time.Time, days int) string {
	return DateString(now.UTC().AddDate(0, 0, -days))
}

// NowUTC is the default clock: UTC, truncated to the microsecond precision
// the stores keep.
func NowUTC() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
