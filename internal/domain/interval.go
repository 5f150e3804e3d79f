package domain

import "time"

// NextPaymentDate returns the payment date following from, for the given
// interval. Month-based intervals clamp to the last day of the target
// month when the source day does not exist there (Jan 31 + 1 month is
// Feb 28, or Feb 29 in a leap year); the same rule applies to ANNUALLY
// for Feb 29 start dates. customDays is only consulted for CUSTOM and
// must be at least 1. An unrecognized interval falls back to MONTHLY.
func NextPaymentDate(interval Interval, customDays int, from time.Time) (time.Time, error) {
	switch interval {
	case IntervalWeekly:
		return from.AddDate(0, 0, 7), nil
	case IntervalMonthly:
		return addMonthsClamped(from, 1), nil
	case IntervalQuarterly:
		return addMonthsClamped(from, 3), nil
	case IntervalAnnually:
		return addMonthsClamped(from, 12), nil
	case IntervalCustom:
		if customDays < 1 {
			return time.Time{}, Errorf(EINVALID, "interval.next", "custom interval requires at least 1 day, got %d", customDays)
		}
		return from.AddDate(0, 0, customDays), nil
	default:
		return addMonthsClamped(from, 1), nil
	}
}

// addMonthsClamped adds months calendar-wise without the day overflow of
// time.AddDate (which turns Jan 31 + 1 month into Mar 2/3).
func addMonthsClamped(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	hh, mm, ss := t.Clock()

	target := time.Date(y, m+time.Month(months), 1, hh, mm, ss, t.Nanosecond(), t.Location())
	if last := daysInMonth(target.Year(), target.Month()); d > last {
		d = last
	}
	return time.Date(target.Year(), target.Month(), d, hh, mm, ss, t.Nanosecond(), t.Location())
}

func daysInMonth(year int, month time.Month) int {
	// Day 0 of the next month is the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
