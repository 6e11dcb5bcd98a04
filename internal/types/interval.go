package types

import (
	"time"

	"github.com/quantra-lab/quantra-backtest/pkg/errors"
)

// Interval is the bar granularity a simulation advances by. The grouper buckets
// bar timestamps to this granularity, so one simulated step covers one interval.
type Interval string

const (
	Interval1m  Interval = "1m"
	Interval5m  Interval = "5m"
	Interval15m Interval = "15m"
	Interval30m Interval = "30m"
	Interval1h  Interval = "1h"
	Interval4h  Interval = "4h"
	Interval6h  Interval = "6h"
	Interval8h  Interval = "8h"
	Interval12h Interval = "12h"
	Interval1d  Interval = "1d"
)

// AllIntervals lists every supported interval, used for schema generation.
var AllIntervals = []any{
	Interval1m,
	Interval5m,
	Interval15m,
	Interval30m,
	Interval1h,
	Interval4h,
	Interval6h,
	Interval8h,
	Interval12h,
	Interval1d,
}

var intervalDurations = map[Interval]time.Duration{
	Interval1m:  time.Minute,
	Interval5m:  5 * time.Minute,
	Interval15m: 15 * time.Minute,
	Interval30m: 30 * time.Minute,
	Interval1h:  time.Hour,
	Interval4h:  4 * time.Hour,
	Interval6h:  6 * time.Hour,
	Interval8h:  8 * time.Hour,
	Interval12h: 12 * time.Hour,
	Interval1d:  24 * time.Hour,
}

// Duration returns the wall-clock length of one interval.
func (i Interval) Duration() (time.Duration, error) {
	d, ok := intervalDurations[i]
	if !ok {
		return 0, errors.Newf(errors.ErrCodeInvalidInterval, "unknown interval %q", string(i))
	}

	return d, nil
}

// Bucket truncates t down to the start of the interval bucket containing it.
// Daily bars bucket to UTC midnight so two observations on the same calendar
// day always land in the same step.
func (i Interval) Bucket(t time.Time) time.Time {
	if i == Interval1d {
		y, m, d := t.UTC().Date()

		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	}

	d, err := i.Duration()
	if err != nil {
		return t
	}

	return t.UTC().Truncate(d)
}

// IsValid reports whether the interval is one of the supported granularities.
func (i Interval) IsValid() bool {
	_, ok := intervalDurations[i]

	return ok
}
