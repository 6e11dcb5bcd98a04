package marketdata

import "github.com/polygon-io/client-go/rest/models"

// Timespan is the bar granularity of a download request, written in exchange
// interval notation such as "15m" or "1d".
type Timespan string

const (
	TimespanOneSecond      Timespan = "1s"
	TimespanOneMinute      Timespan = "1m"
	TimespanThreeMinutes   Timespan = "3m"
	TimespanFiveMinutes    Timespan = "5m"
	TimespanFifteenMinutes Timespan = "15m"
	TimespanThirtyMinutes  Timespan = "30m"
	TimespanOneHour        Timespan = "1h"
	TimespanTwoHours       Timespan = "2h"
	TimespanFourHours      Timespan = "4h"
	TimespanSixHours       Timespan = "6h"
	TimespanEightHours     Timespan = "8h"
	TimespanTwelveHours    Timespan = "12h"
	TimespanOneDay         Timespan = "1d"
	TimespanThreeDays      Timespan = "3d"
	TimespanOneWeek        Timespan = "1w"
	TimespanOneMonth       Timespan = "1M"
)

// AllTimespans lists every supported download granularity.
var AllTimespans = []Timespan{
	TimespanOneSecond,
	TimespanOneMinute,
	TimespanThreeMinutes,
	TimespanFiveMinutes,
	TimespanFifteenMinutes,
	TimespanThirtyMinutes,
	TimespanOneHour,
	TimespanTwoHours,
	TimespanFourHours,
	TimespanSixHours,
	TimespanEightHours,
	TimespanTwelveHours,
	TimespanOneDay,
	TimespanThreeDays,
	TimespanOneWeek,
	TimespanOneMonth,
}

// IsValid reports whether t is a supported download granularity.
func (t Timespan) IsValid() bool {
	for _, ts := range AllTimespans {
		if t == ts {
			return true
		}
	}

	return false
}

// Multiplier returns the numeric prefix of the timespan, e.g. 15 for "15m".
func (t Timespan) Multiplier() int {
	switch t {
	case TimespanThreeMinutes, TimespanThreeDays:
		return 3
	case TimespanFiveMinutes:
		return 5
	case TimespanFifteenMinutes:
		return 15
	case TimespanThirtyMinutes:
		return 30
	case TimespanTwoHours:
		return 2
	case TimespanFourHours:
		return 4
	case TimespanSixHours:
		return 6
	case TimespanEightHours:
		return 8
	case TimespanTwelveHours:
		return 12
	default:
		return 1
	}
}

// PolygonTimespan maps the timespan onto the polygon aggregate resolution.
// Together with Multiplier this fully describes the bar size, e.g. "15m"
// becomes 15 x models.Minute.
func (t Timespan) PolygonTimespan() models.Timespan {
	switch t {
	case TimespanOneSecond:
		return models.Second
	case TimespanOneMinute, TimespanThreeMinutes, TimespanFiveMinutes, TimespanFifteenMinutes, TimespanThirtyMinutes:
		return models.Minute
	case TimespanOneHour, TimespanTwoHours, TimespanFourHours, TimespanSixHours, TimespanEightHours, TimespanTwelveHours:
		return models.Hour
	case TimespanOneDay, TimespanThreeDays:
		return models.Day
	case TimespanOneWeek:
		return models.Week
	case TimespanOneMonth:
		return models.Month
	default:
		return models.Day
	}
}
