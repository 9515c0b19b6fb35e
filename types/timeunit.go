package types

import "strings"

// TimeUnit identifies the unit a planning service uses for step times and
// durations. All units convert to seconds before plan steps are built.
type TimeUnit string

const (
	UnitSecond      TimeUnit = "second"
	UnitMillisecond TimeUnit = "millisecond"
	UnitMinute      TimeUnit = "minute"
	UnitHour        TimeUnit = "hour"
	UnitDay         TimeUnit = "day"
	UnitWeek        TimeUnit = "week"
)

// secondsPerUnit maps each recognized unit to its multiplicative factor to
// seconds.
var secondsPerUnit = map[TimeUnit]float64{
	UnitSecond:      1,
	UnitMillisecond: 0.001,
	UnitMinute:      60,
	UnitHour:        3600,
	UnitDay:         86400,
	UnitWeek:        604800,
}

// Factor returns the conversion factor from this unit to seconds and whether
// the unit is recognized.
func (u TimeUnit) Factor() (float64, bool) {
	f, ok := secondsPerUnit[TimeUnit(strings.ToLower(strings.TrimSpace(string(u))))]
	return f, ok
}

// FactorOr returns the conversion factor to seconds, or def when the unit is
// empty or unrecognized. Variants disagree on the default: the asynchronous
// dialect assumes hours, the others seconds.
func (u TimeUnit) FactorOr(def float64) float64 {
	if f, ok := u.Factor(); ok {
		return f
	}
	return def
}
