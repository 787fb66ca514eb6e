// Package transit holds the domain model for rider subscriptions and
// arrival predictions, plus the parsing and matching logic that pairs them.
package transit

import (
	"fmt"
	"time"
)

// TimeOfDay is a wall-clock time with no date component.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses a 4-digit 24h "HHMM" string (e.g. "0930").
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	if len(s) != 4 {
		return TimeOfDay{}, fmt.Errorf("time %q: want 4 digits", s)
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return TimeOfDay{}, fmt.Errorf("time %q: non-digit character", s)
		}
	}
	hour := int(s[0]-'0')*10 + int(s[1]-'0')
	minute := int(s[2]-'0')*10 + int(s[3]-'0')
	if hour > 23 {
		return TimeOfDay{}, fmt.Errorf("time %q: hour out of range", s)
	}
	if minute > 59 {
		return TimeOfDay{}, fmt.Errorf("time %q: minute out of range", s)
	}
	return TimeOfDay{Hour: hour, Minute: minute}, nil
}

// TimeOfDayFrom truncates an instant to its hour and minute in the
// instant's own location.
func TimeOfDayFrom(t time.Time) TimeOfDay {
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}
}

// MinuteOfDay returns minutes since midnight.
func (t TimeOfDay) MinuteOfDay() int {
	return t.Hour*60 + t.Minute
}

// At anchors the time of day to the date of ref, in ref's location.
func (t TimeOfDay) At(ref time.Time) time.Time {
	return time.Date(ref.Year(), ref.Month(), ref.Day(), t.Hour, t.Minute, 0, 0, ref.Location())
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// DeltaMinutes returns a minus b in whole minutes, both treated as
// same-day wall-clock times. No date rollover handling.
func DeltaMinutes(a, b TimeOfDay) int {
	return a.MinuteOfDay() - b.MinuteOfDay()
}

// RouteStopKey identifies a (route, stop) pair for prediction fetches.
type RouteStopKey struct {
	Route string
	Stop  string
}

func (k RouteStopKey) String() string {
	return k.Route + "_" + k.Stop
}

// Subscription is a rider's desire to be notified when a vehicle on Route
// is predicted to arrive at Stop near Desired.
type Subscription struct {
	// Desired is the arrival time the rider asked about.
	Desired TimeOfDay

	// Route and Stop are opaque upstream identifiers.
	Route string
	Stop  string

	// RawTag is the original registry tag, kept as the push audience key.
	RawTag string
}

// Key returns the (route, stop) pair the subscription needs predictions for.
func (s Subscription) Key() RouteStopKey {
	return RouteStopKey{Route: s.Route, Stop: s.Stop}
}

// Prediction is one upstream arrival estimate, truncated to hour:minute.
type Prediction struct {
	Arrival TimeOfDay
	Route   string
	Stop    string
}

// Match pairs a subscription with the prediction selected for it this
// cycle. Matches never outlive the cycle that produced them.
type Match struct {
	Subscription Subscription
	Prediction   Prediction
}
