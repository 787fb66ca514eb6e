// Package notify formats the rider-facing notification messages.
package notify

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/nextstop/nextstop/internal/transit"
)

// AlertPrefix starts every rebroadcast service alert.
const AlertPrefix = "Service Alert: "

// ComposeArrival formats the notification for a match, recomputing the
// lead time at send time rather than reusing the match-time delta: the
// minutes between the prediction's arrival (anchored to now's date in the
// given zone) and now, rounded to the nearest whole minute. A negative
// lead time means the vehicle is judged to have already passed; the
// notification is suppressed and ok is false.
func ComposeArrival(m transit.Match, now time.Time, loc *time.Location) (msg string, lead int, ok bool) {
	localNow := now.In(loc)
	arrival := m.Prediction.Arrival.At(localNow)

	lead = int(math.Round(arrival.Sub(localNow).Minutes()))
	if lead < 0 {
		return "", lead, false
	}

	msg = fmt.Sprintf("Bus %s coming in %d minutes to stop #%s",
		m.Prediction.Route, lead, m.Prediction.Stop)
	return msg, lead, true
}

// ComposeAlert normalizes an alert description and formats the broadcast
// message. Newlines, tabs and runs of spaces collapse to single spaces.
func ComposeAlert(description string) string {
	return AlertPrefix + NormalizeWhitespace(description)
}

// NormalizeWhitespace trims the string and collapses internal whitespace
// runs to single spaces.
func NormalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
