package transit

// DefaultWindowMinutes is the maximum lead time, in minutes, for a
// prediction to be considered notification-worthy.
const DefaultWindowMinutes = 15

// Matches reports whether pred satisfies sub under the given window:
// identical route and stop, and an arrival no later than the desired time
// by more than zero and no earlier than windowMinutes before it.
func Matches(sub Subscription, pred Prediction, windowMinutes int) bool {
	if pred.Route != sub.Route {
		return false
	}
	if pred.Stop != sub.Stop {
		return false
	}
	delta := DeltaMinutes(sub.Desired, pred.Arrival)
	return delta >= 0 && delta <= windowMinutes
}

// MatchAll selects at most one prediction per subscription: the first
// qualifying prediction in the given order, not the closest one.
// First-match keeps selection deterministic and cheap; callers that fetch
// predictions concurrently must fix the ordering before calling.
// Subscriptions with no qualifying prediction are dropped.
func MatchAll(subs []Subscription, preds []Prediction, windowMinutes int) []Match {
	matches := make([]Match, 0, len(subs))

	for _, sub := range subs {
		for _, pred := range preds {
			if Matches(sub, pred, windowMinutes) {
				matches = append(matches, Match{Subscription: sub, Prediction: pred})
				break
			}
		}
	}

	return matches
}
