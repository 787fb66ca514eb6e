package transit

import (
	"strings"
)

// Registry tags encode a subscription as "<HHMM>_<route>_<stop>".
const tagSeparator = "_"

// nullSentinels are placeholder values some clients register instead of a
// real route or stop identifier. Tags carrying them are not subscriptions.
var nullSentinels = map[string]struct{}{
	"null":   {},
	"<null>": {},
}

func isNullSentinel(s string) bool {
	_, ok := nullSentinels[s]
	return ok
}

// ParseSubscription parses one raw registry tag. The second return value
// reports whether the tag is a valid subscription; invalid tags carry no
// error because they are expected in the registry (audience labels,
// half-registered clients) and are simply not subscriptions.
func ParseSubscription(tag string) (Subscription, bool) {
	parts := strings.Split(tag, tagSeparator)
	if len(parts) != 3 {
		return Subscription{}, false
	}

	desired, err := ParseTimeOfDay(parts[0])
	if err != nil {
		return Subscription{}, false
	}

	route, stop := parts[1], parts[2]
	if route == "" || isNullSentinel(route) {
		return Subscription{}, false
	}
	if stop == "" || isNullSentinel(stop) {
		return Subscription{}, false
	}

	return Subscription{
		Desired: desired,
		Route:   route,
		Stop:    stop,
		RawTag:  tag,
	}, true
}

// ParseSubscriptions parses a batch of raw tags, dropping invalid ones and
// deduplicating by raw tag. Input order is preserved for valid tags.
func ParseSubscriptions(tags []string) []Subscription {
	seen := make(map[string]struct{}, len(tags))
	subs := make([]Subscription, 0, len(tags))

	for _, tag := range tags {
		sub, ok := ParseSubscription(tag)
		if !ok {
			continue
		}
		if _, dup := seen[sub.RawTag]; dup {
			continue
		}
		seen[sub.RawTag] = struct{}{}
		subs = append(subs, sub)
	}

	return subs
}

// PairKeys returns the distinct (route, stop) pairs the given
// subscriptions need predictions for, in first-seen order.
func PairKeys(subs []Subscription) []RouteStopKey {
	seen := make(map[RouteStopKey]struct{}, len(subs))
	keys := make([]RouteStopKey, 0, len(subs))

	for _, sub := range subs {
		key := sub.Key()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}

	return keys
}
