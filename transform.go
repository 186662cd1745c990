package transit

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/lily-mara/transit-kindle/config"
	"github.com/lily-mara/transit-kindle/snapshot"
)

// MaxUpcoming caps how many arrival times are kept per line.
const MaxUpcoming = 4

// TimeParseError means a record carried an expected arrival time that
// was present but malformed. This aborts the whole per-agency transform;
// absent times merely skip the record.
type TimeParseError struct {
	Agency string
	Value  string
	Err    error
}

func (e *TimeParseError) Error() string {
	return fmt.Sprintf("parsing expected arrival time %q for agency %s: %v", e.Value, e.Agency, e.Err)
}

func (e *TimeParseError) Unwrap() error {
	return e.Err
}

// Transformer turns one agency's cached raw records into grouped
// arrivals. It's pure outside of the clock.
type Transformer struct {
	DestinationSubs map[string]string

	TimeNow func() time.Time
}

func NewTransformer(destinationSubs map[string]string) *Transformer {
	return &Transformer{
		DestinationSubs: destinationSubs,
		TimeNow:         time.Now,
	}
}

// Transform filters, labels and groups a snapshot's records.
//
// Records missing any of line, direction, destination or expected
// arrival time are dropped silently. Past arrivals are dropped.
// Destination names are rewritten by exact match against
// DestinationSubs; line labels by the query's ordered prefix rules,
// first match wins. Surviving times are grouped by LineKey, sorted
// ascending, truncated to the MaxUpcoming soonest, and regrouped by
// direction.
func (t *Transformer) Transform(query config.StopQuery, snap snapshot.Snapshot) (AgencyArrivals, error) {
	now := t.TimeNow()

	grouped := map[LineKey][]time.Time{}
	for _, record := range snap.Records {
		if !record.Complete() {
			continue
		}

		when, err := time.Parse(time.RFC3339, record.ExpectedArrival)
		if err != nil {
			return AgencyArrivals{}, &TimeParseError{
				Agency: query.Agency,
				Value:  record.ExpectedArrival,
				Err:    err,
			}
		}

		if when.Before(now) {
			continue
		}

		destination := record.Destination
		if sub, found := t.DestinationSubs[destination]; found {
			destination = sub
		}

		// Rule order governs matching, not prefix specificity.
		line := record.Line
		for _, rule := range query.LinePrefixSubs {
			if strings.HasPrefix(line, rule.Prefix) {
				line = rule.Label
				break
			}
		}

		key := LineKey{
			Line:        line,
			Agency:      query.Agency,
			Direction:   record.Direction,
			Destination: destination,
		}
		grouped[key] = append(grouped[key], when)
	}

	keys := make([]LineKey, 0, len(grouped))
	for key := range grouped {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].Less(keys[j])
	})

	directions := map[string][]LineArrivals{}
	for _, key := range keys {
		times := grouped[key]
		sort.Slice(times, func(i, j int) bool {
			return times[i].Before(times[j])
		})
		// Truncate only after sorting, so the kept times are the
		// soonest rather than the first seen.
		if len(times) > MaxUpcoming {
			times = times[:MaxUpcoming]
		}

		directions[key.Direction] = append(directions[key.Direction], LineArrivals{
			Line:  key,
			Times: times,
		})
	}

	return AgencyArrivals{
		Agency:     query.Agency,
		LiveTime:   snap.CapturedAt,
		Directions: directions,
	}, nil
}
