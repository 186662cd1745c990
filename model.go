// Package transit assembles near-real-time arrival data for a fixed set
// of configured (agency, stop) pairs. A background refresh loop fetches
// each agency's stop monitoring feed and caches the raw records; on
// demand, the cached records are transformed into a grouped, sorted,
// deduplicated arrival model for a renderer to consume.
package transit

import (
	"time"
)

// LineKey is the rider-facing identity of a service after label
// substitution. It's the grouping key for arrival times.
type LineKey struct {
	Line        string
	Agency      string
	Direction   string
	Destination string
}

// Less orders keys lexicographically over (line, agency, direction,
// destination). This total order fixes the iteration order of line
// groups, so consumers see deterministic output.
func (k LineKey) Less(other LineKey) bool {
	if k.Line != other.Line {
		return k.Line < other.Line
	}
	if k.Agency != other.Agency {
		return k.Agency < other.Agency
	}
	if k.Direction != other.Direction {
		return k.Direction < other.Direction
	}
	return k.Destination < other.Destination
}

// LineArrivals pairs a line with its soonest known arrival times, sorted
// ascending and capped at MaxUpcoming.
type LineArrivals struct {
	Line  LineKey
	Times []time.Time
}

// AgencyArrivals is one agency's transformed data: line groups keyed by
// direction, with groups in LineKey order. LiveTime is when the
// underlying snapshot was fetched; renderers show it as a freshness
// indicator.
type AgencyArrivals struct {
	Agency     string
	LiveTime   time.Time
	Directions map[string][]LineArrivals
}

// StopData maps agency code to its arrivals. Built fresh on every load,
// never mutated afterwards, safe to share read-only.
type StopData map[string]AgencyArrivals

// MinutesUntil returns the whole minutes from now until t.
func MinutesUntil(t, now time.Time) int {
	return int(t.Sub(now) / time.Minute)
}
