package snapshot

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// A RawArrival is one record from an agency's stop monitoring feed: a
// single vehicle journey predicted to call at one of our stops. Agencies
// routinely omit fields, so any of the optional ones may be blank.
type RawArrival struct {
	Line            string `json:"line_ref,omitempty"`
	Direction       string `json:"direction_ref,omitempty"`
	Destination     string `json:"destination_name,omitempty"`
	StopID          string `json:"stop_point_ref"`
	ExpectedArrival string `json:"expected_arrival_time,omitempty"`
}

// Complete reports whether the record carries every field needed to
// schedule it. Incomplete records are useless for display and get
// dropped, never errored.
func (r RawArrival) Complete() bool {
	return r.Line != "" &&
		r.Direction != "" &&
		r.Destination != "" &&
		r.ExpectedArrival != ""
}

// A Snapshot is the most recent successfully fetched set of records for
// one agency. CapturedAt is the wall-clock time of the fetch, not of any
// subsequent read; consumers use it to judge staleness.
type Snapshot struct {
	Agency     string       `json:"agency"`
	Records    []RawArrival `json:"records"`
	CapturedAt time.Time    `json:"captured_at"`
}

var ErrNotFound = errors.New("no snapshot for agency")

// CorruptError means a stored snapshot exists but can't be decoded.
type CorruptError struct {
	Agency string
	Err    error
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("corrupt snapshot for agency %s: %v", e.Agency, e.Err)
}

func (e *CorruptError) Unwrap() error {
	return e.Err
}

// Store holds one snapshot per agency.
//
// Write replaces the agency's snapshot wholesale, stamping the capture
// time from the store's clock. Read returns the snapshot however old it
// is — staleness is the consumer's call, surfaced via CapturedAt. A read
// concurrent with a write for the same agency observes either the old or
// the new complete snapshot, never a mix. Different agencies never
// contend.
type Store interface {
	Write(ctx context.Context, agency string, records []RawArrival) error

	// Returns ErrNotFound if the agency has never been written, or a
	// CorruptError if the stored snapshot can't be decoded.
	Read(ctx context.Context, agency string) (Snapshot, error)
}
