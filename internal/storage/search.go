package storage

import "time"

// QueryOptions defines criteria for querying clips. Zero fields are
// unconstrained.
type QueryOptions struct {
	// Text search query, normalized before matching against search content
	Search string

	// Local calendar date; only year, month and day are significant
	Date time.Time
}

// HasDate reports whether a date constraint is set.
func (o QueryOptions) HasDate() bool {
	return !o.Date.IsZero()
}
