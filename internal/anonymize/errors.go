package anonymize

import (
	"errors"

	"cvranon/internal/cvr"
)

// Fatal conditions. Every error returned by Run wraps exactly one of these.
var (
	// ErrInvalidConfig reports options that cannot drive a run (non-positive
	// threshold, style column outside the identifying prefix, unknown policy).
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrMalformedLayout reports header rows or data rows that do not line up.
	ErrMalformedLayout = cvr.ErrMalformedLayout

	// ErrInvalidVote reports a non-integer vote cell.
	ErrInvalidVote = errors.New("invalid vote value")

	// ErrInsufficientData reports an aggregate that cannot reach the threshold
	// even after every eligible common-style donor is exhausted.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrTallyMismatch reports assembled output whose vote totals differ from
	// the input. Always a defect.
	ErrTallyMismatch = errors.New("tally mismatch")

	// ErrBallotConservation reports a ballot missing from, or duplicated in,
	// the assembled output. Always a defect.
	ErrBallotConservation = errors.New("ballot conservation violated")
)
