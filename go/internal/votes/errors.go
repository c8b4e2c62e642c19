package votes

import "errors"

var (
	// ErrVotingClosed reports a vote cast outside an open voting phase.
	ErrVotingClosed = errors.New("voting is closed")

	// ErrNoDotsRemaining reports a vote cast by a participant whose dot
	// budget is spent. Retracting an existing vote is still allowed.
	ErrNoDotsRemaining = errors.New("no voting dots remaining")

	// ErrClusterNotFound reports a vote against an unknown cluster.
	ErrClusterNotFound = errors.New("cluster not found")
)
