package ideas

import "errors"

var (
	// ErrStaleTask reports an idea submitted against a task that is no longer
	// the workshop's current task. The late submission is discarded.
	ErrStaleTask = errors.New("idea submitted for a stale task")

	// ErrTimeExpired reports an idea submitted after the brainstorming
	// countdown reached zero.
	ErrTimeExpired = errors.New("brainstorming time expired")

	// ErrNotAccepting reports an idea submitted while the workshop is not in
	// a state that accepts input, or the current phase takes no ideas.
	ErrNotAccepting = errors.New("workshop is not accepting ideas")
)
