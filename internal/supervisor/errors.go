package supervisor

import "errors"

// ErrInvalidConfig is returned by New for missing collaborators or limits.
var ErrInvalidConfig = errors.New("supervisor: invalid configuration")
