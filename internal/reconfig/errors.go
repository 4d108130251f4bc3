package reconfig

import "errors"

// ErrInvalidConfig is returned by NewMonitor for missing collaborators.
var ErrInvalidConfig = errors.New("reconfig: invalid configuration")
