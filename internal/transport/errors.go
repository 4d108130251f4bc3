package transport

import "errors"

// ErrInvalidPolicy is returned by Policy.Validate.
var ErrInvalidPolicy = errors.New("transport: invalid retry policy")
