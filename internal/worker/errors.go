package worker

import "errors"

var (
	// ErrDuplicateWorker is returned when a worker name is registered twice.
	ErrDuplicateWorker = errors.New("worker: duplicate name")

	// ErrUnnamedWorker is returned when a Spec has no name.
	ErrUnnamedWorker = errors.New("worker: name is required")

	// ErrUnknownWorker is returned when a handle does not belong to the group.
	ErrUnknownWorker = errors.New("worker: unknown worker")
)
