package domain

import "errors"

var (
	// ErrInvalidInterval is returned when an interval ends before it starts.
	ErrInvalidInterval = errors.New("invalid scheduled interval")

	// ErrInvalidPartition is returned when a partition path segment is empty or unsafe.
	ErrInvalidPartition = errors.New("invalid partition")
)
