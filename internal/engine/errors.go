package engine

import "errors"

var (
	// ErrUnknownNode is returned for an id the catalog does not hold.
	ErrUnknownNode = errors.New("unknown node")

	// ErrPositionOutOfRange is returned for a routine index outside
	// 0 <= index < totalSteps.
	ErrPositionOutOfRange = errors.New("position out of range")

	// ErrNotCompletable is returned when completing a node that is not a
	// hack. Levels complete through their required hacks.
	ErrNotCompletable = errors.New("node is not completable")
)
