package scheduler

import (
	"errors"
	"fmt"
)

// Termination outcomes. Each one ends the query with zero results.
var (
	ErrEntityMaxExceeded = errors.New("entity max exceeded")
	ErrNoRecords         = errors.New("edge has no records")
	ErrBrokenChain       = errors.New("broken chain")
)

type EntityMaxExceededError struct {
	EdgeID       string
	Max          int
	SubjectCount int
	ObjectCount  int
}

func (e *EntityMaxExceededError) Error() string {
	return fmt.Sprintf("max number of entities exceeded (%d) in qEdge '%s' (subject: %d, object: %d)",
		e.Max, e.EdgeID, e.SubjectCount, e.ObjectCount)
}

func (e *EntityMaxExceededError) Unwrap() error {
	return ErrEntityMaxExceeded
}

// IsTermination reports whether err is one of the "query terminates" outcomes
// rather than a failure of the machinery.
func IsTermination(err error) bool {
	return errors.Is(err, ErrEntityMaxExceeded) ||
		errors.Is(err, ErrNoRecords) ||
		errors.Is(err, ErrBrokenChain)
}
