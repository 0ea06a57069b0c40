package domain

import "fmt"

// RecordState is the per-record position in the posting pipeline.
type RecordState string

const (
	StateReceived   RecordState = "received"
	StateValidating RecordState = "validating"
	StatePosting    RecordState = "posting"
	StatePosted     RecordState = "posted"
	StateRejecting  RecordState = "rejecting"
	StateRejected   RecordState = "rejected"
)

// Posting -> Rejecting covers a posting attempt that fails with a system error.
var transitions = map[RecordState][]RecordState{
	StateReceived:   {StateValidating},
	StateValidating: {StatePosting, StateRejecting},
	StatePosting:    {StatePosted, StateRejecting},
	StateRejecting:  {StateRejected},
}

func (s RecordState) CanTransition(to RecordState) bool {
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

func (s RecordState) Terminal() bool {
	return s == StatePosted || s == StateRejected
}

// Advance returns to when the move is legal.
func (s RecordState) Advance(to RecordState) (RecordState, error) {
	if !s.CanTransition(to) {
		return s, fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, s, to)
	}
	return to, nil
}
