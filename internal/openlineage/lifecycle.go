package openlineage

import (
	"errors"
	"fmt"
	"sort"
)

// Sentinel errors for state transition validation.
var (
	// ErrInvalidTransition indicates an invalid state transition.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrTerminalStateImmutable indicates an attempt to transition from a terminal state.
	ErrTerminalStateImmutable = errors.New("terminal state is immutable")

	// ErrDuplicateStart indicates a duplicate START event for the same run.
	ErrDuplicateStart = errors.New("duplicate START event")

	// ErrBackwardTransition indicates an attempt to transition backwards (e.g., RUNNING → START).
	ErrBackwardTransition = errors.New("cannot transition backwards")

	// ErrEmptyEventList indicates an attempt to apply transitions to an empty event list.
	ErrEmptyEventList = errors.New("empty event list")
)

// ValidateStateTransition validates a state transition according to OpenLineage run cycle.
//
// Valid transitions:
//   - START → {RUNNING, COMPLETE, FAIL, ABORT}
//   - RUNNING → {RUNNING, COMPLETE, FAIL, ABORT}
//   - COMPLETE/FAIL/ABORT → same state (idempotent)
//   - OTHER → any state, any state → OTHER
//
// Spec: https://openlineage.io/docs/spec/run-cycle#run-states
func ValidateStateTransition(from, to EventType) error {
	if from == EventTypeOther || to == EventTypeOther {
		return nil
	}

	if from.IsTerminal() {
		if from != to {
			return fmt.Errorf("%w: %s → %s", ErrTerminalStateImmutable, from, to)
		}

		return nil
	}

	switch from {
	case EventTypeStart:
		switch to {
		case EventTypeStart:
			return fmt.Errorf("%w: runId already has START state", ErrDuplicateStart)
		case EventTypeRunning, EventTypeComplete, EventTypeFail, EventTypeAbort:
			return nil
		}
	case EventTypeRunning:
		switch to {
		case EventTypeStart:
			return fmt.Errorf("%w: RUNNING → START", ErrBackwardTransition)
		case EventTypeRunning, EventTypeComplete, EventTypeFail, EventTypeAbort:
			return nil
		}
	}

	return fmt.Errorf("%w: %s → %s", ErrInvalidTransition, from, to)
}

// SortEventsByTime returns a copy of events sorted by eventTime in ascending order.
// The sort is stable: events sharing a timestamp keep their emission order, so a
// RUNNING and a COMPLETE written with the same eventTime stay in that order.
func SortEventsByTime(events []RunEvent) []RunEvent {
	sorted := make([]RunEvent, len(events))
	copy(sorted, events)

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].EventTime.Before(sorted[j].EventTime)
	})

	return sorted
}

// ValidateEventSequence validates state transitions and returns events in chronological order.
//
// The finalState returned is the last non-OTHER event type, since OTHER events
// provide metadata without affecting run state. If every event is OTHER the final
// state is OTHER.
//
// Example:
//
//	sorted, finalState, err := ValidateEventSequence(events)
//	if err != nil {
//	    return fmt.Errorf("invalid event sequence: %w", err)
//	}
func ValidateEventSequence(events []RunEvent) ([]RunEvent, EventType, error) {
	if len(events) == 0 {
		return nil, "", ErrEmptyEventList
	}

	sorted := SortEventsByTime(events)

	var currentState EventType

	startIdx := 0

	for i, event := range sorted {
		if event.EventType != EventTypeOther {
			currentState = event.EventType
			startIdx = i + 1

			break
		}
	}

	if currentState == "" {
		return sorted, EventTypeOther, nil
	}

	for i := startIdx; i < len(sorted); i++ {
		nextState := sorted[i].EventType
		if nextState == EventTypeOther {
			continue
		}

		if err := ValidateStateTransition(currentState, nextState); err != nil {
			return nil, "", fmt.Errorf("transition %d failed (%s → %s at %s): %w",
				i, currentState, nextState, sorted[i].EventTime.Format("15:04:05.000"), err)
		}

		currentState = nextState
	}

	return sorted, currentState, nil
}
