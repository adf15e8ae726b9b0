package entities

import (
	"fmt"
	"time"
)

// The transitions below mirror what the order-management console does to a
// record. Each returns an updated copy and leaves the input untouched.

func transitionErr(from, to Status) error {
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}

// Start moves a pending order into execution.
func Start(o ServiceOrder, at time.Time) (ServiceOrder, error) {
	if o.Status != StatusPending {
		return o, transitionErr(o.Status, StatusInProgress)
	}
	n := o.Clone()
	n.Status = StatusInProgress
	n.ActualStartTime = &at
	return n, nil
}

// Pause opens a new interruption. Only one interruption may be open at a time.
func Pause(o ServiceOrder, at time.Time, reason, detail string) (ServiceOrder, error) {
	if o.Status != StatusInProgress {
		return o, transitionErr(o.Status, StatusInterrupted)
	}
	if _, open := o.OpenInterruption(); open {
		return o, fmt.Errorf("%w: order already has an open stop", ErrInvalidTransition)
	}
	if canonical, ok := ParseReason(reason); ok {
		reason = canonical
	}
	n := o.Clone()
	n.Status = StatusInterrupted
	n.Interruptions = append(n.Interruptions, InterruptionRecord{
		StoppedAt: at,
		Reason:    reason,
		Detail:    detail,
	})
	return n, nil
}

// Resume closes the open interruption.
func Resume(o ServiceOrder, at time.Time, by string) (ServiceOrder, error) {
	if o.Status != StatusInterrupted {
		return o, transitionErr(o.Status, StatusInProgress)
	}
	rec, open := o.OpenInterruption()
	if !open {
		return o, transitionErr(o.Status, StatusInProgress)
	}
	if at.Before(rec.StoppedAt) {
		return o, ErrInvalidInterval
	}
	n := o.Clone()
	last := &n.Interruptions[len(n.Interruptions)-1]
	last.ResumedAt = &at
	last.ResumedBy = by
	n.Status = StatusInProgress
	return n, nil
}

// Complete finishes a running order.
func Complete(o ServiceOrder, at time.Time) (ServiceOrder, error) {
	if o.Status != StatusInProgress {
		return o, transitionErr(o.Status, StatusCompleted)
	}
	n := o.Clone()
	n.Status = StatusCompleted
	n.CompletionTime = &at
	return n, nil
}
