package entities

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"
)

var (
	ErrMissingStart          = errors.New("started order without actual start time")
	ErrUnexpectedStart       = errors.New("pending order with actual start time")
	ErrOpenInterruption      = errors.New("open interruption before the last record")
	ErrInvalidInterval       = errors.New("interruption resumed before it stopped")
	ErrAngleOutOfRange       = errors.New("current angle outside [0,360)")
	ErrInvalidTransition     = errors.New("invalid status transition")
	ErrCompletionBeforeStart = errors.New("completion time before actual start time")
)

// ServiceOrder is a unit of irrigation work on one pivot. Only the fields
// read by the metrics core and the monitoring views are modelled.
type ServiceOrder struct {
	ID              string               `json:"id"`
	Number          string               `json:"number,omitempty"`
	PivotID         string               `json:"pivot_id,omitempty"`
	Operator        string               `json:"operator,omitempty"`
	Status          Status               `json:"status"`
	ActualStartTime *time.Time           `json:"actual_start_time,omitempty"`
	CompletionTime  *time.Time           `json:"completion_time,omitempty"`
	Zone            Zone                 `json:"zone"`
	CurrentAngle    int                  `json:"current_angle"`
	Stage           Stage                `json:"stage,omitempty"`
	Interruptions   []InterruptionRecord `json:"interruptions,omitempty"`
}

// Clone returns a deep copy so transitions never alias the caller's records.
func (o ServiceOrder) Clone() ServiceOrder {
	c := o
	c.ActualStartTime = cloneTime(o.ActualStartTime)
	c.CompletionTime = cloneTime(o.CompletionTime)
	if o.Interruptions != nil {
		c.Interruptions = make([]InterruptionRecord, len(o.Interruptions))
		for i, r := range o.Interruptions {
			r.ResumedAt = cloneTime(r.ResumedAt)
			c.Interruptions[i] = r
		}
	}
	return c
}

// OpenInterruption returns the ongoing stop, if the last record is still open.
func (o ServiceOrder) OpenInterruption() (InterruptionRecord, bool) {
	if n := len(o.Interruptions); n > 0 && o.Interruptions[n-1].Open() {
		return o.Interruptions[n-1], true
	}
	return InterruptionRecord{}, false
}

// Validate checks the data-integrity rules of an order. The metrics core
// tolerates every violation reported here; callers decide whether to log or reject.
func (o ServiceOrder) Validate() error {
	var err error
	switch {
	case o.Status != StatusPending && o.Status.Valid() && o.ActualStartTime == nil:
		err = multierr.Append(err, ErrMissingStart)
	case o.Status == StatusPending && o.ActualStartTime != nil:
		err = multierr.Append(err, ErrUnexpectedStart)
	}
	if !o.Status.Valid() {
		err = multierr.Append(err, fmt.Errorf("unknown status %q", o.Status))
	}
	if !o.Zone.Valid() {
		err = multierr.Append(err, fmt.Errorf("unknown zone %q", o.Zone))
	}
	if o.CurrentAngle < 0 || o.CurrentAngle >= 360 {
		err = multierr.Append(err, fmt.Errorf("%w: %d", ErrAngleOutOfRange, o.CurrentAngle))
	}
	if o.ActualStartTime != nil && o.CompletionTime != nil && o.CompletionTime.Before(*o.ActualStartTime) {
		err = multierr.Append(err, ErrCompletionBeforeStart)
	}
	last := len(o.Interruptions) - 1
	for i, r := range o.Interruptions {
		if r.Open() && i != last {
			err = multierr.Append(err, fmt.Errorf("%w: record %d", ErrOpenInterruption, i))
		}
		if r.ResumedAt != nil && r.ResumedAt.Before(r.StoppedAt) {
			err = multierr.Append(err, fmt.Errorf("%w: record %d", ErrInvalidInterval, i))
		}
	}
	return err
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
