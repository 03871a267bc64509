// Package notify tells parties and office staff about case events after the change that
// caused them has committed. Delivery is best effort: a failed sink is logged and never
// affects the outcome of the operation.
package notify

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Tag names a case event
type Tag string

// Event tags
const (
	CaseFiled          Tag = "case.filed"
	SessionScheduled   Tag = "session.scheduled"
	SessionRecorded    Tag = "session.recorded"
	SessionRescheduled Tag = "session.rescheduled"
	RescheduleDeleted  Tag = "reschedule.deleted"
	SessionPurged      Tag = "session.purged"
	CaseSettled        Tag = "case.settled"
	CaseWithdrawn      Tag = "case.withdrawn"
	CaseReferred       Tag = "case.referred"
)

// Event describes something that happened to a case
type Event struct {
	Tag       Tag    `json:"tag"`
	CaseID    int64  `json:"caseID"`
	CaseTitle string `json:"caseTitle,omitempty"`
	Stage     string `json:"stage,omitempty"`
	SessionID string `json:"sessionID,omitempty"`
	Date      string `json:"date,omitempty"`
	Time      string `json:"time,omitempty"`
	// Parties are resident directory references of the people to notify
	Parties []string  `json:"-"`
	At      time.Time `json:"at"`
}

// Key names the event with its stage folded in, e.g. "mediation_scheduled" or
// "arbitration_rescheduled". Events without a stage use the tag, e.g. "case_settled".
func (e Event) Key() string {
	tag := string(e.Tag)
	if e.Stage != "" && strings.HasPrefix(tag, "session.") {
		return e.Stage + "_" + strings.TrimPrefix(tag, "session.")
	}
	if e.Stage != "" && e.Tag == RescheduleDeleted {
		return e.Stage + "_reschedule_deleted"
	}
	return strings.ReplaceAll(tag, ".", "_")
}

// Notifier accepts events. Notify must not block on delivery.
type Notifier interface {
	Notify(ctx context.Context, e Event)
}

// Sink delivers an event over one channel
type Sink interface {
	Name() string
	Send(ctx context.Context, e Event) error
}

// Dispatcher fans each event out to its sinks on a background goroutine
type Dispatcher struct {
	sinks   []Sink
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewDispatcher returns a dispatcher delivering to sinks, giving each event timeout to finish
func NewDispatcher(timeout time.Duration, sinks ...Sink) *Dispatcher {
	return &Dispatcher{sinks: sinks, timeout: timeout}
}

// Notify delivers e in the background. The caller's context only contributes its values,
// the request finishing does not cancel delivery.
func (d *Dispatcher) Notify(ctx context.Context, e Event) {
	if len(d.sinks) == 0 {
		return
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
		defer cancel()
		for _, s := range d.sinks {
			if err := s.Send(ctx, e); err != nil {
				zap.S().Errorw("failed to deliver case event",
					"sink", s.Name(),
					"event", e.Key(),
					"caseID", e.CaseID,
					"error", err)
			}
		}
	}()
}

// Wait blocks until every event handed to Notify has been delivered or dropped
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Nop discards events
type Nop struct{}

// Notify does nothing
func (Nop) Notify(context.Context, Event) {}
