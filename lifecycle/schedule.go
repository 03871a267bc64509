package lifecycle

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/linesmerrill/dispute-case-api/apperr"
	"github.com/linesmerrill/dispute-case-api/calendar"
	"github.com/linesmerrill/dispute-case-api/databases"
	"github.com/linesmerrill/dispute-case-api/models"
	"github.com/linesmerrill/dispute-case-api/notify"
)

// ScheduleStage books the session of a stage for a case and moves the case into that
// stage. A live session of the same stage is moved rather than duplicated. Sessions of
// the stages the new one supersedes are soft deleted in the same transaction.
func (c *Controller) ScheduleStage(ctx context.Context, req ScheduleRequest) (*models.Session, error) {
	if err := c.check(req); err != nil {
		return nil, err
	}
	stage, err := models.ParseStage(req.Stage)
	if err != nil {
		return nil, apperr.Wrap(apperr.Validation, err, "invalid stage")
	}
	if len(req.Panel) > 0 && !panelAllowed(stage) {
		return nil, apperr.Validationf("a %s session has no panel", stage)
	}
	date, clock, err := c.slot(req.Date, req.Time)
	if err != nil {
		return nil, err
	}

	var (
		s  *models.Session
		cs *models.Case
	)
	err = c.Store.WithTx(ctx, func(ctx context.Context, tx databases.Tx) error {
		var err error
		if cs, err = openCase(ctx, tx, req.CaseID); err != nil {
			return err
		}
		if !CanEnter(cs.Status, stage.Status()) {
			return apperr.Statef("case %d cannot move from %s to %s", req.CaseID, cs.Status, stage)
		}

		if err := tx.LockDay(ctx, date); err != nil {
			return err
		}
		bookings, err := tx.BookingsOn(ctx, date)
		if err != nil {
			return err
		}
		if err := c.Rules.Check(date, clock, bookings, replaced(bookings, req.CaseID, stage)...); err != nil {
			return err
		}

		now := c.now()
		for _, prev := range supersedes[stage] {
			n, err := tx.SoftDeleteSessions(ctx, req.CaseID, prev, now)
			if err != nil {
				return err
			}
			if n > 0 {
				zap.S().Infow("retired superseded sessions", "caseID", req.CaseID, "stage", prev, "count", n)
			}
		}

		existing, err := tx.ActiveSession(ctx, req.CaseID, stage)
		switch {
		case err == nil:
			existing.ScheduledDate = date
			existing.ScheduledTime = clock.String()
			existing.ScheduledMinute = clock.Minutes()
			existing.Panel = req.Panel
			existing.UpdatedAt = now
			if err := tx.UpdateSessionSlot(ctx, existing); err != nil {
				return err
			}
			s = existing
		case apperr.Is(err, apperr.NotFound):
			s = &models.Session{
				ID:              c.NewID(),
				CaseID:          req.CaseID,
				Stage:           stage,
				ScheduledDate:   date,
				ScheduledTime:   clock.String(),
				ScheduledMinute: clock.Minutes(),
				Panel:           req.Panel,
				CreatedAt:       now,
				UpdatedAt:       now,
			}
			if err := tx.InsertSession(ctx, s); err != nil {
				return err
			}
		default:
			return err
		}

		cs.Status = stage.Status()
		cs.UpdatedAt = now
		return tx.UpdateCase(ctx, cs)
	})
	if err != nil {
		logRejected("schedule stage", err, "caseID", req.CaseID, "stage", stage, "date", date, "time", clock)
		return nil, err
	}

	zap.S().Infow("session scheduled", "caseID", req.CaseID, "stage", stage, "sessionID", s.ID, "date", date, "time", s.ScheduledTime)
	c.emit(ctx, notify.SessionScheduled, cs, s)
	return s, nil
}

// replaced returns the sessions of caseID that scheduling stage will move or retire. Their
// current slots do not compete with the new booking.
func replaced(bookings []models.Booking, caseID int64, stage models.Stage) []string {
	var ids []string
	for _, b := range bookings {
		if b.CaseID == caseID && (b.Stage == stage || Supersedes(stage, b.Stage)) {
			ids = append(ids, b.SessionID)
		}
	}
	return ids
}

// RescheduleSession moves a live session to a new slot. The move is appended to the
// session's reschedule chain, which is first seeded with the original slot when empty.
func (c *Controller) RescheduleSession(ctx context.Context, req RescheduleRequest) (*models.RescheduleRecord, error) {
	if err := c.check(req); err != nil {
		return nil, err
	}
	date, clock, err := c.slot(req.Date, req.Time)
	if err != nil {
		return nil, err
	}

	var (
		rec *models.RescheduleRecord
		s   *models.Session
		cs  *models.Case
	)
	err = c.Store.WithTx(ctx, func(ctx context.Context, tx databases.Tx) error {
		var err error
		if s, err = liveSession(ctx, tx, req.SessionID); err != nil {
			return err
		}
		if cs, err = openCase(ctx, tx, s.CaseID); err != nil {
			return err
		}

		if err := tx.LockDay(ctx, date); err != nil {
			return err
		}
		bookings, err := tx.BookingsOn(ctx, date)
		if err != nil {
			return err
		}
		if err := c.Rules.Check(date, clock, bookings, s.ID); err != nil {
			return err
		}

		chain, err := tx.Reschedules(ctx, s.ID)
		if err != nil {
			return err
		}
		history, err := tx.RescheduleHistory(ctx, s.ID)
		if err != nil {
			return err
		}
		now := c.now()
		seq := nextSequence(history)
		if len(chain) == 0 {
			initial := c.record(s, seq, s.ScheduledDate, calendar.Clock(s.ScheduledMinute), seedReason(history), now)
			if err := tx.InsertReschedule(ctx, initial); err != nil {
				return err
			}
			seq++
		}

		rec = c.record(s, seq, date, clock, req.Reason, now)
		if err := tx.InsertReschedule(ctx, rec); err != nil {
			return err
		}

		s.ScheduledDate = date
		s.ScheduledTime = clock.String()
		s.ScheduledMinute = clock.Minutes()
		s.UpdatedAt = now
		return tx.UpdateSessionSlot(ctx, s)
	})
	if err != nil {
		logRejected("reschedule session", err, "sessionID", req.SessionID, "date", date, "time", clock)
		return nil, err
	}

	zap.S().Infow("session rescheduled", "caseID", s.CaseID, "sessionID", s.ID, "sequence", rec.Sequence, "date", date, "time", rec.Time)
	c.emit(ctx, notify.SessionRescheduled, cs, s)
	return rec, nil
}

// record builds a reschedule record of s for the slot date at
func (c *Controller) record(s *models.Session, seq int, date string, at calendar.Clock, reason string, now time.Time) *models.RescheduleRecord {
	return &models.RescheduleRecord{
		ID:            c.NewID(),
		SessionID:     s.ID,
		CaseID:        s.CaseID,
		Sequence:      seq,
		Date:          date,
		Time:          at.String(),
		Minute:        at.Minutes(),
		Reason:        reason,
		Documentation: []models.Documentation{},
		CreatedAt:     now,
	}
}

// nextSequence returns the number the next record takes. history includes deleted
// records so a number is never handed out twice.
func nextSequence(history []models.RescheduleRecord) int {
	last := 0
	for _, r := range history {
		if r.Sequence > last {
			last = r.Sequence
		}
	}
	return last + 1
}

// seedReason labels the record written for a session's current slot when its live chain
// is empty
func seedReason(history []models.RescheduleRecord) string {
	if len(history) == 0 {
		return models.InitialSessionReason
	}
	return models.CurrentSlotReason
}

// Availability reports the state of a day's pool and the times still free on it
func (c *Controller) Availability(ctx context.Context, date string) (*calendar.Availability, error) {
	d, err := calendar.ParseDate(date, c.Location)
	if err != nil {
		return nil, apperr.Wrap(apperr.Validation, err, "invalid date")
	}
	date = d.Format(calendar.DateLayout)

	var av calendar.Availability
	err = c.Store.WithTx(ctx, func(ctx context.Context, tx databases.Tx) error {
		bookings, err := tx.BookingsOn(ctx, date)
		if err != nil {
			return err
		}
		av = c.Rules.Compute(date, bookings)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &av, nil
}
