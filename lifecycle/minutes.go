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

// RecordSession stores the minutes and files of a session that has been held. The
// minutes go on the chain record for the session's current slot. When the newest live
// record is for another slot a record is created, labelled as the initial session only
// if the session has no history at all.
//
// Files are stored before the transaction starts. If the transaction then fails they
// are left behind and logged.
func (c *Controller) RecordSession(ctx context.Context, req RecordRequest) (*models.RescheduleRecord, error) {
	if err := c.check(req); err != nil {
		return nil, err
	}
	if len(req.Files) > 0 && c.Documents == nil {
		return nil, apperr.Validationf("document uploads are not configured")
	}

	// refuse early so nothing is uploaded for a session that cannot be recorded
	err := c.Store.WithTx(ctx, func(ctx context.Context, tx databases.Tx) error {
		s, err := liveSession(ctx, tx, req.SessionID)
		if err != nil {
			return err
		}
		return c.held(s)
	})
	if err != nil {
		logRejected("record session", err, "sessionID", req.SessionID)
		return nil, err
	}

	paths := make([]string, 0, len(req.Files))
	for _, f := range req.Files {
		p, err := c.Documents.Save(ctx, req.SessionID, f)
		if err != nil {
			zap.S().Errorw("failed to store session document", "sessionID", req.SessionID, "file", f.Name, "error", err, "stored", paths)
			return nil, err
		}
		paths = append(paths, p)
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
		if err := c.held(s); err != nil {
			return err
		}
		if cs, err = tx.FindCase(ctx, s.CaseID); err != nil {
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
		minutes := req.Minutes

		if n := len(chain); n > 0 && chain[n-1].Date == s.ScheduledDate && chain[n-1].Minute == s.ScheduledMinute {
			latest := chain[n-1]
			if err := tx.UpdateRescheduleMinutes(ctx, latest.ID, &minutes); err != nil {
				return err
			}
			latest.Minutes = &minutes
			rec = &latest
		} else {
			rec = c.record(s, nextSequence(history), s.ScheduledDate, calendar.Clock(s.ScheduledMinute), seedReason(history), now)
			rec.Minutes = &minutes
			if err := tx.InsertReschedule(ctx, rec); err != nil {
				return err
			}
		}

		docs := make([]models.Documentation, 0, len(paths))
		for _, p := range paths {
			docs = append(docs, models.Documentation{
				ID:           c.NewID(),
				SessionID:    s.ID,
				RescheduleID: rec.ID,
				FilePath:     p,
				UploadedAt:   now,
			})
		}
		if err := tx.InsertDocumentation(ctx, docs); err != nil {
			return err
		}
		rec.Documentation = append(rec.Documentation, docs...)
		return nil
	})
	if err != nil {
		if len(paths) > 0 {
			zap.S().Warnw("stored documents are orphaned by a failed recording", "sessionID", req.SessionID, "paths", paths)
		}
		logRejected("record session", err, "sessionID", req.SessionID)
		return nil, err
	}

	zap.S().Infow("session minutes recorded", "caseID", s.CaseID, "sessionID", s.ID, "rescheduleID", rec.ID, "documents", len(paths))
	c.emit(ctx, notify.SessionRecorded, cs, s)
	return rec, nil
}

// held rejects sessions whose slot is still ahead of the clock
func (c *Controller) held(s *models.Session) error {
	at, err := calendar.At(s.ScheduledDate, calendar.Clock(s.ScheduledMinute), c.Location)
	if err != nil {
		return apperr.Infra(err, "stored session has an unreadable date")
	}
	if at.After(c.now()) {
		return apperr.Statef("session %s is scheduled for %s %s and has not been held yet",
			s.ID, s.ScheduledDate, s.ScheduledTime)
	}
	return nil
}

// SoftDeleteReschedule discards one entry of a reschedule chain and leaves the case
// status alone. When the entry is the newest live one and the session still sits at its
// slot, the session goes back to the slot of the entry before it, which must pass the
// day's pool rules again.
func (c *Controller) SoftDeleteReschedule(ctx context.Context, id string) error {
	if id == "" {
		return apperr.Validationf("reschedule id is required")
	}

	var (
		s        *models.Session
		cs       *models.Case
		restored bool
	)
	err := c.Store.WithTx(ctx, func(ctx context.Context, tx databases.Tx) error {
		r, err := tx.FindReschedule(ctx, id)
		if err != nil {
			return err
		}
		if s, err = tx.FindSession(ctx, r.SessionID); err != nil {
			return err
		}
		if cs, err = tx.FindCase(ctx, r.CaseID); err != nil {
			return err
		}
		chain, err := tx.Reschedules(ctx, r.SessionID)
		if err != nil {
			return err
		}

		now := c.now()
		if err := tx.SoftDeleteReschedule(ctx, id, now); err != nil {
			return err
		}

		n := len(chain)
		if s.Deleted || n < 2 || chain[n-1].ID != r.ID {
			return nil
		}
		if r.Date != s.ScheduledDate || r.Minute != s.ScheduledMinute {
			return nil
		}
		prev := chain[n-2]
		if err := c.restore(ctx, tx, s, prev, now); err != nil {
			return err
		}
		restored = true
		return nil
	})
	if err != nil {
		logRejected("delete reschedule", err, "rescheduleID", id)
		return err
	}

	zap.S().Infow("reschedule deleted", "caseID", cs.ID, "rescheduleID", id,
		"restored", restored, "date", s.ScheduledDate, "time", s.ScheduledTime)
	c.emit(ctx, notify.RescheduleDeleted, cs, s)
	return nil
}

// restore moves s back to the slot of chain record prev
func (c *Controller) restore(ctx context.Context, tx databases.Tx, s *models.Session, prev models.RescheduleRecord, now time.Time) error {
	if err := tx.LockDay(ctx, prev.Date); err != nil {
		return err
	}
	bookings, err := tx.BookingsOn(ctx, prev.Date)
	if err != nil {
		return err
	}
	at := calendar.Clock(prev.Minute)
	if err := c.Rules.Check(prev.Date, at, bookings, s.ID); err != nil {
		return err
	}
	s.ScheduledDate = prev.Date
	s.ScheduledTime = at.String()
	s.ScheduledMinute = at.Minutes()
	s.UpdatedAt = now
	return tx.UpdateSessionSlot(ctx, s)
}

// PurgeSession permanently removes a soft deleted session together with its reschedule
// chain and documentation rows. Live sessions must be retired first.
func (c *Controller) PurgeSession(ctx context.Context, id string) error {
	if id == "" {
		return apperr.Validationf("session id is required")
	}

	var (
		s  *models.Session
		cs *models.Case
	)
	err := c.Store.WithTx(ctx, func(ctx context.Context, tx databases.Tx) error {
		var err error
		if s, err = tx.FindSession(ctx, id); err != nil {
			return err
		}
		if !s.Deleted {
			return apperr.Statef("session %s is live, only deleted sessions can be purged", id)
		}
		if cs, err = tx.FindCase(ctx, s.CaseID); err != nil {
			return err
		}
		return tx.PurgeSession(ctx, id)
	})
	if err != nil {
		logRejected("purge session", err, "sessionID", id)
		return err
	}

	var deletedAt time.Time
	if s.DeletedAt != nil {
		deletedAt = *s.DeletedAt
	}
	zap.S().Infow("session purged", "caseID", s.CaseID, "sessionID", id, "stage", s.Stage, "deletedAt", deletedAt)
	c.emit(ctx, notify.SessionPurged, cs, s)
	return nil
}
