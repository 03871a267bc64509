package lifecycle

import (
	"context"

	"go.uber.org/zap"

	"github.com/linesmerrill/dispute-case-api/apperr"
	"github.com/linesmerrill/dispute-case-api/databases"
	"github.com/linesmerrill/dispute-case-api/models"
	"github.com/linesmerrill/dispute-case-api/notify"
)

// maxCasesPerYear keeps the sequence inside the three digits of a case number
const maxCasesPerYear = 999

// FileCase opens a pending case numbered from the yearly sequence, e.g. 2025007
func (c *Controller) FileCase(ctx context.Context, req FileCaseRequest) (*models.Case, error) {
	if err := c.check(req); err != nil {
		return nil, err
	}

	var cs *models.Case
	err := c.Store.WithTx(ctx, func(ctx context.Context, tx databases.Tx) error {
		now := c.now()
		seq, err := tx.NextCaseSequence(ctx, now.Year())
		if err != nil {
			return err
		}
		if seq > maxCasesPerYear {
			return apperr.Statef("case numbers for %d are exhausted", now.Year())
		}

		cs = &models.Case{
			ID:             int64(now.Year())*1000 + seq,
			Title:          req.Title,
			Description:    req.Description,
			Nature:         req.Nature,
			ReliefSought:   req.ReliefSought,
			ComplainantRef: req.ComplainantRef,
			RespondentRef:  req.RespondentRef,
			WitnessRef:     req.WitnessRef,
			Status:         models.StatusPending,
			FiledAt:        now,
			UpdatedAt:      now,
		}
		return tx.InsertCase(ctx, cs)
	})
	if err != nil {
		logRejected("file case", err)
		return nil, err
	}

	zap.S().Infow("case filed", "caseID", cs.ID)
	c.emit(ctx, notify.CaseFiled, cs, nil)
	return cs, nil
}

// Withdraw closes an open case at the complainant's request
func (c *Controller) Withdraw(ctx context.Context, req WithdrawRequest) (*models.Case, error) {
	if err := c.check(req); err != nil {
		return nil, err
	}
	cs, err := c.close(ctx, req.CaseID, models.StatusWithdrawn, func(cs *models.Case) {
		at := c.now()
		cs.WithdrawnAt = &at
		cs.ClosingRemarks = req.Reason
	})
	if err != nil {
		logRejected("withdraw", err, "caseID", req.CaseID)
		return nil, err
	}
	c.emit(ctx, notify.CaseWithdrawn, cs, nil)
	return cs, nil
}

// Refer closes an open case by handing it to another agency
func (c *Controller) Refer(ctx context.Context, req ReferRequest) (*models.Case, error) {
	if err := c.check(req); err != nil {
		return nil, err
	}
	cs, err := c.close(ctx, req.CaseID, models.StatusReferred, func(cs *models.Case) {
		at := c.now()
		cs.ReferredAt = &at
		cs.ReferralAgency = req.Agency
		cs.ClosingRemarks = req.Remarks
	})
	if err != nil {
		logRejected("refer", err, "caseID", req.CaseID)
		return nil, err
	}
	c.emit(ctx, notify.CaseReferred, cs, nil)
	return cs, nil
}

// close moves an open case into a closing status
func (c *Controller) close(ctx context.Context, id int64, to models.CaseStatus, apply func(*models.Case)) (*models.Case, error) {
	var cs *models.Case
	err := c.Store.WithTx(ctx, func(ctx context.Context, tx databases.Tx) error {
		var err error
		if cs, err = openCase(ctx, tx, id); err != nil {
			return err
		}
		if !CanEnter(cs.Status, to) {
			return apperr.Statef("case %d cannot move from %s to %s", id, cs.Status, to)
		}
		apply(cs)
		cs.Status = to
		cs.UpdatedAt = c.now()
		return tx.UpdateCase(ctx, cs)
	})
	return cs, err
}

// Overview is everything staff need to see about one case
type Overview struct {
	Case *models.Case `json:"case"`
	// Session is the live session of the case's current stage
	Session     *models.Session           `json:"session,omitempty"`
	Reschedules []models.RescheduleRecord `json:"reschedules"`
	Settlement  *models.Settlement        `json:"settlement,omitempty"`
	DaysElapsed *int                      `json:"daysElapsed,omitempty"`
	Light       Light                     `json:"light,omitempty"`
}

// CaseOverview loads a case with its active session, that session's reschedule chain,
// its settlement, and the time elapsed on the current stage
func (c *Controller) CaseOverview(ctx context.Context, id int64) (*Overview, error) {
	ov := &Overview{Reschedules: []models.RescheduleRecord{}}
	var history []models.RescheduleRecord
	err := c.Store.WithTx(ctx, func(ctx context.Context, tx databases.Tx) error {
		cs, err := tx.FindCase(ctx, id)
		if err != nil {
			return err
		}
		ov.Case = cs

		st, err := tx.FindSettlement(ctx, id)
		switch {
		case err == nil:
			ov.Settlement = st
		case !apperr.Is(err, apperr.NotFound):
			return err
		}

		stage, ok := cs.Status.Stage()
		if !ok {
			return nil
		}
		s, err := tx.ActiveSession(ctx, id, stage)
		if apperr.Is(err, apperr.NotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		ov.Session = s

		chain, err := tx.Reschedules(ctx, s.ID)
		if err != nil {
			return err
		}
		if chain != nil {
			ov.Reschedules = chain
		}
		history, err = tx.RescheduleHistory(ctx, s.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if ov.Session != nil {
		days := DaysElapsed(*ov.Session, history, c.now(), c.Location, c.ElapsedCap)
		ov.DaysElapsed = &days
		ov.Light = LightFor(days)
	}
	return ov, nil
}
