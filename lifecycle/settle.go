package lifecycle

import (
	"context"

	"go.uber.org/zap"

	"github.com/linesmerrill/dispute-case-api/apperr"
	"github.com/linesmerrill/dispute-case-api/calendar"
	"github.com/linesmerrill/dispute-case-api/databases"
	"github.com/linesmerrill/dispute-case-api/models"
	"github.com/linesmerrill/dispute-case-api/notify"
)

// Settle records the settlement that closes a case. A case settles once: a second call
// is rejected and never writes another settlement.
func (c *Controller) Settle(ctx context.Context, req SettleRequest) (*models.Settlement, error) {
	if err := c.check(req); err != nil {
		return nil, err
	}
	stage, err := models.ParseStage(req.Stage)
	if err != nil {
		return nil, apperr.Wrap(apperr.Validation, err, "invalid settlement type")
	}
	now := c.now()
	settledOn := now
	if req.SettledOn != "" {
		if settledOn, err = calendar.ParseDate(req.SettledOn, c.Location); err != nil {
			return nil, apperr.Wrap(apperr.Validation, err, "invalid settlement date")
		}
	}

	var (
		st *models.Settlement
		cs *models.Case
	)
	err = c.Store.WithTx(ctx, func(ctx context.Context, tx databases.Tx) error {
		_, err := tx.FindSettlement(ctx, req.CaseID)
		switch {
		case err == nil:
			return apperr.Statef("case %d is already settled", req.CaseID)
		case !apperr.Is(err, apperr.NotFound):
			return err
		}

		if cs, err = openCase(ctx, tx, req.CaseID); err != nil {
			return err
		}
		st = &models.Settlement{
			ID:         c.NewID(),
			CaseID:     req.CaseID,
			Type:       stage,
			SettledOn:  settledOn,
			Agreements: req.Agreements,
			Remarks:    req.Remarks,
			CreatedAt:  now,
		}
		if err := tx.InsertSettlement(ctx, st); err != nil {
			return err
		}
		cs.Status = models.StatusSettled
		cs.UpdatedAt = now
		return tx.UpdateCase(ctx, cs)
	})
	if err != nil {
		logRejected("settle", err, "caseID", req.CaseID)
		return nil, err
	}

	zap.S().Infow("case settled", "caseID", req.CaseID, "type", stage)
	c.emit(ctx, notify.CaseSettled, cs, nil)
	return st, nil
}
