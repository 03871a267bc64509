package lifecycle_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linesmerrill/dispute-case-api/apperr"
	"github.com/linesmerrill/dispute-case-api/databases"
	"github.com/linesmerrill/dispute-case-api/lifecycle"
	"github.com/linesmerrill/dispute-case-api/models"
	"github.com/linesmerrill/dispute-case-api/notify"
)

func TestFileCaseNumbersPerYear(t *testing.T) {
	f := newFixture(t)
	a := f.fileCase("First")
	b := f.fileCase("Second")
	assert.Equal(t, int64(2025001), a.ID)
	assert.Equal(t, int64(2025002), b.ID)
	assert.Equal(t, models.StatusPending, a.Status)

	f.setNow(time.Date(2026, 1, 2, 8, 0, 0, 0, office))
	assert.Equal(t, int64(2026001), f.fileCase("New year").ID)
}

func TestFileCaseValidation(t *testing.T) {
	f := newFixture(t)
	_, err := f.ctl.FileCase(context.Background(), lifecycle.FileCaseRequest{Nature: "civil"})
	require.Error(t, err)
	assert.Equal(t, apperr.Validation, apperr.KindOf(err))
	assert.Contains(t, err.Error(), "title")
}

func TestFileCaseStoreFailure(t *testing.T) {
	f := newFixture(t)
	f.store.FailOn("InsertCase", errors.New("unavailable"))
	_, err := f.ctl.FileCase(context.Background(), lifecycle.FileCaseRequest{
		Title: "x", Nature: "civil", ComplainantRef: "a", RespondentRef: "b",
	})
	assert.Equal(t, apperr.Infrastructure, apperr.KindOf(err))
	f.store.FailOn("InsertCase", nil)

	// the failed attempt did not consume a number
	assert.Equal(t, int64(2025001), f.fileCase("retry").ID)
}

func TestWithdrawAndRefer(t *testing.T) {
	f := newFixture(t)
	w := f.fileCase("Withdrawn")
	r := f.fileCase("Referred")

	got, err := f.ctl.Withdraw(context.Background(), lifecycle.WithdrawRequest{CaseID: w.ID, Reason: "settled privately"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusWithdrawn, got.Status)
	require.NotNil(t, got.WithdrawnAt)
	assert.Equal(t, "settled privately", got.ClosingRemarks)

	got, err = f.ctl.Refer(context.Background(), lifecycle.ReferRequest{CaseID: r.ID, Agency: "Municipal Trial Court"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusReferred, got.Status)
	assert.Equal(t, "Municipal Trial Court", got.ReferralAgency)
	require.NotNil(t, got.ReferredAt)

	_, err = f.ctl.Refer(context.Background(), lifecycle.ReferRequest{CaseID: w.ID, Agency: "Court"})
	assert.Equal(t, apperr.State, apperr.KindOf(err))
	_, err = f.ctl.Withdraw(context.Background(), lifecycle.WithdrawRequest{CaseID: r.ID, Reason: "x"})
	assert.Equal(t, apperr.State, apperr.KindOf(err))
	_, err = f.ctl.Withdraw(context.Background(), lifecycle.WithdrawRequest{CaseID: 2025404, Reason: "x"})
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))

	assert.Contains(t, f.notes.tags(), notify.CaseWithdrawn)
	assert.Contains(t, f.notes.tags(), notify.CaseReferred)
}

func TestSettle(t *testing.T) {
	f := newFixture(t)
	cs := f.fileCase("Settle")
	f.mustSchedule(cs.ID, models.StageConciliation, "2025-06-10", "09:00")

	st, err := f.ctl.Settle(context.Background(), lifecycle.SettleRequest{
		CaseID: cs.ID, Stage: "conciliation", Agreements: "respondent repairs the fence", SettledOn: "2025-06-10",
	})
	require.NoError(t, err)
	assert.Equal(t, models.StageConciliation, st.Type)
	assert.Equal(t, "2025-06-10", st.SettledOn.Format("2006-01-02"))
	assert.Equal(t, models.StatusSettled, f.caseByID(cs.ID).Status)

	_, err = f.ctl.Settle(context.Background(), lifecycle.SettleRequest{
		CaseID: cs.ID, Stage: "conciliation", Agreements: "again",
	})
	assert.Equal(t, apperr.State, apperr.KindOf(err))
	assert.Contains(t, err.Error(), "already settled")

	_, err = f.schedule(cs.ID, models.StageArbitration, "2025-06-20", "09:00")
	assert.Equal(t, apperr.State, apperr.KindOf(err))
}

func TestSettleRejections(t *testing.T) {
	f := newFixture(t)
	cs := f.fileCase("Closed")
	_, err := f.ctl.Withdraw(context.Background(), lifecycle.WithdrawRequest{CaseID: cs.ID, Reason: "x"})
	require.NoError(t, err)

	tests := []struct {
		name string
		req  lifecycle.SettleRequest
		kind apperr.Kind
	}{
		{"withdrawn case", lifecycle.SettleRequest{CaseID: cs.ID, Stage: "mediation", Agreements: "a"}, apperr.State},
		{"unknown case", lifecycle.SettleRequest{CaseID: 2025777, Stage: "mediation", Agreements: "a"}, apperr.NotFound},
		{"unknown stage", lifecycle.SettleRequest{CaseID: cs.ID, Stage: "court", Agreements: "a"}, apperr.Validation},
		{"no agreements", lifecycle.SettleRequest{CaseID: cs.ID, Stage: "mediation"}, apperr.Validation},
		{"bad date", lifecycle.SettleRequest{CaseID: cs.ID, Stage: "mediation", Agreements: "a", SettledOn: "June 10"}, apperr.Validation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.ctl.Settle(context.Background(), tt.req)
			assert.Equal(t, tt.kind, apperr.KindOf(err))
		})
	}
}

func TestCaseOverview(t *testing.T) {
	f := newFixture(t)
	cs := f.fileCase("Overview")

	ov, err := f.ctl.CaseOverview(context.Background(), cs.ID)
	require.NoError(t, err)
	assert.Nil(t, ov.Session)
	assert.Nil(t, ov.DaysElapsed)
	assert.Empty(t, ov.Reschedules)

	s := f.mustSchedule(cs.ID, models.StageMediation, "2025-06-02", "09:00")
	_, err = f.ctl.RescheduleSession(context.Background(), lifecycle.RescheduleRequest{
		SessionID: s.ID, Date: "2025-06-05", Time: "10:00", Reason: "r",
	})
	require.NoError(t, err)
	f.setNow(time.Date(2025, 6, 11, 9, 0, 0, 0, office))

	ov, err = f.ctl.CaseOverview(context.Background(), cs.ID)
	require.NoError(t, err)
	require.NotNil(t, ov.Session)
	assert.Equal(t, s.ID, ov.Session.ID)
	assert.Len(t, ov.Reschedules, 2)
	require.NotNil(t, ov.DaysElapsed)
	assert.Equal(t, 9, *ov.DaysElapsed, "counted from the first scheduled date")
	assert.Equal(t, lifecycle.Yellow, ov.Light)

	_, err = f.ctl.Settle(context.Background(), lifecycle.SettleRequest{CaseID: cs.ID, Stage: "mediation", Agreements: "a"})
	require.NoError(t, err)
	ov, err = f.ctl.CaseOverview(context.Background(), cs.ID)
	require.NoError(t, err)
	assert.NotNil(t, ov.Settlement)
	assert.Nil(t, ov.Session)

	_, err = f.ctl.CaseOverview(context.Background(), 1)
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))
}

func TestCaseOverviewElapsedSurvivesDeletedHistory(t *testing.T) {
	f := newFixture(t)
	cs := f.fileCase("Long running")
	s := f.mustSchedule(cs.ID, models.StageMediation, "2025-06-02", "09:00")
	_, err := f.ctl.RescheduleSession(context.Background(), lifecycle.RescheduleRequest{
		SessionID: s.ID, Date: "2025-06-09", Time: "10:00", Reason: "r",
	})
	require.NoError(t, err)
	f.setNow(time.Date(2025, 6, 10, 9, 0, 0, 0, office))

	ov, err := f.ctl.CaseOverview(context.Background(), cs.ID)
	require.NoError(t, err)
	require.NotNil(t, ov.DaysElapsed)
	assert.Equal(t, 8, *ov.DaysElapsed)

	initial := f.chain(s.ID)[0]
	require.Equal(t, models.InitialSessionReason, initial.Reason)
	require.NoError(t, f.ctl.SoftDeleteReschedule(context.Background(), initial.ID))

	ov, err = f.ctl.CaseOverview(context.Background(), cs.ID)
	require.NoError(t, err)
	assert.Len(t, ov.Reschedules, 1)
	require.NotNil(t, ov.DaysElapsed)
	assert.Equal(t, 8, *ov.DaysElapsed, "deleting history does not reset the clock")
}

func TestLegacySettledCaseIsClosed(t *testing.T) {
	f := newFixture(t)
	f.read(func(ctx context.Context, tx databases.Tx) error {
		return tx.InsertCase(ctx, &models.Case{ID: 2024042, Title: "Imported", Status: "Settled"})
	})

	cs := f.caseByID(2024042)
	assert.Equal(t, models.StatusSettled, cs.Status)

	_, err := f.schedule(2024042, models.StageMediation, "2025-06-10", "09:00")
	assert.Equal(t, apperr.State, apperr.KindOf(err))
	assert.Empty(t, f.bookings("2025-06-10"))

	_, err = f.ctl.Withdraw(context.Background(), lifecycle.WithdrawRequest{CaseID: 2024042, Reason: "r"})
	assert.Equal(t, apperr.State, apperr.KindOf(err))
}

func TestUnknownStoredStatusIsInfrastructure(t *testing.T) {
	f := newFixture(t)
	f.read(func(ctx context.Context, tx databases.Tx) error {
		return tx.InsertCase(ctx, &models.Case{ID: 2024043, Title: "Corrupt", Status: "archived"})
	})

	_, err := f.schedule(2024043, models.StageMediation, "2025-06-10", "09:00")
	assert.Equal(t, apperr.Infrastructure, apperr.KindOf(err))
}
