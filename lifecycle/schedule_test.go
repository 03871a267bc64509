package lifecycle_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linesmerrill/dispute-case-api/apperr"
	"github.com/linesmerrill/dispute-case-api/calendar"
	"github.com/linesmerrill/dispute-case-api/databases"
	"github.com/linesmerrill/dispute-case-api/lifecycle"
	"github.com/linesmerrill/dispute-case-api/models"
	"github.com/linesmerrill/dispute-case-api/notify"
)

func TestScheduleStageSharedPool(t *testing.T) {
	f := newFixture(t)
	first := f.fileCase("Boundary dispute")
	second := f.fileCase("Unpaid loan")
	require.Equal(t, int64(2025001), first.ID)

	s := f.mustSchedule(first.ID, models.StageMediation, "2025-06-10", "09:00")
	assert.Equal(t, "09:00", s.ScheduledTime)
	assert.Equal(t, 540, s.ScheduledMinute)
	assert.Equal(t, models.StatusMediation, f.caseByID(first.ID).Status)

	_, err := f.schedule(second.ID, models.StageConciliation, "2025-06-10", "09:00")
	assert.Equal(t, apperr.Conflict, apperr.KindOf(err))

	_, err = f.schedule(second.ID, models.StageConciliation, "2025-06-10", "09:30")
	assert.Equal(t, apperr.Spacing, apperr.KindOf(err))
	assert.Equal(t, models.StatusPending, f.caseByID(second.ID).Status, "rejected attempts must not move the case")

	f.mustSchedule(second.ID, models.StageConciliation, "2025-06-10", "11:00")

	av, err := f.ctl.Availability(context.Background(), "2025-06-10")
	require.NoError(t, err)
	assert.Equal(t, 2, av.UsedCount)
	assert.Equal(t, []string{"09:00", "11:00"}, av.BookedTimes)
	assert.False(t, av.IsFull)
	assert.Equal(t, models.StatusConciliation, f.caseByID(second.ID).Status)
}

func TestScheduleStageDayFull(t *testing.T) {
	f := newFixture(t)
	for _, at := range []string{"08:00", "10:00", "13:00", "15:00"} {
		cs := f.fileCase("case at " + at)
		f.mustSchedule(cs.ID, models.StageArbitration, "2025-06-10", at)
	}

	late := f.fileCase("late")
	_, err := f.schedule(late.ID, models.StageMediation, "2025-06-10", "17:00")
	assert.Equal(t, apperr.Capacity, apperr.KindOf(err))
	assert.Equal(t, models.StatusPending, f.caseByID(late.ID).Status)

	av, err := f.ctl.Availability(context.Background(), "2025-06-10")
	require.NoError(t, err)
	assert.True(t, av.IsFull)
	assert.Empty(t, av.FreeTimes)
}

func TestScheduleStageMovesExistingSession(t *testing.T) {
	f := newFixture(t)
	cs := f.fileCase("Noise complaint")
	first := f.mustSchedule(cs.ID, models.StageMediation, "2025-06-10", "09:00")

	// its own slot does not count against it
	moved := f.mustSchedule(cs.ID, models.StageMediation, "2025-06-10", "09:30")
	assert.Equal(t, first.ID, moved.ID)
	assert.Len(t, f.bookings("2025-06-10"), 1)
	assert.Equal(t, 570, f.session(first.ID).ScheduledMinute)
}

func TestEnteringConciliationRetiresMediation(t *testing.T) {
	f := newFixture(t)
	cs := f.fileCase("Fence")
	med := f.mustSchedule(cs.ID, models.StageMediation, "2025-06-10", "09:00")

	// the mediation slot is being retired, so it does not block the new session
	con := f.mustSchedule(cs.ID, models.StageConciliation, "2025-06-10", "09:30")

	assert.True(t, f.session(med.ID).Deleted)
	assert.NotNil(t, f.session(med.ID).DeletedAt)
	assert.False(t, f.session(con.ID).Deleted)
	assert.Equal(t, models.StatusConciliation, f.caseByID(cs.ID).Status)
	assert.Equal(t, []models.Booking{con.Booking()}, f.bookings("2025-06-10"))
}

func TestEnteringArbitrationRetiresEarlierStages(t *testing.T) {
	f := newFixture(t)
	cs := f.fileCase("Lot line")
	con := f.mustSchedule(cs.ID, models.StageConciliation, "2025-06-10", "09:00")
	// a mediation session can only coexist if it was booked after conciliation
	med := f.mustSchedule(cs.ID, models.StageMediation, "2025-06-11", "09:00")
	require.True(t, f.session(con.ID).Deleted)

	arb := f.mustSchedule(cs.ID, models.StageArbitration, "2025-06-12", "14:00")

	assert.True(t, f.session(med.ID).Deleted)
	assert.False(t, f.session(arb.ID).Deleted)
	f.read(func(ctx context.Context, tx databases.Tx) error {
		for _, st := range []models.Stage{models.StageMediation, models.StageConciliation} {
			_, err := tx.ActiveSession(ctx, cs.ID, st)
			assert.True(t, apperr.Is(err, apperr.NotFound), st)
		}
		return nil
	})
}

func TestEnteringMediationRetiresFormalStages(t *testing.T) {
	f := newFixture(t)
	cs := f.fileCase("Back to talks")
	arb := f.mustSchedule(cs.ID, models.StageArbitration, "2025-06-10", "09:00")

	med := f.mustSchedule(cs.ID, models.StageMediation, "2025-06-10", "09:00")

	assert.True(t, f.session(arb.ID).Deleted)
	assert.NotEqual(t, arb.ID, med.ID)
	assert.Equal(t, models.StatusMediation, f.caseByID(cs.ID).Status)
}

func TestScheduleStageRejectsBadInput(t *testing.T) {
	f := newFixture(t)
	cs := f.fileCase("Input")

	tests := []struct {
		name string
		req  lifecycle.ScheduleRequest
		kind apperr.Kind
	}{
		{"unknown stage", lifecycle.ScheduleRequest{CaseID: cs.ID, Stage: "trial", Date: "2025-06-10", Time: "09:00"}, apperr.Validation},
		{"bad date", lifecycle.ScheduleRequest{CaseID: cs.ID, Stage: "mediation", Date: "10/06/2025", Time: "09:00"}, apperr.Validation},
		{"bad time", lifecycle.ScheduleRequest{CaseID: cs.ID, Stage: "mediation", Date: "2025-06-10", Time: "9am"}, apperr.Validation},
		{"missing case", lifecycle.ScheduleRequest{Stage: "mediation", Date: "2025-06-10", Time: "09:00"}, apperr.Validation},
		{"panel on mediation", lifecycle.ScheduleRequest{CaseID: cs.ID, Stage: "mediation", Date: "2025-06-10", Time: "09:00", Panel: []string{"A"}}, apperr.Validation},
		{"unknown case", lifecycle.ScheduleRequest{CaseID: 2025999, Stage: "mediation", Date: "2025-06-10", Time: "09:00"}, apperr.NotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.ctl.ScheduleStage(context.Background(), tt.req)
			assert.Equal(t, tt.kind, apperr.KindOf(err))
		})
	}
}

func TestScheduleStageAcceptsPanelAndSeconds(t *testing.T) {
	f := newFixture(t)
	cs := f.fileCase("Panel")
	s, err := f.ctl.ScheduleStage(context.Background(), lifecycle.ScheduleRequest{
		CaseID: cs.ID, Stage: "Conciliation", Date: "2025-06-10", Time: "14:00:00",
		Panel: []string{"Chair", "Member"},
	})
	require.NoError(t, err)
	assert.Equal(t, models.StageConciliation, s.Stage)
	assert.Equal(t, "14:00", s.ScheduledTime)
	assert.Equal(t, []string{"Chair", "Member"}, s.Panel)
}

func TestScheduleStageOnClosedCase(t *testing.T) {
	f := newFixture(t)
	cs := f.fileCase("Closed")
	_, err := f.ctl.Withdraw(context.Background(), lifecycle.WithdrawRequest{CaseID: cs.ID, Reason: "parties reconciled"})
	require.NoError(t, err)

	_, err = f.schedule(cs.ID, models.StageMediation, "2025-06-10", "09:00")
	assert.Equal(t, apperr.State, apperr.KindOf(err))
	assert.Empty(t, f.bookings("2025-06-10"))
}

func TestScheduleStageRollsBackOnStoreFailure(t *testing.T) {
	f := newFixture(t)
	cs := f.fileCase("Rollback")
	med := f.mustSchedule(cs.ID, models.StageMediation, "2025-06-10", "09:00")
	before := len(f.notes.tags())

	f.store.FailOn("UpdateCase", errors.New("disk full"))
	_, err := f.schedule(cs.ID, models.StageConciliation, "2025-06-11", "09:00")
	assert.Equal(t, apperr.Infrastructure, apperr.KindOf(err))
	f.store.FailOn("UpdateCase", nil)

	assert.False(t, f.session(med.ID).Deleted, "retiring mediation must roll back")
	assert.Empty(t, f.bookings("2025-06-11"))
	assert.Equal(t, models.StatusMediation, f.caseByID(cs.ID).Status)
	assert.Len(t, f.notes.tags(), before, "no notification for a rolled back transition")
}

func TestScheduleStageNotifiesParties(t *testing.T) {
	f := newFixture(t)
	cs := f.fileCase("Notify")
	f.mustSchedule(cs.ID, models.StageMediation, "2025-06-10", "09:00")

	assert.Equal(t, []notify.Tag{notify.CaseFiled, notify.SessionScheduled}, f.notes.tags())
	e := f.notes.events[1]
	assert.Equal(t, cs.ID, e.CaseID)
	assert.Equal(t, "mediation", e.Stage)
	assert.Equal(t, "mediation_scheduled", e.Key())
	assert.Equal(t, "2025-06-10", e.Date)
	assert.Equal(t, []string{"resident-1", "resident-2"}, e.Parties)
}

func TestRescheduleSessionScenario(t *testing.T) {
	f := newFixture(t)
	cs := f.fileCase("Boundary dispute")
	s := f.mustSchedule(cs.ID, models.StageMediation, "2025-06-10", "09:00")

	rec, err := f.ctl.RescheduleSession(context.Background(), lifecycle.RescheduleRequest{
		SessionID: s.ID, Date: "2025-06-12", Time: "10:00", Reason: "party unavailable",
	})
	require.NoError(t, err)
	assert.Equal(t, cs.ID, rec.CaseID)
	assert.Equal(t, 2, rec.Sequence)
	assert.Equal(t, "party unavailable", rec.Reason)

	chain := f.chain(s.ID)
	require.Len(t, chain, 2)
	assert.Equal(t, models.InitialSessionReason, chain[0].Reason)
	assert.Equal(t, "2025-06-10", chain[0].Date)
	assert.Equal(t, "09:00", chain[0].Time)
	assert.Equal(t, "2025-06-12", chain[1].Date)

	moved := f.session(s.ID)
	assert.Equal(t, "2025-06-12", moved.ScheduledDate)
	assert.Equal(t, "10:00", moved.ScheduledTime)
	assert.Equal(t, models.StatusMediation, f.caseByID(cs.ID).Status)

	// the old slot is free again
	other := f.fileCase("Other")
	f.mustSchedule(other.ID, models.StageConciliation, "2025-06-10", "09:00")

	// a second move appends without another initial record
	rec, err = f.ctl.RescheduleSession(context.Background(), lifecycle.RescheduleRequest{
		SessionID: s.ID, Date: "2025-06-13", Time: "15:00", Reason: "typhoon",
	})
	require.NoError(t, err)
	assert.Equal(t, 3, rec.Sequence)
	assert.Len(t, f.chain(s.ID), 3)
	assert.Contains(t, f.notes.tags(), notify.SessionRescheduled)
}

func TestRescheduleSessionValidatesSlot(t *testing.T) {
	f := newFixture(t)
	a := f.fileCase("A")
	b := f.fileCase("B")
	sa := f.mustSchedule(a.ID, models.StageMediation, "2025-06-10", "09:00")
	f.mustSchedule(b.ID, models.StageMediation, "2025-06-12", "10:00")

	_, err := f.ctl.RescheduleSession(context.Background(), lifecycle.RescheduleRequest{
		SessionID: sa.ID, Date: "2025-06-12", Time: "10:00", Reason: "r",
	})
	assert.Equal(t, apperr.Conflict, apperr.KindOf(err))

	_, err = f.ctl.RescheduleSession(context.Background(), lifecycle.RescheduleRequest{
		SessionID: sa.ID, Date: "2025-06-12", Time: "10:45", Reason: "r",
	})
	assert.Equal(t, apperr.Spacing, apperr.KindOf(err))
	assert.Empty(t, f.chain(sa.ID), "a rejected move leaves no history")

	// moving within its own day ignores its current slot
	_, err = f.ctl.RescheduleSession(context.Background(), lifecycle.RescheduleRequest{
		SessionID: sa.ID, Date: "2025-06-10", Time: "09:30", Reason: "later start",
	})
	assert.NoError(t, err)
}

func TestRescheduleSessionNotFound(t *testing.T) {
	f := newFixture(t)
	cs := f.fileCase("Gone")
	med := f.mustSchedule(cs.ID, models.StageMediation, "2025-06-10", "09:00")
	f.mustSchedule(cs.ID, models.StageConciliation, "2025-06-11", "09:00")

	for _, id := range []string{"missing", med.ID} {
		_, err := f.ctl.RescheduleSession(context.Background(), lifecycle.RescheduleRequest{
			SessionID: id, Date: "2025-06-12", Time: "10:00", Reason: "r",
		})
		assert.Equal(t, apperr.NotFound, apperr.KindOf(err), id)
	}

	_, err := f.ctl.RescheduleSession(context.Background(), lifecycle.RescheduleRequest{SessionID: med.ID})
	assert.Equal(t, apperr.Validation, apperr.KindOf(err))
}

// Whatever order requests arrive in, a day never holds more than the capacity and no two
// live sessions sit closer than the minimum spacing.
func TestPoolInvariantsHold(t *testing.T) {
	f := newFixture(t)
	rules := calendar.DefaultRules()
	for m := 8 * 60; m < 17*60; m += 15 {
		cs := f.fileCase(fmt.Sprintf("case %d", m))
		stage := models.Stages[(m/15)%3]
		_, _ = f.schedule(cs.ID, stage, "2025-06-10", calendar.Clock(m).String())
	}
	assertPool(t, f.bookings("2025-06-10"), rules)
}

func TestConcurrentBookingsRespectPool(t *testing.T) {
	f := newFixture(t)
	rules := calendar.DefaultRules()

	var cases []*models.Case
	for i := 0; i < 12; i++ {
		cases = append(cases, f.fileCase(fmt.Sprintf("race %d", i)))
	}

	var wg sync.WaitGroup
	for i, cs := range cases {
		wg.Add(1)
		go func(i int, id int64) {
			defer wg.Done()
			at := calendar.Clock(8*60 + (i%6)*30).String()
			_, _ = f.schedule(id, models.StageMediation, "2025-06-10", at)
		}(i, cs.ID)
	}
	wg.Wait()

	got := f.bookings("2025-06-10")
	assert.NotEmpty(t, got)
	assertPool(t, got, rules)
}

func assertPool(t *testing.T, bookings []models.Booking, rules calendar.Rules) {
	t.Helper()
	assert.LessOrEqual(t, len(bookings), rules.Capacity)
	for i := range bookings {
		for j := i + 1; j < len(bookings); j++ {
			gap := bookings[i].Minute - bookings[j].Minute
			if gap < 0 {
				gap = -gap
			}
			assert.GreaterOrEqual(t, gap, rules.MinSpacing, "%v vs %v", bookings[i], bookings[j])
		}
	}
}
