package lifecycle_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/linesmerrill/dispute-case-api/databases"
	"github.com/linesmerrill/dispute-case-api/databases/memory"
	"github.com/linesmerrill/dispute-case-api/documents"
	"github.com/linesmerrill/dispute-case-api/lifecycle"
	"github.com/linesmerrill/dispute-case-api/models"
	"github.com/linesmerrill/dispute-case-api/notify"
)

var office = time.FixedZone("PHT", 8*60*60)

type recorder struct {
	mu     sync.Mutex
	events []notify.Event
}

func (r *recorder) Notify(ctx context.Context, e notify.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) tags() []notify.Tag {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]notify.Tag, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Tag)
	}
	return out
}

type mockStorage struct {
	mock.Mock
}

func (m *mockStorage) Save(ctx context.Context, sessionID string, up documents.Upload) (string, error) {
	args := m.Called(ctx, sessionID, up)
	return args.String(0), args.Error(1)
}

type fixture struct {
	t     *testing.T
	store *memory.Store
	ctl   *lifecycle.Controller
	notes *recorder
	docs  *mockStorage

	mu  sync.Mutex
	now time.Time
	ids int
}

func newFixture(t *testing.T) *fixture {
	f := &fixture{
		t:     t,
		store: memory.New(),
		notes: &recorder{},
		docs:  &mockStorage{},
		now:   time.Date(2025, 6, 1, 10, 0, 0, 0, office),
	}
	f.ctl = lifecycle.New(f.store)
	f.ctl.Notifier = f.notes
	f.ctl.Documents = f.docs
	f.ctl.Location = office
	f.ctl.Now = func() time.Time {
		f.mu.Lock()
		defer f.mu.Unlock()
		return f.now
	}
	f.ctl.NewID = func() string {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.ids++
		return fmt.Sprintf("id-%03d", f.ids)
	}
	return f
}

func (f *fixture) setNow(t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = t
}

func (f *fixture) fileCase(title string) *models.Case {
	f.t.Helper()
	cs, err := f.ctl.FileCase(context.Background(), lifecycle.FileCaseRequest{
		Title:          title,
		Nature:         "civil",
		ComplainantRef: "resident-1",
		RespondentRef:  "resident-2",
	})
	require.NoError(f.t, err)
	return cs
}

func (f *fixture) schedule(caseID int64, stage models.Stage, date, at string) (*models.Session, error) {
	return f.ctl.ScheduleStage(context.Background(), lifecycle.ScheduleRequest{
		CaseID: caseID,
		Stage:  string(stage),
		Date:   date,
		Time:   at,
	})
}

func (f *fixture) mustSchedule(caseID int64, stage models.Stage, date, at string) *models.Session {
	f.t.Helper()
	s, err := f.schedule(caseID, stage, date, at)
	require.NoError(f.t, err)
	return s
}

// read runs fn against the store outside the controller
func (f *fixture) read(fn func(ctx context.Context, tx databases.Tx) error) {
	f.t.Helper()
	require.NoError(f.t, f.store.WithTx(context.Background(), fn))
}

func (f *fixture) caseByID(id int64) *models.Case {
	var cs *models.Case
	f.read(func(ctx context.Context, tx databases.Tx) error {
		var err error
		cs, err = tx.FindCase(ctx, id)
		return err
	})
	return cs
}

func (f *fixture) session(id string) *models.Session {
	var s *models.Session
	f.read(func(ctx context.Context, tx databases.Tx) error {
		var err error
		s, err = tx.FindSession(ctx, id)
		return err
	})
	return s
}

func (f *fixture) chain(sessionID string) []models.RescheduleRecord {
	var chain []models.RescheduleRecord
	f.read(func(ctx context.Context, tx databases.Tx) error {
		var err error
		chain, err = tx.Reschedules(ctx, sessionID)
		return err
	})
	return chain
}

func (f *fixture) bookings(date string) []models.Booking {
	var out []models.Booking
	f.read(func(ctx context.Context, tx databases.Tx) error {
		var err error
		out, err = tx.BookingsOn(ctx, date)
		return err
	})
	return out
}
