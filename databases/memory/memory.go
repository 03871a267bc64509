// Package memory is an in-process implementation of databases.Store. Transactions are
// serialized by a single mutex and applied copy-on-write, so a failed unit of work leaves
// no trace. It backs the test suites and STORE_DRIVER=memory.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/linesmerrill/dispute-case-api/apperr"
	"github.com/linesmerrill/dispute-case-api/databases"
	"github.com/linesmerrill/dispute-case-api/models"
)

type state struct {
	counters    map[int]int64
	cases       map[int64]models.Case
	sessions    map[string]models.Session
	reschedules map[string]models.RescheduleRecord
	chains      map[string][]string
	docs        map[string][]models.Documentation
	settlements map[int64]models.Settlement
}

func newState() *state {
	return &state{
		counters:    map[int]int64{},
		cases:       map[int64]models.Case{},
		sessions:    map[string]models.Session{},
		reschedules: map[string]models.RescheduleRecord{},
		chains:      map[string][]string{},
		docs:        map[string][]models.Documentation{},
		settlements: map[int64]models.Settlement{},
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.counters {
		c.counters[k] = v
	}
	for k, v := range s.cases {
		c.cases[k] = v
	}
	for k, v := range s.sessions {
		c.sessions[k] = v
	}
	for k, v := range s.reschedules {
		c.reschedules[k] = v
	}
	for k, v := range s.chains {
		c.chains[k] = append([]string(nil), v...)
	}
	for k, v := range s.docs {
		c.docs[k] = append([]models.Documentation(nil), v...)
	}
	for k, v := range s.settlements {
		c.settlements[k] = v
	}
	return c
}

// Store is an in-memory databases.Store
type Store struct {
	mu       sync.Mutex
	st       *state
	failures map[string]error
}

var _ databases.Store = (*Store)(nil)

// New returns an empty store
func New() *Store {
	return &Store{st: newState(), failures: map[string]error{}}
}

// FailOn makes the named Tx method fail with err until cleared with a nil err
func (s *Store) FailOn(method string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, method)
		return
	}
	s.failures[method] = err
}

// WithTx runs fn against a private copy of the data and publishes it if fn succeeds
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx databases.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return apperr.Infra(err, "failed to start transaction")
	}
	work := s.st.clone()
	if err := fn(ctx, &tx{st: work, failures: s.failures}); err != nil {
		return err
	}
	s.st = work
	return nil
}

// Close is a no-op
func (s *Store) Close(ctx context.Context) error {
	return nil
}

type tx struct {
	st       *state
	failures map[string]error
}

func (t *tx) fail(method string) error {
	if err, ok := t.failures[method]; ok {
		return apperr.Infra(err, method+" failed")
	}
	return nil
}

func (t *tx) NextCaseSequence(ctx context.Context, year int) (int64, error) {
	if err := t.fail("NextCaseSequence"); err != nil {
		return 0, err
	}
	t.st.counters[year]++
	return t.st.counters[year], nil
}

func (t *tx) InsertCase(ctx context.Context, c *models.Case) error {
	if err := t.fail("InsertCase"); err != nil {
		return err
	}
	if _, ok := t.st.cases[c.ID]; ok {
		return apperr.New(apperr.Conflict, "case %d already exists", c.ID)
	}
	t.st.cases[c.ID] = *c
	return nil
}

func (t *tx) FindCase(ctx context.Context, id int64) (*models.Case, error) {
	if err := t.fail("FindCase"); err != nil {
		return nil, err
	}
	c, ok := t.st.cases[id]
	if !ok {
		return nil, apperr.NotFoundf("case %d not found", id)
	}
	if err := c.NormalizeStatus(); err != nil {
		return nil, apperr.Infra(err, fmt.Sprintf("case %d has an unreadable status", id))
	}
	return &c, nil
}

func (t *tx) UpdateCase(ctx context.Context, c *models.Case) error {
	if err := t.fail("UpdateCase"); err != nil {
		return err
	}
	if _, ok := t.st.cases[c.ID]; !ok {
		return apperr.NotFoundf("case %d not found", c.ID)
	}
	t.st.cases[c.ID] = *c
	return nil
}

// LockDay is a no-op: the store mutex already serializes every transaction
func (t *tx) LockDay(ctx context.Context, date string) error {
	return t.fail("LockDay")
}

func (t *tx) BookingsOn(ctx context.Context, date string) ([]models.Booking, error) {
	if err := t.fail("BookingsOn"); err != nil {
		return nil, err
	}
	var out []models.Booking
	for _, s := range t.st.sessions {
		if !s.Deleted && s.ScheduledDate == date {
			out = append(out, s.Booking())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Minute < out[j].Minute })
	return out, nil
}

func (t *tx) FindSession(ctx context.Context, id string) (*models.Session, error) {
	if err := t.fail("FindSession"); err != nil {
		return nil, err
	}
	s, ok := t.st.sessions[id]
	if !ok {
		return nil, apperr.NotFoundf("session %s not found", id)
	}
	return &s, nil
}

func (t *tx) ActiveSession(ctx context.Context, caseID int64, stage models.Stage) (*models.Session, error) {
	if err := t.fail("ActiveSession"); err != nil {
		return nil, err
	}
	var found *models.Session
	for _, s := range t.st.sessions {
		if s.CaseID != caseID || s.Stage != stage || s.Deleted {
			continue
		}
		s := s
		if found == nil || s.CreatedAt.After(found.CreatedAt) {
			found = &s
		}
	}
	if found == nil {
		return nil, apperr.NotFoundf("no live %s session for case %d", stage, caseID)
	}
	return found, nil
}

func (t *tx) InsertSession(ctx context.Context, s *models.Session) error {
	if err := t.fail("InsertSession"); err != nil {
		return err
	}
	if err := t.uniqueSlot(s); err != nil {
		return err
	}
	t.st.sessions[s.ID] = *s
	return nil
}

func (t *tx) UpdateSessionSlot(ctx context.Context, s *models.Session) error {
	if err := t.fail("UpdateSessionSlot"); err != nil {
		return err
	}
	cur, ok := t.st.sessions[s.ID]
	if !ok {
		return apperr.NotFoundf("session %s not found", s.ID)
	}
	if err := t.uniqueSlot(s); err != nil {
		return err
	}
	cur.ScheduledDate = s.ScheduledDate
	cur.ScheduledTime = s.ScheduledTime
	cur.ScheduledMinute = s.ScheduledMinute
	cur.Panel = s.Panel
	cur.UpdatedAt = s.UpdatedAt
	t.st.sessions[s.ID] = cur
	return nil
}

// uniqueSlot mirrors the (date, minute) unique index the database backends keep on live sessions
func (t *tx) uniqueSlot(s *models.Session) error {
	for id, other := range t.st.sessions {
		if id == s.ID || other.Deleted {
			continue
		}
		if other.ScheduledDate == s.ScheduledDate && other.ScheduledMinute == s.ScheduledMinute {
			return apperr.New(apperr.Conflict, "%s at %s is already booked", s.ScheduledDate, s.ScheduledTime)
		}
	}
	return nil
}

func (t *tx) SoftDeleteSessions(ctx context.Context, caseID int64, stage models.Stage, at time.Time) (int64, error) {
	if err := t.fail("SoftDeleteSessions"); err != nil {
		return 0, err
	}
	var n int64
	for id, s := range t.st.sessions {
		if s.CaseID != caseID || s.Stage != stage || s.Deleted {
			continue
		}
		deletedAt := at
		s.Deleted = true
		s.DeletedAt = &deletedAt
		s.UpdatedAt = at
		t.st.sessions[id] = s
		n++
	}
	return n, nil
}

func (t *tx) PurgeSession(ctx context.Context, id string) error {
	if err := t.fail("PurgeSession"); err != nil {
		return err
	}
	if _, ok := t.st.sessions[id]; !ok {
		return apperr.NotFoundf("session %s not found", id)
	}
	for _, rid := range t.st.chains[id] {
		delete(t.st.reschedules, rid)
		delete(t.st.docs, rid)
	}
	delete(t.st.chains, id)
	delete(t.st.sessions, id)
	return nil
}

func (t *tx) Reschedules(ctx context.Context, sessionID string) ([]models.RescheduleRecord, error) {
	if err := t.fail("Reschedules"); err != nil {
		return nil, err
	}
	var out []models.RescheduleRecord
	for _, rid := range t.st.chains[sessionID] {
		r := t.st.reschedules[rid]
		if r.Deleted {
			continue
		}
		r.Documentation = append([]models.Documentation{}, t.st.docs[rid]...)
		out = append(out, r)
	}
	return out, nil
}

func (t *tx) RescheduleHistory(ctx context.Context, sessionID string) ([]models.RescheduleRecord, error) {
	if err := t.fail("RescheduleHistory"); err != nil {
		return nil, err
	}
	out := make([]models.RescheduleRecord, 0, len(t.st.chains[sessionID]))
	for _, rid := range t.st.chains[sessionID] {
		out = append(out, t.st.reschedules[rid])
	}
	return out, nil
}

func (t *tx) FindReschedule(ctx context.Context, id string) (*models.RescheduleRecord, error) {
	if err := t.fail("FindReschedule"); err != nil {
		return nil, err
	}
	r, ok := t.st.reschedules[id]
	if !ok || r.Deleted {
		return nil, apperr.NotFoundf("reschedule %s not found", id)
	}
	r.Documentation = append([]models.Documentation{}, t.st.docs[id]...)
	return &r, nil
}

func (t *tx) InsertReschedule(ctx context.Context, r *models.RescheduleRecord) error {
	if err := t.fail("InsertReschedule"); err != nil {
		return err
	}
	stored := *r
	stored.Documentation = nil
	t.st.reschedules[r.ID] = stored
	t.st.chains[r.SessionID] = append(t.st.chains[r.SessionID], r.ID)
	return nil
}

func (t *tx) UpdateRescheduleMinutes(ctx context.Context, id string, minutes *string) error {
	if err := t.fail("UpdateRescheduleMinutes"); err != nil {
		return err
	}
	r, ok := t.st.reschedules[id]
	if !ok || r.Deleted {
		return apperr.NotFoundf("reschedule %s not found", id)
	}
	r.Minutes = minutes
	t.st.reschedules[id] = r
	return nil
}

func (t *tx) SoftDeleteReschedule(ctx context.Context, id string, at time.Time) error {
	if err := t.fail("SoftDeleteReschedule"); err != nil {
		return err
	}
	r, ok := t.st.reschedules[id]
	if !ok || r.Deleted {
		return apperr.NotFoundf("reschedule %s not found", id)
	}
	r.Deleted = true
	r.DeletedAt = &at
	t.st.reschedules[id] = r
	return nil
}

func (t *tx) InsertDocumentation(ctx context.Context, docs []models.Documentation) error {
	if err := t.fail("InsertDocumentation"); err != nil {
		return err
	}
	for _, d := range docs {
		t.st.docs[d.RescheduleID] = append(t.st.docs[d.RescheduleID], d)
	}
	return nil
}

func (t *tx) FindSettlement(ctx context.Context, caseID int64) (*models.Settlement, error) {
	if err := t.fail("FindSettlement"); err != nil {
		return nil, err
	}
	s, ok := t.st.settlements[caseID]
	if !ok {
		return nil, apperr.NotFoundf("no settlement for case %d", caseID)
	}
	return &s, nil
}

func (t *tx) InsertSettlement(ctx context.Context, s *models.Settlement) error {
	if err := t.fail("InsertSettlement"); err != nil {
		return err
	}
	if _, ok := t.st.settlements[s.CaseID]; ok {
		return apperr.Statef("case %d is already settled", s.CaseID)
	}
	t.st.settlements[s.CaseID] = *s
	return nil
}
