// Package lifecycle moves a case through its hearing stages. It owns the transition
// rules, books and moves session slots against the shared daily pool, keeps each
// session's reschedule chain, and closes cases by settlement, withdrawal or referral.
// Every operation runs as a single unit of work on the store; notifications go out only
// after it commits.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/linesmerrill/dispute-case-api/apperr"
	"github.com/linesmerrill/dispute-case-api/calendar"
	"github.com/linesmerrill/dispute-case-api/databases"
	"github.com/linesmerrill/dispute-case-api/documents"
	"github.com/linesmerrill/dispute-case-api/models"
	"github.com/linesmerrill/dispute-case-api/notify"
)

// DefaultElapsedCap is the most days TimeElapsed ever reports
const DefaultElapsedCap = 15

// Controller runs the case lifecycle operations
type Controller struct {
	Store     databases.Store
	Notifier  notify.Notifier
	Documents documents.Storage
	Rules     calendar.Rules
	// Location is the office timezone session dates and times are read in
	Location   *time.Location
	ElapsedCap int
	Now        func() time.Time
	NewID      func() string

	validate *validator.Validate
}

// New returns a controller over store with the default rules, no notifications and no
// document storage. Callers replace the exported fields they need before first use.
func New(store databases.Store) *Controller {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Controller{
		Store:      store,
		Notifier:   notify.Nop{},
		Rules:      calendar.DefaultRules(),
		Location:   time.Local,
		ElapsedCap: DefaultElapsedCap,
		Now:        time.Now,
		NewID:      uuid.NewString,
		validate:   v,
	}
}

func (c *Controller) now() time.Time {
	return c.Now().In(c.Location)
}

// check runs the struct validation tags on req
func (c *Controller) check(req interface{}) error {
	err := c.validate.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Wrap(apperr.Validation, err, "invalid request")
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			fields = append(fields, fmt.Sprintf("%s must satisfy %s=%s", fe.Field(), fe.Tag(), fe.Param()))
			continue
		}
		fields = append(fields, fmt.Sprintf("%s must satisfy %s", fe.Field(), fe.Tag()))
	}
	return apperr.Validationf("invalid request: %s", strings.Join(fields, "; "))
}

// slot parses and validates a requested date and time
func (c *Controller) slot(date, at string) (string, calendar.Clock, error) {
	d, err := calendar.ParseDate(date, c.Location)
	if err != nil {
		return "", 0, apperr.Wrap(apperr.Validation, err, "invalid date")
	}
	clock, err := calendar.ParseClock(at)
	if err != nil {
		return "", 0, apperr.Wrap(apperr.Validation, err, "invalid time")
	}
	return d.Format(calendar.DateLayout), clock, nil
}

// openCase loads a case and rejects it when it has already been closed
func openCase(ctx context.Context, tx databases.Tx, id int64) (*models.Case, error) {
	cs, err := tx.FindCase(ctx, id)
	if err != nil {
		return nil, err
	}
	if cs.Status.Terminal() {
		return nil, apperr.Statef("case %d is %s, no further transitions are allowed", id, cs.Status)
	}
	return cs, nil
}

// liveSession loads a session and hides it once it has been deleted
func liveSession(ctx context.Context, tx databases.Tx, id string) (*models.Session, error) {
	s, err := tx.FindSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.Deleted {
		return nil, apperr.NotFoundf("session %s not found", id)
	}
	return s, nil
}

func (c *Controller) emit(ctx context.Context, tag notify.Tag, cs *models.Case, s *models.Session) {
	e := notify.Event{
		Tag:       tag,
		CaseID:    cs.ID,
		CaseTitle: cs.Title,
		Parties:   cs.PartyRefs(),
		At:        c.now(),
	}
	if s != nil {
		e.Stage = string(s.Stage)
		e.SessionID = s.ID
		e.Date = s.ScheduledDate
		e.Time = s.ScheduledTime
	}
	c.Notifier.Notify(ctx, e)
}

func logRejected(op string, err error, fields ...interface{}) {
	if k := apperr.KindOf(err); k != apperr.Infrastructure {
		zap.S().Debugw(op+" rejected", append(fields, "kind", k, "error", err)...)
		return
	}
	zap.S().Errorw(op+" failed", append(fields, "error", err)...)
}
