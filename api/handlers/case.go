package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/linesmerrill/dispute-case-api/api"
	"github.com/linesmerrill/dispute-case-api/lifecycle"
)

// Case exported for testing purposes
type Case struct {
	C *lifecycle.Controller
}

// CreateCaseHandler files a new complaint
func (c Case) CreateCaseHandler(w http.ResponseWriter, r *http.Request) {
	var req lifecycle.FileCaseRequest
	if err := decode(r, &req); err != nil {
		fail("failed to decode request body", w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	cs, err := c.C.FileCase(ctx, req)
	if err != nil {
		fail("failed to file case", w, err)
		return
	}
	writeJSON(w, http.StatusCreated, cs)
}

// CaseByIDHandler returns a case with its active session, reschedule chain and settlement
func (c Case) CaseByIDHandler(w http.ResponseWriter, r *http.Request) {
	id, err := caseID(r)
	if err != nil {
		fail("failed to read case id", w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	ov, err := c.C.CaseOverview(ctx, id)
	if err != nil {
		fail("failed to get case", w, err)
		return
	}
	writeJSON(w, http.StatusOK, ov)
}

// ScheduleStageHandler books the session of a stage and moves the case into it
func (c Case) ScheduleStageHandler(w http.ResponseWriter, r *http.Request) {
	id, err := caseID(r)
	if err != nil {
		fail("failed to read case id", w, err)
		return
	}
	var req lifecycle.ScheduleRequest
	if err := decode(r, &req); err != nil {
		fail("failed to decode request body", w, err)
		return
	}
	req.CaseID = id
	req.Stage = mux.Vars(r)["stage"]

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	s, err := c.C.ScheduleStage(ctx, req)
	if err != nil {
		fail("failed to schedule session", w, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// SettleHandler records the settlement that closes a case
func (c Case) SettleHandler(w http.ResponseWriter, r *http.Request) {
	id, err := caseID(r)
	if err != nil {
		fail("failed to read case id", w, err)
		return
	}
	var req lifecycle.SettleRequest
	if err := decode(r, &req); err != nil {
		fail("failed to decode request body", w, err)
		return
	}
	req.CaseID = id

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	st, err := c.C.Settle(ctx, req)
	if err != nil {
		fail("failed to settle case", w, err)
		return
	}
	writeJSON(w, http.StatusCreated, st)
}

// WithdrawHandler closes a case at the complainant's request
func (c Case) WithdrawHandler(w http.ResponseWriter, r *http.Request) {
	id, err := caseID(r)
	if err != nil {
		fail("failed to read case id", w, err)
		return
	}
	var req lifecycle.WithdrawRequest
	if err := decode(r, &req); err != nil {
		fail("failed to decode request body", w, err)
		return
	}
	req.CaseID = id

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	cs, err := c.C.Withdraw(ctx, req)
	if err != nil {
		fail("failed to withdraw case", w, err)
		return
	}
	writeJSON(w, http.StatusOK, cs)
}

// ReferHandler closes a case by referring it to another agency
func (c Case) ReferHandler(w http.ResponseWriter, r *http.Request) {
	id, err := caseID(r)
	if err != nil {
		fail("failed to read case id", w, err)
		return
	}
	var req lifecycle.ReferRequest
	if err := decode(r, &req); err != nil {
		fail("failed to decode request body", w, err)
		return
	}
	req.CaseID = id

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	cs, err := c.C.Refer(ctx, req)
	if err != nil {
		fail("failed to refer case", w, err)
		return
	}
	writeJSON(w, http.StatusOK, cs)
}
