// Package docs Dispute Case API.
//
// Documentation of the Dispute Case API: complaint filing, hearing sessions across
// mediation, conciliation and arbitration, and the shared daily session pool.
//
//     Schemes: https
//     BasePath: /
//     Version: 1.0.0
//
//     Consumes:
//     - application/json
//     - multipart/form-data
//
//     Produces:
//     - application/json
//
//     Security:
//     - bearer
//
//    SecurityDefinitions:
//    bearer:
//      type: apiKey
//      name: Authorization
//      in: header
//
// swagger:meta
package docs

import (
	"github.com/linesmerrill/dispute-case-api/calendar"
	"github.com/linesmerrill/dispute-case-api/lifecycle"
	"github.com/linesmerrill/dispute-case-api/models"
)

// swagger:route GET /health health healthEndpointID
// Lists the healthchex of the web service api.
// responses:
//   200: healthResponse

// Shows the current health of the api. true means it is alive, false means it is not.
// swagger:response healthResponse
type healthResponseWrapper struct {
	// in:body
	Body models.HealthCheckResponse
}

// swagger:route POST /api/v1/cases cases createCase
// Files a new complaint.
// responses:
//   201: caseResponse
//   400: errorResponse

// swagger:route POST /api/v1/cases/{case_id}/withdraw cases withdrawCase
// Closes a case at the complainant's request.
// responses:
//   200: caseResponse
//   409: errorResponse

// swagger:route POST /api/v1/cases/{case_id}/refer cases referCase
// Closes a case by referring it to another agency.
// responses:
//   200: caseResponse
//   409: errorResponse

// A single case
// swagger:response caseResponse
type caseResponseWrapper struct {
	// in:body
	Body models.Case
}

// swagger:route GET /api/v1/cases/{case_id} cases caseByID
// Gets a case with its active session, reschedule chain, settlement and elapsed days.
// responses:
//   200: caseOverviewResponse
//   404: errorResponse

// swagger:response caseOverviewResponse
type caseOverviewResponseWrapper struct {
	// in:body
	Body lifecycle.Overview
}

// swagger:route POST /api/v1/cases/{case_id}/stages/{stage} sessions scheduleStage
// Books the session of a stage and moves the case into it. Mediation, conciliation and
// arbitration share one pool of four sessions a day, spaced at least an hour apart.
// responses:
//   200: sessionResponse
//   400: errorResponse
//   409: errorResponse

// swagger:response sessionResponse
type sessionResponseWrapper struct {
	// in:body
	Body models.Session
}

// swagger:route POST /api/v1/sessions/{session_id}/minutes sessions recordMinutes
// Records the minutes of a held session, with optional files.
// responses:
//   200: rescheduleResponse
//   409: errorResponse

// swagger:route POST /api/v1/sessions/{session_id}/reschedule sessions rescheduleSession
// Moves a session to another slot and appends the move to its reschedule chain.
// responses:
//   200: rescheduleResponse
//   409: errorResponse

// swagger:response rescheduleResponse
type rescheduleResponseWrapper struct {
	// in:body
	Body models.RescheduleRecord
}

// swagger:route DELETE /api/v1/reschedules/{reschedule_id} sessions deleteReschedule
// Discards one entry of a reschedule chain.
// responses:
//   204: noContentResponse
//   404: errorResponse

// swagger:route DELETE /api/v1/sessions/{session_id} sessions purgeSession
// Permanently removes a soft deleted session.
// responses:
//   204: noContentResponse
//   409: errorResponse

// Nothing is returned on success
// swagger:response noContentResponse
type noContentResponseWrapper struct{}

// swagger:route POST /api/v1/cases/{case_id}/settlement cases settleCase
// Records the settlement that closes a case.
// responses:
//   201: settlementResponse
//   409: errorResponse

// swagger:response settlementResponse
type settlementResponseWrapper struct {
	// in:body
	Body models.Settlement
}

// swagger:route GET /api/v1/availability/{date} sessions availability
// Shows the booked and free times of a day.
// responses:
//   200: availabilityResponse

// swagger:response availabilityResponse
type availabilityResponseWrapper struct {
	// in:body
	Body calendar.Availability
}

// Code is one of validation, capacity, conflict, spacing, not_found, state or infrastructure
// swagger:response errorResponse
type errorResponseWrapper struct {
	// in:body
	Body models.ErrorMessageResponse
}

// swagger:parameters createCase
type createCaseParams struct {
	// in:body
	Body lifecycle.FileCaseRequest
}

// swagger:parameters scheduleStage
type scheduleStageParams struct {
	// in:path
	CaseID int64 `json:"case_id"`
	// in:path
	Stage string `json:"stage"`
	// in:body
	Body lifecycle.ScheduleRequest
}

// swagger:parameters rescheduleSession
type rescheduleParams struct {
	// in:path
	SessionID string `json:"session_id"`
	// in:body
	Body lifecycle.RescheduleRequest
}

// swagger:parameters settleCase
type settleParams struct {
	// in:path
	CaseID int64 `json:"case_id"`
	// in:body
	Body lifecycle.SettleRequest
}
