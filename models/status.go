package models

import (
	"fmt"
	"strings"
)

// CaseStatus is the lifecycle state of a case
type CaseStatus string

// Case statuses. The lowercase form is the only one ever stored.
const (
	StatusPending      CaseStatus = "pending"
	StatusMediation    CaseStatus = "mediation"
	StatusConciliation CaseStatus = "conciliation"
	StatusArbitration  CaseStatus = "arbitration"
	StatusSettled      CaseStatus = "settled"
	StatusWithdrawn    CaseStatus = "withdrawn"
	StatusReferred     CaseStatus = "referred"
)

// Terminal reports whether no further stage transition is allowed from s
func (s CaseStatus) Terminal() bool {
	switch s {
	case StatusSettled, StatusWithdrawn, StatusReferred:
		return true
	}
	return false
}

// Stage returns the hearing stage the status corresponds to, if any
func (s CaseStatus) Stage() (Stage, bool) {
	switch s {
	case StatusMediation:
		return StageMediation, true
	case StatusConciliation:
		return StageConciliation, true
	case StatusArbitration:
		return StageArbitration, true
	}
	return "", false
}

// Valid reports whether s is one of the known statuses
func (s CaseStatus) Valid() bool {
	switch s {
	case StatusPending, StatusMediation, StatusConciliation, StatusArbitration,
		StatusSettled, StatusWithdrawn, StatusReferred:
		return true
	}
	return false
}

// ParseCaseStatus normalizes legacy spellings such as "Settled" or " MEDIATION "
func ParseCaseStatus(raw string) (CaseStatus, error) {
	s := CaseStatus(strings.ToLower(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", fmt.Errorf("unknown case status %q", raw)
	}
	return s, nil
}

// Stage is a formal hearing phase
type Stage string

// Hearing stages
const (
	StageMediation    Stage = "mediation"
	StageConciliation Stage = "conciliation"
	StageArbitration  Stage = "arbitration"
)

// Stages lists every hearing stage in escalation order
var Stages = []Stage{StageMediation, StageConciliation, StageArbitration}

// Status is the case status a case takes when it enters stage s
func (s Stage) Status() CaseStatus {
	return CaseStatus(s)
}

// Valid reports whether s is a known stage
func (s Stage) Valid() bool {
	switch s {
	case StageMediation, StageConciliation, StageArbitration:
		return true
	}
	return false
}

// ParseStage normalizes and validates a stage name
func ParseStage(raw string) (Stage, error) {
	s := Stage(strings.ToLower(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", fmt.Errorf("unknown stage %q", raw)
	}
	return s, nil
}
