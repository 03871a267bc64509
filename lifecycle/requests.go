package lifecycle

import "github.com/linesmerrill/dispute-case-api/documents"

// FileCaseRequest opens a new complaint
type FileCaseRequest struct {
	Title          string `json:"title" validate:"required,max=200"`
	Description    string `json:"description" validate:"max=5000"`
	Nature         string `json:"nature" validate:"required,max=100"`
	ReliefSought   string `json:"reliefSought" validate:"max=2000"`
	ComplainantRef string `json:"complainantRef" validate:"required,max=64"`
	RespondentRef  string `json:"respondentRef" validate:"required,max=64"`
	WitnessRef     string `json:"witnessRef" validate:"max=64"`
}

// ScheduleRequest books, or moves, the session of a stage and moves the case into it
type ScheduleRequest struct {
	CaseID int64    `json:"-" validate:"required,gt=0"`
	Stage  string   `json:"-" validate:"required"`
	Date   string   `json:"date" validate:"required,datetime=2006-01-02"`
	Time   string   `json:"time" validate:"required"`
	Panel  []string `json:"panel" validate:"max=5,dive,required,max=120"`
}

// RecordRequest stores the minutes of a held session
type RecordRequest struct {
	SessionID string             `json:"-" validate:"required"`
	Minutes   string             `json:"minutes" validate:"required,max=20000"`
	Files     []documents.Upload `json:"-"`
}

// RescheduleRequest moves a session to another slot
type RescheduleRequest struct {
	SessionID string `json:"-" validate:"required"`
	Date      string `json:"date" validate:"required,datetime=2006-01-02"`
	Time      string `json:"time" validate:"required"`
	Reason    string `json:"reason" validate:"required,max=500"`
}

// SettleRequest closes a case with an amicable settlement
type SettleRequest struct {
	CaseID     int64  `json:"-" validate:"required,gt=0"`
	Stage      string `json:"stage" validate:"required"`
	Agreements string `json:"agreements" validate:"required,max=10000"`
	Remarks    string `json:"remarks" validate:"max=2000"`
	// SettledOn defaults to today
	SettledOn string `json:"settledOn" validate:"omitempty,datetime=2006-01-02"`
}

// WithdrawRequest closes a case at the complainant's request
type WithdrawRequest struct {
	CaseID int64  `json:"-" validate:"required,gt=0"`
	Reason string `json:"reason" validate:"required,max=2000"`
}

// ReferRequest closes a case by handing it to another agency
type ReferRequest struct {
	CaseID  int64  `json:"-" validate:"required,gt=0"`
	Agency  string `json:"agency" validate:"required,max=200"`
	Remarks string `json:"remarks" validate:"max=2000"`
}
