package postgres

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/linesmerrill/dispute-case-api/models"
)

type counterRow struct {
	Year  int   `gorm:"primaryKey;autoIncrement:false"`
	Value int64 `gorm:"not null"`
}

func (counterRow) TableName() string { return "case_counters" }

type caseRow struct {
	ID             int64  `gorm:"primaryKey;autoIncrement:false"`
	Title          string `gorm:"not null"`
	Description    string
	Nature         string
	ReliefSought   string
	ComplainantRef string `gorm:"size:64"`
	RespondentRef  string `gorm:"size:64"`
	WitnessRef     string `gorm:"size:64"`
	Status         string `gorm:"size:16;not null;index"`
	FiledAt        time.Time
	WithdrawnAt    *time.Time
	ReferredAt     *time.Time
	ReferralAgency string
	ClosingRemarks string
	UpdatedAt      time.Time
}

func (caseRow) TableName() string { return "cases" }

func toCaseRow(c *models.Case) caseRow {
	return caseRow{
		ID:             c.ID,
		Title:          c.Title,
		Description:    c.Description,
		Nature:         c.Nature,
		ReliefSought:   c.ReliefSought,
		ComplainantRef: c.ComplainantRef,
		RespondentRef:  c.RespondentRef,
		WitnessRef:     c.WitnessRef,
		Status:         string(c.Status),
		FiledAt:        c.FiledAt,
		WithdrawnAt:    c.WithdrawnAt,
		ReferredAt:     c.ReferredAt,
		ReferralAgency: c.ReferralAgency,
		ClosingRemarks: c.ClosingRemarks,
		UpdatedAt:      c.UpdatedAt,
	}
}

// model converts the row, rewriting legacy status spellings such as "Settled"
func (r caseRow) model() (*models.Case, error) {
	c := &models.Case{
		ID:             r.ID,
		Title:          r.Title,
		Description:    r.Description,
		Nature:         r.Nature,
		ReliefSought:   r.ReliefSought,
		ComplainantRef: r.ComplainantRef,
		RespondentRef:  r.RespondentRef,
		WitnessRef:     r.WitnessRef,
		Status:         models.CaseStatus(r.Status),
		FiledAt:        r.FiledAt,
		WithdrawnAt:    r.WithdrawnAt,
		ReferredAt:     r.ReferredAt,
		ReferralAgency: r.ReferralAgency,
		ClosingRemarks: r.ClosingRemarks,
		UpdatedAt:      r.UpdatedAt,
	}
	if err := c.NormalizeStatus(); err != nil {
		return nil, err
	}
	return c, nil
}

// sessionRow keeps one row per hearing. live_slot stops two live sessions from holding
// the same date and minute.
type sessionRow struct {
	ID              string                      `gorm:"primaryKey;size:36"`
	CaseID          int64                       `gorm:"not null;index:idx_sessions_case_stage"`
	Stage           string                      `gorm:"size:16;not null;index:idx_sessions_case_stage"`
	ScheduledDate   string                      `gorm:"size:10;not null;uniqueIndex:live_slot,where:deleted_at IS NULL"`
	ScheduledTime   string                      `gorm:"size:5;not null"`
	ScheduledMinute int                         `gorm:"not null;uniqueIndex:live_slot,where:deleted_at IS NULL"`
	Panel           datatypes.JSONSlice[string] `gorm:"type:jsonb"`
	DeletedAt       gorm.DeletedAt              `gorm:"index"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (sessionRow) TableName() string { return "sessions" }

func toSessionRow(s *models.Session) sessionRow {
	row := sessionRow{
		ID:              s.ID,
		CaseID:          s.CaseID,
		Stage:           string(s.Stage),
		ScheduledDate:   s.ScheduledDate,
		ScheduledTime:   s.ScheduledTime,
		ScheduledMinute: s.ScheduledMinute,
		Panel:           datatypes.JSONSlice[string](s.Panel),
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
	}
	if s.DeletedAt != nil {
		row.DeletedAt = gorm.DeletedAt{Time: *s.DeletedAt, Valid: true}
	}
	return row
}

func (r sessionRow) model() *models.Session {
	s := &models.Session{
		ID:              r.ID,
		CaseID:          r.CaseID,
		Stage:           models.Stage(r.Stage),
		ScheduledDate:   r.ScheduledDate,
		ScheduledTime:   r.ScheduledTime,
		ScheduledMinute: r.ScheduledMinute,
		Panel:           []string(r.Panel),
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
	if r.DeletedAt.Valid {
		at := r.DeletedAt.Time
		s.Deleted = true
		s.DeletedAt = &at
	}
	return s
}

type rescheduleRow struct {
	ID        string `gorm:"primaryKey;size:36"`
	SessionID string `gorm:"size:36;not null;index:idx_reschedules_session_sequence"`
	CaseID    int64  `gorm:"not null;index"`
	Sequence  int    `gorm:"not null;index:idx_reschedules_session_sequence"`
	Date      string `gorm:"size:10;not null"`
	Time      string `gorm:"size:5;not null"`
	Minute    int    `gorm:"not null"`
	Reason    string `gorm:"not null"`
	Minutes   *string
	DeletedAt gorm.DeletedAt `gorm:"index"`
	CreatedAt time.Time
}

func (rescheduleRow) TableName() string { return "reschedules" }

func toRescheduleRow(r *models.RescheduleRecord) rescheduleRow {
	row := rescheduleRow{
		ID:        r.ID,
		SessionID: r.SessionID,
		CaseID:    r.CaseID,
		Sequence:  r.Sequence,
		Date:      r.Date,
		Time:      r.Time,
		Minute:    r.Minute,
		Reason:    r.Reason,
		Minutes:   r.Minutes,
		CreatedAt: r.CreatedAt,
	}
	if r.DeletedAt != nil {
		row.DeletedAt = gorm.DeletedAt{Time: *r.DeletedAt, Valid: true}
	}
	return row
}

func (r rescheduleRow) model() models.RescheduleRecord {
	rec := models.RescheduleRecord{
		ID:            r.ID,
		SessionID:     r.SessionID,
		CaseID:        r.CaseID,
		Sequence:      r.Sequence,
		Date:          r.Date,
		Time:          r.Time,
		Minute:        r.Minute,
		Reason:        r.Reason,
		Minutes:       r.Minutes,
		Documentation: []models.Documentation{},
		CreatedAt:     r.CreatedAt,
	}
	if r.DeletedAt.Valid {
		at := r.DeletedAt.Time
		rec.Deleted = true
		rec.DeletedAt = &at
	}
	return rec
}

type documentationRow struct {
	ID           string `gorm:"primaryKey;size:36"`
	SessionID    string `gorm:"size:36;not null;index"`
	RescheduleID string `gorm:"size:36;not null;index"`
	FilePath     string `gorm:"not null"`
	UploadedAt   time.Time
}

func (documentationRow) TableName() string { return "documentation" }

func (r documentationRow) model() models.Documentation {
	return models.Documentation{
		ID:           r.ID,
		SessionID:    r.SessionID,
		RescheduleID: r.RescheduleID,
		FilePath:     r.FilePath,
		UploadedAt:   r.UploadedAt,
	}
}

type settlementRow struct {
	ID         string `gorm:"primaryKey;size:36"`
	CaseID     int64  `gorm:"not null;uniqueIndex"`
	Type       string `gorm:"size:16;not null"`
	SettledOn  time.Time
	Agreements string
	Remarks    string
	CreatedAt  time.Time
}

func (settlementRow) TableName() string { return "settlements" }

func (r settlementRow) model() *models.Settlement {
	return &models.Settlement{
		ID:         r.ID,
		CaseID:     r.CaseID,
		Type:       models.Stage(r.Type),
		SettledOn:  r.SettledOn,
		Agreements: r.Agreements,
		Remarks:    r.Remarks,
		CreatedAt:  r.CreatedAt,
	}
}

type residentRow struct {
	ID    string `gorm:"primaryKey"`
	Name  string
	Email string
}

func (residentRow) TableName() string { return "residents" }
