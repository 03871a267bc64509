package models

import "time"

// Session holds the structure for the sessions collection. One document exists per
// hearing; the Stage field says which of mediation, conciliation or arbitration it is.
type Session struct {
	ID     string `json:"_id" bson:"_id"`
	CaseID int64  `json:"caseID" bson:"caseID"`
	Stage  Stage  `json:"stage" bson:"stage"`

	// ScheduledDate is "2006-01-02" in the office timezone
	ScheduledDate string `json:"scheduledDate" bson:"scheduledDate"`
	// ScheduledTime is "15:04"
	ScheduledTime string `json:"scheduledTime" bson:"scheduledTime"`
	// ScheduledMinute is ScheduledTime as minutes past midnight
	ScheduledMinute int `json:"scheduledMinute" bson:"scheduledMinute"`

	// Panel lists the panel members hearing a conciliation or arbitration
	Panel []string `json:"panel,omitempty" bson:"panel,omitempty"`

	Deleted   bool       `json:"deleted" bson:"deleted"`
	DeletedAt *time.Time `json:"deletedAt,omitempty" bson:"deletedAt,omitempty"`

	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

// Booking is the part of a live session the slot calendar cares about
type Booking struct {
	SessionID string `json:"sessionID"`
	CaseID    int64  `json:"caseID"`
	Stage     Stage  `json:"stage"`
	Minute    int    `json:"minute"`
}

// Booking returns the slot the session currently occupies
func (s Session) Booking() Booking {
	return Booking{
		SessionID: s.ID,
		CaseID:    s.CaseID,
		Stage:     s.Stage,
		Minute:    s.ScheduledMinute,
	}
}
