package models

import "time"

// InitialSessionReason marks the first entry of a reschedule chain, written for the
// session's original slot
const InitialSessionReason = "Initial session"

// CurrentSlotReason marks a record written for a session's current slot after every
// earlier record of its chain was deleted
const CurrentSlotReason = "Current slot"

// RescheduleRecord is one entry of a session's booking history. The newest live
// record is the session's current slot.
type RescheduleRecord struct {
	ID        string `json:"_id" bson:"_id"`
	SessionID string `json:"sessionID" bson:"sessionID"`
	CaseID    int64  `json:"caseID" bson:"caseID"`
	// Sequence numbers the chain from 1, the initial session
	Sequence int `json:"sequence" bson:"sequence"`

	Date   string `json:"date" bson:"date"`
	Time   string `json:"time" bson:"time"`
	Minute int    `json:"minute" bson:"minute"`
	Reason string `json:"reason" bson:"reason"`

	// Minutes stays nil until the hearing is actually held
	Minutes *string `json:"minutes,omitempty" bson:"minutes,omitempty"`

	// Documentation is loaded from the documentation collection, never stored inline
	Documentation []Documentation `json:"documentation" bson:"-"`

	Deleted   bool       `json:"deleted" bson:"deleted"`
	DeletedAt *time.Time `json:"deletedAt,omitempty" bson:"deletedAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt" bson:"createdAt"`
}

// Documentation is a stored file attached to a reschedule record
type Documentation struct {
	ID           string    `json:"_id" bson:"_id"`
	SessionID    string    `json:"sessionID" bson:"sessionID"`
	RescheduleID string    `json:"rescheduleID" bson:"rescheduleID"`
	FilePath     string    `json:"filePath" bson:"filePath"`
	UploadedAt   time.Time `json:"uploadedAt" bson:"uploadedAt"`
}
