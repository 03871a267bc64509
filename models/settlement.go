package models

import "time"

// Settlement holds the agreement that closed a case. At most one exists per case.
type Settlement struct {
	ID     string `json:"_id" bson:"_id"`
	CaseID int64  `json:"caseID" bson:"caseID"`
	// Type is the stage that produced the settlement
	Type       Stage     `json:"type" bson:"type"`
	SettledOn  time.Time `json:"settledOn" bson:"settledOn"`
	Agreements string    `json:"agreements" bson:"agreements"`
	Remarks    string    `json:"remarks" bson:"remarks"`
	CreatedAt  time.Time `json:"createdAt" bson:"createdAt"`
}
