package models

import "time"

// Case holds the structure for the cases collection
type Case struct {
	// ID is year-prefixed, e.g. 2025007 is the seventh case filed in 2025
	ID           int64  `json:"_id" bson:"_id"`
	Title        string `json:"title" bson:"title"`
	Description  string `json:"description" bson:"description"`
	Nature       string `json:"nature" bson:"nature"`
	ReliefSought string `json:"reliefSought" bson:"reliefSought"`

	// Opaque references into the resident directory
	ComplainantRef string `json:"complainantRef,omitempty" bson:"complainantRef,omitempty"`
	RespondentRef  string `json:"respondentRef,omitempty" bson:"respondentRef,omitempty"`
	WitnessRef     string `json:"witnessRef,omitempty" bson:"witnessRef,omitempty"`

	Status CaseStatus `json:"status" bson:"status"`

	FiledAt     time.Time  `json:"filedAt" bson:"filedAt"`
	WithdrawnAt *time.Time `json:"withdrawnAt,omitempty" bson:"withdrawnAt,omitempty"`
	ReferredAt  *time.Time `json:"referredAt,omitempty" bson:"referredAt,omitempty"`

	// ReferralAgency is set when the case is referred out of the office
	ReferralAgency string `json:"referralAgency,omitempty" bson:"referralAgency,omitempty"`
	// ClosingRemarks carries the withdrawal reason or referral remarks
	ClosingRemarks string `json:"closingRemarks,omitempty" bson:"closingRemarks,omitempty"`

	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

// NormalizeStatus rewrites a legacy status spelling to its canonical form and rejects
// statuses it does not know
func (c *Case) NormalizeStatus() error {
	s, err := ParseCaseStatus(string(c.Status))
	if err != nil {
		return err
	}
	c.Status = s
	return nil
}

// PartyRefs returns the non-empty party references on the case
func (c Case) PartyRefs() []string {
	var refs []string
	for _, r := range []string{c.ComplainantRef, c.RespondentRef, c.WitnessRef} {
		if r != "" {
			refs = append(refs, r)
		}
	}
	return refs
}
