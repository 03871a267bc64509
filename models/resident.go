package models

// Resident is the subset of the resident directory used to reach a party
type Resident struct {
	ID    string `json:"_id" bson:"_id"`
	Name  string `json:"name" bson:"name"`
	Email string `json:"email" bson:"email"`
}
