package databases

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/linesmerrill/dispute-case-api/apperr"
	"github.com/linesmerrill/dispute-case-api/models"
)

const residentName = "residents"

// ResidentDirectory reads party contact details from the residents collection, which is
// owned by the resident registry
type ResidentDirectory struct {
	db *mongo.Database
}

// NewResidentDirectory initializes a new resident directory with the provided db
func NewResidentDirectory(db *mongo.Database) *ResidentDirectory {
	return &ResidentDirectory{db: db}
}

// Lookup returns the residents matching refs. Unknown refs are skipped.
func (d *ResidentDirectory) Lookup(ctx context.Context, refs []string) ([]models.Resident, error) {
	if len(refs) == 0 {
		return nil, nil
	}
	cur, err := d.db.Collection(residentName).Find(ctx, bson.M{"_id": bson.M{"$in": refs}})
	if err != nil {
		return nil, apperr.Infra(err, "failed to find residents")
	}
	defer cur.Close(ctx)

	var residents []models.Resident
	if err := cur.All(ctx, &residents); err != nil {
		return nil, apperr.Infra(err, "failed to decode residents")
	}
	return residents, nil
}
