package databases

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const slotDayName = "slotdays"

// LockDay bumps the version of the date's slotdays document. Two transactions booking
// the same date both write this document, so the second one hits a write conflict and
// is retried against the first one's committed bookings.
func (t *mongoTx) LockDay(ctx context.Context, date string) error {
	_, err := t.db.Collection(slotDayName).UpdateOne(ctx,
		bson.M{"_id": date},
		bson.M{
			"$inc": bson.M{"version": 1},
			"$set": bson.M{"lockedAt": time.Now()},
		},
		options.Update().SetUpsert(true),
	)
	return classify(err, nil, "failed to lock "+date)
}
