package databases

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/linesmerrill/dispute-case-api/apperr"
	"github.com/linesmerrill/dispute-case-api/models"
)

const sessionName = "sessions"

func sessionIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			// at most one live session per slot, whatever its stage
			Keys: bson.D{{Key: "scheduledDate", Value: 1}, {Key: "scheduledMinute", Value: 1}},
			Options: options.Index().
				SetName("live_slot").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"deleted": false}),
		},
		{
			Keys:    bson.D{{Key: "caseID", Value: 1}, {Key: "stage", Value: 1}, {Key: "deleted", Value: 1}},
			Options: options.Index().SetName("case_stage"),
		},
	}
}

func liveSessionsOn(date string) bson.M {
	return bson.M{"scheduledDate": date, "deleted": false}
}

func liveStageFilter(caseID int64, stage models.Stage) bson.M {
	return bson.M{"caseID": caseID, "stage": stage, "deleted": false}
}

func (t *mongoTx) BookingsOn(ctx context.Context, date string) ([]models.Booking, error) {
	cur, err := t.db.Collection(sessionName).Find(ctx, liveSessionsOn(date),
		options.Find().SetSort(bson.D{{Key: "scheduledMinute", Value: 1}}))
	if err != nil {
		return nil, classify(err, nil, "failed to find sessions on "+date)
	}
	defer cur.Close(ctx)

	var sessions []models.Session
	if err := cur.All(ctx, &sessions); err != nil {
		return nil, classify(err, nil, "failed to decode sessions on "+date)
	}
	bookings := make([]models.Booking, 0, len(sessions))
	for _, s := range sessions {
		bookings = append(bookings, s.Booking())
	}
	return bookings, nil
}

func (t *mongoTx) FindSession(ctx context.Context, id string) (*models.Session, error) {
	s := &models.Session{}
	err := t.db.Collection(sessionName).FindOne(ctx, bson.M{"_id": id}).Decode(s)
	if err != nil {
		return nil, classify(err, apperr.NotFoundf("session %s not found", id), "failed to find session")
	}
	return s, nil
}

func (t *mongoTx) ActiveSession(ctx context.Context, caseID int64, stage models.Stage) (*models.Session, error) {
	s := &models.Session{}
	err := t.db.Collection(sessionName).FindOne(ctx, liveStageFilter(caseID, stage),
		options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}})).Decode(s)
	if err != nil {
		return nil, classify(err, apperr.NotFoundf("no live %s session for case %d", stage, caseID), "failed to find session")
	}
	return s, nil
}

func (t *mongoTx) InsertSession(ctx context.Context, s *models.Session) error {
	_, err := t.db.Collection(sessionName).InsertOne(ctx, s)
	return classify(err, nil, s.ScheduledDate+" at "+s.ScheduledTime+" is already booked")
}

func (t *mongoTx) UpdateSessionSlot(ctx context.Context, s *models.Session) error {
	res, err := t.db.Collection(sessionName).UpdateOne(ctx,
		bson.M{"_id": s.ID, "deleted": false},
		bson.M{"$set": bson.M{
			"scheduledDate":   s.ScheduledDate,
			"scheduledTime":   s.ScheduledTime,
			"scheduledMinute": s.ScheduledMinute,
			"panel":           s.Panel,
			"updatedAt":       s.UpdatedAt,
		}},
	)
	if err != nil {
		return classify(err, nil, s.ScheduledDate+" at "+s.ScheduledTime+" is already booked")
	}
	if res.MatchedCount == 0 {
		return apperr.NotFoundf("session %s not found", s.ID)
	}
	return nil
}

func (t *mongoTx) SoftDeleteSessions(ctx context.Context, caseID int64, stage models.Stage, at time.Time) (int64, error) {
	res, err := t.db.Collection(sessionName).UpdateMany(ctx,
		liveStageFilter(caseID, stage),
		bson.M{"$set": bson.M{"deleted": true, "deletedAt": at, "updatedAt": at}},
	)
	if err != nil {
		return 0, classify(err, nil, "failed to soft-delete sessions")
	}
	return res.ModifiedCount, nil
}

func (t *mongoTx) PurgeSession(ctx context.Context, id string) error {
	if _, err := t.db.Collection(documentationName).DeleteMany(ctx, bson.M{"sessionID": id}); err != nil {
		return classify(err, nil, "failed to purge documentation")
	}
	if _, err := t.db.Collection(rescheduleName).DeleteMany(ctx, bson.M{"sessionID": id}); err != nil {
		return classify(err, nil, "failed to purge reschedules")
	}
	res, err := t.db.Collection(sessionName).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return classify(err, nil, "failed to purge session")
	}
	if res.DeletedCount == 0 {
		return apperr.NotFoundf("session %s not found", id)
	}
	return nil
}
