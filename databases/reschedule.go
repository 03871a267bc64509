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

const (
	rescheduleName    = "reschedules"
	documentationName = "documentation"
)

func rescheduleIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "sessionID", Value: 1}, {Key: "sequence", Value: 1}},
			Options: options.Index().SetName("session_sequence"),
		},
	}
}

func documentationIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "rescheduleID", Value: 1}},
			Options: options.Index().SetName("reschedule"),
		},
	}
}

func (t *mongoTx) Reschedules(ctx context.Context, sessionID string) ([]models.RescheduleRecord, error) {
	cur, err := t.db.Collection(rescheduleName).Find(ctx,
		bson.M{"sessionID": sessionID, "deleted": false},
		options.Find().SetSort(bson.D{{Key: "sequence", Value: 1}}))
	if err != nil {
		return nil, classify(err, nil, "failed to find reschedules")
	}
	defer cur.Close(ctx)

	var records []models.RescheduleRecord
	if err := cur.All(ctx, &records); err != nil {
		return nil, classify(err, nil, "failed to decode reschedules")
	}
	if len(records) == 0 {
		return records, nil
	}

	ids := make([]string, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.ID)
	}
	docs, err := t.documentationFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range records {
		records[i].Documentation = docs[records[i].ID]
		if records[i].Documentation == nil {
			records[i].Documentation = []models.Documentation{}
		}
	}
	return records, nil
}

func (t *mongoTx) RescheduleHistory(ctx context.Context, sessionID string) ([]models.RescheduleRecord, error) {
	cur, err := t.db.Collection(rescheduleName).Find(ctx,
		bson.M{"sessionID": sessionID},
		options.Find().SetSort(bson.D{{Key: "sequence", Value: 1}}))
	if err != nil {
		return nil, classify(err, nil, "failed to find reschedule history")
	}
	defer cur.Close(ctx)

	records := []models.RescheduleRecord{}
	if err := cur.All(ctx, &records); err != nil {
		return nil, classify(err, nil, "failed to decode reschedule history")
	}
	return records, nil
}

func (t *mongoTx) documentationFor(ctx context.Context, rescheduleIDs []string) (map[string][]models.Documentation, error) {
	cur, err := t.db.Collection(documentationName).Find(ctx,
		bson.M{"rescheduleID": bson.M{"$in": rescheduleIDs}},
		options.Find().SetSort(bson.D{{Key: "uploadedAt", Value: 1}}))
	if err != nil {
		return nil, classify(err, nil, "failed to find documentation")
	}
	defer cur.Close(ctx)

	var docs []models.Documentation
	if err := cur.All(ctx, &docs); err != nil {
		return nil, classify(err, nil, "failed to decode documentation")
	}
	byRecord := make(map[string][]models.Documentation, len(rescheduleIDs))
	for _, d := range docs {
		byRecord[d.RescheduleID] = append(byRecord[d.RescheduleID], d)
	}
	return byRecord, nil
}

func (t *mongoTx) FindReschedule(ctx context.Context, id string) (*models.RescheduleRecord, error) {
	r := &models.RescheduleRecord{}
	err := t.db.Collection(rescheduleName).FindOne(ctx, bson.M{"_id": id, "deleted": false}).Decode(r)
	if err != nil {
		return nil, classify(err, apperr.NotFoundf("reschedule %s not found", id), "failed to find reschedule")
	}
	docs, err := t.documentationFor(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	r.Documentation = docs[id]
	return r, nil
}

func (t *mongoTx) InsertReschedule(ctx context.Context, r *models.RescheduleRecord) error {
	_, err := t.db.Collection(rescheduleName).InsertOne(ctx, r)
	return classify(err, nil, "failed to insert reschedule")
}

func (t *mongoTx) UpdateRescheduleMinutes(ctx context.Context, id string, minutes *string) error {
	res, err := t.db.Collection(rescheduleName).UpdateOne(ctx,
		bson.M{"_id": id, "deleted": false},
		bson.M{"$set": bson.M{"minutes": minutes}},
	)
	if err != nil {
		return classify(err, nil, "failed to update minutes")
	}
	if res.MatchedCount == 0 {
		return apperr.NotFoundf("reschedule %s not found", id)
	}
	return nil
}

func (t *mongoTx) SoftDeleteReschedule(ctx context.Context, id string, at time.Time) error {
	res, err := t.db.Collection(rescheduleName).UpdateOne(ctx,
		bson.M{"_id": id, "deleted": false},
		bson.M{"$set": bson.M{"deleted": true, "deletedAt": at}},
	)
	if err != nil {
		return classify(err, nil, "failed to delete reschedule")
	}
	if res.MatchedCount == 0 {
		return apperr.NotFoundf("reschedule %s not found", id)
	}
	return nil
}

func (t *mongoTx) InsertDocumentation(ctx context.Context, docs []models.Documentation) error {
	if len(docs) == 0 {
		return nil
	}
	rows := make([]interface{}, 0, len(docs))
	for _, d := range docs {
		rows = append(rows, d)
	}
	_, err := t.db.Collection(documentationName).InsertMany(ctx, rows)
	return classify(err, nil, "failed to insert documentation")
}
