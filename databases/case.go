package databases

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/linesmerrill/dispute-case-api/apperr"
	"github.com/linesmerrill/dispute-case-api/models"
)

const (
	caseName    = "cases"
	counterName = "counters"
)

type counter struct {
	ID  string `bson:"_id"`
	Seq int64  `bson:"seq"`
}

func caseCounterID(year int) string {
	return fmt.Sprintf("cases-%d", year)
}

func (t *mongoTx) NextCaseSequence(ctx context.Context, year int) (int64, error) {
	var c counter
	err := t.db.Collection(counterName).FindOneAndUpdate(ctx,
		bson.M{"_id": caseCounterID(year)},
		bson.M{"$inc": bson.M{"seq": 1}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&c)
	if err != nil {
		return 0, classify(err, nil, "failed to increment case counter")
	}
	return c.Seq, nil
}

func (t *mongoTx) InsertCase(ctx context.Context, c *models.Case) error {
	_, err := t.db.Collection(caseName).InsertOne(ctx, c)
	return classify(err, nil, fmt.Sprintf("failed to insert case %d", c.ID))
}

func (t *mongoTx) FindCase(ctx context.Context, id int64) (*models.Case, error) {
	c := &models.Case{}
	err := t.db.Collection(caseName).FindOne(ctx, bson.M{"_id": id}).Decode(c)
	if err != nil {
		return nil, classify(err, apperr.NotFoundf("case %d not found", id), "failed to find case")
	}
	if err := c.NormalizeStatus(); err != nil {
		return nil, apperr.Infra(err, fmt.Sprintf("case %d has an unreadable status", id))
	}
	return c, nil
}

func (t *mongoTx) UpdateCase(ctx context.Context, c *models.Case) error {
	res, err := t.db.Collection(caseName).ReplaceOne(ctx, bson.M{"_id": c.ID}, c)
	if err != nil {
		return classify(err, nil, fmt.Sprintf("failed to update case %d", c.ID))
	}
	if res.MatchedCount == 0 {
		return apperr.NotFoundf("case %d not found", c.ID)
	}
	return nil
}
