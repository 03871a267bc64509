package databases

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/linesmerrill/dispute-case-api/apperr"
	"github.com/linesmerrill/dispute-case-api/models"
)

const settlementName = "settlements"

func settlementIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "caseID", Value: 1}},
			Options: options.Index().SetName("one_per_case").SetUnique(true),
		},
	}
}

func (t *mongoTx) FindSettlement(ctx context.Context, caseID int64) (*models.Settlement, error) {
	s := &models.Settlement{}
	err := t.db.Collection(settlementName).FindOne(ctx, bson.M{"caseID": caseID}).Decode(s)
	if err != nil {
		return nil, classify(err, apperr.NotFoundf("no settlement for case %d", caseID), "failed to find settlement")
	}
	return s, nil
}

func (t *mongoTx) InsertSettlement(ctx context.Context, s *models.Settlement) error {
	_, err := t.db.Collection(settlementName).InsertOne(ctx, s)
	if mongo.IsDuplicateKeyError(err) {
		return apperr.Wrap(apperr.State, err, fmt.Sprintf("case %d is already settled", s.CaseID))
	}
	return classify(err, nil, "failed to insert settlement")
}
