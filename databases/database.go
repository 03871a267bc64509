package databases

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
	"go.uber.org/zap"

	"github.com/linesmerrill/dispute-case-api/apperr"
	"github.com/linesmerrill/dispute-case-api/config"
)

// MongoStore is the MongoDB implementation of Store. Transactions need a replica set.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

var _ Store = (*MongoStore)(nil)

// NewClient uses the values from the config and returns a connected mongo client
func NewClient(ctx context.Context, conf *config.Config) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return mongo.Connect(ctx, options.Client().ApplyURI(conf.URL))
}

// NewMongoStore uses the client from NewClient, selects the configured database and
// makes sure the indexes the store relies on exist
func NewMongoStore(ctx context.Context, conf *config.Config, client *mongo.Client) (*MongoStore, error) {
	s := &MongoStore{client: client, db: client.Database(conf.DatabaseName)}
	if err := s.EnsureIndexes(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// EnsureIndexes creates the collection indexes, including the unique index on the
// (date, minute) of live sessions that backs the slot calendar
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	for name, idx := range indexes() {
		if _, err := s.db.Collection(name).Indexes().CreateMany(ctx, idx); err != nil {
			zap.S().Errorw("failed to create indexes", "collection", name, "error", err)
			return apperr.Infra(err, "failed to create indexes on "+name)
		}
	}
	return nil
}

func indexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		sessionName:       sessionIndexes(),
		rescheduleName:    rescheduleIndexes(),
		documentationName: documentationIndexes(),
		settlementName:    settlementIndexes(),
	}
}

// WithTx runs fn in a snapshot transaction. The driver re-invokes fn when the
// transaction hits a transient error such as a write conflict on a locked day.
func (s *MongoStore) WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	session, err := s.client.StartSession()
	if err != nil {
		return apperr.Infra(err, "failed to start session")
	}
	defer session.EndSession(ctx)

	txnOpts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority())

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc, &mongoTx{db: s.db})
	}, txnOpts)
	return err
}

// Close disconnects the client
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Database exposes the underlying database for read-only collaborators
func (s *MongoStore) Database() *mongo.Database {
	return s.db
}

type mongoTx struct {
	db *mongo.Database
}

// classify maps driver errors onto the apperr taxonomy, keeping the cause wrapped so the
// driver can still see transient transaction labels
func classify(err error, notFound *apperr.Error, message string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments) && notFound != nil:
		return notFound
	case mongo.IsDuplicateKeyError(err):
		return apperr.Wrap(apperr.Conflict, err, message)
	default:
		return apperr.Infra(err, message)
	}
}
