package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/wikichain/wikichain/internal/ledger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

var (
	ErrDuplicateSeq = errors.New("journal sequence already used")
)

// MongoJournal stores one document per committed transaction. A unique index
// on "seq" makes a second writer racing for the same sequence number fail
// instead of forking the log.
type MongoJournal struct {
	col *mongo.Collection
}

func NewMongoJournal(ctx context.Context, col *mongo.Collection) (*MongoJournal, error) {
	idxModel := mongo.IndexModel{Keys: bson.D{{Key: "seq", Value: 1}}, Options: options.Index().SetUnique(true)}
	if _, err := col.Indexes().CreateOne(ctx, idxModel); err != nil {
		return nil, fmt.Errorf("ensure journal index: %w", err)
	}
	// an acknowledged append must survive a primary failover
	col = col.Database().Collection(col.Name(), options.Collection().SetWriteConcern(writeconcern.Majority()))
	return &MongoJournal{col: col}, nil
}

func (m *MongoJournal) Append(ctx context.Context, tx ledger.Tx) error {
	if _, err := m.col.InsertOne(ctx, tx); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: seq %d", ErrDuplicateSeq, tx.Seq)
		}
		return err
	}
	return nil
}

func (m *MongoJournal) Lookup(ctx context.Context, seq uint64) (ledger.Tx, bool, error) {
	var tx ledger.Tx
	err := m.col.FindOne(ctx, bson.M{"seq": seq}).Decode(&tx)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ledger.Tx{}, false, nil
	}
	if err != nil {
		return ledger.Tx{}, false, err
	}
	return tx, true, nil
}

func (m *MongoJournal) Replay(ctx context.Context, fn func(ledger.Tx) error) error {
	cur, err := m.col.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "seq", Value: 1}}))
	if err != nil {
		return err
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var tx ledger.Tx
		if err := cur.Decode(&tx); err != nil {
			return err
		}
		if err := fn(tx); err != nil {
			return err
		}
	}
	return cur.Err()
}
