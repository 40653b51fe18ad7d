package audit

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoReportStore persists audit reports keyed by run id.
type MongoReportStore struct {
	col *mongo.Collection
}

func NewMongoReportStore(col *mongo.Collection) *MongoReportStore {
	return &MongoReportStore{col: col}
}

// Save upserts r by its run id.
func (s *MongoReportStore) Save(ctx context.Context, r *Report) error {
	filter := bson.M{"runId": r.RunID}
	opts := options.Update().SetUpsert(true)
	if _, err := s.col.UpdateOne(ctx, filter, bson.M{"$set": r}, opts); err != nil {
		return fmt.Errorf("save audit report: %w", err)
	}
	return nil
}

// Load fetches a report by run id. Returns nil when not found.
func (s *MongoReportStore) Load(ctx context.Context, runID string) (*Report, error) {
	var r Report
	if err := s.col.FindOne(ctx, bson.M{"runId": runID}).Decode(&r); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &r, nil
}

// Latest returns the most recently started report, or nil.
func (s *MongoReportStore) Latest(ctx context.Context) (*Report, error) {
	var r Report
	opts := options.FindOne().SetSort(bson.D{{Key: "startedAt", Value: -1}})
	if err := s.col.FindOne(ctx, bson.M{}, opts).Decode(&r); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &r, nil
}
