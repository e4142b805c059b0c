package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	mopts "go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/dmitrymomot/guardkit/pkg/opaque"
)

// Mongo stores one document per token keyed by series.
type Mongo struct {
	coll      *mongo.Collection
	mapper    Mapper
	tokenType string
	now       func() time.Time
}

// NewMongo creates a Mongo-backed store for one bucket.
func NewMongo(db *mongo.Database, mapper Mapper, tokenType string, opts ...Option) *Mongo {
	o := applyOptions(opts)
	return &Mongo{
		coll:      db.Collection(o.collection),
		mapper:    mapper,
		tokenType: tokenType,
		now:       o.now,
	}
}

// EnsureIndexes creates the unique series index, the owner index and a TTL
// index that lets the server drop expired documents.
func (s *Mongo) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "series", Value: 1}},
			Options: mopts.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "tokenable_id", Value: 1}, {Key: "type", Value: 1}},
		},
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: mopts.Index().SetExpireAfterSeconds(0),
		},
	})
	if err != nil {
		return fmt.Errorf("mongo error: %w", err)
	}
	return nil
}

func (s *Mongo) liveFilter(field, value string) bson.D {
	return bson.D{
		{Key: field, Value: value},
		{Key: "type", Value: s.tokenType},
		{Key: "$or", Value: bson.A{
			bson.D{{Key: "expires_at", Value: nil}},
			bson.D{{Key: "expires_at", Value: bson.D{{Key: "$gte", Value: s.now()}}}},
		}},
	}
}

func (s *Mongo) seriesFilter(series string) bson.D {
	return bson.D{{Key: "series", Value: series}, {Key: "type", Value: s.tokenType}}
}

// CreateToken inserts the token document.
func (s *Mongo) CreateToken(ctx context.Context, token *opaque.Token) error {
	if token == nil {
		return ErrNilToken
	}
	token.Type = s.tokenType

	rec, err := s.mapper.ToRecord(token)
	if err != nil {
		return err
	}

	if _, err := s.coll.InsertOne(ctx, rec); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateSeries
		}
		return fmt.Errorf("mongo error: %w", err)
	}
	return nil
}

// GetTokenBySeries filters foreign buckets and expired documents in the query.
func (s *Mongo) GetTokenBySeries(ctx context.Context, series string) (*opaque.Token, error) {
	var rec Record
	if err := s.coll.FindOne(ctx, s.liveFilter("series", series)).Decode(&rec); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrTokenNotFound
		}
		return nil, fmt.Errorf("mongo error: %w", err)
	}
	return s.mapper.FromRecord(rec)
}

// DeleteTokenBySeries is idempotent.
func (s *Mongo) DeleteTokenBySeries(ctx context.Context, series string) error {
	if _, err := s.coll.DeleteOne(ctx, s.seriesFilter(series)); err != nil {
		return fmt.Errorf("mongo error: %w", err)
	}
	return nil
}

// UpdateTokenBySeries rotates hash and expiry.
func (s *Mongo) UpdateTokenBySeries(ctx context.Context, series, hash string, expiresAt *time.Time) error {
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "hash", Value: hash},
		{Key: "expires_at", Value: expiresAt},
		{Key: "updated_at", Value: s.now()},
	}}}

	res, err := s.coll.UpdateOne(ctx, s.seriesFilter(series), update)
	if err != nil {
		return fmt.Errorf("mongo error: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrTokenNotFound
	}
	return nil
}

// ListByTokenable returns non-expired tokens of the owner, newest first.
func (s *Mongo) ListByTokenable(ctx context.Context, tokenableID string) ([]*opaque.Token, error) {
	opts := mopts.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})

	cur, err := s.coll.Find(ctx, s.liveFilter("tokenable_id", tokenableID), opts)
	if err != nil {
		return nil, fmt.Errorf("mongo error: %w", err)
	}

	var recs []Record
	if err := cur.All(ctx, &recs); err != nil {
		return nil, fmt.Errorf("mongo error: %w", err)
	}

	tokens := make([]*opaque.Token, 0, len(recs))
	for _, rec := range recs {
		t, err := s.mapper.FromRecord(rec)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, t)
	}
	return tokens, nil
}

// DeleteByTokenable removes every token of the owner in this bucket.
func (s *Mongo) DeleteByTokenable(ctx context.Context, tokenableID string) error {
	filter := bson.D{{Key: "tokenable_id", Value: tokenableID}, {Key: "type", Value: s.tokenType}}
	if _, err := s.coll.DeleteMany(ctx, filter); err != nil {
		return fmt.Errorf("mongo error: %w", err)
	}
	return nil
}

// TouchLastUsed records the time of the last successful verification.
func (s *Mongo) TouchLastUsed(ctx context.Context, series string, at time.Time) error {
	update := bson.D{{Key: "$set", Value: bson.D{{Key: "last_used_at", Value: at}}}}
	res, err := s.coll.UpdateOne(ctx, s.seriesFilter(series), update)
	if err != nil {
		return fmt.Errorf("mongo error: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrTokenNotFound
	}
	return nil
}
