package tokenstore_test

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/dmitrymomot/guardkit/pkg/tokenstore"
)

func mongoFactory(db *mongo.Database) storeFactory {
	return func(t *testing.T, clock *fakeClock) (tokenstore.Store, tokenstore.Store) {
		t.Helper()
		name := "tokens_" + uuid.NewString()
		t.Cleanup(func() { _ = db.Collection(name).Drop(context.Background()) })

		opts := []tokenstore.Option{tokenstore.WithClock(clock.Now), tokenstore.WithCollection(name)}
		access := tokenstore.NewMongo(db, tokenstore.AccessTokenMapper(), tokenstore.AccessTokenType, opts...)
		require.NoError(t, access.EnsureIndexes(context.Background()))
		remember := tokenstore.NewMongo(db, tokenstore.RememberMeMapper(), tokenstore.RememberMeType("web"), opts...)
		return access, remember
	}
}

func TestMongo(t *testing.T) {
	url := os.Getenv("MONGODB_URL")
	if url == "" {
		t.Skip("MONGODB_URL is not set")
	}

	ctx := context.Background()
	client, err := mongo.Connect(options.Client().ApplyURI(url))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })
	require.NoError(t, client.Ping(ctx, nil))

	runStoreContract(t, mongoFactory(client.Database("guardkit_test")))
}
