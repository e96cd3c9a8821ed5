package migrations

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/magabrotheeeer/storefront/internal/storage/mongotest"
)

func TestRun_CreatesIndexes(t *testing.T) {
	uri := mongotest.SetupMongoContainer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	require.NoError(t, err)
	defer func() { _ = client.Disconnect(context.Background()) }()

	first, err := Run(client, "migrations_test", mongotest.MigrationsPath)
	require.NoError(t, err)
	assert.NotZero(t, first)

	// повторный запуск ничего не меняет
	second, err := Run(client, "migrations_test", mongotest.MigrationsPath)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	indexNames := func(collection string) []string {
		cur, err := client.Database("migrations_test").Collection(collection).Indexes().List(ctx)
		require.NoError(t, err)
		var specs []bson.M
		require.NoError(t, cur.All(ctx, &specs))
		names := make([]string, 0, len(specs))
		for _, s := range specs {
			names = append(names, s["name"].(string))
		}
		return names
	}

	assert.Subset(t, indexNames("users"), []string{"email_unique", "username_unique"})
	assert.Subset(t, indexNames("refresh_tokens"), []string{"token_unique", "expires_at"})
	assert.Subset(t, indexNames("products"), []string{"created_at_desc"})
}

func TestRun_MissingDirectory(t *testing.T) {
	uri := mongotest.SetupMongoContainer(t)

	client, err := mongo.Connect(context.Background(), options.Client().ApplyURI(uri))
	require.NoError(t, err)
	defer func() { _ = client.Disconnect(context.Background()) }()

	version, err := Run(client, "migrations_test", "./does-not-exist")
	require.Error(t, err)
	assert.Zero(t, version)
	assert.Contains(t, err.Error(), "migrations.Run: source ./does-not-exist")
}
