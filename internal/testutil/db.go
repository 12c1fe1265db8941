package testutil

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/kneetrack/kneetrack/internal/app/system/indexes"
)

// SetupTestDB connects to the MongoDB instance named by
// KNEETRACK_TEST_MONGO_URI and returns a uniquely named database that
// is dropped when the test finishes. Tests that need a live database
// are skipped when the variable is unset.
func SetupTestDB(t *testing.T) *mongo.Database {
	t.Helper()

	uri := os.Getenv("KNEETRACK_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("KNEETRACK_TEST_MONGO_URI not set; skipping database test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		t.Fatalf("failed to connect to test MongoDB: %v", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		t.Fatalf("failed to ping test MongoDB: %v", err)
	}

	db := client.Database(fmt.Sprintf("kneetrack_test_%d", time.Now().UnixNano()))

	// Unique-key behavior (duplicate emails, licenses) comes from the
	// same indexes production uses.
	if err := indexes.EnsureAll(ctx, db, indexes.Options{}); err != nil {
		t.Fatalf("failed to create test indexes: %v", err)
	}

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := db.Drop(ctx); err != nil {
			t.Logf("failed to drop test database: %v", err)
		}
		_ = client.Disconnect(ctx)
	})

	return db
}
