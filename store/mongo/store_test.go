package mongo_test

import (
	"context"
	"os"
	"testing"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	"github.com/xraph/tokenledger/store/mongo"
	"github.com/xraph/tokenledger/store/storetest"
)

// envURI names the database used by the integration test, for example
// mongodb://localhost:27017/tokenledger_test.
const envURI = "TOKENLEDGER_TEST_MONGO_URI"

func TestStore(t *testing.T) {
	uri := os.Getenv(envURI)
	if uri == "" {
		t.Skipf("%s not set", envURI)
	}
	ctx := context.Background()

	mdb := mongodriver.New()
	if err := mdb.Open(ctx, uri); err != nil {
		t.Fatalf("open mongo: %v", err)
	}
	db, err := grove.Open(mdb)
	if err != nil {
		t.Fatalf("grove.Open: %v", err)
	}
	s := mongo.New(db)
	for _, col := range []string{"tokenledger_events", "tokenledger_tokens"} {
		if _, err := mdb.Collection(col).DeleteMany(ctx, bson.M{}); err != nil {
			t.Fatalf("clear %s: %v", col, err)
		}
	}
	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("Migrate: %v", err)
	}

	storetest.Run(t, s)
}
