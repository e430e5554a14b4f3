package docstore

import (
	"context"
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/PittChallenge/pittchallenge.com/pkg/database"
)

// openTestPostgres connects to TEST_DATABASE_URL, migrates it and empties the documents table.
func openTestPostgres(t *testing.T) *Postgres {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	require.NoError(t, database.Migrate(dsn, zap.NewNop()))
	pool, err := database.NewPostgresPool(ctx, dsn, 10, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	_, err = pool.Exec(ctx, `TRUNCATE documents`)
	require.NoError(t, err)
	return NewPostgres(pool)
}

func TestPostgresStore(t *testing.T) {
	testStore(t, func(t *testing.T) Store { return openTestPostgres(t) })
}

func TestPostgresKeepsLargeNumbers(t *testing.T) {
	ctx := context.Background()
	p := openTestPostgres(t)
	require.NoError(t, Set(ctx, p, "c", "k", Fields{"id": json.Number("9007199254740993"), "ok": true}))
	require.NoError(t, Merge(ctx, p, "c", "k", Fields{"nested": map[string]any{"a": "b"}}))

	doc, err := p.Get(ctx, "c", "k")
	require.NoError(t, err)
	assert.Equal(t, json.Number("9007199254740993"), doc.Fields["id"])
	assert.Equal(t, true, doc.Fields["ok"])
	assert.Equal(t, map[string]any{"a": "b"}, doc.Fields["nested"])
}

func TestPostgresRejectsMalformedVersion(t *testing.T) {
	ctx := context.Background()
	p := openTestPostgres(t)
	require.NoError(t, Set(ctx, p, "c", "k", Fields{}))
	err := p.Commit(ctx, Write{Op: OpMerge, Collection: "c", Key: "k", Fields: Fields{}, Precondition: Precondition{Version: "abc"}})
	assert.ErrorIs(t, err, ErrPreconditionFailed)
}
