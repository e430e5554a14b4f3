package analytics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PittChallenge/pittchallenge.com/internal/models"
	"github.com/PittChallenge/pittchallenge.com/pkg/docstore"
)

func TestSummarize(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemory()
	for _, id := range []string{"1", "2", "3"} {
		require.NoError(t, docstore.Set(ctx, store, models.CollectionRegistrationsByID, id, docstore.Fields{"id": id}))
	}
	require.NoError(t, docstore.Set(ctx, store, models.CollectionCheckInsByID, "1", docstore.Fields{
		"id": "1", "email": "a@pitt.edu", "opening": "2024-02-01T10:00:00.000Z", "lunch": "2024-02-01T12:00:00.000Z",
		models.FieldConfirmationSent: "2024-02-01T10:05:00.000Z",
	}))
	require.NoError(t, docstore.Set(ctx, store, models.CollectionCheckInsByID, "2", docstore.Fields{
		"id": "2", "email": "b@pitt.edu", "lunch": "2024-02-01T12:01:00.000Z",
	}))

	sum, err := Summarize(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, &Summary{
		TotalRegistrations: 3,
		TotalCheckedIn:     2,
		TotalNoShow:        1,
		ConfirmationsSent:  1,
		ByEvent:            map[string]int{"opening": 1, "lunch": 2},
	}, sum)
}
