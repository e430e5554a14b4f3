package docstore

import (
	"context"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testStore runs the behaviour every Store backend must share. open returns an empty store.
func testStore(t *testing.T, open func(t *testing.T) Store) {
	t.Run("GetMissing", func(t *testing.T) {
		s := open(t)
		_, err := s.Get(context.Background(), "c", "k")
		assert.ErrorIs(t, err, ErrNotFound)

		doc, err := Lookup(context.Background(), s, "c", "k")
		require.NoError(t, err)
		assert.Nil(t, doc)
	})

	t.Run("SetMergeDelete", func(t *testing.T) {
		ctx := context.Background()
		s := open(t)
		require.NoError(t, Set(ctx, s, "people", "a", Fields{"name": "Ada", "age": "36"}))
		require.NoError(t, Merge(ctx, s, "people", "a", Fields{"age": "37", "city": "London"}))

		doc, err := s.Get(ctx, "people", "a")
		require.NoError(t, err)
		assert.Equal(t, Fields{"name": "Ada", "age": "37", "city": "London"}, doc.Fields)

		require.NoError(t, Set(ctx, s, "people", "a", Fields{"name": "Ada L."}))
		doc, err = s.Get(ctx, "people", "a")
		require.NoError(t, err)
		assert.Equal(t, Fields{"name": "Ada L."}, doc.Fields)

		require.NoError(t, Delete(ctx, s, "people", "a"))
		require.NoError(t, Delete(ctx, s, "people", "a"), "deleting a missing document is not an error")
		_, err = s.Get(ctx, "people", "a")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("MergeCreates", func(t *testing.T) {
		ctx := context.Background()
		s := open(t)
		require.NoError(t, Merge(ctx, s, "c", "k", Fields{"x": "1"}))
		doc, err := s.Get(ctx, "c", "k")
		require.NoError(t, err)
		assert.Equal(t, "1", doc.Fields["x"])
	})

	t.Run("ListOrderedByKey", func(t *testing.T) {
		ctx := context.Background()
		s := open(t)
		for _, k := range []string{"b", "c", "a"} {
			require.NoError(t, Set(ctx, s, "c", k, Fields{"k": k}))
		}
		require.NoError(t, Set(ctx, s, "other", "z", Fields{}))

		docs, err := s.List(ctx, "c")
		require.NoError(t, err)
		require.Len(t, docs, 3)
		assert.Equal(t, "a", docs[0].Key)
		assert.Equal(t, "b", docs[1].Key)
		assert.Equal(t, "c", docs[2].Key)

		empty, err := s.List(ctx, "missing")
		require.NoError(t, err)
		assert.Empty(t, empty)
	})

	t.Run("VersionChangesOnWrite", func(t *testing.T) {
		ctx := context.Background()
		s := open(t)
		require.NoError(t, Set(ctx, s, "c", "k", Fields{"x": "1"}))
		first, err := s.Get(ctx, "c", "k")
		require.NoError(t, err)
		require.NoError(t, Merge(ctx, s, "c", "k", Fields{"y": "2"}))
		second, err := s.Get(ctx, "c", "k")
		require.NoError(t, err)
		assert.NotEqual(t, first.Version, second.Version)
	})

	t.Run("VersionNotReusedAfterRecreate", func(t *testing.T) {
		ctx := context.Background()
		s := open(t)
		require.NoError(t, Set(ctx, s, "c", "k", Fields{"x": "1"}))
		old, err := s.Get(ctx, "c", "k")
		require.NoError(t, err)
		require.NoError(t, Delete(ctx, s, "c", "k"))
		require.NoError(t, Set(ctx, s, "c", "k", Fields{"x": "2"}))

		stale := Write{Op: OpMerge, Collection: "c", Key: "k", Fields: Fields{"x": "3"}, Precondition: Unchanged(old)}
		assert.ErrorIs(t, s.Commit(ctx, stale), ErrPreconditionFailed)
		doc, err := s.Get(ctx, "c", "k")
		require.NoError(t, err)
		assert.Equal(t, "2", doc.Fields["x"])
	})

	t.Run("Preconditions", func(t *testing.T) {
		ctx := context.Background()
		s := open(t)

		create := Write{Op: OpSet, Collection: "c", Key: "k", Fields: Fields{"v": "1"}, Precondition: Unchanged(nil)}
		require.NoError(t, s.Commit(ctx, create))
		assert.ErrorIs(t, s.Commit(ctx, create), ErrPreconditionFailed, "MustNotExist on an existing document")

		seen, err := s.Get(ctx, "c", "k")
		require.NoError(t, err)
		require.NoError(t, Merge(ctx, s, "c", "k", Fields{"v": "2"}))

		stale := Write{Op: OpMerge, Collection: "c", Key: "k", Fields: Fields{"v": "3"}, Precondition: Unchanged(seen)}
		assert.ErrorIs(t, s.Commit(ctx, stale), ErrPreconditionFailed)

		fresh, err := s.Get(ctx, "c", "k")
		require.NoError(t, err)
		assert.Equal(t, "2", fresh.Fields["v"])
		stale.Precondition = Unchanged(fresh)
		require.NoError(t, s.Commit(ctx, stale))

		missing := Write{Op: OpMerge, Collection: "c", Key: "gone", Fields: Fields{}, Precondition: Precondition{Version: "1"}}
		assert.ErrorIs(t, s.Commit(ctx, missing), ErrPreconditionFailed, "version precondition on a missing document")
	})

	t.Run("CommitIsAtomic", func(t *testing.T) {
		ctx := context.Background()
		s := open(t)
		require.NoError(t, Set(ctx, s, "c", "taken", Fields{"v": "x"}))

		err := s.Commit(ctx,
			Write{Op: OpSet, Collection: "c", Key: "new", Fields: Fields{"v": "1"}},
			Write{Op: OpDelete, Collection: "c", Key: "taken"},
			Write{Op: OpSet, Collection: "c", Key: "other", Fields: Fields{}, Precondition: Precondition{Version: "12345678"}},
		)
		assert.ErrorIs(t, err, ErrPreconditionFailed)

		_, err = s.Get(ctx, "c", "new")
		assert.ErrorIs(t, err, ErrNotFound, "first write must be rolled back")
		_, err = s.Get(ctx, "c", "taken")
		assert.NoError(t, err, "delete must be rolled back")
	})

	t.Run("PreconditionSeesEarlierWritesInCommit", func(t *testing.T) {
		ctx := context.Background()
		s := open(t)
		err := s.Commit(ctx,
			Write{Op: OpSet, Collection: "c", Key: "k", Fields: Fields{"v": "1"}},
			Write{Op: OpSet, Collection: "c", Key: "k", Fields: Fields{"v": "2"}, Precondition: Precondition{MustNotExist: true}},
		)
		assert.ErrorIs(t, err, ErrPreconditionFailed)

		require.NoError(t, s.Commit(ctx,
			Write{Op: OpSet, Collection: "c", Key: "k", Fields: Fields{"v": "1"}},
			Write{Op: OpDelete, Collection: "c", Key: "k"},
			Write{Op: OpSet, Collection: "c", Key: "k", Fields: Fields{"v": "3"}, Precondition: Precondition{MustNotExist: true}},
		))
		doc, err := s.Get(ctx, "c", "k")
		require.NoError(t, err)
		assert.Equal(t, "3", doc.Fields["v"])
	})

	t.Run("ConcurrentCreateHasOneWinner", func(t *testing.T) {
		ctx := context.Background()
		s := open(t)
		const writers = 8

		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			winners []string
		)
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				owner := strconv.Itoa(i)
				// Two writes per commit, like an email change claiming a new index key.
				err := s.Commit(ctx,
					Write{Op: OpSet, Collection: "idx", Key: "c@pitt.edu", Fields: Fields{"owner": owner}, Precondition: Precondition{MustNotExist: true}},
					Write{Op: OpMerge, Collection: "owners", Key: owner, Fields: Fields{"email": "c@pitt.edu"}},
				)
				if err != nil {
					assert.ErrorIs(t, err, ErrPreconditionFailed)
					return
				}
				mu.Lock()
				winners = append(winners, owner)
				mu.Unlock()
			}(i)
		}
		wg.Wait()

		require.Len(t, winners, 1)
		doc, err := s.Get(ctx, "idx", "c@pitt.edu")
		require.NoError(t, err)
		assert.Equal(t, winners[0], doc.Fields["owner"])
		owners, err := s.List(ctx, "owners")
		require.NoError(t, err)
		assert.Len(t, owners, 1, "losing commits must leave no writes behind")
	})
}
