package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PittChallenge/pittchallenge.com/internal/checkins"
)

func dial(t *testing.T, h *Hub, query string) *websocket.Conn {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/liveCheckins", h.Serve)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/liveCheckins" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readCheckIn(t *testing.T, conn *websocket.Conn) checkins.Result {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, MessageCheckedIn, msg.Type)
	var r checkins.Result
	require.NoError(t, json.Unmarshal(msg.Data, &r))
	return r
}

func TestLiveFeedRooms(t *testing.T) {
	h := NewHub(nil, nil)
	all := dial(t, h, "")
	lunch := dial(t, h, "?event=%20Lunch%20")
	require.Eventually(t, func() bool { return h.Watchers(AllEvents) == 1 && h.Watchers("lunch") == 1 }, 2*time.Second, 10*time.Millisecond)

	h.PublishCheckIn(context.Background(), checkins.Result{ID: "7", Email: "ada@pitt.edu", Event: "opening", Timestamp: "2024-02-01T10:30:00.000Z"})
	h.PublishCheckIn(context.Background(), checkins.Result{ID: "8", Email: "bob@pitt.edu", Event: "lunch", Timestamp: "2024-02-01T12:00:00.000Z"})

	assert.Equal(t, "7", readCheckIn(t, all).ID)
	assert.Equal(t, "8", readCheckIn(t, all).ID)
	assert.Equal(t, "8", readCheckIn(t, lunch).ID, "the lunch dashboard only sees lunch check-ins")

	_ = lunch.Close()
	require.Eventually(t, func() bool { return h.Watchers("lunch") == 0 }, 2*time.Second, 10*time.Millisecond)
}

type fakeBus struct {
	mu         sync.Mutex
	handlers   []func([]byte)
	publishErr error
	subErr     error
}

func (b *fakeBus) Publish(_ context.Context, payload []byte) error {
	if b.publishErr != nil {
		return b.publishErr
	}
	b.mu.Lock()
	hs := append(([]func([]byte))(nil), b.handlers...)
	b.mu.Unlock()
	for _, fn := range hs {
		fn(payload)
	}
	return nil
}

func (b *fakeBus) Subscribe(_ context.Context, handler func([]byte)) (func(), error) {
	if b.subErr != nil {
		return nil, b.subErr
	}
	b.mu.Lock()
	b.handlers = append(b.handlers, handler)
	b.mu.Unlock()
	return func() {}, nil
}

func TestLiveFeedAcrossInstances(t *testing.T) {
	bus := &fakeBus{}
	publisher := NewHub(bus, nil)
	watcher := NewHub(bus, nil)
	require.NoError(t, publisher.Start(context.Background()))
	require.NoError(t, watcher.Start(context.Background()))
	defer publisher.Stop()
	defer watcher.Stop()

	local := dial(t, publisher, "")
	remote := dial(t, watcher, "?event=opening")
	require.Eventually(t, func() bool { return publisher.Watchers(AllEvents) == 1 && watcher.Watchers("opening") == 1 }, 2*time.Second, 10*time.Millisecond)

	publisher.PublishCheckIn(context.Background(), checkins.Result{ID: "7", Event: "opening"})
	assert.Equal(t, "7", readCheckIn(t, remote).ID)
	assert.Equal(t, "7", readCheckIn(t, local).ID)

	// Delivered once: nothing else is pending on the publishing instance.
	require.NoError(t, local.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	_, _, err := local.ReadMessage()
	assert.Error(t, err)
}

func TestLiveFeedFallsBackToLocal(t *testing.T) {
	h := NewHub(&fakeBus{subErr: errors.New("redis down")}, nil)
	assert.Error(t, h.Start(context.Background()))

	conn := dial(t, h, "")
	require.Eventually(t, func() bool { return h.Watchers(AllEvents) == 1 }, 2*time.Second, 10*time.Millisecond)
	h.PublishCheckIn(context.Background(), checkins.Result{ID: "9", Event: "opening"})
	assert.Equal(t, "9", readCheckIn(t, conn).ID)
}

func TestRoomFor(t *testing.T) {
	assert.Equal(t, "opening", RoomFor(" Opening "))
	assert.Equal(t, AllEvents, RoomFor(""))
}
