package websocket

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lugares/internal/domain/entity"
)

func startHub(t *testing.T) (*Manager, string) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	m := NewManager(slog.New(slog.NewTextHandler(io.Discard, nil)))
	m.Start(ctx)

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		m.Attach(conn, strings.TrimPrefix(r.URL.Path, "/"))
	}))
	t.Cleanup(srv.Close)

	return m, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestManager_RatingUpdatedReachesOnlyThatRestaurant(t *testing.T) {
	m, base := startHub(t)

	follower := dial(t, base+"/r1")
	other := dial(t, base+"/r2")
	require.Eventually(t, func() bool {
		return m.Subscribers("r1") == 1 && m.Subscribers("r2") == 1
	}, time.Second, 10*time.Millisecond)

	m.RatingUpdated("r1", entity.RatingResult{Average: 3.5, Count: 2})

	require.NoError(t, follower.SetReadDeadline(time.Now().Add(time.Second)))
	_, data, err := follower.ReadMessage()
	require.NoError(t, err)

	var msg RatingUpdatedMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, MessageTypeRatingUpdated, msg.Type)
	assert.Equal(t, "r1", msg.RestaurantID)
	assert.Equal(t, 3.5, msg.Average)
	assert.Equal(t, 2, msg.Count)

	require.NoError(t, other.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	_, _, err = other.ReadMessage()
	assert.Error(t, err, "r2 subscribers must not receive r1 updates")
}

func TestManager_PingPong(t *testing.T) {
	m, base := startHub(t)
	conn := dial(t, base+"/r1")
	require.Eventually(t, func() bool { return m.Subscribers("r1") == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.WriteJSON(WSMessage{Type: MessageTypePing}))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))

	var reply WSMessage
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, MessageTypePong, reply.Type)
}

func TestManager_UnsubscribesOnClose(t *testing.T) {
	m, base := startHub(t)
	conn := dial(t, base+"/r1")
	require.Eventually(t, func() bool { return m.Subscribers("r1") == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())

	assert.Eventually(t, func() bool { return m.Subscribers("r1") == 0 }, time.Second, 10*time.Millisecond)
}

func TestManager_RatingUpdatedWithoutSubscribers(t *testing.T) {
	m := NewManager(slog.New(slog.NewTextHandler(io.Discard, nil)))

	// Not started: the queue absorbs events and never blocks the caller.
	for i := 0; i < 300; i++ {
		m.RatingUpdated("r1", entity.RatingResult{Average: 4, Count: 1})
	}
}
