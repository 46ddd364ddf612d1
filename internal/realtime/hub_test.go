package realtime

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/memoria-social/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHub() *Hub {
	return NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestHub_PublishReachesOnlyThatPost(t *testing.T) {
	hub := newTestHub()
	a, cancelA := hub.Subscribe("post-a")
	defer cancelA()
	b, cancelB := hub.Subscribe("post-b")
	defer cancelB()

	hub.Publish(models.CommentEvent{Type: models.EventCommentAdded, PostID: "post-a", CommentID: 1})

	select {
	case got := <-a:
		assert.Equal(t, int64(1), got.CommentID)
	case <-time.After(time.Second):
		t.Fatal("subscriber of post-a got nothing")
	}
	select {
	case got := <-b:
		t.Fatalf("unexpected event for post-b: %+v", got)
	default:
	}
}

func TestHub_CancelRemovesSubscriber(t *testing.T) {
	hub := newTestHub()
	events, cancel := hub.Subscribe("p")
	assert.Equal(t, 1, hub.SubscriberCount("p"))

	cancel()
	cancel()
	assert.Equal(t, 0, hub.SubscriberCount("p"))
	_, open := <-events
	assert.False(t, open)
}

func TestHub_DropsSlowSubscriber(t *testing.T) {
	hub := newTestHub()
	hub.buffer = 1
	events, cancel := hub.Subscribe("p")
	defer cancel()

	hub.Publish(models.CommentEvent{PostID: "p", CommentID: 1})
	hub.Publish(models.CommentEvent{PostID: "p", CommentID: 2})

	assert.Equal(t, 0, hub.SubscriberCount("p"))
	first, ok := <-events
	require.True(t, ok)
	assert.Equal(t, int64(1), first.CommentID)
	_, ok = <-events
	assert.False(t, ok)
}

func TestHub_ServeWS(t *testing.T) {
	hub := newTestHub()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWS(w, r, "p1")
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.SubscriberCount("p1") == 1 }, time.Second, 10*time.Millisecond)

	likes := 3
	hub.Publish(models.CommentEvent{Type: models.EventCommentLiked, PostID: "p1", CommentID: 7, Likes: &likes})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got models.CommentEvent
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, models.EventCommentLiked, got.Type)
	assert.Equal(t, int64(7), got.CommentID)
	require.NotNil(t, got.Likes)
	assert.Equal(t, 3, *got.Likes)

	conn.Close()
	assert.Eventually(t, func() bool { return hub.SubscriberCount("p1") == 0 }, 2*time.Second, 10*time.Millisecond)
}
