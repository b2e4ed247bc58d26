package handler_test

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/skp-companion/internal/events"
)

func startFiberServer(t *testing.T, app *fiber.App) string {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		if err := app.Listener(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			t.Logf("fiber listener stopped: %v", err)
		}
		close(done)
	}()
	time.Sleep(50 * time.Millisecond)

	t.Cleanup(func() {
		_ = app.Shutdown()
		_ = listener.Close()
		select {
		case <-done:
		case <-time.After(200 * time.Millisecond):
		}
	})

	return "ws://" + listener.Addr().String()
}

func TestPendingEventsStreamSnapshotThenUpdates(t *testing.T) {
	env := setupApp(t)
	base := startFiberServer(t, env.app)

	conn, _, err := websocket.DefaultDialer.Dial(base+"/api/v1/pending/events", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	var snapshot events.Event
	require.NoError(t, conn.ReadJSON(&snapshot))
	require.Equal(t, events.PendingSnapshot, snapshot.Type)
	require.Zero(t, snapshot.Count)

	require.Eventually(t, func() bool { return env.broker.Subscribers() == 1 }, time.Second, 10*time.Millisecond)
	env.broker.Publish(context.Background(), events.Event{Type: events.PendingQueued, PendingID: "p-1", Count: 1, OccurredAt: time.Now().UTC()})

	var update events.Event
	require.NoError(t, conn.ReadJSON(&update))
	require.Equal(t, events.PendingQueued, update.Type)
	require.Equal(t, "p-1", update.PendingID)
	require.Equal(t, 1, update.Count)
}

func TestPendingEventsRequireUpgrade(t *testing.T) {
	env := setupApp(t)

	resp, err := env.app.Test(request(http.MethodGet, "/api/v1/pending/events", "", strings.NewReader(""), ""))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUpgradeRequired, resp.StatusCode)
}
