package server_test

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kode4food/sequin/internal/assert/helpers"
	"github.com/kode4food/sequin/pkg/api"
)

type testWebSocketEnv struct {
	*testServerEnv
	HTTP *httptest.Server
	Conn *websocket.Conn
}

const (
	wsReadTimeout   = 500 * time.Millisecond
	wsSettleTimeout = 100 * time.Millisecond
)

func testWebSocket(t *testing.T) *testWebSocketEnv {
	t.Helper()

	env := testServer(t)
	srv := httptest.NewServer(env.Server.SetupRoutes())
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/engine/ws"

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	return &testWebSocketEnv{
		testServerEnv: env,
		HTTP:          srv,
		Conn:          conn,
	}
}

func (e *testWebSocketEnv) Close() {
	_ = e.Conn.Close()
	e.HTTP.Close()
	e.Cleanup()
}

func (e *testWebSocketEnv) read(t *testing.T) *api.RunEvent {
	t.Helper()
	_ = e.Conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	var ev api.RunEvent
	require.NoError(t, e.Conn.ReadJSON(&ev))
	return &ev
}

func TestSocketIdle(t *testing.T) {
	env := testWebSocket(t)
	defer env.Close()

	_ = env.Conn.SetReadDeadline(time.Now().Add(wsSettleTimeout))
	_, _, err := env.Conn.ReadMessage()
	assert.Error(t, err)
}

func TestSocketStreamsRunEvents(t *testing.T) {
	env := testWebSocket(t)
	defer env.Close()

	def := helpers.NewWorkflow("Streamed",
		helpers.NewTaskStep("Only", "do it"),
	)
	res := env.Engine.RunWorkflow(context.Background(), def, nil)
	require.True(t, res.Success)

	var types []api.EventType
	for {
		ev := env.read(t)
		assert.Equal(t, res.RunID, ev.RunID)
		types = append(types, ev.Type)
		if ev.Type.IsTerminal() {
			break
		}
	}
	assert.Equal(t, []api.EventType{
		api.EventTypeWorkflowStarted,
		api.EventTypeStepStarted,
		api.EventTypeStepCompleted,
		api.EventTypeWorkflowCompleted,
	}, types)
}

func TestSocketSubscribeFilter(t *testing.T) {
	env := testWebSocket(t)
	defer env.Close()

	err := env.Conn.WriteJSON(api.SubscribeRequest{
		Type: "subscribe",
		Data: api.ClientSubscription{
			EventTypes: []api.EventType{api.EventTypeWorkflowCompleted},
		},
	})
	require.NoError(t, err)
	time.Sleep(wsSettleTimeout)

	def := helpers.NewWorkflow("Filtered",
		helpers.NewTaskStep("One", "first"),
		helpers.NewTaskStep("Two", "second"),
	)
	res := env.Engine.RunWorkflow(context.Background(), def, nil)
	require.True(t, res.Success)

	ev := env.read(t)
	assert.Equal(t, api.EventTypeWorkflowCompleted, ev.Type)
	assert.Equal(t, res.RunID, ev.RunID)
}

func TestSocketIgnoresInvalidMessage(t *testing.T) {
	env := testWebSocket(t)
	defer env.Close()

	err := env.Conn.WriteMessage(websocket.TextMessage, []byte("not json"))
	require.NoError(t, err)
	time.Sleep(wsSettleTimeout)

	def := helpers.NewWorkflow("After Garbage",
		helpers.NewTaskStep("Only", "do it"),
	)
	env.Engine.RunWorkflow(context.Background(), def, nil)

	ev := env.read(t)
	assert.Equal(t, api.EventTypeWorkflowStarted, ev.Type)
}

func TestCloseWebSockets(t *testing.T) {
	env := testWebSocket(t)
	defer env.Close()

	env.Server.CloseWebSockets()

	_ = env.Conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	_, _, err := env.Conn.ReadMessage()
	assert.Error(t, err)
}
