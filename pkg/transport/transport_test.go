package transport

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestConnStateMachine_ValidPath(t *testing.T) {
	t.Parallel()

	m := NewConnStateMachine()
	path := []ConnState{StateConnecting, StateAuthenticating, StateSubscribing, StateLive, StateDraining, StateDisconnected}
	for _, s := range path {
		require.True(t, m.Transition(s), "expected transition to %s to succeed", s)
	}
	assert.Equal(t, StateDisconnected, m.Current())
}

func TestConnStateMachine_RejectsIllegalTransition(t *testing.T) {
	t.Parallel()

	m := NewConnStateMachine()
	assert.False(t, m.Transition(StateLive), "cannot jump straight to Live from Disconnected")
	assert.Equal(t, StateDisconnected, m.Current())
}

func TestIsTerminal(t *testing.T) {
	t.Parallel()

	assert.True(t, IsTerminal(StateDraining))
	assert.True(t, IsTerminal(StateFailed))
	assert.False(t, IsTerminal(StateLive))
}

func echoWSServer(t *testing.T) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			mt, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			_ = conn.WriteMessage(mt, msg)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestManager_SubscribeAndReceive(t *testing.T) {
	t.Parallel()

	srv := echoWSServer(t)
	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	m := New(Config{
		Venue:          "A",
		URL:            url,
		DialTimeout:    2 * time.Second,
		PingInterval:   time.Hour,
		ReconnectDelay: 5 * time.Second,
		BufferSize:     16,
		Logger:         zaptest.NewLogger(t),
		BuildSubscribe: func(ids []string, isInitial bool) interface{} {
			return map[string]interface{}{"ids": ids, "initial": isInitial}
		},
	})

	require.NoError(t, m.Start())
	defer m.Close()

	require.NoError(t, m.Subscribe([]string{"TICK-1", "TICK-2"}))

	select {
	case msg := <-m.Messages():
		assert.Contains(t, string(msg), "TICK-1")
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for echoed subscribe frame")
	}

	assert.Equal(t, StateLive, m.State())
}

func TestManager_SubscribeDedupesAndSkipsEmpty(t *testing.T) {
	t.Parallel()

	srv := echoWSServer(t)
	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	var lastIDs []string
	m := New(Config{
		Venue:          "B",
		URL:            url,
		DialTimeout:    2 * time.Second,
		PingInterval:   time.Hour,
		ReconnectDelay: 5 * time.Second,
		BufferSize:     16,
		Logger:         zaptest.NewLogger(t),
		BuildSubscribe: func(ids []string, isInitial bool) interface{} {
			lastIDs = ids
			return map[string]interface{}{"ids": ids}
		},
	})

	require.NoError(t, m.Start())
	defer m.Close()

	require.NoError(t, m.Subscribe([]string{"TICK-1"}))
	<-m.Messages()

	require.NoError(t, m.Subscribe([]string{"TICK-1"})) // already subscribed, no frame sent
	require.NoError(t, m.Subscribe(nil))

	assert.Equal(t, []string{"TICK-1"}, lastIDs)
}
