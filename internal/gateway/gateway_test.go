package gateway

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quoter/internal/core"
	"quoter/internal/logging"
	apperrors "quoter/pkg/errors"
)

// testServer runs a websocket endpoint whose frame handler is supplied per
// test. Responses are written from the handler goroutine only.
type testServer struct {
	srv  *httptest.Server
	conn chan *websocket.Conn
}

func newTestServer(t *testing.T, handle func(conn *websocket.Conn, env envelope)) *testServer {
	t.Helper()
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	ts := &testServer{conn: make(chan *websocket.Conn, 1)}

	ts.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		ts.conn <- conn
		for {
			_, message, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var env envelope
			require.NoError(t, json.Unmarshal(message, &env))
			handle(conn, env)
		}
	}))
	t.Cleanup(ts.srv.Close)
	return ts
}

func (ts *testServer) url() string {
	return "ws" + strings.TrimPrefix(ts.srv.URL, "http")
}

func newTestGateway(t *testing.T, ts *testServer) *Gateway {
	t.Helper()
	g := New(true, ts.url(), "http://localhost", logging.NewNop())
	require.NoError(t, g.Connect())
	t.Cleanup(func() { g.Close() })
	return g
}

func reply(conn *websocket.Conn, id int64, result string) {
	payload := fmt.Sprintf(`{"id":%d,"result":%s}`, id, result)
	conn.WriteMessage(websocket.TextMessage, []byte(payload))
}

func push(conn *websocket.Conn, channel, data string) {
	payload := fmt.Sprintf(`{"result":{"channel":%q,"data":%s}}`, channel, data)
	conn.WriteMessage(websocket.TextMessage, []byte(payload))
}

func TestSend_CorrelatesResponse(t *testing.T) {
	ts := newTestServer(t, func(conn *websocket.Conn, env envelope) {
		reply(conn, env.ID, `{"tag":"ok","value":42}`)
	})
	g := newTestGateway(t, ts)

	got := make(chan Result, 1)
	require.NoError(t, g.Send(core.MethodCall, map[string]string{"x": "y"}, func(res Result) {
		got <- res
	}))

	select {
	case res := <-got:
		assert.True(t, res.OK())
		assert.JSONEq(t, "42", string(res.Value))
	case <-time.After(2 * time.Second):
		t.Fatal("no response received")
	}

	// the correlation id must be recycled once answered
	assert.Eventually(t, func() bool {
		g.mu.Lock()
		defer g.mu.Unlock()
		return len(g.inflight) == 0 && len(g.pending) == 0
	}, time.Second, 10*time.Millisecond)
}

func TestSend_NotConnected(t *testing.T) {
	g := New(true, "", "", logging.NewNop())
	err := g.Send(core.MethodCall, nil, nil)
	assert.ErrorIs(t, err, apperrors.ErrNotConnected)
}

func TestSubscribe_InstallsHandlerOnAck(t *testing.T) {
	ts := newTestServer(t, func(conn *websocket.Conn, env envelope) {
		if env.Method == core.MethodChannelSubscribe {
			reply(conn, env.ID, `{"tag":"ok","value":null}`)
			push(conn, core.ChannelOrderbook, `{"seq":1}`)
		}
	})
	g := newTestGateway(t, ts)

	got := make(chan json.RawMessage, 1)
	require.NoError(t, g.Subscribe(core.ChannelOrderbook, func(data json.RawMessage) {
		got <- data
	}))

	select {
	case data := <-got:
		assert.JSONEq(t, `{"seq":1}`, string(data))
	case <-time.After(2 * time.Second):
		t.Fatal("push not delivered")
	}
}

func TestSubscribe_RejectedDoesNotInstall(t *testing.T) {
	ts := newTestServer(t, func(conn *websocket.Conn, env envelope) {
		reply(conn, env.ID, `{"tag":"err","value":{"code":"NOT_AUTHORIZED"}}`)
	})
	g := newTestGateway(t, ts)

	require.NoError(t, g.Subscribe(core.ChannelOrders, func(json.RawMessage) {
		t.Error("handler must not be installed on a rejected subscribe")
	}))

	assert.Eventually(t, func() bool {
		g.mu.Lock()
		defer g.mu.Unlock()
		return len(g.pending) == 0
	}, time.Second, 10*time.Millisecond)

	g.mu.Lock()
	defer g.mu.Unlock()
	assert.Empty(t, g.channels)
}

func TestDispatch_UnmatchedResponseDropped(t *testing.T) {
	g := New(true, "", "", logging.NewNop())

	// a response for an id nobody is waiting on must be a no-op
	g.dispatch([]byte(`{"id":777,"result":{"tag":"ok","value":null}}`))
	g.dispatch([]byte(`not json at all`))

	g.mu.Lock()
	defer g.mu.Unlock()
	assert.Empty(t, g.pending)
}

func TestDispatch_PushWithoutSubscriptionDropped(t *testing.T) {
	g := New(true, "", "", logging.NewNop())
	g.dispatch([]byte(`{"result":{"channel":"orderbook","data":{}}}`))
}

func TestNextID_SkipsInflight(t *testing.T) {
	g := New(true, "", "", logging.NewNop())

	g.mu.Lock()
	seen := map[int64]bool{}
	for i := 0; i < 5000; i++ {
		id := g.nextIDLocked()
		require.Greater(t, id, int64(0))
		require.LessOrEqual(t, id, int64(idSpace))
		require.False(t, seen[id], "id %d issued twice while in flight", id)
		seen[id] = true
		g.inflight[id] = struct{}{}
	}
	g.mu.Unlock()
}

func TestDisconnect_CleanCloseClassified(t *testing.T) {
	ts := newTestServer(t, func(conn *websocket.Conn, env envelope) {})
	g := New(true, ts.url(), "http://localhost", logging.NewNop())

	down := make(chan error, 1)
	g.SetDisconnectHandler(func(err error) { down <- err })
	require.NoError(t, g.Connect())

	conn := <-ts.conn
	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"),
		time.Now().Add(time.Second))
	conn.Close()

	select {
	case err := <-down:
		assert.ErrorIs(t, err, apperrors.ErrSocketClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("disconnect not reported")
	}
}

func TestDisconnect_AbruptCloseClassified(t *testing.T) {
	ts := newTestServer(t, func(conn *websocket.Conn, env envelope) {})
	g := New(true, ts.url(), "http://localhost", logging.NewNop())

	down := make(chan error, 1)
	g.SetDisconnectHandler(func(err error) { down <- err })
	require.NoError(t, g.Connect())

	conn := <-ts.conn
	conn.Close()

	select {
	case err := <-down:
		assert.ErrorIs(t, err, apperrors.ErrSocketError)
	case <-time.After(2 * time.Second):
		t.Fatal("disconnect not reported")
	}
}
