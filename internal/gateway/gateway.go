// Package gateway owns the websocket connection to the exchange and the
// request/response RPC layer multiplexed over it.
package gateway

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"quoter/internal/core"
	apperrors "quoter/pkg/errors"
)

// Exchange endpoints. The origin header is required by the server.
const (
	URLTestnet    = "wss://uat.zubr.io/api/v1/ws"
	OriginTestnet = "https://uat.zubr.io"
	URLLive       = "wss://zubr.io/api/v1/ws"
	OriginLive    = "https://zubr.io"

	userAgent = "Go MM Quoting Bot"

	// Correlation ids are drawn from [1, idSpace]. Uniqueness is only
	// required among in-flight requests, not globally.
	idSpace = 1 << 20

	pingDelay = 15 * time.Second
	writeWait = 10 * time.Second
)

// ResponseHandler is invoked exactly once with the correlated response.
type ResponseHandler func(res Result)

// ChannelHandler is invoked for every push on a subscribed channel.
type ChannelHandler func(data json.RawMessage)

// DisconnectHandler is notified once when the socket goes down. The error
// wraps apperrors.ErrSocketClosed for a clean close and
// apperrors.ErrSocketError otherwise.
type DisconnectHandler func(err error)

// Gateway is the transport layer: one websocket connection, a pending-request
// table keyed by correlation id and a persistent handler per channel.
// It never reconnects; a broken socket is reported to the owner and the
// gateway is done.
type Gateway struct {
	url    string
	origin string
	logger core.ILogger

	conn    *websocket.Conn
	writeMu sync.Mutex

	mu       sync.Mutex
	inflight map[int64]struct{}
	pending  map[int64]ResponseHandler
	channels map[string]ChannelHandler
	rng      *rand.Rand

	orderLimiter *rate.Limiter

	onDisconnect DisconnectHandler
	downOnce     sync.Once

	wg sync.WaitGroup
}

// New creates a gateway for the given environment. Explicit url/origin
// overrides win over the testnet flag.
func New(testnet bool, urlOverride, originOverride string, logger core.ILogger) *Gateway {
	url, origin := URLLive, OriginLive
	if testnet {
		url, origin = URLTestnet, OriginTestnet
	}
	if urlOverride != "" {
		url = urlOverride
	}
	if originOverride != "" {
		origin = originOverride
	}

	return &Gateway{
		url:      url,
		origin:   origin,
		logger:   logger.WithField("component", "gateway"),
		inflight: make(map[int64]struct{}),
		pending:  make(map[int64]ResponseHandler),
		channels: make(map[string]ChannelHandler),
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		// 25 order mutations per second with burst capacity
		orderLimiter: rate.NewLimiter(rate.Limit(25), 30),
	}
}

// SetDisconnectHandler installs the owner's notification hook. Must be called
// before Connect.
func (g *Gateway) SetDisconnectHandler(h DisconnectHandler) {
	g.onDisconnect = h
}

// Connect dials the exchange. There is no retry: a failed dial is fatal for
// the process and the caller decides how to exit.
func (g *Gateway) Connect() error {
	header := http.Header{}
	header.Set("Origin", g.origin)
	header.Set("User-Agent", userAgent)

	conn, _, err := websocket.DefaultDialer.Dial(g.url, header)
	if err != nil {
		return fmt.Errorf("%w: dial %s: %v", apperrors.ErrConnectionFailed, g.url, err)
	}
	g.conn = conn

	conn.SetPongHandler(func(string) error {
		// Self-clocking keepalive: each pong schedules the next ping, so a
		// slow pong naturally spaces out pings.
		time.AfterFunc(pingDelay, g.ping)
		return nil
	})

	g.logger.Info("connected to exchange", "url", g.url)

	g.wg.Add(1)
	go g.readLoop()

	g.ping()
	return nil
}

// Close tears the connection down. The read loop reports the resulting close
// through the disconnect handler unless it already fired.
func (g *Gateway) Close() error {
	if g.conn == nil {
		return nil
	}
	g.downOnce.Do(func() {}) // suppress the disconnect notification
	err := g.conn.Close()
	g.wg.Wait()
	return err
}

func (g *Gateway) ping() {
	if g.conn == nil {
		return
	}
	g.writeMu.Lock()
	err := g.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
	g.writeMu.Unlock()
	if err != nil {
		g.logger.Debug("ping failed", "error", err)
	}
}

// Send serializes an RPC envelope with a fresh correlation id and transmits
// it. A non-nil handler is invoked exactly once with the matching response.
func (g *Gateway) Send(method int, params interface{}, handler ResponseHandler) error {
	if g.conn == nil {
		return apperrors.ErrNotConnected
	}

	g.mu.Lock()
	id := g.nextIDLocked()
	g.inflight[id] = struct{}{}
	if handler != nil {
		g.pending[id] = handler
	}
	g.mu.Unlock()

	env := envelope{Method: method, Params: params, ID: id}
	payload, err := json.Marshal(env)
	if err != nil {
		g.mu.Lock()
		delete(g.inflight, id)
		delete(g.pending, id)
		g.mu.Unlock()
		return fmt.Errorf("failed to marshal rpc envelope: %w", err)
	}

	g.logger.Debug("rpc send", "payload", string(payload))

	g.writeMu.Lock()
	defer g.writeMu.Unlock()
	if err := g.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		g.mu.Lock()
		delete(g.inflight, id)
		delete(g.pending, id)
		g.mu.Unlock()
		return fmt.Errorf("failed to write rpc envelope: %w", err)
	}
	return nil
}

// nextIDLocked draws random correlation ids until one does not collide with
// an in-flight request. Ids are non-monotonic and recycled once the response
// arrives. g.mu must be held.
func (g *Gateway) nextIDLocked() int64 {
	for {
		id := int64(g.rng.Intn(idSpace)) + 1
		if _, taken := g.inflight[id]; !taken {
			return id
		}
	}
}

// Subscribe sends the channel-subscribe RPC and installs the persistent
// handler only once the server acknowledges, so pushes can never arrive
// before the handler is wired.
func (g *Gateway) Subscribe(channel string, handler ChannelHandler) error {
	g.mu.Lock()
	_, taken := g.channels[channel]
	g.mu.Unlock()
	if taken {
		return fmt.Errorf("%w: %s", apperrors.ErrAlreadySubscribed, channel)
	}

	return g.Send(core.MethodChannelSubscribe, channelParams{Channel: channel}, func(res Result) {
		if !res.OK() {
			g.logger.Error("subscription rejected", "channel", channel, "value", string(res.Value))
			return
		}
		g.mu.Lock()
		g.channels[channel] = handler
		g.mu.Unlock()
		g.logger.Info("subscribed", "channel", channel)
	})
}

// Unsubscribe sends the channel-unsubscribe RPC and drops the persistent
// handler once the server acknowledges. Pushes racing the acknowledgement are
// still handled; nothing is double-handled after it.
func (g *Gateway) Unsubscribe(channel string) error {
	return g.Send(core.MethodChannelUnsubscribe, channelParams{Channel: channel}, func(res Result) {
		g.mu.Lock()
		delete(g.channels, channel)
		g.mu.Unlock()
		g.logger.Info("unsubscribed", "channel", channel)
	})
}

// readLoop dispatches every inbound frame: correlated responses first, then
// channel pushes. Frames matching neither are dropped.
func (g *Gateway) readLoop() {
	defer g.wg.Done()

	for {
		_, message, err := g.conn.ReadMessage()
		if err != nil {
			g.reportDown(err)
			return
		}
		g.dispatch(message)
	}
}

func (g *Gateway) dispatch(message []byte) {
	g.logger.Debug("rpc recv", "payload", string(message))

	var f frame
	if err := json.Unmarshal(message, &f); err != nil {
		g.logger.Warn("undecodable frame dropped", "error", err)
		return
	}

	if f.ID != 0 {
		g.mu.Lock()
		delete(g.inflight, f.ID)
		handler, ok := g.pending[f.ID]
		if ok {
			delete(g.pending, f.ID)
		}
		g.mu.Unlock()

		if ok {
			var res Result
			if err := json.Unmarshal(f.Result, &res); err != nil {
				g.logger.Warn("undecodable rpc result", "id", f.ID, "error", err)
				return
			}
			handler(res)
			return
		}
	}

	var push channelPush
	if err := json.Unmarshal(f.Result, &push); err != nil || push.Channel == "" {
		return
	}

	g.mu.Lock()
	handler, ok := g.channels[push.Channel]
	g.mu.Unlock()
	if ok {
		handler(push.Data)
	}
}

// reportDown classifies the socket failure and notifies the owner once.
func (g *Gateway) reportDown(err error) {
	g.downOnce.Do(func() {
		cause := apperrors.ErrSocketError
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			cause = apperrors.ErrSocketClosed
		}
		g.logger.Error("connection lost", "error", err)
		if g.onDisconnect != nil {
			g.onDisconnect(fmt.Errorf("%w: %v", cause, err))
		}
	})
}
