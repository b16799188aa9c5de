package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/averymorin/tunelist/internal/shared"
	"github.com/charmbracelet/log"
	"github.com/coder/websocket"
)

// heartbeatInterval keeps the websocket alive; the backend drops
// connections that stay silent longer than a minute.
const heartbeatInterval = 30 * time.Second

// frame is the wire envelope for all realtime messages, in both directions.
type frame struct {
	Topic   string          `json:"topic"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
	Ref     string          `json:"ref,omitempty"`
}

// wsConn is the subset of [websocket.Conn] the client uses, extracted so
// tests can substitute an in-memory connection.
type wsConn interface {
	Read(ctx context.Context) (websocket.MessageType, []byte, error)
	Write(ctx context.Context, typ websocket.MessageType, p []byte) error
	Close(code websocket.StatusCode, reason string) error
}

// DialFunc opens a websocket connection to the realtime endpoint.
type DialFunc func(ctx context.Context, url string) (wsConn, error)

func defaultDial(ctx context.Context, url string) (wsConn, error) {
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// RealtimeClient multiplexes realtime channels over one websocket
// connection to the backend.
//
// Implements [Realtime]. The connection is established lazily on the first
// Subscribe and torn down by Close.
type RealtimeClient struct {
	url     string
	anonKey string
	session *AuthClient
	logger  *log.Logger
	dial    DialFunc

	mu       sync.Mutex
	conn     wsConn
	channels map[string]*realtimeChannel
	refSeq   int
	closed   bool
	cancel   context.CancelFunc
}

// RealtimeOpts contains configuration options for creating a RealtimeClient.
type RealtimeOpts struct {
	URL     string
	AnonKey string
	Session *AuthClient
	Logger  *log.Logger
	Dial    DialFunc
}

// NewRealtimeClient creates a realtime client for the websocket endpoint at
// opts.URL.
func NewRealtimeClient(opts RealtimeOpts) *RealtimeClient {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Dial == nil {
		opts.Dial = defaultDial
	}

	return &RealtimeClient{
		url:      opts.URL,
		anonKey:  opts.AnonKey,
		session:  opts.Session,
		logger:   opts.Logger,
		dial:     opts.Dial,
		channels: make(map[string]*realtimeChannel),
	}
}

// Channel returns the channel for topic, creating it if needed.
func (rc *RealtimeClient) Channel(topic string) Channel {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	if ch, ok := rc.channels[topic]; ok {
		return ch
	}

	ch := &realtimeChannel{client: rc, topic: topic}
	rc.channels[topic] = ch
	return ch
}

// RemoveChannel closes the channel and unregisters it. Safe to call more
// than once and on channels that never finished subscribing.
func (rc *RealtimeClient) RemoveChannel(ch Channel) {
	if ch == nil {
		return
	}

	rc.mu.Lock()
	registered, ok := rc.channels[ch.Topic()]
	if ok {
		delete(rc.channels, ch.Topic())
	}
	conn := rc.conn
	rc.mu.Unlock()

	if !ok || registered != ch {
		return
	}

	if conn != nil {
		leave := frame{Topic: ch.Topic(), Event: "phx_leave", Ref: rc.nextRef()}
		if err := rc.send(conn, leave); err != nil {
			rc.logger.Debug("failed to send leave frame", "topic", ch.Topic(), "error", err)
		}
	}

	registered.notify(StatusClosed, nil)
}

// Close tears down the connection and marks every channel closed.
func (rc *RealtimeClient) Close() {
	rc.mu.Lock()
	if rc.closed {
		rc.mu.Unlock()
		return
	}
	rc.closed = true
	conn := rc.conn
	rc.conn = nil
	cancel := rc.cancel
	channels := make([]*realtimeChannel, 0, len(rc.channels))
	for _, ch := range rc.channels {
		channels = append(channels, ch)
	}
	rc.channels = make(map[string]*realtimeChannel)
	rc.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		conn.Close(websocket.StatusNormalClosure, "client closed")
	}
	for _, ch := range channels {
		ch.notify(StatusClosed, nil)
	}
}

// ensureConn dials the realtime endpoint once and starts the read and
// heartbeat loops.
func (rc *RealtimeClient) ensureConn(ctx context.Context) (wsConn, error) {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	if rc.closed {
		return nil, shared.ErrChannelClosed
	}
	if rc.conn != nil {
		return rc.conn, nil
	}

	url := rc.url
	if rc.anonKey != "" {
		url = fmt.Sprintf("%s?apikey=%s&vsn=1.0.0", rc.url, rc.anonKey)
	}

	conn, err := rc.dial(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrNetwork, err)
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	rc.conn = conn
	rc.cancel = cancel

	go rc.readLoop(loopCtx, conn)
	go rc.heartbeatLoop(loopCtx, conn)

	return conn, nil
}

func (rc *RealtimeClient) nextRef() string {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.refSeq++
	return strconv.Itoa(rc.refSeq)
}

func (rc *RealtimeClient) send(conn wsConn, f frame) error {
	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("failed to marshal frame: %w", err)
	}
	if err := conn.Write(context.Background(), websocket.MessageText, data); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrNetwork, err)
	}
	return nil
}

// readLoop dispatches inbound frames to their channels until the connection
// drops.
func (rc *RealtimeClient) readLoop(ctx context.Context, conn wsConn) {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if ctx.Err() == nil {
				rc.logger.Warn("realtime connection lost", "error", err)
				rc.failAll(err)
			}
			return
		}

		var f frame
		if err := json.Unmarshal(data, &f); err != nil {
			rc.logger.Debug("dropping unparseable realtime frame", "error", err)
			continue
		}

		rc.dispatch(f)
	}
}

func (rc *RealtimeClient) heartbeatLoop(ctx context.Context, conn wsConn) {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			hb := frame{Topic: "phoenix", Event: "heartbeat", Payload: json.RawMessage(`{}`), Ref: rc.nextRef()}
			if err := rc.send(conn, hb); err != nil {
				rc.logger.Debug("heartbeat failed", "error", err)
				return
			}
		}
	}
}

// failAll reports a connection-level error to every channel.
func (rc *RealtimeClient) failAll(err error) {
	rc.mu.Lock()
	channels := make([]*realtimeChannel, 0, len(rc.channels))
	for _, ch := range rc.channels {
		channels = append(channels, ch)
	}
	rc.conn = nil
	rc.mu.Unlock()

	for _, ch := range channels {
		ch.notify(StatusChannelError, err)
	}
}

func (rc *RealtimeClient) dispatch(f frame) {
	rc.mu.Lock()
	ch := rc.channels[f.Topic]
	rc.mu.Unlock()

	if ch == nil {
		return
	}

	switch f.Event {
	case "phx_reply":
		var reply struct {
			Status string `json:"status"`
		}
		if err := json.Unmarshal(f.Payload, &reply); err != nil || reply.Status != "ok" {
			ch.notify(StatusChannelError, fmt.Errorf("%w: join rejected", shared.ErrSubscribeFailed))
			return
		}
		ch.notify(StatusSubscribed, nil)
	case "phx_close":
		ch.notify(StatusClosed, nil)
	case "postgres_changes", "INSERT", "UPDATE", "DELETE":
		var payload Row
		if err := json.Unmarshal(f.Payload, &payload); err != nil {
			rc.logger.Debug("dropping malformed change payload", "topic", f.Topic, "error", err)
			return
		}
		ch.deliver(payload)
	}
}

// realtimeChannel implements [Channel].
type realtimeChannel struct {
	client *RealtimeClient
	topic  string

	mu       sync.Mutex
	bindings []binding
	status   func(SubscriptionStatus, error)
	joined   bool
}

type binding struct {
	cfg     ChangeConfig
	handler ChangeHandler
}

func (ch *realtimeChannel) Topic() string { return ch.topic }

// On registers a handler for events matching cfg.
func (ch *realtimeChannel) On(cfg ChangeConfig, handler ChangeHandler) Channel {
	if cfg.Event == "" {
		cfg.Event = "*"
	}

	ch.mu.Lock()
	ch.bindings = append(ch.bindings, binding{cfg: cfg, handler: handler})
	ch.mu.Unlock()

	return ch
}

// Subscribe dials the shared connection if needed and sends the join frame
// carrying this channel's bindings.
func (ch *realtimeChannel) Subscribe(ctx context.Context, status func(SubscriptionStatus, error)) error {
	ch.mu.Lock()
	if ch.joined {
		ch.mu.Unlock()
		return fmt.Errorf("%w: channel %s already subscribed", shared.ErrInvalidArgument, ch.topic)
	}
	ch.joined = true
	ch.status = status
	bindings := make([]binding, len(ch.bindings))
	copy(bindings, ch.bindings)
	ch.mu.Unlock()

	conn, err := ch.client.ensureConn(ctx)
	if err != nil {
		ch.resetJoin()
		return err
	}

	changes := make([]map[string]string, 0, len(bindings))
	for _, b := range bindings {
		change := map[string]string{
			"event":  b.cfg.Event,
			"schema": b.cfg.Schema,
			"table":  b.cfg.Table,
		}
		if b.cfg.Filter != "" {
			change["filter"] = b.cfg.Filter
		}
		changes = append(changes, change)
	}

	payload, err := json.Marshal(map[string]any{
		"config": map[string]any{"postgres_changes": changes},
	})
	if err != nil {
		ch.resetJoin()
		return fmt.Errorf("failed to marshal join payload: %w", err)
	}

	join := frame{Topic: ch.topic, Event: "phx_join", Payload: payload, Ref: ch.client.nextRef()}
	if err := ch.client.send(conn, join); err != nil {
		ch.resetJoin()
		return fmt.Errorf("%w: %v", shared.ErrSubscribeFailed, err)
	}

	return nil
}

// resetJoin rolls the channel back to its unjoined state so a later
// Subscribe can retry after a failed join.
func (ch *realtimeChannel) resetJoin() {
	ch.mu.Lock()
	ch.joined = false
	ch.status = nil
	ch.mu.Unlock()
}

func (ch *realtimeChannel) notify(s SubscriptionStatus, err error) {
	ch.mu.Lock()
	status := ch.status
	ch.mu.Unlock()

	if status != nil {
		status(s, err)
	}
}

// deliver fans a change payload out to every binding whose event matches.
func (ch *realtimeChannel) deliver(payload Row) {
	kind := eventKind(payload)

	ch.mu.Lock()
	bindings := make([]binding, len(ch.bindings))
	copy(bindings, ch.bindings)
	ch.mu.Unlock()

	for _, b := range bindings {
		if b.cfg.Event == "*" || b.cfg.Event == kind {
			b.handler(payload)
		}
	}
}

// eventKind peeks at a change payload for its event type, tolerating both
// the normalized shape (top-level eventType) and the wrapped shape
// (payload.data.type).
func eventKind(payload Row) string {
	if s, ok := payload["eventType"].(string); ok {
		return s
	}
	if s, ok := payload["type"].(string); ok {
		return s
	}
	if data, ok := payload["data"].(map[string]any); ok {
		if s, ok := data["type"].(string); ok {
			return s
		}
	}
	return ""
}
