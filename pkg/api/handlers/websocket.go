package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/goclaw/livecheck/pkg/api/events"
	"github.com/goclaw/livecheck/pkg/logger"
)

const (
	defaultWSMaxConnections = 100
	defaultPingInterval     = 30 * time.Second
	defaultPongTimeout      = 10 * time.Second
	defaultWriteTimeout     = 10 * time.Second
	defaultSendBuffer       = 32
)

// WebSocketConfig configures websocket handler behavior.
type WebSocketConfig struct {
	AllowedOrigins []string
	MaxConnections int
	PingInterval   time.Duration
	PongTimeout    time.Duration
}

// ErrTooManyConnections is returned when the connection limit is reached.
var ErrTooManyConnections = errors.New("websocket connection limit reached")

// Control frame types exchanged with clients.
const (
	frameSubscribe    = "subscribe"
	frameUnsubscribe  = "unsubscribe"
	frameSubscribed   = "subscribed"
	frameUnsubscribed = "unsubscribed"
	frameError        = "error"
)

// controlFrame is a client request such as
// {"type":"subscribe","case":"checkout","signal":"paid"} and the server's reply.
// An empty signal selects every signal of the case.
type controlFrame struct {
	Type    string `json:"type"`
	Case    string `json:"case,omitempty"`
	Signal  string `json:"signal,omitempty"`
	Message string `json:"message,omitempty"`
}

// topic selects resolutions of one case, optionally narrowed to one signal.
type topic struct {
	caseName string
	signal   string
}

func (t topic) matches(caseName, signal string) bool {
	if t.caseName != caseName {
		return false
	}
	return t.signal == "" || t.signal == signal
}

type wsClient struct {
	conn      *websocket.Conn
	send      chan []byte
	topics    map[topic]struct{}
	closed    bool
	mu        sync.RWMutex
	closeOnce sync.Once
}

func newWSClient(conn *websocket.Conn) *wsClient {
	return &wsClient{
		conn:   conn,
		send:   make(chan []byte, defaultSendBuffer),
		topics: make(map[topic]struct{}),
	}
}

func (c *wsClient) close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		close(c.send)
		c.mu.Unlock()
		if c.conn != nil {
			_ = c.conn.Close()
		}
	})
}

func (c *wsClient) subscribe(t topic) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.topics[t] = struct{}{}
}

// unsubscribe drops t. Without a signal it drops every topic of the case.
func (c *wsClient) unsubscribe(t topic) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t.signal != "" {
		delete(c.topics, t)
		return
	}
	for existing := range c.topics {
		if existing.caseName == t.caseName {
			delete(c.topics, existing)
		}
	}
}

// shouldReceive reports whether the client wants a resolution of
// caseName/signal. Clients without topics receive everything.
func (c *wsClient) shouldReceive(caseName, signal string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.topics) == 0 {
		return true
	}
	for t := range c.topics {
		if t.matches(caseName, signal) {
			return true
		}
	}
	return false
}

// trySend queues payload without blocking. It reports false when the
// buffer is full or the client is closed.
func (c *wsClient) trySend(payload []byte) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// reply queues a control frame for the client.
func (c *wsClient) reply(frame controlFrame) {
	payload, err := json.Marshal(frame)
	if err != nil {
		return
	}
	c.trySend(payload)
}

// ConnectionManager manages active websocket clients.
type ConnectionManager struct {
	mu             sync.RWMutex
	clients        map[*wsClient]struct{}
	maxConnections int
}

// NewConnectionManager creates a manager with max connection limit.
func NewConnectionManager(maxConnections int) *ConnectionManager {
	if maxConnections <= 0 {
		maxConnections = defaultWSMaxConnections
	}
	return &ConnectionManager{
		clients:        make(map[*wsClient]struct{}),
		maxConnections: maxConnections,
	}
}

// Register registers a websocket client.
func (m *ConnectionManager) Register(client *wsClient) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.clients) >= m.maxConnections {
		return ErrTooManyConnections
	}
	m.clients[client] = struct{}{}
	return nil
}

// Unregister unregisters a websocket client.
func (m *ConnectionManager) Unregister(client *wsClient) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.clients[client]; !ok {
		return
	}
	delete(m.clients, client)
	client.close()
}

// Count returns active connection count.
func (m *ConnectionManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}

// CanAccept reports whether there is capacity for one more connection.
func (m *ConnectionManager) CanAccept() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients) < m.maxConnections
}

// Broadcast sends event to matching clients. Clients whose buffer is full
// are disconnected.
func (m *ConnectionManager) Broadcast(event events.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	m.mu.RLock()
	clients := make([]*wsClient, 0, len(m.clients))
	for client := range m.clients {
		clients = append(clients, client)
	}
	m.mu.RUnlock()

	for _, client := range clients {
		if !client.shouldReceive(event.CaseName, event.Signal) {
			continue
		}
		if !client.trySend(payload) {
			m.Unregister(client)
		}
	}

	return nil
}

// Close closes all active websocket connections.
func (m *ConnectionManager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for client := range m.clients {
		client.close()
		delete(m.clients, client)
	}
}

// WebSocketHandler serves the live resolution feed.
type WebSocketHandler struct {
	log          logger.Logger
	manager      *ConnectionManager
	upgrader     websocket.Upgrader
	pingInterval time.Duration
	pongTimeout  time.Duration
	writeTimeout time.Duration
}

// NewWebSocketHandler creates a websocket handler.
func NewWebSocketHandler(log logger.Logger, cfg WebSocketConfig) *WebSocketHandler {
	if cfg.MaxConnections <= 0 {
		cfg.MaxConnections = defaultWSMaxConnections
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = defaultPingInterval
	}
	if cfg.PongTimeout <= 0 {
		cfg.PongTimeout = defaultPongTimeout
	}
	if log == nil {
		log = logger.Global()
	}

	handler := &WebSocketHandler{
		log:          log,
		manager:      NewConnectionManager(cfg.MaxConnections),
		pingInterval: cfg.PingInterval,
		pongTimeout:  cfg.PongTimeout,
		writeTimeout: defaultWriteTimeout,
	}

	allowedOrigins := append([]string(nil), cfg.AllowedOrigins...)
	handler.upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return isWebSocketOriginAllowed(r, allowedOrigins)
		},
	}

	return handler
}

// ServeHTTP upgrades HTTP to websocket and starts client loops.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !websocket.IsWebSocketUpgrade(r) {
		http.Error(w, "websocket upgrade required", http.StatusBadRequest)
		return
	}
	if !h.manager.CanAccept() {
		http.Error(w, "websocket connection limit reached", http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "error", err)
		return
	}

	client := newWSClient(conn)
	if err := h.manager.Register(client); err != nil {
		_ = conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "too many websocket connections"),
			time.Now().Add(h.writeTimeout),
		)
		_ = conn.Close()
		return
	}

	go h.writePump(client)
	h.readPump(client)
}

func (h *WebSocketHandler) readPump(client *wsClient) {
	defer h.manager.Unregister(client)

	readDeadline := h.pingInterval + h.pongTimeout
	client.conn.SetReadLimit(1 << 20)
	_ = client.conn.SetReadDeadline(time.Now().Add(readDeadline))
	client.conn.SetPongHandler(func(_ string) error {
		return client.conn.SetReadDeadline(time.Now().Add(readDeadline))
	})

	for {
		_, data, err := client.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.log.Warn("websocket read error", "error", err)
			}
			return
		}
		h.handleIncomingMessage(client, data)
	}
}

func (h *WebSocketHandler) writePump(client *wsClient) {
	ticker := time.NewTicker(h.pingInterval)
	defer func() {
		ticker.Stop()
		h.manager.Unregister(client)
	}()

	for {
		select {
		case message, ok := <-client.send:
			if !ok {
				_ = client.conn.WriteControl(
					websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(h.writeTimeout),
				)
				return
			}
			_ = client.conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
			if err := client.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = client.conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
			if err := client.conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(h.writeTimeout)); err != nil {
				return
			}
		}
	}
}

func (h *WebSocketHandler) handleIncomingMessage(client *wsClient, raw []byte) {
	var frame controlFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		client.reply(controlFrame{Type: frameError, Message: "invalid control frame"})
		return
	}

	t := topic{
		caseName: strings.TrimSpace(frame.Case),
		signal:   strings.TrimSpace(frame.Signal),
	}
	kind := strings.ToLower(strings.TrimSpace(frame.Type))
	if t.caseName == "" {
		client.reply(controlFrame{Type: frameError, Message: "case is required"})
		return
	}

	switch kind {
	case frameSubscribe:
		client.subscribe(t)
		client.reply(controlFrame{Type: frameSubscribed, Case: t.caseName, Signal: t.signal})
	case frameUnsubscribe:
		client.unsubscribe(t)
		client.reply(controlFrame{Type: frameUnsubscribed, Case: t.caseName, Signal: t.signal})
	default:
		client.reply(controlFrame{Type: frameError, Message: "unknown frame type " + strconv.Quote(kind)})
	}
}

// Broadcast sends an event to matching websocket clients.
func (h *WebSocketHandler) Broadcast(event events.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	return h.manager.Broadcast(event)
}

// Forward relays broadcaster events to websocket clients until ctx is done
// or the broadcaster closes the subscription.
func (h *WebSocketHandler) Forward(ctx context.Context, b *events.Broadcaster) {
	ch := b.Subscribe(defaultSendBuffer)
	defer b.Unsubscribe(ch)

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if err := h.Broadcast(ev); err != nil {
				h.log.Warn("websocket broadcast failed", "type", ev.Type, "error", err)
			}
		}
	}
}

// Connections returns the number of connected clients.
func (h *WebSocketHandler) Connections() int {
	return h.manager.Count()
}

// Close closes all websocket clients.
func (h *WebSocketHandler) Close() {
	h.manager.Close()
}

func isWebSocketOriginAllowed(r *http.Request, allowedOrigins []string) bool {
	origin := strings.TrimSpace(r.Header.Get("Origin"))
	if origin == "" {
		return true
	}

	for _, allowed := range allowedOrigins {
		if allowed == "*" || strings.EqualFold(strings.TrimSpace(allowed), origin) {
			return true
		}
	}

	originURL, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(originURL.Host, r.Host)
}
