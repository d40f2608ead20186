// SPDX-License-Identifier: MIT
package transport

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = time.Second

// WebSocketTransport broadcasts frames as JSON to every client connected on
// /ws and hands control messages read from clients to a ControlHandler.
type WebSocketTransport struct {
	addr      string
	upgrader  websocket.Upgrader
	clients   map[*websocket.Conn]bool
	clientsMu sync.Mutex
	broadcast chan any
	server    *http.Server
	mux       *http.ServeMux

	controlMu sync.RWMutex
	onControl ControlHandler

	closeMu sync.Mutex
	closed  bool
	done    chan struct{}
}

// NewWebSocketTransport creates a WebSocketTransport and starts serving on addr.
func NewWebSocketTransport(addr string) *WebSocketTransport {
	wst := newWebSocketTransport(addr)
	wst.start()
	return wst
}

// newWebSocketTransport builds the transport and its broadcaster without
// listening, so tests can mount Handler on their own server.
func newWebSocketTransport(addr string) *WebSocketTransport {
	wst := &WebSocketTransport{
		addr: addr,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // Viewers are served from anywhere on the lab network
			},
		},
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan any, 256),
		mux:       http.NewServeMux(),
		done:      make(chan struct{}),
	}
	wst.mux.HandleFunc("/ws", wst.handleWebSocket)

	go wst.handleBroadcasts()
	return wst
}

// Handler returns the HTTP handler serving /ws.
func (wst *WebSocketTransport) Handler() http.Handler { return wst.mux }

// OnControl sets the handler for control messages. It may be changed at any
// time; messages arriving with no handler are dropped.
func (wst *WebSocketTransport) OnControl(fn ControlHandler) {
	wst.controlMu.Lock()
	wst.onControl = fn
	wst.controlMu.Unlock()
}

// start begins the WebSocket server
func (wst *WebSocketTransport) start() {
	wst.server = &http.Server{
		Addr:              wst.addr,
		Handler:           wst.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Infof("WebSocketTransport: Starting WebSocket server on %s", wst.addr)
		if err := wst.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("WebSocketTransport: Server error: %v", err)
		}
	}()
}

// Clients returns the number of connected clients.
func (wst *WebSocketTransport) Clients() int {
	wst.clientsMu.Lock()
	defer wst.clientsMu.Unlock()
	return len(wst.clients)
}

// handleWebSocket upgrades HTTP connections to WebSocket
func (wst *WebSocketTransport) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := wst.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warnf("WebSocketTransport: Upgrade error: %v", err)
		return
	}

	wst.clientsMu.Lock()
	wst.clients[conn] = true
	total := len(wst.clients)
	wst.clientsMu.Unlock()
	logger.Infof("WebSocketTransport: Client connected, total: %d", total)

	go wst.readControls(conn)
}

// readControls reads control messages until the client goes away.
func (wst *WebSocketTransport) readControls(conn *websocket.Conn) {
	defer wst.drop(conn)

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		ctrl, err := ParseControl(data)
		if err != nil {
			logger.Warnf("WebSocketTransport: %v", err)
			continue
		}

		wst.controlMu.RLock()
		fn := wst.onControl
		wst.controlMu.RUnlock()
		if fn != nil {
			fn(ctrl)
		}
	}
}

func (wst *WebSocketTransport) drop(conn *websocket.Conn) {
	wst.clientsMu.Lock()
	_, ok := wst.clients[conn]
	delete(wst.clients, conn)
	total := len(wst.clients)
	wst.clientsMu.Unlock()

	conn.Close()
	if ok {
		logger.Infof("WebSocketTransport: Client disconnected, total: %d", total)
	}
}

// handleBroadcasts sends messages to all connected clients
func (wst *WebSocketTransport) handleBroadcasts() {
	for {
		select {
		case <-wst.done:
			return
		case data := <-wst.broadcast:
			wst.clientsMu.Lock()
			for client := range wst.clients {
				client.SetWriteDeadline(time.Now().Add(writeWait))
				if err := client.WriteJSON(data); err != nil {
					logger.Warnf("WebSocketTransport: Error sending to client: %v", err)
					client.Close()
					delete(wst.clients, client)
				}
			}
			wst.clientsMu.Unlock()
		}
	}
}

// Send queues data for every connected client. When the queue is full the
// message is dropped; frames are superseded by the next one anyway.
func (wst *WebSocketTransport) Send(data any) error {
	wst.closeMu.Lock()
	defer wst.closeMu.Unlock()
	if wst.closed {
		return errors.New("websocket transport is closed")
	}

	select {
	case wst.broadcast <- data:
	default:
		logger.Debugf("WebSocketTransport: Broadcast queue full, dropping message")
	}
	return nil
}

// Close shuts down the WebSocket server and disconnects every client.
func (wst *WebSocketTransport) Close() error {
	wst.closeMu.Lock()
	if wst.closed {
		wst.closeMu.Unlock()
		return nil
	}
	wst.closed = true
	close(wst.done)
	wst.closeMu.Unlock()

	logger.Infof("WebSocketTransport: Closing server")

	wst.clientsMu.Lock()
	for client := range wst.clients {
		client.Close()
	}
	wst.clients = make(map[*websocket.Conn]bool)
	wst.clientsMu.Unlock()

	if wst.server != nil {
		return wst.server.Close()
	}
	return nil
}

// Ensure WebSocketTransport satisfies the interface
var _ Transport = (*WebSocketTransport)(nil)
