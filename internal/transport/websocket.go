// SPDX-License-Identifier: MIT
package transport

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	applog "shottimer/internal/log"
)

// ErrTransportClosed is returned by Send after Close.
var ErrTransportClosed = errors.New("transport closed")

const writeTimeout = 2 * time.Second

// WebSocketTransport implements the Transport interface for WebSocket connections.
// Every message is written as JSON to every connected client on path /ws.
type WebSocketTransport struct {
	addr      string
	upgrader  websocket.Upgrader
	clients   map[*websocket.Conn]bool
	clientsMu sync.Mutex
	broadcast chan any
	server    *http.Server
	log       applog.Logger

	closeMu sync.RWMutex
	closed  bool
	done    chan struct{}
	stopped chan struct{}
}

// NewWebSocketTransport creates a new WebSocketTransport instance. When addr
// is empty no listener is started and the caller mounts Handler itself.
func NewWebSocketTransport(addr string, logger applog.Logger) *WebSocketTransport {
	if logger == nil {
		logger = applog.Default()
	}
	wst := &WebSocketTransport{
		addr: addr,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // Displays are served from anywhere on the range LAN
			},
		},
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan any, 256),
		log:       logger,
		done:      make(chan struct{}),
		stopped:   make(chan struct{}),
	}

	wst.start()
	return wst
}

// Handler returns the HTTP handler serving /ws.
func (wst *WebSocketTransport) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wst.handleWebSocket)
	return mux
}

func (wst *WebSocketTransport) start() {
	if wst.addr != "" {
		wst.server = &http.Server{
			Addr:              wst.addr,
			Handler:           wst.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			wst.log.Infof("WebSocketTransport: Starting WebSocket server on %s", wst.addr)
			if err := wst.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				wst.log.Errorf("WebSocketTransport: Server error: %v", err)
			}
		}()
	}

	go wst.handleBroadcasts()
}

// handleWebSocket upgrades HTTP connections to WebSocket
func (wst *WebSocketTransport) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := wst.upgrader.Upgrade(w, r, nil)
	if err != nil {
		wst.log.Warnf("WebSocketTransport: Upgrade error: %v", err)
		return
	}

	wst.clientsMu.Lock()
	wst.clients[conn] = true
	total := len(wst.clients)
	wst.clientsMu.Unlock()
	wst.log.Infof("WebSocketTransport: Client connected, total: %d", total)

	// Clients never send; the read only detects disconnects.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
		wst.drop(conn)
	}()
}

func (wst *WebSocketTransport) drop(conn *websocket.Conn) {
	wst.clientsMu.Lock()
	_, ok := wst.clients[conn]
	delete(wst.clients, conn)
	total := len(wst.clients)
	wst.clientsMu.Unlock()
	conn.Close()
	if ok {
		wst.log.Infof("WebSocketTransport: Client disconnected, total: %d", total)
	}
}

// handleBroadcasts sends messages to all connected clients. Whatever is
// still queued when Close is called is flushed first.
func (wst *WebSocketTransport) handleBroadcasts() {
	defer close(wst.stopped)
	for {
		select {
		case <-wst.done:
			for {
				select {
				case data := <-wst.broadcast:
					wst.write(data)
				default:
					return
				}
			}
		case data := <-wst.broadcast:
			wst.write(data)
		}
	}
}

func (wst *WebSocketTransport) write(data any) {
	wst.clientsMu.Lock()
	defer wst.clientsMu.Unlock()
	for client := range wst.clients {
		_ = client.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := client.WriteJSON(data); err != nil {
			wst.log.Warnf("WebSocketTransport: Error sending to client: %v", err)
			client.Close()
			delete(wst.clients, client)
		}
	}
}

// ClientCount returns the number of connected clients.
func (wst *WebSocketTransport) ClientCount() int {
	wst.clientsMu.Lock()
	defer wst.clientsMu.Unlock()
	return len(wst.clients)
}

// Send queues data for broadcast. Messages are dropped when the queue is full.
func (wst *WebSocketTransport) Send(data any) error {
	wst.closeMu.RLock()
	defer wst.closeMu.RUnlock()
	if wst.closed {
		return ErrTransportClosed
	}
	select {
	case wst.broadcast <- data:
	default:
		wst.log.Debugf("WebSocketTransport: queue full, dropping %T", data)
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

	wst.log.Infof("WebSocketTransport: Closing server")
	<-wst.stopped

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
