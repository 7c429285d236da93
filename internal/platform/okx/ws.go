// Package okx is a WebSocket client for an L2 depth stream in the OKX
// full-snapshot format. The core never depends on this package directly;
// it only sees the raw updates pushed through registered handlers.
package okx

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/okquant/costsim/internal/domain"
)

const (
	// writeWait is the time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// pongWait is the time allowed to read the next pong from the peer.
	pongWait = 60 * time.Second

	// pingPeriod sends pings at this interval. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// reconnectDelay is the base delay before attempting to reconnect.
	reconnectDelay = 2 * time.Second

	// maxReconnectDelay caps the exponential backoff for reconnection.
	maxReconnectDelay = 60 * time.Second
)

// BookHandler is called for every depth snapshot received on the stream.
type BookHandler func(domain.RawBookUpdate)

// ConnectHandler is called after each successful (re)connection.
type ConnectHandler func()

// WSClient manages the connection lifecycle for the depth stream: dial,
// keep-alive, read loop, and reconnection with exponential backoff.
type WSClient struct {
	wsURL  string
	logger *slog.Logger

	mu     sync.RWMutex
	conn   *websocket.Conn
	closed bool

	handlerMu    sync.RWMutex
	bookHandlers []BookHandler
	connHandlers []ConnectHandler

	// done is closed when the client is shut down.
	done chan struct{}
}

// NewWSClient creates a client for the given WebSocket URL.
func NewWSClient(wsURL string, logger *slog.Logger) *WSClient {
	return &WSClient{
		wsURL:  wsURL,
		logger: logger.With(slog.String("component", "okx_ws")),
		done:   make(chan struct{}),
	}
}

// Connect establishes the WebSocket connection and starts the read and
// ping loops.
func (w *WSClient) Connect(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return fmt.Errorf("okx/ws: %w", domain.ErrWSDisconnect)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 15 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, w.wsURL, nil)
	if err != nil {
		return fmt.Errorf("okx/ws: connect: %w", err)
	}

	w.conn = conn

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	// Each connection gets its own loops and stop channel: a dying
	// connection tears down only itself, never a successor established by
	// reconnect.
	stop := make(chan struct{})
	go w.readLoop(conn, stop)
	go w.pingLoop(conn, stop)

	w.handlerMu.RLock()
	handlers := w.connHandlers
	w.handlerMu.RUnlock()
	for _, h := range handlers {
		h()
	}

	return nil
}

// Close shuts down the connection and stops the read loop. Safe to call
// more than once.
func (w *WSClient) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}

	w.closed = true
	close(w.done)

	if w.conn != nil {
		_ = w.conn.WriteMessage(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		)
		return w.conn.Close()
	}

	return nil
}

// OnBook registers a handler called for every depth snapshot.
func (w *WSClient) OnBook(handler BookHandler) {
	w.handlerMu.Lock()
	defer w.handlerMu.Unlock()
	w.bookHandlers = append(w.bookHandlers, handler)
}

// OnConnect registers a handler called after every successful connection.
func (w *WSClient) OnConnect(handler ConnectHandler) {
	w.handlerMu.Lock()
	defer w.handlerMu.Unlock()
	w.connHandlers = append(w.connHandlers, handler)
}

// readLoop reads frames from its own connection and dispatches them until
// that connection drops or the client is closed. On an unexpected drop it
// winds down this connection's loops first, then reconnects with backoff;
// the successor connection runs loops of its own.
func (w *WSClient) readLoop(conn *websocket.Conn, stop chan struct{}) {
	cleanup := func() {
		close(stop)
		conn.Close()
	}

	for {
		select {
		case <-w.done:
			cleanup()
			return
		default:
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			cleanup()

			select {
			case <-w.done:
				return
			default:
			}

			w.reconnect()
			return
		}

		w.handleMessage(message)
	}
}

// pingLoop sends periodic pings on its own connection until that
// connection's readLoop stops or the client is closed.
func (w *WSClient) pingLoop(conn *websocket.Conn, stop chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-stop:
			return
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage decodes one frame and fans it out to the book handlers.
// Frames that do not decode are logged and dropped; the stream must never
// halt on one bad message.
func (w *WSClient) handleMessage(raw []byte) {
	var msg BookMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		w.logger.Warn("dropping unparseable frame", slog.String("error", err.Error()))
		return
	}

	update := ToRawUpdate(&msg)

	w.handlerMu.RLock()
	handlers := w.bookHandlers
	w.handlerMu.RUnlock()

	for _, h := range handlers {
		h(update)
	}
}

// reconnect re-establishes the connection with exponential backoff. It
// blocks until successful or the client is closed.
func (w *WSClient) reconnect() {
	delay := reconnectDelay

	for {
		select {
		case <-w.done:
			return
		default:
		}

		time.Sleep(delay)

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		err := w.Connect(ctx)
		cancel()

		if err == nil {
			return
		}
		w.logger.Warn("reconnect failed", slog.String("error", err.Error()))

		delay *= 2
		if delay > maxReconnectDelay {
			delay = maxReconnectDelay
		}
	}
}
