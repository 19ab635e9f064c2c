package transport

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
)

// MessageHandler is invoked for every inbound frame.
type MessageHandler func(ctx context.Context, connID uuid.UUID, msg []byte)

// CloseHandler is invoked exactly once when the connection terminates.
type CloseHandler func(connID uuid.UUID, err error)

type Config struct {
	// ReadTimeout bounds the wait for the next client frame. Clients
	// are expected to ping well inside this window.
	ReadTimeout time.Duration
	// SendBuffer is the outbound queue depth before sends are dropped.
	SendBuffer int
}

// Connection wraps a single WebSocket connection. All methods are safe
// for concurrent use; outbound frames are serialized through writePump.
type Connection struct {
	id     uuid.UUID
	ws     *websocket.Conn
	config Config
	send   chan []byte

	onMessage MessageHandler
	onClose   CloseHandler

	done      chan struct{}
	wg        *sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once

	logger *slog.Logger
}

// NewConnection claims a slot in wg immediately; Close releases it.
// Pairing the Add with construction instead of Run means a connection
// closed before its pumps ever start still balances the group.
func NewConnection(parentCtx context.Context, wg *sync.WaitGroup, ws *websocket.Conn, config Config, logger *slog.Logger) *Connection {
	id := uuid.New()
	ctx, cancel := context.WithCancel(parentCtx)
	if config.SendBuffer <= 0 {
		config.SendBuffer = 256
	}
	wg.Add(1)
	return &Connection{
		id:     id,
		ws:     ws,
		config: config,
		send:   make(chan []byte, config.SendBuffer),
		done:   make(chan struct{}),
		wg:     wg,
		ctx:    ctx,
		cancel: cancel,
		logger: logger.With(slog.String("connID", id.String())),
	}
}

func (c *Connection) Run() {
	go c.readPump()
	go c.writePump()
}

// readPump pumps frames from the socket into the message handler. The
// handler runs on this goroutine, so per-connection events are handled
// in arrival order.
func (c *Connection) readPump() {
	var readErr error
	defer func() {
		c.Close(readErr)
	}()

	for {
		readCtx, cancelRead := context.WithTimeout(c.ctx, c.config.ReadTimeout)
		typ, r, err := c.ws.Reader(readCtx)
		if err != nil {
			cancelRead()
			readErr = err
			return
		}
		if typ != websocket.MessageText && typ != websocket.MessageBinary {
			cancelRead()
			continue
		}
		msg, err := io.ReadAll(r)
		cancelRead()
		if err != nil {
			readErr = err
			return
		}
		if c.onMessage != nil {
			c.onMessage(c.ctx, c.id, msg)
		}
	}
}

// writePump drains the send queue onto the socket.
func (c *Connection) writePump() {
	var writeErr error
	defer func() {
		c.Close(writeErr)
	}()

	for {
		select {
		case msg := <-c.send:
			if err := c.ws.Write(c.ctx, websocket.MessageText, msg); err != nil {
				writeErr = err
				return
			}
		case <-c.ctx.Done():
			c.ws.Close(websocket.StatusNormalClosure, "connection context cancelled")
			return
		}
	}
}

// Send queues a frame for delivery. Sends to a closed or saturated
// connection are dropped silently; the caller never blocks on a slow
// or dead client.
func (c *Connection) Send(msg []byte) {
	select {
	case <-c.ctx.Done():
		c.logger.Debug("dropped frame for closed connection")
		return
	default:
	}
	select {
	case c.send <- msg:
	default:
		c.logger.Warn("send queue full, dropping frame")
	}
}

// Alive reports whether the connection is still open for sends.
func (c *Connection) Alive() bool {
	select {
	case <-c.ctx.Done():
		return false
	default:
		return true
	}
}

// Close shuts the connection down. Safe to call more than once; only
// the first call runs the teardown sequence.
func (c *Connection) Close(err error) {
	c.closeOnce.Do(func() {
		c.logger.Debug("connection closing", slog.Any("reason", err))
		c.cancel()
		if c.ws != nil {
			c.ws.Close(websocket.StatusNormalClosure, "")
		}
		if c.onClose != nil {
			c.onClose(c.id, err)
		}
		c.wg.Done()
		close(c.done)
	})
}

// Done returns a channel closed when the connection has fully
// terminated.
func (c *Connection) Done() <-chan struct{} {
	return c.done
}

func (c *Connection) ID() uuid.UUID {
	return c.id
}

func (c *Connection) Context() context.Context {
	return c.ctx
}

func (c *Connection) SetOnMessage(handler MessageHandler) {
	c.onMessage = handler
}

func (c *Connection) SetOnClose(handler CloseHandler) {
	c.onClose = handler
}
