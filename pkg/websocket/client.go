package websocket

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Client follows a flow view stream, reconnecting with backoff when the
// connection drops. Each text frame is delivered as one raw JSON message.
type Client struct {
	url             string
	conn            *websocket.Conn
	logger          *zap.Logger
	reconnectMgr    *ReconnectManager
	config          Config
	messageChan     chan json.RawMessage
	lost            chan struct{}
	ctx             context.Context
	cancel          context.CancelFunc
	wg              sync.WaitGroup
	mu              sync.RWMutex
	connected       atomic.Bool
	lastPongTime    atomic.Int64
	connectionStart atomic.Int64 // Unix timestamp of connection start
}

// Config holds stream client configuration.
type Config struct {
	URL                   string
	DialTimeout           time.Duration
	PongTimeout           time.Duration
	PingInterval          time.Duration
	ReconnectInitialDelay time.Duration
	ReconnectMaxDelay     time.Duration
	ReconnectBackoffMult  float64
	MessageBufferSize     int
	Logger                *zap.Logger
}

// New creates a new stream client.
func New(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, errors.New("url cannot be empty")
	}
	if cfg.Logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 30 * time.Second
	}
	if cfg.PongTimeout <= cfg.PingInterval {
		cfg.PongTimeout = 2 * cfg.PingInterval
	}
	if cfg.MessageBufferSize <= 0 {
		cfg.MessageBufferSize = 16
	}

	ctx, cancel := context.WithCancel(context.Background())

	reconnectCfg := ReconnectConfig{
		InitialDelay:      cfg.ReconnectInitialDelay,
		MaxDelay:          cfg.ReconnectMaxDelay,
		BackoffMultiplier: cfg.ReconnectBackoffMult,
		JitterPercent:     0.2,
	}

	return &Client{
		url:          cfg.URL,
		logger:       cfg.Logger,
		reconnectMgr: NewReconnectManager(reconnectCfg, cfg.Logger),
		config:       cfg,
		messageChan:  make(chan json.RawMessage, cfg.MessageBufferSize),
		lost:         make(chan struct{}, 1),
		ctx:          ctx,
		cancel:       cancel,
	}, nil
}

// Start connects and begins reading. It fails if the first dial fails.
func (c *Client) Start() error {
	c.logger.Info("stream-client-starting", zap.String("url", c.url))

	err := c.connect(c.ctx)
	if err != nil {
		return fmt.Errorf("initial connection: %w", err)
	}

	c.wg.Add(3)
	go c.readLoop()
	go c.pingLoop()
	go c.reconnectLoop()

	return nil
}

// connect establishes a websocket connection.
func (c *Client) connect(ctx context.Context) error {
	dialer := websocket.Dialer{
		HandshakeTimeout: c.config.DialTimeout,
	}

	conn, _, err := dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(c.config.PongTimeout))
	conn.SetPongHandler(func(string) error {
		c.lastPongTime.Store(time.Now().Unix())
		return conn.SetReadDeadline(time.Now().Add(c.config.PongTimeout))
	})

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	now := time.Now()
	c.connected.Store(true)
	c.lastPongTime.Store(now.Unix())
	c.connectionStart.Store(now.Unix())
	ActiveConnections.Set(1)

	c.logger.Info("stream-connected", zap.String("url", c.url))

	return nil
}

// readLoop reads frames until the connection fails.
func (c *Client) readLoop() {
	defer c.wg.Done()

	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()

	for {
		msgType, message, err := conn.ReadMessage()
		if err != nil {
			if c.ctx.Err() == nil {
				c.logger.Warn("stream-read-error", zap.Error(err))
			}

			startTime := c.connectionStart.Load()
			if startTime > 0 {
				ConnectionDuration.Observe(time.Since(time.Unix(startTime, 0)).Seconds())
			}

			c.connected.Store(false)
			ActiveConnections.Set(0)

			select {
			case c.lost <- struct{}{}:
			default:
			}
			return
		}

		if msgType != websocket.TextMessage || !json.Valid(message) {
			c.logger.Debug("stream-frame-skipped",
				zap.Int("type", msgType),
				zap.Int("bytes", len(message)))
			continue
		}

		MessagesReceivedTotal.Inc()

		// Views supersede each other, so a full buffer drops the oldest.
		select {
		case c.messageChan <- message:
		default:
			select {
			case <-c.messageChan:
				MessagesDroppedTotal.Inc()
			default:
			}
			select {
			case c.messageChan <- message:
			default:
				MessagesDroppedTotal.Inc()
			}
		}
	}
}

// pingLoop sends periodic PING messages.
func (c *Client) pingLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			if !c.connected.Load() {
				continue
			}

			c.mu.RLock()
			conn := c.conn
			c.mu.RUnlock()

			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(time.Second))
			if err != nil {
				c.logger.Warn("stream-ping-error", zap.Error(err))
			}
		}
	}
}

// reconnectLoop redials after each lost connection and restarts reading.
func (c *Client) reconnectLoop() {
	defer c.wg.Done()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-c.lost:
		}

		c.logger.Warn("stream-connection-lost")

		err := c.reconnectMgr.Reconnect(c.ctx, c.connect)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			c.logger.Error("stream-reconnect-gave-up", zap.Error(err))
			continue
		}

		if c.ctx.Err() != nil {
			c.mu.RLock()
			c.conn.Close()
			c.mu.RUnlock()
			return
		}

		c.wg.Add(1)
		go c.readLoop()
	}
}

// Messages returns the channel of received frames. It is closed by Close.
func (c *Client) Messages() <-chan json.RawMessage {
	return c.messageChan
}

// Connected reports whether the stream is currently connected.
func (c *Client) Connected() bool {
	return c.connected.Load()
}

// LastPong returns the time of the last pong from the server.
func (c *Client) LastPong() time.Time {
	return time.Unix(c.lastPongTime.Load(), 0)
}

// Close stops the client and closes the message channel.
func (c *Client) Close() error {
	c.logger.Info("stream-client-closing")

	c.cancel()

	c.mu.RLock()
	if c.conn != nil {
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		c.conn.Close()
	}
	c.mu.RUnlock()

	c.wg.Wait()

	close(c.messageChan)
	ActiveConnections.Set(0)

	c.logger.Info("stream-client-closed")

	return nil
}
