package pricefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"TradeMood/internal/domain/models"
	domrepo "TradeMood/internal/domain/repository"
	xlogger "TradeMood/pkg/logger"

	"github.com/gorilla/websocket"
)

// Client streams price ticks over WebSocket and keeps the latest snapshot per
// symbol. It implements the domain PriceSource: the pipeline reads the last
// tick rather than making a round-trip per cycle.
type Client struct {
	apiKey         string
	websocketURL   string
	symbols        []string
	reconnectDelay time.Duration
	pingInterval   time.Duration
	staleAfter     time.Duration
	logger         *xlogger.Logger

	mu        sync.RWMutex
	conn      *websocket.Conn
	connected bool
	latest    map[string]models.PriceSnapshot
}

// New creates a price stream client.
func New(apiKey, websocketURL string, symbols []string, reconnectDelay, pingInterval, staleAfter time.Duration, logger *xlogger.Logger) *Client {
	if staleAfter <= 0 {
		staleAfter = 30 * time.Minute
	}
	return &Client{
		apiKey:         apiKey,
		websocketURL:   websocketURL,
		symbols:        symbols,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
		staleAfter:     staleAfter,
		logger:         logger,
		latest:         make(map[string]models.PriceSnapshot),
	}
}

// Connect establishes the WebSocket connection and subscribes.
func (c *Client) Connect(ctx context.Context) error {
	u := fmt.Sprintf("%s?token=%s", c.websocketURL, c.apiKey)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		return fmt.Errorf("pricefeed connect: %w", err)
	}
	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	for _, s := range c.symbols {
		msg := map[string]string{"type": "subscribe", "symbol": s}
		if err := conn.WriteJSON(msg); err != nil {
			return fmt.Errorf("pricefeed subscribe %s: %w", s, err)
		}
	}
	c.logger.Info("pricefeed connected", xlogger.Strings("symbols", c.symbols))
	return nil
}

type tickFrame struct {
	Type string `json:"type"`
	Data []struct {
		S string  `json:"s"`
		P float64 `json:"p"`
		T int64   `json:"t"` // ms
	} `json:"data"`
}

// Start runs the read loop with automatic reconnect until ctx is done.
// Run it in a goroutine.
func (c *Client) Start(ctx context.Context) {
	go c.pingLoop(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		if err := c.readLoop(ctx); err != nil {
			c.logger.Warn("pricefeed stream dropped", xlogger.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(c.reconnectDelay):
		}
		if err := c.Connect(ctx); err != nil {
			c.logger.Warn("pricefeed reconnect failed", xlogger.Error(err))
		}
	}
}

func (c *Client) readLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		c.mu.RLock()
		conn := c.conn
		c.mu.RUnlock()
		if conn == nil {
			return fmt.Errorf("pricefeed conn nil")
		}
		_, b, err := conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			c.connected = false
			c.mu.Unlock()
			return fmt.Errorf("pricefeed read: %w", err)
		}
		var frame tickFrame
		if err := json.Unmarshal(b, &frame); err != nil {
			// ignore non-tick frames
			continue
		}
		if frame.Type != "trade" {
			continue
		}
		c.mu.Lock()
		for _, d := range frame.Data {
			c.latest[d.S] = models.PriceSnapshot{
				Symbol:    d.S,
				Price:     d.P,
				Timestamp: time.Unix(0, d.T*int64(time.Millisecond)),
			}
		}
		c.mu.Unlock()
	}
}

func (c *Client) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.mu.RLock()
			conn := c.conn
			c.mu.RUnlock()
			if conn != nil {
				_ = conn.WriteMessage(websocket.PingMessage, nil)
			}
		}
	}
}

// Latest implements the domain PriceSource interface. A snapshot older than
// the staleness bound is treated as missing.
func (c *Client) Latest(_ context.Context, symbol string) (models.PriceSnapshot, error) {
	c.mu.RLock()
	snap, ok := c.latest[symbol]
	c.mu.RUnlock()
	if !ok {
		return models.PriceSnapshot{}, fmt.Errorf("%w: no price for %s", models.ErrFetch, symbol)
	}
	if time.Since(snap.Timestamp) > c.staleAfter {
		return models.PriceSnapshot{}, fmt.Errorf("%w: stale price for %s", models.ErrFetch, symbol)
	}
	return snap, nil
}

// IsConnected indicates stream status.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// Close closes the WebSocket connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

var _ domrepo.PriceSource = (*Client)(nil)
