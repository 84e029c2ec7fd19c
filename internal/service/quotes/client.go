package quotes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	domrepo "github.com/gurubamal/iimcat-sub002/internal/domain/repository"
	"github.com/gurubamal/iimcat-sub002/pkg/logger"
)

var ErrNotConnected = errors.New("quotes: not connected")

var _ domrepo.QuoteStream = (*Client)(nil)

type Option func(*Client)

func WithReconnectDelay(d time.Duration) Option {
	return func(c *Client) { c.reconnectDelay = d }
}

func WithPingInterval(d time.Duration) Option {
	return func(c *Client) { c.pingInterval = d }
}

// WithMaxAge sets how old a quote may be before it stops being reported.
func WithMaxAge(d time.Duration) Option {
	return func(c *Client) { c.maxAge = d }
}

func WithLogger(l *logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

func withClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

type quote struct {
	price float64
	at    time.Time
}

// Client is a QuoteStream backed by a trade websocket.
type Client struct {
	apiKey         string
	websocketURL   string
	symbols        []string
	reconnectDelay time.Duration
	pingInterval   time.Duration
	maxAge         time.Duration
	log            *logger.Logger
	now            func() time.Time

	mu        sync.RWMutex
	conn      *websocket.Conn
	last      map[string]quote
	prevClose map[string]float64

	cancel context.CancelFunc
	done   chan struct{}
}

func New(websocketURL, apiKey string, symbols []string, opts ...Option) *Client {
	c := &Client{
		apiKey:         apiKey,
		websocketURL:   websocketURL,
		symbols:        symbols,
		reconnectDelay: 5 * time.Second,
		pingInterval:   20 * time.Second,
		maxAge:         2 * time.Minute,
		log:            logger.Nop(),
		now:            time.Now,
		last:           make(map[string]quote),
		prevClose:      make(map[string]float64),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Start connects and subscribes, then keeps the feed alive in the background
// until ctx is cancelled or Close is called. Only the first connect is fatal.
func (c *Client) Start(ctx context.Context) error {
	if err := c.connect(ctx); err != nil {
		return err
	}
	ctx, c.cancel = context.WithCancel(ctx)
	c.done = make(chan struct{})
	go c.loop(ctx)
	return nil
}

func (c *Client) SetPreviousClose(symbol string, close float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prevClose[symbol] = close
}

// IndexChangePct reports the percent move of the last trade against the previous close.
func (c *Client) IndexChangePct(symbol string) (float64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	q, ok := c.last[symbol]
	prev := c.prevClose[symbol]
	if !ok || prev <= 0 {
		return 0, false
	}
	if c.maxAge > 0 && c.now().Sub(q.at) > c.maxAge {
		return 0, false
	}
	return (q.price - prev) / prev * 100, true
}

func (c *Client) Close() error {
	if c.cancel != nil {
		c.cancel()
	}
	err := c.closeConn()
	if c.done != nil {
		<-c.done
	}
	return err
}

func (c *Client) connect(ctx context.Context) error {
	u, err := url.Parse(c.websocketURL)
	if err != nil {
		return fmt.Errorf("quotes url: %w", err)
	}
	if c.apiKey != "" {
		q := u.Query()
		q.Set("token", c.apiKey)
		u.RawQuery = q.Encode()
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("quotes connect: %w", err)
	}
	for _, s := range c.symbols {
		if err := conn.WriteJSON(map[string]string{"type": "subscribe", "symbol": s}); err != nil {
			_ = conn.Close()
			return fmt.Errorf("subscribe %s: %w", s, err)
		}
	}
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	c.log.Info("quotes connected", logger.Strings("symbols", c.symbols))
	return nil
}

func (c *Client) closeConn() error {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()
	if conn == nil {
		return nil
	}
	return conn.Close()
}

func (c *Client) loop(ctx context.Context) {
	defer close(c.done)
	for {
		err := c.read(ctx)
		if ctx.Err() != nil {
			return
		}
		c.log.Warn("quotes feed dropped", logger.Error(err))
		_ = c.closeConn()

		for {
			select {
			case <-ctx.Done():
				return
			case <-time.After(c.reconnectDelay):
			}
			if err := c.connect(ctx); err != nil {
				c.log.Warn("quotes reconnect failed", logger.Error(err))
				continue
			}
			break
		}
	}
}

type trade struct {
	S string  `json:"s"`
	P float64 `json:"p"`
	T int64   `json:"t"` // ms
}

type frame struct {
	Type string  `json:"type"`
	Data []trade `json:"data"`
}

func (c *Client) read(ctx context.Context) error {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()
	if conn == nil {
		return ErrNotConnected
	}

	pingDone := make(chan struct{})
	defer close(pingDone)
	go func() {
		t := time.NewTicker(c.pingInterval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-pingDone:
				return
			case <-t.C:
				_ = conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(time.Second))
			}
		}
	}()

	for {
		_, b, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("quotes read: %w", err)
		}
		var f frame
		if err := json.Unmarshal(b, &f); err != nil || f.Type != "trade" {
			continue
		}
		c.mu.Lock()
		for _, d := range f.Data {
			if d.P <= 0 {
				continue
			}
			at := c.now()
			if d.T > 0 {
				at = time.UnixMilli(d.T)
			}
			if prev, ok := c.last[d.S]; ok && prev.at.After(at) {
				continue
			}
			c.last[d.S] = quote{price: d.P, at: at}
		}
		c.mu.Unlock()
	}
}
