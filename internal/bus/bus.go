// Package bus connects the assistant to the websocket hub as a named shard.
package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	log "log/slog"
	"net/url"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"
)

const (
	KindText  = "text"
	KindReply = "reply"
	KindError = "error"

	// Broadcast addresses every shard on the hub.
	Broadcast = "all"
)

type Message struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Kind    string `json:"kind"`
	Content string `json:"content"`
	Audio   []byte `json:"audio,omitempty"`
}

var ErrBadMessage = errors.New("bad bus message")

// Handler answers one inbound message. A nil reply sends nothing back.
type Handler func(ctx context.Context, m *Message) *Message

type Client struct {
	url    string
	name   string
	reconn time.Duration

	mu   sync.Mutex
	conn *ws.Conn
}

// Dial connects to the hub at rawURL and introduces the shard as name.
func Dial(ctx context.Context, rawURL, name string, reconn time.Duration) (*Client, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse bus url: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, fmt.Errorf("bus url %q: scheme must be ws or wss", rawURL)
	}
	if reconn <= 0 {
		reconn = time.Second
	}

	c := &Client{url: u.String(), name: name, reconn: reconn}
	if err := c.dial(ctx); err != nil {
		return nil, err
	}
	log.Info("Connected to bus", "url", c.url, "name", name)
	return c, nil
}

func (c *Client) dial(ctx context.Context) error {
	conn, _, err := ws.DefaultDialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("dial bus: %w", err)
	}

	c.mu.Lock()
	if c.conn != nil {
		c.conn.Close()
	}
	c.conn = conn
	c.mu.Unlock()
	if ctx.Err() != nil {
		conn.Close()
		return ctx.Err()
	}

	return c.Write(&Message{From: c.name, To: Broadcast, Kind: "hello", Content: c.name})
}

func (c *Client) Name() string { return c.name }

func (c *Client) current() *ws.Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn
}

func (c *Client) Read() (*Message, error) {
	_, data, err := c.current().ReadMessage()
	if err != nil {
		return nil, err
	}

	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadMessage, err)
	}
	return &m, nil
}

func (c *Client) Write(m *Message) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(ws.TextMessage, data)
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.WriteControl(ws.CloseMessage,
		ws.FormatCloseMessage(ws.CloseNormalClosure, ""), time.Now().Add(time.Second))
	return c.conn.Close()
}

// For reports whether m is addressed to this shard.
func (c *Client) For(m *Message) bool {
	return m.From != c.name && (m.To == c.name || m.To == Broadcast)
}

// Serve reads until ctx is done, answering messages addressed to this
// shard. A dropped connection is redialled every reconn interval.
func (c *Client) Serve(ctx context.Context, h Handler) error {
	go func() {
		<-ctx.Done()
		c.current().Close()
	}()

	for {
		m, err := c.Read()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, ErrBadMessage) {
				log.Warn("Skipping bad bus message", "err", err)
				continue
			}
			log.Warn("Bus connection lost", "err", err, "closed", IsClosed(err))
			if err := c.reconnect(ctx); err != nil {
				return nil
			}
			continue
		}

		if !c.For(m) {
			continue
		}
		log.Debug("Bus message", "from", m.From, "kind", m.Kind)

		reply := h(ctx, m)
		if reply == nil {
			continue
		}
		if reply.From == "" {
			reply.From = c.name
		}
		if reply.To == "" {
			reply.To = m.From
		}
		if err := c.Write(reply); err != nil {
			log.Error("Failed to write bus reply", "to", reply.To, "err", err)
		}
	}
}

func (c *Client) reconnect(ctx context.Context) error {
	t := time.NewTicker(c.reconn)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
		if err := c.dial(ctx); err != nil {
			log.Debug("Bus redial failed", "err", err)
			continue
		}
		log.Info("Reconnected to bus", "url", c.url)
		return nil
	}
}

// IsClosed reports whether err is an orderly or abnormal websocket close.
func IsClosed(err error) bool {
	return ws.IsCloseError(err,
		ws.CloseNormalClosure,
		ws.CloseGoingAway,
		ws.CloseAbnormalClosure)
}
