// Package realtime is the client side of the hosted push channel: one
// websocket subscription per watched collection, decoded into a buffered
// event queue consumed by the application's reconciler loop.
package realtime

import (
	"context"
	"net/url"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const (
	eventBufSize = 256
	pingInterval = 30 * time.Second
	writeWait    = 10 * time.Second
)

// Channel is one open subscription to a watched collection. The transport
// guarantees no ordering across event types; consumers must be idempotent.
type Channel struct {
	conn       *websocket.Conn
	logger     *zap.Logger
	collection string
	events     chan Event
}

// Dial opens a subscription for one collection. Auth is done via ?token=
// query param, the websocket handshake cannot carry headers.
func Dial(ctx context.Context, baseURL, token, collection string, logger *zap.Logger) (*Channel, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("collection", collection)
	if token != "" {
		q.Set("token", token)
	}
	u.RawQuery = q.Encode()

	conn, _, err := websocket.Dial(ctx, u.String(), nil)
	if err != nil {
		return nil, err
	}

	return &Channel{
		conn:       conn,
		logger:     logger,
		collection: collection,
		events:     make(chan Event, eventBufSize),
	}, nil
}

// Events is the inbound queue. It is closed when the read loop exits.
func (c *Channel) Events() <-chan Event {
	return c.events
}

// Run reads events until the context is canceled or the connection drops.
// Events addressed to other collections are skipped. When the queue is
// full, Run blocks: the single consumer applies changes cheaply, so the
// queue only fills if the consumer is gone.
func (c *Channel) Run(ctx context.Context) error {
	defer close(c.events)

	go c.keepalive(ctx)

	for {
		var event Event
		if err := wsjson.Read(ctx, c.conn, &event); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if websocket.CloseStatus(err) != -1 {
				c.logger.Info("realtime channel closed", zap.String("collection", c.collection))
				return nil
			}
			return err
		}

		if event.Type == EventTypePong {
			continue
		}
		if event.Collection != "" && event.Collection != c.collection {
			continue
		}

		select {
		case c.events <- event:
		case <-ctx.Done():
			return nil
		}
	}
}

// Close releases the subscription.
func (c *Channel) Close() error {
	return c.conn.Close(websocket.StatusNormalClosure, "")
}

func (c *Channel) keepalive(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := c.conn.Ping(pingCtx)
			cancel()
			if err != nil {
				c.logger.Debug("realtime ping failed",
					zap.String("collection", c.collection), zap.Error(err))
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
