package gateway

import (
	"context"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/pkg/ws"
)

// Transport is the connection to the bridge.
type Transport interface {
	Connect(ctx context.Context) error
	// Request sends req and waits for its ack.
	Request(ctx context.Context, req Request) error
	// Messages streams frames until ctx is done or the connection drops,
	// then closes the channel.
	Messages(ctx context.Context) <-chan Envelope
	Close()
}

// WebSocket is the Transport over github.com/yanun0323/pkg/ws.
type WebSocket struct {
	url string
	wss *ws.WebSocket
}

func NewWebSocket(url string) *WebSocket {
	return &WebSocket{url: url}
}

func (t *WebSocket) Connect(ctx context.Context) error {
	t.wss = ws.New(ctx, t.url)
	if err := t.wss.Start(ctx); err != nil {
		return errors.Wrap(err, "start wss").With("url", t.url)
	}
	return nil
}

func (t *WebSocket) Request(ctx context.Context, req Request) error {
	// subscriptions are replayed by the client after a reconnect
	register := req.Op == OpSubscribe
	if err := t.wss.SendAndWait(ctx, ws.Sidecar{
		Sender: func(ctx context.Context, client *ws.WebSocket) error {
			if err := client.WriteJSON(req); err != nil {
				return errors.Wrap(err, "write request").With("op", req.Op)
			}
			return nil
		},
		Waiter: func(ctx context.Context, m ws.Message) (bool, error) {
			env, ok := ws.ReadMessage[Envelope](m)
			if !ok || env.Type != TypeAck || env.ID != req.ID {
				return false, nil
			}
			if env.Error != "" {
				return false, errors.Errorf("%s rejected: %s", req.Op, env.Error)
			}
			return true, nil
		},
	}, register); err != nil {
		return errors.Wrap(err, "send and wait").With("op", req.Op)
	}
	return nil
}

func (t *WebSocket) Messages(ctx context.Context) <-chan Envelope {
	ch, cancel := t.wss.Subscribe()
	out := make(chan Envelope, 256)
	go func() {
		defer close(out)
		defer cancel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-ch:
				if !ok {
					return
				}
				env, ok := ws.ReadMessage[Envelope](m)
				if !ok {
					continue
				}
				select {
				case out <- env:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

func (t *WebSocket) Close() {
	if t.wss != nil {
		t.wss.Close()
	}
}
