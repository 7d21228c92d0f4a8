package ws

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/coder/websocket"
)

// URL turns "host:port" into "ws://host:port/". Values that already carry a
// ws:// or wss:// scheme are returned unchanged.
func URL(addr string) string {
	if strings.HasPrefix(addr, "ws://") || strings.HasPrefix(addr, "wss://") {
		return addr
	}
	return "ws://" + addr + "/"
}

// Dial connects to a relay endpoint. httpClient may be nil.
func Dial(ctx context.Context, addr string, httpClient *http.Client) (*Conn, error) {
	url := URL(addr)

	c, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{
		HTTPClient: httpClient,
	})
	if err != nil {
		return nil, fmt.Errorf("websocket.Dial(%s): %w", url, err)
	}

	return NewConn(c, addr), nil
}
