package portal

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"

	livesvc "github.com/trezcool/council/services/live"
)

// Listen follows the live feed of the API until ctx is done or the server goes away.
// Every received topic invalidates the cached queries of that topic, then onTopic (if set) is called.
func (c *Client) Listen(ctx context.Context, onTopic func(topic string)) error {
	token, err := c.token()
	if err != nil {
		return err
	}
	u := liveURL(c.baseURL) + "?token=" + url.QueryEscape(token)

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		if resp != nil && resp.StatusCode >= http.StatusBadRequest {
			return &APIError{StatusCode: resp.StatusCode}
		}
		return &NetworkError{Err: err}
	}
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close() // unblocks ReadJSON
		case <-done:
		}
	}()

	for {
		var evt livesvc.Event
		if err := conn.ReadJSON(&evt); err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return &NetworkError{Err: err}
		}
		c.cache.Invalidate(evt.Topic)
		if onTopic != nil {
			onTopic(evt.Topic)
		}
	}
}

func liveURL(baseURL string) string {
	switch {
	case strings.HasPrefix(baseURL, "https://"):
		baseURL = "wss://" + strings.TrimPrefix(baseURL, "https://")
	case strings.HasPrefix(baseURL, "http://"):
		baseURL = "ws://" + strings.TrimPrefix(baseURL, "http://")
	}
	return baseURL + "/live"
}
