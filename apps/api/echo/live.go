package echoapi

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// the feed only carries topic names, any origin may listen
	CheckOrigin: func(r *http.Request) bool { return true },
}

// registerLiveAPI mounts the invalidation feed. Browsers cannot set headers on websockets,
// so the token travels in the query string.
func (s *server) registerLiveAPI(api *echo.Group) {
	cfg := s.jwtConfig()
	cfg.TokenLookup = "query:token"
	api.GET("/live", s.live, middleware.JWTWithConfig(cfg))
}

func (s *server) live(ctx echo.Context) error {
	conn, err := upgrader.Upgrade(ctx.Response(), ctx.Request(), nil)
	if err != nil {
		return nil // the upgrader already replied
	}
	s.Live.ServeConn(conn)
	return nil
}
