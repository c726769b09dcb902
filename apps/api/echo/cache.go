package echoapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

var cacheTTL = 5 * time.Minute

// cachedList serves a list payload from the cache, loading and storing it on a miss.
// Cache failures are logged and the payload is loaded from the store.
func (s *server) cachedList(ctx echo.Context, key string, load func() (interface{}, error)) error {
	rctx := ctx.Request().Context()

	if val, ok, err := s.Cache.Get(rctx, key); err != nil {
		s.Logger.Warn("reading cache", errors.Wrap(err, key))
	} else if ok {
		return ctx.JSONBlob(http.StatusOK, val)
	}

	data, err := load()
	if err != nil {
		return err
	}
	val, err := json.Marshal(data)
	if err != nil {
		return errors.Wrap(err, "encoding payload")
	}
	if err = s.Cache.Set(rctx, key, val, cacheTTL); err != nil {
		s.Logger.Warn("writing cache", errors.Wrap(err, key))
	}
	return ctx.JSONBlob(http.StatusOK, val)
}

// invalidate drops every cached payload of the topic and tells live clients to refetch.
func (s *server) invalidate(ctx echo.Context, topic string) {
	if err := s.Cache.DeletePrefix(ctx.Request().Context(), topic); err != nil {
		s.Logger.Warn("invalidating cache", errors.Wrap(err, topic))
	}
	s.Live.Broadcast(topic)
}

func viewerKey(topic, viewerID string) string {
	return topic + ":" + viewerID
}
