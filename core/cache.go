package core

import (
	"context"
	"time"
)

type (
	// Cache stores serialized API payloads.
	// A miss is reported with ok == false and a nil error.
	Cache interface {
		Get(ctx context.Context, key string) (val []byte, ok bool, err error)
		Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
		Delete(ctx context.Context, keys ...string) error
		DeletePrefix(ctx context.Context, prefix string) error
	}

	// Broadcaster publishes invalidation topics to connected clients.
	Broadcaster interface {
		Broadcast(topic string)
	}
)

// Cache keys & live topics of cached resources.
const (
	TopicAnnouncements = "announcements"
	TopicPolls         = "polls"
	TopicIdeas         = "ideas"
	TopicEvents        = "events"
	TopicBluten        = "bluten"
	TopicProfiles      = "profiles"
)

type noopBroadcaster struct{}

func (noopBroadcaster) Broadcast(string) {}

// NoopBroadcaster is used when no live feed is configured.
var NoopBroadcaster Broadcaster = noopBroadcaster{}
