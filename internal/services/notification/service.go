// Package notification publishes committed decision events for the
// downstream delivery service. Events go onto a Redis stream; delivery
// is at-least-once and consumers dedupe on application, stage and
// decision time.
package notification

import (
	"context"
	"fmt"
	"log"

	"envpermit/internal/repositories/cache"
	"envpermit/internal/services/assessment"
)

// DecisionStream is the Redis stream decision events are published to.
const DecisionStream = "permit:decisions"

type Service struct {
	cache *cache.CacheService
}

// NewService creates a notification publisher backed by the shared
// cache's Redis connection.
func NewService(cacheService *cache.CacheService) *Service {
	return &Service{cache: cacheService}
}

// PublishDecision appends one decision event to the stream.
func (s *Service) PublishDecision(ctx context.Context, event assessment.Event) error {
	if s.cache == nil {
		log.Printf("notify application %d: %s (%s)", event.ApplicationID, event.Title, event.NewStatus)
		return nil
	}

	err := s.cache.Publish(ctx, DecisionStream, map[string]interface{}{
		"event_id":       event.EventID,
		"application_id": event.ApplicationID,
		"stage":          string(event.Stage),
		"new_status":     event.NewStatus,
		"title":          event.Title,
		"message":        event.Message,
		"decided_at":     event.DecidedAt.Format("2006-01-02T15:04:05.000Z07:00"),
	})
	if err != nil {
		return fmt.Errorf("publish decision event: %w", err)
	}
	return nil
}
