package ports

import (
	"context"

	"github.com/gemfoundation/exposure/internal/core/domain"
)

// EventPublisher publishes domain events to a message broker.
type EventPublisher interface {
	PublishCalculationProcess(ctx context.Context, event *domain.CalculationEvent) error
	PublishCalculationStatus(ctx context.Context, event *domain.CalculationEvent) error
	PublishExportCompleted(ctx context.Context, event *domain.ExportEvent) error
}

// EventSubscriber subscribes to domain events from a message broker.
type EventSubscriber interface {
	SubscribeCalculationProcess(ctx context.Context, handler func(ctx context.Context, event *domain.CalculationEvent) error) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}

// Mailer delivers plain-text email.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// WorkflowStarter kicks off durable background workflows.
type WorkflowStarter interface {
	StartArtifactNotification(ctx context.Context, calculationID int64) error
}
