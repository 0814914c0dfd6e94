package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/utafrali/EcommerceGo/storefront/internal/domain"
	pkgkafka "github.com/utafrali/EcommerceGo/storefront/pkg/kafka"
)

// Kafka topics for wishlist migration events.
var (
	TopicGuestMigrated        = pkgkafka.Topic("wishlist", "guest_migrated")
	TopicGuestMigrationFailed = pkgkafka.Topic("wishlist", "guest_migration_failed")
)

// AggregateTypeWishlist is the aggregate type of every wishlist event.
const AggregateTypeWishlist = "wishlist"

// SourceStorefront identifies events originating from the storefront BFF.
const SourceStorefront = "storefront"

// GuestMigrationData is the payload for both migration events.
type GuestMigrationData struct {
	UserID        string `json:"user_id"`
	MigratedCount int    `json:"migrated_count"`
	FailedCount   int    `json:"failed_count"`
	Degraded      bool   `json:"degraded"`
	Reason        string `json:"reason,omitempty"`
}

// Publisher is the part of pkgkafka.Producer this package needs.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Producer publishes wishlist events to Kafka.
type Producer struct {
	kafka  Publisher
	logger *slog.Logger
}

// NewProducer creates a new wishlist event producer.
func NewProducer(kafka Publisher, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishGuestMigrated publishes a wishlist.guest_migrated event.
func (p *Producer) PublishGuestMigrated(ctx context.Context, report domain.MigrationReport) error {
	return p.publish(ctx, TopicGuestMigrated, report)
}

// PublishGuestMigrationFailed publishes a wishlist.guest_migration_failed event.
func (p *Producer) PublishGuestMigrationFailed(ctx context.Context, report domain.MigrationReport) error {
	return p.publish(ctx, TopicGuestMigrationFailed, report)
}

func (p *Producer) publish(ctx context.Context, topic string, report domain.MigrationReport) error {
	data := GuestMigrationData{
		UserID:        report.UserID,
		MigratedCount: report.MigratedCount,
		FailedCount:   report.FailedCount,
		Degraded:      report.Degraded,
		Reason:        report.Reason,
	}

	event, err := pkgkafka.NewEvent(topic, report.UserID, AggregateTypeWishlist, SourceStorefront, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	event.WithRequestContext(ctx)

	if err := p.kafka.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published wishlist event",
		slog.String("topic", topic),
		slog.String("user_id", report.UserID),
	)
	return nil
}

// NoopPublisher drops every event. It is used when no brokers are configured.
type NoopPublisher struct{}

// Publish implements Publisher.
func (NoopPublisher) Publish(context.Context, string, *pkgkafka.Event) error { return nil }
