// Package worker consumes order trigger events from Pub/Sub and feeds
// them to the rollup pipeline. Delivery is at-least-once and unordered;
// a Redis idempotency guard drops duplicate deliveries before they
// reach the handler.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/carretedigital/carrete-backend/pkg/enums"
	apperrors "github.com/carretedigital/carrete-backend/pkg/errors"
	"github.com/carretedigital/carrete-backend/pkg/events"
	"github.com/carretedigital/carrete-backend/pkg/logger"
	"github.com/google/uuid"
)

const ordersConsumerName = "rollup-worker"

// Handler defines how to process order envelopes.
type Handler interface {
	Handle(ctx context.Context, envelope events.Envelope) error
}

// HandlerFunc adapts functions to the Handler interface.
type HandlerFunc func(ctx context.Context, envelope events.Envelope) error

// Handle calls the underlying function.
func (fn HandlerFunc) Handle(ctx context.Context, envelope events.Envelope) error {
	if fn == nil {
		return nil
	}
	return fn(ctx, envelope)
}

type idempotencyChecker interface {
	CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	Delete(ctx context.Context, consumer string, eventID uuid.UUID) error
}

// Service consumes order messages from Pub/Sub while honoring Redis idempotency.
type Service struct {
	subscription  *gcppubsub.Subscriber
	handler       Handler
	manager       idempotencyChecker
	logg          *logger.Logger
	handleTimeout time.Duration
}

// NewService creates a new rollup worker service.
func NewService(subscription *gcppubsub.Subscriber, handler Handler, manager idempotencyChecker, logg *logger.Logger, handleTimeout time.Duration) (*Service, error) {
	if subscription == nil {
		return nil, errors.New("orders subscription is required")
	}
	if handler == nil {
		return nil, errors.New("orders handler is required")
	}
	if manager == nil {
		return nil, errors.New("idempotency manager is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	if handleTimeout <= 0 {
		handleTimeout = 25 * time.Second
	}

	return &Service{
		subscription:  subscription,
		handler:       handler,
		manager:       manager,
		logg:          logg,
		handleTimeout: handleTimeout,
	}, nil
}

type processResult struct {
	nack bool
}

// Run starts consuming order messages until the context is canceled.
func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return s.subscription.Receive(ctx, func(innerCtx context.Context, msg *gcppubsub.Message) {
		if s.process(innerCtx, msg).nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

func (s *Service) process(ctx context.Context, msg *gcppubsub.Message) processResult {
	fields := map[string]any{"message_id": msg.ID}
	logCtx := s.logg.WithFields(ctx, fields)

	envelope, err := s.buildEnvelope(msg)
	if err != nil {
		fields["error"] = err.Error()
		s.logg.Warn(s.logg.WithFields(ctx, fields), "invalid order envelope")
		return processResult{}
	}
	fields["event_id"] = envelope.EventID
	fields["event_type"] = envelope.EventType
	fields["order_id"] = envelope.OrderID
	fields["occurred_at"] = envelope.OccurredAt.Format(time.RFC3339Nano)
	logCtx = s.logg.WithFields(ctx, fields)

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		s.logg.Warn(logCtx, "invalid event id")
		return processResult{}
	}

	already, err := s.manager.CheckAndMarkProcessed(logCtx, ordersConsumerName, eventID)
	if err != nil {
		s.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		s.logg.Info(logCtx, "event already processed")
		return processResult{}
	}

	handleCtx, cancel := context.WithTimeout(logCtx, s.handleTimeout)
	defer cancel()

	if err := s.handler.Handle(handleCtx, *envelope); err != nil {
		if typed := apperrors.As(err); typed != nil && typed.Code() == apperrors.CodeValidation {
			// Malformed payloads never become valid on redelivery.
			s.logg.Warn(logCtx, "dropping malformed order event: "+err.Error())
			return processResult{}
		}
		s.logg.Error(logCtx, "handler error", err)
		if delErr := s.manager.Delete(logCtx, ordersConsumerName, eventID); delErr != nil {
			// Redelivery will now short-circuit on the stale mark; the
			// TTL eventually clears it, but the retry is lost until then.
			s.logg.Warn(logCtx, "clearing idempotency mark failed: "+delErr.Error())
		}
		return processResult{nack: true}
	}

	s.logg.Info(logCtx, "order event handled")
	return processResult{}
}

func (s *Service) buildEnvelope(msg *gcppubsub.Message) (*events.Envelope, error) {
	var stored events.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &stored); err != nil {
		return nil, fmt.Errorf("decode payload envelope: %w", err)
	}

	eventTypeStr := strings.TrimSpace(msg.Attributes["event_type"])
	eventType, err := enums.ParseOrderEventType(eventTypeStr)
	if err != nil {
		return nil, fmt.Errorf("event_type: %w", err)
	}

	orderID := strings.TrimSpace(msg.Attributes["order_id"])

	occurredAt := stored.OccurredAt
	if occurredAt.IsZero() {
		if created := strings.TrimSpace(msg.Attributes["created_at"]); created != "" {
			if parsed, err := time.Parse(time.RFC3339Nano, created); err == nil {
				occurredAt = parsed
			}
		}
	}

	eventID := strings.TrimSpace(stored.EventID)
	if eventID == "" {
		eventID = strings.TrimSpace(msg.Attributes["event_id"])
	}
	if eventID == "" {
		return nil, errors.New("event_id missing")
	}

	return &events.Envelope{
		EventID:    eventID,
		EventType:  eventType,
		OrderID:    orderID,
		OccurredAt: occurredAt.UTC(),
		Payload:    stored.Data,
	}, nil
}
