package rollup

import (
	"context"
	"encoding/json"

	"github.com/carretedigital/carrete-backend/pkg/enums"
	apperrors "github.com/carretedigital/carrete-backend/pkg/errors"
	"github.com/carretedigital/carrete-backend/pkg/events"
	"github.com/carretedigital/carrete-backend/pkg/logger"
)

// Handler routes decoded order envelopes to the aggregation pipeline.
type Handler struct {
	svc  *Service
	logg *logger.Logger
}

func NewHandler(svc *Service, logg *logger.Logger) *Handler {
	return &Handler{svc: svc, logg: logg}
}

func (h *Handler) Handle(ctx context.Context, env events.Envelope) error {
	switch env.EventType {
	case enums.OrderEventChanged:
		var evt events.OrderChangedEvent
		if err := json.Unmarshal(env.Payload, &evt); err != nil {
			return apperrors.Wrap(apperrors.CodeValidation, err, "decoding order payload")
		}
		if evt.OrderID == "" {
			evt.OrderID = env.OrderID
		}
		return h.svc.HandleOrderChanged(ctx, evt)
	case enums.OrderEventDeleted:
		// Deletions do not touch the aggregate; ack and move on.
		h.logg.Info(h.logg.WithOrderID(ctx, env.OrderID), "order deletion acked without aggregation")
		return nil
	default:
		return apperrors.New(apperrors.CodeValidation, "unsupported order event type")
	}
}
