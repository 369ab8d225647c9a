package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/moritahiro/wearmarket-backend/internal/stock"
	"github.com/moritahiro/wearmarket-backend/pkg/db/models"
	"github.com/moritahiro/wearmarket-backend/pkg/enums"
	"github.com/moritahiro/wearmarket-backend/pkg/logger"
	"github.com/moritahiro/wearmarket-backend/pkg/outbox"
	"github.com/moritahiro/wearmarket-backend/pkg/outbox/idempotency"
	"github.com/moritahiro/wearmarket-backend/pkg/outbox/payloads"
	"github.com/moritahiro/wearmarket-backend/pkg/outbox/registry"
)

const soldOutConsumer = "sold-out-notifications"

type repository interface {
	Create(ctx context.Context, notification *models.Notification) error
}

type cartHolders interface {
	BuyersHolding(ctx context.Context, key stock.Key) ([]uuid.UUID, error)
}

type productOwners interface {
	OwnerOf(ctx context.Context, productID uuid.UUID) (uuid.UUID, error)
}

// Consumer watches domain events and fans sold-out stock transitions out to
// the owning seller and every buyer still holding the variant in a cart.
type Consumer struct {
	repo         repository
	holders      cartHolders
	owners       productOwners
	subscription *pubsub.Subscriber
	idempotency  *idempotency.Manager
	decoders     *registry.DecoderRegistry
	logg         *logger.Logger
}

// NewConsumer builds a sold-out notification consumer.
func NewConsumer(
	repo repository,
	holders cartHolders,
	owners productOwners,
	subscription *pubsub.Subscriber,
	manager *idempotency.Manager,
	logg *logger.Logger,
) (*Consumer, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if holders == nil {
		return nil, fmt.Errorf("cart holders lookup required")
	}
	if owners == nil {
		return nil, fmt.Errorf("product owners lookup required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("domain subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}

	decoders := registry.NewDecoderRegistry()
	decoders.Register(enums.EventStockSoldOut, 1, func(payload json.RawMessage) (interface{}, error) {
		var decoded payloads.StockSoldOutEvent
		if err := json.Unmarshal(payload, &decoded); err != nil {
			return nil, err
		}
		return &decoded, nil
	})

	return &Consumer{
		repo:         repo,
		holders:      holders,
		owners:       owners,
		subscription: subscription,
		idempotency:  manager,
		decoders:     decoders,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := msg.Attributes["event_type"]
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
	})

	if eventType != string(enums.EventStockSoldOut) {
		c.logg.Info(logCtx, "skipping non-sold-out event")
		return processResult{ack: true}
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, soldOutConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	decoded, err := c.decoders.Decode(enums.EventStockSoldOut, envelope.Version, envelope.Data)
	if err != nil {
		c.logg.Error(logCtx, "failed to parse payload", err)
		return processResult{ack: true}
	}
	payload, ok := decoded.(*payloads.StockSoldOutEvent)
	if !ok {
		c.logg.Error(logCtx, "unexpected payload type", fmt.Errorf("got %T", decoded))
		return processResult{ack: true}
	}

	if err := c.fanOut(ctx, payload, logCtx); err != nil {
		c.logg.Error(logCtx, "sold-out fan-out failed", err)
		_ = c.idempotency.Delete(ctx, soldOutConsumer, eventID)
		return processResult{nack: true}
	}
	return processResult{ack: true}
}

func (c *Consumer) fanOut(ctx context.Context, payload *payloads.StockSoldOutEvent, logCtx context.Context) error {
	for _, key := range payload.Keys {
		variant := stock.Key{ProductID: key.ProductID, SizeID: key.SizeID}

		owner, err := c.owners.OwnerOf(ctx, key.ProductID)
		if err != nil {
			return err
		}
		holders, err := c.holders.BuyersHolding(ctx, variant)
		if err != nil {
			return err
		}

		recipients := map[uuid.UUID]bool{owner: true}
		for _, holder := range holders {
			recipients[holder] = true
		}

		for recipient := range recipients {
			productID := key.ProductID
			sizeID := key.SizeID
			notification := &models.Notification{
				UserID:    recipient,
				Type:      enums.NotificationTypeSoldOut,
				ProductID: &productID,
				SizeID:    &sizeID,
				Title:     "Item sold out",
				Message:   fmt.Sprintf("Product %s is now sold out in this size.", key.ProductID),
			}
			if err := c.repo.Create(ctx, notification); err != nil {
				return err
			}
		}

		c.logg.Info(c.logg.WithFields(logCtx, map[string]any{
			"product_id": key.ProductID.String(),
			"size_id":    key.SizeID.String(),
			"recipients": len(recipients),
		}), "sold-out notifications written")
	}
	return nil
}
