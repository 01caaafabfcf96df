package server

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/venueops/go-order-tracking/internal/kafka"
	"github.com/venueops/go-order-tracking/internal/live"
	"github.com/venueops/go-order-tracking/internal/redisx"
)

// Broadcaster is what the intake needs from the hub.
type Broadcaster interface {
	BroadcastVenue(venueID string, env live.Envelope)
}

// Intake turns broker events from other services (checkout, kitchen) into
// websocket pushes for the owning venue. Installed as the kafka consumer
// handler.
type Intake struct {
	Hub     Broadcaster
	Redis   *redis.Client // optional event-id dedup
	Service string
}

func (in *Intake) HandleMessage(ctx context.Context, m kafkago.Message) error {
	var env Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}

	if in.Redis != nil {
		dkey := fmt.Sprintf(redisx.KeyDedup, in.Service, env.EventID)
		if seen, _ := redisx.Exists(ctx, in.Redis, dkey); seen {
			return nil
		}
		_ = in.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()
	}

	stamp := env.OccurredAt.UTC().Format(time.RFC3339)
	switch env.EventType {
	case EventOrderPlaced:
		p, err := kafkax.UnwrapPayload[OrderPlacedPayload](env.Payload)
		if err != nil {
			return err
		}
		data, _ := json.Marshal(p.Order)
		in.Hub.BroadcastVenue(p.Order.VenueID, live.Envelope{
			Type: live.TypeOrderCreated, Data: data, Timestamp: stamp,
		})

	case EventOrderStatusChanged:
		p, err := kafkax.UnwrapPayload[OrderStatusChangedPayload](env.Payload)
		if err != nil {
			return err
		}
		data, _ := json.Marshal(p.Update)
		in.Hub.BroadcastVenue(p.VenueID, live.Envelope{
			Type: live.TypeOrderStatusUpdated, Data: data, Timestamp: stamp,
		})

	default:
		// other event types are not for this service
	}
	return nil
}
