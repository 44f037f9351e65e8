package ecs

import (
	"github.com/phanxgames/puppet"

	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/features/events"
)

// InteractionEventType carries every interaction event the scene emits.
var InteractionEventType = events.NewEventType[puppet.InteractionEvent]()

// HitEvent is a named hit area touched on a puppet.
type HitEvent struct {
	EntityID uint32
	Area     string
	// X and Y are in model-local units.
	X, Y float64
}

// HitEventType carries hit-area events only.
var HitEventType = events.NewEventType[HitEvent]()

type donburiStore struct {
	world donburi.World
}

// NewDonburiStore creates an EntityStore backed by a Donburi world.
// Events are queued; consume them with events.Subscribe and ProcessEvents.
func NewDonburiStore(world donburi.World) puppet.EntityStore {
	return &donburiStore{world: world}
}

func (s *donburiStore) EmitEvent(event puppet.InteractionEvent) {
	InteractionEventType.Publish(s.world, event)
	if event.Type == puppet.EventHit {
		HitEventType.Publish(s.world, HitEvent{
			EntityID: event.EntityID,
			Area:     event.HitArea,
			X:        event.LocalX,
			Y:        event.LocalY,
		})
	}
}
