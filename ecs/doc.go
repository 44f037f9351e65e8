// Package ecs provides ECS adapters for puppet's interaction events.
//
// The primary adapter is [NewDonburiStore], which publishes pointer, click
// and hit-area events into a [Donburi] world as typed events. Subscribe to
// [InteractionEventType] for everything, or to [HitEventType] for hit areas
// only.
//
// Usage:
//
//	store := ecs.NewDonburiStore(world)
//	scene.SetEntityStore(store)
//
// [Donburi]: https://github.com/yohamta/donburi
package ecs
