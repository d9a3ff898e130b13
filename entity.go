package kura

import (
	"fmt"
	"math"
	"sync"
)

// Entity is a generational handle to a row of components. It combines the id
// of the owning World, a recyclable index and a generation counter so that a
// handle to a despawned entity never aliases the entity that later reuses
// its index.
//
// Entity is comparable and can be used as a map key. The zero value is None
// and is never alive.
type Entity struct {
	// ID is the recyclable index of the entity inside its World.
	ID uint32
	// World identifies the World the entity was spawned in.
	World uint16
	// Generation is incremented every time ID is recycled.
	Generation uint16
}

// None is the zero Entity.
var None Entity

// IsNone reports whether e is the zero Entity.
func (e Entity) IsNone() bool {
	return e == None
}

// Alive reports whether e is still alive in the World it was spawned in.
func (e Entity) Alive() bool {
	w := lookupWorld(e.World)
	return w != nil && w.Alive(e)
}

// Pack encodes e into a single uint64.
func (e Entity) Pack() uint64 {
	return uint64(e.ID) | uint64(e.World)<<32 | uint64(e.Generation)<<48
}

// Unpack decodes an Entity produced by Pack.
func Unpack(v uint64) Entity {
	return Entity{
		ID:         uint32(v),
		World:      uint16(v >> 32),
		Generation: uint16(v >> 48),
	}
}

func (e Entity) String() string {
	if e.IsNone() {
		return "E(none)"
	}
	return fmt.Sprintf("E%d:%d@%d", e.ID, e.Generation, e.World)
}

// successor returns the handle the index of e is recycled as.
func (e Entity) successor() Entity {
	if e.Generation == math.MaxUint16 {
		panic(opError("recycle", e, ErrGenerationExhausted))
	}
	e.Generation++
	return e
}

// worlds maps world ids to live worlds so that an Entity can resolve its
// World without holding a reference to it.
//
// Freed ids are handed out again only after every id has been used once.
// A reused id keeps the highest generation its previous worlds issued, and
// the next world on that id mints above it, so a handle from a closed world
// never matches an entity of its successor.
var worlds struct {
	sync.RWMutex
	slots []worldSlot
	free  []uint16
}

type worldSlot struct {
	world *World
	floor uint16
}

// registerWorld assigns w an id and returns the generation floor of that id.
func registerWorld(w *World) (uint16, uint16) {
	worlds.Lock()
	defer worlds.Unlock()
	if len(worlds.slots) <= math.MaxUint16 {
		worlds.slots = append(worlds.slots, worldSlot{world: w})
		return uint16(len(worlds.slots) - 1), 0
	}
	if n := len(worlds.free); n > 0 {
		id := worlds.free[n-1]
		worlds.free = worlds.free[:n-1]
		worlds.slots[id].world = w
		return id, worlds.slots[id].floor
	}
	panic(opError("world", None, ErrWorldExhausted))
}

// unregisterWorld releases id. peak is the highest generation the closing
// world issued; an id whose generations are spent is retired.
func unregisterWorld(id, peak uint16) {
	worlds.Lock()
	defer worlds.Unlock()
	if int(id) >= len(worlds.slots) || worlds.slots[id].world == nil {
		return
	}
	slot := &worlds.slots[id]
	slot.world = nil
	slot.floor = max(slot.floor, peak)
	if slot.floor < math.MaxUint16 {
		worlds.free = append(worlds.free, id)
	}
}

func lookupWorld(id uint16) *World {
	worlds.RLock()
	defer worlds.RUnlock()
	if int(id) >= len(worlds.slots) {
		return nil
	}
	return worlds.slots[id].world
}
