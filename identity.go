package kura

import (
	"math"
	"sync/atomic"
)

// identityPool mints and recycles entity handles for one World.
//
// Recycled handles already carry their successor generation, so spawning
// from the pool is a pop. Fresh indices come from an atomic counter and
// start one generation above floor.
type identityPool struct {
	recycled    []Entity
	generations []uint16 // live generation per index, 0 while pooled
	minted      atomic.Uint64
	limit       uint64
	world       uint16
	floor       uint16
	peak        uint16 // highest generation handed out or queued
}

func (p *identityPool) init(world, floor uint16, capacity int) {
	p.world = world
	p.floor = floor
	p.peak = floor
	p.limit = math.MaxUint32 + 1
	p.generations = make([]uint16, 0, capacity)
}

// spawn returns a single live handle.
func (p *identityPool) spawn() Entity {
	if n := len(p.recycled); n > 0 {
		e := p.recycled[n-1]
		p.recycled = p.recycled[:n-1]
		p.generations[e.ID] = e.Generation
		return e
	}
	return p.mint(1)[0]
}

// spawnN returns k live handles, draining the recycled pool before minting.
func (p *identityPool) spawnN(k int) []Entity {
	out := make([]Entity, 0, k)
	for len(out) < k && len(p.recycled) > 0 {
		n := len(p.recycled)
		e := p.recycled[n-1]
		p.recycled = p.recycled[:n-1]
		p.generations[e.ID] = e.Generation
		out = append(out, e)
	}
	if rest := k - len(out); rest > 0 {
		out = append(out, p.mint(rest)...)
	}
	return out
}

func (p *identityPool) mint(k int) []Entity {
	end := p.minted.Add(uint64(k))
	if end > p.limit {
		p.minted.Add(^uint64(k - 1))
		panic(opError("spawn", None, ErrIdentityExhausted))
	}
	start := end - uint64(k)
	gen := p.floor + 1
	p.peak = max(p.peak, gen)
	out := make([]Entity, k)
	for i := range out {
		out[i] = Entity{ID: uint32(start + uint64(i)), World: p.world, Generation: gen}
		p.generations = append(p.generations, gen)
	}
	return out
}

// recycle retires the index of next and queues next for reuse. next must
// be the successor of a live handle.
func (p *identityPool) recycle(next Entity) {
	p.generations[next.ID] = 0
	p.peak = max(p.peak, next.Generation)
	p.recycled = append(p.recycled, next)
}

// alive reports whether e carries the current generation of its index.
func (p *identityPool) alive(e Entity) bool {
	if e.World != p.world || int(e.ID) >= len(p.generations) {
		return false
	}
	g := p.generations[e.ID]
	return g != 0 && g == e.Generation
}
